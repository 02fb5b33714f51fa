package worker // import "pagemark/worker"

import (
	"time"

	"pagemark/config"
	"pagemark/log"
	"pagemark/model"
	"pagemark/store"

	"go.uber.org/zap"
)

// SyncLogPool fans replication log writes out of the request path. A
// progress update commits synchronously; recording the change in the outbox
// for other devices to pull is queued here.
type SyncLogPool struct {
	queue chan model.Job
}

func NewSyncLogPool(store *store.Store, size int) *SyncLogPool {
	pool := &SyncLogPool{
		queue: make(chan model.Job),
	}

	for i := 0; i < size; i++ {
		worker := &SyncLogWorker{id: i, store: store}
		go worker.Run(pool.queue)
	}

	return pool
}

func (p *SyncLogPool) GetQueue() chan model.Job {
	return p.queue
}

// Implement WorkPool interface
func (p *SyncLogPool) Push(job model.Job) {
	p.queue <- job
}

type SyncLogWorker struct {
	id    int
	store *store.Store
}

func (w *SyncLogWorker) Run(c <-chan model.Job) {
	log.Debug("SyncLogWorker is running", zap.Int("worker_id", w.id))

	for {
		job := <-c

		switch job.Type {
		case model.JobTypeSyncLog:
			if _, err := w.store.AddSyncLog(job); err != nil {
				log.Error("Failed to record sync log entry",
					zap.Int("worker_id", w.id),
					zap.String("book_id", job.BookID),
					zap.String("device_id", job.DeviceID),
					zap.Error(err),
				)
				continue
			}
			log.Debug("Recorded sync log entry",
				zap.String("book_id", job.BookID),
				zap.String("device_id", job.DeviceID),
			)
		case model.JobTypeSyncLogPrune:
			retention := time.Duration(config.Opts.SyncLogRetentionDays) * 24 * time.Hour
			beforeTs := time.Now().Add(-retention).UnixMilli()
			pruned, err := w.store.PruneSyncLog(beforeTs)
			if err != nil {
				log.Error("Failed to prune sync log", zap.Error(err))
				continue
			}
			if pruned > 0 {
				log.Info("Pruned sync log entries", zap.Int64("pruned", pruned))
			}
		default:
			log.Warn("Unknown job type", zap.String("type", job.Type))
		}
	}
}
