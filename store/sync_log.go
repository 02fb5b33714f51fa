package store

import (
	"pagemark/model"

	"github.com/pkg/errors"
)

// The sync_log table is the replication outbox: one row per (book, device)
// change, written by the worker pool after a progress update commits.
// Devices pull it incrementally; entries past retention are pruned.

func (s *Store) AddSyncLog(job model.Job) (*model.Job, error) {
	stmt := `
	INSERT INTO sync_log (user_id, book_id, device_id, updated_ts)
	VALUES (?, ?, ?, ?)
	RETURNING id
	`
	newJob := job
	if err := s.db.QueryRow(stmt, job.UserID, job.BookID, job.DeviceID, job.UpdatedTs).Scan(&newJob.ID); err != nil {
		return nil, errors.Wrap(err, "failed to add sync log entry")
	}
	newJob.Status = model.JobStatusDone
	return &newJob, nil
}

// ListSyncLog returns the (book, device) pairs changed after the given
// timestamp, oldest first.
func (s *Store) ListSyncLog(sinceTs int64) ([]*model.Job, error) {
	stmt := `
	SELECT id, user_id, book_id, device_id, updated_ts
	FROM sync_log WHERE updated_ts > ? ORDER BY updated_ts
	`
	rows, err := s.db.Query(stmt, sinceTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sync log")
	}
	defer rows.Close()

	list := make([]*model.Job, 0)
	for rows.Next() {
		var job model.Job
		if err := rows.Scan(&job.ID, &job.UserID, &job.BookID, &job.DeviceID, &job.UpdatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan sync log entry")
		}
		list = append(list, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate sync log")
	}
	return list, nil
}

// PruneSyncLog removes entries older than the given timestamp and returns
// how many were dropped.
func (s *Store) PruneSyncLog(beforeTs int64) (int64, error) {
	stmt := `DELETE FROM sync_log WHERE updated_ts < ?`
	result, err := s.db.Exec(stmt, beforeTs)
	if err != nil {
		return 0, errors.Wrap(err, "failed to prune sync log")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}
