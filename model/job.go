package model //import "pagemark/model"

const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
)

const (
	// JobTypeSyncLog records a changed (book, device) pair in the
	// replication log so other devices can pull it incrementally.
	JobTypeSyncLog = "sync_log"
	// JobTypeSyncLogPrune trims replication log entries past retention.
	JobTypeSyncLogPrune = "sync_log_prune"
)

type Job struct {
	ID        int
	UserID    int32
	BookID    string
	DeviceID  string
	Type      string
	Status    string
	UpdatedTs int64
}

type JobList []Job

func (j JobList) Len() int {
	return len(j)
}
