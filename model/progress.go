package model //import "pagemark/model"

// SessionType is the activity source of a reading session.
type SessionType string

const (
	// SessionTypePage is visual page reading.
	SessionTypePage SessionType = "page"
	// SessionTypeTTS is text-to-speech playback.
	SessionTypeTTS SessionType = "tts"
)

// ReadingSession is one consolidated block of reading activity of a single
// type. Contiguous same-type events within the merge window collapse into one
// session instead of one record per page turn or TTS sentence.
type ReadingSession struct {
	CfiRanges []string    `json:"cfi_ranges"`
	StartTime int64       `json:"start_time"`
	EndTime   int64       `json:"end_time"`
	Type      SessionType `json:"type"`

	// Records written before schema version 2 carried a single timestamp and
	// range per event instead of a start/end pair. The fields are kept so old
	// replicas still decode; MigrateAndPruneHistory drops such sessions.
	Timestamp int64  `json:"timestamp,omitempty"`
	CfiRange  string `json:"cfi_range,omitempty"`
}

// IsLegacy reports whether the session predates the start/end model.
// A legacy session lacks both bounds and cannot be upgraded losslessly.
func (s *ReadingSession) IsLegacy() bool {
	return s.StartTime == 0 && s.EndTime == 0
}

func (s *ReadingSession) Clone() *ReadingSession {
	clone := *s
	clone.CfiRanges = append([]string(nil), s.CfiRanges...)
	return &clone
}

// Progress is the per-(book, device) unit of state. Each device writes only
// to its own record; it observes every other device's record read-only via
// replication.
type Progress struct {
	BookID   string `json:"book_id"`
	DeviceID string `json:"device_id"`

	// Percentage is the furthest-reached fraction of the book, in [0,1].
	Percentage float64 `json:"percentage"`
	// CurrentCfi is the exact resume position.
	CurrentCfi string `json:"current_cfi"`
	// LastRead is the millisecond timestamp of the most recent update.
	LastRead int64 `json:"last_read"`
	// CompletedRanges are the coalesced ranges the user actually traversed.
	// Always the output of cfi.Merge, never raw appends.
	CompletedRanges []string `json:"completed_ranges"`
	// ReadingSessions is ordered oldest first and bounded in length.
	ReadingSessions []*ReadingSession `json:"reading_sessions"`
}

// Clone returns a deep copy. Resolved progress is always handed out by value
// so callers cannot alias a stored record.
func (p *Progress) Clone() *Progress {
	if p == nil {
		return nil
	}
	clone := *p
	clone.CompletedRanges = append([]string(nil), p.CompletedRanges...)
	if p.ReadingSessions != nil {
		clone.ReadingSessions = make([]*ReadingSession, 0, len(p.ReadingSessions))
		for _, session := range p.ReadingSessions {
			clone.ReadingSessions = append(clone.ReadingSessions, session.Clone())
		}
	}
	return &clone
}

// RangeUpdate is one raw reading event reported by a device: the range it
// covered and the activity type that produced it.
type RangeUpdate struct {
	Range string      `json:"range"`
	Type  SessionType `json:"type"`
}

type UpdateLocationRequest struct {
	Cfi        string  `json:"cfi"`
	Percentage float64 `json:"percentage"`
}

type UpdateSessionRequest struct {
	Cfi        string        `json:"cfi"`
	Percentage float64       `json:"percentage"`
	Updates    []RangeUpdate `json:"updates"`
}

// SyncRecord is one per-device record as exchanged on the replication
// boundary.
type SyncRecord struct {
	BookID    string    `json:"book_id"`
	DeviceID  string    `json:"device_id"`
	UpdatedTs int64     `json:"updated_ts"`
	Progress  *Progress `json:"progress"`
}
