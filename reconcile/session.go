package reconcile

import (
	"time"

	"pagemark/cfi"
	"pagemark/model"
)

// MergeWindow is how close a new event must be to the end of the previous
// same-type session to extend it instead of opening a new one. Without the
// window every page turn and TTS sentence boundary would be its own session
// and the replicated record would grow with reading events, not sit-downs.
const MergeWindow = 20 * time.Minute

const (
	// MaxSessions triggers pruning when the history grows past it.
	MaxSessions = 500
	// RetainSessions is how many of the newest sessions survive a prune.
	RetainSessions = 300
)

var mergeWindowMs = MergeWindow.Milliseconds()

// NewProgress returns an empty record for a (book, device) pair. Records are
// created lazily on the first location or session update.
func NewProgress(bookID, deviceID string) *model.Progress {
	return &model.Progress{
		BookID:          bookID,
		DeviceID:        deviceID,
		CompletedRanges: []string{},
		ReadingSessions: []*model.ReadingSession{},
	}
}

// ApplyLocation overwrites the resume position. History and completed ranges
// are untouched; percentage is trusted as supplied.
func ApplyLocation(p *model.Progress, currentCfi string, percentage float64, now int64) {
	p.CurrentCfi = currentCfi
	p.Percentage = percentage
	p.LastRead = now
}

// AppendUpdates folds a stream of raw reading events into the record's
// session history and completed ranges, in order, all stamped with now
// (milliseconds).
//
// An event extends the last session when the type matches and no more than
// MergeWindow has passed since that session ended; otherwise it opens a new
// single-instant session. Completed ranges accumulate independently of the
// history over the same stream. After all events are applied the history is
// pruned to RetainSessions entries if it overflowed MaxSessions.
func AppendUpdates(p *model.Progress, updates []model.RangeUpdate, now int64) {
	for _, update := range updates {
		last := lastSession(p)
		if last != nil && last.Type == update.Type && now-last.EndTime <= mergeWindowMs {
			last.EndTime = now
			last.CfiRanges = cfi.Merge(last.CfiRanges, update.Range)
		} else {
			p.ReadingSessions = append(p.ReadingSessions, &model.ReadingSession{
				CfiRanges: []string{update.Range},
				StartTime: now,
				EndTime:   now,
				Type:      update.Type,
			})
		}
		p.CompletedRanges = cfi.Merge(p.CompletedRanges, update.Range)
	}

	if len(p.ReadingSessions) > MaxSessions {
		pruned := make([]*model.ReadingSession, RetainSessions)
		copy(pruned, p.ReadingSessions[len(p.ReadingSessions)-RetainSessions:])
		p.ReadingSessions = pruned
	}
}

func lastSession(p *model.Progress) *model.ReadingSession {
	if len(p.ReadingSessions) == 0 {
		return nil
	}
	return p.ReadingSessions[len(p.ReadingSessions)-1]
}
