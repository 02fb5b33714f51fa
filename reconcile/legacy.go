package reconcile

import "pagemark/model"

// PruneLegacySessions drops sessions that predate the start/end session
// model (single-timestamp events from schema version 1). The old shape has
// no duration and cannot be upgraded losslessly, so it is discarded rather
// than migrated. Returns the number of sessions removed.
func PruneLegacySessions(p *model.Progress) int {
	kept := p.ReadingSessions[:0]
	for _, session := range p.ReadingSessions {
		if session.IsLegacy() {
			continue
		}
		kept = append(kept, session)
	}
	dropped := len(p.ReadingSessions) - len(kept)
	p.ReadingSessions = kept
	return dropped
}
