// Package reconcile implements cross-device reading-progress reconciliation:
// picking the record a device should resume from, consolidating raw reading
// events into bounded session history, and the one-way cleanup of pre-v2
// history. Everything here is pure, synchronous computation over an
// in-memory snapshot of the per-device records; persistence and replication
// sit around it in the store package.
package reconcile // import "pagemark/reconcile"

import (
	"sort"

	"pagemark/model"
)

// ValidPercentThreshold is the completion fraction a record must exceed to
// count as meaningful progress. Anything at or below it is a "false start":
// an accidental open that barely moved past the first page.
const ValidPercentThreshold = 0.005

// Valid reports whether the record carries meaningful progress.
func Valid(p *model.Progress) bool {
	return p != nil && p.Percentage > ValidPercentThreshold
}

// Resolve selects the single record the application should treat as current
// for one book, given every device's record and the identity of the device
// asking. Returns nil only when records is empty.
//
// Local priority beats global recency: a device with meaningful local
// progress is never yanked elsewhere, even if a remote device is further
// along or was updated later. A device with no meaningful local record picks
// up from the most recently read valid record anywhere. If nothing is valid,
// the local record wins when present (even at 0%), else the most recent
// false start.
//
// When two valid remote records share the same LastRead, devices are walked
// in sorted order and a strictly newer LastRead is required to replace the
// candidate, so the lexicographically smallest device ID wins the tie.
//
// The result is always a copy; callers never alias a stored record.
func Resolve(records map[string]*model.Progress, localDeviceID string) *model.Progress {
	if len(records) == 0 {
		return nil
	}

	local := records[localDeviceID]
	if Valid(local) {
		return local.Clone()
	}

	deviceIDs := make([]string, 0, len(records))
	for deviceID := range records {
		deviceIDs = append(deviceIDs, deviceID)
	}
	sort.Strings(deviceIDs)

	var best *model.Progress
	for _, deviceID := range deviceIDs {
		record := records[deviceID]
		if !Valid(record) {
			continue
		}
		if best == nil || record.LastRead > best.LastRead {
			best = record
		}
	}
	if best != nil {
		return best.Clone()
	}

	// No valid record on any device.
	if local != nil {
		return local.Clone()
	}
	for _, deviceID := range deviceIDs {
		record := records[deviceID]
		if record == nil {
			continue
		}
		if best == nil || record.LastRead > best.LastRead {
			best = record
		}
	}
	return best.Clone()
}
