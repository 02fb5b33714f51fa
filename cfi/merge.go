package cfi

import "sort"

// Merge adds newRange to an already-coalesced set of ranges and returns the
// minimal covering set. Ranges sharing a base whose intervals overlap or
// touch are collapsed into one; the result is ordered by document position.
//
// Merge is the canonical representation of completed ranges: callers feed
// its output back in on the next call, so repeated application converges and
// duplicates collapse to a single entry.
//
// Ranges that do not parse as three-part range CFIs are kept verbatim, at
// most once each, after the parseable ranges. Progress tracking should not
// lose data because one client produced an odd position string.
func Merge(existing []string, newRange string) []string {
	raw := make([]string, 0, len(existing)+1)
	raw = append(raw, existing...)
	if newRange != "" {
		raw = append(raw, newRange)
	}

	var parsed []*rangeCfi
	var opaque []string
	seenOpaque := make(map[string]bool)
	for _, s := range raw {
		if s == "" {
			continue
		}
		r, ok := parseRange(s)
		if !ok {
			if !seenOpaque[s] {
				seenOpaque[s] = true
				opaque = append(opaque, s)
			}
			continue
		}
		parsed = append(parsed, r)
	}

	sort.SliceStable(parsed, func(i, j int) bool {
		return comparePositions(parsed[i].start, parsed[j].start) < 0
	})

	var merged []*rangeCfi
	for _, r := range parsed {
		if len(merged) == 0 {
			merged = append(merged, r)
			continue
		}
		last := merged[len(merged)-1]
		if last.base == r.base && comparePositions(r.start, last.end) <= 0 {
			// Overlapping or touching within the same parent: extend.
			if comparePositions(r.end, last.end) > 0 {
				last.end = r.end
				last.endRaw = r.endRaw
			}
			continue
		}
		merged = append(merged, r)
	}

	out := make([]string, 0, len(merged)+len(opaque))
	for _, r := range merged {
		out = append(out, r.String())
	}
	out = append(out, opaque...)
	return out
}
