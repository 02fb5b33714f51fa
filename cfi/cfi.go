package cfi // import "pagemark/cfi"

import (
	"strings"
)

// An EPUB CFI range looks like:
//
//	epubcfi(/6/14!/4/2,/2/2/1:0,/2/4/1:120)
//
// parent path, then start and end relative to it. Positions compare by
// walking the numeric steps left to right; the character offset after ':'
// is just the last number in the walk.

type position []int

type rangeCfi struct {
	base     string
	startRaw string
	endRaw   string
	start    position
	end      position
}

func (r *rangeCfi) String() string {
	return "epubcfi(" + r.base + "," + r.startRaw + "," + r.endRaw + ")"
}

// parsePosition extracts the numeric steps of a CFI path fragment.
// "/6/14!/4/2/1:30" -> [6 14 4 2 1 30]. Assertions in brackets are ignored.
func parsePosition(s string) position {
	var pos position
	num := -1
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '[':
			depth++
		case c == ']':
			depth--
		case depth > 0:
			// skip assertion content
		case c >= '0' && c <= '9':
			if num < 0 {
				num = 0
			}
			num = num*10 + int(c-'0')
		default:
			if num >= 0 {
				pos = append(pos, num)
				num = -1
			}
		}
	}
	if num >= 0 {
		pos = append(pos, num)
	}
	return pos
}

// comparePositions orders two positions document-wise. A position that is a
// strict prefix of another contains it and sorts first.
func comparePositions(a, b position) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	if len(a) == len(b) {
		return 0
	}
	if len(a) < len(b) {
		return -1
	}
	return 1
}

// parseRange splits a range CFI into base, start and end parts. Returns false
// for anything that is not a well-formed three-part range; such values are
// treated as opaque by Merge.
func parseRange(s string) (*rangeCfi, bool) {
	inner, ok := strings.CutPrefix(s, "epubcfi(")
	if !ok {
		return nil, false
	}
	inner, ok = strings.CutSuffix(inner, ")")
	if !ok {
		return nil, false
	}
	parts := splitTop(inner)
	if len(parts) != 3 {
		return nil, false
	}
	base, startRaw, endRaw := parts[0], parts[1], parts[2]
	basePos := parsePosition(base)
	if len(basePos) == 0 {
		return nil, false
	}
	r := &rangeCfi{
		base:     base,
		startRaw: startRaw,
		endRaw:   endRaw,
		start:    append(append(position{}, basePos...), parsePosition(startRaw)...),
		end:      append(append(position{}, basePos...), parsePosition(endRaw)...),
	}
	if comparePositions(r.start, r.end) > 0 {
		return nil, false
	}
	return r, true
}

// splitTop splits on commas that are not inside bracket assertions.
func splitTop(s string) []string {
	var parts []string
	depth := 0
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, s[last:])
	return parts
}
