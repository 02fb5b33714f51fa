package reconcile

import (
	"fmt"
	"testing"

	"pagemark/model"
)

const minute = int64(60 * 1000)

func pageUpdate(r string) []model.RangeUpdate {
	return []model.RangeUpdate{{Range: r, Type: model.SessionTypePage}}
}

func TestAppendFirstUpdate(t *testing.T) {
	p := NewProgress("b1", "dev-a")
	r := "epubcfi(/6/14!/4/2,/2/2/1:0,/2/4/1:120)"
	AppendUpdates(p, pageUpdate(r), 1000)

	if len(p.ReadingSessions) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(p.ReadingSessions))
	}
	s := p.ReadingSessions[0]
	if s.StartTime != 1000 || s.EndTime != 1000 {
		t.Errorf("Expected instant session at 1000, got [%d, %d]", s.StartTime, s.EndTime)
	}
	if s.Type != model.SessionTypePage {
		t.Errorf("Expected page session, got %s", s.Type)
	}
	if len(s.CfiRanges) != 1 || s.CfiRanges[0] != r {
		t.Errorf("Expected session ranges [%s], got %v", r, s.CfiRanges)
	}
	if len(p.CompletedRanges) != 1 || p.CompletedRanges[0] != r {
		t.Errorf("Expected completed ranges [%s], got %v", r, p.CompletedRanges)
	}
}

func TestAppendMergesWithinWindow(t *testing.T) {
	p := NewProgress("b1", "dev-a")
	a := "epubcfi(/6/14!/4/2,/2/2/1:0,/2/4/1:120)"
	b := "epubcfi(/6/14!/4/2,/2/4/1:60,/2/6/1:10)"
	AppendUpdates(p, pageUpdate(a), 0)
	AppendUpdates(p, pageUpdate(b), 19*minute)

	if len(p.ReadingSessions) != 1 {
		t.Fatalf("Expected merged session, got %d sessions", len(p.ReadingSessions))
	}
	s := p.ReadingSessions[0]
	if s.StartTime != 0 || s.EndTime != 19*minute {
		t.Errorf("Expected session [0, %d], got [%d, %d]", 19*minute, s.StartTime, s.EndTime)
	}
	// Overlapping ranges coalesce inside the session.
	if len(s.CfiRanges) != 1 {
		t.Errorf("Expected coalesced session ranges, got %v", s.CfiRanges)
	}
}

func TestAppendIdempotentWithinWindow(t *testing.T) {
	p := NewProgress("b1", "dev-a")
	r := "epubcfi(/6/14!/4/2,/2/2/1:0,/2/4/1:120)"
	AppendUpdates(p, pageUpdate(r), 0)
	AppendUpdates(p, pageUpdate(r), minute)

	if len(p.ReadingSessions) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(p.ReadingSessions))
	}
	if ranges := p.ReadingSessions[0].CfiRanges; len(ranges) != 1 || ranges[0] != r {
		t.Errorf("Expected range deduplicated, got %v", ranges)
	}
	if len(p.CompletedRanges) != 1 {
		t.Errorf("Expected completed ranges deduplicated, got %v", p.CompletedRanges)
	}
}

func TestAppendTemporalSplit(t *testing.T) {
	p := NewProgress("b1", "dev-a")
	AppendUpdates(p, pageUpdate("epubcfi(/6/14!/4/2,/2/2/1:0,/2/4/1:120)"), 0)
	AppendUpdates(p, pageUpdate("epubcfi(/6/16!/4/2,/2/2/1:0,/2/2/1:50)"), 21*minute)

	if len(p.ReadingSessions) != 2 {
		t.Fatalf("Expected 2 sessions after window elapsed, got %d", len(p.ReadingSessions))
	}
}

func TestAppendExactWindowStillMerges(t *testing.T) {
	p := NewProgress("b1", "dev-a")
	AppendUpdates(p, pageUpdate("epubcfi(/6/14!/4/2,/2/2/1:0,/2/4/1:120)"), 0)
	AppendUpdates(p, pageUpdate("epubcfi(/6/16!/4/2,/2/2/1:0,/2/2/1:50)"), 20*minute)

	if len(p.ReadingSessions) != 1 {
		t.Fatalf("Expected merge at exactly the window boundary, got %d sessions", len(p.ReadingSessions))
	}
}

func TestAppendTypeSplit(t *testing.T) {
	p := NewProgress("b1", "dev-a")
	updates := []model.RangeUpdate{
		{Range: "epubcfi(/6/14!/4/2,/2/2/1:0,/2/4/1:120)", Type: model.SessionTypePage},
		{Range: "epubcfi(/6/14!/4/2,/2/4/1:120,/2/6/1:10)", Type: model.SessionTypeTTS},
	}
	AppendUpdates(p, updates, 1000)

	if len(p.ReadingSessions) != 2 {
		t.Fatalf("Expected page and tts sessions to stay separate, got %d", len(p.ReadingSessions))
	}
	if p.ReadingSessions[0].Type != model.SessionTypePage || p.ReadingSessions[1].Type != model.SessionTypeTTS {
		t.Errorf("Expected [page, tts], got [%s, %s]", p.ReadingSessions[0].Type, p.ReadingSessions[1].Type)
	}
	// Both ranges still land in the completed set.
	if len(p.CompletedRanges) != 1 {
		t.Errorf("Expected adjacent ranges coalesced in completed set, got %v", p.CompletedRanges)
	}
}

func TestAppendCompletedRangesIndependentOfHistory(t *testing.T) {
	p := NewProgress("b1", "dev-a")
	AppendUpdates(p, pageUpdate("epubcfi(/6/14!/4/2,/2/2/1:0,/2/4/1:120)"), 0)
	// New sit-down, far away in the book.
	AppendUpdates(p, pageUpdate("epubcfi(/6/20!/4/2,/2/2/1:0,/2/2/1:80)"), 60*minute)

	if len(p.ReadingSessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(p.ReadingSessions))
	}
	if len(p.CompletedRanges) != 2 {
		t.Errorf("Expected 2 disjoint completed ranges, got %v", p.CompletedRanges)
	}
}

func TestPruneKeepsNewestSessions(t *testing.T) {
	p := NewProgress("b1", "dev-a")
	// Build exactly MaxSessions sessions, each outside the merge window.
	for i := 0; i < MaxSessions; i++ {
		now := int64(i) * 30 * minute
		AppendUpdates(p, pageUpdate(fmt.Sprintf("range-%d", i)), now)
	}
	if len(p.ReadingSessions) != MaxSessions {
		t.Fatalf("Expected %d sessions before overflow, got %d", MaxSessions, len(p.ReadingSessions))
	}

	// One more forces the prune.
	lastNow := int64(MaxSessions) * 30 * minute
	AppendUpdates(p, pageUpdate("range-final"), lastNow)

	if len(p.ReadingSessions) != RetainSessions {
		t.Fatalf("Expected %d sessions after prune, got %d", RetainSessions, len(p.ReadingSessions))
	}
	newest := p.ReadingSessions[len(p.ReadingSessions)-1]
	if newest.EndTime != lastNow {
		t.Errorf("Expected newest session last, got end time %d", newest.EndTime)
	}
	oldest := p.ReadingSessions[0]
	if oldest.EndTime <= p.ReadingSessions[1].EndTime-31*minute {
		t.Errorf("Expected oldest retained sessions to be contiguous, got %d", oldest.EndTime)
	}
}

func TestApplyLocation(t *testing.T) {
	p := NewProgress("b1", "dev-a")
	AppendUpdates(p, pageUpdate("epubcfi(/6/14!/4/2,/2/2/1:0,/2/4/1:120)"), 0)

	ApplyLocation(p, "epubcfi(/6/14!/4/2/2/1:50)", 0.25, 5000)
	if p.CurrentCfi != "epubcfi(/6/14!/4/2/2/1:50)" || p.Percentage != 0.25 || p.LastRead != 5000 {
		t.Errorf("Location not applied: %+v", p)
	}
	// History and completion are untouched by a location update.
	if len(p.ReadingSessions) != 1 || len(p.CompletedRanges) != 1 {
		t.Errorf("Location update must not touch history: %+v", p)
	}
}
