package domain

import (
	"fmt"
	"testing"
	"time"
)

var segNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestSegmenter() *Segmenter {
	return NewSegmenter(newTestRecency())
}

func leadAgedDays(userID string, days int) Record {
	return Record{
		"ownerId":       userID,
		"lastContactAt": segNow.AddDate(0, 0, -days).Format(time.RFC3339),
	}
}

func TestDaysSince(t *testing.T) {
	if got := DaysSince(segNow, segNow.Add(-36*time.Hour)); got != 1 {
		t.Errorf("36h = %d days, want 1", got)
	}
	if got := DaysSince(segNow, segNow.Add(2*time.Hour)); got != 0 {
		t.Errorf("future timestamp = %d days, want clamp to 0", got)
	}
}

func TestSegmentLeadsBoundaries(t *testing.T) {
	s := newTestSegmenter()

	tests := []struct {
		days int
		want string
	}{
		{0, SegmentOnTrack},
		{10, SegmentOnTrack},
		{25, SegmentOnTrack},
		{26, SegmentAttention},
		{30, SegmentAttention},
		{31, SegmentCritical},
		{90, SegmentCritical},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d days", tt.days), func(t *testing.T) {
			segments := s.SegmentLeads([]Record{leadAgedDays("1", tt.days)}, "1", segNow)
			if got := SegmentValue(segments, tt.want); got != 1 {
				t.Errorf("lead aged %d days: segment %q = %d, want 1", tt.days, tt.want, got)
			}
		})
	}
}

func TestSegmentLeadsPartition(t *testing.T) {
	s := newTestSegmenter()

	leads := []Record{
		leadAgedDays("1", 1),
		leadAgedDays("1", 27),
		leadAgedDays("1", 40),
		{"ownerId": "1"}, // no recency: critical
		{"ownerId": "1", "status": "perdido", "lastContactAt": segNow.Format(time.RFC3339)}, // terminal: excluded
		leadAgedDays("2", 1), // other user: excluded
	}

	segments := s.SegmentLeads(leads, "1", segNow)

	total := 0
	for _, seg := range segments {
		total += seg.Value
	}
	if total != 4 {
		t.Errorf("segment sum = %d, want 4 (every active owned lead in exactly one tier)", total)
	}
	if got := SegmentValue(segments, SegmentCritical); got != 2 {
		t.Errorf("critical = %d, want 2 (aged 40 plus undated)", got)
	}
	if len(segments) != 3 {
		t.Fatalf("got %d segments, want all 3 tiers present", len(segments))
	}
	for _, seg := range segments {
		if seg.Label == "" || seg.Href == "" || seg.Range == "" {
			t.Errorf("segment %q missing presentation fields: %+v", seg.ID, seg)
		}
	}
}

func TestSegmentProperties(t *testing.T) {
	s := newTestSegmenter()

	props := []Record{
		{"ownerId": "1", "updatedAt": segNow.AddDate(0, 0, -3).Format(time.RFC3339)},
		{"ownerId": "1", "atualizadoEm": segNow.AddDate(0, 0, -28).Format(time.RFC3339)},
		{"ownerId": "1", "updatedAt": segNow.AddDate(0, 0, -60).Format(time.RFC3339)},
		{"ownerId": "1"},
	}

	segments := s.SegmentProperties(props, "1", segNow)

	if got := SegmentValue(segments, SegmentOnTrack); got != 1 {
		t.Errorf("on-track = %d, want 1", got)
	}
	if got := SegmentValue(segments, SegmentAttention); got != 1 {
		t.Errorf("attention = %d, want 1", got)
	}
	if got := SegmentValue(segments, SegmentNeedsAdjustment); got != 2 {
		t.Errorf("needs-adjustment = %d, want 2 (stale plus undated)", got)
	}
}

func TestSegmentTasksProxy(t *testing.T) {
	s := newTestSegmenter()

	tests := []struct {
		days int
		want string
	}{
		{0, SegmentTasksDone},
		{2, SegmentTasksDone},
		{3, SegmentTasksPending},
		{7, SegmentTasksPending},
		{8, SegmentTasksLate},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d days", tt.days), func(t *testing.T) {
			segments := s.SegmentTasks([]Record{leadAgedDays("1", tt.days)}, "1", segNow)
			if got := SegmentValue(segments, tt.want); got != 1 {
				t.Errorf("lead aged %d days: task segment %q = %d, want 1", tt.days, tt.want, got)
			}
		})
	}
}

func TestSegmentTasksUndatedIsLate(t *testing.T) {
	s := newTestSegmenter()

	segments := s.SegmentTasks([]Record{{"ownerId": "1"}}, "1", segNow)
	if got := SegmentValue(segments, SegmentTasksLate); got != 1 {
		t.Errorf("undated lead: late = %d, want 1", got)
	}
}

func TestSegmentsAlwaysComplete(t *testing.T) {
	s := newTestSegmenter()

	// No data at all still yields every tier with zero counts.
	for _, segments := range [][]Segment{
		s.SegmentLeads(nil, "1", segNow),
		s.SegmentProperties(nil, "1", segNow),
		s.SegmentTasks(nil, "1", segNow),
	} {
		if len(segments) != 3 {
			t.Fatalf("got %d segments, want 3", len(segments))
		}
		for _, seg := range segments {
			if seg.Value != 0 {
				t.Errorf("segment %q = %d, want 0", seg.ID, seg.Value)
			}
		}
	}
}
