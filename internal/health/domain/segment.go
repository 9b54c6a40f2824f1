package domain

import "time"

// Day thresholds for the recency tiers.
const (
	// OnTrackMaxDays is the inclusive upper bound of the healthy tier.
	OnTrackMaxDays = 25
	// AttentionMaxDays is the inclusive upper bound of the attention tier.
	AttentionMaxDays = 30
	// TaskLateMinDays marks a proxied task as late past this many days.
	TaskLateMinDays = 7
	// TaskDoneMaxDays marks a proxied task as done within this many days.
	TaskDoneMaxDays = 2
)

// Fixed segment ids. Consumers key widgets off these; they never change.
const (
	SegmentOnTrack         = "on-track"
	SegmentAttention       = "attention"
	SegmentCritical        = "critical"
	SegmentNeedsAdjustment = "needs-adjustment"
	SegmentTasksDone       = "done"
	SegmentTasksPending    = "pending"
	SegmentTasksLate       = "late"
)

// Segment is one tier's count bucket, always present even when zero.
type Segment struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Value       int    `json:"value"`
	Color       string `json:"color"`
	Description string `json:"description"`
	Href        string `json:"href"`
	Range       string `json:"range"`
}

// DaysSince returns whole days elapsed from ts to now. Negative elapsed time
// (future timestamps) clamps to zero.
func DaysSince(now, ts time.Time) int {
	d := int(now.Sub(ts).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// Segmenter partitions a user's non-terminal entities into recency tiers.
type Segmenter struct {
	recency *Recency
}

// NewSegmenter creates a segmenter backed by the given recency aggregator.
func NewSegmenter(recency *Recency) *Segmenter {
	return &Segmenter{recency: recency}
}

// SegmentLeads buckets the user's non-terminal leads by days since the last
// human interaction. Absent recency lands in the critical tier: a lead
// nobody can date is assumed stale, not healthy.
func (s *Segmenter) SegmentLeads(leads []Record, userID string, now time.Time) []Segment {
	var onTrack, attention, critical int

	for _, lead := range leads {
		if !OwnedBy(lead, userID) || IsTerminal(lead) {
			continue
		}
		ts, ok := s.recency.LatestHumanInteraction(lead)
		if !ok {
			critical++
			continue
		}
		switch d := DaysSince(now, ts); {
		case d <= OnTrackMaxDays:
			onTrack++
		case d <= AttentionMaxDays:
			attention++
		default:
			critical++
		}
	}

	return []Segment{
		{ID: SegmentOnTrack, Label: "Em dia", Value: onTrack, Color: "green", Description: "Leads com contato humano nos últimos 25 dias", Href: "/leads?health=on-track", Range: "0–25 dias"},
		{ID: SegmentAttention, Label: "Atenção", Value: attention, Color: "yellow", Description: "Leads sem contato humano entre 26 e 30 dias", Href: "/leads?health=attention", Range: "26–30 dias"},
		{ID: SegmentCritical, Label: "Crítico", Value: critical, Color: "red", Description: "Leads sem contato humano há 31 dias ou mais", Href: "/leads?health=critical", Range: "31+ dias"},
	}
}

// SegmentProperties buckets the user's non-terminal properties by days since
// the last relevant update, with the same 25/30 boundaries.
func (s *Segmenter) SegmentProperties(properties []Record, userID string, now time.Time) []Segment {
	var onTrack, attention, needsAdjustment int

	for _, prop := range properties {
		if !OwnedBy(prop, userID) || IsTerminal(prop) {
			continue
		}
		ts, ok := s.recency.LatestRelevantUpdate(prop)
		if !ok {
			needsAdjustment++
			continue
		}
		switch d := DaysSince(now, ts); {
		case d <= OnTrackMaxDays:
			onTrack++
		case d <= AttentionMaxDays:
			attention++
		default:
			needsAdjustment++
		}
	}

	return []Segment{
		{ID: SegmentOnTrack, Label: "Em dia", Value: onTrack, Color: "green", Description: "Imóveis atualizados nos últimos 25 dias", Href: "/imoveis?health=on-track", Range: "0–25 dias"},
		{ID: SegmentAttention, Label: "Atenção", Value: attention, Color: "yellow", Description: "Imóveis sem atualização entre 26 e 30 dias", Href: "/imoveis?health=attention", Range: "26–30 dias"},
		{ID: SegmentNeedsAdjustment, Label: "Precisa ajuste", Value: needsAdjustment, Color: "red", Description: "Imóveis sem atualização há 31 dias ou mais", Href: "/imoveis?health=needs-adjustment", Range: "31+ dias"},
	}
}

// SegmentTasks derives a follow-up task picture from the user's leads, using
// lead recency as a proxy for task state: stale leads imply late follow-ups,
// recently touched leads imply done ones.
func (s *Segmenter) SegmentTasks(leads []Record, userID string, now time.Time) []Segment {
	var done, pending, late int

	for _, lead := range leads {
		if !OwnedBy(lead, userID) || IsTerminal(lead) {
			continue
		}
		ts, ok := s.recency.LatestHumanInteraction(lead)
		if !ok {
			late++
			continue
		}
		switch d := DaysSince(now, ts); {
		case d > TaskLateMinDays:
			late++
		case d <= TaskDoneMaxDays:
			done++
		default:
			pending++
		}
	}

	return []Segment{
		{ID: SegmentTasksDone, Label: "Concluídas", Value: done, Color: "green", Description: "Follow-ups realizados nos últimos 2 dias", Href: "/tarefas?health=done", Range: "0–2 dias"},
		{ID: SegmentTasksPending, Label: "Pendentes", Value: pending, Color: "yellow", Description: "Follow-ups aguardando entre 3 e 7 dias", Href: "/tarefas?health=pending", Range: "3–7 dias"},
		{ID: SegmentTasksLate, Label: "Atrasadas", Value: late, Color: "red", Description: "Follow-ups parados há mais de 7 dias", Href: "/tarefas?health=late", Range: "8+ dias"},
	}
}

// SegmentValue returns the count of the segment with the given id, or zero.
func SegmentValue(segments []Segment, id string) int {
	for _, seg := range segments {
		if seg.ID == id {
			return seg.Value
		}
	}
	return 0
}
