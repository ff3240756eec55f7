package transcript

import "sort"

// Line is one render-ready transcript entry. Interim lines (Final == false)
// are drawn with a trailing marker by the presentation layer and update in
// place when the segment finalizes.
type Line struct {
	SegmentID string `json:"segmentId"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Final     bool   `json:"final"`
}

// Project derives the display order from a store snapshot: ascending
// FirstReceivedTime, ties broken by store insertion order. It is pure and
// idempotent; projecting the same snapshot twice yields identical output,
// so it is recomputed wholesale on every store change.
func Project(records []Record) []Line {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Segment.FirstReceivedTime != b.Segment.FirstReceivedTime {
			return a.Segment.FirstReceivedTime < b.Segment.FirstReceivedTime
		}
		return a.seq < b.seq
	})

	lines := make([]Line, len(sorted))
	for i, rec := range sorted {
		lines[i] = Line{
			SegmentID: rec.Segment.ID,
			Speaker:   rec.Speaker,
			Text:      rec.Segment.Text,
			Final:     rec.Segment.Final,
		}
	}
	return lines
}
