// Package timeline answers "what is sounding now" questions over musical time:
// active and revealed sets, cumulative measure starts, and the approximate
// mapping from quarter-length offsets back to measures.
package timeline

import (
	"math"
	"sort"

	"cherrycake/internal/dataset"
)

// Span is a closed interval.
type Span struct {
	Start, End float64
}

// Contains reports whether at lies in the closed interval.
func (s Span) Contains(at float64) bool {
	return s.Start <= at && at <= s.End
}

// Overlaps reports whether two spans share an open interior.
func (s Span) Overlaps(o Span) bool {
	return math.Max(s.Start, o.Start) < math.Min(s.End, o.End)
}

// Active returns the items whose span contains at, in input order.
func Active[T any](items []T, span func(T) Span, at float64) []T {
	var out []T
	for _, item := range items {
		if span(item).Contains(at) {
			out = append(out, item)
		}
	}
	return out
}

// Revealed returns the items whose start is at or before at.
func Revealed[T any](items []T, start func(T) float64, at float64) []T {
	var out []T
	for _, item := range items {
		if start(item) <= at {
			out = append(out, item)
		}
	}
	return out
}

// MeasureStarts returns the cumulative start offset of each measure, built
// from the per-measure maximum of offset+ql. Measures are visited in ascending
// order.
func MeasureStarts(events dataset.Events) map[float64]float64 {
	anchors := Anchors(events)
	out := make(map[float64]float64, len(anchors))
	for _, a := range anchors {
		out[a.Measure] = a.Offset
	}
	return out
}

// Anchor pairs a measure with its cumulative starting offset.
type Anchor struct {
	Measure float64
	Offset  float64
}

// Anchors returns measure anchors sorted by measure.
func Anchors(events dataset.Events) []Anchor {
	lengths := make(map[float64]float64)
	for _, ev := range events {
		end := ev.Offset + ev.QL
		if cur, ok := lengths[ev.Measure]; !ok || end > cur {
			lengths[ev.Measure] = math.Max(end, 0)
		}
	}
	measures := make([]float64, 0, len(lengths))
	for m := range lengths {
		measures = append(measures, m)
	}
	sort.Float64s(measures)

	anchors := make([]Anchor, 0, len(measures))
	cumulative := 0.0
	for _, m := range measures {
		anchors = append(anchors, Anchor{Measure: m, Offset: cumulative})
		cumulative += lengths[m]
	}
	return anchors
}

// ApproxMeasure returns the measure of the last anchor whose offset is at or
// before t. Offsets before the first anchor map to the first measure. The
// result is a heuristic: it ignores time-signature changes inside a measure.
func ApproxMeasure(anchors []Anchor, t float64) (float64, bool) {
	if len(anchors) == 0 {
		return 0, false
	}
	idx := sort.Search(len(anchors), func(i int) bool { return anchors[i].Offset > t }) - 1
	if idx < 0 {
		idx = 0
	}
	return anchors[idx].Measure, true
}

// SegmentAt returns floor(progress*n) clamped to [0,n-1], or -1 when n is 0.
func SegmentAt(progress float64, n int) int {
	if n <= 0 {
		return -1
	}
	if math.IsNaN(progress) {
		return 0
	}
	idx := int(math.Floor(progress * float64(n)))
	return min(max(idx, 0), n-1)
}

// NoteSpan returns the quarter-length span of an event using measure starts.
func NoteSpan(starts map[float64]float64, ev dataset.Event) Span {
	start := starts[ev.Measure] + ev.Offset
	return Span{Start: start, End: start + ev.QL}
}

// Duration returns the total length in quarter lengths: the sum of every
// measure's length.
func Duration(events dataset.Events) float64 {
	anchors := Anchors(events)
	if len(anchors) == 0 {
		return 0
	}
	last := anchors[len(anchors)-1]
	end := 0.0
	for _, ev := range events {
		if ev.Measure == last.Measure {
			end = math.Max(end, ev.Offset+ev.QL)
		}
	}
	return last.Offset + end
}
