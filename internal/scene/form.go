package scene

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"cherrycake/internal/dataset"
	"cherrycake/internal/mapping"
	"cherrycake/internal/timeline"
)

// Form draws the segment bands of the form timeline with their scores and a
// cursor sweeping across the measures. Bands and score points appear once the
// cursor reaches their start measure.
type Form struct {
	segments []dataset.Segment
	lo, hi   float64
}

// NewForm builds the form timeline renderer.
func NewForm(form *dataset.FormTimeline) (*Form, error) {
	if form == nil {
		return nil, missing(dataset.FormFile)
	}
	lo, hi := form.Bounds()
	return &Form{segments: form.Segments, lo: lo, hi: hi}, nil
}

// Name implements Renderer.
func (fm *Form) Name() string { return "form" }

func (fm *Form) cursor(progress float64) float64 {
	return fm.lo + progress*(fm.hi-fm.lo)
}

func (fm *Form) segmentAt(measure float64) (int, bool) {
	for i, s := range fm.segments {
		if (timeline.Span{Start: s.Start, End: s.End}).Contains(measure) {
			return i, true
		}
	}
	return -1, false
}

// Status implements Renderer.
func (fm *Form) Status(f Frame) Status {
	cur := fm.cursor(f.Tick.Progress)
	st := Status{
		Viz:      fm.Name(),
		Progress: f.Tick.Progress,
		Value:    cur,
		Cursor:   fmt.Sprintf("Measure: %d", int(math.Floor(cur))),
	}
	if i, ok := fm.segmentAt(cur); ok {
		st.Segment = fm.segments[i].Label
		st.Active = 1
	}
	return st
}

// Curve implements Curve with the normalized segment scores, one sample per
// segment when scores are present.
func (fm *Form) Curve(samples int) []float64 {
	scores := fm.scores()
	if len(scores) == 0 || samples <= 0 {
		return nil
	}
	lo, hi := mapping.Extent(scores)
	out := make([]float64, samples)
	for i := range out {
		idx := min(i*len(scores)/samples, len(scores)-1)
		out[i] = mapping.Normalize(scores[idx], lo, hi)
	}
	return out
}

func (fm *Form) scores() []float64 {
	var out []float64
	for _, s := range fm.segments {
		if s.Score != nil {
			out = append(out, *s.Score)
		}
	}
	return out
}

// Render implements Renderer.
func (fm *Form) Render(w io.Writer, f Frame) error {
	width, height := f.size()
	c := newCanvas(w, int(width), int(height))
	// layout units follow a 1000-wide reference drawing
	u := width / 1000
	pad := 32 * u
	top, bottom := 40*u, height-40*u
	innerW := width - 2*pad
	x := mapping.Axis{Min: fm.lo, Max: fm.hi, Start: pad, Span: innerW}
	font := func(size float64) int { return max(1, int(math.Round(size*u))) }
	embed := f.Options.Embed

	c.clear("#0b0b0b")

	c.Gid("ticks")
	for i := 0; i <= 10; i++ {
		m := math.Round(fm.lo + float64(i)*(fm.hi-fm.lo)/10)
		tx := x.Map(m)
		c.line(tx, top, tx, bottom, stroke("#222222", 1, u))
		if !embed {
			c.text(tx, height-18*u, strconv.Itoa(int(m)), textStyle("#aaaaaa", font(10), false, "middle"))
		}
	}
	c.line(pad, bottom, width-pad, bottom, stroke("#444444", 1, u))
	c.Gend()

	bandY := 64 * u
	bandH := math.Max(0, height-80*u-40*u)
	cur := fm.cursor(f.Tick.Progress)
	shown := timeline.Revealed(fm.segments, func(s dataset.Segment) float64 { return s.Start }, cur)
	c.Gid("bands")
	for i, s := range shown {
		x1, x2 := x.Map(s.Start), x.Map(s.End)
		color := "#141414"
		if i%2 == 1 {
			color = "#0f0f0f"
		}
		if s.Color != "" {
			color = s.Color
		}
		c.rect(x1, bandY, math.Max(1, x2-x1), bandH, fill(color, 1)+";"+strokeOnly(stroke("#2a2a2a", 1, u)))
		if !embed {
			c.text(x1+6*u, bandY+16*u, fmt.Sprintf("Seg %d", i+1), textStyle("#cfcfcf", font(11), false, "start"))
		}
	}
	for i := 1; i <= 4; i++ {
		gy := bandY + bandH*float64(i)/5
		c.line(pad, gy, width-pad, gy, stroke("#1d1d1d", 1, u))
	}
	c.Gend()

	if scores := fm.scores(); len(scores) > 0 {
		lo, hi := mapping.Extent(scores)
		span := hi - lo
		if span == 0 {
			span = 1
		}
		var xs, ys []float64
		for _, s := range shown {
			if s.Score == nil {
				continue
			}
			xs = append(xs, x.Map((s.Start+s.End)/2))
			ys = append(ys, bandY+bandH-(*s.Score-lo)/span*bandH)
		}
		c.Gid("score")
		c.polyline(xs, ys, stroke("#8ab4ff", 1, 2*u))
		for i := range xs {
			c.circle(xs[i], ys[i], 3*u, fill("#bcd3ff", 1))
		}
		c.Gend()
	}

	cx := x.Map(cur)
	if i, ok := fm.segmentAt(cur); ok {
		s := fm.segments[i]
		x1, x2 := x.Map(s.Start), x.Map(s.End)
		c.rect(x1, bandY, math.Max(1, x2-x1), bandH, fill("#8ab4ff", 0.08))
	}
	c.line(cx, top, cx, bottom, stroke("#FFFFFF", 0.6, 2*u))
	if !embed {
		label := fmt.Sprintf("m. %d", int(math.Floor(cur)))
		if i, ok := fm.segmentAt(cur); ok {
			label += " | " + fm.segments[i].Label
		}
		c.text(pad, 24*u, label, textStyle("#FFFFFF", font(12), true, "start"))
	}
	return c.finish()
}

// strokeOnly strips the fill from a stroke style so it can follow a fill.
func strokeOnly(style string) string {
	return strings.TrimPrefix(style, "fill:none;")
}
