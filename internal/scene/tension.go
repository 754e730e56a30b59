package scene

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	svg "github.com/ajstarks/svgo"

	"cherrycake/internal/dataset"
	"cherrycake/internal/mapping"
	"cherrycake/internal/timeline"
)

// Tension draws the per-measure tension curve over the form segments.
type Tension struct {
	measures []dataset.MeasureTension
	segments []dataset.Segment
	norm     []float64
	minM     float64
	maxM     float64
	loop     time.Duration
}

var tensionPadding = mapping.Padding{Left: 200, Right: 200, Top: 200, Bottom: 300}

// NewTension builds the tension renderer. The form timeline is optional.
func NewTension(series *dataset.TensionSeries, form *dataset.FormTimeline, loopDuration time.Duration) (*Tension, error) {
	if series == nil {
		return nil, missing(dataset.TensionFile)
	}
	t := &Tension{measures: series.Measures, loop: loopDuration}
	if form != nil {
		t.segments = form.Segments
	}
	lo, hi := mapping.Extent(series.Values())
	t.norm = make([]float64, len(series.Measures))
	measureNums := make([]float64, len(series.Measures))
	for i, m := range series.Measures {
		t.norm[i] = mapping.Normalize(m.Tension, lo, hi)
		measureNums[i] = m.Measure
	}
	t.minM, t.maxM = mapping.Extent(measureNums)
	return t, nil
}

// Name implements Renderer.
func (t *Tension) Name() string { return "tension" }

func (t *Tension) cursor(progress float64) float64 {
	return t.minM + progress*(t.maxM-t.minM)
}

// indexAt returns the row at or before measure m.
func (t *Tension) indexAt(m float64) int {
	idx := -1
	for i, row := range t.measures {
		if row.Measure > m {
			break
		}
		idx = i
	}
	return idx
}

// Status implements Renderer.
func (t *Tension) Status(f Frame) Status {
	cur := t.cursor(f.Tick.Progress)
	st := Status{Viz: t.Name(), Progress: f.Tick.Progress}
	if idx := t.indexAt(cur); idx >= 0 {
		st.Value = t.norm[idx]
		st.Active = idx + 1
		st.Cursor = fmt.Sprintf("Measure: %d | Tension: %.3f", int(math.Floor(cur)), st.Value)
	}
	for _, seg := range t.segments {
		if seg.Start <= cur && cur <= seg.End {
			st.Segment = seg.Label
			break
		}
	}
	return st
}

// Curve implements Curve.
func (t *Tension) Curve(samples int) []float64 {
	if samples <= 0 || len(t.norm) == 0 {
		return nil
	}
	out := make([]float64, samples)
	for i := range out {
		m := t.minM
		if samples > 1 {
			m = t.minM + float64(i)/float64(samples-1)*(t.maxM-t.minM)
		}
		if idx := t.indexAt(m); idx >= 0 {
			out[i] = t.norm[idx]
		}
	}
	return out
}

// Render implements Renderer.
func (t *Tension) Render(w io.Writer, f Frame) error {
	width, height := f.size()
	c := newCanvas(w, int(width), int(height))
	vp := mapping.Viewport{Width: width, Height: height, Padding: tensionPadding}
	in := vp.Inner()
	xAxis := vp.XAxis(t.minM, t.maxM)
	yAxis := vp.YAxis(0, 1)
	progress := f.Tick.Progress
	cur := t.cursor(progress)
	elapsed := f.elapsedMS()
	embed := f.Options.Embed

	c.Def()
	c.RadialGradient("cursor-glow", 50, 50, 50, 50, 50, []svg.Offcolor{
		{Offset: 0, Color: "#FFFFFF", Opacity: 0.8},
		{Offset: 50, Color: "#FFC864", Opacity: 0.4},
		{Offset: 100, Color: "#FF6432", Opacity: 0},
	})
	c.DefEnd()
	c.clear("#000000")

	// segment bands and boundary bloom
	c.Gid("segments")
	for idx, seg := range t.segments {
		x1, x2 := xAxis.Map(seg.Start), xAxis.Map(seg.End)
		if seg.Color != "" {
			c.rect(x1, in.Y, x2-x1, in.H, fill(seg.Color, 8.0/255))
		} else {
			c.rect(x1, in.Y, x2-x1, in.H, fill(hsl(float64(idx*60), 50, 50), 0.03))
		}
		boundary := math.Mod(math.Abs(cur-seg.Start), 1)
		if boundary < 0.1 && cur >= seg.Start-2 && cur <= seg.Start+2 {
			bloom := 1 - boundary*10
			for i := 5; i > 0; i-- {
				c.line(x1, in.Y, x1, in.Y+in.H, stroke("#FFFFFF", bloom*0.15*float64(i)/5, float64(i*8)))
			}
		}
		if !embed {
			c.text((x1+x2)/2, height-tensionPadding.Bottom+100, seg.Label, textStyle("#888888", 36, true, "middle"))
		}
	}
	c.Gend()

	// grid
	c.Gid("grid")
	gridStyle := stroke("#222222", 1, 2)
	for i := 0; i <= 10; i++ {
		y := in.Y + in.H/10*float64(i)
		c.line(in.X, y, width-tensionPadding.Right, y, gridStyle)
	}
	for m := 0.0; m <= t.maxM; m += 50 {
		x := xAxis.Map(m)
		c.line(x, in.Y, x, in.Y+in.H, gridStyle)
		if !embed {
			c.text(x, height-tensionPadding.Bottom+60, strconv.Itoa(int(m)), textStyle("#666666", 32, false, "middle"))
		}
	}
	c.Gend()

	if !embed {
		c.text(width/2, height-80, "Measure Number", textStyle("#AAAAAA", 42, true, "middle"))
		c.Gtransform(fmt.Sprintf("translate(80,%d) rotate(-90)", px(height/2)))
		c.Text(0, 0, "Normalized Tension", textStyle("#AAAAAA", 42, true, "middle"))
		c.Gend()
	}

	// curve, revealed up to the cursor
	c.Gid("curve")
	shown := timeline.Revealed(t.measures, func(m dataset.MeasureTension) float64 { return m.Measure }, cur)
	for i := 0; i < len(shown) && i+1 < len(t.measures); i++ {
		d1, d2 := t.measures[i], t.measures[i+1]
		n1, n2 := t.norm[i], t.norm[i+1]
		avg := (n1 + n2) / 2
		x1, x2 := xAxis.Map(d1.Measure), xAxis.Map(d2.Measure)
		noise := avg * 15
		y1 := yAxis.Map(n1) + math.Sin(d1.Measure*0.3+elapsed*0.001)*noise
		y2 := yAxis.Map(n2) + math.Sin(d2.Measure*0.3+elapsed*0.001)*noise
		if d2.Measure > cur {
			span := d2.Measure - d1.Measure
			sp := 1.0
			if span > 0 {
				sp = mapping.Clamp((cur-d1.Measure)/span, 0, 1)
			}
			x2 = x1 + (x2-x1)*sp
			y2 = y1 + (y2-y1)*sp
		}

		base := 2 + avg*13
		b := int(math.Floor(100 + avg*155))
		color := rgb(b, b, 255)
		layers := int(math.Ceil(3 + avg*5))
		for g := layers; g > 0; g-- {
			alpha := 0.1 * avg / float64(g)
			c.line(x1, y1, x2, y2, stroke(color, alpha, base+float64(g)*8*avg))
		}
		c.line(x1, y1, x2, y2, stroke(color, 1, base))
	}
	c.Gend()

	// cursor
	if idx := t.indexAt(cur); idx >= 0 {
		value := t.norm[idx]
		cx, cy := xAxis.Map(cur), yAxis.Map(value)
		pulse := 1 + math.Sin(elapsed*0.005)*0.3
		c.circle(cx, cy, 40*pulse, "fill:url(#cursor-glow)")
		c.circle(cx, cy, 10*pulse, "fill:#FFFFFF")
		if !embed {
			c.text(tensionPadding.Left, 100, fmt.Sprintf("Measure: %d | Tension: %.3f", int(math.Floor(cur)), value),
				textStyle("#FFFFFF", 48, true, "start"))
		}
	}

	if !embed {
		c.progressBar(tensionPadding.Left, height-150, in.W, 20, progress)
		seconds := 0.0
		if t.loop > 0 {
			seconds = float64(f.Tick.Elapsed%t.loop) / float64(time.Second)
		}
		c.text(width/2, height-100, fmt.Sprintf("%.1fs / %.0fs", seconds, t.loop.Seconds()),
			textStyle("#AAAAAA", 36, false, "middle"))
	}
	return c.finish()
}
