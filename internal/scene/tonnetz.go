package scene

import (
	"fmt"
	"io"
	"math"
	"time"

	"cherrycake/internal/dataset"
	"cherrycake/internal/mapping"
	"cherrycake/internal/timeline"
)

const (
	tonnetzBaseScale  = 700.0
	tonnetzEase       = 0.02
	tonnetzFocusZoom  = 2.0
	tonnetzActiveSpan = 50.0
	// segment measures are compared against occurrence offsets at this ratio
	tonnetzMeasureQL = 10.0
)

var tonnetzStartCamera = mapping.Camera{X: 0, Y: 0, Zoom: 1.5}

// Neo-Riemannian transformation colors.
var transformColors = map[string]string{
	"P":                   "#FF6B6B",
	"R":                   "#4ECDC4",
	"L":                   "#FFE66D",
	dataset.LinkKindOther: "#444444",
}

var transformNames = []struct{ kind, name string }{
	{"P", "Parallel"},
	{"R", "Relative"},
	{"L", "Leading-tone"},
	{dataset.LinkKindOther, "Other"},
}

// Tonnetz draws the harmonic pathway over the triad lattice while a camera
// follows the chords of the current form segment.
type Tonnetz struct {
	nodes    []dataset.TonnetzNode
	links    []dataset.TonnetzLink
	index    map[string]int
	segments []dataset.Segment
	maxOcc   float64
	loop     time.Duration
	anchors  []timeline.Anchor

	minX, maxX, minY, maxY float64

	targets []mapping.Camera
}

// NewTonnetz builds the renderer. The form timeline and score events are
// optional; events only refine the reported measure.
func NewTonnetz(m *dataset.TonnetzMap, form *dataset.FormTimeline, events dataset.Events, loopDuration time.Duration) (*Tonnetz, error) {
	if m == nil {
		return nil, missing(dataset.TonnetzFile)
	}
	t := &Tonnetz{
		nodes:  m.Nodes,
		links:  m.Links,
		index:  make(map[string]int, len(m.Nodes)),
		maxOcc: m.MaxOccurrence(),
		loop:   loopDuration,
	}
	if form != nil {
		t.segments = form.Segments
	}
	if len(events) > 0 {
		t.anchors = timeline.Anchors(events)
	}
	xs := make([]float64, len(m.Nodes))
	ys := make([]float64, len(m.Nodes))
	for i, n := range m.Nodes {
		t.index[n.ID] = i
		xs[i], ys[i] = n.X, n.Y
	}
	t.minX, t.maxX = mapping.Extent(xs)
	t.minY, t.maxY = mapping.Extent(ys)

	prev := tonnetzStartCamera
	for _, seg := range t.segments {
		if target, ok := t.focus(seg); ok {
			prev = target
		}
		t.targets = append(t.targets, prev)
	}
	return t, nil
}

// focus returns the centroid of chords sounding inside seg.
func (t *Tonnetz) focus(seg dataset.Segment) (mapping.Camera, bool) {
	span := timeline.Span{Start: seg.Start * tonnetzMeasureQL, End: seg.End * tonnetzMeasureQL}
	var sx, sy float64
	n := 0
	for _, node := range t.nodes {
		for _, occ := range node.Occurrences {
			if span.Contains(occ) {
				sx += node.X
				sy += node.Y
				n++
				break
			}
		}
	}
	if n == 0 {
		return mapping.Camera{}, false
	}
	return mapping.Camera{X: sx / float64(n), Y: sy / float64(n), Zoom: tonnetzFocusZoom}, true
}

// Name implements Renderer.
func (t *Tonnetz) Name() string { return "tonnetz" }

// Camera returns the eased camera for a frame. The pose only depends on
// progress and frame rate, so a frame can be rendered without its history.
func (t *Tonnetz) Camera(f Frame) mapping.Camera {
	idx := timeline.SegmentAt(f.Tick.Progress, len(t.targets))
	if idx < 0 {
		return tonnetzStartCamera
	}
	fps := float64(f.fps())
	segSeconds := t.loop.Seconds() / float64(len(t.targets))
	fullSteps := int(math.Round(segSeconds * fps))

	cam := tonnetzStartCamera
	for i := 0; i < idx; i++ {
		cam = mapping.EaseCamera(cam, t.targets[i], tonnetzEase, fullSteps)
	}
	inSegment := (f.Tick.Progress*float64(len(t.targets)) - float64(idx)) * segSeconds
	return mapping.EaseCamera(cam, t.targets[idx], tonnetzEase, int(math.Floor(inSegment*fps)))
}

func (t *Tonnetz) current(progress float64) float64 {
	return progress * t.maxOcc
}

func (t *Tonnetz) active(n dataset.TonnetzNode, cur float64) bool {
	for _, occ := range n.Occurrences {
		if math.Abs(occ-cur) < tonnetzActiveSpan {
			return true
		}
	}
	return false
}

func (t *Tonnetz) segment(progress float64) (dataset.Segment, bool) {
	idx := timeline.SegmentAt(progress, len(t.segments))
	if idx < 0 {
		return dataset.Segment{}, false
	}
	return t.segments[idx], true
}

// Status implements Renderer.
func (t *Tonnetz) Status(f Frame) Status {
	cur := t.current(f.Tick.Progress)
	st := Status{Viz: t.Name(), Progress: f.Tick.Progress, Value: cur}
	for _, n := range t.nodes {
		if t.active(n, cur) {
			st.Active++
		}
	}
	st.Cursor = fmt.Sprintf("Offset: %.1f qL", cur)
	if m, ok := timeline.ApproxMeasure(t.anchors, cur); ok {
		st.Cursor = fmt.Sprintf("Offset: %.1f qL | ~Measure %s", cur, trimFloat(m))
	}
	if seg, ok := t.segment(f.Tick.Progress); ok {
		st.Segment = seg.Label
	}
	return st
}

// Render implements Renderer.
func (t *Tonnetz) Render(w io.Writer, f Frame) error {
	width, height := f.size()
	c := newCanvas(w, int(width), int(height))
	cam := t.Camera(f)
	lat := mapping.Lattice{CenterX: width / 2, CenterY: height / 2, Scale: tonnetzBaseScale}
	progress := f.Tick.Progress
	cur := t.current(progress)
	elapsed := f.elapsedMS()
	embed := f.Options.Embed
	zoom := cam.Zoom

	c.Def()
	c.Filter("link-glow")
	c.FeGaussianBlur(blurSource(), 6, 6)
	c.Fend()
	c.Filter("node-glow")
	c.FeGaussianBlur(blurSource(), 12, 12)
	c.Fend()
	c.DefEnd()
	c.clear("#0a0a0a")

	c.Gid("lattice")
	grid := stroke("#1a1a1a", 1, 2)
	if len(t.nodes) > 0 {
		for gx := math.Floor(t.minX) - 2; gx <= math.Ceil(t.maxX)+2; gx++ {
			for gy := math.Floor(t.minY) - 2; gy <= math.Ceil(t.maxY)+2; gy++ {
				x, y := lat.ToScreen(gx, gy, cam)
				x1, y1 := lat.ToScreen(gx+1, gy, cam)
				x2, y2 := lat.ToScreen(gx, gy+1, cam)
				c.line(x, y, x1, y1, grid)
				c.line(x, y, x2, y2, grid)
			}
		}
	}
	c.Gend()

	c.Gid("links")
	for _, l := range t.links {
		si, ok1 := t.index[l.Source]
		ti, ok2 := t.index[l.Target]
		if !ok1 || !ok2 {
			continue
		}
		a, b := t.nodes[si], t.nodes[ti]
		x1, y1 := lat.ToScreen(a.X, a.Y, cam)
		x2, y2 := lat.ToScreen(b.X, b.Y, cam)
		color, known := transformColors[l.Kind]
		if !known {
			color = transformColors[dataset.LinkKindOther]
		}
		other := !known || l.Kind == dataset.LinkKindOther
		opacity, lw := 0.9, 6*zoom
		if other {
			opacity, lw = 0.3, 2*zoom
		} else {
			c.line(x1, y1, x2, y2, stroke(color, 0.5, lw*2)+";filter:url(#link-glow)")
		}
		c.line(x1, y1, x2, y2, stroke(color, opacity, lw))
		if !other {
			angle := math.Atan2(y2-y1, x2-x1)
			size := 15 * zoom
			c.polygon(
				[]float64{x2, x2 - size*math.Cos(angle-math.Pi/6), x2 - size*math.Cos(angle+math.Pi/6)},
				[]float64{y2, y2 - size*math.Sin(angle-math.Pi/6), y2 - size*math.Sin(angle+math.Pi/6)},
				fill(color, opacity),
			)
		}
	}
	c.Gend()

	c.Gid("chords")
	for _, n := range t.nodes {
		x, y := lat.ToScreen(n.X, n.Y, cam)
		isActive := t.active(n, cur)
		base := 15 + math.Log(float64(len(n.Occurrences))+1)*8
		pulse := 1 + math.Sin(math.Mod(elapsed*0.003+n.X+n.Y, 2*math.Pi))*0.2
		size := base * pulse * zoom
		color := "#FF6688"
		if n.Quality == "M" {
			color = "#66AAFF"
		}
		if isActive {
			c.circle(x, y, size*2, fill(color, 0x44/255.0)+";filter:url(#node-glow)")
			c.circle(x, y, size, fill(color, 1)+";"+outline(1, 3*zoom))
		} else {
			c.circle(x, y, size, fill(color, 0x88/255.0)+";"+outline(0x44/255.0, 3*zoom))
		}
		if !embed {
			labelColor := "#AAAAAA"
			if isActive {
				labelColor = "#FFFFFF"
			}
			c.text(x, y+size+30*zoom, n.Label, textStyle(labelColor, int(math.Round(24*zoom)), true, "middle"))
		}
	}
	c.Gend()

	if embed {
		return c.finish()
	}

	legendY := height - 550
	c.rect(50, legendY, 500, 320, fill("#000000", 0.7))
	c.text(70, legendY+60, "Neo-Riemannian Transformations", textStyle("#FFFFFF", 48, true, "start"))
	for idx, item := range transformNames {
		y := legendY + 130 + float64(idx)*50
		c.rect(70, y-18, 45, 36, fill(transformColors[item.kind], 1))
		c.text(135, y+5, fmt.Sprintf("%s: %s", item.kind, item.name), textStyle("#FFFFFF", 36, false, "start"))
	}

	if seg, ok := t.segment(progress); ok {
		c.rect(width-650, 50, 600, 220, fill("#000000", 0.7))
		c.text(width-630, 110, "Current Segment", textStyle("#FFFFFF", 42, true, "start"))
		c.text(width-630, 170, seg.Label, textStyle("#AAAAAA", 36, false, "start"))
		c.text(width-630, 220, fmt.Sprintf("Measures %s-%s", trimFloat(seg.Start), trimFloat(seg.End)),
			textStyle("#AAAAAA", 36, false, "start"))
	}

	barW := 1200.0
	barX, barY := (width-barW)/2, height-150
	c.progressBar(barX, barY, barW, 25, progress)
	seconds := progress * t.loop.Seconds()
	c.text(width/2, barY+60, fmt.Sprintf("%.1f%% • %.1fs / %.0fs", progress*100, seconds, t.loop.Seconds()),
		textStyle("#FFFFFF", 32, false, "middle"))
	return c.finish()
}

func outline(opacity, width float64) string {
	return fmt.Sprintf("stroke:#FFFFFF;stroke-opacity:%s;stroke-width:%s", num(opacity), num(width))
}
