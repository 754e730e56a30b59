package scene

import (
	"fmt"
	"io"
	"math"
	"sort"

	"cherrycake/internal/dataset"
	"cherrycake/internal/mapping"
	"cherrycake/internal/timeline"
)

// PartOrder is the drawing order of the string-quartet voices.
var PartOrder = []string{"Violin 1", "Violin 2", "Viola", "Violoncello"}

// PartColors maps each voice to its thread color.
var PartColors = map[string]string{
	"Violin 1":    "#FF6B6B",
	"Violin 2":    "#4ECDC4",
	"Viola":       "#FFE66D",
	"Violoncello": "#95E1D3",
}

// intervalDissonance rates each interval class from consonant (0) to
// dissonant (1).
var intervalDissonance = [12]float64{0, 0.9, 0.7, 0.3, 0.2, 0.4, 0.8, 0.1, 0.2, 0.3, 0.7, 0.8}

const (
	midiMin = 36
	midiMax = 96

	maxThreadSegments = 64
)

// Dissonance rates the interval between two MIDI pitches. Pitches that do not
// form a finite interval rate as consonant.
func Dissonance(a, b float64) float64 {
	interval := math.Mod(math.Abs(math.Round(a)-math.Round(b)), 12)
	if math.IsNaN(interval) {
		return 0
	}
	return intervalDissonance[int(interval)]
}

type weaveNote struct {
	part       string
	midi       float64
	span       timeline.Span
	ql         float64
	dissonance float64
}

func noteStart(n weaveNote) float64 { return n.span.Start }

type weavePart struct {
	name  string
	color string
	notes []weaveNote
}

// Counterpoint weaves the four voices over quarter-length time and pitch.
type Counterpoint struct {
	parts   []weavePart
	maxTime float64
}

// NewCounterpoint builds the weave from score events. Rests are dropped and
// per-note dissonance against overlapping notes of other parts is computed
// once.
func NewCounterpoint(events dataset.Events) (*Counterpoint, error) {
	if events == nil {
		return nil, missing(dataset.EventsFile)
	}
	notes := events.Notes()
	starts := timeline.MeasureStarts(notes)

	all := make([]weaveNote, 0, len(notes))
	for _, ev := range notes {
		all = append(all, weaveNote{part: ev.Part, midi: ev.MIDI, span: timeline.NoteSpan(starts, ev), ql: ev.QL})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].span.Start < all[j].span.Start })

	sums := make([]float64, len(all))
	counts := make([]int, len(all))
	for i := range all {
		for j := i + 1; j < len(all) && all[j].span.Start < all[i].span.End; j++ {
			if all[i].part == all[j].part || !all[i].span.Overlaps(all[j].span) {
				continue
			}
			d := Dissonance(all[i].midi, all[j].midi)
			sums[i] += d
			sums[j] += d
			counts[i]++
			counts[j]++
		}
	}
	byPart := make(map[string][]weaveNote)
	for i, n := range all {
		if counts[i] > 0 {
			n.dissonance = sums[i] / float64(counts[i])
		}
		byPart[n.part] = append(byPart[n.part], n)
	}

	c := &Counterpoint{maxTime: timeline.Duration(notes)}
	seen := make(map[string]bool)
	for _, name := range PartOrder {
		seen[name] = true
		c.parts = append(c.parts, weavePart{name: name, color: PartColors[name], notes: byPart[name]})
	}
	var extra []string
	for name := range byPart {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		c.parts = append(c.parts, weavePart{name: titleCase(name), color: "#FFFFFF", notes: byPart[name]})
	}
	return c, nil
}

// Name implements Renderer.
func (c *Counterpoint) Name() string { return "counterpoint" }

// Duration returns the piece length in quarter lengths.
func (c *Counterpoint) Duration() float64 { return c.maxTime }

func (c *Counterpoint) now(progress float64) float64 {
	return progress * c.maxTime
}

func (c *Counterpoint) activeCount(t float64) int {
	n := 0
	for _, p := range c.parts {
		n += len(timeline.Active(p.notes, func(w weaveNote) timeline.Span { return w.span }, t))
	}
	return n
}

// Status implements Renderer.
func (c *Counterpoint) Status(f Frame) Status {
	t := c.now(f.Tick.Progress)
	active := c.activeCount(t)
	return Status{
		Viz:      c.Name(),
		Progress: f.Tick.Progress,
		Cursor:   fmt.Sprintf("Time: %.1f / %.1f qL", t, c.maxTime),
		Value:    t,
		Active:   active,
	}
}

// Lanes implements Lanes.
func (c *Counterpoint) Lanes(f Frame) []Lane {
	t := c.now(f.Tick.Progress)
	lanes := make([]Lane, 0, len(c.parts))
	for _, p := range c.parts {
		lane := Lane{Part: p.name, Color: p.color}
		for _, n := range timeline.Revealed(p.notes, noteStart, t) {
			if n.span.Contains(t) {
				lane.Active = true
				lane.MIDI = n.midi
			}
		}
		lanes = append(lanes, lane)
	}
	return lanes
}

// Render implements Renderer.
func (c *Counterpoint) Render(w io.Writer, f Frame) error {
	width, height := f.size()
	cv := newCanvas(w, int(width), int(height))
	vp := mapping.Viewport{Width: width, Height: height, Padding: mapping.Uniform(150)}
	in := vp.Inner()
	xAxis := vp.XAxis(0, c.maxTime)
	yAxis := vp.YAxis(midiMin, midiMax)
	progress := f.Tick.Progress
	now := c.now(progress)

	cv.Def()
	cv.Filter("thread-glow")
	cv.FeGaussianBlur(blurSource(), 8, 8)
	cv.Fend()
	cv.DefEnd()
	cv.clear("#0a0a0a")

	staff := stroke("#1a1a1a", 1, 1)
	for i := 0; i <= 10; i++ {
		y := in.Y + in.H/10*float64(i)
		cv.line(in.X, y, width-150, y, staff)
	}

	active := 0
	for partIdx, part := range c.parts {
		cv.Gid(fmt.Sprintf("part-%d", partIdx))
		for _, n := range timeline.Revealed(part.notes, noteStart, now) {
			isActive := n.span.Contains(now)
			if isActive {
				active++
			}
			y1 := yAxis.Map(n.midi)
			drawEnd := math.Min(n.span.End, now)
			noise := n.dissonance * 20
			segments := min(max(3, int(math.Floor(n.ql*2))), maxThreadSegments)

			color, opacity, lineWidth := part.color, 136.0/255, 2.0
			if isActive {
				opacity, lineWidth = 1, 4
			}
			for fiber := 0; fiber < 3; fiber++ {
				offset := float64(fiber-1) * 2
				xs := make([]float64, 0, segments+1)
				ys := make([]float64, 0, segments+1)
				for seg := 0; seg <= segments; seg++ {
					st := n.span.Start + (drawEnd-n.span.Start)*float64(seg)/float64(segments)
					if st > now {
						break
					}
					nx := math.Sin(st*0.5+float64(fiber)*2) * noise
					ny := math.Cos(st*0.7+float64(fiber)*3)*noise + offset
					weave := math.Sin((st+float64(partIdx)*10)*0.3) * 15
					xs = append(xs, xAxis.Map(st)+nx)
					ys = append(ys, y1+ny+weave)
				}
				if isActive {
					cv.polyline(xs, ys, stroke(color, 0.6, lineWidth*2)+";filter:url(#thread-glow)")
				}
				cv.polyline(xs, ys, stroke(color, opacity, lineWidth))
			}
			radius := 4.0
			if isActive {
				radius = 6
				cv.circle(xAxis.Map(n.span.Start), y1, radius*2, fill(color, 0.5)+";filter:url(#thread-glow)")
			}
			cv.circle(xAxis.Map(n.span.Start), y1, radius, fill(color, 1))
		}
		cv.Gend()
	}

	cursorX := xAxis.Map(now)
	cv.line(cursorX, in.Y, cursorX, height-150, stroke("#FFFFFF", 0.3, 2))

	if !f.Options.Embed {
		bold := textStyle("#FFFFFF", 36, true, "start")
		cv.text(in.X, 80, fmt.Sprintf("Time: %.1f / %.1f qL", now, c.maxTime), bold)
		cv.text(width-400, 80, fmt.Sprintf("Active Notes: %d", active), bold)
		for idx, part := range c.parts {
			cv.text(in.X-20, in.Y+50+float64(idx)*50, part.name, textStyle(part.color, 32, false, "end"))
		}
		cv.progressBar(in.X, height-100, in.W, 10, progress)
	}
	return cv.finish()
}
