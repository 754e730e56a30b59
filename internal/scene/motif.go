package scene

import (
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"sort"

	"cherrycake/internal/dataset"
	"cherrycake/internal/mapping"
	"cherrycake/internal/narrative"
	"cherrycake/internal/timeline"
)

const (
	motifCameraDistance = 600.0
	motifCameraBob      = 100.0
	motifClusterRadius  = 220.0
	goldenAngle         = 2.399963229728653
)

type motifPoint struct {
	node    dataset.MotifNode
	x, y, z float64
	size    float64
	color   string
}

type motifEdge struct {
	from, to int
	width    float64
	opacity  float64
}

// Motif draws the motif graph as a constellation seen from an orbiting
// camera. The current form segment highlights motifs that occur inside it.
type Motif struct {
	points     []motifPoint
	edges      []motifEdge
	segments   []dataset.Segment
	narratives *dataset.Narratives
}

// NewMotif lays out the graph deterministically: parts form clusters around
// the origin and motifs spiral inside their cluster.
func NewMotif(graph *dataset.MotifGraph, form *dataset.FormTimeline, narratives *dataset.Narratives) (*Motif, error) {
	if graph == nil {
		return nil, missing(dataset.MotifFile)
	}
	m := &Motif{narratives: narratives}
	if form != nil {
		m.segments = form.Segments
	}

	counts := make([]float64, len(graph.Nodes))
	for i, n := range graph.Nodes {
		counts[i] = n.Count
	}
	lo, hi := mapping.Extent(counts)

	partIndex := map[string]int{}
	for _, p := range PartOrder {
		partIndex[p] = len(partIndex)
	}
	var extra []string
	for _, n := range graph.Nodes {
		if _, ok := partIndex[n.Part]; !ok {
			extra = append(extra, n.Part)
			partIndex[n.Part] = -1
		}
	}
	sort.Strings(extra)
	for _, p := range extra {
		partIndex[p] = len(PartOrder) + sort.SearchStrings(extra, p)
	}
	clusters := max(len(partIndex), 1)

	seen := map[string]int{}
	ids := make(map[string]int, len(graph.Nodes))
	for i, n := range graph.Nodes {
		pi := partIndex[n.Part]
		k := seen[n.Part]
		seen[n.Part] = k + 1

		angle := 2 * math.Pi * float64(pi) / float64(clusters)
		cx, cz := math.Cos(angle)*motifClusterRadius, math.Sin(angle)*motifClusterRadius
		r := 18 * math.Sqrt(float64(k)+0.5)
		theta := float64(k) * goldenAngle
		y := (float64(n.Group%7) - 3) * 14

		color, ok := PartColors[n.Part]
		if !ok {
			color = "#FFFFFF"
		}
		m.points = append(m.points, motifPoint{
			node:  n,
			x:     cx + math.Cos(theta)*r,
			y:     y + math.Sin(theta*0.5)*r*0.3,
			z:     cz + math.Sin(theta)*r,
			size:  5 + mapping.Normalize(n.Count, lo, hi)*25,
			color: color,
		})
		ids[n.ID] = i
	}
	for _, l := range graph.Links {
		from, ok1 := ids[l.Source]
		to, ok2 := ids[l.Target]
		if !ok1 || !ok2 {
			continue
		}
		m.edges = append(m.edges, motifEdge{from: from, to: to, width: l.Weight * 3, opacity: mapping.Clamp(l.Weight*0.3, 0, 1)})
	}
	return m, nil
}

// Name implements Renderer.
func (m *Motif) Name() string { return "motif" }

func (m *Motif) segment(progress float64) (dataset.Segment, bool) {
	idx := timeline.SegmentAt(progress, len(m.segments))
	if idx < 0 {
		return dataset.Segment{}, false
	}
	return m.segments[idx], true
}

func (m *Motif) highlighted(seg dataset.Segment, ok bool) map[int]bool {
	out := map[int]bool{}
	if !ok {
		return out
	}
	span := timeline.Span{Start: seg.Start, End: seg.End}
	for i, p := range m.points {
		for _, occ := range p.node.Occurrences {
			if span.Contains(occ) {
				out[i] = true
				break
			}
		}
	}
	return out
}

// Keywords returns the floating keywords for the segment at progress.
func (m *Motif) Keywords(progress float64) []string {
	seg, ok := m.segment(progress)
	if !ok {
		return nil
	}
	n, found := narrative.ForSegment(m.narratives, seg)
	if !found {
		return nil
	}
	return narrative.Keywords(n)
}

// Status implements Renderer.
func (m *Motif) Status(f Frame) Status {
	seg, ok := m.segment(f.Tick.Progress)
	hl := m.highlighted(seg, ok)
	st := Status{Viz: m.Name(), Progress: f.Tick.Progress, Active: len(hl), Value: float64(len(hl))}
	if ok {
		st.Segment = seg.Label
		st.Cursor = fmt.Sprintf("Measures %s-%s | %d motifs active", trimFloat(seg.Start), trimFloat(seg.End), len(hl))
	}
	return st
}

// Render implements Renderer.
func (m *Motif) Render(w io.Writer, f Frame) error {
	width, height := f.size()
	c := newCanvas(w, int(width), int(height))
	progress := f.Tick.Progress
	ex, ey, ez := mapping.Orbit(progress, motifCameraDistance, motifCameraBob)
	focal := height * 0.9
	cx, cy := width/2, height/2
	seg, segOK := m.segment(progress)
	hl := m.highlighted(seg, segOK)
	embed := f.Options.Embed

	type projected struct {
		x, y, scale float64
		ok          bool
	}
	proj := make([]projected, len(m.points))
	for i, p := range m.points {
		sx, sy, scale, ok := mapping.Project(p.x, p.y, p.z, ex, ey, ez, focal)
		proj[i] = projected{x: cx + sx, y: cy + sy, scale: scale, ok: ok}
	}

	c.Def()
	c.Filter("motif-glow")
	c.FeGaussianBlur(blurSource(), 6, 6)
	c.Fend()
	c.DefEnd()
	c.clear("#000000")

	linkScale := 1.0
	if embed {
		linkScale = 0.2 / 0.3
	}
	c.Gid("links")
	for _, e := range m.edges {
		a, b := proj[e.from], proj[e.to]
		if !a.ok || !b.ok {
			continue
		}
		scale := (a.scale + b.scale) / 2
		c.line(a.x, a.y, b.x, b.y, stroke("#FFFFFF", e.opacity*linkScale, math.Max(0.5, e.width*scale)))
	}
	c.Gend()

	// far to near
	order := make([]int, 0, len(m.points))
	for i := range m.points {
		if proj[i].ok {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool { return proj[order[a]].scale < proj[order[b]].scale })

	c.Gid("nodes")
	for _, i := range order {
		p, pr := m.points[i], proj[i]
		r := p.size * pr.scale
		if hl[i] {
			c.circle(pr.x, pr.y, r*1.5, fill(p.color, 0.3)+";filter:url(#motif-glow)")
			c.circle(pr.x, pr.y, r, fill(p.color, 1))
		} else {
			c.circle(pr.x, pr.y, r, fill(p.color, 0.55))
		}
	}
	c.Gend()

	if !embed {
		for i, word := range m.Keywords(progress) {
			kx, ky, kz := keywordPosition(word, i)
			sx, sy, _, ok := mapping.Project(kx, ky, kz, ex, ey, ez, focal)
			if !ok {
				continue
			}
			c.text(cx+sx, cy+sy, word, textStyle("#FFFFFF", 44, true, "middle")+";fill-opacity:0.7")
		}

		c.rect(60, 60, 900, 300, fill("#000000", 0.7))
		c.text(100, 140, "Motif Constellation", textStyle("#FFFFFF", 56, true, "start"))
		c.text(100, 210, "Beethoven - Große Fuge Op. 133", textStyle("#D1D5DB", 32, false, "start"))
		label := "N/A"
		if segOK {
			label = seg.Label
		}
		c.text(100, 270, label, textStyle("#9CA3AF", 32, false, "start"))

		c.rect(width-560, 60, 500, 80+float64(len(PartOrder))*56, fill("#000000", 0.7))
		c.text(width-520, 120, "Parts", textStyle("#FFFFFF", 36, true, "start"))
		for i, part := range PartOrder {
			y := 180 + float64(i)*56
			c.circle(width-505, y-10, 12, fill(PartColors[part], 1))
			c.text(width-475, y, part, textStyle("#FFFFFF", 30, false, "start"))
		}

		c.rect(60, height-220, width-120, 160, fill("#000000", 0.7))
		info := fmt.Sprintf("Segment: %s", label)
		if segOK {
			info += fmt.Sprintf("   Measures: %s - %s", trimFloat(seg.Start), trimFloat(seg.End))
		}
		c.text(100, height-150, info, textStyle("#FFFFFF", 36, true, "start"))
		c.text(width-100, height-150, fmt.Sprintf("%d motifs active", len(hl)), textStyle("#9CA3AF", 30, false, "end"))
		c.progressBar(100, height-110, width-200, 16, progress)
	}
	return c.finish()
}

// keywordPosition spreads keywords inside a 300-unit cube around the origin,
// stable for a given word and slot.
func keywordPosition(word string, slot int) (float64, float64, float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(word))
	_, _ = h.Write([]byte{byte(slot)})
	sum := h.Sum64()
	unit := func(shift uint) float64 {
		return float64((sum>>shift)&0xFFFF)/65535 - 0.5
	}
	return unit(0) * 300, unit(16) * 300, unit(32) * 300
}

func trimFloat(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}
