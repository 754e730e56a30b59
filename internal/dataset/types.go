package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Well-known document paths relative to the dataset base.
const (
	TensionFile    = "tension_per_measure.json"
	FormFile       = "form_timeline.json"
	EventsFile     = "events.json"
	MotifFile      = "motif_graph.json"
	NarrativesFile = "narratives.json"
	TonnetzFile    = "tonnetz.json"
)

// Documents lists every document the site knows how to read.
var Documents = []string{TensionFile, FormFile, EventsFile, MotifFile, NarrativesFile, TonnetzFile}

// UnknownPart labels events and motif nodes without a part.
const UnknownPart = "Unknown"

// LinkKindOther is the fallback kind for links without one.
const LinkKindOther = "other"

// MeasureTension is one row of the per-measure tension series.
type MeasureTension struct {
	Measure   float64 `json:"measure"`
	Tension   float64 `json:"tension"`
	Rhythm    float64 `json:"rhythm"`
	Roughness float64 `json:"roughness"`
	Tonal     float64 `json:"tonal"`
}

// TensionSeries is the decoded tension_per_measure.json document.
type TensionSeries struct {
	Measures []MeasureTension `json:"measures"`
}

// UnmarshalJSON decodes the series leniently and sorts it by measure.
func (t *TensionSeries) UnmarshalJSON(data []byte) error {
	var raw struct {
		Measures []struct {
			Measure   num `json:"measure"`
			Tension   num `json:"tension"`
			Rhythm    num `json:"rhythm"`
			Roughness num `json:"roughness"`
			Tonal     num `json:"tonal"`
		} `json:"measures"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]MeasureTension, 0, len(raw.Measures))
	for _, m := range raw.Measures {
		out = append(out, MeasureTension{
			Measure:   m.Measure.v,
			Tension:   m.Tension.v,
			Rhythm:    m.Rhythm.v,
			Roughness: m.Roughness.v,
			Tonal:     m.Tonal.v,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Measure < out[j].Measure })
	t.Measures = out
	return nil
}

// Values returns the tension column in measure order.
func (t *TensionSeries) Values() []float64 {
	if t == nil {
		return nil
	}
	out := make([]float64, len(t.Measures))
	for i, m := range t.Measures {
		out[i] = m.Tension
	}
	return out
}

// Event is one note or rest of the score.
type Event struct {
	Part    string  `json:"part"`
	Measure float64 `json:"measure"`
	Offset  float64 `json:"offset"`
	QL      float64 `json:"ql"`
	Type    string  `json:"type"`
	MIDI    float64 `json:"midi"`
	PC      float64 `json:"pc"`
	IsRest  bool    `json:"isRest"`
}

// Events is the decoded events.json document.
type Events []Event

// UnmarshalJSON accepts either a bare array or an object with an "events"
// array.
func (e *Events) UnmarshalJSON(data []byte) error {
	type rawEvent struct {
		Part    string `json:"part"`
		Measure num    `json:"measure"`
		Offset  num    `json:"offset"`
		QL      num    `json:"ql"`
		Type    string `json:"type"`
		MIDI    num    `json:"midi"`
		PC      num    `json:"pc"`
		IsRest  bool   `json:"isRest"`
	}
	var rows []rawEvent
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.HasPrefix(trimmed, []byte("[")):
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return err
		}
	case bytes.HasPrefix(trimmed, []byte("{")):
		var wrapped struct {
			Events []rawEvent `json:"events"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return err
		}
		rows = wrapped.Events
	case bytes.Equal(trimmed, []byte("null")):
		rows = nil
	default:
		return fmt.Errorf("events: expected array or object")
	}
	out := make(Events, 0, len(rows))
	for _, r := range rows {
		part := strings.TrimSpace(r.Part)
		if part == "" {
			part = UnknownPart
		}
		kind := strings.TrimSpace(r.Type)
		out = append(out, Event{
			Part:    part,
			Measure: r.Measure.v,
			Offset:  r.Offset.v,
			QL:      r.QL.v,
			Type:    kind,
			MIDI:    r.MIDI.v,
			PC:      r.PC.v,
			IsRest:  r.IsRest || strings.EqualFold(kind, "rest"),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Measure != out[j].Measure {
			return out[i].Measure < out[j].Measure
		}
		return out[i].Offset < out[j].Offset
	})
	*e = out
	return nil
}

// Notes returns the events that are not rests.
func (e Events) Notes() Events {
	out := make(Events, 0, len(e))
	for _, ev := range e {
		if !ev.IsRest {
			out = append(out, ev)
		}
	}
	return out
}

// MotifNode is one recurring motif.
type MotifNode struct {
	ID          string    `json:"id"`
	Part        string    `json:"part"`
	Label       string    `json:"label"`
	N           int       `json:"n"`
	Pattern     []float64 `json:"pattern"`
	Count       float64   `json:"count"`
	Occurrences []float64 `json:"occurrences"`
	Group       int       `json:"group"`
}

// MotifLink connects two similar motifs.
type MotifLink struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Kind   string  `json:"kind"`
	Weight float64 `json:"weight"`
}

// MotifGraph is the decoded motif_graph.json document.
type MotifGraph struct {
	Directed bool        `json:"directed"`
	Nodes    []MotifNode `json:"nodes"`
	Links    []MotifLink `json:"links"`
}

// UnmarshalJSON decodes the graph and fills defaults for optional fields.
func (g *MotifGraph) UnmarshalJSON(data []byte) error {
	var raw struct {
		Directed bool `json:"directed"`
		Nodes    []struct {
			ID          json.RawMessage `json:"id"`
			Part        string          `json:"part"`
			Label       string          `json:"label"`
			N           num             `json:"n"`
			Pattern     []num           `json:"pattern"`
			Count       num             `json:"count"`
			Occurrences []num           `json:"occurrences"`
			Group       num             `json:"group"`
		} `json:"nodes"`
		Links []rawLink `json:"links"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	nodes := make([]MotifNode, 0, len(raw.Nodes))
	for i, n := range raw.Nodes {
		id := identifier(n.ID)
		if id == "" {
			id = fmt.Sprintf("motif-%d", i)
		}
		part := strings.TrimSpace(n.Part)
		if part == "" {
			part = UnknownPart
		}
		label := strings.TrimSpace(n.Label)
		if label == "" {
			label = id
		}
		occ := floats(n.Occurrences)
		sort.Float64s(occ)
		nodes = append(nodes, MotifNode{
			ID:          id,
			Part:        part,
			Label:       label,
			N:           int(n.N.v),
			Pattern:     floats(n.Pattern),
			Count:       n.Count.v,
			Occurrences: occ,
			Group:       int(n.Group.v),
		})
	}
	g.Directed = raw.Directed
	g.Nodes = nodes
	g.Links = normalizeLinks(raw.Links)
	return nil
}

// TonnetzNode is one triad placed on the Tonnetz lattice.
type TonnetzNode struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Root        float64   `json:"root"`
	Quality     string    `json:"quality"`
	PCS         []float64 `json:"pcs"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Occurrences []float64 `json:"occurrences_qL"`
}

// TonnetzLink is a neo-Riemannian transformation between two triads.
type TonnetzLink struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Kind   string  `json:"kind"`
	Weight float64 `json:"weight"`
}

// TonnetzMap is the decoded tonnetz.json document.
type TonnetzMap struct {
	Nodes []TonnetzNode `json:"nodes"`
	Links []TonnetzLink `json:"links"`
}

// UnmarshalJSON decodes the lattice and fills defaults for optional fields.
func (t *TonnetzMap) UnmarshalJSON(data []byte) error {
	var raw struct {
		Nodes []struct {
			ID          json.RawMessage `json:"id"`
			Label       string          `json:"label"`
			Root        num             `json:"root"`
			Quality     string          `json:"quality"`
			PCS         []num           `json:"pcs"`
			X           num             `json:"x"`
			Y           num             `json:"y"`
			Occurrences []num           `json:"occurrences_qL"`
		} `json:"nodes"`
		Links []rawLink `json:"links"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	nodes := make([]TonnetzNode, 0, len(raw.Nodes))
	for i, n := range raw.Nodes {
		id := identifier(n.ID)
		if id == "" {
			id = fmt.Sprintf("chord-%d", i)
		}
		label := strings.TrimSpace(n.Label)
		if label == "" {
			label = id
		}
		occ := floats(n.Occurrences)
		sort.Float64s(occ)
		nodes = append(nodes, TonnetzNode{
			ID:          id,
			Label:       label,
			Root:        n.Root.v,
			Quality:     strings.TrimSpace(n.Quality),
			PCS:         floats(n.PCS),
			X:           n.X.v,
			Y:           n.Y.v,
			Occurrences: occ,
		})
	}
	links := normalizeLinks(raw.Links)
	t.Nodes = nodes
	t.Links = make([]TonnetzLink, len(links))
	for i, l := range links {
		t.Links[i] = TonnetzLink(l)
	}
	return nil
}

// MaxOccurrence returns the latest occurrence offset across all nodes.
func (t *TonnetzMap) MaxOccurrence() float64 {
	if t == nil {
		return 0
	}
	maxT := 0.0
	for _, n := range t.Nodes {
		if k := len(n.Occurrences); k > 0 && n.Occurrences[k-1] > maxT {
			maxT = n.Occurrences[k-1]
		}
	}
	return maxT
}

// Segment is one formal section of the piece, in measures.
type Segment struct {
	Label string   `json:"label"`
	Start float64  `json:"start"`
	End   float64  `json:"end"`
	Color string   `json:"color,omitempty"`
	Score *float64 `json:"score,omitempty"`
}

// FormTimeline is the decoded form_timeline.json document.
type FormTimeline struct {
	Segments []Segment `json:"segments"`
}

// UnmarshalJSON accepts both labelled segments ({label,start,end,color}) and
// scored segments ({start_measure,end_measure,score}).
func (f *FormTimeline) UnmarshalJSON(data []byte) error {
	var raw struct {
		Segments []struct {
			Label        string `json:"label"`
			Start        num    `json:"start"`
			End          num    `json:"end"`
			StartMeasure num    `json:"start_measure"`
			EndMeasure   num    `json:"end_measure"`
			Color        string `json:"color"`
			Score        num    `json:"score"`
		} `json:"segments"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]Segment, 0, len(raw.Segments))
	for i, s := range raw.Segments {
		start := s.Start.or(s.StartMeasure.v)
		end := s.End.or(s.EndMeasure.v)
		if end < start {
			start, end = end, start
		}
		label := strings.TrimSpace(s.Label)
		if label == "" {
			label = fmt.Sprintf("Segment %d", i+1)
		}
		out = append(out, Segment{
			Label: label,
			Start: start,
			End:   end,
			Color: strings.TrimSpace(s.Color),
			Score: s.Score.ptr(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	f.Segments = out
	return nil
}

// Bounds returns the first start and last end measure, or (0, 0) when empty.
func (f *FormTimeline) Bounds() (float64, float64) {
	if f == nil || len(f.Segments) == 0 {
		return 0, 0
	}
	lo, hi := f.Segments[0].Start, f.Segments[0].End
	for _, s := range f.Segments[1:] {
		lo = min(lo, s.Start)
		hi = max(hi, s.End)
	}
	return lo, hi
}

// Narrative is a per-measure commentary entry.
type Narrative struct {
	Measure  float64  `json:"measure"`
	Segment  string   `json:"segment"`
	TextKO   string   `json:"narrative_kr"`
	TextEN   string   `json:"narrative_en"`
	Keywords []string `json:"keywords,omitempty"`
}

// PartCount pairs a part name with a tally.
type PartCount struct {
	Part  string  `json:"part"`
	Count float64 `json:"count"`
}

// UnmarshalJSON decodes the ["Violin 1", 12] tuple form.
func (p *PartCount) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		var obj struct {
			Part  string `json:"part"`
			Count num    `json:"count"`
		}
		if objErr := json.Unmarshal(data, &obj); objErr != nil {
			return err
		}
		*p = PartCount{Part: obj.Part, Count: obj.Count.v}
		return nil
	}
	if len(tuple) > 0 {
		p.Part = identifier(tuple[0])
	}
	if len(tuple) > 1 {
		var n num
		if err := json.Unmarshal(tuple[1], &n); err != nil {
			return err
		}
		p.Count = n.v
	}
	return nil
}

// ClusterStats summarizes a motif cluster.
type ClusterStats struct {
	Nodes         int         `json:"nodes,omitempty"`
	Links         int         `json:"links,omitempty"`
	MeanCount     float64     `json:"mean_count,omitempty"`
	MaxCount      float64     `json:"max_count,omitempty"`
	DominantParts []PartCount `json:"dominant_parts,omitempty"`
	AvgWeight     float64     `json:"avg_weight,omitempty"`
}

// Cluster is a narrative about one motif cluster.
type Cluster struct {
	ID                     int           `json:"cluster_id"`
	Stats                  *ClusterStats `json:"stats,omitempty"`
	TextKO                 string        `json:"narrative_ko"`
	TextEN                 string        `json:"narrative_en"`
	RepresentativeMeasures []float64     `json:"representative_measures,omitempty"`
}

// NarrativeSegment is a narrative about a measure range.
type NarrativeSegment struct {
	Index           int        `json:"segment_index"`
	Measures        [2]float64 `json:"measures"`
	MeanTension     *float64   `json:"mean_tension,omitempty"`
	DominantModules []int      `json:"dominant_modules,omitempty"`
	TextKO          string     `json:"narrative_ko"`
	TextEN          string     `json:"narrative_en"`
}

// Narratives is the decoded narratives.json document.
type Narratives struct {
	Narratives []Narrative        `json:"narratives,omitempty"`
	Clusters   []Cluster          `json:"clusters,omitempty"`
	Segments   []NarrativeSegment `json:"segments,omitempty"`
}

// UnmarshalJSON decodes all three narrative collections leniently.
func (n *Narratives) UnmarshalJSON(data []byte) error {
	var raw struct {
		Narratives []struct {
			Measure  num      `json:"measure"`
			Segment  string   `json:"segment"`
			TextKR   string   `json:"narrative_kr"`
			TextKO   string   `json:"narrative_ko"`
			TextEN   string   `json:"narrative_en"`
			Keywords []string `json:"keywords"`
		} `json:"narratives"`
		Clusters []struct {
			ID    num `json:"cluster_id"`
			Stats *struct {
				Nodes         num         `json:"nodes"`
				Links         num         `json:"links"`
				MeanCount     num         `json:"mean_count"`
				MaxCount      num         `json:"max_count"`
				DominantParts []PartCount `json:"dominant_parts"`
				AvgWeight     num         `json:"avg_weight"`
			} `json:"stats"`
			TextKO   string `json:"narrative_ko"`
			TextEN   string `json:"narrative_en"`
			Measures []num  `json:"representative_measures"`
		} `json:"clusters"`
		Segments []struct {
			Index           num    `json:"segment_index"`
			ID              num    `json:"segment_id"`
			Measures        []num  `json:"measures"`
			MeanTension     num    `json:"mean_tension"`
			DominantModules []num  `json:"dominant_modules"`
			TextKO          string `json:"narrative_ko"`
			TextEN          string `json:"narrative_en"`
		} `json:"segments"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	n.Narratives = make([]Narrative, 0, len(raw.Narratives))
	for _, r := range raw.Narratives {
		ko := r.TextKR
		if ko == "" {
			ko = r.TextKO
		}
		n.Narratives = append(n.Narratives, Narrative{
			Measure:  r.Measure.v,
			Segment:  strings.TrimSpace(r.Segment),
			TextKO:   ko,
			TextEN:   r.TextEN,
			Keywords: r.Keywords,
		})
	}
	sort.SliceStable(n.Narratives, func(i, j int) bool { return n.Narratives[i].Measure < n.Narratives[j].Measure })

	n.Clusters = make([]Cluster, 0, len(raw.Clusters))
	for _, r := range raw.Clusters {
		c := Cluster{
			ID:                     int(r.ID.v),
			TextKO:                 r.TextKO,
			TextEN:                 r.TextEN,
			RepresentativeMeasures: floats(r.Measures),
		}
		if r.Stats != nil {
			c.Stats = &ClusterStats{
				Nodes:         int(r.Stats.Nodes.v),
				Links:         int(r.Stats.Links.v),
				MeanCount:     r.Stats.MeanCount.v,
				MaxCount:      r.Stats.MaxCount.v,
				DominantParts: r.Stats.DominantParts,
				AvgWeight:     r.Stats.AvgWeight.v,
			}
		}
		n.Clusters = append(n.Clusters, c)
	}

	n.Segments = make([]NarrativeSegment, 0, len(raw.Segments))
	for i, r := range raw.Segments {
		seg := NarrativeSegment{
			Index:       int(r.Index.or(r.ID.or(float64(i)))),
			MeanTension: r.MeanTension.ptr(),
			TextKO:      r.TextKO,
			TextEN:      r.TextEN,
		}
		if m := floats(r.Measures); len(m) > 0 {
			seg.Measures[0] = m[0]
			seg.Measures[1] = m[len(m)-1]
		}
		for _, mod := range floats(r.DominantModules) {
			seg.DominantModules = append(seg.DominantModules, int(mod))
		}
		n.Segments = append(n.Segments, seg)
	}
	return nil
}

type rawLink struct {
	Source json.RawMessage `json:"source"`
	Target json.RawMessage `json:"target"`
	Kind   string          `json:"kind"`
	Weight num             `json:"weight"`
}

func normalizeLinks(in []rawLink) []MotifLink {
	out := make([]MotifLink, 0, len(in))
	for _, l := range in {
		src := identifier(l.Source)
		dst := identifier(l.Target)
		if src == "" || dst == "" {
			continue
		}
		kind := strings.TrimSpace(l.Kind)
		if kind == "" {
			kind = LinkKindOther
		}
		out = append(out, MotifLink{
			Source: src,
			Target: dst,
			Kind:   kind,
			Weight: l.Weight.or(1),
		})
	}
	return out
}

// identifier renders a JSON string or number as an identifier string.
func identifier(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		ID json.RawMessage `json:"id"`
	}
	if raw[0] == '{' {
		if err := json.Unmarshal(raw, &obj); err == nil {
			return identifier(obj.ID)
		}
		return ""
	}
	return strings.TrimSpace(string(raw))
}
