package dataset

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNumAcceptsNumbersStringsAndNull(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantSet bool
	}{
		{`1.5`, 1.5, true},
		{`"2.25"`, 2.25, true},
		{`" 3 "`, 3, true},
		{`null`, 0, false},
		{`""`, 0, false},
		{`true`, 1, true},
	}
	for _, tt := range tests {
		var n num
		if err := json.Unmarshal([]byte(tt.in), &n); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.in, err)
		}
		if n.v != tt.want || n.set != tt.wantSet {
			t.Fatalf("unmarshal %s = %+v, want %v/%v", tt.in, n, tt.want, tt.wantSet)
		}
	}

	var bad num
	if err := json.Unmarshal([]byte(`"abc"`), &bad); err == nil {
		t.Fatal("expected error for non-numeric string")
	}
}

func TestEventsAcceptsBareArrayAndWrapper(t *testing.T) {
	bare := `[{"part":"Viola","measure":3,"offset":1,"ql":0.5,"type":"note","midi":60,"pc":0,"isRest":false},{"measure":3,"offset":1.5,"ql":0.5,"type":"rest"}]`
	var a Events
	if err := json.Unmarshal([]byte(bare), &a); err != nil {
		t.Fatalf("bare array: %v", err)
	}
	wrapped := `{"events":` + bare + `}`
	var b Events
	if err := json.Unmarshal([]byte(wrapped), &b); err != nil {
		t.Fatalf("wrapped: %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("bare and wrapped decode differently (-bare +wrapped):\n%s", diff)
	}
	if a[1].Part != UnknownPart || !a[1].IsRest {
		t.Fatalf("expected defaulted part and rest flag, got %+v", a[1])
	}
	if notes := a.Notes(); len(notes) != 1 || notes[0].MIDI != 60 {
		t.Fatalf("unexpected notes: %+v", notes)
	}
}

func TestEventsSortByMeasureThenOffset(t *testing.T) {
	data := `[
		{"part":"Viola","measure":2,"offset":0,"ql":1,"midi":60},
		{"part":"Violin 1","measure":1,"offset":2,"ql":1,"midi":72},
		{"part":"Violin 2","measure":1,"offset":0,"ql":1,"midi":67},
		{"part":"Violoncello","measure":1,"offset":0,"ql":2,"midi":48}
	]`
	var events Events
	if err := json.Unmarshal([]byte(data), &events); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var got []string
	for _, ev := range events {
		got = append(got, ev.Part)
	}
	want := []string{"Violin 2", "Violoncello", "Violin 1", "Viola"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("event order mismatch (-want +got):\n%s", diff)
	}
}

func TestFormTimelineAcceptsBothShapes(t *testing.T) {
	data := `{"segments":[
		{"start_measure":"13","end_measure":24,"score":2.5},
		{"label":"Overtura","start":1,"end":12,"color":"#FF6B6B"},
		{"start_measure":25,"end_measure":30,"score":null}
	]}`
	var form FormTimeline
	if err := json.Unmarshal([]byte(data), &form); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	score := 2.5
	want := []Segment{
		{Label: "Overtura", Start: 1, End: 12, Color: "#FF6B6B"},
		{Label: "Segment 1", Start: 13, End: 24, Score: &score},
		{Label: "Segment 3", Start: 25, End: 30},
	}
	if diff := cmp.Diff(want, form.Segments); diff != "" {
		t.Fatalf("segments mismatch (-want +got):\n%s", diff)
	}
	if lo, hi := form.Bounds(); lo != 1 || hi != 30 {
		t.Fatalf("Bounds = %v, %v", lo, hi)
	}
}

func TestGraphLinkDefaults(t *testing.T) {
	data := `{"directed":true,"nodes":[{"id":"m1","count":3,"occurrences":[40,10]},{"id":2,"part":"Viola","label":"rise","count":"7"}],
		"links":[{"source":"m1","target":2},{"source":"m1","target":2,"kind":"transposition","weight":0.4},{"source":"","target":"m1"}]}`
	var g MotifGraph
	if err := json.Unmarshal([]byte(data), &g); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if g.Nodes[0].Part != UnknownPart || g.Nodes[0].Label != "m1" {
		t.Fatalf("expected defaults on first node, got %+v", g.Nodes[0])
	}
	if diff := cmp.Diff([]float64{10, 40}, g.Nodes[0].Occurrences); diff != "" {
		t.Fatalf("occurrences not sorted: %s", diff)
	}
	if g.Nodes[1].ID != "2" || g.Nodes[1].Count != 7 {
		t.Fatalf("unexpected numeric id handling: %+v", g.Nodes[1])
	}
	want := []MotifLink{
		{Source: "m1", Target: "2", Kind: LinkKindOther, Weight: 1},
		{Source: "m1", Target: "2", Kind: "transposition", Weight: 0.4},
	}
	if diff := cmp.Diff(want, g.Links); diff != "" {
		t.Fatalf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestTonnetzMaxOccurrence(t *testing.T) {
	data := `{"nodes":[{"id":"C","quality":"M","x":0,"y":0,"occurrences_qL":[5,120]},{"id":"a","quality":"m","x":1,"y":0}],"links":[{"source":"C","target":"a","kind":"R"}]}`
	var tz TonnetzMap
	if err := json.Unmarshal([]byte(data), &tz); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := tz.MaxOccurrence(); got != 120 {
		t.Fatalf("MaxOccurrence = %v, want 120", got)
	}
	if tz.Links[0].Kind != "R" || tz.Links[0].Weight != 1 {
		t.Fatalf("unexpected link: %+v", tz.Links[0])
	}
}

func TestNarrativesDecodeAllCollections(t *testing.T) {
	data := `{
		"narratives":[{"measure":40,"segment":"B","narrative_kr":"긴장 고조","narrative_en":"rising"},{"measure":5,"segment":"A","narrative_kr":"시작","narrative_en":"opening","keywords":["fugue"]}],
		"clusters":[{"cluster_id":1,"stats":{"nodes":4,"dominant_parts":[["Viola",3]]},"narrative_ko":"군집","narrative_en":"cluster"}],
		"segments":[{"segment_id":7,"measures":[10,20],"mean_tension":0.4,"narrative_ko":"구간","narrative_en":"section"}]
	}`
	var n Narratives
	if err := json.Unmarshal([]byte(data), &n); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if n.Narratives[0].Measure != 5 || n.Narratives[0].Keywords[0] != "fugue" {
		t.Fatalf("expected narratives sorted by measure, got %+v", n.Narratives)
	}
	if n.Clusters[0].Stats == nil || n.Clusters[0].Stats.DominantParts[0] != (PartCount{Part: "Viola", Count: 3}) {
		t.Fatalf("unexpected cluster stats: %+v", n.Clusters[0].Stats)
	}
	seg := n.Segments[0]
	if seg.Index != 7 || seg.Measures != [2]float64{10, 20} || seg.MeanTension == nil || *seg.MeanTension != 0.4 {
		t.Fatalf("unexpected segment: %+v", seg)
	}
	if got := Records(&n); got != 4 {
		t.Fatalf("Records = %d, want 4", got)
	}
}
