package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"cherrycake/internal/dataset"
)

// Sample documents small enough to reason about in assertions. The form
// spans measures 1-8 in two segments.
const (
	SampleTension = `{"measures":[
  {"measure":1,"tension":0.1,"rhythm":0.2,"roughness":0.1,"tonal":0.3},
  {"measure":2,"tension":0.4,"rhythm":0.3,"roughness":0.2,"tonal":0.3},
  {"measure":3,"tension":0.9,"rhythm":0.5,"roughness":0.6,"tonal":0.4},
  {"measure":4,"tension":0.6,"rhythm":0.4,"roughness":0.3,"tonal":0.5},
  {"measure":5,"tension":0.2,"rhythm":0.1,"roughness":0.1,"tonal":0.2}
]}`
	SampleForm = `{"segments":[
  {"label":"Exposition","start":1,"end":4,"score":0.3},
  {"label":"Development","start":5,"end":8,"score":0.8}
]}`
	SampleEvents = `[
  {"part":"Violin 1","measure":1,"offset":0,"ql":2,"type":"note","midi":72,"pc":0},
  {"part":"Violin 2","measure":1,"offset":0,"ql":2,"type":"note","midi":67,"pc":7},
  {"part":"Viola","measure":1,"offset":2,"ql":2,"type":"note","midi":64,"pc":4},
  {"part":"Violoncello","measure":2,"offset":4,"ql":4,"type":"note","midi":48,"pc":0},
  {"part":"Violin 1","measure":2,"offset":4,"ql":1,"type":"rest","isRest":true}
]`
	SampleMotif = `{"directed":false,"nodes":[
  {"id":"m1","part":"Violin 1","label":"+2 -1","n":3,"count":6,"occurrences":[0,16]},
  {"id":"m2","part":"Viola","label":"-3 +3","n":3,"count":2,"occurrences":[8]}
],"links":[{"source":"m1","target":"m2","kind":"similar","weight":0.7}]}`
	SampleNarratives = `{"narratives":[
  {"measure":1,"segment":"Exposition","narrative_kr":"도입","narrative_en":"The opening states the theme.","keywords":["theme"]},
  {"measure":5,"segment":"Development","narrative_kr":"전개","narrative_en":"The theme fragments.","keywords":["fragment"]}
]}`
	SampleTonnetz = `{"nodes":[
  {"id":"C","label":"C","root":0,"quality":"M","pcs":[0,4,7],"x":0,"y":0,"occurrences_qL":[0,4]},
  {"id":"a","label":"a","root":9,"quality":"m","pcs":[9,0,4],"x":1,"y":0,"occurrences_qL":[20]}
],"links":[{"source":"C","target":"a","kind":"R","weight":2}]}`
)

// SampleDocuments maps every dataset reference to its sample body.
func SampleDocuments() map[string]string {
	return map[string]string{
		dataset.TensionFile:    SampleTension,
		dataset.FormFile:       SampleForm,
		dataset.EventsFile:     SampleEvents,
		dataset.MotifFile:      SampleMotif,
		dataset.NarrativesFile: SampleNarratives,
		dataset.TonnetzFile:    SampleTonnetz,
	}
}

// WriteSampleDatasets writes every sample document into dir.
func WriteSampleDatasets(t testing.TB, dir string) {
	t.Helper()
	for name, body := range SampleDocuments() {
		WriteDocument(t, dir, name, body)
	}
}

// WriteDocument writes body to dir/name, creating dir as needed.
func WriteDocument(t testing.TB, dir, name, body string) {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
