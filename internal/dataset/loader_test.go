package dataset_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"cherrycake/internal/dataset"
)

func newDatasetServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/output/tension_per_measure.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"measures":[{"measure":2,"tension":0.5},{"measure":1,"tension":"0.25"}]}`))
	})
	mux.HandleFunc("/output/form_timeline.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"segments":[{"start_measure":1,"end_measure":10,"score":2}]}`))
	})
	mux.HandleFunc("/output/events.json", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/output/motif_graph.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchRemoteDecodesDocument(t *testing.T) {
	srv := newDatasetServer(t)
	loader := dataset.NewLoader(srv.URL + "/output/")

	var series dataset.TensionSeries
	if err := loader.Fetch(context.Background(), dataset.TensionFile, &series); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(series.Measures) != 2 || series.Measures[0].Measure != 1 || series.Measures[0].Tension != 0.25 {
		t.Fatalf("unexpected series: %+v", series.Measures)
	}
}

func TestFetchErrorStatuses(t *testing.T) {
	srv := newDatasetServer(t)
	loader := dataset.NewLoader(srv.URL + "/output")

	tests := []struct {
		name   string
		ref    string
		status int
	}{
		{"missing document", dataset.TonnetzFile, http.StatusNotFound},
		{"server error", dataset.EventsFile, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := dataset.Target(tt.ref)
			err := loader.Fetch(context.Background(), tt.ref, target)
			var fetchErr *dataset.FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("expected FetchError, got %v", err)
			}
			if fetchErr.Status != tt.status {
				t.Fatalf("status = %d, want %d", fetchErr.Status, tt.status)
			}
		})
	}
}

func TestFetchNonJSONIsParseError(t *testing.T) {
	srv := newDatasetServer(t)
	loader := dataset.NewLoader(srv.URL + "/output")

	var graph dataset.MotifGraph
	err := loader.Fetch(context.Background(), dataset.MotifFile, &graph)
	var parseErr *dataset.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestFetchLocalDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, dataset.FormFile), []byte(`{"segments":[{"label":"Overtura","start":1,"end":30,"color":"#FF0000"}]}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	loader := dataset.NewLoader(dir)
	if loader.Remote() {
		t.Fatal("expected local loader")
	}

	var form dataset.FormTimeline
	if err := loader.Fetch(context.Background(), "/output/"+dataset.FormFile, &form); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if form.Segments[0].Label != "Overtura" || form.Segments[0].End != 30 {
		t.Fatalf("unexpected segments: %+v", form.Segments)
	}

	err := loader.Fetch(context.Background(), dataset.TensionFile, &dataset.TensionSeries{})
	var fetchErr *dataset.FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Status != http.StatusNotFound {
		t.Fatalf("expected 404 FetchError for missing file, got %v", err)
	}
}

func TestFetchRejectsTraversal(t *testing.T) {
	loader := dataset.NewLoader(t.TempDir())
	err := loader.Fetch(context.Background(), "../secrets.json", &dataset.TensionSeries{})
	if !errors.Is(err, dataset.ErrInvalidRef) {
		t.Fatalf("expected ErrInvalidRef, got %v", err)
	}
}

func TestLoadBundleRequiredAndOptional(t *testing.T) {
	srv := newDatasetServer(t)
	loader := dataset.NewLoader(srv.URL + "/output")

	bundle, err := loader.LoadBundle(context.Background(),
		[]string{dataset.TensionFile, dataset.FormFile},
		[]string{dataset.EventsFile},
	)
	if err != nil {
		t.Fatalf("LoadBundle returned error: %v", err)
	}
	if bundle.Tension() == nil || bundle.Form() == nil {
		t.Fatal("expected required documents in bundle")
	}
	if bundle.Events() != nil {
		t.Fatal("expected failed optional document to be absent")
	}
	if _, ok := bundle.Failures()[dataset.EventsFile]; !ok {
		t.Fatalf("expected optional failure recorded, got %v", bundle.Failures())
	}

	if _, err := loader.LoadBundle(context.Background(), []string{dataset.TensionFile, dataset.MotifFile}, nil); err == nil {
		t.Fatal("expected required failure to fail the bundle")
	}
}

func TestHandleTransitionsToFailedWithoutRetry(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	loader := dataset.NewLoader(srv.URL, dataset.WithHTTPClient(client), dataset.WithTimeout(5*time.Second))
	h := dataset.Load(context.Background(), loader, []string{dataset.TensionFile}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := h.Wait(ctx); err == nil {
		t.Fatal("expected load error")
	}
	if h.Status() != dataset.StatusFailed {
		t.Fatalf("status = %s, want failed", h.Status())
	}
	if h.Bundle() != nil {
		t.Fatal("failed handle must not expose a bundle")
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected exactly one request, got %d", got)
	}
}

func TestHandleReady(t *testing.T) {
	h := dataset.Ready(dataset.NewBundle(map[string]any{dataset.TensionFile: &dataset.TensionSeries{}}))
	if h.Status() != dataset.StatusReady {
		t.Fatalf("status = %s", h.Status())
	}
	select {
	case <-h.Done():
	default:
		t.Fatal("ready handle should be done")
	}
}
