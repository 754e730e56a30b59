package server

import (
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"cherrycake/internal/dataset"
	"cherrycake/internal/logging"
	"cherrycake/internal/narrative"
	"cherrycake/internal/view"
)

// VizInfo describes one catalog entry in the status response.
type VizInfo struct {
	Name        string         `json:"name"`
	Title       string         `json:"title"`
	LoopSeconds float64        `json:"loop_seconds"`
	Documents   []string       `json:"documents"`
	State       dataset.Status `json:"state,omitempty"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Version        string    `json:"version"`
	StartedAt      time.Time `json:"started_at"`
	UptimeSeconds  float64   `json:"uptime_seconds"`
	DatasetSource  string    `json:"dataset_source"`
	RemoteDatasets bool      `json:"remote_datasets"`
	InboxCount     *int      `json:"inbox_count,omitempty"`
	Visualizations []VizInfo `json:"visualizations"`
}

// DatasetsResponse is the body of GET /api/datasets.
type DatasetsResponse struct {
	Source    string                `json:"source"`
	Documents []view.DocumentStatus `json:"documents"`
}

// NarrativeResult is one hit of GET /api/narratives.
type NarrativeResult struct {
	ID       int        `json:"id"`
	Measures [2]float64 `json:"measures"`
	Text     string     `json:"text"`
	Keywords []string   `json:"keywords,omitempty"`
}

// NarrativesResponse is the body of GET /api/narratives.
type NarrativesResponse struct {
	Kind    narrative.Kind    `json:"kind"`
	Lang    narrative.Lang    `json:"lang"`
	Query   string            `json:"query,omitempty"`
	Count   int               `json:"count"`
	Results []NarrativeResult `json:"results"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	lib := s.deps.Library
	states := lib.States()
	resp := StatusResponse{
		Version:        s.version,
		StartedAt:      s.startedAt.UTC(),
		UptimeSeconds:  time.Since(s.startedAt).Seconds(),
		DatasetSource:  lib.Loader().Base(),
		RemoteDatasets: lib.Loader().Remote(),
	}
	for _, def := range lib.Definitions() {
		resp.Visualizations = append(resp.Visualizations, VizInfo{
			Name:        def.Name,
			Title:       def.Title,
			LoopSeconds: def.LoopDuration.Seconds(),
			Documents:   def.Documents(),
			State:       states[def.Name],
		})
	}
	if s.deps.Inbox != nil {
		if n, err := s.deps.Inbox.Count(r.Context()); err == nil {
			resp.InboxCount = &n
		} else {
			logging.WithContext(r.Context(), s.logger).Warn("inbox count failed", logging.Error(err))
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	lib := s.deps.Library
	docs := view.Inspect(r.Context(), lib.Loader(), lib.Definitions())
	s.writeJSON(w, http.StatusOK, DatasetsResponse{Source: lib.Loader().Base(), Documents: docs})
}

func (s *Server) handleNarratives(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	kind := narrative.ParseKind(query.Get("kind"))
	lang := narrative.ParseLang(query.Get("lang"))
	term := strings.TrimSpace(query.Get("q"))

	var data dataset.Narratives
	if err := s.deps.Library.Loader().Fetch(r.Context(), dataset.NarrativesFile, &data); err != nil {
		s.writeDatasetError(w, r, dataset.NarrativesFile, err)
		return
	}
	entries := narrative.Search(&data, term, kind)
	resp := NarrativesResponse{Kind: kind, Lang: lang, Query: term, Count: len(entries), Results: make([]NarrativeResult, 0, len(entries))}
	for _, e := range entries {
		resp.Results = append(resp.Results, NarrativeResult{
			ID:       e.ID,
			Measures: e.Measures,
			Text:     e.Text(lang),
			Keywords: e.Keywords,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	if s.deps.Contact == nil {
		s.writeError(w, http.StatusServiceUnavailable, "contact endpoint disabled")
		return
	}
	s.deps.Contact.ServeHTTP(w, r)
}

func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	if path.Ext(file) != ".json" {
		s.writeError(w, http.StatusNotFound, "document not found")
		return
	}
	body, err := s.deps.Library.Loader().Raw(r.Context(), file)
	if err != nil {
		s.writeDatasetError(w, r, file, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(body)
}

// writeDatasetError maps loader failures onto HTTP statuses: a missing
// document is 404, a bad reference 400, anything else 502.
func (s *Server) writeDatasetError(w http.ResponseWriter, r *http.Request, ref string, err error) {
	var fetchErr *dataset.FetchError
	switch {
	case errors.Is(err, dataset.ErrInvalidRef):
		s.writeError(w, http.StatusBadRequest, "invalid document reference")
	case errors.As(err, &fetchErr) && fetchErr.Status == http.StatusNotFound:
		s.writeError(w, http.StatusNotFound, "document not found")
	default:
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "dataset unavailable", "dataset_unavailable",
			logging.String("document", ref),
			logging.Error(err),
			logging.String(logging.FieldImpact, "request answered with 502"),
			logging.String(logging.FieldErrorHint, "run 'cherrycake datasets' to inspect the source"),
		)
		s.writeError(w, http.StatusBadGateway, err.Error())
	}
}
