package server

import (
	"bytes"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cherrycake/internal/logging"
	"cherrycake/internal/view"
)

func (s *Server) handleViz(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if strings.HasSuffix(strings.ToLower(name), ".svg") {
		s.handleSnapshot(w, r, name)
		return
	}
	def, ok := s.deps.Library.Lookup(name)
	if !ok {
		http.NotFound(w, r)
		return
	}
	embed := queryBool(r, "embed")
	data := s.basePage(def.Title, embed)
	data.Name = def.Name
	data.LoopSeconds = def.LoopDuration.Seconds()
	data.StreamPath = "/viz/" + def.Name + "/stream" + embedQuery(embed)
	data.SnapshotPath = "/viz/" + def.Name + ".svg" + embedQuery(embed)
	s.renderPage(w, r, "viz.html", data)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request, name string) {
	def, ok := s.deps.Library.Lookup(name)
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown visualization")
		return
	}
	progress, err := snapshotProgress(r.URL.Query(), def.LoopDuration)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts := view.Presentation(s.cfg, queryBool(r, "embed"))

	var buf bytes.Buffer
	st, err := s.deps.Library.Snapshot(r.Context(), &buf, def.Name, progress, opts)
	if err != nil {
		if errors.Is(err, view.ErrUnknownView) {
			s.writeError(w, http.StatusNotFound, "unknown visualization")
			return
		}
		logging.WarnWithContext(logging.WithContext(logging.WithViz(r.Context(), def.Name), s.logger),
			"snapshot unavailable", "snapshot_failed",
			logging.Error(err),
			logging.Progress(progress),
			logging.String(logging.FieldImpact, "visualization not rendered"),
			logging.String(logging.FieldErrorHint, "run 'cherrycake datasets' to inspect the source"),
		)
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Viz-Cursor", st.Cursor)
	_, _ = buf.WriteTo(w)
}

// snapshotProgress reads ?progress=0.25 or ?at=12s. Progress wraps into
// [0,1) the same way the loop clock does.
func snapshotProgress(query url.Values, loop time.Duration) (float64, error) {
	if raw := strings.TrimSpace(query.Get("at")); raw != "" {
		at, err := time.ParseDuration(raw)
		if err != nil || at < 0 {
			return 0, errors.New("at must be a non-negative duration such as 12s")
		}
		if loop <= 0 {
			return 0, nil
		}
		return float64(at%loop) / float64(loop), nil
	}
	raw := strings.TrimSpace(query.Get("progress"))
	if raw == "" {
		return 0, nil
	}
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil || p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, errors.New("progress must be a number >= 0")
	}
	if p >= 1 {
		p -= float64(int(p))
	}
	return p, nil
}

func embedQuery(embed bool) string {
	if embed {
		return "?embed=true"
	}
	return ""
}
