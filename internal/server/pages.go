package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"cherrycake/internal/logging"
	"cherrycake/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

func parsePages() (*template.Template, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}
	return tmpl, nil
}

type pageLink struct {
	Name        string
	Title       string
	LoopSeconds float64
}

type pageData struct {
	Title        string
	Name         string
	Embed        bool
	Width        int
	Height       int
	LoopSeconds  float64
	StreamPath   string
	SnapshotPath string
	Definitions  []pageLink
}

func (s *Server) basePage(title string, embed bool) pageData {
	opts := view.Presentation(s.cfg, embed)
	data := pageData{Title: title, Embed: embed, Width: opts.Width, Height: opts.Height}
	for _, def := range s.deps.Library.Definitions() {
		data.Definitions = append(data.Definitions, pageLink{
			Name:        def.Name,
			Title:       def.Title,
			LoopSeconds: def.LoopDuration.Seconds(),
		})
	}
	return data
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "page render failed", "page_render_failed",
			logging.String("template", name),
			logging.Error(err),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "index.html", s.basePage("Visualizations", false))
}
