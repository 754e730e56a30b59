package view

import (
	"sort"
	"strings"
	"time"

	"cherrycake/internal/config"
	"cherrycake/internal/dataset"
	"cherrycake/internal/scene"
)

// BuildFunc turns a loaded bundle into a renderer.
type BuildFunc func(b *dataset.Bundle, loopDuration time.Duration) (scene.Renderer, error)

// Definition describes one visualization: the documents it needs, how long
// its loop runs, and how its renderer is built.
type Definition struct {
	Name         string
	Title        string
	LoopDuration time.Duration
	Required     []string
	Optional     []string
	Build        BuildFunc
}

// Documents returns the required and optional references.
func (d Definition) Documents() []string {
	out := make([]string, 0, len(d.Required)+len(d.Optional))
	out = append(out, d.Required...)
	return append(out, d.Optional...)
}

// Uses reports whether the definition loads ref.
func (d Definition) Uses(ref string) bool {
	for _, doc := range d.Documents() {
		if doc == ref {
			return true
		}
	}
	return false
}

// Catalog lists every visualization with loop lengths from cfg.
func Catalog(cfg *config.Config) []Definition {
	loop := func(name string, fallback time.Duration) time.Duration {
		if cfg == nil {
			return fallback
		}
		if d := cfg.LoopDuration(name); d > 0 {
			return d
		}
		return fallback
	}
	return []Definition{
		{
			Name:         "tension",
			Title:        "Tension Curve",
			LoopDuration: loop("tension", 90*time.Second),
			Required:     []string{dataset.TensionFile},
			Optional:     []string{dataset.FormFile},
			Build: func(b *dataset.Bundle, d time.Duration) (scene.Renderer, error) {
				return scene.NewTension(b.Tension(), b.Form(), d)
			},
		},
		{
			Name:         "counterpoint",
			Title:        "Counterpoint Weave",
			LoopDuration: loop("counterpoint", 60*time.Second),
			Required:     []string{dataset.EventsFile},
			Build: func(b *dataset.Bundle, _ time.Duration) (scene.Renderer, error) {
				return scene.NewCounterpoint(b.Events())
			},
		},
		{
			Name:         "motif",
			Title:        "Motif Constellation",
			LoopDuration: loop("motif", 60*time.Second),
			Required:     []string{dataset.MotifFile},
			Optional:     []string{dataset.FormFile, dataset.NarrativesFile},
			Build: func(b *dataset.Bundle, _ time.Duration) (scene.Renderer, error) {
				return scene.NewMotif(b.Motif(), b.Form(), b.Narratives())
			},
		},
		{
			Name:         "tonnetz",
			Title:        "Tonnetz Pathway",
			LoopDuration: loop("tonnetz", 90*time.Second),
			Required:     []string{dataset.TonnetzFile},
			Optional:     []string{dataset.FormFile, dataset.EventsFile},
			Build: func(b *dataset.Bundle, d time.Duration) (scene.Renderer, error) {
				return scene.NewTonnetz(b.Tonnetz(), b.Form(), b.Events(), d)
			},
		},
		{
			Name:         "form",
			Title:        "Form Timeline",
			LoopDuration: loop("form", 60*time.Second),
			Required:     []string{dataset.FormFile},
			Build: func(b *dataset.Bundle, _ time.Duration) (scene.Renderer, error) {
				return scene.NewForm(b.Form())
			},
		},
	}
}

// Lookup finds a definition by name, ignoring case and a trailing ".svg".
func Lookup(defs []Definition, name string) (Definition, bool) {
	name = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".svg")
	for _, d := range defs {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Names returns the sorted visualization names.
func Names(defs []Definition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Name)
	}
	sort.Strings(out)
	return out
}

// Presentation returns the drawing options for the full page or the embed
// variant.
func Presentation(cfg *config.Config, embed bool) scene.Options {
	if cfg == nil {
		if embed {
			return scene.Options{Embed: true, Width: 1920, Height: 1080, FPS: 30}
		}
		return scene.Options{Width: 3840, Height: 2160, FPS: 60}
	}
	p := cfg.Presentation
	if embed {
		return scene.Options{Embed: true, Width: p.EmbedWidth, Height: p.EmbedHeight, FPS: p.EmbedFPS}
	}
	return scene.Options{Width: p.FullWidth, Height: p.FullHeight, FPS: p.FullFPS}
}

// NewLoader returns a dataset loader for the configured source.
func NewLoader(cfg *config.Config) *dataset.Loader {
	if cfg == nil {
		return dataset.NewLoader("")
	}
	return dataset.NewLoader(cfg.Datasets.Source, dataset.WithTimeout(config.Seconds(cfg.Datasets.RequestTimeout)))
}
