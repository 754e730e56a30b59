package dataset

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrUnknownDocument is returned when a bundle asks for a document with no
// registered decode target.
var ErrUnknownDocument = errors.New("unknown dataset document")

// Bundle holds the decoded documents a visualization needs.
type Bundle struct {
	docs     map[string]any
	failures map[string]error
}

// Document returns the decoded document for ref.
func (b *Bundle) Document(ref string) (any, bool) {
	if b == nil {
		return nil, false
	}
	doc, ok := b.docs[ref]
	return doc, ok
}

// Failures returns the optional documents that could not be loaded.
func (b *Bundle) Failures() map[string]error {
	if b == nil || len(b.failures) == 0 {
		return nil
	}
	out := make(map[string]error, len(b.failures))
	for k, v := range b.failures {
		out[k] = v
	}
	return out
}

// Refs lists the loaded document references in sorted order.
func (b *Bundle) Refs() []string {
	if b == nil {
		return nil
	}
	refs := make([]string, 0, len(b.docs))
	for ref := range b.docs {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Tension returns the tension series when loaded.
func (b *Bundle) Tension() *TensionSeries {
	doc, _ := b.Document(TensionFile)
	v, _ := doc.(*TensionSeries)
	return v
}

// Form returns the form timeline when loaded.
func (b *Bundle) Form() *FormTimeline {
	doc, _ := b.Document(FormFile)
	v, _ := doc.(*FormTimeline)
	return v
}

// Events returns the score events when loaded.
func (b *Bundle) Events() Events {
	doc, _ := b.Document(EventsFile)
	if v, ok := doc.(*Events); ok && v != nil {
		return *v
	}
	return nil
}

// Motif returns the motif graph when loaded.
func (b *Bundle) Motif() *MotifGraph {
	doc, _ := b.Document(MotifFile)
	v, _ := doc.(*MotifGraph)
	return v
}

// Narratives returns the narratives document when loaded.
func (b *Bundle) Narratives() *Narratives {
	doc, _ := b.Document(NarrativesFile)
	v, _ := doc.(*Narratives)
	return v
}

// Tonnetz returns the Tonnetz map when loaded.
func (b *Bundle) Tonnetz() *TonnetzMap {
	doc, _ := b.Document(TonnetzFile)
	v, _ := doc.(*TonnetzMap)
	return v
}

// NewBundle assembles a bundle from already-decoded documents.
func NewBundle(docs map[string]any) *Bundle {
	b := &Bundle{docs: make(map[string]any, len(docs))}
	for k, v := range docs {
		b.docs[k] = v
	}
	return b
}

// LoadBundle fetches every required and optional document concurrently.
// A failed required document fails the whole bundle; optional failures are
// recorded on the bundle and tolerated.
func (l *Loader) LoadBundle(ctx context.Context, required, optional []string) (*Bundle, error) {
	bundle := &Bundle{docs: make(map[string]any), failures: make(map[string]error)}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	fetch := func(ref string, mandatory bool) {
		g.Go(func() error {
			target := Target(ref)
			if target == nil {
				err := fmt.Errorf("%w: %s", ErrUnknownDocument, ref)
				if mandatory {
					return err
				}
				mu.Lock()
				bundle.failures[ref] = err
				mu.Unlock()
				return nil
			}
			if err := l.Fetch(gctx, ref, target); err != nil {
				if mandatory {
					return err
				}
				mu.Lock()
				bundle.failures[ref] = err
				mu.Unlock()
				return nil
			}
			mu.Lock()
			bundle.docs[ref] = target
			mu.Unlock()
			return nil
		})
	}
	for _, ref := range required {
		fetch(ref, true)
	}
	for _, ref := range optional {
		fetch(ref, false)
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bundle, nil
}
