package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// maxDocumentBytes caps a single document read.
const maxDocumentBytes = 64 << 20

// HTTPDoer describes the HTTP client used for remote datasets.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetchError reports a document that could not be retrieved.
type FetchError struct {
	Ref    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	switch {
	case e.Status > 0:
		return fmt.Sprintf("fetch %s: status %d", e.Ref, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.Ref, e.Err)
	default:
		return fmt.Sprintf("fetch %s failed", e.Ref)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a document whose body is not valid JSON for its type.
type ParseError struct {
	Ref string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Ref, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrInvalidRef is returned for references that escape the dataset base.
var ErrInvalidRef = errors.New("invalid dataset reference")

// Loader resolves document references against a URL prefix or a directory.
type Loader struct {
	base    string
	remote  bool
	client  HTTPDoer
	timeout time.Duration
}

// Option customizes a Loader.
type Option func(*Loader)

// WithHTTPClient overrides the client used for remote bases.
func WithHTTPClient(client HTTPDoer) Option {
	return func(l *Loader) {
		if client != nil {
			l.client = client
		}
	}
}

// WithTimeout bounds each document fetch. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(l *Loader) {
		l.timeout = timeout
	}
}

// NewLoader builds a loader for base, which is either an http(s) URL prefix
// or a local directory.
func NewLoader(base string, opts ...Option) *Loader {
	base = strings.TrimSpace(base)
	l := &Loader{base: base, client: http.DefaultClient}
	if u, err := url.Parse(base); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		l.remote = true
		l.base = strings.TrimRight(base, "/")
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Base returns the configured base.
func (l *Loader) Base() string {
	if l == nil {
		return ""
	}
	return l.base
}

// Remote reports whether documents are fetched over HTTP.
func (l *Loader) Remote() bool {
	return l != nil && l.remote
}

// Fetch retrieves ref once and decodes it into into. Non-2xx responses and
// missing files yield *FetchError; undecodable bodies yield *ParseError.
func (l *Loader) Fetch(ctx context.Context, ref string, into any) error {
	if l == nil {
		return &FetchError{Ref: ref, Err: errors.New("loader unavailable")}
	}
	body, err := l.read(ctx, ref)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, into); err != nil {
		return &ParseError{Ref: ref, Err: err}
	}
	return nil
}

// Raw returns the undecoded bytes of ref after checking that they parse as
// JSON.
func (l *Loader) Raw(ctx context.Context, ref string) ([]byte, error) {
	var check json.RawMessage
	if l == nil {
		return nil, &FetchError{Ref: ref, Err: errors.New("loader unavailable")}
	}
	body, err := l.read(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &check); err != nil {
		return nil, &ParseError{Ref: ref, Err: err}
	}
	return body, nil
}

func (l *Loader) read(ctx context.Context, ref string) ([]byte, error) {
	clean, err := cleanRef(ref)
	if err != nil {
		return nil, &FetchError{Ref: ref, Err: err}
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	if l.remote {
		return l.readRemote(ctx, clean)
	}
	return l.readLocal(ctx, clean)
}

func (l *Loader) readRemote(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.base+"/"+ref, nil)
	if err != nil {
		return nil, &FetchError{Ref: ref, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &FetchError{Ref: ref, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{Ref: ref, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, &FetchError{Ref: ref, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

func (l *Loader) readLocal(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Ref: ref, Err: err}
	}
	full := filepath.Join(l.base, filepath.FromSlash(ref))
	f, err := os.Open(full)
	if err != nil {
		status := 0
		if errors.Is(err, fs.ErrNotExist) {
			status = http.StatusNotFound
		}
		return nil, &FetchError{Ref: ref, Status: status, Err: err}
	}
	defer f.Close()
	body, err := io.ReadAll(io.LimitReader(f, maxDocumentBytes))
	if err != nil {
		return nil, &FetchError{Ref: ref, Err: err}
	}
	return body, nil
}

// cleanRef normalizes a document reference and rejects absolute paths and
// parent traversal.
func cleanRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	ref = strings.TrimPrefix(ref, "/output/")
	ref = strings.TrimPrefix(ref, "/")
	if ref == "" {
		return "", ErrInvalidRef
	}
	clean := path.Clean(ref)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(clean, "\\") {
		return "", ErrInvalidRef
	}
	return clean, nil
}

// Target returns a fresh decode target for a well-known document, or nil for
// unknown references.
func Target(ref string) any {
	switch path.Base(strings.TrimSpace(ref)) {
	case TensionFile:
		return &TensionSeries{}
	case FormFile:
		return &FormTimeline{}
	case EventsFile:
		return &Events{}
	case MotifFile:
		return &MotifGraph{}
	case NarrativesFile:
		return &Narratives{}
	case TonnetzFile:
		return &TonnetzMap{}
	default:
		return nil
	}
}

// Records reports the primary record count of a decoded document.
func Records(doc any) int {
	switch d := doc.(type) {
	case *TensionSeries:
		return len(d.Measures)
	case *FormTimeline:
		return len(d.Segments)
	case *Events:
		return len(*d)
	case *MotifGraph:
		return len(d.Nodes)
	case *Narratives:
		return len(d.Narratives) + len(d.Clusters) + len(d.Segments)
	case *TonnetzMap:
		return len(d.Nodes)
	default:
		return 0
	}
}
