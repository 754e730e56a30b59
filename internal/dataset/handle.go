package dataset

import (
	"context"
	"sync"
)

// Status is the load state of a Handle.
type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// Handle tracks a single bundle load. It starts in StatusLoading and moves
// exactly once to StatusReady or StatusFailed; both are terminal.
type Handle struct {
	mu     sync.RWMutex
	status Status
	bundle *Bundle
	err    error
	done   chan struct{}
}

// Load starts fetching the bundle in the background and returns immediately.
func Load(ctx context.Context, l *Loader, required, optional []string) *Handle {
	h := &Handle{status: StatusLoading, done: make(chan struct{})}
	go func() {
		bundle, err := l.LoadBundle(ctx, required, optional)
		h.finish(bundle, err)
	}()
	return h
}

// Ready returns a handle that is already loaded with bundle.
func Ready(bundle *Bundle) *Handle {
	h := &Handle{status: StatusReady, bundle: bundle, done: make(chan struct{})}
	close(h.done)
	return h
}

func (h *Handle) finish(bundle *Bundle, err error) {
	h.mu.Lock()
	if err != nil {
		h.status = StatusFailed
		h.err = err
	} else {
		h.status = StatusReady
		h.bundle = bundle
	}
	h.mu.Unlock()
	close(h.done)
}

// Status reports the current load state.
func (h *Handle) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Bundle returns the loaded bundle, or nil unless the handle is ready.
func (h *Handle) Bundle() *Bundle {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.bundle
}

// Err returns the load error once the handle has failed.
func (h *Handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Done is closed once the handle leaves StatusLoading.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the load finishes or ctx ends and returns the load error.
func (h *Handle) Wait(ctx context.Context) (*Bundle, error) {
	select {
	case <-h.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.bundle, h.err
}
