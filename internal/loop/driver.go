package loop

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the lifecycle state of a Driver.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateRunning       State = "running"
	StateCancelled     State = "cancelled"
)

// ErrCancelled is returned by Run when the driver was cancelled.
var ErrCancelled = errors.New("loop cancelled")

// Options parametrize a Driver.
type Options struct {
	LoopDuration time.Duration
	TargetFPS    int
}

// FrameInterval returns the minimum spacing between accepted frames. A
// non-positive TargetFPS disables throttling.
func (o Options) FrameInterval() time.Duration {
	if o.TargetFPS <= 0 {
		return 0
	}
	return time.Second / time.Duration(o.TargetFPS)
}

// Tick describes one accepted frame.
type Tick struct {
	Index    int64
	Now      time.Time
	Elapsed  time.Duration
	Progress float64
	Pass     int64
}

// Stats counts frames offered to a Driver.
type Stats struct {
	Accepted int64
	Skipped  int64
	Rejected int64
}

// Progress returns the position within the loop for elapsed, in [0,1).
func Progress(elapsed, loopDuration time.Duration) float64 {
	if loopDuration <= 0 {
		return 0
	}
	rem := elapsed % loopDuration
	if rem < 0 {
		rem += loopDuration
	}
	return float64(rem) / float64(loopDuration)
}

// Driver turns a stream of candidate frame timestamps into throttled ticks
// carrying loop progress.
type Driver struct {
	mu        sync.Mutex
	opts      Options
	state     State
	start     time.Time
	last      time.Time
	index     int64
	stats     Stats
	cancelled chan struct{}
	once      sync.Once
}

// NewDriver returns a driver in StateUninitialized.
func NewDriver(opts Options) *Driver {
	return &Driver{opts: opts, state: StateUninitialized, cancelled: make(chan struct{})}
}

// Options returns the driver parameters.
func (d *Driver) Options() Options {
	return d.opts
}

// State reports the lifecycle state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Stats returns a snapshot of frame counters.
func (d *Driver) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Frame offers a candidate frame at now. The first frame fixes the loop start.
// Frames closer than FrameInterval to the last accepted frame are skipped;
// every frame after Cancel is rejected.
func (d *Driver) Frame(now time.Time) (Tick, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case StateCancelled:
		d.stats.Rejected++
		return Tick{}, false
	case StateUninitialized:
		d.state = StateRunning
		d.start = now
	default:
		if now.Sub(d.last) < d.opts.FrameInterval() {
			d.stats.Skipped++
			return Tick{}, false
		}
	}
	d.last = now
	elapsed := now.Sub(d.start)
	if elapsed < 0 {
		elapsed = 0
	}
	tick := Tick{
		Index:    d.index,
		Now:      now,
		Elapsed:  elapsed,
		Progress: Progress(elapsed, d.opts.LoopDuration),
	}
	if d.opts.LoopDuration > 0 {
		tick.Pass = int64(elapsed / d.opts.LoopDuration)
	}
	d.index++
	d.stats.Accepted++
	return tick, true
}

// Cancel stops the driver permanently. It is safe to call more than once.
func (d *Driver) Cancel() {
	d.mu.Lock()
	d.state = StateCancelled
	d.mu.Unlock()
	d.once.Do(func() { close(d.cancelled) })
}

// Cancelled is closed once Cancel has been called.
func (d *Driver) Cancelled() <-chan struct{} {
	return d.cancelled
}

// Run feeds frames from sched into the driver on the calling goroutine and
// paints every accepted tick. It returns ctx.Err() when ctx ends, ErrCancelled
// after Cancel, nil when the scheduler runs dry, or the first paint error.
// paint is never called after cancellation.
func (d *Driver) Run(ctx context.Context, sched Scheduler, paint func(Tick) error) error {
	frames := sched.Frames()
	defer sched.Stop()
	for {
		select {
		case <-ctx.Done():
			d.Cancel()
			return ctx.Err()
		case <-d.cancelled:
			return ErrCancelled
		case now, ok := <-frames:
			if !ok {
				return nil
			}
			tick, accepted := d.Frame(now)
			if !accepted {
				continue
			}
			select {
			case <-d.cancelled:
				return ErrCancelled
			default:
			}
			if err := paint(tick); err != nil {
				return err
			}
		}
	}
}
