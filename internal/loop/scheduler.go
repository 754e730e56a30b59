package loop

import (
	"sync"
	"time"
)

// Scheduler delivers candidate frame timestamps, one at a time.
type Scheduler interface {
	Frames() <-chan time.Time
	Stop()
}

// TickerScheduler emits frames at a fixed display rate.
type TickerScheduler struct {
	ticker *time.Ticker
	once   sync.Once
}

// NewTickerScheduler returns a scheduler firing hz times per second. Values
// below one fall back to 60.
func NewTickerScheduler(hz int) *TickerScheduler {
	if hz < 1 {
		hz = 60
	}
	return &TickerScheduler{ticker: time.NewTicker(time.Second / time.Duration(hz))}
}

// Frames returns the ticker channel.
func (s *TickerScheduler) Frames() <-chan time.Time {
	return s.ticker.C
}

// Stop releases the ticker.
func (s *TickerScheduler) Stop() {
	s.once.Do(s.ticker.Stop)
}

// ManualScheduler delivers caller-provided timestamps. It is used by tests and
// by offline rendering.
type ManualScheduler struct {
	ch   chan time.Time
	once sync.Once
}

// NewManualScheduler returns a scheduler buffering up to capacity frames.
func NewManualScheduler(capacity int) *ManualScheduler {
	if capacity < 0 {
		capacity = 0
	}
	return &ManualScheduler{ch: make(chan time.Time, capacity)}
}

// Push queues frames; it blocks when the buffer is full.
func (s *ManualScheduler) Push(frames ...time.Time) {
	for _, f := range frames {
		s.ch <- f
	}
}

// Close marks the end of the frame stream.
func (s *ManualScheduler) Close() {
	s.once.Do(func() { close(s.ch) })
}

// Frames returns the frame channel.
func (s *ManualScheduler) Frames() <-chan time.Time {
	return s.ch
}

// Stop is a no-op; call Close to end the stream.
func (s *ManualScheduler) Stop() {}

// Series returns count timestamps starting at start spaced by step.
func Series(start time.Time, step time.Duration, count int) []time.Time {
	out := make([]time.Time, 0, max(count, 0))
	for i := 0; i < count; i++ {
		out = append(out, start.Add(time.Duration(i)*step))
	}
	return out
}
