package loop

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/goleak"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestProgressStaysInUnitInterval(t *testing.T) {
	d := 90 * time.Second
	for _, elapsed := range []time.Duration{0, time.Millisecond, 45 * time.Second, d - time.Nanosecond, d, 3*d + 10*time.Second} {
		p := Progress(elapsed, d)
		if p < 0 || p >= 1 {
			t.Fatalf("Progress(%v) = %v, want [0,1)", elapsed, p)
		}
	}
	if Progress(d, d) != Progress(0, d) {
		t.Fatal("progress at one full loop should equal progress at zero")
	}
	if got := Progress(45*time.Second, d); got != 0.5 {
		t.Fatalf("Progress(45s) = %v, want 0.5", got)
	}
	if got := Progress(time.Second, 0); got != 0 {
		t.Fatalf("zero duration progress = %v", got)
	}
}

func TestFirstFrameFixesStart(t *testing.T) {
	d := NewDriver(Options{LoopDuration: 10 * time.Second, TargetFPS: 60})
	if d.State() != StateUninitialized {
		t.Fatalf("state = %s", d.State())
	}
	tick, ok := d.Frame(epoch)
	if !ok || tick.Elapsed != 0 || tick.Progress != 0 || tick.Index != 0 {
		t.Fatalf("unexpected first tick %+v ok=%v", tick, ok)
	}
	if d.State() != StateRunning {
		t.Fatalf("state = %s, want running", d.State())
	}
	tick, ok = d.Frame(epoch.Add(12500 * time.Millisecond))
	if !ok || tick.Pass != 1 || math.Abs(tick.Progress-0.25) > 1e-9 {
		t.Fatalf("unexpected wrapped tick %+v", tick)
	}
}

func TestThrottleSkipsCloseFrames(t *testing.T) {
	d := NewDriver(Options{LoopDuration: time.Minute, TargetFPS: 30})
	d.Frame(epoch)
	if _, ok := d.Frame(epoch.Add(20 * time.Millisecond)); ok {
		t.Fatal("frame inside the interval should be skipped")
	}
	if _, ok := d.Frame(epoch.Add(34 * time.Millisecond)); !ok {
		t.Fatal("frame past the interval should be accepted")
	}
	stats := d.Stats()
	if stats.Accepted != 2 || stats.Skipped != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestHalvingFPSHalvesRepaints(t *testing.T) {
	frames := Series(epoch, time.Millisecond, 10000)
	count := func(fps int) int64 {
		d := NewDriver(Options{LoopDuration: 90 * time.Second, TargetFPS: fps})
		for _, f := range frames {
			d.Frame(f)
		}
		return d.Stats().Accepted
	}
	full, half := count(60), count(30)
	ratio := float64(half) / float64(full)
	if ratio < 0.45 || ratio > 0.55 {
		t.Fatalf("accepted %d at 60fps and %d at 30fps (ratio %.2f)", full, half, ratio)
	}
}

func TestCancelRejectsFrames(t *testing.T) {
	d := NewDriver(Options{LoopDuration: time.Minute, TargetFPS: 60})
	d.Frame(epoch)
	d.Cancel()
	d.Cancel()
	if _, ok := d.Frame(epoch.Add(time.Second)); ok {
		t.Fatal("cancelled driver accepted a frame")
	}
	if d.State() != StateCancelled || d.Stats().Rejected != 1 {
		t.Fatalf("state=%s stats=%+v", d.State(), d.Stats())
	}
}

func TestRunPaintsAcceptedFramesUntilDry(t *testing.T) {
	defer goleak.VerifyNone(t)

	sched := NewManualScheduler(100)
	sched.Push(Series(epoch, 10*time.Millisecond, 100)...)
	sched.Close()

	d := NewDriver(Options{LoopDuration: time.Second, TargetFPS: 30})
	var painted []Tick
	err := d.Run(context.Background(), sched, func(tick Tick) error {
		painted = append(painted, tick)
		return nil
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if int64(len(painted)) != d.Stats().Accepted {
		t.Fatalf("painted %d frames, accepted %d", len(painted), d.Stats().Accepted)
	}
	for i := 1; i < len(painted); i++ {
		if painted[i].Now.Sub(painted[i-1].Now) < time.Second/30 {
			t.Fatalf("frames %d and %d closer than the interval", i-1, i)
		}
	}
}

func TestRunStopsOnCancelAndContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := NewDriver(Options{LoopDuration: time.Second, TargetFPS: 1000})
	sched := NewManualScheduler(0)
	done := make(chan error, 1)
	go func() {
		done <- d.Run(context.Background(), sched, func(Tick) error { return nil })
	}()
	sched.Push(epoch)
	d.Cancel()
	if err := <-done; !errors.Is(err, ErrCancelled) {
		t.Fatalf("Run after Cancel = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d2 := NewDriver(Options{LoopDuration: time.Second, TargetFPS: 60})
	go func() {
		done <- d2.Run(ctx, NewManualScheduler(0), func(Tick) error { return nil })
	}()
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run after ctx cancel = %v", err)
	}
	if d2.State() != StateCancelled {
		t.Fatalf("context cancellation should cancel the driver, got %s", d2.State())
	}
}

func TestRunReturnsPaintError(t *testing.T) {
	sched := NewManualScheduler(2)
	sched.Push(epoch, epoch.Add(time.Second))
	d := NewDriver(Options{LoopDuration: time.Second, TargetFPS: 60})
	boom := errors.New("boom")
	if err := d.Run(context.Background(), sched, func(Tick) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected paint error, got %v", err)
	}
}

func TestTickerSchedulerDeliversFrames(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	d := NewDriver(Options{LoopDuration: time.Second, TargetFPS: 120})
	var frames int
	err := d.Run(ctx, NewTickerScheduler(200), func(Tick) error {
		frames++
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run = %v", err)
	}
	if frames == 0 {
		t.Fatal("expected at least one painted frame")
	}
}
