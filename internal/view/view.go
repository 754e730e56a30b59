package view

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"cherrycake/internal/dataset"
	"cherrycake/internal/logging"
	"cherrycake/internal/loop"
	"cherrycake/internal/scene"
)

// Sink receives every painted frame.
type Sink func(r scene.Renderer, f scene.Frame) error

// View is one mounted visualization. Its datasets load once on Mount; the
// loop clock starts at the first accepted frame of Run.
type View struct {
	def    Definition
	opts   scene.Options
	handle *dataset.Handle
	driver *loop.Driver
	logger *slog.Logger

	buildOnce sync.Once
	renderer  scene.Renderer
	buildErr  error
}

// Mount starts loading the definition's datasets and returns immediately.
func Mount(ctx context.Context, loader *dataset.Loader, def Definition, opts scene.Options, logger *slog.Logger) *View {
	return mount(dataset.Load(ctx, loader, def.Required, def.Optional), def, opts, logger)
}

// MountBundle mounts a view over an already-loaded bundle.
func MountBundle(bundle *dataset.Bundle, def Definition, opts scene.Options, logger *slog.Logger) *View {
	return mount(dataset.Ready(bundle), def, opts, logger)
}

func mount(handle *dataset.Handle, def Definition, opts scene.Options, logger *slog.Logger) *View {
	return &View{
		def:    def,
		opts:   opts,
		handle: handle,
		driver: loop.NewDriver(loop.Options{LoopDuration: def.LoopDuration, TargetFPS: opts.FPS}),
		logger: logging.NewComponentLogger(logger, "view").With(logging.Viz(def.Name)),
	}
}

// Definition returns the mounted definition.
func (v *View) Definition() Definition { return v.def }

// Options returns the drawing options.
func (v *View) Options() scene.Options { return v.opts }

// Status reports the dataset load state.
func (v *View) Status() dataset.Status { return v.handle.Status() }

// Err returns the load or build error, if any.
func (v *View) Err() error {
	if err := v.handle.Err(); err != nil {
		return err
	}
	if v.handle.Status() == dataset.StatusReady {
		_, err := v.build()
		return err
	}
	return nil
}

// Stats returns the loop driver counters.
func (v *View) Stats() loop.Stats { return v.driver.Stats() }

// Renderer waits for the datasets and returns the built renderer.
func (v *View) Renderer(ctx context.Context) (scene.Renderer, error) {
	if _, err := v.handle.Wait(ctx); err != nil {
		return nil, err
	}
	return v.build()
}

func (v *View) build() (scene.Renderer, error) {
	v.buildOnce.Do(func() {
		if v.def.Build == nil {
			v.buildErr = fmt.Errorf("view %s: no renderer", v.def.Name)
			return
		}
		defer func() {
			if rec := recover(); rec != nil {
				v.renderer = nil
				v.buildErr = fmt.Errorf("build %s: panic: %v", v.def.Name, rec)
			}
		}()
		v.renderer, v.buildErr = v.def.Build(v.handle.Bundle(), v.def.LoopDuration)
		if v.buildErr != nil {
			v.buildErr = fmt.Errorf("build %s: %w", v.def.Name, v.buildErr)
		}
	})
	return v.renderer, v.buildErr
}

// Run waits for the datasets, then drives the loop from sched and hands
// every accepted frame to sink. A failed load returns its error and the loop
// never starts.
func (v *View) Run(ctx context.Context, sched loop.Scheduler, sink Sink) error {
	renderer, err := v.Renderer(ctx)
	if err != nil {
		sched.Stop()
		v.logger.Warn("visualization unavailable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "view_load_failed"),
			logging.String(logging.FieldErrorHint, "check the dataset source and its documents"),
			logging.String(logging.FieldImpact, "visualization not rendered"),
		)
		return err
	}
	v.logger.Debug("view loop started",
		logging.Duration("loop_duration", v.def.LoopDuration),
		logging.Int("target_fps", v.opts.FPS),
	)
	err = v.driver.Run(ctx, sched, func(tick loop.Tick) error {
		return sink(renderer, scene.Frame{Tick: tick, Options: v.opts})
	})
	stats := v.driver.Stats()
	v.logger.Debug("view loop stopped",
		logging.Int64("accepted", stats.Accepted),
		logging.Int64("skipped", stats.Skipped),
	)
	return err
}

// Step offers one candidate frame at now to the loop driver, for callers
// that own their own frame source. The returned frame is only meaningful
// when accepted is true.
func (v *View) Step(now time.Time) (f scene.Frame, accepted bool) {
	tick, ok := v.driver.Frame(now)
	return scene.Frame{Tick: tick, Options: v.opts}, ok
}

// Unmount cancels the loop. Frames arriving later are rejected and Run
// returns loop.ErrCancelled.
func (v *View) Unmount() {
	v.driver.Cancel()
}

// Snapshot renders a single frame at progress without touching the loop
// clock.
func (v *View) Snapshot(ctx context.Context, w io.Writer, progress float64) (scene.Status, error) {
	renderer, err := v.Renderer(ctx)
	if err != nil {
		return scene.Status{}, err
	}
	frame := scene.FrameAt(progress, v.def.LoopDuration, v.opts)
	if err := renderer.Render(w, frame); err != nil {
		return scene.Status{}, err
	}
	return renderer.Status(frame), nil
}
