package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"cherrycake/internal/logging"
	"cherrycake/internal/loop"
	"cherrycake/internal/scene"
	"cherrycake/internal/view"
)

// Options configure Play.
type Options struct {
	// Hz is the display refresh rate offered to the loop driver.
	Hz int
	// For stops playback after this much wall time. Zero plays one loop in
	// plain mode and runs until quit on a TTY.
	For    time.Duration
	Out    io.Writer
	In     io.Reader
	Logger *slog.Logger
}

// Play runs v until ctx ends, the user quits, or opts.For elapses. It
// unmounts v before returning.
func Play(ctx context.Context, v *view.View, opts Options) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	out, ok := opts.Out.(*os.File)
	if !ok || !isTerminal(out) {
		return RunPlain(ctx, v, opts)
	}

	width := defaultWidth
	if w, _, err := term.GetSize(int(out.Fd())); err == nil && w > 0 {
		width = w
	}
	model := NewModel(ctx, v, opts.Hz, opts.For, width)
	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(opts.In),
		tea.WithOutput(opts.Out),
	)
	_, err := program.Run()
	v.Unmount()
	if err != nil && ctx.Err() == nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal player: %w", err)
	}
	return model.Err()
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// RunPlain drives v from a ticker and writes a status line whenever the
// cursor crosses a 10% bucket or enters a new segment.
func RunPlain(ctx context.Context, v *view.View, opts Options) error {
	logger := logging.NewComponentLogger(opts.Logger, "player")
	limit := opts.For
	if limit <= 0 {
		limit = v.Definition().LoopDuration
	}
	hz := opts.Hz
	if hz < 1 {
		hz = 60
	}
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()
	defer v.Unmount()

	sampler := logging.NewProgressSampler(10)
	defer func() { logger.Debug("plain playback finished", logging.Int("passes", sampler.Passes())) }()
	err := v.Run(ctx, loop.NewTickerScheduler(hz), func(r scene.Renderer, f scene.Frame) error {
		st := r.Status(f)
		if !sampler.ShouldLog(st.Progress, st.Segment) {
			return nil
		}
		_, err := fmt.Fprintf(opts.Out, "%s %5.1f%% %s\n", st.Viz, st.Progress*100, statusLine(st))
		return err
	})
	if err == nil || ctx.Err() != nil || errors.Is(err, loop.ErrCancelled) {
		return nil
	}
	logger.Debug("plain playback stopped", logging.Error(err))
	return err
}
