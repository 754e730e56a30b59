package scene

import (
	"errors"
	"fmt"
	"io"
	"time"

	"cherrycake/internal/loop"
	"cherrycake/internal/mapping"
)

// ErrMissingData is returned when a renderer is built without a document it
// requires.
var ErrMissingData = errors.New("scene data missing")

// Options describe the drawing surface.
type Options struct {
	Embed  bool
	Width  int
	Height int
	// FPS is the target frame rate; scenes with eased motion use it to count
	// frames.
	FPS int
}

// Frame is one repaint request.
type Frame struct {
	Tick    loop.Tick
	Options Options
}

// Status summarizes the textual overlay of a frame.
type Status struct {
	Viz      string  `json:"viz"`
	Progress float64 `json:"progress"`
	Cursor   string  `json:"cursor"`
	Value    float64 `json:"value"`
	Active   int     `json:"active"`
	Segment  string  `json:"segment,omitempty"`
}

// Renderer paints frames of one visualization.
type Renderer interface {
	Name() string
	Render(w io.Writer, f Frame) error
	Status(f Frame) Status
}

// Curve is implemented by renderers that can sample their main series as
// normalized values in [0,1].
type Curve interface {
	Curve(samples int) []float64
}

// Lane is the state of one voice at the cursor.
type Lane struct {
	Part   string
	Color  string
	Active bool
	MIDI   float64
}

// Lanes is implemented by renderers with per-part voices.
type Lanes interface {
	Lanes(f Frame) []Lane
}

// FrameAt builds a frame at progress in [0,1) for a loop of the given length.
// It is used for snapshots and offline rendering.
func FrameAt(progress float64, loopDuration time.Duration, opts Options) Frame {
	progress = mapping.Clamp(progress, 0, 1)
	if progress >= 1 {
		progress = 0
	}
	elapsed := time.Duration(progress * float64(loopDuration))
	return Frame{
		Tick:    loop.Tick{Elapsed: elapsed, Progress: loop.Progress(elapsed, loopDuration)},
		Options: opts,
	}
}

func (f Frame) size() (float64, float64) {
	w, h := f.Options.Width, f.Options.Height
	if w <= 0 || h <= 0 {
		if f.Options.Embed {
			w, h = 1920, 1080
		} else {
			w, h = 3840, 2160
		}
	}
	return float64(w), float64(h)
}

func (f Frame) elapsedMS() float64 {
	return float64(f.Tick.Elapsed) / float64(time.Millisecond)
}

func (f Frame) fps() int {
	if f.Options.FPS > 0 {
		return f.Options.FPS
	}
	if f.Options.Embed {
		return 30
	}
	return 60
}

func missing(doc string) error {
	return fmt.Errorf("%w: %s", ErrMissingData, doc)
}
