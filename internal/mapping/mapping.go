// Package mapping converts domain values (measures, tension, pitch, lattice
// coordinates) into screen coordinates. Every function is pure and returns a
// finite value even for degenerate domains.
package mapping

import "math"

// Linear maps value from [min,max] onto [padding, padding+span]. A degenerate
// or non-finite domain maps everything to padding.
func Linear(minV, maxV, value, span, padding float64) float64 {
	if !finite(minV, maxV, value, span, padding) || maxV == minV {
		if math.IsNaN(padding) || math.IsInf(padding, 0) {
			return 0
		}
		return padding
	}
	return padding + (value-minV)/(maxV-minV)*span
}

// Normalize maps value into [0,1] relative to [min,max]; 0 on a degenerate
// domain.
func Normalize(value, minV, maxV float64) float64 {
	if !finite(value, minV, maxV) || maxV == minV {
		return 0
	}
	return (value - minV) / (maxV - minV)
}

// Clamp limits v to [lo,hi].
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// Extent returns the observed bounds of values, ignoring non-finite entries.
// Empty input yields (0, 0).
func Extent(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if !finite(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	return lo, hi
}

// Axis maps a domain interval onto a screen interval.
type Axis struct {
	Min, Max float64
	Start    float64
	Span     float64
	Invert   bool
}

// Map converts v to a screen coordinate. Inverted axes place Max at Start,
// matching screen y growing downward.
func (a Axis) Map(v float64) float64 {
	if a.Invert {
		return a.Start + a.Span - Linear(a.Min, a.Max, v, a.Span, 0)
	}
	return Linear(a.Min, a.Max, v, a.Span, a.Start)
}

// Padding is the space between the viewport edge and the plot area.
type Padding struct {
	Top, Right, Bottom, Left float64
}

// Uniform returns equal padding on every side.
func Uniform(p float64) Padding {
	return Padding{Top: p, Right: p, Bottom: p, Left: p}
}

// Viewport is a drawing surface with padding.
type Viewport struct {
	Width, Height float64
	Padding       Padding
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, W, H float64
}

// Inner returns the plot rectangle inside the padding; negative sizes clamp to
// zero.
func (v Viewport) Inner() Rect {
	w := math.Max(0, v.Width-v.Padding.Left-v.Padding.Right)
	h := math.Max(0, v.Height-v.Padding.Top-v.Padding.Bottom)
	return Rect{X: v.Padding.Left, Y: v.Padding.Top, W: w, H: h}
}

// XAxis returns a horizontal axis over the plot rectangle.
func (v Viewport) XAxis(minV, maxV float64) Axis {
	in := v.Inner()
	return Axis{Min: minV, Max: maxV, Start: in.X, Span: in.W}
}

// YAxis returns an inverted vertical axis over the plot rectangle.
func (v Viewport) YAxis(minV, maxV float64) Axis {
	in := v.Inner()
	return Axis{Min: minV, Max: maxV, Start: in.Y, Span: in.H, Invert: true}
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
