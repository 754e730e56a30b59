package mapping

import (
	"math"
	"testing"
)

func TestLinearMapsEndpoints(t *testing.T) {
	if got := Linear(1, 101, 1, 800, 200); got != 200 {
		t.Fatalf("min should map to padding, got %v", got)
	}
	if got := Linear(1, 101, 101, 800, 200); got != 1000 {
		t.Fatalf("max should map to padding+span, got %v", got)
	}
	if got := Linear(1, 101, 51, 800, 200); got != 600 {
		t.Fatalf("midpoint = %v, want 600", got)
	}
}

func TestLinearDegenerateDomainIsFinite(t *testing.T) {
	tests := []struct {
		name              string
		minV, maxV, value float64
	}{
		{"equal bounds", 5, 5, 5},
		{"nan value", 0, 1, math.NaN()},
		{"infinite bound", 0, math.Inf(1), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Linear(tt.minV, tt.maxV, tt.value, 100, 32)
			if math.IsNaN(got) || got != 32 {
				t.Fatalf("Linear = %v, want 32", got)
			}
		})
	}
}

func TestNormalizeAndClamp(t *testing.T) {
	if got := Normalize(5, 0, 10); got != 0.5 {
		t.Fatalf("Normalize = %v", got)
	}
	if got := Normalize(3, 3, 3); got != 0 {
		t.Fatalf("degenerate Normalize = %v", got)
	}
	if got := Clamp(1.5, 0, 1); got != 1 {
		t.Fatalf("Clamp = %v", got)
	}
	if got := Clamp(math.NaN(), 0, 1); got != 0 {
		t.Fatalf("Clamp(NaN) = %v", got)
	}
}

func TestExtent(t *testing.T) {
	lo, hi := Extent([]float64{3, math.NaN(), -1, 7})
	if lo != -1 || hi != 7 {
		t.Fatalf("Extent = %v, %v", lo, hi)
	}
	if lo, hi := Extent(nil); lo != 0 || hi != 0 {
		t.Fatalf("empty Extent = %v, %v", lo, hi)
	}
}

func TestViewportAxes(t *testing.T) {
	vp := Viewport{Width: 1000, Height: 600, Padding: Padding{Top: 100, Right: 100, Bottom: 100, Left: 100}}
	in := vp.Inner()
	if in != (Rect{X: 100, Y: 100, W: 800, H: 400}) {
		t.Fatalf("Inner = %+v", in)
	}
	y := vp.YAxis(0, 1)
	if got := y.Map(1); got != 100 {
		t.Fatalf("inverted max should map to top, got %v", got)
	}
	if got := y.Map(0); got != 500 {
		t.Fatalf("inverted min should map to bottom, got %v", got)
	}
	x := vp.XAxis(36, 96)
	if got := x.Map(36); got != 100 {
		t.Fatalf("x min = %v", got)
	}
	if got := (Viewport{Width: 10, Height: 10, Padding: Uniform(20)}).Inner(); got.W != 0 || got.H != 0 {
		t.Fatalf("oversized padding should clamp, got %+v", got)
	}
}

func TestLatticeAndEase(t *testing.T) {
	l := Lattice{CenterX: 960, CenterY: 540, Scale: 700}
	x, y := l.ToScreen(1, 1, Camera{X: 1, Y: 1, Zoom: 2})
	if x != 960 || y != 540 {
		t.Fatalf("camera target should be centered, got %v,%v", x, y)
	}
	x, y = l.ToScreen(2, 2, Camera{X: 1, Y: 1, Zoom: 1})
	if x != 1660 || y != -160 {
		t.Fatalf("ToScreen = %v,%v", x, y)
	}

	step := 1.5
	for i := 0; i < 10; i++ {
		step += (2 - step) * 0.02
	}
	if got := Ease(1.5, 2, 0.02, 10); math.Abs(got-step) > 1e-12 {
		t.Fatalf("Ease = %v, iterative = %v", got, step)
	}
	if got := Ease(1.5, 2, 0.02, 0); got != 1.5 {
		t.Fatalf("zero steps should not move, got %v", got)
	}
}

func TestProjectFacesOrigin(t *testing.T) {
	sx, sy, scale, ok := Project(100, 0, 0, 0, 0, 600, 600)
	if !ok || math.Abs(sx-100) > 1e-9 || math.Abs(sy) > 1e-9 || math.Abs(scale-1) > 1e-9 {
		t.Fatalf("Project = %v,%v,%v,%v", sx, sy, scale, ok)
	}
	_, sy, _, _ = Project(0, 100, 0, 0, 0, 600, 600)
	if sy >= 0 {
		t.Fatalf("points above the origin should project upward, got %v", sy)
	}
	if _, _, _, ok := Project(0, 0, 700, 0, 0, 600, 600); ok {
		t.Fatal("points behind the camera should be rejected")
	}
}
