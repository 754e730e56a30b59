package mapping

import "math"

// Camera is a 2D view onto lattice coordinates.
type Camera struct {
	X, Y float64
	Zoom float64
}

// Lattice projects Tonnetz coordinates onto the screen around a center point.
type Lattice struct {
	CenterX, CenterY float64
	Scale            float64
}

// ToScreen converts lattice coordinates to screen coordinates through cam.
// Lattice y grows upward.
func (l Lattice) ToScreen(tx, ty float64, cam Camera) (float64, float64) {
	scale := l.Scale * cam.Zoom
	return l.CenterX + (tx-cam.X)*scale, l.CenterY - (ty-cam.Y)*scale
}

// Ease moves from toward to by factor, applied steps times. It is the closed
// form of repeating x += (to-x)*factor once per frame.
func Ease(from, to, factor float64, steps int) float64 {
	if steps <= 0 || factor <= 0 {
		return from
	}
	if factor >= 1 {
		return to
	}
	remaining := math.Pow(1-factor, float64(steps))
	return to + (from-to)*remaining
}

// EaseCamera eases every camera component toward target.
func EaseCamera(from, target Camera, factor float64, steps int) Camera {
	return Camera{
		X:    Ease(from.X, target.X, factor, steps),
		Y:    Ease(from.Y, target.Y, factor, steps),
		Zoom: Ease(from.Zoom, target.Zoom, factor, steps),
	}
}

// Orbit returns the position of a camera circling the origin at distance
// with a vertical bob, for progress in [0,1).
func Orbit(progress, distance, bob float64) (x, y, z float64) {
	angle := progress * 2 * math.Pi
	return math.Cos(angle) * distance, math.Sin(progress*4*math.Pi) * bob, math.Sin(angle) * distance
}

// Project performs a perspective projection of a point seen from a camera at
// eye looking at the origin. It returns screen offsets from the view center
// and a depth scale; points behind the camera report ok=false.
func Project(px, py, pz, ex, ey, ez, focal float64) (sx, sy, scale float64, ok bool) {
	// forward = normalize(-eye)
	fx, fy, fz := -ex, -ey, -ez
	fl := math.Sqrt(fx*fx + fy*fy + fz*fz)
	if fl == 0 {
		return 0, 0, 0, false
	}
	fx, fy, fz = fx/fl, fy/fl, fz/fl
	// right = normalize(forward x up), up = (0,1,0)
	rx, ry, rz := -fz, 0.0, fx
	rl := math.Sqrt(rx*rx + rz*rz)
	if rl == 0 {
		rx, rz, rl = 1, 0, 1
	}
	rx, rz = rx/rl, rz/rl
	// camera up = right x forward
	ux := ry*fz - rz*fy
	uy := rz*fx - rx*fz
	uz := rx*fy - ry*fx

	dx, dy, dz := px-ex, py-ey, pz-ez
	depth := dx*fx + dy*fy + dz*fz
	if depth <= 1e-6 {
		return 0, 0, 0, false
	}
	scale = focal / depth
	sx = (dx*rx + dy*ry + dz*rz) * scale
	sy = -(dx*ux + dy*uy + dz*uz) * scale
	return sx, sy, scale, true
}
