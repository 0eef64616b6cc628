package mathutil

import "github.com/golang/geo/r3"

// CameraAxis is the viewing direction every field is reoriented toward.
var CameraAxis = r3.Vector{X: 0, Y: 0, Z: 1}

// Unit normalizes v. It reports false for a zero (or denormal) vector,
// which has no direction.
func Unit(v r3.Vector) (r3.Vector, bool) {
	l := v.Norm()
	if l < 1e-12 {
		return r3.Vector{}, false
	}
	return r3.Vector{X: v.X / l, Y: v.Y / l, Z: v.Z / l}, true
}
