package mathutil

import "github.com/golang/geo/r3"

// RotationBetween returns the rotation matrix mapping from onto to.
// Antiparallel or zero inputs have no unique answer; ok is false and the
// identity is returned so callers can apply it unconditionally.
func RotationBetween(from, to r3.Vector) (m Mat3, ok bool) {
	q, ok := QuatBetween(from, to)
	if !ok {
		return Mat3Identity(), false
	}
	return QuatToMat3(q), true
}

// AngleDeg returns the unsigned angle between two vectors in degrees (0–180).
func AngleDeg(a, b r3.Vector) float64 {
	return a.Angle(b).Degrees()
}
