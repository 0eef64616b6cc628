package mathutil

import (
	"math"

	"github.com/golang/geo/r3"
)

// Quat represents a quaternion (x, y, z, w).
type Quat [4]float64

// antiparallelEps bounds 1+cos(θ) below which two directions are treated
// as opposite and no unique rotation exists.
const antiparallelEps = 1e-9

// QuatBetween returns the shortest-arc rotation taking direction from onto
// direction to. It reports false when either vector is zero or the two are
// antiparallel.
func QuatBetween(from, to r3.Vector) (Quat, bool) {
	a, ok := Unit(from)
	if !ok {
		return Quat{}, false
	}
	b, ok := Unit(to)
	if !ok {
		return Quat{}, false
	}

	w := 1 + a.Dot(b)
	if w < antiparallelEps {
		return Quat{}, false
	}
	c := a.Cross(b)
	q := Quat{c.X, c.Y, c.Z, w}
	l := math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	return Quat{q[0] / l, q[1] / l, q[2] / l, q[3] / l}, true
}

// QuatToMat3 converts a unit quaternion to a 3×3 rotation matrix.
func QuatToMat3(q Quat) Mat3 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	return Mat3{
		1 - 2*(yy+zz), 2 * (xy - wz), 2 * (xz + wy),
		2 * (xy + wz), 1 - 2*(xx+zz), 2 * (yz - wx),
		2 * (xz - wy), 2 * (yz + wx), 1 - 2*(xx+yy),
	}
}
