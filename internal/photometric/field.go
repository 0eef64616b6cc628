// Package photometric reconstructs a surface-normal field from photographs
// lit from unknown directions. Lighting and normals are estimated by
// alternating least squares, starting from a synthetic dome, and the result
// is regularized by reorienting toward the camera and flattening the image
// boundary.
package photometric

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"shading-normals/internal/mathutil"
)

// Field is a row-major grid of unit normals. Operations never modify a
// field in place; they return a new one.
type Field struct {
	Width   int
	Height  int
	Normals []r3.Vector
}

// NewField allocates a field of camera-facing normals.
func NewField(width, height int) Field {
	n := make([]r3.Vector, width*height)
	for i := range n {
		n[i] = mathutil.CameraAxis
	}
	return Field{Width: width, Height: height, Normals: n}
}

// SeedDome returns the initial guess: every normal points from the image
// centre, through its pixel, toward an apex max(w,h) above the image plane.
func SeedDome(width, height int) Field {
	f := Field{Width: width, Height: height, Normals: make([]r3.Vector, width*height)}
	cx, cy := float64(width)/2, float64(height)/2
	apex := float64(max(width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := r3.Vector{X: float64(x) - cx, Y: float64(y) - cy, Z: apex}
			f.Normals[y*width+x] = v.Normalize()
		}
	}
	return f
}

// Index returns the offset of (x, y) in Normals.
func (f Field) Index(x, y int) int {
	return y*f.Width + x
}

// At returns the normal at (x, y).
func (f Field) At(x, y int) r3.Vector {
	return f.Normals[y*f.Width+x]
}

// Len returns the pixel count.
func (f Field) Len() int {
	return len(f.Normals)
}

// Clone returns a deep copy.
func (f Field) Clone() Field {
	n := make([]r3.Vector, len(f.Normals))
	copy(n, f.Normals)
	return Field{Width: f.Width, Height: f.Height, Normals: n}
}

// MeanNormal returns the normalized mean of all normals and false if the
// mean is the zero vector.
func (f Field) MeanNormal() (r3.Vector, bool) {
	var sum r3.Vector
	for _, n := range f.Normals {
		sum = sum.Add(n)
	}
	return mathutil.Unit(sum)
}

// Validate reports the first normal whose length differs from 1 by more
// than tol, or that is not finite.
func (f Field) Validate(tol float64) error {
	if len(f.Normals) != f.Width*f.Height {
		return fmt.Errorf("photometric: field has %d normals for %dx%d", len(f.Normals), f.Width, f.Height)
	}
	for i, n := range f.Normals {
		l := n.Norm()
		if math.IsNaN(l) || math.IsInf(l, 0) || math.Abs(l-1) > tol {
			return fmt.Errorf("photometric: normal %d (%d,%d) has length %g",
				i, i%f.Width, i/f.Width, l)
		}
	}
	return nil
}

// rotate applies m to every normal and renormalizes.
func (f Field) rotate(m mathutil.Mat3) Field {
	out := Field{Width: f.Width, Height: f.Height, Normals: make([]r3.Vector, len(f.Normals))}
	for i, n := range f.Normals {
		out.Normals[i] = renormalize(m.MulVec(n))
	}
	return out
}

// renormalize normalizes v, falling back to the camera axis for a zero
// vector.
func renormalize(v r3.Vector) r3.Vector {
	if u, ok := mathutil.Unit(v); ok {
		return u
	}
	return mathutil.CameraAxis
}
