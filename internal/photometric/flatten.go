package photometric

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r3"

	"shading-normals/internal/mathutil"
)

// Strategy selects the reference vectors used by boundary flattening.
type Strategy string

const (
	// StrategyCorner interpolates between the four corner means.
	StrategyCorner Strategy = "corner"
	// StrategyEdge interpolates between the four edge means.
	StrategyEdge Strategy = "edge"
)

// ParseStrategy validates a strategy name. Empty selects StrategyCorner.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(s)) {
	case "", StrategyCorner:
		return StrategyCorner, nil
	case StrategyEdge:
		return StrategyEdge, nil
	}
	return "", fmt.Errorf("photometric: unknown flatten strategy %q", s)
}

// Flatten runs passes rounds of the chosen strategy, each followed by
// Reorient. Zero passes returns a copy of f.
func Flatten(f Field, strategy Strategy, passes int) Field {
	out := f.Clone()
	for i := 0; i < passes; i++ {
		if strategy == StrategyEdge {
			out = EdgeFlatten(out)
		} else {
			out = CornerFlatten(out)
		}
		out = Reorient(out)
	}
	return out
}

// CornerFlatten rotates every normal by the rotation that would take a
// target, bilinearly interpolated from the four corner means, onto the
// camera axis. Each corner mean is built from the nearer half of its two
// adjacent edges.
func CornerFlatten(f Field) Field {
	w, h := f.Width, f.Height
	hw, hh := w/2, h/2

	ul := unitOrZero(f.rowSum(0, 0, hw).Add(f.colSum(0, 0, hh)))
	ll := unitOrZero(f.rowSum(h-1, 0, hw).Add(f.colSum(0, hh, h)))
	ur := unitOrZero(f.rowSum(0, hw, w).Add(f.colSum(w-1, 0, hh)))
	lr := unitOrZero(f.rowSum(h-1, hw, w).Add(f.colSum(w-1, hh, h)))

	return f.rotateToward(func(fx, fy float64) r3.Vector {
		top := ul.Mul(1 - fx).Add(ur.Mul(fx))
		bottom := ll.Mul(1 - fx).Add(lr.Mul(fx))
		return top.Mul(1 - fy).Add(bottom.Mul(fy))
	})
}

// EdgeFlatten is CornerFlatten with the four full-edge means as references:
// left and right weighted by the horizontal fraction, top and bottom by the
// vertical one.
func EdgeFlatten(f Field) Field {
	w, h := f.Width, f.Height

	top := unitOrZero(f.rowSum(0, 0, w))
	bottom := unitOrZero(f.rowSum(h-1, 0, w))
	left := unitOrZero(f.colSum(0, 0, h))
	right := unitOrZero(f.colSum(w-1, 0, h))

	return f.rotateToward(func(fx, fy float64) r3.Vector {
		return left.Mul(1 - fx).Add(right.Mul(fx)).
			Add(top.Mul(1 - fy)).Add(bottom.Mul(fy))
	})
}

// rotateToward applies, at each pixel, the rotation from target(fx, fy) to
// the camera axis, where fx = x/w and fy = y/h. An undefined rotation
// leaves the pixel as it is.
func (f Field) rotateToward(target func(fx, fy float64) r3.Vector) Field {
	out := Field{Width: f.Width, Height: f.Height, Normals: make([]r3.Vector, len(f.Normals))}
	for y := 0; y < f.Height; y++ {
		fy := float64(y) / float64(f.Height)
		for x := 0; x < f.Width; x++ {
			fx := float64(x) / float64(f.Width)
			i := y*f.Width + x
			m, _ := mathutil.RotationBetween(target(fx, fy), mathutil.CameraAxis)
			out.Normals[i] = renormalize(m.MulVec(f.Normals[i]))
		}
	}
	return out
}

// rowSum sums row y over columns [x0, x1).
func (f Field) rowSum(y, x0, x1 int) r3.Vector {
	var s r3.Vector
	for x := x0; x < x1; x++ {
		s = s.Add(f.Normals[y*f.Width+x])
	}
	return s
}

// colSum sums column x over rows [y0, y1).
func (f Field) colSum(x, y0, y1 int) r3.Vector {
	var s r3.Vector
	for y := y0; y < y1; y++ {
		s = s.Add(f.Normals[y*f.Width+x])
	}
	return s
}

func unitOrZero(v r3.Vector) r3.Vector {
	u, _ := mathutil.Unit(v)
	return u
}
