// Package lsq solves small linear least-squares systems through the normal
// equations x = (AᵗA)⁻¹Aᵗb.
package lsq

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// ErrUnderconstrained is returned when AᵗA is singular: fewer than three
// independent observation directions.
var ErrUnderconstrained = errors.New("lsq: underconstrained system")

// singularTol is the determinant of AᵗA, relative to the cube of its
// Frobenius norm, at or below which the matrix is treated as singular.
const singularTol = 1e-12

// PseudoInverse returns (AᵗA)⁻¹Aᵗ, a 3×n matrix, for an n×3 matrix A.
func PseudoInverse(a mat.Matrix) (*mat.Dense, error) {
	r, c := a.Dims()
	if c != 3 {
		return nil, fmt.Errorf("lsq: want 3 columns, got %d", c)
	}
	if r == 0 {
		return nil, fmt.Errorf("lsq: no observations: %w", ErrUnderconstrained)
	}

	var ata mat.Dense
	ata.Mul(a.T(), a)

	scale := mat.Norm(&ata, 2)
	if scale == 0 || math.Abs(mat.Det(&ata)) <= singularTol*scale*scale*scale {
		return nil, ErrUnderconstrained
	}

	var inv mat.Dense
	if err := inv.Inverse(&ata); err != nil {
		return nil, fmt.Errorf("lsq: invert AᵗA: %v: %w", err, ErrUnderconstrained)
	}

	var p mat.Dense
	p.Mul(&inv, a.T())
	return &p, nil
}

// Solve returns the x minimizing ‖Ax − b‖² for an n×3 matrix A.
func Solve(a mat.Matrix, b mat.Vector) (r3.Vector, error) {
	r, _ := a.Dims()
	if b.Len() != r {
		return r3.Vector{}, fmt.Errorf("lsq: %d rows but %d targets", r, b.Len())
	}
	p, err := PseudoInverse(a)
	if err != nil {
		return r3.Vector{}, err
	}
	return Apply(p, b), nil
}

// SolveRows is Solve with A given as one r3.Vector per observation row.
func SolveRows(rows []r3.Vector, b []float64) (r3.Vector, error) {
	if len(rows) != len(b) {
		return r3.Vector{}, fmt.Errorf("lsq: %d rows but %d targets", len(rows), len(b))
	}
	if len(rows) == 0 {
		return r3.Vector{}, fmt.Errorf("lsq: no observations: %w", ErrUnderconstrained)
	}
	return Solve(RowMatrix(rows), mat.NewVecDense(len(b), b))
}

// Apply multiplies a 3×n pseudo-inverse by an n-vector.
func Apply(p mat.Matrix, b mat.Vector) r3.Vector {
	var x mat.VecDense
	x.MulVec(p, b)
	return r3.Vector{X: x.AtVec(0), Y: x.AtVec(1), Z: x.AtVec(2)}
}

// RowMatrix packs vectors into an n×3 dense matrix, one vector per row.
func RowMatrix(rows []r3.Vector) *mat.Dense {
	data := make([]float64, 0, len(rows)*3)
	for _, v := range rows {
		data = append(data, v.X, v.Y, v.Z)
	}
	return mat.NewDense(len(rows), 3, data)
}
