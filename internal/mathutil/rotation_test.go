package mathutil

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

func mul(a, b Mat3) Mat3 {
	var m Mat3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m[r*3+c] = a[r*3]*b[c] + a[r*3+1]*b[3+c] + a[r*3+2]*b[6+c]
		}
	}
	return m
}

func transpose(m Mat3) Mat3 {
	return Mat3{m[0], m[3], m[6], m[1], m[4], m[7], m[2], m[5], m[8]}
}

func det(m Mat3) float64 {
	return m[0]*(m[4]*m[8]-m[5]*m[7]) -
		m[1]*(m[3]*m[8]-m[5]*m[6]) +
		m[2]*(m[3]*m[7]-m[4]*m[6])
}

func vecNear(t *testing.T, want, got r3.Vector) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, "x")
	assert.InDelta(t, want.Y, got.Y, tol, "y")
	assert.InDelta(t, want.Z, got.Z, tol, "z")
}

func TestRotationBetween(t *testing.T) {
	tests := []struct {
		name string
		from r3.Vector
		to   r3.Vector
	}{
		{"x to z", r3.Vector{X: 1}, CameraAxis},
		{"tilted to z", r3.Vector{X: 0.3, Y: -0.2, Z: 0.9}, CameraAxis},
		{"z to tilted", CameraAxis, r3.Vector{X: -0.5, Y: 0.5, Z: 0.7}},
		{"unnormalized inputs", r3.Vector{X: 4, Y: 4}, r3.Vector{Y: -2, Z: 2}},
		{"already aligned", CameraAxis, CameraAxis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := RotationBetween(tt.from, tt.to)
			require.True(t, ok)

			got := m.MulVec(tt.from.Normalize())
			vecNear(t, tt.to.Normalize(), got)

			// Proper rotation: orthonormal with determinant 1.
			assert.InDelta(t, 1, det(m), tol)
			id := mul(m, transpose(m))
			for i, v := range Mat3Identity() {
				assert.InDelta(t, v, id[i], tol)
			}
		})
	}
}

func TestRotationBetween_Antiparallel(t *testing.T) {
	m, ok := RotationBetween(r3.Vector{Z: -1}, CameraAxis)
	assert.False(t, ok)
	assert.Equal(t, Mat3Identity(), m)
}

func TestRotationBetween_ZeroVector(t *testing.T) {
	_, ok := RotationBetween(r3.Vector{}, CameraAxis)
	assert.False(t, ok)
}

func TestRotationBetween_Quarter(t *testing.T) {
	m, ok := RotationBetween(r3.Vector{X: 1}, r3.Vector{Y: 1})
	require.True(t, ok)
	vecNear(t, r3.Vector{Y: 1}, m.MulVec(r3.Vector{X: 1}))
	vecNear(t, r3.Vector{X: -1}, m.MulVec(r3.Vector{Y: 1}))
	vecNear(t, CameraAxis, m.MulVec(CameraAxis))
}

func TestAngleDeg(t *testing.T) {
	assert.InDelta(t, 90, AngleDeg(r3.Vector{X: 1}, CameraAxis), 1e-9)
	assert.InDelta(t, 45, AngleDeg(r3.Vector{X: 1, Z: 1}, CameraAxis), 1e-9)
}

func TestUnit(t *testing.T) {
	u, ok := Unit(r3.Vector{X: 3, Y: 4})
	require.True(t, ok)
	vecNear(t, r3.Vector{X: 0.6, Y: 0.8}, u)

	_, ok = Unit(r3.Vector{})
	assert.False(t, ok)
}
