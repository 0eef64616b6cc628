package photometric

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shading-normals/internal/lsq"
	"shading-normals/internal/mathutil"
	"shading-normals/internal/radiance"
)

const unitTol = 1e-5

var testLights = []r3.Vector{
	r3.Vector{X: 0.5, Y: 0, Z: 1}.Normalize(),
	r3.Vector{X: -0.25, Y: 0.43, Z: 1}.Normalize(),
	r3.Vector{X: -0.25, Y: -0.43, Z: 1}.Normalize(),
}

// render simulates Lambertian luminance max(0, n·l) for each light.
func render(t *testing.T, truth Field, lights []r3.Vector) []radiance.Sample {
	t.Helper()
	samples := make([]radiance.Sample, len(lights))
	for i, l := range lights {
		s, err := radiance.New("light", truth.Width, truth.Height, Shade(truth, l))
		require.NoError(t, err)
		samples[i] = s
	}
	return samples
}

// pyramid is flat on the one-pixel border and tilted outward by t inside,
// one facet per quadrant.
func pyramid(w, h int, t float64) Field {
	f := NewField(w, h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			sx, sy := 1.0, 1.0
			if float64(x) < float64(w)/2 {
				sx = -1
			}
			if float64(y) < float64(h)/2 {
				sy = -1
			}
			f.Normals[f.Index(x, y)] = r3.Vector{X: sx * t, Y: sy * t, Z: 1}.Normalize()
		}
	}
	return f
}

func isBoundary(f Field, i int) bool {
	x, y := i%f.Width, i/f.Width
	return x == 0 || y == 0 || x == f.Width-1 || y == f.Height-1
}

func meanEdgeDeviation(f Field) float64 {
	sum, n := 0.0, 0
	for i, v := range f.Normals {
		if isBoundary(f, i) {
			sum += mathutil.AngleDeg(v, mathutil.CameraAxis)
			n++
		}
	}
	return sum / float64(n)
}

func withLights(samples []radiance.Sample, lights []r3.Vector) []radiance.Sample {
	out := make([]radiance.Sample, len(samples))
	for i, s := range samples {
		out[i] = s.WithLight(lights[i])
	}
	return out
}

func TestSeedDome(t *testing.T) {
	f := SeedDome(4, 4)
	require.NoError(t, f.Validate(unitTol))

	// Pixel (2,2) sits at the centre.
	assert.InDelta(t, 0, mathutil.AngleDeg(f.At(2, 2), mathutil.CameraAxis), 1e-9)
	// Not flat.
	assert.Greater(t, mathutil.AngleDeg(f.At(0, 0), mathutil.CameraAxis), 10.0)
	assert.Less(t, f.At(0, 0).X, 0.0)
	assert.Less(t, f.At(0, 0).Y, 0.0)
}

func TestValidate(t *testing.T) {
	f := NewField(2, 2)
	assert.NoError(t, f.Validate(unitTol))

	bad := f.Clone()
	bad.Normals[3] = r3.Vector{X: 0, Y: 0, Z: 2}
	assert.Error(t, bad.Validate(unitTol))
	assert.NoError(t, f.Validate(unitTol), "clone must not share storage")

	nan := f.Clone()
	nan.Normals[0] = r3.Vector{X: math.NaN()}
	assert.Error(t, nan.Validate(unitTol))

	short := Field{Width: 2, Height: 2, Normals: f.Normals[:3]}
	assert.Error(t, short.Validate(unitTol))
}

func TestEstimateLight_RecoversKnownLight(t *testing.T) {
	field := SeedDome(8, 8)
	for _, l := range testLights {
		s := render(t, field, []r3.Vector{l})[0]
		got, err := EstimateLight(field, s)
		require.NoError(t, err)
		assert.InDelta(t, 0, mathutil.AngleDeg(got, l), 1e-6)
		assert.InDelta(t, 1, got.Norm(), 1e-12)
	}
}

func TestEstimateLight_FlatFieldUnderconstrained(t *testing.T) {
	field := NewField(4, 4)
	s := render(t, field, testLights[:1])[0]
	_, err := EstimateLight(field, s)
	assert.ErrorIs(t, err, lsq.ErrUnderconstrained)
}

func TestEstimateLight_DarkSampleDegenerate(t *testing.T) {
	s, err := radiance.New("dark", 4, 4, make([]float64, 16))
	require.NoError(t, err)
	_, err = EstimateLight(SeedDome(4, 4), s)
	assert.ErrorIs(t, err, ErrDegenerateLight)
}

func TestEstimateLights_Snapshots(t *testing.T) {
	field := SeedDome(6, 6)
	samples := render(t, field, testLights)

	got, err := EstimateLights(context.Background(), field, samples, 2)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range got {
		assert.InDelta(t, 0, mathutil.AngleDeg(got[i].Light, testLights[i]), 1e-6)
		assert.Equal(t, mathutil.CameraAxis, samples[i].Light, "input sample %d mutated", i)
	}
}

func TestEstimateLights_ReportsSample(t *testing.T) {
	field := SeedDome(4, 4)
	samples := render(t, field, testLights)
	dark, err := radiance.New("dark.png", 4, 4, make([]float64, 16))
	require.NoError(t, err)
	samples[1] = dark

	_, err = EstimateLights(context.Background(), field, samples, 0)
	var se *SampleError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 1, se.Index)
	assert.Equal(t, "dark.png", se.Name)
	assert.ErrorIs(t, err, ErrDegenerateLight)
}

func TestEstimateNormals_FlatGroundTruth(t *testing.T) {
	truth := NewField(5, 4)
	samples := withLights(render(t, truth, testLights), testLights)

	got, err := EstimateNormals(context.Background(), samples, PolicyFail, 3)
	require.NoError(t, err)
	require.NoError(t, got.Validate(unitTol))
	for i, n := range got.Normals {
		assert.Less(t, mathutil.AngleDeg(n, truth.Normals[i]), 1.0, "pixel %d", i)
	}
}

func TestEstimateNormals_TiltedGroundTruth(t *testing.T) {
	truth := SeedDome(7, 5)
	samples := withLights(render(t, truth, testLights), testLights)

	got, err := EstimateNormals(context.Background(), samples, PolicyFail, 0)
	require.NoError(t, err)
	for i, n := range got.Normals {
		assert.InDelta(t, 0, mathutil.AngleDeg(n, truth.Normals[i]), 1e-6, "pixel %d", i)
	}
}

func TestEstimateNormals_DarkPixelTakesCameraAxis(t *testing.T) {
	truth := NewField(3, 3)
	samples := withLights(render(t, truth, testLights), testLights)
	for i := range samples {
		lum := append([]float64(nil), samples[i].Luminance...)
		lum[4] = 0
		samples[i].Luminance = lum
	}

	got, err := EstimateNormals(context.Background(), samples, PolicyFail, 1)
	require.NoError(t, err)
	assert.Equal(t, mathutil.CameraAxis, got.Normals[4])
}

func TestEstimateNormals_SingularPolicy(t *testing.T) {
	collinear := []r3.Vector{mathutil.CameraAxis, mathutil.CameraAxis, mathutil.CameraAxis}
	samples := withLights(render(t, SeedDome(4, 4), collinear), collinear)

	_, err := EstimateNormals(context.Background(), samples, PolicyFail, 0)
	assert.ErrorIs(t, err, lsq.ErrUnderconstrained)

	got, err := EstimateNormals(context.Background(), samples, PolicyCameraAxis, 0)
	require.NoError(t, err)
	for _, n := range got.Normals {
		assert.Equal(t, mathutil.CameraAxis, n)
	}
}

// tiltTo returns the rotation carrying the camera axis onto dir.
func tiltTo(dir r3.Vector) mathutil.Mat3 {
	m, _ := mathutil.RotationBetween(mathutil.CameraAxis, dir)
	return m
}

func TestReorient(t *testing.T) {
	tilts := []struct {
		name string
		m    mathutil.Mat3
	}{
		{"tilt 30", tiltTo(r3.Vector{Y: -0.5, Z: 0.866})},
		{"tilt 50", tiltTo(r3.Vector{X: 0.766, Z: 0.643})},
		{"past horizon", tiltTo(r3.Vector{X: 0.47, Y: 0.73, Z: -0.5})},
	}
	for _, tt := range tilts {
		t.Run(tt.name, func(t *testing.T) {
			f := SeedDome(9, 7).rotate(tt.m)

			once := Reorient(f)
			require.NoError(t, once.Validate(unitTol))
			mean, ok := once.MeanNormal()
			require.True(t, ok)
			assert.InDelta(t, 0, mathutil.AngleDeg(mean, mathutil.CameraAxis), 1e-6)

			twice := Reorient(once)
			for i := range once.Normals {
				assert.InDelta(t, 0, twice.Normals[i].Sub(once.Normals[i]).Norm(), 1e-9)
			}
		})
	}
}

func TestReorient_Degenerate(t *testing.T) {
	down := r3.Vector{X: 0, Y: 0, Z: -1}
	f := Field{Width: 2, Height: 1, Normals: []r3.Vector{down, down}}
	assert.Equal(t, f.Normals, Reorient(f).Normals)

	opposed := Field{Width: 2, Height: 1, Normals: []r3.Vector{{X: 1}, {X: -1}}}
	assert.Equal(t, opposed.Normals, Reorient(opposed).Normals)
}

func TestFlatten_ReducesEdgeDeviation(t *testing.T) {
	sizes := []struct{ w, h int }{{16, 16}, {4, 4}, {7, 5}}
	for _, sz := range sizes {
		dome := SeedDome(sz.w, sz.h)
		before := meanEdgeDeviation(dome)
		for _, fn := range []struct {
			name string
			f    func(Field) Field
		}{{"corner", CornerFlatten}, {"edge", EdgeFlatten}} {
			after := fn.f(dome)
			require.NoError(t, after.Validate(unitTol))
			assert.Less(t, meanEdgeDeviation(after), before, "%s %dx%d", fn.name, sz.w, sz.h)
		}
	}
}

func TestFlatten_ConvergesOnDome(t *testing.T) {
	for _, strategy := range []Strategy{StrategyCorner, StrategyEdge} {
		t.Run(string(strategy), func(t *testing.T) {
			flat := Flatten(SeedDome(16, 16), strategy, 10)
			require.NoError(t, flat.Validate(unitTol))
			for i, n := range flat.Normals {
				assert.Less(t, mathutil.AngleDeg(n, mathutil.CameraAxis), 5.0, "pixel %d", i)
			}
		})
	}
}

func TestFlatten_ZeroPasses(t *testing.T) {
	dome := SeedDome(4, 4)
	out := Flatten(dome, StrategyCorner, 0)
	assert.Equal(t, dome.Normals, out.Normals)
	out.Normals[0] = r3.Vector{}
	assert.NotEqual(t, r3.Vector{}, dome.Normals[0])
}

func TestParse(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyCorner, s)
	s, err = ParseStrategy("EDGE")
	require.NoError(t, err)
	assert.Equal(t, StrategyEdge, s)
	_, err = ParseStrategy("diagonal")
	assert.Error(t, err)

	p, err := ParsePolicy("camera_axis")
	require.NoError(t, err)
	assert.Equal(t, PolicyCameraAxis, p)
	_, err = ParsePolicy("skip")
	assert.Error(t, err)
}

func TestReconstruct_PyramidRelief(t *testing.T) {
	truth := pyramid(4, 4, 0.8)
	samples := render(t, truth, testLights)

	for _, strategy := range []Strategy{StrategyCorner, StrategyEdge} {
		t.Run(string(strategy), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Strategy = strategy

			res, err := Reconstruct(context.Background(), samples, opts)
			require.NoError(t, err)
			require.Len(t, res.Lights, 3)
			for i, l := range res.Lights {
				assert.Less(t, mathutil.AngleDeg(l, testLights[i]), 5.0, "light %d", i)
				assert.Equal(t, l, res.Samples[i].Light)
			}

			require.NoError(t, res.Stabilized.Validate(unitTol))
			require.NoError(t, res.Normals.Validate(unitTol))
			for i, n := range res.Normals.Normals {
				if isBoundary(res.Normals, i) {
					assert.Less(t, mathutil.AngleDeg(n, mathutil.CameraAxis), 5.0, "pixel %d", i)
				}
				assert.Less(t, mathutil.AngleDeg(n, truth.Normals[i]), 5.0, "pixel %d", i)
			}
		})
	}
	for _, s := range samples {
		assert.Equal(t, mathutil.CameraAxis, s.Light)
	}
}

func TestWorkerCountDoesNotChangeResult(t *testing.T) {
	cases := []struct {
		name  string
		truth Field
	}{
		{"pyramid", pyramid(4, 4, 0.8)},
		{"dome", SeedDome(9, 7)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			samples := render(t, tc.truth, testLights)
			lit := withLights(samples, testLights)

			serialNormals, err := EstimateNormals(context.Background(), lit, PolicyFail, 1)
			require.NoError(t, err)
			opts := DefaultOptions()
			opts.Workers = 1
			serial, err := Reconstruct(context.Background(), samples, opts)
			require.NoError(t, err)

			for _, workers := range []int{2, 5, 0} {
				normals, err := EstimateNormals(context.Background(), lit, PolicyFail, workers)
				require.NoError(t, err)
				assert.Equal(t, serialNormals.Normals, normals.Normals, "workers=%d", workers)

				opts.Workers = workers
				got, err := Reconstruct(context.Background(), samples, opts)
				require.NoError(t, err)
				assert.Equal(t, serial.Lights, got.Lights, "workers=%d", workers)
				assert.Equal(t, serial.Stabilized.Normals, got.Stabilized.Normals, "workers=%d", workers)
				assert.Equal(t, serial.Normals.Normals, got.Normals.Normals, "workers=%d", workers)
			}
		})
	}
}

func TestRefine_FlatPlaneIsUnobservable(t *testing.T) {
	samples := render(t, NewField(4, 4), testLights)

	_, err := Refine(context.Background(), samples, DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, lsq.ErrUnderconstrained)

	var re *RoundError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 1, re.Round)
	assert.Equal(t, StageNormals, re.Stage)
}

func TestRefine_CameraAxisPolicy(t *testing.T) {
	samples := render(t, NewField(4, 4), testLights)
	opts := DefaultOptions()
	opts.Rounds = 1
	opts.Policy = PolicyCameraAxis

	ref, err := Refine(context.Background(), samples, opts)
	require.NoError(t, err)
	for _, n := range ref.Field.Normals {
		assert.Equal(t, mathutil.CameraAxis, n)
	}
}

func TestRefine_InputValidation(t *testing.T) {
	samples := render(t, NewField(4, 4), testLights[:2])
	_, err := Refine(context.Background(), samples, DefaultOptions())
	assert.ErrorIs(t, err, radiance.ErrTooFewSamples)

	mixed := append(render(t, NewField(4, 4), testLights[:2]), render(t, NewField(3, 4), testLights[:1])...)
	_, err = Refine(context.Background(), mixed, DefaultOptions())
	assert.ErrorIs(t, err, radiance.ErrSizeMismatch)
}

func TestRefine_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	samples := render(t, pyramid(4, 4, 0.8), testLights)
	_, err := Refine(ctx, samples, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestShade(t *testing.T) {
	f := Field{Width: 3, Height: 1, Normals: []r3.Vector{
		mathutil.CameraAxis,
		{X: 1},
		r3.Vector{X: -1, Z: 1}.Normalize(),
	}}
	got := Shade(f, r3.Vector{X: 1, Z: 1}.Normalize())
	assert.InDelta(t, math.Sqrt2/2, got[0], 1e-12)
	assert.InDelta(t, math.Sqrt2/2, got[1], 1e-12)
	assert.Equal(t, 0.0, got[2])
}

func TestResidual(t *testing.T) {
	truth := pyramid(4, 4, 0.8)
	samples := withLights(render(t, truth, testLights), testLights)
	assert.InDelta(t, 0, Residual(truth, samples), 1e-12)
	assert.Greater(t, Residual(NewField(4, 4), samples), 0.05)

	res, err := Reconstruct(context.Background(), render(t, truth, testLights), DefaultOptions())
	require.NoError(t, err)
	assert.Less(t, Residual(res.Stabilized, res.Samples), 0.05)
}
