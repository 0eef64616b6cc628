package photometric

import (
	"context"
	"fmt"
	"runtime"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"

	"shading-normals/internal/logger"
	"shading-normals/internal/radiance"
)

// Options controls a reconstruction.
type Options struct {
	Rounds        int      // alternating lighting/normal rounds
	FlattenPasses int      // boundary flattening passes after refinement
	Strategy      Strategy // boundary flattening references
	Policy        Policy   // singular normal solve handling
	Workers       int      // parallel solves; <= 0 means unlimited
}

// DefaultOptions returns the reference settings.
func DefaultOptions() Options {
	return Options{
		Rounds:        4,
		FlattenPasses: 10,
		Strategy:      StrategyCorner,
		Policy:        PolicyFail,
		Workers:       runtime.NumCPU(),
	}
}

// Refinement is the state after the alternating loop.
type Refinement struct {
	Field   Field
	Lights  []r3.Vector
	Samples []radiance.Sample
}

// Result is a finished reconstruction.
type Result struct {
	Normals    Field // flattened output
	Stabilized Field // field before flattening
	Lights     []r3.Vector
	Samples    []radiance.Sample
}

// Refine seeds a dome and runs opts.Rounds rounds of lighting estimation,
// normal estimation and reorientation. Every light in a round is solved
// against the previous round's field, and the new field from that round's
// lights. The input samples are left untouched; the returned ones carry the
// final light estimates.
func Refine(ctx context.Context, samples []radiance.Sample, opts Options) (Refinement, error) {
	if err := radiance.CheckUniform(samples); err != nil {
		return Refinement{}, fmt.Errorf("photometric: %w", err)
	}
	w, h := samples[0].Width, samples[0].Height

	field := SeedDome(w, h)
	current := samples
	for round := 1; round <= opts.Rounds; round++ {
		lit, err := EstimateLights(ctx, field, current, opts.Workers)
		if err != nil {
			return Refinement{}, &RoundError{Round: round, Stage: StageLighting, Err: err}
		}
		next, err := EstimateNormals(ctx, lit, opts.Policy, opts.Workers)
		if err != nil {
			return Refinement{}, &RoundError{Round: round, Stage: StageNormals, Err: err}
		}
		field = Reorient(next)
		current = lit

		logger.Debug("refinement round",
			zap.Int("round", round),
			zap.Any("lights", radiance.Lights(current)))
	}

	return Refinement{Field: field, Lights: radiance.Lights(current), Samples: current}, nil
}

// Reconstruct runs Refine then Flatten.
func Reconstruct(ctx context.Context, samples []radiance.Sample, opts Options) (Result, error) {
	ref, err := Refine(ctx, samples, opts)
	if err != nil {
		return Result{}, err
	}
	flat := Flatten(ref.Field, opts.Strategy, opts.FlattenPasses)
	logger.Debug("boundary flattened",
		zap.String("strategy", string(opts.Strategy)),
		zap.Int("passes", opts.FlattenPasses))

	return Result{
		Normals:    flat,
		Stabilized: ref.Field,
		Lights:     ref.Lights,
		Samples:    ref.Samples,
	}, nil
}
