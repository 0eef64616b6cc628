package photometric

import (
	"context"
	"fmt"

	"github.com/golang/geo/r3"
	"golang.org/x/sync/errgroup"

	"shading-normals/internal/lsq"
	"shading-normals/internal/mathutil"
	"shading-normals/internal/radiance"
)

// EstimateLight solves Normals · light = luminance over every pixel and
// returns the unit light direction.
func EstimateLight(field Field, s radiance.Sample) (r3.Vector, error) {
	if s.Width != field.Width || s.Height != field.Height {
		return r3.Vector{}, fmt.Errorf("%s is %dx%d, field is %dx%d: %w",
			s.Name, s.Width, s.Height, field.Width, field.Height, radiance.ErrSizeMismatch)
	}
	l, err := lsq.SolveRows(field.Normals, s.Luminance)
	if err != nil {
		return r3.Vector{}, err
	}
	u, ok := mathutil.Unit(l)
	if !ok {
		return r3.Vector{}, ErrDegenerateLight
	}
	return u, nil
}

// EstimateLights estimates every sample's light against the same field and
// returns updated snapshots. The input samples are not modified. At most
// workers solves run at once; workers <= 0 means no limit.
func EstimateLights(ctx context.Context, field Field, samples []radiance.Sample, workers int) ([]radiance.Sample, error) {
	out := make([]radiance.Sample, len(samples))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, s := range samples {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			l, err := EstimateLight(field, s)
			if err != nil {
				return &SampleError{Index: i, Name: s.Name, Err: err}
			}
			out[i] = s.WithLight(l)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
