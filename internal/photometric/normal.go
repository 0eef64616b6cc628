package photometric

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shading-normals/internal/logger"
	"shading-normals/internal/lsq"
	"shading-normals/internal/mathutil"
	"shading-normals/internal/radiance"
)

// Policy decides what happens when the light directions cannot constrain
// a normal.
type Policy string

const (
	// PolicyFail aborts the reconstruction.
	PolicyFail Policy = "fail"
	// PolicyCameraAxis substitutes the camera axis for every normal.
	PolicyCameraAxis Policy = "camera_axis"
)

// ParsePolicy validates a policy name. Empty selects PolicyFail.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(s)) {
	case "", PolicyFail:
		return PolicyFail, nil
	case PolicyCameraAxis:
		return PolicyCameraAxis, nil
	}
	return "", fmt.Errorf("photometric: unknown singular policy %q", s)
}

// EstimateNormals solves Lights · normal = luminances at every pixel.
//
// The light matrix is shared by all pixels, so its pseudo-inverse is
// computed once and a singular matrix affects the whole field at once;
// policy decides whether that is an error. A pixel whose solution is the
// zero vector (dark in every sample) gets the camera axis.
func EstimateNormals(ctx context.Context, samples []radiance.Sample, policy Policy, workers int) (Field, error) {
	if len(samples) == 0 {
		return Field{}, radiance.ErrTooFewSamples
	}
	w, h := samples[0].Width, samples[0].Height
	for _, s := range samples[1:] {
		if s.Width != w || s.Height != h {
			return Field{}, radiance.ErrSizeMismatch
		}
	}

	p, err := lsq.PseudoInverse(lsq.RowMatrix(radiance.Lights(samples)))
	if err != nil {
		if policy == PolicyCameraAxis && errors.Is(err, lsq.ErrUnderconstrained) {
			logger.Warn("light directions underconstrained, using camera axis",
				zap.Int("samples", len(samples)))
			return NewField(w, h), nil
		}
		return Field{}, err
	}

	k := len(samples)
	// Rows of the 3×k pseudo-inverse.
	px, py, pz := p.RawRowView(0), p.RawRowView(1), p.RawRowView(2)

	out := Field{Width: w, Height: h, Normals: make([]r3.Vector, w*h)}
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for y := 0; y < h; y++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for x := 0; x < w; x++ {
				i := y*w + x
				var n r3.Vector
				for j := 0; j < k; j++ {
					b := samples[j].Luminance[i]
					n.X += px[j] * b
					n.Y += py[j] * b
					n.Z += pz[j] * b
				}
				if u, ok := mathutil.Unit(n); ok {
					out.Normals[i] = u
				} else {
					out.Normals[i] = mathutil.CameraAxis
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Field{}, err
	}
	return out, nil
}
