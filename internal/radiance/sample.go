// Package radiance holds per-photograph luminance samples and their
// current lighting-direction estimates.
package radiance

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r3"

	"shading-normals/internal/mathutil"
)

// MinSamples is the number of photographs needed for a well-posed
// per-pixel normal solve.
const MinSamples = 3

var (
	ErrTooFewSamples = errors.New("radiance: too few samples")
	ErrSizeMismatch  = errors.New("radiance: sample dimensions differ")
	ErrEmptyImage    = errors.New("radiance: empty image")
)

// Sample is one photograph's luminance in [0,1], row-major, plus its
// lighting-direction estimate. Luminance is never modified after
// construction; Light is replaced through WithLight.
type Sample struct {
	Name      string
	Width     int
	Height    int
	Luminance []float64
	Light     r3.Vector
}

// New wraps a luminance buffer. The light starts on the camera axis.
func New(name string, width, height int, luminance []float64) (Sample, error) {
	if width <= 0 || height <= 0 {
		return Sample{}, fmt.Errorf("radiance: %s: %dx%d: %w", name, width, height, ErrEmptyImage)
	}
	if len(luminance) != width*height {
		return Sample{}, fmt.Errorf("radiance: %s: %d values for %dx%d pixels", name, len(luminance), width, height)
	}
	return Sample{
		Name:      name,
		Width:     width,
		Height:    height,
		Luminance: luminance,
		Light:     mathutil.CameraAxis,
	}, nil
}

// WithLight returns a copy of s carrying light l. The luminance buffer is
// shared.
func (s Sample) WithLight(l r3.Vector) Sample {
	s.Light = l
	return s
}

// Pixels returns the pixel count.
func (s Sample) Pixels() int {
	return s.Width * s.Height
}

// Mean returns the average luminance.
func (s Sample) Mean() float64 {
	if len(s.Luminance) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range s.Luminance {
		sum += v
	}
	return sum / float64(len(s.Luminance))
}

// CheckUniform verifies that at least MinSamples samples are present and
// that all share the same dimensions.
func CheckUniform(samples []Sample) error {
	if len(samples) == 0 {
		return fmt.Errorf("no samples provided: %w", ErrTooFewSamples)
	}
	w, h := samples[0].Width, samples[0].Height
	for _, s := range samples[1:] {
		if s.Width != w || s.Height != h {
			return fmt.Errorf("%s is %dx%d, %s is %dx%d: %w",
				samples[0].Name, w, h, s.Name, s.Width, s.Height, ErrSizeMismatch)
		}
	}
	if len(samples) < MinSamples {
		return fmt.Errorf("got %d samples, need at least %d: %w", len(samples), MinSamples, ErrTooFewSamples)
	}
	return nil
}

// Lights returns the current light direction of every sample, in order.
func Lights(samples []Sample) []r3.Vector {
	out := make([]r3.Vector, len(samples))
	for i, s := range samples {
		out[i] = s.Light
	}
	return out
}

// Balance rescales each sample so its mean luminance equals the mean over
// all samples, clamping to [0,1]. Samples with zero mean are left as-is.
func Balance(samples []Sample) []Sample {
	if len(samples) == 0 {
		return nil
	}
	means := make([]float64, len(samples))
	total := 0.0
	for i, s := range samples {
		means[i] = s.Mean()
		total += means[i]
	}
	target := total / float64(len(samples))

	out := make([]Sample, len(samples))
	for i, s := range samples {
		out[i] = s
		if means[i] == 0 {
			continue
		}
		k := target / means[i]
		lum := make([]float64, len(s.Luminance))
		for j, v := range s.Luminance {
			lum[j] = min(v*k, 1)
		}
		out[i].Luminance = lum
	}
	return out
}
