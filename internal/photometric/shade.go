package photometric

import (
	"math"

	"github.com/golang/geo/r3"

	"shading-normals/internal/radiance"
)

// Shade returns the Lambertian luminance max(0, n·l) of every normal under
// light l, clamped to [0,1].
func Shade(f Field, l r3.Vector) []float64 {
	out := make([]float64, len(f.Normals))
	for i, n := range f.Normals {
		out[i] = math.Min(math.Max(0, n.Dot(l)), 1)
	}
	return out
}

// Residual returns the root-mean-square difference between each sample's
// luminance and the field shaded under that sample's light: how well the
// reconstruction explains its inputs.
func Residual(f Field, samples []radiance.Sample) float64 {
	sum, n := 0.0, 0
	for _, s := range samples {
		if s.Width != f.Width || s.Height != f.Height {
			continue
		}
		for i, v := range Shade(f, s.Light) {
			d := v - s.Luminance[i]
			sum += d * d
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}
