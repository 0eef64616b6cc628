package normalmap

import (
	"image"
	"math"

	"github.com/golang/geo/r3"

	"shading-normals/internal/photometric"
)

// displayGamma is the sRGB display gamma used for previews.
const displayGamma = 2.2

// Relight renders the field as a matte gray surface lit from l, with an
// ambient floor, gamma-encoded for display.
func Relight(f photometric.Field, l r3.Vector, ambient float64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	invGamma := 1 / displayGamma
	for i, v := range photometric.Shade(f, l.Normalize()) {
		lin := math.Max(0, math.Min(ambient+(1-ambient)*v, 1))
		img.Pix[i] = uint8(math.Pow(lin, invGamma)*255 + 0.5)
	}
	return img
}
