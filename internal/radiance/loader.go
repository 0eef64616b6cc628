package radiance

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"

	"shading-normals/internal/imageio"
)

// Model selects how a color pixel is reduced to one luminance value.
type Model string

const (
	// ModelLuma is Rec.601 grayscale, the usual photographic conversion.
	ModelLuma Model = "luma"
	// ModelLightness is CIE L*, scaled to [0,1].
	ModelLightness Model = "lightness"
)

// ParseModel validates a model name. Empty selects ModelLuma.
func ParseModel(s string) (Model, error) {
	switch Model(strings.ToLower(s)) {
	case "", ModelLuma:
		return ModelLuma, nil
	case ModelLightness:
		return ModelLightness, nil
	}
	return "", fmt.Errorf("radiance: unknown luminance model %q", s)
}

// Load decodes an image file (jpeg, png, tga, webp, bmp, tiff) into a
// sample named after the file.
func Load(path string, model Model) (Sample, error) {
	img, err := imageio.Load(path)
	if err != nil {
		return Sample{}, fmt.Errorf("radiance: %w", err)
	}
	return FromImage(filepath.Base(path), img, model)
}

// LoadAll loads every path in order, stopping at the first failure.
func LoadAll(paths []string, model Model) ([]Sample, error) {
	samples := make([]Sample, 0, len(paths))
	for _, p := range paths {
		s, err := Load(p, model)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// FromImage converts img to luminance in [0,1].
func FromImage(name string, img image.Image, model Model) (Sample, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return Sample{}, fmt.Errorf("radiance: %s: %w", name, ErrEmptyImage)
	}

	lum := make([]float64, w*h)
	switch model {
	case ModelLightness:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c, ok := colorful.MakeColor(img.At(b.Min.X+x, b.Min.Y+y))
				if !ok {
					// Fully transparent pixel carries no light.
					continue
				}
				l, _, _ := c.Lab()
				lum[y*w+x] = clamp01(l)
			}
		}
	default:
		gray := toGray(img)
		for y := 0; y < h; y++ {
			row := gray.Pix[y*gray.Stride : y*gray.Stride+w]
			for x, v := range row {
				lum[y*w+x] = float64(v) / 255.0
			}
		}
	}
	return New(name, w, h, lum)
}

// toGray converts any image to an 8-bit grayscale image anchored at (0,0).
func toGray(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// Export writes the luminance as a grayscale PNG.
func (s Sample) Export(path string) error {
	img := image.NewGray(image.Rect(0, 0, s.Width, s.Height))
	for i, v := range s.Luminance {
		img.Pix[i] = uint8(clamp01(v)*255 + 0.5)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("radiance: create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("radiance: encode %s: %w", path, err)
	}
	return f.Close()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
