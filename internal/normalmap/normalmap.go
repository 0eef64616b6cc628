// Package normalmap converts normal fields to and from RGB rasters and
// writes them to disk.
package normalmap

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/golang/geo/r3"

	"shading-normals/internal/imageio"
	"shading-normals/internal/photometric"
)

// Format is an output raster format.
type Format string

const (
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// ParseFormat validates a format name. Empty selects PNG.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(s, "."))) {
	case "", FormatPNG:
		return FormatPNG, nil
	case FormatWebP:
		return FormatWebP, nil
	}
	return "", fmt.Errorf("normalmap: unknown format %q", s)
}

// FormatFromPath picks the format from the file extension, falling back to
// def for anything unrecognized.
func FormatFromPath(path string, def Format) Format {
	ext := filepath.Ext(path)
	if ext == "" {
		return def
	}
	if f, err := ParseFormat(ext); err == nil {
		return f
	}
	return def
}

// Encode maps each component c in [-1,1] to round(c*128+128), clamped to a
// byte, in the R, G and B channels. Alpha is opaque.
func Encode(f photometric.Field) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			n := f.At(x, y)
			off := img.PixOffset(x, y)
			img.Pix[off+0] = encodeComponent(n.X)
			img.Pix[off+1] = encodeComponent(n.Y)
			img.Pix[off+2] = encodeComponent(n.Z)
			img.Pix[off+3] = 255
		}
	}
	return img
}

func encodeComponent(c float64) uint8 {
	v := math.Round(c*128 + 128)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Decode inverts Encode. Quantization means the result is only accurate to
// about half a degree; each vector is renormalized.
func Decode(img image.Image) photometric.Field {
	b := img.Bounds()
	f := photometric.NewField(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			v := r3.Vector{
				X: (float64(r>>8) - 128) / 128,
				Y: (float64(g>>8) - 128) / 128,
				Z: (float64(bl>>8) - 128) / 128,
			}
			if v.Norm() > 0 {
				f.Normals[y*f.Width+x] = v.Normalize()
			}
		}
	}
	return f
}

// Load reads and decodes a normal-map image.
func Load(path string) (photometric.Field, error) {
	img, err := imageio.Load(path)
	if err != nil {
		return photometric.Field{}, fmt.Errorf("normalmap: %w", err)
	}
	return Decode(img), nil
}

// Save writes img to path in the given format, creating parent directories.
// WebP output is lossless.
func Save(path string, img image.Image, format Format) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("normalmap: mkdir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("normalmap: create %s: %w", path, err)
	}

	switch format {
	case FormatWebP:
		err = nativewebp.Encode(f, img, nil)
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("normalmap: encode %s: %w", path, err)
	}
	return f.Close()
}
