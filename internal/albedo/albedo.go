// Package albedo builds a flat-lit color map from the same photographs used
// for normal reconstruction: the images are averaged, then uneven lighting
// is evened out by scaling brightness toward the corners.
package albedo

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"golang.org/x/image/draw"

	"shading-normals/internal/imageio"
)

var (
	ErrNoImages     = errors.New("albedo: no images")
	ErrSizeMismatch = errors.New("albedo: image dimensions differ")
)

// Load reads every path as an NRGBA image anchored at (0,0).
func Load(paths []string) ([]*image.NRGBA, error) {
	out := make([]*image.NRGBA, 0, len(paths))
	for _, p := range paths {
		img, err := imageio.Load(p)
		if err != nil {
			return nil, fmt.Errorf("albedo: %w", err)
		}
		out = append(out, ToNRGBA(img))
	}
	return out, nil
}

// ToNRGBA converts any image to NRGBA with bounds starting at (0,0).
func ToNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// Strategy selects how corner brightness is measured before tilting.
type Strategy string

const (
	// StrategyCorner weighs each image quadrant.
	StrategyCorner Strategy = "corner"
	// StrategyEdge weighs the border halves next to each corner.
	StrategyEdge Strategy = "edge"
)

// ParseStrategy validates a strategy name. Empty selects StrategyCorner.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(s)) {
	case "", StrategyCorner:
		return StrategyCorner, nil
	case StrategyEdge:
		return StrategyEdge, nil
	}
	return "", fmt.Errorf("albedo: unknown strategy %q", s)
}

// Generate averages the images and applies passes rounds of the chosen
// flattening. Each pass only moves part of the way toward even lighting.
func Generate(images []*image.NRGBA, passes int, strategy Strategy) (*image.NRGBA, error) {
	img, err := Average(images)
	if err != nil {
		return nil, err
	}
	flatten := CornerWeightFlatten
	if strategy == StrategyEdge {
		flatten = EdgeFlatten
	}
	for i := 0; i < passes; i++ {
		img = flatten(img)
	}
	return img, nil
}

// Average returns the per-channel mean of equally sized images.
func Average(images []*image.NRGBA) (*image.NRGBA, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	b := images[0].Bounds()
	w, h := b.Dx(), b.Dy()
	sum := make([]int, w*h*4)
	for i, img := range images {
		if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
			return nil, fmt.Errorf("image %d is %dx%d, want %dx%d: %w",
				i, img.Bounds().Dx(), img.Bounds().Dy(), w, h, ErrSizeMismatch)
		}
		for y := 0; y < h; y++ {
			off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
			row := img.Pix[off : off+w*4]
			for j, v := range row {
				sum[y*w*4+j] += int(v)
			}
		}
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	n := len(images)
	for y := 0; y < h; y++ {
		for j := 0; j < w*4; j++ {
			out.Pix[y*out.Stride+j] = uint8(sum[y*w*4+j] / n)
		}
	}
	return out, nil
}

// BrightnessTilt divides the RGB channels of each pixel by an intensity
// bilinearly interpolated from the four corner values, rounding and
// saturating at 255.
// Alpha is untouched. Pixels where the intensity is not positive are
// copied as-is.
func BrightnessTilt(img *image.NRGBA, ul, ur, ll, lr float64) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		fy := float64(y) / float64(h)
		for x := 0; x < w; x++ {
			fx := float64(x) / float64(w)
			rel := (ul*(1-fx)+ur*fx)*(1-fy) + (ll*(1-fx)+lr*fx)*fy

			si := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			di := out.PixOffset(x, y)
			copy(out.Pix[di:di+4], img.Pix[si:si+4])
			if rel <= 0 {
				continue
			}
			for c := 0; c < 3; c++ {
				out.Pix[di+c] = uint8(min(float64(img.Pix[si+c])/rel, 255) + 0.5)
			}
		}
	}
	return out
}

// CornerWeightFlatten weighs each quadrant's gray level by the pixel's
// distance from the image centre, then tilts brightness by each quadrant's
// weight relative to the mean.
func CornerWeightFlatten(img *image.NRGBA) *image.NRGBA {
	gray := toGray(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	hw, hh := w/2, h/2
	if hw == 0 || hh == 0 {
		return BrightnessTilt(img, 1, 1, 1, 1)
	}

	// upper left, upper right, lower left, lower right
	origins := [4]image.Point{{0, 0}, {hw, 0}, {0, hh}, {hw, hh}}
	var weights [4]float64
	total := 0.0
	for q, o := range origins {
		sum := 0.0
		for y := 0; y < hh; y++ {
			dy := y
			if q >= 2 {
				dy = hh - 1 - y
			}
			for x := 0; x < hw; x++ {
				dx := x
				if q%2 == 1 {
					dx = hw - 1 - x
				}
				sum += float64(dx+dy) * float64(gray.Pix[(o.Y+y)*gray.Stride+o.X+x])
			}
		}
		weights[q] = sum
		total += sum
	}
	avg := total / 4
	if avg == 0 {
		return BrightnessTilt(img, 1, 1, 1, 1)
	}
	return BrightnessTilt(img, weights[0]/avg, weights[1]/avg, weights[2]/avg, weights[3]/avg)
}

// EdgeFlatten estimates each corner's brightness from the nearer halves of
// its two adjacent edges and tilts by the squared ratio to their mean.
func EdgeFlatten(img *image.NRGBA) *image.NRGBA {
	gray := toGray(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	hw, hh := w/2, h/2
	at := func(x, y int) float64 { return float64(gray.Pix[y*gray.Stride+x]) / 255 }
	row := func(y, x0, x1 int) float64 {
		s := 0.0
		for x := x0; x < x1; x++ {
			s += at(x, y)
		}
		return s
	}
	col := func(x, y0, y1 int) float64 {
		s := 0.0
		for y := y0; y < y1; y++ {
			s += at(x, y)
		}
		return s
	}

	norm := 2 / float64(w+h)
	ul := (row(0, 0, hw) + col(0, 0, hh)) * norm
	ll := (row(h-1, 0, hw) + col(0, hh, h)) * norm
	ur := (row(0, hw, w) + col(w-1, 0, hh)) * norm
	lr := (row(h-1, hw, w) + col(w-1, hh, h)) * norm

	avg := (ul + ur + ll + lr) / 4
	if avg == 0 {
		return BrightnessTilt(img, 1, 1, 1, 1)
	}
	sq := func(v float64) float64 { r := v / avg; return r * r }
	return BrightnessTilt(img, sq(ul), sq(ur), sq(ll), sq(lr))
}

func toGray(src image.Image) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
