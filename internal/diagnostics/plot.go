package diagnostics

import (
	"image/color"
	"io"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/svg"
)

const (
	plotSize   = 100.0 // mm
	plotRadius = 45.0
)

// WriteLightingSVG draws the light directions projected onto the image
// plane inside the unit disk, as seen from the camera. Each light gets its
// own hue, in order.
func WriteLightingSVG(w io.Writer, lights []r3.Vector) error {
	r := svg.New(w, plotSize, plotSize, nil)

	bg := canvas.DefaultStyle
	bg.Fill = canvas.Paint{Color: canvas.White}
	r.RenderPath(canvas.Rectangle(plotSize, plotSize), bg, canvas.Identity)

	guide := canvas.DefaultStyle
	guide.Fill = canvas.Paint{Color: canvas.Transparent}
	guide.Stroke = canvas.Paint{Color: canvas.Gray}
	guide.StrokeWidth = 0.3

	c := plotSize / 2
	r.RenderPath(canvas.Circle(plotRadius).Translate(c, c), guide, canvas.Identity)
	cross := &canvas.Path{}
	cross.MoveTo(c-plotRadius, c)
	cross.LineTo(c+plotRadius, c)
	cross.MoveTo(c, c-plotRadius)
	cross.LineTo(c, c+plotRadius)
	r.RenderPath(cross, guide, canvas.Identity)

	for i, l := range lights {
		dot := canvas.DefaultStyle
		dot.Fill = canvas.Paint{Color: hue(i, len(lights))}
		dot.Stroke = canvas.Paint{Color: canvas.Black}
		dot.StrokeWidth = 0.3

		// Canvas y points up; image y points down.
		x, y := c+l.X*plotRadius, c-l.Y*plotRadius
		r.RenderPath(canvas.Circle(2.5).Translate(x, y), dot, canvas.Identity)
	}

	return r.Close()
}

func hue(i, n int) color.RGBA {
	h := 360 * float64(i) / float64(max(n, 1))
	r, g, b := colorful.Hsv(h, 0.8, 0.9).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
