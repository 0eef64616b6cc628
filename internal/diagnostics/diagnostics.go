// Package diagnostics summarizes reconstructed normal fields and light
// directions for reports and debugging.
package diagnostics

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"

	"shading-normals/internal/mathutil"
	"shading-normals/internal/photometric"
)

// Summary describes a distribution of angles in degrees.
type Summary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
}

func (s Summary) String() string {
	return fmt.Sprintf("mean %.2f° median %.2f° p95 %.2f° max %.2f°", s.Mean, s.Median, s.P95, s.Max)
}

// Summarize computes a Summary of angles. An empty input gives the zero
// Summary.
func Summarize(angles []float64) (Summary, error) {
	if len(angles) == 0 {
		return Summary{}, nil
	}
	data := stats.Float64Data(angles)
	var s Summary
	var err error
	if s.Mean, err = data.Mean(); err != nil {
		return Summary{}, err
	}
	if s.Median, err = data.Median(); err != nil {
		return Summary{}, err
	}
	if s.P95, err = data.PercentileNearestRank(95); err != nil {
		return Summary{}, err
	}
	if s.Max, err = data.Max(); err != nil {
		return Summary{}, err
	}
	return s, nil
}

// Deviation summarizes the angle between each normal and the camera axis.
func Deviation(f photometric.Field) (Summary, error) {
	angles := make([]float64, len(f.Normals))
	for i, n := range f.Normals {
		angles[i] = mathutil.AngleDeg(n, mathutil.CameraAxis)
	}
	return Summarize(angles)
}

// EdgeDeviation is Deviation restricted to the outermost ring of pixels.
func EdgeDeviation(f photometric.Field) (Summary, error) {
	var angles []float64
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			if x != 0 && y != 0 && x != f.Width-1 && y != f.Height-1 {
				continue
			}
			angles = append(angles, mathutil.AngleDeg(f.At(x, y), mathutil.CameraAxis))
		}
	}
	return Summarize(angles)
}

// Angles locates a direction on the hemisphere: Polar is the tilt from the
// camera axis, Azimuth the heading in the image plane measured from +x
// toward +y (image down), both in degrees.
type Angles struct {
	Polar   float64 `json:"polar"`
	Azimuth float64 `json:"azimuth"`
}

// LightAngles converts light directions to Angles.
func LightAngles(lights []r3.Vector) []Angles {
	out := make([]Angles, len(lights))
	for i, l := range lights {
		out[i] = Angles{
			Polar:   mathutil.AngleDeg(l, mathutil.CameraAxis),
			Azimuth: math.Atan2(l.Y, l.X) * 180 / math.Pi,
		}
	}
	return out
}
