package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"

	"shading-normals/internal/diagnostics"
	"shading-normals/internal/normalmap"
	"shading-normals/internal/radiance"
)

func main() {
	normal := flag.Bool("normal", false, "Treat inputs as normal maps and report their deviation from the camera axis")
	model := flag.String("luminance", "luma", "Luminance model: luma or lightness")
	relight := flag.String("relight", "", "With -normal: also write <name>_relit.png lit from direction x,y,z")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: inspect [-normal] [-luminance luma|lightness] file...")
		os.Exit(1)
	}

	m, err := radiance.ParseModel(*model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var light *r3.Vector
	if *relight != "" {
		l, err := parseDirection(*relight)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		light = &l
	}

	failed := false
	for _, path := range flag.Args() {
		var err error
		if *normal {
			err = inspectNormal(path, light)
		} else {
			err = inspectImage(path, m)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func inspectImage(path string, m radiance.Model) error {
	s, err := radiance.Load(path, m)
	if err != nil {
		return err
	}
	data := stats.Float64Data(s.Luminance)
	lo, _ := data.Min()
	hi, _ := data.Max()
	mean, _ := data.Mean()
	sd, _ := data.StandardDeviation()
	dark := 0
	for _, v := range s.Luminance {
		if v == 0 {
			dark++
		}
	}
	fmt.Printf("%s: %dx%d\n", path, s.Width, s.Height)
	fmt.Printf("  Luminance: min %.3f max %.3f mean %.3f sd %.3f\n", lo, hi, mean, sd)
	fmt.Printf("  Black pixels: %d (%.1f%%)\n", dark, 100*float64(dark)/float64(s.Pixels()))
	return nil
}

func inspectNormal(path string, light *r3.Vector) error {
	f, err := normalmap.Load(path)
	if err != nil {
		return err
	}
	all, err := diagnostics.Deviation(f)
	if err != nil {
		return err
	}
	edge, err := diagnostics.EdgeDeviation(f)
	if err != nil {
		return err
	}
	mean, _ := f.MeanNormal()
	fmt.Printf("%s: %dx%d\n", path, f.Width, f.Height)
	fmt.Printf("  Mean normal: [%.4f, %.4f, %.4f]\n", mean.X, mean.Y, mean.Z)
	fmt.Printf("  Deviation (all):  %s\n", all)
	fmt.Printf("  Deviation (edge): %s\n", edge)

	if light != nil {
		out := strings.TrimSuffix(path, filepath.Ext(path)) + "_relit.png"
		if err := normalmap.Save(out, normalmap.Relight(f, *light, 0.1), normalmap.FormatPNG); err != nil {
			return err
		}
		fmt.Printf("  Relit preview: %s\n", out)
	}
	return nil
}

func parseDirection(s string) (r3.Vector, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r3.Vector{}, fmt.Errorf("direction %q: want x,y,z", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return r3.Vector{}, fmt.Errorf("direction %q: %w", s, err)
		}
		v[i] = f
	}
	d := r3.Vector{X: v[0], Y: v[1], Z: v[2]}
	if d.Norm() == 0 {
		return r3.Vector{}, fmt.Errorf("direction %q is zero", s)
	}
	return d, nil
}
