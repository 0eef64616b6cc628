package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"shading-normals/internal/diagnostics"
)

// Job is one reconstruction: a set of photographs of the same surface and
// where to write the results.
type Job struct {
	Name      string   `json:"name" yaml:"name"`
	Inputs    []string `json:"inputs" yaml:"inputs"`
	NormalOut string   `json:"normal_out" yaml:"normal_out"`
	AlbedoOut string   `json:"albedo_out,omitempty" yaml:"albedo_out,omitempty"`
	LightsSVG string   `json:"lights_svg,omitempty" yaml:"lights_svg,omitempty"`
}

// ErrBadManifest marks a manifest entry that cannot be run.
var ErrBadManifest = errors.New("batch: bad manifest")

// LoadManifest reads a JSON or YAML (.yaml, .yml) list of jobs. Relative
// paths are resolved against the manifest's directory; a missing name
// defaults to the normal map's base name.
func LoadManifest(path string) ([]Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("batch: read %s: %w", path, err)
	}

	var jobs []Job
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &jobs)
	default:
		err = json.Unmarshal(data, &jobs)
	}
	if err != nil {
		return nil, fmt.Errorf("batch: parse %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range jobs {
		j := &jobs[i]
		if len(j.Inputs) == 0 {
			return nil, fmt.Errorf("%w: job %d (%s) has no inputs", ErrBadManifest, i, j.Name)
		}
		if j.NormalOut == "" {
			return nil, fmt.Errorf("%w: job %d (%s) has no normal_out", ErrBadManifest, i, j.Name)
		}
		for k := range j.Inputs {
			j.Inputs[k] = resolve(base, j.Inputs[k])
		}
		j.NormalOut = resolve(base, j.NormalOut)
		j.AlbedoOut = resolve(base, j.AlbedoOut)
		j.LightsSVG = resolve(base, j.LightsSVG)
		if j.Name == "" {
			j.Name = strings.TrimSuffix(filepath.Base(j.NormalOut), filepath.Ext(j.NormalOut))
		}
	}
	return jobs, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// ReportEntry is one job's outcome in the report.
type ReportEntry struct {
	Name      string               `json:"name"`
	Success   bool                 `json:"success"`
	Error     string               `json:"error,omitempty"`
	NormalOut string               `json:"normal_out,omitempty"`
	Lights    []diagnostics.Angles `json:"lights,omitempty"`
	Deviation *diagnostics.Summary `json:"deviation,omitempty"`
	Residual  float64              `json:"residual,omitempty"`
	Seconds   float64              `json:"seconds"`
}

// WriteReport writes a JSON summary of results to path.
func WriteReport(path string, results []Result) error {
	entries := make([]ReportEntry, len(results))
	for i, r := range results {
		entries[i] = ReportEntry{
			Name:    r.Name,
			Success: r.Success,
			Error:   r.Error,
			Seconds: r.Duration.Seconds(),
		}
		if r.Success {
			dev := r.Deviation
			entries[i].NormalOut = r.NormalOut
			entries[i].Lights = diagnostics.LightAngles(r.Lights)
			entries[i].Deviation = &dev
			entries[i].Residual = r.Residual
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
