package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"shading-normals/internal/albedo"
	"shading-normals/internal/normalmap"
	"shading-normals/internal/photometric"
	"shading-normals/internal/radiance"
)

// ErrInvalid marks a configuration that failed validation.
var ErrInvalid = errors.New("config: invalid")

// Config holds reconstruction and output settings.
type Config struct {
	// Reconstruction
	Rounds          int    `json:"rounds" yaml:"rounds"`
	FlattenPasses   int    `json:"flatten_passes" yaml:"flatten_passes"`
	FlattenStrategy string `json:"flatten_strategy" yaml:"flatten_strategy"`
	SingularPolicy  string `json:"singular_policy" yaml:"singular_policy"`
	Workers         int    `json:"workers" yaml:"workers"`

	// Input
	Luminance string `json:"luminance" yaml:"luminance"`
	Balance   bool   `json:"balance" yaml:"balance"`

	// Output
	OutputFormat   string `json:"output_format" yaml:"output_format"`
	AlbedoPasses   int    `json:"albedo_passes" yaml:"albedo_passes"`
	AlbedoStrategy string `json:"albedo_strategy" yaml:"albedo_strategy"`

	// Logging
	LogLevel string `json:"log_level" yaml:"log_level"`
	LogFile  string `json:"log_file" yaml:"log_file"`
}

// Default returns the reference settings.
func Default() Config {
	return Config{
		Rounds:          4,
		FlattenPasses:   10,
		FlattenStrategy: string(photometric.StrategyCorner),
		SingularPolicy:  string(photometric.PolicyFail),
		Workers:         runtime.NumCPU(),
		Luminance:       string(radiance.ModelLuma),
		OutputFormat:    string(normalmap.FormatPNG),
		AlbedoPasses:    10,
		AlbedoStrategy:  string(albedo.StrategyCorner),
		LogLevel:        "info",
	}
}

// Load reads a JSON or YAML (.yaml, .yml) config file on top of Default.
// Fields not set in the file keep their default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
// Zero values (and a negative FlattenPasses) mean "not given".
type Flags struct {
	Rounds          int
	FlattenPasses   int
	FlattenStrategy string
	SingularPolicy  string
	Workers         int
	Luminance       string
	Balance         bool
	OutputFormat    string
	AlbedoStrategy  string
	LogLevel        string
	LogFile         string
}

// Resolve applies CLI flags over the current values, then fills anything
// still empty with defaults.
func (c *Config) Resolve(flags Flags) {
	if flags.Rounds > 0 {
		c.Rounds = flags.Rounds
	}
	if flags.FlattenPasses >= 0 {
		c.FlattenPasses = flags.FlattenPasses
	}
	if flags.FlattenStrategy != "" {
		c.FlattenStrategy = flags.FlattenStrategy
	}
	if flags.SingularPolicy != "" {
		c.SingularPolicy = flags.SingularPolicy
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Luminance != "" {
		c.Luminance = flags.Luminance
	}
	if flags.Balance {
		c.Balance = true
	}
	if flags.OutputFormat != "" {
		c.OutputFormat = flags.OutputFormat
	}
	if flags.AlbedoStrategy != "" {
		c.AlbedoStrategy = flags.AlbedoStrategy
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}
	if flags.LogFile != "" {
		c.LogFile = flags.LogFile
	}

	d := Default()
	if c.FlattenStrategy == "" {
		c.FlattenStrategy = d.FlattenStrategy
	}
	if c.SingularPolicy == "" {
		c.SingularPolicy = d.SingularPolicy
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.Luminance == "" {
		c.Luminance = d.Luminance
	}
	if c.OutputFormat == "" {
		c.OutputFormat = d.OutputFormat
	}
	if c.AlbedoStrategy == "" {
		c.AlbedoStrategy = d.AlbedoStrategy
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Validate rejects unknown names and non-positive counts. FlattenPasses and
// AlbedoPasses may be zero.
func (c Config) Validate() error {
	var errs []error
	if c.Rounds <= 0 {
		errs = append(errs, fmt.Errorf("rounds must be positive, got %d", c.Rounds))
	}
	if c.FlattenPasses < 0 {
		errs = append(errs, fmt.Errorf("flatten_passes must not be negative, got %d", c.FlattenPasses))
	}
	if c.AlbedoPasses < 0 {
		errs = append(errs, fmt.Errorf("albedo_passes must not be negative, got %d", c.AlbedoPasses))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if _, err := photometric.ParseStrategy(c.FlattenStrategy); err != nil {
		errs = append(errs, err)
	}
	if _, err := photometric.ParsePolicy(c.SingularPolicy); err != nil {
		errs = append(errs, err)
	}
	if _, err := radiance.ParseModel(c.Luminance); err != nil {
		errs = append(errs, err)
	}
	if _, err := normalmap.ParseFormat(c.OutputFormat); err != nil {
		errs = append(errs, err)
	}
	if _, err := albedo.ParseStrategy(c.AlbedoStrategy); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Options converts the reconstruction settings. Call Validate first.
func (c Config) Options() photometric.Options {
	strategy, _ := photometric.ParseStrategy(c.FlattenStrategy)
	policy, _ := photometric.ParsePolicy(c.SingularPolicy)
	return photometric.Options{
		Rounds:        c.Rounds,
		FlattenPasses: c.FlattenPasses,
		Strategy:      strategy,
		Policy:        policy,
		Workers:       c.Workers,
	}
}

// Model returns the luminance model. Call Validate first.
func (c Config) Model() radiance.Model {
	m, _ := radiance.ParseModel(c.Luminance)
	return m
}

// Format returns the normal-map output format. Call Validate first.
func (c Config) Format() normalmap.Format {
	f, _ := normalmap.ParseFormat(c.OutputFormat)
	return f
}

// Albedo returns the albedo flattening strategy. Call Validate first.
func (c Config) Albedo() albedo.Strategy {
	s, _ := albedo.ParseStrategy(c.AlbedoStrategy)
	return s
}
