package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"shading-normals/internal/batch"
	"shading-normals/internal/config"
	"shading-normals/internal/diagnostics"
	"shading-normals/internal/logger"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] image1 image2 image3 ...\n       %s [flags] -batch jobs.yaml\n\n",
			filepath.Base(os.Args[0]), filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}

	// CLI flags
	configFile := flag.String("config", "", "Path to config file (.json, .yaml)")
	out := flag.String("out", "normal.png", "Normal map output path (.png or .webp)")
	albedoOut := flag.String("albedo", "", "Also write an albedo map to this path")
	lightsSVG := flag.String("lights-svg", "", "Also plot the estimated light directions to this SVG")
	rounds := flag.Int("rounds", 0, "Lighting/normal refinement rounds (default: 4)")
	flatten := flag.Int("flatten", -1, "Boundary flattening passes (default: 10)")
	strategy := flag.String("strategy", "", "Flattening strategy: corner or edge")
	policy := flag.String("policy", "", "Singular normal solve: fail or camera_axis")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	format := flag.String("format", "", "Default output format when the path has no extension: png or webp")
	albedoStrategy := flag.String("albedo-strategy", "", "Albedo flattening strategy: corner or edge")
	balance := flag.Bool("balance", false, "Equalize mean brightness across the input images")
	luminance := flag.String("luminance", "", "Luminance model: luma or lightness")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	logFile := flag.String("log-file", "", "Also log to this file (rotated)")
	manifest := flag.String("batch", "", "Run every job in this manifest instead of positional images")
	report := flag.String("report", "", "Write a JSON report of the run to this path")

	flag.Parse()

	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		Rounds:          *rounds,
		FlattenPasses:   *flatten,
		FlattenStrategy: *strategy,
		SingularPolicy:  *policy,
		Workers:         *workers,
		Luminance:       *luminance,
		Balance:         *balance,
		OutputFormat:    *format,
		AlbedoStrategy:  *albedoStrategy,
		LogLevel:        *logLevel,
		LogFile:         *logFile,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var jobs []batch.Job
	if *manifest != "" {
		var err error
		jobs, err = batch.LoadManifest(*manifest)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading manifest: %v\n", err)
			os.Exit(1)
		}
	} else {
		if flag.NArg() == 0 {
			flag.Usage()
			os.Exit(1)
		}
		jobs = []batch.Job{{
			Name:      filepath.Base(*out),
			Inputs:    flag.Args(),
			NormalOut: *out,
			AlbedoOut: *albedoOut,
			LightsSVG: *lightsSVG,
		}}
	}

	batchCfg := batch.Config{
		Options:        cfg.Options(),
		Model:          cfg.Model(),
		Balance:        cfg.Balance,
		Format:         cfg.Format(),
		AlbedoPasses:   cfg.AlbedoPasses,
		AlbedoStrategy: cfg.Albedo(),
		Workers:        cfg.Workers,
	}

	logger.Info("starting",
		zap.Int("jobs", len(jobs)),
		zap.Int("rounds", cfg.Rounds),
		zap.Int("flatten_passes", cfg.FlattenPasses),
		zap.String("strategy", cfg.FlattenStrategy),
		zap.Int("workers", cfg.Workers))

	start := time.Now()
	var results []batch.Result
	if len(jobs) == 1 {
		// A single job gets every worker for its per-pixel solves.
		results = []batch.Result{batch.Process(context.Background(), batchCfg, jobs[0])}
	} else {
		// Jobs run in parallel; each job solves single-threaded.
		batchCfg.Options.Workers = 1
		results = batch.Run(context.Background(), batchCfg, jobs)
	}

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %s\n", r.Name, r.Error)
			continue
		}
		fmt.Printf("%s -> %s\n", r.Name, r.NormalOut)
		for i, a := range diagnostics.LightAngles(r.Lights) {
			l := r.Lights[i]
			fmt.Printf("  Est light direction: [%.4f, %.4f, %.4f] (tilt %.1f°, azimuth %.1f°)\n",
				l.X, l.Y, l.Z, a.Polar, a.Azimuth)
		}
		fmt.Printf("  Deviation from camera axis: %s\n", r.Deviation)
	}
	if len(results) > 1 {
		fmt.Printf("Done: %d/%d in %.1fs\n", len(results)-failed, len(results), time.Since(start).Seconds())
	}

	if *report != "" {
		if err := batch.WriteReport(*report, results); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: report write failed: %v\n", err)
		} else {
			fmt.Printf("Report: %s\n", *report)
		}
	}

	if failed > 0 {
		logger.Sync()
		os.Exit(1)
	}
}
