package batch

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"

	"shading-normals/internal/albedo"
	"shading-normals/internal/diagnostics"
	"shading-normals/internal/logger"
	"shading-normals/internal/normalmap"
	"shading-normals/internal/photometric"
	"shading-normals/internal/radiance"
)

// Config holds the settings shared by every job in a run.
type Config struct {
	Options        photometric.Options
	Model          radiance.Model
	Balance        bool
	Format         normalmap.Format
	AlbedoPasses   int
	AlbedoStrategy albedo.Strategy
	Workers        int // jobs in flight
}

// Result holds the outcome of processing one job.
type Result struct {
	Name      string
	NormalOut string
	Success   bool
	Error     string
	Lights    []r3.Vector
	Deviation diagnostics.Summary
	Residual  float64 // RMS luminance error of the stabilized field
	Duration  time.Duration
}

// Run processes all jobs using a worker pool.
func Run(ctx context.Context, cfg Config, jobs []Job) []Result {
	total := len(jobs)
	results := make([]Result, total)
	var processed, failed atomic.Int64
	workers := max(cfg.Workers, 1)

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					logger.Sugar.Infof("[%d/%d] %.2f jobs/sec, %d failed", p, total, float64(p)/elapsed, failed.Load())
				}
			}
		}
	}()

	// Worker pool
	jobChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				results[idx] = Process(ctx, cfg, jobs[idx])
				if !results[idx].Success {
					failed.Add(1)
				}
				processed.Add(1)
			}
		}()
	}

	for i := range jobs {
		jobChan <- i
	}
	close(jobChan)

	wg.Wait()
	close(done)

	logger.Info("batch finished",
		zap.Int("jobs", total),
		zap.Int64("failed", failed.Load()),
		zap.Duration("elapsed", time.Since(start)))
	return results
}

// Process runs one job end to end. Nothing is written unless the
// reconstruction succeeds.
func Process(ctx context.Context, cfg Config, job Job) Result {
	start := time.Now()
	res := Result{Name: job.Name, NormalOut: job.NormalOut}
	fail := func(err error) Result {
		res.Error = err.Error()
		res.Duration = time.Since(start)
		logger.Error("job failed", zap.String("job", job.Name), zap.Error(err))
		return res
	}

	samples, err := radiance.LoadAll(job.Inputs, cfg.Model)
	if err != nil {
		return fail(err)
	}
	if err := radiance.CheckUniform(samples); err != nil {
		return fail(err)
	}
	if cfg.Balance {
		samples = radiance.Balance(samples)
	}
	logger.Debug("samples loaded",
		zap.String("job", job.Name),
		zap.Int("count", len(samples)),
		zap.Int("width", samples[0].Width),
		zap.Int("height", samples[0].Height))

	out, err := photometric.Reconstruct(ctx, samples, cfg.Options)
	if err != nil {
		return fail(err)
	}

	var albedoImg *image.NRGBA
	if job.AlbedoOut != "" {
		imgs, err := albedo.Load(job.Inputs)
		if err != nil {
			return fail(err)
		}
		if albedoImg, err = albedo.Generate(imgs, cfg.AlbedoPasses, cfg.AlbedoStrategy); err != nil {
			return fail(err)
		}
	}

	format := normalmap.FormatFromPath(job.NormalOut, cfg.Format)
	if err := normalmap.Save(job.NormalOut, normalmap.Encode(out.Normals), format); err != nil {
		return fail(err)
	}
	if albedoImg != nil {
		if err := normalmap.Save(job.AlbedoOut, albedoImg, normalmap.FormatFromPath(job.AlbedoOut, cfg.Format)); err != nil {
			return fail(err)
		}
	}
	if job.LightsSVG != "" {
		if err := writeLightsSVG(job.LightsSVG, out.Lights); err != nil {
			return fail(err)
		}
	}

	dev, err := diagnostics.Deviation(out.Normals)
	if err != nil {
		return fail(err)
	}

	res.Success = true
	res.Lights = out.Lights
	res.Deviation = dev
	res.Residual = photometric.Residual(out.Stabilized, out.Samples)
	res.Duration = time.Since(start)
	logger.Info("job done",
		zap.String("job", job.Name),
		zap.String("normal", job.NormalOut),
		zap.Stringer("deviation", dev),
		zap.Float64("residual", res.Residual),
		zap.Duration("elapsed", res.Duration))
	return res
}

func writeLightsSVG(path string, lights []r3.Vector) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := diagnostics.WriteLightingSVG(f, lights); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
