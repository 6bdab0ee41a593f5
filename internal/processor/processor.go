// Package processor runs the configured conversion jobs concurrently.
package processor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/woozymasta/geoxchange/internal/config"
	"github.com/woozymasta/geoxchange/internal/convert"
	"github.com/woozymasta/geoxchange/internal/overpass"
	"github.com/woozymasta/geoxchange/internal/report"
	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Options tunes a batch run.
type Options struct {
	// OnDone is called once per finished job, from the job's goroutine.
	OnDone func(Result)

	Overpass *overpass.Client

	// Limit restricts the run to these job names or aliases.
	Limit []string

	Concurrency int

	// Force overwrites existing outputs.
	Force bool
}

// Result summarizes one job.
type Result struct {
	Err      error
	Job      string
	Outputs  []string
	Skipped  []string
	Objects  int
	Errors   int
	Warnings int
}

// Run converts every selected job, at most Concurrency at a time. Each job
// owns its own node map. A failed job does not stop the others; its error is
// kept in its Result. The returned error is only set when ctx ends the run.
func Run(ctx context.Context, cfg *config.Config, opts Options) ([]Result, error) {
	jobs := selectJobs(cfg, opts.Limit)

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = cfg.Concurrency
	}

	client := opts.Overpass
	if client == nil {
		client = overpass.New(cfg.Overpass.Endpoint, cfg.Overpass.Timeout)
	}

	log.Info().
		Int("jobs_total", len(cfg.Jobs)).
		Int("jobs_queued", len(jobs)).
		Int("concurrency", concurrency).
		Msg("Starting batch conversion")

	results := make([]Result, len(jobs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, j := range jobs {
		i, j := i, j
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := runJob(gctx, cfg, j, client, opts.Force)

			mu.Lock()
			results[i] = res
			mu.Unlock()

			if opts.OnDone != nil {
				opts.OnDone(res)
			}
			return nil
		})
	}

	_ = g.Wait()
	return results, ctx.Err()
}

func selectJobs(cfg *config.Config, limit []string) []*config.Job {
	if len(limit) == 0 {
		out := make([]*config.Job, 0, len(cfg.Jobs))
		for i := range cfg.Jobs {
			out = append(out, &cfg.Jobs[i])
		}
		return out
	}

	seen := make(map[string]bool)
	out := make([]*config.Job, 0, len(limit))
	for _, name := range limit {
		j, ok := cfg.Job(name)
		if !ok {
			log.Error().
				Str("name", name).
				Msg("Job specified in --limit not found in configuration")
			continue
		}
		if seen[j.Name] {
			continue
		}
		seen[j.Name] = true
		out = append(out, j)
	}
	return out
}

func runJob(ctx context.Context, cfg *config.Config, j *config.Job, client *overpass.Client, force bool) Result {
	start := time.Now()
	res := Result{Job: j.Name}

	formats, err := j.Formats()
	if err != nil {
		res.Err = err
		return res
	}

	// skip the whole job when every output exists already
	if !force {
		pending := false
		for _, f := range formats {
			if _, err := os.Stat(cfg.OutputPath(j, f)); err != nil {
				pending = true
				break
			}
		}
		if !pending {
			for _, f := range formats {
				res.Skipped = append(res.Skipped, cfg.OutputPath(j, f))
			}
			log.Debug().Str("job", j.Name).Msg("Outputs exist, skipping")
			return res
		}
	}

	m, err := load(ctx, j, client, &res)
	if err != nil {
		res.Err = err
		log.Error().Err(err).Str("job", j.Name).Msg("Failed to load job sources")
		return res
	}
	res.Objects = m.ObjectCount()

	var errs []error
	for _, f := range formats {
		path := cfg.OutputPath(j, f)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := convert.Export(m, path, convert.ExportOptions{Minify: cfg.MinifyJob(j)}); err != nil {
			log.Error().Err(err).Str("job", j.Name).Str("path", path).Msg("Failed to export")
			errs = append(errs, err)
			continue
		}
		res.Outputs = append(res.Outputs, path)
	}
	res.Err = errors.Join(errs...)

	log.Info().
		Str("job", j.Name).
		Int("objects", res.Objects).
		Int("outputs", len(res.Outputs)).
		Int("errors", res.Errors).
		Int("warnings", res.Warnings).
		Dur("duration", time.Since(start)).
		Msg("Job finished")

	return res
}

// load merges the job's inputs and Overpass area into one map. A failing
// input is logged and skipped as long as something else was loaded.
func load(ctx context.Context, j *config.Job, client *overpass.Client, res *Result) (*vector.Map, error) {
	m := vector.NewMap(j.Title, nil)

	var errs []error
	count := func(rep *report.Report) {
		res.Errors += rep.Errors()
		res.Warnings += rep.Warnings()
	}

	for _, in := range j.Inputs {
		if err := ctx.Err(); err != nil {
			return m, err
		}
		rep, err := convert.ImportInto(m, in, nil)
		count(rep)
		if err != nil {
			log.Warn().Err(err).Str("job", j.Name).Str("input", in).Msg("Input failed")
			errs = append(errs, err)
		}
	}

	if len(j.BBox) > 0 {
		b, err := j.Bound()
		if err != nil {
			return m, err
		}
		rep := report.New("overpass")
		l, err := client.FetchBBox(ctx, b, m.Nodes, rep)
		count(rep)
		if l != nil {
			m.AddLayer(l)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	if m.ObjectCount() == 0 && len(errs) > 0 {
		return m, errors.Join(errs...)
	}

	// the title overrides names taken from the documents
	m.Name = j.Title
	m.EnsureView()
	return m, nil
}
