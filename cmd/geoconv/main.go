package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/woozymasta/geoxchange/internal/config"
	"github.com/woozymasta/geoxchange/internal/convert"
	"github.com/woozymasta/geoxchange/internal/logger"
	"github.com/woozymasta/geoxchange/internal/processor"
	"github.com/woozymasta/geoxchange/internal/report"
	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/cheggaaa/pb"
	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Input       []string `short:"i" long:"in"          description:"Input file, repeat to merge several into one map"`
	Output      []string `short:"o" long:"out"         description:"Output file, repeat to write several formats"`
	Name        string   `short:"n" long:"name"        description:"Map name written to the outputs"`
	ConfigFile  string   `short:"c" long:"config"      env:"CONFIG_FILE"  description:"Batch configuration file, used when no --in is given" default:"config.yaml"`
	Limit       []string `short:"l" long:"limit"       env:"LIMIT_NAMES"  description:"Limit batch processing to specific job names"`
	Concurrency int      `short:"p" long:"concurrency" env:"CONCURRENCY"  description:"Concurrent batch jobs (0 uses the config value)"`
	Minify      bool     `short:"m" long:"minify"      description:"Minify XML and JSON output"`
	Force       bool     `short:"f" long:"force"       description:"Force overwrite of existing batch outputs"`
	NoProgress  bool     `long:"no-progress"           description:"Disable the progress bar"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	if len(opts.Input) > 0 {
		if len(opts.Output) == 0 {
			log.Fatal().Msg("--out is required with --in")
		}
		os.Exit(single(opts))
	}

	os.Exit(batch(opts))
}

// single merges every input into one map and writes it to every output.
func single(opts Options) int {
	m := vector.NewMap(opts.Name, nil)

	failed := false
	for _, in := range opts.Input {
		bar := newBar(opts.NoProgress, 100, in)
		var progress report.Progress
		if bar != nil {
			progress = report.ProgressFunc(func(percent int, _ string) { bar.Set(percent) })
		}

		rep, err := convert.ImportInto(m, in, progress)
		if bar != nil {
			bar.Finish()
		}

		if err != nil {
			log.Error().Err(err).Str("input", in).Msg("Import failed")
			failed = true
		}
		log.Info().
			Str("input", in).
			Int("errors", rep.Errors()).
			Int("warnings", rep.Warnings()).
			Msg("Input read")
	}

	if m.ObjectCount() == 0 {
		log.Error().Msg("Nothing to write")
		return 1
	}
	if opts.Name != "" {
		m.Name = opts.Name
	}

	for _, out := range opts.Output {
		if err := convert.Export(m, out, convert.ExportOptions{Minify: opts.Minify}); err != nil {
			log.Error().Err(err).Str("output", out).Msg("Export failed")
			failed = true
			continue
		}
		log.Info().
			Str("output", out).
			Int("objects", m.ObjectCount()).
			Int("nodes", m.Nodes.Len()).
			Msg("Map written")
	}

	if failed {
		return 1
	}
	return 0
}

// batch runs the jobs of the configuration file.
func batch(opts Options) int {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	cfg.ApplyClasses()
	if opts.Minify {
		cfg.Minify = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	total := len(cfg.Jobs)
	if len(opts.Limit) > 0 {
		total = len(opts.Limit)
	}
	bar := newBar(opts.NoProgress, total, "jobs")
	var mu sync.Mutex

	results, err := processor.Run(ctx, cfg, processor.Options{
		Limit:       opts.Limit,
		Concurrency: opts.Concurrency,
		Force:       opts.Force,
		OnDone: func(processor.Result) {
			if bar == nil {
				return
			}
			mu.Lock()
			bar.Increment()
			mu.Unlock()
		},
	})
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		log.Error().Err(err).Msg("Batch conversion interrupted")
		return 1
	}

	code := 0
	for _, r := range results {
		if r.Err != nil {
			log.Error().Err(r.Err).Str("job", r.Job).Msg("Job failed")
			code = 1
		}
	}

	log.Info().Int("jobs", len(results)).Msg("Batch conversion finished")
	return code
}

func newBar(disabled bool, total int, prefix string) *pb.ProgressBar {
	if disabled || total <= 0 {
		return nil
	}
	bar := pb.New(total).Prefix(prefix + " ")
	bar.Output = os.Stderr
	bar.Start()
	return bar
}
