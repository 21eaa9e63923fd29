package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RishiKendai/cheatcheck/internal/config"
	"github.com/RishiKendai/cheatcheck/internal/configs/env"
	"github.com/RishiKendai/cheatcheck/internal/corpus"
	"github.com/RishiKendai/cheatcheck/internal/loader"
	"github.com/RishiKendai/cheatcheck/internal/logger"
	"github.com/RishiKendai/cheatcheck/internal/plagiarism"
	"github.com/RishiKendai/cheatcheck/internal/report"
	"github.com/RishiKendai/cheatcheck/internal/similarity"
	"github.com/rs/zerolog/log"
)

type cliOptions struct {
	files              []string
	sensitivity        float64
	jobs               int
	verbose            bool
	logFile            string
	damerau            bool
	template           string
	failFast           bool
	timeout            time.Duration
	ignoreCase         bool
	collapseWhitespace bool
	format             string

	changed func(flag string) bool
}

// applyFlags overlays explicitly set flags on the environment configuration.
func applyFlags(cfg *config.Config, opts cliOptions) {
	changed := opts.changed
	if changed == nil {
		changed = func(string) bool { return false }
	}

	if changed("sensitivity") {
		cfg.Threshold = opts.sensitivity
		cfg.ThresholdSet = true
	}
	if changed("jobs") {
		cfg.Workers = opts.jobs
	}
	if changed("damerau") {
		cfg.Algorithm = string(similarity.Levenshtein)
		if opts.damerau {
			cfg.Algorithm = string(similarity.DamerauLevenshtein)
		}
	}
	if changed("fail-fast") {
		cfg.FailFast = opts.failFast
	}
	if changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if changed("ignore-case") {
		cfg.CaseFold = opts.ignoreCase
	}
	if changed("collapse-whitespace") {
		cfg.CollapseWhitespace = opts.collapseWhitespace
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}
}

func run(ctx context.Context, opts cliOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// A missing .env is normal for a CLI
	_ = env.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cfg, opts)
	if err := cfg.Validate(); err != nil {
		if !cfg.ThresholdSet {
			return errors.New("--sensitivity is required (or set CHEATCHECK_THRESHOLD)")
		}
		return err
	}

	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Process file list
	paths := loader.Discover(opts.files)
	if len(paths) <= 1 {
		log.Error().Int("files", len(paths)).Msg("Need at least 2 files to compare")
	} else {
		log.Info().Int("files", len(paths)).Msg("Got files to compare")
	}

	entries, err := loader.ReadAll(ctx, paths, cfg.EffectiveWorkers())
	if err != nil {
		return err
	}

	policy := corpus.Normalization{CaseFold: cfg.CaseFold, CollapseWhitespace: cfg.CollapseWhitespace}
	var storeOpts []corpus.Option
	if opts.template != "" {
		tmpl, err := loader.ReadFile(opts.template)
		if err != nil {
			return fmt.Errorf("failed to read template: %w", err)
		}
		storeOpts = append(storeOpts, corpus.WithTemplate(tmpl))
	}

	store, err := corpus.LoadDocuments(entries, policy, storeOpts...)
	if err != nil {
		return err
	}

	metric, err := similarity.New(similarity.Algorithm(cfg.Algorithm))
	if err != nil {
		return err
	}

	runOpts := plagiarism.RunOptions{
		CompareOptions: plagiarism.CompareOptions{
			Workers:         cfg.Workers,
			ChunksPerWorker: cfg.ChunksPerWorker,
			FailFast:        cfg.FailFast,
			Timeout:         cfg.Timeout,
			Metric:          metric,
		},
		Threshold: cfg.Threshold,
	}

	var clog *report.ComparisonLog
	if opts.logFile != "" {
		clog, err = report.OpenComparisonLog(opts.logFile)
		if err != nil {
			return err
		}
		defer clog.Close()
		runOpts.OnScore = clog.Record
	}

	result, runErr := plagiarism.Run(ctx, store, runOpts)
	if result == nil {
		return runErr
	}

	if clog != nil {
		for _, failure := range result.Failures {
			clog.RecordFailure(failure)
		}
	}

	if err := report.Render(out, result, format); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return runErr
}
