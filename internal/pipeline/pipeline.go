// Package pipeline runs the whole putative matching stage: load the scene
// and candidate pairs, resolve the matching method, compute or reuse the
// pairwise matches, persist them, and export the diagnostics.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"github.com/openrecon/mvmatch/internal/config"
	"github.com/openrecon/mvmatch/internal/errors"
	"github.com/openrecon/mvmatch/internal/match"
	"github.com/openrecon/mvmatch/internal/matchgraph"
	"github.com/openrecon/mvmatch/internal/pairs"
	"github.com/openrecon/mvmatch/internal/progress"
	"github.com/openrecon/mvmatch/internal/region"
	"github.com/openrecon/mvmatch/internal/scene"
)

// Result summarizes a completed run for the caller.
type Result struct {
	// Resumed is true when an existing match file satisfied the run and
	// no matching work was performed.
	Resumed bool

	// Method is the resolved matching method.
	Method match.Method

	// Pairs is the number of attempted pairs in the result.
	Pairs int

	// Correspondences is the total number of retained correspondences.
	Correspondences int

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration
}

// Runner executes matching runs for one configuration.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	observer progress.Observer
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the run logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver sets the progress observer passed to the match engine.
func WithObserver(o progress.Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.observer = o
		}
	}
}

// NewRunner creates a runner for a validated configuration.
func NewRunner(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		logger:   slog.Default(),
		observer: progress.Nop{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one matching run end to end.
//
// Resume policy is run-granular: when the output file already exists and
// --force is not set, the stored result is reloaded as-is and no pair is
// re-matched. A concurrent run against the same output file is rejected.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	r.logBanner()

	catalog, err := scene.Load(r.cfg.ScenePath)
	if err != nil {
		return nil, err
	}
	pairSet, err := pairs.Load(r.cfg.PairListPath, catalog.ViewCount())
	if err != nil {
		return nil, err
	}
	r.logger.Info("inputs loaded",
		slog.Int("views", catalog.ViewCount()),
		slog.String("descriptor", string(catalog.Descriptor.Type)),
		slog.Int("pairs", len(pairSet)))

	lock := flock.New(r.cfg.OutputPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.New(errors.ErrCodeLockHeld,
			fmt.Sprintf("cannot acquire run lock for %q", r.cfg.OutputPath), err)
	}
	if !locked {
		return nil, errors.New(errors.ErrCodeLockHeld,
			fmt.Sprintf("another run is writing %q", r.cfg.OutputPath), nil).
			WithSuggestion("wait for the other run to finish or choose a different output file")
	}
	defer lock.Unlock()

	if match.Exists(r.cfg.OutputPath) && !r.cfg.Force {
		return r.resume(ctx, catalog, start)
	}

	method, err := match.ParseMethod(r.cfg.Method)
	if err != nil {
		return nil, err
	}
	method, err = method.Resolve(catalog.Descriptor.Type)
	if err != nil {
		return nil, err
	}
	strategy, err := match.NewStrategy(method, catalog.Descriptor.Dim)
	if err != nil {
		return nil, err
	}
	r.logger.Info("method resolved", slog.String("method", method.String()))

	loader := region.NewFileLoader(r.cfg.MatchesDir(), catalog.Descriptor)
	provider, err := region.NewProvider(ctx, catalog, loader, r.cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	engine := match.NewEngine(strategy, r.cfg.Ratio,
		match.WithWorkers(r.cfg.EffectiveWorkers()),
		match.WithLogger(r.logger),
		match.WithObserver(r.observer))
	matches, err := engine.Match(ctx, pairSet, provider)
	if err != nil {
		return nil, err
	}

	if err := match.Save(matches, r.cfg.OutputPath); err != nil {
		return nil, err
	}
	r.export(ctx, catalog, matches)

	result := &Result{
		Method:          method,
		Pairs:           matches.PairCount(),
		Correspondences: matches.TotalCorrespondences(),
		Elapsed:         time.Since(start),
	}
	r.logger.Info("matching run done",
		slog.Int("pairs", result.Pairs),
		slog.Int("correspondences", result.Correspondences),
		slog.Duration("elapsed", result.Elapsed))
	return result, nil
}

// resume reloads a previous run's output instead of matching again.
func (r *Runner) resume(ctx context.Context, catalog *scene.Catalog, start time.Time) (*Result, error) {
	matches, err := match.Load(r.cfg.OutputPath)
	if err != nil {
		return nil, err
	}
	r.export(ctx, catalog, matches)

	result := &Result{
		Resumed:         true,
		Pairs:           matches.PairCount(),
		Correspondences: matches.TotalCorrespondences(),
		Elapsed:         time.Since(start),
	}
	r.logger.Info("existing match file reused",
		slog.String("path", r.cfg.OutputPath),
		slog.Int("pairs", result.Pairs),
		slog.Int("correspondences", result.Correspondences))
	return result, nil
}

// export writes the diagnostics next to the match file. Failures are logged
// and never fail the run; the match file is already on disk at this point.
func (r *Runner) export(ctx context.Context, catalog *scene.Catalog, matches match.Matches) {
	if err := matchgraph.Export(ctx, catalog, matches, r.cfg.MatchesDir()); err != nil {
		r.logger.Warn("diagnostics export failed", slog.Any("error", err))
	}
}

// logBanner reports the effective configuration at run start.
func (r *Runner) logBanner() {
	r.logger.Info("mvmatch run starting",
		slog.String("scene", r.cfg.ScenePath),
		slog.String("output", r.cfg.OutputPath),
		slog.String("pair_list", r.cfg.PairListPath),
		slog.String("method", r.cfg.Method),
		slog.Float64("ratio", r.cfg.Ratio),
		slog.String("cache_size", r.cfg.CacheSizeString()),
		slog.Int("workers", r.cfg.EffectiveWorkers()),
		slog.Bool("force", r.cfg.Force))
}
