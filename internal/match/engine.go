package match

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/openrecon/mvmatch/internal/pairs"
	"github.com/openrecon/mvmatch/internal/progress"
	"github.com/openrecon/mvmatch/internal/region"
)

// Engine matches every candidate pair with a fixed strategy and ratio
// threshold. Pairs are independent and processed by a bounded worker pool.
type Engine struct {
	strategy Strategy
	ratio    float64
	workers  int
	logger   *slog.Logger
	observer progress.Observer
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithWorkers sets the worker pool size. Values below 1 keep the default.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n >= 1 {
			e.workers = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver sets the progress observer.
func WithObserver(o progress.Observer) EngineOption {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// NewEngine creates an engine for a resolved strategy and ratio threshold.
func NewEngine(strategy Strategy, ratio float64, opts ...EngineOption) *Engine {
	e := &Engine{
		strategy: strategy,
		ratio:    ratio,
		workers:  runtime.NumCPU(),
		logger:   slog.Default(),
		observer: progress.Nop{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Match computes putative correspondences for every pair in the set.
//
// A pair whose regions cannot be fetched degrades to an empty correspondence
// list and is logged; it never aborts the run. Every attempted pair appears
// in the result under its canonical key.
func (e *Engine) Match(ctx context.Context, pairSet pairs.Set, provider region.Provider) (Matches, error) {
	ordered := pairSet.Sorted()
	result := make(Matches, len(ordered))

	pool, err := ants.NewPool(e.workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	e.observer.Start("matching pairs", len(ordered))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, pair := range ordered {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			corr := e.matchPair(ctx, pair, provider)
			mu.Lock()
			result[pair] = corr
			mu.Unlock()
			e.observer.Advance(1)
		})
		if submitErr != nil {
			wg.Done()
			e.observer.Done()
			return nil, submitErr
		}
	}
	wg.Wait()
	e.observer.Done()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.logger.Info("pairwise matching complete",
		slog.String("method", e.strategy.Name()),
		slog.Int("pairs", result.PairCount()),
		slog.Int("correspondences", result.TotalCorrespondences()))
	return result, nil
}

// matchPair computes the retained correspondences of one pair.
func (e *Engine) matchPair(ctx context.Context, pair pairs.Pair, provider region.Provider) []Correspondence {
	srcSet, err := provider.Fetch(ctx, pair.I)
	if err != nil {
		e.logger.Warn("skipping pair, regions unavailable",
			slog.Uint64("view", uint64(pair.I)), slog.Any("error", err))
		return nil
	}
	dstSet, err := provider.Fetch(ctx, pair.J)
	if err != nil {
		e.logger.Warn("skipping pair, regions unavailable",
			slog.Uint64("view", uint64(pair.J)), slog.Any("error", err))
		return nil
	}

	found, err := e.strategy.Search(ctx,
		ViewRegions{ID: pair.I, Set: srcSet},
		ViewRegions{ID: pair.J, Set: dstSet})
	if err != nil {
		e.logger.Warn("pair matching failed",
			slog.Uint64("view_i", uint64(pair.I)),
			slog.Uint64("view_j", uint64(pair.J)),
			slog.Any("error", err))
		return nil
	}

	kind := e.strategy.Kind()
	corr := make([]Correspondence, 0, len(found))
	for _, nn := range found {
		if kind.AcceptRatio(nn.D1, nn.D2, e.ratio) {
			corr = append(corr, Correspondence{I: nn.Query, J: nn.Nearest})
		}
	}
	return corr
}
