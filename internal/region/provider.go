package region

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/openrecon/mvmatch/internal/errors"
	"github.com/openrecon/mvmatch/internal/scene"
)

// Provider serves descriptor data by view id during matching.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Fetch returns the region set of a view. It fails with an
	// ERR_204_REGION_MISSING error when the id is unknown or its
	// descriptor data cannot be loaded.
	Fetch(ctx context.Context, id scene.ViewID) (*Set, error)
}

// NewProvider selects the provider mode from the cache capacity:
// 0 preloads every view's regions, capacity > 0 serves them through a
// bounded LRU cache with on-demand loading.
func NewProvider(ctx context.Context, cat *scene.Catalog, loader Loader, capacity int) (Provider, error) {
	if capacity == 0 {
		return NewEagerProvider(ctx, cat, loader)
	}
	return NewCachedProvider(cat, loader, capacity)
}

// EagerProvider holds every view's regions in memory for the whole run.
// Fetch never performs I/O; views whose data failed to preload stay absent
// and degrade the pairs that reference them.
type EagerProvider struct {
	sets map[scene.ViewID]*Set
}

// NewEagerProvider loads all views' regions up front, in parallel. A view
// whose descriptor data cannot be loaded is logged and left out; only
// cancellation aborts the preload.
func NewEagerProvider(ctx context.Context, cat *scene.Catalog, loader Loader) (*EagerProvider, error) {
	p := &EagerProvider{sets: make(map[scene.ViewID]*Set, cat.ViewCount())}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	results := make([]*Set, len(cat.Views))
	for i := range cat.Views {
		view := &cat.Views[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			set, err := loader.Load(view)
			if err != nil {
				slog.Warn("regions unavailable",
					slog.Uint64("view", uint64(view.ID)), slog.Any("error", err))
				return nil
			}
			results[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range cat.Views {
		if results[i] != nil {
			p.sets[cat.Views[i].ID] = results[i]
		}
	}

	slog.Debug("regions preloaded",
		slog.Int("views", cat.ViewCount()), slog.Int("loaded", len(p.sets)))
	return p, nil
}

// Fetch returns the preloaded region set for a view.
func (p *EagerProvider) Fetch(_ context.Context, id scene.ViewID) (*Set, error) {
	set, ok := p.sets[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeRegionMissing,
			fmt.Sprintf("no regions for view %d", id), nil)
	}
	return set, nil
}

// CachedProvider serves regions through a bounded LRU cache, loading on
// demand. The cache exclusively owns resident sets; inserting beyond
// capacity evicts the least-recently-used entry. Concurrent fetches of the
// same uncached view are collapsed into a single load.
type CachedProvider struct {
	catalog *scene.Catalog
	loader  Loader
	cache   *lru.Cache[scene.ViewID, *Set]
	group   singleflight.Group
}

// NewCachedProvider creates a bounded provider with the given capacity.
func NewCachedProvider(cat *scene.Catalog, loader Loader, capacity int) (*CachedProvider, error) {
	if capacity <= 0 {
		return nil, errors.ConfigError(
			fmt.Sprintf("cache capacity must be positive, got %d", capacity), nil)
	}
	cache, err := lru.New[scene.ViewID, *Set](capacity)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err)
	}
	return &CachedProvider{catalog: cat, loader: loader, cache: cache}, nil
}

// Fetch returns the region set of a view, loading it on first use.
// A fetch of a resident view only refreshes its recency and evicts nothing.
func (p *CachedProvider) Fetch(ctx context.Context, id scene.ViewID) (*Set, error) {
	if set, ok := p.cache.Get(id); ok {
		return set, nil
	}

	v, err, _ := p.group.Do(strconv.FormatUint(uint64(id), 10), func() (interface{}, error) {
		// A concurrent caller may have populated the cache while this
		// call was queued behind the flight.
		if set, ok := p.cache.Get(id); ok {
			return set, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		view := p.catalog.ViewByID(id)
		if view == nil {
			return nil, errors.New(errors.ErrCodeRegionMissing,
				fmt.Sprintf("no regions for view %d", id), nil)
		}
		set, err := p.loader.Load(view)
		if err != nil {
			return nil, err
		}

		if evicted := p.cache.Add(id, set); evicted {
			slog.Debug("region cache eviction", slog.Uint64("inserted_view", uint64(id)))
		}
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Set), nil
}

// Len reports how many region sets are currently resident.
func (p *CachedProvider) Len() int {
	return p.cache.Len()
}
