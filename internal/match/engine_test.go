package match

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrecon/mvmatch/internal/errors"
	"github.com/openrecon/mvmatch/internal/pairs"
	"github.com/openrecon/mvmatch/internal/region"
	"github.com/openrecon/mvmatch/internal/scene"
)

// mapProvider serves region sets from memory and records which views were
// actually fetched.
type mapProvider struct {
	sets    map[scene.ViewID]*region.Set
	fetches atomic.Int64
}

func (p *mapProvider) Fetch(ctx context.Context, id scene.ViewID) (*region.Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.fetches.Add(1)
	set, ok := p.sets[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeRegionMissing, "no regions for view", nil)
	}
	return set, nil
}

func scalarSet(t *testing.T, dim int, data []float32) *region.Set {
	t.Helper()
	set, err := region.NewScalarSet(dim, data)
	require.NoError(t, err)
	return set
}

// threeViewProvider builds regions for view ids 0..2 where view 0 and 1
// share one unambiguous descriptor and view 2 is unrelated noise.
func threeViewProvider(t *testing.T) *mapProvider {
	t.Helper()
	return &mapProvider{sets: map[scene.ViewID]*region.Set{
		// Descriptor 1 of view 0 sits right next to descriptor 0 of
		// view 1; everything else is far away.
		0: scalarSet(t, 2, []float32{50, 50, 0, 0}),
		1: scalarSet(t, 2, []float32{0, 1, 90, 90}),
		2: scalarSet(t, 2, []float32{-40, 7, 33, -2}),
	}}
}

func pairSet(ps ...pairs.Pair) pairs.Set {
	set := make(pairs.Set, len(ps))
	for _, p := range ps {
		set.Add(p.I, p.J)
	}
	return set
}

func TestEngine_MatchesRequestedPairsOnly(t *testing.T) {
	// Given candidate pairs (0,1) and (1,2), pair (0,2) must never be
	// attempted and must not appear among the results.
	provider := threeViewProvider(t)
	set := pairSet(pairs.MakePair(0, 1), pairs.MakePair(1, 2))

	engine := NewEngine(&bruteForceL2{}, 0.8, WithWorkers(2))
	result, err := engine.Match(context.Background(), set, provider)
	require.NoError(t, err)

	assert.Equal(t, 2, result.PairCount())
	assert.Contains(t, result, pairs.MakePair(0, 1))
	assert.Contains(t, result, pairs.MakePair(1, 2))
	assert.NotContains(t, result, pairs.MakePair(0, 2))
}

func TestEngine_RatioTestRetainsUnambiguousMatch(t *testing.T) {
	provider := threeViewProvider(t)
	set := pairSet(pairs.MakePair(0, 1))

	engine := NewEngine(&bruteForceL2{}, 0.8)
	result, err := engine.Match(context.Background(), set, provider)
	require.NoError(t, err)

	// Descriptor 1 of view 0 has a clear winner in view 1; descriptor 0 is
	// ambiguous noise and fails the ratio test.
	corr := result[pairs.MakePair(0, 1)]
	require.Len(t, corr, 1)
	assert.Equal(t, Correspondence{I: 1, J: 0}, corr[0])
}

func TestEngine_ReversedDuplicateCollapsesToOneRun(t *testing.T) {
	// (1,0) and (0,1) canonicalize to the same key, so the engine sees a
	// single pair and fetches each view once.
	provider := threeViewProvider(t)
	set := pairSet(pairs.MakePair(1, 0), pairs.MakePair(0, 1))
	require.Len(t, set, 1)

	engine := NewEngine(&bruteForceL2{}, 0.8)
	result, err := engine.Match(context.Background(), set, provider)
	require.NoError(t, err)

	assert.Equal(t, 1, result.PairCount())
	assert.EqualValues(t, 2, provider.fetches.Load())
}

func TestEngine_MissingRegionsDegradeToEmptyPair(t *testing.T) {
	// View 2 has no region data: pair (1,2) degrades to an empty entry
	// while pair (0,1) still matches normally.
	provider := threeViewProvider(t)
	delete(provider.sets, 2)
	set := pairSet(pairs.MakePair(0, 1), pairs.MakePair(1, 2))

	engine := NewEngine(&bruteForceL2{}, 0.8)
	result, err := engine.Match(context.Background(), set, provider)
	require.NoError(t, err)

	require.Equal(t, 2, result.PairCount())
	assert.Empty(t, result[pairs.MakePair(1, 2)])
	assert.NotEmpty(t, result[pairs.MakePair(0, 1)])
	assert.Equal(t, []pairs.Pair{pairs.MakePair(0, 1)}, result.NonEmptyPairs())
}

func TestEngine_EmptyPairSet(t *testing.T) {
	provider := threeViewProvider(t)
	engine := NewEngine(&bruteForceL2{}, 0.8)

	result, err := engine.Match(context.Background(), pairs.Set{}, provider)
	require.NoError(t, err)
	assert.Equal(t, 0, result.PairCount())
	assert.EqualValues(t, 0, provider.fetches.Load())
}

func TestEngine_CancelledContext(t *testing.T) {
	provider := threeViewProvider(t)
	set := pairSet(pairs.MakePair(0, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(&bruteForceL2{}, 0.8)
	_, err := engine.Match(ctx, set, provider)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_ManyPairsWithBoundedWorkers(t *testing.T) {
	// All pairs over six views, two workers. Every canonical pair must be
	// present exactly once in the result.
	const views = 6
	const dim = 4
	sets := make(map[scene.ViewID]*region.Set, views)
	for v := 0; v < views; v++ {
		data := make([]float32, 3*dim)
		for i := range data {
			data[i] = float32(v*31+i) * 0.7
		}
		sets[scene.ViewID(v)] = scalarSet(t, dim, data)
	}
	provider := &mapProvider{sets: sets}

	set := make(pairs.Set)
	for i := 0; i < views; i++ {
		for j := i + 1; j < views; j++ {
			set.Add(scene.ViewID(i), scene.ViewID(j))
		}
	}

	engine := NewEngine(&bruteForceL2{}, 0.8, WithWorkers(2))
	result, err := engine.Match(context.Background(), set, provider)
	require.NoError(t, err)

	assert.Equal(t, views*(views-1)/2, result.PairCount())
	for p := range result {
		assert.Less(t, p.I, p.J)
	}
}
