package match

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrecon/mvmatch/internal/region"
	"github.com/openrecon/mvmatch/internal/scene"
)

func scalarRegions(t *testing.T, id scene.ViewID, dim int, data []float32) ViewRegions {
	t.Helper()
	set, err := region.NewScalarSet(dim, data)
	require.NoError(t, err)
	return ViewRegions{ID: id, Set: set}
}

func binaryRegions(t *testing.T, id scene.ViewID, dim int, data []byte) ViewRegions {
	t.Helper()
	set, err := region.NewBinarySet(dim, data)
	require.NoError(t, err)
	return ViewRegions{ID: id, Set: set}
}

func randomScalarData(r *rand.Rand, count, dim int) []float32 {
	data := make([]float32, count*dim)
	for i := range data {
		data[i] = r.Float32() * 10
	}
	return data
}

func TestBruteForceL2_KnownNeighbors(t *testing.T) {
	// Given the query [0,0], the target has an obvious nearest descriptor
	// at distance 1 and a second-nearest at squared distance 100.
	src := scalarRegions(t, 0, 2, []float32{0, 0})
	dst := scalarRegions(t, 1, 2, []float32{
		0, 10, // index 0: d2 = 100
		0, 1, // index 1: d2 = 1
		5, 5, // index 2: d2 = 50
	})

	s := &bruteForceL2{}
	results, err := s.Search(context.Background(), src, dst)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, uint32(0), r.Query)
	assert.Equal(t, uint32(1), r.Nearest)
	assert.InDelta(t, 1.0, r.D1, 1e-9)
	assert.InDelta(t, 50.0, r.D2, 1e-9)
}

func TestBruteForceL2_TargetTooSmall(t *testing.T) {
	// A single-descriptor target has no second neighbor, so the ratio test
	// is undefined and the pair yields nothing.
	src := scalarRegions(t, 0, 2, []float32{0, 0})
	dst := scalarRegions(t, 1, 2, []float32{1, 1})

	s := &bruteForceL2{}
	results, err := s.Search(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBruteForceHamming_KnownNeighbors(t *testing.T) {
	src := binaryRegions(t, 0, 2, []byte{0x00, 0x00})
	dst := binaryRegions(t, 1, 2, []byte{
		0xFF, 0xFF, // index 0: 16 bits differ
		0x01, 0x00, // index 1: 1 bit differs
		0x0F, 0x00, // index 2: 4 bits differ
	})

	s := &bruteForceHamming{}
	results, err := s.Search(context.Background(), src, dst)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, uint32(1), r.Nearest)
	assert.Equal(t, 1.0, r.D1)
	assert.Equal(t, 4.0, r.D2)
}

func TestScalarStrategies_FindExactSelfMatch(t *testing.T) {
	// Matching a view against a copy of itself must recover the identity:
	// every descriptor's nearest neighbor is its own copy at distance zero.
	// This holds for the approximate strategies too because identical
	// vectors always share a hash bucket and an HNSW entry point.
	const dim, count = 16, 40
	r := rand.New(rand.NewSource(7))
	data := randomScalarData(r, count, dim)

	for _, m := range []Method{
		MethodBruteForceL2, MethodHNSWL2, MethodANNL2,
		MethodCascadeHashingL2, MethodFastCascadeHashingL2,
	} {
		t.Run(m.String(), func(t *testing.T) {
			s, err := NewStrategy(m, dim)
			require.NoError(t, err)
			assert.Equal(t, DistanceSquaredL2, s.Kind())

			src := scalarRegions(t, 0, dim, data)
			dst := scalarRegions(t, 1, dim, append([]float32(nil), data...))

			results, err := s.Search(context.Background(), src, dst)
			require.NoError(t, err)
			require.Len(t, results, count)

			for _, res := range results {
				assert.Equal(t, res.Query, res.Nearest)
				assert.InDelta(t, 0.0, res.D1, 1e-6)
				assert.LessOrEqual(t, res.D1, res.D2)
			}
		})
	}
}

func TestApproximateStrategies_DistancesAreExact(t *testing.T) {
	// Candidate selection may be approximate but reported distances are
	// exact squared L2, so D1 can never be below the true nearest distance.
	const dim, count = 8, 30
	rnd := rand.New(rand.NewSource(11))
	srcData := randomScalarData(rnd, count, dim)
	dstData := randomScalarData(rnd, count, dim)

	src := scalarRegions(t, 0, dim, srcData)
	dst := scalarRegions(t, 1, dim, dstData)

	bf := &bruteForceL2{}
	exact, err := bf.Search(context.Background(), src, dst)
	require.NoError(t, err)
	exactD1 := make(map[uint32]float64, len(exact))
	for _, res := range exact {
		exactD1[res.Query] = res.D1
	}

	for _, m := range []Method{MethodHNSWL2, MethodANNL2, MethodCascadeHashingL2} {
		t.Run(m.String(), func(t *testing.T) {
			s, err := NewStrategy(m, dim)
			require.NoError(t, err)

			results, err := s.Search(context.Background(), src, dst)
			require.NoError(t, err)

			for _, res := range results {
				assert.LessOrEqual(t, res.D1, res.D2)
				assert.GreaterOrEqual(t, res.D1, exactD1[res.Query]-1e-6)
				assert.Less(t, int(res.Nearest), count)
			}
		})
	}
}

func TestCascadeHashing_MemoizedCodesMatchUnmemoized(t *testing.T) {
	const dim, count = 16, 25
	rnd := rand.New(rand.NewSource(3))
	data := randomScalarData(rnd, count, dim)

	src := scalarRegions(t, 4, dim, data)
	dst := scalarRegions(t, 9, dim, randomScalarData(rnd, count, dim))

	plain, err := NewStrategy(MethodCascadeHashingL2, dim)
	require.NoError(t, err)
	fast, err := NewStrategy(MethodFastCascadeHashingL2, dim)
	require.NoError(t, err)

	want, err := plain.Search(context.Background(), src, dst)
	require.NoError(t, err)

	// The fast variant caches per-view hashes; repeated searches against
	// the same views must keep returning identical results.
	for i := 0; i < 3; i++ {
		got, err := fast.Search(context.Background(), src, dst)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// Dropping a memoized view forces a rehash that agrees with the cache.
	fastCascade := fast.(*cascadeHashingL2)
	fastCascade.forget(src.ID)
	got, err := fast.Search(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStrategies_CancelledContext(t *testing.T) {
	const dim, count = 8, 512
	rnd := rand.New(rand.NewSource(19))
	src := scalarRegions(t, 0, dim, randomScalarData(rnd, count, dim))
	dst := scalarRegions(t, 1, dim, randomScalarData(rnd, count, dim))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &bruteForceL2{}
	_, err := s.Search(ctx, src, dst)
	assert.ErrorIs(t, err, context.Canceled)
}
