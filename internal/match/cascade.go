package match

import (
	"context"
	"math"
	"math/bits"
	"math/rand"
	"sort"
	"sync"

	"github.com/openrecon/mvmatch/internal/scene"
)

// Cascade hashing parameters: a 128-bit hyperplane code per descriptor for
// Hamming pre-filtering, plus bucket groups for candidate retrieval.
const (
	cascadeCodeBits  = 128
	cascadeCodeWords = cascadeCodeBits / 64
	cascadeGroups    = 6
	cascadeGroupBits = 10
	cascadeMaxRanked = 64 // candidates kept after the Hamming pre-filter
)

// hashedRegions is the per-view hashing of a region set: one code per
// descriptor and the bucket membership per group.
type hashedRegions struct {
	codes   [][cascadeCodeWords]uint64
	buckets [cascadeGroups]map[uint16][]uint32
}

// cascadeHashingL2 implements cascade hashing: bucket retrieval, Hamming
// pre-filter on 128-bit codes, exact L2 re-ranking. With memoize set, each
// view's hashed regions are computed once per run and reused across pairs
// (faster, more memory); otherwise they are rebuilt per pair.
type cascadeHashingL2 struct {
	dim       int
	memoize   bool
	primary   [][]float32 // cascadeCodeBits planes
	secondary [][]float32 // cascadeGroups*cascadeGroupBits planes

	cache sync.Map // scene.ViewID -> *hashedRegions
}

func newCascadeHashingL2(dim int, memoize bool) *cascadeHashingL2 {
	// A fixed seed keeps runs reproducible for identical inputs.
	rng := rand.New(rand.NewSource(0x5ca1ab1e))
	gen := func(n int) [][]float32 {
		planes := make([][]float32, n)
		for i := range planes {
			plane := make([]float32, dim)
			for d := range plane {
				plane[d] = float32(rng.NormFloat64())
			}
			planes[i] = plane
		}
		return planes
	}
	return &cascadeHashingL2{
		dim:       dim,
		memoize:   memoize,
		primary:   gen(cascadeCodeBits),
		secondary: gen(cascadeGroups * cascadeGroupBits),
	}
}

func (s *cascadeHashingL2) Name() string {
	if s.memoize {
		return "FASTCASCADEHASHINGL2"
	}
	return "CASCADEHASHINGL2"
}

func (*cascadeHashingL2) Kind() DistanceKind { return DistanceSquaredL2 }

func dot(plane, desc []float32) float64 {
	var sum float64
	for d := range plane {
		sum += float64(plane[d]) * float64(desc[d])
	}
	return sum
}

// code computes the 128-bit primary hash of one descriptor.
func (s *cascadeHashingL2) code(desc []float32) [cascadeCodeWords]uint64 {
	var code [cascadeCodeWords]uint64
	for b, plane := range s.primary {
		if dot(plane, desc) >= 0 {
			code[b/64] |= 1 << uint(b%64)
		}
	}
	return code
}

// bucket computes the descriptor's bucket id within group g.
func (s *cascadeHashingL2) bucket(g int, desc []float32) uint16 {
	var key uint16
	base := g * cascadeGroupBits
	for b := 0; b < cascadeGroupBits; b++ {
		if dot(s.secondary[base+b], desc) >= 0 {
			key |= 1 << uint(b)
		}
	}
	return key
}

// hash builds the hashed regions of one view.
func (s *cascadeHashingL2) hash(ctx context.Context, vr ViewRegions) (*hashedRegions, error) {
	if s.memoize {
		if cached, ok := s.cache.Load(vr.ID); ok {
			return cached.(*hashedRegions), nil
		}
	}

	h := &hashedRegions{codes: make([][cascadeCodeWords]uint64, vr.Set.Count)}
	for g := range h.buckets {
		h.buckets[g] = make(map[uint16][]uint32)
	}
	for i := 0; i < vr.Set.Count; i++ {
		if i%128 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		desc := vr.Set.ScalarAt(i)
		h.codes[i] = s.code(desc)
		for g := 0; g < cascadeGroups; g++ {
			key := s.bucket(g, desc)
			h.buckets[g][key] = append(h.buckets[g][key], uint32(i))
		}
	}

	if s.memoize {
		// First writer wins; concurrent hashers of the same view agree.
		if prev, loaded := s.cache.LoadOrStore(vr.ID, h); loaded {
			return prev.(*hashedRegions), nil
		}
	}
	return h, nil
}

// forget drops a memoized view, for tests and targeted reclamation.
func (s *cascadeHashingL2) forget(id scene.ViewID) {
	s.cache.Delete(id)
}

func codeHamming(a, b [cascadeCodeWords]uint64) int {
	n := 0
	for w := 0; w < cascadeCodeWords; w++ {
		n += bits.OnesCount64(a[w] ^ b[w])
	}
	return n
}

func (s *cascadeHashingL2) Search(ctx context.Context, src, dst ViewRegions) ([]TwoNearest, error) {
	if dst.Set.Count < 2 {
		return nil, nil
	}

	hdst, err := s.hash(ctx, dst)
	if err != nil {
		return nil, err
	}
	hsrc, err := s.hash(ctx, src)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint32]struct{}, 128)
	out := make([]TwoNearest, 0, src.Set.Count)
	for qi := 0; qi < src.Set.Count; qi++ {
		if qi%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		query := src.Set.ScalarAt(qi)
		qcode := hsrc.codes[qi]

		// Gather candidates from the query's bucket in every group.
		clear(seen)
		for g := 0; g < cascadeGroups; g++ {
			for _, idx := range hdst.buckets[g][s.bucket(g, query)] {
				seen[idx] = struct{}{}
			}
		}

		candidates := make([]uint32, 0, len(seen))
		for idx := range seen {
			candidates = append(candidates, idx)
		}

		// Hamming pre-filter trims large candidate lists before the
		// exact re-rank.
		if len(candidates) > cascadeMaxRanked {
			sort.Slice(candidates, func(i, j int) bool {
				return codeHamming(qcode, hdst.codes[candidates[i]]) <
					codeHamming(qcode, hdst.codes[candidates[j]])
			})
			candidates = candidates[:cascadeMaxRanked]
		}

		best, second := math.Inf(1), math.Inf(1)
		bestIdx := uint32(0)
		rank := func(ti uint32) {
			d := squaredL2(query, dst.Set.ScalarAt(int(ti)))
			if d < best {
				second = best
				best = d
				bestIdx = ti
			} else if d < second {
				second = d
			}
		}

		if len(candidates) >= 2 {
			for _, ti := range candidates {
				rank(ti)
			}
		} else {
			// Sparse buckets: exact scan for this query.
			for ti := 0; ti < dst.Set.Count; ti++ {
				rank(uint32(ti))
			}
		}
		out = append(out, TwoNearest{Query: uint32(qi), Nearest: bestIdx, D1: best, D2: second})
	}
	return out, nil
}
