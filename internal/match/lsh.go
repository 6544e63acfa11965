package match

import (
	"context"
	"math"
	"math/rand"
)

// lshL2 approximates nearest-neighbor search with random-hyperplane locality
// sensitive hashing: candidates are gathered from matching buckets across
// several hash tables and re-ranked with exact L2. Falls back to a full scan
// for queries whose buckets hold fewer than two candidates.
type lshL2 struct {
	dim          int
	tables       int
	bitsPerTable int
	planes       [][]float32 // tables*bitsPerTable hyperplanes, row-major
}

func newLSHL2(dim int) *lshL2 {
	const (
		tables       = 8
		bitsPerTable = 12
	)
	// A fixed seed keeps runs reproducible for identical inputs.
	rng := rand.New(rand.NewSource(0x3149eb))
	planes := make([][]float32, tables*bitsPerTable)
	for i := range planes {
		plane := make([]float32, dim)
		for d := range plane {
			plane[d] = float32(rng.NormFloat64())
		}
		planes[i] = plane
	}
	return &lshL2{dim: dim, tables: tables, bitsPerTable: bitsPerTable, planes: planes}
}

func (*lshL2) Name() string       { return "ANNL2" }
func (*lshL2) Kind() DistanceKind { return DistanceSquaredL2 }

// bucketKey hashes a descriptor into table t's bucket.
func (s *lshL2) bucketKey(t int, desc []float32) uint32 {
	var key uint32
	base := t * s.bitsPerTable
	for b := 0; b < s.bitsPerTable; b++ {
		plane := s.planes[base+b]
		var dot float64
		for d := 0; d < s.dim; d++ {
			dot += float64(plane[d]) * float64(desc[d])
		}
		if dot >= 0 {
			key |= 1 << uint(b)
		}
	}
	return key
}

func (s *lshL2) Search(ctx context.Context, src, dst ViewRegions) ([]TwoNearest, error) {
	if dst.Set.Count < 2 {
		return nil, nil
	}

	// Index the target view.
	buckets := make([]map[uint32][]uint32, s.tables)
	for t := range buckets {
		buckets[t] = make(map[uint32][]uint32)
	}
	for ti := 0; ti < dst.Set.Count; ti++ {
		if ti%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		d := dst.Set.ScalarAt(ti)
		for t := 0; t < s.tables; t++ {
			key := s.bucketKey(t, d)
			buckets[t][key] = append(buckets[t][key], uint32(ti))
		}
	}

	seen := make(map[uint32]struct{}, 64)
	out := make([]TwoNearest, 0, src.Set.Count)
	for qi := 0; qi < src.Set.Count; qi++ {
		if qi%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		query := src.Set.ScalarAt(qi)

		clear(seen)
		for t := 0; t < s.tables; t++ {
			for _, idx := range buckets[t][s.bucketKey(t, query)] {
				seen[idx] = struct{}{}
			}
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

		if len(seen) >= 2 {
			for ti := range seen {
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
