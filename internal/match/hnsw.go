package match

import (
	"context"

	"github.com/coder/hnsw"
)

// hnswL2 searches with a Hierarchical Navigable Small World graph built
// over the target view's descriptors, one graph per pair. Approximate: a
// query's true second-nearest neighbor may be missed near ef boundaries.
type hnswL2 struct {
	m        int
	efSearch int
}

func newHNSWL2() *hnswL2 {
	// coder/hnsw defaults; ef is raised above k=2 so the two returned
	// neighbors are near-exact on SIFT-scale region counts.
	return &hnswL2{m: 16, efSearch: 64}
}

func (*hnswL2) Name() string       { return "HNSWL2" }
func (*hnswL2) Kind() DistanceKind { return DistanceSquaredL2 }

func (s *hnswL2) Search(ctx context.Context, src, dst ViewRegions) ([]TwoNearest, error) {
	if dst.Set.Count < 2 {
		return nil, nil
	}

	graph := hnsw.NewGraph[uint32]()
	graph.Distance = hnsw.EuclideanDistance
	graph.M = s.m
	graph.EfSearch = s.efSearch

	for ti := 0; ti < dst.Set.Count; ti++ {
		if ti%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		graph.Add(hnsw.MakeNode(uint32(ti), dst.Set.ScalarAt(ti)))
	}

	out := make([]TwoNearest, 0, src.Set.Count)
	for qi := 0; qi < src.Set.Count; qi++ {
		if qi%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		query := src.Set.ScalarAt(qi)

		neighbors := graph.Search(query, 2)
		if len(neighbors) < 2 {
			continue
		}

		// Recompute exact distances for the returned candidates so the
		// ratio test runs in the same metric as the exact strategies.
		d1 := squaredL2(query, neighbors[0].Value)
		d2 := squaredL2(query, neighbors[1].Value)
		nearest := neighbors[0].Key
		if d2 < d1 {
			d1, d2 = d2, d1
			nearest = neighbors[1].Key
		}
		out = append(out, TwoNearest{Query: uint32(qi), Nearest: nearest, D1: d1, D2: d2})
	}
	return out, nil
}
