package match

import (
	"context"
	"math"
	"math/bits"
)

// squaredL2 returns the squared Euclidean distance of two float32 vectors.
func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// hamming returns the bit-difference count of two binary codes.
func hamming(a, b []byte) int {
	n := 0
	for i := range a {
		n += bits.OnesCount8(a[i] ^ b[i])
	}
	return n
}

// bruteForceL2 is the exact scalar strategy: a full scan per query.
type bruteForceL2 struct{}

func (*bruteForceL2) Name() string       { return "BRUTEFORCEL2" }
func (*bruteForceL2) Kind() DistanceKind { return DistanceSquaredL2 }

func (*bruteForceL2) Search(ctx context.Context, src, dst ViewRegions) ([]TwoNearest, error) {
	if dst.Set.Count < 2 {
		return nil, nil
	}

	out := make([]TwoNearest, 0, src.Set.Count)
	for qi := 0; qi < src.Set.Count; qi++ {
		if qi%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		query := src.Set.ScalarAt(qi)

		best, second := math.Inf(1), math.Inf(1)
		bestIdx := uint32(0)
		for ti := 0; ti < dst.Set.Count; ti++ {
			d := squaredL2(query, dst.Set.ScalarAt(ti))
			if d < best {
				second = best
				best = d
				bestIdx = uint32(ti)
			} else if d < second {
				second = d
			}
		}
		out = append(out, TwoNearest{Query: uint32(qi), Nearest: bestIdx, D1: best, D2: second})
	}
	return out, nil
}

// bruteForceHamming is the exact binary strategy.
type bruteForceHamming struct{}

func (*bruteForceHamming) Name() string       { return "BRUTEFORCEHAMMING" }
func (*bruteForceHamming) Kind() DistanceKind { return DistanceHamming }

func (*bruteForceHamming) Search(ctx context.Context, src, dst ViewRegions) ([]TwoNearest, error) {
	if dst.Set.Count < 2 {
		return nil, nil
	}

	out := make([]TwoNearest, 0, src.Set.Count)
	for qi := 0; qi < src.Set.Count; qi++ {
		if qi%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		query := src.Set.BinaryAt(qi)

		best, second := math.MaxInt, math.MaxInt
		bestIdx := uint32(0)
		for ti := 0; ti < dst.Set.Count; ti++ {
			d := hamming(query, dst.Set.BinaryAt(ti))
			if d < best {
				second = best
				best = d
				bestIdx = uint32(ti)
			} else if d < second {
				second = d
			}
		}
		out = append(out, TwoNearest{Query: uint32(qi), Nearest: bestIdx, D1: float64(best), D2: float64(second)})
	}
	return out, nil
}
