package match

import (
	"context"
	"fmt"

	"github.com/openrecon/mvmatch/internal/errors"
)

// DistanceKind is the metric space a strategy reports distances in.
type DistanceKind int

const (
	// DistanceSquaredL2 is squared Euclidean distance.
	DistanceSquaredL2 DistanceKind = iota
	// DistanceHamming is the bit-difference count of binary codes.
	DistanceHamming
)

// AcceptRatio applies the nearest/second-nearest ratio test in this metric:
// keep iff d1/d2 < ratio, with squared-L2 distances compared against the
// squared ratio.
func (k DistanceKind) AcceptRatio(d1, d2, ratio float64) bool {
	if k == DistanceSquaredL2 {
		return d1 < ratio*ratio*d2
	}
	return d1 < ratio*d2
}

// TwoNearest is the raw search result for one query descriptor: its two
// nearest neighbors in the target view, with D1 <= D2.
type TwoNearest struct {
	Query   uint32
	Nearest uint32
	D1, D2  float64
}

// Strategy finds, for every descriptor of a source view, its two nearest
// descriptors in a target view. Implementations must be safe for concurrent
// use across pairs.
type Strategy interface {
	Name() string
	Kind() DistanceKind

	// Search returns one TwoNearest per source descriptor that has at
	// least two candidates in the target; a target with fewer than two
	// descriptors yields no results.
	Search(ctx context.Context, src, dst ViewRegions) ([]TwoNearest, error)
}

// NewStrategy builds the concrete strategy for a resolved method.
// The method must already be resolved (not AUTO).
func NewStrategy(m Method, dim int) (Strategy, error) {
	switch m {
	case MethodBruteForceL2:
		return &bruteForceL2{}, nil
	case MethodBruteForceHamming:
		return &bruteForceHamming{}, nil
	case MethodHNSWL2:
		return newHNSWL2(), nil
	case MethodANNL2:
		return newLSHL2(dim), nil
	case MethodCascadeHashingL2:
		return newCascadeHashingL2(dim, false), nil
	case MethodFastCascadeHashingL2:
		return newCascadeHashingL2(dim, true), nil
	default:
		return nil, errors.New(errors.ErrCodeMethodUnknown,
			fmt.Sprintf("no strategy for method %s", m), nil)
	}
}
