// Package match computes putative feature correspondences between view
// pairs: for each candidate pair it searches nearest neighbors under a
// pluggable strategy and keeps only matches that pass the nearest /
// second-nearest distance ratio test.
package match

import (
	"github.com/openrecon/mvmatch/internal/pairs"
	"github.com/openrecon/mvmatch/internal/region"
	"github.com/openrecon/mvmatch/internal/scene"
)

// Correspondence links one descriptor of the pair's first view (index I)
// to one descriptor of its second view (index J). The direction follows
// the canonical pair key.
type Correspondence struct {
	I uint32
	J uint32
}

// Matches is the pairwise result set: every attempted pair is present under
// its canonical key, with a possibly empty correspondence list.
type Matches map[pairs.Pair][]Correspondence

// PairCount returns the number of attempted pairs.
func (m Matches) PairCount() int {
	return len(m)
}

// NonEmptyPairs returns the canonical keys with at least one correspondence,
// in sorted order.
func (m Matches) NonEmptyPairs() []pairs.Pair {
	set := make(pairs.Set, len(m))
	for p, corr := range m {
		if len(corr) > 0 {
			set[p] = struct{}{}
		}
	}
	return set.Sorted()
}

// TotalCorrespondences sums the retained correspondences over all pairs.
func (m Matches) TotalCorrespondences() int {
	n := 0
	for _, corr := range m {
		n += len(corr)
	}
	return n
}

// ViewRegions couples a view id with its region set for one matching
// operation. Strategies must not retain the set past the call.
type ViewRegions struct {
	ID  scene.ViewID
	Set *region.Set
}
