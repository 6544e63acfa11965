// Package pairs parses and validates the candidate pair list: the set of
// view pairs the matching stage will examine.
package pairs

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/openrecon/mvmatch/internal/errors"
	"github.com/openrecon/mvmatch/internal/scene"
)

// Pair is an unordered pair of view ids in canonical order (I < J), so that
// (a,b) and (b,a) denote the same key.
type Pair struct {
	I, J scene.ViewID
}

// MakePair canonicalizes two view ids into a Pair.
func MakePair(a, b scene.ViewID) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{I: a, J: b}
}

// Set is a duplicate-free collection of canonical pairs.
type Set map[Pair]struct{}

// Add inserts the canonical form of (a,b).
func (s Set) Add(a, b scene.ViewID) {
	s[MakePair(a, b)] = struct{}{}
}

// Contains reports whether the canonical form of (a,b) is present.
func (s Set) Contains(a, b scene.ViewID) bool {
	_, ok := s[MakePair(a, b)]
	return ok
}

// Sorted returns the pairs ordered by (I, J), for deterministic iteration.
func (s Set) Sorted() []Pair {
	out := make([]Pair, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].I != out[j].I {
			return out[i].I < out[j].I
		}
		return out[i].J < out[j].J
	})
	return out
}

// Load reads a pair list file and validates every id against viewCount.
//
// Each non-empty line lists two or more whitespace-separated view ids; a line
// "i j k" expands to the pairs (i,j) and (i,k). Lines starting with '#' are
// comments. Duplicate and order-reversed entries collapse to one canonical
// pair; self-pairs and ids >= viewCount are rejected.
func Load(path string, viewCount int) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.IOError(
			fmt.Sprintf("pair list %q cannot be read", path), err)
	}
	defer f.Close()

	set := make(Set)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, errors.ValidationError(
				fmt.Sprintf("pair list %q line %d: need at least two ids", path, lineNo), nil)
		}

		ids := make([]scene.ViewID, len(fields))
		for i, field := range fields {
			n, err := strconv.ParseUint(field, 10, 32)
			if err != nil {
				return nil, errors.ValidationError(
					fmt.Sprintf("pair list %q line %d: %q is not a view id", path, lineNo, field), err)
			}
			if n >= uint64(viewCount) {
				return nil, errors.New(errors.ErrCodeInvalidPair,
					fmt.Sprintf("pair list %q line %d: view id %d out of range (%d views)",
						path, lineNo, n, viewCount), nil).
					WithDetail("view_count", strconv.Itoa(viewCount))
			}
			ids[i] = scene.ViewID(n)
		}

		first := ids[0]
		for _, other := range ids[1:] {
			if other == first {
				return nil, errors.New(errors.ErrCodeInvalidPair,
					fmt.Sprintf("pair list %q line %d: self-pair (%d,%d)", path, lineNo, first, other), nil)
			}
			set.Add(first, other)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileCorrupt, err)
	}

	return set, nil
}
