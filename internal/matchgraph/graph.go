// Package matchgraph turns a pairwise match result into a view graph and
// renders the run diagnostics: an adjacency-matrix SVG and a Graphviz DOT
// file of the view pairs that survived matching.
package matchgraph

import (
	"fmt"
	"strconv"

	"github.com/katalvlaran/lvlath/core"

	"github.com/openrecon/mvmatch/internal/errors"
	"github.com/openrecon/mvmatch/internal/match"
	"github.com/openrecon/mvmatch/internal/scene"
)

// Build constructs the undirected view graph of a match result. Every view
// of the catalog becomes a vertex, and every pair with at least one retained
// correspondence becomes an edge weighted by its correspondence count.
func Build(catalog *scene.Catalog, matches match.Matches) (*core.Graph, error) {
	g := core.NewGraph(core.WithWeighted())

	for _, id := range catalog.ViewIDs() {
		if err := g.AddVertex(vertexID(id)); err != nil {
			return nil, errors.InternalError(
				fmt.Sprintf("cannot add view %d to match graph", id), err)
		}
	}

	for _, p := range matches.NonEmptyPairs() {
		weight := int64(len(matches[p]))
		if _, err := g.AddEdge(vertexID(p.I), vertexID(p.J), weight); err != nil {
			return nil, errors.InternalError(
				fmt.Sprintf("cannot add pair (%d,%d) to match graph", p.I, p.J), err)
		}
	}
	return g, nil
}

func vertexID(id scene.ViewID) string {
	return strconv.FormatUint(uint64(id), 10)
}
