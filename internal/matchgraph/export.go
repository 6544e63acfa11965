package matchgraph

import (
	"context"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/openrecon/mvmatch/internal/match"
	"github.com/openrecon/mvmatch/internal/scene"
)

// Diagnostic export file names, written next to the match file.
const (
	AdjacencyFile = "putative_adjacency_matrix.svg"
	GraphFile     = "putative_matches.dot"
)

// Export writes both diagnostics for a match result into dir. The two files
// are independent and rendered concurrently; the first failure is returned.
func Export(ctx context.Context, catalog *scene.Catalog, matches match.Matches, dir string) error {
	g, err := Build(catalog, matches)
	if err != nil {
		return err
	}

	eg, _ := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return WriteAdjacencySVG(catalog, matches, filepath.Join(dir, AdjacencyFile))
	})
	eg.Go(func() error {
		return WriteDOT(g, filepath.Join(dir, GraphFile))
	})
	return eg.Wait()
}
