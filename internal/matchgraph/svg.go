package matchgraph

import (
	"fmt"
	"os"
	"strings"

	"github.com/openrecon/mvmatch/internal/errors"
	"github.com/openrecon/mvmatch/internal/match"
	"github.com/openrecon/mvmatch/internal/scene"
)

// svgCell is the side length of one adjacency matrix cell in pixels.
const svgCell = 5

// WriteAdjacencySVG renders the pairwise match result as an n-by-n adjacency
// matrix: a filled cell at (i,j) and its mirror (j,i) marks a pair with at
// least one retained correspondence. Views index the matrix by their position
// in the sorted view id list, so the image stays stable across runs.
func WriteAdjacencySVG(catalog *scene.Catalog, matches match.Matches, path string) error {
	ids := catalog.ViewIDs()
	row := make(map[scene.ViewID]int, len(ids))
	for i, id := range ids {
		row[id] = i
	}
	n := len(ids)
	side := n * svgCell

	var b strings.Builder
	fmt.Fprintf(&b,
		"<svg xmlns=\"http://www.w3.org/2000/svg\" width=\"%d\" height=\"%d\" viewBox=\"0 0 %d %d\">\n",
		side, side, side, side)

	// Diagonal reference, one cell per view.
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b,
			"<rect x=\"%d\" y=\"%d\" width=\"%d\" height=\"%d\" fill=\"lightgray\"/>\n",
			i*svgCell, i*svgCell, svgCell, svgCell)
	}

	for _, p := range matches.NonEmptyPairs() {
		i, j := row[p.I], row[p.J]
		writeCell(&b, j, i)
		writeCell(&b, i, j)
	}

	// Matrix frame.
	fmt.Fprintf(&b,
		"<rect x=\"0\" y=\"0\" width=\"%d\" height=\"%d\" fill=\"none\" stroke=\"black\" stroke-width=\"1\"/>\n",
		side, side)
	b.WriteString("</svg>\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return errors.New(errors.ErrCodeExportFailed,
			fmt.Sprintf("cannot write adjacency matrix %q", path), err)
	}
	return nil
}

func writeCell(b *strings.Builder, col, row int) {
	fmt.Fprintf(b,
		"<rect x=\"%d\" y=\"%d\" width=\"%d\" height=\"%d\" fill=\"blue\"/>\n",
		col*svgCell, row*svgCell, svgCell, svgCell)
}
