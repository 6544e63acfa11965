package matchgraph

import (
	"fmt"
	"os"
	"strings"

	"github.com/katalvlaran/lvlath/core"

	"github.com/openrecon/mvmatch/internal/errors"
)

// WriteDOT renders the view graph as Graphviz DOT so the pair topology can
// be inspected with standard tooling (dot, neato).
func WriteDOT(g *core.Graph, path string) error {
	var b strings.Builder
	b.WriteString("graph putative_matches {\n")
	b.WriteString("  node [shape=circle, fontsize=10];\n")

	for _, id := range g.Vertices() {
		fmt.Fprintf(&b, "  n%s [label=%q];\n", id, id)
	}
	for _, e := range g.Edges() {
		fmt.Fprintf(&b, "  n%s -- n%s [label=%q];\n", e.From, e.To, fmt.Sprint(e.Weight))
	}
	b.WriteString("}\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return errors.New(errors.ErrCodeExportFailed,
			fmt.Sprintf("cannot write graph file %q", path), err)
	}
	return nil
}
