package output

import (
	"fmt"
	"strings"

	"tangle/internal/engine/graph"
)

// DOTGenerator renders the dependency graph as Graphviz DOT. Files that
// belong to a cycle are colored by the cycle's severity, files that are
// referenced but never indexed are drawn greyed out.
type DOTGenerator struct {
	index *graph.Index
	root  string
}

// NewDOTGenerator returns a generator that labels nodes relative to root.
// An empty root keeps the canonical absolute paths.
func NewDOTGenerator(idx *graph.Index, root string) *DOTGenerator {
	return &DOTGenerator{index: idx, root: root}
}

func (d *DOTGenerator) Generate(cycles []graph.CycleInfo) (string, error) {
	var buf strings.Builder

	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  ranksep=1.5;\n")
	buf.WriteString("  nodesep=0.6;\n")
	buf.WriteString("  splines=polyline;\n")
	buf.WriteString("  overlap=false;\n\n")

	component, severity := cycleMembership(cycles)

	files := d.index.Files()
	edges := d.index.EdgeList()

	indexed := make(map[string]bool, len(files))
	for _, f := range files {
		indexed[f] = true
	}

	// Targets that were resolved but never indexed themselves, for example
	// files under an excluded directory.
	referenced := make(map[string]bool)
	for _, e := range edges {
		if !indexed[e.To] {
			referenced[e.To] = true
		}
	}

	buf.WriteString("  subgraph cluster_workspace {\n")
	buf.WriteString("    label=\"Workspace Files\";\n")
	buf.WriteString("    style=filled;\n")
	buf.WriteString("    color=\"whitesmoke\";\n")
	buf.WriteString("    node [fillcolor=\"white\", style=\"rounded,filled\"];\n")

	for _, path := range files {
		name := displayPath(d.root, path)
		label := fmt.Sprintf("%s\\n(in=%d, out=%d)", name, len(d.index.Incoming(path)), len(d.index.Outgoing(path)))

		if sev, ok := severity[path]; ok {
			buf.WriteString(fmt.Sprintf("    \"%s\" [label=\"%s\", %s];\n", name, label, cycleNodeStyle(sev)))
		} else {
			buf.WriteString(fmt.Sprintf("    \"%s\" [label=\"%s\", color=\"darkslategrey\"];\n", name, label))
		}
	}
	buf.WriteString("  }\n\n")

	buf.WriteString("  // Referenced but not indexed\n")
	buf.WriteString("  node [fillcolor=\"gainsboro\", style=\"rounded,filled\", color=\"grey\"];\n")
	for _, path := range sortedKeys(referenced) {
		name := displayPath(d.root, path)
		buf.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\"];\n", name, name))
	}
	buf.WriteString("\n")

	for _, e := range edges {
		from := displayPath(d.root, e.From)
		to := displayPath(d.root, e.To)

		fromComp, fromOK := component[e.From]
		toComp, toOK := component[e.To]

		if fromOK && toOK && fromComp == toComp {
			buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [%s];\n", from, to, cycleEdgeStyle(severity[e.From])))
		} else if indexed[e.To] {
			buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"forestgreen\", penwidth=1.8];\n", from, to))
		} else {
			buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"grey\", style=dashed];\n", from, to))
		}
	}

	buf.WriteString("\n  subgraph cluster_legend {\n")
	buf.WriteString("    label=\"Legend\";\n")
	buf.WriteString("    style=dashed;\n")
	buf.WriteString("    legend_indexed [label=\"Indexed File\", fillcolor=\"white\", style=\"rounded,filled\"];\n")
	buf.WriteString("    legend_referenced [label=\"Referenced Only\", fillcolor=\"gainsboro\", style=\"rounded,filled\"];\n")
	buf.WriteString("    legend_critical [label=\"Critical Cycle\", fillcolor=\"mistyrose\", color=\"red\", style=\"rounded,filled\"];\n")
	buf.WriteString("    legend_moderate [label=\"Moderate Cycle\", fillcolor=\"moccasin\", color=\"darkorange\", style=\"rounded,filled\"];\n")
	buf.WriteString("    legend_low [label=\"Low Cycle\", fillcolor=\"lightyellow\", color=\"goldenrod\", style=\"rounded,filled\"];\n")
	buf.WriteString("    legend_edge [label=\"Import Edge\", shape=plaintext, fontcolor=\"forestgreen\"];\n")
	buf.WriteString("  }\n")

	buf.WriteString("}\n")

	return buf.String(), nil
}

func cycleNodeStyle(sev graph.Severity) string {
	switch sev {
	case graph.SeverityCritical:
		return "fillcolor=\"mistyrose\", color=\"red\", penwidth=2.0"
	case graph.SeverityModerate:
		return "fillcolor=\"moccasin\", color=\"darkorange\", penwidth=2.0"
	default:
		return "fillcolor=\"lightyellow\", color=\"goldenrod\", penwidth=1.6"
	}
}

func cycleEdgeStyle(sev graph.Severity) string {
	switch sev {
	case graph.SeverityCritical:
		return "color=\"red\", penwidth=3.0, label=\"CYCLE\""
	case graph.SeverityModerate:
		return "color=\"darkorange\", penwidth=2.4, label=\"CYCLE\""
	default:
		return "color=\"goldenrod\", penwidth=2.0, label=\"CYCLE\""
	}
}
