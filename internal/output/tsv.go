package output

import (
	"fmt"
	"strings"

	"tangle/internal/engine/graph"
)

type TSVGenerator struct {
	index *graph.Index
}

func NewTSVGenerator(idx *graph.Index) *TSVGenerator {
	return &TSVGenerator{index: idx}
}

// Generate emits one row per edge, sorted by source then target so diffs
// between runs stay readable.
func (t *TSVGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("From\tTo\tSpecifier\tKind\tLine\n")

	for _, e := range t.index.EdgeList() {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%s\t%d\n",
			e.From, e.To, e.Specifier, e.Kind, e.Line))
	}

	return buf.String(), nil
}

// GenerateCycles emits one row per detected cycle, in the scored order
// produced by the analysis.
func (t *TSVGenerator) GenerateCycles(cycles []graph.CycleInfo) (string, error) {
	var buf strings.Builder

	buf.WriteString("Severity\tScore\tDependents\tSize\tFiles\n")
	for _, c := range cycles {
		buf.WriteString(fmt.Sprintf("%s\t%.2f\t%d\t%d\t%s\n",
			c.Severity,
			c.Score,
			c.DependentCount,
			len(c.Files),
			strings.Join(c.Files, ", "),
		))
	}

	return buf.String(), nil
}
