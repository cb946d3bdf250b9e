package output

import (
	"fmt"
	"strings"
	"unicode"

	"tangle/internal/engine/graph"
)

// PlantUMLGenerator renders the dependency graph as a PlantUML component
// diagram. Cycle members are tinted by severity, referenced-but-unindexed
// files are grey and collapse into one aggregate node past the threshold.
type PlantUMLGenerator struct {
	index *graph.Index
	root  string
}

func NewPlantUMLGenerator(idx *graph.Index, root string) *PlantUMLGenerator {
	return &PlantUMLGenerator{index: idx, root: root}
}

func (p *PlantUMLGenerator) Generate(cycles []graph.CycleInfo) (string, error) {
	var b strings.Builder
	b.WriteString("@startuml\n")
	b.WriteString("skinparam componentStyle rectangle\n")
	b.WriteString("skinparam linetype ortho\n")
	b.WriteString("skinparam nodesep 80\n")
	b.WriteString("skinparam ranksep 100\n")
	b.WriteString("left to right direction\n\n")

	files := p.index.Files()
	edges := p.index.EdgeList()

	indexed := make(map[string]bool, len(files))
	for _, f := range files {
		indexed[f] = true
	}

	externalSet := make(map[string]bool)
	externalEdgeCounts := make(map[string]int)
	for _, e := range edges {
		if !indexed[e.To] {
			externalSet[e.To] = true
			externalEdgeCounts[e.From]++
		}
	}
	externals := sortedKeys(externalSet)
	aggregateExternal := len(externals) > externalAggregationThreshold

	display := make(map[string]string, len(files)+len(externals))
	allNames := make([]string, 0, len(files)+len(externals)+1)
	for _, path := range append(append([]string{}, files...), externals...) {
		display[path] = displayPath(p.root, path)
		allNames = append(allNames, display[path])
	}
	if aggregateExternal {
		allNames = append(allNames, externalAggregateNodeID)
	}
	aliases := makePlantUMLAliases(allNames)

	component, severity := cycleMembership(cycles)

	for _, path := range files {
		label := fmt.Sprintf("%s\\n(in=%d out=%d)",
			display[path], len(p.index.Incoming(path)), len(p.index.Outgoing(path)))
		color := ""
		if sev, ok := severity[path]; ok {
			color = " " + plantUMLSeverityColor(sev)
		}
		b.WriteString(fmt.Sprintf("component \"%s\" as %s%s\n",
			escapePlantUML(label), aliases[display[path]], color))
	}

	if aggregateExternal {
		b.WriteString(fmt.Sprintf("component \"Unindexed\\n(%d files)\" as %s #DDDDDD\n",
			len(externals), aliases[externalAggregateNodeID]))
	} else {
		for _, path := range externals {
			b.WriteString(fmt.Sprintf("component \"%s\" as %s #DDDDDD\n",
				escapePlantUML(display[path]), aliases[display[path]]))
		}
	}

	b.WriteString("\n")
	for _, e := range edges {
		if aggregateExternal && !indexed[e.To] {
			continue
		}
		from := aliases[display[e.From]]
		to := aliases[display[e.To]]

		fromComp, fromOK := component[e.From]
		toComp, toOK := component[e.To]
		switch {
		case fromOK && toOK && fromComp == toComp:
			b.WriteString(fmt.Sprintf("%s %s %s : CYCLE\n", from, plantUMLCycleArrow(severity[e.From]), to))
		case !indexed[e.To]:
			b.WriteString(fmt.Sprintf("%s -[#777777,dashed]-> %s\n", from, to))
		default:
			b.WriteString(fmt.Sprintf("%s --> %s\n", from, to))
		}
	}
	if aggregateExternal {
		for _, path := range files {
			count := externalEdgeCounts[path]
			if count == 0 {
				continue
			}
			b.WriteString(fmt.Sprintf("%s -[#777777,dashed]-> %s : ext:%d\n",
				aliases[display[path]], aliases[externalAggregateNodeID], count))
		}
	}

	b.WriteString("\nlegend right\n")
	b.WriteString("|= Item |= Meaning |\n")
	b.WriteString("|Node line 1|File path|\n")
	b.WriteString("|Node line 2|Fan-in and fan-out|\n")
	b.WriteString("|<color:#cc0000>Red edge</color>|Cycle edge (critical)|\n")
	b.WriteString("|<color:#e08000>Orange edge</color>|Cycle edge (moderate or low)|\n")
	b.WriteString("|<color:#DDDDDD>Grey component</color>|Referenced but not indexed|\n")
	b.WriteString("|ext:N|References to unindexed files (aggregated mode)|\n")
	b.WriteString("endlegend\n")

	b.WriteString("\n@enduml\n")
	return b.String(), nil
}

func plantUMLSeverityColor(sev graph.Severity) string {
	switch sev {
	case graph.SeverityCritical:
		return "#FFCCCC"
	case graph.SeverityModerate:
		return "#FFE4B5"
	default:
		return "#FFFFE0"
	}
}

func plantUMLCycleArrow(sev graph.Severity) string {
	switch sev {
	case graph.SeverityCritical:
		return "-[#cc0000,thickness=2]->"
	case graph.SeverityModerate:
		return "-[#e08000,thickness=2]->"
	default:
		return "-[#b8860b,thickness=2]->"
	}
}

func sanitizePlantUMLAlias(name string) string {
	if name == "" {
		return "m"
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	if out == "" {
		return "m"
	}
	first := rune(out[0])
	if unicode.IsDigit(first) {
		return "m_" + out
	}
	return out
}

func makePlantUMLAliases(names []string) map[string]string {
	aliases := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizePlantUMLAlias(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			aliases[name] = base
			continue
		}
		aliases[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return aliases
}

func escapePlantUML(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
