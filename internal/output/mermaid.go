package output

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"tangle/internal/engine/graph"
)

type MermaidGenerator struct {
	index *graph.Index
	root  string
}

const externalAggregationThreshold = 10

const externalAggregateNodeID = "__external_aggregate__"

func NewMermaidGenerator(idx *graph.Index, root string) *MermaidGenerator {
	return &MermaidGenerator{index: idx, root: root}
}

func (m *MermaidGenerator) Generate(cycles []graph.CycleInfo) (string, error) {
	var b strings.Builder
	b.WriteString("%%{init: {'flowchart': {'nodeSpacing': 80, 'rankSpacing': 110, 'curve': 'basis'}}}%%\n")
	b.WriteString("flowchart LR\n")

	files := m.index.Files()
	edges := m.index.EdgeList()

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
		display[path] = displayPath(m.root, path)
		allNames = append(allNames, display[path])
	}
	if aggregateExternal {
		allNames = append(allNames, externalAggregateNodeID)
	}
	ids := makeMermaidIDs(allNames)

	component, _ := cycleMembership(cycles)

	for _, path := range files {
		label := fmt.Sprintf("%s\\n(in=%d out=%d)", display[path], len(m.index.Incoming(path)), len(m.index.Outgoing(path)))
		b.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", ids[display[path]], escapeMermaidLabel(label)))
	}
	if aggregateExternal {
		b.WriteString(fmt.Sprintf("  %s[\"Unindexed\\n(%d files)\"]\n", ids[externalAggregateNodeID], len(externals)))
	} else {
		for _, path := range externals {
			b.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", ids[display[path]], escapeMermaidLabel(display[path])))
		}
	}

	b.WriteString("\n")
	if len(files) > 0 {
		b.WriteString("  classDef internalNode fill:#f7fbff,stroke:#4d6480,stroke-width:1px;\n")
		b.WriteString("  class ")
		b.WriteString(strings.Join(toIDs(displayNames(files, display), ids), ","))
		b.WriteString(" internalNode;\n")
	}
	if len(externals) > 0 {
		b.WriteString("  classDef externalNode fill:#efefef,stroke:#808080,stroke-dasharray:4 3;\n")
		if aggregateExternal {
			b.WriteString(fmt.Sprintf("  class %s externalNode;\n", ids[externalAggregateNodeID]))
		} else {
			b.WriteString("  class ")
			b.WriteString(strings.Join(toIDs(displayNames(externals, display), ids), ","))
			b.WriteString(" externalNode;\n")
		}
	}
	cycleFiles := make([]string, 0)
	for _, path := range files {
		if _, ok := component[path]; ok {
			cycleFiles = append(cycleFiles, path)
		}
	}
	if len(cycleFiles) > 0 {
		b.WriteString("  classDef cycleNode fill:#ffecec,stroke:#cc0000,stroke-width:2px;\n")
		b.WriteString("  class ")
		b.WriteString(strings.Join(toIDs(displayNames(cycleFiles, display), ids), ","))
		b.WriteString(" cycleNode;\n")
	}

	b.WriteString("\n")
	linkIndex := 0
	cycleLinkIndexes := make([]int, 0)
	externalLinkIndexes := make([]int, 0)
	for _, e := range edges {
		if aggregateExternal && !indexed[e.To] {
			continue
		}
		edgeLabel := ""
		fromComp, fromOK := component[e.From]
		toComp, toOK := component[e.To]
		if fromOK && toOK && fromComp == toComp {
			edgeLabel = "|CYCLE|"
			cycleLinkIndexes = append(cycleLinkIndexes, linkIndex)
		} else if !indexed[e.To] {
			externalLinkIndexes = append(externalLinkIndexes, linkIndex)
		}
		b.WriteString(fmt.Sprintf("  %s -->%s %s\n", ids[display[e.From]], edgeLabel, ids[display[e.To]]))
		linkIndex++
	}
	if aggregateExternal {
		for _, path := range files {
			count := externalEdgeCounts[path]
			if count == 0 {
				continue
			}
			b.WriteString(fmt.Sprintf("  %s -->|ext:%d| %s\n", ids[display[path]], count, ids[externalAggregateNodeID]))
			externalLinkIndexes = append(externalLinkIndexes, linkIndex)
			linkIndex++
		}
	}

	if len(cycleLinkIndexes) > 0 || len(externalLinkIndexes) > 0 {
		b.WriteString("\n")
	}
	if len(cycleLinkIndexes) > 0 {
		b.WriteString(fmt.Sprintf("  linkStyle %s stroke:#cc0000,stroke-width:3px;\n", joinInts(cycleLinkIndexes)))
	}
	if len(externalLinkIndexes) > 0 {
		b.WriteString(fmt.Sprintf("  linkStyle %s stroke:#777777,stroke-dasharray:4 3;\n", joinInts(externalLinkIndexes)))
	}
	b.WriteString("\n")
	b.WriteString("  subgraph legend_info[\"Legend\"]\n")
	b.WriteString("    legend_nodes[\"Node line 1: file path\\nline 2: fan-in/fan-out\\nred border: cycle member\"]\n")
	b.WriteString("    legend_edges[\"Edge labels: CYCLE=import cycle, ext:N=references to unindexed files\"]\n")
	b.WriteString("  end\n")
	b.WriteString("  classDef legendNode fill:#fff8dc,stroke:#b8a24c,stroke-width:1px;\n")
	b.WriteString("  class legend_nodes,legend_edges legendNode;\n")

	return b.String(), nil
}

// cycleMembership maps every file that belongs to a cycle to the index of
// its cycle and to that cycle's severity. Cycles never share members, so
// the mapping is unambiguous.
func cycleMembership(cycles []graph.CycleInfo) (map[string]int, map[string]graph.Severity) {
	component := make(map[string]int)
	severity := make(map[string]graph.Severity)
	for i, c := range cycles {
		for _, f := range c.Files {
			component[f] = i
			severity[f] = c.Severity
		}
	}
	return component, severity
}

// displayPath shortens path relative to root for labels. Paths outside the
// root keep their canonical form.
func displayPath(root, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func displayNames(paths []string, display map[string]string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, display[p])
	}
	return out
}

func sanitizeMermaidID(name string) string {
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

func makeMermaidIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeMermaidID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func escapeMermaidLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func toIDs(names []string, ids map[string]string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if id, ok := ids[name]; ok {
			out = append(out, id)
		}
	}
	return out
}

func joinInts(v []int) string {
	if len(v) == 0 {
		return ""
	}
	parts := make([]string, 0, len(v))
	for _, n := range v {
		parts = append(parts, fmt.Sprintf("%d", n))
	}
	return strings.Join(parts, ",")
}
