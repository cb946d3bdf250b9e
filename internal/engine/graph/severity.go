package graph

import (
	"sort"

	"tangle/internal/shared/util"
)

// Severity buckets a cycle's score into the three levels surfaced to users.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityModerate Severity = "moderate"
	SeverityLow      Severity = "low"
)

// CycleInfo describes one strongly connected component of the dependency
// graph: its member files (sorted), how many outside files depend on it,
// and the severity derived from both.
type CycleInfo struct {
	Files          []string
	Severity       Severity
	Score          float64
	DependentCount int
}

// GroupedCycles partitions scored cycles by severity label, preserving
// the score ordering inside each group.
type GroupedCycles struct {
	Critical []CycleInfo
	Moderate []CycleInfo
	Low      []CycleInfo
}

// SeverityPolicy holds the tunable constants behind cycle scoring:
//
//	score = LengthWeight*lengthScore + DependentWeight*dependentScore
//
// lengthScore is ShortScore for cycles of at most ShortLength files,
// MediumScore up to MediumLength files, LongScore beyond that; a tight
// two-file loop is usually a misplaced abstraction and outranks a long
// meandering one. dependentScore is dependentCount over the number of
// indexed files, capped at 1.0, and 0 when the index is empty.
type SeverityPolicy struct {
	LengthWeight    float64
	DependentWeight float64

	ShortLength  int
	MediumLength int
	ShortScore   float64
	MediumScore  float64
	LongScore    float64

	CriticalCutoff float64
	ModerateCutoff float64
}

// DefaultSeverityPolicy returns the stock weights and cutoffs.
func DefaultSeverityPolicy() SeverityPolicy {
	return SeverityPolicy{
		LengthWeight:    0.4,
		DependentWeight: 0.6,
		ShortLength:     2,
		MediumLength:    4,
		ShortScore:      1.0,
		MediumScore:     0.6,
		LongScore:       0.3,
		CriticalCutoff:  0.5,
		ModerateCutoff:  0.25,
	}
}

func (p SeverityPolicy) lengthScore(size int) float64 {
	switch {
	case size <= p.ShortLength:
		return p.ShortScore
	case size <= p.MediumLength:
		return p.MediumScore
	default:
		return p.LongScore
	}
}

func (p SeverityPolicy) dependentScore(dependents, totalFiles int) float64 {
	if totalFiles == 0 {
		return 0
	}
	score := float64(dependents) / float64(totalFiles)
	if score > 1.0 {
		return 1.0
	}
	return score
}

// Score combines the length and dependent components for a cycle of the
// given size in an index of totalFiles files.
func (p SeverityPolicy) Score(size, dependents, totalFiles int) float64 {
	return p.LengthWeight*p.lengthScore(size) + p.DependentWeight*p.dependentScore(dependents, totalFiles)
}

// Label maps a score onto a severity level.
func (p SeverityPolicy) Label(score float64) Severity {
	switch {
	case score >= p.CriticalCutoff:
		return SeverityCritical
	case score >= p.ModerateCutoff:
		return SeverityModerate
	default:
		return SeverityLow
	}
}

// FindAllCycles runs a Tarjan strongly-connected-components pass over the
// forward graph and scores every component with more than one member. A
// file that only imports itself is not reported. Results come back in
// descending score order; equal scores keep discovery order.
func (idx *Index) FindAllCycles(policy SeverityPolicy) []CycleInfo {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	nodeSet := make(map[string]bool, len(idx.files))
	for f := range idx.files {
		nodeSet[f] = true
	}
	for from, targets := range idx.forward {
		nodeSet[from] = true
		for to := range targets {
			nodeSet[to] = true
		}
	}

	nodes := util.SortedStringKeys(nodeSet)
	adjacency := make(map[string][]string, len(nodes))
	for _, from := range nodes {
		adjacency[from] = util.SortedStringKeys(idx.forward[from])
	}

	_, components := stronglyConnectedComponents(nodes, adjacency)

	totalFiles := len(idx.files)
	cycles := make([]CycleInfo, 0)
	for _, component := range components {
		if len(component) < 2 {
			continue
		}

		members := make(map[string]bool, len(component))
		for _, f := range component {
			members[f] = true
		}

		// Distinct files outside the component that reference into it.
		dependents := make(map[string]bool)
		for _, f := range component {
			for from := range idx.reverse[f] {
				if !members[from] {
					dependents[from] = true
				}
			}
		}

		score := policy.Score(len(component), len(dependents), totalFiles)
		cycles = append(cycles, CycleInfo{
			Files:          component,
			Severity:       policy.Label(score),
			Score:          score,
			DependentCount: len(dependents),
		})
	}

	sort.SliceStable(cycles, func(i, j int) bool {
		return cycles[i].Score > cycles[j].Score
	})

	return cycles
}

// GroupBySeverity splits cycles into per-severity buckets without
// reordering them.
func GroupBySeverity(cycles []CycleInfo) GroupedCycles {
	var grouped GroupedCycles
	for _, c := range cycles {
		switch c.Severity {
		case SeverityCritical:
			grouped.Critical = append(grouped.Critical, c)
		case SeverityModerate:
			grouped.Moderate = append(grouped.Moderate, c)
		default:
			grouped.Low = append(grouped.Low, c)
		}
	}
	return grouped
}

func stronglyConnectedComponents(nodes []string, adjacency map[string][]string) (map[string]int, [][]string) {
	index := 0
	stack := make([]string, 0, len(nodes))
	onStack := make(map[string]bool, len(nodes))
	indexByNode := make(map[string]int, len(nodes))
	lowLink := make(map[string]int, len(nodes))
	componentOf := make(map[string]int, len(nodes))
	components := make([][]string, 0)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indexByNode[v] = index
		lowLink[v] = index
		index++

		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adjacency[v] {
			if _, seen := indexByNode[w]; !seen {
				strongConnect(w)
				if lowLink[w] < lowLink[v] {
					lowLink[v] = lowLink[w]
				}
			} else if onStack[w] && indexByNode[w] < lowLink[v] {
				lowLink[v] = indexByNode[w]
			}
		}

		if lowLink[v] != indexByNode[v] {
			return
		}

		component := make([]string, 0)
		for {
			last := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[last] = false
			component = append(component, last)
			if last == v {
				break
			}
		}
		sort.Strings(component)
		compID := len(components)
		components = append(components, component)
		for _, n := range component {
			componentOf[n] = compID
		}
	}

	for _, node := range nodes {
		if _, seen := indexByNode[node]; !seen {
			strongConnect(node)
		}
	}

	return componentOf, components
}
