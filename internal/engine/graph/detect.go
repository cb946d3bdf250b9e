package graph

import (
	"strings"

	"tangle/internal/shared/util"
)

// dfsFrame is one level of the traversal in FindCyclesThrough. Frames
// live on a heap-allocated stack instead of the call stack, which keeps
// deep import chains from overflowing.
type dfsFrame struct {
	node string
	out  []string
	next int
}

// FindCyclesThrough walks forward edges depth-first from target and
// returns every cycle whose members include target. Cycles found along
// the way that do not pass through target are discarded. Rotations of
// the same loop collapse to the first form encountered.
//
// Nodes fully explored off the current path are never re-expanded, so a
// cycle reachable only through an already-explored node is reported once
// rather than per entry point.
func (idx *Index) FindCyclesThrough(target string) [][]string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	const (
		white = iota // unvisited
		gray         // on the current path
		black        // fully explored
	)

	color := make(map[string]int)
	pathPos := make(map[string]int) // gray node -> index in path
	path := make([]string, 0, 16)
	seen := make(map[string]bool)

	var cycles [][]string

	push := func(node string) dfsFrame {
		color[node] = gray
		pathPos[node] = len(path)
		path = append(path, node)
		return dfsFrame{node: node, out: util.SortedStringKeys(idx.forward[node])}
	}

	stack := []dfsFrame{push(target)}
	for len(stack) > 0 {
		frame := &stack[len(stack)-1]

		if frame.next >= len(frame.out) {
			color[frame.node] = black
			delete(pathPos, frame.node)
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
			continue
		}

		next := frame.out[frame.next]
		frame.next++

		if at, onPath := pathPos[next]; onPath {
			// The cycle runs from next's position on the path through
			// the current node; the closing edge back to next is implicit.
			cycle := append([]string(nil), path[at:]...)

			involvesTarget := false
			for _, f := range cycle {
				if f == target {
					involvesTarget = true
					break
				}
			}
			if !involvesTarget {
				continue
			}

			key := canonicalKey(cycle)
			if seen[key] {
				continue
			}
			seen[key] = true
			cycles = append(cycles, cycle)
			continue
		}

		if color[next] == black {
			continue
		}
		stack = append(stack, push(next))
	}

	return cycles
}

// canonicalKey rotates cycle so it starts at its lexicographically
// smallest member. Rotations of one loop share a key, which is how
// duplicates collapse while the first-seen ordering is kept.
func canonicalKey(cycle []string) string {
	if len(cycle) == 0 {
		return ""
	}
	start := 0
	for i := 1; i < len(cycle); i++ {
		if cycle[i] < cycle[start] {
			start = i
		}
	}
	rotated := make([]string, len(cycle))
	for i := range cycle {
		rotated[i] = cycle[(start+i)%len(cycle)]
	}
	return strings.Join(rotated, "\x00")
}
