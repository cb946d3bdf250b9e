package graph

import (
	"sync"

	"tangle/internal/engine/extract"
	"tangle/internal/shared/observability"
	"tangle/internal/shared/util"
)

// Edge is one resolved reference between two files. From and To are
// canonical absolute paths; Specifier is the raw text that appeared in
// the source.
type Edge struct {
	From      string
	To        string
	Specifier string
	Kind      extract.RefKind
	Line      int
}

// Index holds the project dependency graph. forward and reverse are kept
// mutually consistent on every update: to ∈ forward[from] exactly when
// from ∈ reverse[to]. Empty reverse sets are pruned, never left dangling.
type Index struct {
	mu sync.RWMutex

	files   map[string]bool             // every indexed file, with or without edges
	forward map[string]map[string]*Edge // from -> to -> edge
	reverse map[string]map[string]bool  // to -> from
}

func NewIndex() *Index {
	return &Index{
		files:   make(map[string]bool),
		forward: make(map[string]map[string]*Edge),
		reverse: make(map[string]map[string]bool),
	}
}

// SetFile replaces every edge owned by path with the given edges. Prior
// contributions are removed first, so calling it again for an unchanged
// file is a no-op on the edge sets. Edge.From is overwritten with path;
// when two edges share a target, the first one wins.
func (idx *Index) SetFile(path string, edges []Edge) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeFileLocked(path)
	idx.files[path] = true

	for _, e := range edges {
		e.From = path
		if idx.forward[path] == nil {
			idx.forward[path] = make(map[string]*Edge, len(edges))
		}
		if _, dup := idx.forward[path][e.To]; dup {
			continue
		}
		edge := e
		idx.forward[path][e.To] = &edge

		if idx.reverse[e.To] == nil {
			idx.reverse[e.To] = make(map[string]bool)
		}
		idx.reverse[e.To][path] = true
	}

	idx.publishSizeLocked()
}

// RemoveFile drops path and its outgoing edges from the index. Edges
// pointing at path from other files stay until their owners re-index.
func (idx *Index) RemoveFile(path string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeFileLocked(path)
	idx.publishSizeLocked()
}

func (idx *Index) removeFileLocked(path string) {
	for to := range idx.forward[path] {
		if refs := idx.reverse[to]; refs != nil {
			delete(refs, path)
			if len(refs) == 0 {
				delete(idx.reverse, to)
			}
		}
	}
	delete(idx.forward, path)
	delete(idx.files, path)
}

// Clear wipes the whole index ahead of a full rebuild.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.files = make(map[string]bool)
	idx.forward = make(map[string]map[string]*Edge)
	idx.reverse = make(map[string]map[string]bool)
	idx.publishSizeLocked()
}

// Outgoing returns the files that path references, sorted. A path with
// no entry yields an empty slice.
func (idx *Index) Outgoing(path string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return util.SortedStringKeys(idx.forward[path])
}

// Incoming returns the files that reference path, sorted. A path with no
// entry yields an empty slice.
func (idx *Index) Incoming(path string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return util.SortedStringKeys(idx.reverse[path])
}

// OutgoingEdges returns path's edges with their reference metadata,
// sorted by target.
func (idx *Index) OutgoingEdges(path string) []Edge {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	targets := util.SortedStringKeys(idx.forward[path])
	edges := make([]Edge, 0, len(targets))
	for _, to := range targets {
		edges = append(edges, *idx.forward[path][to])
	}
	return edges
}

// EdgeList returns every edge in the index, sorted by source then target.
func (idx *Index) EdgeList() []Edge {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	edges := make([]Edge, 0)
	for _, from := range util.SortedStringKeys(idx.forward) {
		for _, to := range util.SortedStringKeys(idx.forward[from]) {
			edges = append(edges, *idx.forward[from][to])
		}
	}
	return edges
}

// Files returns every indexed file, sorted.
func (idx *Index) Files() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return util.SortedStringKeys(idx.files)
}

func (idx *Index) Contains(path string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.files[path]
}

func (idx *Index) FileCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.files)
}

func (idx *Index) EdgeCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.edgeCountLocked()
}

func (idx *Index) edgeCountLocked() int {
	count := 0
	for _, targets := range idx.forward {
		count += len(targets)
	}
	return count
}

func (idx *Index) publishSizeLocked() {
	observability.GraphFiles.Set(float64(len(idx.files)))
	observability.GraphEdges.Set(float64(idx.edgeCountLocked()))
}
