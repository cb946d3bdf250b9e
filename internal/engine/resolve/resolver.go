package resolve

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtensions is the probe order for extension and index-file fallback.
// TypeScript sources outrank JavaScript so `./util` prefers util.ts when both
// exist.
func DefaultExtensions() []string {
	return []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}
}

// Resolver maps extracted specifiers to canonical absolute file paths. It is
// a pure lookup against the file system at call time: it never creates or
// modifies files, and a specifier that fails today may resolve after the file
// appears.
type Resolver struct {
	table      *AliasTable
	extensions []string
}

func NewResolver(table *AliasTable, extensions []string) *Resolver {
	if len(extensions) == 0 {
		extensions = DefaultExtensions()
	}
	return &Resolver{table: table, extensions: extensions}
}

func (r *Resolver) Table() *AliasTable {
	return r.table
}

// Resolve returns the canonical absolute path the specifier denotes when
// written in fromFile. ok is false when the specifier is neither relative nor
// alias-matched, or when no probe candidate exists as a regular file; both
// are recoverable conditions that simply omit the edge.
func (r *Resolver) Resolve(specifier, fromFile string) (string, bool) {
	var base string
	switch {
	case strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../"):
		base = filepath.Join(filepath.Dir(fromFile), specifier)
	default:
		alias, ok := r.table.Match(specifier)
		if !ok {
			return "", false
		}
		base = filepath.Join(alias.Target, strings.TrimPrefix(specifier, alias.Prefix))
	}

	if abs, err := filepath.Abs(base); err == nil {
		base = abs
	}

	for _, candidate := range r.probeCandidates(base) {
		if isRegularFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// probeCandidates returns, in priority order: the bare path, the path with
// each extension appended, then the directory-style index file per extension.
func (r *Resolver) probeCandidates(base string) []string {
	candidates := make([]string, 0, 1+2*len(r.extensions))
	candidates = append(candidates, base)
	for _, ext := range r.extensions {
		candidates = append(candidates, base+ext)
	}
	for _, ext := range r.extensions {
		candidates = append(candidates, filepath.Join(base, "index"+ext))
	}
	return candidates
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
