package resolve

import "strings"

// Alias maps a specifier prefix to an absolute base path.
type Alias struct {
	Prefix string // cleaned prefix, wildcard stripped ("@/*" registers as "@/")
	Target string // absolute path substituted for the prefix
}

// AliasTable holds the project's path aliases in registration order.
// Registration order is the tie-break when two matching prefixes have equal
// length, so entries live in a slice, never a map.
type AliasTable struct {
	aliases []Alias
	baseDir string
}

// NewAliasTable returns an empty table rooted at baseDir (the directory of the
// configuration file that produced it, or the project root when none exists).
func NewAliasTable(baseDir string) *AliasTable {
	return &AliasTable{baseDir: baseDir}
}

func (t *AliasTable) Register(prefix, target string) {
	if prefix == "" || target == "" {
		return
	}
	t.aliases = append(t.aliases, Alias{Prefix: prefix, Target: target})
}

func (t *AliasTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.aliases)
}

func (t *AliasTable) BaseDir() string {
	if t == nil {
		return ""
	}
	return t.baseDir
}

// Aliases returns a copy of the registered aliases in registration order.
func (t *AliasTable) Aliases() []Alias {
	if t == nil {
		return nil
	}
	return append([]Alias(nil), t.aliases...)
}

// Match returns the alias whose prefix matches specifier, preferring the
// longest prefix. Equal-length ties keep the first registered entry.
func (t *AliasTable) Match(specifier string) (Alias, bool) {
	if t == nil {
		return Alias{}, false
	}
	best := -1
	for i := range t.aliases {
		prefix := t.aliases[i].Prefix
		if specifier != prefix && !strings.HasPrefix(specifier, prefix) {
			continue
		}
		if best < 0 || len(prefix) > len(t.aliases[best].Prefix) {
			best = i
		}
	}
	if best < 0 {
		return Alias{}, false
	}
	return t.aliases[best], true
}

// Matcher returns a locality predicate for the extractor, or nil when the
// table is empty so the extractor falls back to its bare-@ heuristic.
func (t *AliasTable) Matcher() func(string) bool {
	if t.Len() == 0 {
		return nil
	}
	return func(specifier string) bool {
		_, ok := t.Match(specifier)
		return ok
	}
}
