package extract

import (
	"path/filepath"
	"strings"
)

// Language identifies the grammar used to parse a source file.
type Language string

const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
)

// RefKind classifies the construct that introduced a module reference.
// It is informational (reports, TSV output); the graph treats all kinds alike.
type RefKind string

const (
	KindImport   RefKind = "import"
	KindReExport RefKind = "reexport"
	KindRequire  RefKind = "require"
	KindDynamic  RefKind = "dynamic-import"
)

// Reference is one module specifier found in a source file.
type Reference struct {
	Specifier string
	Kind      RefKind
	Line      int
	Column    int
}

// DetectLanguage maps a file extension to its Language, or "" when the file
// is not a supported source file.
func DetectLanguage(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return LangJavaScript
	case ".ts", ".mts", ".cts":
		return LangTypeScript
	case ".tsx":
		return LangTSX
	}
	return ""
}

// SupportedExtensions lists every extension DetectLanguage accepts, in the
// order the resolver probes them.
func SupportedExtensions() []string {
	return []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".mts", ".cts"}
}

// IsLocal reports whether a specifier refers to a file inside the project
// rather than a third-party package. matchesAlias is consulted for non-relative
// specifiers when an alias table is loaded; when nil (no alias information),
// a specifier starting with "@" and carrying no second path segment is treated
// as a probable configured alias, while scoped packages like "@org/pkg" are not.
func IsLocal(specifier string, matchesAlias func(string) bool) bool {
	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
		return true
	}
	if matchesAlias != nil {
		return matchesAlias(specifier)
	}
	return strings.HasPrefix(specifier, "@") && !strings.Contains(specifier[1:], "/")
}
