package extract

import (
	"fmt"
	"strings"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"tangle/internal/core/errors"
	"tangle/internal/shared/observability"
)

// Extractor turns raw source text into module references. It is stateless
// apart from the loaded grammars and safe to share across scans.
type Extractor struct {
	languages map[Language]*sitter.Language
}

func NewExtractor() *Extractor {
	return &Extractor{
		languages: map[Language]*sitter.Language{
			LangJavaScript: sitter.NewLanguage(tree_sitter_javascript.Language()),
			LangTypeScript: sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
			LangTSX:        sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
		},
	}
}

// References parses source and returns every module specifier introduced by an
// import statement, a re-export with a source clause, a require call, or a
// dynamic import call. Duplicate specifiers collapse to their first occurrence.
// Syntax errors in the source never fail the call: tree-sitter produces ERROR
// nodes for unparsable regions, which simply contribute no references.
func (e *Extractor) References(path string, source []byte) ([]Reference, error) {
	lang := DetectLanguage(path)
	if lang == "" {
		return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("unsupported language: %s", path))
	}
	grammar := e.languages[lang]
	if grammar == nil {
		return nil, errors.New(errors.CodeInternal, fmt.Sprintf("grammar not loaded: %s", lang))
	}

	start := time.Now()
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeInternal, "parse failed")
	}
	defer tree.Close()

	acc := &refAccumulator{seen: make(map[string]bool)}
	collectReferences(tree.RootNode(), source, acc)

	observability.ParsingDuration.WithLabelValues(string(lang)).Observe(time.Since(start).Seconds())
	return acc.refs, nil
}

// LocalReferences filters References through the locality rule (IsLocal):
// relative specifiers always pass, alias-prefixed specifiers pass when
// matchesAlias accepts them, bare package names and scoped packages with a
// path segment are dropped.
func (e *Extractor) LocalReferences(path string, source []byte, matchesAlias func(string) bool) ([]Reference, error) {
	refs, err := e.References(path, source)
	if err != nil {
		return nil, err
	}
	local := make([]Reference, 0, len(refs))
	for _, ref := range refs {
		if IsLocal(ref.Specifier, matchesAlias) {
			local = append(local, ref)
		}
	}
	return local, nil
}

type refAccumulator struct {
	seen map[string]bool
	refs []Reference
}

func (a *refAccumulator) add(spec string, kind RefKind, node *sitter.Node) {
	if spec == "" || a.seen[spec] {
		return
	}
	a.seen[spec] = true
	a.refs = append(a.refs, Reference{
		Specifier: spec,
		Kind:      kind,
		Line:      int(node.StartPosition().Row) + 1,
		Column:    int(node.StartPosition().Column) + 1,
	})
}

// collectReferences walks the AST depth-first, picking up every construct that
// introduces a module specifier. require/import() calls can appear anywhere in
// the file, so the whole tree is visited.
func collectReferences(node *sitter.Node, source []byte, acc *refAccumulator) {
	if node == nil {
		return
	}

	switch node.Kind() {
	case "import_statement":
		// import d from "x" | import {a, b} from "x" | import * as ns from "x"
		// import "x" | import type {T} from "x"
		if src := node.ChildByFieldName("source"); src != nil {
			acc.add(specifierText(src, source), KindImport, src)
		}

	case "export_statement":
		// export * from "x" | export {a} from "x" | export type {T} from "x"
		// Plain exports have no source field and are skipped.
		if src := node.ChildByFieldName("source"); src != nil {
			acc.add(specifierText(src, source), KindReExport, src)
		}

	case "import_require_clause":
		// import x = require("x")  (TypeScript)
		if src := node.ChildByFieldName("source"); src != nil {
			acc.add(specifierText(src, source), KindRequire, src)
		}

	case "call_expression":
		if spec, kind, strNode := callSpecifier(node, source); strNode != nil {
			acc.add(spec, kind, strNode)
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		collectReferences(node.Child(i), source, acc)
	}
}

// callSpecifier extracts the string argument of require("x") or import("x").
// Non-literal arguments (template strings, expressions) are not extracted.
func callSpecifier(node *sitter.Node, source []byte) (string, RefKind, *sitter.Node) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return "", "", nil
	}

	var kind RefKind
	switch {
	case fn.Kind() == "import":
		kind = KindDynamic
	case fn.Kind() == "identifier" && nodeText(fn, source) == "require":
		kind = KindRequire
	default:
		return "", "", nil
	}

	args := node.ChildByFieldName("arguments")
	if args == nil {
		return "", "", nil
	}
	for i := uint(0); i < args.ChildCount(); i++ {
		arg := args.Child(i)
		if arg != nil && arg.Kind() == "string" {
			return specifierText(arg, source), kind, arg
		}
	}
	return "", "", nil
}

// specifierText returns a string node's content with the surrounding quotes
// stripped.
func specifierText(node *sitter.Node, source []byte) string {
	return strings.Trim(nodeText(node, source), "\"'`")
}

// nodeText returns the source bytes spanned by a node as a trimmed string.
func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start >= end || end > uint(len(source)) {
		return ""
	}
	return strings.TrimSpace(string(source[start:end]))
}
