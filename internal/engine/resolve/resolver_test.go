package resolve

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("export {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveRelative(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "util.ts"))
	writeFile(t, filepath.Join(root, "src", "app.ts"))

	r := NewResolver(NewAliasTable(root), nil)

	got, ok := r.Resolve("./util", filepath.Join(root, "src", "app.ts"))
	if !ok {
		t.Fatal("expected ./util to resolve")
	}
	if got != filepath.Join(root, "src", "util.ts") {
		t.Errorf("resolved to %s", got)
	}
}

func TestResolveParentRelative(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "shared", "api.ts"))
	writeFile(t, filepath.Join(root, "src", "views", "page.ts"))

	r := NewResolver(NewAliasTable(root), nil)

	got, ok := r.Resolve("../shared/api", filepath.Join(root, "src", "views", "page.ts"))
	if !ok {
		t.Fatal("expected ../shared/api to resolve")
	}
	if got != filepath.Join(root, "src", "shared", "api.ts") {
		t.Errorf("resolved to %s", got)
	}
}

func TestResolveExactFileBeforeExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "data.json"))
	writeFile(t, filepath.Join(root, "data.json.ts"))
	writeFile(t, filepath.Join(root, "app.ts"))

	r := NewResolver(NewAliasTable(root), nil)

	got, ok := r.Resolve("./data.json", filepath.Join(root, "app.ts"))
	if !ok {
		t.Fatal("expected ./data.json to resolve")
	}
	if got != filepath.Join(root, "data.json") {
		t.Errorf("expected the bare path to win, got %s", got)
	}
}

func TestResolveFileBeforeIndex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "util.ts"))
	writeFile(t, filepath.Join(root, "util", "index.ts"))
	writeFile(t, filepath.Join(root, "app.ts"))

	r := NewResolver(NewAliasTable(root), nil)

	got, ok := r.Resolve("./util", filepath.Join(root, "app.ts"))
	if !ok {
		t.Fatal("expected ./util to resolve")
	}
	if got != filepath.Join(root, "util.ts") {
		t.Errorf("expected util.ts before util/index.ts, got %s", got)
	}
}

func TestResolveIndexFallback(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "components", "index.tsx"))
	writeFile(t, filepath.Join(root, "app.ts"))

	r := NewResolver(NewAliasTable(root), nil)

	got, ok := r.Resolve("./components", filepath.Join(root, "app.ts"))
	if !ok {
		t.Fatal("expected ./components to resolve via index file")
	}
	if got != filepath.Join(root, "components", "index.tsx") {
		t.Errorf("resolved to %s", got)
	}
}

func TestResolveExtensionPriority(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mod.js"))
	writeFile(t, filepath.Join(root, "mod.ts"))
	writeFile(t, filepath.Join(root, "app.ts"))

	r := NewResolver(NewAliasTable(root), nil)

	got, ok := r.Resolve("./mod", filepath.Join(root, "app.ts"))
	if !ok {
		t.Fatal("expected ./mod to resolve")
	}
	if got != filepath.Join(root, "mod.ts") {
		t.Errorf("expected .ts before .js, got %s", got)
	}
}

func TestResolveAliasLongestPrefix(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "ui", "Button.tsx"))
	writeFile(t, filepath.Join(root, "src", "components", "Button.tsx"))
	writeFile(t, filepath.Join(root, "src", "app.ts"))

	table := NewAliasTable(root)
	table.Register("@/", filepath.Join(root, "src"))
	table.Register("@/components", filepath.Join(root, "src", "ui"))

	r := NewResolver(table, nil)

	got, ok := r.Resolve("@/components/Button", filepath.Join(root, "src", "app.ts"))
	if !ok {
		t.Fatal("expected @/components/Button to resolve")
	}
	if got != filepath.Join(root, "src", "ui", "Button.tsx") {
		t.Errorf("expected the longer @/components prefix to win, got %s", got)
	}
}

func TestResolveAliasExactMatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "components", "index.ts"))
	writeFile(t, filepath.Join(root, "src", "app.ts"))

	table := NewAliasTable(root)
	table.Register("@components", filepath.Join(root, "src", "components"))

	r := NewResolver(table, nil)

	got, ok := r.Resolve("@components", filepath.Join(root, "src", "app.ts"))
	if !ok {
		t.Fatal("expected @components to resolve")
	}
	if got != filepath.Join(root, "src", "components", "index.ts") {
		t.Errorf("resolved to %s", got)
	}
}

func TestResolveNoMatchFails(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "app.ts"))

	r := NewResolver(NewAliasTable(root), nil)

	if _, ok := r.Resolve("lodash", filepath.Join(root, "app.ts")); ok {
		t.Error("expected bare package specifier to fail resolution")
	}
	if _, ok := r.Resolve("./missing", filepath.Join(root, "app.ts")); ok {
		t.Error("expected missing relative target to fail resolution")
	}
}

func TestResolveDirectoryIsNotAFile(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "only-dir"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, "app.ts"))

	r := NewResolver(NewAliasTable(root), nil)

	if _, ok := r.Resolve("./only-dir", filepath.Join(root, "app.ts")); ok {
		t.Error("expected a bare directory with no index file to fail resolution")
	}
}

func TestAliasTableTieBreak(t *testing.T) {
	// Two equal-length prefixes only both match when they are the same string,
	// i.e. a duplicate registration. First registered wins.
	table := NewAliasTable("/project")
	table.Register("#lib/", "/project/src/lib")
	table.Register("#lib/", "/project/src/other")

	alias, ok := table.Match("#lib/fmt")
	if !ok {
		t.Fatal("expected a match")
	}
	if alias.Target != "/project/src/lib" {
		t.Errorf("expected first-registered alias on equal-length tie, got %s", alias.Target)
	}
}

func TestAliasTableMatcher(t *testing.T) {
	empty := NewAliasTable("/project")
	if empty.Matcher() != nil {
		t.Error("expected nil matcher for an empty table")
	}

	table := NewAliasTable("/project")
	table.Register("@/", "/project/src")
	match := table.Matcher()
	if match == nil {
		t.Fatal("expected a matcher")
	}
	if !match("@/util") {
		t.Error("expected @/util to match")
	}
	if match("lodash") {
		t.Error("expected lodash not to match")
	}
}
