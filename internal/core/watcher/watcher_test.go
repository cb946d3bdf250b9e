package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for nil callback")
	}
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestWatcher(t *testing.T) {
	tmpDir, _ := os.MkdirTemp("", "watchertest")
	defer os.RemoveAll(tmpDir)

	changedFiles := make(chan []string, 1)
	w, err := NewWatcher(100*time.Millisecond, []string{"exclude_dir"}, []string{"*.skip.ts"}, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	err = w.Watch([]string{tmpDir})
	if err != nil {
		t.Fatal(err)
	}

	// Create a file
	testFile := filepath.Join(tmpDir, "main.ts")
	os.WriteFile(testFile, []byte("import './util';"), 0644)

	select {
	case paths := <-changedFiles:
		found := false
		for _, p := range paths {
			if p == testFile {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected to find %s in changed files %v", testFile, paths)
		}
	case <-time.After(2 * time.Second):
		t.Error("Timed out waiting for file change event")
	}

	// Test exclusion by glob
	excludeFile := filepath.Join(tmpDir, "fixture.skip.ts")
	os.WriteFile(excludeFile, []byte("export {};"), 0644)

	select {
	case paths := <-changedFiles:
		for _, p := range paths {
			if filepath.Base(p) == "fixture.skip.ts" {
				t.Error("Excluded file triggered event")
			}
		}
	case <-time.After(500 * time.Millisecond):
		// Expected
	}

	// Test exclusion by extension
	docFile := filepath.Join(tmpDir, "README.md")
	os.WriteFile(docFile, []byte("# notes"), 0644)

	select {
	case paths := <-changedFiles:
		for _, p := range paths {
			if filepath.Base(p) == "README.md" {
				t.Error("Unsupported file triggered event")
			}
		}
	case <-time.After(500 * time.Millisecond):
		// Expected
	}

	// New directory should be recursively watched after create.
	subdir := filepath.Join(tmpDir, "components")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatal(err)
	}
	subFile := filepath.Join(subdir, "button.tsx")
	if err := os.WriteFile(subFile, []byte("export const Button = 1;"), 0644); err != nil {
		t.Fatal(err)
	}

	foundNested := false
	timeout := time.After(2 * time.Second)
	for !foundNested {
		select {
		case paths := <-changedFiles:
			for _, p := range paths {
				if p == subFile {
					foundNested = true
					break
				}
			}
		case <-timeout:
			t.Fatal("timed out waiting for nested file event in newly created directory")
		}
	}
}

func TestWatcher_ConfigFileTriggersChange(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "watcher-config")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(100*time.Millisecond, nil, nil, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	// tsconfig.json has no source extension but routes through the name
	// filter so alias edits can trigger a rescan.
	cfgPath := filepath.Join(tmpDir, "tsconfig.json")
	if err := os.WriteFile(cfgPath, []byte(`{"compilerOptions":{}}`), 0644); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changedFiles:
			for _, p := range paths {
				if p == cfgPath {
					return
				}
			}
		case <-timeout:
			t.Fatal("timed out waiting for tsconfig.json event")
		}
	}
}

func TestWatcher_RenameTriggersChange(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "watcher-rename")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(100*time.Millisecond, nil, nil, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	oldPath := filepath.Join(tmpDir, "old.ts")
	newPath := filepath.Join(tmpDir, "new.ts")
	if err := os.WriteFile(oldPath, []byte("export {};"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changedFiles:
			for _, p := range paths {
				if p == oldPath || p == newPath {
					return
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for rename event, old=%s new=%s", oldPath, newPath)
		}
	}
}

func TestWatcher_LanguageFilters(t *testing.T) {
	changedFiles := make(chan []string, 1)
	w, err := NewWatcher(10*time.Millisecond, nil, nil, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	// Defaults admit the supported source extensions and compiler configs.
	if w.shouldExcludeFile("app.tsx") {
		t.Fatal("expected .tsx to be included by default")
	}
	if w.shouldExcludeFile("jsconfig.json") {
		t.Fatal("expected jsconfig.json to be included by default")
	}
	if w.shouldExcludeFile("main.py") == false {
		t.Fatal("expected .py to be excluded by default")
	}

	w.SetLanguageFilters([]string{".ts"}, []string{"tsconfig.json"})

	if w.shouldExcludeFile("main.js") == false {
		t.Fatal("expected .js to be excluded when .ts is the only enabled extension")
	}
	if w.shouldExcludeFile("tsconfig.json") {
		t.Fatal("expected tsconfig.json to be included via filename filter")
	}
	if w.shouldExcludeFile("jsconfig.json") == false {
		t.Fatal("expected jsconfig.json to be excluded after the override")
	}
}
