package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tangle/internal/config"
	"tangle/internal/core/errors"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestApp(t *testing.T) {
	tmpDir, _ := os.MkdirTemp("", "apptest")
	defer os.RemoveAll(tmpDir)

	writeFile(t, tmpDir, "src/a.ts", `import { b } from "./b";`)
	writeFile(t, tmpDir, "src/b.ts", `import { a } from "./a";`)

	cfg := config.Default()
	cfg.Workspace.Root = tmpDir
	cfg.Output.DOT = filepath.Join(tmpDir, "reports", "graph.dot")
	cfg.Output.TSV = filepath.Join(tmpDir, "reports", "dependencies.tsv")
	cfg.Output.Mermaid = filepath.Join(tmpDir, "reports", "graph.mmd")
	cfg.Output.PlantUML = filepath.Join(tmpDir, "reports", "graph.puml")

	app := NewApp(cfg)
	defer app.Close()

	result, err := app.InitialScan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.FilesScanned != 2 {
		t.Errorf("expected 2 files scanned, got %d", result.FilesScanned)
	}
	if len(result.Cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(result.Cycles))
	}

	if err := app.GenerateOutputs(result.Cycles); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(cfg.Output.DOT); os.IsNotExist(err) {
		t.Error("DOT file was not generated")
	}
	if _, err := os.Stat(cfg.Output.Mermaid); os.IsNotExist(err) {
		t.Error("Mermaid file was not generated")
	}
	if _, err := os.Stat(cfg.Output.PlantUML); os.IsNotExist(err) {
		t.Error("PlantUML file was not generated")
	}

	// The cycle table is appended after the edge list in the TSV report.
	data, err := os.ReadFile(cfg.Output.TSV)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, "From\tTo\tSpecifier\tKind\tLine") {
		t.Fatalf("expected edge header in TSV output, got: %s", out)
	}
	if !strings.Contains(out, "Severity\tScore\tDependents\tSize\tFiles") {
		t.Fatalf("expected cycle header in TSV output, got: %s", out)
	}

	// Re-indexing a changed file must not disturb anything.
	app.HandleChanges([]string{filepath.Join(tmpDir, "src", "a.ts")})
	if app.Service.FileCount() != 2 {
		t.Errorf("expected 2 files after change handling, got %d", app.Service.FileCount())
	}
}

func TestApp_GenerateOutputs_RelativePathsLandInWorkspace(t *testing.T) {
	tmpDir, _ := os.MkdirTemp("", "appout")
	defer os.RemoveAll(tmpDir)

	writeFile(t, tmpDir, "src/a.ts", `import "./b";`)
	writeFile(t, tmpDir, "src/b.ts", `export {};`)

	cfg := config.Default()
	cfg.Workspace.Root = tmpDir
	cfg.Output.DOT = "reports/graph.dot"

	app := NewApp(cfg)
	defer app.Close()

	result, err := app.InitialScan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := app.GenerateOutputs(result.Cycles); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "reports", "graph.dot")); err != nil {
		t.Fatalf("expected DOT report under the workspace root: %v", err)
	}
}

func TestApp_DescribeFile(t *testing.T) {
	tmpDir, _ := os.MkdirTemp("", "appdescribe")
	defer os.RemoveAll(tmpDir)

	aPath := writeFile(t, tmpDir, "src/a.ts", `import { b } from "./b";`)
	writeFile(t, tmpDir, "src/b.ts", `import { a } from "./a";`)

	cfg := config.Default()
	cfg.Workspace.Root = tmpDir

	app := NewApp(cfg)
	defer app.Close()

	if _, err := app.InitialScan(context.Background()); err != nil {
		t.Fatal(err)
	}

	out, err := app.DescribeFile(aPath)
	if err != nil {
		t.Fatalf("expected describe success, got error: %v", err)
	}

	if !strings.Contains(out, "File: src/a.ts") {
		t.Fatalf("expected file header, got: %s", out)
	}
	if !strings.Contains(out, "Outgoing (1)\n- src/b.ts") {
		t.Fatalf("expected outgoing section, got: %s", out)
	}
	if !strings.Contains(out, "Incoming (1)\n- src/b.ts") {
		t.Fatalf("expected incoming section, got: %s", out)
	}
	if !strings.Contains(out, "Cycles through file (1)") {
		t.Fatalf("expected cycle section, got: %s", out)
	}
	if !strings.Contains(out, "src/a.ts -> src/b.ts -> src/a.ts") {
		t.Fatalf("expected cycle rendering, got: %s", out)
	}
}

func TestApp_DescribeFile_NotIndexed(t *testing.T) {
	tmpDir, _ := os.MkdirTemp("", "appdescribe-missing")
	defer os.RemoveAll(tmpDir)

	writeFile(t, tmpDir, "src/a.ts", `export {};`)

	cfg := config.Default()
	cfg.Workspace.Root = tmpDir

	app := NewApp(cfg)
	defer app.Close()

	if _, err := app.InitialScan(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, err := app.DescribeFile(filepath.Join(tmpDir, "src", "missing.ts"))
	if err == nil {
		t.Fatal("expected error for unindexed file")
	}
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestApp_RecordsHistory(t *testing.T) {
	tmpDir, _ := os.MkdirTemp("", "apphistory")
	defer os.RemoveAll(tmpDir)

	writeFile(t, tmpDir, "src/a.ts", `import { b } from "./b";`)
	writeFile(t, tmpDir, "src/b.ts", `import { a } from "./a";`)

	cfg := config.Default()
	cfg.Workspace.Root = tmpDir
	cfg.History.Enabled = true
	cfg.History.Path = filepath.Join(tmpDir, "history.db")

	app := NewApp(cfg)
	defer app.Close()

	if app.history == nil {
		t.Fatal("expected history store to be open")
	}

	result, err := app.InitialScan(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	runs, err := app.history.Recent(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(runs))
	}
	if runs[0].RunID != result.RunID {
		t.Errorf("expected run id %s, got %s", result.RunID, runs[0].RunID)
	}
	if runs[0].CycleCount != 1 {
		t.Errorf("expected 1 recorded cycle, got %d", runs[0].CycleCount)
	}
	// A two-file loop with no outside dependents scores 0.4, which is moderate.
	if runs[0].ModerateCount != 1 {
		t.Errorf("expected 1 moderate cycle, got %d", runs[0].ModerateCount)
	}

	// A second scan remembers the first one for delta reporting.
	if _, err := app.InitialScan(context.Background()); err != nil {
		t.Fatal(err)
	}
	prev := app.PreviousRun()
	if prev == nil || prev.RunID != result.RunID {
		t.Fatalf("expected previous run %s, got %+v", result.RunID, prev)
	}
}

func TestApp_HandleChanges_CompilerConfigTriggersRescan(t *testing.T) {
	tmpDir, _ := os.MkdirTemp("", "apprescan")
	defer os.RemoveAll(tmpDir)

	writeFile(t, tmpDir, "src/a.ts", `import Button from "@ui/button";`)
	writeFile(t, tmpDir, "src/ui/button.ts", `export default {};`)

	cfg := config.Default()
	cfg.Workspace.Root = tmpDir

	app := NewApp(cfg)
	defer app.Close()

	if _, err := app.InitialScan(context.Background()); err != nil {
		t.Fatal(err)
	}
	// Without a compiler config "@ui/button" looks like a scoped npm
	// package and produces no edge.
	if app.Service.EdgeCount() != 0 {
		t.Fatalf("expected no edges before aliases exist, got %d", app.Service.EdgeCount())
	}

	tsconfigPath := writeFile(t, tmpDir, "tsconfig.json",
		`{"compilerOptions":{"baseUrl":".","paths":{"@ui/*":["src/ui/*"]}}}`)
	app.HandleChanges([]string{tsconfigPath})

	if app.Service.EdgeCount() != 1 {
		t.Fatalf("expected alias edge after config rescan, got %d", app.Service.EdgeCount())
	}
}
