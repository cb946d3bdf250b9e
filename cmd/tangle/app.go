package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tangle/internal/config"
	coreapp "tangle/internal/core/app"
	"tangle/internal/core/errors"
	"tangle/internal/core/watcher"
	"tangle/internal/data/history"
	"tangle/internal/engine/graph"
	"tangle/internal/output"
	"tangle/internal/shared/util"
)

// App wires the analysis service to everything around it: report files,
// the terminal summary, scan history, the watcher and the optional TUI.
type App struct {
	Config  *config.Config
	Service *coreapp.Service

	history    *history.Store
	prevRun    *history.Run
	limiter    *util.Limiter
	watcher    *watcher.Watcher
	teaProgram *tea.Program
}

func NewApp(cfg *config.Config) *App {
	a := &App{
		Config:  cfg,
		Service: coreapp.NewService(cfg),
		limiter: util.NewLimiter(cfg.Watch.AnalyzeRate, cfg.Watch.AnalyzeBurst),
	}

	if cfg.History.Enabled {
		path := cfg.History.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(a.Service.WorkspaceRoot(), path)
		}
		store, err := history.Open(path)
		if err != nil {
			werr := errors.Wrap(err, errors.CodeInternal, "open history store")
			slog.Warn("history store unavailable, continuing without", "path", path, "error", werr)
		} else {
			a.history = store
		}
	}

	return a
}

func (a *App) Close() {
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			slog.Warn("failed to close watcher", "error", err)
		}
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			slog.Warn("failed to close history store", "error", err)
		}
	}
}

func (a *App) InitialScan(ctx context.Context) (*coreapp.ScanResult, error) {
	result, ran, err := a.Service.RunScan(ctx)
	if err != nil {
		return nil, err
	}
	if !ran {
		return nil, errors.New(errors.CodeConflict, "workspace scan already in progress")
	}
	a.recordRun(result)
	return result, nil
}

// HandleChanges is the watcher callback. Compiler config edits invalidate
// every resolved edge, so they trigger a full rescan; everything else is
// re-indexed per file, followed by a rate-limited cycle re-analysis.
func (a *App) HandleChanges(paths []string) {
	slog.Info("detected changes", "count", len(paths))
	start := time.Now()

	configChanged := false
	for _, path := range paths {
		switch strings.ToLower(filepath.Base(path)) {
		case "tsconfig.json", "jsconfig.json":
			configChanged = true
		}
	}

	if configChanged {
		result, ran, err := a.Service.RunScan(context.Background())
		if err != nil {
			slog.Error("workspace rescan failed", "error", err)
			return
		}
		if !ran {
			slog.Debug("workspace rescan already in progress")
			return
		}
		a.recordRun(result)
		a.reportScan(result)
		return
	}

	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			a.Service.RemoveFile(path)
			continue
		}
		if err := a.Service.IndexFile(path); err != nil {
			slog.Debug("re-index failed", "path", path, "error", err)
		}
	}

	if !a.limiter.Allow(1) {
		slog.Debug("cycle re-analysis rate limited", "changed", len(paths))
		return
	}

	cycles := a.Service.AllCycles()
	unresolved := a.Service.UnresolvedCount()

	if err := a.GenerateOutputs(cycles); err != nil {
		slog.Error("failed to generate outputs", "error", err)
	}

	a.PrintSummary(len(paths), time.Since(start), cycles, unresolved, nil)
	a.notifyUI(cycles)
	a.maybeBeep(cycles, unresolved)
}

func (a *App) reportScan(result *coreapp.ScanResult) {
	if err := a.GenerateOutputs(result.Cycles); err != nil {
		slog.Error("failed to generate outputs", "error", err)
	}
	a.PrintSummary(result.FilesScanned, result.Duration, result.Cycles, result.Unresolved, a.prevRun)
	a.notifyUI(result.Cycles)
	a.maybeBeep(result.Cycles, result.Unresolved)
}

// GenerateOutputs writes every configured report file. Relative output
// paths land under the workspace root so watch mode started from another
// directory still writes next to the code it describes.
func (a *App) GenerateOutputs(cycles []graph.CycleInfo) error {
	root := a.Service.WorkspaceRoot()

	if a.Config.Output.DOT != "" {
		dotGen := output.NewDOTGenerator(a.Service.Index(), root)
		dot, err := dotGen.Generate(cycles)
		if err != nil {
			return err
		}
		if err := util.WriteStringWithDirs(a.resolveOutputPath(a.Config.Output.DOT), dot, 0o644); err != nil {
			return err
		}
	}

	if a.Config.Output.TSV != "" {
		tsvGen := output.NewTSVGenerator(a.Service.Index())
		tsv, err := tsvGen.Generate()
		if err != nil {
			return err
		}
		if len(cycles) > 0 {
			cyclesTSV, err := tsvGen.GenerateCycles(cycles)
			if err != nil {
				return err
			}
			tsv = strings.TrimRight(tsv, "\n") + "\n\n" + strings.TrimRight(cyclesTSV, "\n") + "\n"
		}
		if err := util.WriteStringWithDirs(a.resolveOutputPath(a.Config.Output.TSV), tsv, 0o644); err != nil {
			return err
		}
	}

	if a.Config.Output.Mermaid != "" {
		mmdGen := output.NewMermaidGenerator(a.Service.Index(), root)
		mmd, err := mmdGen.Generate(cycles)
		if err != nil {
			return err
		}
		if err := util.WriteStringWithDirs(a.resolveOutputPath(a.Config.Output.Mermaid), mmd, 0o644); err != nil {
			return err
		}
	}

	if a.Config.Output.PlantUML != "" {
		pumlGen := output.NewPlantUMLGenerator(a.Service.Index(), root)
		puml, err := pumlGen.Generate(cycles)
		if err != nil {
			return err
		}
		if err := util.WriteStringWithDirs(a.resolveOutputPath(a.Config.Output.PlantUML), puml, 0o644); err != nil {
			return err
		}
	}

	return nil
}

func (a *App) resolveOutputPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.Service.WorkspaceRoot(), path)
}

// DescribeFile renders the -file query: direct dependencies in both
// directions plus every local cycle through the file.
func (a *App) DescribeFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if !a.Service.Index().Contains(abs) {
		return "", errors.New(errors.CodeNotFound, fmt.Sprintf("file not indexed: %s", path))
	}

	outgoing := a.displayPaths(a.Service.Outgoing(abs))
	incoming := a.displayPaths(a.Service.Incoming(abs))
	cycles := a.Service.CyclesThrough(abs)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("File: %s\n\n", a.displayPath(abs)))

	b.WriteString(fmt.Sprintf("Outgoing (%d)\n", len(outgoing)))
	for _, p := range outgoing {
		b.WriteString(fmt.Sprintf("- %s\n", p))
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Incoming (%d)\n", len(incoming)))
	for _, p := range incoming {
		b.WriteString(fmt.Sprintf("- %s\n", p))
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Cycles through file (%d)\n", len(cycles)))
	for _, cycle := range cycles {
		loop := append(a.displayPaths(cycle), a.displayPath(cycle[0]))
		b.WriteString(fmt.Sprintf("- %s\n", strings.Join(loop, " -> ")))
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

func (a *App) PrintSummary(
	fileCount int,
	duration time.Duration,
	cycles []graph.CycleInfo,
	unresolved int,
	prev *history.Run,
) {
	if !a.Config.Alerts.Terminal {
		return
	}

	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Update: %d files, %d edges in %v\n", fileCount, a.Service.EdgeCount(), duration)

	if len(cycles) > 0 {
		fmt.Printf("⚠️  FOUND %d DEPENDENCY CYCLES:\n", len(cycles))
		for _, c := range cycles {
			fmt.Printf("   [%s] %s (score=%.2f, dependents=%d)\n",
				c.Severity, strings.Join(a.displayPaths(c.Files), ", "), c.Score, c.DependentCount)
		}
	} else {
		fmt.Println("✅ No dependency cycles found.")
	}

	if unresolved > 0 {
		fmt.Printf("❓ %d UNRESOLVED LOCAL REFERENCES\n", unresolved)
	} else {
		fmt.Println("✅ No unresolved local references.")
	}

	if prev != nil {
		if delta := len(cycles) - prev.CycleCount; delta != 0 {
			fmt.Printf("📊 Cycle count %+d since the last recorded run\n", delta)
		}
	}

	fmt.Println(strings.Repeat("-", 40))
}

func (a *App) StartWatcher() error {
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Exclude.Dirs,
		a.Config.Exclude.Files,
		a.HandleChanges,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "start watcher")
	}
	if len(a.Config.Resolver.Extensions) > 0 {
		w.SetLanguageFilters(a.Config.Resolver.Extensions, []string{"tsconfig.json", "jsconfig.json"})
	}
	a.watcher = w
	return w.Watch(a.Service.ScanRoots())
}

func (a *App) RunUI() error {
	m := initialModel()
	p := tea.NewProgram(m, tea.WithAltScreen())
	a.teaProgram = p

	// Push the current state once the program is listening.
	go func() {
		a.notifyUI(a.Service.AllCycles())
	}()

	_, err := p.Run()
	return err
}

func (a *App) notifyUI(cycles []graph.CycleInfo) {
	if a.teaProgram == nil {
		return
	}
	a.teaProgram.Send(updateMsg{
		cycles:     a.displayCycles(cycles),
		unresolved: a.displayUnresolved(),
		fileCount:  a.Service.FileCount(),
		edgeCount:  a.Service.EdgeCount(),
	})
}

func (a *App) maybeBeep(cycles []graph.CycleInfo, unresolved int) {
	if a.Config.Alerts.Beep && (len(cycles) > 0 || unresolved > 0) {
		fmt.Print("\a")
	}
}

// recordRun stashes the previous run for delta reporting, then persists
// this one.
func (a *App) recordRun(result *coreapp.ScanResult) {
	if a.history == nil {
		return
	}

	a.prevRun = a.lastRecordedRun()

	grouped := graph.GroupBySeverity(result.Cycles)
	run := history.Run{
		RunID:           result.RunID,
		Timestamp:       time.Now().UTC(),
		FileCount:       result.FilesScanned,
		EdgeCount:       result.EdgeCount,
		CycleCount:      len(result.Cycles),
		CriticalCount:   len(grouped.Critical),
		ModerateCount:   len(grouped.Moderate),
		LowCount:        len(grouped.Low),
		UnresolvedCount: result.Unresolved,
		Duration:        result.Duration,
	}
	if err := a.history.SaveRun(run); err != nil {
		slog.Warn("failed to record scan history", "run_id", result.RunID, "error", err)
	}
}

func (a *App) lastRecordedRun() *history.Run {
	runs, err := a.history.Recent(1)
	if err != nil || len(runs) == 0 {
		return nil
	}
	return &runs[0]
}

// PreviousRun returns the run recorded before the most recent scan, or
// nil when history is disabled or empty.
func (a *App) PreviousRun() *history.Run {
	return a.prevRun
}

func (a *App) displayCycles(cycles []graph.CycleInfo) []cycleItem {
	items := make([]cycleItem, 0, len(cycles))
	for _, c := range cycles {
		items = append(items, cycleItem{
			severity:   c.Severity,
			files:      a.displayPaths(c.Files),
			score:      c.Score,
			dependents: c.DependentCount,
		})
	}
	return items
}

func (a *App) displayUnresolved() []unresolvedItem {
	byFile := a.Service.UnresolvedByFile()
	items := make([]unresolvedItem, 0, len(byFile))
	for _, path := range util.SortedStringKeys(byFile) {
		items = append(items, unresolvedItem{
			file:  a.displayPath(path),
			count: byFile[path],
		})
	}
	return items
}

func (a *App) displayPath(path string) string {
	root := a.Service.WorkspaceRoot()
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

func (a *App) displayPaths(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = a.displayPath(p)
	}
	return out
}

func hasCriticalCycles(cycles []graph.CycleInfo) bool {
	for _, c := range cycles {
		if c.Severity == graph.SeverityCritical {
			return true
		}
	}
	return false
}
