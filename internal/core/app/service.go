package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tangle/internal/config"
	"tangle/internal/core/errors"
	"tangle/internal/engine/extract"
	"tangle/internal/engine/graph"
	"tangle/internal/engine/resolve"
	"tangle/internal/shared/observability"
)

// ScanResult summarizes one full workspace scan.
type ScanResult struct {
	RunID        string
	FilesScanned int
	EdgeCount    int
	Unresolved   int
	Warnings     []string
	Cycles       []graph.CycleInfo
	Duration     time.Duration
}

// Service owns the dependency index and the extraction/resolution pipeline
// that feeds it. One Service instance is shared between the initial scan,
// the watcher and any UI readers.
type Service struct {
	cfg       *config.Config
	extractor *extract.Extractor
	index     *graph.Index
	policy    graph.SeverityPolicy

	mu              sync.RWMutex
	resolver        *resolve.Resolver
	unresolvedBy    map[string]int
	unresolvedTotal int

	scanning atomic.Bool
}

func NewService(cfg *config.Config) *Service {
	s := &Service{
		cfg:          cfg,
		extractor:    extract.NewExtractor(),
		index:        graph.NewIndex(),
		policy:       severityPolicy(cfg.Severity),
		unresolvedBy: make(map[string]int),
	}
	s.resolver = resolve.NewResolver(resolve.NewAliasTable(s.WorkspaceRoot()), s.extensions())
	return s
}

// Index exposes the underlying graph for report generators and the UI.
func (s *Service) Index() *graph.Index {
	return s.index
}

// WorkspaceRoot returns the absolute workspace root.
func (s *Service) WorkspaceRoot() string {
	root := s.cfg.Workspace.Root
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return filepath.Clean(root)
}

func (s *Service) extensions() []string {
	if len(s.cfg.Resolver.Extensions) > 0 {
		return s.cfg.Resolver.Extensions
	}
	return resolve.DefaultExtensions()
}

// ReloadAliases rebuilds the resolver from the project's compiler config.
// Called at the start of every full scan so alias edits take effect without
// a restart.
func (s *Service) ReloadAliases() {
	var table *resolve.AliasTable
	if s.cfg.Resolver.ConfigPath != "" {
		table = resolve.LoadAliasTableFromFile(s.cfg.Resolver.ConfigPath)
	} else {
		table = resolve.LoadAliasTable(s.WorkspaceRoot())
	}

	s.mu.Lock()
	s.resolver = resolve.NewResolver(table, s.extensions())
	s.mu.Unlock()
}

func (s *Service) currentResolver() *resolve.Resolver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolver
}

// RunScan walks the workspace and rebuilds the index from scratch: aliases
// are reloaded, the previous graph state is dropped, every candidate file is
// indexed. Only one scan runs at a time; a scan requested while another is
// in flight is skipped and reported with ran=false.
func (s *Service) RunScan(ctx context.Context) (*ScanResult, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if !s.scanning.CompareAndSwap(false, true) {
		observability.ScansSkippedTotal.Inc()
		slog.Debug("scan already in flight, skipping")
		return nil, false, nil
	}
	defer s.scanning.Store(false)

	ctx, span := observability.Tracer.Start(ctx, "service.RunScan")
	defer span.End()

	start := time.Now()

	s.ReloadAliases()

	files, err := s.scanWorkspace(ctx)
	if err != nil {
		return nil, true, errors.AddContext(err, errors.CtxOperation, "scan_workspace")
	}

	s.index.Clear()
	s.mu.Lock()
	s.unresolvedBy = make(map[string]int)
	s.unresolvedTotal = 0
	s.mu.Unlock()
	observability.UnresolvedReferences.Set(0)

	warnings := make([]string, 0)
	for _, path := range files {
		if err := s.IndexFile(path); err != nil {
			warnings = append(warnings, fmt.Sprintf("index %s: %v", path, err))
		}
	}

	cycles := s.AllCycles()
	duration := time.Since(start)
	observability.ScanDuration.Observe(duration.Seconds())

	result := &ScanResult{
		RunID:        uuid.NewString(),
		FilesScanned: len(files),
		EdgeCount:    s.index.EdgeCount(),
		Unresolved:   s.UnresolvedCount(),
		Warnings:     warnings,
		Cycles:       cycles,
		Duration:     duration,
	}
	slog.Info("workspace scan complete",
		"run_id", result.RunID,
		"files", result.FilesScanned,
		"edges", result.EdgeCount,
		"cycles", len(result.Cycles),
		"unresolved", result.Unresolved,
		"duration", duration)
	return result, true, nil
}

// IndexFile reads, parses and resolves one file, replacing its outgoing
// edges. An unreadable file drops out of the index instead of failing the
// caller's scan; a file that no longer parses keeps its place in the index
// with no edges.
func (s *Service) IndexFile(path string) error {
	abs := canonicalPath(path)

	source, err := os.ReadFile(abs)
	if err != nil {
		s.RemoveFile(abs)
		slog.Warn("skipping unreadable file", "path", abs, "error", err)
		return errors.AddContext(err, errors.CtxPath, abs)
	}

	res := s.currentResolver()
	refs, err := s.extractor.LocalReferences(abs, source, res.Table().Matcher())
	if err != nil {
		s.index.SetFile(abs, nil)
		s.setUnresolved(abs, 0)
		return errors.AddContext(err, errors.CtxPath, abs)
	}

	edges := make([]graph.Edge, 0, len(refs))
	unresolved := 0
	for _, ref := range refs {
		target, ok := res.Resolve(ref.Specifier, abs)
		if !ok {
			unresolved++
			slog.Debug("unresolved local reference",
				"path", abs, "specifier", ref.Specifier, "line", ref.Line)
			continue
		}
		edges = append(edges, graph.Edge{
			To:        target,
			Specifier: ref.Specifier,
			Kind:      ref.Kind,
			Line:      ref.Line,
		})
	}

	s.index.SetFile(abs, edges)
	s.setUnresolved(abs, unresolved)
	return nil
}

// RemoveFile drops a file and its outgoing edges from the index.
func (s *Service) RemoveFile(path string) {
	abs := canonicalPath(path)
	s.index.RemoveFile(abs)
	s.setUnresolved(abs, 0)
}

func (s *Service) setUnresolved(path string, count int) {
	s.mu.Lock()
	prev := s.unresolvedBy[path]
	s.unresolvedTotal += count - prev
	if count == 0 {
		delete(s.unresolvedBy, path)
	} else {
		s.unresolvedBy[path] = count
	}
	total := s.unresolvedTotal
	s.mu.Unlock()

	observability.UnresolvedReferences.Set(float64(total))
}

// UnresolvedByFile returns a copy of the per-file unresolved reference
// counts for files that currently have at least one.
func (s *Service) UnresolvedByFile() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.unresolvedBy))
	for path, count := range s.unresolvedBy {
		out[path] = count
	}
	return out
}

// UnresolvedCount reports how many local-looking references failed to
// resolve across all currently indexed files.
func (s *Service) UnresolvedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unresolvedTotal
}

// Outgoing lists the files path imports, sorted.
func (s *Service) Outgoing(path string) []string {
	return s.index.Outgoing(canonicalPath(path))
}

// Incoming lists the files that import path, sorted.
func (s *Service) Incoming(path string) []string {
	return s.index.Incoming(canonicalPath(path))
}

// CyclesThrough finds the cycles a single file participates in.
func (s *Service) CyclesThrough(path string) [][]string {
	start := time.Now()
	cycles := s.index.FindCyclesThrough(canonicalPath(path))
	observability.AnalysisDuration.WithLabelValues("local_cycles").Observe(time.Since(start).Seconds())
	return cycles
}

// AllCycles runs the workspace-wide cycle analysis and refreshes the
// severity gauges.
func (s *Service) AllCycles() []graph.CycleInfo {
	start := time.Now()
	cycles := s.index.FindAllCycles(s.policy)
	observability.AnalysisDuration.WithLabelValues("cycles").Observe(time.Since(start).Seconds())

	counts := make(map[graph.Severity]int, 3)
	for _, c := range cycles {
		counts[c.Severity]++
	}
	for _, sev := range []graph.Severity{graph.SeverityCritical, graph.SeverityModerate, graph.SeverityLow} {
		observability.Cycles.WithLabelValues(string(sev)).Set(float64(counts[sev]))
	}
	return cycles
}

// GroupedCycles buckets the current cycles by severity.
func (s *Service) GroupedCycles() graph.GroupedCycles {
	return graph.GroupBySeverity(s.AllCycles())
}

func (s *Service) FileCount() int {
	return s.index.FileCount()
}

func (s *Service) EdgeCount() int {
	return s.index.EdgeCount()
}

func canonicalPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func severityPolicy(sev config.Severity) graph.SeverityPolicy {
	return graph.SeverityPolicy{
		LengthWeight:    sev.LengthWeight,
		DependentWeight: sev.DependentWeight,
		ShortLength:     sev.ShortLength,
		MediumLength:    sev.MediumLength,
		ShortScore:      sev.ShortScore,
		MediumScore:     sev.MediumScore,
		LongScore:       sev.LongScore,
		CriticalCutoff:  sev.CriticalCutoff,
		ModerateCutoff:  sev.ModerateCutoff,
	}
}
