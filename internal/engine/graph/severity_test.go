package graph

import (
	"fmt"
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func fmtPath(prefix string, i int) string {
	return fmt.Sprintf("/src/%s%02d.ts", prefix, i)
}

func TestFindAllCycles_Triangle(t *testing.T) {
	idx := NewIndex()
	// a -> b -> c -> a
	linkFiles(idx, map[string][]string{
		"/src/a.ts": {"/src/b.ts"},
		"/src/b.ts": {"/src/c.ts"},
		"/src/c.ts": {"/src/a.ts"},
	})

	cycles := idx.FindAllCycles(DefaultSeverityPolicy())
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}

	c := cycles[0]
	want := []string{"/src/a.ts", "/src/b.ts", "/src/c.ts"}
	if len(c.Files) != 3 {
		t.Fatalf("expected 3 members, got %v", c.Files)
	}
	for i := range want {
		if c.Files[i] != want[i] {
			t.Errorf("Files[%d] = %s, want %s", i, c.Files[i], want[i])
		}
	}
	if c.DependentCount != 0 {
		t.Errorf("expected 0 dependents, got %d", c.DependentCount)
	}
	// Length 3 with no dependents: 0.4*0.6 only.
	if !almostEqual(c.Score, 0.24) {
		t.Errorf("expected score 0.24, got %f", c.Score)
	}
	if c.Severity != SeverityLow {
		t.Errorf("expected low severity, got %s", c.Severity)
	}
}

func TestFindAllCycles_AcyclicChain(t *testing.T) {
	idx := NewIndex()
	linkFiles(idx, map[string][]string{
		"/src/a.ts": {"/src/b.ts"},
		"/src/b.ts": {"/src/c.ts"},
	})

	if cycles := idx.FindAllCycles(DefaultSeverityPolicy()); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}
}

func TestFindAllCycles_SelfImportNotReported(t *testing.T) {
	idx := NewIndex()
	idx.SetFile("/src/a.ts", []Edge{edgeTo("/src/a.ts", "./a")})

	if cycles := idx.FindAllCycles(DefaultSeverityPolicy()); len(cycles) != 0 {
		t.Errorf("a self-import is not a cycle, got %v", cycles)
	}
}

func TestFindAllCycles_SeverityOrdering(t *testing.T) {
	idx := NewIndex()

	// Two 2-file loops in a 20-file project: one carries 10 outside
	// dependents, the other none.
	linkFiles(idx, map[string][]string{
		"/src/a.ts": {"/src/b.ts"},
		"/src/b.ts": {"/src/a.ts"},
		"/src/c.ts": {"/src/d.ts"},
		"/src/d.ts": {"/src/c.ts"},
	})
	for i := 0; i < 10; i++ {
		idx.SetFile(fmtPath("dep", i), []Edge{edgeTo("/src/a.ts", "./a")})
	}
	for i := 0; i < 6; i++ {
		idx.SetFile(fmtPath("leaf", i), nil)
	}
	if idx.FileCount() != 20 {
		t.Fatalf("fixture should hold 20 files, got %d", idx.FileCount())
	}

	cycles := idx.FindAllCycles(DefaultSeverityPolicy())
	if len(cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(cycles))
	}

	first, second := cycles[0], cycles[1]
	if first.DependentCount != 10 {
		t.Fatalf("expected the depended-upon loop first, got %+v", first)
	}
	if second.DependentCount != 0 {
		t.Errorf("expected the isolated loop second, got %+v", second)
	}
	if first.Score <= second.Score {
		t.Errorf("expected strictly higher score for the depended-upon loop: %f vs %f", first.Score, second.Score)
	}

	// Both loops are length 2: 0.4*1.0 plus the dependent share.
	if !almostEqual(first.Score, 0.4+0.6*(10.0/20.0)) {
		t.Errorf("unexpected score for depended-upon loop: %f", first.Score)
	}
	if !almostEqual(second.Score, 0.4) {
		t.Errorf("unexpected score for isolated loop: %f", second.Score)
	}
	if first.Severity != SeverityCritical {
		t.Errorf("expected critical, got %s", first.Severity)
	}
	if second.Severity != SeverityModerate {
		t.Errorf("expected moderate, got %s", second.Severity)
	}
}

func TestFindAllCycles_TiesKeepDiscoveryOrder(t *testing.T) {
	idx := NewIndex()
	// Two identical 2-file loops: same score, so graph order decides.
	linkFiles(idx, map[string][]string{
		"/src/a.ts": {"/src/b.ts"},
		"/src/b.ts": {"/src/a.ts"},
		"/src/c.ts": {"/src/d.ts"},
		"/src/d.ts": {"/src/c.ts"},
	})

	cycles := idx.FindAllCycles(DefaultSeverityPolicy())
	if len(cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(cycles))
	}
	if !almostEqual(cycles[0].Score, cycles[1].Score) {
		t.Fatalf("fixture should produce a tie, got %f vs %f", cycles[0].Score, cycles[1].Score)
	}
	if cycles[0].Files[0] != "/src/a.ts" {
		t.Errorf("expected the a/b loop discovered first, got %v", cycles[0].Files)
	}
}

func TestSeverityPolicy_Boundaries(t *testing.T) {
	p := DefaultSeverityPolicy()

	if got := p.Label(0.5); got != SeverityCritical {
		t.Errorf("Label(0.5) = %s, want critical", got)
	}
	if got := p.Label(0.25); got != SeverityModerate {
		t.Errorf("Label(0.25) = %s, want moderate", got)
	}
	if got := p.Label(0.2499); got != SeverityLow {
		t.Errorf("Label(0.2499) = %s, want low", got)
	}

	// Length tiers through the combined score with no dependents.
	if got := p.Score(2, 0, 10); !almostEqual(got, 0.4) {
		t.Errorf("Score(len=2) = %f, want 0.4", got)
	}
	if got := p.Score(4, 0, 10); !almostEqual(got, 0.24) {
		t.Errorf("Score(len=4) = %f, want 0.24", got)
	}
	if got := p.Score(5, 0, 10); !almostEqual(got, 0.12) {
		t.Errorf("Score(len=5) = %f, want 0.12", got)
	}

	// Dependent share is capped at 1.0 and zero on an empty index.
	if got := p.Score(2, 50, 10); !almostEqual(got, 1.0) {
		t.Errorf("capped score = %f, want 1.0", got)
	}
	if got := p.Score(2, 5, 0); !almostEqual(got, 0.4) {
		t.Errorf("empty-index score = %f, want 0.4", got)
	}
}

func TestGroupBySeverity(t *testing.T) {
	cycles := []CycleInfo{
		{Files: []string{"a", "b"}, Severity: SeverityCritical, Score: 0.9},
		{Files: []string{"c", "d"}, Severity: SeverityLow, Score: 0.2},
		{Files: []string{"e", "f"}, Severity: SeverityCritical, Score: 0.6},
		{Files: []string{"g", "h"}, Severity: SeverityModerate, Score: 0.3},
	}

	grouped := GroupBySeverity(cycles)
	if len(grouped.Critical) != 2 || len(grouped.Moderate) != 1 || len(grouped.Low) != 1 {
		t.Fatalf("unexpected grouping: %+v", grouped)
	}
	if grouped.Critical[0].Score != 0.9 || grouped.Critical[1].Score != 0.6 {
		t.Error("grouping must preserve score order inside a bucket")
	}
}
