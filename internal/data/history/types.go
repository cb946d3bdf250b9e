package history

import "time"

const SchemaVersion = 1

// Run summarizes one full workspace analysis: how big the graph was and
// what the cycle detectors found. Only aggregates are stored; the index
// itself is rebuilt in memory each session and never persisted.
type Run struct {
	SchemaVersion   int           `json:"schema_version"`
	RunID           string        `json:"run_id"`
	Timestamp       time.Time     `json:"timestamp"`
	FileCount       int           `json:"file_count"`
	EdgeCount       int           `json:"edge_count"`
	CycleCount      int           `json:"cycle_count"`
	CriticalCount   int           `json:"critical_count"`
	ModerateCount   int           `json:"moderate_count"`
	LowCount        int           `json:"low_count"`
	UnresolvedCount int           `json:"unresolved_count"`
	Duration        time.Duration `json:"duration"`
}
