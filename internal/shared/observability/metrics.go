package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tangle_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tangle_scan_seconds",
		Help:    "Time spent on a full workspace scan.",
		Buckets: prometheus.DefBuckets,
	})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tangle_analysis_seconds",
		Help:    "Time spent on high-level analysis tasks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	GraphFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tangle_graph_files_total",
		Help: "Total number of indexed files in the dependency graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tangle_graph_edges_total",
		Help: "Total number of edges in the dependency graph.",
	})

	UnresolvedReferences = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tangle_unresolved_references",
		Help: "Local-looking references that failed to resolve during the last scan.",
	})

	Cycles = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tangle_cycles",
		Help: "Import cycles found by the last analysis, by severity.",
	}, []string{"severity"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tangle_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	ScansSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tangle_scans_skipped_total",
		Help: "Workspace scans skipped because another scan was in flight.",
	})
)
