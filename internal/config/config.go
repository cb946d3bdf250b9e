package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Workspace Workspace `toml:"workspace"`
	Exclude   Exclude   `toml:"exclude"`
	Resolver  Resolver  `toml:"resolver"`
	Severity  Severity  `toml:"severity"`
	Watch     Watch     `toml:"watch"`
	History   History   `toml:"history"`
	Metrics   Metrics   `toml:"metrics"`
	Tracing   Tracing   `toml:"tracing"`
	Output    Output    `toml:"output"`
	Alerts    Alerts    `toml:"alerts"`
}

type Workspace struct {
	Root  string   `toml:"root"`
	Paths []string `toml:"paths"` // subtrees to scan, relative to root
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"` // glob patterns, e.g. *.test.ts
}

type Resolver struct {
	ConfigPath string   `toml:"config_path"` // explicit tsconfig/jsconfig; empty means search
	Extensions []string `toml:"extensions"`  // probe order; empty means the built-in list
}

// Severity mirrors the cycle scoring policy. Zero fields fall back to the
// stock weights during Load.
type Severity struct {
	LengthWeight    float64 `toml:"length_weight"`
	DependentWeight float64 `toml:"dependent_weight"`
	ShortLength     int     `toml:"short_length"`
	MediumLength    int     `toml:"medium_length"`
	ShortScore      float64 `toml:"short_score"`
	MediumScore     float64 `toml:"medium_score"`
	LongScore       float64 `toml:"long_score"`
	CriticalCutoff  float64 `toml:"critical_cutoff"`
	ModerateCutoff  float64 `toml:"moderate_cutoff"`
}

type Watch struct {
	Debounce     time.Duration `toml:"debounce"`
	AnalyzeRate  float64       `toml:"analyze_rate"`  // full re-analyses per second
	AnalyzeBurst int           `toml:"analyze_burst"` // burst allowance on top of the rate
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Metrics struct {
	Listen string `toml:"listen"` // host:port for /metrics; empty disables
}

type Tracing struct {
	Endpoint string `toml:"endpoint"` // OTLP gRPC endpoint; empty disables
}

type Output struct {
	DOT      string `toml:"dot"`
	TSV      string `toml:"tsv"`
	Mermaid  string `toml:"mermaid"`
	PlantUML string `toml:"plantuml"`
}

type Alerts struct {
	Beep     bool `toml:"beep"`
	Terminal bool `toml:"terminal"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validateWorkspace(&cfg); err != nil {
		return nil, err
	}
	if err := validateSeverity(&cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(&cfg); err != nil {
		return nil, err
	}
	if err := validateMetrics(&cfg); err != nil {
		return nil, err
	}
	if err := validateHistory(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = "."
	}
	if len(cfg.Workspace.Paths) == 0 {
		cfg.Workspace.Paths = []string{"."}
	}

	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{
			"node_modules", "dist", "build", "out", "coverage", "vendor", ".git",
		}
	}

	if cfg.Severity.LengthWeight == 0 && cfg.Severity.DependentWeight == 0 {
		cfg.Severity.LengthWeight = 0.4
		cfg.Severity.DependentWeight = 0.6
	}
	if cfg.Severity.ShortLength == 0 {
		cfg.Severity.ShortLength = 2
	}
	if cfg.Severity.MediumLength == 0 {
		cfg.Severity.MediumLength = 4
	}
	if cfg.Severity.ShortScore == 0 {
		cfg.Severity.ShortScore = 1.0
	}
	if cfg.Severity.MediumScore == 0 {
		cfg.Severity.MediumScore = 0.6
	}
	if cfg.Severity.LongScore == 0 {
		cfg.Severity.LongScore = 0.3
	}
	if cfg.Severity.CriticalCutoff == 0 {
		cfg.Severity.CriticalCutoff = 0.5
	}
	if cfg.Severity.ModerateCutoff == 0 {
		cfg.Severity.ModerateCutoff = 0.25
	}

	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.AnalyzeRate == 0 {
		cfg.Watch.AnalyzeRate = 1
	}
	if cfg.Watch.AnalyzeBurst == 0 {
		cfg.Watch.AnalyzeBurst = 2
	}

	if cfg.History.Path == "" {
		cfg.History.Path = "tangle-history.db"
	}
}
