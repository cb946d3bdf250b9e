package config

import (
	"fmt"
	"net"
	"strings"
)

func validateWorkspace(cfg *Config) error {
	if strings.TrimSpace(cfg.Workspace.Root) == "" {
		return fmt.Errorf("workspace.root must not be empty")
	}
	for i, p := range cfg.Workspace.Paths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("workspace.paths[%d] must not be empty", i)
		}
	}
	for i, ext := range cfg.Resolver.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("resolver.extensions[%d] must start with a dot, got %q", i, ext)
		}
	}
	return nil
}

func validateSeverity(cfg *Config) error {
	s := cfg.Severity
	if s.LengthWeight < 0 || s.DependentWeight < 0 {
		return fmt.Errorf("severity weights must not be negative")
	}
	if s.LengthWeight+s.DependentWeight == 0 {
		return fmt.Errorf("severity weights must not both be zero")
	}
	if s.ShortLength < 1 {
		return fmt.Errorf("severity.short_length must be >= 1, got %d", s.ShortLength)
	}
	if s.MediumLength < s.ShortLength {
		return fmt.Errorf("severity.medium_length must be >= short_length (%d), got %d", s.ShortLength, s.MediumLength)
	}
	for name, score := range map[string]float64{
		"short_score":  s.ShortScore,
		"medium_score": s.MediumScore,
		"long_score":   s.LongScore,
	} {
		if score < 0 || score > 1 {
			return fmt.Errorf("severity.%s must be between 0 and 1, got %g", name, score)
		}
	}
	if s.ModerateCutoff <= 0 || s.ModerateCutoff > 1 {
		return fmt.Errorf("severity.moderate_cutoff must be in (0, 1], got %g", s.ModerateCutoff)
	}
	if s.CriticalCutoff < s.ModerateCutoff || s.CriticalCutoff > 1 {
		return fmt.Errorf("severity.critical_cutoff must be in [moderate_cutoff, 1], got %g", s.CriticalCutoff)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce <= 0 {
		return fmt.Errorf("watch.debounce must be positive, got %v", cfg.Watch.Debounce)
	}
	if cfg.Watch.AnalyzeRate <= 0 {
		return fmt.Errorf("watch.analyze_rate must be positive, got %g", cfg.Watch.AnalyzeRate)
	}
	if cfg.Watch.AnalyzeBurst < 1 {
		return fmt.Errorf("watch.analyze_burst must be >= 1, got %d", cfg.Watch.AnalyzeBurst)
	}
	return nil
}

func validateMetrics(cfg *Config) error {
	listen := strings.TrimSpace(cfg.Metrics.Listen)
	if listen == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(listen); err != nil {
		return fmt.Errorf("metrics.listen must be host:port: %w", err)
	}
	return nil
}

func validateHistory(cfg *Config) error {
	if cfg.History.Enabled && strings.TrimSpace(cfg.History.Path) == "" {
		return fmt.Errorf("history.path must not be empty when history.enabled=true")
	}
	return nil
}
