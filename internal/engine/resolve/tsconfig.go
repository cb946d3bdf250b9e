package resolve

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
)

// compilerConfig mirrors the subset of tsconfig.json / jsconfig.json the
// resolver consumes. Paths stays raw because its entry order must survive
// decoding (Go maps would drop it).
type compilerConfig struct {
	Extends         string `json:"extends"`
	CompilerOptions struct {
		BaseURL string          `json:"baseUrl"`
		Paths   json.RawMessage `json:"paths"`
	} `json:"compilerOptions"`
}

type pathEntry struct {
	key    string
	values []string
}

var configFileNames = []string{"tsconfig.json", "jsconfig.json"}

// configSubdirs are probed after the project root itself.
var configSubdirs = []string{"src", "app", "client"}

// scanSkipDirs are never entered during the one-level fallback scan.
var scanSkipDirs = map[string]bool{
	"node_modules": true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"coverage":     true,
	"vendor":       true,
}

// LoadAliasTable locates and parses the project's compiler configuration and
// builds the alias table. Every failure mode (no config, unreadable config,
// malformed JSON) degrades to an empty table: only relative imports resolve
// then. Alias configuration trouble must never block indexing.
func LoadAliasTable(projectRoot string) *AliasTable {
	configPath := findProjectConfig(projectRoot)
	if configPath == "" {
		slog.Debug("no compiler config found, relative-only resolution", "root", projectRoot)
		return NewAliasTable(projectRoot)
	}

	table, err := loadTableFromConfig(configPath)
	if err != nil {
		slog.Warn("compiler config unusable, relative-only resolution",
			"path", configPath, "error", err)
		return NewAliasTable(projectRoot)
	}
	slog.Debug("alias table loaded", "path", configPath, "aliases", table.Len())
	return table
}

// LoadAliasTableFromFile builds the alias table from an explicitly configured
// compiler config, bypassing the search order. Failures degrade to an empty
// table just like LoadAliasTable.
func LoadAliasTableFromFile(configPath string) *AliasTable {
	table, err := loadTableFromConfig(configPath)
	if err != nil {
		slog.Warn("compiler config unusable, relative-only resolution",
			"path", configPath, "error", err)
		return NewAliasTable(filepath.Dir(configPath))
	}
	slog.Debug("alias table loaded", "path", configPath, "aliases", table.Len())
	return table
}

// findProjectConfig returns the first tsconfig.json/jsconfig.json found by the
// search order: project root, then a fixed list of common sub-directories,
// then a one-level scan of immediate subdirectories skipping build, dependency
// and dot (VCS/tooling) directories.
func findProjectConfig(root string) string {
	for _, name := range configFileNames {
		if p := filepath.Join(root, name); isRegularFile(p) {
			return p
		}
	}

	for _, sub := range configSubdirs {
		for _, name := range configFileNames {
			if p := filepath.Join(root, sub, name); isRegularFile(p) {
				return p
			}
		}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := entry.Name()
		if scanSkipDirs[dir] || strings.HasPrefix(dir, ".") {
			continue
		}
		for _, name := range configFileNames {
			if p := filepath.Join(root, dir, name); isRegularFile(p) {
				return p
			}
		}
	}
	return ""
}

func loadTableFromConfig(configPath string) (*AliasTable, error) {
	cfg, err := parseConfigFile(configPath)
	if err != nil {
		return nil, err
	}

	configDir := filepath.Dir(configPath)
	entries, err := decodeOrderedPaths(cfg.CompilerOptions.Paths)
	if err != nil {
		return nil, fmt.Errorf("decode paths: %w", err)
	}
	baseURL := resolveBaseURL(configDir, cfg.CompilerOptions.BaseURL)

	// Single-level extends: the base config contributes entries the derived
	// config does not override. Deeper extends chains are not followed.
	if cfg.Extends != "" {
		base, baseDir, err := parseExtendedConfig(configDir, cfg.Extends)
		if err != nil {
			slog.Debug("ignoring unusable extends target", "extends", cfg.Extends, "error", err)
		} else {
			baseEntries, err := decodeOrderedPaths(base.CompilerOptions.Paths)
			if err != nil {
				slog.Debug("ignoring unusable extends paths", "extends", cfg.Extends, "error", err)
			} else {
				entries = mergePathEntries(baseEntries, entries)
			}
			if baseURL == "" {
				baseURL = resolveBaseURL(baseDir, base.CompilerOptions.BaseURL)
			}
		}
	}

	if baseURL == "" {
		baseURL = configDir
	}

	table := NewAliasTable(configDir)
	for _, entry := range entries {
		prefix := strings.TrimSuffix(entry.key, "*")
		target := firstTarget(entry.values)
		if prefix == "" || target == "" {
			continue
		}
		table.Register(prefix, filepath.Clean(filepath.Join(baseURL, target)))
	}
	return table, nil
}

// parseConfigFile reads and unmarshals one config file, tolerating line
// comments and trailing commas (tsconfig files are JSONC in practice).
func parseConfigFile(path string) (*compilerConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg compilerConfig
	if err := json.Unmarshal(jsonc.ToJSON(raw), &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func parseExtendedConfig(configDir, extends string) (*compilerConfig, string, error) {
	target := extends
	if !filepath.IsAbs(target) {
		target = filepath.Join(configDir, target)
	}
	if !isRegularFile(target) && !strings.HasSuffix(target, ".json") {
		target += ".json"
	}
	cfg, err := parseConfigFile(target)
	if err != nil {
		return nil, "", err
	}
	return cfg, filepath.Dir(target), nil
}

// decodeOrderedPaths walks the raw "paths" object token by token so entries
// keep the order they appear in the file.
func decodeOrderedPaths(raw json.RawMessage) ([]pathEntry, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var entries []pathEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("non-string key %v", keyTok)
		}
		var values []string
		if err := dec.Decode(&values); err != nil {
			return nil, err
		}
		entries = append(entries, pathEntry{key: key, values: values})
	}
	return entries, nil
}

// mergePathEntries merges base and derived path entries: overridden keys keep
// their base position with the derived values, derived-only keys append after.
func mergePathEntries(base, derived []pathEntry) []pathEntry {
	overrides := make(map[string][]string, len(derived))
	for _, entry := range derived {
		overrides[entry.key] = entry.values
	}

	merged := make([]pathEntry, 0, len(base)+len(derived))
	fromBase := make(map[string]bool, len(base))
	for _, entry := range base {
		fromBase[entry.key] = true
		if values, ok := overrides[entry.key]; ok {
			merged = append(merged, pathEntry{key: entry.key, values: values})
		} else {
			merged = append(merged, entry)
		}
	}
	for _, entry := range derived {
		if !fromBase[entry.key] {
			merged = append(merged, entry)
		}
	}
	return merged
}

func resolveBaseURL(configDir, baseURL string) string {
	if baseURL == "" {
		return ""
	}
	if filepath.IsAbs(baseURL) {
		return filepath.Clean(baseURL)
	}
	// "." and "./" both denote the config directory; Join normalizes them.
	return filepath.Clean(filepath.Join(configDir, baseURL))
}

// firstTarget picks the first substitution target and strips its wildcard.
// Multi-target fallback arrays are not modeled; the first entry wins.
func firstTarget(values []string) string {
	if len(values) == 0 {
		return ""
	}
	target := strings.TrimSuffix(values[0], "*")
	return strings.TrimSuffix(target, "/")
}
