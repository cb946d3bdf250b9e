package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"

	"tangle/internal/engine/extract"
)

// ScanRoots derives the absolute scan roots from the workspace
// configuration, deduplicated and sorted. The watcher watches the same
// roots the scanner walks.
func (s *Service) ScanRoots() []string {
	root := s.WorkspaceRoot()

	seen := make(map[string]bool, len(s.cfg.Workspace.Paths))
	roots := make([]string, 0, len(s.cfg.Workspace.Paths))
	for _, p := range s.cfg.Workspace.Paths {
		candidate := p
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(root, candidate)
		}
		candidate = filepath.Clean(candidate)
		if seen[candidate] {
			continue
		}
		seen[candidate] = true
		roots = append(roots, candidate)
	}
	if len(roots) == 0 {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}

func (s *Service) scanWorkspace(ctx context.Context) ([]string, error) {
	return s.ScanDirectories(ctx, s.ScanRoots(), s.cfg.Exclude.Dirs, s.cfg.Exclude.Files)
}

// ScanDirectories walks the given roots and collects every supported source
// file, honoring the exclude patterns. Directories matching an exclude glob
// are pruned whole; unreadable subtrees are skipped with a warning so a
// single bad mount cannot abort the scan.
func (s *Service) ScanDirectories(ctx context.Context, paths []string, excludeDirs, excludeFiles []string) ([]string, error) {
	var files []string

	dirGlobs := make([]glob.Glob, 0, len(excludeDirs))
	for _, p := range excludeDirs {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude dir pattern %q: %w", p, err)
		}
		dirGlobs = append(dirGlobs, g)
	}

	fileGlobs := make([]glob.Glob, 0, len(excludeFiles))
	for _, p := range excludeFiles {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude file pattern %q: %w", p, err)
		}
		fileGlobs = append(fileGlobs, g)
	}

	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d == nil {
					return err
				}
				slog.Warn("skipping unreadable path", "path", path, "error", err)
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			base := filepath.Base(path)
			if d.IsDir() {
				for _, g := range dirGlobs {
					if g.Match(base) {
						return filepath.SkipDir
					}
				}
				return nil
			}

			if extract.DetectLanguage(path) == "" {
				return nil
			}

			for _, g := range fileGlobs {
				if g.Match(base) {
					return nil
				}
			}

			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}
