package watcher

import (
	"crypto/sha256"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"tangle/internal/engine/extract"
	"tangle/internal/shared/observability"
)

// Watcher turns raw file system events into debounced change batches.
// Events for identical content are dropped so editors that rewrite files
// on save without modifying them do not trigger re-analysis.
type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	debounce     time.Duration
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	extFilters   map[string]bool
	nameFilters  map[string]bool
	onChange     func([]string)
	callbackMu   sync.Mutex

	pending   map[string]time.Time
	pendingMu sync.Mutex
	timer     *time.Timer

	hashMu sync.Mutex
	hashes map[string][sha256.Size]byte
}

func NewWatcher(debounce time.Duration, excludeDirs, excludeFiles []string, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	compiledDirs := make([]glob.Glob, 0, len(excludeDirs))
	for _, pattern := range excludeDirs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		compiledDirs = append(compiledDirs, g)
	}

	compiledFiles := make([]glob.Glob, 0, len(excludeFiles))
	for _, pattern := range excludeFiles {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		compiledFiles = append(compiledFiles, g)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	extFilters := make(map[string]bool)
	for _, ext := range extract.SupportedExtensions() {
		extFilters[ext] = true
	}

	w := &Watcher{
		fsWatcher:  fsw,
		debounce:   debounce,
		onChange:   onChange,
		pending:    make(map[string]time.Time),
		hashes:     make(map[string][sha256.Size]byte),
		extFilters: extFilters,
		nameFilters: map[string]bool{
			"tsconfig.json": true,
			"jsconfig.json": true,
		},
	}

	w.excludeDirs = compiledDirs
	w.excludeFiles = compiledFiles

	return w, nil
}

// SetLanguageFilters overrides which extensions and exact file names pass
// the event filter. Name filters route files like tsconfig.json that are
// not source code but still invalidate the graph.
func (w *Watcher) SetLanguageFilters(extensions, filenames []string) {
	extFilter := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		extFilter[normalized] = true
	}

	nameFilter := make(map[string]bool, len(filenames))
	for _, name := range filenames {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		nameFilter[normalized] = true
	}

	w.extFilters = extFilter
	w.nameFilters = nameFilter
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		if err := w.watchRecursive(path); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if w.shouldExcludeDir(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}

		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.shouldExcludeDir(event.Name) {
						if err := w.watchRecursive(event.Name); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						} else {
							w.enqueueExistingFiles(event.Name)
						}
					}
					continue
				}
			}

			if w.shouldExcludeFile(event.Name) {
				continue
			}

			switch {
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.dropHash(event.Name)
				w.scheduleChange(event.Name)
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				if w.contentChanged(event.Name) {
					w.scheduleChange(event.Name)
				}
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

// contentChanged reads the file and compares its digest against the last
// seen one. Unreadable files count as changed; downstream decides whether
// that means removal.
func (w *Watcher) contentChanged(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		w.dropHash(path)
		return true
	}
	sum := sha256.Sum256(data)

	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	if prev, ok := w.hashes[path]; ok && prev == sum {
		return false
	}
	w.hashes[path] = sum
	return true
}

func (w *Watcher) dropHash(path string) {
	w.hashMu.Lock()
	delete(w.hashes, path)
	w.hashMu.Unlock()
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.flushChanges()
	})
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	if len(paths) > 0 {
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(paths)
	}
}

func (w *Watcher) shouldExcludeDir(path string) bool {
	base := filepath.Base(path)
	for _, g := range w.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldExcludeFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))

	if len(w.extFilters) > 0 || len(w.nameFilters) > 0 {
		if w.nameFilters[base] {
			// Explicit file-name routes such as tsconfig.json.
		} else {
			ext := strings.ToLower(filepath.Ext(base))
			if !w.extFilters[ext] {
				return true
			}
		}
	}

	for _, g := range w.excludeFiles {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) Close() error {
	if w.timer != nil {
		w.timer.Stop()
	}
	return w.fsWatcher.Close()
}

func (w *Watcher) enqueueExistingFiles(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil {
			return nil
		}
		if info.IsDir() {
			if w.shouldExcludeDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.shouldExcludeFile(path) {
			return nil
		}
		if w.contentChanged(path) {
			w.scheduleChange(path)
		}
		return nil
	})
}
