package catalog

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/johan-st/sparql-tui/internal/service"
)

// Watcher reloads the catalog when a matching examples file changes.
type Watcher struct {
	catalog   *Catalog
	watcher   *fsnotify.Watcher
	callbacks []func([]service.Example)
	recursive []string
	stop      chan struct{}
	stopOnce  sync.Once
	mu        sync.RWMutex
}

// NewWatcher creates a watcher for the catalog's patterns.
func NewWatcher(c *Catalog) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		catalog: c,
		watcher: watcher,
		stop:    make(chan struct{}),
	}, nil
}

// OnReload registers a callback to be called after each reload.
func (w *Watcher) OnReload(callback func([]service.Example)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start watches the base directory of every pattern, and every directory
// below it when the pattern contains "**". Directories that do not exist
// are skipped.
func (w *Watcher) Start() error {
	dirs := make(map[string]bool)
	for _, pattern := range w.catalog.Patterns() {
		base, rest := doublestar.SplitPattern(filepath.ToSlash(pattern))
		dir := filepath.FromSlash(base)
		deep := strings.Contains(rest, "**")
		if deep {
			w.recursive = append(w.recursive, dir)
		}
		if dirs[dir] && !deep {
			continue
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			w.catalog.logger.Warn("examples directory not found, not watching", "dir", dir)
			continue
		}
		var err error
		if deep {
			err = w.addTree(dir)
		} else {
			err = w.watcher.Add(dir)
		}
		if err != nil {
			return err
		}
		dirs[dir] = true
	}

	if len(dirs) == 0 {
		return nil
	}
	go w.watch()
	return nil
}

// Stop stops watching.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		w.watcher.Close()
	})
}

// addTree watches root and every directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// deepDir reports whether name is a new directory below a "**" base.
func (w *Watcher) deepDir(name string) bool {
	for _, base := range w.recursive {
		rel, err := filepath.Rel(base, name)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		info, err := os.Stat(name)
		return err == nil && info.IsDir()
	}
	return false
}

func (w *Watcher) matches(name string) bool {
	name = filepath.ToSlash(name)
	for _, pattern := range w.catalog.Patterns() {
		if ok, _ := doublestar.Match(filepath.ToSlash(pattern), name); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) watch() {
	// Debounce timer to avoid multiple reloads for rapid changes
	var debounceTimer *time.Timer
	const debounceDelay = 100 * time.Millisecond
	schedule := func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(debounceDelay, w.reload)
	}

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// A new directory may already hold matching files.
			if event.Has(fsnotify.Create) && w.deepDir(event.Name) {
				if err := w.addTree(event.Name); err != nil {
					w.catalog.logger.Warn("failed to watch examples directory", "dir", event.Name, "err", err)
				}
				schedule()
				continue
			}
			if !w.matches(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.catalog.logger.Warn("examples watcher error", "err", err)

		case <-w.stop:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) reload() {
	if err := w.catalog.Load(); err != nil {
		w.catalog.logger.Warn("examples reloaded with errors", "err", err)
	} else {
		w.catalog.logger.Info("examples reloaded", "files", len(w.catalog.Files()))
	}

	w.mu.RLock()
	callbacks := make([]func([]service.Example), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	examples := w.catalog.Examples()
	for _, cb := range callbacks {
		cb(examples)
	}
}
