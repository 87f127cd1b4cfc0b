package ruleset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/observability"
)

var noCtx = context.Background()

// Loader resolves a directory of versioned ruleset JSON files and keeps an
// immutable *Ruleset available to callers. A Loader is safe for concurrent
// use; Current() returns a snapshot, never a value that mutates under the
// caller.
type Loader struct {
	dir     string
	current atomic.Pointer[Ruleset]

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewLoader loads every ruleset file in dir once and keeps the newest by
// creation timestamp as current, per spec.md §4.1.
func NewLoader(dir string) (*Loader, error) {
	l := &Loader{dir: dir}
	if err := l.reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Current returns the ruleset currently in effect.
func (l *Loader) Current() *Ruleset {
	return l.current.Load()
}

func (l *Loader) reload() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return domain.Configuration(fmt.Sprintf("read ruleset directory %s", l.dir), err)
	}

	var newest *Ruleset
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(l.dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return domain.Configuration(fmt.Sprintf("read ruleset file %s", path), err)
		}
		info, err := entry.Info()
		if err != nil {
			return domain.Configuration(fmt.Sprintf("stat ruleset file %s", path), err)
		}
		rs, err := Parse(raw, entry.Name(), info.ModTime(), info.ModTime())
		if err != nil {
			return err
		}
		if newest == nil || rs.CreatedAt.After(newest.CreatedAt) {
			newest = rs
		}
	}
	if newest == nil {
		return domain.Configuration(fmt.Sprintf("no ruleset files found in %s", l.dir), nil)
	}
	l.current.Store(newest)
	return nil
}

// Watch starts an fsnotify watch on the ruleset directory; a newly dropped
// or modified JSON file triggers a reload and atomically swaps Current().
// Existing holders of the old *Ruleset pointer are unaffected, matching the
// "immutable configuration injected into components" pattern spec.md §9
// describes.
func (l *Loader) Watch() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return domain.DependencyUnavailable("start ruleset watcher", err)
	}
	if err := w.Add(l.dir); err != nil {
		w.Close()
		return domain.Configuration(fmt.Sprintf("watch ruleset directory %s", l.dir), err)
	}
	l.watcher = w
	l.done = make(chan struct{})
	go l.watchLoop()
	return nil
}

func (l *Loader) watchLoop() {
	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != ".json" {
				continue
			}
			if err := l.reload(); err != nil {
				observability.LogEvent(noCtx, "error", "ruleset_reload_failed", map[string]any{"error": err.Error()})
			} else {
				observability.LogEvent(noCtx, "info", "ruleset_reloaded", map[string]any{"path": event.Name})
			}
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			observability.LogEvent(noCtx, "error", "ruleset_watch_error", map[string]any{"error": err.Error()})
		case <-l.done:
			return
		}
	}
}

// Close stops the watcher started by Watch, if any.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher == nil {
		return nil
	}
	close(l.done)
	err := l.watcher.Close()
	l.watcher = nil
	return err
}
