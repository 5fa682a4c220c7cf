package model

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"resumescore/internal/errors"
)

// Reloader is anything that can re-read its files on demand.
type Reloader interface {
	Reload() error
}

// Watcher reloads the artifact store when its files change on disk.
type Watcher struct {
	mu sync.Mutex

	files       []string
	lastModTime map[string]time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	target Reloader
	logger *errors.Logger

	running bool
}

// NewWatcher creates a watcher for files that calls target.Reload after a quiet period.
func NewWatcher(files []string, debounceDelay time.Duration, target Reloader, logger *errors.Logger) *Watcher {
	if debounceDelay <= 0 {
		debounceDelay = time.Second
	}
	if logger == nil {
		logger = errors.Discard()
	}
	return &Watcher{
		files:         slices.DeleteFunc(slices.Clone(files), func(f string) bool { return f == "" }),
		lastModTime:   make(map[string]time.Time),
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		target:        target,
		logger:        logger,
	}
}

// Start begins watching.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("model watcher is already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fsWatcher = fsw
	w.updateModTimes()

	// Watch directories, not files: artifacts are replaced by rename, which drops a
	// watch placed on the old inode.
	dirs := make(map[string]struct{})
	for _, f := range w.files {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			w.logger.Warn("Failed to watch model directory", "directory", dir, "error", err)
		}
	}

	w.running = true
	go w.watchLoop()

	w.logger.Info("Model file watcher started",
		"files", w.files,
		"debounce_delay", w.debounceDelay)
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	close(w.stopChan)
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.running = false

	if err := w.fsWatcher.Close(); err != nil {
		w.logger.LogError(err, "Failed to close model file watcher")
		return err
	}
	w.logger.Info("Model file watcher stopped")
	return nil
}

// IsRunning reports whether the watch loop is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if w.isRelevant(event) {
				w.scheduleReload()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.LogError(err, "Model file watcher error")

		case <-w.reloadChan:
			if w.anyChanged() {
				w.logger.Info("Model files changed, reloading")
				// Reload logs its own failures and keeps the previous pair.
				_ = w.target.Reload()
			}

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) isRelevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	return slices.ContainsFunc(w.files, func(f string) bool {
		return filepath.Clean(f) == name
	})
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		select {
		case w.reloadChan <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) updateModTimes() {
	for _, f := range w.files {
		if stat, err := os.Stat(f); err == nil {
			w.lastModTime[f] = stat.ModTime()
		}
	}
}

// anyChanged is only called from the watch loop, so lastModTime needs no lock.
func (w *Watcher) anyChanged() bool {
	changed := false
	for _, f := range w.files {
		stat, err := os.Stat(f)
		if err != nil {
			continue
		}
		last, seen := w.lastModTime[f]
		if !seen || !stat.ModTime().Equal(last) {
			w.lastModTime[f] = stat.ModTime()
			changed = true
		}
	}
	return changed
}
