// This file implements a file system watcher for the capture asset
// tree. It uses OS-level file system events to notice externally
// deleted or replaced images so thumbnails can be reconciled.

package storage

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the storage root for asset changes and reports the
// affected paths after a quiet period. The callback decides what to do
// with them; the server wires it to thumbnail reconciliation.
type Watcher struct {
	storage       *Storage
	onChange      func(paths []string)
	watcher       *fsnotify.Watcher
	changedPaths  map[string]bool
	mu            sync.Mutex
	debounceTimer *time.Timer
	debounceDelay time.Duration
	stopChan      chan struct{}
}

// NewWatcher creates a watcher over the storage root. onChange runs on
// its own goroutine once events settle.
func NewWatcher(storage *Storage, onChange func(paths []string)) *Watcher {
	return &Watcher{
		storage:       storage,
		onChange:      onChange,
		changedPaths:  make(map[string]bool),
		debounceDelay: 2 * time.Second, // Wait 2 seconds after last change before reconciling
		stopChan:      make(chan struct{}),
	}
}

// Start begins watching the storage root for changes.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	// Watch the storage root recursively. New group directories are
	// added to the watch list as they appear.
	err = filepath.WalkDir(w.storage.Root(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return err
	}

	log.Printf("Asset watcher started for storage root: %s", w.storage.Root())

	go w.processEvents()
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.stopChan)
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *Watcher) processEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Asset watcher error: %v", err)

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Chmod fires when files are merely opened or browsed; it never
	// changes asset contents.
	if event.Op == fsnotify.Chmod {
		return
	}

	hasRelevantOp := (event.Op&fsnotify.Create == fsnotify.Create) ||
		(event.Op&fsnotify.Write == fsnotify.Write) ||
		(event.Op&fsnotify.Remove == fsnotify.Remove)
	if !hasRelevantOp {
		return
	}

	info, err := os.Stat(event.Name)
	isDir := err == nil && info.IsDir()

	// New group directories must join the watch list or their files
	// go unseen.
	if event.Op&fsnotify.Create == fsnotify.Create && isDir {
		w.watcher.Add(event.Name)
		return
	}

	if !isDir && w.isAssetFile(event.Name) {
		w.recordChange(event.Name)
	}
}

// isAssetFile limits reconciliation to the image formats the capture
// pipeline writes.
func (w *Watcher) isAssetFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

func (w *Watcher) recordChange(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.changedPaths[path] = true
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.flush)
}

// flush hands the settled change set to the callback.
func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.changedPaths) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.changedPaths))
	for path := range w.changedPaths {
		paths = append(paths, path)
	}
	w.changedPaths = make(map[string]bool)
	w.mu.Unlock()

	log.Printf("Asset watcher detected %d changed path(s), triggering reconcile", len(paths))

	go w.onChange(paths)
}
