// Package watcher notifies about changes to a mapping file, with debouncing.
package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/implreg/internal/log"
)

// Watcher monitors one file for changes and sends coalesced notifications.
// The parent directory is watched so editors that save by rename are seen.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	path      string
	names     map[string]bool
	debounce  time.Duration
	onChange  chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
}

// Config holds watcher configuration options.
type Config struct {
	// Path is the file to watch.
	Path string

	// DebounceDur is how long the file must be quiet before a notification.
	DebounceDur time.Duration

	// Companions are extra file names in the same directory that count as
	// changes to Path, e.g. a SQLite "-wal" file.
	Companions []string
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		DebounceDur: 200 * time.Millisecond,
	}
}

// SQLiteConfig watches a SQLite database and its write-ahead log.
func SQLiteConfig(path string, debounce time.Duration) Config {
	return Config{
		Path:        path,
		DebounceDur: debounce,
		Companions:  []string{filepath.Base(path) + "-wal"},
	}
}

// New creates a new file watcher.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	names := map[string]bool{filepath.Base(cfg.Path): true}
	for _, c := range cfg.Companions {
		names[c] = true
	}

	return &Watcher{
		fsWatcher: fsw,
		path:      cfg.Path,
		names:     names,
		debounce:  cfg.DebounceDur,
		onChange:  make(chan struct{}, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching the file's directory.
// Returns a channel that receives a signal when the file changes.
func (w *Watcher) Start() (<-chan struct{}, error) {
	dir := filepath.Dir(w.path)
	if err := w.fsWatcher.Add(dir); err != nil {
		return nil, fmt.Errorf("watching directory %s: %w", dir, err)
	}

	log.Debug(log.CatWatcher, "watching", "path", w.path, "debounce", w.debounce)
	go w.loop()

	return w.onChange, nil
}

// Stop terminates the watcher and releases resources. It is safe to call twice.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
	})
	return err
}

// loop processes file system events with debouncing.
func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending bool
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevantEvent(event) {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerC = timer.C
			pending = true

		case <-timerC:
			timerC = nil
			if pending {
				// Drop if a notification is already queued.
				select {
				case w.onChange <- struct{}{}:
				default:
				}
				pending = false
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "watch error", err, "path", w.path)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// isRelevantEvent reports whether event should trigger a reload.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	// Rename and Create cover editors that write a temp file and move it into place.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return w.names[filepath.Base(event.Name)]
}
