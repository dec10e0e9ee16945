// Package watch reports changes to a single file using fsnotify, falling back
// to modification-time polling when native notifications are unavailable.
//
// The parent directory is watched rather than the file itself so that
// editors and host shims replacing the file by rename keep producing events.
package watch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is the stat interval used in polling mode.
const DefaultPollInterval = 2 * time.Second

// ///////////////////////////////////////////////
// Watcher
// ///////////////////////////////////////////////

// Watcher signals on [Watcher.Events] whenever the watched file is written,
// created, replaced or removed.
type Watcher struct {
	path string
	name string
	// events is buffered to 1 so back-to-back writes coalesce.
	events chan struct{}
	done   chan struct{}
	fsw    *fsnotify.Watcher
	once   sync.Once

	polling      atomic.Bool
	pollInterval time.Duration
}

// Option configures a [Watcher].
type Option func(*Watcher)

// WithPollInterval overrides [DefaultPollInterval].
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithPolling forces polling mode, skipping fsnotify entirely.
func WithPolling() Option {
	return func(w *Watcher) { w.polling.Store(true) }
}

// New starts watching path. The file does not need to exist yet, but its
// directory should.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve watch path: %w", err)
	}
	w := &Watcher{
		path:         abs,
		name:         filepath.Base(abs),
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.polling.Load() {
		go w.poll()
		return w, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Info("fsnotify unavailable, falling back to polling", "path", abs, "error", err)
		w.polling.Store(true)
		go w.poll()
		return w, nil
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		slog.Info("cannot watch directory, falling back to polling", "path", abs, "error", err)
		fsw.Close()
		w.polling.Store(true)
		go w.poll()
		return w, nil
	}
	w.fsw = fsw

	go w.watch()
	return w, nil
}

// Events returns a channel that receives a signal when the file changes.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Polling reports whether the watcher is using polling instead of fsnotify.
func (w *Watcher) Polling() bool {
	return w.polling.Load()
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Close stops the watcher and releases resources. Safe to call repeatedly.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		if w.fsw != nil {
			if closeErr := w.fsw.Close(); closeErr != nil {
				err = fmt.Errorf("closing fsnotify watcher: %w", closeErr)
			}
		}
	})
	return err
}

// ///////////////////////////////////////////////
// Event Loops
// ///////////////////////////////////////////////

const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

// watch forwards fsnotify events for the target file. An fsnotify error
// switches the watcher to polling for the rest of its life.
func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) == w.name && event.Op&relevantOps != 0 {
				w.notify()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Info("fsnotify error, switching to polling", "path", w.path, "error", err)
			// fsnotify's Close is idempotent, so the later Close call is harmless.
			w.fsw.Close()
			w.polling.Store(true)
			go w.poll()
			return
		}
	}
}

// poll stats the file every pollInterval and signals when its modification
// time or existence changes.
func (w *Watcher) poll() {
	lastMod, lastExists := w.stat()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			mod, exists := w.stat()
			if exists != lastExists || mod.After(lastMod) {
				lastMod, lastExists = mod, exists
				w.notify()
			}
		}
	}
}

func (w *Watcher) stat() (time.Time, bool) {
	info, err := os.Stat(w.path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// notify sends a single signal. If a signal is already pending the call is
// a no-op, coalescing rapid successive changes.
func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}
