// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package budget

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadHandler is called after a debounced change to the watched
// budget file: with the freshly loaded budget on success, or with a
// nil budget and the load error when the new contents do not parse or
// validate.
type ReloadHandler func(b *Budget, err error)

// Watcher reloads a budget file when it changes on disk.
//
// # Description
//
// Watches the file's parent directory rather than the file itself, so
// editors that save by writing a temporary file and renaming it over
// the target are still observed. Rapid event bursts during a save are
// collapsed by a debounce window before the file is reloaded.
//
// # Thread Safety
//
// Safe for concurrent use. The handler is called from a single
// goroutine.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	handler  ReloadHandler
	debounce time.Duration

	changes  chan time.Time
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
}

// WatcherOptions configures the Watcher.
type WatcherOptions struct {
	// DebounceWindow is how long to wait for more changes before
	// reloading. Default: 200ms
	DebounceWindow time.Duration

	// BufferSize is the size of the change buffer channel.
	// Default: 64
	BufferSize int
}

// DefaultWatcherOptions returns sensible defaults.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		DebounceWindow: 200 * time.Millisecond,
		BufferSize:     64,
	}
}

// NewWatcher creates a watcher for the given budget file.
//
// # Inputs
//
//   - path: Path to the budget file to watch.
//   - handler: Function called with the reload outcome after each
//     debounced change.
//   - opts: Optional configuration (nil uses defaults).
//
// # Outputs
//
//   - *Watcher: Ready-to-use watcher (call Start to begin watching).
//   - error: Non-nil if the underlying notifier could not be created.
func NewWatcher(path string, handler ReloadHandler, opts *WatcherOptions) (*Watcher, error) {
	if opts == nil {
		defaults := DefaultWatcherOptions()
		opts = &defaults
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		path:     filepath.Clean(path),
		watcher:  watcher,
		handler:  handler,
		debounce: opts.DebounceWindow,
		changes:  make(chan time.Time, opts.BufferSize),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching for changes.
//
// Spawns two goroutines:
//   - Event processor: Filters directory events down to the target file
//   - Debouncer: Collapses bursts and reloads after the quiet period
//
// Both goroutines exit when Stop() is called or the context is
// canceled. The file itself may be momentarily absent; only its parent
// directory has to exist.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil // Already watching
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
		return err
	}

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)

	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching returns true if the watcher is currently active.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// concerns reports whether a directory event touches the watched file.
func (w *Watcher) concerns(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}

// processEvents filters fsnotify events and feeds the debouncer.
func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.concerns(event) {
				continue
			}

			// Send to debounce channel (non-blocking)
			select {
			case w.changes <- time.Now():
			default:
				// Buffer full; the pending reload already covers this
				// change.
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("budget watcher error",
				slog.String("path", w.path),
				slog.String("error", err.Error()),
			)
		}
	}
}

// debounceLoop reloads the budget after the change burst quiets down.
func (w *Watcher) debounceLoop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-w.changes:
			// Reset or start debounce timer
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()
		}
	}
}

// reload loads the file and hands the outcome to the handler. A save
// that leaves the file briefly absent or half-written surfaces as an
// error; the next change will try again.
func (w *Watcher) reload() {
	if w.handler == nil {
		return
	}
	b, err := Load(w.path)
	if err != nil {
		w.handler(nil, err)
		return
	}
	w.handler(b, nil)
}
