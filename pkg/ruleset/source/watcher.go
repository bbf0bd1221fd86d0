package source

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is the quiet period before a changed file is reloaded.
const DefaultDebounceInterval = 100 * time.Millisecond

// Watcher reloads a FileSource when its file changes. The parent directory
// is watched so editors that replace the file by rename are noticed.
type Watcher struct {
	source   *FileSource
	loader   Loader
	recorder RefreshRecorder
	logger   *slog.Logger
	debounce *Debouncer
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher. A non-positive debounce uses
// DefaultDebounceInterval.
func NewWatcher(src *FileSource, loader Loader, debounce time.Duration, logger *slog.Logger, recorder RefreshRecorder) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounceInterval
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &Watcher{
		source:   src,
		loader:   loader,
		recorder: recorder,
		logger:   logger.With("component", "rules.watcher"),
		debounce: NewDebouncer(debounce),
		watcher:  w,
	}, nil
}

// Run watches until ctx is cancelled. onReload, when set, is called after
// every reload attempt.
func (w *Watcher) Run(ctx context.Context, onReload func(error)) error {
	defer w.close()

	target, err := filepath.Abs(w.source.Path())
	if err != nil {
		return fmt.Errorf("failed to resolve rules path: %w", err)
	}
	if err := w.watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch path: %w", err)
	}

	w.logger.Info("rules file watcher started",
		"path", target,
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("rules file watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !relevant(event, target) {
				continue
			}
			w.logger.Debug("rules file event",
				"path", event.Name,
				"op", event.Op.String(),
			)
			w.debounce.Trigger(func() {
				err := Reload(ctx, w.source, w.loader)
				if w.recorder != nil {
					w.recorder.RecordRulesRefresh(w.source.Name(), err)
				}
				if err != nil {
					w.logger.Error("rules reload failed", "error", err)
				} else {
					w.logger.Info("rules reloaded", "path", target)
				}
				if onReload != nil {
					onReload(err)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("rules file watcher error", "error", err)
		}
	}
}

func (w *Watcher) close() {
	w.debounce.Stop()
	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("failed to close watcher", "error", err)
	}
}

func relevant(event fsnotify.Event, target string) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return name == target
}

// Debouncer runs the last triggered callback once no trigger has arrived
// for the interval.
type Debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
}

// NewDebouncer creates a debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger schedules callback, replacing any pending one.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			callback()
		}
	})
}

// Stop cancels any pending callback. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
