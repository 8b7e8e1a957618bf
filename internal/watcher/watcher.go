// Package watcher reports file creation and modification inside a single
// directory. Subdirectories are not watched.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leefowlercu/skillsd/internal/metrics"
)

// ErrNotRunning is reported by CollectMetrics when the watcher is stopped.
var ErrNotRunning = errors.New("watcher not running")

// Stats contains statistics about watcher activity.
type Stats struct {
	EventsReceived  int64
	EventsPublished int64
	Errors          int64
	IsRunning       bool
}

// Option configures the Watcher.
type Option func(*Watcher)

// WithDebounceWindow coalesces events per path within d. Zero disables it.
func WithDebounceWindow(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounceWindow = d
	}
}

// WithLogger sets the logger for the watcher.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithBufferSize sets the capacity of the events channel.
func WithBufferSize(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.bufferSize = n
		}
	}
}

// Watcher wraps fsnotify for one directory.
type Watcher struct {
	dir        string
	fsWatcher  *fsnotify.Watcher
	coalescer  *Coalescer
	logger     *slog.Logger
	out        chan FileEvent
	bufferSize int

	debounceWindow time.Duration

	mu       sync.RWMutex
	stats    Stats
	running  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a Watcher for dir. The directory must exist.
func New(dir string, opts ...Option) (*Watcher, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path; %w", err)
	}

	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path; %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absDir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher; %w", err)
	}

	w := &Watcher{
		dir:        absDir,
		fsWatcher:  fsw,
		logger:     slog.Default(),
		bufferSize: 100,
		stopCh:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.out = make(chan FileEvent, w.bufferSize)
	if w.debounceWindow > 0 {
		w.coalescer = NewCoalescer(w.debounceWindow)
	}

	return w, nil
}

// Dir returns the absolute watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Events returns the event channel. It is closed by Stop.
func (w *Watcher) Events() <-chan FileEvent {
	return w.out
}

// Start registers the directory with fsnotify and begins delivering events.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	if err := w.fsWatcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s; %w", w.dir, err)
	}

	w.running = true
	w.stats.IsRunning = true

	w.wg.Add(1)
	go w.processEvents(ctx)

	if w.coalescer != nil {
		w.wg.Add(1)
		go w.processCoalescedEvents(ctx)
	}

	w.logger.Info("watching folder", "path", w.dir, "debounce", w.debounceWindow)
	return nil
}

// Stop halts event delivery and closes the events channel.
func (w *Watcher) Stop() error {
	var stopErr error
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.running = false
		w.stats.IsRunning = false
		w.mu.Unlock()

		close(w.stopCh)
		if w.coalescer != nil {
			w.coalescer.Stop()
		}
		w.wg.Wait()

		stopErr = w.fsWatcher.Close()
		close(w.out)
	})
	return stopErr
}

// Stats returns current watcher statistics.
func (w *Watcher) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// CollectMetrics implements metrics.MetricsProvider.
func (w *Watcher) CollectMetrics(ctx context.Context) error {
	if !w.Stats().IsRunning {
		return ErrNotRunning
	}
	return nil
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(ctx, event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
			metrics.RecordWatcherError()
			w.logger.Error("fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) handleFsEvent(ctx context.Context, event fsnotify.Event) {
	w.mu.Lock()
	w.stats.EventsReceived++
	w.mu.Unlock()

	var kind Kind
	switch {
	case event.Has(fsnotify.Create):
		kind = Created
	case event.Has(fsnotify.Write):
		kind = Modified
	default:
		return
	}

	// Only direct children of the folder.
	if filepath.Dir(event.Name) != w.dir {
		return
	}

	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		return
	}

	fe := FileEvent{Path: event.Name, Kind: kind}

	if w.coalescer != nil {
		w.coalescer.Add(fe)
		return
	}
	w.publish(ctx, fe)
}

func (w *Watcher) processCoalescedEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case fe, ok := <-w.coalescer.Events():
			if !ok {
				return
			}
			w.publish(ctx, fe)
		}
	}
}

func (w *Watcher) publish(ctx context.Context, fe FileEvent) {
	select {
	case w.out <- fe:
	case <-ctx.Done():
		return
	case <-w.stopCh:
		return
	}

	w.mu.Lock()
	w.stats.EventsPublished++
	w.mu.Unlock()
}
