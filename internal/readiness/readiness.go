// Package readiness decides whether a file has finished being written by
// polling its size until two consecutive observations agree.
package readiness

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Defaults mirror the config package defaults.
const (
	DefaultMaxRetries  = 10
	DefaultInitialWait = 100 * time.Millisecond
	DefaultMaxWait     = 2 * time.Second
	DefaultMultiplier  = 1.5
)

// StatFunc returns file info for a path. It matches os.Stat.
type StatFunc func(path string) (os.FileInfo, error)

// SleepFunc blocks for d or until ctx is done.
// It returns ctx.Err() when interrupted.
type SleepFunc func(ctx context.Context, d time.Duration) error

// AttemptObserver is notified of the number of attempts a check consumed.
type AttemptObserver func(attempts int, ready bool)

// Detector polls file size with bounded, growing waits.
type Detector struct {
	logger      *slog.Logger
	maxRetries  int
	initialWait time.Duration
	maxWait     time.Duration
	multiplier  float64
	stat        StatFunc
	sleep       SleepFunc
	observe     AttemptObserver
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		d.logger = logger
	}
}

// WithMaxRetries sets the attempt budget.
func WithMaxRetries(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.maxRetries = n
		}
	}
}

// WithBackoff sets the initial wait, the cap and the growth multiplier.
func WithBackoff(initial, maxWait time.Duration, multiplier float64) Option {
	return func(d *Detector) {
		if initial > 0 {
			d.initialWait = initial
		}
		if maxWait >= d.initialWait {
			d.maxWait = maxWait
		}
		if multiplier >= 1 {
			d.multiplier = multiplier
		}
	}
}

// WithStat replaces os.Stat.
func WithStat(fn StatFunc) Option {
	return func(d *Detector) {
		d.stat = fn
	}
}

// WithSleep replaces the context-aware sleep.
func WithSleep(fn SleepFunc) Option {
	return func(d *Detector) {
		d.sleep = fn
	}
}

// WithAttemptObserver registers a callback invoked once per check.
func WithAttemptObserver(fn AttemptObserver) Option {
	return func(d *Detector) {
		d.observe = fn
	}
}

// New creates a Detector with default parameters.
func New(opts ...Option) *Detector {
	d := &Detector{
		logger:      slog.Default(),
		maxRetries:  DefaultMaxRetries,
		initialWait: DefaultInitialWait,
		maxWait:     DefaultMaxWait,
		multiplier:  DefaultMultiplier,
		stat:        os.Stat,
		sleep:       sleepContext,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// IsReady reports whether the file at path holds a stable, non-zero size.
// A missing file is not ready. Cancelling ctx aborts the wait and reports
// not ready.
func (d *Detector) IsReady(ctx context.Context, path string) bool {
	if _, err := d.stat(path); os.IsNotExist(err) {
		d.logger.Debug("file does not exist", "path", path)
		d.report(0, false)
		return false
	}

	lastSize := int64(-1)
	wait := d.initialWait

	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		info, err := d.stat(path)
		if err != nil {
			d.logger.Warn("failed to stat file during readiness check",
				"path", path,
				"attempt", attempt,
				"error", err)
			if d.sleep(ctx, wait) != nil {
				d.report(attempt, false)
				return false
			}
			continue
		}

		size := info.Size()
		if size == lastSize && size > 0 {
			d.logger.Debug("file is ready",
				"path", path,
				"size", size,
				"attempts", attempt)
			d.report(attempt, true)
			return true
		}

		lastSize = size
		if d.sleep(ctx, wait) != nil {
			d.logger.Debug("readiness check cancelled", "path", path)
			d.report(attempt, false)
			return false
		}

		wait = time.Duration(float64(wait) * d.multiplier)
		if wait > d.maxWait {
			wait = d.maxWait
		}
	}

	d.logger.Warn("file not ready after max retries",
		"path", path,
		"max_retries", d.maxRetries,
		"last_size", lastSize)
	d.report(d.maxRetries, false)
	return false
}

func (d *Detector) report(attempts int, ready bool) {
	if d.observe != nil {
		d.observe(attempts, ready)
	}
}

func sleepContext(ctx context.Context, dur time.Duration) error {
	timer := time.NewTimer(dur)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
