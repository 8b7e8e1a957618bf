package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/leefowlercu/skillsd/internal/history"
	"github.com/leefowlercu/skillsd/internal/metrics"
	"github.com/leefowlercu/skillsd/internal/watcher"
)

// EventHandler runs the pipeline for one event.
type EventHandler interface {
	Handle(ctx context.Context, ev watcher.FileEvent) Result
}

// Recorder persists terminal results.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Dispatcher consumes watcher events on a single goroutine, so events are
// handled one at a time in arrival order.
type Dispatcher struct {
	handler  EventHandler
	recorder Recorder
	logger   *slog.Logger
	handled  func(Result)
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithRecorder records every terminal result. Record failures are logged only.
func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.recorder = r
	}
}

// WithResultHook is called after each result is logged and recorded.
func WithResultHook(fn func(Result)) DispatcherOption {
	return func(d *Dispatcher) {
		d.handled = fn
	}
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(handler EventHandler, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		handler: handler,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Run handles events until the channel is closed or ctx is cancelled.
// Events already buffered when the watcher stops are still handled.
func (d *Dispatcher) Run(ctx context.Context, events <-chan watcher.FileEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			metrics.RecordEvent(ev.Kind.String())
			d.logger.Debug("file event", "path", ev.Path, "kind", ev.Kind.String())

			res := d.handler.Handle(ctx, ev)
			d.Report(ctx, res)
		}
	}
}

// Report logs res, updates metrics and records it to history.
func (d *Dispatcher) Report(ctx context.Context, res Result) {
	switch res.Outcome {
	case OutcomeSkipped:
		d.logger.Debug("modified file matches no skill; skipping", "path", res.Path)
		return
	case OutcomeVanished:
		d.logger.Debug("file no longer exists; skipping", "path", res.Path)
		return
	}

	Log(d.logger, res)

	skill := res.Skill
	if skill == "" {
		skill = "none"
	}
	metrics.RecordOutcome(skill, res.Outcome.String())

	if d.recorder != nil {
		if err := d.recorder.Record(ctx, toEntry(res)); err != nil {
			metrics.RecordHistoryError()
			d.logger.Warn("failed to record history", "run_id", res.RunID, "error", err)
		}
	}

	if d.handled != nil {
		d.handled(res)
	}
}

// Log writes one line describing res at a level matching its outcome.
func Log(logger *slog.Logger, res Result) {
	attrs := []any{
		"run_id", res.RunID,
		"path", res.Path,
		"outcome", res.Outcome.String(),
		"duration", res.Duration.Round(time.Millisecond),
	}
	if res.Skill != "" {
		attrs = append(attrs, "skill", res.Skill, "doc_id", res.DocID)
	}

	switch res.Outcome {
	case OutcomeArchived:
		attrs = append(attrs, "bytes", res.Bytes)
		if res.ArchiveErr != nil {
			logger.Warn("appended file but failed to archive it",
				append(attrs, "kind", string(res.Kind), "error", res.ArchiveErr)...)
			return
		}
		logger.Info("processed file", append(attrs, "archive_path", res.ArchivePath)...)
	case OutcomeDuplicate:
		logger.Debug("file already processed", attrs...)
	case OutcomeIgnored:
		logger.Info("no skill matches file", attrs...)
	case OutcomeAbandoned:
		logger.Warn("file not ready; abandoning", attrs...)
	case OutcomeFailed:
		logger.Error("failed to process file", append(attrs, "kind", string(res.Kind), "error", res.Err)...)
	default:
		logger.Debug("file event handled", attrs...)
	}
}

func toEntry(res Result) history.Entry {
	e := history.Entry{
		RunID:       res.RunID,
		Path:        res.Path,
		Skill:       res.Skill,
		DocID:       res.DocID,
		Outcome:     res.Outcome.String(),
		Kind:        string(res.Kind),
		Bytes:       res.Bytes,
		ContentHash: res.ContentHash,
		ArchivePath: res.ArchivePath,
		Duration:    res.Duration,
	}

	switch {
	case res.Err != nil:
		e.Error = res.Err.Error()
	case res.ArchiveErr != nil:
		e.Error = res.ArchiveErr.Error()
	}

	return e
}
