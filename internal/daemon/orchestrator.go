package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/leefowlercu/skillsd/internal/config"
	"github.com/leefowlercu/skillsd/internal/docs"
	"github.com/leefowlercu/skillsd/internal/history"
	"github.com/leefowlercu/skillsd/internal/metrics"
	"github.com/leefowlercu/skillsd/internal/pipeline"
	"github.com/leefowlercu/skillsd/internal/watcher"
)

// DefaultMetricsInterval is how often component health is sampled into metrics.
const DefaultMetricsInterval = 15 * time.Second

// Orchestrator builds the watch pipeline from configuration and runs it as
// a daemon Service.
type Orchestrator struct {
	daemon  *Daemon
	cfg     *config.Config
	logger  *slog.Logger
	factory docs.ServiceFactory

	pipeline         *Pipeline
	watcher          *watcher.Watcher
	store            *history.SQLiteStore
	stats            *PipelineStats
	metricsCollector *metrics.Collector

	cancelProcessing context.CancelFunc
	dispatchDone     chan struct{}
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithOrchestratorLogger sets the logger.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithServiceFactory replaces the service-account document service.
func WithServiceFactory(factory docs.ServiceFactory) OrchestratorOption {
	return func(o *Orchestrator) {
		o.factory = factory
	}
}

// NewOrchestrator creates a new orchestrator for the daemon.
func NewOrchestrator(d *Daemon, cfg *config.Config, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		daemon: d,
		cfg:    cfg,
		logger: slog.Default(),
		stats:  NewPipelineStats(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Initialize creates the watch folder and builds every component.
// Errors here are fatal to startup.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(o.cfg.WatchFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create watch folder %s; %w", o.cfg.WatchFolder, err)
	}

	p, err := BuildPipeline(o.cfg, o.logger, o.factory)
	if err != nil {
		return err
	}
	o.pipeline = p

	w, err := watcher.New(o.cfg.WatchFolder,
		watcher.WithLogger(o.logger.With("component", "watcher")),
		watcher.WithDebounceWindow(time.Duration(o.cfg.Watcher.DebounceMs)*time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("failed to create watcher; %w", err)
	}
	o.watcher = w

	o.metricsCollector = metrics.NewCollector(DefaultMetricsInterval)
	o.metricsCollector.Register("watcher", o.watcher)
	o.metricsCollector.Register("docs", metrics.ProviderFunc(func(ctx context.Context) error {
		return o.pipeline.Appender.InitError()
	}))

	return nil
}

// Start opens history, starts the watcher and the dispatcher goroutine and
// publishes health and metrics.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.pipeline == nil || o.watcher == nil {
		return fmt.Errorf("orchestrator not initialized")
	}

	o.openHistory(ctx)

	dispatcherOpts := []pipeline.DispatcherOption{
		pipeline.WithDispatcherLogger(o.logger.With("component", "dispatcher")),
		pipeline.WithResultHook(o.stats.Observe),
	}
	if o.store != nil {
		dispatcherOpts = append(dispatcherOpts, pipeline.WithRecorder(o.store))
	}
	dispatcher := pipeline.NewDispatcher(o.pipeline.Processor, dispatcherOpts...)

	if err := o.watcher.Start(ctx); err != nil {
		if o.store != nil {
			o.store.Close()
			o.store = nil
		}
		return fmt.Errorf("failed to start watcher; %w", err)
	}

	// In-flight files finish after a signal; Stop cancels this context only
	// once the shutdown timeout has passed.
	procCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	o.cancelProcessing = cancel
	o.dispatchDone = make(chan struct{})

	go func() {
		defer close(o.dispatchDone)
		if err := dispatcher.Run(procCtx, o.watcher.Events()); err != nil {
			o.logger.Warn("dispatcher stopped", "error", err)
		}
	}()

	health := o.daemon.HealthManager()
	health.MarkCritical("watcher")
	health.SetSource(NewComponentHealthCollector(&ComponentBag{
		Watcher:        o.watcher,
		Docs:           o.pipeline.Appender,
		Pipeline:       o.stats,
		HistoryEnabled: o.store != nil,
	}).Collect)

	o.daemon.SetMetricsHandler(metrics.Handler())
	if err := o.metricsCollector.Start(ctx); err != nil {
		return fmt.Errorf("failed to start metrics collector; %w", err)
	}

	o.logger.Info("watching folder",
		"watch_folder", o.cfg.WatchFolder,
		"archive_folder", o.cfg.ArchiveFolder,
		"skills", len(o.cfg.Skills))

	return nil
}

// openHistory opens the history store. Failures leave history disabled.
func (o *Orchestrator) openHistory(ctx context.Context) {
	if !o.cfg.History.Enabled {
		return
	}

	store, err := history.Open(ctx, o.cfg.History.Path)
	if err != nil {
		o.logger.Warn("history unavailable; continuing without it", "path", o.cfg.History.Path, "error", err)
		return
	}
	o.store = store

	if o.cfg.History.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -o.cfg.History.RetentionDays)
		removed, err := store.Prune(ctx, cutoff)
		if err != nil {
			o.logger.Warn("failed to prune history", "error", err)
		} else if removed > 0 {
			o.logger.Info("pruned history", "removed", removed, "retention_days", o.cfg.History.RetentionDays)
		}
	}
}

// Stop stops the watcher, waits for the dispatcher to drain buffered events
// until ctx expires, then releases history and metrics.
func (o *Orchestrator) Stop(ctx context.Context) error {
	if o.watcher != nil {
		if err := o.watcher.Stop(); err != nil {
			o.logger.Warn("failed to stop watcher", "error", err)
		}
	}

	if o.dispatchDone != nil {
		select {
		case <-o.dispatchDone:
		case <-ctx.Done():
			o.logger.Warn("shutdown timeout reached; abandoning in-flight file")
			o.cancelProcessing()
			<-o.dispatchDone
		}
		o.cancelProcessing()
	}

	if o.metricsCollector != nil {
		o.metricsCollector.Stop(ctx)
	}

	if o.store != nil {
		if err := o.store.Close(); err != nil {
			return fmt.Errorf("failed to close history; %w", err)
		}
	}

	return nil
}

// Stats returns the dispatcher result counters.
func (o *Orchestrator) Stats() *PipelineStats {
	return o.stats
}

// MetricsCollector returns the initialized metrics collector.
func (o *Orchestrator) MetricsCollector() *metrics.Collector {
	return o.metricsCollector
}
