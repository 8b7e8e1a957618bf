package metrics

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leefowlercu/skillsd/internal/version"
)

// MetricsProvider is implemented by components that report health on each
// collection cycle. A non-nil error marks the component unhealthy.
type MetricsProvider interface {
	CollectMetrics(ctx context.Context) error
}

// ProviderFunc adapts a function to MetricsProvider.
type ProviderFunc func(ctx context.Context) error

// CollectMetrics calls f.
func (f ProviderFunc) CollectMetrics(ctx context.Context) error {
	return f(ctx)
}

// Collector manages metric collection from various components.
type Collector struct {
	mu        sync.RWMutex
	providers map[string]MetricsProvider
	interval  time.Duration
	stopCh    chan struct{}
	running   bool
}

// NewCollector creates a new metrics collector.
func NewCollector(interval time.Duration) *Collector {
	return &Collector{
		providers: make(map[string]MetricsProvider),
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Register adds a metrics provider to the collector.
func (c *Collector) Register(name string, provider MetricsProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[name] = provider
}

// Unregister removes a metrics provider from the collector.
func (c *Collector) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.providers, name)
}

// Start begins periodic metric collection.
func (c *Collector) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.mu.Unlock()

	DaemonStartTime.Set(float64(time.Now().Unix()))

	DaemonInfo.WithLabelValues(version.Get().Version, runtime.Version()).Set(1)

	// Initial collection
	c.collect(ctx)

	// Start periodic collection
	go c.run(ctx)

	return nil
}

// Stop halts periodic metric collection.
func (c *Collector) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}

	close(c.stopCh)
	c.running = false
	return nil
}

// run is the main collection loop.
func (c *Collector) run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.collect(ctx)
		}
	}
}

// collect gathers metrics from all registered providers.
func (c *Collector) collect(ctx context.Context) {
	c.mu.RLock()
	providers := make(map[string]MetricsProvider, len(c.providers))
	for k, v := range c.providers {
		providers[k] = v
	}
	c.mu.RUnlock()

	for name, provider := range providers {
		if err := provider.CollectMetrics(ctx); err != nil {
			ComponentStatus.WithLabelValues(name).Set(0)
		} else {
			ComponentStatus.WithLabelValues(name).Set(1)
		}
	}
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordEvent records a file event delivered to the dispatcher.
func RecordEvent(kind string) {
	EventsTotal.WithLabelValues(kind).Inc()
}

// RecordWatcherError records a watcher error.
func RecordWatcherError() {
	WatcherErrorsTotal.Inc()
}

// RecordOutcome records a terminal pipeline outcome.
func RecordOutcome(skill, outcome string) {
	FilesProcessedTotal.WithLabelValues(skill, outcome).Inc()
}

// RecordReadiness records the attempts consumed by one readiness check.
func RecordReadiness(attempts int, ready bool) {
	label := "false"
	if ready {
		label = "true"
	}
	ReadinessAttempts.WithLabelValues(label).Observe(float64(attempts))
}

// RecordAppend records a document append.
func RecordAppend(duration time.Duration, err error) {
	AppendDuration.Observe(duration.Seconds())
	if err != nil {
		AppendErrorsTotal.Inc()
	}
}

// RecordHistoryError records a failed history write.
func RecordHistoryError() {
	HistoryErrorsTotal.Inc()
}

// UpdateProcessedFiles sets the processed set size.
func UpdateProcessedFiles(n int) {
	ProcessedFiles.Set(float64(n))
}
