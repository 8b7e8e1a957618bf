// Package metrics provides Prometheus metrics for the skills daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "skillsd"
)

// Watcher metrics track filesystem notifications.
var (
	// EventsTotal counts file events delivered to the dispatcher by kind.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Total number of file events received",
	}, []string{"kind"})

	// WatcherErrorsTotal counts errors reported by the notification source.
	WatcherErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "watcher_errors_total",
		Help:      "Total number of filesystem watcher errors",
	})
)

// Pipeline metrics track per-file processing.
var (
	// FilesProcessedTotal counts terminal pipeline outcomes.
	FilesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "files_processed_total",
		Help:      "Total number of files that reached a terminal pipeline state",
	}, []string{"skill", "outcome"})

	// ReadinessAttempts observes how many size checks a readiness decision took.
	ReadinessAttempts = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "readiness_attempts",
		Help:      "Number of size observations per readiness check",
		Buckets:   prometheus.LinearBuckets(1, 1, 10),
	}, []string{"ready"})

	// AppendDuration observes document append latency.
	AppendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "append_duration_seconds",
		Help:      "Duration of document appends in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	})

	// AppendErrorsTotal counts failed appends.
	AppendErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "append_errors_total",
		Help:      "Total number of failed document appends",
	})

	// ProcessedFiles is the size of the in-memory processed set.
	ProcessedFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "processed_files",
		Help:      "Number of file versions processed since the daemon started",
	})

	// HistoryErrorsTotal counts failures writing the history log.
	HistoryErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "history_errors_total",
		Help:      "Total number of failed history writes",
	})
)

// Daemon metrics track daemon health and uptime.
var (
	// DaemonInfo provides daemon version and build information.
	DaemonInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "daemon_info",
		Help:      "Daemon version and build information",
	}, []string{"version", "go_version"})

	// DaemonStartTime is the unix timestamp when the daemon started.
	DaemonStartTime = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "daemon_start_time_seconds",
		Help:      "Unix timestamp when the daemon started",
	})

	// ComponentStatus tracks the health status of daemon components.
	ComponentStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "component_status",
		Help:      "Health status of daemon components (1=healthy, 0=unhealthy)",
	}, []string{"component"})
)
