package config

import "github.com/spf13/viper"

// Default configuration values.
const (
	DefaultConfigFile    = "~/.claude-skills-config.json"
	DefaultArchiveFolder = "~/Downloads"
	DefaultLogLevel      = "info"
	DefaultLogFile       = "~/Library/Logs/claude-skills-daemon.log"
	DefaultLogMaxSizeMB  = 0

	// Daemon configuration defaults.
	DefaultDaemonHTTPEnabled       = true
	DefaultDaemonHTTPPort          = 7610
	DefaultDaemonHTTPBind          = "127.0.0.1"
	DefaultDaemonShutdownTimeout   = 30 // seconds
	DefaultDaemonHeartbeatInterval = 60 // seconds
	DefaultDaemonPIDFile           = "~/.config/skillsd/daemon.pid"

	// Readiness defaults: 10 polls, 100ms growing by 1.5x, capped at 2s.
	DefaultReadinessMaxRetries    = 10
	DefaultReadinessInitialWaitMs = 100
	DefaultReadinessMaxWaitMs     = 2000
	DefaultReadinessMultiplier    = 1.5

	// Reader defaults: 5 attempts, 0.5s x attempt between them.
	DefaultReaderMaxRetries   = 5
	DefaultReaderRetryDelayMs = 500

	DefaultDocsRequestsPerMinute = 60

	DefaultWatcherDebounceMs = 0

	DefaultHistoryEnabled       = true
	DefaultHistoryPath          = "~/.config/skillsd/history.db"
	DefaultHistoryRetentionDays = 90
)

// setViperDefaults registers all default configuration values with a viper instance.
// Every key gets a default so that SKILLSD_* environment variables bind during Unmarshal.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("watch_folder", "")
	v.SetDefault("archive_folder", DefaultArchiveFolder)
	v.SetDefault("service_account_file", "")
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_file", DefaultLogFile)
	v.SetDefault("log_max_size_mb", DefaultLogMaxSizeMB)

	// Daemon defaults
	v.SetDefault("daemon.http_enabled", DefaultDaemonHTTPEnabled)
	v.SetDefault("daemon.http_port", DefaultDaemonHTTPPort)
	v.SetDefault("daemon.http_bind", DefaultDaemonHTTPBind)
	v.SetDefault("daemon.shutdown_timeout", DefaultDaemonShutdownTimeout)
	v.SetDefault("daemon.heartbeat_interval", DefaultDaemonHeartbeatInterval)
	v.SetDefault("daemon.pid_file", DefaultDaemonPIDFile)

	// Pipeline defaults
	v.SetDefault("readiness.max_retries", DefaultReadinessMaxRetries)
	v.SetDefault("readiness.initial_wait_ms", DefaultReadinessInitialWaitMs)
	v.SetDefault("readiness.max_wait_ms", DefaultReadinessMaxWaitMs)
	v.SetDefault("readiness.multiplier", DefaultReadinessMultiplier)
	v.SetDefault("reader.max_retries", DefaultReaderMaxRetries)
	v.SetDefault("reader.retry_delay_ms", DefaultReaderRetryDelayMs)
	v.SetDefault("docs.requests_per_minute", DefaultDocsRequestsPerMinute)
	v.SetDefault("watcher.debounce_ms", DefaultWatcherDebounceMs)

	// History defaults
	v.SetDefault("history.enabled", DefaultHistoryEnabled)
	v.SetDefault("history.path", DefaultHistoryPath)
	v.SetDefault("history.retention_days", DefaultHistoryRetentionDays)
}

// NewDefaultConfig returns a Config populated with default values.
// WatchFolder, ServiceAccountFile and Skills have no defaults.
func NewDefaultConfig() Config {
	return Config{
		ArchiveFolder: DefaultArchiveFolder,
		LogLevel:      DefaultLogLevel,
		LogFile:       DefaultLogFile,
		LogMaxSizeMB:  DefaultLogMaxSizeMB,
		Daemon: DaemonConfig{
			HTTPEnabled:       DefaultDaemonHTTPEnabled,
			HTTPPort:          DefaultDaemonHTTPPort,
			HTTPBind:          DefaultDaemonHTTPBind,
			ShutdownTimeout:   DefaultDaemonShutdownTimeout,
			HeartbeatInterval: DefaultDaemonHeartbeatInterval,
			PIDFile:           DefaultDaemonPIDFile,
		},
		Readiness: ReadinessConfig{
			MaxRetries:    DefaultReadinessMaxRetries,
			InitialWaitMs: DefaultReadinessInitialWaitMs,
			MaxWaitMs:     DefaultReadinessMaxWaitMs,
			Multiplier:    DefaultReadinessMultiplier,
		},
		Reader: ReaderConfig{
			MaxRetries:   DefaultReaderMaxRetries,
			RetryDelayMs: DefaultReaderRetryDelayMs,
		},
		Docs: DocsConfig{
			RequestsPerMinute: DefaultDocsRequestsPerMinute,
		},
		Watcher: WatcherConfig{
			DebounceMs: DefaultWatcherDebounceMs,
		},
		History: HistoryConfig{
			Enabled:       DefaultHistoryEnabled,
			Path:          DefaultHistoryPath,
			RetentionDays: DefaultHistoryRetentionDays,
		},
	}
}
