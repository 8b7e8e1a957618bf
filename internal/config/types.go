package config

import "time"

// Config is the root configuration structure for the daemon.
type Config struct {
	WatchFolder        string `yaml:"watch_folder" mapstructure:"watch_folder"`
	ArchiveFolder      string `yaml:"archive_folder" mapstructure:"archive_folder"`
	ServiceAccountFile string `yaml:"service_account_file" mapstructure:"service_account_file"`

	// Skills are decoded from the raw file so that key case and declaration
	// order survive; viper lowercases and reorders map keys.
	Skills []SkillConfig `yaml:"skills" mapstructure:"-"`

	LogLevel     string          `yaml:"log_level" mapstructure:"log_level"`
	LogFile      string          `yaml:"log_file" mapstructure:"log_file"`
	LogMaxSizeMB int             `yaml:"log_max_size_mb" mapstructure:"log_max_size_mb"`
	Daemon       DaemonConfig    `yaml:"daemon" mapstructure:"daemon"`
	Readiness    ReadinessConfig `yaml:"readiness" mapstructure:"readiness"`
	Reader       ReaderConfig    `yaml:"reader" mapstructure:"reader"`
	Docs         DocsConfig      `yaml:"docs" mapstructure:"docs"`
	Watcher      WatcherConfig   `yaml:"watcher" mapstructure:"watcher"`
	History      HistoryConfig   `yaml:"history" mapstructure:"history"`
}

// SkillConfig maps a filename pattern to a destination document.
type SkillConfig struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	DocID       string `yaml:"doc_id"`
	DisplayName string `yaml:"skill_name"`
}

// DaemonConfig holds daemon process settings.
type DaemonConfig struct {
	HTTPEnabled       bool   `yaml:"http_enabled" mapstructure:"http_enabled"`
	HTTPPort          int    `yaml:"http_port" mapstructure:"http_port"`
	HTTPBind          string `yaml:"http_bind" mapstructure:"http_bind"`
	ShutdownTimeout   int    `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`     // seconds
	HeartbeatInterval int    `yaml:"heartbeat_interval" mapstructure:"heartbeat_interval"` // seconds
	PIDFile           string `yaml:"pid_file" mapstructure:"pid_file"`
}

// ReadinessConfig controls the size-stability check.
type ReadinessConfig struct {
	MaxRetries    int     `yaml:"max_retries" mapstructure:"max_retries"`
	InitialWaitMs int     `yaml:"initial_wait_ms" mapstructure:"initial_wait_ms"`
	MaxWaitMs     int     `yaml:"max_wait_ms" mapstructure:"max_wait_ms"`
	Multiplier    float64 `yaml:"multiplier" mapstructure:"multiplier"`
}

// InitialWait returns the first backoff interval.
func (c ReadinessConfig) InitialWait() time.Duration {
	return time.Duration(c.InitialWaitMs) * time.Millisecond
}

// MaxWait returns the backoff cap.
func (c ReadinessConfig) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitMs) * time.Millisecond
}

// ReaderConfig controls permission-denied retries when reading skill output.
type ReaderConfig struct {
	MaxRetries   int `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelayMs int `yaml:"retry_delay_ms" mapstructure:"retry_delay_ms"`
}

// RetryDelay returns the base delay multiplied by the attempt number.
func (c ReaderConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// DocsConfig holds document service settings.
type DocsConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// WatcherConfig holds filesystem watcher settings.
type WatcherConfig struct {
	DebounceMs int `yaml:"debounce_ms" mapstructure:"debounce_ms"` // 0 = disabled
}

// HistoryConfig holds processing history settings.
type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled" mapstructure:"enabled"`
	Path          string `yaml:"path" mapstructure:"path"`
	RetentionDays int    `yaml:"retention_days" mapstructure:"retention_days"` // 0 = keep forever
}
