package config

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a config validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation failures.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("config validation failed:\n")
	for _, err := range e {
		b.WriteString("  - ")
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}

// Validate checks the configuration for errors.
// Glob syntax is checked when the skill matcher is built, not here.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	if cfg.WatchFolder == "" {
		errs = append(errs, ValidationError{
			Field:   "watch_folder",
			Message: "must not be empty",
		})
	}

	if cfg.ArchiveFolder == "" {
		errs = append(errs, ValidationError{
			Field:   "archive_folder",
			Message: "must not be empty",
		})
	}

	if cfg.ServiceAccountFile == "" {
		errs = append(errs, ValidationError{
			Field:   "service_account_file",
			Message: "must not be empty",
		})
	}

	seen := make(map[string]bool, len(cfg.Skills))
	for _, skill := range cfg.Skills {
		field := fmt.Sprintf("skills.%s", skill.Name)

		if skill.Name == "" {
			errs = append(errs, ValidationError{
				Field:   "skills",
				Message: "skill name must not be empty",
			})
		}
		if seen[skill.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "declared more than once",
			})
		}
		seen[skill.Name] = true

		if skill.Pattern == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".pattern",
				Message: "must not be empty",
			})
		}
		if skill.DocID == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".doc_id",
				Message: "must not be empty",
			})
		}
	}

	// Validate daemon config
	if cfg.Daemon.HTTPEnabled {
		if cfg.Daemon.HTTPPort < 1 || cfg.Daemon.HTTPPort > 65535 {
			errs = append(errs, ValidationError{
				Field:   "daemon.http_port",
				Message: fmt.Sprintf("must be between 1 and 65535, got %d", cfg.Daemon.HTTPPort),
			})
		}

		if cfg.Daemon.HTTPBind == "" {
			errs = append(errs, ValidationError{
				Field:   "daemon.http_bind",
				Message: "must not be empty",
			})
		}
	}

	if cfg.Daemon.ShutdownTimeout < 1 {
		errs = append(errs, ValidationError{
			Field:   "daemon.shutdown_timeout",
			Message: fmt.Sprintf("must be at least 1 second, got %d", cfg.Daemon.ShutdownTimeout),
		})
	}

	if cfg.Daemon.HeartbeatInterval < 1 {
		errs = append(errs, ValidationError{
			Field:   "daemon.heartbeat_interval",
			Message: fmt.Sprintf("must be at least 1 second, got %d", cfg.Daemon.HeartbeatInterval),
		})
	}

	if cfg.Daemon.PIDFile == "" {
		errs = append(errs, ValidationError{
			Field:   "daemon.pid_file",
			Message: "must not be empty",
		})
	}

	// Validate pipeline config
	if cfg.Readiness.MaxRetries < 1 {
		errs = append(errs, ValidationError{
			Field:   "readiness.max_retries",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Readiness.MaxRetries),
		})
	}

	if cfg.Readiness.InitialWaitMs < 1 {
		errs = append(errs, ValidationError{
			Field:   "readiness.initial_wait_ms",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Readiness.InitialWaitMs),
		})
	}

	if cfg.Readiness.MaxWaitMs < cfg.Readiness.InitialWaitMs {
		errs = append(errs, ValidationError{
			Field:   "readiness.max_wait_ms",
			Message: fmt.Sprintf("must be at least initial_wait_ms (%d), got %d", cfg.Readiness.InitialWaitMs, cfg.Readiness.MaxWaitMs),
		})
	}

	if cfg.Readiness.Multiplier < 1 {
		errs = append(errs, ValidationError{
			Field:   "readiness.multiplier",
			Message: fmt.Sprintf("must be at least 1, got %g", cfg.Readiness.Multiplier),
		})
	}

	if cfg.Reader.MaxRetries < 1 {
		errs = append(errs, ValidationError{
			Field:   "reader.max_retries",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Reader.MaxRetries),
		})
	}

	if cfg.Reader.RetryDelayMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "reader.retry_delay_ms",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.Reader.RetryDelayMs),
		})
	}

	if cfg.Docs.RequestsPerMinute < 1 {
		errs = append(errs, ValidationError{
			Field:   "docs.requests_per_minute",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Docs.RequestsPerMinute),
		})
	}

	if cfg.Watcher.DebounceMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "watcher.debounce_ms",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.Watcher.DebounceMs),
		})
	}

	// Validate history config (only if enabled)
	if cfg.History.Enabled {
		if cfg.History.Path == "" {
			errs = append(errs, ValidationError{
				Field:   "history.path",
				Message: "must not be empty when history is enabled",
			})
		}

		if cfg.History.RetentionDays < 0 {
			errs = append(errs, ValidationError{
				Field:   "history.retention_days",
				Message: fmt.Sprintf("must be non-negative, got %d", cfg.History.RetentionDays),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var ve ValidationError
	var ves ValidationErrors
	return errors.As(err, &ve) || errors.As(err, &ves)
}
