// Package cmdutil holds helpers shared by the cobra commands.
package cmdutil

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/skillsd/internal/config"
)

// SkipConfigAnnotation marks commands that run without a loaded config file.
const SkipConfigAnnotation = "skillsd/skip-config"

type loggerKey struct{}

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Logger returns the logger installed by the root command, or slog.Default.
func Logger(cmd *cobra.Command) *slog.Logger {
	if ctx := cmd.Context(); ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return slog.Default()
}

// Config returns the loaded configuration.
func Config() (*config.Config, error) {
	cfg := config.Get()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

// SkipsConfig reports whether cmd or any parent opts out of config loading.
func SkipsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[SkipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}
