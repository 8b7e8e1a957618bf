// Package logging owns the daemon's slog pipeline: stderr in bootstrap mode,
// stderr plus a JSON log file once configuration is available.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Manager handles logger lifecycle including bootstrap-to-full mode transitions.
// Components receive Logger() (or a child of it) explicitly at construction.
type Manager struct {
	handler *SwappableHandler
	logger  *slog.Logger
	stderr  io.Writer
	sink    io.WriteCloser
	level   *slog.LevelVar
	mu      sync.Mutex
}

// UpgradeOption configures the file sink installed by Upgrade.
type UpgradeOption func(*upgradeOptions)

type upgradeOptions struct {
	maxSizeMB  int
	maxBackups int
}

// WithRotation rotates the log file once it reaches maxSizeMB, keeping
// maxBackups old files. A maxSizeMB of 0 leaves the file unrotated.
func WithRotation(maxSizeMB, maxBackups int) UpgradeOption {
	return func(o *upgradeOptions) {
		o.maxSizeMB = maxSizeMB
		o.maxBackups = maxBackups
	}
}

// NewManager creates a logging manager in bootstrap mode (text to stderr).
func NewManager() *Manager {
	return newManager(os.Stderr)
}

func newManager(stderr io.Writer) *Manager {
	level := new(slog.LevelVar)
	level.Set(DefaultLevel)

	opts := &slog.HandlerOptions{Level: level}
	handler := NewSwappableHandler(slog.NewTextHandler(stderr, opts))

	return &Manager{
		handler: handler,
		logger:  slog.New(handler),
		stderr:  stderr,
		level:   level,
	}
}

// Logger returns the manager's logger. The instance is stable across Upgrade calls.
func (m *Manager) Logger() *slog.Logger {
	return m.logger
}

// Upgrade switches to full mode: text on stderr plus JSON lines appended to
// logFilePath. Parent directories are created as needed. On error the
// manager stays in its previous mode.
func (m *Manager) Upgrade(logFilePath string, level slog.Level, opts ...UpgradeOption) error {
	o := upgradeOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %q; %w", dir, err)
	}

	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %q; %w", logFilePath, err)
	}

	var sink io.WriteCloser = file
	if o.maxSizeMB > 0 {
		// lumberjack opens lazily; the open above already surfaced errors.
		_ = file.Close()
		sink = &lumberjack.Logger{
			Filename:   logFilePath,
			MaxSize:    o.maxSizeMB,
			MaxBackups: o.maxBackups,
		}
	}

	if m.sink != nil {
		_ = m.sink.Close()
	}
	m.sink = sink

	m.level.Set(level)
	handlerOpts := &slog.HandlerOptions{Level: m.level}

	m.handler.Swap(slogmulti.Fanout(
		slog.NewTextHandler(m.stderr, handlerOpts),
		slog.NewJSONHandler(sink, handlerOpts),
	))

	return nil
}

// SetLevel changes the log level at runtime.
func (m *Manager) SetLevel(level slog.Level) {
	m.level.Set(level)
}

// Level returns the current log level.
func (m *Manager) Level() slog.Level {
	return m.level.Level()
}

// Close closes the log file, if any. Safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sink != nil {
		err := m.sink.Close()
		m.sink = nil
		return err
	}
	return nil
}
