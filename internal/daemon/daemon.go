// Package daemon runs skillsd as a long-lived process: it owns the PID lock,
// the health and metrics server, systemd notification and the lifecycle of
// the watch pipeline.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	sddaemon "github.com/coreos/go-systemd/v22/daemon"

	"github.com/leefowlercu/skillsd/internal/config"
)

// DaemonState represents the lifecycle state of the daemon.
type DaemonState string

const (
	// DaemonStateStarting indicates the daemon is initializing.
	DaemonStateStarting DaemonState = "starting"

	// DaemonStateRunning indicates all components are healthy and serving.
	DaemonStateRunning DaemonState = "running"

	// DaemonStateDegraded indicates some non-critical components have failed.
	DaemonStateDegraded DaemonState = "degraded"

	// DaemonStateStopping indicates graceful shutdown is in progress.
	DaemonStateStopping DaemonState = "stopping"

	// DaemonStateStopped indicates the daemon has terminated.
	DaemonStateStopped DaemonState = "stopped"
)

// IsTerminal returns true if this state is a terminal state (no further transitions).
func (s DaemonState) IsTerminal() bool {
	return s == DaemonStateStopped
}

// CanTransitionTo returns true if transitioning to the target state is valid.
func (s DaemonState) CanTransitionTo(target DaemonState) bool {
	switch s {
	case DaemonStateStarting:
		return target == DaemonStateRunning || target == DaemonStateStopped
	case DaemonStateRunning:
		return target == DaemonStateDegraded || target == DaemonStateStopping
	case DaemonStateDegraded:
		return target == DaemonStateRunning || target == DaemonStateStopping
	case DaemonStateStopping:
		return target == DaemonStateStopped
	default:
		return false
	}
}

// DaemonConfig holds the process-level settings of the daemon.
type DaemonConfig struct {
	// HTTPEnabled turns the health and metrics server on.
	HTTPEnabled bool

	// HTTPPort is the port for the HTTP health check server.
	HTTPPort int

	// HTTPBind is the address to bind the HTTP server.
	HTTPBind string

	// ShutdownTimeout bounds how long stopping waits for in-flight work.
	ShutdownTimeout time.Duration

	// HeartbeatInterval is the period of the heartbeat log and watchdog ping.
	HeartbeatInterval time.Duration

	// PIDFile is the path to the PID file.
	PIDFile string
}

// DefaultDaemonConfig returns the default daemon configuration.
func DefaultDaemonConfig() DaemonConfig {
	return DaemonConfigFrom(config.NewDefaultConfig().Daemon)
}

// DaemonConfigFrom converts the file configuration into runtime values.
func DaemonConfigFrom(cfg config.DaemonConfig) DaemonConfig {
	return DaemonConfig{
		HTTPEnabled:       cfg.HTTPEnabled,
		HTTPPort:          cfg.HTTPPort,
		HTTPBind:          cfg.HTTPBind,
		ShutdownTimeout:   time.Duration(cfg.ShutdownTimeout) * time.Second,
		HeartbeatInterval: time.Duration(cfg.HeartbeatInterval) * time.Second,
		PIDFile:           config.ExpandPath(cfg.PIDFile),
	}
}

// Service is a unit the daemon starts after claiming the PID file and stops,
// in reverse order, before releasing it.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Notifier reports a state string such as "READY=1" to the service manager.
type Notifier func(state string) error

// SystemdNotifier sends states over $NOTIFY_SOCKET. Without a socket it does nothing.
func SystemdNotifier(state string) error {
	_, err := sddaemon.SdNotify(false, state)
	return err
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Daemon) {
		d.logger = logger
	}
}

// WithNotifier replaces the systemd notifier.
func WithNotifier(n Notifier) Option {
	return func(d *Daemon) {
		d.notify = n
	}
}

// Daemon is the main daemon process manager.
// It is safe for concurrent use.
type Daemon struct {
	mu      sync.RWMutex
	config  DaemonConfig
	state   DaemonState
	server  *Server
	health  *HealthManager
	pidFile *PIDFile
	logger  *slog.Logger
	notify  Notifier
}

// NewDaemon creates a new Daemon instance with the given configuration.
func NewDaemon(cfg DaemonConfig, opts ...Option) *Daemon {
	health := NewHealthManager()

	d := &Daemon{
		config:  cfg,
		state:   DaemonStateStopped,
		health:  health,
		pidFile: NewPIDFile(cfg.PIDFile),
		logger:  slog.Default(),
		notify:  SystemdNotifier,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.config.HeartbeatInterval <= 0 {
		d.config.HeartbeatInterval = time.Duration(config.DefaultDaemonHeartbeatInterval) * time.Second
	}
	if d.config.ShutdownTimeout <= 0 {
		d.config.ShutdownTimeout = time.Duration(config.DefaultDaemonShutdownTimeout) * time.Second
	}

	if cfg.HTTPEnabled {
		d.server = NewServer(health, ServerConfig{
			Port: cfg.HTTPPort,
			Bind: cfg.HTTPBind,
		})
		d.server.SetStateFunc(d.State)
	}

	return d
}

// State returns the current daemon state.
func (d *Daemon) State() DaemonState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// setState sets the daemon state with proper locking.
func (d *Daemon) setState(state DaemonState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = state
}

// Health returns the current aggregate health status.
func (d *Daemon) Health() HealthStatus {
	return d.health.Status()
}

// HealthManager returns the manager services report into.
func (d *Daemon) HealthManager() *HealthManager {
	return d.health
}

// SetMetricsHandler mounts handler at /metrics when the server is enabled.
func (d *Daemon) SetMetricsHandler(handler http.Handler) {
	if d.server != nil {
		d.server.SetMetricsHandler(handler)
	}
}

// Start claims the PID file, starts services in order and the HTTP server,
// then blocks until ctx is cancelled. A failed HTTP server degrades the
// daemon but does not stop it. It always stops what it started before
// returning.
func (d *Daemon) Start(ctx context.Context, services ...Service) error {
	d.setState(DaemonStateStarting)

	if err := d.pidFile.CheckAndClaim(); err != nil {
		d.setState(DaemonStateStopped)
		return fmt.Errorf("failed to claim PID file; %w", err)
	}
	defer func() {
		if err := d.pidFile.Remove(); err != nil {
			d.logger.Warn("failed to remove PID file", "error", err)
		}
	}()

	for i, svc := range services {
		if err := svc.Start(ctx); err != nil {
			d.stopServices(services[:i])
			d.setState(DaemonStateStopped)
			return fmt.Errorf("failed to start services; %w", err)
		}
	}

	d.setState(DaemonStateRunning)
	d.logger.Info("daemon started",
		"state", d.State(),
		"pid_file", d.pidFile.Path(),
		"http_enabled", d.config.HTTPEnabled,
	)

	var serverErr chan error
	if d.server != nil {
		errCh := make(chan error, 1)
		serverErr = errCh
		d.health.UpdateComponent("http", ComponentHealth{Status: ComponentStatusRunning, LastChecked: time.Now()})
		go func() {
			if err := d.server.Start(ctx); err != nil {
				errCh <- err
			}
			close(errCh)
		}()
	}

	d.sendNotify(sddaemon.SdNotifyReady)

	heartbeat := time.NewTicker(d.config.HeartbeatInterval)
	defer heartbeat.Stop()

	for running := true; running; {
		select {
		case <-ctx.Done():
			d.logger.Info("shutdown signal received")
			running = false
		case err, ok := <-serverErr:
			if ok && err != nil {
				d.logger.Error("http server failed; continuing without health endpoints", "error", err)
				d.health.UpdateComponent("http", ComponentHealth{
					Status:      ComponentStatusFailed,
					Error:       err.Error(),
					LastChecked: time.Now(),
				})
				d.heartbeat()
			}
			if !ok {
				serverErr = nil
			}
		case <-heartbeat.C:
			d.heartbeat()
		}
	}

	return d.stop(services)
}

// heartbeat logs the aggregate health, moves between running and degraded
// and pings the systemd watchdog.
func (d *Daemon) heartbeat() {
	status := d.health.Status()

	current := d.State()
	next := DaemonStateDegraded
	if status.Status == "healthy" {
		next = DaemonStateRunning
	}
	if next != current && current.CanTransitionTo(next) {
		d.setState(next)
		d.logger.Warn("daemon state changed", "from", current, "to", next, "health", status.Status)
	}

	d.logger.Info("heartbeat",
		"state", d.State(),
		"health", status.Status,
		"uptime", status.Uptime.Round(time.Second).String(),
	)

	d.sendNotify(sddaemon.SdNotifyWatchdog)
}

// stop performs graceful shutdown of services and the HTTP server.
func (d *Daemon) stop(services []Service) error {
	d.setState(DaemonStateStopping)
	d.sendNotify(sddaemon.SdNotifyStopping)
	d.logger.Info("stopping daemon")

	d.stopServices(services)

	if d.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), d.config.ShutdownTimeout)
		defer cancel()
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			d.logger.Error("failed to shutdown http server", "error", err)
		}
	}

	d.setState(DaemonStateStopped)
	d.logger.Info("daemon stopped")

	return nil
}

// stopServices stops services in reverse order under the shutdown timeout.
func (d *Daemon) stopServices(services []Service) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), d.config.ShutdownTimeout)
	defer cancel()

	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Stop(shutdownCtx); err != nil {
			d.logger.Error("failed to stop service", "error", err)
		}
	}
}

func (d *Daemon) sendNotify(state string) {
	if d.notify == nil {
		return
	}
	if err := d.notify(state); err != nil {
		d.logger.Debug("service manager notification failed", "state", state, "error", err)
	}
}
