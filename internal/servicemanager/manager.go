package servicemanager

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/leefowlercu/skillsd/internal/daemon"
)

// ServiceState represents the installation state of the service.
type ServiceState string

const (
	// ServiceStateEnabled indicates the service is installed and enabled for auto-start.
	ServiceStateEnabled ServiceState = "enabled"

	// ServiceStateDisabled indicates the service is installed but not enabled for auto-start.
	ServiceStateDisabled ServiceState = "disabled"

	// ServiceStateNotInstalled indicates the service is not installed.
	ServiceStateNotInstalled ServiceState = "not-installed"
)

// String returns the service state as a string.
func (s ServiceState) String() string {
	return string(s)
}

// DaemonStatus represents the current status of the daemon service.
type DaemonStatus struct {
	// IsRunning indicates whether the daemon process is running.
	IsRunning bool

	// PID is the process ID of the daemon (0 if not running).
	PID int

	// ServiceState indicates the installation state of the service.
	ServiceState ServiceState

	// Health is the /readyz response, nil when not running or unreachable.
	Health *daemon.HealthStatus

	// Error contains any error encountered while getting status.
	Error error
}

// HealthFunc fetches the daemon's readiness status.
type HealthFunc func(ctx context.Context) (*daemon.HealthStatus, error)

// Settings describe the service being installed.
type Settings struct {
	// BinaryPath is the skillsd executable. Empty means GetBinaryPath.
	BinaryPath string

	// ConfigPath is passed as --config when set.
	ConfigPath string

	// HeartbeatInterval sizes the systemd watchdog. Zero disables it.
	HeartbeatInterval time.Duration

	// Health is queried by Status when the service runs. Nil skips it.
	Health HealthFunc
}

func (s Settings) binary() string {
	if s.BinaryPath != "" {
		return s.BinaryPath
	}
	return GetBinaryPath()
}

// DaemonManager provides platform-agnostic daemon service management.
type DaemonManager interface {
	// Install writes the service file and enables auto-start.
	Install(ctx context.Context) error

	// Uninstall stops the service, disables auto-start, and removes the service file.
	Uninstall(ctx context.Context) error

	// StartDaemon starts the daemon via the system service manager.
	StartDaemon(ctx context.Context) error

	// StopDaemon stops the daemon via the system service manager.
	StopDaemon(ctx context.Context) error

	// Restart stops and starts the daemon.
	Restart(ctx context.Context) error

	// Status returns detailed daemon status including health.
	Status(ctx context.Context) (DaemonStatus, error)

	// IsInstalled checks if the service file exists.
	IsInstalled() (bool, error)
}

// CommandExecutor abstracts command execution for testability.
type CommandExecutor interface {
	// Run executes a command and returns its combined output.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// defaultExecutor implements CommandExecutor using os/exec.
type defaultExecutor struct{}

// Run executes a command using os/exec.
func (e *defaultExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// NewCommandExecutor returns the default command executor.
func NewCommandExecutor() CommandExecutor {
	return &defaultExecutor{}
}

// NewDaemonManager returns the DaemonManager for the current platform.
func NewDaemonManager(settings Settings) (DaemonManager, error) {
	return NewDaemonManagerWithExecutor(NewCommandExecutor(), settings)
}

// NewDaemonManagerWithExecutor returns a DaemonManager with a custom command executor.
func NewDaemonManagerWithExecutor(executor CommandExecutor, settings Settings) (DaemonManager, error) {
	switch platform := DetectPlatform(); platform {
	case PlatformMacOS:
		return newLaunchdManager(executor, settings), nil
	case PlatformLinux:
		return newSystemdManager(executor, settings), nil
	default:
		return nil, fmt.Errorf("platform %s is not supported", platform)
	}
}

// fetchHealth queries health when the settings provide a source.
func fetchHealth(ctx context.Context, settings Settings) *daemon.HealthStatus {
	if settings.Health == nil {
		return nil
	}
	health, err := settings.Health(ctx)
	if err != nil {
		return nil
	}
	return health
}
