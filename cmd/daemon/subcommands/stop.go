package subcommands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/skillsd/internal/cmdutil"
	"github.com/leefowlercu/skillsd/internal/daemon"
)

// Errors for stop command
var (
	ErrNoDaemonRunning = errors.New("no daemon running")
	ErrStalePIDFile    = errors.New("stale PID file found and cleaned up")
)

// StopCmd stops a running daemon.
var StopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon gracefully",
	Long: "Stop the running daemon gracefully.\n\n" +
		"Sends SIGTERM to the process named in the PID file and waits for it to exit. " +
		"A daemon managed by launchd or systemd should be stopped with the service " +
		"manager instead, or it may be restarted.",
	Example: `  # Stop the daemon
  skillsd daemon stop

  # Wait up to a minute
  skillsd daemon stop --timeout 1m`,
	PreRunE: validateStop,
	RunE:    runStop,
}

var (
	stopTimeout time.Duration
)

func init() {
	StopCmd.Flags().DurationVar(&stopTimeout, "timeout", 30*time.Second,
		"Maximum time to wait for daemon to stop")
}

func validateStop(cmd *cobra.Command, args []string) error {
	if stopTimeout <= 0 {
		return fmt.Errorf("--timeout must be positive")
	}
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.Config()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if err := stopDaemon(cmdutil.Logger(cmd), daemon.DaemonConfigFrom(cfg.Daemon).PIDFile, stopTimeout); err != nil {
		if errors.Is(err, ErrNoDaemonRunning) {
			fmt.Fprintln(out, "No daemon is running")
			return nil
		}
		if errors.Is(err, ErrStalePIDFile) {
			fmt.Fprintln(out, "Found stale PID file, cleaned up")
			return nil
		}
		return fmt.Errorf("failed to stop daemon; %w", err)
	}

	fmt.Fprintln(out, "Daemon stopped")
	return nil
}

// stopDaemon reads the PID file, sends SIGTERM and waits up to timeout for the process to exit.
func stopDaemon(logger *slog.Logger, pidPath string, timeout time.Duration) error {
	pidFile := daemon.NewPIDFile(pidPath)

	pid, err := pidFile.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNoDaemonRunning
		}
		return err
	}

	if !isProcessRunning(pid) {
		_ = os.Remove(pidPath)
		return ErrStalePIDFile
	}

	logger.Debug("sending SIGTERM to daemon", "pid", pid)

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM; %w", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !isProcessRunning(pid) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("daemon (pid %d) did not stop within %s", pid, timeout)
}
