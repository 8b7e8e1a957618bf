package subcommands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/skillsd/internal/cmdutil"
	"github.com/leefowlercu/skillsd/internal/config"
	"github.com/leefowlercu/skillsd/internal/daemon"
	"github.com/leefowlercu/skillsd/internal/daemonclient"
)

// DaemonStatus holds the status information about the daemon.
type DaemonStatus struct {
	Running      bool                 `json:"running"`
	PID          int                  `json:"pid,omitempty"`
	StalePIDFile bool                 `json:"stale_pid_file,omitempty"`
	Health       *daemon.HealthStatus `json:"health,omitempty"`
}

// healthFetcher queries the running daemon's readiness endpoint.
type healthFetcher func(ctx context.Context) (*daemon.HealthStatus, error)

// StatusCmd shows the daemon status.
var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status and component health",
	Long: "Show daemon status and component health.\n\n" +
		"Reports whether the daemon named in the PID file is running and, when its " +
		"HTTP server is enabled, the health of the watcher, document service, " +
		"pipeline and history components.",
	Example: `  # Check daemon status
  skillsd daemon status

  # Machine-readable output
  skillsd daemon status --json`,
	PreRunE: validateStatus,
	RunE:    runStatus,
}

var statusJSON bool

func init() {
	StatusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print status as JSON")
}

func validateStatus(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.Config()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	status, err := getDaemonStatus(cmd.Context(), daemon.DaemonConfigFrom(cfg.Daemon).PIDFile, clientHealth(cfg))
	if err != nil {
		return fmt.Errorf("failed to get daemon status; %w", err)
	}

	if statusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	fmt.Fprintln(out, formatStatus(status))
	return nil
}

// clientHealth returns a fetcher for the configured daemon, or nil when HTTP is disabled.
func clientHealth(cfg *config.Config) healthFetcher {
	client, err := daemonclient.NewFromConfig(cfg)
	if err != nil {
		return nil
	}
	return client.Ready
}

// getDaemonStatus retrieves the current status of the daemon.
func getDaemonStatus(ctx context.Context, pidPath string, fetch healthFetcher) (*DaemonStatus, error) {
	status := &DaemonStatus{}

	pid, err := daemon.NewPIDFile(pidPath).Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return status, nil
		}
		return nil, err
	}

	status.PID = pid

	if !isProcessRunning(pid) {
		status.StalePIDFile = true
		return status, nil
	}

	status.Running = true

	if fetch != nil {
		if health, err := fetch(ctx); err == nil {
			status.Health = health
		}
	}

	return status, nil
}

// formatStatus formats the daemon status for display.
func formatStatus(status *DaemonStatus) string {
	var sb strings.Builder

	if !status.Running {
		sb.WriteString("Daemon: not running")
		if status.StalePIDFile {
			fmt.Fprintf(&sb, " (stale PID file with PID %d)", status.PID)
		}
		return sb.String()
	}

	fmt.Fprintf(&sb, "Daemon: running (PID %d)", status.PID)

	if status.Health != nil {
		fmt.Fprintf(&sb, "\nHealth: %s", status.Health.Status)
		fmt.Fprintf(&sb, "\nReady: %v", status.Health.Ready)
		fmt.Fprintf(&sb, "\nUptime: %s", status.Health.Uptime)

		names := make([]string, 0, len(status.Health.Components))
		for name := range status.Health.Components {
			names = append(names, name)
		}
		sort.Strings(names)

		if len(names) > 0 {
			sb.WriteString("\nComponents:")
			for _, name := range names {
				health := status.Health.Components[name]
				fmt.Fprintf(&sb, "\n  - %s: %s", name, health.Status)
				if health.Error != "" {
					fmt.Fprintf(&sb, " (%s)", health.Error)
				}
			}
		}
	}

	return sb.String()
}
