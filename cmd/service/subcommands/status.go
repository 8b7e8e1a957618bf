package subcommands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/skillsd/internal/servicemanager"
)

// StatusCmd shows the service state.
var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the service state",
	Long: "Show the service state.\n\n" +
		"Reports whether the service is installed and enabled, whether the daemon is " +
		"running under it, and the daemon's component health when reachable.",
	Example: `  skillsd service status`,
	PreRunE: validateService,
	RunE:    runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	m, err := manager()
	if err != nil {
		return err
	}

	status, err := m.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get service status; %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), formatServiceStatus(status))
	return nil
}

func formatServiceStatus(status servicemanager.DaemonStatus) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Service: %s", status.ServiceState)
	if status.Error != nil {
		fmt.Fprintf(&sb, " (%v)", status.Error)
	}

	if status.ServiceState == servicemanager.ServiceStateNotInstalled {
		return sb.String()
	}

	if status.IsRunning {
		fmt.Fprintf(&sb, "\nDaemon: running (PID %d)", status.PID)
	} else {
		sb.WriteString("\nDaemon: not running")
	}

	if status.Health != nil {
		fmt.Fprintf(&sb, "\nHealth: %s", status.Health.Status)

		names := make([]string, 0, len(status.Health.Components))
		for name := range status.Health.Components {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			c := status.Health.Components[name]
			fmt.Fprintf(&sb, "\n  - %s: %s", name, c.Status)
			if c.Error != "" {
				fmt.Fprintf(&sb, " (%s)", c.Error)
			}
		}
	}

	return sb.String()
}
