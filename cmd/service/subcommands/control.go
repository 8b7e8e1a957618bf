package subcommands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/skillsd/internal/servicemanager"
)

// StartCmd starts the installed service.
var StartCmd = &cobra.Command{
	Use:     "start",
	Short:   "Start the installed service",
	Example: `  skillsd service start`,
	PreRunE: validateService,
	RunE: func(cmd *cobra.Command, args []string) error {
		return control(cmd, "started", servicemanager.DaemonManager.StartDaemon)
	},
}

// StopCmd stops the installed service.
var StopCmd = &cobra.Command{
	Use:     "stop",
	Short:   "Stop the installed service",
	Example: `  skillsd service stop`,
	PreRunE: validateService,
	RunE: func(cmd *cobra.Command, args []string) error {
		return control(cmd, "stopped", servicemanager.DaemonManager.StopDaemon)
	},
}

// RestartCmd restarts the installed service.
var RestartCmd = &cobra.Command{
	Use:     "restart",
	Short:   "Restart the installed service",
	Example: `  skillsd service restart`,
	PreRunE: validateService,
	RunE: func(cmd *cobra.Command, args []string) error {
		return control(cmd, "restarted", servicemanager.DaemonManager.Restart)
	},
}

func control(cmd *cobra.Command, verb string, action func(servicemanager.DaemonManager, context.Context) error) error {
	m, err := manager()
	if err != nil {
		return err
	}

	installed, err := m.IsInstalled()
	if err != nil {
		return fmt.Errorf("failed to check service; %w", err)
	}
	if !installed {
		return fmt.Errorf("service is not installed; run 'skillsd service install'")
	}

	if err := action(m, cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Service %s\n", verb)
	return nil
}
