// Package service provides the service parent command and subcommands.
package service

import (
	"github.com/spf13/cobra"

	"github.com/leefowlercu/skillsd/cmd/service/subcommands"
)

// ServiceCmd is the parent command for launchd/systemd service management.
var ServiceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage skillsd as a user service",
	Long: "Manage skillsd as a user service.\n\n" +
		"Installs the daemon as a launchd agent on macOS or a systemd user unit on " +
		"Linux so that it starts at login and restarts after a crash. The service " +
		"runs 'skillsd daemon start' with the config file used to install it.",
}

func init() {
	ServiceCmd.AddCommand(subcommands.InstallCmd)
	ServiceCmd.AddCommand(subcommands.UninstallCmd)
	ServiceCmd.AddCommand(subcommands.StartCmd)
	ServiceCmd.AddCommand(subcommands.StopCmd)
	ServiceCmd.AddCommand(subcommands.RestartCmd)
	ServiceCmd.AddCommand(subcommands.StatusCmd)
}
