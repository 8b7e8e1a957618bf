// Package daemon provides the daemon parent command and subcommands.
package daemon

import (
	"github.com/spf13/cobra"

	"github.com/leefowlercu/skillsd/cmd/daemon/subcommands"
)

// DaemonCmd is the parent command for all daemon-related subcommands.
var DaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run and inspect the skillsd daemon",
	Long: "Run and inspect the skillsd daemon.\n\n" +
		"The daemon watches the configured folder, appends matching skill output to " +
		"Google Docs and archives the processed files. It exposes health check " +
		"endpoints for monitoring when the HTTP server is enabled.",
}

func init() {
	DaemonCmd.AddCommand(subcommands.StartCmd)
	DaemonCmd.AddCommand(subcommands.StopCmd)
	DaemonCmd.AddCommand(subcommands.StatusCmd)
}
