// Package config provides the config parent command and subcommands.
package config

import (
	"github.com/spf13/cobra"

	"github.com/leefowlercu/skillsd/cmd/config/subcommands"
)

// ConfigCmd is the parent command for all config-related subcommands.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect skillsd configuration",
	Long: "Inspect skillsd configuration.\n\n" +
		"Configuration is a JSON file read from --config, $SKILLSD_CONFIG or " +
		"~/.claude-skills-config.json, in that order. SKILLSD_* environment " +
		"variables override individual settings.",
}

func init() {
	ConfigCmd.AddCommand(subcommands.ShowCmd)
	ConfigCmd.AddCommand(subcommands.ValidateCmd)
}
