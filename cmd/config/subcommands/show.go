// Package subcommands provides the config subcommands (show, validate).
package subcommands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leefowlercu/skillsd/internal/cmdutil"
	"github.com/leefowlercu/skillsd/internal/config"
)

var (
	showRaw bool
)

// ShowCmd displays the current configuration.
var ShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the current configuration",
	Long: "Display the current configuration.\n\n" +
		"Shows the effective configuration with defaults, environment overrides and " +
		"expanded paths applied, rendered as YAML. Use --raw to print the config " +
		"file exactly as written.",
	Example: `  # Show effective configuration
  skillsd config show

  # Show the file as written
  skillsd config show --raw`,
	PreRunE: validateShow,
	RunE:    runShow,
}

func init() {
	ShowCmd.Flags().BoolVar(&showRaw, "raw", false, "Print the config file as written (no defaults)")
}

func validateShow(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path := config.ConfigFilePath()

	if showRaw {
		return showRawConfig(out, path)
	}

	cfg, err := cmdutil.Config()
	if err != nil {
		return err
	}
	return showEffectiveConfig(out, path, cfg)
}

func showRawConfig(out io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file; %w", err)
	}

	fmt.Fprintf(out, "# Configuration file: %s\n", path)
	fmt.Fprintln(out, string(data))
	return nil
}

func showEffectiveConfig(out io.Writer, path string, cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration; %w", err)
	}

	fmt.Fprintln(out, "# Effective configuration (with defaults)")
	fmt.Fprintf(out, "# Config file: %s\n", path)
	fmt.Fprint(out, string(data))
	return nil
}
