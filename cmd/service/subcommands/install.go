package subcommands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InstallCmd installs and enables the user service.
var InstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install skillsd as a user service",
	Long: "Install skillsd as a user service.\n\n" +
		"Writes a launchd plist or systemd user unit that runs 'skillsd daemon start' " +
		"with the current config file and enables it to start at login. Run " +
		"'skillsd service start' afterwards to start it immediately.",
	Example: `  # Install with the default config
  skillsd service install

  # Install with an explicit config file
  skillsd --config ~/skills.json service install`,
	PreRunE: validateService,
	RunE:    runInstall,
}

// UninstallCmd stops and removes the user service.
var UninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop and remove the user service",
	Long: "Stop and remove the user service.\n\n" +
		"Stops the daemon if it is running, disables auto-start and deletes the " +
		"service file. The config file, history and logs are left in place.",
	Example: `  skillsd service uninstall`,
	PreRunE: validateService,
	RunE:    runUninstall,
}

func validateService(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runInstall(cmd *cobra.Command, args []string) error {
	m, err := manager()
	if err != nil {
		return err
	}

	if err := m.Install(cmd.Context()); err != nil {
		return fmt.Errorf("failed to install service; %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Service installed")
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	m, err := manager()
	if err != nil {
		return err
	}

	installed, err := m.IsInstalled()
	if err != nil {
		return fmt.Errorf("failed to check service; %w", err)
	}
	if !installed {
		fmt.Fprintln(cmd.OutOrStdout(), "Service is not installed")
		return nil
	}

	if err := m.Uninstall(cmd.Context()); err != nil {
		return fmt.Errorf("failed to uninstall service; %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Service uninstalled")
	return nil
}
