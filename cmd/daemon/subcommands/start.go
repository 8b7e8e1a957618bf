package subcommands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/skillsd/internal/cmdutil"
	"github.com/leefowlercu/skillsd/internal/daemon"
)

// StartCmd starts the daemon in foreground mode.
var StartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in foreground mode",
	Long: "Start the daemon in foreground mode.\n\n" +
		"The daemon runs until it receives SIGINT or SIGTERM. On a signal it stops " +
		"watching, lets the file in flight finish within the shutdown timeout and " +
		"removes its PID file. Use 'skillsd service install' to run it under " +
		"launchd or systemd.",
	Example: `  # Start daemon in foreground
  skillsd daemon start

  # Start with an explicit config file
  skillsd --config ~/skills.json daemon start`,
	PreRunE: validateStart,
	RunE:    runStart,
}

func validateStart(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.Config()
	if err != nil {
		return err
	}
	logger := cmdutil.Logger(cmd)

	daemonCfg := daemon.DaemonConfigFrom(cfg.Daemon)
	d := daemon.NewDaemon(daemonCfg, daemon.WithLogger(logger.With("component", "daemon")))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestrator := daemon.NewOrchestrator(d, cfg, daemon.WithOrchestratorLogger(logger))
	if err := orchestrator.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize components; %w", err)
	}

	logger.Info("starting daemon",
		"watch_folder", cfg.WatchFolder,
		"http_enabled", daemonCfg.HTTPEnabled,
		"http_bind", daemonCfg.HTTPBind,
		"http_port", daemonCfg.HTTPPort,
		"pid_file", daemonCfg.PIDFile,
	)

	if err := d.Start(ctx, orchestrator); err != nil {
		return fmt.Errorf("daemon error; %w", err)
	}

	logger.Info("daemon stopped")
	return nil
}
