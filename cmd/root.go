package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configcmd "github.com/leefowlercu/skillsd/cmd/config"
	daemoncmd "github.com/leefowlercu/skillsd/cmd/daemon"
	historycmd "github.com/leefowlercu/skillsd/cmd/history"
	processcmd "github.com/leefowlercu/skillsd/cmd/process"
	servicecmd "github.com/leefowlercu/skillsd/cmd/service"
	versioncmd "github.com/leefowlercu/skillsd/cmd/version"
	"github.com/leefowlercu/skillsd/internal/cmdutil"
	"github.com/leefowlercu/skillsd/internal/config"
	"github.com/leefowlercu/skillsd/internal/logging"
)

// logBackups is how many rotated log files are kept when rotation is on.
const logBackups = 3

// logManager is the global logging manager, created in init() and upgraded after config loads
var logManager *logging.Manager

var configPath string

var skillsdCmd = &cobra.Command{
	Use:   "skillsd",
	Short: "Append Claude skill output files to Google Docs",
	Long: "skillsd watches a folder for files produced by Claude skills.\n\n" +
		"Each new file is matched against the configured skill patterns, waited on until " +
		"its size is stable, appended to the skill's Google Doc with an attribution line, " +
		"and moved to the archive folder. Files that match no skill are left in place.",
	PersistentPreRunE: runInitialize,
}

func init() {
	logManager = logging.NewManager()

	skillsdCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to the JSON config file (default $SKILLSD_CONFIG or "+config.DefaultConfigFile+")")

	skillsdCmd.AddCommand(daemoncmd.DaemonCmd)
	skillsdCmd.AddCommand(servicecmd.ServiceCmd)
	skillsdCmd.AddCommand(configcmd.ConfigCmd)
	skillsdCmd.AddCommand(processcmd.ProcessCmd)
	skillsdCmd.AddCommand(historycmd.HistoryCmd)
	skillsdCmd.AddCommand(versioncmd.VersionCmd)
}

func runInitialize(cmd *cobra.Command, args []string) error {
	logger := logManager.Logger()
	cmd.SetContext(cmdutil.WithLogger(cmd.Context(), logger))

	if cmdutil.SkipsConfig(cmd) {
		return nil
	}

	if err := config.Init(configPath); err != nil {
		return err
	}
	cfg := config.Get()

	level, ok := logging.ParseLevel(cfg.LogLevel)
	if !ok {
		level = logging.DefaultLevel
		if cfg.LogLevel != "" {
			logger.Warn("invalid log level configured, using default", "configured", cfg.LogLevel, "default", "info")
		}
	}

	if err := logManager.Upgrade(cfg.LogFile, level, logging.WithRotation(cfg.LogMaxSizeMB, logBackups)); err != nil {
		logger.Warn("failed to enable file logging, continuing with stderr only", "error", err)
	}

	return nil
}

// Execute runs the root command.
func Execute() error {
	skillsdCmd.SilenceErrors = true
	skillsdCmd.SilenceUsage = true

	defer func() { _ = logManager.Close() }()

	err := skillsdCmd.Execute()

	if err != nil {
		cmd, _, _ := skillsdCmd.Find(os.Args[1:])
		if cmd == nil {
			cmd = skillsdCmd
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if !cmd.SilenceUsage {
			fmt.Fprintln(os.Stderr)
			cmd.SetOut(os.Stderr)
			_ = cmd.Usage()
		}

		return err
	}

	return nil
}
