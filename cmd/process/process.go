// Package process provides the one-shot process command.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/skillsd/internal/cmdutil"
	"github.com/leefowlercu/skillsd/internal/config"
	"github.com/leefowlercu/skillsd/internal/daemon"
	"github.com/leefowlercu/skillsd/internal/docs"
	"github.com/leefowlercu/skillsd/internal/history"
	"github.com/leefowlercu/skillsd/internal/pipeline"
	"github.com/leefowlercu/skillsd/internal/skills"
)

// ErrProcessFailed is returned when the file did not reach its document.
var ErrProcessFailed = errors.New("file was not appended")

var dryRun bool

// ProcessCmd runs the pipeline once for a single file.
var ProcessCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Append one file to its skill's document",
	Long: "Append one file to its skill's document.\n\n" +
		"Runs the same pipeline the daemon runs for a new file: waits for its size " +
		"to settle, matches its name against the skill patterns, appends the content " +
		"with an attribution line and moves it to the archive folder. The file does " +
		"not need to be inside the watch folder. Use --dry-run to only report which " +
		"skill would receive it.",
	Example: `  # Append a file now
  skillsd process ~/Downloads/notes-2024.md

  # Show which skill matches without appending
  skillsd process --dry-run report-q3.txt`,
	Args:    cobra.ExactArgs(1),
	PreRunE: validateProcess,
	RunE:    runProcess,
}

func init() {
	ProcessCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the matching skill without appending")
}

func validateProcess(cmd *cobra.Command, args []string) error {
	if args[0] == "" {
		return fmt.Errorf("file path must not be empty")
	}
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.Config()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	path, err := cmdutil.ResolveInputFile(args[0], dryRun)
	if err != nil {
		return err
	}

	if dryRun {
		return matchOnly(out, cfg, path)
	}

	res, err := processFile(cmd.Context(), cfg, cmdutil.Logger(cmd), nil, path)
	if err != nil {
		return err
	}
	return report(out, res)
}

// matchOnly prints the skill that would receive path.
func matchOnly(out io.Writer, cfg *config.Config, path string) error {
	matcher, err := skills.NewMatcher(cfg.Skills)
	if err != nil {
		return err
	}

	skill, ok := matcher.Match(filepath.Base(path))
	if !ok {
		fmt.Fprintf(out, "%s: no skill matches\n", filepath.Base(path))
		return nil
	}

	fmt.Fprintf(out, "%s: skill %s (document %s)\n", filepath.Base(path), skill.Name, skill.DocID)
	return nil
}

// processFile builds the pipeline from cfg and runs path through it, reporting
// the result to logs, metrics and history. A nil factory uses the service account.
func processFile(ctx context.Context, cfg *config.Config, logger *slog.Logger, factory docs.ServiceFactory, path string) (pipeline.Result, error) {
	p, err := daemon.BuildPipeline(cfg, logger, factory)
	if err != nil {
		return pipeline.Result{}, err
	}

	opts := []pipeline.DispatcherOption{
		pipeline.WithDispatcherLogger(logger.With("component", "process")),
	}
	if cfg.History.Enabled {
		store, err := history.Open(ctx, cfg.History.Path)
		if err != nil {
			logger.Warn("history unavailable; continuing without it", "path", cfg.History.Path, "error", err)
		} else {
			defer store.Close()
			opts = append(opts, pipeline.WithRecorder(store))
		}
	}

	res := p.Processor.Process(ctx, path)
	pipeline.NewDispatcher(p.Processor, opts...).Report(ctx, res)

	return res, nil
}

// report prints res and maps it to the command's exit status.
func report(out io.Writer, res pipeline.Result) error {
	name := filepath.Base(res.Path)

	switch res.Outcome {
	case pipeline.OutcomeArchived:
		fmt.Fprintf(out, "%s: appended %d bytes to %s (skill %s)\n", name, res.Bytes, res.DocID, res.Skill)
		if res.ArchiveErr != nil {
			fmt.Fprintf(out, "warning: file left in place; %v\n", res.ArchiveErr)
		} else {
			fmt.Fprintf(out, "archived to %s\n", res.ArchivePath)
		}
		return nil
	case pipeline.OutcomeIgnored:
		fmt.Fprintf(out, "%s: no skill matches; left in place\n", name)
		return nil
	case pipeline.OutcomeDuplicate:
		fmt.Fprintf(out, "%s: already processed\n", name)
		return nil
	default:
		if res.Err != nil {
			return fmt.Errorf("%w; %s: %w", ErrProcessFailed, res.Outcome, res.Err)
		}
		return fmt.Errorf("%w; %s", ErrProcessFailed, res.Outcome)
	}
}
