// Package history provides the history command.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/skillsd/internal/cmdutil"
	"github.com/leefowlercu/skillsd/internal/config"
	"github.com/leefowlercu/skillsd/internal/history"
)

// Flag variables
var (
	historyLimit int
	historyJSON  bool
)

// HistoryCmd lists recent pipeline runs.
var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently processed files",
	Long: "List recently processed files.\n\n" +
		"Shows the most recent pipeline runs recorded by the daemon and by " +
		"'skillsd process', newest first: when the file was handled, which skill " +
		"matched it and how the run ended.",
	Example: `  # Show the last 20 runs
  skillsd history

  # Show the last 100 runs as JSON
  skillsd history --limit 100 --json`,
	PreRunE: validateHistory,
	RunE:    runHistory,
}

func init() {
	HistoryCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to show")
	HistoryCmd.Flags().BoolVar(&historyJSON, "json", false, "Print runs as JSON")
}

func validateHistory(cmd *cobra.Command, args []string) error {
	if historyLimit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.Config()
	if err != nil {
		return err
	}

	entries, err := loadEntries(cmd.Context(), cfg, historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	writeTable(out, entries)
	return nil
}

func loadEntries(ctx context.Context, cfg *config.Config, limit int) ([]history.Entry, error) {
	if !cfg.History.Enabled {
		return nil, fmt.Errorf("history is disabled; set history.enabled to true")
	}

	if _, err := os.Stat(cfg.History.Path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	store, err := history.Open(ctx, cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history; %w", err)
	}
	defer store.Close()

	return store.Recent(ctx, limit)
}

func writeTable(out io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No files processed yet")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tFILE\tSKILL\tOUTCOME\tBYTES\tDURATION\tERROR")
	fmt.Fprintln(w, "----\t----\t-----\t-------\t-----\t--------\t-----")

	for _, e := range entries {
		skill := e.Skill
		if skill == "" {
			skill = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			e.ProcessedAt.Local().Format(time.DateTime),
			filepath.Base(e.Path),
			skill,
			e.Outcome,
			e.Bytes,
			e.Duration.Round(time.Millisecond),
			e.Error,
		)
	}

	_ = w.Flush()
}
