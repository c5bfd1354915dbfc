package main

import (
	"errors"
	"fmt"
	"strconv"

	"blindseeker/internal/logging"
	"blindseeker/internal/store"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var historyLimit int

// historyCmd lists recorded runs.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs from the history database",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if cfg.Store.Path == "" {
		return errors.New("no history database configured (use --history or BLINDSEEKER_HISTORY)")
	}
	s, err := store.Open(cfg.Store.Path, logging.For(logger, logging.CategoryStore))
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	runs, err := s.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("WHEN", "TARGET", "EXPRESSION", "RESULT", "CALLS", "MS")
	for _, r := range runs {
		result := r.Value
		if !r.Success {
			result = "FAILED: " + r.Error
		}
		t.Row(
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Target,
			r.Expression,
			result,
			strconv.FormatInt(r.OracleCalls, 10),
			strconv.FormatInt(r.DurationMs, 10),
		)
	}
	fmt.Fprintln(out, t.Render())

	st, err := s.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d runs, %d succeeded, %d failed, %d oracle calls\n",
		st.TotalRuns, st.SuccessCount, st.FailureCount, st.OracleCalls)
	return nil
}
