package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/regrada-ai/finetune/internal/config"
	"github.com/regrada-ai/finetune/internal/store"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "Show run history",
	Long: `List recent runs recorded in the history database, newest first.

With a run id, show every metric the run recorded. Final metrics are listed
with epoch "final".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
}

var (
	runsBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	runsHeaderStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	runsCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return ExitError{Code: exitConfig, Err: err}
	}
	if cfg.Store.Enabled != nil && !*cfg.Store.Enabled {
		return ExitError{Code: exitConfig, Err: errors.New("run history is disabled (store.enabled: false)")}
	}

	rs, err := store.Open(resolvePath(cfg, cfg.Store.Path))
	if err != nil {
		return ExitError{Code: exitGeneric, Err: err}
	}
	defer rs.Close()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		points, err := rs.RunMetrics(cmd.Context(), args[0])
		if errors.Is(err, store.ErrRunNotFound) {
			return ExitError{Code: exitConfig, Err: err}
		}
		if err != nil {
			return ExitError{Code: exitGeneric, Err: err}
		}
		t := newRunsTable("epoch", "metric", "value")
		for _, p := range points {
			epoch := "final"
			if p.Epoch != store.FinalEpoch {
				epoch = strconv.Itoa(p.Epoch)
			}
			t.Row(epoch, p.Name, fmt.Sprintf("%.4f", p.Value))
		}
		fmt.Fprintln(out, t.Render())
		return nil
	}

	runs, err := rs.ListRuns(cmd.Context(), runsLimit)
	if err != nil {
		return ExitError{Code: exitGeneric, Err: err}
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}
	t := newRunsTable("run", "command", "stage", "status", "started", "config")
	for _, r := range runs {
		hash := r.ConfigHash
		if len(hash) > 8 {
			hash = hash[:8]
		}
		t.Row(r.ID, r.Command, r.Stage, r.Status, r.StartedAt.Local().Format("2006-01-02 15:04:05"), hash)
	}
	fmt.Fprintln(out, t.Render())
	return nil
}

func newRunsTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(runsBorderStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return runsHeaderStyle
			}
			return runsCellStyle
		})
}
