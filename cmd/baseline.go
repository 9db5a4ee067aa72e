package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/regrada-ai/finetune/internal/baseline"
	"github.com/regrada-ai/finetune/internal/report"
	"github.com/regrada-ai/finetune/internal/step"
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Snapshot current evaluation metrics as the baseline",
	Long: `Evaluate the current checkpoint on the test set (and the validation set
when it exists) and write the metrics under baseline.snapshot_dir.

Commit the snapshot directory to compare later runs against it, locally or
from a git ref with baseline.mode: git.`,
	RunE: runBaseline,
}

func init() {
	rootCmd.AddCommand(baselineCmd)
}

type stageInput struct {
	name string
	path string
}

func runBaseline(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(cmd, "baseline")
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.restoreCheckpoint(); err != nil {
		return err
	}

	stages := []stageInput{{step.StageTest, s.cfg.Data.Test}}
	if s.cfg.Data.Val != "" && fileExists(s.path(s.cfg.Data.Val)) {
		stages = append(stages, stageInput{step.StageVal, s.cfg.Data.Val})
	}

	// Snapshots always go to the working tree; git mode only reads them.
	dir := s.path(s.cfg.Baseline.SnapshotDir)
	store := baseline.NewLocalStore(dir)
	key := s.baselineKey()

	for _, st := range stages {
		batches, err := s.labeledBatches(st.path)
		if err != nil {
			return err
		}
		res, err := s.run.Evaluate(ctx, st.name, batches)
		if err != nil {
			return ExitError{Code: exitRun, Err: err}
		}
		// Each stage is its own history row.
		summary := report.RunSummary{
			RunID:   stageRunID(s.run.RunID(), st.name),
			Command: "baseline",
			Stage:   res.Stage,
			Metrics: res.Metrics,
			Skipped: res.Skipped,
		}
		if err := store.Save(ctx, st.name, key, baseline.FromSummary(summary, key, s.configHash)); err != nil {
			return ExitError{Code: exitBaseline, Err: err}
		}
		s.record(ctx, summary)
		s.logger.Info("baseline written", zap.String("stage", st.name), zap.String("key", key))
	}

	fmt.Fprintf(s.out, "Wrote %d baseline(s) with key %s to %s\n", len(stages), key, dir)
	return nil
}

func stageRunID(runID, stage string) string {
	return runID + "-" + stage
}
