package cmd

import (
	"github.com/spf13/cobra"

	"github.com/regrada-ai/finetune/internal/report"
	"github.com/regrada-ai/finetune/internal/step"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Evaluate the test set, diff against baselines, apply policies",
	RunE:  runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(cmd, "test")
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.restoreCheckpoint(); err != nil {
		return err
	}
	batches, err := s.labeledBatches(s.cfg.Data.Test)
	if err != nil {
		return err
	}

	res, err := s.run.Evaluate(ctx, step.StageTest, batches)
	if err != nil {
		return ExitError{Code: exitRun, Err: err}
	}

	summary := report.RunSummary{
		RunID:   s.run.RunID(),
		Command: "test",
		Stage:   res.Stage,
		Metrics: res.Metrics,
		Skipped: res.Skipped,
	}
	if err := s.compare(ctx, &summary); err != nil {
		return err
	}
	return s.finish(ctx, &summary)
}
