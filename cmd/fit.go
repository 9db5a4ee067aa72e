package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/regrada-ai/finetune/internal/model"
	"github.com/regrada-ai/finetune/internal/report"
	"github.com/regrada-ai/finetune/internal/step"
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Train the classifier, validating after every epoch",
	RunE:  runFit,
}

func init() {
	rootCmd.AddCommand(fitCmd)
}

func runFit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(cmd, "fit")
	if err != nil {
		return err
	}
	defer s.close()

	train, err := s.labeledBatches(s.cfg.Data.Train)
	if err != nil {
		return err
	}
	var val []model.Batch
	if s.cfg.Data.Val != "" && fileExists(s.path(s.cfg.Data.Val)) {
		if val, err = s.labeledBatches(s.cfg.Data.Val); err != nil {
			return err
		}
	}
	if len(val) == 0 {
		s.logger.Warn("no validation data; metrics come from training only")
	}
	if len(s.clf.Parameters()) == 0 {
		s.logger.Warn("model has no local parameters; fit only measures it")
	}

	opt := s.ev.ConfigureOptimizer()
	s.logger.Debug("optimizer configured",
		zap.Int("parameters", len(opt.Params())),
		zap.Float64("learning_rate", opt.LearningRate()),
	)
	epochs, err := s.run.Fit(ctx, opt, train, val, s.cfg.Training.Epochs)
	if err != nil {
		return ExitError{Code: exitRun, Err: err}
	}
	if err := s.saveCheckpoint(); err != nil {
		return err
	}

	stage := step.StageTrain
	if len(val) > 0 {
		stage = step.StageVal
	}
	skipped := 0
	for _, e := range epochs {
		skipped += e.Skipped
	}
	last := epochs[len(epochs)-1]
	summary := report.RunSummary{
		RunID:   s.run.RunID(),
		Command: "fit",
		Stage:   stage,
		Metrics: last.Metrics,
		Epochs:  epochs,
		Skipped: skipped,
	}
	s.logger.Info("fit complete",
		zap.Int("epochs", len(epochs)),
		zap.Int("skipped", skipped),
		zap.Uint64("optimizer_steps", opt.StepCount()),
	)

	if err := s.compare(ctx, &summary); err != nil {
		return err
	}
	return s.finish(ctx, &summary)
}
