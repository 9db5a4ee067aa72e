// Package runner drives an evaluator over batches in order: training
// epochs, stage evaluation and prediction.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/regrada-ai/finetune/internal/model"
	"github.com/regrada-ai/finetune/internal/optim"
	"github.com/regrada-ai/finetune/internal/sink"
	"github.com/regrada-ai/finetune/internal/step"
)

// Error policies for a failing step.
const (
	OnErrorAbort = "abort"
	OnErrorSkip  = "skip"
)

// SkippedPrediction marks a batch whose prediction failed under OnErrorSkip.
const SkippedPrediction = -1

var (
	// ErrAllSkipped means a stage produced no metrics because every batch failed.
	ErrAllSkipped = errors.New("every batch was skipped")
	ErrNoBatches  = errors.New("no batches")
)

// EpochSummary is what one training epoch produced.
type EpochSummary struct {
	Epoch    int           `json:"epoch"`
	Metrics  sink.Metrics  `json:"metrics"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// StageResult holds epoch-mean metrics for one evaluation pass.
type StageResult struct {
	Stage   string       `json:"stage"`
	Metrics sink.Metrics `json:"metrics"`
	Skipped int          `json:"skipped"`
}

// Runner is not safe for concurrent use; one run at a time.
type Runner struct {
	ev      *step.Evaluator
	agg     *sink.EpochAggregator
	logger  *zap.Logger
	onError string
	runID   string
}

type Option func(*Runner)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithOnError sets the step error policy. Unknown values mean abort.
func WithOnError(policy string) Option {
	return func(r *Runner) {
		r.onError = policy
	}
}

func WithRunID(id string) Option {
	return func(r *Runner) {
		r.runID = id
	}
}

// New builds a runner. agg must be one of the sinks ev logs to; epoch and
// stage means are read from it.
func New(ev *step.Evaluator, agg *sink.EpochAggregator, opts ...Option) *Runner {
	r := &Runner{
		ev:      ev,
		agg:     agg,
		logger:  zap.NewNop(),
		onError: OnErrorAbort,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	r.logger = r.logger.With(zap.String("run_id", r.runID))
	return r
}

func (r *Runner) RunID() string {
	return r.runID
}

// Fit trains for the given number of epochs. Each training batch runs
// ZeroGrad, TrainingStep and Step in that order; validation batches follow.
func (r *Runner) Fit(ctx context.Context, opt optim.Optimizer, train, val []model.Batch, epochs int) ([]EpochSummary, error) {
	if epochs <= 0 {
		return nil, fmt.Errorf("epochs must be positive, got %d", epochs)
	}
	if len(train) == 0 {
		return nil, fmt.Errorf("%s: %w", step.StageTrain, ErrNoBatches)
	}

	r.agg.EpochEnd()
	summaries := make([]EpochSummary, 0, epochs)
	for epoch := 0; epoch < epochs; epoch++ {
		start := time.Now()
		trainSkipped, valSkipped := 0, 0

		for i, batch := range train {
			if err := ctx.Err(); err != nil {
				return summaries, err
			}
			opt.ZeroGrad()
			if _, err := r.ev.TrainingStep(ctx, batch, i); err != nil {
				if r.abort(err, step.StageTrain, epoch, i) {
					return summaries, fmt.Errorf("epoch %d train batch %d: %w", epoch, i, err)
				}
				trainSkipped++
				continue
			}
			opt.Step()
		}
		if trainSkipped == len(train) {
			return summaries, fmt.Errorf("epoch %d %s: %w", epoch, step.StageTrain, ErrAllSkipped)
		}

		for i, batch := range val {
			if err := ctx.Err(); err != nil {
				return summaries, err
			}
			if _, err := r.ev.ValidationStep(ctx, batch, i); err != nil {
				if r.abort(err, step.StageVal, epoch, i) {
					return summaries, fmt.Errorf("epoch %d val batch %d: %w", epoch, i, err)
				}
				valSkipped++
			}
		}
		if len(val) > 0 && valSkipped == len(val) {
			return summaries, fmt.Errorf("epoch %d %s: %w", epoch, step.StageVal, ErrAllSkipped)
		}

		skipped := trainSkipped + valSkipped
		summary := EpochSummary{
			Epoch:    epoch,
			Metrics:  r.agg.EpochEnd(),
			Skipped:  skipped,
			Duration: time.Since(start),
		}
		summaries = append(summaries, summary)

		fields := []zap.Field{
			zap.Int("epoch", epoch),
			zap.Int("skipped", skipped),
			zap.Duration("duration", summary.Duration),
		}
		for _, k := range summary.Metrics.Keys() {
			fields = append(fields, zap.Float64(k, summary.Metrics[k]))
		}
		r.logger.Info("epoch complete", fields...)
	}
	return summaries, nil
}

// Evaluate runs ValidationStep or TestStep over every batch and returns the
// mean of each logged metric. A stage with no batches, or with every batch
// skipped, is an error rather than an empty result.
func (r *Runner) Evaluate(ctx context.Context, stage string, batches []model.Batch) (StageResult, error) {
	var stepFn func(context.Context, model.Batch, int) (float64, error)
	switch stage {
	case step.StageVal:
		stepFn = r.ev.ValidationStep
	case step.StageTest:
		stepFn = r.ev.TestStep
	default:
		return StageResult{}, fmt.Errorf("unknown evaluation stage %q", stage)
	}
	if len(batches) == 0 {
		return StageResult{}, fmt.Errorf("%s: %w", stage, ErrNoBatches)
	}

	r.agg.EpochEnd()
	skipped := 0
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return StageResult{}, err
		}
		if _, err := stepFn(ctx, batch, i); err != nil {
			if r.abort(err, stage, 0, i) {
				return StageResult{}, fmt.Errorf("%s batch %d: %w", stage, i, err)
			}
			skipped++
		}
	}
	if skipped == len(batches) {
		return StageResult{}, fmt.Errorf("%s: %w", stage, ErrAllSkipped)
	}

	result := StageResult{Stage: stage, Metrics: r.agg.EpochEnd(), Skipped: skipped}
	r.logger.Info("evaluation complete",
		zap.String("stage", stage),
		zap.Int("batches", len(batches)),
		zap.Int("skipped", skipped),
	)
	return result, nil
}

// Predict returns one class index per batch. Skipped batches hold
// SkippedPrediction.
func (r *Runner) Predict(ctx context.Context, batches []model.PredictBatch) ([]int, error) {
	preds := make([]int, 0, len(batches))
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return preds, err
		}
		class, err := r.ev.PredictStep(ctx, batch, i)
		if err != nil {
			if r.abort(err, "predict", 0, i) {
				return preds, fmt.Errorf("predict batch %d: %w", i, err)
			}
			preds = append(preds, SkippedPrediction)
			continue
		}
		preds = append(preds, class)
	}
	return preds, nil
}

// abort reports whether err should stop the run, logging it when skipped.
// Context errors always abort.
func (r *Runner) abort(err error, stage string, epoch, batch int) bool {
	if r.onError != OnErrorSkip || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	r.logger.Warn("skipping batch",
		zap.String("stage", stage),
		zap.Int("epoch", epoch),
		zap.Int("batch", batch),
		zap.Error(err),
	)
	return false
}
