package step

import (
	"context"
	"errors"
	"fmt"

	"github.com/regrada-ai/finetune/internal/metrics"
	"github.com/regrada-ai/finetune/internal/model"
	"github.com/regrada-ai/finetune/internal/optim"
	"github.com/regrada-ai/finetune/internal/sink"
)

// ErrMissingLoss is returned when the model reports no loss for a labeled batch.
var ErrMissingLoss = errors.New("model returned no loss for labeled batch")

// Stage names prefix every emitted metric.
const (
	StageTrain = "train"
	StageVal   = "val"
	StageTest  = "test"
)

var logOptions = sink.Options{ProgBar: false, OnEpoch: true}

// HostTransfer materializes a vector of class indices in host memory.
type HostTransfer func(values []int) []int

// CopyToHost is the default transfer: an owned copy of the values.
func CopyToHost(values []int) []int {
	return append([]int(nil), values...)
}

// EvalResult is what the shared evaluation routine produces for one batch.
type EvalResult struct {
	Loss      float64
	Accuracy  float64
	F1Score   float64
	Precision float64
	Recall    float64
}

// Evaluator turns batches into losses and classification metrics using an
// injected classifier. It holds no state across calls.
type Evaluator struct {
	model        model.Classifier
	learningRate float64
	sink         sink.Sink
	toHost       HostTransfer
}

// Option customizes an Evaluator.
type Option func(*Evaluator)

// WithHostTransfer replaces the host materialization step.
func WithHostTransfer(fn HostTransfer) Option {
	return func(e *Evaluator) {
		e.toHost = fn
	}
}

// New wraps m. learningRate is only used by ConfigureOptimizer.
func New(m model.Classifier, learningRate float64, s sink.Sink, opts ...Option) *Evaluator {
	if s == nil {
		s = sink.Discard{}
	}
	e := &Evaluator{
		model:        m,
		learningRate: learningRate,
		sink:         s,
		toHost:       CopyToHost,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ConfigureOptimizer returns Adam over every parameter the model owns.
func (e *Evaluator) ConfigureOptimizer() *optim.Adam {
	return optim.NewAdam(e.model.Parameters(), optim.DefaultAdamConfig(e.learningRate))
}

// TrainingStep returns the model's loss unchanged and logs a rounded copy as
// train_loss.
func (e *Evaluator) TrainingStep(ctx context.Context, batch model.Batch, batchIndex int) (float64, error) {
	if err := batch.Validate(); err != nil {
		return 0, err
	}
	e.setTraining(true)
	out, err := e.model.Forward(ctx, batch.InputIDs, batch.AttentionMask, batch.Labels)
	if err != nil {
		return 0, err
	}
	if out.Loss == nil {
		return 0, ErrMissingLoss
	}
	loss := *out.Loss

	e.sink.LogDict(sink.Metrics{"train_loss": metrics.Round2(loss)}, logOptions)
	return loss, nil
}

// ValidationStep evaluates a batch and logs val_* metrics.
func (e *Evaluator) ValidationStep(ctx context.Context, batch model.Batch, batchIndex int) (float64, error) {
	return e.evalStep(ctx, StageVal, batch)
}

// TestStep evaluates a batch and logs test_* metrics.
func (e *Evaluator) TestStep(ctx context.Context, batch model.Batch, batchIndex int) (float64, error) {
	return e.evalStep(ctx, StageTest, batch)
}

// PredictStep returns the most probable class of the first example in the batch.
func (e *Evaluator) PredictStep(ctx context.Context, batch model.PredictBatch, batchIndex int) (int, error) {
	if err := batch.Validate(); err != nil {
		return 0, err
	}
	if len(batch.InputIDs) == 0 {
		return 0, model.ErrEmptyBatch
	}
	e.setTraining(false)
	out, err := e.model.Forward(ctx, batch.InputIDs, batch.AttentionMask, nil)
	if err != nil {
		return 0, err
	}
	preds, err := e.predict(out.Logits, len(batch.InputIDs))
	if err != nil {
		return 0, err
	}
	return preds[0], nil
}

// Evaluate runs the shared evaluation routine without logging.
func (e *Evaluator) Evaluate(ctx context.Context, batch model.Batch) (EvalResult, error) {
	if err := batch.Validate(); err != nil {
		return EvalResult{}, err
	}
	e.setTraining(false)
	out, err := e.model.Forward(ctx, batch.InputIDs, batch.AttentionMask, batch.Labels)
	if err != nil {
		return EvalResult{}, err
	}
	if out.Loss == nil {
		return EvalResult{}, ErrMissingLoss
	}

	truth := e.toHost(batch.Labels)
	pred, err := e.predict(out.Logits, len(batch.Labels))
	if err != nil {
		return EvalResult{}, err
	}

	report, err := metrics.BuildReport(truth, pred)
	if err != nil {
		return EvalResult{}, err
	}
	pos, err := report.Positive()
	if err != nil {
		return EvalResult{}, err
	}

	return EvalResult{
		Loss:      *out.Loss,
		Accuracy:  metrics.Round2(report.Accuracy),
		F1Score:   metrics.Round2(pos.F1Score),
		Precision: metrics.Round2(pos.Precision),
		Recall:    metrics.Round2(pos.Recall),
	}, nil
}

func (e *Evaluator) evalStep(ctx context.Context, stage string, batch model.Batch) (float64, error) {
	res, err := e.Evaluate(ctx, batch)
	if err != nil {
		return 0, err
	}
	e.sink.LogDict(sink.Metrics{
		stage + "_loss":      metrics.Round2(res.Loss),
		stage + "_accuracy":  res.Accuracy,
		stage + "_f1_score":  res.F1Score,
		stage + "_precision": res.Precision,
		stage + "_recall":    res.Recall,
	}, logOptions)
	return res.Loss, nil
}

func (e *Evaluator) setTraining(training bool) {
	if t, ok := e.model.(model.Trainable); ok {
		t.SetTraining(training)
	}
}

func (e *Evaluator) predict(logits [][]float64, batchSize int) ([]int, error) {
	if len(logits) != batchSize {
		return nil, metrics.ErrLogitShape
	}
	classes := e.model.NumClasses()
	for i, row := range logits {
		if len(row) != classes {
			return nil, fmt.Errorf("%w: row %d has %d classes, model has %d", metrics.ErrLogitShape, i, len(row), classes)
		}
	}
	preds, err := metrics.Predict(logits)
	if err != nil {
		return nil, err
	}
	return e.toHost(preds), nil
}
