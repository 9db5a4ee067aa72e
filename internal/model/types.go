package model

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is returned when ids, mask and labels disagree on the
	// batch dimension or per-example length.
	ErrShapeMismatch = errors.New("batch shape mismatch")
	ErrEmptyBatch    = errors.New("empty batch")
)

// Batch is a labeled minibatch of token sequences.
type Batch struct {
	InputIDs      [][]int `json:"input_ids"`
	AttentionMask [][]int `json:"attention_mask"`
	Labels        []int   `json:"labels"`
}

// PredictBatch carries the model inputs without labels.
type PredictBatch struct {
	InputIDs      [][]int `json:"input_ids"`
	AttentionMask [][]int `json:"attention_mask"`
}

// Output is what a classifier returns for one forward pass. Loss is nil
// when no labels were supplied.
type Output struct {
	Loss   *float64    `json:"loss,omitempty"`
	Logits [][]float64 `json:"logits"`
}

// Parameter is a named trainable tensor stored flat, with its gradient.
type Parameter struct {
	Name  string
	Shape []int
	Data  []float64
	Grad  []float64
}

// NewParameter allocates a zeroed parameter of the given shape.
func NewParameter(name string, shape ...int) *Parameter {
	size := 1
	for _, d := range shape {
		size *= d
	}
	return &Parameter{
		Name:  name,
		Shape: append([]int(nil), shape...),
		Data:  make([]float64, size),
		Grad:  make([]float64, size),
	}
}

// ZeroGrad clears the accumulated gradient.
func (p *Parameter) ZeroGrad() {
	for i := range p.Grad {
		p.Grad[i] = 0
	}
}

// Classifier is the sequence-classification model contract.
type Classifier interface {
	// Forward runs the model. labels may be nil; when present the output
	// carries a loss.
	Forward(ctx context.Context, inputIDs, attentionMask [][]int, labels []int) (Output, error)
	Parameters() []*Parameter
	NumClasses() int
}

// Trainable is implemented by classifiers that accumulate gradients. In eval
// mode a labeled forward pass computes the loss but leaves gradients alone.
type Trainable interface {
	SetTraining(training bool)
}

// Inputs drops the labels.
func (b Batch) Inputs() PredictBatch {
	return PredictBatch{InputIDs: b.InputIDs, AttentionMask: b.AttentionMask}
}

// Validate checks that ids, mask and labels agree on the batch dimension and
// that every mask row matches its id row.
func (b Batch) Validate() error {
	if len(b.Labels) != len(b.InputIDs) {
		return fmt.Errorf("%w: %d input rows, %d labels", ErrShapeMismatch, len(b.InputIDs), len(b.Labels))
	}
	return validateInputs(b.InputIDs, b.AttentionMask)
}

// Validate checks that ids and mask agree in shape.
func (b PredictBatch) Validate() error {
	return validateInputs(b.InputIDs, b.AttentionMask)
}

func validateInputs(ids, mask [][]int) error {
	if len(ids) != len(mask) {
		return fmt.Errorf("%w: %d input rows, %d mask rows", ErrShapeMismatch, len(ids), len(mask))
	}
	for i := range ids {
		if len(ids[i]) != len(mask[i]) {
			return fmt.Errorf("%w: row %d has %d ids and %d mask entries", ErrShapeMismatch, i, len(ids[i]), len(mask[i]))
		}
	}
	return nil
}
