package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/regrada-ai/finetune/internal/metrics"
	"github.com/regrada-ai/finetune/internal/model"
)

var ErrLabelRange = errors.New("label out of range")

// Linear is a small sequence classifier: masked mean of token embeddings
// followed by a dense layer. In training mode a labeled forward pass also
// accumulates gradients into its parameters.
type Linear struct {
	vocabSize  int
	dim        int
	numClasses int
	training   bool

	embedding *model.Parameter // [vocab, dim]
	weight    *model.Parameter // [classes, dim]
	bias      *model.Parameter // [classes]
}

// NewLinear constructs the model with small random weights.
func NewLinear(vocabSize, dim, numClasses int, seed int64) *Linear {
	if vocabSize <= 0 {
		vocabSize = 30522
	}
	if dim <= 0 {
		dim = 16
	}
	if numClasses <= 0 {
		numClasses = 2
	}
	rng := rand.New(rand.NewSource(seed))
	l := &Linear{
		vocabSize:  vocabSize,
		dim:        dim,
		numClasses: numClasses,
		training:   true,
		embedding:  model.NewParameter("embedding", vocabSize, dim),
		weight:     model.NewParameter("classifier.weight", numClasses, dim),
		bias:       model.NewParameter("classifier.bias", numClasses),
	}
	for i := range l.embedding.Data {
		l.embedding.Data[i] = rng.NormFloat64() * 0.1
	}
	for i := range l.weight.Data {
		l.weight.Data[i] = (rng.Float64()*2 - 1) * 0.1
	}
	return l
}

func (l *Linear) Parameters() []*model.Parameter {
	return []*model.Parameter{l.embedding, l.weight, l.bias}
}

func (l *Linear) NumClasses() int {
	return l.numClasses
}

// SetTraining switches between training mode (the default) and eval mode.
func (l *Linear) SetTraining(training bool) {
	l.training = training
}

func (l *Linear) Forward(ctx context.Context, inputIDs, attentionMask [][]int, labels []int) (model.Output, error) {
	if err := ctx.Err(); err != nil {
		return model.Output{}, err
	}
	if len(inputIDs) != len(attentionMask) {
		return model.Output{}, fmt.Errorf("%w: %d input rows, %d mask rows", model.ErrShapeMismatch, len(inputIDs), len(attentionMask))
	}
	if labels != nil && len(labels) != len(inputIDs) {
		return model.Output{}, fmt.Errorf("%w: %d input rows, %d labels", model.ErrShapeMismatch, len(inputIDs), len(labels))
	}

	batch := len(inputIDs)
	pooled := make([][]float64, batch)
	logits := make([][]float64, batch)
	for i := range inputIDs {
		h, err := l.pool(inputIDs[i], attentionMask[i])
		if err != nil {
			return model.Output{}, fmt.Errorf("row %d: %w", i, err)
		}
		pooled[i] = h
		logits[i] = l.dense(h)
	}

	out := model.Output{Logits: logits}
	if labels == nil {
		return out, nil
	}

	loss, err := meanCrossEntropy(logits, labels)
	if err != nil {
		return model.Output{}, err
	}
	out.Loss = &loss
	if !l.training {
		return out, nil
	}
	l.backward(inputIDs, attentionMask, labels, pooled, logits)
	return out, nil
}

func (l *Linear) pool(ids, mask []int) ([]float64, error) {
	if len(ids) != len(mask) {
		return nil, fmt.Errorf("%w: %d ids and %d mask entries", model.ErrShapeMismatch, len(ids), len(mask))
	}
	h := make([]float64, l.dim)
	count := 0
	for j, id := range ids {
		if mask[j] == 0 {
			continue
		}
		if id < 0 {
			return nil, fmt.Errorf("negative token id %d", id)
		}
		row := (id % l.vocabSize) * l.dim
		for k := 0; k < l.dim; k++ {
			h[k] += l.embedding.Data[row+k]
		}
		count++
	}
	if count > 0 {
		inv := 1.0 / float64(count)
		for k := range h {
			h[k] *= inv
		}
	}
	return h, nil
}

func (l *Linear) dense(h []float64) []float64 {
	out := make([]float64, l.numClasses)
	for c := 0; c < l.numClasses; c++ {
		sum := l.bias.Data[c]
		wStart := c * l.dim
		for k := 0; k < l.dim; k++ {
			sum += l.weight.Data[wStart+k] * h[k]
		}
		out[c] = sum
	}
	return out
}

// backward accumulates d(mean loss)/d(param) into each parameter's Grad.
func (l *Linear) backward(inputIDs, attentionMask [][]int, labels []int, pooled, logits [][]float64) {
	scale := 1.0 / float64(len(inputIDs))
	for i := range inputIDs {
		grad := metrics.Softmax(logits[i])
		grad[labels[i]] -= 1

		dh := make([]float64, l.dim)
		for c := 0; c < l.numClasses; c++ {
			g := grad[c] * scale
			l.bias.Grad[c] += g
			wStart := c * l.dim
			for k := 0; k < l.dim; k++ {
				l.weight.Grad[wStart+k] += g * pooled[i][k]
				dh[k] += g * l.weight.Data[wStart+k]
			}
		}

		count := 0
		for _, m := range attentionMask[i] {
			if m != 0 {
				count++
			}
		}
		if count == 0 {
			continue
		}
		inv := 1.0 / float64(count)
		for j, id := range inputIDs[i] {
			if attentionMask[i][j] == 0 {
				continue
			}
			row := (id % l.vocabSize) * l.dim
			for k := 0; k < l.dim; k++ {
				l.embedding.Grad[row+k] += dh[k] * inv
			}
		}
	}
}

func meanCrossEntropy(logits [][]float64, labels []int) (float64, error) {
	if len(logits) != len(labels) {
		return 0, fmt.Errorf("%w: %d logit rows, %d labels", model.ErrShapeMismatch, len(logits), len(labels))
	}
	if len(labels) == 0 {
		return 0, nil
	}
	total := 0.0
	for i, row := range logits {
		if labels[i] < 0 || labels[i] >= len(row) {
			return 0, fmt.Errorf("%w: label %d with %d classes", ErrLabelRange, labels[i], len(row))
		}
		probs := metrics.Softmax(row)
		total += -math.Log(math.Max(probs[labels[i]], 1e-12))
	}
	return total / float64(len(labels)), nil
}
