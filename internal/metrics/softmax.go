package metrics

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrLogitShape is returned for empty or ragged logit matrices.
var ErrLogitShape = errors.New("invalid logits shape")

// Softmax normalizes one row of logits into a probability distribution.
func Softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := logits[0]
	for _, v := range logits {
		if v > maxLogit {
			maxLogit = v
		}
	}
	sum := 0.0
	out := make([]float64, len(logits))
	for i, v := range logits {
		exp := math.Exp(v - maxLogit)
		out[i] = exp
		sum += exp
	}
	inv := 1.0 / sum
	for i := range out {
		out[i] *= inv
	}
	return out
}

// Argmax returns the index of the largest value, the first one on ties.
func Argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

// Predict applies softmax along the class axis of a batch x classes matrix
// and returns the most probable class per row.
func Predict(logits [][]float64) ([]int, error) {
	if len(logits) == 0 {
		return []int{}, nil
	}
	width := len(logits[0])
	if width == 0 {
		return nil, fmt.Errorf("%w: zero classes", ErrLogitShape)
	}
	preds := make([]int, len(logits))
	for i, row := range logits {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d classes, expected %d", ErrLogitShape, i, len(row), width)
		}
		preds[i] = Argmax(Softmax(row))
	}
	return preds, nil
}

// Round rounds the exact binary value of v to the given number of decimal
// places, ties to even.
func Round(v float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// Round2 rounds to two decimal places, the precision every reported metric uses.
func Round2(v float64) float64 {
	return Round(v, 2)
}
