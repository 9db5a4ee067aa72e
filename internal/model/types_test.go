package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchValidate(t *testing.T) {
	t.Run("well formed", func(t *testing.T) {
		b := Batch{
			InputIDs:      [][]int{{1, 2}, {3, 0}},
			AttentionMask: [][]int{{1, 1}, {1, 0}},
			Labels:        []int{0, 1},
		}
		assert.NoError(t, b.Validate())
	})

	t.Run("label count differs", func(t *testing.T) {
		b := Batch{
			InputIDs:      [][]int{{1}, {2}},
			AttentionMask: [][]int{{1}, {1}},
			Labels:        []int{0},
		}
		assert.ErrorIs(t, b.Validate(), ErrShapeMismatch)
	})

	t.Run("mask row length differs", func(t *testing.T) {
		b := Batch{
			InputIDs:      [][]int{{1, 2}},
			AttentionMask: [][]int{{1}},
			Labels:        []int{0},
		}
		assert.ErrorIs(t, b.Validate(), ErrShapeMismatch)
	})
}

func TestPredictBatchValidate(t *testing.T) {
	b := Batch{
		InputIDs:      [][]int{{5, 6}},
		AttentionMask: [][]int{{1, 1}},
		Labels:        []int{1},
	}
	in := b.Inputs()
	require.NoError(t, in.Validate())
	assert.Equal(t, b.InputIDs, in.InputIDs)

	bad := PredictBatch{InputIDs: [][]int{{1}}, AttentionMask: nil}
	assert.ErrorIs(t, bad.Validate(), ErrShapeMismatch)
}

func TestParameterZeroGrad(t *testing.T) {
	p := NewParameter("w", 2, 3)
	assert.Len(t, p.Data, 6)
	assert.Equal(t, []int{2, 3}, p.Shape)

	p.Grad[4] = 1.5
	p.ZeroGrad()
	assert.Equal(t, make([]float64, 6), p.Grad)
}
