package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoftmax(t *testing.T) {
	probs := Softmax([]float64{2.0, 0.1})
	require.Len(t, probs, 2)
	assert.InDelta(t, 1.0, probs[0]+probs[1], 1e-12)
	assert.Greater(t, probs[0], probs[1])

	large := Softmax([]float64{1000, 1001})
	assert.InDelta(t, 1.0, large[0]+large[1], 1e-12)
	assert.Nil(t, Softmax(nil))
}

func TestPredict(t *testing.T) {
	t.Run("argmax per row", func(t *testing.T) {
		preds, err := Predict([][]float64{{2.0, 0.1}, {0.3, 0.9}, {0.5, 0.5}})
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 0}, preds)
	})

	t.Run("ragged rows", func(t *testing.T) {
		_, err := Predict([][]float64{{1, 2}, {1}})
		assert.ErrorIs(t, err, ErrLogitShape)
	})

	t.Run("zero classes", func(t *testing.T) {
		_, err := Predict([][]float64{{}})
		assert.ErrorIs(t, err, ErrLogitShape)
	})
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 0.67, Round2(2.0/3.0))
	assert.Equal(t, 0.8, Round2(0.7999999999))
	assert.Equal(t, 1.23, Round2(1.2345))
	assert.Equal(t, Round2(0.125), Round2(Round2(0.125)))

	t.Run("exact halves round to even", func(t *testing.T) {
		assert.Equal(t, 0.12, Round2(0.125))
		assert.Equal(t, 0.62, Round2(0.625))
		assert.Equal(t, 0.38, Round2(0.375))
		assert.Equal(t, 0.62, Round2(10.0/16.0))
	})

	t.Run("non-finite values pass through", func(t *testing.T) {
		assert.True(t, math.IsNaN(Round2(math.NaN())))
		assert.True(t, math.IsInf(Round2(math.Inf(1)), 1))
	})
}
