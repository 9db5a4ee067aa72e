package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	current := map[string]float64{"val_loss": 0.4, "val_accuracy": 0.9, "val_recall": 1}
	base := map[string]float64{"val_loss": 0.5, "val_accuracy": 0.8, "val_precision": 0.7}

	delta := Diff(current, base)
	assert.Len(t, delta, 2)
	assert.InDelta(t, -0.1, delta["val_loss"], 1e-9)
	assert.InDelta(t, 0.1, delta["val_accuracy"], 1e-9)

	res := Compare(current, base)
	assert.Equal(t, []string{"val_recall"}, res.Added)
	assert.Equal(t, []string{"val_precision"}, res.Removed)
}

func TestDegradation(t *testing.T) {
	assert.True(t, LowerIsBetter("train_loss"))
	assert.False(t, LowerIsBetter("test_f1_score"))
	assert.InDelta(t, 0.2, Degradation("val_loss", 0.2), 1e-12)
	assert.InDelta(t, 0.2, Degradation("val_accuracy", -0.2), 1e-12)
}
