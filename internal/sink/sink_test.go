package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestEpochAggregator(t *testing.T) {
	t.Run("averages on_epoch values and resets", func(t *testing.T) {
		agg := NewEpochAggregator()
		agg.LogDict(Metrics{"val_loss": 0.5, "val_accuracy": 1.0}, Options{OnEpoch: true})
		agg.LogDict(Metrics{"val_loss": 0.3, "val_accuracy": 0.5}, Options{OnEpoch: true})

		epoch := agg.EpochEnd()
		assert.InDelta(t, 0.4, epoch["val_loss"], 1e-9)
		assert.InDelta(t, 0.75, epoch["val_accuracy"], 1e-9)

		assert.Empty(t, agg.EpochEnd())
	})

	t.Run("ignores values not aggregated per epoch", func(t *testing.T) {
		agg := NewEpochAggregator()
		agg.LogDict(Metrics{"train_loss": 1.2}, Options{ProgBar: true})

		assert.Empty(t, agg.EpochEnd())
	})
}

func TestTee(t *testing.T) {
	a := NewEpochAggregator()
	b := NewEpochAggregator()
	Tee{a, Discard{}, b}.LogDict(Metrics{"x": 1}, Options{OnEpoch: true})

	assert.Equal(t, Metrics{"x": 1}, a.EpochEnd())
	assert.Equal(t, Metrics{"x": 1}, b.EpochEnd())
}

func TestZapSink(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := NewZapSink(zap.New(core))

	s.LogDict(Metrics{"train_loss": 0.42}, Options{OnEpoch: true})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "metrics", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, 0.42, fields["train_loss"])
	assert.Equal(t, true, fields["on_epoch"])
	assert.Equal(t, false, fields["prog_bar"])
}

func TestMetricsKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Metrics{"c": 1, "a": 2, "b": 3}.Keys())
}
