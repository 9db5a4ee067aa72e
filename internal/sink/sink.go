package sink

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Metrics maps a metric name to its (already rounded) value.
type Metrics map[string]float64

// Options controls how a sink treats emitted values.
type Options struct {
	// ProgBar shows the value in a live progress display.
	ProgBar bool
	// OnEpoch aggregates the value over the current epoch.
	OnEpoch bool
}

// Sink receives metrics from step functions. LogDict must not block.
type Sink interface {
	LogDict(m Metrics, opts Options)
}

// Keys returns metric names in sorted order.
func (m Metrics) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Discard drops everything.
type Discard struct{}

func (Discard) LogDict(Metrics, Options) {}

// Tee fans every emission out to several sinks in order.
type Tee []Sink

func (t Tee) LogDict(m Metrics, opts Options) {
	for _, s := range t {
		s.LogDict(m, opts)
	}
}

// ZapSink writes each emission as one structured debug entry.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger}
}

func (z *ZapSink) LogDict(m Metrics, opts Options) {
	fields := make([]zap.Field, 0, len(m)+2)
	for _, k := range m.Keys() {
		fields = append(fields, zap.Float64(k, m[k]))
	}
	fields = append(fields, zap.Bool("prog_bar", opts.ProgBar), zap.Bool("on_epoch", opts.OnEpoch))
	z.logger.Debug("metrics", fields...)
}

// EpochAggregator averages OnEpoch metrics over an epoch. Metrics logged
// without OnEpoch are not aggregated.
type EpochAggregator struct {
	mu     sync.Mutex
	sums   map[string]float64
	counts map[string]int
}

func NewEpochAggregator() *EpochAggregator {
	return &EpochAggregator{
		sums:   make(map[string]float64),
		counts: make(map[string]int),
	}
}

func (a *EpochAggregator) LogDict(m Metrics, opts Options) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !opts.OnEpoch {
		return
	}
	for k, v := range m {
		a.sums[k] += v
		a.counts[k]++
	}
}

// EpochEnd returns the mean of every metric logged since the previous call
// and resets the window.
func (a *EpochAggregator) EpochEnd() Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(Metrics, len(a.sums))
	for k, sum := range a.sums {
		out[k] = sum / float64(a.counts[k])
	}
	a.sums = make(map[string]float64)
	a.counts = make(map[string]int)
	return out
}
