package diff

import (
	"sort"
	"strings"
)

// DiffResult compares one stage's metrics with its baseline.
type DiffResult struct {
	MetricDelta map[string]float64 `json:"metric_delta"`
	Added       []string           `json:"added,omitempty"`
	Removed     []string           `json:"removed,omitempty"`
}

// Diff returns current minus base for every metric present in both.
func Diff(current, base map[string]float64) map[string]float64 {
	delta := make(map[string]float64)
	for name, value := range current {
		if prev, ok := base[name]; ok {
			delta[name] = value - prev
		}
	}
	return delta
}

// Compare is Diff plus the metric names present on only one side.
func Compare(current, base map[string]float64) DiffResult {
	res := DiffResult{MetricDelta: Diff(current, base)}
	for name := range current {
		if _, ok := base[name]; !ok {
			res.Added = append(res.Added, name)
		}
	}
	for name := range base {
		if _, ok := current[name]; !ok {
			res.Removed = append(res.Removed, name)
		}
	}
	sort.Strings(res.Added)
	sort.Strings(res.Removed)
	return res
}

// LowerIsBetter reports whether a metric improves as it falls; losses do.
func LowerIsBetter(metric string) bool {
	return strings.HasSuffix(metric, "_loss")
}

// Degradation turns a delta into how much worse the metric got. Negative
// values are improvements.
func Degradation(metric string, delta float64) float64 {
	if LowerIsBetter(metric) {
		return delta
	}
	return -delta
}
