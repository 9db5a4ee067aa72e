package report

import (
	"sort"

	"github.com/regrada-ai/finetune/internal/policy"
	"github.com/regrada-ai/finetune/internal/runner"
)

// RunSummary is everything reported for one command run. NewMetrics and
// DroppedMetrics name metrics present on only one side of the baseline
// comparison.
type RunSummary struct {
	RunID          string                `json:"run_id"`
	Command        string                `json:"command"`
	Stage          string                `json:"stage"`
	Metrics        map[string]float64    `json:"metrics"`
	Epochs         []runner.EpochSummary `json:"epochs,omitempty"`
	Skipped        int                   `json:"skipped"`
	Baseline       string                `json:"baseline,omitempty"`
	Delta          map[string]float64    `json:"delta,omitempty"`
	NewMetrics     []string              `json:"new_metrics,omitempty"`
	DroppedMetrics []string              `json:"dropped_metrics,omitempty"`
	Outcomes       []policy.Outcome      `json:"-"`
	Violations     []policy.Violation    `json:"violations,omitempty"`
}

const (
	StatusPassed = "passed"
	StatusWarned = "warned"
	StatusFailed = "failed"
)

// Status is the worst violation severity as a word.
func (s RunSummary) Status() string {
	status := StatusPassed
	for _, v := range s.Violations {
		switch v.Severity {
		case policy.SeverityError:
			return StatusFailed
		case policy.SeverityWarn:
			status = StatusWarned
		}
	}
	return status
}

// MetricNames returns the metric keys in sorted order.
func (s RunSummary) MetricNames() []string {
	names := make([]string, 0, len(s.Metrics))
	for k := range s.Metrics {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SortedViolations orders errors before warnings, then by policy id.
func SortedViolations(violations []policy.Violation) []policy.Violation {
	out := append([]policy.Violation(nil), violations...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity == out[j].Severity {
			return out[i].PolicyID < out[j].PolicyID
		}
		return severityRank(out[i].Severity) < severityRank(out[j].Severity)
	})
	return out
}

func severityRank(severity string) int {
	switch severity {
	case policy.SeverityError:
		return 0
	case policy.SeverityWarn:
		return 1
	default:
		return 2
	}
}
