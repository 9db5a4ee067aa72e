package policy

import (
	"fmt"

	"github.com/regrada-ai/finetune/internal/config"
	"github.com/regrada-ai/finetune/internal/diff"
)

const (
	SeverityError = "error"
	SeverityWarn  = "warn"
)

type Violation struct {
	PolicyID string  `json:"policy_id"`
	Severity string  `json:"severity"`
	Metric   string  `json:"metric"`
	Value    float64 `json:"value"`
	Message  string  `json:"message"`
}

// Outcome is the result of one policy against one run.
type Outcome struct {
	Policy    config.Policy
	Applies   bool
	Violation *Violation
}

// Evaluate checks every policy whose metric is present in current. delta
// holds metric changes against the baseline and may be nil, in which case
// max_drop checks are not applied.
func Evaluate(policies []config.Policy, current, delta map[string]float64) []Outcome {
	outcomes := make([]Outcome, 0, len(policies))
	for _, p := range policies {
		value, ok := current[p.Metric]
		if !ok {
			outcomes = append(outcomes, Outcome{Policy: p})
			continue
		}
		outcomes = append(outcomes, Outcome{
			Policy:    p,
			Applies:   true,
			Violation: evaluatePolicy(p, value, delta),
		})
	}
	return outcomes
}

// Violations extracts the failures from outcomes.
func Violations(outcomes []Outcome) []Violation {
	var out []Violation
	for _, o := range outcomes {
		if o.Violation != nil {
			out = append(out, *o.Violation)
		}
	}
	return out
}

func evaluatePolicy(p config.Policy, value float64, delta map[string]float64) *Violation {
	if p.Min != nil && value < *p.Min {
		return violation(p, value, fmt.Sprintf("%s %.4f below %.4f", p.Metric, value, *p.Min))
	}
	if p.Max != nil && value > *p.Max {
		return violation(p, value, fmt.Sprintf("%s %.4f above %.4f", p.Metric, value, *p.Max))
	}
	if p.MaxDrop != nil && delta != nil {
		if d, ok := delta[p.Metric]; ok {
			if worse := diff.Degradation(p.Metric, d); worse > *p.MaxDrop {
				return violation(p, value, fmt.Sprintf("%s regressed by %.4f (allowed %.4f)", p.Metric, worse, *p.MaxDrop))
			}
		}
	}
	return nil
}

func violation(p config.Policy, value float64, msg string) *Violation {
	severity := p.Severity
	if severity == "" {
		severity = SeverityError
	}
	return &Violation{
		PolicyID: p.ID,
		Severity: severity,
		Metric:   p.Metric,
		Value:    value,
		Message:  msg,
	}
}

// ShouldFail reports whether any violation has a severity listed in failOn.
func ShouldFail(violations []Violation, failOn []config.FailOnSeverity) bool {
	set := make(map[string]bool, len(failOn))
	for _, f := range failOn {
		set[f.Severity] = true
	}
	for _, v := range violations {
		if set[v.Severity] {
			return true
		}
	}
	return false
}
