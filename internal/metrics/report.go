package metrics

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// PositiveClass is the label whose statistics are reported for binary tasks.
const PositiveClass = "1"

// ErrMissingPositiveClass is returned when the true labels hold no example of
// the positive class, so its precision/recall/F1 are undefined.
var ErrMissingPositiveClass = errors.New("missing positive-class statistics")

// ClassStats holds per-class (or averaged) statistics.
type ClassStats struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1Score   float64 `json:"f1-score"`
	Support   int     `json:"support"`
}

// Report is a classification report over true vs. predicted labels.
type Report struct {
	Classes     map[string]ClassStats `json:"classes"`
	Labels      []string              `json:"labels"`
	Accuracy    float64               `json:"accuracy"`
	MacroAvg    ClassStats            `json:"macro avg"`
	WeightedAvg ClassStats            `json:"weighted avg"`
}

// BuildReport computes per-class and aggregate statistics over the union of
// labels seen in truth and predictions. Undefined ratios are reported as 0.
func BuildReport(truth, pred []int) (Report, error) {
	if len(truth) != len(pred) {
		return Report{}, fmt.Errorf("report: %d true labels, %d predictions", len(truth), len(pred))
	}

	seen := make(map[int]bool)
	for i := range truth {
		seen[truth[i]] = true
		seen[pred[i]] = true
	}
	labels := make([]int, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	tp := make(map[int]int)
	fp := make(map[int]int)
	fn := make(map[int]int)
	correct := 0
	for i := range truth {
		if truth[i] == pred[i] {
			tp[truth[i]]++
			correct++
			continue
		}
		fp[pred[i]]++
		fn[truth[i]]++
	}

	rep := Report{
		Classes: make(map[string]ClassStats, len(labels)),
		Labels:  make([]string, 0, len(labels)),
	}
	total := len(truth)
	if total > 0 {
		rep.Accuracy = float64(correct) / float64(total)
	}

	var macro, weighted ClassStats
	for _, l := range labels {
		stats := ClassStats{
			Precision: ratio(tp[l], tp[l]+fp[l]),
			Recall:    ratio(tp[l], tp[l]+fn[l]),
			Support:   tp[l] + fn[l],
		}
		if stats.Precision+stats.Recall > 0 {
			stats.F1Score = 2 * stats.Precision * stats.Recall / (stats.Precision + stats.Recall)
		}
		key := strconv.Itoa(l)
		rep.Classes[key] = stats
		rep.Labels = append(rep.Labels, key)

		macro.Precision += stats.Precision
		macro.Recall += stats.Recall
		macro.F1Score += stats.F1Score
		w := float64(stats.Support)
		weighted.Precision += stats.Precision * w
		weighted.Recall += stats.Recall * w
		weighted.F1Score += stats.F1Score * w
	}

	if n := float64(len(labels)); n > 0 {
		macro.Precision /= n
		macro.Recall /= n
		macro.F1Score /= n
	}
	if total > 0 {
		weighted.Precision /= float64(total)
		weighted.Recall /= float64(total)
		weighted.F1Score /= float64(total)
	}
	macro.Support = total
	weighted.Support = total
	rep.MacroAvg = macro
	rep.WeightedAvg = weighted
	return rep, nil
}

// Class looks up the statistics of one label.
func (r Report) Class(label string) (ClassStats, bool) {
	stats, ok := r.Classes[label]
	return stats, ok
}

// Positive returns the positive-class statistics. It fails when the class has
// no support among the true labels.
func (r Report) Positive() (ClassStats, error) {
	stats, ok := r.Class(PositiveClass)
	if !ok || stats.Support == 0 {
		return ClassStats{}, ErrMissingPositiveClass
	}
	return stats, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
