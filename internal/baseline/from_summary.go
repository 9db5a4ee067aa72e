package baseline

import (
	"time"

	"github.com/regrada-ai/finetune/internal/report"
)

// FromSummary snapshots a stage summary as a baseline.
func FromSummary(summary report.RunSummary, key, configHash string) Baseline {
	metrics := make(map[string]float64, len(summary.Metrics))
	for k, v := range summary.Metrics {
		metrics[k] = v
	}
	return Baseline{
		Key:        key,
		Stage:      summary.Stage,
		ConfigHash: configHash,
		RunID:      summary.RunID,
		CreatedAt:  time.Now().UTC(),
		Metrics:    metrics,
	}
}
