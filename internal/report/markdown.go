package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func WriteMarkdown(summary RunSummary, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(RenderMarkdown(summary)), 0o644)
}

func RenderMarkdown(summary RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Fine-tune Report: %s\n\n", summary.Stage)
	fmt.Fprintf(&b, "Run: `%s` | Command: %s | Status: **%s** | Skipped batches: %d\n\n",
		summary.RunID, summary.Command, summary.Status(), summary.Skipped)

	b.WriteString("## Metrics\n\n")
	if len(summary.Metrics) == 0 {
		b.WriteString("- None\n")
	} else {
		b.WriteString("| Metric | Value | Δ baseline |\n|---|---|---|\n")
		for _, name := range summary.MetricNames() {
			fmt.Fprintf(&b, "| %s | %.4f | %s |\n", name, summary.Metrics[name], formatDelta(summary.Delta, name))
		}
	}
	b.WriteString("\n")
	if len(summary.NewMetrics) > 0 {
		fmt.Fprintf(&b, "Not in baseline: %s\n\n", strings.Join(summary.NewMetrics, ", "))
	}
	if len(summary.DroppedMetrics) > 0 {
		fmt.Fprintf(&b, "Missing from this run: %s\n\n", strings.Join(summary.DroppedMetrics, ", "))
	}

	if len(summary.Epochs) > 0 {
		b.WriteString("## Epochs\n\n")
		for _, e := range summary.Epochs {
			parts := make([]string, 0, len(e.Metrics))
			for _, k := range e.Metrics.Keys() {
				parts = append(parts, fmt.Sprintf("%s=%.4f", k, e.Metrics[k]))
			}
			fmt.Fprintf(&b, "- epoch %d: %s\n", e.Epoch, strings.Join(parts, " "))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Violations\n\n")
	violations := SortedViolations(summary.Violations)
	if len(violations) == 0 {
		b.WriteString("- None\n")
	} else {
		for _, v := range violations {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", v.Severity, v.PolicyID, v.Message)
		}
	}
	return b.String()
}

func formatDelta(delta map[string]float64, name string) string {
	d, ok := delta[name]
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%+.4f", d)
}
