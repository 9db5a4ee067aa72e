package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/regrada-ai/finetune/internal/policy"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

// RenderTerminal prints a metrics table and the policy verdict.
func RenderTerminal(w io.Writer, summary RunSummary) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("finetune %s (%s)", summary.Command, summary.Stage)))
	fmt.Fprintln(w, dimStyle.Render("run "+summary.RunID))
	fmt.Fprintln(w)

	if len(summary.Metrics) > 0 {
		headers := []string{"metric", "value"}
		if summary.Baseline != "" {
			headers = append(headers, "Δ "+summary.Baseline)
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(dimStyle).
			Headers(headers...).
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})
		for _, name := range summary.MetricNames() {
			cells := []string{name, fmt.Sprintf("%.4f", summary.Metrics[name])}
			if summary.Baseline != "" {
				cells = append(cells, formatDelta(summary.Delta, name))
			}
			t.Row(cells...)
		}
		fmt.Fprintln(w, t.Render())
	}

	if len(summary.NewMetrics) > 0 {
		fmt.Fprintln(w, dimStyle.Render("not in baseline: "+strings.Join(summary.NewMetrics, ", ")))
	}
	if len(summary.DroppedMetrics) > 0 {
		fmt.Fprintf(w, "%s missing from this run: %s\n", warnStyle.Render("⚠"), strings.Join(summary.DroppedMetrics, ", "))
	}

	if summary.Skipped > 0 {
		fmt.Fprintf(w, "%s %d batch(es) skipped\n", warnStyle.Render("⚠"), summary.Skipped)
	}

	violations := SortedViolations(summary.Violations)
	for _, v := range violations {
		style := warnStyle
		if v.Severity == policy.SeverityError {
			style = failStyle
		}
		fmt.Fprintf(w, "%s %s: %s\n", style.Render("✗ "+v.Severity), v.PolicyID, v.Message)
	}

	switch summary.Status() {
	case StatusFailed:
		fmt.Fprintln(w, failStyle.Render("✗ failed"))
	case StatusWarned:
		fmt.Fprintln(w, warnStyle.Render("⚠ passed with warnings"))
	default:
		fmt.Fprintln(w, successStyle.Render("✓ passed"))
	}
}
