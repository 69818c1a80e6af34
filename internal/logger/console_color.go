package logger

import (
	"fmt"

	"github.com/fatih/color"
)

// colorScheme defines consistent colors for different metric types.
// Green: success/positive metrics
// Red: failure/error metrics
// Yellow: warning/threshold metrics
// Cyan: labels and identifiers
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
}

// newColorScheme creates the standard color scheme for metrics.
func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
	}
}

// formatColorizedMetric formats a single metric with colorized label and value.
// Label is colored cyan, value is colored based on the metric type and value.
// Format: "label: value"
func formatColorizedMetric(label string, value interface{}, scheme *colorScheme) string {
	labelColored := scheme.label.Sprint(label)
	valueColored := scheme.value.Sprintf("%v", value)
	return fmt.Sprintf("%s: %s", labelColored, valueColored)
}

// formatStatusCount colors a status-breakdown count by the status it
// belongs to (GREEN/YELLOW/RED/FAILED), matching models.StatusGreen et al.
func formatStatusCount(status string, count int, scheme *colorScheme) string {
	if count == 0 {
		return formatColorizedMetric(status, count, scheme)
	}
	switch status {
	case "GREEN":
		return fmt.Sprintf("%s: %s", scheme.label.Sprint(status), scheme.success.Sprintf("%d", count))
	case "YELLOW":
		return fmt.Sprintf("%s: %s", scheme.label.Sprint(status), scheme.warn.Sprintf("%d", count))
	case "RED", "FAILED":
		return fmt.Sprintf("%s: %s", scheme.label.Sprint(status), scheme.fail.Sprintf("%d", count))
	default:
		return formatColorizedMetric(status, count, scheme)
	}
}

// formatCost colors a dollar amount, flagging anything above the warn
// threshold (matching the teacher's high-cost-per-task heuristic).
func formatCost(cost float64, scheme *colorScheme) string {
	costStr := fmt.Sprintf("$%.4f", cost)
	const warnThreshold = 0.10
	if cost > warnThreshold {
		return fmt.Sprintf("%s: %s", scheme.warn.Sprint("cost"), scheme.warn.Sprint(costStr))
	}
	return formatColorizedMetric("cost", costStr, scheme)
}
