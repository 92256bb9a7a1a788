// Package components provides reusable UI components for the TUI and the
// terminal reports.
package components

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/comment-archive/internal/ui/styles"
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	// Ensure minimum dimensions
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// RenderBarChart creates a simple horizontal bar chart of whole counts.
func RenderBarChart(values []float64, labels []string, width int) string {
	if len(values) == 0 {
		return ""
	}

	maxVal := maxOf(values)

	maxLabelLen := 0
	for _, l := range labels {
		if len(l) > maxLabelLen {
			maxLabelLen = len(l)
		}
	}

	barWidth := width - maxLabelLen - 10 // Leave room for label and value
	if barWidth < 10 {
		barWidth = 10
	}

	lines := make([]string, 0, len(values))
	for i, v := range values {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}

		barLen := int((v / maxVal) * float64(barWidth))
		if barLen < 0 {
			barLen = 0
		}

		line := fmt.Sprintf("%*s │%s %.0f", maxLabelLen, label, strings.Repeat("█", barLen), v)
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

// RenderWeeklyPattern shows how activity spreads over the days of the week.
// patterns is indexed by time.Weekday.
func RenderWeeklyPattern(patterns []float64, dayNames []string) string {
	if len(patterns) != 7 {
		padded := make([]float64, 7)
		copy(padded, patterns)
		patterns = padded
	}
	if len(dayNames) != 7 {
		dayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	}

	maxVal := maxOf(patterns)

	parts := make([]string, 0, 7)
	for i, v := range patterns {
		parts = append(parts, fmt.Sprintf("%s %s", dayNames[i], string(sparkChars[sparkIndex(v, maxVal)])))
	}

	return strings.Join(parts, " ")
}

// RenderSparkline creates a compact inline sparkline chart.
func RenderSparkline(values []float64, width int) string {
	if len(values) == 0 {
		return ""
	}

	maxVal := maxOf(values)

	var result strings.Builder
	for _, val := range sample(values, width) {
		result.WriteRune(sparkChars[sparkIndex(val, maxVal)])
	}

	return result.String()
}

// RenderColoredSparkline creates a sparkline colored by how busy each day was
// relative to the busiest day shown.
func RenderColoredSparkline(values []float64, width int) string {
	if len(values) == 0 {
		return ""
	}

	maxVal := maxOf(values)

	var result strings.Builder
	for _, val := range sample(values, width) {
		style := styles.GetActivityStyle((val / maxVal) * 100)
		result.WriteString(style.Render(string(sparkChars[sparkIndex(val, maxVal)])))
	}

	return result.String()
}

// sample picks at most width values spread evenly over values.
func sample(values []float64, width int) []float64 {
	if width <= 0 {
		return nil
	}
	step := float64(len(values)) / float64(width)
	if step < 1 {
		step = 1
	}

	var out []float64
	for i := 0; i < width && int(float64(i)*step) < len(values); i++ {
		out = append(out, values[int(float64(i)*step)])
	}
	return out
}

func sparkIndex(val, maxVal float64) int {
	idx := int((val / maxVal) * float64(len(sparkChars)-1))
	if idx >= len(sparkChars) {
		idx = len(sparkChars) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// maxOf returns the largest value, or 1 when all values are zero.
func maxOf(values []float64) float64 {
	maxVal := 0.0
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}
	return maxVal
}
