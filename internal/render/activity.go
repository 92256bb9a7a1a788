package render

import (
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/comment-archive/internal/models"
)

// ActivitySeries returns the counts of the n most recent days in
// chronological order. days must be newest first.
func ActivitySeries(days []models.DateCount, n int) []float64 {
	if n > len(days) {
		n = len(days)
	}
	series := make([]float64, n)
	for i := 0; i < n; i++ {
		series[n-1-i] = float64(days[i].Count)
	}
	return series
}

// ActivityGraph plots the n most recent days as a plain ASCII line graph.
// It returns an empty string when there is nothing worth plotting.
func ActivityGraph(days []models.DateCount, n, width, height int) string {
	series := ActivitySeries(days, n)
	if len(series) < 2 || flat(series) {
		return ""
	}

	return asciigraph.Plot(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption("comments per day"),
	)
}

func flat(series []float64) bool {
	for _, v := range series[1:] {
		if v != series[0] {
			return false
		}
	}
	return true
}
