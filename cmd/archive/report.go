package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/comment-archive/internal/models"
	"github.com/j-veylop/comment-archive/internal/services"
	"github.com/j-veylop/comment-archive/internal/ui/components"
	"github.com/j-veylop/comment-archive/internal/ui/styles"
)

const reportWidth = 60

func row(label, value string) string {
	return styles.LabelStyle.Render(label) + styles.ValueStyle.Render(value)
}

// renderBuildSummary formats a finished build for the terminal.
func renderBuildSummary(result *models.BuildResult) string {
	lines := []string{
		styles.TitleStyle.Render("Build complete"),
		row("Output", result.OutputDir),
	}
	if result.Total > 0 {
		lines = append(lines, row("Range", fmt.Sprintf("%s → %s",
			result.FirstDay.Format(time.DateOnly), result.LastDay.Format(time.DateOnly))))
	}
	lines = append(lines,
		row("Comments", humanize.Comma(int64(result.Total))),
		row("Pages", fmt.Sprintf("%d days, %d months, %d years, %d latest",
			result.Days, result.Months, len(result.Years), result.Latest)),
	)

	if result.SkippedFetch {
		lines = append(lines, row("Fetched", "skipped"))
	} else {
		lines = append(lines, row("Fetched", humanize.Comma(int64(result.Fetched))))
	}
	if result.Shortened > 0 {
		lines = append(lines, row("Shortened", humanize.Comma(int64(result.Shortened))))
	}
	if result.ExportPath != "" {
		lines = append(lines, row("Export", result.ExportPath))
	}
	if result.Published > 0 {
		lines = append(lines, row("Published", fmt.Sprintf("%d objects", result.Published)))
	}
	lines = append(lines, row("Took", result.Duration().Round(time.Millisecond).String()))

	return styles.CardStyle.Render(strings.Join(lines, "\n"))
}

// renderStats formats archive statistics for the terminal.
func renderStats(stats *services.Stats, days int) string {
	if stats.Total == 0 {
		return styles.HelpStyle.Render("The archive is empty. Run `archive build` first.")
	}

	sections := []string{
		styles.CardStyle.Render(strings.Join([]string{
			styles.TitleStyle.Render("Comment archive"),
			row("Comments", humanize.Comma(int64(stats.Total))),
			row("First day", stats.First.Format(time.DateOnly)+" ("+humanize.Time(stats.First)+")"),
			row("Last day", stats.Last.Format(time.DateOnly)),
			row("Months", fmt.Sprintf("%d", len(stats.Months))),
			row("Busiest", busiestMonth(stats.Months)),
		}, "\n")),
		renderYears(stats.Years),
		renderRecent(stats.Recent, days),
	}
	if len(stats.Runs) > 0 {
		sections = append(sections, renderRuns(stats.Runs))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func busiestMonth(months []models.MonthCount) string {
	best := -1
	for i, m := range months {
		if best < 0 || m.Count > months[best].Count {
			best = i
		}
	}
	if best < 0 {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", months[best].Label(), humanize.Comma(int64(months[best].Count)))
}

func renderYears(years []models.YearCount) string {
	values := make([]float64, len(years))
	labels := make([]string, len(years))
	for i, y := range years {
		values[i] = float64(y.Count)
		labels[i] = y.Label()
	}

	return styles.SubTitleStyle.Render("Per year") + "\n" + components.RenderBarChart(values, labels, reportWidth) + "\n"
}

func renderRecent(recent []models.DateCount, days int) string {
	values := make([]float64, len(recent))
	var byWeekday [7]float64
	total := 0
	for i, d := range recent {
		values[i] = float64(d.Count)
		byWeekday[d.Date.Weekday()] += float64(d.Count)
		total += d.Count
	}

	lines := []string{
		styles.SubTitleStyle.Render(fmt.Sprintf("Last %d days", days)),
		components.RenderColoredSparkline(values, len(values)),
		styles.HelpStyle.Render(fmt.Sprintf("%s comments, %.1f per day", humanize.Comma(int64(total)), perDay(total, len(recent)))),
		components.RenderWeeklyPattern(byWeekday[:], nil),
	}
	return strings.Join(lines, "\n") + "\n"
}

func perDay(total, days int) float64 {
	if days == 0 {
		return 0
	}
	return float64(total) / float64(days)
}

func renderRuns(runs []models.BuildRun) string {
	lines := []string{styles.SubTitleStyle.Render("Recent builds")}
	for _, run := range runs {
		status := "ok"
		if !run.Succeeded() {
			status = "failed: " + run.Error
		}
		line := fmt.Sprintf("%s  %8s  %s comments  %s",
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.Duration.Round(time.Millisecond),
			humanize.Comma(int64(run.Total)),
			status,
		)
		lines = append(lines, styles.GetRunStyle(run.Succeeded()).Render(line))
	}
	return strings.Join(lines, "\n")
}
