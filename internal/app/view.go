package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/comment-archive/internal/models"
	"github.com/j-veylop/comment-archive/internal/ui/components"
	"github.com/j-veylop/comment-archive/internal/ui/styles"
)

// sideBySideWidth is the narrowest terminal that fits the summary and the
// run history next to each other.
const sideBySideWidth = 100

// View renders the application UI.
func (m *Model) View() string {
	var b strings.Builder

	if m.width > 0 {
		b.WriteString(m.renderHeader())
		b.WriteString("\n")
	}

	if !m.ready {
		b.WriteString(m.styles.Content.Render(m.spinner.View() + " Loading..."))
		return b.String()
	}

	b.WriteString(m.styles.Content.Render(m.renderBody()))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keymap))

	mainView := b.String()

	if m.showHelp {
		mainView = m.overlayCentered(mainView, m.renderHelp())
	}

	return m.overlayToasts(mainView, m.renderNotifications())
}

func (m *Model) renderHeader() string {
	title := m.styles.Header.Render("Comment Archive")
	subtitle := ""
	if m.outputDir != "" {
		subtitle = m.styles.Subtle.Render("  watching " + m.outputDir)
	}
	return lipgloss.NewStyle().Width(m.width).Render(title + subtitle)
}

func (m *Model) renderBody() string {
	summary := m.styles.Card.Render(m.renderStatus() + "\n\n" + m.renderLastBuild())
	runs := m.styles.Card.Render(m.renderRuns())

	var top string
	if m.width >= sideBySideWidth {
		top = lipgloss.JoinHorizontal(lipgloss.Top, summary, " ", runs)
	} else {
		top = lipgloss.JoinVertical(lipgloss.Left, summary, runs)
	}

	return lipgloss.JoinVertical(lipgloss.Left, top, m.styles.Card.Render(m.renderActivity()))
}

func (m *Model) renderStatus() string {
	if m.state.IsBuilding() {
		return m.spinner.ViewWithLabel()
	}

	if err := m.state.GetLastError(); err != nil {
		return m.styles.Error.Render("Last build failed: " + err.Error())
	}

	updated := m.state.GetLastUpdated()
	if updated.IsZero() {
		return m.styles.Subtle.Render("Idle")
	}
	return m.styles.Success.Render("Idle") + m.styles.Subtle.Render(" · updated "+humanize.Time(updated))
}

func (m *Model) row(label, value string) string {
	return m.styles.Label.Render(label) + m.styles.Value.Render(value)
}

func (m *Model) renderLastBuild() string {
	result := m.state.GetLastResult()
	if result == nil {
		return m.styles.Title.Render("Last build") + "\n" + m.styles.Subtle.Render("No build yet this session")
	}

	lines := []string{
		m.styles.Title.Render("Last build"),
		m.row("Range", fmt.Sprintf("%s → %s", result.FirstDay.Format(time.DateOnly), result.LastDay.Format(time.DateOnly))),
		m.row("Comments", humanize.Comma(int64(result.Total))),
		m.row("Pages", fmt.Sprintf("%d days, %d months, %d years", result.Days, result.Months, len(result.Years))),
		m.row("Fetched", humanize.Comma(int64(result.Fetched))),
		m.row("Shortened", humanize.Comma(int64(result.Shortened))),
		m.row("Took", result.Duration().Round(time.Millisecond).String()),
		m.row("Output", result.OutputDir),
	}
	if result.ExportPath != "" {
		lines = append(lines, m.row("Export", result.ExportPath))
	}
	if result.Published > 0 {
		lines = append(lines, m.row("Published", fmt.Sprintf("%d objects", result.Published)))
	}

	return strings.Join(lines, "\n")
}

func (m *Model) renderRuns() string {
	runs := m.state.GetRuns()
	lines := []string{m.styles.Title.Render("Recent builds")}
	if len(runs) == 0 {
		return strings.Join(append(lines, m.styles.Subtle.Render("No builds recorded")), "\n")
	}

	header := fmt.Sprintf("%-12s %-7s %8s %8s %7s", "Started", "Status", "Took", "Total", "Fetched")
	lines = append(lines, styles.TableHeaderStyle.Render(header))

	for _, run := range runs {
		status := "ok"
		if !run.Succeeded() {
			status = "failed"
		}
		if run.Forced {
			status += "*"
		}
		line := fmt.Sprintf("%-12s %-7s %8s %8s %7d",
			run.StartedAt.Local().Format("Jan 02 15:04"),
			status,
			run.Duration.Round(time.Millisecond),
			humanize.Comma(int64(run.Total)),
			run.Fetched,
		)
		lines = append(lines, styles.GetRunStyle(run.Succeeded()).Render(line))
	}
	lines = append(lines, m.styles.Subtle.Render("* full refetch"))

	return strings.Join(lines, "\n")
}

func (m *Model) renderActivity() string {
	title := m.styles.Title.Render(fmt.Sprintf("Activity, last %d days", ActivityDays))

	stats := m.state.GetStats()
	if stats == nil || len(stats.Recent) == 0 {
		return title + "\n" + m.styles.Subtle.Render("No comments archived yet")
	}

	values := countsOf(stats.Recent)
	width := max(m.width-20, 20)

	lines := []string{
		title,
		components.RenderLineChart(values, width, 8, "comments per day"),
		"",
		components.RenderColoredSparkline(values, len(values)),
		m.styles.Subtle.Render(fmt.Sprintf("%s comments since %s",
			humanize.Comma(int64(stats.Total)), stats.First.Format(time.DateOnly))),
	}
	return strings.Join(lines, "\n")
}

func countsOf(days []models.DateCount) []float64 {
	values := make([]float64, len(days))
	for i, d := range days {
		values[i] = float64(d.Count)
	}
	return values
}

func (m *Model) renderHelp() string {
	lines := []string{
		styles.TitleStyle.Render("Keyboard Shortcuts"),
		m.help.FullHelpView(m.keymap.FullHelp()),
		"",
		m.styles.Subtle.Render("Builds run one at a time; requests made during a build are merged."),
		m.styles.Subtle.Render("Press ? or Esc to close"),
	}
	return styles.HelpPanelStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderNotifications() []string {
	notifications := m.state.GetNotifications()
	if len(notifications) == 0 {
		return nil
	}

	toasts := make([]string, 0, len(notifications))
	for _, n := range notifications {
		var style lipgloss.Style
		var prefix string

		switch n.Type {
		case NotificationSuccess:
			style = m.styles.NotificationSuccess
			prefix = "[OK]"
		case NotificationError:
			style = m.styles.NotificationError
			prefix = "[ERR]"
		case NotificationWarning:
			style = m.styles.NotificationWarning
			prefix = "[WARN]"
		case NotificationInfo:
			style = m.styles.NotificationInfo
			prefix = "[INFO]"
		case NotificationLoading:
			style = m.styles.NotificationInfo
			prefix = m.spinner.View()
		}

		toasts = append(toasts, m.styles.Toast.Render(style.Render(prefix+" "+n.Message)))
	}

	return toasts
}
