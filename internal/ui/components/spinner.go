package components

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/comment-archive/internal/ui/styles"
)

// LoadingSpinner is a labelled spinner that also tracks how long the work it
// represents has been running.
type LoadingSpinner struct {
	started time.Time
	label   string
	style   lipgloss.Style
	spinner spinner.Model
}

// NewSpinner creates a new loading spinner with the given label.
func NewSpinner(label string) LoadingSpinner {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	return LoadingSpinner{
		spinner: s,
		label:   label,
		style:   lipgloss.NewStyle().Foreground(styles.TextSecondary),
	}
}

// Init initializes the spinner model.
func (l LoadingSpinner) Init() tea.Cmd {
	return l.spinner.Tick
}

// Update handles spinner tick messages.
func (l LoadingSpinner) Update(msg tea.Msg) (LoadingSpinner, tea.Cmd) {
	var cmd tea.Cmd
	l.spinner, cmd = l.spinner.Update(msg)
	return l, cmd
}

// Start relabels the spinner and resets its clock to at.
func (l *LoadingSpinner) Start(label string, at time.Time) {
	l.label = label
	l.started = at
}

// Elapsed returns the time since Start, rounded to seconds. It is zero if the
// spinner was never started.
func (l LoadingSpinner) Elapsed(now time.Time) time.Duration {
	if l.started.IsZero() || now.Before(l.started) {
		return 0
	}
	return now.Sub(l.started).Round(time.Second)
}

// View renders the spinner without label.
func (l LoadingSpinner) View() string {
	return l.spinner.View()
}

// ViewWithLabel renders the spinner with its label and, once started, the
// elapsed time.
func (l LoadingSpinner) ViewWithLabel() string {
	text := l.label
	if !l.started.IsZero() {
		text += " " + l.Elapsed(time.Now()).String()
	}
	return l.spinner.View() + " " + l.style.Render(text)
}

// SetLabel updates the spinner's label.
func (l *LoadingSpinner) SetLabel(label string) {
	l.label = label
}

// Label returns the current label.
func (l LoadingSpinner) Label() string {
	return l.label
}

// Spinner returns the underlying spinner model.
func (l LoadingSpinner) Spinner() spinner.Model {
	return l.spinner
}

// Tick returns the tick command for the spinner.
func (l LoadingSpinner) Tick() tea.Cmd {
	return l.spinner.Tick
}

// RenderSpinnerCentered renders a spinner centered in a given width and height.
func RenderSpinnerCentered(s LoadingSpinner, width, height int) string {
	return styles.CenterBoth(s.ViewWithLabel(), width, height)
}
