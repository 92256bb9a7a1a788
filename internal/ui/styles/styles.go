// Package styles defines the visual styling for the application.
package styles

import "github.com/charmbracelet/lipgloss"

// Color definitions for the archive theme.
var (
	// Primary colors
	Primary   = lipgloss.Color("205") // Pink
	Secondary = lipgloss.Color("63")  // Purple
	Subtle    = lipgloss.Color("240") // Gray

	// Status colors
	Success = lipgloss.Color("42")  // Green
	Error   = lipgloss.Color("196") // Red
	Warning = lipgloss.Color("220") // Yellow
	Info    = lipgloss.Color("39")  // Blue

	// Background and text colors
	BgDark        = lipgloss.Color("235")
	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")

	// ToastStyle for floating notifications.
	ToastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1).
			MarginBottom(1)
)

// TitleStyle is used for main headings.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// SubTitleStyle is used for section headings.
var SubTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Secondary).
	MarginBottom(1)

// HeaderStyle styles the top bar of the watch screen.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("229")).
	Background(Primary).
	Padding(0, 2)

// CardStyle creates a bordered card container.
var CardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Subtle).
	Padding(1, 2).
	MarginBottom(1)

// CardTitleStyle styles card headers.
var CardTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// LabelStyle styles the left column of key/value rows.
var LabelStyle = lipgloss.NewStyle().
	Foreground(TextSecondary).
	Width(14)

// ValueStyle styles the right column of key/value rows.
var ValueStyle = lipgloss.NewStyle().
	Foreground(TextPrimary).
	Bold(true)

// HelpStyle is the base style for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(TextMuted)

// HelpKeyStyle styles keyboard shortcut keys.
var HelpKeyStyle = lipgloss.NewStyle().
	Foreground(Primary).
	Bold(true)

// HelpDescStyle styles help descriptions.
var HelpDescStyle = lipgloss.NewStyle().
	Foreground(TextSecondary)

// HelpSeparatorStyle styles separators in help text.
var HelpSeparatorStyle = lipgloss.NewStyle().
	Foreground(Subtle)

// HelpPanelStyle creates the help overlay panel.
var HelpPanelStyle = lipgloss.NewStyle().
	Border(lipgloss.DoubleBorder()).
	BorderForeground(Primary).
	Padding(1, 3).
	Background(BgDark)

// TableHeaderStyle styles table headers.
var TableHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	BorderStyle(lipgloss.NormalBorder()).
	BorderBottom(true).
	BorderForeground(Subtle)

// ActivityHighStyle for the busiest days.
var ActivityHighStyle = lipgloss.NewStyle().
	Foreground(Error)

// ActivityMediumStyle for moderately busy days.
var ActivityMediumStyle = lipgloss.NewStyle().
	Foreground(Warning)

// ActivityLowStyle for quiet days.
var ActivityLowStyle = lipgloss.NewStyle().
	Foreground(Success)

// ActivityNoneStyle for days without comments.
var ActivityNoneStyle = lipgloss.NewStyle().
	Foreground(Subtle)

// ErrorTextStyle for error messages.
var ErrorTextStyle = lipgloss.NewStyle().
	Foreground(Error)

// SuccessTextStyle for success messages.
var SuccessTextStyle = lipgloss.NewStyle().
	Foreground(Success)

// GetActivityStyle returns the style for a day whose count is percent of the
// busiest day in view.
func GetActivityStyle(percent float64) lipgloss.Style {
	switch {
	case percent <= 0:
		return ActivityNoneStyle
	case percent > 66:
		return ActivityHighStyle
	case percent > 33:
		return ActivityMediumStyle
	default:
		return ActivityLowStyle
	}
}

// GetRunStyle returns the style for a build run outcome.
func GetRunStyle(succeeded bool) lipgloss.Style {
	if succeeded {
		return SuccessTextStyle
	}
	return ErrorTextStyle
}

// CenterBoth centers content both horizontally and vertically.
func CenterBoth(content string, width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center).
		AlignVertical(lipgloss.Center).
		Render(content)
}
