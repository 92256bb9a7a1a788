// Package app implements the Bubble Tea watch screen: build status, recent
// runs and an activity chart for the archive.
package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/comment-archive/internal/models"
	"github.com/j-veylop/comment-archive/internal/services"
	"github.com/j-veylop/comment-archive/internal/ui/components"
	"github.com/j-veylop/comment-archive/internal/ui/styles"
)

// KeyMap defines the keybindings for the application.
type KeyMap struct {
	Rebuild key.Binding
	Force   key.Binding
	Help    key.Binding
	Quit    key.Binding
	Escape  key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Rebuild: key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "rebuild")),
		Force:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "refetch + rebuild")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Escape:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close help")),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Rebuild, k.Force, k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Rebuild, k.Force},
		{k.Help, k.Escape, k.Quit},
	}
}

// Styles defines the application styles.
type Styles struct {
	// Notification styles
	NotificationSuccess lipgloss.Style
	NotificationError   lipgloss.Style
	NotificationWarning lipgloss.Style
	NotificationInfo    lipgloss.Style

	// Content styles
	Header  lipgloss.Style
	Content lipgloss.Style
	Card    lipgloss.Style
	Toast   lipgloss.Style

	// Common styles
	Title     lipgloss.Style
	Subtle    lipgloss.Style
	Highlight lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
}

// DefaultStyles returns the default application styles.
func DefaultStyles() Styles {
	s := Styles{}
	s.NotificationSuccess = lipgloss.NewStyle().Foreground(styles.Success).Padding(0, 1)
	s.NotificationError = lipgloss.NewStyle().Foreground(styles.Error).Bold(true).Padding(0, 1)
	s.NotificationWarning = lipgloss.NewStyle().Foreground(styles.Warning).Padding(0, 1)
	s.NotificationInfo = lipgloss.NewStyle().Foreground(styles.Info).Padding(0, 1)

	s.Header = styles.HeaderStyle
	s.Content = lipgloss.NewStyle().Padding(1, 2)
	s.Card = styles.CardStyle
	s.Toast = styles.ToastStyle

	s.Title = styles.CardTitleStyle
	s.Subtle = styles.HelpStyle
	s.Highlight = lipgloss.NewStyle().Foreground(styles.Secondary)
	s.Error = styles.ErrorTextStyle
	s.Success = styles.SuccessTextStyle
	s.Label = styles.LabelStyle
	s.Value = styles.ValueStyle

	return s
}

// Model is the watch screen model.
type Model struct {
	archive  Archive
	state    *State
	commands *Commands
	keymap   KeyMap
	styles   Styles

	outputDir string

	// UI components
	help    help.Model
	spinner components.LoadingSpinner

	// Service subscription
	eventChannel chan services.ServiceEvent

	// Window dimensions
	width  int
	height int

	// UI state
	showHelp     bool
	ready        bool
	buildOnStart bool
}

// NewModel creates the watch screen for archive. outputDir is shown in the
// header.
func NewModel(archive Archive, outputDir string) *Model {
	h := help.New()
	h.Styles.ShortKey = styles.HelpKeyStyle
	h.Styles.ShortDesc = styles.HelpDescStyle
	h.Styles.ShortSeparator = styles.HelpSeparatorStyle
	h.Styles.FullKey = styles.HelpKeyStyle
	h.Styles.FullDesc = styles.HelpDescStyle
	h.Styles.FullSeparator = styles.HelpSeparatorStyle

	return &Model{
		archive:   archive,
		state:     NewState(),
		commands:  NewCommands(archive),
		keymap:    DefaultKeyMap(),
		styles:    DefaultStyles(),
		outputDir: outputDir,
		help:      h,
		spinner:   components.NewSpinner("Building"),
	}
}

// SetBuildOnStart makes Init queue a build once the event subscription is in
// place, so the screen sees that build start.
func (m *Model) SetBuildOnStart(v bool) {
	m.buildOnStart = v
}

// GetState returns the application state.
func (m *Model) GetState() *State {
	return m.state
}

// GetCommands returns the commands helper.
func (m *Model) GetCommands() *Commands {
	return m.commands
}

// IsReady returns true if the model is ready (window size received).
func (m *Model) IsReady() bool {
	return m.ready
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick(),
		defaultTickCmd(),
	}

	if m.archive != nil {
		if m.archive.Building() {
			now := time.Now()
			m.state.StartBuild(models.BuildOptions{}, now)
			m.spinner.Start("Building", now)
			m.state.SetLoadingNotification("Building...")
		}
		cmds = append(cmds, subscribeToServicesCmd(m.archive), loadStatsCmd(m.archive))
		if m.buildOnStart {
			cmds = append(cmds, requestBuildCmd(m.archive, models.BuildOptions{}))
		}
	}

	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleWindowSize(msg)
	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyMsg(msg))
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	default:
		cmds = append(cmds, m.handleAppMsg(msg)...)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleAppMsg(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case TickMsg:
		m.state.ClearExpiredNotifications()
		cmds = append(cmds, defaultTickCmd())
	case SubscriptionEventMsg:
		m.eventChannel = msg.Channel
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
	case ServiceEventMsg:
		cmds = append(cmds, m.handleServiceEvent(msg.Event))
		if m.eventChannel != nil {
			cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
		}
	case StatsLoadedMsg:
		if msg.Error != nil {
			cmds = append(cmds, notifyErrorCmd(fmt.Sprintf("Failed to load stats: %v", msg.Error)))
		} else {
			m.state.SetStats(msg.Stats)
		}
	case BuildRequestedMsg:
		if msg.Options.Force {
			cmds = append(cmds, notifyInfoCmd("Full refetch queued"))
		} else {
			cmds = append(cmds, notifyInfoCmd("Rebuild queued"))
		}
	case AddNotificationMsg:
		id := m.state.AddNotification(msg.Type, msg.Message, msg.Duration)
		if msg.Duration > 0 {
			cmds = append(cmds, clearNotificationCmd(id, msg.Duration))
		}
	case RemoveNotificationMsg:
		m.state.RemoveNotification(msg.ID)
	case ClearExpiredNotificationsMsg:
		m.state.ClearExpiredNotifications()
	case ErrorMsg:
		text := msg.Error.Error()
		if msg.Context != "" {
			text = msg.Context + ": " + text
		}
		cmds = append(cmds, notifyErrorCmd(text))
	case ToggleHelpMsg:
		m.showHelp = !m.showHelp
	case QuitMsg:
		cmds = append(cmds, tea.Quit)
	}
	return cmds
}

func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.help.Width = msg.Width
	m.ready = true
}

// handleKeyMsg handles keyboard input.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		return tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp

	case key.Matches(msg, m.keymap.Escape):
		m.showHelp = false

	case key.Matches(msg, m.keymap.Rebuild):
		if m.archive != nil {
			return m.commands.Rebuild()
		}

	case key.Matches(msg, m.keymap.Force):
		if m.archive != nil {
			return m.commands.ForceRebuild()
		}
	}

	return nil
}

func (m *Model) handleServiceEvent(event services.ServiceEvent) tea.Cmd {
	switch e := event.(type) {
	case services.BuildStartedEvent:
		m.state.StartBuild(e.Options, e.StartedAt)
		label := "Building"
		if e.Options.Force {
			label = "Refetching and building"
		}
		m.spinner.Start(label, e.StartedAt)
		m.state.SetLoadingNotification(label + "...")

	case services.BuildCompletedEvent:
		m.state.FinishBuild(e.Result, e.Run, e.Error)
		m.state.ClearLoadingNotification()

		var notify tea.Cmd
		if e.Error != nil {
			notify = notifyErrorCmd(fmt.Sprintf("Build failed: %v", e.Error))
		} else {
			notify = notifySuccessCmd(buildSummary(e.Result))
		}
		if m.archive == nil {
			return notify
		}
		return tea.Batch(notify, loadStatsCmd(m.archive))

	case services.TemplatesChangedEvent:
		return notifyInfoCmd(fmt.Sprintf("Template changed: %s", e.Path))

	case services.PublishedEvent:
		return notifySuccessCmd(fmt.Sprintf("Published %d objects to %s", e.Objects, e.Bucket))

	case services.ErrorEvent:
		return notifyErrorCmd(fmt.Sprintf("[%s] %v", e.Service, e.Error))
	}

	return nil
}

func buildSummary(result *models.BuildResult) string {
	if result == nil {
		return "Build finished"
	}
	return fmt.Sprintf("Built %s days, %s comments in %s",
		humanize.Comma(int64(result.Days)),
		humanize.Comma(int64(result.Total)),
		result.Duration().Round(time.Millisecond))
}

func (m *Model) overlayCentered(mainView string, overlay string) string {
	mainLines := strings.Split(mainView, "\n")
	overlayLines := strings.Split(overlay, "\n")

	overlayHeight := len(overlayLines)
	overlayWidth := lipgloss.Width(overlay)

	y := max((m.height-overlayHeight)/2, 0)
	x := max((m.width-overlayWidth)/2, 0)

	for len(mainLines) < y+overlayHeight {
		mainLines = append(mainLines, "")
	}

	for i, overlayLine := range overlayLines {
		mainLine := mainLines[y+i]

		left := ansi.Truncate(mainLine, x, "")
		right := ansi.TruncateLeft(mainLine, x+overlayWidth, "")

		if lipgloss.Width(left) < x {
			left += strings.Repeat(" ", x-lipgloss.Width(left))
		}

		mainLines[y+i] = left + overlayLine + right
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) overlayToasts(mainView string, toasts []string) string {
	if len(toasts) == 0 {
		return mainView
	}

	toastStack := lipgloss.JoinVertical(lipgloss.Right, toasts...)
	toastLines := strings.Split(toastStack, "\n")
	mainLines := strings.Split(mainView, "\n")

	toastWidth := lipgloss.Width(toastStack)
	startX := max(m.width-toastWidth-2, 0)
	startY := 2

	for i, toastLine := range toastLines {
		lineIdx := startY + i
		if lineIdx >= len(mainLines) {
			break
		}

		mainLine := mainLines[lineIdx]
		if lipgloss.Width(mainLine) < startX {
			mainLines[lineIdx] = mainLine + strings.Repeat(" ", startX-lipgloss.Width(mainLine)) + toastLine
		} else {
			mainLines[lineIdx] = ansi.Truncate(mainLine, startX, "") + toastLine
		}
	}

	return strings.Join(mainLines, "\n")
}
