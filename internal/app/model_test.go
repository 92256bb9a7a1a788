package app

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/comment-archive/internal/models"
	"github.com/j-veylop/comment-archive/internal/services"
)

func readyModel(archive Archive) *Model {
	m := NewModel(archive, "/srv/site")
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 50})
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel(t *testing.T) {
	model := NewModel(nil, "")
	if model == nil {
		t.Fatal("NewModel returned nil")
	}
	if model.GetState() == nil {
		t.Error("State should be initialized")
	}
	if model.GetCommands() == nil {
		t.Error("Commands should be initialized")
	}
	if model.IsReady() {
		t.Error("model should not be ready before a WindowSizeMsg")
	}
}

func TestModel_Init(t *testing.T) {
	if NewModel(nil, "").Init() == nil {
		t.Error("Init returned nil command")
	}

	archive := newFakeArchive()
	archive.building = true
	model := NewModel(archive, "")
	if model.Init() == nil {
		t.Error("Init returned nil command")
	}
	if !model.state.IsBuilding() {
		t.Error("a build already running should show as building")
	}
}

func TestModel_Update_WindowSize(t *testing.T) {
	model := NewModel(nil, "")
	newModel, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 50})

	m, ok := newModel.(*Model)
	if !ok {
		t.Fatal("Update returned wrong model type")
	}
	if m.width != 100 || m.height != 50 {
		t.Errorf("size = %dx%d, want 100x50", m.width, m.height)
	}
	if !m.ready {
		t.Error("Model should be ready after WindowSizeMsg")
	}
}

func TestModel_Update_Tick(t *testing.T) {
	model := NewModel(nil, "")
	_, cmd := model.Update(TickMsg{Time: time.Now()})
	if cmd == nil {
		t.Error("TickMsg should return a command (next tick)")
	}
}

func TestModel_Keys(t *testing.T) {
	archive := newFakeArchive()
	model := readyModel(archive)

	cmd := model.handleKeyMsg(runes("r"))
	if cmd == nil {
		t.Fatal("r should return a command")
	}
	if msg, ok := cmd().(BuildRequestedMsg); !ok || msg.Options.Force {
		t.Errorf("r produced %#v", msg)
	}

	cmd = model.handleKeyMsg(runes("f"))
	if cmd == nil {
		t.Fatal("f should return a command")
	}
	if msg, ok := cmd().(BuildRequestedMsg); !ok || !msg.Options.Force {
		t.Errorf("f produced %#v", msg)
	}

	if len(archive.requests) != 2 {
		t.Errorf("got %d build requests, want 2", len(archive.requests))
	}

	cmd = model.handleKeyMsg(runes("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestModel_KeysWithoutArchive(t *testing.T) {
	model := readyModel(nil)
	if model.handleKeyMsg(runes("r")) != nil {
		t.Error("r without an archive should do nothing")
	}
}

func TestModel_Help(t *testing.T) {
	model := readyModel(nil)

	model.Update(ToggleHelpMsg{})
	if !model.showHelp {
		t.Fatal("showHelp should be true")
	}

	view := model.View()
	if !strings.Contains(view, "Keyboard Shortcuts") {
		t.Error("View should show help modal")
	}
	if !strings.Contains(view, "refetch + rebuild") {
		t.Error("help should list the key bindings")
	}

	model.handleKeyMsg(tea.KeyMsg{Type: tea.KeyEsc})
	if model.showHelp {
		t.Error("esc should close help")
	}

	model.handleKeyMsg(runes("?"))
	if !model.showHelp {
		t.Error("? should toggle help on")
	}
}

func TestModel_View(t *testing.T) {
	model := NewModel(nil, "/srv/site")

	view := model.View()
	if !strings.Contains(view, "Loading...") {
		t.Error("View should show Loading when not ready")
	}

	model.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	view = model.View()
	for _, want := range []string{"Comment Archive", "/srv/site", "No build yet", "No builds recorded", "No comments archived yet"} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q", want)
		}
	}
}

func TestModel_BuildEvents(t *testing.T) {
	model := readyModel(newFakeArchive())
	start := time.Now()

	model.Update(ServiceEventMsg{Event: services.BuildStartedEvent{
		StartedAt: start,
		Options:   models.BuildOptions{Force: true},
	}})
	if !model.state.IsBuilding() {
		t.Fatal("state should be building")
	}
	if !strings.Contains(model.View(), "Refetching and building") {
		t.Error("View should show the loading notification")
	}

	result := &models.BuildResult{
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		FirstDay:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		LastDay:    time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		OutputDir:  "/srv/site",
		Days:       31,
		Months:     1,
		Total:      1234,
	}
	run := models.RunFromResult(start, result, models.BuildOptions{Force: true}, nil)

	cmd := model.handleServiceEvent(services.BuildCompletedEvent{Result: result, Run: run})
	if cmd == nil {
		t.Fatal("completion should notify and reload stats")
	}
	if model.state.IsBuilding() {
		t.Error("state should not be building")
	}
	if model.state.GetLastResult() != result {
		t.Error("LastResult should be updated")
	}

	view := model.View()
	for _, want := range []string{"Last build", "1,234", "2024-01-01", "ok*"} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q", want)
		}
	}
}

func TestModel_BuildFailed(t *testing.T) {
	model := readyModel(nil)
	boom := errors.New("source unreachable")

	model.handleServiceEvent(services.BuildStartedEvent{StartedAt: time.Now()})
	cmd := model.handleServiceEvent(services.BuildCompletedEvent{
		Error: boom,
		Run:   models.RunFromResult(time.Now(), nil, models.BuildOptions{}, boom),
	})
	if cmd == nil {
		t.Fatal("failure should notify")
	}

	msg, ok := cmd().(AddNotificationMsg)
	if !ok {
		t.Fatalf("expected AddNotificationMsg, got %T", msg)
	}
	if msg.Type != NotificationError || !strings.Contains(msg.Message, "source unreachable") {
		t.Errorf("notification = %+v", msg)
	}

	if !strings.Contains(model.View(), "Last build failed") {
		t.Error("View should show the failure")
	}
}

func TestModel_OtherEvents(t *testing.T) {
	model := readyModel(nil)

	tests := []struct {
		event services.ServiceEvent
		want  NotificationType
		text  string
	}{
		{services.TemplatesChangedEvent{Path: "day.html"}, NotificationInfo, "day.html"},
		{services.PublishedEvent{Bucket: "b", Objects: 4}, NotificationSuccess, "4 objects"},
		{services.ErrorEvent{Service: "watcher", Error: errors.New("gone")}, NotificationError, "[watcher] gone"},
	}

	for _, tt := range tests {
		cmd := model.handleServiceEvent(tt.event)
		if cmd == nil {
			t.Fatalf("%T should produce a command", tt.event)
		}
		msg, ok := cmd().(AddNotificationMsg)
		if !ok {
			t.Fatalf("%T: expected AddNotificationMsg", tt.event)
		}
		if msg.Type != tt.want || !strings.Contains(msg.Message, tt.text) {
			t.Errorf("%T: notification = %+v", tt.event, msg)
		}
	}
}

func TestModel_StatsLoaded(t *testing.T) {
	model := readyModel(nil)

	var recent []models.DateCount
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		recent = append(recent, models.DateCount{Date: day.AddDate(0, 0, i), Count: i % 4})
	}
	stats := &services.Stats{Total: 15, First: day, Recent: recent}

	model.Update(StatsLoadedMsg{Stats: stats})
	if model.state.GetStats() != stats {
		t.Fatal("stats should be stored")
	}

	view := model.View()
	if !strings.Contains(view, "comments per day") {
		t.Error("View should plot recent activity")
	}
	if !strings.Contains(view, "15 comments since 2024-01-01") {
		t.Error("View should show the archive total")
	}

	_, cmd := model.Update(StatsLoadedMsg{Error: errors.New("locked")})
	if cmd == nil {
		t.Error("stats error should produce a notification")
	}
	if model.state.GetStats() != stats {
		t.Error("a failed reload should keep the previous stats")
	}
}

func TestModel_Notifications(t *testing.T) {
	model := readyModel(nil)

	model.Update(AddNotificationMsg{Message: "Test Note", Type: NotificationInfo})
	if len(model.state.GetNotifications()) != 1 {
		t.Fatalf("Expected 1 notification")
	}
	if !strings.Contains(model.View(), "Test Note") {
		t.Error("View should show notification")
	}

	id := model.state.GetNotifications()[0].ID
	model.Update(RemoveNotificationMsg{ID: id})
	if len(model.state.GetNotifications()) != 0 {
		t.Error("notification should be removed")
	}

	_, cmd := model.Update(ErrorMsg{Error: errors.New("x"), Context: "publish"})
	if cmd == nil {
		t.Error("ErrorMsg should produce a notification")
	}
}

func TestModel_SubscriptionLoop(t *testing.T) {
	archive := newFakeArchive()
	model := readyModel(archive)

	model.Update(SubscriptionEventMsg{Channel: archive.events})
	if model.eventChannel == nil {
		t.Fatal("event channel should be stored")
	}

	_, cmd := model.Update(ServiceEventMsg{Event: services.TemplatesChangedEvent{Path: "x"}})
	if cmd == nil {
		t.Error("handling an event should wait for the next one")
	}
}
