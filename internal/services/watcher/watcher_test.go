package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestWatcher(t *testing.T) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := New(dir, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := w.Close(); err != nil {
			t.Errorf("Close() failed: %v", err)
		}
	})
	return w, dir
}

func waitForEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case event := <-w.Events():
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for watcher event")
	}
	return Event{}
}

func TestWatchTemplateChange(t *testing.T) {
	w, dir := newTestWatcher(t)

	if err := os.WriteFile(filepath.Join(dir, "day.html"), []byte("<p>day</p>"), 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	event := waitForEvent(t, w)
	if event.Type != EventTemplatesChanged {
		t.Fatalf("expected EventTemplatesChanged, got %v (error %v)", event.Type, event.Error)
	}
	if filepath.Base(event.Path) != "day.html" {
		t.Errorf("expected path day.html, got %s", event.Path)
	}
}

func TestWatchDebounces(t *testing.T) {
	w, dir := newTestWatcher(t)

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte{byte('a' + i)}, 0o600); err != nil {
			t.Fatalf("WriteFile() failed: %v", err)
		}
	}

	waitForEvent(t, w)

	select {
	case event := <-w.Events():
		t.Errorf("expected a single event for a burst of writes, got extra %+v", event)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	w, dir := newTestWatcher(t)

	for _, name := range []string{"notes.txt", ".day.html.swp", ".hidden.html"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatalf("WriteFile() failed: %v", err)
		}
	}

	select {
	case event := <-w.Events():
		t.Errorf("expected no event, got %+v", event)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New("", 0); err == nil {
		t.Error("expected error for empty directory")
	}
	if _, err := New(filepath.Join(t.TempDir(), "missing"), 0); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestClose_Idempotent(t *testing.T) {
	w, err := New(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
}

func TestIsTemplate(t *testing.T) {
	tests := map[string]bool{
		"day.html":        true,
		"/tmp/INDEX.HTML": true,
		"style.css":       false,
		".day.html":       false,
		"day.html.swp":    false,
	}
	for name, want := range tests {
		if got := isTemplate(name); got != want {
			t.Errorf("isTemplate(%q) = %v, want %v", name, got, want)
		}
	}
}
