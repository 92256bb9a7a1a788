// Package watcher reports changes to the template directory.
package watcher

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/comment-archive/internal/logger"
)

// DefaultDebounce is how long the watcher waits for a burst of changes to settle.
const DefaultDebounce = 100 * time.Millisecond

// Event represents a template watcher event.
type Event struct {
	Error error
	Path  string
	Type  EventType
}

// EventType defines the type of watcher event.
type EventType int

const (
	// EventTemplatesChanged indicates a template was written, created, removed or renamed.
	EventTemplatesChanged EventType = iota
	// EventError indicates the underlying file watcher reported an error.
	EventError
)

// Watcher watches a template directory with debouncing.
type Watcher struct {
	watcher       *fsnotify.Watcher
	eventChan     chan Event
	stopChan      chan struct{}
	debounceTimer *time.Timer
	dir           string
	debounce      time.Duration
	mu            sync.Mutex
	closeOnce     sync.Once
}

// New starts watching dir for *.html changes.
func New(dir string, debounce time.Duration) (*Watcher, error) {
	if dir == "" {
		return nil, fmt.Errorf("template directory is empty")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		watcher:   fsw,
		dir:       dir,
		debounce:  debounce,
		eventChan: make(chan Event, 16),
		stopChan:  make(chan struct{}),
	}
	go w.watchLoop()

	logger.Debug("watching templates", "dir", dir)
	return w, nil
}

// Events returns the event channel.
func (w *Watcher) Events() <-chan Event {
	return w.eventChan
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

func isTemplate(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".html") && !strings.HasPrefix(filepath.Base(name), ".")
}

// watchLoop handles file system events with debouncing.
func (w *Watcher) watchLoop() {
	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isTemplate(event.Name) || event.Op&relevant == 0 {
				continue
			}

			path := event.Name
			w.mu.Lock()
			if w.debounceTimer != nil {
				w.debounceTimer.Stop()
			}
			w.debounceTimer = time.AfterFunc(w.debounce, func() {
				w.sendEvent(Event{Type: EventTemplatesChanged, Path: path})
			})
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendEvent(Event{Type: EventError, Error: err})

		case <-w.stopChan:
			return
		}
	}
}

// sendEvent sends an event to the event channel non-blocking.
func (w *Watcher) sendEvent(event Event) {
	select {
	case <-w.stopChan:
		return
	default:
	}

	select {
	case w.eventChan <- event:
	default:
		// Channel full, drop oldest event
		select {
		case <-w.eventChan:
		default:
		}
		select {
		case w.eventChan <- event:
		default:
		}
	}
}

// Close stops the watcher and cleans up resources.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.stopChan)

		w.mu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.mu.Unlock()

		err = w.watcher.Close()
	})
	return err
}
