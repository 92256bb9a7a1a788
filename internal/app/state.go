package app

import (
	"sync"
	"time"

	"github.com/j-veylop/comment-archive/internal/models"
	"github.com/j-veylop/comment-archive/internal/services"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
	// NotificationLoading represents a loading notification with spinner.
	NotificationLoading
)

const (
	// LoadingNotificationID is the fixed ID for loading notifications.
	LoadingNotificationID = "__loading__"

	maxNotifications = 10
	maxRuns          = 8
)

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	case NotificationLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Notification represents a user-facing notification message.
type Notification struct {
	CreatedAt time.Time
	ID        string
	Message   string
	Type      NotificationType
	Duration  time.Duration
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// BuildState describes the build the watch screen is tracking.
type BuildState struct {
	StartedAt time.Time
	Options   models.BuildOptions
	Running   bool
}

// State is the watch screen state shared between Update and View.
type State struct {
	LastUpdated time.Time
	LastResult  *models.BuildResult
	LastError   error
	Stats       *services.Stats
	Runs        []models.BuildRun
	Build       BuildState

	notifications   []Notification
	mu              sync.RWMutex
	notificationSeq int
}

// NewState creates an empty state.
func NewState() *State {
	return &State{
		notifications: make([]Notification, 0),
	}
}

// StartBuild marks a build as running.
func (s *State) StartBuild(opts models.BuildOptions, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Build = BuildState{Running: true, Options: opts, StartedAt: at}
}

// FinishBuild records the outcome of the running build. Failed builds keep
// the previous successful result so the summary stays useful.
func (s *State) FinishBuild(result *models.BuildResult, run models.BuildRun, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Build.Running = false
	s.LastError = err
	if err == nil && result != nil {
		s.LastResult = result
	}
	s.LastUpdated = time.Now()

	s.Runs = append([]models.BuildRun{run}, s.Runs...)
	if len(s.Runs) > maxRuns {
		s.Runs = s.Runs[:maxRuns]
	}
}

// GetBuild returns the current build state.
func (s *State) GetBuild() BuildState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Build
}

// IsBuilding reports whether a build is running.
func (s *State) IsBuilding() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Build.Running
}

// GetLastResult returns the last successful build result, or nil.
func (s *State) GetLastResult() *models.BuildResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastResult
}

// GetLastError returns the error of the last build, or nil.
func (s *State) GetLastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastError
}

// SetStats replaces the archive statistics. Runs loaded from the store seed
// the history until builds are observed directly.
func (s *State) SetStats(stats *services.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Stats = stats
	if stats != nil && len(stats.Runs) > 0 {
		s.Runs = append([]models.BuildRun(nil), stats.Runs...)
		if len(s.Runs) > maxRuns {
			s.Runs = s.Runs[:maxRuns]
		}
	}
	s.LastUpdated = time.Now()
}

// GetStats returns the current statistics.
func (s *State) GetStats() *services.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Stats
}

// GetRuns returns a copy of the recent runs, newest first.
func (s *State) GetRuns() []models.BuildRun {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]models.BuildRun, len(s.Runs))
	copy(runs, s.Runs)
	return runs
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notificationSeq++
	id := time.Now().Format("20060102150405") + "-" + string(rune('A'+s.notificationSeq%26))

	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	})

	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}

	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications removes all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = activeNotifications(s.notifications)
}

// GetNotifications returns a copy of all active notifications.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activeNotifications(s.notifications)
}

func activeNotifications(all []Notification) []Notification {
	active := make([]Notification, 0, len(all))
	for _, n := range all {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	return active
}

// SetLoadingNotification sets a loading notification message.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == LoadingNotificationID {
			s.notifications[i].Message = message
			return
		}
	}

	s.notifications = append(s.notifications, Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

// ClearLoadingNotification removes the loading notification.
func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}

// GetLastUpdated returns the last time the state was updated.
func (s *State) GetLastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastUpdated
}
