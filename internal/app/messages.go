package app

import (
	"time"

	"github.com/j-veylop/comment-archive/internal/models"
	"github.com/j-veylop/comment-archive/internal/services"
)

// TickMsg is sent periodically to expire notifications.
type TickMsg struct {
	Time time.Time
}

// StatsLoadedMsg contains freshly loaded archive statistics.
type StatsLoadedMsg struct {
	Stats *services.Stats
	Error error
}

// BuildRequestedMsg confirms that a build was queued.
type BuildRequestedMsg struct {
	Options models.BuildOptions
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Message  string
	Type     NotificationType
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ClearExpiredNotificationsMsg triggers clearing of expired notifications.
type ClearExpiredNotificationsMsg struct{}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// SubscriptionEventMsg is the callback wrapper for service subscription.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// ErrorMsg represents a general error.
type ErrorMsg struct {
	Error   error
	Context string
}

// ToggleHelpMsg toggles the help display.
type ToggleHelpMsg struct{}

// QuitMsg requests the application to quit.
type QuitMsg struct{}
