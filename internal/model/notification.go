package model

import "time"

// NotificationType identifies the rule that produced a notification.
type NotificationType string

// Notification types.
const (
	NotificationWeatherChange       NotificationType = "weather_change"
	NotificationMaintenanceReminder NotificationType = "maintenance_reminder"
	NotificationDisposalSuggestion  NotificationType = "disposal_suggestion"
)

// Priority of a notification.
type Priority string

// Priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Notification is a stored alert. ItemID is nil for global notifications.
type Notification struct {
	ID        int64            `json:"id"`
	Type      NotificationType `json:"type"`
	Priority  Priority         `json:"priority"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	ItemID    *int64           `json:"item_id,omitempty"`
	Read      bool             `json:"read"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
