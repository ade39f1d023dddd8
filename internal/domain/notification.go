package domain

import "context"

type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
)

// Notification is a short user-facing message, shown as a toast by the map page.
type Notification struct {
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
}

// Notifier is a push-style sink for notifications. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}
