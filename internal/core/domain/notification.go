package domain

import "time"

// NotificationType classifies a transient user message.
type NotificationType string

const (
	NotifySuccess NotificationType = "success"
	NotifyError   NotificationType = "error"
	NotifyInfo    NotificationType = "info"
)

// NotificationTTL is how long a notification stays visible unless dismissed.
const NotificationTTL = 5 * time.Second

// Notification is a transient message shown to the user.
type Notification struct {
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// NewNotification creates a notification that expires NotificationTTL after now.
func NewNotification(t NotificationType, msg string, now time.Time) *Notification {
	return &Notification{
		Type:      t,
		Message:   msg,
		CreatedAt: now,
		ExpiresAt: now.Add(NotificationTTL),
	}
}

// Active reports whether n is still visible at now. A nil notification is never active.
func (n *Notification) Active(now time.Time) bool {
	return n != nil && now.Before(n.ExpiresAt)
}
