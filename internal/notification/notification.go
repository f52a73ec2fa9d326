package notification

import "time"

type NotificationType string

const (
	NotificationBadgeEarned NotificationType = "badge_earned"
)

// DeviceToken is a push target registered by one of the user's devices.
type DeviceToken struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification is what gets pushed to every device of UserID.
type Notification struct {
	UserID    string            `json:"user_id"`
	Type      NotificationType  `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data"`
	CreatedAt time.Time         `json:"created_at"`
}
