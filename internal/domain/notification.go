package domain

import "time"

type NotificationPriority string

const (
	PriorityHigh   NotificationPriority = "HIGH"
	PriorityMedium NotificationPriority = "MEDIUM"
	PriorityLow    NotificationPriority = "LOW"
)

// NotificationMethod records which mutation produced the notification.
type NotificationMethod string

const (
	MethodCreate NotificationMethod = "CREATE"
	MethodUpdate NotificationMethod = "UPDATE"
	MethodDelete NotificationMethod = "DELETE"
)

type Notification struct {
	ID          string               `json:"id"`
	Recipient   string               `json:"recipient"`
	Priority    NotificationPriority `json:"priority"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Method      NotificationMethod   `json:"method"`
	IsRead      bool                 `json:"is_read"`
	CreatedAt   time.Time            `json:"created_at"`
}
