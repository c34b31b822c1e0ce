package domain

import "time"

// NotificationRequested is the fan-out event handed to the notification sink
// after a catalog or order mutation commits. Delivery is best-effort; nothing
// in the order workflow depends on it.
type NotificationRequested struct {
	EventID     string               `json:"event_id"`
	Recipient   string               `json:"recipient"`
	Priority    NotificationPriority `json:"priority"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Method      NotificationMethod   `json:"method"`
	Timestamp   time.Time            `json:"timestamp"`
}
