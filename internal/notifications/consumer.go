package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/stockflow/stockflow/internal/domain"
)

// PersistHandler consumes notification fan-out events and writes them to the
// notifications table. Event ids double as row ids, so redelivery is
// harmless.
type PersistHandler struct {
	repo   *NotificationRepository
	logger *slog.Logger
}

func NewPersistHandler(repo *NotificationRepository, logger *slog.Logger) *PersistHandler {
	return &PersistHandler{
		repo:   repo,
		logger: logger,
	}
}

func (h *PersistHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.NotificationRequested
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal notification event: %w", err)
	}

	notification := &domain.Notification{
		ID:          event.EventID,
		Recipient:   event.Recipient,
		Priority:    event.Priority,
		Title:       event.Title,
		Description: event.Description,
		Method:      event.Method,
		CreatedAt:   event.Timestamp,
	}

	if err := h.repo.Insert(ctx, notification); err != nil {
		return fmt.Errorf("persist notification %s: %w", event.EventID, err)
	}

	h.logger.Info("notification stored", "notification_id", notification.ID, "recipient", notification.Recipient, "priority", notification.Priority)
	return nil
}
