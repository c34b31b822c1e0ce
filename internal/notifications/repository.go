package notifications

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/stockflow/stockflow/internal/domain"
)

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Insert(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient, priority, title, description, method, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, n.ID, n.Recipient, n.Priority, n.Title, n.Description, n.Method, n.IsRead, n.CreatedAt)
	return err
}

// ListForRecipient returns the recipient's notifications newest first.
// Non-admin callers only see UPDATE notifications.
func (r *NotificationRepository) ListForRecipient(ctx context.Context, recipient string, isAdmin bool) ([]domain.Notification, error) {
	query := `
		SELECT id, recipient, priority, title, description, method, is_read, created_at
		FROM notifications
		WHERE recipient = $1
		ORDER BY created_at DESC
	`
	args := []any{recipient}
	if !isAdmin {
		query = `
			SELECT id, recipient, priority, title, description, method, is_read, created_at
			FROM notifications
			WHERE recipient = $1 AND method = $2
			ORDER BY created_at DESC
		`
		args = append(args, domain.MethodUpdate)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var list []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.Recipient, &n.Priority, &n.Title, &n.Description, &n.Method, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// MarkRead flips a single notification, but only when it belongs to the
// caller.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipient string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND recipient = $2
	`, id, recipient)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipient string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE recipient = $1 AND is_read = FALSE
	`, recipient)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
