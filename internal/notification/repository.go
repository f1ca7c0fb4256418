package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Repository handles notification data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new notification repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const notificationColumns = `id, recipient_id, type, message, is_read, related_entity_type, related_entity_id, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanNotification(row scanner) (*Notification, error) {
	n := &Notification{}
	err := row.Scan(
		&n.ID,
		&n.RecipientID,
		&n.Type,
		&n.Message,
		&n.IsRead,
		&n.RelatedEntityType,
		&n.RelatedEntityID,
		&n.CreatedAt,
	)
	return n, err
}

// Create inserts a new notification into the database
func (r *Repository) Create(ctx context.Context, n *Notification) (*Notification, error) {
	query := `
		INSERT INTO notifications (recipient_id, type, message, related_entity_type, related_entity_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + notificationColumns

	created, err := scanNotification(r.db.QueryRowContext(ctx, query,
		n.RecipientID, n.Type, n.Message, n.RelatedEntityType, n.RelatedEntityID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return created, nil
}

// GetByID retrieves a notification by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	n, err := scanNotification(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// ListByRecipient retrieves a user's notifications, newest first
func (r *Repository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit, offset int, unreadOnly bool) ([]*Notification, int, error) {
	where := `recipient_id = $1`
	if unreadOnly {
		where += ` AND NOT is_read`
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE `+where, recipientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE ` + where +
		` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, recipientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, total, rows.Err()
}

// MarkAsRead marks a notification as read
func (r *Repository) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return nil
}

// MarkAllAsRead marks all notifications as read for a user
func (r *Repository) MarkAllAsRead(ctx context.Context, recipientID uuid.UUID) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE recipient_id = $1 AND NOT is_read`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications as read: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// UnreadCount returns the count of unread notifications for a user
func (r *Repository) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT is_read`
	if err := r.db.QueryRowContext(ctx, query, recipientID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
