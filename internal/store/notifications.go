package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erazemk/odeje/internal/db"
	"github.com/erazemk/odeje/internal/model"
)

const notificationColumns = `id, type, priority, title, message, item_id, is_read, metadata, created_at`

func scanNotification(s scanner) (*model.Notification, error) {
	n := &model.Notification{}
	var metadata string
	if err := s.Scan(&n.ID, &n.Type, &n.Priority, &n.Title, &n.Message, &n.ItemID, &n.Read, &metadata, &n.CreatedAt); err != nil {
		return nil, err
	}
	if metadata != "" && metadata != "{}" {
		if err := json.Unmarshal([]byte(metadata), &n.Metadata); err != nil {
			return nil, fmt.Errorf("decoding notification metadata: %w", err)
		}
	}
	return n, nil
}

// CreateNotification stores a notification. A zero CreatedAt defaults to the
// database clock.
func CreateNotification(ctx context.Context, database *sql.DB, n *model.Notification) (*model.Notification, error) {
	metadata := []byte("{}")
	if len(n.Metadata) > 0 {
		var err error
		if metadata, err = json.Marshal(n.Metadata); err != nil {
			return nil, fmt.Errorf("encoding notification metadata: %w", err)
		}
	}

	var createdAt any
	if !n.CreatedAt.IsZero() {
		createdAt = db.Timestamp(n.CreatedAt)
	}

	result, err := database.ExecContext(ctx,
		`INSERT INTO notifications (type, priority, title, message, item_id, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))`,
		n.Type, n.Priority, n.Title, n.Message, n.ItemID, string(metadata), createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting notification id: %w", err)
	}
	return GetNotification(ctx, database, id)
}

// GetNotification returns a notification by ID.
func GetNotification(ctx context.Context, database *sql.DB, id int64) (*model.Notification, error) {
	n, err := scanNotification(database.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting notification: %w", err)
	}
	return n, nil
}

// FindSimilarNotification returns the newest notification of the given type
// and scope created at or after since. A nil itemID matches only global
// notifications.
func FindSimilarNotification(ctx context.Context, database *sql.DB, typ model.NotificationType, itemID *int64, since time.Time) (*model.Notification, error) {
	n, err := scanNotification(database.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE type = ? AND item_id IS ? AND created_at >= ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		typ, itemID, db.Timestamp(since),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding similar notification: %w", err)
	}
	return n, nil
}

// ListNotifications returns notifications newest first.
func ListNotifications(ctx context.Context, database *sql.DB, unreadOnly bool) ([]model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications`
	if unreadOnly {
		query += ` WHERE is_read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := database.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}

// CountUnread returns the number of unread notifications.
func CountUnread(ctx context.Context, database *sql.DB) (int, error) {
	var count int
	err := database.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE is_read = 0`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

// MarkNotificationRead marks one notification as read.
func MarkNotificationRead(ctx context.Context, database *sql.DB, id int64) error {
	result, err := database.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return &model.NotFoundError{Resource: "notification", ID: id}
	}
	return nil
}

// MarkAllNotificationsRead marks every notification as read and returns how
// many changed.
func MarkAllNotificationsRead(ctx context.Context, database *sql.DB) (int64, error) {
	result, err := database.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE is_read = 0`,
	)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	return result.RowsAffected()
}

// DeleteNotification removes a notification.
func DeleteNotification(ctx context.Context, database *sql.DB, id int64) error {
	result, err := database.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting notification: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return &model.NotFoundError{Resource: "notification", ID: id}
	}
	return nil
}
