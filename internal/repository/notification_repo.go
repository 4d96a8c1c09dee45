package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zalama/partner-dashboard/internal/domain/entity"
	"go.uber.org/zap"
)

// NotificationRepository persists partner notifications
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new notification. When an idempotency key is set and a
// notification with the same key already exists, the insert is dropped
// and ErrDuplicate is returned; webhook replays rely on this.
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	var metadata sql.NullString
	if len(n.Metadata) > 0 {
		raw, err := json.Marshal(n.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = sql.NullString{String: string(raw), Valid: true}
	}

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO notifications (id, partenaire_id, titre, message, type, lu, metadata, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		n.ID,
		n.PartnerID,
		n.Titre,
		n.Message,
		n.Type,
		n.Lu,
		metadata,
		nullString(n.IdempotencyKey),
		n.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: idempotency key %s", ErrDuplicate, n.IdempotencyKey)
		}
		r.logger.Error("Failed to create notification",
			zap.String("partenaire_id", n.PartnerID),
			zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// ListByPartner returns a partner's notifications, newest first
func (r *NotificationRepository) ListByPartner(ctx context.Context, partnerID string, limit int) ([]*entity.Notification, error) {
	query := `
		SELECT id, partenaire_id, titre, message, type, lu, metadata, idempotency_key, created_at
		FROM notifications
		WHERE partenaire_id = ?
		ORDER BY created_at DESC
	`
	args := []interface{}{partnerID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list notifications",
			zap.String("partenaire_id", partnerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var result []*entity.Notification
	for rows.Next() {
		var n entity.Notification
		var metadata, idemKey sql.NullString
		if err := rows.Scan(&n.ID, &n.PartnerID, &n.Titre, &n.Message, &n.Type, &n.Lu, &metadata, &idemKey, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &n.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		n.IdempotencyKey = idemKey.String
		result = append(result, &n)
	}
	return result, rows.Err()
}

// UnreadCount returns the number of unread notifications for a partner
func (r *NotificationRepository) UnreadCount(ctx context.Context, partnerID string) (int, error) {
	var count int
	err := getExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE partenaire_id = ? AND lu = 0`,
		partnerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flags a notification as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	result, err := getExecutor(ctx, r.db).ExecContext(ctx,
		`UPDATE notifications SET lu = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: notification %s", ErrNotFound, id)
	}
	return nil
}
