package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WebhookEventRepository records processed webhook deliveries for
// idempotent ingestion. (transaction_id, event_kind) is unique: a replay
// of the same delivery fails the insert and is skipped.
type WebhookEventRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWebhookEventRepository creates a new webhook event repository
func NewWebhookEventRepository(db *sql.DB, logger *zap.Logger) *WebhookEventRepository {
	return &WebhookEventRepository{
		db:     db,
		logger: logger,
	}
}

// Record stores a webhook delivery. Returns ErrDuplicate when the same
// (transaction_id, event_kind) pair was already processed.
func (r *WebhookEventRepository) Record(ctx context.Context, transactionID, eventKind, payload string) error {
	query := `
		INSERT INTO webhook_events (id, transaction_id, event_kind, payload, received_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		uuid.NewString(),
		transactionID,
		eventKind,
		payload,
		time.Now(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: transaction %s kind %s", ErrDuplicate, transactionID, eventKind)
		}
		r.logger.Error("Failed to record webhook event",
			zap.String("transaction_id", transactionID),
			zap.String("event_kind", eventKind),
			zap.Error(err))
		return fmt.Errorf("failed to record webhook event: %w", err)
	}

	return nil
}
