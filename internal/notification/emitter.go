// Package notification writes partner inbox records for status events.
package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/zalama/partner-dashboard/internal/domain/entity"
	"github.com/zalama/partner-dashboard/internal/repository"
	"go.uber.org/zap"
)

// Store is the notification persistence the emitter writes through
type Store interface {
	Create(ctx context.Context, n *entity.Notification) error
}

// Emitter records notifications for partners. Fire-and-record: the only
// delivery guarantee is the store write, consumed by dashboard polling.
type Emitter struct {
	store  Store
	logger *zap.Logger
}

// NewEmitter creates a new notification emitter
func NewEmitter(store Store, logger *zap.Logger) *Emitter {
	return &Emitter{
		store:  store,
		logger: logger,
	}
}

// Emit inserts an unread notification. When idempotencyKey is non-empty
// and a notification with the same key already exists, the emit is a
// no-op; webhook redeliveries dedup through this.
func (e *Emitter) Emit(ctx context.Context, partnerID, titre, message, typ string, metadata map[string]string, idempotencyKey string) error {
	n := &entity.Notification{
		ID:             uuid.NewString(),
		PartnerID:      partnerID,
		Titre:          titre,
		Message:        message,
		Type:           typ,
		Lu:             false,
		Metadata:       metadata,
		IdempotencyKey: idempotencyKey,
	}

	err := e.store.Create(ctx, n)
	if errors.Is(err, repository.ErrDuplicate) {
		e.logger.Debug("Notification already emitted, skipping",
			zap.String("partenaire_id", partnerID),
			zap.String("idempotency_key", idempotencyKey))
		return nil
	}
	if err != nil {
		e.logger.Error("Failed to emit notification",
			zap.String("partenaire_id", partnerID),
			zap.String("type", typ),
			zap.Error(err))
		return err
	}

	e.logger.Info("Notification emitted",
		zap.String("partenaire_id", partnerID),
		zap.String("type", typ),
		zap.String("titre", titre))
	return nil
}
