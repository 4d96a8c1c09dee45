package webhook

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zalama/partner-dashboard/internal/domain/entity"
	"github.com/zalama/partner-dashboard/internal/notification"
	"github.com/zalama/partner-dashboard/internal/repository"
	"github.com/zalama/partner-dashboard/pkg/database"
	"go.uber.org/zap"
)

// Payload is the provider's webhook body. Every field is optional; the
// handler acts on whichever identifiers are present.
type Payload struct {
	TransactionID   string          `json:"transaction_id"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Reference       string          `json:"reference"`
	RemboursementID string          `json:"remboursement_id"`
	PartenaireID    string          `json:"partenaire_id"`
	Message         string          `json:"message"`
	PayID           string          `json:"pay_id"`
}

// isSuccess reports whether a webhook status means the payment went
// through.
func (p *Payload) isSuccess() bool {
	return p.Status == "success" || p.Status == "completed"
}

// Handler ingests provider-initiated payment notifications. Branches are
// independent: a failure in one does not roll back an earlier one.
type Handler struct {
	verifier       *Verifier
	db             *database.DB
	remboursements *repository.RemboursementRepository
	history        *repository.HistoryRepository
	events         *repository.WebhookEventRepository
	emitter        *notification.Emitter
	logger         *zap.Logger
}

// NewHandler creates a new webhook handler
func NewHandler(
	verifier *Verifier,
	db *database.DB,
	remboursements *repository.RemboursementRepository,
	history *repository.HistoryRepository,
	events *repository.WebhookEventRepository,
	emitter *notification.Emitter,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		verifier:       verifier,
		db:             db,
		remboursements: remboursements,
		history:        history,
		events:         events,
		emitter:        emitter,
		logger:         logger,
	}
}

// Handle processes an incoming payment webhook
func (h *Handler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("Failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Lecture du corps de la requête impossible"})
		return
	}

	if !h.verifier.Verify(body, c.GetHeader(SignatureHeader)) {
		h.logger.Warn("Invalid webhook signature", zap.String("ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Signature invalide"})
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Error("Failed to parse webhook payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payload invalide"})
		return
	}

	h.logger.Info("Webhook received",
		zap.String("transaction_id", payload.TransactionID),
		zap.String("status", payload.Status),
		zap.String("remboursement_id", payload.RemboursementID),
		zap.String("partenaire_id", payload.PartenaireID),
		zap.String("pay_id", payload.PayID))

	ctx := c.Request.Context()

	// Replay check: a delivery already processed is acknowledged without
	// reapplying updates or re-emitting notifications.
	if payload.TransactionID != "" {
		err := h.events.Record(ctx, payload.TransactionID, "payment", string(body))
		if errors.Is(err, repository.ErrDuplicate) {
			h.logger.Info("Duplicate webhook delivery ignored",
				zap.String("transaction_id", payload.TransactionID))
			c.JSON(http.StatusOK, gin.H{"success": true, "duplicate": true})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
			return
		}
	}

	if payload.RemboursementID != "" {
		if err := h.updateSingle(ctx, &payload); err != nil {
			h.logger.Error("Failed to update reimbursement from webhook",
				zap.String("remboursement_id", payload.RemboursementID),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour"})
			return
		}
	}

	if payload.PartenaireID != "" && payload.Status == "success" {
		if err := h.updateBatch(ctx, &payload); err != nil {
			h.logger.Error("Failed to batch-update reimbursements from webhook",
				zap.String("partenaire_id", payload.PartenaireID),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour en lot"})
			return
		}
	}

	// Notifications are best effort; a failed insert never fails the
	// acknowledgment, the provider must not redeliver for it.
	if payload.PartenaireID != "" {
		h.notifyPartner(ctx, &payload)
	}
	if payload.PayID != "" {
		h.notifyPaymentCheck(ctx, &payload)
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// updateSingle applies a webhook outcome to one reimbursement
func (h *Handler) updateSingle(ctx context.Context, payload *Payload) error {
	statut := entity.StatutEnAttente
	var paidAt *time.Time
	if payload.isSuccess() {
		statut = entity.StatutPaye
		now := time.Now()
		paidAt = &now
	}

	before, err := h.remboursements.GetByID(ctx, payload.RemboursementID)
	if err != nil {
		return err
	}

	if err := h.remboursements.ApplyWebhookUpdate(ctx, payload.RemboursementID, statut, paidAt,
		payload.TransactionID, payload.Message); err != nil {
		return err
	}

	h.recordHistory(ctx, before.ID, entity.ActionWebhookPaid, before.Statut, statut,
		fmt.Sprintf("Webhook Lengo Pay: %s (transaction %s)", payload.Status, payload.TransactionID))

	return nil
}

// updateBatch marks every pending reimbursement of the partner as paid
// in one transaction, modelling a lot payment covering all of them.
func (h *Handler) updateBatch(ctx context.Context, payload *Payload) error {
	paidAt := time.Now()

	return h.db.WithTransaction(func(tx *sql.Tx) error {
		txCtx := repository.WithTx(ctx, tx)

		ids, err := h.remboursements.MarkPaidBatch(txCtx, payload.PartenaireID,
			payload.TransactionID, payload.Message, paidAt)
		if err != nil {
			return err
		}

		for _, id := range ids {
			entry := &entity.HistoryEntry{
				ID:              uuid.NewString(),
				RemboursementID: id,
				Action:          entity.ActionBatchPaid,
				Description:     fmt.Sprintf("Paiement en lot (transaction %s)", payload.TransactionID),
				StatutAvant:     entity.StatutEnAttente,
				StatutApres:     entity.StatutPaye,
			}
			if err := h.history.Create(txCtx, entry); err != nil {
				return err
			}
		}

		h.logger.Info("Batch payment applied",
			zap.String("partenaire_id", payload.PartenaireID),
			zap.Int("count", len(ids)))
		return nil
	})
}

// notifyPartner emits the success/failure inbox record for the partner
func (h *Handler) notifyPartner(ctx context.Context, payload *Payload) {
	titre := "Paiement échoué"
	typ := entity.NotificationError
	message := payload.Message
	if payload.Status == "success" {
		titre = "Paiement réussi"
		typ = entity.NotificationSuccess
		if message == "" {
			message = "Votre paiement a été traité avec succès"
		}
	} else if message == "" {
		message = "Le paiement a échoué"
	}

	key := ""
	if payload.TransactionID != "" {
		key = payload.TransactionID + ":partner_notice"
	}

	if err := h.emitter.Emit(ctx, payload.PartenaireID, titre, message, typ, nil, key); err != nil {
		h.logger.Error("Failed to notify partner",
			zap.String("partenaire_id", payload.PartenaireID),
			zap.Error(err))
	}
}

// notifyPaymentCheck emits the deferred-verification trigger consumed by
// the status-check read path.
func (h *Handler) notifyPaymentCheck(ctx context.Context, payload *Payload) {
	key := ""
	if payload.TransactionID != "" {
		key = payload.TransactionID + ":payment_check"
	}

	metadata := map[string]string{
		"pay_id":         payload.PayID,
		"transaction_id": payload.TransactionID,
		"status":         payload.Status,
	}

	err := h.emitter.Emit(ctx, payload.PartenaireID,
		"Vérification de paiement requise",
		fmt.Sprintf("Vérification automatique du paiement %s", payload.PayID),
		entity.NotificationPaymentCheck, metadata, key)
	if err != nil {
		h.logger.Error("Failed to emit payment check notification",
			zap.String("pay_id", payload.PayID),
			zap.Error(err))
	}
}

// recordHistory appends an audit entry, logging instead of failing when
// the write does not land.
func (h *Handler) recordHistory(ctx context.Context, remboursementID, action, avant, apres, description string) {
	entry := &entity.HistoryEntry{
		ID:              uuid.NewString(),
		RemboursementID: remboursementID,
		Action:          action,
		Description:     description,
		StatutAvant:     avant,
		StatutApres:     apres,
	}
	if err := h.history.Create(ctx, entry); err != nil {
		h.logger.Error("Failed to record webhook history entry",
			zap.String("remboursement_id", remboursementID),
			zap.Error(err))
	}
}
