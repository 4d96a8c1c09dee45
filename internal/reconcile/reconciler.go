// Package reconcile aligns locally stored reimbursement statuses with
// the payment provider's view of the same payments.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zalama/partner-dashboard/internal/domain/entity"
	"github.com/zalama/partner-dashboard/internal/repository"
	"go.uber.org/zap"
)

// MapProviderStatus maps a provider status code to the internal status.
// Total over known codes; anything unknown is treated as still pending.
func MapProviderStatus(providerStatus string) string {
	switch providerStatus {
	case "SUCCESS":
		return entity.StatutPaye
	case "FAILED", "CANCELLED":
		return entity.StatutAnnulee
	case "PENDING":
		return entity.StatutEnCours
	default:
		return entity.StatutEnAttente
	}
}

// ProviderClient is the read-only provider status API
type ProviderClient interface {
	CheckStatus(ctx context.Context, payID string) (*entity.ProviderSnapshot, error)
}

// RemboursementStore is the subset of the reimbursement repository the
// reconciler writes through
type RemboursementStore interface {
	GetByPayID(ctx context.Context, payID string) (*entity.Reimbursement, error)
	UpdateStatusByPayID(ctx context.Context, payID, expectedStatut string, upd repository.StatusUpdate) error
	ForceStatusByPayID(ctx context.Context, payID string, upd repository.StatusUpdate) error
}

// HistoryStore appends audit entries for applied status changes
type HistoryStore interface {
	Create(ctx context.Context, h *entity.HistoryEntry) error
}

// StatusReport is the outcome of one reconciliation read
type StatusReport struct {
	Remboursement *entity.Reimbursement
	Snapshot      *entity.ProviderSnapshot
	Sync          entity.SyncResult
}

// Reconciler decides whether a stored reimbursement status should change
// and applies the change. It is the only component that writes statuses
// derived from provider snapshots.
type Reconciler struct {
	store   RemboursementStore
	history HistoryStore
	client  ProviderClient
	locks   *payLocks
	logger  *zap.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(store RemboursementStore, history HistoryStore, client ProviderClient, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		store:   store,
		history: history,
		client:  client,
		locks:   newPayLocks(),
		logger:  logger,
	}
}

// GetStatus loads a reimbursement, checks the provider, and synchronizes
// the stored status when they differ. The read path is fault tolerant:
// provider or persistence failures degrade to returning the last stored
// status with statut_synchronise=false instead of failing the call. Only
// a missing reimbursement is fatal.
func (r *Reconciler) GetStatus(ctx context.Context, payID string) (*StatusReport, error) {
	release := r.locks.acquire(payID)
	defer release()

	rb, err := r.store.GetByPayID(ctx, payID)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{
		Remboursement: rb,
		Sync: entity.SyncResult{
			Synchronise:   false,
			AncienStatut:  rb.Statut,
			NouveauStatut: rb.Statut,
		},
	}

	snapshot, err := r.client.CheckStatus(ctx, payID)
	if err != nil {
		r.logger.Warn("Provider status check failed, returning stored status",
			zap.String("pay_id", payID),
			zap.String("statut", rb.Statut),
			zap.Error(err))
		return report, nil
	}
	report.Snapshot = snapshot

	nouveau := MapProviderStatus(snapshot.Status)
	ancien := rb.Statut
	report.Sync.NouveauStatut = nouveau

	if nouveau == ancien {
		return report, nil
	}

	if err := r.store.UpdateStatusByPayID(ctx, payID, ancien, buildStatusUpdate(nouveau, snapshot)); err != nil {
		// Non-fatal: the caller still gets the stored status, just
		// flagged as not synchronized.
		r.logger.Warn("Status synchronization failed",
			zap.String("pay_id", payID),
			zap.String("ancien_statut", ancien),
			zap.String("nouveau_statut", nouveau),
			zap.Error(err))
		report.Sync.NouveauStatut = ancien
		return report, nil
	}

	r.applyToEntity(rb, nouveau, snapshot)
	report.Sync.Synchronise = true
	r.recordHistory(ctx, rb.ID, entity.ActionStatusSync, ancien, nouveau,
		fmt.Sprintf("Statut synchronisé depuis Lengo Pay (%s)", snapshot.Status))

	r.logger.Info("Reimbursement status synchronized",
		zap.String("pay_id", payID),
		zap.String("ancien_statut", ancien),
		zap.String("nouveau_statut", nouveau))

	return report, nil
}

// ForceSync re-reads the provider and writes the mapped status
// unconditionally, even when unchanged. Unlike GetStatus, provider and
// persistence failures are fatal here.
func (r *Reconciler) ForceSync(ctx context.Context, payID string) (*StatusReport, error) {
	release := r.locks.acquire(payID)
	defer release()

	rb, err := r.store.GetByPayID(ctx, payID)
	if err != nil {
		return nil, err
	}

	snapshot, err := r.client.CheckStatus(ctx, payID)
	if err != nil {
		return nil, err
	}

	nouveau := MapProviderStatus(snapshot.Status)
	ancien := rb.Statut

	if err := r.store.ForceStatusByPayID(ctx, payID, buildStatusUpdate(nouveau, snapshot)); err != nil {
		return nil, err
	}

	r.applyToEntity(rb, nouveau, snapshot)
	r.recordHistory(ctx, rb.ID, entity.ActionForceSync, ancien, nouveau,
		fmt.Sprintf("Synchronisation forcée depuis Lengo Pay (%s)", snapshot.Status))

	r.logger.Info("Forced synchronization applied",
		zap.String("pay_id", payID),
		zap.String("ancien_statut", ancien),
		zap.String("nouveau_statut", nouveau))

	return &StatusReport{
		Remboursement: rb,
		Snapshot:      snapshot,
		Sync: entity.SyncResult{
			Synchronise:   true,
			AncienStatut:  ancien,
			NouveauStatut: nouveau,
		},
	}, nil
}

// buildStatusUpdate derives the written fields from the mapped status.
// A PAYE status always carries a paid timestamp (provider date, falling
// back to now); any other status clears it so the timestamp never
// outlives the status.
func buildStatusUpdate(nouveau string, snapshot *entity.ProviderSnapshot) repository.StatusUpdate {
	upd := repository.StatusUpdate{Statut: nouveau}

	switch nouveau {
	case entity.StatutPaye:
		paidAt := time.Now()
		if snapshot.Date != "" {
			if parsed, err := time.Parse(time.RFC3339, snapshot.Date); err == nil {
				paidAt = parsed
			}
		}
		upd.DatePaid = &paidAt
		upd.NumeroReception = snapshot.Phone
	case entity.StatutAnnulee:
		now := time.Now()
		upd.DateCancelled = &now
	}

	return upd
}

// applyToEntity mirrors the persisted update onto the in-memory row so
// the caller sees the synchronized state.
func (r *Reconciler) applyToEntity(rb *entity.Reimbursement, nouveau string, snapshot *entity.ProviderSnapshot) {
	upd := buildStatusUpdate(nouveau, snapshot)
	rb.Statut = nouveau
	rb.DatePaid = upd.DatePaid
	if upd.DateCancelled != nil {
		rb.DateCancelled = upd.DateCancelled
	}
	if upd.NumeroReception != "" {
		rb.NumeroReception = upd.NumeroReception
	}
	rb.UpdatedAt = time.Now()
}

// recordHistory appends an audit entry. Failures are logged, never
// surfaced: the status write already landed.
func (r *Reconciler) recordHistory(ctx context.Context, remboursementID, action, ancien, nouveau, description string) {
	entry := &entity.HistoryEntry{
		ID:              uuid.NewString(),
		RemboursementID: remboursementID,
		Action:          action,
		Description:     description,
		StatutAvant:     ancien,
		StatutApres:     nouveau,
	}
	if err := r.history.Create(ctx, entry); err != nil {
		r.logger.Error("Failed to record history entry",
			zap.String("remboursement_id", remboursementID),
			zap.String("action", action),
			zap.Error(err))
	}
}
