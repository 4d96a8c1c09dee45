package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zalama/partner-dashboard/internal/domain/entity"
	"go.uber.org/zap"
)

// StatusUpdate carries the fields written by one reconciliation outcome.
// DatePaid is cleared when the row leaves PAYE so the paid timestamp
// stays consistent with the status.
type StatusUpdate struct {
	Statut          string
	DatePaid        *time.Time
	DateCancelled   *time.Time
	NumeroReception string
}

// RemboursementRepository persists reimbursements
type RemboursementRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRemboursementRepository creates a new reimbursement repository
func NewRemboursementRepository(db *sql.DB, logger *zap.Logger) *RemboursementRepository {
	return &RemboursementRepository{
		db:     db,
		logger: logger,
	}
}

const remboursementColumns = `
	id, pay_id, type_remboursement, partenaire_id, employe_id,
	demande_avance_id, transaction_id, statut, montant_total_remboursement,
	frais_service, numero_reception, message_paiement, date_creation,
	date_limite_remboursement, date_remboursement_effectue, date_annulation,
	updated_at`

// Create inserts a new reimbursement
func (r *RemboursementRepository) Create(ctx context.Context, rb *entity.Reimbursement) error {
	query := `
		INSERT INTO remboursements (` + remboursementColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	if rb.DateCreation.IsZero() {
		rb.DateCreation = now
	}
	rb.UpdatedAt = now

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		rb.ID,
		nullString(rb.PayID),
		rb.Kind,
		rb.PartnerID,
		rb.EmployeeID,
		nullString(rb.AdvanceID),
		nullString(rb.TransactionID),
		rb.Statut,
		rb.Montant.String(),
		rb.FraisService.String(),
		nullString(rb.NumeroReception),
		nullString(rb.MessagePaiement),
		rb.DateCreation,
		rb.DateLimite,
		rb.DatePaid,
		rb.DateCancelled,
		rb.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: pay_id %s", ErrDuplicate, rb.PayID)
		}
		r.logger.Error("Failed to create reimbursement",
			zap.String("id", rb.ID),
			zap.Error(err))
		return fmt.Errorf("failed to create reimbursement: %w", err)
	}

	return nil
}

// GetByPayID retrieves a reimbursement by its provider correlation key
func (r *RemboursementRepository) GetByPayID(ctx context.Context, payID string) (*entity.Reimbursement, error) {
	query := `SELECT ` + remboursementColumns + ` FROM remboursements WHERE pay_id = ?`
	return r.scanOne(getExecutor(ctx, r.db).QueryRowContext(ctx, query, payID))
}

// GetByID retrieves a reimbursement by internal identifier
func (r *RemboursementRepository) GetByID(ctx context.Context, id string) (*entity.Reimbursement, error) {
	query := `SELECT ` + remboursementColumns + ` FROM remboursements WHERE id = ?`
	return r.scanOne(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
}

// ListByPartner returns a partner's reimbursements ordered by due date,
// optionally filtered by status.
func (r *RemboursementRepository) ListByPartner(ctx context.Context, partnerID, statut string) ([]*entity.Reimbursement, error) {
	query := `SELECT ` + remboursementColumns + ` FROM remboursements WHERE partenaire_id = ?`
	args := []interface{}{partnerID}
	if statut != "" {
		query += " AND statut = ?"
		args = append(args, statut)
	}
	query += " ORDER BY date_limite_remboursement ASC"

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list reimbursements",
			zap.String("partenaire_id", partnerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list reimbursements: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// UpdateStatusByPayID applies a reconciliation outcome guarded by the
// status the caller read. Zero rows affected means a concurrent writer
// moved the row first; the caller re-reads and decides again.
func (r *RemboursementRepository) UpdateStatusByPayID(ctx context.Context, payID, expectedStatut string, upd StatusUpdate) error {
	query := `
		UPDATE remboursements
		SET statut = ?,
			date_remboursement_effectue = ?,
			date_annulation = COALESCE(?, date_annulation),
			numero_reception = COALESCE(?, numero_reception),
			updated_at = ?
		WHERE pay_id = ? AND statut = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		upd.Statut,
		upd.DatePaid,
		upd.DateCancelled,
		nullString(upd.NumeroReception),
		time.Now(),
		payID,
		expectedStatut,
	)
	if err != nil {
		r.logger.Error("Failed to update reimbursement status",
			zap.String("pay_id", payID),
			zap.String("statut", upd.Statut),
			zap.Error(err))
		return fmt.Errorf("failed to update status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: pay_id %s no longer in %s", ErrConflict, payID, expectedStatut)
	}

	return nil
}

// ForceStatusByPayID applies a reconciliation outcome unconditionally.
// Used by forced sync, which overwrites even an unchanged status.
func (r *RemboursementRepository) ForceStatusByPayID(ctx context.Context, payID string, upd StatusUpdate) error {
	query := `
		UPDATE remboursements
		SET statut = ?,
			date_remboursement_effectue = ?,
			date_annulation = COALESCE(?, date_annulation),
			numero_reception = COALESCE(?, numero_reception),
			updated_at = ?
		WHERE pay_id = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		upd.Statut,
		upd.DatePaid,
		upd.DateCancelled,
		nullString(upd.NumeroReception),
		time.Now(),
		payID,
	)
	if err != nil {
		r.logger.Error("Failed to force reimbursement status",
			zap.String("pay_id", payID),
			zap.Error(err))
		return fmt.Errorf("failed to force status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: pay_id %s", ErrNotFound, payID)
	}

	return nil
}

// ApplyWebhookUpdate records a webhook outcome on a single reimbursement.
// Transaction metadata is stored regardless of the resulting status; the
// paid timestamp is set or cleared so it tracks the PAYE status exactly.
func (r *RemboursementRepository) ApplyWebhookUpdate(ctx context.Context, id, statut string, paidAt *time.Time, transactionID, message string) error {
	query := `
		UPDATE remboursements
		SET statut = ?,
			date_remboursement_effectue = ?,
			transaction_id = ?,
			message_paiement = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		statut,
		paidAt,
		nullString(transactionID),
		nullString(message),
		time.Now(),
		id,
	)
	if err != nil {
		r.logger.Error("Failed to apply webhook update",
			zap.String("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to apply webhook update: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: remboursement %s", ErrNotFound, id)
	}

	return nil
}

// MarkPaidBatch moves every EN_ATTENTE reimbursement of a partner to PAYE
// with shared transaction metadata, and returns the affected IDs. Must be
// called inside a transaction (WithTx) so the batch lands atomically.
func (r *RemboursementRepository) MarkPaidBatch(ctx context.Context, partnerID, transactionID, message string, paidAt time.Time) ([]string, error) {
	exec := getExecutor(ctx, r.db)

	rows, err := exec.QueryContext(ctx,
		`SELECT id FROM remboursements WHERE partenaire_id = ? AND statut = ?`,
		partnerID, entity.StatutEnAttente)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending reimbursements: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending reimbursements: %w", err)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	_, err = exec.ExecContext(ctx, `
		UPDATE remboursements
		SET statut = ?,
			date_remboursement_effectue = ?,
			transaction_id = ?,
			message_paiement = ?,
			updated_at = ?
		WHERE partenaire_id = ? AND statut = ?
	`,
		entity.StatutPaye,
		paidAt,
		nullString(transactionID),
		nullString(message),
		time.Now(),
		partnerID,
		entity.StatutEnAttente,
	)
	if err != nil {
		r.logger.Error("Failed to batch-mark reimbursements paid",
			zap.String("partenaire_id", partnerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to batch-mark paid: %w", err)
	}

	return ids, nil
}

// MarkLate flags a pending reimbursement past its due date
func (r *RemboursementRepository) MarkLate(ctx context.Context, id string) error {
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, `
		UPDATE remboursements
		SET statut = ?, updated_at = ?
		WHERE id = ? AND statut = ?
	`, entity.StatutEnRetard, time.Now(), id, entity.StatutEnAttente)
	if err != nil {
		return fmt.Errorf("failed to mark late: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: remboursement %s not pending", ErrConflict, id)
	}
	return nil
}

// ListLate returns a partner's pending reimbursements past their due date
func (r *RemboursementRepository) ListLate(ctx context.Context, partnerID string, now time.Time) ([]*entity.Reimbursement, error) {
	query := `SELECT ` + remboursementColumns + `
		FROM remboursements
		WHERE partenaire_id = ? AND statut = ? AND date_limite_remboursement < ?`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, partnerID, entity.StatutEnAttente, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list late reimbursements: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// Stats aggregates a partner's reimbursements by status
func (r *RemboursementRepository) Stats(ctx context.Context, partnerID string) (*entity.ReimbursementStats, error) {
	all, err := r.ListByPartner(ctx, partnerID, "")
	if err != nil {
		return nil, err
	}

	stats := &entity.ReimbursementStats{Total: len(all)}
	for _, rb := range all {
		stats.TotalMontant = stats.TotalMontant.Add(rb.Montant)
		stats.TotalFrais = stats.TotalFrais.Add(rb.FraisService)
		switch {
		case entity.IsPendingStatus(rb.Statut):
			stats.EnAttente++
			stats.MontantEnAttente = stats.MontantEnAttente.Add(rb.Montant)
		case rb.Statut == entity.StatutPaye:
			stats.Paye++
			stats.MontantPaye = stats.MontantPaye.Add(rb.Montant)
		case rb.Statut == entity.StatutEnRetard:
			stats.EnRetard++
			stats.MontantEnRetard = stats.MontantEnRetard.Add(rb.Montant)
		case rb.Statut == entity.StatutAnnulee:
			stats.Annule++
		}
	}
	return stats, nil
}

func (r *RemboursementRepository) scanOne(row *sql.Row) (*entity.Reimbursement, error) {
	rb, err := scanRemboursement(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to scan reimbursement", zap.Error(err))
		return nil, fmt.Errorf("failed to get reimbursement: %w", err)
	}
	return rb, nil
}

func (r *RemboursementRepository) scanAll(rows *sql.Rows) ([]*entity.Reimbursement, error) {
	var result []*entity.Reimbursement
	for rows.Next() {
		rb, err := scanRemboursement(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reimbursement: %w", err)
		}
		result = append(result, rb)
	}
	return result, rows.Err()
}

func scanRemboursement(scan func(dest ...interface{}) error) (*entity.Reimbursement, error) {
	var rb entity.Reimbursement
	var payID, advanceID, transactionID, numeroReception, message sql.NullString
	var montant, frais string
	var datePaid, dateCancelled sql.NullTime

	err := scan(
		&rb.ID,
		&payID,
		&rb.Kind,
		&rb.PartnerID,
		&rb.EmployeeID,
		&advanceID,
		&transactionID,
		&rb.Statut,
		&montant,
		&frais,
		&numeroReception,
		&message,
		&rb.DateCreation,
		&rb.DateLimite,
		&datePaid,
		&dateCancelled,
		&rb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rb.PayID = payID.String
	rb.AdvanceID = advanceID.String
	rb.TransactionID = transactionID.String
	rb.NumeroReception = numeroReception.String
	rb.MessagePaiement = message.String
	if datePaid.Valid {
		rb.DatePaid = &datePaid.Time
	}
	if dateCancelled.Valid {
		rb.DateCancelled = &dateCancelled.Time
	}

	if rb.Montant, err = decimal.NewFromString(montant); err != nil {
		return nil, fmt.Errorf("invalid montant %q: %w", montant, err)
	}
	if rb.FraisService, err = decimal.NewFromString(frais); err != nil {
		return nil, fmt.Errorf("invalid frais_service %q: %w", frais, err)
	}

	return &rb, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
