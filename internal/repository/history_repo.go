package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zalama/partner-dashboard/internal/domain/entity"
	"go.uber.org/zap"
)

// HistoryRepository persists the append-only reimbursement audit trail.
// Entries are only ever inserted.
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a history entry
func (r *HistoryRepository) Create(ctx context.Context, h *entity.HistoryEntry) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO historique_remboursements (
			id, remboursement_id, action, description, montant_avant,
			montant_apres, statut_avant, statut_apres, utilisateur_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		h.ID,
		h.RemboursementID,
		h.Action,
		nullString(h.Description),
		nullDecimal(h.MontantAvant),
		nullDecimal(h.MontantApres),
		h.StatutAvant,
		h.StatutApres,
		nullString(h.UtilisateurID),
		h.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create history entry",
			zap.String("remboursement_id", h.RemboursementID),
			zap.String("action", h.Action),
			zap.Error(err))
		return fmt.Errorf("failed to create history entry: %w", err)
	}

	return nil
}

// ListByRemboursement returns a reimbursement's audit trail, newest first
func (r *HistoryRepository) ListByRemboursement(ctx context.Context, remboursementID string) ([]*entity.HistoryEntry, error) {
	query := `
		SELECT id, remboursement_id, action, description, montant_avant,
			montant_apres, statut_avant, statut_apres, utilisateur_id, created_at
		FROM historique_remboursements
		WHERE remboursement_id = ?
		ORDER BY created_at DESC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, remboursementID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var result []*entity.HistoryEntry
	for rows.Next() {
		var h entity.HistoryEntry
		var description, montantAvant, montantApres, userID sql.NullString
		if err := rows.Scan(&h.ID, &h.RemboursementID, &h.Action, &description,
			&montantAvant, &montantApres, &h.StatutAvant, &h.StatutApres, &userID, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		h.Description = description.String
		h.UtilisateurID = userID.String
		if montantAvant.Valid {
			d, err := decimal.NewFromString(montantAvant.String)
			if err != nil {
				return nil, fmt.Errorf("invalid montant_avant: %w", err)
			}
			h.MontantAvant = &d
		}
		if montantApres.Valid {
			d, err := decimal.NewFromString(montantApres.String)
			if err != nil {
				return nil, fmt.Errorf("invalid montant_apres: %w", err)
			}
			h.MontantApres = &d
		}
		result = append(result, &h)
	}
	return result, rows.Err()
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
