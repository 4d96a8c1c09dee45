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

// AdvanceRepository persists salary advance requests
type AdvanceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAdvanceRepository creates a new advance repository
func NewAdvanceRepository(db *sql.DB, logger *zap.Logger) *AdvanceRepository {
	return &AdvanceRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new salary advance request
func (r *AdvanceRepository) Create(ctx context.Context, a *entity.SalaryAdvanceRequest) error {
	if a.DateCreation.IsZero() {
		a.DateCreation = time.Now()
	}
	if a.FraisService.IsZero() {
		a.FraisService = entity.ComputeFraisService(a.MontantDemande)
	}
	a.MontantRecu = entity.ComputeMontantRecu(a.MontantDemande, a.FraisService)

	query := `
		INSERT INTO salary_advance_requests (id, partenaire_id, employe_id,
			montant_demande, frais_service, type_motif, motif, statut,
			date_creation, date_validation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		a.ID,
		a.PartnerID,
		a.EmployeeID,
		a.MontantDemande.String(),
		a.FraisService.String(),
		nullString(a.TypeMotif),
		nullString(a.Motif),
		a.Statut,
		a.DateCreation,
		a.DateValidation,
	)
	if err != nil {
		r.logger.Error("Failed to create advance request",
			zap.String("id", a.ID),
			zap.Error(err))
		return fmt.Errorf("failed to create advance request: %w", err)
	}

	return nil
}

// ListByPartner returns a partner's advance requests, newest first
func (r *AdvanceRepository) ListByPartner(ctx context.Context, partnerID string) ([]*entity.SalaryAdvanceRequest, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, `
		SELECT id, partenaire_id, employe_id, montant_demande, frais_service,
			type_motif, motif, statut, date_creation, date_validation
		FROM salary_advance_requests
		WHERE partenaire_id = ?
		ORDER BY date_creation DESC
	`, partnerID)
	if err != nil {
		r.logger.Error("Failed to list advance requests",
			zap.String("partenaire_id", partnerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list advance requests: %w", err)
	}
	defer rows.Close()

	var result []*entity.SalaryAdvanceRequest
	for rows.Next() {
		var a entity.SalaryAdvanceRequest
		var typeMotif, motif sql.NullString
		var montant, frais string
		var dateValidation sql.NullTime
		if err := rows.Scan(&a.ID, &a.PartnerID, &a.EmployeeID, &montant, &frais,
			&typeMotif, &motif, &a.Statut, &a.DateCreation, &dateValidation); err != nil {
			return nil, fmt.Errorf("failed to scan advance request: %w", err)
		}
		a.TypeMotif = typeMotif.String
		a.Motif = motif.String
		if dateValidation.Valid {
			a.DateValidation = &dateValidation.Time
		}
		if a.MontantDemande, err = decimal.NewFromString(montant); err != nil {
			return nil, fmt.Errorf("invalid montant_demande %q: %w", montant, err)
		}
		if a.FraisService, err = decimal.NewFromString(frais); err != nil {
			return nil, fmt.Errorf("invalid frais_service %q: %w", frais, err)
		}
		a.MontantRecu = entity.ComputeMontantRecu(a.MontantDemande, a.FraisService)
		result = append(result, &a)
	}
	return result, rows.Err()
}
