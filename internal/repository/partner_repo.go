package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/zalama/partner-dashboard/internal/domain/entity"
	"go.uber.org/zap"
)

// PartnerRepository persists partners
type PartnerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPartnerRepository creates a new partner repository
func NewPartnerRepository(db *sql.DB, logger *zap.Logger) *PartnerRepository {
	return &PartnerRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new partner
func (r *PartnerRepository) Create(ctx context.Context, p *entity.Partner) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.Status == "" {
		p.Status = "approved"
	}

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO partners (id, company_name, hr_email, rep_email, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.CompanyName, nullString(p.HREmail), nullString(p.RepEmail), p.Status, p.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create partner",
			zap.String("id", p.ID),
			zap.Error(err))
		return fmt.Errorf("failed to create partner: %w", err)
	}

	return nil
}

// GetByID retrieves a partner
func (r *PartnerRepository) GetByID(ctx context.Context, id string) (*entity.Partner, error) {
	var p entity.Partner
	var hrEmail, repEmail sql.NullString

	err := getExecutor(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, company_name, hr_email, rep_email, status, created_at
		FROM partners WHERE id = ?
	`, id).Scan(&p.ID, &p.CompanyName, &hrEmail, &repEmail, &p.Status, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}

	p.HREmail = hrEmail.String
	p.RepEmail = repEmail.String
	return &p, nil
}
