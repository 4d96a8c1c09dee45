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

// EmployeeRepository persists employees
type EmployeeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *sql.DB, logger *zap.Logger) *EmployeeRepository {
	return &EmployeeRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new employee
func (r *EmployeeRepository) Create(ctx context.Context, e *entity.Employee) error {
	now := time.Now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	query := `
		INSERT INTO employees (id, partner_id, nom, prenom, email, telephone, poste,
			salaire_net, actif, date_embauche, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		e.ID,
		e.PartnerID,
		e.Nom,
		e.Prenom,
		nullString(e.Email),
		nullString(e.Telephone),
		nullString(e.Poste),
		e.SalaireNet.String(),
		e.Actif,
		e.DateEmbauche,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create employee",
			zap.String("id", e.ID),
			zap.Error(err))
		return fmt.Errorf("failed to create employee: %w", err)
	}

	return nil
}

// GetByID retrieves an employee
func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*entity.Employee, error) {
	row := getExecutor(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, partner_id, nom, prenom, email, telephone, poste,
			salaire_net, actif, date_embauche, created_at, updated_at
		FROM employees WHERE id = ?
	`, id)

	e, err := scanEmployee(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return e, nil
}

// ListByPartner returns a partner's active employees, most recent first
func (r *EmployeeRepository) ListByPartner(ctx context.Context, partnerID string) ([]*entity.Employee, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, `
		SELECT id, partner_id, nom, prenom, email, telephone, poste,
			salaire_net, actif, date_embauche, created_at, updated_at
		FROM employees
		WHERE partner_id = ? AND actif = 1
		ORDER BY created_at DESC
	`, partnerID)
	if err != nil {
		r.logger.Error("Failed to list employees",
			zap.String("partner_id", partnerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var result []*entity.Employee
	for rows.Next() {
		e, err := scanEmployee(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// Deactivate soft-deletes an employee
func (r *EmployeeRepository) Deactivate(ctx context.Context, id string) error {
	result, err := getExecutor(ctx, r.db).ExecContext(ctx,
		`UPDATE employees SET actif = 0, updated_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate employee: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: employee %s", ErrNotFound, id)
	}
	return nil
}

func scanEmployee(scan func(dest ...interface{}) error) (*entity.Employee, error) {
	var e entity.Employee
	var email, telephone, poste sql.NullString
	var salaire string
	var dateEmbauche sql.NullTime

	err := scan(&e.ID, &e.PartnerID, &e.Nom, &e.Prenom, &email, &telephone, &poste,
		&salaire, &e.Actif, &dateEmbauche, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	e.Email = email.String
	e.Telephone = telephone.String
	e.Poste = poste.String
	if dateEmbauche.Valid {
		e.DateEmbauche = &dateEmbauche.Time
	}

	if e.SalaireNet, err = decimal.NewFromString(salaire); err != nil {
		return nil, fmt.Errorf("invalid salaire_net %q: %w", salaire, err)
	}

	return &e, nil
}
