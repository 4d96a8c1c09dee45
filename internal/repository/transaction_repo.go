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

// TransactionRepository persists financial transactions
type TransactionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sql.DB, logger *zap.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new financial transaction
func (r *TransactionRepository) Create(ctx context.Context, t *entity.Transaction) error {
	if t.DateTransaction.IsZero() {
		t.DateTransaction = time.Now()
	}

	query := `
		INSERT INTO financial_transactions (id, partenaire_id, employe_id,
			numero_transaction, type, statut, montant, methode_paiement, date_transaction)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		t.ID,
		t.PartnerID,
		nullString(t.EmployeeID),
		nullString(t.NumeroTransaction),
		t.Type,
		t.Statut,
		t.Montant.String(),
		nullString(t.MethodePaiement),
		t.DateTransaction,
	)
	if err != nil {
		r.logger.Error("Failed to create transaction",
			zap.String("id", t.ID),
			zap.Error(err))
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// ListByPartner returns a partner's transactions, newest first
func (r *TransactionRepository) ListByPartner(ctx context.Context, partnerID string) ([]*entity.Transaction, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, `
		SELECT id, partenaire_id, employe_id, numero_transaction, type, statut,
			montant, methode_paiement, date_transaction
		FROM financial_transactions
		WHERE partenaire_id = ?
		ORDER BY date_transaction DESC
	`, partnerID)
	if err != nil {
		r.logger.Error("Failed to list transactions",
			zap.String("partenaire_id", partnerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var result []*entity.Transaction
	for rows.Next() {
		var t entity.Transaction
		var employeeID, numero, methode sql.NullString
		var montant string
		if err := rows.Scan(&t.ID, &t.PartnerID, &employeeID, &numero, &t.Type,
			&t.Statut, &montant, &methode, &t.DateTransaction); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.EmployeeID = employeeID.String
		t.NumeroTransaction = numero.String
		t.MethodePaiement = methode.String
		if t.Montant, err = decimal.NewFromString(montant); err != nil {
			return nil, fmt.Errorf("invalid montant %q: %w", montant, err)
		}
		result = append(result, &t)
	}
	return result, rows.Err()
}
