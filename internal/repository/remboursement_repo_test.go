package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zalama/partner-dashboard/internal/domain/entity"
	"github.com/zalama/partner-dashboard/pkg/database"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(db, zap.NewNop()).RunMigrations())
	return db
}

func seedPartnerAndEmployee(t *testing.T, db *database.DB) (string, string) {
	t.Helper()
	ctx := context.Background()

	partners := NewPartnerRepository(db.DB, zap.NewNop())
	require.NoError(t, partners.Create(ctx, &entity.Partner{
		ID:          "partner-1",
		CompanyName: "Société Test SARL",
	}))

	employees := NewEmployeeRepository(db.DB, zap.NewNop())
	require.NoError(t, employees.Create(ctx, &entity.Employee{
		ID:         "emp-1",
		PartnerID:  "partner-1",
		Nom:        "Diallo",
		Prenom:     "Aminata",
		SalaireNet: decimal.NewFromInt(3000000),
		Actif:      true,
	}))

	return "partner-1", "emp-1"
}

func newReimbursement(partnerID, employeeID, payID string) *entity.Reimbursement {
	return &entity.Reimbursement{
		ID:           "rb-" + payID,
		PayID:        payID,
		Kind:         entity.KindStandard,
		PartnerID:    partnerID,
		EmployeeID:   employeeID,
		Statut:       entity.StatutEnAttente,
		Montant:      decimal.NewFromInt(500000),
		FraisService: decimal.NewFromInt(32500),
		DateLimite:   time.Now().AddDate(0, 1, 0),
	}
}

func TestRemboursementRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	partnerID, employeeID := seedPartnerAndEmployee(t, db)
	repo := NewRemboursementRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	t.Run("round-trips a reimbursement through pay_id", func(t *testing.T) {
		rb := newReimbursement(partnerID, employeeID, "pay-1")
		require.NoError(t, repo.Create(ctx, rb))

		got, err := repo.GetByPayID(ctx, "pay-1")
		require.NoError(t, err)
		assert.Equal(t, rb.ID, got.ID)
		assert.Equal(t, entity.StatutEnAttente, got.Statut)
		assert.Equal(t, "500000", got.Montant.String())
		assert.Nil(t, got.DatePaid)
	})

	t.Run("duplicate pay_id returns ErrDuplicate", func(t *testing.T) {
		rb := newReimbursement(partnerID, employeeID, "pay-1")
		rb.ID = "rb-other"
		assert.ErrorIs(t, repo.Create(ctx, rb), ErrDuplicate)
	})

	t.Run("unknown pay_id returns ErrNotFound", func(t *testing.T) {
		_, err := repo.GetByPayID(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRemboursementRepository_UpdateStatusByPayID(t *testing.T) {
	db := setupTestDB(t)
	partnerID, employeeID := seedPartnerAndEmployee(t, db)
	repo := NewRemboursementRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newReimbursement(partnerID, employeeID, "pay-cas")))

	t.Run("applies the update when the expected status matches", func(t *testing.T) {
		paidAt := time.Now()
		err := repo.UpdateStatusByPayID(ctx, "pay-cas", entity.StatutEnAttente, StatusUpdate{
			Statut:          entity.StatutPaye,
			DatePaid:        &paidAt,
			NumeroReception: "622000000",
		})
		require.NoError(t, err)

		got, err := repo.GetByPayID(ctx, "pay-cas")
		require.NoError(t, err)
		assert.Equal(t, entity.StatutPaye, got.Statut)
		require.NotNil(t, got.DatePaid)
		assert.Equal(t, "622000000", got.NumeroReception)
	})

	t.Run("stale expected status returns ErrConflict", func(t *testing.T) {
		err := repo.UpdateStatusByPayID(ctx, "pay-cas", entity.StatutEnAttente, StatusUpdate{
			Statut: entity.StatutAnnulee,
		})
		assert.ErrorIs(t, err, ErrConflict)

		got, err := repo.GetByPayID(ctx, "pay-cas")
		require.NoError(t, err)
		assert.Equal(t, entity.StatutPaye, got.Statut)
	})

	t.Run("leaving PAYE clears the paid timestamp", func(t *testing.T) {
		err := repo.UpdateStatusByPayID(ctx, "pay-cas", entity.StatutPaye, StatusUpdate{
			Statut: entity.StatutEnAttente,
		})
		require.NoError(t, err)

		got, err := repo.GetByPayID(ctx, "pay-cas")
		require.NoError(t, err)
		assert.Equal(t, entity.StatutEnAttente, got.Statut)
		assert.Nil(t, got.DatePaid)
	})
}

func TestRemboursementRepository_ForceStatusByPayID(t *testing.T) {
	db := setupTestDB(t)
	partnerID, employeeID := seedPartnerAndEmployee(t, db)
	repo := NewRemboursementRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newReimbursement(partnerID, employeeID, "pay-force")))

	t.Run("writes without a status guard", func(t *testing.T) {
		now := time.Now()
		err := repo.ForceStatusByPayID(ctx, "pay-force", StatusUpdate{
			Statut:        entity.StatutAnnulee,
			DateCancelled: &now,
		})
		require.NoError(t, err)

		got, err := repo.GetByPayID(ctx, "pay-force")
		require.NoError(t, err)
		assert.Equal(t, entity.StatutAnnulee, got.Statut)
		require.NotNil(t, got.DateCancelled)
	})

	t.Run("unknown pay_id returns ErrNotFound", func(t *testing.T) {
		assert.ErrorIs(t, repo.ForceStatusByPayID(ctx, "missing", StatusUpdate{Statut: entity.StatutPaye}), ErrNotFound)
	})
}

func TestRemboursementRepository_MarkPaidBatch(t *testing.T) {
	db := setupTestDB(t)
	partnerID, employeeID := seedPartnerAndEmployee(t, db)
	repo := NewRemboursementRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newReimbursement(partnerID, employeeID, "pay-b1")))
	require.NoError(t, repo.Create(ctx, newReimbursement(partnerID, employeeID, "pay-b2")))
	paid := newReimbursement(partnerID, employeeID, "pay-b3")
	paid.Statut = entity.StatutPaye
	require.NoError(t, repo.Create(ctx, paid))

	paidAt := time.Now()
	var ids []string
	require.NoError(t, db.WithTransaction(func(tx *sql.Tx) error {
		var err error
		ids, err = repo.MarkPaidBatch(WithTx(ctx, tx), partnerID, "tx-batch", "Paiement en lot", paidAt)
		return err
	}))

	assert.ElementsMatch(t, []string{"rb-pay-b1", "rb-pay-b2"}, ids)

	for _, payID := range []string{"pay-b1", "pay-b2"} {
		got, err := repo.GetByPayID(ctx, payID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatutPaye, got.Statut)
		assert.Equal(t, "tx-batch", got.TransactionID)
		require.NotNil(t, got.DatePaid)
	}

	t.Run("rollback leaves no partial batch", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, newReimbursement(partnerID, employeeID, "pay-b4")))

		err := db.WithTransaction(func(tx *sql.Tx) error {
			_, err := repo.MarkPaidBatch(WithTx(ctx, tx), partnerID, "tx-fail", "", time.Now())
			require.NoError(t, err)
			return errors.New("history write failed")
		})
		assert.Error(t, err)

		got, err := repo.GetByPayID(ctx, "pay-b4")
		require.NoError(t, err)
		assert.Equal(t, entity.StatutEnAttente, got.Statut)
	})

	t.Run("no pending rows yields an empty batch", func(t *testing.T) {
		require.NoError(t, db.WithTransaction(func(tx *sql.Tx) error {
			got, err := repo.MarkPaidBatch(WithTx(ctx, tx), partnerID, "tx-empty", "", time.Now())
			assert.Empty(t, got)
			return err
		}))
	})
}

func TestRemboursementRepository_LateHandling(t *testing.T) {
	db := setupTestDB(t)
	partnerID, employeeID := seedPartnerAndEmployee(t, db)
	repo := NewRemboursementRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	overdue := newReimbursement(partnerID, employeeID, "pay-late")
	overdue.DateLimite = time.Now().AddDate(0, 0, -3)
	require.NoError(t, repo.Create(ctx, overdue))
	require.NoError(t, repo.Create(ctx, newReimbursement(partnerID, employeeID, "pay-ontime")))

	late, err := repo.ListLate(ctx, partnerID, time.Now())
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, "rb-pay-late", late[0].ID)

	require.NoError(t, repo.MarkLate(ctx, late[0].ID))
	got, err := repo.GetByPayID(ctx, "pay-late")
	require.NoError(t, err)
	assert.Equal(t, entity.StatutEnRetard, got.Statut)

	// A second marking finds the row no longer pending.
	assert.ErrorIs(t, repo.MarkLate(ctx, late[0].ID), ErrConflict)
}

func TestRemboursementRepository_Stats(t *testing.T) {
	db := setupTestDB(t)
	partnerID, employeeID := seedPartnerAndEmployee(t, db)
	repo := NewRemboursementRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	pending := newReimbursement(partnerID, employeeID, "pay-s1")
	require.NoError(t, repo.Create(ctx, pending))

	enCours := newReimbursement(partnerID, employeeID, "pay-s2")
	enCours.Statut = entity.StatutEnCours
	require.NoError(t, repo.Create(ctx, enCours))

	paid := newReimbursement(partnerID, employeeID, "pay-s3")
	paid.Statut = entity.StatutPaye
	paid.Montant = decimal.NewFromInt(200000)
	require.NoError(t, repo.Create(ctx, paid))

	stats, err := repo.Stats(ctx, partnerID)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	// EN_COURS counts as pending.
	assert.Equal(t, 2, stats.EnAttente)
	assert.Equal(t, 1, stats.Paye)
	assert.Equal(t, "1000000", stats.MontantEnAttente.String())
	assert.Equal(t, "200000", stats.MontantPaye.String())
	assert.Equal(t, "1200000", stats.TotalMontant.String())
}
