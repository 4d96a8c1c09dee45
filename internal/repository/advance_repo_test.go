package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zalama/partner-dashboard/internal/domain/entity"
)

func TestAdvanceRepository_DerivedAmounts(t *testing.T) {
	db := setupTestDB(t)
	partnerID, employeeID := seedPartnerAndEmployee(t, db)
	repo := NewAdvanceRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	a := &entity.SalaryAdvanceRequest{
		ID:             "adv-1",
		PartnerID:      partnerID,
		EmployeeID:     employeeID,
		MontantDemande: decimal.NewFromInt(100000),
		Statut:         "En attente",
	}
	require.NoError(t, repo.Create(ctx, a))

	// The fee defaults to 6.5% and the received amount is derived.
	assert.Equal(t, "6500", a.FraisService.String())
	assert.Equal(t, "93500", a.MontantRecu.String())

	listed, err := repo.ListByPartner(ctx, partnerID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "6500", listed[0].FraisService.String())
	assert.Equal(t, "93500", listed[0].MontantRecu.String())
}
