package dashboard

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalama/partner-dashboard/internal/domain/entity"
)

func tx(typ, statut string, montant int64, date time.Time) *entity.Transaction {
	return &entity.Transaction{
		Type:            typ,
		Statut:          statut,
		Montant:         decimal.NewFromInt(montant),
		DateTransaction: date,
	}
}

func TestFinancialStatsFrom(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	t.Run("empty input yields zeroed stats with twelve months", func(t *testing.T) {
		stats := FinancialStatsFrom(nil, now)

		assert.Equal(t, 0, stats.TotalTransactions)
		assert.True(t, stats.Balance.IsZero())
		assert.True(t, stats.MontantMoyen.IsZero())
		require.Len(t, stats.EvolutionMensuelle, 12)
		assert.Equal(t, "Jan", stats.EvolutionMensuelle[0].Mois)
		assert.Equal(t, "Déc", stats.EvolutionMensuelle[11].Mois)
	})

	t.Run("only validated transactions count toward totals", func(t *testing.T) {
		stats := FinancialStatsFrom([]*entity.Transaction{
			tx(entity.TransactionDebloque, entity.TransactionValide, 100000, now),
			tx(entity.TransactionDebloque, entity.TransactionEnAttente, 50000, now),
			tx(entity.TransactionDebloque, entity.TransactionRejete, 25000, now),
		}, now)

		assert.Equal(t, "100000", stats.TotalDebloque.String())
		assert.Equal(t, 3, stats.TotalTransactions)
		assert.Equal(t, 1, stats.PendingTransactions)
	})

	t.Run("balance combines the four flows", func(t *testing.T) {
		stats := FinancialStatsFrom([]*entity.Transaction{
			tx(entity.TransactionDebloque, entity.TransactionValide, 500000, now),
			tx(entity.TransactionRecupere, entity.TransactionValide, 200000, now),
			tx(entity.TransactionRevenu, entity.TransactionValide, 30000, now),
			tx(entity.TransactionRemboursement, entity.TransactionValide, 100000, now),
			tx(entity.TransactionCommission, entity.TransactionValide, 15000, now),
		}, now)

		// 500000 - 200000 + 30000 - 100000
		assert.Equal(t, "230000", stats.Balance.String())
		assert.Equal(t, "15000", stats.TotalCommissions.String())
		assert.Equal(t, "169000", stats.MontantMoyen.String())
	})

	t.Run("monthly evolution only covers the current year", func(t *testing.T) {
		lastYear := now.AddDate(-1, 0, 0)
		stats := FinancialStatsFrom([]*entity.Transaction{
			tx(entity.TransactionDebloque, entity.TransactionValide, 100000, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)),
			tx(entity.TransactionRecupere, entity.TransactionValide, 40000, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)),
			tx(entity.TransactionDebloque, entity.TransactionValide, 999999, lastYear),
		}, now)

		mars := stats.EvolutionMensuelle[2]
		assert.Equal(t, "Mar", mars.Mois)
		assert.Equal(t, "100000", mars.Debloque.String())
		assert.Equal(t, "60000", mars.Balance.String())

		// The previous year's amount still counts in the overall total.
		assert.Equal(t, "1099999", stats.TotalDebloque.String())
	})
}
