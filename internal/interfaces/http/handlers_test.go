package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zalama/partner-dashboard/internal/dashboard"
	"github.com/zalama/partner-dashboard/internal/domain/entity"
	"github.com/zalama/partner-dashboard/internal/reconcile"
	"github.com/zalama/partner-dashboard/internal/repository"
	"github.com/zalama/partner-dashboard/pkg/database"
)

// stubProvider returns a fixed snapshot for every status check
type stubProvider struct {
	snapshot *entity.ProviderSnapshot
	err      error
}

func (s *stubProvider) CheckStatus(ctx context.Context, payID string) (*entity.ProviderSnapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshot, nil
}

func setupStatusRouter(t *testing.T, provider *stubProvider) *gin.Engine {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrator(db, logger).RunMigrations())

	remboursements := repository.NewRemboursementRepository(db.DB, logger)
	history := repository.NewHistoryRepository(db.DB, logger)
	notifications := repository.NewNotificationRepository(db.DB, logger)
	employees := repository.NewEmployeeRepository(db.DB, logger)
	transactions := repository.NewTransactionRepository(db.DB, logger)
	advances := repository.NewAdvanceRepository(db.DB, logger)
	partners := repository.NewPartnerRepository(db.DB, logger)

	ctx := context.Background()
	require.NoError(t, partners.Create(ctx, &entity.Partner{ID: "partner-1", CompanyName: "Société Test"}))
	require.NoError(t, employees.Create(ctx, &entity.Employee{
		ID: "emp-1", PartnerID: "partner-1", Nom: "Diallo", Prenom: "Aminata",
		SalaireNet: decimal.NewFromInt(3000000), Actif: true,
	}))
	require.NoError(t, remboursements.Create(ctx, &entity.Reimbursement{
		ID:           "rb-1",
		PayID:        "pay-1",
		Kind:         entity.KindStandard,
		PartnerID:    "partner-1",
		EmployeeID:   "emp-1",
		Statut:       entity.StatutEnAttente,
		Montant:      decimal.NewFromInt(500000),
		FraisService: decimal.NewFromInt(32500),
		DateLimite:   time.Now().AddDate(0, 1, 0),
	}))

	reconciler := reconcile.NewReconciler(remboursements, history, provider, logger)
	dashboardService := dashboard.NewService(employees, transactions, advances, remboursements, notifications, logger)
	handlers := NewHandlers(reconciler, remboursements, history, notifications,
		employees, transactions, advances, partners, dashboardService, logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/v1/remboursements/status/:pay_id", handlers.GetReimbursementStatus)
	router.POST("/api/v1/remboursements/status/:pay_id", handlers.ForceSyncReimbursement)
	return router
}

func doStatus(t *testing.T, router *gin.Engine, method, payID string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, "/api/v1/remboursements/status/"+payID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestGetReimbursementStatus(t *testing.T) {
	t.Run("returns the full row with synchronization outcome", func(t *testing.T) {
		router := setupStatusRouter(t, &stubProvider{
			snapshot: &entity.ProviderSnapshot{Status: "SUCCESS", PayID: "pay-1"},
		})

		w, body := doStatus(t, router, http.MethodGet, "pay-1")
		require.Equal(t, http.StatusOK, w.Code)

		rb, ok := body["remboursement"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "pay-1", rb["pay_id"])
		assert.Equal(t, entity.StatutPaye, rb["statut"])
		assert.Equal(t, "MOBILE_MONEY", rb["methode_remboursement"])
		require.NotNil(t, rb["employe"])
		require.NotNil(t, rb["partenaire"])

		sync, ok := body["synchronisation"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, true, sync["statut_synchronise"])
		assert.Equal(t, entity.StatutEnAttente, sync["ancien_statut"])
		assert.Equal(t, entity.StatutPaye, sync["nouveau_statut"])

		assert.Equal(t, true, body["statut_final"])
	})

	t.Run("flags a non-terminal status for further polling", func(t *testing.T) {
		router := setupStatusRouter(t, &stubProvider{
			snapshot: &entity.ProviderSnapshot{Status: "PENDING", PayID: "pay-1"},
		})

		w, body := doStatus(t, router, http.MethodGet, "pay-1")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, body["statut_final"])
	})

	t.Run("unknown pay_id returns 404", func(t *testing.T) {
		router := setupStatusRouter(t, &stubProvider{
			snapshot: &entity.ProviderSnapshot{Status: "SUCCESS"},
		})

		w, body := doStatus(t, router, http.MethodGet, "missing")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Remboursement non trouvé", body["error"])
	})
}

func TestForceSyncReimbursement(t *testing.T) {
	t.Run("returns the force-sync contract, not the read shape", func(t *testing.T) {
		router := setupStatusRouter(t, &stubProvider{
			snapshot: &entity.ProviderSnapshot{Status: "SUCCESS", PayID: "pay-1"},
		})

		w, body := doStatus(t, router, http.MethodPost, "pay-1")
		require.Equal(t, http.StatusOK, w.Code)

		assert.Equal(t, true, body["success"])
		assert.Equal(t, "Synchronisation effectuée avec succès", body["message"])

		rb, ok := body["remboursement"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "pay-1", rb["pay_id"])
		assert.Equal(t, entity.StatutEnAttente, rb["ancien_statut"])
		assert.Equal(t, entity.StatutPaye, rb["nouveau_statut"])
		assert.Equal(t, true, rb["synchronise"])

		// The delta block carries no stored-row fields.
		assert.NotContains(t, rb, "montant_total_remboursement")
		assert.NotContains(t, rb, "statut")
		assert.NotContains(t, body, "synchronisation")

		lengoStatus, ok := body["lengo_status"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "SUCCESS", lengoStatus["status"])
	})

	t.Run("reports synchronise even when the status is unchanged", func(t *testing.T) {
		router := setupStatusRouter(t, &stubProvider{
			snapshot: &entity.ProviderSnapshot{Status: "PENDING", PayID: "pay-1"},
		})

		// First call moves the row to EN_COURS, second re-applies it.
		_, _ = doStatus(t, router, http.MethodPost, "pay-1")
		w, body := doStatus(t, router, http.MethodPost, "pay-1")
		require.Equal(t, http.StatusOK, w.Code)

		rb := body["remboursement"].(map[string]interface{})
		assert.Equal(t, entity.StatutEnCours, rb["ancien_statut"])
		assert.Equal(t, entity.StatutEnCours, rb["nouveau_statut"])
		assert.Equal(t, true, rb["synchronise"])
	})

	t.Run("provider failure is fatal and names the forced sync", func(t *testing.T) {
		router := setupStatusRouter(t, &stubProvider{err: context.DeadlineExceeded})

		w, body := doStatus(t, router, http.MethodPost, "pay-1")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Erreur lors de la synchronisation forcée", body["error"])
	})
}
