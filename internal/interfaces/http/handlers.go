package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zalama/partner-dashboard/internal/dashboard"
	"github.com/zalama/partner-dashboard/internal/domain/entity"
	"github.com/zalama/partner-dashboard/internal/export"
	"github.com/zalama/partner-dashboard/internal/lengo"
	"github.com/zalama/partner-dashboard/internal/reconcile"
	"github.com/zalama/partner-dashboard/internal/repository"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	reconciler     *reconcile.Reconciler
	remboursements *repository.RemboursementRepository
	history        *repository.HistoryRepository
	notifications  *repository.NotificationRepository
	employees      *repository.EmployeeRepository
	transactions   *repository.TransactionRepository
	advances       *repository.AdvanceRepository
	partners       *repository.PartnerRepository
	dashboard      *dashboard.Service
	logger         *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	reconciler *reconcile.Reconciler,
	remboursements *repository.RemboursementRepository,
	history *repository.HistoryRepository,
	notifications *repository.NotificationRepository,
	employees *repository.EmployeeRepository,
	transactions *repository.TransactionRepository,
	advances *repository.AdvanceRepository,
	partners *repository.PartnerRepository,
	dashboardService *dashboard.Service,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		reconciler:     reconciler,
		remboursements: remboursements,
		history:        history,
		notifications:  notifications,
		employees:      employees,
		transactions:   transactions,
		advances:       advances,
		partners:       partners,
		dashboard:      dashboardService,
		logger:         logger,
	}
}

// reimbursementView is the status endpoint's enriched reimbursement.
// Employee and partner blocks are best effort; a missing row leaves the
// block null rather than failing the status check.
type reimbursementView struct {
	*entity.Reimbursement
	MethodeRemboursement string          `json:"methode_remboursement"`
	Employe              *entity.Employee `json:"employe,omitempty"`
	Partenaire           *entity.Partner  `json:"partenaire,omitempty"`
}

// statusResponse mirrors the payment status contract: the stored row,
// the provider's live view, and the synchronization outcome. StatutFinal
// tells polling clients they can stop.
type statusResponse struct {
	Remboursement   reimbursementView        `json:"remboursement"`
	LengoStatus     *entity.ProviderSnapshot `json:"lengo_status,omitempty"`
	Synchronisation entity.SyncResult        `json:"synchronisation"`
	StatutFinal     bool                     `json:"statut_final"`
}

// forceSyncResult is the reimbursement block of the force-sync response.
// Unlike the read path, the contract exposes only the synchronization
// delta, not the full row.
type forceSyncResult struct {
	PayID         string `json:"pay_id"`
	AncienStatut  string `json:"ancien_statut"`
	NouveauStatut string `json:"nouveau_statut"`
	Synchronise   bool   `json:"synchronise"`
}

// forceSyncResponse is the POST force-sync contract
type forceSyncResponse struct {
	Success       bool                     `json:"success"`
	Message       string                   `json:"message"`
	Remboursement forceSyncResult          `json:"remboursement"`
	LengoStatus   *entity.ProviderSnapshot `json:"lengo_status,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "partner-dashboard",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// GetReimbursementStatus handles GET /api/v1/remboursements/status/:pay_id.
// The read path degrades: when the provider cannot be reached the stored
// status is returned with statut_synchronise=false.
func (h *Handlers) GetReimbursementStatus(c *gin.Context) {
	payID := c.Param("pay_id")

	report, err := h.reconciler.GetStatus(c.Request.Context(), payID)
	if err != nil {
		h.respondStatusError(c, payID, err, "Erreur lors de la vérification du statut")
		return
	}

	c.JSON(http.StatusOK, h.toStatusResponse(c, report))
}

// ForceSyncReimbursement handles POST /api/v1/remboursements/status/:pay_id.
// Unlike the read path, provider failures are surfaced to the caller.
func (h *Handlers) ForceSyncReimbursement(c *gin.Context) {
	payID := c.Param("pay_id")

	report, err := h.reconciler.ForceSync(c.Request.Context(), payID)
	if err != nil {
		h.respondStatusError(c, payID, err, "Erreur lors de la synchronisation forcée")
		return
	}

	c.JSON(http.StatusOK, forceSyncResponse{
		Success: true,
		Message: "Synchronisation effectuée avec succès",
		Remboursement: forceSyncResult{
			PayID:         report.Remboursement.PayID,
			AncienStatut:  report.Sync.AncienStatut,
			NouveauStatut: report.Sync.NouveauStatut,
			Synchronise:   report.Sync.Synchronise,
		},
		LengoStatus: report.Snapshot,
	})
}

// respondStatusError maps reconciliation errors onto the status contract
func (h *Handlers) respondStatusError(c *gin.Context, payID string, err error, message string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Remboursement non trouvé"})
	case errors.Is(err, lengo.ErrUnauthorized):
		h.logger.Error("Provider rejected credentials", zap.String("pay_id", payID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   message,
			"details": "Authentification Lengo Pay échouée",
		})
	default:
		h.logger.Error("Status check failed", zap.String("pay_id", payID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   message,
			"details": err.Error(),
		})
	}
}

// toStatusResponse enriches a reconciliation report with the employee
// and partner rows referenced by the reimbursement.
func (h *Handlers) toStatusResponse(c *gin.Context, report *reconcile.StatusReport) statusResponse {
	ctx := c.Request.Context()
	view := reimbursementView{
		Reimbursement:        report.Remboursement,
		MethodeRemboursement: "MOBILE_MONEY",
	}

	if report.Remboursement.EmployeeID != "" {
		if employe, err := h.employees.GetByID(ctx, report.Remboursement.EmployeeID); err == nil {
			view.Employe = employe
		}
	}
	if report.Remboursement.PartnerID != "" {
		if partenaire, err := h.partners.GetByID(ctx, report.Remboursement.PartnerID); err == nil {
			view.Partenaire = partenaire
		}
	}

	return statusResponse{
		Remboursement:   view,
		LengoStatus:     report.Snapshot,
		Synchronisation: report.Sync,
		StatutFinal:     entity.IsTerminalStatus(report.Remboursement.Statut),
	}
}

// GetReimbursementHistory handles GET /api/v1/remboursements/:id/historique
func (h *Handlers) GetReimbursementHistory(c *gin.Context) {
	entries, err := h.history.ListByRemboursement(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to list history", zap.String("remboursement_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la récupération de l'historique"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"historique": entries})
}

// ListReimbursements handles GET /api/v1/partenaires/:id/remboursements
func (h *Handlers) ListReimbursements(c *gin.Context) {
	remboursements, err := h.remboursements.ListByPartner(c.Request.Context(), c.Param("id"), c.Query("statut"))
	if err != nil {
		h.logger.Error("Failed to list reimbursements", zap.String("partenaire_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la récupération des remboursements"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"remboursements": remboursements, "total": len(remboursements)})
}

// ExportReimbursements handles GET /api/v1/partenaires/:id/remboursements/export
func (h *Handlers) ExportReimbursements(c *gin.Context) {
	ctx := c.Request.Context()
	partnerID := c.Param("id")

	partner, err := h.partners.GetByID(ctx, partnerID)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Partenaire non trouvé"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to load partner for export", zap.String("partenaire_id", partnerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de l'export"})
		return
	}

	remboursements, err := h.remboursements.ListByPartner(ctx, partnerID, c.Query("statut"))
	if err != nil {
		h.logger.Error("Failed to list reimbursements for export", zap.String("partenaire_id", partnerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de l'export"})
		return
	}

	workbook, err := export.ReimbursementWorkbook(partner.CompanyName, remboursements)
	if err != nil {
		h.logger.Error("Failed to build export workbook", zap.String("partenaire_id", partnerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de l'export"})
		return
	}

	filename := fmt.Sprintf("remboursements_%s_%s.xlsx", partnerID, time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := workbook.Write(c.Writer); err != nil {
		h.logger.Error("Failed to stream export workbook", zap.String("partenaire_id", partnerID), zap.Error(err))
	}
}

// CheckLateReimbursements handles POST /api/v1/partenaires/:id/remboursements/verifier-retards.
// Pending reimbursements past their deadline move to EN_RETARD; rows that
// changed status concurrently are skipped.
func (h *Handlers) CheckLateReimbursements(c *gin.Context) {
	ctx := c.Request.Context()
	partnerID := c.Param("id")

	late, err := h.remboursements.ListLate(ctx, partnerID, time.Now())
	if err != nil {
		h.logger.Error("Failed to list late reimbursements", zap.String("partenaire_id", partnerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la vérification des retards"})
		return
	}

	marked := make([]string, 0, len(late))
	for _, rb := range late {
		if err := h.remboursements.MarkLate(ctx, rb.ID); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				continue
			}
			h.logger.Error("Failed to mark reimbursement late",
				zap.String("remboursement_id", rb.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la vérification des retards"})
			return
		}

		entry := &entity.HistoryEntry{
			ID:              uuid.NewString(),
			RemboursementID: rb.ID,
			Action:          entity.ActionMarkedLate,
			Description:     fmt.Sprintf("Date limite dépassée (%s)", rb.DateLimite.Format("2006-01-02")),
			StatutAvant:     rb.Statut,
			StatutApres:     entity.StatutEnRetard,
		}
		if err := h.history.Create(ctx, entry); err != nil {
			h.logger.Error("Failed to record late-check history entry",
				zap.String("remboursement_id", rb.ID), zap.Error(err))
		}

		marked = append(marked, rb.ID)
	}

	c.JSON(http.StatusOK, gin.H{"marques_en_retard": marked, "total": len(marked)})
}

// ListEmployees handles GET /api/v1/partenaires/:id/employes
func (h *Handlers) ListEmployees(c *gin.Context) {
	employees, err := h.employees.ListByPartner(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to list employees", zap.String("partenaire_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la récupération des employés"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"employes": employees, "total": len(employees)})
}

// ListTransactions handles GET /api/v1/partenaires/:id/transactions
func (h *Handlers) ListTransactions(c *gin.Context) {
	transactions, err := h.transactions.ListByPartner(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to list transactions", zap.String("partenaire_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la récupération des transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions, "total": len(transactions)})
}

// ListAdvanceRequests handles GET /api/v1/partenaires/:id/demandes-avance
func (h *Handlers) ListAdvanceRequests(c *gin.Context) {
	demandes, err := h.advances.ListByPartner(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to list advance requests", zap.String("partenaire_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la récupération des demandes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"demandes": demandes, "total": len(demandes)})
}

// ListNotifications handles GET /api/v1/partenaires/:id/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	notifications, err := h.notifications.ListByPartner(c.Request.Context(), c.Param("id"), 50)
	if err != nil {
		h.logger.Error("Failed to list notifications", zap.String("partenaire_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la récupération des notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications, "total": len(notifications)})
}

// UnreadNotificationCount handles GET /api/v1/partenaires/:id/notifications/non-lues
func (h *Handlers) UnreadNotificationCount(c *gin.Context) {
	count, err := h.notifications.UnreadCount(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to count unread notifications", zap.String("partenaire_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors du comptage des notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"non_lues": count})
}

// MarkNotificationRead handles POST /api/v1/notifications/:id/lu
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification non trouvée"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to mark notification read", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour de la notification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PartnerStats handles GET /api/v1/partenaires/:id/stats
func (h *Handlers) PartnerStats(c *gin.Context) {
	overview, err := h.dashboard.PartnerOverview(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors du calcul des statistiques"})
		return
	}

	c.JSON(http.StatusOK, overview)
}
