package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// History actions.
const (
	ActionStatusSync  = "SYNCHRONISATION_STATUT"
	ActionForceSync   = "SYNCHRONISATION_FORCEE"
	ActionWebhookPaid = "PAIEMENT_WEBHOOK"
	ActionBatchPaid   = "PAIEMENT_LOT"
	ActionMarkedLate  = "MARQUE_EN_RETARD"
)

// HistoryEntry is an append-only audit record for a reimbursement.
// Entries are never mutated or deleted.
type HistoryEntry struct {
	ID              string           `json:"id"`
	RemboursementID string           `json:"remboursement_id"`
	Action          string           `json:"action"`
	Description     string           `json:"description"`
	MontantAvant    *decimal.Decimal `json:"montant_avant,omitempty"`
	MontantApres    *decimal.Decimal `json:"montant_apres,omitempty"`
	StatutAvant     string           `json:"statut_avant"`
	StatutApres     string           `json:"statut_apres"`
	UtilisateurID   string           `json:"utilisateur_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}
