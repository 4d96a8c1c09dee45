package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reimbursement statuses as stored in the database.
const (
	StatutEnAttente = "EN_ATTENTE" // awaiting payment
	StatutEnCours   = "EN_COURS"   // provider reported PENDING, payment in flight
	StatutPaye      = "PAYE"
	StatutEnRetard  = "EN_RETARD"
	StatutAnnulee   = "ANNULEE"
)

// Reimbursement kinds. Standard rows come from the remboursements flow,
// integral rows from the full-salary advance flow; both share one table
// and one reconciliation path.
const (
	KindStandard = "STANDARD"
	KindIntegral = "INTEGRAL"
)

// IsTerminalStatus reports whether a status ends the payment lifecycle.
// Polling clients stop once a terminal status is observed.
func IsTerminalStatus(statut string) bool {
	return statut == StatutPaye || statut == StatutAnnulee
}

// IsPendingStatus reports whether a status still counts as awaiting payment.
// EN_COURS is stored distinctly but behaves as pending for polling and stats.
func IsPendingStatus(statut string) bool {
	return statut == StatutEnAttente || statut == StatutEnCours
}

// Reimbursement is an obligation for an employee's salary advance to be
// repaid to the lending partner. PayID is the provider correlation key,
// immutable once assigned.
type Reimbursement struct {
	ID              string          `json:"id"`
	PayID           string          `json:"pay_id"`
	Kind            string          `json:"type_remboursement"`
	PartnerID       string          `json:"partenaire_id"`
	EmployeeID      string          `json:"employe_id"`
	AdvanceID       string          `json:"demande_avance_id,omitempty"`
	TransactionID   string          `json:"transaction_id,omitempty"`
	Statut          string          `json:"statut"`
	Montant         decimal.Decimal `json:"montant_total_remboursement"`
	FraisService    decimal.Decimal `json:"frais_service"`
	NumeroReception string          `json:"numero_reception,omitempty"`
	MessagePaiement string          `json:"message_paiement,omitempty"`
	DateCreation    time.Time       `json:"date_creation"`
	DateLimite      time.Time       `json:"date_limite_remboursement"`
	DatePaid        *time.Time      `json:"date_remboursement_effectue,omitempty"`
	DateCancelled   *time.Time      `json:"date_annulation,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ProviderSnapshot is the provider's view of a payment at query time.
// It is never persisted; every check recomputes it.
type ProviderSnapshot struct {
	Status string          `json:"status"`
	PayID  string          `json:"pay_id"`
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Phone  string          `json:"phone,omitempty"`
}

// SyncResult is the delta between the stored status and the
// provider-resolved status for one reconciliation attempt.
type SyncResult struct {
	Synchronise   bool   `json:"statut_synchronise"`
	AncienStatut  string `json:"ancien_statut"`
	NouveauStatut string `json:"nouveau_statut"`
}

// ReimbursementStats aggregates a partner's reimbursements by status.
type ReimbursementStats struct {
	Total            int             `json:"total_remboursements"`
	TotalMontant     decimal.Decimal `json:"total_montant"`
	TotalFrais       decimal.Decimal `json:"total_frais_service"`
	EnAttente        int             `json:"en_attente"`
	Paye             int             `json:"paye"`
	EnRetard         int             `json:"en_retard"`
	Annule           int             `json:"annule"`
	MontantEnAttente decimal.Decimal `json:"montant_en_attente"`
	MontantPaye      decimal.Decimal `json:"montant_paye"`
	MontantEnRetard  decimal.Decimal `json:"montant_en_retard"`
}
