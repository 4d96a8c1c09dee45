package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceFeeRate is applied to every salary advance (6.5%).
var ServiceFeeRate = decimal.NewFromFloat(0.065)

// SalaryAdvanceRequest is the originating request behind a reimbursement.
// MontantRecu is derived from the requested amount and fee, never stored.
type SalaryAdvanceRequest struct {
	ID             string          `json:"id"`
	PartnerID      string          `json:"partenaire_id"`
	EmployeeID     string          `json:"employe_id"`
	MontantDemande decimal.Decimal `json:"montant_demande"`
	FraisService   decimal.Decimal `json:"frais_service"`
	MontantRecu    decimal.Decimal `json:"montant_recu"`
	TypeMotif      string          `json:"type_motif,omitempty"`
	Motif          string          `json:"motif,omitempty"`
	Statut         string          `json:"statut"`
	DateCreation   time.Time       `json:"date_creation"`
	DateValidation *time.Time      `json:"date_validation,omitempty"`
}

// ComputeFraisService returns the service fee for a requested amount.
func ComputeFraisService(montantDemande decimal.Decimal) decimal.Decimal {
	return montantDemande.Mul(ServiceFeeRate).Round(2)
}

// ComputeMontantRecu returns what the employee actually receives.
func ComputeMontantRecu(montantDemande, fraisService decimal.Decimal) decimal.Decimal {
	return montantDemande.Sub(fraisService)
}
