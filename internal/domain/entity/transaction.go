package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Financial transaction types.
const (
	TransactionDebloque      = "Débloqué"
	TransactionRecupere      = "Récupéré"
	TransactionRevenu        = "Revenu"
	TransactionRemboursement = "Remboursement"
	TransactionCommission    = "Commission"
)

// Financial transaction statuses.
const (
	TransactionValide    = "Validé"
	TransactionEnAttente = "En attente"
	TransactionRejete    = "Rejeté"
)

// Transaction is a financial movement recorded against a partner,
// optionally tied to an employee.
type Transaction struct {
	ID                string          `json:"id"`
	PartnerID         string          `json:"partenaire_id"`
	EmployeeID        string          `json:"employe_id,omitempty"`
	NumeroTransaction string          `json:"numero_transaction,omitempty"`
	Type              string          `json:"type"`
	Statut            string          `json:"statut"`
	Montant           decimal.Decimal `json:"montant"`
	MethodePaiement   string          `json:"methode_paiement,omitempty"`
	DateTransaction   time.Time       `json:"date_transaction"`
}

// FinancialStats aggregates validated transactions for a partner.
type FinancialStats struct {
	TotalDebloque       decimal.Decimal  `json:"total_debloque"`
	TotalRecupere       decimal.Decimal  `json:"total_recupere"`
	TotalRevenus        decimal.Decimal  `json:"total_revenus"`
	TotalRemboursements decimal.Decimal  `json:"total_remboursements"`
	TotalCommissions    decimal.Decimal  `json:"total_commissions"`
	TotalTransactions   int              `json:"total_transactions"`
	MontantMoyen        decimal.Decimal  `json:"montant_moyen"`
	Balance             decimal.Decimal  `json:"balance"`
	PendingTransactions int              `json:"pending_transactions"`
	EvolutionMensuelle  []MonthlyBalance `json:"evolution_mensuelle"`
}

// MonthlyBalance is one month of the financial evolution series.
type MonthlyBalance struct {
	Mois     string          `json:"mois"`
	Debloque decimal.Decimal `json:"debloque"`
	Recupere decimal.Decimal `json:"recupere"`
	Revenus  decimal.Decimal `json:"revenus"`
	Balance  decimal.Decimal `json:"balance"`
}
