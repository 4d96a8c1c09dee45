package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee belongs to exactly one partner. Deactivation is a flag, not a
// deletion.
type Employee struct {
	ID           string          `json:"id"`
	PartnerID    string          `json:"partner_id"`
	Nom          string          `json:"nom"`
	Prenom       string          `json:"prenom"`
	Email        string          `json:"email,omitempty"`
	Telephone    string          `json:"telephone,omitempty"`
	Poste        string          `json:"poste,omitempty"`
	SalaireNet   decimal.Decimal `json:"salaire_net"`
	Actif        bool            `json:"actif"`
	DateEmbauche *time.Time      `json:"date_embauche,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Partner is the employer organization whose employees receive salary
// advances.
type Partner struct {
	ID          string    `json:"id"`
	CompanyName string    `json:"company_name"`
	HREmail     string    `json:"hr_email,omitempty"`
	RepEmail    string    `json:"rep_email,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
