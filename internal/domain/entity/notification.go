package entity

import "time"

// Notification types.
const (
	NotificationSuccess      = "success"
	NotificationError        = "error"
	NotificationInfo         = "info"
	NotificationPaymentCheck = "payment_check"
)

// Notification is an inbox record for a partner. Read/unread only, no
// further lifecycle. Metadata carries type-specific payload (for
// payment_check: pay_id, transaction_id, status).
type Notification struct {
	ID             string            `json:"id"`
	PartnerID      string            `json:"partenaire_id"`
	Titre          string            `json:"titre"`
	Message        string            `json:"message"`
	Type           string            `json:"type"`
	Lu             bool              `json:"lu"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	IdempotencyKey string            `json:"-"`
	CreatedAt      time.Time         `json:"created_at"`
}
