package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusRejected PaymentStatus = "rejected"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusUnknown  PaymentStatus = "unknown"
)

// ParsePaymentStatus maps a provider status string onto the statuses the
// settlement pipeline routes on. Anything unrecognized collapses to unknown.
func ParsePaymentStatus(s string) PaymentStatus {
	switch status := PaymentStatus(s); status {
	case PaymentStatusApproved, PaymentStatusPending, PaymentStatusRejected, PaymentStatusRefunded:
		return status
	default:
		return PaymentStatusUnknown
	}
}

// Payer is the optional customer contact information attached to a payment.
// Empty fields stay empty; they are never defaulted to placeholders.
type Payer struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type LineItem struct {
	ExternalID string          `json:"external_id"`
	Title      string          `json:"title"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// PaymentRecord is the authoritative payment detail fetched from the provider
// by ID after signature verification. Financial fields are never read from
// the webhook body, only from this record.
type PaymentRecord struct {
	ID              string          `json:"id"`
	Status          PaymentStatus   `json:"status"`
	StatusDetail    string          `json:"status_detail,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	PaymentMethodID string          `json:"payment_method_id,omitempty"`
	Payer           Payer           `json:"payer"`
	LineItems       []LineItem      `json:"line_items,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
}
