package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomePending  Outcome = "pending"
	OutcomeRejected Outcome = "rejected"
	OutcomeRefunded Outcome = "refunded"
	OutcomeUnknown  Outcome = "unknown"
	OutcomeError    Outcome = "error"
)

type ErrorInfo struct {
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TransactionAuditEntry is one append-only row per processed payment
// delivery. Entries are never updated or deleted.
type TransactionAuditEntry struct {
	ID              uuid.UUID
	PaymentID       string
	Outcome         Outcome
	PaymentSnapshot json.RawMessage
	ErrorInfo       *ErrorInfo
	CreatedAt       time.Time
}
