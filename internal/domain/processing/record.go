package processing

import "time"

// Status is a custom type that represents the state of a processing attempt.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Record is the processor's idempotency ledger entry. Keyed uniquely by
// OrderID at the storage layer; that unique constraint, not application
// logic, is the idempotency guarantee.
type Record struct {
	ID           int64 // DB PK
	OrderID      string
	Status       Status
	ErrorMessage *string // set iff Status == failed
	ProcessedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
