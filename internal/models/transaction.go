package models

import (
	"time"

	"github.com/mmynk/roommates/internal/money"
)

// Status is the lifecycle state of a transaction.
type Status string

const (
	StatusActive      Status = "active"
	StatusInvalidated Status = "invalidated"
)

// Transaction represents a single expense: one payer fronted Amount and
// the owers each owe their share.
type Transaction struct {
	// ID is the unique identifier for the transaction (TypeID, "txn_" prefix).
	ID string

	// Payer is the member who fronted the money (the "owee").
	Payer string

	// Owers is the ordered list of members who owe a share.
	// Duplicates are allowed; each occurrence is a separate share.
	Owers []string

	// Amount is the total cost.
	Amount money.Cents

	// Shares holds the debit applied to each Owers position, recorded when
	// the transaction was applied. Shares[i] belongs to Owers[i].
	Shares []Share

	// Description is free-form text (e.g., "Groceries").
	Description string

	// CreatedAt is when the transaction was applied.
	CreatedAt time.Time

	Status Status

	// InvalidatedBy is the member who invalidated the transaction.
	InvalidatedBy string

	// InvalidatedReason is the reason given for invalidation.
	InvalidatedReason string

	// InvalidatedAt is when the transaction was invalidated.
	InvalidatedAt time.Time
}

// Share is one ower's debit within a transaction.
type Share struct {
	Member string
	Amount money.Cents
}

// IsActive reports whether the transaction still affects balances.
func (t *Transaction) IsActive() bool {
	return t.Status == StatusActive
}
