package models

import (
	"time"

	"github.com/mmynk/roommates/internal/money"
)

// Ledger is the per-expense-group aggregate: who is in the group, what each
// member is owed or owes, and the ordered history of transactions that
// produced those balances.
type Ledger struct {
	// ID is the unique identifier for the expense group (UUID format).
	ID string

	// GroupID is the roommate group that owns this ledger.
	GroupID string

	// Name is the display name of the expense group (e.g., "Utilities").
	// Unique within a GroupID.
	Name string

	// Members is the list of member IDs in creation order.
	Members []string

	// Balances maps member ID to net balance.
	// Positive = member is owed money, negative = member owes money.
	// The values always sum to exactly zero.
	Balances map[string]money.Cents

	// Transactions is the application-ordered history. Entries are never
	// removed; invalidation only changes their status.
	Transactions []Transaction

	// Version is the optimistic concurrency counter checked on save.
	Version int64

	// CreatedAt is when the ledger was created.
	CreatedAt time.Time

	// ModifiedAt is when the ledger was last saved.
	ModifiedAt time.Time
}

// HasMember reports whether id has an entry in the balance map.
func (l *Ledger) HasMember(id string) bool {
	_, ok := l.Balances[id]
	return ok
}
