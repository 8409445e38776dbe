// Package events publishes ledger changes to downstream consumers.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Type names an event.
type Type string

const (
	TypeLedgerCreated          Type = "ledger.created"
	TypeTransactionApplied     Type = "transaction.applied"
	TypeTransactionInvalidated Type = "transaction.invalidated"
)

// Event describes one committed ledger change. Transaction fields are empty
// for ledger.created.
type Event struct {
	Type          Type            `json:"type"`
	LedgerID      string          `json:"ledger_id"`
	GroupID       string          `json:"group_id"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Payer         string          `json:"payer,omitempty"`
	Owers         []string        `json:"owers,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Actor         string          `json:"actor"`
	Reason        string          `json:"reason,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	// Err, when set, is returned from Publish instead of recording.
	Err error
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
