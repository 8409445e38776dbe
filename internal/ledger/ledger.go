// Package ledger implements the balance ledger engine: creating expense
// group ledgers, applying transactions with cent-exact splits, and
// reversing them bit-exactly.
//
// Engine operations never modify the ledger they are given. They return a
// new ledger value, so a failed operation cannot leave partial state behind
// and the caller decides when the new value is persisted.
package ledger

import (
	"strings"

	"github.com/mmynk/roommates/internal/models"
	"github.com/mmynk/roommates/internal/money"
)

// Create initializes a ledger for groupID with a zero balance for every
// member. Members must be non-empty and unique.
func Create(groupID, name string, members []string) (*models.Ledger, error) {
	if strings.TrimSpace(groupID) == "" {
		return nil, invalid("group_id", "must not be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, invalid("name", "must not be empty")
	}
	if len(members) == 0 {
		return nil, invalid("members", "at least one member required")
	}

	balances := make(map[string]money.Cents, len(members))
	for _, m := range members {
		if strings.TrimSpace(m) == "" {
			return nil, invalid("members", "member id must not be empty")
		}
		if _, dup := balances[m]; dup {
			return nil, invalid("members", "duplicate member "+m)
		}
		balances[m] = 0
	}

	return &models.Ledger{
		GroupID:  groupID,
		Name:     name,
		Members:  append([]string(nil), members...),
		Balances: balances,
	}, nil
}

// BalanceOf returns member's current balance.
func BalanceOf(l *models.Ledger, member string) (money.Cents, error) {
	bal, ok := l.Balances[member]
	if !ok {
		return 0, unknownMember("member", member)
	}
	return bal, nil
}

// MemberBalance is one row of a ledger's balance sheet.
type MemberBalance struct {
	Member  string
	Balance money.Cents
}

// SortedBalances lists balances in member creation order.
func SortedBalances(l *models.Ledger) []MemberBalance {
	out := make([]MemberBalance, 0, len(l.Members))
	for _, m := range l.Members {
		out = append(out, MemberBalance{Member: m, Balance: l.Balances[m]})
	}
	return out
}

// Total sums every balance. It is zero for any consistent ledger.
func Total(l *models.Ledger) money.Cents {
	var total money.Cents
	for _, bal := range l.Balances {
		total += bal
	}
	return total
}

// CheckZeroSum returns ErrInvariant if the balances do not net to zero.
func CheckZeroSum(l *models.Ledger) error {
	if total := Total(l); total != 0 {
		return &invariantError{total: total}
	}
	return nil
}

type invariantError struct{ total money.Cents }

func (e *invariantError) Error() string {
	return ErrInvariant.Error() + " (off by " + e.total.String() + ")"
}

func (e *invariantError) Unwrap() error { return ErrInvariant }

// FindTransaction returns the index of the transaction with id, or -1.
func FindTransaction(l *models.Ledger, id string) int {
	for i := range l.Transactions {
		if l.Transactions[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a copy that shares no mutable state with l. Owers and
// Shares slices are shared because transactions never modify them.
func Clone(l *models.Ledger) *models.Ledger {
	c := *l
	c.Members = append([]string(nil), l.Members...)
	c.Balances = make(map[string]money.Cents, len(l.Balances))
	for k, v := range l.Balances {
		c.Balances[k] = v
	}
	c.Transactions = append([]models.Transaction(nil), l.Transactions...)
	return &c
}
