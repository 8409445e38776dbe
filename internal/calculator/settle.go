package calculator

import (
	"sort"

	"github.com/mmynk/roommates/internal/money"
)

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount money.Cents
}

// SimplifyDebts turns net balances into a short list of payments that would
// settle the group. Positive balances are owed money, negative balances owe.
//
// Algorithm:
// - Split members into debtors and creditors
// - Sort both by magnitude, largest first (ties by member name)
// - Greedy: match the current debtor with the current creditor for the
//   smaller of the two outstanding amounts, advance whichever is settled
//
// Balances are in cents, so every edge is exact and, for a zero-sum input,
// applying all edges zeroes every balance.
func SimplifyDebts(balances map[string]money.Cents) []DebtEdge {
	type position struct {
		member string
		amount money.Cents
	}

	var creditors, debtors []position
	for member, bal := range balances {
		switch {
		case bal > 0:
			creditors = append(creditors, position{member, bal})
		case bal < 0:
			debtors = append(debtors, position{member, -bal})
		}
	}

	byLargest := func(ps []position) func(i, j int) bool {
		return func(i, j int) bool {
			if ps[i].amount != ps[j].amount {
				return ps[i].amount > ps[j].amount
			}
			return ps[i].member < ps[j].member
		}
	}
	sort.Slice(creditors, byLargest(creditors))
	sort.Slice(debtors, byLargest(debtors))

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := debtors[i].amount
		if creditors[j].amount < amount {
			amount = creditors[j].amount
		}

		edges = append(edges, DebtEdge{
			From:   debtors[i].member,
			To:     creditors[j].member,
			Amount: amount,
		})

		debtors[i].amount -= amount
		creditors[j].amount -= amount

		if debtors[i].amount == 0 {
			i++
		}
		if creditors[j].amount == 0 {
			j++
		}
	}

	return edges
}
