package service

import (
	"github.com/mmynk/roommates/internal/calculator"
	"github.com/mmynk/roommates/internal/ledger"
	"github.com/mmynk/roommates/internal/models"
)

func toLedger(l *models.Ledger, withHistory bool) *Ledger {
	out := &Ledger{
		ID:         l.ID,
		GroupID:    l.GroupID,
		Name:       l.Name,
		Members:    l.Members,
		Balances:   toBalances(l),
		Version:    l.Version,
		CreatedAt:  l.CreatedAt,
		ModifiedAt: l.ModifiedAt,
	}
	if withHistory {
		out.Transactions = toTransactions(l.Transactions, false)
	}
	return out
}

func toBalances(l *models.Ledger) []MemberBalance {
	sorted := ledger.SortedBalances(l)
	out := make([]MemberBalance, len(sorted))
	for i, b := range sorted {
		out[i] = MemberBalance{Member: b.Member, Balance: b.Balance}
	}
	return out
}

func toTransactions(txns []models.Transaction, activeOnly bool) []Transaction {
	out := make([]Transaction, 0, len(txns))
	for i := range txns {
		if activeOnly && !txns[i].IsActive() {
			continue
		}
		out = append(out, *toTransaction(&txns[i]))
	}
	return out
}

func toTransaction(t *models.Transaction) *Transaction {
	out := &Transaction{
		ID:                t.ID,
		Payer:             t.Payer,
		Owers:             t.Owers,
		Amount:            t.Amount,
		Description:       t.Description,
		CreatedAt:         t.CreatedAt,
		Status:            string(t.Status),
		InvalidatedBy:     t.InvalidatedBy,
		InvalidatedReason: t.InvalidatedReason,
	}
	for _, s := range t.Shares {
		out.Shares = append(out.Shares, Share{Member: s.Member, Amount: s.Amount})
	}
	if !t.InvalidatedAt.IsZero() {
		at := t.InvalidatedAt
		out.InvalidatedAt = &at
	}
	return out
}

func toDebts(edges []calculator.DebtEdge) []Debt {
	out := make([]Debt, len(edges))
	for i, e := range edges {
		out[i] = Debt{From: e.From, To: e.To, Amount: e.Amount}
	}
	return out
}
