package mongo

import (
	"time"

	"github.com/mmynk/roommates/internal/models"
	"github.com/mmynk/roommates/internal/money"
)

// ledgerModel is one document per ledger. Balances are stored as an array
// because member IDs are not safe as BSON field names.
type ledgerModel struct {
	ID           string             `bson:"_id"`
	GroupID      string             `bson:"group_id"`
	Name         string             `bson:"name"`
	Members      []memberModel      `bson:"members"`
	Transactions []transactionModel `bson:"transactions"`
	Version      int64              `bson:"version"`
	CreatedAt    time.Time          `bson:"created_at"`
	ModifiedAt   time.Time          `bson:"modified_at"`
}

type memberModel struct {
	Member       string `bson:"member"`
	BalanceCents int64  `bson:"balance_cents"`
}

type transactionModel struct {
	ID                string       `bson:"id"`
	Payer             string       `bson:"payer"`
	Owers             []string     `bson:"owers"`
	AmountCents       int64        `bson:"amount_cents"`
	Shares            []shareModel `bson:"shares,omitempty"`
	Description       string       `bson:"description"`
	CreatedAt         time.Time    `bson:"created_at"`
	Status            string       `bson:"status"`
	InvalidatedBy     string       `bson:"invalidated_by,omitempty"`
	InvalidatedReason string       `bson:"invalidated_reason,omitempty"`
	InvalidatedAt     *time.Time   `bson:"invalidated_at,omitempty"`
}

type shareModel struct {
	Member      string `bson:"member"`
	AmountCents int64  `bson:"amount_cents"`
}

func toLedgerModel(l *models.Ledger) *ledgerModel {
	m := &ledgerModel{
		ID:           l.ID,
		GroupID:      l.GroupID,
		Name:         l.Name,
		Members:      make([]memberModel, len(l.Members)),
		Transactions: make([]transactionModel, len(l.Transactions)),
		Version:      l.Version,
		CreatedAt:    l.CreatedAt,
		ModifiedAt:   l.ModifiedAt,
	}
	for i, member := range l.Members {
		m.Members[i] = memberModel{Member: member, BalanceCents: int64(l.Balances[member])}
	}
	for i := range l.Transactions {
		m.Transactions[i] = toTransactionModel(&l.Transactions[i])
	}
	return m
}

func toTransactionModel(t *models.Transaction) transactionModel {
	m := transactionModel{
		ID:                t.ID,
		Payer:             t.Payer,
		Owers:             t.Owers,
		AmountCents:       int64(t.Amount),
		Description:       t.Description,
		CreatedAt:         t.CreatedAt,
		Status:            string(t.Status),
		InvalidatedBy:     t.InvalidatedBy,
		InvalidatedReason: t.InvalidatedReason,
	}
	for _, s := range t.Shares {
		m.Shares = append(m.Shares, shareModel{Member: s.Member, AmountCents: int64(s.Amount)})
	}
	if !t.InvalidatedAt.IsZero() {
		at := t.InvalidatedAt
		m.InvalidatedAt = &at
	}
	return m
}

func fromLedgerModel(m *ledgerModel) *models.Ledger {
	l := &models.Ledger{
		ID:           m.ID,
		GroupID:      m.GroupID,
		Name:         m.Name,
		Members:      make([]string, len(m.Members)),
		Balances:     make(map[string]money.Cents, len(m.Members)),
		Transactions: make([]models.Transaction, len(m.Transactions)),
		Version:      m.Version,
		CreatedAt:    m.CreatedAt.UTC(),
		ModifiedAt:   m.ModifiedAt.UTC(),
	}
	for i, mm := range m.Members {
		l.Members[i] = mm.Member
		l.Balances[mm.Member] = money.Cents(mm.BalanceCents)
	}
	for i, tm := range m.Transactions {
		t := models.Transaction{
			ID:                tm.ID,
			Payer:             tm.Payer,
			Owers:             tm.Owers,
			Amount:            money.Cents(tm.AmountCents),
			Description:       tm.Description,
			CreatedAt:         tm.CreatedAt.UTC(),
			Status:            models.Status(tm.Status),
			InvalidatedBy:     tm.InvalidatedBy,
			InvalidatedReason: tm.InvalidatedReason,
		}
		for _, s := range tm.Shares {
			t.Shares = append(t.Shares, models.Share{Member: s.Member, Amount: money.Cents(s.AmountCents)})
		}
		if tm.InvalidatedAt != nil {
			t.InvalidatedAt = tm.InvalidatedAt.UTC()
		}
		l.Transactions[i] = t
	}
	return l
}
