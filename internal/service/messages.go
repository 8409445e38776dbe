package service

import (
	"time"

	"github.com/mmynk/roommates/internal/money"
)

// Ledger is the wire form of an expense group ledger.
type Ledger struct {
	ID           string          `json:"id"`
	GroupID      string          `json:"group_id"`
	Name         string          `json:"name"`
	Members      []string        `json:"members"`
	Balances     []MemberBalance `json:"balances"`
	Transactions []Transaction   `json:"transactions,omitempty"`
	Version      int64           `json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	ModifiedAt   time.Time       `json:"modified_at"`
}

// MemberBalance is a member's net position. Positive means owed money.
type MemberBalance struct {
	Member  string      `json:"member"`
	Balance money.Cents `json:"balance"`
}

type Transaction struct {
	ID                string      `json:"id"`
	Payer             string      `json:"payer"`
	Owers             []string    `json:"owers"`
	Amount            money.Cents `json:"amount"`
	Shares            []Share     `json:"shares,omitempty"`
	Description       string      `json:"description"`
	CreatedAt         time.Time   `json:"created_at"`
	Status            string      `json:"status"`
	InvalidatedBy     string      `json:"invalidated_by,omitempty"`
	InvalidatedReason string      `json:"invalidated_reason,omitempty"`
	InvalidatedAt     *time.Time  `json:"invalidated_at,omitempty"`
}

type Share struct {
	Member string      `json:"member"`
	Amount money.Cents `json:"amount"`
}

// Debt is a suggested settlement payment.
type Debt struct {
	From   string      `json:"from"`
	To     string      `json:"to"`
	Amount money.Cents `json:"amount"`
}

type CreateLedgerRequest struct {
	GroupID string   `json:"group_id"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type CreateLedgerResponse struct {
	Ledger *Ledger `json:"ledger"`
}

type ListLedgersRequest struct {
	GroupID string `json:"group_id"`
}

// ListLedgersResponse omits transaction history; use GetLedger for it.
type ListLedgersResponse struct {
	Ledgers []*Ledger `json:"ledgers"`
}

type GetLedgerRequest struct {
	LedgerID string `json:"ledger_id"`
}

type GetLedgerResponse struct {
	Ledger *Ledger `json:"ledger"`
}

type ListTransactionsRequest struct {
	LedgerID string `json:"ledger_id"`
	// ActiveOnly skips invalidated transactions.
	ActiveOnly bool `json:"active_only,omitempty"`
}

type ListTransactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}

type AddTransactionRequest struct {
	LedgerID string   `json:"ledger_id"`
	Payer    string   `json:"payer"`
	Owers    []string `json:"owers"`
	// Amount is a decimal string such as "12.50".
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type AddTransactionResponse struct {
	Transaction *Transaction    `json:"transaction"`
	Balances    []MemberBalance `json:"balances"`
}

type InvalidateTransactionRequest struct {
	LedgerID      string `json:"ledger_id"`
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason,omitempty"`
}

type InvalidateTransactionResponse struct {
	Transaction *Transaction    `json:"transaction"`
	Balances    []MemberBalance `json:"balances"`
}

type GetBalanceRequest struct {
	LedgerID string `json:"ledger_id"`
	Member   string `json:"member"`
}

type GetBalanceResponse struct {
	Member  string      `json:"member"`
	Balance money.Cents `json:"balance"`
}

type SuggestSettlementsRequest struct {
	LedgerID string `json:"ledger_id"`
}

type SuggestSettlementsResponse struct {
	Debts []Debt `json:"debts"`
}
