package ledger

import (
	"fmt"
	"strings"
	"time"

	"go.jetify.com/typeid/v2"

	"github.com/mmynk/roommates/internal/calculator"
	"github.com/mmynk/roommates/internal/models"
	"github.com/mmynk/roommates/internal/money"
)

// TransactionIDPrefix is the TypeID prefix of every transaction ID.
const TransactionIDPrefix = "txn"

// Engine applies and reverses transactions. The zero value is not usable;
// call NewEngine, or set both fields in tests.
type Engine struct {
	Now   func() time.Time
	NewID func() (string, error)
}

// NewEngine returns an engine using the wall clock and TypeID transaction IDs.
func NewEngine() *Engine {
	return &Engine{
		Now:   time.Now,
		NewID: newTransactionID,
	}
}

func newTransactionID() (string, error) {
	tid, err := typeid.Generate(TransactionIDPrefix)
	if err != nil {
		return "", fmt.Errorf("generate transaction id: %w", err)
	}
	return tid.String(), nil
}

// ApplyInput describes a new transaction.
type ApplyInput struct {
	Payer       string
	Owers       []string
	Amount      money.Cents
	Description string
}

func (in ApplyInput) validate() error {
	if strings.TrimSpace(in.Payer) == "" {
		return invalid("payer", "must not be empty")
	}
	if len(in.Owers) == 0 {
		return invalid("owers", "at least one ower required")
	}
	for _, o := range in.Owers {
		if strings.TrimSpace(o) == "" {
			return invalid("owers", "ower id must not be empty")
		}
	}
	if !in.Amount.IsPositive() {
		return invalid("amount", "must be positive")
	}
	if in.Amount > money.MaxCents {
		return invalid("amount", "exceeds maximum")
	}
	if strings.TrimSpace(in.Description) == "" {
		return invalid("description", "must not be empty")
	}
	return nil
}

// Apply records a new transaction: the payer is credited the full amount
// and each ower position is debited its share of an even split, with the
// leftover cents going to the first owers in order. It returns the updated
// ledger and the new transaction; l itself is not modified.
func (e *Engine) Apply(l *models.Ledger, in ApplyInput) (*models.Ledger, *models.Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}
	if !l.HasMember(in.Payer) {
		return nil, nil, unknownMember("payer", in.Payer)
	}
	for _, o := range in.Owers {
		if !l.HasMember(o) {
			return nil, nil, unknownMember("ower", o)
		}
	}

	shares, err := calculator.SplitAmong(in.Amount, in.Owers)
	if err != nil {
		return nil, nil, invalid("owers", err.Error())
	}
	id, err := e.NewID()
	if err != nil {
		return nil, nil, err
	}

	txn := models.Transaction{
		ID:          id,
		Payer:       in.Payer,
		Owers:       append([]string(nil), in.Owers...),
		Amount:      in.Amount,
		Shares:      shares,
		Description: in.Description,
		CreatedAt:   e.Now().UTC(),
		Status:      models.StatusActive,
	}

	next := Clone(l)
	for _, s := range shares {
		next.Balances[s.Member] -= s.Amount
	}
	next.Balances[txn.Payer] += txn.Amount
	next.Transactions = append(next.Transactions, txn)

	if err := CheckZeroSum(next); err != nil {
		return nil, nil, err
	}
	return next, &next.Transactions[len(next.Transactions)-1], nil
}

// Reverse invalidates an active transaction and undoes exactly the balance
// change Apply made for it. Reversing an invalidated transaction fails with
// ErrAlreadyInvalidated; l itself is never modified.
func (e *Engine) Reverse(l *models.Ledger, transactionID, reason, invalidatedBy string) (*models.Ledger, error) {
	if strings.TrimSpace(invalidatedBy) == "" {
		return nil, invalid("invalidated_by", "must not be empty")
	}
	idx := FindTransaction(l, transactionID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, transactionID)
	}
	txn := l.Transactions[idx]
	if !txn.IsActive() {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyInvalidated, transactionID)
	}

	shares, err := sharesOf(&txn)
	if err != nil {
		return nil, err
	}

	next := Clone(l)
	for _, s := range shares {
		if !next.HasMember(s.Member) {
			return nil, unknownMember("ower", s.Member)
		}
		next.Balances[s.Member] += s.Amount
	}
	if !next.HasMember(txn.Payer) {
		return nil, unknownMember("payer", txn.Payer)
	}
	next.Balances[txn.Payer] -= txn.Amount

	txn.Status = models.StatusInvalidated
	txn.InvalidatedBy = invalidatedBy
	txn.InvalidatedReason = reason
	txn.InvalidatedAt = e.Now().UTC()
	next.Transactions[idx] = txn

	if err := CheckZeroSum(next); err != nil {
		return nil, err
	}
	return next, nil
}

// sharesOf returns the debits recorded at apply time, recomputing them for
// transactions stored without shares. The split is deterministic, so both
// paths yield the same amounts.
func sharesOf(txn *models.Transaction) ([]models.Share, error) {
	if len(txn.Shares) > 0 {
		var sum money.Cents
		for _, s := range txn.Shares {
			sum += s.Amount
		}
		if sum != txn.Amount {
			return nil, fmt.Errorf("%w: transaction %s shares sum to %s, amount is %s",
				ErrInvariant, txn.ID, sum, txn.Amount)
		}
		return txn.Shares, nil
	}

	shares, err := calculator.SplitAmong(txn.Amount, txn.Owers)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction %s: %v", ErrInvariant, txn.ID, err)
	}
	return shares, nil
}
