package ledger

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/roommates/internal/models"
	"github.com/mmynk/roommates/internal/money"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func testEngine() *Engine {
	n := 0
	return &Engine{
		Now: func() time.Time { return fixedNow },
		NewID: func() (string, error) {
			n++
			return fmt.Sprintf("txn_%04d", n), nil
		},
	}
}

func newLedger(t *testing.T, members ...string) *models.Ledger {
	t.Helper()
	l, err := Create("group-1", "Utilities", members)
	require.NoError(t, err)
	return l
}

func snapshot(l *models.Ledger) map[string]money.Cents {
	out := make(map[string]money.Cents, len(l.Balances))
	for k, v := range l.Balances {
		out[k] = v
	}
	return out
}

func TestCreate(t *testing.T) {
	l, err := Create("group-1", "Rent", []string{"A", "B", "C"})
	require.NoError(t, err)

	assert.Equal(t, "group-1", l.GroupID)
	assert.Equal(t, "Rent", l.Name)
	assert.Equal(t, []string{"A", "B", "C"}, l.Members)
	assert.Equal(t, map[string]money.Cents{"A": 0, "B": 0, "C": 0}, l.Balances)
	assert.Empty(t, l.Transactions)
}

func TestCreate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		groupID string
		lname   string
		members []string
		field   string
	}{
		{"no members", "g", "n", nil, "members"},
		{"duplicate members", "g", "n", []string{"A", "B", "A"}, "members"},
		{"blank member", "g", "n", []string{"A", " "}, "members"},
		{"no group", "", "n", []string{"A"}, "group_id"},
		{"no name", "g", "", []string{"A"}, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Create(tt.groupID, tt.lname, tt.members)
			require.ErrorIs(t, err, ErrInvalidInput)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestBalanceOf(t *testing.T) {
	l := newLedger(t, "A", "B")

	bal, err := BalanceOf(l, "A")
	require.NoError(t, err)
	assert.Equal(t, money.Cents(0), bal)

	_, err = BalanceOf(l, "Z")
	assert.ErrorIs(t, err, ErrUnknownMember)
}

func TestApply_CentConservation(t *testing.T) {
	l := newLedger(t, "P", "A", "B", "C")
	e := testEngine()

	next, txn, err := e.Apply(l, ApplyInput{
		Payer:       "P",
		Owers:       []string{"A", "B", "C"},
		Amount:      1000,
		Description: "Internet",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]money.Cents{"P": 1000, "A": -334, "B": -333, "C": -333}, next.Balances)
	assert.Equal(t, []models.Share{{Member: "A", Amount: 334}, {Member: "B", Amount: 333}, {Member: "C", Amount: 333}}, txn.Shares)
	assert.Equal(t, "txn_0001", txn.ID)
	assert.Equal(t, models.StatusActive, txn.Status)
	assert.Equal(t, fixedNow, txn.CreatedAt)
	assert.Equal(t, "Internet", txn.Description)
	assert.Len(t, next.Transactions, 1)
	assert.NoError(t, CheckZeroSum(next))
}

func TestApply_SingleOwer(t *testing.T) {
	l := newLedger(t, "A", "B")

	next, _, err := testEngine().Apply(l, ApplyInput{
		Payer: "A", Owers: []string{"B"}, Amount: 700, Description: "Pizza",
	})
	require.NoError(t, err)

	assert.Equal(t, money.Cents(700), next.Balances["A"])
	assert.Equal(t, money.Cents(-700), next.Balances["B"])
}

func TestApply_PayerAmongOwers(t *testing.T) {
	l := newLedger(t, "A", "B", "C")

	next, _, err := testEngine().Apply(l, ApplyInput{
		Payer: "A", Owers: []string{"A", "B", "C"}, Amount: 1000, Description: "Dinner",
	})
	require.NoError(t, err)

	// A paid 10.00 and owes 3.34 of it.
	assert.Equal(t, money.Cents(666), next.Balances["A"])
	assert.Equal(t, money.Cents(-333), next.Balances["B"])
	assert.Equal(t, money.Cents(-333), next.Balances["C"])
}

func TestApply_DuplicateOwers(t *testing.T) {
	l := newLedger(t, "P", "A", "B")

	next, txn, err := testEngine().Apply(l, ApplyInput{
		Payer: "P", Owers: []string{"A", "B", "A"}, Amount: 1000, Description: "Two tickets for A",
	})
	require.NoError(t, err)

	assert.Len(t, txn.Shares, 3)
	assert.Equal(t, money.Cents(-667), next.Balances["A"])
	assert.Equal(t, money.Cents(-333), next.Balances["B"])
	assert.NoError(t, CheckZeroSum(next))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	l := newLedger(t, "P", "A")
	before := snapshot(l)

	_, _, err := testEngine().Apply(l, ApplyInput{
		Payer: "P", Owers: []string{"A"}, Amount: 500, Description: "Milk",
	})
	require.NoError(t, err)

	assert.Equal(t, before, l.Balances)
	assert.Empty(t, l.Transactions)
}

func TestApply_InvalidInput(t *testing.T) {
	valid := ApplyInput{Payer: "P", Owers: []string{"A"}, Amount: 100, Description: "x"}

	tests := []struct {
		name    string
		mutate  func(*ApplyInput)
		field   string
		wantErr error
	}{
		{"empty payer", func(in *ApplyInput) { in.Payer = "" }, "payer", ErrInvalidInput},
		{"no owers", func(in *ApplyInput) { in.Owers = nil }, "owers", ErrInvalidInput},
		{"blank ower", func(in *ApplyInput) { in.Owers = []string{"A", ""} }, "owers", ErrInvalidInput},
		{"zero amount", func(in *ApplyInput) { in.Amount = 0 }, "amount", ErrInvalidInput},
		{"negative amount", func(in *ApplyInput) { in.Amount = -5 }, "amount", ErrInvalidInput},
		{"huge amount", func(in *ApplyInput) { in.Amount = money.MaxCents + 1 }, "amount", ErrInvalidInput},
		{"empty description", func(in *ApplyInput) { in.Description = "  " }, "description", ErrInvalidInput},
		{"unknown payer", func(in *ApplyInput) { in.Payer = "Z" }, "", ErrUnknownMember},
		{"unknown ower", func(in *ApplyInput) { in.Owers = []string{"A", "Z"} }, "", ErrUnknownMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(t, "P", "A")
			before := snapshot(l)
			in := valid
			tt.mutate(&in)

			next, txn, err := testEngine().Apply(l, in)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, next)
			assert.Nil(t, txn)
			assert.Equal(t, before, l.Balances)
			assert.Empty(t, l.Transactions)

			if tt.field != "" {
				var verr *ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, tt.field, verr.Field)
			}
		})
	}
}

func TestApply_IDGeneratorFailure(t *testing.T) {
	l := newLedger(t, "P", "A")
	e := &Engine{
		Now:   time.Now,
		NewID: func() (string, error) { return "", errors.New("entropy exhausted") },
	}

	_, _, err := e.Apply(l, ApplyInput{Payer: "P", Owers: []string{"A"}, Amount: 1, Description: "x"})
	assert.Error(t, err)
	assert.Empty(t, l.Transactions)
}

func TestReverse_RemainderEdgeCase(t *testing.T) {
	l := newLedger(t, "P", "A", "B", "C")
	e := testEngine()
	before := snapshot(l)

	applied, txn, err := e.Apply(l, ApplyInput{
		Payer: "P", Owers: []string{"A", "B", "C"}, Amount: 1000, Description: "Water",
	})
	require.NoError(t, err)

	reversed, err := e.Reverse(applied, txn.ID, "entered twice", "B")
	require.NoError(t, err)

	assert.Equal(t, before, reversed.Balances)
	require.Len(t, reversed.Transactions, 1)
	got := reversed.Transactions[0]
	assert.Equal(t, models.StatusInvalidated, got.Status)
	assert.Equal(t, "B", got.InvalidatedBy)
	assert.Equal(t, "entered twice", got.InvalidatedReason)
	assert.Equal(t, fixedNow, got.InvalidatedAt)

	// The applied snapshot still shows the transaction as active.
	assert.Equal(t, models.StatusActive, applied.Transactions[0].Status)
	assert.Equal(t, money.Cents(1000), applied.Balances["P"])
}

func TestReverse_LeavesOtherTransactions(t *testing.T) {
	l := newLedger(t, "A", "B", "C")
	e := testEngine()

	l1, first, err := e.Apply(l, ApplyInput{Payer: "A", Owers: []string{"B", "C"}, Amount: 1001, Description: "one"})
	require.NoError(t, err)
	afterFirst := snapshot(l1)

	l2, second, err := e.Apply(l1, ApplyInput{Payer: "B", Owers: []string{"A", "B", "C"}, Amount: 250, Description: "two"})
	require.NoError(t, err)

	l3, err := e.Reverse(l2, second.ID, "", "C")
	require.NoError(t, err)
	assert.Equal(t, afterFirst, l3.Balances)

	l4, err := e.Reverse(l3, first.ID, "", "C")
	require.NoError(t, err)
	assert.Equal(t, map[string]money.Cents{"A": 0, "B": 0, "C": 0}, l4.Balances)
	assert.Len(t, l4.Transactions, 2)
}

func TestReverse_NoDoubleReversal(t *testing.T) {
	l := newLedger(t, "P", "A")
	e := testEngine()

	applied, txn, err := e.Apply(l, ApplyInput{Payer: "P", Owers: []string{"A"}, Amount: 999, Description: "x"})
	require.NoError(t, err)
	reversed, err := e.Reverse(applied, txn.ID, "oops", "P")
	require.NoError(t, err)
	before := snapshot(reversed)

	again, err := e.Reverse(reversed, txn.ID, "oops again", "A")
	require.ErrorIs(t, err, ErrAlreadyInvalidated)
	assert.Nil(t, again)
	assert.Equal(t, before, reversed.Balances)
	assert.Equal(t, "oops", reversed.Transactions[0].InvalidatedReason)
}

func TestReverse_NotFound(t *testing.T) {
	l := newLedger(t, "P", "A")
	before := snapshot(l)

	next, err := testEngine().Reverse(l, "nonexistent-id", "why", "P")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, next)
	assert.Equal(t, before, l.Balances)
}

func TestReverse_RequiresInvalidator(t *testing.T) {
	l := newLedger(t, "P", "A")
	e := testEngine()
	applied, txn, err := e.Apply(l, ApplyInput{Payer: "P", Owers: []string{"A"}, Amount: 1, Description: "x"})
	require.NoError(t, err)

	_, err = e.Reverse(applied, txn.ID, "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReverse_RecomputesMissingShares(t *testing.T) {
	l := newLedger(t, "P", "A", "B", "C")
	l.Balances = map[string]money.Cents{"P": 1000, "A": -334, "B": -333, "C": -333}
	l.Transactions = []models.Transaction{{
		ID:     "txn_legacy",
		Payer:  "P",
		Owers:  []string{"A", "B", "C"},
		Amount: 1000,
		Status: models.StatusActive,
	}}

	next, err := testEngine().Reverse(l, "txn_legacy", "", "A")
	require.NoError(t, err)
	assert.Equal(t, map[string]money.Cents{"P": 0, "A": 0, "B": 0, "C": 0}, next.Balances)
}

func TestReverse_CorruptShares(t *testing.T) {
	l := newLedger(t, "P", "A")
	l.Transactions = []models.Transaction{{
		ID:     "txn_bad",
		Payer:  "P",
		Owers:  []string{"A"},
		Amount: 1000,
		Shares: []models.Share{{Member: "A", Amount: 999}},
		Status: models.StatusActive,
	}}

	_, err := testEngine().Reverse(l, "txn_bad", "", "A")
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestZeroSumAcrossRandomHistory(t *testing.T) {
	members := []string{"A", "B", "C", "D", "E"}
	l := newLedger(t, members...)
	e := testEngine()
	rng := rand.New(rand.NewSource(42))

	var active []string
	for step := 0; step < 500; step++ {
		if len(active) > 0 && rng.Intn(3) == 0 {
			i := rng.Intn(len(active))
			next, err := e.Reverse(l, active[i], "random", members[rng.Intn(len(members))])
			require.NoError(t, err)
			l = next
			active = append(active[:i], active[i+1:]...)
		} else {
			owers := make([]string, 1+rng.Intn(7))
			for j := range owers {
				owers[j] = members[rng.Intn(len(members))]
			}
			next, txn, err := e.Apply(l, ApplyInput{
				Payer:       members[rng.Intn(len(members))],
				Owers:       owers,
				Amount:      money.Cents(1 + rng.Intn(100000)),
				Description: fmt.Sprintf("step %d", step),
			})
			require.NoError(t, err)
			l = next
			active = append(active, txn.ID)
		}
		require.Equal(t, money.Cents(0), Total(l), "step %d", step)
	}

	for _, id := range active {
		next, err := e.Reverse(l, id, "cleanup", "A")
		require.NoError(t, err)
		l = next
	}
	for _, m := range members {
		assert.Equal(t, money.Cents(0), l.Balances[m], m)
	}
}

func TestSortedBalances(t *testing.T) {
	l := newLedger(t, "C", "A", "B")
	l.Balances["A"] = 5
	l.Balances["C"] = -5

	assert.Equal(t, []MemberBalance{{"C", -5}, {"A", 5}, {"B", 0}}, SortedBalances(l))
}

func TestCheckZeroSum(t *testing.T) {
	l := newLedger(t, "A", "B")
	require.NoError(t, CheckZeroSum(l))

	l.Balances["A"] = 1
	err := CheckZeroSum(l)
	require.ErrorIs(t, err, ErrInvariant)
	assert.Contains(t, err.Error(), "0.01")
}

func TestClone_IsIndependent(t *testing.T) {
	l := newLedger(t, "A", "B")
	l.Transactions = []models.Transaction{{ID: "t1", Status: models.StatusActive}}

	c := Clone(l)
	c.Balances["A"] = 42
	c.Members[0] = "Z"
	c.Transactions[0].Status = models.StatusInvalidated

	assert.Equal(t, money.Cents(0), l.Balances["A"])
	assert.Equal(t, "A", l.Members[0])
	assert.Equal(t, models.StatusActive, l.Transactions[0].Status)
}
