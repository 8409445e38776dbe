// Package storagetest holds the behaviour every storage.Store backend must
// share. Backend packages call Run from their own tests.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmynk/roommates/internal/ledger"
	"github.com/mmynk/roommates/internal/models"
	"github.com/mmynk/roommates/internal/money"
	"github.com/mmynk/roommates/internal/storage"
)

// Run exercises store. newStore must return an empty store; it is called
// once per subtest.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	ctx := context.Background()

	t.Run("CreateLedger assigns ID and version", func(t *testing.T) {
		store := newStore(t)
		l := mustCreate(t, "group-a", "Utilities", "Alice", "Bob")

		if err := store.CreateLedger(ctx, l); err != nil {
			t.Fatalf("CreateLedger failed: %v", err)
		}
		if l.ID == "" {
			t.Error("Expected ledger ID to be generated")
		}
		if l.Version != 1 {
			t.Errorf("Version = %d, want 1", l.Version)
		}
		if l.CreatedAt.IsZero() {
			t.Error("Expected CreatedAt to be set")
		}
	})

	t.Run("CreateLedger rejects duplicate name in group", func(t *testing.T) {
		store := newStore(t)
		if err := store.CreateLedger(ctx, mustCreate(t, "group-a", "Rent", "Alice")); err != nil {
			t.Fatalf("CreateLedger failed: %v", err)
		}

		err := store.CreateLedger(ctx, mustCreate(t, "group-a", "Rent", "Bob"))
		if !errors.Is(err, storage.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}

		// Same name in another group is fine.
		if err := store.CreateLedger(ctx, mustCreate(t, "group-b", "Rent", "Bob")); err != nil {
			t.Errorf("CreateLedger in other group failed: %v", err)
		}
	})

	t.Run("CreateLedger rejects existing ID", func(t *testing.T) {
		store := newStore(t)
		first := mustCreate(t, "group-a", "Rent", "Alice")
		first.ID = "ledger-fixed"
		if err := store.CreateLedger(ctx, first); err != nil {
			t.Fatalf("CreateLedger failed: %v", err)
		}

		second := mustCreate(t, "group-b", "Food", "Bob")
		second.ID = "ledger-fixed"
		err := store.CreateLedger(ctx, second)
		if !errors.Is(err, storage.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}

		got, err := store.GetLedger(ctx, "ledger-fixed")
		if err != nil {
			t.Fatalf("GetLedger failed: %v", err)
		}
		if got.Name != "Rent" || got.GroupID != "group-a" {
			t.Errorf("stored ledger overwritten: name=%q group=%q", got.Name, got.GroupID)
		}
	})

	t.Run("GetLedger round trips history", func(t *testing.T) {
		store := newStore(t)
		original := mustCreate(t, "group-a", "Groceries", "Alice", "Bob", "Charlie")
		if err := store.CreateLedger(ctx, original); err != nil {
			t.Fatalf("CreateLedger failed: %v", err)
		}

		engine := fixedEngine()
		applied, txn, err := engine.Apply(original, ledger.ApplyInput{
			Payer:       "Alice",
			Owers:       []string{"Alice", "Bob", "Charlie", "Bob"},
			Amount:      1001,
			Description: "Weekly shop",
		})
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		applied, _, err = engine.Apply(applied, ledger.ApplyInput{
			Payer: "Bob", Owers: []string{"Charlie"}, Amount: 250, Description: "Bread",
		})
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		applied, err = engine.Reverse(applied, txn.ID, "wrong receipt", "Charlie")
		if err != nil {
			t.Fatalf("Reverse failed: %v", err)
		}
		if err := store.SaveLedger(ctx, applied); err != nil {
			t.Fatalf("SaveLedger failed: %v", err)
		}

		got, err := store.GetLedger(ctx, original.ID)
		if err != nil {
			t.Fatalf("GetLedger failed: %v", err)
		}

		if got.Name != "Groceries" || got.GroupID != "group-a" {
			t.Errorf("got name=%q group=%q", got.Name, got.GroupID)
		}
		if got.Version != 2 {
			t.Errorf("Version = %d, want 2", got.Version)
		}
		if len(got.Members) != 3 || got.Members[0] != "Alice" || got.Members[2] != "Charlie" {
			t.Errorf("Members = %v", got.Members)
		}
		want := map[string]money.Cents{"Alice": 0, "Bob": 250, "Charlie": -250}
		for m, bal := range want {
			if got.Balances[m] != bal {
				t.Errorf("balance[%s] = %s, want %s", m, got.Balances[m], bal)
			}
		}
		if len(got.Transactions) != 2 {
			t.Fatalf("Transactions count = %d, want 2", len(got.Transactions))
		}

		first := got.Transactions[0]
		if first.ID != txn.ID {
			t.Errorf("transaction order lost: first = %s, want %s", first.ID, txn.ID)
		}
		if first.Status != models.StatusInvalidated || first.InvalidatedBy != "Charlie" ||
			first.InvalidatedReason != "wrong receipt" || !first.InvalidatedAt.Equal(fixedTime) {
			t.Errorf("invalidation not persisted: %+v", first)
		}
		wantOwers := []string{"Alice", "Bob", "Charlie", "Bob"}
		if len(first.Owers) != len(wantOwers) {
			t.Fatalf("Owers = %v, want %v", first.Owers, wantOwers)
		}
		for i := range wantOwers {
			if first.Owers[i] != wantOwers[i] {
				t.Errorf("Owers[%d] = %s, want %s", i, first.Owers[i], wantOwers[i])
			}
		}
		wantShares := []money.Cents{251, 250, 250, 250}
		if len(first.Shares) != len(wantShares) {
			t.Fatalf("Shares = %v", first.Shares)
		}
		for i, s := range first.Shares {
			if s.Amount != wantShares[i] || s.Member != wantOwers[i] {
				t.Errorf("Shares[%d] = %+v", i, s)
			}
		}
		if first.Amount != 1001 || first.Payer != "Alice" || first.Description != "Weekly shop" {
			t.Errorf("transaction fields lost: %+v", first)
		}
		if !first.CreatedAt.Equal(fixedTime) {
			t.Errorf("CreatedAt = %v, want %v", first.CreatedAt, fixedTime)
		}
		if got.Transactions[1].Status != models.StatusActive {
			t.Errorf("second transaction status = %s", got.Transactions[1].Status)
		}
		if err := ledger.CheckZeroSum(got); err != nil {
			t.Error(err)
		}
	})

	t.Run("GetLedger returns ErrNotFound", func(t *testing.T) {
		store := newStore(t)
		_, err := store.GetLedger(ctx, "nonexistent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SaveLedger detects stale version", func(t *testing.T) {
		store := newStore(t)
		l := mustCreate(t, "group-a", "Trips", "Alice", "Bob")
		if err := store.CreateLedger(ctx, l); err != nil {
			t.Fatalf("CreateLedger failed: %v", err)
		}

		first, _ := store.GetLedger(ctx, l.ID)
		second, _ := store.GetLedger(ctx, l.ID)

		engine := fixedEngine()
		next, _, err := engine.Apply(first, ledger.ApplyInput{
			Payer: "Alice", Owers: []string{"Bob"}, Amount: 100, Description: "Fuel",
		})
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		if err := store.SaveLedger(ctx, next); err != nil {
			t.Fatalf("SaveLedger failed: %v", err)
		}

		stale, _, err := engine.Apply(second, ledger.ApplyInput{
			Payer: "Bob", Owers: []string{"Alice"}, Amount: 100, Description: "Tolls",
		})
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		err = store.SaveLedger(ctx, stale)
		if !errors.Is(err, storage.ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}

		got, _ := store.GetLedger(ctx, l.ID)
		if len(got.Transactions) != 1 || got.Transactions[0].Description != "Fuel" {
			t.Errorf("stale save leaked into store: %+v", got.Transactions)
		}
	})

	t.Run("SaveLedger unknown ledger", func(t *testing.T) {
		store := newStore(t)
		l := mustCreate(t, "group-a", "Ghost", "Alice")
		l.ID = "missing"
		l.Version = 1
		err := store.SaveLedger(ctx, l)
		if !errors.Is(err, storage.ErrNotFound) && !errors.Is(err, storage.ErrVersionConflict) {
			t.Errorf("expected ErrNotFound or ErrVersionConflict, got %v", err)
		}
	})

	t.Run("GetLedger sees whole saves under concurrent writes", func(t *testing.T) {
		store := newStore(t)
		l := mustCreate(t, "group-a", "Busy", "Alice", "Bob")
		if err := store.CreateLedger(ctx, l); err != nil {
			t.Fatalf("CreateLedger failed: %v", err)
		}

		const saves = 50
		engine := fixedEngine()
		errCh := make(chan error, 1)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < saves; i++ {
				current, err := store.GetLedger(ctx, l.ID)
				if err != nil {
					errCh <- err
					return
				}
				next, _, err := engine.Apply(current, ledger.ApplyInput{
					Payer: "Alice", Owers: []string{"Bob"}, Amount: 100, Description: "Coffee",
				})
				if err != nil {
					errCh <- err
					return
				}
				if err := store.SaveLedger(ctx, next); err != nil {
					errCh <- err
					return
				}
			}
		}()

		reads := 0
	loop:
		for {
			select {
			case <-done:
				break loop
			default:
				got, err := store.GetLedger(ctx, l.ID)
				if err != nil {
					t.Fatalf("GetLedger failed: %v", err)
				}
				reads++
				n := money.Cents(len(got.Transactions))
				if got.Balances["Alice"] != 100*n || got.Balances["Bob"] != -100*n {
					t.Fatalf("read mixes saves: %d transactions, balances %v", n, got.Balances)
				}
				if got.Version != int64(n)+1 {
					t.Fatalf("read mixes saves: %d transactions at version %d", n, got.Version)
				}
			}
		}

		select {
		case err := <-errCh:
			t.Fatalf("writer failed: %v", err)
		default:
		}
		final, err := store.GetLedger(ctx, l.ID)
		if err != nil {
			t.Fatalf("GetLedger failed: %v", err)
		}
		if len(final.Transactions) != saves {
			t.Errorf("Transactions count = %d, want %d (after %d reads)", len(final.Transactions), saves, reads)
		}
	})

	t.Run("ListLedgersByGroup", func(t *testing.T) {
		store := newStore(t)
		for _, name := range []string{"Rent", "Food"} {
			if err := store.CreateLedger(ctx, mustCreate(t, "group-a", name, "Alice")); err != nil {
				t.Fatalf("CreateLedger failed: %v", err)
			}
		}
		if err := store.CreateLedger(ctx, mustCreate(t, "group-b", "Other", "Bob")); err != nil {
			t.Fatalf("CreateLedger failed: %v", err)
		}

		got, err := store.ListLedgersByGroup(ctx, "group-a")
		if err != nil {
			t.Fatalf("ListLedgersByGroup failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 ledgers, got %d", len(got))
		}
		for _, l := range got {
			if l.GroupID != "group-a" {
				t.Errorf("unexpected group %s", l.GroupID)
			}
			if l.Balances["Alice"] != 0 {
				t.Errorf("balances not loaded for %s", l.Name)
			}
		}

		empty, err := store.ListLedgersByGroup(ctx, "group-z")
		if err != nil {
			t.Fatalf("ListLedgersByGroup failed: %v", err)
		}
		if len(empty) != 0 {
			t.Errorf("expected no ledgers, got %d", len(empty))
		}
	})
}

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func fixedEngine() *ledger.Engine {
	e := ledger.NewEngine()
	e.Now = func() time.Time { return fixedTime }
	return e
}

func mustCreate(t *testing.T, groupID, name string, members ...string) *models.Ledger {
	t.Helper()
	l, err := ledger.Create(groupID, name, members)
	if err != nil {
		t.Fatalf("ledger.Create failed: %v", err)
	}
	return l
}
