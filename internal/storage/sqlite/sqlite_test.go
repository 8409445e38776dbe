package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mmynk/roommates/internal/ledger"
	"github.com/mmynk/roommates/internal/storage"
	"github.com/mmynk/roommates/internal/storage/storagetest"
)

func newTestStore(t *testing.T, dbPath string) *SQLiteStore {
	t.Helper()
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return newTestStore(t, filepath.Join(t.TempDir(), "test.db"))
	})
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "roommates.db")

	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	l, err := ledger.Create("group-a", "Rent", []string{"Alice", "Bob"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.CreateLedger(ctx, l); err != nil {
		t.Fatalf("CreateLedger failed: %v", err)
	}
	next, _, err := ledger.NewEngine().Apply(l, ledger.ApplyInput{
		Payer: "Alice", Owers: []string{"Bob"}, Amount: 120000, Description: "March rent",
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := store.SaveLedger(ctx, next); err != nil {
		t.Fatalf("SaveLedger failed: %v", err)
	}
	store.Close()

	reopened := newTestStore(t, dbPath)
	got, err := reopened.GetLedger(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetLedger after reopen failed: %v", err)
	}
	if got.Balances["Alice"] != 120000 || got.Balances["Bob"] != -120000 {
		t.Errorf("balances after reopen = %v", got.Balances)
	}
	if len(got.Transactions) != 1 {
		t.Errorf("expected 1 transaction, got %d", len(got.Transactions))
	}
}

func TestSQLiteStore_UnrecordedShares(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, filepath.Join(t.TempDir(), "test.db"))

	l, err := ledger.Create("group-a", "Legacy", []string{"Alice", "Bob", "Charlie"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.CreateLedger(ctx, l); err != nil {
		t.Fatalf("CreateLedger failed: %v", err)
	}

	engine := ledger.NewEngine()
	next, txn, err := engine.Apply(l, ledger.ApplyInput{
		Payer: "Alice", Owers: []string{"Alice", "Bob", "Charlie"}, Amount: 1000, Description: "Imported",
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	next.Transactions[0].Shares = nil
	if err := store.SaveLedger(ctx, next); err != nil {
		t.Fatalf("SaveLedger failed: %v", err)
	}

	got, err := store.GetLedger(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetLedger failed: %v", err)
	}
	first := got.Transactions[0]
	if len(first.Owers) != 3 {
		t.Fatalf("Owers = %v, want 3 members", first.Owers)
	}
	if first.Shares != nil {
		t.Errorf("expected no recorded shares, got %v", first.Shares)
	}

	reversed, err := engine.Reverse(got, txn.ID, "", "Bob")
	if err != nil {
		t.Fatalf("Reverse failed: %v", err)
	}
	for _, m := range []string{"Alice", "Bob", "Charlie"} {
		if reversed.Balances[m] != 0 {
			t.Errorf("balance[%s] = %s after reversal, want 0", m, reversed.Balances[m])
		}
	}
}
