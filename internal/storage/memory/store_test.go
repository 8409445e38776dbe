package memory

import (
	"context"
	"testing"

	"github.com/mmynk/roommates/internal/ledger"
	"github.com/mmynk/roommates/internal/storage"
	"github.com/mmynk/roommates/internal/storage/storagetest"
)

func TestMemoryStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return New()
	})
}

func TestMemoryStore_NoAliasing(t *testing.T) {
	ctx := context.Background()
	store := New()

	l, err := ledger.Create("group-a", "Rent", []string{"Alice", "Bob"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.CreateLedger(ctx, l); err != nil {
		t.Fatalf("CreateLedger failed: %v", err)
	}

	l.Balances["Alice"] = 500
	got, err := store.GetLedger(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetLedger failed: %v", err)
	}
	if got.Balances["Alice"] != 0 {
		t.Errorf("caller mutation leaked into store: %s", got.Balances["Alice"])
	}

	got.Members[0] = "Mallory"
	again, _ := store.GetLedger(ctx, l.ID)
	if again.Members[0] != "Alice" {
		t.Errorf("returned ledger aliases stored state")
	}
}
