package mongo

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/roommates/internal/storage"
	"github.com/mmynk/roommates/internal/storage/storagetest"
)

// Set ROOMMATES_TEST_MONGO_URI (e.g. mongodb://localhost:27017) to run.
func TestMongoStore(t *testing.T) {
	uri := os.Getenv("ROOMMATES_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("ROOMMATES_TEST_MONGO_URI not set")
	}

	storagetest.Run(t, func(t *testing.T) storage.Store {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		database := "roommates_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		store, err := New(ctx, uri, database)
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		t.Cleanup(func() {
			_ = store.db.Drop(context.Background())
			_ = store.Close()
		})
		return store
	})
}
