// Package storage provides abstractions for persistent ledger storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/roommates/internal/models"
)

var (
	// ErrNotFound is returned when a ledger does not exist.
	ErrNotFound = errors.New("storage: ledger not found")
	// ErrAlreadyExists is returned when a group already has a ledger with the same name.
	ErrAlreadyExists = errors.New("storage: ledger name already taken in group")
	// ErrVersionConflict is returned when a ledger was saved by someone else
	// since it was loaded.
	ErrVersionConflict = errors.New("storage: ledger version conflict")
)

// Store defines the interface for ledger storage operations.
// A ledger is always loaded and saved whole; this abstraction allows
// swapping backends (memory, SQLite, MongoDB) without changing the service layer.
type Store interface {
	// CreateLedger persists a new ledger.
	// The ID, CreatedAt, ModifiedAt and Version fields will be populated by the store.
	CreateLedger(ctx context.Context, ledger *models.Ledger) error

	// GetLedger retrieves a ledger with its balances and full transaction history.
	// Returns ErrNotFound if the ledger does not exist.
	GetLedger(ctx context.Context, ledgerID string) (*models.Ledger, error)

	// ListLedgersByGroup retrieves every ledger of a roommate group, oldest first.
	ListLedgersByGroup(ctx context.Context, groupID string) ([]*models.Ledger, error)

	// SaveLedger writes the ledger if its Version still matches the stored one,
	// then increments ledger.Version. Returns ErrVersionConflict otherwise.
	SaveLedger(ctx context.Context, ledger *models.Ledger) error

	// Close releases any resources held by the store.
	Close() error
}
