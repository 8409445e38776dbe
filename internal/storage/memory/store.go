// Package memory provides an in-memory implementation of storage.Store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/roommates/internal/models"
	"github.com/mmynk/roommates/internal/money"
	"github.com/mmynk/roommates/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store keeps ledgers in a map. Ledgers are deep-copied on the way in and
// out, so callers never alias stored state.
type Store struct {
	mu      sync.RWMutex
	ledgers map[string]*models.Ledger
	now     func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		ledgers: make(map[string]*models.Ledger),
		now:     time.Now,
	}
}

// CreateLedger stores a new ledger.
func (s *Store) CreateLedger(ctx context.Context, ledger *models.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ledgers[ledger.ID]; ok && ledger.ID != "" {
		return fmt.Errorf("%w: id %s", storage.ErrAlreadyExists, ledger.ID)
	}
	for _, existing := range s.ledgers {
		if existing.GroupID == ledger.GroupID && existing.Name == ledger.Name {
			return fmt.Errorf("%w: %q", storage.ErrAlreadyExists, ledger.Name)
		}
	}

	if ledger.ID == "" {
		ledger.ID = uuid.New().String()
	}
	now := s.now().UTC()
	ledger.CreatedAt = now
	ledger.ModifiedAt = now
	ledger.Version = 1

	s.ledgers[ledger.ID] = deepCopy(ledger)
	return nil
}

// GetLedger returns a copy of the stored ledger.
func (s *Store) GetLedger(ctx context.Context, ledgerID string) (*models.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.ledgers[ledgerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, ledgerID)
	}
	return deepCopy(l), nil
}

// ListLedgersByGroup returns copies of a group's ledgers, oldest first.
func (s *Store) ListLedgersByGroup(ctx context.Context, groupID string) ([]*models.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Ledger
	for _, l := range s.ledgers {
		if l.GroupID == groupID {
			out = append(out, deepCopy(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// SaveLedger replaces the stored ledger when versions match.
func (s *Store) SaveLedger(ctx context.Context, ledger *models.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.ledgers[ledger.ID]
	if !ok {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, ledger.ID)
	}
	if current.Version != ledger.Version {
		return fmt.Errorf("%w: have %d, stored %d", storage.ErrVersionConflict, ledger.Version, current.Version)
	}

	ledger.Version++
	ledger.ModifiedAt = s.now().UTC()
	s.ledgers[ledger.ID] = deepCopy(ledger)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func deepCopy(l *models.Ledger) *models.Ledger {
	c := *l
	c.Members = append([]string(nil), l.Members...)
	c.Balances = make(map[string]money.Cents, len(l.Balances))
	for k, v := range l.Balances {
		c.Balances[k] = v
	}
	c.Transactions = make([]models.Transaction, len(l.Transactions))
	for i, t := range l.Transactions {
		t.Owers = append([]string(nil), t.Owers...)
		t.Shares = append([]models.Share(nil), t.Shares...)
		c.Transactions[i] = t
	}
	return &c
}
