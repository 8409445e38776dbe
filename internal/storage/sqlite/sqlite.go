// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/roommates/internal/models"
	"github.com/mmynk/roommates/internal/money"
	"github.com/mmynk/roommates/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Foreign keys and busy timeout are per connection, so they go in the DSN.
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection keeps saves serialized.
	db.SetMaxOpenConns(1)

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateLedger persists a new ledger with zero or more members.
func (s *SQLiteStore) CreateLedger(ctx context.Context, ledger *models.Ledger) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Generate ID if not set
	if ledger.ID == "" {
		ledger.ID = uuid.New().String()
	}

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT 1 FROM ledgers WHERE id = ? OR (group_id = ? AND name = ?)",
		ledger.ID, ledger.GroupID, ledger.Name,
	).Scan(&exists)
	if err == nil {
		return fmt.Errorf("%w: %q", storage.ErrAlreadyExists, ledger.Name)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check ledger name: %w", err)
	}
	now := s.now().UTC()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO ledgers (id, group_id, name, version, created_at, modified_at) VALUES (?, ?, ?, ?, ?, ?)",
		ledger.ID, ledger.GroupID, ledger.Name, 1, now.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger: %w", err)
	}

	for i, member := range ledger.Members {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO ledger_members (ledger_id, position, member, balance_cents) VALUES (?, ?, ?, ?)",
			ledger.ID, i, member, int64(ledger.Balances[member]),
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}

	if err := s.insertTransactions(ctx, tx, ledger, 0); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	ledger.Version = 1
	ledger.CreatedAt = now
	ledger.ModifiedAt = now
	return nil
}

// GetLedger retrieves a ledger by ID, including members, balances and history.
// All reads share one transaction so they see a single committed save.
func (s *SQLiteStore) GetLedger(ctx context.Context, ledgerID string) (*models.Ledger, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	return s.getLedger(ctx, tx, ledgerID)
}

func (s *SQLiteStore) getLedger(ctx context.Context, tx *sql.Tx, ledgerID string) (*models.Ledger, error) {
	ledger := &models.Ledger{}
	var createdAt, modifiedAt int64
	err := tx.QueryRowContext(ctx,
		"SELECT id, group_id, name, version, created_at, modified_at FROM ledgers WHERE id = ?",
		ledgerID,
	).Scan(&ledger.ID, &ledger.GroupID, &ledger.Name, &ledger.Version, &createdAt, &modifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, ledgerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}
	ledger.CreatedAt = fromNanos(createdAt)
	ledger.ModifiedAt = fromNanos(modifiedAt)

	if err := s.loadMembers(ctx, tx, ledger); err != nil {
		return nil, err
	}
	if err := s.loadTransactions(ctx, tx, ledger); err != nil {
		return nil, err
	}
	return ledger, nil
}

// ListLedgersByGroup retrieves all ledgers for a group, oldest first.
func (s *SQLiteStore) ListLedgersByGroup(ctx context.Context, groupID string) ([]*models.Ledger, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM ledgers WHERE group_id = ? ORDER BY created_at, name",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledgers by group: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan ledger id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledgers: %w", err)
	}

	ledgers := make([]*models.Ledger, 0, len(ids))
	for _, id := range ids {
		l, err := s.getLedger(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, l)
	}
	return ledgers, nil
}

// SaveLedger writes balances and history if ledger.Version is current.
// Transactions already stored only have their invalidation fields updated;
// new ones are inserted with their shares.
func (s *SQLiteStore) SaveLedger(ctx context.Context, ledger *models.Ledger) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	res, err := tx.ExecContext(ctx,
		"UPDATE ledgers SET version = version + 1, modified_at = ? WHERE id = ? AND version = ?",
		now.UnixNano(), ledger.ID, ledger.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update ledger: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM ledgers WHERE id = ?", ledger.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", storage.ErrNotFound, ledger.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to check ledger existence: %w", err)
		}
		return fmt.Errorf("%w: ledger %s at version %d", storage.ErrVersionConflict, ledger.ID, ledger.Version)
	}

	for member, bal := range ledger.Balances {
		_, err = tx.ExecContext(ctx,
			"UPDATE ledger_members SET balance_cents = ? WHERE ledger_id = ? AND member = ?",
			int64(bal), ledger.ID, member,
		)
		if err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}
	}

	var stored int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE ledger_id = ?", ledger.ID,
	).Scan(&stored); err != nil {
		return fmt.Errorf("failed to count transactions: %w", err)
	}
	if stored > len(ledger.Transactions) {
		return fmt.Errorf("%w: ledger %s would drop transactions", storage.ErrVersionConflict, ledger.ID)
	}

	for _, t := range ledger.Transactions[:stored] {
		_, err = tx.ExecContext(ctx,
			`UPDATE transactions SET status = ?, invalidated_by = ?, invalidated_reason = ?, invalidated_at = ?
			 WHERE id = ? AND ledger_id = ?`,
			string(t.Status), nullString(t.InvalidatedBy), nullString(t.InvalidatedReason), nullTime(t.InvalidatedAt),
			t.ID, ledger.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update transaction: %w", err)
		}
	}
	if err := s.insertTransactions(ctx, tx, ledger, stored); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	ledger.Version++
	ledger.ModifiedAt = now
	return nil
}

// insertTransactions inserts ledger.Transactions[from:] with their shares.
func (s *SQLiteStore) insertTransactions(ctx context.Context, tx *sql.Tx, ledger *models.Ledger, from int) error {
	for seq := from; seq < len(ledger.Transactions); seq++ {
		t := &ledger.Transactions[seq]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (id, ledger_id, seq, payer, amount_cents, description, created_at,
			                           status, invalidated_by, invalidated_reason, invalidated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, ledger.ID, seq, t.Payer, int64(t.Amount), t.Description, t.CreatedAt.UnixNano(),
			string(t.Status), nullString(t.InvalidatedBy), nullString(t.InvalidatedReason), nullTime(t.InvalidatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}

		// Owers are stored through their share rows.
		recorded := len(t.Shares) == len(t.Owers)
		for pos, member := range t.Owers {
			var amount any
			if recorded {
				member = t.Shares[pos].Member
				amount = int64(t.Shares[pos].Amount)
			}
			_, err = tx.ExecContext(ctx,
				"INSERT INTO transaction_shares (transaction_id, position, member, amount_cents) VALUES (?, ?, ?, ?)",
				t.ID, pos, member, amount,
			)
			if err != nil {
				return fmt.Errorf("failed to insert share: %w", err)
			}
		}
	}
	return nil
}

func (s *SQLiteStore) loadMembers(ctx context.Context, tx *sql.Tx, ledger *models.Ledger) error {
	rows, err := tx.QueryContext(ctx,
		"SELECT member, balance_cents FROM ledger_members WHERE ledger_id = ? ORDER BY position",
		ledger.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	ledger.Balances = make(map[string]money.Cents)
	for rows.Next() {
		var member string
		var cents int64
		if err := rows.Scan(&member, &cents); err != nil {
			return fmt.Errorf("failed to scan member: %w", err)
		}
		ledger.Members = append(ledger.Members, member)
		ledger.Balances[member] = money.Cents(cents)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate members: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadTransactions(ctx context.Context, tx *sql.Tx, ledger *models.Ledger) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, payer, amount_cents, description, created_at, status,
		        invalidated_by, invalidated_reason, invalidated_at
		 FROM transactions WHERE ledger_id = ? ORDER BY seq`,
		ledger.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get transactions: %w", err)
	}

	index := make(map[string]int)
	for rows.Next() {
		var t models.Transaction
		var amount, createdAt int64
		var status string
		var by, reason sql.NullString
		var at sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Payer, &amount, &t.Description, &createdAt, &status,
			&by, &reason, &at); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Amount = money.Cents(amount)
		t.CreatedAt = fromNanos(createdAt)
		t.Status = models.Status(status)
		t.InvalidatedBy = by.String
		t.InvalidatedReason = reason.String
		if at.Valid {
			t.InvalidatedAt = fromNanos(at.Int64)
		}
		index[t.ID] = len(ledger.Transactions)
		ledger.Transactions = append(ledger.Transactions, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate transactions: %w", err)
	}

	shareRows, err := tx.QueryContext(ctx,
		`SELECT s.transaction_id, s.member, s.amount_cents
		 FROM transaction_shares s JOIN transactions t ON t.id = s.transaction_id
		 WHERE t.ledger_id = ? ORDER BY t.seq, s.position`,
		ledger.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get shares: %w", err)
	}
	defer shareRows.Close()

	for shareRows.Next() {
		var txnID, member string
		var cents sql.NullInt64
		if err := shareRows.Scan(&txnID, &member, &cents); err != nil {
			return fmt.Errorf("failed to scan share: %w", err)
		}
		t := &ledger.Transactions[index[txnID]]
		t.Owers = append(t.Owers, member)
		if cents.Valid {
			t.Shares = append(t.Shares, models.Share{Member: member, Amount: money.Cents(cents.Int64)})
		}
	}
	if err := shareRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate shares: %w", err)
	}
	return nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixNano()
}
