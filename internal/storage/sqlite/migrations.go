package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Timestamps are Unix nanoseconds; amounts are integer cents.
// A NULL share amount means the split was not recorded for that ower.
// IMPORTANT: ledgers must be created BEFORE the tables that reference it.
const schema = `
CREATE TABLE IF NOT EXISTS ledgers (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    name TEXT NOT NULL,
    version INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    modified_at INTEGER NOT NULL,
    UNIQUE (group_id, name)
);

CREATE TABLE IF NOT EXISTS ledger_members (
    ledger_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    member TEXT NOT NULL,
    balance_cents INTEGER NOT NULL,
    PRIMARY KEY (ledger_id, member),
    FOREIGN KEY (ledger_id) REFERENCES ledgers(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    ledger_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    payer TEXT NOT NULL,
    amount_cents INTEGER NOT NULL,
    description TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    status TEXT NOT NULL,
    invalidated_by TEXT,
    invalidated_reason TEXT,
    invalidated_at INTEGER,
    UNIQUE (ledger_id, seq),
    FOREIGN KEY (ledger_id) REFERENCES ledgers(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS transaction_shares (
    transaction_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    member TEXT NOT NULL,
    amount_cents INTEGER,
    PRIMARY KEY (transaction_id, position),
    FOREIGN KEY (transaction_id) REFERENCES transactions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_ledgers_group_id ON ledgers(group_id);
CREATE INDEX IF NOT EXISTS idx_ledger_members_ledger_id ON ledger_members(ledger_id);
CREATE INDEX IF NOT EXISTS idx_transactions_ledger_id ON transactions(ledger_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
