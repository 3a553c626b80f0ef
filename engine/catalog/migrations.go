package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// SchemaVersion is the version the catalog is migrated to on Open.
const SchemaVersion = "1.1.0"

// Migration is one forward schema step.
type Migration struct {
	Version string
	Up      string
}

// Migrations lists every schema step in order.
var Migrations = []Migration{
	{Version: "1.0.0", Up: migrationV1},
	{Version: "1.1.0", Up: migrationV1_1},
}

const migrationV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    year INTEGER NOT NULL,
    code TEXT NOT NULL,
    description TEXT,
    UNIQUE(year, code)
);

CREATE TABLE IF NOT EXISTS bills (
    id TEXT PRIMARY KEY,
    session_id TEXT REFERENCES sessions(id) ON DELETE SET NULL,
    bill_number TEXT NOT NULL,
    title TEXT,
    UNIQUE(session_id, bill_number)
);

CREATE TABLE IF NOT EXISTS bill_documents (
    id TEXT PRIMARY KEY,
    bill_id TEXT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
    document_type TEXT NOT NULL,
    document_url TEXT,
    storage_path TEXT
);

CREATE TABLE IF NOT EXISTS legislators (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bill_sponsors (
    bill_id TEXT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
    legislator_id TEXT NOT NULL REFERENCES legislators(id),
    is_primary INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (bill_id, legislator_id)
);

CREATE TABLE IF NOT EXISTS committees (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS bill_hearings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    bill_id TEXT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
    committee_id TEXT NOT NULL REFERENCES committees(id),
    hearing_date TEXT,
    location TEXT
);
`

const migrationV1_1 = `
CREATE INDEX IF NOT EXISTS idx_bills_session ON bills(session_id);
CREATE INDEX IF NOT EXISTS idx_bill_documents_bill ON bill_documents(bill_id);
CREATE INDEX IF NOT EXISTS idx_bill_sponsors_bill ON bill_sponsors(bill_id, is_primary);
CREATE INDEX IF NOT EXISTS idx_bill_hearings_bill ON bill_hearings(bill_id);
`

// CurrentVersion reports the last applied schema version, 0.0.0 for a fresh
// database.
func CurrentVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	var name string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("check schema_version table: %w", err)
	}

	var v string
	err = db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY rowid DESC LIMIT 1").Scan(&v)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && v == "") {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read schema_version: %w", err)
	}
	current, err := semver.NewVersion(v)
	if err != nil {
		return nil, fmt.Errorf("invalid schema version %s: %w", v, err)
	}
	return current, nil
}

// ApplyMigrations runs every migration newer than the current version, each
// in its own transaction.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	current, err := CurrentVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range Migrations {
		v, err := semver.NewVersion(m.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", m.Version, err)
		}
		if !current.LessThan(v) {
			continue
		}
		if err := applyOne(ctx, db, m); err != nil {
			return err
		}
		current = v
	}
	return nil
}

func applyOne(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		return fmt.Errorf("apply migration %s: %w", m.Version, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
		return fmt.Errorf("record migration %s: %w", m.Version, err)
	}
	return tx.Commit()
}
