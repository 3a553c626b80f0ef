// Package catalog is the SQLite bill catalog: sessions, bills, their stored
// documents, sponsors and committee hearings. It serves the document, metadata
// and bill-listing lookups of the indexing pipeline.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
	_ "modernc.org/sqlite"

	"github.com/WessleyAI/legisearch/engine/legis"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Catalog is a SQLite-backed bill catalog.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog at path and migrates it.
func Open(ctx context.Context, path string) (*Catalog, error) {
	db, err := openDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog: migrate: %w", err)
	}
	return &Catalog{db: db}, nil
}

func openDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	// One connection keeps the pragmas in force and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// SchemaVersion reports the applied schema version.
func (c *Catalog) SchemaVersion(ctx context.Context) (*semver.Version, error) {
	return CurrentVersion(ctx, c.db)
}

// Sessions lists every stored session, newest first.
func (c *Catalog) Sessions(ctx context.Context) ([]legis.Session, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT year, code, COALESCE(description, '') FROM sessions ORDER BY year DESC, code DESC`)
	if err != nil {
		return nil, fmt.Errorf("catalog: sessions: %w", err)
	}
	defer rows.Close()

	var out []legis.Session
	for rows.Next() {
		var s legis.Session
		if err := rows.Scan(&s.Year, &s.Code, &s.Description); err != nil {
			return nil, fmt.Errorf("catalog: scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// BillsForSession lists the bills of one session in insertion order. A limit
// of zero or less means no limit.
func (c *Catalog) BillsForSession(ctx context.Context, year int, code string, limit int) ([]legis.BillRef, error) {
	query := `
		SELECT b.id, b.bill_number, s.year, s.code
		FROM bills b
		JOIN sessions s ON s.id = b.session_id
		WHERE s.year = ? AND s.code = ?
		ORDER BY b.rowid`
	args := []any{year, code}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: bills for %d %s: %w", year, code, err)
	}
	defer rows.Close()

	var out []legis.BillRef
	for rows.Next() {
		var b legis.BillRef
		if err := rows.Scan(&b.ID, &b.BillNumber, &b.SessionYear, &b.SessionCode); err != nil {
			return nil, fmt.Errorf("catalog: scan bill: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Documents returns every stored document of billID in insertion order.
func (c *Catalog) Documents(ctx context.Context, billID string) ([]legis.DocumentRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, bill_id, document_type, COALESCE(storage_path, '')
		FROM bill_documents
		WHERE bill_id = ?
		ORDER BY rowid`, billID)
	if err != nil {
		return nil, fmt.Errorf("catalog: documents of %s: %w", billID, err)
	}
	defer rows.Close()

	var out []legis.DocumentRecord
	for rows.Next() {
		var d legis.DocumentRecord
		if err := rows.Scan(&d.ID, &d.BillID, &d.DocumentType, &d.StorageRef); err != nil {
			return nil, fmt.Errorf("catalog: scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// BillMetadata assembles the bill, its session, sponsors and the committees
// that heard it. It returns legis.ErrMetadataNotFound for an unknown bill.
func (c *Catalog) BillMetadata(ctx context.Context, billID string) (legis.BillMetadata, error) {
	meta := legis.BillMetadata{BillID: billID}

	var year sql.NullInt64
	var code sql.NullString
	err := c.db.QueryRowContext(ctx, `
		SELECT b.bill_number, s.year, s.code
		FROM bills b
		LEFT JOIN sessions s ON s.id = b.session_id
		WHERE b.id = ?`, billID).Scan(&meta.BillNumber, &year, &code)
	if errors.Is(err, sql.ErrNoRows) {
		return legis.BillMetadata{}, fmt.Errorf("%w: %s", legis.ErrMetadataNotFound, billID)
	}
	if err != nil {
		return legis.BillMetadata{}, fmt.Errorf("catalog: bill %s: %w", billID, err)
	}
	meta.SessionYear = int(year.Int64)
	meta.SessionCode = code.String

	if err := c.sponsors(ctx, billID, &meta); err != nil {
		return legis.BillMetadata{}, err
	}
	committees, err := c.committees(ctx, billID)
	if err != nil {
		return legis.BillMetadata{}, err
	}
	meta.Committees = committees
	return meta, nil
}

func (c *Catalog) sponsors(ctx context.Context, billID string, meta *legis.BillMetadata) error {
	rows, err := c.db.QueryContext(ctx, `
		SELECT l.id, l.name, bs.is_primary
		FROM bill_sponsors bs
		JOIN legislators l ON l.id = bs.legislator_id
		WHERE bs.bill_id = ?
		ORDER BY bs.rowid`, billID)
	if err != nil {
		return fmt.Errorf("catalog: sponsors of %s: %w", billID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p legis.Person
		var primary bool
		if err := rows.Scan(&p.ID, &p.Name, &primary); err != nil {
			return fmt.Errorf("catalog: scan sponsor: %w", err)
		}
		switch {
		case primary && meta.PrimarySponsor == nil:
			meta.PrimarySponsor = &p
		case !primary:
			meta.Cosponsors = append(meta.Cosponsors, p)
		}
	}
	return rows.Err()
}

func (c *Catalog) committees(ctx context.Context, billID string) ([]legis.Committee, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT c.id, c.name
		FROM bill_hearings h
		JOIN committees c ON c.id = h.committee_id
		WHERE h.bill_id = ?
		ORDER BY h.id`, billID)
	if err != nil {
		return nil, fmt.Errorf("catalog: committees of %s: %w", billID, err)
	}
	defer rows.Close()

	var out []legis.Committee
	seen := map[string]bool{}
	for rows.Next() {
		var cm legis.Committee
		if err := rows.Scan(&cm.ID, &cm.Name); err != nil {
			return nil, fmt.Errorf("catalog: scan committee: %w", err)
		}
		if seen[cm.ID] {
			continue
		}
		seen[cm.ID] = true
		out = append(out, cm)
	}
	return out, rows.Err()
}
