package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/WessleyAI/legisearch/engine/legis"
)

// Sponsor links a stored legislator to a bill.
type Sponsor struct {
	LegislatorID string `json:"legislator_id"`
	Primary      bool   `json:"primary,omitempty"`
}

// Hearing is one committee hearing on a bill. The committee is created on
// first use by name.
type Hearing struct {
	Committee string `json:"committee"`
	Date      string `json:"date,omitempty"`
	Location  string `json:"location,omitempty"`
}

// Document is one stored artifact of a bill.
type Document struct {
	ID           string `json:"id,omitempty"`
	DocumentType string `json:"document_type"`
	URL          string `json:"url,omitempty"`
	StoragePath  string `json:"storage_path,omitempty"`
}

// Bill is the write model for UpsertBill.
type Bill struct {
	ID        string     `json:"id,omitempty"`
	Number    string     `json:"number"`
	Title     string     `json:"title,omitempty"`
	Sponsors  []Sponsor  `json:"sponsors,omitempty"`
	Hearings  []Hearing  `json:"hearings,omitempty"`
	Documents []Document `json:"documents,omitempty"`
}

// UpsertSession stores s and returns its id.
func (c *Catalog) UpsertSession(ctx context.Context, s legis.Session) (string, error) {
	var id string
	err := c.db.QueryRowContext(ctx,
		`SELECT id FROM sessions WHERE year = ? AND code = ?`, s.Year, s.Code).Scan(&id)
	switch {
	case err == nil:
		_, err = c.db.ExecContext(ctx,
			`UPDATE sessions SET description = ? WHERE id = ?`, s.Description, id)
		if err != nil {
			return "", fmt.Errorf("catalog: update session %s: %w", s, err)
		}
		return id, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("catalog: find session %s: %w", s, err)
	}

	id = uuid.NewString()
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO sessions (id, year, code, description) VALUES (?, ?, ?, ?)`,
		id, s.Year, s.Code, s.Description)
	if err != nil {
		return "", fmt.Errorf("catalog: insert session %s: %w", s, err)
	}
	return id, nil
}

// UpsertLegislator stores p under its id.
func (c *Catalog) UpsertLegislator(ctx context.Context, p legis.Person) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO legislators (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`, p.ID, p.Name)
	if err != nil {
		return fmt.Errorf("catalog: upsert legislator %s: %w", p.ID, err)
	}
	return nil
}

// UpsertBill stores b in sessionID. An existing bill with the same number in
// the session keeps its id and has its sponsors, hearings and documents
// replaced. The returned flag reports whether the bill already existed.
func (c *Catalog) UpsertBill(ctx context.Context, sessionID string, b Bill) (string, bool, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("catalog: begin: %w", err)
	}
	defer tx.Rollback()

	id, existed, err := upsertBillRow(ctx, tx, sessionID, b)
	if err != nil {
		return "", false, err
	}
	if err := replaceRelations(ctx, tx, id, b); err != nil {
		return "", false, err
	}
	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("catalog: commit bill %s: %w", b.Number, err)
	}
	return id, existed, nil
}

func upsertBillRow(ctx context.Context, q querier, sessionID string, b Bill) (string, bool, error) {
	var id string
	err := q.QueryRowContext(ctx,
		`SELECT id FROM bills WHERE session_id = ? AND bill_number = ?`, sessionID, b.Number).Scan(&id)
	switch {
	case err == nil:
		if _, err := q.ExecContext(ctx, `UPDATE bills SET title = ? WHERE id = ?`, b.Title, id); err != nil {
			return "", false, fmt.Errorf("catalog: update bill %s: %w", b.Number, err)
		}
		return id, true, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", false, fmt.Errorf("catalog: find bill %s: %w", b.Number, err)
	}

	id = b.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO bills (id, session_id, bill_number, title) VALUES (?, ?, ?, ?)`,
		id, sessionID, b.Number, b.Title)
	if err != nil {
		return "", false, fmt.Errorf("catalog: insert bill %s: %w", b.Number, err)
	}
	return id, false, nil
}

// documentKey identifies a stored document across re-imports.
func documentKey(docType, storagePath string) string { return docType + "\x00" + storagePath }

// existingDocumentIDs maps the documents already stored for billID by type
// and storage path.
func existingDocumentIDs(ctx context.Context, q querier, billID string) (map[string]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, document_type, COALESCE(storage_path, '') FROM bill_documents WHERE bill_id = ?`, billID)
	if err != nil {
		return nil, fmt.Errorf("catalog: documents of %s: %w", billID, err)
	}
	defer rows.Close()
	ids := make(map[string]string)
	for rows.Next() {
		var id, docType, path string
		if err := rows.Scan(&id, &docType, &path); err != nil {
			return nil, fmt.Errorf("catalog: scan document: %w", err)
		}
		ids[documentKey(docType, path)] = id
	}
	return ids, rows.Err()
}

// replaceRelations rewrites the sponsors, hearings and documents of billID.
// Documents without an id keep the id of the stored document with the same
// type and storage path, so vector records keyed on it stay valid.
func replaceRelations(ctx context.Context, q querier, billID string, b Bill) error {
	known, err := existingDocumentIDs(ctx, q, billID)
	if err != nil {
		return err
	}
	for _, table := range []string{"bill_sponsors", "bill_hearings", "bill_documents"} {
		if _, err := q.ExecContext(ctx, "DELETE FROM "+table+" WHERE bill_id = ?", billID); err != nil {
			return fmt.Errorf("catalog: clear %s of %s: %w", table, billID, err)
		}
	}

	for _, s := range b.Sponsors {
		_, err := q.ExecContext(ctx,
			`INSERT INTO bill_sponsors (bill_id, legislator_id, is_primary) VALUES (?, ?, ?)`,
			billID, s.LegislatorID, s.Primary)
		if err != nil {
			return fmt.Errorf("catalog: sponsor %s of %s: %w", s.LegislatorID, billID, err)
		}
	}

	for _, h := range b.Hearings {
		committeeID, err := committeeID(ctx, q, h.Committee)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx,
			`INSERT INTO bill_hearings (bill_id, committee_id, hearing_date, location) VALUES (?, ?, ?, ?)`,
			billID, committeeID, h.Date, h.Location)
		if err != nil {
			return fmt.Errorf("catalog: hearing of %s: %w", billID, err)
		}
	}

	for _, d := range b.Documents {
		id := d.ID
		if id == "" {
			id = known[documentKey(d.DocumentType, d.StoragePath)]
		}
		if id == "" {
			id = uuid.NewString()
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO bill_documents (id, bill_id, document_type, document_url, storage_path)
			VALUES (?, ?, ?, ?, NULLIF(?, ''))`,
			id, billID, d.DocumentType, d.URL, d.StoragePath)
		if err != nil {
			return fmt.Errorf("catalog: document %s of %s: %w", d.DocumentType, billID, err)
		}
	}
	return nil
}

func committeeID(ctx context.Context, q querier, name string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, `SELECT id FROM committees WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("catalog: find committee %q: %w", name, err)
	}
	id = uuid.NewString()
	if _, err := q.ExecContext(ctx, `INSERT INTO committees (id, name) VALUES (?, ?)`, id, name); err != nil {
		return "", fmt.Errorf("catalog: insert committee %q: %w", name, err)
	}
	return id, nil
}
