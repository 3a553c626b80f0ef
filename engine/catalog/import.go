package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/WessleyAI/legisearch/engine/legis"
)

// Manifest is one session's worth of catalog rows, as produced by the
// collection jobs that download bill documents.
type Manifest struct {
	Session     legis.Session  `json:"session"`
	Legislators []legis.Person `json:"legislators,omitempty"`
	Bills       []Bill         `json:"bills"`
}

// ImportStats counts what an import wrote.
type ImportStats struct {
	Legislators int `json:"legislators"`
	BillsNew    int `json:"bills_new"`
	BillsUpdate int `json:"bills_updated"`
	Documents   int `json:"documents"`
}

// DecodeManifests reads a JSON manifest or an array of them.
func DecodeManifests(r io.Reader) ([]Manifest, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("catalog: decode manifest: %w", err)
	}
	var many []Manifest
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, nil
	}
	var one Manifest
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, fmt.Errorf("catalog: decode manifest: %w", err)
	}
	return []Manifest{one}, nil
}

// Import writes m into the catalog. Legislators go first so sponsor rows can
// reference them. Re-importing a manifest updates rows in place.
func (c *Catalog) Import(ctx context.Context, m Manifest) (ImportStats, error) {
	var st ImportStats
	if m.Session.Year == 0 || m.Session.Code == "" {
		return st, fmt.Errorf("catalog: manifest without session year and code")
	}
	sid, err := c.UpsertSession(ctx, m.Session)
	if err != nil {
		return st, err
	}
	for _, p := range m.Legislators {
		if err := c.UpsertLegislator(ctx, p); err != nil {
			return st, err
		}
		st.Legislators++
	}
	for _, b := range m.Bills {
		if b.Number == "" {
			return st, fmt.Errorf("catalog: bill without number in session %s", m.Session)
		}
		_, existed, err := c.UpsertBill(ctx, sid, b)
		if err != nil {
			return st, err
		}
		if existed {
			st.BillsUpdate++
		} else {
			st.BillsNew++
		}
		st.Documents += len(b.Documents)
	}
	return st, nil
}
