package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/WessleyAI/legisearch/engine/legis"
)

// Source is a bill catalog the graph can be loaded from.
type Source interface {
	BillsForSession(ctx context.Context, year int, code string, limit int) ([]legis.BillRef, error)
	BillMetadata(ctx context.Context, billID string) (legis.BillMetadata, error)
	Documents(ctx context.Context, billID string) ([]legis.DocumentRecord, error)
}

// SyncStats counts the bills a sync wrote or skipped.
type SyncStats struct {
	Saved   int
	Skipped int
}

// Sync copies the bills of one session from src into the graph. Bills whose
// metadata is missing from src are skipped; any other error stops the sync.
func (s *Store) Sync(ctx context.Context, src Source, session legis.Session, limit int, log *slog.Logger) (SyncStats, error) {
	var st SyncStats
	bills, err := src.BillsForSession(ctx, session.Year, session.Code, limit)
	if err != nil {
		return st, fmt.Errorf("graph: sync %s: %w", session, err)
	}
	for _, b := range bills {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		meta, err := src.BillMetadata(ctx, b.ID)
		if err != nil {
			if legis.KindOf(err) == legis.KindMetadataNotFound {
				log.Warn("graph: skipping bill without metadata", "bill_id", b.ID, "bill_number", b.BillNumber)
				st.Skipped++
				continue
			}
			return st, fmt.Errorf("graph: sync %s: %w", b, err)
		}
		docs, err := src.Documents(ctx, b.ID)
		if err != nil {
			return st, fmt.Errorf("graph: sync %s: %w", b, err)
		}
		if err := s.SaveBill(ctx, meta, docs); err != nil {
			return st, err
		}
		st.Saved++
	}
	return st, nil
}
