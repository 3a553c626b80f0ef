package ingest

import (
	"context"
	"log/slog"

	"github.com/WessleyAI/legisearch/engine/chunking"
	"github.com/WessleyAI/legisearch/engine/legis"
	"github.com/WessleyAI/legisearch/engine/semantic"
	"github.com/WessleyAI/legisearch/pkg/metrics"
)

// DocumentSource lists the stored documents of a bill.
type DocumentSource interface {
	Documents(ctx context.Context, billID string) ([]legis.DocumentRecord, error)
}

// BlobFetcher returns the raw bytes behind a storage ref.
type BlobFetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// MetadataSource resolves bill-level metadata. Implementations return
// legis.ErrMetadataNotFound for unknown bills.
type MetadataSource interface {
	BillMetadata(ctx context.Context, billID string) (legis.BillMetadata, error)
}

// BillLister lists the bills of one session. A limit of zero or less means
// no limit.
type BillLister interface {
	BillsForSession(ctx context.Context, year int, code string, limit int) ([]legis.BillRef, error)
}

// TextExtractor turns raw document bytes into text.
type TextExtractor interface {
	ExtractText(raw []byte) (string, error)
}

// VectorStore replaces every record of one document.
type VectorStore interface {
	Replace(ctx context.Context, documentID string, records []semantic.VectorRecord) error
}

// Deps holds the external dependencies of one indexing run. Callers build it
// once and share it read-only across every bill of the run.
type Deps struct {
	Documents DocumentSource
	Blobs     BlobFetcher
	Metadata  MetadataSource
	Bills     BillLister
	Extractor TextExtractor
	Chunker   *chunking.Chunker
	Upserter  *Upserter
	Logger    *slog.Logger
	Metrics   *metrics.Registry // optional
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// Validate reports the first missing dependency as a configuration error.
// Bills may be nil when only single bills are processed.
func (d Deps) Validate() error {
	switch {
	case d.Documents == nil:
		return legis.Configf("ingest: no document source")
	case d.Blobs == nil:
		return legis.Configf("ingest: no blob fetcher")
	case d.Metadata == nil:
		return legis.Configf("ingest: no metadata source")
	case d.Extractor == nil:
		return legis.Configf("ingest: no text extractor")
	case d.Chunker == nil:
		return legis.Configf("ingest: no chunker")
	case d.Upserter == nil:
		return legis.Configf("ingest: no upserter")
	}
	return d.Upserter.validate()
}
