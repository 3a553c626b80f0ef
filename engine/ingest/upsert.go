package ingest

import (
	"context"
	"fmt"

	"github.com/WessleyAI/legisearch/engine/legis"
	"github.com/WessleyAI/legisearch/engine/semantic"
	"github.com/WessleyAI/legisearch/pkg/embed"
	"github.com/WessleyAI/legisearch/pkg/fn"
)

// DefaultBatchSize is the max chunks per embedding request.
const DefaultBatchSize = 100

// Upserter embeds enriched chunks and writes them to the vector store.
type Upserter struct {
	Embedder  embed.Embedder
	Vectors   VectorStore
	BatchSize int
}

func (u *Upserter) validate() error {
	switch {
	case u.Embedder == nil:
		return legis.Configf("ingest: no embedder")
	case u.Vectors == nil:
		return legis.Configf("ingest: no vector store")
	}
	return nil
}

// Store embeds chunks and replaces every stored record of documentID with
// them. It returns the number of records written. Embedding failures wrap
// legis.ErrEmbedding and store failures wrap legis.ErrStore; in both cases
// nothing new is written.
func (u *Upserter) Store(ctx context.Context, documentID string, chunks []legis.EnrichedChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	batch := u.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	vectors := make([][]float32, 0, len(chunks))
	for _, group := range fn.Batches(chunks, batch) {
		texts := fn.Map(group, func(c legis.EnrichedChunk) string { return c.Text })
		vecs, err := u.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", legis.ErrEmbedding, documentID, err)
		}
		if len(vecs) != len(texts) {
			return 0, fmt.Errorf("%w: %s: got %d vectors for %d texts", legis.ErrEmbedding, documentID, len(vecs), len(texts))
		}
		vectors = append(vectors, vecs...)
	}

	records := make([]semantic.VectorRecord, len(chunks))
	for i, c := range chunks {
		records[i] = semantic.NewRecord(c, vectors[i])
	}
	if err := u.Vectors.Replace(ctx, documentID, records); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", legis.ErrStore, documentID, err)
	}
	return len(records), nil
}
