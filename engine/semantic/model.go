package semantic

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/WessleyAI/legisearch/engine/legis"
)

const (
	// DefaultCollection holds all bill chunk vectors.
	DefaultCollection = "bill_embeddings"
	// DefaultMatchFunction is the similarity lookup used by the query side.
	DefaultMatchFunction = "match_bill_embeddings"
)

// VectorRecord is one chunk vector with its text and metadata.
type VectorRecord struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  legis.ChunkMetadata
}

// RecordID derives a stable point ID from (bill, document, chunk index), so
// re-indexing a document overwrites its points instead of adding new ones.
func RecordID(billID, documentID string, chunkIndex int) string {
	key := fmt.Sprintf("%s/%s/%d", billID, documentID, chunkIndex)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// NewRecord builds a VectorRecord for an enriched chunk.
func NewRecord(c legis.EnrichedChunk, embedding []float32) VectorRecord {
	return VectorRecord{
		ID:        RecordID(c.Metadata.BillID, c.Metadata.DocumentID, c.Index),
		Content:   c.Text,
		Embedding: embedding,
		Metadata:  c.Metadata,
	}
}
