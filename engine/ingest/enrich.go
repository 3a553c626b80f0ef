package ingest

import (
	"github.com/WessleyAI/legisearch/engine/legis"
	"github.com/WessleyAI/legisearch/pkg/fn"
)

// Enrich attaches the document and bill metadata to every chunk. All chunks
// of one document share the same bill, sponsor and committee fields; only
// index, token count and doc type vary. Absent facts stay absent.
func Enrich(chunks []legis.Chunk, doc legis.DocumentRecord, meta legis.BillMetadata) []legis.EnrichedChunk {
	base := legis.ChunkMetadata{
		BillID:      meta.BillID,
		BillNumber:  meta.BillNumber,
		DocumentID:  doc.ID,
		ContentType: legis.ContentTypeBillText,
		SessionYear: meta.SessionYear,
		SessionCode: meta.SessionCode,
	}
	if base.BillID == "" {
		base.BillID = doc.BillID
	}
	if p := meta.PrimarySponsor; p != nil {
		base.PrimarySponsorID = p.ID
		base.PrimarySponsorName = p.Name
	}
	if len(meta.Cosponsors) > 0 {
		base.CosponsorIDs = fn.Map(meta.Cosponsors, func(p legis.Person) string { return p.ID })
		base.CosponsorNames = fn.Map(meta.Cosponsors, func(p legis.Person) string { return p.Name })
	}
	if committees := fn.UniqueBy(meta.Committees, func(c legis.Committee) string { return c.ID }); len(committees) > 0 {
		base.CommitteeIDs = fn.Map(committees, func(c legis.Committee) string { return c.ID })
		base.CommitteeNames = fn.Map(committees, func(c legis.Committee) string { return c.Name })
	}

	return fn.Map(chunks, func(c legis.Chunk) legis.EnrichedChunk {
		m := base
		m.ChunkIndex = c.Index
		m.DocType = c.DocType
		m.TokenCount = c.TokenCount
		return legis.EnrichedChunk{Chunk: c, Metadata: m}
	})
}
