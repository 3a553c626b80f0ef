package graph

import (
	"context"
	"fmt"

	"github.com/WessleyAI/legisearch/engine/legis"
)

const (
	mergeBill = `MERGE (b:Bill {id: $id})
SET b.bill_number = $bill_number
WITH b
WHERE $year > 0
MERGE (s:Session {year: $year, code: $code})
MERGE (b)-[:IN_SESSION]->(s)`

	clearBill = `MATCH (b:Bill {id: $id})
OPTIONAL MATCH (b)-[r:SPONSORED_BY]->()
DELETE r
WITH DISTINCT b
OPTIONAL MATCH (h:Hearing)-[:FOR]->(b)
DETACH DELETE h
WITH DISTINCT b
OPTIONAL MATCH (b)-[d:HAS_DOCUMENT]->()
DELETE d`

	mergeSponsors = `MATCH (b:Bill {id: $id})
UNWIND $sponsors AS sp
MERGE (l:Legislator {id: sp.id})
SET l.name = sp.name
MERGE (b)-[r:SPONSORED_BY]->(l)
SET r.primary = sp.primary, r.seq = sp.seq`

	mergeHearings = `MATCH (b:Bill {id: $id})
UNWIND $committees AS cm
MERGE (c:Committee {id: cm.id})
SET c.name = cm.name
CREATE (h:Hearing {seq: cm.seq})
CREATE (h)-[:FOR]->(b)
CREATE (h)-[:HELD_BY]->(c)`

	mergeDocuments = `MATCH (b:Bill {id: $id})
UNWIND $documents AS doc
MERGE (d:Document {id: doc.id})
SET d.type = doc.type, d.storage_path = doc.storage_path, d.seq = doc.seq
MERGE (b)-[:HAS_DOCUMENT]->(d)`
)

// SaveBill writes meta and docs into the graph. Sponsor, hearing and
// document links of an existing bill are replaced.
func (s *Store) SaveBill(ctx context.Context, meta legis.BillMetadata, docs []legis.DocumentRecord) error {
	sess := s.session(ctx)
	defer sess.Close(ctx)

	id := meta.BillID
	steps := []struct {
		name   string
		cypher string
		params map[string]any
	}{
		{"bill", mergeBill, map[string]any{
			"id": id, "bill_number": meta.BillNumber,
			"year": int64(meta.SessionYear), "code": meta.SessionCode,
		}},
		{"clear", clearBill, map[string]any{"id": id}},
		{"sponsors", mergeSponsors, map[string]any{"id": id, "sponsors": sponsorParams(meta)}},
		{"hearings", mergeHearings, map[string]any{"id": id, "committees": committeeParams(meta.Committees)}},
		{"documents", mergeDocuments, map[string]any{"id": id, "documents": documentParams(docs)}},
	}
	for _, st := range steps {
		if _, err := sess.Run(ctx, st.cypher, st.params); err != nil {
			return fmt.Errorf("graph: save %s %s: %w", id, st.name, err)
		}
	}
	return nil
}

func sponsorParams(meta legis.BillMetadata) []map[string]any {
	var out []map[string]any
	if p := meta.PrimarySponsor; p != nil {
		out = append(out, map[string]any{"id": p.ID, "name": p.Name, "primary": true, "seq": int64(0)})
	}
	for i, p := range meta.Cosponsors {
		out = append(out, map[string]any{"id": p.ID, "name": p.Name, "primary": false, "seq": int64(i + 1)})
	}
	return out
}

func committeeParams(cs []legis.Committee) []map[string]any {
	out := make([]map[string]any, len(cs))
	for i, c := range cs {
		out[i] = map[string]any{"id": c.ID, "name": c.Name, "seq": int64(i)}
	}
	return out
}

func documentParams(docs []legis.DocumentRecord) []map[string]any {
	out := make([]map[string]any, len(docs))
	for i, d := range docs {
		out[i] = map[string]any{"id": d.ID, "type": d.DocumentType, "storage_path": d.StorageRef, "seq": int64(i)}
	}
	return out
}
