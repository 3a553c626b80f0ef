package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/legisearch/engine/legis"
)

const (
	billQuery = `MATCH (b:Bill {id: $id})
OPTIONAL MATCH (b)-[:IN_SESSION]->(s:Session)
RETURN b.bill_number AS bill_number, s.year AS year, s.code AS code`

	sponsorsQuery = `MATCH (b:Bill {id: $id})-[r:SPONSORED_BY]->(l:Legislator)
RETURN l.id AS id, l.name AS name, coalesce(r.primary, false) AS primary
ORDER BY coalesce(r.seq, 0), l.id`

	committeesQuery = `MATCH (h:Hearing)-[:FOR]->(b:Bill {id: $id})
MATCH (h)-[:HELD_BY]->(c:Committee)
RETURN c.id AS id, c.name AS name
ORDER BY coalesce(h.seq, 0)`

	documentsQuery = `MATCH (b:Bill {id: $id})-[:HAS_DOCUMENT]->(d:Document)
RETURN d.id AS id, coalesce(d.type, '') AS type, coalesce(d.storage_path, '') AS storage_path
ORDER BY coalesce(d.seq, 0)`

	sessionBillsQuery = `MATCH (b:Bill)-[:IN_SESSION]->(s:Session {year: $year, code: $code})
RETURN b.id AS id, b.bill_number AS bill_number
ORDER BY b.bill_number`
)

type sponsorRow struct {
	person  legis.Person
	primary bool
}

// BillMetadata assembles the bill, its session, sponsors and hearing
// committees. It returns legis.ErrMetadataNotFound for an unknown bill.
func (s *Store) BillMetadata(ctx context.Context, billID string) (legis.BillMetadata, error) {
	sess := s.session(ctx)
	defer sess.Close(ctx)

	params := map[string]any{"id": billID}
	res, err := sess.Run(ctx, billQuery, params)
	if err != nil {
		return legis.BillMetadata{}, fmt.Errorf("graph: bill %s: %w", billID, err)
	}
	if !res.Next(ctx) {
		if err := res.Err(); err != nil {
			return legis.BillMetadata{}, fmt.Errorf("graph: bill %s: %w", billID, err)
		}
		return legis.BillMetadata{}, fmt.Errorf("%w: %s", legis.ErrMetadataNotFound, billID)
	}
	meta, err := billFromRecord(billID, res.Record())
	if err != nil {
		return legis.BillMetadata{}, err
	}

	sponsors, err := collect(ctx, sess, sponsorsQuery, params, sponsorFromRecord)
	if err != nil {
		return legis.BillMetadata{}, fmt.Errorf("graph: sponsors of %s: %w", billID, err)
	}
	for _, sp := range sponsors {
		switch {
		case sp.primary && meta.PrimarySponsor == nil:
			p := sp.person
			meta.PrimarySponsor = &p
		case !sp.primary:
			meta.Cosponsors = append(meta.Cosponsors, sp.person)
		}
	}

	committees, err := collect(ctx, sess, committeesQuery, params, committeeFromRecord)
	if err != nil {
		return legis.BillMetadata{}, fmt.Errorf("graph: committees of %s: %w", billID, err)
	}
	seen := map[string]bool{}
	for _, c := range committees {
		if !seen[c.ID] {
			seen[c.ID] = true
			meta.Committees = append(meta.Committees, c)
		}
	}
	return meta, nil
}

// Documents returns the stored documents of billID in their recorded order.
func (s *Store) Documents(ctx context.Context, billID string) ([]legis.DocumentRecord, error) {
	sess := s.session(ctx)
	defer sess.Close(ctx)

	docs, err := collect(ctx, sess, documentsQuery, map[string]any{"id": billID},
		func(rec *neo4j.Record) (legis.DocumentRecord, error) {
			d := legis.DocumentRecord{BillID: billID}
			var err error
			if d.ID, err = str(rec, "id"); err != nil {
				return d, err
			}
			if d.DocumentType, err = str(rec, "type"); err != nil {
				return d, err
			}
			d.StorageRef, err = str(rec, "storage_path")
			return d, err
		})
	if err != nil {
		return nil, fmt.Errorf("graph: documents of %s: %w", billID, err)
	}
	return docs, nil
}

// BillsForSession lists the bills of a session ordered by number. A limit of
// zero or less means no limit.
func (s *Store) BillsForSession(ctx context.Context, year int, code string, limit int) ([]legis.BillRef, error) {
	sess := s.session(ctx)
	defer sess.Close(ctx)

	cypher := sessionBillsQuery
	params := map[string]any{"year": int64(year), "code": code}
	if limit > 0 {
		cypher += "\nLIMIT $limit"
		params["limit"] = int64(limit)
	}
	bills, err := collect(ctx, sess, cypher, params, func(rec *neo4j.Record) (legis.BillRef, error) {
		b := legis.BillRef{SessionYear: year, SessionCode: code}
		var err error
		if b.ID, err = str(rec, "id"); err != nil {
			return b, err
		}
		b.BillNumber, err = str(rec, "bill_number")
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("graph: bills for %d %s: %w", year, code, err)
	}
	return bills, nil
}

func billFromRecord(billID string, rec *neo4j.Record) (legis.BillMetadata, error) {
	meta := legis.BillMetadata{BillID: billID}
	var err error
	if meta.BillNumber, err = str(rec, "bill_number"); err != nil {
		return meta, fmt.Errorf("graph: bill %s: %w", billID, err)
	}
	year, _, err := neo4j.GetRecordValue[int64](rec, "year")
	if err != nil {
		return meta, fmt.Errorf("graph: bill %s year: %w", billID, err)
	}
	meta.SessionYear = int(year)
	if meta.SessionCode, err = str(rec, "code"); err != nil {
		return meta, fmt.Errorf("graph: bill %s code: %w", billID, err)
	}
	return meta, nil
}

func sponsorFromRecord(rec *neo4j.Record) (sponsorRow, error) {
	var row sponsorRow
	var err error
	if row.person.ID, err = str(rec, "id"); err != nil {
		return row, err
	}
	if row.person.Name, err = str(rec, "name"); err != nil {
		return row, err
	}
	row.primary, _, err = neo4j.GetRecordValue[bool](rec, "primary")
	return row, err
}

func committeeFromRecord(rec *neo4j.Record) (legis.Committee, error) {
	var c legis.Committee
	var err error
	if c.ID, err = str(rec, "id"); err != nil {
		return c, err
	}
	c.Name, err = str(rec, "name")
	return c, err
}
