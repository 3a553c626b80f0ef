// Package legis holds the shared data model for bills, their documents and the
// chunks derived from them.
package legis

import "fmt"

// DocType tags chunked text by how it was split.
type DocType string

const (
	DocTypeLegislative DocType = "legislative_text"
	DocTypeSummary     DocType = "summary"
)

// ContentTypeBillText is stamped on every chunk produced from a bill document.
const ContentTypeBillText = "bill_text"

// DocumentRecord is one stored artifact of a bill (a version of its text or a
// fiscal note). Records are values and are never mutated.
type DocumentRecord struct {
	ID           string `json:"id"`
	BillID       string `json:"bill_id"`
	DocumentType string `json:"document_type"`
	StorageRef   string `json:"storage_ref"`
}

// BillRef identifies a bill within a session.
type BillRef struct {
	ID          string `json:"id"`
	BillNumber  string `json:"bill_number"`
	SessionYear int    `json:"session_year"`
	SessionCode string `json:"session_code"`
}

func (b BillRef) String() string {
	return fmt.Sprintf("%s (%d %s)", b.BillNumber, b.SessionYear, b.SessionCode)
}

// Person is a legislator linked to a bill as sponsor or co-sponsor.
type Person struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Committee is a committee that held a hearing on a bill.
type Committee struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BillMetadata carries the bill-level facts attached to every chunk.
// SessionYear is zero and SessionCode empty when the session is unknown.
type BillMetadata struct {
	BillID         string      `json:"bill_id"`
	BillNumber     string      `json:"bill_number"`
	SessionYear    int         `json:"session_year,omitempty"`
	SessionCode    string      `json:"session_code,omitempty"`
	PrimarySponsor *Person     `json:"primary_sponsor,omitempty"`
	Cosponsors     []Person    `json:"cosponsors,omitempty"`
	Committees     []Committee `json:"committees,omitempty"`
}

// Chunk is a zero-indexed fragment of one document's cleaned text.
type Chunk struct {
	Index         int     `json:"index"`
	Text          string  `json:"text"`
	TokenCount    int     `json:"token_count"`
	DocType       DocType `json:"doc_type"`
	DocumentIndex int     `json:"document_index"`
}

// ChunkMetadata is the metadata record written next to each vector.
// Optional fields are omitted when the upstream fact is absent.
type ChunkMetadata struct {
	BillID             string   `json:"bill_id"`
	BillNumber         string   `json:"bill_number"`
	DocumentID         string   `json:"document_id"`
	ContentType        string   `json:"content_type"`
	ChunkIndex         int      `json:"chunk_index"`
	DocType            DocType  `json:"doc_type"`
	TokenCount         int      `json:"token_count"`
	SessionYear        int      `json:"session_year,omitempty"`
	SessionCode        string   `json:"session_code,omitempty"`
	PrimarySponsorID   string   `json:"primary_sponsor_id,omitempty"`
	PrimarySponsorName string   `json:"primary_sponsor_name,omitempty"`
	CosponsorIDs       []string `json:"cosponsor_ids,omitempty"`
	CosponsorNames     []string `json:"cosponsor_names,omitempty"`
	CommitteeIDs       []string `json:"committee_ids,omitempty"`
	CommitteeNames     []string `json:"committee_names,omitempty"`
}

// Payload flattens the metadata into a generic map for stores that take
// schemaless payloads. Absent optional fields have no key.
func (m ChunkMetadata) Payload() map[string]any {
	p := map[string]any{
		"bill_id":      m.BillID,
		"bill_number":  m.BillNumber,
		"document_id":  m.DocumentID,
		"content_type": m.ContentType,
		"chunk_index":  m.ChunkIndex,
		"doc_type":     string(m.DocType),
		"token_count":  m.TokenCount,
	}
	if m.SessionYear != 0 {
		p["session_year"] = m.SessionYear
	}
	if m.SessionCode != "" {
		p["session_code"] = m.SessionCode
	}
	if m.PrimarySponsorID != "" {
		p["primary_sponsor_id"] = m.PrimarySponsorID
		p["primary_sponsor_name"] = m.PrimarySponsorName
	}
	if len(m.CosponsorIDs) > 0 {
		p["cosponsor_ids"] = m.CosponsorIDs
		p["cosponsor_names"] = m.CosponsorNames
	}
	if len(m.CommitteeIDs) > 0 {
		p["committee_ids"] = m.CommitteeIDs
		p["committee_names"] = m.CommitteeNames
	}
	return p
}

// EnrichedChunk is a chunk paired with its metadata record.
type EnrichedChunk struct {
	Chunk
	Metadata ChunkMetadata `json:"metadata"`
}
