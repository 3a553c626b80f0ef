package legis

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{ErrNoText, KindExtraction},
		{fmt.Errorf("fetch: %w", ErrExtraction), KindExtraction},
		{ErrMetadataNotFound, KindMetadataNotFound},
		{fmt.Errorf("upsert: %w", ErrStore), KindStore},
		{Configf("missing %s", "OPENAI_API_KEY"), KindConfiguration},
		{errors.New("boom"), KindUnknown},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestUnitErrorUnwrap(t *testing.T) {
	cause := errors.New("rpc unavailable")
	err := NewUnitError(KindStore, "doc-1", cause)
	if !errors.Is(err, ErrStore) {
		t.Fatal("expected ErrStore")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause")
	}
	if KindOf(err) != KindStore {
		t.Fatalf("kind = %s", KindOf(err))
	}
	if err.Error() != "doc-1: store: rpc unavailable" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestPayloadOmitsAbsentFields(t *testing.T) {
	m := ChunkMetadata{
		BillID:      "b1",
		BillNumber:  "HB 1",
		DocumentID:  "d1",
		ContentType: ContentTypeBillText,
		ChunkIndex:  2,
		DocType:     DocTypeSummary,
		TokenCount:  40,
	}
	p := m.Payload()
	for _, k := range []string{"session_year", "session_code", "primary_sponsor_id", "cosponsor_ids", "committee_ids"} {
		if _, ok := p[k]; ok {
			t.Errorf("unexpected key %s", k)
		}
	}
	if p["doc_type"] != "summary" || p["chunk_index"] != 2 {
		t.Fatalf("payload = %v", p)
	}

	m.PrimarySponsorID, m.PrimarySponsorName = "l1", "Rep. Smith"
	m.CommitteeIDs, m.CommitteeNames = []string{"c1"}, []string{"Budget"}
	p = m.Payload()
	if p["primary_sponsor_name"] != "Rep. Smith" {
		t.Fatalf("sponsor missing: %v", p)
	}
	if names, ok := p["committee_names"].([]string); !ok || names[0] != "Budget" {
		t.Fatalf("committees missing: %v", p)
	}
}

func TestParseSession(t *testing.T) {
	tests := []struct {
		in   string
		want Session
		err  bool
	}{
		{"2025", Session{Year: 2025, Code: "R"}, false},
		{"2025S1", Session{Year: 2025, Code: "S1"}, false},
		{"2020-s2", Session{Year: 2020, Code: "S2"}, false},
		{"20x5", Session{}, true},
		{"2025S9", Session{}, true},
	}
	for _, tt := range tests {
		got, err := ParseSession(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParseSession(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSession(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestKnownSessionsNewestFirst(t *testing.T) {
	if KnownSessions[0].Year != 2026 || KnownSessions[len(KnownSessions)-1].Year != 2000 {
		t.Fatal("unexpected session range")
	}
	for i := 1; i < len(KnownSessions); i++ {
		if KnownSessions[i].Year > KnownSessions[i-1].Year {
			t.Fatalf("session %d out of order", i)
		}
	}
}
