package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/WessleyAI/legisearch/engine/chunking"
	"github.com/WessleyAI/legisearch/engine/extract"
	"github.com/WessleyAI/legisearch/engine/legis"
	"github.com/WessleyAI/legisearch/engine/semantic"
	"github.com/WessleyAI/legisearch/pkg/metrics"
)

// --- Fakes ---

type fakeDocs map[string][]legis.DocumentRecord

func (f fakeDocs) Documents(_ context.Context, billID string) ([]legis.DocumentRecord, error) {
	if billID == "broken" {
		return nil, errors.New("catalog offline")
	}
	return f[billID], nil
}

type fakeBlobs map[string]string

func (f fakeBlobs) Fetch(_ context.Context, ref string) ([]byte, error) {
	s, ok := f[ref]
	if !ok {
		return nil, fmt.Errorf("no object %s", ref)
	}
	return []byte(s), nil
}

type fakeMeta map[string]legis.BillMetadata

func (f fakeMeta) BillMetadata(_ context.Context, billID string) (legis.BillMetadata, error) {
	m, ok := f[billID]
	if !ok {
		return legis.BillMetadata{}, fmt.Errorf("%w: %s", legis.ErrMetadataNotFound, billID)
	}
	return m, nil
}

type fakeBills []legis.BillRef

func (f fakeBills) BillsForSession(_ context.Context, year int, code string, limit int) ([]legis.BillRef, error) {
	var out []legis.BillRef
	for _, b := range f {
		if b.SessionYear == year && b.SessionCode == code {
			out = append(out, b)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeEmbedder fails every batch containing a text with failOn.
type fakeEmbedder struct {
	mu     sync.Mutex
	failOn string
	calls  int
}

func (e *fakeEmbedder) Model() string { return "fake" }

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if e.failOn != "" && strings.Contains(t, e.failOn) {
			return nil, errors.New("provider 500")
		}
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

type fakeStore struct {
	docs     map[string][]semantic.VectorRecord
	replaces int
	err      error
}

func newFakeStore() *fakeStore { return &fakeStore{docs: map[string][]semantic.VectorRecord{}} }

func (s *fakeStore) Replace(_ context.Context, documentID string, records []semantic.VectorRecord) error {
	if s.err != nil {
		return s.err
	}
	s.replaces++
	s.docs[documentID] = records
	return nil
}

func (s *fakeStore) total() int {
	n := 0
	for _, r := range s.docs {
		n += len(r)
	}
	return n
}

// --- Fixtures ---

const legislativeText = `HB 1366 INTRODUCED

Section A. Chapter 338, RSMo, is amended by adding one new section.

338.056. 1. The pharma-
cist may substitute a generic product.

Section B. This act takes effect on August twenty-eighth.`

const summaryText = "This bill changes pharmacy rules. It applies to generic drugs! Does it expire? No."

func testMeta() legis.BillMetadata {
	return legis.BillMetadata{
		BillID:         "bill-1",
		BillNumber:     "HB 1366",
		SessionYear:    2025,
		SessionCode:    "R",
		PrimarySponsor: &legis.Person{ID: "l1", Name: "Rep. One"},
		Cosponsors:     []legis.Person{{ID: "l2", Name: "Rep. Two"}},
		Committees: []legis.Committee{
			{ID: "c1", Name: "Health"},
			{ID: "c2", Name: "Rules"},
			{ID: "c1", Name: "Health"},
		},
	}
}

type fixture struct {
	deps     Deps
	embedder *fakeEmbedder
	store    *fakeStore
	registry *metrics.Registry
}

func newFixture() *fixture {
	f := &fixture{embedder: &fakeEmbedder{}, store: newFakeStore(), registry: metrics.New()}
	f.deps = Deps{
		Documents: fakeDocs{
			"bill-1": {
				{ID: "d1", BillID: "bill-1", DocumentType: "Introduced", StorageRef: "hb1366i.txt"},
				{ID: "d2", BillID: "bill-1", DocumentType: "Fiscal Note", StorageRef: "hb1366i.ORG.txt"},
				{ID: "d3", BillID: "bill-1", DocumentType: "Perfected", StorageRef: "hb1366p.txt"},
				{ID: "d4", BillID: "bill-1", DocumentType: "Committee"},
			},
			"bill-2": {
				{ID: "d5", BillID: "bill-2", DocumentType: "Introduced", StorageRef: "sb7i.txt"},
			},
			"orphan": {
				{ID: "d6", BillID: "orphan", DocumentType: "Introduced", StorageRef: "orphan.txt"},
			},
		},
		Blobs: fakeBlobs{
			"hb1366i.txt": legislativeText,
			"hb1366p.txt": strings.Replace(legislativeText, "generic", "perfected generic", 1),
			"sb7i.txt":    summaryText,
			"orphan.txt":  summaryText,
			"blank.txt":   " \x00\n\n\n ",
		},
		Metadata: fakeMeta{
			"bill-1": testMeta(),
			"bill-2": {BillID: "bill-2", BillNumber: "SB 7", SessionYear: 2025, SessionCode: "R"},
		},
		Bills: fakeBills{
			{ID: "bill-1", BillNumber: "HB 1366", SessionYear: 2025, SessionCode: "R"},
			{ID: "bill-2", BillNumber: "SB 7", SessionYear: 2025, SessionCode: "R"},
			{ID: "orphan", BillNumber: "HB 9", SessionYear: 2025, SessionCode: "R"},
			{ID: "bill-x", BillNumber: "HB 1", SessionYear: 2024, SessionCode: "R"},
		},
		Extractor: extract.Plain{},
		Chunker:   chunking.New(chunking.Words, 800, 100),
		Upserter:  &Upserter{Embedder: f.embedder, Vectors: f.store, BatchSize: 2},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:   f.registry,
	}
	return f
}

// --- Enrich ---

func TestEnrich(t *testing.T) {
	chunks := []legis.Chunk{
		{Index: 0, Text: "a", TokenCount: 1, DocType: legis.DocTypeLegislative},
		{Index: 1, Text: "b c", TokenCount: 2, DocType: legis.DocTypeLegislative},
	}
	doc := legis.DocumentRecord{ID: "d1", BillID: "bill-1"}
	got := Enrich(chunks, doc, testMeta())
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	m0, m1 := got[0].Metadata, got[1].Metadata
	if m0.ChunkIndex != 0 || m1.ChunkIndex != 1 || m1.TokenCount != 2 {
		t.Fatalf("per-chunk fields: %+v %+v", m0, m1)
	}
	if m0.DocumentID != "d1" || m0.ContentType != legis.ContentTypeBillText || m0.BillNumber != "HB 1366" {
		t.Fatalf("doc fields: %+v", m0)
	}
	if m0.PrimarySponsorName != "Rep. One" || len(m1.CosponsorIDs) != 1 {
		t.Fatalf("sponsors: %+v", m1)
	}
	if strings.Join(m0.CommitteeNames, ",") != "Health,Rules" {
		t.Fatalf("committees not deduplicated: %v", m0.CommitteeNames)
	}
	if got[1].Text != "b c" {
		t.Fatalf("chunk text lost: %q", got[1].Text)
	}
}

func TestEnrichOmitsAbsentFacts(t *testing.T) {
	got := Enrich([]legis.Chunk{{Index: 0, Text: "a"}}, legis.DocumentRecord{ID: "d", BillID: "b"}, legis.BillMetadata{BillNumber: "HB 2"})
	m := got[0].Metadata
	if m.BillID != "b" {
		t.Fatalf("bill id should fall back to the document's: %q", m.BillID)
	}
	p := m.Payload()
	for _, k := range []string{"primary_sponsor_id", "cosponsor_ids", "committee_ids", "session_year", "session_code"} {
		if _, ok := p[k]; ok {
			t.Errorf("absent fact %s present in payload", k)
		}
	}
}

// --- Upserter ---

func enriched(n int) []legis.EnrichedChunk {
	chunks := make([]legis.Chunk, n)
	for i := range chunks {
		chunks[i] = legis.Chunk{Index: i, Text: fmt.Sprintf("chunk %d", i)}
	}
	return Enrich(chunks, legis.DocumentRecord{ID: "d1"}, legis.BillMetadata{BillID: "b1"})
}

func TestUpserterBatches(t *testing.T) {
	e, s := &fakeEmbedder{}, newFakeStore()
	u := &Upserter{Embedder: e, Vectors: s, BatchSize: 2}
	n, err := u.Store(context.Background(), "d1", enriched(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 5 || e.calls != 3 || s.replaces != 1 {
		t.Fatalf("n=%d calls=%d replaces=%d", n, e.calls, s.replaces)
	}
	if s.docs["d1"][4].ID != semantic.RecordID("b1", "d1", 4) {
		t.Fatalf("record id = %s", s.docs["d1"][4].ID)
	}
}

func TestUpserterEmbeddingFailureWritesNothing(t *testing.T) {
	s := newFakeStore()
	u := &Upserter{Embedder: &fakeEmbedder{failOn: "chunk 3"}, Vectors: s, BatchSize: 2}
	n, err := u.Store(context.Background(), "d1", enriched(5))
	if !errors.Is(err, legis.ErrEmbedding) || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if s.replaces != 0 {
		t.Fatal("store must not be touched after an embedding failure")
	}
}

func TestUpserterStoreFailure(t *testing.T) {
	u := &Upserter{Embedder: &fakeEmbedder{}, Vectors: &fakeStore{err: errors.New("disk full")}}
	_, err := u.Store(context.Background(), "d1", enriched(1))
	if !errors.Is(err, legis.ErrStore) || legis.KindOf(err) != legis.KindStore {
		t.Fatalf("err = %v", err)
	}
}

func TestUpserterEmpty(t *testing.T) {
	s := newFakeStore()
	u := &Upserter{Embedder: &fakeEmbedder{}, Vectors: s}
	if n, err := u.Store(context.Background(), "d1", nil); n != 0 || err != nil {
		t.Fatalf("n=%d err=%v", n, err)
	}
}

// --- ProcessDocument ---

func TestProcessDocument(t *testing.T) {
	f := newFixture()
	doc := legis.DocumentRecord{ID: "d1", BillID: "bill-1", DocumentType: "Introduced", StorageRef: "hb1366i.txt"}
	r := ProcessDocument(context.Background(), f.deps, doc, testMeta())
	if r.Err != nil {
		t.Fatalf("unexpected error: %v", r.Err)
	}
	if r.Status() != StatusSucceeded || r.Embeddings == 0 || r.Embeddings != len(f.store.docs["d1"]) {
		t.Fatalf("result = %+v", r)
	}
	rec := f.store.docs["d1"][0]
	if rec.Metadata.DocType != legis.DocTypeLegislative || rec.Metadata.SessionCode != "R" {
		t.Fatalf("metadata = %+v", rec.Metadata)
	}
	var joined strings.Builder
	for _, r := range f.store.docs["d1"] {
		joined.WriteString(r.Content)
		if strings.Contains(r.Content, "pharma-\ncist") {
			t.Fatal("text was not cleaned before chunking")
		}
	}
	if !strings.Contains(joined.String(), "pharmacist") {
		t.Fatalf("content = %q", joined.String())
	}
}

func TestProcessDocumentSkipsMissingStorage(t *testing.T) {
	f := newFixture()
	r := ProcessDocument(context.Background(), f.deps, legis.DocumentRecord{ID: "d4"}, testMeta())
	if r.Status() != StatusSkipped || r.Err != nil || f.embedder.calls != 0 {
		t.Fatalf("result = %+v", r)
	}
}

func TestProcessDocumentFailures(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		kind legis.ErrorKind
	}{
		{"fetch", "missing.txt", legis.KindExtraction},
		{"blank", "blank.txt", legis.KindExtraction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			r := ProcessDocument(context.Background(), f.deps, legis.DocumentRecord{ID: "dx", StorageRef: tt.ref}, testMeta())
			if r.Status() != StatusFailed || legis.KindOf(r.Err) != tt.kind || r.Embeddings != 0 {
				t.Fatalf("result = %+v", r)
			}
			var ue *legis.UnitError
			if !errors.As(r.Err, &ue) || ue.Unit != "dx" {
				t.Fatalf("err = %v", r.Err)
			}
		})
	}
}

func TestProcessDocumentBlankTextIsNoText(t *testing.T) {
	f := newFixture()
	r := ProcessDocument(context.Background(), f.deps, legis.DocumentRecord{ID: "dx", StorageRef: "blank.txt"}, testMeta())
	if !errors.Is(r.Err, legis.ErrNoText) {
		t.Fatalf("err = %v", r.Err)
	}
}

// --- ProcessBill ---

func TestProcessBillSelectsIntroducedAndLatest(t *testing.T) {
	f := newFixture()
	r := ProcessBill(context.Background(), f.deps, "bill-1")
	if r.Err != nil {
		t.Fatalf("unexpected error: %v", r.Err)
	}
	if len(r.Documents) != 2 || r.Documents[0].Document.ID != "d1" || r.Documents[1].Document.ID != "d3" {
		t.Fatalf("documents = %+v", r.Documents)
	}
	if _, ok := f.store.docs["d2"]; ok {
		t.Fatal("fiscal note was indexed")
	}
	if !r.Processed() || r.Embeddings() != f.store.total() || r.BillNumber != "HB 1366" {
		t.Fatalf("bill = %+v", r)
	}
}

func TestProcessBillFailureIsolation(t *testing.T) {
	f := newFixture()
	f.embedder.failOn = "perfected generic"
	r := ProcessBill(context.Background(), f.deps, "bill-1")

	if r.Documents[0].Status() != StatusSucceeded {
		t.Fatalf("introduced doc = %+v", r.Documents[0])
	}
	if r.Documents[1].Status() != StatusFailed || legis.KindOf(r.Documents[1].Err) != legis.KindEmbedding {
		t.Fatalf("perfected doc = %+v", r.Documents[1])
	}
	if !r.Processed() || r.Status() != StatusSucceeded {
		t.Fatal("bill with one good document must count as processed")
	}

	var report RunReport
	report.AddBill(r)
	if report.DocumentsSucceeded != 1 || report.DocumentsFailed != 1 || report.DocumentsSkipped != 2 {
		t.Fatalf("report = %+v", report)
	}
	if len(report.Failures) != 1 || report.Failures[0].Unit != "d3" || report.Failures[0].Kind != legis.KindEmbedding {
		t.Fatalf("failures = %+v", report.Failures)
	}
}

func TestProcessBillMetadataNotFound(t *testing.T) {
	f := newFixture()
	r := ProcessBill(context.Background(), f.deps, "orphan")
	if legis.KindOf(r.Err) != legis.KindMetadataNotFound || r.Embeddings() != 0 || len(r.Documents) != 0 {
		t.Fatalf("result = %+v", r)
	}
	if f.embedder.calls != 0 {
		t.Fatal("no document of a bill without metadata may be embedded")
	}
}

func TestProcessBillDocumentListFailure(t *testing.T) {
	f := newFixture()
	r := ProcessBill(context.Background(), f.deps, "broken")
	if r.Status() != StatusFailed || r.Err == nil {
		t.Fatalf("result = %+v", r)
	}
}

func TestProcessBillIsIdempotent(t *testing.T) {
	f := newFixture()
	first := ProcessBill(context.Background(), f.deps, "bill-1")
	ids := map[string]bool{}
	for _, recs := range f.store.docs {
		for _, r := range recs {
			ids[r.ID] = true
		}
	}

	second := ProcessBill(context.Background(), f.deps, "bill-1")
	if first.Embeddings() != second.Embeddings() || f.store.total() != first.Embeddings() {
		t.Fatalf("re-run changed counts: %d vs %d (stored %d)", first.Embeddings(), second.Embeddings(), f.store.total())
	}
	for _, recs := range f.store.docs {
		for _, r := range recs {
			if !ids[r.ID] {
				t.Fatalf("re-run produced a new record id %s", r.ID)
			}
		}
	}
}

// --- Sessions ---

func TestProcessSession(t *testing.T) {
	f := newFixture()
	report := ProcessSession(context.Background(), f.deps, legis.Session{Year: 2025, Code: "R"}, 0)
	if report.BillsSeen != 3 || report.BillsProcessed != 2 {
		t.Fatalf("report = %+v", report)
	}
	if report.EmbeddingsCreated != f.store.total() {
		t.Fatalf("embeddings = %d, stored %d", report.EmbeddingsCreated, f.store.total())
	}
	if got := report.FailureKinds()[legis.KindMetadataNotFound]; got != 1 {
		t.Fatalf("failure kinds = %v", report.FailureKinds())
	}
	if avg := report.AveragePerBill(); avg != float64(report.EmbeddingsCreated)/2 {
		t.Fatalf("avg = %v", avg)
	}
}

func TestProcessSessionLimit(t *testing.T) {
	f := newFixture()
	report := ProcessSession(context.Background(), f.deps, legis.Session{Year: 2025, Code: "R"}, 1)
	if report.BillsSeen != 1 {
		t.Fatalf("bills seen = %d", report.BillsSeen)
	}
}

func TestProcessSessionWithoutLister(t *testing.T) {
	f := newFixture()
	f.deps.Bills = nil
	report := ProcessSession(context.Background(), f.deps, legis.Session{Year: 2025, Code: "R"}, 0)
	if len(report.Failures) != 1 || report.Failures[0].Kind != legis.KindConfiguration {
		t.Fatalf("report = %+v", report)
	}
}

func TestProcessSessionCancelled(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report := ProcessSession(ctx, f.deps, legis.Session{Year: 2025, Code: "R"}, 0)
	if report.BillsSeen != 0 {
		t.Fatalf("bills seen = %d", report.BillsSeen)
	}
}

func TestProcessSessions(t *testing.T) {
	f := newFixture()
	sessions := []legis.Session{{Year: 2025, Code: "R"}, {Year: 2024, Code: "R"}, {Year: 2023, Code: "S1"}}
	report := ProcessSessions(context.Background(), f.deps, sessions, 0)
	if report.BillsSeen != 4 {
		t.Fatalf("bills seen = %d", report.BillsSeen)
	}
	// bill-x has no documents: seen, not processed, not failed.
	if report.BillsProcessed != 2 || len(report.Failures) != 1 {
		t.Fatalf("report = %+v", report)
	}
}

// --- Report ---

func TestRunReportMerge(t *testing.T) {
	a := RunReport{BillsSeen: 2, BillsProcessed: 1, EmbeddingsCreated: 10, Failures: []UnitFailure{{Unit: "x"}}}
	b := RunReport{BillsSeen: 3, BillsProcessed: 3, EmbeddingsCreated: 20, DocumentsSkipped: 4}
	a.Merge(b)
	if a.BillsSeen != 5 || a.BillsProcessed != 4 || a.EmbeddingsCreated != 30 || a.DocumentsSkipped != 4 || len(a.Failures) != 1 {
		t.Fatalf("merged = %+v", a)
	}
	if a.AveragePerBill() != 7.5 {
		t.Fatalf("avg = %v", a.AveragePerBill())
	}
	if (RunReport{}).AveragePerBill() != 0 {
		t.Fatal("empty report average must be 0")
	}
}

func TestRunReportLogValue(t *testing.T) {
	v := RunReport{BillsSeen: 1}.LogValue()
	if v.Kind() != slog.KindGroup || v.Group()[0].Key != "bills_seen" {
		t.Fatalf("log value = %v", v)
	}
}

// --- Deps & metrics ---

func TestDepsValidate(t *testing.T) {
	f := newFixture()
	if err := f.deps.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := f.deps
	d.Blobs = nil
	if err := d.Validate(); !errors.Is(err, legis.ErrConfiguration) {
		t.Fatalf("err = %v", err)
	}
	d = f.deps
	d.Upserter = &Upserter{Embedder: &fakeEmbedder{}}
	if err := d.Validate(); !errors.Is(err, legis.ErrConfiguration) {
		t.Fatalf("err = %v", err)
	}
}

func TestMetricsRecorded(t *testing.T) {
	f := newFixture()
	f.embedder.failOn = "perfected generic"
	ProcessBill(context.Background(), f.deps, "bill-1")
	out := f.registry.Render()
	for _, want := range []string{
		`legisearch_documents_total{status="succeeded"} 1`,
		`legisearch_documents_total{status="failed"} 1`,
		`legisearch_bills_total{status="succeeded"} 1`,
		`legisearch_failures_total{kind="embedding"} 1`,
		`legisearch_document_seconds_count 2`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}
