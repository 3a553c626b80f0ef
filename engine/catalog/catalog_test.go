package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WessleyAI/legisearch/engine/legis"
)

func openTest(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func seed(t *testing.T, c *Catalog) (string, string) {
	t.Helper()
	ctx := context.Background()
	sid, err := c.UpsertSession(ctx, legis.Session{Year: 2025, Code: "R", Description: "2025 Regular Session"})
	require.NoError(t, err)

	for _, p := range []legis.Person{{ID: "l1", Name: "Rep. One"}, {ID: "l2", Name: "Rep. Two"}, {ID: "l3", Name: "Rep. Three"}} {
		require.NoError(t, c.UpsertLegislator(ctx, p))
	}

	billID, existed, err := c.UpsertBill(ctx, sid, Bill{
		ID:     "bill-1",
		Number: "HB 1366",
		Title:  "Modifies provisions relating to pharmacists",
		Sponsors: []Sponsor{
			{LegislatorID: "l2"},
			{LegislatorID: "l1", Primary: true},
			{LegislatorID: "l3"},
		},
		Hearings: []Hearing{
			{Committee: "Health", Date: "2025-02-01"},
			{Committee: "Rules", Date: "2025-02-10"},
			{Committee: "Health", Date: "2025-03-01"},
		},
		Documents: []Document{
			{ID: "d1", DocumentType: "Introduced", StoragePath: "2025/HB1366I.pdf"},
			{ID: "d2", DocumentType: "Fiscal Note", StoragePath: "2025/HB1366I.ORG.pdf"},
			{ID: "d3", DocumentType: "Perfected", StoragePath: "2025/HB1366P.pdf"},
			{ID: "d4", DocumentType: "Committee"},
		},
	})
	require.NoError(t, err)
	assert.False(t, existed)
	return sid, billID
}

func TestOpenMigratesToCurrentVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	c, err := Open(context.Background(), path)
	require.NoError(t, err)

	v, err := CurrentVersion(context.Background(), c.db)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v.String())
	require.NoError(t, c.Close())

	// Reopening applies nothing and keeps the version.
	c, err = Open(context.Background(), path)
	require.NoError(t, err)
	defer c.Close()

	var n int
	require.NoError(t, c.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&n))
	assert.Equal(t, len(Migrations), n)
}

func TestDocumentsInInsertionOrder(t *testing.T) {
	c := openTest(t)
	_, billID := seed(t, c)

	docs, err := c.Documents(context.Background(), billID)
	require.NoError(t, err)
	require.Len(t, docs, 4)
	assert.Equal(t, []string{"d1", "d2", "d3", "d4"}, []string{docs[0].ID, docs[1].ID, docs[2].ID, docs[3].ID})
	assert.Equal(t, "Introduced", docs[0].DocumentType)
	assert.Equal(t, "2025/HB1366I.pdf", docs[0].StorageRef)
	assert.Empty(t, docs[3].StorageRef)
}

func TestDocumentsUnknownBill(t *testing.T) {
	c := openTest(t)
	docs, err := c.Documents(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestBillMetadata(t *testing.T) {
	c := openTest(t)
	_, billID := seed(t, c)

	meta, err := c.BillMetadata(context.Background(), billID)
	require.NoError(t, err)
	assert.Equal(t, "HB 1366", meta.BillNumber)
	assert.Equal(t, 2025, meta.SessionYear)
	assert.Equal(t, "R", meta.SessionCode)
	require.NotNil(t, meta.PrimarySponsor)
	assert.Equal(t, legis.Person{ID: "l1", Name: "Rep. One"}, *meta.PrimarySponsor)
	assert.Equal(t, []legis.Person{{ID: "l2", Name: "Rep. Two"}, {ID: "l3", Name: "Rep. Three"}}, meta.Cosponsors)

	require.Len(t, meta.Committees, 2)
	assert.Equal(t, "Health", meta.Committees[0].Name)
	assert.Equal(t, "Rules", meta.Committees[1].Name)
}

func TestBillMetadataNotFound(t *testing.T) {
	c := openTest(t)
	_, err := c.BillMetadata(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, legis.ErrMetadataNotFound))
}

func TestBillMetadataWithoutSponsorsOrHearings(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()
	sid, err := c.UpsertSession(ctx, legis.Session{Year: 2024, Code: "R"})
	require.NoError(t, err)
	id, _, err := c.UpsertBill(ctx, sid, Bill{Number: "SB 7"})
	require.NoError(t, err)

	meta, err := c.BillMetadata(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, meta.PrimarySponsor)
	assert.Empty(t, meta.Cosponsors)
	assert.Empty(t, meta.Committees)
}

func TestBillsForSessionLimit(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()
	sid, err := c.UpsertSession(ctx, legis.Session{Year: 2023, Code: "S1"})
	require.NoError(t, err)
	for _, n := range []string{"HB 1", "HB 2", "HB 3"} {
		_, _, err := c.UpsertBill(ctx, sid, Bill{Number: n})
		require.NoError(t, err)
	}

	all, err := c.BillsForSession(ctx, 2023, "S1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "HB 1", all[0].BillNumber)
	assert.Equal(t, 2023, all[0].SessionYear)
	assert.Equal(t, "S1", all[0].SessionCode)

	two, err := c.BillsForSession(ctx, 2023, "S1", 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	none, err := c.BillsForSession(ctx, 2023, "R", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpsertBillReplacesRelations(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()
	sid, billID := seed(t, c)

	id, existed, err := c.UpsertBill(ctx, sid, Bill{
		Number:    "HB 1366",
		Sponsors:  []Sponsor{{LegislatorID: "l3", Primary: true}},
		Documents: []Document{{ID: "d9", DocumentType: "Truly Agreed", StoragePath: "x.pdf"}},
	})
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, billID, id)

	docs, err := c.Documents(ctx, id)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "d9", docs[0].ID)

	meta, err := c.BillMetadata(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "l3", meta.PrimarySponsor.ID)
	assert.Empty(t, meta.Cosponsors)
	assert.Empty(t, meta.Committees)
}

func TestUpsertSessionKeepsID(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()
	a, err := c.UpsertSession(ctx, legis.Session{Year: 2022, Code: "S1"})
	require.NoError(t, err)
	b, err := c.UpsertSession(ctx, legis.Session{Year: 2022, Code: "S1", Description: "2022 1st Extraordinary Session"})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	sessions, err := c.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "2022 1st Extraordinary Session", sessions[0].Description)
}

func TestSessionsNewestFirst(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()
	for _, s := range []legis.Session{{Year: 2020, Code: "R"}, {Year: 2025, Code: "R"}, {Year: 2025, Code: "S1"}} {
		_, err := c.UpsertSession(ctx, s)
		require.NoError(t, err)
	}
	sessions, err := c.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, legis.Session{Year: 2025, Code: "S1"}, sessions[0])
	assert.Equal(t, 2020, sessions[2].Year)
}

func TestSponsorRequiresKnownLegislator(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()
	sid, err := c.UpsertSession(ctx, legis.Session{Year: 2021, Code: "R"})
	require.NoError(t, err)
	_, _, err = c.UpsertBill(ctx, sid, Bill{Number: "HB 9", Sponsors: []Sponsor{{LegislatorID: "ghost"}}})
	assert.Error(t, err)

	bills, err := c.BillsForSession(ctx, 2021, "R", 0)
	require.NoError(t, err)
	assert.Empty(t, bills, "failed upsert must roll back")
}
