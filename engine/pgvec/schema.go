package pgvec

import "fmt"

func schemaSQL(o Options) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	id          uuid PRIMARY KEY,
	content     text NOT NULL,
	metadata    jsonb NOT NULL DEFAULT '{}'::jsonb,
	embedding   vector(%[2]d) NOT NULL,
	bill_id     text NOT NULL,
	document_id text NOT NULL,
	created_at  timestamptz NOT NULL DEFAULT now()
)`, o.Table, o.Dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_document_id_idx ON %[1]s (document_id)`, o.Table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_bill_id_idx ON %[1]s (bill_id)`, o.Table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_metadata_idx ON %[1]s USING gin (metadata)`, o.Table),
		fmt.Sprintf(`CREATE OR REPLACE FUNCTION %[2]s(
	query_embedding vector(%[3]d),
	match_count int DEFAULT 5,
	filter jsonb DEFAULT '{}'::jsonb
) RETURNS TABLE (id uuid, content text, metadata jsonb, similarity float)
LANGUAGE sql STABLE AS $$
	SELECT t.id, t.content, t.metadata, 1 - (t.embedding <=> query_embedding) AS similarity
	FROM %[1]s t
	WHERE t.metadata @> filter
	ORDER BY t.embedding <=> query_embedding
	LIMIT match_count
$$`, o.Table, o.MatchFunction, o.Dimensions),
	}
}

func deleteSQL(o Options) string {
	return fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, o.Table)
}

func insertSQL(o Options) string {
	return fmt.Sprintf(`INSERT INTO %s (id, content, metadata, embedding, bill_id, document_id)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
	content = EXCLUDED.content,
	metadata = EXCLUDED.metadata,
	embedding = EXCLUDED.embedding`, o.Table)
}
