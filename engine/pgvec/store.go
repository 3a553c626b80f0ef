// Package pgvec writes chunk vectors to a Postgres table with the pgvector
// extension, in the layout Supabase vector stores use (id, content, metadata,
// embedding) plus a SQL match function for similarity lookups.
package pgvec

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/WessleyAI/legisearch/engine/semantic"
)

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Options names the table and match function and sets the vector size.
type Options struct {
	Table         string
	MatchFunction string
	Dimensions    int
}

func (o *Options) defaults() error {
	if o.Table == "" {
		o.Table = semantic.DefaultCollection
	}
	if o.MatchFunction == "" {
		o.MatchFunction = semantic.DefaultMatchFunction
	}
	if o.Dimensions <= 0 {
		o.Dimensions = 1536
	}
	for _, id := range []string{o.Table, o.MatchFunction} {
		if !identifier.MatchString(id) {
			return fmt.Errorf("pgvec: invalid identifier %q", id)
		}
	}
	return nil
}

// conn is the subset of *pgxpool.Pool the store uses.
type conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store writes VectorRecords to Postgres.
type Store struct {
	db   conn
	pool *pgxpool.Pool
	opts Options
}

// Open connects to dsn and registers the vector type on every connection.
func Open(ctx context.Context, dsn string, opts Options) (*Store, error) {
	if err := opts.defaults(); err != nil {
		return nil, err
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgvec: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, c *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, c)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgvec: connect: %w", err)
	}
	return &Store{db: pool, pool: pool, opts: opts}, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// EnsureSchema creates the extension, table, indexes and match function.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaSQL(s.opts) {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("pgvec: schema: %w", err)
		}
	}
	return nil
}

// Replace deletes every row of documentID and inserts records, in one
// transaction.
func (s *Store) Replace(ctx context.Context, documentID string, records []semantic.VectorRecord) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgvec: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, deleteSQL(s.opts), documentID); err != nil {
		return fmt.Errorf("pgvec: delete %s: %w", documentID, err)
	}
	if len(records) > 0 {
		batch := &pgx.Batch{}
		insert := insertSQL(s.opts)
		for _, r := range records {
			args, err := insertArgs(r)
			if err != nil {
				return err
			}
			batch.Queue(insert, args...)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("pgvec: insert %d rows: %w", len(records), err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgvec: commit: %w", err)
	}
	return nil
}

func insertArgs(r semantic.VectorRecord) ([]any, error) {
	meta, err := json.Marshal(r.Metadata)
	if err != nil {
		return nil, fmt.Errorf("pgvec: metadata: %w", err)
	}
	return []any{
		r.ID,
		r.Content,
		meta,
		pgvector.NewVector(r.Embedding),
		r.Metadata.BillID,
		r.Metadata.DocumentID,
	}, nil
}
