package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/WessleyAI/legisearch/engine/blob"
	"github.com/WessleyAI/legisearch/engine/catalog"
	"github.com/WessleyAI/legisearch/engine/chunking"
	"github.com/WessleyAI/legisearch/engine/extract"
	"github.com/WessleyAI/legisearch/engine/graph"
	"github.com/WessleyAI/legisearch/engine/ingest"
	"github.com/WessleyAI/legisearch/engine/legis"
	"github.com/WessleyAI/legisearch/engine/pgvec"
	"github.com/WessleyAI/legisearch/engine/semantic"
	"github.com/WessleyAI/legisearch/pkg/config"
	"github.com/WessleyAI/legisearch/pkg/embed"
	"github.com/WessleyAI/legisearch/pkg/metrics"
	"github.com/WessleyAI/legisearch/pkg/resilience"
	"github.com/WessleyAI/legisearch/pkg/tokenizer"
)

// source is what the pipeline reads bills from. Both the SQLite catalog and
// the Neo4j graph implement it.
type source interface {
	ingest.DocumentSource
	ingest.MetadataSource
	ingest.BillLister
}

// runtime owns the clients of one run. Close releases them in reverse order.
type runtime struct {
	deps    ingest.Deps
	catalog *catalog.Catalog // nil unless the sqlite catalog is configured
	closers []func() error
}

func (r *runtime) onClose(f func() error) { r.closers = append(r.closers, f) }

func (r *runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

// configErr tags a client construction failure as a configuration error.
func configErr(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", legis.ErrConfiguration, what, err)
}

// build creates every client named by cfg and returns validated Deps. Any
// failure is a configuration error and nothing is left open.
func build(ctx context.Context, cfg config.Config, log *slog.Logger, reg *metrics.Registry) (rt *runtime, err error) {
	rt = &runtime{}
	defer func() {
		if err != nil {
			_ = rt.Close()
			rt = nil
		}
	}()

	src, err := openSource(ctx, cfg.Catalog, rt)
	if err != nil {
		return rt, err
	}
	blobs, err := openBlobs(ctx, cfg.Blobs, rt)
	if err != nil {
		return rt, err
	}
	tok, err := tokenizer.New(cfg.Tokenizer.Kind, cfg.Tokenizer.Model)
	if err != nil {
		return rt, configErr("tokenizer", err)
	}
	embedder, err := newEmbedder(cfg.Embedding, tok)
	if err != nil {
		return rt, err
	}
	vectors, err := openVectors(ctx, cfg.Vector, cfg.Embedding.Dimensions, rt)
	if err != nil {
		return rt, err
	}

	rt.deps = ingest.Deps{
		Documents: src,
		Blobs:     blobs,
		Metadata:  src,
		Bills:     src,
		Extractor: newExtractor(cfg.Blobs.Extractor),
		Chunker:   chunking.New(tok, cfg.Pipeline.TargetTokens, cfg.Pipeline.OverlapTokens),
		Upserter: &ingest.Upserter{
			Embedder:  embedder,
			Vectors:   vectors,
			BatchSize: cfg.Pipeline.BatchSize,
		},
		Logger:  log,
		Metrics: reg,
	}
	if err := rt.deps.Validate(); err != nil {
		return rt, err
	}
	log.Info("pipeline ready",
		"catalog", cfg.Catalog.Backend,
		"blobs", cfg.Blobs.Backend,
		"tokenizer", tok.Name(),
		"embedder", cfg.Embedding.Provider,
		"model", embedder.Model(),
		"vector", cfg.Vector.Backend,
		"collection", cfg.Vector.Collection,
	)
	return rt, nil
}

func openSource(ctx context.Context, c config.Catalog, rt *runtime) (source, error) {
	switch c.Backend {
	case config.CatalogNeo4j:
		g, err := openGraph(ctx, c.Neo4j)
		if err != nil {
			return nil, err
		}
		rt.onClose(func() error { return g.Close(context.Background()) })
		return g, nil
	default:
		cat, err := catalog.Open(ctx, c.Path)
		if err != nil {
			return nil, configErr("catalog", err)
		}
		rt.catalog = cat
		rt.onClose(cat.Close)
		return cat, nil
	}
}

func openGraph(ctx context.Context, c config.Neo4j) (*graph.Store, error) {
	g, err := graph.Connect(ctx, c.URI, c.User, c.Password, c.Database)
	if err != nil {
		return nil, configErr("neo4j", err)
	}
	return g, nil
}

func openBlobs(ctx context.Context, c config.Blobs, rt *runtime) (ingest.BlobFetcher, error) {
	switch c.Backend {
	case config.BlobsGCS:
		g, err := blob.NewGCS(ctx, c.Bucket, c.Prefix)
		if err != nil {
			return nil, configErr("gcs", err)
		}
		rt.onClose(g.Close)
		return g, nil
	default:
		return blob.NewDir(c.Dir), nil
	}
}

func newExtractor(kind string) ingest.TextExtractor {
	if kind == config.ExtractText {
		return extract.Plain{}
	}
	return extract.PDF{}
}

// newEmbedder builds the provider client and wraps it with the rate limiter
// and cache when configured. The limiter sits under the cache so cache hits
// never wait for a token.
func newEmbedder(c config.Embedding, tok tokenizer.Counter) (embed.Embedder, error) {
	var e embed.Embedder
	switch c.Provider {
	case embed.ProviderOllama:
		e = embed.NewOllama(c.BaseURL, c.Model)
	default:
		o, err := embed.NewOpenAI(embed.OpenAIOpts{
			APIKey:     c.APIKey,
			Model:      c.Model,
			BaseURL:    c.BaseURL,
			Dimensions: c.Dimensions,
			Timeout:    time.Duration(c.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, configErr("openai", err)
		}
		e = o
	}
	if c.Rate > 0 || c.TokensPerMinute > 0 {
		e = embed.NewLimited(e, resilience.NewLimiter(resilience.LimiterOpts{
			Rate:            c.Rate,
			Burst:           c.Burst,
			TokensPerMinute: c.TokensPerMinute,
		}), tok)
	}
	if c.CacheSize > 0 {
		e = embed.NewCached(e, c.CacheSize)
	}
	return e, nil
}

func openVectors(ctx context.Context, c config.Vector, dims int, rt *runtime) (ingest.VectorStore, error) {
	switch c.Backend {
	case config.VectorPgvector:
		s, err := pgvec.Open(ctx, c.DatabaseURL, pgvec.Options{
			Table:         c.Collection,
			MatchFunction: c.MatchFunction,
			Dimensions:    dims,
		})
		if err != nil {
			return nil, configErr("pgvector", err)
		}
		rt.onClose(s.Close)
		if err := s.EnsureSchema(ctx); err != nil {
			return nil, configErr("pgvector schema", err)
		}
		return s, nil
	default:
		s, err := semantic.New(c.QdrantAddr, c.Collection)
		if err != nil {
			return nil, configErr("qdrant", err)
		}
		rt.onClose(s.Close)
		if err := s.EnsureCollection(ctx, dims); err != nil {
			return nil, configErr("qdrant collection", err)
		}
		return s, nil
	}
}
