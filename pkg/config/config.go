// Package config loads the legisearch configuration from a TOML file with
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/WessleyAI/legisearch/engine/blob"
	"github.com/WessleyAI/legisearch/engine/legis"
	"github.com/WessleyAI/legisearch/engine/semantic"
	"github.com/WessleyAI/legisearch/pkg/embed"
	"github.com/WessleyAI/legisearch/pkg/tokenizer"
)

// Backend names.
const (
	CatalogSQLite = "sqlite"
	CatalogNeo4j  = "neo4j"

	BlobsFS  = "fs"
	BlobsGCS = "gcs"

	ExtractPDF  = "pdf"
	ExtractText = "text"

	VectorQdrant   = "qdrant"
	VectorPgvector = "pgvector"
)

// Config is the full runtime configuration.
type Config struct {
	Pipeline  Pipeline  `toml:"pipeline"`
	Catalog   Catalog   `toml:"catalog"`
	Blobs     Blobs     `toml:"blobs"`
	Embedding Embedding `toml:"embedding"`
	Tokenizer Tokenizer `toml:"tokenizer"`
	Vector    Vector    `toml:"vector"`
	NATS      NATS      `toml:"nats"`
	Metrics   Metrics   `toml:"metrics"`
	Log       Log       `toml:"log"`
}

// Pipeline sets the chunk budgets and the embedding batch size.
type Pipeline struct {
	TargetTokens  int `toml:"target_tokens"`
	OverlapTokens int `toml:"overlap_tokens"`
	BatchSize     int `toml:"batch_size"`
	// Limit caps the bills processed per session. Zero means all.
	Limit int `toml:"limit"`
}

// Catalog selects where documents and bill metadata come from.
type Catalog struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
	Neo4j   Neo4j  `toml:"neo4j"`
}

// Neo4j holds graph connection settings.
type Neo4j struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
}

// Blobs selects where raw document bytes are read from.
type Blobs struct {
	Backend   string `toml:"backend"`
	Dir       string `toml:"dir"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	Extractor string `toml:"extractor"`
}

// Embedding configures the embedding provider.
type Embedding struct {
	Provider        string  `toml:"provider"`
	Model           string  `toml:"model"`
	Dimensions      int     `toml:"dimensions"`
	APIKey          string  `toml:"api_key"`
	BaseURL         string  `toml:"base_url"`
	TimeoutSeconds  int     `toml:"timeout_seconds"`
	Rate            float64 `toml:"rate"`
	Burst           int     `toml:"burst"`
	TokensPerMinute int     `toml:"tokens_per_minute"`
	CacheSize       int     `toml:"cache_size"`
}

// Tokenizer picks the token counter used for chunk budgets.
type Tokenizer struct {
	Kind  string `toml:"kind"`
	Model string `toml:"model"`
}

// Vector configures the vector store.
type Vector struct {
	Backend       string `toml:"backend"`
	QdrantAddr    string `toml:"qdrant_addr"`
	Collection    string `toml:"collection"`
	MatchFunction string `toml:"match_function"`
	DatabaseURL   string `toml:"database_url"`
}

// NATS configures request mode.
type NATS struct {
	URL string `toml:"url"`
}

// Metrics configures the metrics endpoint. An empty address disables it.
type Metrics struct {
	Addr string `toml:"addr"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Pipeline: Pipeline{TargetTokens: 800, OverlapTokens: 100, BatchSize: 100},
		Catalog:  Catalog{Backend: CatalogSQLite, Path: "legisearch.db", Neo4j: Neo4j{URI: "neo4j://localhost:7687", User: "neo4j"}},
		Blobs:    Blobs{Backend: BlobsFS, Dir: "data/bills", Bucket: blob.DefaultBucket, Extractor: ExtractPDF},
		Embedding: Embedding{
			Provider:       embed.ProviderOpenAI,
			Model:          embed.DefaultOpenAIModel,
			Dimensions:     1536,
			TimeoutSeconds: 60,
			CacheSize:      embed.DefaultCacheSize,
		},
		Tokenizer: Tokenizer{Kind: tokenizer.KindTiktoken, Model: embed.DefaultOpenAIModel},
		Vector: Vector{
			Backend:       VectorQdrant,
			QdrantAddr:    "localhost:6334",
			Collection:    semantic.DefaultCollection,
			MatchFunction: semantic.DefaultMatchFunction,
		},
		NATS:    NATS{URL: "nats://localhost:4222"},
		Metrics: Metrics{Addr: ":9091"},
		Log:     Log{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file. Unknown keys are
// rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("%w: read %s: %w", legis.ErrConfiguration, path, err)
		}
		if err := Decode(data, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	cfg.providerDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode strictly unmarshals TOML data into cfg.
func Decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("%w: %s", legis.ErrConfiguration, strict.String())
		}
		return fmt.Errorf("%w: %w", legis.ErrConfiguration, err)
	}
	return nil
}

// Encode renders cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from the environment. Malformed numbers are
// ignored.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	num := func(dst *int, key string) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	num(&c.Pipeline.TargetTokens, "LEGISEARCH_TARGET_TOKENS")
	num(&c.Pipeline.OverlapTokens, "LEGISEARCH_OVERLAP_TOKENS")
	num(&c.Pipeline.BatchSize, "LEGISEARCH_BATCH_SIZE")
	num(&c.Pipeline.Limit, "LEGISEARCH_LIMIT")

	str(&c.Catalog.Backend, "LEGISEARCH_CATALOG")
	str(&c.Catalog.Path, "LEGISEARCH_CATALOG_PATH")
	str(&c.Catalog.Neo4j.URI, "NEO4J_URI")
	str(&c.Catalog.Neo4j.User, "NEO4J_USER")
	str(&c.Catalog.Neo4j.Password, "NEO4J_PASSWORD")
	str(&c.Catalog.Neo4j.Database, "NEO4J_DATABASE")

	str(&c.Blobs.Backend, "LEGISEARCH_BLOBS")
	str(&c.Blobs.Dir, "LEGISEARCH_BLOB_DIR")
	str(&c.Blobs.Bucket, "LEGISEARCH_BUCKET")

	str(&c.Embedding.Provider, "LEGISEARCH_EMBEDDER")
	str(&c.Embedding.Model, "LEGISEARCH_EMBED_MODEL")
	str(&c.Embedding.APIKey, "LEGISEARCH_API_KEY", "OPENAI_API_KEY")
	str(&c.Embedding.BaseURL, "LEGISEARCH_EMBED_URL", "OLLAMA_URL")
	num(&c.Embedding.Dimensions, "LEGISEARCH_EMBED_DIMS")
	num(&c.Embedding.TokensPerMinute, "LEGISEARCH_EMBED_TPM")

	str(&c.Vector.Backend, "LEGISEARCH_VECTOR")
	str(&c.Vector.QdrantAddr, "QDRANT_ADDR")
	str(&c.Vector.Collection, "LEGISEARCH_COLLECTION")
	str(&c.Vector.DatabaseURL, "DATABASE_URL")

	str(&c.NATS.URL, "NATS_URL")
	str(&c.Metrics.Addr, "LEGISEARCH_METRICS_ADDR")
	str(&c.Log.Level, "LEGISEARCH_LOG_LEVEL")
	str(&c.Log.Format, "LEGISEARCH_LOG_FORMAT")
}

// ollamaDims is the vector size of the default Ollama model.
const ollamaDims = 768

// providerDefaults swaps OpenAI defaults for Ollama ones when the provider is
// switched without naming a model.
func (c *Config) providerDefaults() {
	if c.Embedding.Provider != embed.ProviderOllama || c.Embedding.Model != embed.DefaultOpenAIModel {
		return
	}
	c.Embedding.Model = embed.DefaultOllamaModel
	if c.Embedding.Dimensions == Default().Embedding.Dimensions {
		c.Embedding.Dimensions = ollamaDims
	}
}

// Validate reports the first invalid setting as legis.ErrConfiguration.
func (c Config) Validate() error {
	p := c.Pipeline
	switch {
	case p.TargetTokens <= 0:
		return legis.Configf("pipeline.target_tokens must be positive, got %d", p.TargetTokens)
	case p.OverlapTokens < 0 || p.OverlapTokens >= p.TargetTokens:
		return legis.Configf("pipeline.overlap_tokens must be in [0, %d), got %d", p.TargetTokens, p.OverlapTokens)
	case p.BatchSize <= 0:
		return legis.Configf("pipeline.batch_size must be positive, got %d", p.BatchSize)
	case p.Limit < 0:
		return legis.Configf("pipeline.limit must not be negative, got %d", p.Limit)
	}

	switch c.Catalog.Backend {
	case CatalogSQLite:
		if c.Catalog.Path == "" {
			return legis.Configf("catalog.path is required for sqlite")
		}
	case CatalogNeo4j:
		if c.Catalog.Neo4j.URI == "" {
			return legis.Configf("catalog.neo4j.uri is required for neo4j")
		}
	default:
		return legis.Configf("unknown catalog backend %q", c.Catalog.Backend)
	}

	switch c.Blobs.Backend {
	case BlobsFS:
		if c.Blobs.Dir == "" {
			return legis.Configf("blobs.dir is required for fs")
		}
	case BlobsGCS:
		if c.Blobs.Bucket == "" {
			return legis.Configf("blobs.bucket is required for gcs")
		}
	default:
		return legis.Configf("unknown blobs backend %q", c.Blobs.Backend)
	}
	switch c.Blobs.Extractor {
	case ExtractPDF, ExtractText:
	default:
		return legis.Configf("unknown extractor %q", c.Blobs.Extractor)
	}

	e := c.Embedding
	switch e.Provider {
	case embed.ProviderOpenAI:
		if e.APIKey == "" {
			return legis.Configf("embedding.api_key (or OPENAI_API_KEY) is required for openai")
		}
	case embed.ProviderOllama:
	default:
		return legis.Configf("unknown embedding provider %q", e.Provider)
	}
	if e.Dimensions <= 0 {
		return legis.Configf("embedding.dimensions must be positive, got %d", e.Dimensions)
	}
	if e.Rate < 0 || e.Burst < 0 || e.TokensPerMinute < 0 || e.CacheSize < 0 {
		return legis.Configf("embedding rate, burst, tokens_per_minute and cache_size must not be negative")
	}

	switch c.Tokenizer.Kind {
	case tokenizer.KindTiktoken, tokenizer.KindEstimate, tokenizer.KindWords:
	default:
		return legis.Configf("unknown tokenizer %q", c.Tokenizer.Kind)
	}

	switch c.Vector.Backend {
	case VectorQdrant:
		if c.Vector.QdrantAddr == "" {
			return legis.Configf("vector.qdrant_addr is required for qdrant")
		}
	case VectorPgvector:
		if c.Vector.DatabaseURL == "" {
			return legis.Configf("vector.database_url (or DATABASE_URL) is required for pgvector")
		}
	default:
		return legis.Configf("unknown vector backend %q", c.Vector.Backend)
	}
	if c.Vector.Collection == "" {
		return legis.Configf("vector.collection is required")
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return legis.Configf("unknown log format %q", c.Log.Format)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}
