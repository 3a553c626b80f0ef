package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of vectors kept by Cached.
const DefaultCacheSize = 10000

// Cached memoizes vectors by model and content hash.
type Cached struct {
	next  Embedder
	cache *lru.Cache[string, []float32]
}

// NewCached wraps next with an LRU cache of the given size.
func NewCached(next Embedder, size int) *Cached {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		cache, _ = lru.New[string, []float32](DefaultCacheSize)
	}
	return &Cached{next: next, cache: cache}
}

func (c *Cached) key(text string) string {
	h := sha256.Sum256([]byte(c.next.Model() + "\x00" + text))
	return hex.EncodeToString(h[:])
}

func (c *Cached) Model() string { return c.next.Model() }

// Len returns the number of cached vectors.
func (c *Cached) Len() int { return c.cache.Len() }

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	return single(ctx, c, text)
}

// EmbedBatch sends only cache misses to the wrapped embedder.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var (
		missIdx   []int
		missTexts []string
	)
	for i, t := range texts {
		if v, ok := c.cache.Get(c.key(t)); ok {
			out[i] = append([]float32(nil), v...)
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.next.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, ErrCountMismatch
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.cache.Add(c.key(missTexts[j]), append([]float32(nil), vecs[j]...))
	}
	return out, nil
}
