package embedport

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize mirrors embed.DefaultEmbeddingCacheSize.
const DefaultCacheSize = 1000

// cached memoizes Embed by content hash, grounded on embed.CachedEmbedder.
// This is distinct from docsync's per-section contentHash skip: it exists
// for the case where two different sections (same document or across
// documents) hash to identical text, e.g. duplicated boilerplate, so the
// embedding call is made once per session regardless of how many sections
// share it.
type cached struct {
	Embedder
	cache *lru.Cache[string, []float32]
}

// WithCache wraps inner with an LRU memoization layer. size <= 0 uses
// DefaultCacheSize.
func WithCache(inner Embedder, size int) Embedder {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, _ := lru.New[string, []float32](size)
	return &cached{Embedder: inner, cache: c}
}

func (c *cached) key(text string) string {
	h := sha256.Sum256([]byte(text + "\x00" + c.Embedder.ModelName()))
	return hex.EncodeToString(h[:])
}

func (c *cached) Embed(ctx context.Context, text string) ([]float32, error) {
	k := c.key(text)
	if v, ok := c.cache.Get(k); ok {
		return v, nil
	}
	v, err := c.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(k, v)
	return v, nil
}

func (c *cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		if v, ok := c.cache.Get(c.key(t)); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}
	vs, err := c.Embedder.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vs[j]
		c.cache.Add(c.key(texts[i]), vs[j])
	}
	return out, nil
}

var _ Embedder = (*cached)(nil)
