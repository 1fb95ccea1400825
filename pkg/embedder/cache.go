package embedder

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedClient memoizes embeddings by exact text in a bounded LRU.
type CachedClient struct {
	next  Client
	cache *lru.Cache[string, []float32]
}

// NewCachedClient wraps next with an LRU of the given size.
func NewCachedClient(next Client, size int) (*CachedClient, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &CachedClient{next: next, cache: cache}, nil
}

// Embed serves cached vectors and embeds only the misses.
func (c *CachedClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			out[i] = v
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := c.next.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if err := checkCount(len(missing), len(vectors)); err != nil {
		return nil, err
	}
	for j, v := range vectors {
		c.cache.Add(missing[j], v)
		out[missingIdx[j]] = v
	}
	return out, nil
}

// EmbedSingle embeds one text through the cache.
func (c *CachedClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return embedSingle(ctx, c, text)
}

func (c *CachedClient) Dimensions() int {
	return c.next.Dimensions()
}

// Close purges the cache and closes the wrapped client.
func (c *CachedClient) Close() error {
	c.cache.Purge()
	return c.next.Close()
}

// Len reports the number of cached texts.
func (c *CachedClient) Len() int {
	return c.cache.Len()
}
