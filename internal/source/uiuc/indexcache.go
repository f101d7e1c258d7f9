package uiuc

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Indexer is anything that can produce the catalog index.
type Indexer interface {
	Index(ctx context.Context) (Index, error)
}

const indexKey = "index"

// IndexCache keeps the scraped index for ttl. Errors are not cached.
type IndexCache struct {
	src   Indexer
	cache *gocache.Cache
	ttl   time.Duration
}

func NewIndexCache(src Indexer, ttl time.Duration) *IndexCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &IndexCache{src: src, cache: gocache.New(ttl, 2*ttl), ttl: ttl}
}

func (c *IndexCache) Index(ctx context.Context) (Index, error) {
	if v, ok := c.cache.Get(indexKey); ok {
		return v.(Index), nil
	}
	idx, err := c.src.Index(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(indexKey, idx, c.ttl)
	return idx, nil
}

// Forget drops the cached index so the next call scrapes again.
func (c *IndexCache) Forget() {
	c.cache.Delete(indexKey)
}
