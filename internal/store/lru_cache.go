package store

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/serroba/eaziurl/internal/shortener"
)

// LRUCache is a bounded in-process implementation of shortener.Cache.
// Each lookup direction has its own LRU so one cannot evict the other.
type LRUCache struct {
	byLong *lru.Cache[string, shortener.Code]
	byCode *lru.Cache[shortener.Code, string]
}

// NewLRUCache creates an in-process cache holding up to size entries per direction.
func NewLRUCache(size int) (*LRUCache, error) {
	byLong, err := lru.New[string, shortener.Code](size)
	if err != nil {
		return nil, err
	}

	byCode, err := lru.New[shortener.Code, string](size)
	if err != nil {
		return nil, err
	}

	return &LRUCache{byLong: byLong, byCode: byCode}, nil
}

func (c *LRUCache) GetByLongURL(_ context.Context, longURL string) (shortener.Code, error) {
	code, ok := c.byLong.Get(longURL)
	if !ok {
		return "", shortener.ErrCacheMiss
	}

	return code, nil
}

func (c *LRUCache) SetByLongURL(_ context.Context, longURL string, code shortener.Code) error {
	c.byLong.Add(longURL, code)

	return nil
}

func (c *LRUCache) GetByShortKey(_ context.Context, code shortener.Code) (string, error) {
	longURL, ok := c.byCode.Get(code)
	if !ok {
		return "", shortener.ErrCacheMiss
	}

	return longURL, nil
}

func (c *LRUCache) SetByShortKey(_ context.Context, code shortener.Code, longURL string) error {
	c.byCode.Add(code, longURL)

	return nil
}

// Purge drops every entry.
func (c *LRUCache) Purge() {
	c.byLong.Purge()
	c.byCode.Purge()
}

// Compile-time check.
var _ shortener.Cache = (*LRUCache)(nil)
