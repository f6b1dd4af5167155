package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is the interface the assistant uses for its context cache.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Purge()
}

type lruCache struct {
	lru *expirable.LRU[string, any]
}

// NewLRU creates an LRU cache with capacity and entry TTL.
func NewLRU(capacity int, ttl time.Duration) Cache {
	if capacity <= 0 {
		capacity = 512
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &lruCache{lru: expirable.NewLRU[string, any](capacity, nil, ttl)}
}

func (c *lruCache) Get(key string) (any, bool) {
	return c.lru.Get(key)
}

func (c *lruCache) Set(key string, value any) {
	c.lru.Add(key, value)
}

func (c *lruCache) Purge() {
	c.lru.Purge()
}
