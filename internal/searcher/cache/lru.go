package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRUBackend is a bounded in-process backend with per-entry expiry.
type LRUBackend struct {
	lru *expirable.LRU[string, []byte]
}

func NewLRUBackend(size int, ttl time.Duration) *LRUBackend {
	if size <= 0 {
		size = 1024
	}
	return &LRUBackend{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (b *LRUBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := b.lru.Get(key)
	return v, ok, nil
}

func (b *LRUBackend) Set(_ context.Context, key string, value []byte) error {
	b.lru.Add(key, value)
	return nil
}

func (b *LRUBackend) Flush(context.Context) (int64, error) {
	n := int64(b.lru.Len())
	b.lru.Purge()
	return n, nil
}

func (b *LRUBackend) Name() string { return "memory" }
