package cache

import (
	gocache "github.com/patrickmn/go-cache"
)

// SeenSet is a concurrency-safe set of keys that lives for one run
type SeenSet struct {
	cache *gocache.Cache
}

// NewSeenSet creates an empty set whose entries never expire
func NewSeenSet() *SeenSet {
	return &SeenSet{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Add records key and reports whether it was absent before the call.
// Concurrent callers racing on the same key see exactly one true.
func (s *SeenSet) Add(key string) bool {
	return s.cache.Add(key, struct{}{}, gocache.NoExpiration) == nil
}

// Len returns the number of keys in the set
func (s *SeenSet) Len() int {
	return s.cache.ItemCount()
}
