// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package confidence

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"
)

// scoreCache is a thread-safe LRU with TTL expiration for Breakdown
// values. Keys are hashed so arbitrarily long input text never bloats the
// key map.
type scoreCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
	ttl     time.Duration
	maxSize int

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	key       string
	breakdown Breakdown
	expiresAt time.Time
}

// CacheStats is a point-in-time snapshot of cache counters.
type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Size    int     `json:"size"`
	HitRate float64 `json:"hit_rate"`
}

func newScoreCache(ttl time.Duration, maxSize int) *scoreCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &scoreCache{
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

func (c *scoreCache) Get(rawKey string) (Breakdown, bool) {
	key := hashKey(rawKey)

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.entries[key]
	if !exists {
		c.misses.Add(1)
		return Breakdown{}, false
	}

	entry := elem.Value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeElement(elem)
		c.misses.Add(1)
		return Breakdown{}, false
	}

	c.lru.MoveToFront(elem)
	c.hits.Add(1)
	return entry.breakdown, true
}

func (c *scoreCache) Set(rawKey string, bd Breakdown) {
	key := hashKey(rawKey)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.entries[key]; exists {
		entry := elem.Value.(*cacheEntry)
		entry.breakdown = bd
		entry.expiresAt = time.Now().Add(c.ttl)
		c.lru.MoveToFront(elem)
		return
	}

	for c.lru.Len() >= c.maxSize {
		c.evictOldest()
	}

	elem := c.lru.PushFront(&cacheEntry{
		key:       key,
		breakdown: bd,
		expiresAt: time.Now().Add(c.ttl),
	})
	c.entries[key] = elem
}

func (c *scoreCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.lru = list.New()
}

func (c *scoreCache) Stats() CacheStats {
	c.mu.Lock()
	size := c.lru.Len()
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()
	stats := CacheStats{Hits: hits, Misses: misses, Size: size}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}

// removeElement deletes an entry. Caller must hold the lock.
func (c *scoreCache) removeElement(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	delete(c.entries, entry.key)
	c.lru.Remove(elem)
}

// evictOldest removes the least recently used entry. Caller must hold the
// lock.
func (c *scoreCache) evictOldest() {
	if back := c.lru.Back(); back != nil {
		c.removeElement(back)
	}
}

func hashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
