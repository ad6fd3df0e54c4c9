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
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestScoreCache_BasicOperations(t *testing.T) {
	cache := newScoreCache(10*time.Minute, 100)

	t.Run("set and get", func(t *testing.T) {
		cache.Set("key-a", Breakdown{FinalConfidence: 0.7})

		bd, ok := cache.Get("key-a")
		if !ok {
			t.Fatal("expected cache hit")
		}
		if !almostEqual(bd.FinalConfidence, 0.7) {
			t.Errorf("expected 0.7, got %g", bd.FinalConfidence)
		}
	})

	t.Run("miss for unknown key", func(t *testing.T) {
		if _, ok := cache.Get("never-set"); ok {
			t.Error("expected cache miss")
		}
	})

	t.Run("set updates existing entry", func(t *testing.T) {
		cache.Set("key-a", Breakdown{FinalConfidence: 0.9})
		bd, ok := cache.Get("key-a")
		if !ok || !almostEqual(bd.FinalConfidence, 0.9) {
			t.Errorf("expected updated value 0.9, got %+v ok=%v", bd, ok)
		}
	})
}

func TestScoreCache_TTLExpiration(t *testing.T) {
	cache := newScoreCache(30*time.Millisecond, 100)

	cache.Set("key", Breakdown{FinalConfidence: 0.5})

	if _, ok := cache.Get("key"); !ok {
		t.Error("expected cache hit before expiration")
	}

	time.Sleep(40 * time.Millisecond)

	if _, ok := cache.Get("key"); ok {
		t.Error("expected cache miss after expiration")
	}
}

func TestScoreCache_LRUEviction(t *testing.T) {
	cache := newScoreCache(10*time.Minute, 3)

	cache.Set("a", Breakdown{FinalConfidence: 0.1})
	cache.Set("b", Breakdown{FinalConfidence: 0.2})
	cache.Set("c", Breakdown{FinalConfidence: 0.3})

	// Touch "a" so "b" becomes the eviction candidate.
	cache.Get("a")

	cache.Set("d", Breakdown{FinalConfidence: 0.4})

	if _, ok := cache.Get("a"); !ok {
		t.Error("expected recently used entry to survive")
	}
	if _, ok := cache.Get("b"); ok {
		t.Error("expected least recently used entry to be evicted")
	}
	if _, ok := cache.Get("c"); !ok {
		t.Error("expected entry c to survive")
	}
	if _, ok := cache.Get("d"); !ok {
		t.Error("expected newest entry to be present")
	}
}

func TestScoreCache_Clear(t *testing.T) {
	cache := newScoreCache(10*time.Minute, 100)
	cache.Set("a", Breakdown{})
	cache.Set("b", Breakdown{})

	cache.Clear()

	if stats := cache.Stats(); stats.Size != 0 {
		t.Errorf("expected empty cache, got size %d", stats.Size)
	}
	if _, ok := cache.Get("a"); ok {
		t.Error("expected miss after clear")
	}
}

func TestScoreCache_Stats(t *testing.T) {
	cache := newScoreCache(10*time.Minute, 100)

	cache.Get("missing")
	cache.Set("key", Breakdown{})
	cache.Get("key")

	stats := cache.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected 1 hit / 1 miss, got %d/%d", stats.Hits, stats.Misses)
	}
	if !almostEqual(stats.HitRate, 0.5) {
		t.Errorf("expected hit rate 0.5, got %g", stats.HitRate)
	}
	if stats.Size != 1 {
		t.Errorf("expected size 1, got %d", stats.Size)
	}
}

func TestScoreCache_ConcurrentAccess(t *testing.T) {
	cache := newScoreCache(10*time.Minute, 50)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d-%d", n, j%10)
				cache.Set(key, Breakdown{FinalConfidence: float64(j) / 100})
				cache.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if stats := cache.Stats(); stats.Size > 50 {
		t.Errorf("cache exceeded max size: %d", stats.Size)
	}
}
