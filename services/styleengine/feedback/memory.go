// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package feedback

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps feedback in process memory. The default for tests
// and for deployments that opt out of persistence.
//
// Thread Safety: safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Store(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *MemoryStore) StatsForSession(_ context.Context, sessionID string) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var recs []Record
	for _, r := range m.records {
		if r.SessionID == sessionID {
			recs = append(recs, r)
		}
	}
	return sessionStats(recs), nil
}

func (m *MemoryStore) SessionFeedback(_ context.Context, sessionID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var recs []Record
	for _, r := range m.records {
		if r.SessionID == sessionID {
			recs = append(recs, r)
		}
	}
	sortByCreation(recs)
	return recs, nil
}

func (m *MemoryStore) Recent(_ context.Context, since time.Time) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var recs []Record
	for _, r := range m.records {
		if !r.CreatedAt.Before(since) {
			recs = append(recs, r)
		}
	}
	sortByCreation(recs)
	return recs, nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID, feedbackID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.records {
		if r.SessionID == sessionID && r.ID == feedbackID {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) Close() error { return nil }

func sortByCreation(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})
}
