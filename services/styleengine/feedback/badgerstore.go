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
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// keyPrefix namespaces feedback keys inside a shared badger database.
const keyPrefix = "fb:"

// BadgerStore persists feedback in an embedded badger database. Keys
// are "fb:<session>:<id>" with JSON-encoded Record values, so session
// listings are a single prefix scan.
//
// Thread Safety: safe for concurrent use; badger serializes commits.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps an open database. The caller owns the database
// lifecycle unless Close is used.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (b *BadgerStore) Store(_ context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding feedback %s: %w", rec.ID, err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.SessionID, rec.ID), raw)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (b *BadgerStore) StatsForSession(ctx context.Context, sessionID string) (Stats, error) {
	recs, err := b.SessionFeedback(ctx, sessionID)
	if err != nil {
		return Stats{}, err
	}
	return sessionStats(recs), nil
}

func (b *BadgerStore) SessionFeedback(_ context.Context, sessionID string) ([]Record, error) {
	recs, err := b.scan([]byte(keyPrefix + sessionID + ":"), time.Time{})
	if err != nil {
		return nil, err
	}
	sortByCreation(recs)
	return recs, nil
}

func (b *BadgerStore) Recent(_ context.Context, since time.Time) ([]Record, error) {
	recs, err := b.scan([]byte(keyPrefix), since)
	if err != nil {
		return nil, err
	}
	sortByCreation(recs)
	return recs, nil
}

func (b *BadgerStore) Delete(_ context.Context, sessionID, feedbackID string) (bool, error) {
	key := recordKey(sessionID, feedbackID)
	found := false
	err := b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		found = true
		return txn.Delete(key)
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return found, nil
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}

func (b *BadgerStore) scan(prefix []byte, since time.Time) ([]Record, error) {
	var recs []Record
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec Record
				if err := json.Unmarshal(val, &rec); err != nil {
					// Skip records a newer or older build wrote.
					return nil
				}
				if !since.IsZero() && rec.CreatedAt.Before(since) {
					return nil
				}
				recs = append(recs, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return recs, nil
}

func recordKey(sessionID, feedbackID string) []byte {
	return []byte(keyPrefix + sessionID + ":" + feedbackID)
}
