// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(InMemoryConfig())
	if err != nil {
		t.Fatalf("opening in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Error("expected an error for a persistent database without a path")
	}
}

func TestOpen_PersistentRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path = t.TempDir()
	cfg.GCInterval = 0

	db, err := OpenDB(cfg)
	if err != nil {
		t.Fatalf("opening persistent db: %v", err)
	}
	if db.Path() != cfg.Path {
		t.Errorf("path = %q, want %q", db.Path(), cfg.Path)
	}

	ctx := context.Background()
	err = db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		return txn.Set([]byte("k"), []byte("v"))
	})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var got []byte
	err = db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte("k"))
		if err != nil {
			return err
		}
		got, err = item.ValueCopy(nil)
		return err
	})
	if err != nil || string(got) != "v" {
		t.Errorf("read = (%q, %v), want (v, nil)", got, err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}
}

func TestWithTxn_HonorsCancelledContext(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := db.WithTxn(ctx, func(*badgerdb.Txn) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestDocumentID_ContentAddressed(t *testing.T) {
	a := DocumentID("Install the agent.")
	if len(a) != 64 {
		t.Errorf("id length = %d, want 64 hex chars", len(a))
	}
	if a != DocumentID("Install the agent.") {
		t.Error("same content should yield the same id")
	}
	if a == DocumentID("Install the agent!") {
		t.Error("different content should yield a different id")
	}
}

func TestArchive_DocumentRoundTrip(t *testing.T) {
	arch := NewArchive(openTestDB(t))
	ctx := context.Background()

	id, err := arch.PutDocument(ctx, "# Title\n\nBody text.", "markdown")
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}

	doc, err := arch.Document(ctx, id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if doc.Content != "# Title\n\nBody text." || doc.FormatHint != "markdown" {
		t.Errorf("round trip = %+v", doc)
	}
	if doc.ByteSize != len(doc.Content) {
		t.Errorf("byte size = %d, want %d", doc.ByteSize, len(doc.Content))
	}

	// Idempotent: same content, same id, no error.
	id2, err := arch.PutDocument(ctx, "# Title\n\nBody text.", "markdown")
	if err != nil || id2 != id {
		t.Errorf("second put = (%q, %v), want (%q, nil)", id2, err, id)
	}

	if _, err := arch.Document(ctx, "ffff"); !errors.Is(err, ErrNotArchived) {
		t.Errorf("missing doc err = %v, want ErrNotArchived", err)
	}
}

func TestArchive_AnalysesOrderedByTime(t *testing.T) {
	arch := NewArchive(openTestDB(t))
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	arch.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	ctx := context.Background()

	docID, err := arch.PutDocument(ctx, "Body.", "plain")
	if err != nil {
		t.Fatalf("put document failed: %v", err)
	}

	payload, _ := json.Marshal(map[string]int{"issues": 3})
	var ids []string
	for i := 0; i < 3; i++ {
		id, err := arch.PutAnalysis(ctx, ArchivedAnalysis{
			DocumentID: docID, SessionID: "s1", Result: payload,
		})
		if err != nil {
			t.Fatalf("put analysis %d failed: %v", i, err)
		}
		ids = append(ids, id)
	}

	anas, err := arch.Analyses(ctx, docID)
	if err != nil {
		t.Fatalf("listing failed: %v", err)
	}
	if len(anas) != 3 {
		t.Fatalf("count = %d, want 3", len(anas))
	}
	for i, ana := range anas {
		if ana.ID != ids[i] {
			t.Errorf("position %d = %s, want %s", i, ana.ID, ids[i])
		}
		if ana.DocumentID != docID {
			t.Errorf("document id = %s, want %s", ana.DocumentID, docID)
		}
	}

	if anas, _ := arch.Analyses(ctx, "unknown"); len(anas) != 0 {
		t.Errorf("unknown document should list empty, got %d", len(anas))
	}
}
