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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// DefaultArchiveDir is the archive location when ARCHIVE_DIR is unset.
const DefaultArchiveDir = "./data/archive"

// Archive key namespaces. Documents are content-addressed, so storing
// the same text twice writes one document and two analysis snapshots.
const (
	docPrefix      = "doc:"
	analysisPrefix = "ana:"
)

// ErrNotArchived marks a lookup for a document the archive never saw.
var ErrNotArchived = errors.New("document not archived")

// ArchivedDocument is one stored source text.
type ArchivedDocument struct {
	ID         string    `json:"document_id"`
	Content    string    `json:"content"`
	FormatHint string    `json:"format_hint,omitempty"`
	ByteSize   int       `json:"byte_size"`
	CreatedAt  time.Time `json:"created_at"`
}

// ArchivedAnalysis is one analysis snapshot keyed by document.
type ArchivedAnalysis struct {
	ID          string          `json:"analysis_id"`
	DocumentID  string          `json:"document_id"`
	SessionID   string          `json:"session_id,omitempty"`
	ContentType string          `json:"content_type,omitempty"`
	Fingerprint string          `json:"threshold_fingerprint,omitempty"`
	Result      json.RawMessage `json:"result"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Archive is the content-addressed document/analysis store.
//
// Thread Safety: safe for concurrent use.
type Archive struct {
	db  *DB
	now func() time.Time
}

// OpenArchive opens the archive at dir. Empty dir falls back to
// ARCHIVE_DIR, then DefaultArchiveDir.
func OpenArchive(dir string) (*Archive, error) {
	if dir == "" {
		dir = os.Getenv("ARCHIVE_DIR")
	}
	if dir == "" {
		dir = DefaultArchiveDir
	}
	cfg := DefaultConfig()
	cfg.Path = dir
	db, err := OpenDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening archive at %s: %w", dir, err)
	}
	return NewArchive(db), nil
}

// NewArchive wraps an open database. The archive owns the database
// through Close.
func NewArchive(db *DB) *Archive {
	return &Archive{db: db, now: time.Now}
}

// Close closes the underlying database.
func (a *Archive) Close() error { return a.db.Close() }

// DocumentID is the content address: lowercase hex SHA-256 of the
// text.
func DocumentID(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// PutDocument stores one source text, returning its content address.
// Re-storing identical content is idempotent.
func (a *Archive) PutDocument(ctx context.Context, content, formatHint string) (string, error) {
	doc := ArchivedDocument{
		ID:         DocumentID(content),
		Content:    content,
		FormatHint: formatHint,
		ByteSize:   len(content),
		CreatedAt:  a.now().UTC(),
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encoding document %s: %w", doc.ID, err)
	}
	err = a.db.WithTxn(ctx, func(txn *badger.Txn) error {
		key := []byte(docPrefix + doc.ID)
		if _, err := txn.Get(key); err == nil {
			return nil
		}
		return txn.Set(key, raw)
	})
	if err != nil {
		return "", fmt.Errorf("archiving document %s: %w", doc.ID, err)
	}
	return doc.ID, nil
}

// Document loads one stored text by content address.
func (a *Archive) Document(ctx context.Context, documentID string) (*ArchivedDocument, error) {
	var doc ArchivedDocument
	err := a.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(docPrefix + documentID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotArchived
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// PutAnalysis stores one analysis snapshot for an archived document.
// The result payload is kept as raw JSON so the archive never lags the
// analyzer's result shape.
func (a *Archive) PutAnalysis(ctx context.Context, ana ArchivedAnalysis) (string, error) {
	if ana.DocumentID == "" {
		return "", errors.New("analysis needs a document id")
	}
	ana.CreatedAt = a.now().UTC()
	if ana.ID == "" {
		sum := sha256.Sum256([]byte(ana.DocumentID + "|" + ana.CreatedAt.Format(time.RFC3339Nano)))
		ana.ID = hex.EncodeToString(sum[:])[:12]
	}
	raw, err := json.Marshal(ana)
	if err != nil {
		return "", fmt.Errorf("encoding analysis %s: %w", ana.ID, err)
	}
	err = a.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set([]byte(analysisPrefix+ana.DocumentID+":"+ana.ID), raw)
	})
	if err != nil {
		return "", fmt.Errorf("archiving analysis %s: %w", ana.ID, err)
	}
	return ana.ID, nil
}

// Analyses lists a document's snapshots, oldest first.
func (a *Archive) Analyses(ctx context.Context, documentID string) ([]ArchivedAnalysis, error) {
	var out []ArchivedAnalysis
	err := a.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(analysisPrefix + documentID + ":")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var ana ArchivedAnalysis
				if err := json.Unmarshal(val, &ana); err != nil {
					return nil
				}
				out = append(out, ana)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt.Before(out[j-1].CreatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}
