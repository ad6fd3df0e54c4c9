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
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Schema is the relational layout the postgres store manages. Feedback
// rows reference minimal session and violation rows so verdicts remain
// joinable to what was reported.
const Schema = `
CREATE TABLE IF NOT EXISTS user_sessions (
    session_id  TEXT PRIMARY KEY,
    user_agent  TEXT,
    ip_hash     TEXT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS documents (
    document_id  TEXT PRIMARY KEY,
    session_id   TEXT REFERENCES user_sessions(session_id),
    format       TEXT,
    content_type TEXT,
    byte_size    BIGINT,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS analyses (
    analysis_id           TEXT PRIMARY KEY,
    document_id           TEXT REFERENCES documents(document_id),
    status                TEXT,
    started_at            TIMESTAMPTZ,
    completed_at          TIMESTAMPTZ,
    threshold_fingerprint TEXT
);

CREATE TABLE IF NOT EXISTS violations (
    violation_id   TEXT PRIMARY KEY,
    analysis_id    TEXT REFERENCES analyses(analysis_id),
    rule_id        TEXT NOT NULL,
    severity       TEXT,
    confidence     DOUBLE PRECISION,
    start_offset   INTEGER,
    end_offset     INTEGER,
    line           INTEGER,
    "column"       INTEGER,
    message        TEXT,
    suggestion     TEXT,
    context_before TEXT,
    context_after  TEXT,
    meta_json      JSONB
);

CREATE TABLE IF NOT EXISTS feedback (
    feedback_id       TEXT PRIMARY KEY,
    session_id        TEXT REFERENCES user_sessions(session_id),
    violation_id      TEXT REFERENCES violations(violation_id),
    feedback_kind     TEXT NOT NULL,
    confidence_rating DOUBLE PRECISION,
    user_reason       TEXT,
    ip_hash           TEXT,
    ua                TEXT,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS feedback_session_idx ON feedback(session_id);
CREATE INDEX IF NOT EXISTS feedback_created_idx ON feedback(created_at);
`

// PostgresStore persists feedback in PostgreSQL.
//
// Thread Safety: safe for concurrent use; database/sql pools
// connections.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool and ensures the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring feedback schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Store(ctx context.Context, rec Record) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_sessions (session_id, user_agent, ip_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO NOTHING`,
		rec.SessionID, rec.UserAgent, rec.IPHash)
	if err != nil {
		return fmt.Errorf("upserting session %s: %w", rec.SessionID, err)
	}

	// The violation row carries enough context for later joins even
	// when the originating analysis was never persisted.
	meta, _ := json.Marshal(map[string]string{"content_type": rec.ContentType})
	_, err = tx.ExecContext(ctx, `
		INSERT INTO violations (violation_id, rule_id, confidence, message, meta_json)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (violation_id) DO NOTHING`,
		rec.ViolationID, rec.ErrorType, rec.Confidence, rec.ErrorMessage, meta)
	if err != nil {
		return fmt.Errorf("upserting violation %s: %w", rec.ViolationID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO feedback
		    (feedback_id, session_id, violation_id, feedback_kind,
		     confidence_rating, user_reason, ip_hash, ua, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.SessionID, rec.ViolationID, rec.Kind,
		rec.ConfidenceRating, nullable(rec.UserReason), rec.IPHash, rec.UserAgent, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting feedback %s: %w", rec.ID, err)
	}
	return tx.Commit()
}

func (p *PostgresStore) StatsForSession(ctx context.Context, sessionID string) (Stats, error) {
	recs, err := p.SessionFeedback(ctx, sessionID)
	if err != nil {
		return Stats{}, err
	}
	return sessionStats(recs), nil
}

func (p *PostgresStore) SessionFeedback(ctx context.Context, sessionID string) ([]Record, error) {
	return p.query(ctx, `
		SELECT f.feedback_id, f.session_id, f.violation_id, f.feedback_kind,
		       f.confidence_rating, COALESCE(f.user_reason, ''), f.ip_hash, f.ua, f.created_at,
		       COALESCE(v.rule_id, ''), COALESCE(v.message, ''),
		       COALESCE(v.confidence, 0), COALESCE(v.meta_json->>'content_type', '')
		FROM feedback f LEFT JOIN violations v ON v.violation_id = f.violation_id
		WHERE f.session_id = $1
		ORDER BY f.created_at`, sessionID)
}

func (p *PostgresStore) Recent(ctx context.Context, since time.Time) ([]Record, error) {
	return p.query(ctx, `
		SELECT f.feedback_id, f.session_id, f.violation_id, f.feedback_kind,
		       f.confidence_rating, COALESCE(f.user_reason, ''), f.ip_hash, f.ua, f.created_at,
		       COALESCE(v.rule_id, ''), COALESCE(v.message, ''),
		       COALESCE(v.confidence, 0), COALESCE(v.meta_json->>'content_type', '')
		FROM feedback f LEFT JOIN violations v ON v.violation_id = f.violation_id
		WHERE f.created_at >= $1
		ORDER BY f.created_at`, since)
}

func (p *PostgresStore) Delete(ctx context.Context, sessionID, feedbackID string) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM feedback WHERE session_id = $1 AND feedback_id = $2`,
		sessionID, feedbackID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func (p *PostgresStore) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		var ipHash, ua sql.NullString
		err := rows.Scan(&rec.ID, &rec.SessionID, &rec.ViolationID, &rec.Kind,
			&rec.ConfidenceRating, &rec.UserReason, &ipHash, &ua, &rec.CreatedAt,
			&rec.ErrorType, &rec.ErrorMessage, &rec.Confidence, &rec.ContentType)
		if err != nil {
			return nil, fmt.Errorf("scanning feedback row: %w", err)
		}
		rec.IPHash = ipHash.String
		rec.UserAgent = ua.String
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
