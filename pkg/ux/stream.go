// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file reads the styled service's hash-chained event stream. Each
// frame carries a Hash over its own content and a PrevHash linking to
// the prior frame; a client that verifies the chain knows it received
// the stream intact and in order.
package ux

import (
	"bufio"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Frame event types on the styled event stream.
const (
	FrameProgress        = "progress_update"
	FrameStationProgress = "station_progress_update"
	FrameComplete        = "analysis_complete"
	FrameFailed          = "analysis_failed"
	FrameFeedback        = "feedback_notification"
	FrameInsights        = "confidence_insights"
	FrameThreshold       = "threshold_changed"
	FrameError           = "error"
)

// EventFrame is one frame of the styled event stream.
type EventFrame struct {
	ID        string          `json:"id"`
	Type      string          `json:"event_type"`
	SessionID string          `json:"session_id"`
	CreatedAt int64           `json:"created_at"`
	Data      json.RawMessage `json:"data"`
	Hash      string          `json:"hash"`
	PrevHash  string          `json:"prev_hash,omitempty"`
}

// ComputeHash recomputes the frame's content hash. The Data bytes are
// used exactly as received so the result matches the server's.
func ComputeHash(f EventFrame) string {
	input := fmt.Sprintf("%s|%s|%s|%d|%s|%s",
		f.ID, f.Type, f.SessionID, f.CreatedAt, f.PrevHash, f.Data)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// secureHashEqual compares two hash strings in constant time.
func secureHashEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ChainError reports where and how a frame chain broke.
type ChainError struct {
	Index  int
	Reason string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("event chain broken at frame %d: %s", e.Index, e.Reason)
}

// VerifyChain checks every frame's content hash and the prev-hash links
// between consecutive frames.
func VerifyChain(frames []EventFrame) error {
	prev := ""
	for i, f := range frames {
		if !secureHashEqual(f.Hash, ComputeHash(f)) {
			return &ChainError{Index: i, Reason: "content hash mismatch"}
		}
		if f.PrevHash != prev {
			return &ChainError{Index: i, Reason: "prev_hash does not match prior frame"}
		}
		prev = f.Hash
	}
	return nil
}

// FrameHandler processes one verified frame. Returning io.EOF stops the
// stream without error.
type FrameHandler func(EventFrame) error

// StreamReader consumes an SSE response body frame by frame, verifying
// the hash chain as it goes.
type StreamReader struct {
	scanner  *bufio.Scanner
	prevHash string
	index    int
}

// NewStreamReader wraps a raw SSE body.
func NewStreamReader(r io.Reader) *StreamReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &StreamReader{scanner: sc}
}

// Next returns the next verified frame, io.EOF at end of stream, or a
// ChainError on a tampered or reordered frame. SSE comments (keep-alive
// pings) are skipped.
func (r *StreamReader) Next() (*EventFrame, error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var frame EventFrame
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame); err != nil {
			return nil, fmt.Errorf("decoding frame %d: %w", r.index, err)
		}
		if !secureHashEqual(frame.Hash, ComputeHash(frame)) {
			return nil, &ChainError{Index: r.index, Reason: "content hash mismatch"}
		}
		if frame.PrevHash != r.prevHash {
			return nil, &ChainError{Index: r.index, Reason: "prev_hash does not match prior frame"}
		}
		r.prevHash = frame.Hash
		r.index++
		return &frame, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Process drains the stream through handler until EOF, a handler stop,
// or a verification failure.
func (r *StreamReader) Process(handler FrameHandler) error {
	for {
		frame, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := handler(*frame); err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
	}
}
