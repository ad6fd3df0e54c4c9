// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/RedlineAI/RedlineFOSS/pkg/validation"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/events"
)

// keepAliveInterval paces SSE comment pings. Load balancers commonly
// cut idle streams at 60 s.
const keepAliveInterval = 15 * time.Second

// sseFrame is one hash-chained SSE payload. Hash covers the frame's
// content and PrevHash links to the prior frame, so a client can verify
// it received the stream intact and in order.
type sseFrame struct {
	ID        string      `json:"id"`
	Type      events.Type `json:"event_type"`
	SessionID string      `json:"session_id"`
	CreatedAt int64       `json:"created_at"`
	Data      any         `json:"data"`
	Hash      string      `json:"hash"`
	PrevHash  string      `json:"prev_hash,omitempty"`
}

// SSEWriter writes hash-chained frames to one streaming response.
//
// Thread Safety: safe for concurrent writers; the hash chain stays
// consistent under the writer's lock.
type SSEWriter struct {
	w        http.ResponseWriter
	flusher  http.Flusher
	prevHash string
	mu       sync.Mutex
}

// NewSSEWriter wraps a response writer. Fails when the writer cannot
// flush.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	return &SSEWriter{w: w, flusher: flusher}, nil
}

// SetSSEHeaders prepares a response for event streaming.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// WriteEvent writes one fabric event as a chained frame.
func (s *SSEWriter) WriteEvent(ev events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := sseFrame{
		ID:        ev.ID,
		Type:      ev.Type,
		SessionID: ev.SessionID,
		CreatedAt: ev.Timestamp.UnixMilli(),
		Data:      ev.Data,
		PrevHash:  s.prevHash,
	}
	if frame.ID == "" {
		frame.ID = uuid.New().String()
	}
	frame.Hash = frameHash(frame)
	s.prevHash = frame.Hash

	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", frame.Type, data); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// WriteKeepAlive sends an SSE comment. Comments are invisible to
// clients and outside the hash chain.
func (s *SSEWriter) WriteKeepAlive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprint(s.w, ": ping\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// frameHash hashes a frame's identity and content. The Hash field must
// be empty when called.
func frameHash(f sseFrame) string {
	dataJSON, _ := json.Marshal(f.Data)
	input := fmt.Sprintf("%s|%s|%s|%d|%s|%s",
		f.ID, f.Type, f.SessionID, f.CreatedAt, f.PrevHash, dataJSON)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// allChannels is every subscription channel the SSE bridge forwards.
var allChannels = []events.Channel{
	events.ChannelProgress,
	events.ChannelStationProgress,
	events.ChannelCompletion,
	events.ChannelFeedback,
	events.ChannelConfidence,
	events.ChannelInsights,
}

// EventStream is GET /events/stream?session_id=. It bridges the
// session's fabric queue onto an SSE response until the client
// disconnects.
func EventStream(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := validation.SanitizeSessionID(c.Query("session_id"))
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}

		SetSSEHeaders(c.Writer)
		writer, err := NewSSEWriter(c.Writer)
		if err != nil {
			fail(c, http.StatusInternalServerError, "streaming not supported")
			return
		}

		deps.Fabric.Register(sessionID)

		// Buffered so a slow write never blocks the fabric dispatcher.
		stream := make(chan events.Event, 256)
		var subIDs []string
		for _, ch := range allChannels {
			subIDs = append(subIDs, deps.Fabric.Subscribe(sessionID, ch, func(ev events.Event) {
				select {
				case stream <- ev:
				default:
				}
			}))
		}
		defer func() {
			for _, id := range subIDs {
				deps.Fabric.Unsubscribe(sessionID, id)
			}
		}()

		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		done := c.Request.Context().Done()
		for {
			select {
			case <-done:
				return
			case ev := <-stream:
				if err := writer.WriteEvent(ev); err != nil {
					return
				}
			case <-ticker.C:
				if err := writer.WriteKeepAlive(); err != nil {
					return
				}
			}
		}
	}
}
