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
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/RedlineAI/RedlineFOSS/pkg/validation"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/events"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/feedback"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

// wsRequest is one client->server websocket message.
type wsRequest struct {
	Action    string               `json:"action"`
	SessionID string               `json:"session_id,omitempty"`
	DaysBack  int                  `json:"days_back,omitempty"`
	Feedback  *feedback.Submission `json:"feedback,omitempty"`
}

// wsConn serializes writes to one websocket client.
type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *wsConn) sendError(msg string) {
	if err := c.send(gin.H{"type": "error", "error": msg}); err != nil {
		slog.Debug("websocket error write failed", "error", err)
	}
}

// EventSocket is GET /ws: the realtime event channel. Each connection
// gets its own session on upgrade and may join additional sessions to
// receive their fabric events.
func EventSocket(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "error", err)
			return
		}
		defer ws.Close()

		conn := &wsConn{ws: ws}
		sessionID := uuid.New().String()
		deps.Fabric.Register(sessionID)

		// sessionID -> subscription ids, for leave_session and cleanup.
		joined := make(map[string][]string)
		join := func(id string) {
			if _, ok := joined[id]; ok {
				return
			}
			deps.Fabric.Register(id)
			var subs []string
			for _, ch := range allChannels {
				subs = append(subs, deps.Fabric.Subscribe(id, ch, func(ev events.Event) {
					if err := conn.send(gin.H{
						"type":       string(ev.Type),
						"session_id": ev.SessionID,
						"timestamp":  ev.Timestamp,
						"data":       ev.Data,
					}); err != nil {
						slog.Debug("websocket event write failed", "error", err)
					}
				}))
			}
			joined[id] = subs
		}
		defer func() {
			for id, subs := range joined {
				for _, sub := range subs {
					deps.Fabric.Unsubscribe(id, sub)
				}
			}
		}()

		join(sessionID)
		if err := conn.send(gin.H{"type": "connected", "session_id": sessionID}); err != nil {
			return
		}

		for {
			var req wsRequest
			if err := ws.ReadJSON(&req); err != nil {
				slog.Debug("websocket client disconnected", "session_id", sessionID)
				return
			}

			switch req.Action {
			case "connect":
				conn.send(gin.H{"type": "connected", "session_id": sessionID})

			case "ping":
				conn.send(gin.H{"type": "pong"})

			case "join_session":
				id, err := validation.SanitizeSessionID(req.SessionID)
				if err != nil {
					conn.sendError(err.Error())
					continue
				}
				join(id)
				conn.send(gin.H{"type": "connected", "session_id": id})

			case "leave_session":
				if subs, ok := joined[req.SessionID]; ok {
					for _, sub := range subs {
						deps.Fabric.Unsubscribe(req.SessionID, sub)
					}
					delete(joined, req.SessionID)
				}

			case "submit_feedback_realtime":
				if req.Feedback == nil {
					conn.sendError("feedback payload is required")
					continue
				}
				rec, err := deps.Feedback.Submit(c.Request.Context(), *req.Feedback,
					c.ClientIP(), c.Request.UserAgent())
				if err != nil {
					conn.sendError(err.Error())
					continue
				}
				conn.send(gin.H{
					"type": string(events.TypeFeedbackNotification),
					"data": events.FeedbackNotificationData{
						FeedbackID:  rec.ID,
						ViolationID: rec.ViolationID,
						Status:      "stored",
					},
				})

			case "request_validation_status":
				conn.send(gin.H{
					"type":       string(events.TypeValidationProgress),
					"session_id": req.SessionID,
					"data":       gin.H{"status": "idle"},
				})

			case "subscribe_insights":
				daysBack := req.DaysBack
				if daysBack == 0 {
					daysBack = 30
				}
				ins, err := deps.Feedback.Insights(c.Request.Context(), daysBack)
				if err != nil {
					conn.sendError("insights unavailable")
					continue
				}
				conn.send(gin.H{
					"type": string(events.TypeConfidenceInsights),
					"data": ins,
				})

			default:
				conn.sendError("unknown action " + req.Action)
			}
		}
	}
}
