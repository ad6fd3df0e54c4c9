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
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/RedlineAI/RedlineFOSS/pkg/validation"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/feedback"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/telemetry"
)

// SubmitFeedback is POST /api/feedback.
func SubmitFeedback(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sub feedback.Submission
		if err := c.ShouldBindJSON(&sub); err != nil {
			fail(c, http.StatusBadRequest, "invalid request body")
			return
		}

		rec, err := deps.Feedback.Submit(c.Request.Context(), sub,
			c.ClientIP(), c.Request.UserAgent())
		if err != nil {
			switch {
			case errors.Is(err, feedback.ErrInvalidFeedback):
				fail(c, http.StatusBadRequest, err.Error())
			case errors.Is(err, feedback.ErrStorageUnavailable):
				fail(c, http.StatusServiceUnavailable, "feedback storage unavailable")
			default:
				slog.Error("feedback submission failed", "error", err)
				fail(c, http.StatusInternalServerError, "storing feedback failed")
			}
			return
		}

		telemetry.EngineInstruments().RecordFeedback(c.Request.Context(), rec.Kind)
		c.JSON(http.StatusCreated, gin.H{
			"feedback_id":  rec.ID,
			"violation_id": rec.ViolationID,
			"timestamp":    rec.CreatedAt,
		})
	}
}

// FeedbackStats is GET /api/feedback/stats?session_id=&days_back=.
func FeedbackStats(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := validation.SanitizeSessionID(c.Query("session_id"))
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		daysBack := 30
		if raw := c.Query("days_back"); raw != "" {
			daysBack, err = strconv.Atoi(raw)
			if err != nil || daysBack < 1 || daysBack > 365 {
				fail(c, http.StatusBadRequest, "days_back must be an integer in [1, 365]")
				return
			}
		}

		stats, err := deps.Feedback.StatsForSession(c.Request.Context(), sessionID)
		if err != nil {
			fail(c, http.StatusServiceUnavailable, "feedback storage unavailable")
			return
		}
		insights, err := deps.Feedback.Insights(c.Request.Context(), daysBack)
		if err != nil {
			fail(c, http.StatusServiceUnavailable, "feedback storage unavailable")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"session_id": sessionID,
			"stats":      stats,
			"insights":   insights,
		})
	}
}

// deleteFeedbackRequest is the DELETE /api/feedback body.
type deleteFeedbackRequest struct {
	SessionID  string `json:"session_id"`
	FeedbackID string `json:"feedback_id"`
}

// DeleteFeedback is DELETE /api/feedback.
func DeleteFeedback(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req deleteFeedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.SessionID == "" || req.FeedbackID == "" {
			fail(c, http.StatusBadRequest, "session_id and feedback_id are required")
			return
		}

		ok, err := deps.Feedback.Delete(c.Request.Context(), req.SessionID, req.FeedbackID)
		if err != nil {
			fail(c, http.StatusServiceUnavailable, "feedback storage unavailable")
			return
		}
		if !ok {
			fail(c, http.StatusNotFound, "feedback not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "feedback_id": req.FeedbackID})
	}
}
