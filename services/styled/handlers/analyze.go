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
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RedlineAI/RedlineFOSS/pkg/validation"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/analyzer"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/blocks"
	storage "github.com/RedlineAI/RedlineFOSS/services/styleengine/storage/badger"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/telemetry"
)

// analyzeRequest is the POST /analyze body.
type analyzeRequest struct {
	Content           string  `json:"content"`
	FormatHint        string  `json:"format_hint,omitempty"`
	ContentType       string  `json:"content_type,omitempty"`
	ModuleType        string  `json:"module_type,omitempty"`
	ThresholdOverride float64 `json:"threshold_override,omitempty"`
	SessionID         string  `json:"session_id,omitempty"`
	IncludeBlocks     bool    `json:"include_structural_blocks,omitempty"`
}

// Analyze is POST /analyze.
func Analyze(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req analyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Content == "" {
			fail(c, http.StatusBadRequest, "content is required")
			return
		}
		hint, err := validation.SanitizeFormatHint(req.FormatHint)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		contentType, err := validation.SanitizeContentType(req.ContentType)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		sessionID := sessionOrNew(req.SessionID)
		if deps.Fabric != nil {
			deps.Fabric.Register(sessionID)
		}

		started := time.Now()
		res, err := deps.Analyzer.Analyze(c.Request.Context(), analyzer.Request{
			Content:           req.Content,
			FormatHint:        blocks.Format(hint),
			ContentType:       contentType,
			ModuleType:        req.ModuleType,
			ThresholdOverride: req.ThresholdOverride,
			SessionID:         sessionID,
		})
		telemetry.EngineInstruments().RecordAnalysis(c.Request.Context(),
			contentTypeOf(res), issueCountOf(res), time.Since(started), err != nil)
		if err != nil {
			slog.Error("analysis failed", "session_id", sessionID, "error", err)
			fail(c, http.StatusInternalServerError, "analysis failed")
			return
		}

		archiveResult(c.Request.Context(), deps.Archive, req.Content, hint, sessionID, res)

		body := gin.H{
			"success":  true,
			"analysis": res,
			"confidence_metadata": gin.H{
				"universal_threshold": res.Threshold,
				"content_type":        res.ContentType,
				"suppressed_count":    res.Suppressed,
				"config_fingerprint":  res.Fingerprint,
			},
			"processing_time": res.ProcessingTime.Seconds(),
			"session_id":      sessionID,
			"api_version":     APIVersion,
		}
		if req.IncludeBlocks {
			body["structural_blocks"] = res.Blocks
		}
		c.JSON(http.StatusOK, body)
	}
}

// archiveResult stores the document and a result snapshot. Archive
// failures are logged, never surfaced.
func archiveResult(ctx context.Context, arch *storage.Archive, content, hint, sessionID string, res *analyzer.Result) {
	if arch == nil {
		return
	}
	docID, err := arch.PutDocument(ctx, content, hint)
	if err != nil {
		slog.Warn("archiving document failed", "error", err)
		return
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	_, err = arch.PutAnalysis(ctx, storage.ArchivedAnalysis{
		DocumentID:  docID,
		SessionID:   sessionID,
		ContentType: res.ContentType,
		Fingerprint: res.Fingerprint,
		Result:      raw,
	})
	if err != nil {
		slog.Warn("archiving analysis failed", "document_id", docID, "error", err)
	}
}

func contentTypeOf(res *analyzer.Result) string {
	if res == nil {
		return ""
	}
	return res.ContentType
}

func issueCountOf(res *analyzer.Result) int {
	if res == nil {
		return 0
	}
	return len(res.Issues)
}
