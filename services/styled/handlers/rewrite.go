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
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RedlineAI/RedlineFOSS/pkg/validation"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/blocks"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rewrite"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/telemetry"
)

// rewriteRequest is the POST /rewrite-block body.
type rewriteRequest struct {
	Content     string  `json:"content"`
	BlockID     string  `json:"block_id"`
	BlockType   string  `json:"block_type,omitempty"`
	ContentType string  `json:"content_type,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
	SecondPass  bool    `json:"second_pass,omitempty"`
	SessionID   string  `json:"session_id,omitempty"`
}

// RewriteBlock is POST /rewrite-block.
func RewriteBlock(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req rewriteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Content == "" {
			fail(c, http.StatusBadRequest, "content is required")
			return
		}
		if req.BlockID == "" {
			fail(c, http.StatusBadRequest, "block_id is required")
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

		blockType := blocks.TypeParagraph
		if req.BlockType != "" {
			blockType = blocks.Type(req.BlockType)
		}

		started := time.Now()
		res, err := deps.Rewriter.Rewrite(c.Request.Context(), rewrite.Request{
			Block: blocks.Block{
				ID:   req.BlockID,
				Type: blockType,
				End:  len(req.Content),
				Text: req.Content,
				Body: req.Content,
			},
			ContentType: contentType,
			Threshold:   req.Threshold,
			SecondPass:  req.SecondPass,
			SessionID:   sessionID,
		})
		telemetry.EngineInstruments().RecordRewrite(c.Request.Context(),
			errorsFixedOf(res), time.Since(started), err != nil)
		if err != nil {
			slog.Error("rewrite failed",
				"block_id", req.BlockID, "session_id", sessionID, "error", err)
			fail(c, http.StatusInternalServerError, "rewrite failed")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"rewritten_text":      res.Text,
			"confidence":          rewriteConfidence(res),
			"errors_fixed":        res.ErrorsFixed,
			"improvements":        res.Improvements,
			"applicable_stations": res.Stations,
			"diff":                res.Diff,
			"block_id":            res.BlockID,
			"session_id":          sessionID,
			"processing_time":     res.ProcessingTime.Seconds(),
			"success":             true,
		})
	}
}

// rewriteConfidence scores how clean the block ended up: the fraction
// of initial issues resolved, 1.0 for blocks that were already clean.
func rewriteConfidence(res *rewrite.Result) float64 {
	if res.InitialIssues == 0 {
		return 1.0
	}
	conf := 1.0 - float64(res.RemainingIssues)/float64(res.InitialIssues)
	if conf < 0 {
		conf = 0
	}
	return conf
}

func errorsFixedOf(res *rewrite.Result) int {
	if res == nil {
		return 0
	}
	return res.ErrorsFixed
}
