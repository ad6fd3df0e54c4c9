// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the styled service's HTTP, SSE, and
// websocket handlers over the style engine.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/analyzer"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/config"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/events"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/feedback"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rewrite"
	storage "github.com/RedlineAI/RedlineFOSS/services/styleengine/storage/badger"
)

// APIVersion is reported on analyze responses.
const APIVersion = "2.0"

// Deps are the engine components the handlers serve.
type Deps struct {
	Analyzer *analyzer.Analyzer
	Rewriter *rewrite.Rewriter
	Feedback *feedback.Service
	Fabric   *events.Fabric
	Loader   *config.Loader
	Archive  *storage.Archive
}

// errorBody is the uniform error response shape.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, errorBody{Error: msg})
}

// sessionOrNew returns the request's session id, minting one when the
// client sent none.
func sessionOrNew(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

// HealthCheck reports service and dependency status.
func HealthCheck(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		services := gin.H{
			"analyzer": "ok",
			"rewriter": "ok",
			"events":   "ok",
		}
		status := "ok"

		if deps.Loader != nil {
			if _, err := deps.Loader.Snapshot(); err != nil {
				services["config"] = "degraded"
				status = "degraded"
			} else {
				services["config"] = "ok"
			}
		}
		if deps.Feedback != nil {
			services["feedback"] = "ok"
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    status,
			"services":  services,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
