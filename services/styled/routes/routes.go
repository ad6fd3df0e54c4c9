// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package routes wires the styled service's endpoints to its handlers.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RedlineAI/RedlineFOSS/services/styled/handlers"
)

// Setup registers every styled endpoint on the router.
func Setup(router *gin.Engine, deps handlers.Deps) {
	router.GET("/health", handlers.HealthCheck(deps))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/analyze", handlers.Analyze(deps))
	router.POST("/rewrite-block", handlers.RewriteBlock(deps))

	api := router.Group("/api")
	{
		api.POST("/feedback", handlers.SubmitFeedback(deps))
		api.GET("/feedback/stats", handlers.FeedbackStats(deps))
		api.DELETE("/feedback", handlers.DeleteFeedback(deps))
	}

	router.GET("/events/stream", handlers.EventStream(deps))
	router.GET("/ws", handlers.EventSocket(deps))
}
