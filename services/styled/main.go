// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// styled is the style-analysis HTTP service: document analysis, block
// rewriting, feedback collection, and realtime progress over SSE and
// websockets.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/RedlineAI/RedlineFOSS/pkg/logging"
	"github.com/RedlineAI/RedlineFOSS/services/styled/handlers"
	"github.com/RedlineAI/RedlineFOSS/services/styled/routes"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/analyzer"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/confidence"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/config"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/events"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/feedback"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/nlp"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rewrite"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules/builtin"
	storage "github.com/RedlineAI/RedlineFOSS/services/styleengine/storage/badger"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/telemetry"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/transform"
)

const defaultPort = "8077"

func main() {
	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		Service: "styled",
		JSON:    true,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	lock := newProcessLock(os.Getenv("STYLED_LOCK_DIR"))
	if err := lock.Acquire(); err != nil {
		log.Fatalf("failed to acquire instance lock: %v", err)
	}
	defer lock.Release()

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.Setup(ctx, telemetry.FromEnv("styled"))
	if err != nil {
		log.Fatalf("failed to set up telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown failed", "error", err)
		}
	}()

	loader := config.NewLoader(config.Dir())
	snap, err := loader.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	slog.Info("configuration loaded",
		"dir", config.Dir(), "fingerprint", snap.Fingerprint)

	fabric := events.NewFabric(events.WithLogger(slog.Default()))
	defer fabric.Close()

	feedbackStore, err := openFeedbackStore(ctx)
	if err != nil {
		log.Fatalf("failed to open the feedback store: %v", err)
	}
	defer feedbackStore.Close()
	feedbackSvc := feedback.NewService(feedbackStore,
		feedback.WithSink(fabric))

	pipeline := confidence.New(
		confidence.WithThreshold(snap.Thresholds.UniversalThreshold),
		confidence.WithReliability(snap.Weights.Reliability),
		confidence.WithModifiers(snap.Weights.Modifiers),
		confidence.WithAnchors(snap.Anchors.Compile()),
		confidence.WithCache(snap.Thresholds.CacheSize,
			time.Duration(snap.Thresholds.CacheTTLSeconds)*time.Second),
		confidence.WithAdjustFunc(feedbackSvc.Adjuster(30, 5)),
	)

	loader.OnReload(func(s *config.Snapshot) {
		pipeline.InvalidateCache()
		fabric.BroadcastThresholdChange(s.Thresholds.UniversalThreshold, "config_reload")
		slog.Info("configuration reloaded", "fingerprint", s.Fingerprint)
	})
	watcher, err := config.Watch(loader)
	if err != nil {
		slog.Warn("config watching disabled", "error", err)
	} else {
		defer watcher.Stop()
	}

	registry := rules.NewRegistry()
	if err := builtin.Register(registry, builtin.Settings{}); err != nil {
		log.Fatalf("failed to register builtin rules: %v", err)
	}
	toolkit := nlp.FromEnv()

	engine := analyzer.New(registry, pipeline, toolkit,
		analyzer.WithSink(fabric),
		analyzer.WithWorkers(config.AnalysisWorkers(runtime.NumCPU())),
		analyzer.WithBlockTimeout(time.Duration(snap.Thresholds.BlockTimeoutSeconds)*time.Second),
		analyzer.WithFingerprint(func() string {
			if s := loader.Current(); s != nil {
				return s.Fingerprint
			}
			return ""
		}),
	)

	line, err := rewrite.NewStationLine(rewrite.DefaultStations(), snap.Thresholds.MaxStations)
	if err != nil {
		log.Fatalf("failed to build the station line: %v", err)
	}
	transformer, err := transform.FromEnv(slog.Default())
	if err != nil {
		log.Fatalf("failed to configure the transform backend: %v", err)
	}
	rewriter := rewrite.NewRewriter(line, transformer,
		rewrite.NewRegistryChecker(registry, pipeline, toolkit),
		rewrite.WithSink(fabric),
		rewrite.WithTimeouts(
			time.Duration(snap.Thresholds.StationTimeoutSeconds)*time.Second,
			time.Duration(snap.Thresholds.JobTimeoutSeconds)*time.Second,
		),
	)

	archive, err := storage.OpenArchive(os.Getenv("ARCHIVE_DIR"))
	if err != nil {
		log.Fatalf("failed to open the analysis archive: %v", err)
	}
	defer archive.Close()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("styled"))
	router.Use(requestLogger())
	routes.Setup(router, handlers.Deps{
		Analyzer: engine,
		Rewriter: rewriter,
		Feedback: feedbackSvc,
		Fabric:   fabric,
		Loader:   loader,
		Archive:  archive,
	})

	port := os.Getenv("STYLED_PORT")
	if port == "" {
		port = defaultPort
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("styled listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
}

// openFeedbackStore picks the feedback backend from FEEDBACK_STORE.
func openFeedbackStore(ctx context.Context) (feedback.Store, error) {
	switch backend := os.Getenv("FEEDBACK_STORE"); backend {
	case "memory":
		slog.Info("using in-memory feedback store")
		return feedback.NewMemoryStore(), nil
	case "postgres":
		dsn := os.Getenv("FEEDBACK_DSN")
		if dsn == "" {
			return nil, errors.New("FEEDBACK_STORE=postgres requires FEEDBACK_DSN")
		}
		slog.Info("using postgres feedback store")
		return feedback.NewPostgresStore(ctx, dsn)
	case "", "badger":
		dir := os.Getenv("FEEDBACK_DSN")
		if dir == "" {
			dir = "./data/feedback"
		}
		cfg := storage.DefaultConfig()
		cfg.Path = dir
		cfg.Logger = slog.Default()
		db, err := storage.OpenDB(cfg)
		if err != nil {
			return nil, err
		}
		slog.Info("using badger feedback store", "dir", dir)
		return feedback.NewBadgerStore(db.DB), nil
	default:
		return nil, errors.New("unknown FEEDBACK_STORE backend")
	}
}

// requestLogger logs one line per request after it completes.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		slog.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(started).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}
