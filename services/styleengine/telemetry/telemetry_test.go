// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestSetup_NoExportersIsNoop(t *testing.T) {
	p, err := Setup(context.Background(), Config{ServiceName: "test"})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}

func TestSetup_StdoutExporters(t *testing.T) {
	p, err := Setup(context.Background(), Config{
		ServiceName:    "test",
		TraceExporter:  ExporterStdout,
		MetricExporter: ExporterStdout,
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}

func TestSetup_UnknownExporter(t *testing.T) {
	if _, err := Setup(context.Background(), Config{TraceExporter: "jaeger"}); err == nil {
		t.Error("expected an error for an unknown trace exporter")
	}
	if _, err := Setup(context.Background(), Config{MetricExporter: "statsd"}); err == nil {
		t.Error("expected an error for an unknown metric exporter")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("TRACE_EXPORTER", "STDOUT")
	t.Setenv("METRIC_EXPORTER", "prometheus")
	t.Setenv("OTLP_ENDPOINT", "collector:4317")
	t.Setenv("PROMETHEUS_PORT", "9464")

	cfg := FromEnv("styled")
	if cfg.TraceExporter != ExporterStdout {
		t.Errorf("trace exporter = %q, want stdout", cfg.TraceExporter)
	}
	if cfg.MetricExporter != ExporterPrometheus {
		t.Errorf("metric exporter = %q, want prometheus", cfg.MetricExporter)
	}
	if cfg.OTLPEndpoint != "collector:4317" {
		t.Errorf("endpoint = %q", cfg.OTLPEndpoint)
	}
	if cfg.PrometheusAddr != ":9464" {
		t.Errorf("prometheus addr = %q, want :9464", cfg.PrometheusAddr)
	}
}

func TestEngineInstruments_SharedAndUsable(t *testing.T) {
	a := EngineInstruments()
	b := EngineInstruments()
	if a != b {
		t.Error("instruments should be process-wide")
	}

	// No exporter installed in this test: every call must be a safe
	// no-op.
	ctx := context.Background()
	a.RecordAnalysis(ctx, "technical", 4, 120*time.Millisecond, false)
	a.RecordAnalysis(ctx, "technical", 0, time.Millisecond, true)
	a.RecordRewrite(ctx, 2, time.Second, false)
	a.RecordFeedback(ctx, "correct")
}
