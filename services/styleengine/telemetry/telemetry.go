// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry bootstraps OpenTelemetry traces and metrics for the
// engine and its services.
//
// Exporters are selected by environment: TRACE_EXPORTER and
// METRIC_EXPORTER each accept otlp, stdout, or none; METRIC_EXPORTER
// additionally accepts prometheus. Unset means none, so a bare binary
// never needs a collector.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Exporter selections.
const (
	ExporterNone       = "none"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterPrometheus = "prometheus"
)

// Config selects the exporters and their endpoints.
type Config struct {
	// ServiceName identifies this process in telemetry metadata.
	ServiceName string

	// TraceExporter is one of none, otlp, stdout.
	TraceExporter string

	// MetricExporter is one of none, otlp, stdout, prometheus.
	MetricExporter string

	// OTLPEndpoint is the collector address for otlp exporters.
	OTLPEndpoint string

	// PrometheusAddr serves /metrics when the prometheus exporter is
	// selected, e.g. ":9090". Empty leaves serving to the caller.
	PrometheusAddr string
}

// FromEnv builds a Config from the process environment.
func FromEnv(serviceName string) Config {
	cfg := Config{
		ServiceName:    serviceName,
		TraceExporter:  strings.ToLower(os.Getenv("TRACE_EXPORTER")),
		MetricExporter: strings.ToLower(os.Getenv("METRIC_EXPORTER")),
		OTLPEndpoint:   os.Getenv("OTLP_ENDPOINT"),
	}
	if port := os.Getenv("PROMETHEUS_PORT"); port != "" {
		cfg.PrometheusAddr = ":" + port
	}
	return cfg
}

// Provider owns the configured tracer and meter providers.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	promServer     *http.Server
}

// Setup installs the configured providers globally and returns a
// handle for shutdown. A Config selecting no exporters still succeeds
// and yields a no-op handle.
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "styled"
	}
	if cfg.TraceExporter == "" {
		cfg.TraceExporter = ExporterNone
	}
	if cfg.MetricExporter == "" {
		cfg.MetricExporter = ExporterNone
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			attribute.String("deployment.environment", environment()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("building telemetry resource: %w", err)
	}

	p := &Provider{}
	if err := p.setupTraces(ctx, cfg, res); err != nil {
		return nil, err
	}
	if err := p.setupMetrics(cfg, res); err != nil {
		p.Shutdown(ctx)
		return nil, err
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return p, nil
}

func (p *Provider) setupTraces(ctx context.Context, cfg Config, res *resource.Resource) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case ExporterNone:
		return nil
	case ExporterOTLP:
		exporter, err = otlpTraceExporter(ctx, cfg.OTLPEndpoint)
	case ExporterStdout:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return fmt.Errorf("unknown trace exporter %q", cfg.TraceExporter)
	}
	if err != nil {
		return fmt.Errorf("building %s trace exporter: %w", cfg.TraceExporter, err)
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(p.tracerProvider)
	return nil
}

func (p *Provider) setupMetrics(cfg Config, res *resource.Resource) error {
	switch cfg.MetricExporter {
	case ExporterNone:
		return nil
	case ExporterStdout:
		exporter, err := stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("building stdout metric exporter: %w", err)
		}
		p.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
				sdkmetric.WithInterval(30*time.Second))),
		)
	case ExporterPrometheus:
		reader, err := otelprom.New()
		if err != nil {
			return fmt.Errorf("building prometheus exporter: %w", err)
		}
		p.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
		)
		if cfg.PrometheusAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			p.promServer = &http.Server{Addr: cfg.PrometheusAddr, Handler: mux}
			go p.promServer.ListenAndServe()
		}
	default:
		return fmt.Errorf("unknown metric exporter %q", cfg.MetricExporter)
	}
	if p.meterProvider != nil {
		otel.SetMeterProvider(p.meterProvider)
	}
	return nil
}

// Shutdown flushes and stops every configured exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	var firstErr error
	if p.promServer != nil {
		if err := p.promServer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func otlpTraceExporter(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
	if endpoint == "" {
		endpoint = "localhost:4317"
	}
	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dialing collector %s: %w", endpoint, err)
	}
	return otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
}

func environment() string {
	if env := os.Getenv("REDLINE_ENV"); env != "" {
		return env
	}
	return "development"
}
