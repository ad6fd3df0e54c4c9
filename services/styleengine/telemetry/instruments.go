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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/RedlineAI/RedlineFOSS/services/styleengine"

// Instruments are the engine-level counters and histograms. They record
// through the globally installed meter provider, so a process without a
// metric exporter pays only a no-op call.
type Instruments struct {
	analysesTotal    metric.Int64Counter
	analysisDuration metric.Float64Histogram
	issuesReported   metric.Int64Counter
	rewritesTotal    metric.Int64Counter
	rewriteDuration  metric.Float64Histogram
	errorsFixed      metric.Int64Counter
	feedbackTotal    metric.Int64Counter
}

var (
	instrumentsOnce sync.Once
	instruments     *Instruments
)

// EngineInstruments returns the process-wide instrument set.
func EngineInstruments() *Instruments {
	instrumentsOnce.Do(func() {
		meter := otel.Meter(meterName)
		ins := &Instruments{}

		ins.analysesTotal, _ = meter.Int64Counter("styleengine.analyses.total",
			metric.WithDescription("Completed document analyses."))
		ins.analysisDuration, _ = meter.Float64Histogram("styleengine.analysis.duration",
			metric.WithDescription("Analysis wall time."),
			metric.WithUnit("s"))
		ins.issuesReported, _ = meter.Int64Counter("styleengine.issues.reported",
			metric.WithDescription("Issues surfaced above the confidence threshold."))
		ins.rewritesTotal, _ = meter.Int64Counter("styleengine.rewrites.total",
			metric.WithDescription("Completed block rewrite jobs."))
		ins.rewriteDuration, _ = meter.Float64Histogram("styleengine.rewrite.duration",
			metric.WithDescription("Rewrite job wall time."),
			metric.WithUnit("s"))
		ins.errorsFixed, _ = meter.Int64Counter("styleengine.rewrite.errors_fixed",
			metric.WithDescription("Issues resolved by rewrite jobs."))
		ins.feedbackTotal, _ = meter.Int64Counter("styleengine.feedback.total",
			metric.WithDescription("Stored feedback submissions."))

		instruments = ins
	})
	return instruments
}

// RecordAnalysis records one finished analysis.
func (i *Instruments) RecordAnalysis(ctx context.Context, contentType string, issues int, d time.Duration, failed bool) {
	attrs := metric.WithAttributes(
		attribute.String("content_type", contentType),
		attribute.Bool("failed", failed),
	)
	i.analysesTotal.Add(ctx, 1, attrs)
	i.analysisDuration.Record(ctx, d.Seconds(), attrs)
	if !failed {
		i.issuesReported.Add(ctx, int64(issues),
			metric.WithAttributes(attribute.String("content_type", contentType)))
	}
}

// RecordRewrite records one finished rewrite job.
func (i *Instruments) RecordRewrite(ctx context.Context, errorsFixed int, d time.Duration, failed bool) {
	attrs := metric.WithAttributes(attribute.Bool("failed", failed))
	i.rewritesTotal.Add(ctx, 1, attrs)
	i.rewriteDuration.Record(ctx, d.Seconds(), attrs)
	if errorsFixed > 0 {
		i.errorsFixed.Add(ctx, int64(errorsFixed))
	}
}

// RecordFeedback records one stored submission.
func (i *Instruments) RecordFeedback(ctx context.Context, kind string) {
	i.feedbackTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("feedback_kind", kind)))
}
