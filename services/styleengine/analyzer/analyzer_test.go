// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/blocks"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/confidence"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/events"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/nlp"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules/builtin"
)

func newAnalyzer(t *testing.T, opts ...AnalyzerOption) *Analyzer {
	t.Helper()
	reg := rules.NewRegistry()
	if err := builtin.Register(reg, builtin.Settings{}); err != nil {
		t.Fatalf("registering rules: %v", err)
	}
	pipe := confidence.New(confidence.WithCache(0, 0))
	return New(reg, pipe, nlp.NewHeuristic(), opts...)
}

const sampleDoc = `# Deployment Guide

The configuration was updated by the operator. We think this is
basically the best deployment tool available.

1. You should restart the server.
2. Run the status check.

` + "```go\nfunc main() {}\n```\n"

func TestAnalyze_EndToEnd(t *testing.T) {
	rec := events.NewRecorder()
	a := newAnalyzer(t, WithSink(rec), WithWorkers(2))

	res, err := a.Analyze(context.Background(), Request{
		Content:    sampleDoc,
		FormatHint: blocks.FormatMarkdown,
		SessionID:  "s1",
	})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	if len(res.Blocks) == 0 {
		t.Fatal("expected structural blocks")
	}
	if len(res.Issues) == 0 {
		t.Fatal("expected issues in the sample document")
	}
	if res.ContentType == "" {
		t.Error("expected a content type classification")
	}
	if res.ProcessingTime <= 0 {
		t.Error("expected a positive processing time")
	}
	if res.Statistics.WordCount == 0 || res.Statistics.SentenceCount == 0 {
		t.Errorf("statistics missing: %+v", res.Statistics)
	}

	t.Run("events bracket the analysis", func(t *testing.T) {
		if got := len(rec.ByType(events.TypeAnalysisStart)); got != 1 {
			t.Errorf("expected 1 analysis_start, got %d", got)
		}
		if got := len(rec.ByType(events.TypeAnalysisComplete)); got != 1 {
			t.Errorf("expected 1 analysis_complete, got %d", got)
		}
	})

	t.Run("progress stays in band and monotonic", func(t *testing.T) {
		last := 10
		for _, ev := range rec.ByType(events.TypeProgressUpdate) {
			p := ev.Data.(events.ProgressData).Progress
			if p < 40 || p > 70 {
				t.Errorf("block-phase progress %d outside [40, 70]", p)
			}
			if p < last {
				t.Errorf("progress regressed: %d after %d", p, last)
			}
			last = p
		}
	})
}

func TestAnalyze_IssuesSortedWithinBlock(t *testing.T) {
	a := newAnalyzer(t)
	res, err := a.Analyze(context.Background(), Request{Content: sampleDoc, FormatHint: blocks.FormatMarkdown})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	for id, issues := range res.ByBlock {
		for i := 1; i < len(issues); i++ {
			a, b := issues[i-1], issues[i]
			if a.SentenceIndex > b.SentenceIndex ||
				(a.SentenceIndex == b.SentenceIndex && a.Start > b.Start) {
				t.Errorf("block %s issues out of order at %d", id, i)
			}
		}
	}
}

func TestAnalyze_CodeBlocksSkipProseRules(t *testing.T) {
	a := newAnalyzer(t)
	res, err := a.Analyze(context.Background(), Request{
		Content:    "```go\nx := basically.Best()\n```\n",
		FormatHint: blocks.FormatMarkdown,
	})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	for _, is := range res.Issues {
		if is.Category != rules.CategoryCodeBlocks {
			t.Errorf("prose rule %s ran inside a code block", is.RuleID)
		}
	}
}

func TestAnalyze_DeterministicAcrossWorkerCounts(t *testing.T) {
	serial := newAnalyzer(t, WithWorkers(1))
	parallel := newAnalyzer(t, WithWorkers(8))

	a, err := serial.Analyze(context.Background(), Request{Content: sampleDoc, FormatHint: blocks.FormatMarkdown})
	if err != nil {
		t.Fatalf("serial analyze failed: %v", err)
	}
	b, err := parallel.Analyze(context.Background(), Request{Content: sampleDoc, FormatHint: blocks.FormatMarkdown})
	if err != nil {
		t.Fatalf("parallel analyze failed: %v", err)
	}

	if len(a.Issues) != len(b.Issues) {
		t.Fatalf("issue counts differ: %d vs %d", len(a.Issues), len(b.Issues))
	}
	for i := range a.Issues {
		if a.Issues[i].RuleID != b.Issues[i].RuleID || a.Issues[i].Start != b.Issues[i].Start {
			t.Errorf("issue %d differs across worker counts", i)
		}
	}
}

func TestAnalyze_ThresholdOverrideSuppresses(t *testing.T) {
	a := newAnalyzer(t)
	strict, err := a.Analyze(context.Background(), Request{
		Content:           sampleDoc,
		FormatHint:        blocks.FormatMarkdown,
		ThresholdOverride: 0.99,
	})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if strict.Threshold != 0.99 {
		t.Errorf("result threshold = %g, want 0.99", strict.Threshold)
	}
	if len(strict.Issues) != 0 && strict.Suppressed == 0 {
		t.Error("a 0.99 threshold should suppress issues")
	}
}

func TestAnalyze_CancelledContext(t *testing.T) {
	a := newAnalyzer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Analyze(ctx, Request{Content: sampleDoc, FormatHint: blocks.FormatMarkdown})
	if err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}

func TestAnalyze_EmptyDocument(t *testing.T) {
	a := newAnalyzer(t)
	res, err := a.Analyze(context.Background(), Request{Content: ""})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if len(res.Blocks) != 0 || len(res.Issues) != 0 {
		t.Error("empty input should yield an empty result")
	}
	if res.Statistics.WordCount != 0 {
		t.Error("empty input should have zero statistics")
	}
}

func TestAnalyze_ContentTypeOverride(t *testing.T) {
	a := newAnalyzer(t)
	res, err := a.Analyze(context.Background(), Request{
		Content:     "We think you'll love it.",
		ContentType: confidence.ContentMarketing,
	})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if res.ContentType != confidence.ContentMarketing {
		t.Errorf("content type = %q, want marketing", res.ContentType)
	}
}
