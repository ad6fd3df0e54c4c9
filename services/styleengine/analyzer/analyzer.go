// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analyzer orchestrates a full style analysis: structural parse,
// content-type classification, rule execution block by block, confidence
// filtering, statistics, and progress events.
//
// Description:
//
//	Blocks are analyzed in parallel by a bounded worker pool; rules run
//	sequentially within a block because they share the block's memoized
//	sentence parses. Results are assembled positionally so the output
//	order is deterministic regardless of completion order.
//
// Thread Safety: an Analyzer is safe for concurrent Analyze calls.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/blocks"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/config"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/confidence"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/events"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/nlp"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules"
)

// DefaultBlockTimeout is the per-block soft timeout. On expiry the
// block's remaining rules are skipped and a slow_block diagnostic is
// attached.
const DefaultBlockTimeout = 10 * time.Second

// Diagnostic is a non-fatal observation attached to a result.
type Diagnostic struct {
	Kind    string `json:"kind"`
	BlockID string `json:"block_id,omitempty"`
	RuleID  string `json:"rule_id,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Request is one analysis request.
type Request struct {
	// Content is the raw document text.
	Content string

	// FormatHint is the structural format hint; empty means auto.
	FormatHint blocks.Format

	// ContentType overrides classification when it names a valid type.
	ContentType string

	// ModuleType opts into modular compliance checks when it is one of
	// concept, procedure, or reference.
	ModuleType string

	// ThresholdOverride replaces the universal confidence threshold for
	// this analysis when in (0, 1).
	ThresholdOverride float64

	// SessionID routes progress events. Empty suppresses emission.
	SessionID string

	// Domain is a freeform domain hint passed through to rules.
	Domain string

	// Options holds rule-local options keyed by rule id.
	Options map[string]map[string]any
}

// Result is one completed analysis.
type Result struct {
	Document blocks.Document `json:"document"`
	Blocks   []blocks.Block  `json:"structural_blocks"`

	// Issues is the flat list, ordered by block position then
	// (sentence index, start offset, rule id).
	Issues []rules.Issue `json:"issues"`

	// ByBlock and ByCategory group the same issues two ways.
	ByBlock    map[string][]rules.Issue         `json:"issues_by_block"`
	ByCategory map[rules.Category][]rules.Issue `json:"issues_by_category"`

	// Suppressed counts issues scored below the threshold.
	Suppressed int `json:"suppressed_count"`

	Statistics Statistics  `json:"statistics"`
	Compliance *Compliance `json:"modular_compliance,omitempty"`

	ContentType    string        `json:"content_type"`
	Threshold      float64       `json:"threshold"`
	ProcessingTime time.Duration `json:"processing_time"`
	Fingerprint    string        `json:"config_fingerprint,omitempty"`
	Degraded       bool          `json:"degraded,omitempty"`
	Diagnostics    []Diagnostic  `json:"diagnostics,omitempty"`
}

// Analyzer runs analyses. Construct with New.
type Analyzer struct {
	registry *rules.Registry
	pipeline *confidence.Pipeline
	toolkit  nlp.Toolkit

	sink         events.Sink
	log          *slog.Logger
	workers      int
	blockTimeout time.Duration
	budget       rules.Budget
	fingerprint  func() string
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithSink routes progress events to a fabric.
func WithSink(sink events.Sink) AnalyzerOption {
	return func(a *Analyzer) { a.sink = sink }
}

// WithLogger sets the analyzer's logger.
func WithLogger(log *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) { a.log = log }
}

// WithWorkers bounds block-level parallelism. Non-positive keeps the
// default (MAX_ANALYSIS_WORKERS or NumCPU).
func WithWorkers(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithBlockTimeout changes the per-block soft timeout.
func WithBlockTimeout(d time.Duration) AnalyzerOption {
	return func(a *Analyzer) {
		if d > 0 {
			a.blockTimeout = d
		}
	}
}

// WithBudget sets the per-rule execution budget.
func WithBudget(b rules.Budget) AnalyzerOption {
	return func(a *Analyzer) { a.budget = b }
}

// WithFingerprint supplies the config fingerprint carried on results.
func WithFingerprint(fn func() string) AnalyzerOption {
	return func(a *Analyzer) { a.fingerprint = fn }
}

// New builds an Analyzer over a registry, a confidence pipeline, and a
// linguistic toolkit.
func New(registry *rules.Registry, pipeline *confidence.Pipeline, toolkit nlp.Toolkit, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		registry:     registry,
		pipeline:     pipeline,
		toolkit:      toolkit,
		log:          slog.Default(),
		workers:      config.AnalysisWorkers(runtime.NumCPU()),
		blockTimeout: DefaultBlockTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// blockResult is one block's contribution, assembled positionally.
type blockResult struct {
	issues      []rules.Issue
	suppressed  int
	diagnostics []Diagnostic
	stats       blockStats
}

// Analyze runs one full analysis.
//
// Description:
//
//	A rule error never aborts its block and a block error never aborts
//	the document; only document-level cancellation or a structural
//	catastrophe returns an error, after emitting analysis_failed.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()

	doc := blocks.NewDocument(req.Content, req.FormatHint)
	blks := blocks.Parse(doc.Content, doc.Format)

	a.emit(req.SessionID, events.TypeAnalysisStart, events.ProgressData{
		Step: "analysis", Status: "started", Progress: 10,
	})

	contentType := a.pipeline.ContentType(doc.Content, req.ContentType)

	tk, degraded := a.resolveToolkit(ctx)

	rctx := rules.Context{
		ContentType:       contentType,
		Domain:            req.Domain,
		ThresholdOverride: req.ThresholdOverride,
		Options:           req.Options,
	}

	results := make([]blockResult, len(blks))
	var progressMu sync.Mutex
	var done, lastPercent int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, blk := range blks {
		if gctx.Err() != nil {
			break
		}
		i, blk := i, blk
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.analyzeBlock(gctx, tk, blk, rctx, degraded)

			progressMu.Lock()
			done++
			percent := 40 + 30*done/len(blks)
			if percent > lastPercent {
				lastPercent = percent
				a.emit(req.SessionID, events.TypeProgressUpdate, events.ProgressData{
					Step: "blocks", Status: "processing", Progress: percent,
					Detail: fmt.Sprintf("%d/%d blocks", done, len(blks)),
				})
			}
			progressMu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		a.emit(req.SessionID, events.TypeAnalysisFailed, events.ProgressData{
			Step: "analysis", Status: "failed", Detail: err.Error(),
		})
		return nil, fmt.Errorf("analyzing document: %w", err)
	}

	res := &Result{
		Document:    doc,
		Blocks:      blks,
		ByBlock:     make(map[string][]rules.Issue),
		ByCategory:  make(map[rules.Category][]rules.Issue),
		ContentType: contentType,
		Threshold:   a.effectiveThreshold(req.ThresholdOverride),
		Degraded:    degraded,
	}
	var agg blockStats
	for i, br := range results {
		if len(br.issues) > 0 {
			res.Issues = append(res.Issues, br.issues...)
			res.ByBlock[blks[i].ID] = br.issues
			for _, is := range br.issues {
				res.ByCategory[is.Category] = append(res.ByCategory[is.Category], is)
			}
		}
		res.Suppressed += br.suppressed
		res.Diagnostics = append(res.Diagnostics, br.diagnostics...)
		agg.add(br.stats)
	}
	res.Statistics = agg.finish(countParagraphs(blks))
	if mt := strings.ToLower(strings.TrimSpace(req.ModuleType)); mt != "" {
		res.Compliance = CheckCompliance(mt, blks)
	}
	if a.fingerprint != nil {
		res.Fingerprint = a.fingerprint()
	}
	res.ProcessingTime = time.Since(started)

	a.emit(req.SessionID, events.TypeAnalysisComplete, events.ProgressData{
		Step: "analysis", Status: "complete", Progress: 100,
		Detail: fmt.Sprintf("%d issues in %d blocks", len(res.Issues), len(blks)),
	})
	return res, nil
}

// analyzeBlock runs every applicable rule over one block. Rules share
// the block's toolkit so sentence parses are computed once.
func (a *Analyzer) analyzeBlock(ctx context.Context, tk nlp.Toolkit, blk blocks.Block, rctx rules.Context, degraded bool) blockResult {
	var br blockResult

	text := blk.Body
	sentences := nlp.SplitSentences(text)
	if blk.IsProse() {
		br.stats = collectBlockStats(ctx, tk, text, sentences, degraded)
	}

	applicable := a.registry.RulesFor(string(blk.Type), rctx.ContentType)
	if len(applicable) == 0 {
		return br
	}

	bctx, cancel := context.WithTimeout(ctx, a.blockTimeout)
	defer cancel()

	rctx.BlockType = string(blk.Type)
	in := &rules.Input{
		Block:     blk,
		Text:      text,
		Origin:    bodyOrigin(blk),
		Sentences: sentences,
		Toolkit:   rules.NewToolkit(tk, a.pipeline),
		Context:   rctx,
	}

	var issues []rules.Issue
	for _, rule := range applicable {
		if bctx.Err() != nil {
			br.diagnostics = append(br.diagnostics, Diagnostic{
				Kind: "slow_block", BlockID: blk.ID,
				Detail: fmt.Sprintf("budget exhausted before %s", rule.ID()),
			})
			break
		}
		rep := rules.Run(bctx, rule, in, a.budget, a.log)
		if rep.Slow {
			br.diagnostics = append(br.diagnostics, Diagnostic{
				Kind: "slow_rule", BlockID: blk.ID, RuleID: rule.ID(),
				Detail: rep.Duration.String(),
			})
		}
		if rep.Truncated {
			br.diagnostics = append(br.diagnostics, Diagnostic{
				Kind: "truncated", BlockID: blk.ID, RuleID: rule.ID(),
			})
		}
		for _, is := range rep.Issues {
			if is.Provenance.MeetsThreshold {
				issues = append(issues, is)
			} else {
				br.suppressed++
			}
		}
	}
	rules.SortIssues(issues)
	br.issues = issues
	return br
}

// resolveToolkit probes the configured toolkit once; on failure the
// analysis degrades to the in-process heuristic toolkit.
func (a *Analyzer) resolveToolkit(ctx context.Context) (nlp.Toolkit, bool) {
	probe, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := a.toolkit.Analyze(probe, "probe."); err != nil {
		a.log.Warn("linguistic toolkit unavailable, degrading to heuristic", "error", err)
		return nlp.NewHeuristic(), true
	}
	return a.toolkit, false
}

// effectiveThreshold mirrors the pipeline's override resolution.
func (a *Analyzer) effectiveThreshold(override float64) float64 {
	if override > 0 && override < 1 {
		return override
	}
	return a.pipeline.Threshold()
}

func (a *Analyzer) emit(sessionID string, typ events.Type, data any) {
	if a.sink == nil || sessionID == "" {
		return
	}
	a.sink.Emit(sessionID, typ, data)
}

// bodyOrigin locates a block's body within the document so issue
// offsets are document-absolute.
func bodyOrigin(blk blocks.Block) int {
	if blk.Body == "" || blk.Body == blk.Text {
		return blk.Start
	}
	if off := strings.Index(blk.Text, blk.Body); off >= 0 {
		return blk.Start + off
	}
	return blk.Start
}

// countParagraphs counts paragraph blocks, treating a document whose
// only prose is list items or headings as a single paragraph.
func countParagraphs(blks []blocks.Block) int {
	n := 0
	prose := false
	for _, b := range blks {
		if b.Type == blocks.TypeParagraph {
			n++
		}
		if b.IsProse() {
			prose = true
		}
	}
	if n == 0 && prose {
		return 1
	}
	return n
}
