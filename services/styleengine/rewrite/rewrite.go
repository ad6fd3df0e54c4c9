// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rewrite

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/blocks"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/confidence"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/events"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/nlp"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/transform"
)

// Default job timeouts.
const (
	DefaultStationTimeout = 30 * time.Second
	DefaultJobTimeout     = 120 * time.Second
)

// Checker re-analyzes a block's current text so stations downstream of
// an edit see fresh issues with offsets relative to that text.
type Checker interface {
	Check(ctx context.Context, blk blocks.Block, text, contentType string, threshold float64) []rules.Issue
}

// RegistryChecker runs the rule registry directly over one block.
type RegistryChecker struct {
	registry *rules.Registry
	pipeline *confidence.Pipeline
	toolkit  nlp.Toolkit
}

// NewRegistryChecker builds the standard checker.
func NewRegistryChecker(registry *rules.Registry, pipeline *confidence.Pipeline, toolkit nlp.Toolkit) *RegistryChecker {
	return &RegistryChecker{registry: registry, pipeline: pipeline, toolkit: toolkit}
}

func (c *RegistryChecker) Check(ctx context.Context, blk blocks.Block, text, contentType string, threshold float64) []rules.Issue {
	blk.Body = text
	in := &rules.Input{
		Block:     blk,
		Text:      text,
		Origin:    0,
		Sentences: nlp.SplitSentences(text),
		Toolkit:   rules.NewToolkit(c.toolkit, c.pipeline),
		Context: rules.Context{
			ContentType:       contentType,
			BlockType:         string(blk.Type),
			ThresholdOverride: threshold,
		},
	}

	var issues []rules.Issue
	for _, rule := range c.registry.RulesFor(string(blk.Type), contentType) {
		if ctx.Err() != nil {
			break
		}
		rep := rules.Run(ctx, rule, in, rules.Budget{}, slog.Default())
		for _, is := range rep.Issues {
			if is.Provenance.MeetsThreshold {
				issues = append(issues, is)
			}
		}
	}
	rules.SortIssues(issues)
	return issues
}

// Request is one block rewrite job.
type Request struct {
	// Block is the block being rewritten; its Body is the initial text
	// unless Text overrides it.
	Block blocks.Block

	// Text is the block text to rewrite. Empty means Block.Body.
	Text string

	// Issues are pre-computed issues for the block, with document-
	// absolute offsets starting at Origin. Nil means the job checks the
	// text itself.
	Issues []rules.Issue
	Origin int

	// ContentType is the document classification.
	ContentType string

	// Threshold is the confidence threshold captured at job start. Zero
	// means the pipeline default.
	Threshold float64

	// SecondPass opts into a second pass when the first pass's output
	// still has above-threshold issues in the same categories.
	SecondPass bool

	// SessionID routes progress events. Empty suppresses emission.
	SessionID string
}

// Result is one finished rewrite job.
type Result struct {
	BlockID         string             `json:"block_id"`
	Text            string             `json:"rewritten_text"`
	ErrorsFixed     int                `json:"errors_fixed"`
	InitialIssues   int                `json:"initial_issues"`
	RemainingIssues int                `json:"remaining_issues"`
	Improvements    []transform.Delta  `json:"improvements"`
	Stations        []string           `json:"applicable_stations"`
	Passes          int                `json:"passes"`
	Durations       map[string]float64 `json:"station_durations_ms"`
	Diff            string             `json:"diff,omitempty"`
	ProcessingTime  time.Duration      `json:"processing_time"`
}

// Rewriter runs assembly-line rewrite jobs.
//
// Thread Safety: safe for concurrent jobs; each job gets its own
// tracker.
type Rewriter struct {
	line        *StationLine
	transformer transform.Transformer
	checker     Checker
	sink        events.Sink
	log         *slog.Logger

	stationTimeout time.Duration
	jobTimeout     time.Duration
}

// RewriterOption configures a Rewriter.
type RewriterOption func(*Rewriter)

// WithSink routes job events to a fabric.
func WithSink(sink events.Sink) RewriterOption {
	return func(r *Rewriter) { r.sink = sink }
}

// WithLogger sets the rewriter's logger.
func WithLogger(log *slog.Logger) RewriterOption {
	return func(r *Rewriter) { r.log = log }
}

// WithTimeouts overrides the station and job timeouts. Non-positive
// values keep the defaults.
func WithTimeouts(station, job time.Duration) RewriterOption {
	return func(r *Rewriter) {
		if station > 0 {
			r.stationTimeout = station
		}
		if job > 0 {
			r.jobTimeout = job
		}
	}
}

// NewRewriter builds a Rewriter over a station line, a transformation
// backend, and a checker.
func NewRewriter(line *StationLine, transformer transform.Transformer, checker Checker, opts ...RewriterOption) *Rewriter {
	r := &Rewriter{
		line:           line,
		transformer:    transformer,
		checker:        checker,
		log:            slog.Default(),
		stationTimeout: DefaultStationTimeout,
		jobTimeout:     DefaultJobTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rewrite runs one job: applicable stations in canonical order, one or
// two passes, per-station timeout 30 s, job timeout 120 s.
func (r *Rewriter) Rewrite(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()

	text := req.Text
	if text == "" {
		text = req.Block.Body
	}

	jobCtx, cancel := context.WithTimeout(ctx, r.jobTimeout)
	defer cancel()

	issues := normalizeIssues(req.Issues, req.Origin)
	if issues == nil {
		issues = r.checker.Check(jobCtx, req.Block, text, req.ContentType, req.Threshold)
	}
	initialCount := len(issues)

	stations := r.line.Applicable(issues)
	passes := 1
	if req.SecondPass {
		passes = 2
	}
	tracker := NewTracker(r.sink, req.SessionID, req.Block.ID, passes)

	r.emit(req.SessionID, events.TypeBlockProcessingStart, events.StationProgressData{
		BlockID: req.Block.ID, Status: "started",
		Message: fmt.Sprintf("%d issues, %d stations", len(issues), len(stations)),
	})

	res := &Result{
		BlockID:       req.Block.ID,
		Text:          text,
		InitialIssues: initialCount,
		Stations:      stationIDs(stations),
		Durations:     make(map[string]float64),
	}
	if len(stations) == 0 {
		res.ProcessingTime = time.Since(started)
		r.emit(req.SessionID, events.TypeBlockProcessingComplete, events.StationProgressData{
			BlockID: req.Block.ID, Status: "complete", Progress: 100,
			Message: "nothing to rewrite",
		})
		return res, nil
	}

	firstPassCategories := categorySet(stations)
	original := text

	for pass := 1; pass <= passes; pass++ {
		if pass > 1 {
			issues = r.checker.Check(jobCtx, req.Block, text, req.ContentType, req.Threshold)
			if !anyInCategories(issues, firstPassCategories) {
				tracker.SkipRemainingPasses(pass - 1)
				break
			}
			stations = r.line.Applicable(issues)
			if len(stations) == 0 {
				tracker.SkipRemainingPasses(pass - 1)
				break
			}
		}
		res.Passes = pass
		tracker.StartPass(pass, stations)

		for _, st := range stations {
			if jobCtx.Err() != nil {
				return r.cancelled(req, res, tracker, started, jobCtx.Err())
			}

			claimed := st.Claim(issues)
			tracker.StartStation(st.ID, st.Name, len(claimed))
			stationStart := time.Now()

			sctx, scancel := context.WithTimeout(jobCtx, r.stationTimeout)
			out, err := r.transformer.Transform(sctx, transform.Instruction{
				Station: st.ID,
				Goal:    st.Goal,
				Issues:  toRefs(claimed),
			}, text, constraintsFor(req.Block))
			scancel()
			res.Durations[st.ID] += float64(time.Since(stationStart).Milliseconds())

			if err != nil {
				if jobCtx.Err() != nil {
					tracker.RecordError(err, st.ID)
					return r.cancelled(req, res, tracker, started, jobCtx.Err())
				}
				r.log.Warn("station failed, keeping text",
					"block_id", req.Block.ID, "station", st.ID, "error", err)
				tracker.RecordError(err, st.ID)
				continue
			}

			before := len(issues)
			text = out.Text
			res.Improvements = append(res.Improvements, out.Deltas...)
			issues = r.checker.Check(jobCtx, req.Block, text, req.ContentType, req.Threshold)
			fixed := before - len(issues)
			if fixed < 0 {
				fixed = 0
			}
			tracker.CompleteStation(st.ID, fixed, previewOf(text))
		}
		tracker.CompletePass(pass)
	}

	res.Text = text
	res.RemainingIssues = len(issues)
	res.ErrorsFixed = initialCount - len(issues)
	if res.ErrorsFixed < 0 {
		res.ErrorsFixed = 0
	}
	res.Diff = RenderDiff(req.Block.ID, original, text)
	res.ProcessingTime = time.Since(started)

	r.emit(req.SessionID, events.TypeBlockProcessingComplete, events.StationProgressData{
		BlockID: req.Block.ID, Status: "complete", Progress: 100,
		ErrorsFixed: res.ErrorsFixed, PreviewText: previewOf(text),
	})
	return res, nil
}

// cancelled finalizes a cancelled or timed-out job: the tracker moves
// to cancelled and the fabric receives a terminal failure event.
func (r *Rewriter) cancelled(req Request, res *Result, tracker *Tracker, started time.Time, cause error) (*Result, error) {
	tracker.Cancel(cause.Error())
	res.ProcessingTime = time.Since(started)
	r.emit(req.SessionID, events.TypeBlockProcessingError, events.StationProgressData{
		BlockID: req.Block.ID, Status: string(StateCancelled), Message: cause.Error(),
	})
	return res, fmt.Errorf("rewrite job for %s: %w", req.Block.ID, cause)
}

func (r *Rewriter) emit(sessionID string, typ events.Type, data any) {
	if r.sink == nil || sessionID == "" {
		return
	}
	r.sink.Emit(sessionID, typ, data)
}

// normalizeIssues shifts document-absolute offsets to text-relative.
func normalizeIssues(issues []rules.Issue, origin int) []rules.Issue {
	if issues == nil {
		return nil
	}
	out := make([]rules.Issue, len(issues))
	copy(out, issues)
	if origin != 0 {
		for i := range out {
			out[i].Start -= origin
			out[i].End -= origin
		}
	}
	return out
}

func toRefs(issues []rules.Issue) []transform.IssueRef {
	refs := make([]transform.IssueRef, len(issues))
	for i, is := range issues {
		refs[i] = transform.IssueRef{
			RuleID:      is.RuleID,
			Message:     is.Message,
			Start:       is.Start,
			End:         is.End,
			Sentence:    is.Sentence,
			Suggestions: is.Suggestions,
		}
	}
	return refs
}

// constraintsFor derives the block-semantics constraints every station
// must preserve.
func constraintsFor(blk blocks.Block) transform.Constraints {
	return transform.Constraints{
		PreserveCodeSpans:    true,
		PreserveHeadingLevel: blk.Type == blocks.TypeHeading,
	}
}

func categorySet(stations []Station) map[rules.Category]bool {
	set := make(map[rules.Category]bool)
	for _, s := range stations {
		for _, c := range s.Categories {
			set[c] = true
		}
	}
	return set
}

func anyInCategories(issues []rules.Issue, set map[rules.Category]bool) bool {
	for _, is := range issues {
		if set[is.Category] {
			return true
		}
	}
	return false
}

func stationIDs(stations []Station) []string {
	ids := make([]string, len(stations))
	for i, s := range stations {
		ids[i] = s.ID
	}
	return ids
}

func previewOf(text string) string {
	const max = 120
	if len(text) <= max {
		return text
	}
	return text[:max] + "…"
}
