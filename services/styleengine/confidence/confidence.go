// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package confidence normalizes raw rule signals onto a single calibrated
// axis so one universal threshold is meaningful across rules of very
// different reliability.
//
// Description:
//
//	Every issue a rule raises passes through the same pipeline: raw
//	signal, rule reliability, content-type modifier, optional evidence
//	blending, linguistic-anchor adjustment, feedback adjustment, floor
//	guard, clamp, threshold decision. The full arithmetic is recorded in
//	a Breakdown attached to the issue, so any score can be explained
//	after the fact.
//
//	The pipeline is a pure function of its Input: identical inputs yield
//	identical Breakdowns across runs. That purity is what makes the
//	bounded LRU cache sound.
//
// Thread Safety:
//
//	A Pipeline is immutable after construction except for its cache,
//	which is internally synchronized. All methods are safe for
//	concurrent use.
package confidence

import (
	"fmt"
	"math"
	"time"
)

// DefaultThreshold is the universal confidence threshold. Issues scoring
// below it are kept in diagnostics but hidden from user-visible results.
const DefaultThreshold = 0.35

// floorGuardMin is the minimum final confidence when both evidence and
// reliability are at least floorGuardGate.
const (
	floorGuardGate = 0.85
	floorGuardMin  = 0.75
)

// AdjustFunc returns a feedback-derived confidence adjustment for a
// (rule id, content type) pair. The pipeline clamps the returned value to
// [-MaxFeedbackAdjust, +MaxFeedbackAdjust].
type AdjustFunc func(ruleID, contentType string) float64

// MaxFeedbackAdjust bounds how far accumulated user feedback may shift a
// confidence score.
const MaxFeedbackAdjust = 0.05

// Input is one scoring request.
type Input struct {
	// Text is the sentence or block the issue was found in.
	Text string

	// Position is the byte offset of the issue within Text. Out-of-range
	// values are clamped.
	Position int

	// RuleID and Category identify the producing rule.
	RuleID   string
	Category string

	// ContentType is the document's content type (technical, procedural,
	// narrative, legal, marketing, general).
	ContentType string

	// Signal is the rule's raw signal in [0,1]; nil means 0.5.
	Signal *float64

	// Evidence is the optional corroborating-evidence score in [0,1].
	Evidence *float64

	// Threshold overrides the pipeline's universal threshold when > 0.
	Threshold float64
}

// Breakdown is the provenance record attached to every scored issue.
// Every field is always populated; EvidenceScore is null when the rule
// attached no evidence.
type Breakdown struct {
	Signal              float64  `json:"signal"`
	RuleReliability     float64  `json:"rule_reliability"`
	ContentModifier     float64  `json:"content_modifier"`
	EvidenceScore       *float64 `json:"evidence_score"`
	EvidenceWeight      float64  `json:"evidence_weight"`
	ModelWeight         float64  `json:"model_weight"`
	RawConfidence       float64  `json:"raw_confidence"`
	AnchorAdjustment    float64  `json:"anchor_adjustment"`
	FeedbackAdjustment  float64  `json:"feedback_adjustment"`
	FloorGuardTriggered bool     `json:"floor_guard_triggered"`
	FinalConfidence     float64  `json:"final_confidence"`
	UniversalThreshold  float64  `json:"universal_threshold"`
	MeetsThreshold      bool     `json:"meets_threshold"`
}

// Pipeline scores issues. Construct with New; the zero value is not
// usable.
type Pipeline struct {
	reliability map[string]float64
	modifiers   map[string]map[string]float64
	anchors     *AnchorSet
	classifier  *Classifier
	adjust      AdjustFunc
	threshold   float64
	cache       *scoreCache
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithReliability replaces the rule-reliability table.
func WithReliability(table map[string]float64) Option {
	return func(p *Pipeline) { p.reliability = table }
}

// WithModifiers replaces the content-modifier matrix
// (content type -> category -> modifier in [0.5, 1.5]).
func WithModifiers(matrix map[string]map[string]float64) Option {
	return func(p *Pipeline) { p.modifiers = matrix }
}

// WithAnchors replaces the linguistic anchor set.
func WithAnchors(set *AnchorSet) Option {
	return func(p *Pipeline) { p.anchors = set }
}

// WithAdjustFunc installs the feedback adjustment hook.
func WithAdjustFunc(fn AdjustFunc) Option {
	return func(p *Pipeline) { p.adjust = fn }
}

// WithThreshold sets the universal threshold.
func WithThreshold(t float64) Option {
	return func(p *Pipeline) {
		if t > 0 && t < 1 {
			p.threshold = t
		}
	}
}

// WithCache sizes the score cache. size <= 0 disables caching.
func WithCache(size int, ttl time.Duration) Option {
	return func(p *Pipeline) {
		if size <= 0 {
			p.cache = nil
			return
		}
		p.cache = newScoreCache(ttl, size)
	}
}

// New builds a Pipeline with the default tables, anchors, classifier, and
// a 1000-entry cache.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		reliability: DefaultReliability(),
		modifiers:   DefaultModifiers(),
		anchors:     DefaultAnchorSet(),
		classifier:  NewClassifier(),
		threshold:   DefaultThreshold,
		cache:       newScoreCache(5*time.Minute, 1000),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Threshold returns the pipeline's universal threshold.
func (p *Pipeline) Threshold() float64 { return p.threshold }

// ContentType resolves the effective content type for a document: the
// caller's override when it names a known type, otherwise one
// document-wide classification.
func (p *Pipeline) ContentType(docText, override string) string {
	if ValidContentType(override) {
		return override
	}
	return p.classifier.Classify(docText)
}

// InvalidateCache drops all cached scores. Called when any config layer
// reloads so stale tables never serve a score.
func (p *Pipeline) InvalidateCache() {
	if p.cache != nil {
		p.cache.Clear()
	}
}

// CacheStats reports hit/miss counters for the score cache.
func (p *Pipeline) CacheStats() CacheStats {
	if p.cache == nil {
		return CacheStats{}
	}
	return p.cache.Stats()
}

// Score runs the pipeline for one issue.
//
// Description:
//
//	Empty text short-circuits to a neutral 0.5. Unknown rule ids take
//	reliability 0.5, modifier 1.0, and are exempt from the floor guard.
//	Non-finite or negative signal/evidence inputs are sanitized to 0.
//	The result is cached keyed by the full input tuple.
func (p *Pipeline) Score(in Input) Breakdown {
	threshold := p.threshold
	if in.Threshold > 0 && in.Threshold < 1 {
		threshold = in.Threshold
	}

	if in.Text == "" {
		return neutralBreakdown(threshold)
	}

	key := cacheKey(in, threshold)
	if p.cache != nil {
		if bd, ok := p.cache.Get(key); ok {
			return bd
		}
	}

	bd := p.compute(in, threshold)

	if p.cache != nil {
		p.cache.Set(key, bd)
	}
	return bd
}

func (p *Pipeline) compute(in Input, threshold float64) Breakdown {
	signal := sanitizeSignal(in.Signal, 0.5)

	reliability, knownRule := p.reliability[in.RuleID]
	if !knownRule {
		reliability = 0.5
	}

	modifier := 1.0
	if knownRule {
		modifier = p.modifierFor(in.ContentType, in.Category)
	}

	var evidence *float64
	if in.Evidence != nil {
		e := sanitizeSignal(in.Evidence, 0)
		evidence = &e
	}

	evidenceWeight, modelWeight := 0.0, 1.0
	var raw float64
	if evidence == nil {
		raw = math.Min(1, signal*reliability*modifier)
	} else {
		evidenceWeight = clamp(0.2+0.55*(*evidence), 0.2, 0.7)
		modelWeight = 1 - evidenceWeight
		raw = math.Min(1, (*evidence*evidenceWeight+signal*modelWeight)*reliability*modifier)
	}

	position := in.Position
	if position < 0 {
		position = 0
	}
	if position > len(in.Text) {
		position = len(in.Text)
	}

	anchorAdj := 0.0
	if p.anchors != nil {
		anchorAdj = p.anchors.Evaluate(in.Text, position)
	}

	feedbackAdj := 0.0
	if p.adjust != nil {
		feedbackAdj = clamp(p.adjust(in.RuleID, in.ContentType),
			-MaxFeedbackAdjust, MaxFeedbackAdjust)
	}

	final := raw + anchorAdj + feedbackAdj

	guarded := false
	if knownRule && evidence != nil &&
		*evidence >= floorGuardGate && reliability >= floorGuardGate &&
		final < floorGuardMin {
		final = floorGuardMin
		guarded = true
	}

	final = clamp(final, 0, 1)

	return Breakdown{
		Signal:              signal,
		RuleReliability:     reliability,
		ContentModifier:     modifier,
		EvidenceScore:       evidence,
		EvidenceWeight:      evidenceWeight,
		ModelWeight:         modelWeight,
		RawConfidence:       raw,
		AnchorAdjustment:    anchorAdj,
		FeedbackAdjustment:  feedbackAdj,
		FloorGuardTriggered: guarded,
		FinalConfidence:     final,
		UniversalThreshold:  threshold,
		MeetsThreshold:      final >= threshold,
	}
}

// modifierFor looks up the content modifier for one content-type and
// category pair. A missing entry is neutral 1.0; rows never borrow from
// each other.
func (p *Pipeline) modifierFor(contentType, category string) float64 {
	if row, ok := p.modifiers[contentType]; ok {
		if m, ok := row[category]; ok {
			return m
		}
	}
	return 1.0
}

func neutralBreakdown(threshold float64) Breakdown {
	return Breakdown{
		Signal:             0.5,
		RuleReliability:    0.5,
		ContentModifier:    1.0,
		ModelWeight:        1.0,
		RawConfidence:      0.5,
		FinalConfidence:    0.5,
		UniversalThreshold: threshold,
		MeetsThreshold:     0.5 >= threshold,
	}
}

// sanitizeSignal maps nil to the fallback and non-finite or negative
// values to 0, clamping the rest into [0,1].
func sanitizeSignal(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	f := *v
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// cacheKey serializes the full input tuple. Floats are rendered with %g
// so equal values always produce equal keys.
func cacheKey(in Input, threshold float64) string {
	sig, ev := "nil", "nil"
	if in.Signal != nil {
		sig = fmt.Sprintf("%g", *in.Signal)
	}
	if in.Evidence != nil {
		ev = fmt.Sprintf("%g", *in.Evidence)
	}
	return fmt.Sprintf("%s|%d|%s|%s|%s|%g|%s|%s",
		in.Text, in.Position, in.RuleID, in.Category, in.ContentType,
		threshold, sig, ev)
}
