// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package confidence

import (
	"math"
	"regexp"
	"sort"
)

// Default caps for combined anchor contributions.
const (
	DefaultMaxBoost   = 0.30
	DefaultMaxPenalty = 0.35
)

// decayFactor and decayFloor control diminishing returns when several
// anchors match the same context: contributions are folded largest first,
// each subsequent one scaled by another 0.8 down to a floor of 0.2.
const (
	decayFactor = 0.8
	decayFloor  = 0.2
)

// Anchor is one named context pattern. A positive Weight boosts
// confidence when the pattern appears near the issue; a negative Weight
// is a penalty. Window is the number of bytes inspected on each side of
// the issue position.
type Anchor struct {
	Name    string
	Pattern *regexp.Regexp
	Weight  float64
	Window  int
}

// AnchorSet evaluates a group of anchors against the context around an
// issue. Immutable after construction.
type AnchorSet struct {
	anchors    []Anchor
	maxBoost   float64
	maxPenalty float64
}

// NewAnchorSet builds a set with the given caps. Non-positive caps fall
// back to the defaults.
func NewAnchorSet(anchors []Anchor, maxBoost, maxPenalty float64) *AnchorSet {
	if maxBoost <= 0 {
		maxBoost = DefaultMaxBoost
	}
	if maxPenalty <= 0 {
		maxPenalty = DefaultMaxPenalty
	}
	return &AnchorSet{anchors: anchors, maxBoost: maxBoost, maxPenalty: maxPenalty}
}

// DefaultAnchorSet returns the built-in anchor groups. Config may replace
// them wholesale via linguistic_anchors.yaml.
func DefaultAnchorSet() *AnchorSet {
	return NewAnchorSet([]Anchor{
		{
			Name:    "technical_context",
			Pattern: regexp.MustCompile(`(?i)\b(api|cli|sdk|server|cluster|endpoint|deploy|config|kubectl|runtime)\b`),
			Weight:  0.08,
			Window:  60,
		},
		{
			Name:    "imperative_context",
			Pattern: regexp.MustCompile(`(?i)\b(click|run|type|enter|install|configure|select|choose)\b`),
			Weight:  0.06,
			Window:  40,
		},
		{
			Name:    "definition_context",
			Pattern: regexp.MustCompile(`(?i)\b(is defined as|refers to|means that)\b`),
			Weight:  0.05,
			Window:  60,
		},
		{
			Name:    "quoted_text",
			Pattern: regexp.MustCompile(`"[^"]{3,}"`),
			Weight:  -0.10,
			Window:  50,
		},
		{
			Name:    "inline_code",
			Pattern: regexp.MustCompile("`[^`]+`"),
			Weight:  -0.15,
			Window:  30,
		},
		{
			Name:    "example_context",
			Pattern: regexp.MustCompile(`(?i)\b(for example|for instance|e\.g\.|such as)\b`),
			Weight:  -0.08,
			Window:  60,
		},
		{
			Name:    "negation_context",
			Pattern: regexp.MustCompile(`(?i)\b(not|never|no longer|avoid)\b`),
			Weight:  -0.05,
			Window:  30,
		},
	}, DefaultMaxBoost, DefaultMaxPenalty)
}

// Evaluate returns the net confidence adjustment for an issue at the
// given byte position: folded boosts minus folded penalties, each side
// capped. The result is deterministic for identical inputs.
func (s *AnchorSet) Evaluate(text string, position int) float64 {
	if len(s.anchors) == 0 || text == "" {
		return 0
	}
	if position < 0 {
		position = 0
	}
	if position > len(text) {
		position = len(text)
	}

	var boosts, penalties []float64
	for _, a := range s.anchors {
		lo := position - a.Window
		if lo < 0 {
			lo = 0
		}
		hi := position + a.Window
		if hi > len(text) {
			hi = len(text)
		}
		if !a.Pattern.MatchString(text[lo:hi]) {
			continue
		}
		if a.Weight >= 0 {
			boosts = append(boosts, a.Weight)
		} else {
			penalties = append(penalties, -a.Weight)
		}
	}

	boost := math.Min(fold(boosts), s.maxBoost)
	penalty := math.Min(fold(penalties), s.maxPenalty)
	return boost - penalty
}

// fold combines contributions with diminishing returns: sorted largest
// first, each subsequent contribution scaled by a further decayFactor,
// never below decayFloor.
func fold(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))

	total := 0.0
	factor := 1.0
	for _, v := range values {
		total += v * factor
		factor *= decayFactor
		if factor < decayFloor {
			factor = decayFloor
		}
	}
	return total
}
