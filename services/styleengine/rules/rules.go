// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rules defines the style-rule contract, the registry that
// dispatches rules to blocks, and the shared toolkit every rule analyzes
// with.
//
// Description:
//
//	A rule is a small value implementing Rule: it names itself, declares
//	a category and default severity, states which block and content
//	types it applies to, and turns one block into zero or more Issues.
//	Rules never talk to the confidence pipeline directly; they build
//	issues through Toolkit.NewIssue, which scores each issue exactly
//	once and attaches the full provenance record.
//
//	Category groupings are registry indexes, not type hierarchies. The
//	registry hands the analyzer a deterministic rule order: filtered by
//	each rule's own applicability predicate, sorted by category then
//	rule id.
//
// Thread Safety:
//
//	Rules must be stateless and safe for concurrent use; one rule value
//	serves every block of every analysis. Registry is safe for
//	concurrent use. Input values are confined to one block's analysis
//	and must not be shared across goroutines.
package rules

import (
	"context"
	"sort"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/blocks"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/confidence"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/nlp"
)

// Category is the coarse rule grouping used for station applicability
// and analytics.
type Category string

// Built-in rule categories.
const (
	CategoryReferences  Category = "references"
	CategoryGrammar     Category = "grammar"
	CategoryPunctuation Category = "punctuation"
	CategoryWordUsage   Category = "word_usage"
	CategoryTone        Category = "tone"
	CategoryCommands    Category = "commands"
	CategoryClaims      Category = "claims"
	CategoryPronouns    Category = "pronouns"
	CategoryStructure   Category = "structure"
	CategoryCodeBlocks  Category = "code_blocks"
)

// Categories lists every built-in category in sorted order.
func Categories() []Category {
	return []Category{
		CategoryClaims, CategoryCodeBlocks, CategoryCommands,
		CategoryGrammar, CategoryPronouns, CategoryPunctuation,
		CategoryReferences, CategoryStructure, CategoryTone,
		CategoryWordUsage,
	}
}

// Severity grades how strongly an issue should be surfaced.
type Severity string

// Issue severities.
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ValidSeverity reports whether s names a known severity.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Issue is one detected style problem. Immutable after creation: rules
// build issues through Toolkit.NewIssue and never touch them again.
type Issue struct {
	RuleID        string               `json:"rule_id"`
	Category      Category             `json:"category"`
	SentenceIndex int                  `json:"sentence_index"`
	Sentence      string               `json:"sentence"`
	Start         int                  `json:"start"`
	End           int                  `json:"end"`
	Message       string               `json:"message"`
	Severity      Severity             `json:"severity"`
	Suggestions   []string             `json:"suggestions"`
	Confidence    float64              `json:"confidence"`
	Provenance    confidence.Breakdown `json:"confidence_provenance"`
	ContentType   string               `json:"content_type"`
	Linguistic    map[string]any       `json:"linguistic_analysis,omitempty"`
}

// Context carries the per-analysis settings every rule sees.
type Context struct {
	// ContentType is the resolved document content type.
	ContentType string

	// BlockType is the type of the block under analysis.
	BlockType string

	// Domain is a freeform domain hint from the caller.
	Domain string

	// ThresholdOverride replaces the universal confidence threshold for
	// this analysis when in (0, 1).
	ThresholdOverride float64

	// Options holds rule-local options keyed by rule id.
	Options map[string]map[string]any
}

// Option returns a rule-local option value, or nil.
func (c Context) Option(ruleID, key string) any {
	if c.Options == nil {
		return nil
	}
	return c.Options[ruleID][key]
}

// Input is everything one rule gets for one block.
type Input struct {
	// Block is the structural block under analysis.
	Block blocks.Block

	// Text is the prose the rule analyzes (the block body).
	Text string

	// Origin is the document byte offset of Text[0]. Toolkit.NewIssue
	// adds it to block-relative offsets so issues carry document
	// positions.
	Origin int

	// Sentences are Text's sentences, split once per block.
	Sentences []nlp.Sentence

	// Toolkit provides memoized parses and issue construction.
	Toolkit *Toolkit

	// Context is the shared per-analysis context.
	Context Context

	cursor int
}

// MarkSentence records the sentence a rule is currently working on.
// Crash reports for a recovered panic include the last marked index.
func (in *Input) MarkSentence(i int) { in.cursor = i }

// LastSentence returns the most recently marked sentence index.
func (in *Input) LastSentence() int { return in.cursor }

// Rule is one style rule.
//
// Implementations must be deterministic with respect to (input, context,
// toolkit version) and must not retain the Input after Analyze returns.
type Rule interface {
	// ID returns the stable rule id, e.g. "grammar.passive_voice".
	ID() string

	// Category returns the rule's category.
	Category() Category

	// DefaultSeverity is used when an issue does not set its own.
	DefaultSeverity() Severity

	// AppliesTo reports whether the rule runs for a block type and
	// content type combination.
	AppliesTo(blockType, contentType string) bool

	// Analyze inspects one block and returns its issues.
	Analyze(ctx context.Context, in *Input) []Issue
}

// SortIssues orders issues by (sentence index, start offset, rule id),
// the order every analysis result presents them in.
func SortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.SentenceIndex != b.SentenceIndex {
			return a.SentenceIndex < b.SentenceIndex
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.RuleID < b.RuleID
	})
}
