// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/blocks"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules"
)

// Length limits. Overridable per analysis through rule-local options
// ("max_words" / "max_sentences").
const (
	defaultMaxSentenceWords    = 30
	defaultMaxParagraphSents   = 8
	severeSentenceWordsFactor  = 2
)

func intOption(in *rules.Input, ruleID, key string, fallback int) int {
	switch v := in.Context.Option(ruleID, key).(type) {
	case int:
		if v > 0 {
			return v
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	}
	return fallback
}

// longSentence flags sentences over the word limit. Doubly-long
// sentences escalate to high severity.
type longSentence struct{}

func (r *longSentence) ID() string                      { return "structure.long_sentence" }
func (r *longSentence) Category() rules.Category        { return rules.CategoryStructure }
func (r *longSentence) DefaultSeverity() rules.Severity { return rules.SeverityLow }

func (r *longSentence) AppliesTo(blockType, contentType string) bool {
	return blocks.Type(blockType) == blocks.TypeParagraph ||
		blocks.Type(blockType) == blocks.TypeBlockquote
}

func (r *longSentence) Analyze(ctx context.Context, in *rules.Input) []rules.Issue {
	limit := intOption(in, r.ID(), "max_words", defaultMaxSentenceWords)

	var issues []rules.Issue
	for i, sent := range in.Sentences {
		in.MarkSentence(i)
		words := len(strings.Fields(sent.Text))
		if words <= limit {
			continue
		}
		severity := rules.SeverityLow
		if words > limit*severeSentenceWordsFactor {
			severity = rules.SeverityHigh
		}
		issues = append(issues, in.Toolkit.NewIssue(r, in, rules.IssueSpec{
			SentenceIndex: i,
			Sentence:      sent.Text,
			Start:         sent.Start,
			End:           sent.End,
			Message:       fmt.Sprintf("sentence has %d words (limit %d)", words, limit),
			Suggestions:   []string{"Split at a conjunction or break out a subordinate clause."},
			Severity:      severity,
			Signal:        f(lengthSignal(words, limit)),
			Linguistic:    map[string]any{"word_count": words},
		}))
	}
	return issues
}

// lengthSignal grows with the overshoot, saturating at 1.
func lengthSignal(count, limit int) float64 {
	s := 0.5 + 0.5*float64(count-limit)/float64(limit)
	if s > 1 {
		s = 1
	}
	return s
}

// longParagraph flags paragraphs with too many sentences. One issue per
// block, anchored on the first sentence past the limit.
type longParagraph struct{}

func (r *longParagraph) ID() string                      { return "structure.long_paragraph" }
func (r *longParagraph) Category() rules.Category        { return rules.CategoryStructure }
func (r *longParagraph) DefaultSeverity() rules.Severity { return rules.SeverityLow }

func (r *longParagraph) AppliesTo(blockType, contentType string) bool {
	return blocks.Type(blockType) == blocks.TypeParagraph
}

func (r *longParagraph) Analyze(ctx context.Context, in *rules.Input) []rules.Issue {
	limit := intOption(in, r.ID(), "max_sentences", defaultMaxParagraphSents)
	if len(in.Sentences) <= limit {
		return nil
	}

	over := in.Sentences[limit]
	in.MarkSentence(limit)
	return []rules.Issue{in.Toolkit.NewIssue(r, in, rules.IssueSpec{
		SentenceIndex: limit,
		Sentence:      over.Text,
		Start:         over.Start,
		End:           over.End,
		Message:       fmt.Sprintf("paragraph has %d sentences (limit %d)", len(in.Sentences), limit),
		Suggestions:   []string{"Split the paragraph at its second topic."},
		Signal:        f(lengthSignal(len(in.Sentences), limit)),
		Linguistic:    map[string]any{"sentence_count": len(in.Sentences)},
	})}
}
