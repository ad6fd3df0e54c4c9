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
	"regexp"
	"strings"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules"
)

// contractionExpansions covers the contractions formal documentation
// spells out. Possessive apostrophes never match: every key contains a
// known contraction suffix.
var contractionExpansions = map[string]string{
	"can't":     "cannot",
	"won't":     "will not",
	"don't":     "do not",
	"doesn't":   "does not",
	"didn't":    "did not",
	"isn't":     "is not",
	"aren't":    "are not",
	"wasn't":    "was not",
	"weren't":   "were not",
	"shouldn't": "should not",
	"couldn't":  "could not",
	"wouldn't":  "would not",
	"it's":      "it is",
	"that's":    "that is",
	"there's":   "there is",
	"you're":    "you are",
	"you'll":    "you will",
	"you've":    "you have",
	"we're":     "we are",
	"we'll":     "we will",
	"let's":     "let us",
}

var contractionPattern = regexp.MustCompile(`(?i)\b[a-z]+['\x{2019}][a-z]+\b`)

// contractions flags contracted forms in formal content types. Marketing
// and narrative copy keeps its contractions.
type contractions struct{}

func (r *contractions) ID() string                      { return "tone.contractions" }
func (r *contractions) Category() rules.Category        { return rules.CategoryTone }
func (r *contractions) DefaultSeverity() rules.Severity { return rules.SeverityLow }

func (r *contractions) AppliesTo(blockType, contentType string) bool {
	if !proseBlock(blockType) {
		return false
	}
	switch contentType {
	case "marketing", "narrative":
		return false
	}
	return true
}

func (r *contractions) Analyze(ctx context.Context, in *rules.Input) []rules.Issue {
	var issues []rules.Issue
	for i, sent := range in.Sentences {
		in.MarkSentence(i)
		for _, m := range contractionPattern.FindAllStringIndex(sent.Text, -1) {
			word := sent.Text[m[0]:m[1]]
			normalized := strings.ToLower(strings.ReplaceAll(word, "’", "'"))
			expansion, known := contractionExpansions[normalized]
			if !known {
				continue
			}
			corrected := replaceSpan(sent.Text, m[0], m[1], matchCase(word, expansion))
			issues = append(issues, in.Toolkit.NewIssue(r, in, rules.IssueSpec{
				SentenceIndex: i,
				Sentence:      sent.Text,
				Start:         sent.Start + m[0],
				End:           sent.Start + m[1],
				Message:       fmt.Sprintf("contraction %q; formal prose spells it out", word),
				Suggestions:   []string{corrected},
				Signal:        f(0.8),
				Evidence:      f(0.9),
				Linguistic:    map[string]any{"expansion": expansion},
			}))
		}
	}
	return issues
}

var firstPersonPattern = regexp.MustCompile(`(?i)\b(we|our|us|let's)\b`)

// firstPersonPlural flags "we/our/us" in instructional prose, which
// should address the reader as "you" or use the imperative.
type firstPersonPlural struct{}

func (r *firstPersonPlural) ID() string                      { return "tone.first_person_plural" }
func (r *firstPersonPlural) Category() rules.Category        { return rules.CategoryTone }
func (r *firstPersonPlural) DefaultSeverity() rules.Severity { return rules.SeverityLow }

func (r *firstPersonPlural) AppliesTo(blockType, contentType string) bool {
	if !proseBlock(blockType) {
		return false
	}
	switch contentType {
	case "technical", "procedural", "procedure":
		return true
	}
	return false
}

func (r *firstPersonPlural) Analyze(ctx context.Context, in *rules.Input) []rules.Issue {
	var issues []rules.Issue
	for i, sent := range in.Sentences {
		in.MarkSentence(i)
		for _, m := range firstPersonPattern.FindAllStringIndex(sent.Text, -1) {
			word := sent.Text[m[0]:m[1]]
			issues = append(issues, in.Toolkit.NewIssue(r, in, rules.IssueSpec{
				SentenceIndex: i,
				Sentence:      sent.Text,
				Start:         sent.Start + m[0],
				End:           sent.Start + m[1],
				Message:       fmt.Sprintf("first person %q; address the reader directly", word),
				Suggestions:   []string{"Use \"you\" or the imperative mood."},
				Signal:        f(0.55),
				Linguistic:    map[string]any{"person": "first_plural"},
			}))
		}
	}
	return issues
}
