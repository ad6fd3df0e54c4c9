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
	"regexp"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules"
)

var spaceRunPattern = regexp.MustCompile(` {2,}`)

// doubleSpace flags multiple consecutive spaces between words. Leading
// indentation and trailing runs (Markdown line breaks) are left alone.
type doubleSpace struct{}

func (r *doubleSpace) ID() string                      { return "punctuation.double_space" }
func (r *doubleSpace) Category() rules.Category        { return rules.CategoryPunctuation }
func (r *doubleSpace) DefaultSeverity() rules.Severity { return rules.SeverityLow }

func (r *doubleSpace) AppliesTo(blockType, contentType string) bool {
	return proseBlock(blockType)
}

func (r *doubleSpace) Analyze(ctx context.Context, in *rules.Input) []rules.Issue {
	var issues []rules.Issue
	text := in.Text
	// Runs between sentences (after a period) sit outside sentence
	// spans, so the scan covers the whole block.
	for _, m := range spaceRunPattern.FindAllStringIndex(text, -1) {
		if m[0] == 0 || m[1] >= len(text) {
			continue
		}
		if prev := text[m[0]-1]; prev == '\n' || prev == '\t' {
			continue
		}
		if next := text[m[1]]; next == '\n' || next == '\t' {
			continue
		}
		si, sent := sentenceAt(in.Sentences, m[0]-1)
		in.MarkSentence(si)
		issues = append(issues, in.Toolkit.NewIssue(r, in, rules.IssueSpec{
			SentenceIndex: si,
			Sentence:      sent.Text,
			Start:         m[0],
			End:           m[1],
			Message:       "multiple consecutive spaces",
			Suggestions:   []string{" "},
			Signal:        f(0.9),
			Evidence:      f(0.95),
		}))
	}
	return issues
}

// A list item, then a final item joined with "and"/"or" without the
// preceding comma: "a, b and c".
var serialCommaPattern = regexp.MustCompile(`,\s+[^,.;:!?]+?(\s+(?:and|or)\s+)\w`)

// serialComma flags a missing comma before the final conjunction of a
// three-or-more item list.
type serialComma struct{}

func (r *serialComma) ID() string                      { return "punctuation.serial_comma" }
func (r *serialComma) Category() rules.Category        { return rules.CategoryPunctuation }
func (r *serialComma) DefaultSeverity() rules.Severity { return rules.SeverityLow }

func (r *serialComma) AppliesTo(blockType, contentType string) bool {
	return proseBlock(blockType)
}

func (r *serialComma) Analyze(ctx context.Context, in *rules.Input) []rules.Issue {
	var issues []rules.Issue
	for i, sent := range in.Sentences {
		in.MarkSentence(i)
		for _, m := range serialCommaPattern.FindAllStringSubmatchIndex(sent.Text, -1) {
			conjStart := m[2]
			corrected := replaceSpan(sent.Text, conjStart, conjStart, ",")
			issues = append(issues, in.Toolkit.NewIssue(r, in, rules.IssueSpec{
				SentenceIndex: i,
				Sentence:      sent.Text,
				Start:         sent.Start + conjStart,
				End:           sent.Start + m[3],
				Message:       "missing serial comma before the final list item",
				Suggestions:   []string{corrected},
				Signal:        f(0.55),
			}))
		}
	}
	return issues
}
