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

var superlativePattern = regexp.MustCompile(
	`(?i)\b(best|fastest|easiest|simplest|most powerful|most popular|` +
		`industry[- ]leading|world[- ]class|state[- ]of[- ]the[- ]art|` +
		`unparalleled|revolutionary|cutting[- ]edge|seamless(?:ly)?)\b`)

// Evidence markers that excuse a superlative in the same sentence: a
// citation, a measurement, or an explicit comparison basis.
var claimEvidencePattern = regexp.MustCompile(
	`(?i)(\d+(?:\.\d+)?\s*(%|ms|s|x|times)|\baccording to\b|\bbenchmark|\[\d+\]|\bmeasured\b|\bcompared (to|with)\b)`)

// unsupportedSuperlative flags superlative claims that carry no
// measurement, citation, or comparison in the same sentence.
type unsupportedSuperlative struct{}

func (r *unsupportedSuperlative) ID() string               { return "claims.unsupported_superlative" }
func (r *unsupportedSuperlative) Category() rules.Category { return rules.CategoryClaims }
func (r *unsupportedSuperlative) DefaultSeverity() rules.Severity {
	return rules.SeverityMedium
}

func (r *unsupportedSuperlative) AppliesTo(blockType, contentType string) bool {
	return proseBlock(blockType)
}

func (r *unsupportedSuperlative) Analyze(ctx context.Context, in *rules.Input) []rules.Issue {
	var issues []rules.Issue
	for i, sent := range in.Sentences {
		in.MarkSentence(i)
		if claimEvidencePattern.MatchString(sent.Text) {
			continue
		}
		for _, m := range superlativePattern.FindAllStringIndex(sent.Text, -1) {
			term := sent.Text[m[0]:m[1]]
			issues = append(issues, in.Toolkit.NewIssue(r, in, rules.IssueSpec{
				SentenceIndex: i,
				Sentence:      sent.Text,
				Start:         sent.Start + m[0],
				End:           sent.Start + m[1],
				Message:       fmt.Sprintf("unsupported superlative %q", strings.ToLower(term)),
				Suggestions: []string{
					"Back the claim with a measurement or citation, or state the concrete capability instead.",
				},
				Signal: f(0.65),
				Linguistic: map[string]any{
					"claim_term": strings.ToLower(term),
				},
			}))
		}
	}
	return issues
}
