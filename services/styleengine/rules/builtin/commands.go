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

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/blocks"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules"
)

// Polite or indirect step openers and their imperative rewrites. The
// capture after the opener keeps the verb so the suggestion reads whole.
var indirectStepPatterns = []struct {
	re      *regexp.Regexp
	rewrite string
	reason  string
}{
	{
		re:      regexp.MustCompile(`(?i)^(please\s+)(\w)`),
		rewrite: "$2",
		reason:  "steps state the action; drop \"please\"",
	},
	{
		re:      regexp.MustCompile(`(?i)^(you should\s+)(\w)`),
		rewrite: "$2",
		reason:  "steps command; drop \"you should\"",
	},
	{
		re:      regexp.MustCompile(`(?i)^(you can\s+)(\w)`),
		rewrite: "$2",
		reason:  "steps command; \"you can\" reads as optional",
	},
	{
		re:      regexp.MustCompile(`(?i)^(the user should\s+)(\w)`),
		rewrite: "$2",
		reason:  "address the reader directly with an imperative",
	},
	{
		re:      regexp.MustCompile(`(?i)^(it is necessary to\s+)(\w)`),
		rewrite: "$2",
		reason:  "state the action, not its necessity",
	},
}

// imperativeMood enforces imperative step openers in list items of
// procedural content.
type imperativeMood struct{}

func (r *imperativeMood) ID() string                      { return "commands.imperative_mood" }
func (r *imperativeMood) Category() rules.Category        { return rules.CategoryCommands }
func (r *imperativeMood) DefaultSeverity() rules.Severity { return rules.SeverityMedium }

func (r *imperativeMood) AppliesTo(blockType, contentType string) bool {
	switch blocks.Type(blockType) {
	case blocks.TypeListItem, blocks.TypeOrderedListItem:
		return true
	case blocks.TypeParagraph:
		// Procedures often carry single-step instructions as paragraphs.
		return contentType == "procedural" || contentType == "procedure"
	}
	return false
}

func (r *imperativeMood) Analyze(ctx context.Context, in *rules.Input) []rules.Issue {
	var issues []rules.Issue
	for i, sent := range in.Sentences {
		in.MarkSentence(i)
		for _, p := range indirectStepPatterns {
			m := p.re.FindStringSubmatchIndex(sent.Text)
			if m == nil {
				continue
			}
			rest := sent.Text[m[2]:]
			rewritten := p.re.ReplaceAllString(sent.Text, p.rewrite)
			// The imperative verb now opens the sentence; capitalize it.
			rewritten = strings.ToUpper(rewritten[:1]) + rewritten[1:]
			issues = append(issues, in.Toolkit.NewIssue(r, in, rules.IssueSpec{
				SentenceIndex: i,
				Sentence:      sent.Text,
				Start:         sent.Start + m[2],
				End:           sent.Start + m[3],
				Message:       fmt.Sprintf("indirect step opener %q: %s", strings.TrimSpace(sent.Text[m[2]:m[3]]), p.reason),
				Suggestions:   []string{rewritten},
				Signal:        f(0.75),
				Evidence:      f(0.85),
				Linguistic: map[string]any{
					"mood":   "indicative",
					"opener": strings.TrimSpace(sent.Text[m[2]:m[3]]),
					"rest":   rest,
				},
			}))
			break
		}
	}
	return issues
}
