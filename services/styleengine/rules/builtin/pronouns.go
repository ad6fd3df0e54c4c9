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

// "This" or "these" opening a sentence with a verb right behind it has no
// noun to anchor the reference. "This setting controls..." is fine;
// "This controls..." is not.
var bareThisPattern = regexp.MustCompile(`^(This|These|That|Those)\s+(\w+)`)

// Common verbs and auxiliaries that betray a bare demonstrative. A noun
// in second position clears the pronoun.
var demonstrativeVerbs = map[string]bool{
	"is": true, "are": true, "was": true, "were": true,
	"means": true, "allows": true, "enables": true, "causes": true,
	"makes": true, "lets": true, "ensures": true, "happens": true,
	"works": true, "requires": true, "results": true, "can": true,
	"will": true, "may": true, "might": true, "should": true,
	"controls": true, "affects": true, "prevents": true, "helps": true,
}

// ambiguousThis flags sentence-initial demonstrative pronouns with no
// anchoring noun.
type ambiguousThis struct{}

func (r *ambiguousThis) ID() string                      { return "pronouns.ambiguous_this" }
func (r *ambiguousThis) Category() rules.Category        { return rules.CategoryPronouns }
func (r *ambiguousThis) DefaultSeverity() rules.Severity { return rules.SeverityMedium }

func (r *ambiguousThis) AppliesTo(blockType, contentType string) bool {
	return proseBlock(blockType)
}

func (r *ambiguousThis) Analyze(ctx context.Context, in *rules.Input) []rules.Issue {
	var issues []rules.Issue
	for i, sent := range in.Sentences {
		in.MarkSentence(i)
		m := bareThisPattern.FindStringSubmatchIndex(sent.Text)
		if m == nil {
			continue
		}
		next := sent.Text[m[4]:m[5]]
		if !demonstrativeVerbs[next] {
			continue
		}
		pronoun := sent.Text[m[2]:m[3]]
		issues = append(issues, in.Toolkit.NewIssue(r, in, rules.IssueSpec{
			SentenceIndex: i,
			Sentence:      sent.Text,
			Start:         sent.Start + m[2],
			End:           sent.Start + m[3],
			Message:       "ambiguous \"" + pronoun + "\": name what it refers to",
			Suggestions: []string{
				"Follow \"" + pronoun + "\" with the noun it refers to, e.g. \"" + pronoun + " setting\".",
			},
			Signal:   f(0.6),
			Evidence: f(0.8),
			Linguistic: map[string]any{
				"pronoun":        pronoun,
				"following_verb": next,
			},
		}))
	}
	return issues
}
