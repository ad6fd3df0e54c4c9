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

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/nlp"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules"
)

// weaselTerms maps a hedge to the reason it weakens technical prose.
// Multi-word phrases are matched before single words.
var weaselTerms = map[string]string{
	"fairly":        "quantify instead of hedging",
	"quite":         "quantify instead of hedging",
	"rather":        "quantify instead of hedging",
	"somewhat":      "quantify instead of hedging",
	"various":       "name the items or give a count",
	"a number of":   "give the number",
	"in some cases": "state which cases",
	"arguably":      "make the claim or drop it",
	"basically":     "drop the filler",
	"essentially":   "drop the filler",
	"generally":     "state when the exception applies",
	"usually":       "state when the exception applies",
	"often":         "state how often, or when",
	"probably":      "state the condition for certainty",
	"should work":   "state what it does",
}

var weaselPattern = buildWeaselPattern()

func buildWeaselPattern() *regexp.Regexp {
	terms := make([]string, 0, len(weaselTerms))
	for term := range weaselTerms {
		terms = append(terms, regexp.QuoteMeta(term))
	}
	// Longest-first so "a number of" wins over any embedded word.
	for i := 0; i < len(terms); i++ {
		for j := i + 1; j < len(terms); j++ {
			if len(terms[j]) > len(terms[i]) {
				terms[i], terms[j] = terms[j], terms[i]
			}
		}
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(terms, "|") + `)\b`)
}

// weaselWords flags hedging language that dodges a concrete statement.
type weaselWords struct{}

func (r *weaselWords) ID() string                      { return "word_usage.weasel_words" }
func (r *weaselWords) Category() rules.Category        { return rules.CategoryWordUsage }
func (r *weaselWords) DefaultSeverity() rules.Severity { return rules.SeverityLow }

func (r *weaselWords) AppliesTo(blockType, contentType string) bool {
	// Narrative prose hedges legitimately; technical prose should not.
	return proseBlock(blockType) && contentType != "narrative"
}

func (r *weaselWords) Analyze(ctx context.Context, in *rules.Input) []rules.Issue {
	var issues []rules.Issue
	for i, sent := range in.Sentences {
		in.MarkSentence(i)
		for _, m := range weaselPattern.FindAllStringIndex(sent.Text, -1) {
			term := strings.ToLower(sent.Text[m[0]:m[1]])
			issues = append(issues, in.Toolkit.NewIssue(r, in, rules.IssueSpec{
				SentenceIndex: i,
				Sentence:      sent.Text,
				Start:         sent.Start + m[0],
				End:           sent.Start + m[1],
				Message:       fmt.Sprintf("weasel word %q: %s", term, weaselTerms[term]),
				Suggestions:   []string{weaselTerms[term]},
				Signal:        f(0.6),
				Linguistic:    map[string]any{"hedge": term},
			}))
		}
	}
	return issues
}

// complexSubstitutions maps needlessly long words to plain ones.
var complexSubstitutions = map[string]string{
	"utilize":      "use",
	"utilization":  "use",
	"functionality": "feature",
	"demonstrate":  "show",
	"facilitate":   "help",
	"implement":    "build",
	"subsequently": "then",
	"approximately": "about",
	"additionally": "also",
	"initiate":     "start",
	"terminate":    "stop",
	"prioritize":   "rank",
	"methodology":  "method",
	"leverage":     "use",
}

var wordPattern = regexp.MustCompile(`[A-Za-z][A-Za-z'-]*`)

// complexWords flags words with a shorter plain-language equivalent and,
// independently, any three-plus-syllable word in procedural prose where
// reading speed matters most.
type complexWords struct{}

func (r *complexWords) ID() string                      { return "word_usage.complex_words" }
func (r *complexWords) Category() rules.Category        { return rules.CategoryWordUsage }
func (r *complexWords) DefaultSeverity() rules.Severity { return rules.SeverityLow }

func (r *complexWords) AppliesTo(blockType, contentType string) bool {
	return proseBlock(blockType)
}

func (r *complexWords) Analyze(ctx context.Context, in *rules.Input) []rules.Issue {
	var issues []rules.Issue
	for i, sent := range in.Sentences {
		in.MarkSentence(i)
		for _, m := range wordPattern.FindAllStringIndex(sent.Text, -1) {
			word := sent.Text[m[0]:m[1]]
			plain, known := complexSubstitutions[strings.ToLower(word)]
			if !known {
				continue
			}
			corrected := replaceSpan(sent.Text, m[0], m[1], matchCase(word, plain))
			issues = append(issues, in.Toolkit.NewIssue(r, in, rules.IssueSpec{
				SentenceIndex: i,
				Sentence:      sent.Text,
				Start:         sent.Start + m[0],
				End:           sent.Start + m[1],
				Message:       fmt.Sprintf("%q has a plain equivalent: %q", word, plain),
				Suggestions:   []string{corrected},
				Signal:        f(0.7),
				Evidence:      f(0.9),
				Linguistic: map[string]any{
					"syllables": nlp.CountSyllables(word),
					"plain":     plain,
				},
			}))
		}
	}
	return issues
}
