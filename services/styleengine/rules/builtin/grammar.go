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

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/nlp"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules"
)

// passiveVoice flags sentences whose root verb carries passive voice.
type passiveVoice struct{}

func (r *passiveVoice) ID() string                      { return "grammar.passive_voice" }
func (r *passiveVoice) Category() rules.Category        { return rules.CategoryGrammar }
func (r *passiveVoice) DefaultSeverity() rules.Severity { return rules.SeverityMedium }

func (r *passiveVoice) AppliesTo(blockType, contentType string) bool {
	return proseBlock(blockType)
}

func (r *passiveVoice) Analyze(ctx context.Context, in *rules.Input) []rules.Issue {
	var issues []rules.Issue
	for i, sent := range in.Sentences {
		in.MarkSentence(i)
		an, err := in.Toolkit.SentenceStructure(ctx, sent.Text)
		if err != nil {
			continue
		}

		aux, hasAux := rules.FirstArc(an, "auxpass")
		if !hasAux {
			continue
		}
		root, hasRoot := passiveRoot(an)
		if !hasRoot {
			continue
		}

		pattern := "auxpass"
		evidence := 0.8
		if rules.HasArc(an, "nsubjpass") {
			pattern += "+nsubjpass"
			evidence = 0.85
		}
		if rules.HasArc(an, "agent") {
			pattern += "+agent"
			evidence = 0.9
		}

		start, end := aux.Dependent.Start, root.End
		if start > end {
			start, end = root.Start, aux.Dependent.End
		}

		issues = append(issues, in.Toolkit.NewIssue(r, in, rules.IssueSpec{
			SentenceIndex: i,
			Sentence:      sent.Text,
			Start:         sent.Start + start,
			End:           sent.Start + end,
			Message:       fmt.Sprintf("passive construction %q", sent.Text[start:end]),
			Suggestions:   []string{"Name the actor as the subject and use an active verb."},
			Signal:        f(0.7),
			Evidence:      f(evidence),
			Linguistic: map[string]any{
				"dependency_pattern": pattern,
				"voice":              "passive",
				"root_verb":          root.Text,
			},
		}))
	}
	return issues
}

func passiveRoot(an *nlp.Analysis) (nlp.Token, bool) {
	for _, tok := range an.Tokens {
		if tok.Dep == "ROOT" && tok.Morph["Voice"] == "Pass" {
			return tok, true
		}
	}
	return nlp.Token{}, false
}

// beForm classifies the copulas the agreement check inspects.
var beForms = map[string]string{
	"is": "singular", "was": "singular",
	"are": "plural", "were": "plural",
}

var beFix = map[string]string{
	"is": "are", "are": "is",
	"was": "were", "were": "was",
}

// subjectVerb flags number disagreement between a noun and the copula
// that directly follows it.
type subjectVerb struct{}

func (r *subjectVerb) ID() string                      { return "grammar.subject_verb" }
func (r *subjectVerb) Category() rules.Category        { return rules.CategoryGrammar }
func (r *subjectVerb) DefaultSeverity() rules.Severity { return rules.SeverityMedium }

func (r *subjectVerb) AppliesTo(blockType, contentType string) bool {
	return proseBlock(blockType)
}

func (r *subjectVerb) Analyze(ctx context.Context, in *rules.Input) []rules.Issue {
	var issues []rules.Issue
	for i, sent := range in.Sentences {
		in.MarkSentence(i)
		an, err := in.Toolkit.SentenceStructure(ctx, sent.Text)
		if err != nil {
			continue
		}

		for t := 1; t < len(an.Tokens); t++ {
			verb := an.Tokens[t]
			verbNumber, isBe := beForms[verb.Text]
			if !isBe {
				continue
			}
			subject, ok := precedingNoun(an.Tokens, t)
			if !ok {
				continue
			}
			subjectNumber := "singular"
			if subject.Tag == "NNS" || subject.Morph["Number"] == "Plur" {
				subjectNumber = "plural"
			}
			if subjectNumber == verbNumber {
				continue
			}

			corrected := replaceSpan(sent.Text, verb.Start, verb.End, beFix[verb.Text])
			issues = append(issues, in.Toolkit.NewIssue(r, in, rules.IssueSpec{
				SentenceIndex: i,
				Sentence:      sent.Text,
				Start:         sent.Start + subject.Start,
				End:           sent.Start + verb.End,
				Message: fmt.Sprintf("%q is %s but %q is %s",
					subject.Text, subjectNumber, verb.Text, verbNumber),
				Suggestions: []string{corrected},
				Signal:      f(0.6),
				Linguistic: map[string]any{
					"subject": subject.Text,
					"verb":    verb.Text,
				},
			}))
		}
	}
	return issues
}

// precedingNoun finds the noun directly before token t, allowing one
// intervening adverb. Pronoun and wh-word subjects are skipped; the
// number heuristic is not reliable for them.
func precedingNoun(tokens []nlp.Token, t int) (nlp.Token, bool) {
	j := t - 1
	if j >= 0 && tokens[j].Pos == "ADV" {
		j--
	}
	if j < 0 {
		return nlp.Token{}, false
	}
	tok := tokens[j]
	if tok.Pos != "NOUN" {
		return nlp.Token{}, false
	}
	return tok, true
}
