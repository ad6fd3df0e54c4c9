// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/confidence"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/nlp"
)

// Toolkit is the shared helper surface handed to every rule during one
// analysis. It memoizes sentence parses for the whole analysis and owns
// the single path by which issues are scored.
//
// Thread Safety: safe for concurrent use; blocks analyzed in parallel
// share one Toolkit.
type Toolkit struct {
	nlp    nlp.Toolkit
	scorer *confidence.Pipeline

	mu     sync.RWMutex
	parsed map[string]*nlp.Analysis
	group  singleflight.Group
}

// NewToolkit builds the per-analysis toolkit. Both arguments are
// required.
func NewToolkit(toolkit nlp.Toolkit, scorer *confidence.Pipeline) *Toolkit {
	return &Toolkit{
		nlp:    toolkit,
		scorer: scorer,
		parsed: make(map[string]*nlp.Analysis),
	}
}

// SentenceStructure returns the linguistic analysis of one sentence,
// parsing it at most once per analysis. The returned value is shared
// across rules; callers must not mutate it.
func (t *Toolkit) SentenceStructure(ctx context.Context, sentence string) (*nlp.Analysis, error) {
	t.mu.RLock()
	an, ok := t.parsed[sentence]
	t.mu.RUnlock()
	if ok {
		return an, nil
	}

	v, err, _ := t.group.Do(sentence, func() (any, error) {
		parsed, err := t.nlp.Analyze(ctx, sentence)
		if err != nil {
			return nil, err
		}
		t.mu.Lock()
		t.parsed[sentence] = parsed
		t.mu.Unlock()
		return parsed, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*nlp.Analysis), nil
}

// ParsedSentences reports how many distinct sentences have been parsed.
func (t *Toolkit) ParsedSentences() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.parsed)
}

// IssueSpec is the raw material for one issue. Offsets are relative to
// Input.Text; NewIssue translates them to document positions.
type IssueSpec struct {
	SentenceIndex int
	Sentence      string
	Start         int
	End           int
	Message       string
	Suggestions   []string

	// Severity overrides the rule's default when set.
	Severity Severity

	// Signal is the rule's raw signal in [0,1]; nil means 0.5.
	Signal *float64

	// Evidence is attached only when the rule has strong corroboration,
	// e.g. a dependency pattern that exactly matches a known
	// construction.
	Evidence *float64

	// Linguistic is the opaque analysis bag surfaced to UI and rewrite.
	Linguistic map[string]any
}

// NewIssue builds a scored issue. The confidence pipeline runs exactly
// once per issue, here.
func (t *Toolkit) NewIssue(rule Rule, in *Input, spec IssueSpec) Issue {
	severity := spec.Severity
	if severity == "" {
		severity = rule.DefaultSeverity()
	}

	bd := t.scorer.Score(confidence.Input{
		Text:        in.Text,
		Position:    spec.Start,
		RuleID:      rule.ID(),
		Category:    string(rule.Category()),
		ContentType: in.Context.ContentType,
		Signal:      spec.Signal,
		Evidence:    spec.Evidence,
		Threshold:   in.Context.ThresholdOverride,
	})

	return Issue{
		RuleID:        rule.ID(),
		Category:      rule.Category(),
		SentenceIndex: spec.SentenceIndex,
		Sentence:      spec.Sentence,
		Start:         in.Origin + spec.Start,
		End:           in.Origin + spec.End,
		Message:       spec.Message,
		Severity:      severity,
		Suggestions:   spec.Suggestions,
		Confidence:    bd.FinalConfidence,
		Provenance:    bd,
		ContentType:   in.Context.ContentType,
		Linguistic:    spec.Linguistic,
	}
}

// Arc is one labelled dependency edge within a parsed sentence.
type Arc struct {
	Label          string
	Dependent      nlp.Token
	Head           nlp.Token
	DependentIndex int
	HeadIndex      int
}

// ArcsOf lists the dependency arcs of a parsed sentence in token order.
func ArcsOf(an *nlp.Analysis) []Arc {
	if an == nil {
		return nil
	}
	arcs := make([]Arc, 0, len(an.Tokens))
	for i, tok := range an.Tokens {
		head := tok
		if tok.Head >= 0 && tok.Head < len(an.Tokens) {
			head = an.Tokens[tok.Head]
		}
		arcs = append(arcs, Arc{
			Label:          tok.Dep,
			Dependent:      tok,
			Head:           head,
			DependentIndex: i,
			HeadIndex:      tok.Head,
		})
	}
	return arcs
}

// FirstArc returns the first arc carrying the label.
func FirstArc(an *nlp.Analysis, label string) (Arc, bool) {
	for _, arc := range ArcsOf(an) {
		if arc.Label == label {
			return arc, true
		}
	}
	return Arc{}, false
}

// HasArc reports whether any arc carries the label.
func HasArc(an *nlp.Analysis, label string) bool {
	_, ok := FirstArc(an, label)
	return ok
}

// TokensWithPOS returns the tokens whose coarse POS matches any of the
// given tags, in sentence order.
func TokensWithPOS(an *nlp.Analysis, pos ...string) []nlp.Token {
	if an == nil {
		return nil
	}
	var out []nlp.Token
	for _, tok := range an.Tokens {
		for _, p := range pos {
			if tok.Pos == p {
				out = append(out, tok)
				break
			}
		}
	}
	return out
}

// MorphBag folds every token's morphological features into one
// feature -> distinct values bag, in token order.
func MorphBag(an *nlp.Analysis) map[string][]string {
	if an == nil {
		return nil
	}
	bag := make(map[string][]string)
	for _, tok := range an.Tokens {
		for feature, value := range tok.Morph {
			vals := bag[feature]
			seen := false
			for _, v := range vals {
				if v == value {
					seen = true
					break
				}
			}
			if !seen {
				bag[feature] = append(vals, value)
			}
		}
	}
	return bag
}
