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
	"testing"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/blocks"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/confidence"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/nlp"
)

type countingToolkit struct {
	mu    sync.Mutex
	calls int
}

func (c *countingToolkit) Analyze(ctx context.Context, text string) (*nlp.Analysis, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return &nlp.Analysis{
		Sentences: []nlp.Sentence{{Text: text, End: len(text)}},
		Tokens:    []nlp.Token{{Text: text, Pos: "NOUN", Dep: "ROOT"}},
	}, nil
}

func (c *countingToolkit) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestToolkit_SentenceStructureMemoized(t *testing.T) {
	counting := &countingToolkit{}
	tk := NewToolkit(counting, confidence.New(confidence.WithCache(0, 0)))

	ctx := context.Background()
	first, err := tk.SentenceStructure(ctx, "The server restarted.")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	second, err := tk.SentenceStructure(ctx, "The server restarted.")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if first != second {
		t.Error("expected memoized parse to return the same analysis")
	}
	if counting.count() != 1 {
		t.Errorf("expected 1 underlying parse, got %d", counting.count())
	}

	if _, err := tk.SentenceStructure(ctx, "A different sentence."); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if counting.count() != 2 {
		t.Errorf("expected 2 underlying parses, got %d", counting.count())
	}
	if tk.ParsedSentences() != 2 {
		t.Errorf("expected 2 memoized sentences, got %d", tk.ParsedSentences())
	}
}

func TestToolkit_NewIssue(t *testing.T) {
	tk := NewToolkit(&countingToolkit{}, confidence.New(confidence.WithCache(0, 0)))
	rule := &testRule{id: "grammar.passive_voice", category: CategoryGrammar, severity: SeverityMedium}

	in := &Input{
		Block:  blocks.Block{ID: "block-3", Type: blocks.TypeParagraph, Start: 100},
		Text:   "The file was deployed by the admin.",
		Origin: 100,
		Context: Context{
			ContentType: confidence.ContentTechnical,
			BlockType:   string(blocks.TypeParagraph),
		},
	}

	signal := 0.7
	issue := tk.NewIssue(rule, in, IssueSpec{
		SentenceIndex: 0,
		Sentence:      in.Text,
		Start:         9,
		End:           21,
		Message:       "passive construction",
		Suggestions:   []string{"The admin deployed the file."},
		Signal:        &signal,
		Linguistic:    map[string]any{"dependency_pattern": "nsubjpass+auxpass"},
	})

	if issue.RuleID != "grammar.passive_voice" || issue.Category != CategoryGrammar {
		t.Errorf("unexpected identity: %s/%s", issue.RuleID, issue.Category)
	}
	if issue.Severity != SeverityMedium {
		t.Errorf("expected default severity medium, got %s", issue.Severity)
	}
	if issue.Start != 109 || issue.End != 121 {
		t.Errorf("expected document offsets 109/121, got %d/%d", issue.Start, issue.End)
	}
	if issue.Confidence != issue.Provenance.FinalConfidence {
		t.Errorf("confidence %g disagrees with provenance %g",
			issue.Confidence, issue.Provenance.FinalConfidence)
	}
	if issue.ContentType != confidence.ContentTechnical {
		t.Errorf("expected content type propagated, got %q", issue.ContentType)
	}
	if issue.Provenance.Signal != 0.7 {
		t.Errorf("expected signal 0.7 in provenance, got %g", issue.Provenance.Signal)
	}
}

func TestToolkit_NewIssueSeverityOverride(t *testing.T) {
	tk := NewToolkit(&countingToolkit{}, confidence.New(confidence.WithCache(0, 0)))
	rule := &testRule{id: "tone.contractions", category: CategoryTone, severity: SeverityLow}

	in := &Input{Text: "Don't do that.", Context: Context{ContentType: confidence.ContentGeneral}}
	issue := tk.NewIssue(rule, in, IssueSpec{Severity: SeverityHigh, Message: "contraction"})

	if issue.Severity != SeverityHigh {
		t.Errorf("expected override severity high, got %s", issue.Severity)
	}
}

func TestSortIssues(t *testing.T) {
	issues := []Issue{
		{RuleID: "b", SentenceIndex: 1, Start: 5},
		{RuleID: "a", SentenceIndex: 0, Start: 9},
		{RuleID: "b", SentenceIndex: 0, Start: 2},
		{RuleID: "a", SentenceIndex: 0, Start: 2},
	}

	SortIssues(issues)

	want := []struct {
		rule  string
		sent  int
		start int
	}{
		{"a", 0, 2}, {"b", 0, 2}, {"a", 0, 9}, {"b", 1, 5},
	}
	for i, w := range want {
		got := issues[i]
		if got.RuleID != w.rule || got.SentenceIndex != w.sent || got.Start != w.start {
			t.Errorf("position %d: expected %s/%d/%d, got %s/%d/%d",
				i, w.rule, w.sent, w.start, got.RuleID, got.SentenceIndex, got.Start)
		}
	}
}

func TestArcsHelpers(t *testing.T) {
	an := &nlp.Analysis{Tokens: []nlp.Token{
		{Text: "file", Pos: "NOUN", Dep: "nsubjpass", Head: 2},
		{Text: "was", Pos: "AUX", Dep: "auxpass", Head: 2},
		{Text: "deployed", Pos: "VERB", Dep: "ROOT", Head: 2,
			Morph: nlp.Morph{"Voice": "Pass", "Tense": "Past"}},
	}}

	arcs := ArcsOf(an)
	if len(arcs) != 3 {
		t.Fatalf("expected 3 arcs, got %d", len(arcs))
	}
	if arcs[0].Label != "nsubjpass" || arcs[0].Head.Text != "deployed" {
		t.Errorf("unexpected first arc: %+v", arcs[0])
	}

	if !HasArc(an, "auxpass") {
		t.Error("expected auxpass arc")
	}
	if HasArc(an, "agent") {
		t.Error("did not expect agent arc")
	}

	arc, ok := FirstArc(an, "nsubjpass")
	if !ok || arc.Dependent.Text != "file" {
		t.Errorf("unexpected nsubjpass arc: %+v ok=%v", arc, ok)
	}

	verbs := TokensWithPOS(an, "VERB", "AUX")
	if len(verbs) != 2 {
		t.Errorf("expected 2 verb-ish tokens, got %d", len(verbs))
	}

	bag := MorphBag(an)
	if got := bag["Voice"]; len(got) != 1 || got[0] != "Pass" {
		t.Errorf("expected Voice=[Pass], got %v", got)
	}
}

func TestContext_Option(t *testing.T) {
	ctx := Context{Options: map[string]map[string]any{
		"structure.long_sentence": {"max_words": 40},
	}}

	if got := ctx.Option("structure.long_sentence", "max_words"); got != 40 {
		t.Errorf("expected 40, got %v", got)
	}
	if got := ctx.Option("structure.long_sentence", "missing"); got != nil {
		t.Errorf("expected nil for missing key, got %v", got)
	}
	if got := ctx.Option("other.rule", "max_words"); got != nil {
		t.Errorf("expected nil for missing rule, got %v", got)
	}
	if got := (Context{}).Option("any", "any"); got != nil {
		t.Errorf("expected nil for empty options, got %v", got)
	}
}
