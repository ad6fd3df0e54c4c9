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
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/blocks"
)

type testRule struct {
	id       string
	category Category
	severity Severity
	applies  func(blockType, contentType string) bool
	analyze  func(ctx context.Context, in *Input) []Issue
}

func (r *testRule) ID() string         { return r.id }
func (r *testRule) Category() Category { return r.category }

func (r *testRule) DefaultSeverity() Severity {
	if r.severity == "" {
		return SeverityMedium
	}
	return r.severity
}

func (r *testRule) AppliesTo(blockType, contentType string) bool {
	if r.applies == nil {
		return true
	}
	return r.applies(blockType, contentType)
}

func (r *testRule) Analyze(ctx context.Context, in *Input) []Issue {
	if r.analyze == nil {
		return nil
	}
	return r.analyze(ctx, in)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(&testRule{id: "grammar.example", category: CategoryGrammar}); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	err := reg.Register(&testRule{id: "grammar.example", category: CategoryGrammar})
	if !errors.Is(err, ErrDuplicateRule) {
		t.Fatalf("expected ErrDuplicateRule, got %v", err)
	}

	if reg.Len() != 1 {
		t.Errorf("expected 1 rule, got %d", reg.Len())
	}
	if _, ok := reg.Get("grammar.example"); !ok {
		t.Error("expected to find registered rule")
	}
}

func TestRegistry_RulesFor(t *testing.T) {
	reg := NewRegistry()

	codeOnly := func(blockType, contentType string) bool {
		return blockType == string(blocks.TypeCodeBlock)
	}
	proseOnly := func(blockType, contentType string) bool {
		return blockType != string(blocks.TypeCodeBlock)
	}

	for _, r := range []*testRule{
		{id: "tone.b", category: CategoryTone, applies: proseOnly},
		{id: "grammar.z", category: CategoryGrammar, applies: proseOnly},
		{id: "grammar.a", category: CategoryGrammar, applies: proseOnly},
		{id: "code_blocks.syntax", category: CategoryCodeBlocks, applies: codeOnly},
	} {
		if err := reg.Register(r); err != nil {
			t.Fatalf("register %s: %v", r.id, err)
		}
	}

	got := reg.RulesFor(string(blocks.TypeParagraph), "technical")
	want := []string{"grammar.a", "grammar.z", "tone.b"}
	if len(got) != len(want) {
		t.Fatalf("expected %d rules, got %d", len(want), len(got))
	}
	for i, rule := range got {
		if rule.ID() != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], rule.ID())
		}
	}

	code := reg.RulesFor(string(blocks.TypeCodeBlock), "technical")
	if len(code) != 1 || code[0].ID() != "code_blocks.syntax" {
		t.Errorf("expected only the code rule for code blocks, got %v", code)
	}
}

func TestRegistry_ForCategory(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []string{"grammar.z", "grammar.a", "tone.x"} {
		cat := CategoryGrammar
		if id == "tone.x" {
			cat = CategoryTone
		}
		if err := reg.Register(&testRule{id: id, category: cat}); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}

	got := reg.ForCategory(CategoryGrammar)
	if len(got) != 2 || got[0].ID() != "grammar.a" || got[1].ID() != "grammar.z" {
		t.Errorf("expected sorted grammar rules, got %v", got)
	}
	if len(reg.ForCategory(CategoryClaims)) != 0 {
		t.Error("expected no claims rules")
	}
}

func TestRegistry_ConfidenceThreshold(t *testing.T) {
	reg := NewRegistry()

	if got := reg.ConfidenceThreshold(); got != 0 {
		t.Errorf("expected unset threshold 0, got %g", got)
	}

	reg.SetConfidenceThreshold(0.5)
	if got := reg.ConfidenceThreshold(); got != 0.5 {
		t.Errorf("expected 0.5, got %g", got)
	}

	// Out-of-range values are ignored.
	reg.SetConfidenceThreshold(1.2)
	reg.SetConfidenceThreshold(0)
	if got := reg.ConfidenceThreshold(); got != 0.5 {
		t.Errorf("expected threshold to remain 0.5, got %g", got)
	}
}

func TestRun_PanicRecovered(t *testing.T) {
	rule := &testRule{
		id:       "grammar.crashy",
		category: CategoryGrammar,
		analyze: func(ctx context.Context, in *Input) []Issue {
			in.MarkSentence(2)
			panic("boom")
		},
	}
	in := &Input{Block: blocks.Block{ID: "block-0"}}

	rep := Run(context.Background(), rule, in, Budget{}, discardLogger())

	if !rep.Recovered {
		t.Fatal("expected panic to be recovered")
	}
	if rep.Issues != nil {
		t.Errorf("expected no issues after panic, got %d", len(rep.Issues))
	}
	if in.LastSentence() != 2 {
		t.Errorf("expected last sentence 2, got %d", in.LastSentence())
	}
}

func TestRun_IssueCap(t *testing.T) {
	rule := &testRule{
		id:       "grammar.prolific",
		category: CategoryGrammar,
		analyze: func(ctx context.Context, in *Input) []Issue {
			issues := make([]Issue, 40)
			for i := range issues {
				issues[i] = Issue{RuleID: "grammar.prolific", SentenceIndex: i}
			}
			return issues
		},
	}
	in := &Input{Block: blocks.Block{ID: "block-0"}}

	rep := Run(context.Background(), rule, in, Budget{MaxIssues: 25}, discardLogger())

	if !rep.Truncated {
		t.Error("expected truncation to be reported")
	}
	if len(rep.Issues) != 25 {
		t.Errorf("expected 25 issues, got %d", len(rep.Issues))
	}
}

func TestRun_SlowMarking(t *testing.T) {
	rule := &testRule{
		id:       "grammar.sluggish",
		category: CategoryGrammar,
		analyze: func(ctx context.Context, in *Input) []Issue {
			time.Sleep(5 * time.Millisecond)
			return nil
		},
	}
	in := &Input{Block: blocks.Block{ID: "block-0"}}

	rep := Run(context.Background(), rule, in, Budget{Soft: time.Millisecond}, discardLogger())

	if !rep.Slow {
		t.Error("expected slow rule to be marked")
	}
	if rep.Recovered {
		t.Error("slow rule is not a failure")
	}
}
