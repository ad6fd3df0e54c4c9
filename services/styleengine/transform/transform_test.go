// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transform

import (
	"context"
	"errors"
	"testing"
)

func TestStatic_AppliesSuggestions(t *testing.T) {
	s := NewStatic()
	text := "We utilize the tool to facilitate deploys."
	inst := Instruction{
		Station: "clarity",
		Issues: []IssueRef{
			{RuleID: "word_usage.complex_words", Start: 3, End: 10, Suggestions: []string{"use"}},
			{RuleID: "word_usage.complex_words", Start: 23, End: 33, Suggestions: []string{"ease"}},
		},
	}

	res, err := s.Transform(context.Background(), inst, text, Constraints{})
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	if res.Text != "We use the tool to ease deploys." {
		t.Errorf("unexpected rewrite: %q", res.Text)
	}
	if len(res.Deltas) != 2 {
		t.Fatalf("expected 2 deltas, got %d", len(res.Deltas))
	}
	if res.Deltas[0].Start > res.Deltas[1].Start {
		t.Error("deltas should be in text order")
	}
	if res.Deltas[0].Old != "utilize" || res.Deltas[0].New != "use" {
		t.Errorf("unexpected first delta: %+v", res.Deltas[0])
	}
}

func TestStatic_SkipsUnusableIssues(t *testing.T) {
	s := NewStatic()
	text := "This is fine."
	inst := Instruction{Issues: []IssueRef{
		{RuleID: "a", Start: 0, End: 4},                                              // no suggestion
		{RuleID: "b", Start: 50, End: 60, Suggestions: []string{"x"}},                // out of range
		{RuleID: "c", Start: 0, End: 4, Suggestions: []string{"Rewrite the sentence to lead with the actor and avoid demonstratives."}}, // prose instruction
	}}

	res, err := s.Transform(context.Background(), inst, text, Constraints{})
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	if res.Text != text || len(res.Deltas) != 0 {
		t.Errorf("expected no edits, got %q with %d deltas", res.Text, len(res.Deltas))
	}
}

func TestStatic_ProjectsSentenceSuggestions(t *testing.T) {
	s := NewStatic()

	t.Run("corrected sentence edits only the span", func(t *testing.T) {
		text := "Install V2.1 today. The deployment guide covers the rest of the setup."
		inst := Instruction{Station: "structure", Issues: []IssueRef{{
			RuleID:      "references.product_versions.invalid_prefix",
			Start:       8,
			End:         12,
			Sentence:    "Install V2.1 today.",
			Suggestions: []string{"Install 2.1 today."},
		}}}

		res, err := s.Transform(context.Background(), inst, text, Constraints{})
		if err != nil {
			t.Fatalf("transform failed: %v", err)
		}
		want := "Install 2.1 today. The deployment guide covers the rest of the setup."
		if res.Text != want {
			t.Errorf("rewrite = %q, want %q", res.Text, want)
		}
		if len(res.Deltas) != 1 {
			t.Fatalf("expected 1 delta, got %d", len(res.Deltas))
		}
		if res.Deltas[0].Old != "V2.1" || res.Deltas[0].New != "2.1" {
			t.Errorf("unexpected delta: %+v", res.Deltas[0])
		}
	})

	t.Run("sentence-shaped advice is never applied to a span", func(t *testing.T) {
		text := "Click here to learn more."
		inst := Instruction{Issues: []IssueRef{{
			RuleID:      "references.citations.generic_link_text",
			Start:       0,
			End:         24,
			Sentence:    text,
			Suggestions: []string{"Use descriptive link text that names the destination."},
		}}}

		res, err := s.Transform(context.Background(), inst, text, Constraints{})
		if err != nil {
			t.Fatalf("transform failed: %v", err)
		}
		if res.Text != text || len(res.Deltas) != 0 {
			t.Errorf("expected no edits, got %q with %d deltas", res.Text, len(res.Deltas))
		}
	})

	t.Run("repeated sentence resolves to the occurrence holding the span", func(t *testing.T) {
		text := "Run it. Run it."
		inst := Instruction{Issues: []IssueRef{{
			RuleID:      "grammar.example",
			Start:       12,
			End:         14,
			Sentence:    "Run it.",
			Suggestions: []string{"Run them."},
		}}}

		res, err := s.Transform(context.Background(), inst, text, Constraints{})
		if err != nil {
			t.Fatalf("transform failed: %v", err)
		}
		if res.Text != "Run it. Run them." {
			t.Errorf("rewrite = %q", res.Text)
		}
	})
}

func TestStatic_OverlappingEditsApplyOnce(t *testing.T) {
	s := NewStatic()
	text := "abcdef"
	inst := Instruction{Issues: []IssueRef{
		{RuleID: "a", Start: 0, End: 4, Suggestions: []string{"XXXX"}},
		{RuleID: "b", Start: 2, End: 6, Suggestions: []string{"YYYY"}},
	}}

	res, err := s.Transform(context.Background(), inst, text, Constraints{})
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	if len(res.Deltas) != 1 {
		t.Fatalf("expected 1 delta for overlapping edits, got %d", len(res.Deltas))
	}
	if res.Text != "abYYYY" {
		t.Errorf("unexpected rewrite: %q", res.Text)
	}
}

func TestVerify(t *testing.T) {
	t.Run("length ratio", func(t *testing.T) {
		long := make([]byte, 200)
		for i := range long {
			long[i] = 'x'
		}
		err := Verify("short text ok", string(long), Constraints{})
		if !errors.Is(err, ErrConstraintViolated) {
			t.Errorf("expected length violation, got %v", err)
		}
	})

	t.Run("code spans preserved", func(t *testing.T) {
		orig := "Run `kubectl apply` to deploy."
		if err := Verify(orig, "To deploy, run `kubectl apply`.", Constraints{PreserveCodeSpans: true}); err != nil {
			t.Errorf("unchanged span should pass: %v", err)
		}
		err := Verify(orig, "To deploy, run kubectl apply.", Constraints{PreserveCodeSpans: true})
		if !errors.Is(err, ErrConstraintViolated) {
			t.Errorf("expected code-span violation, got %v", err)
		}
	})

	t.Run("heading level", func(t *testing.T) {
		if err := Verify("## Setup", "## Setting up", Constraints{PreserveHeadingLevel: true}); err != nil {
			t.Errorf("same level should pass: %v", err)
		}
		err := Verify("## Setup", "# Setup", Constraints{PreserveHeadingLevel: true})
		if !errors.Is(err, ErrConstraintViolated) {
			t.Errorf("expected heading violation, got %v", err)
		}
	})
}

func TestStatic_ConstraintFailureReturnsError(t *testing.T) {
	s := NewStatic()
	text := "See `cmd` here."
	inst := Instruction{Issues: []IssueRef{
		{RuleID: "a", Start: 4, End: 9, Suggestions: []string{"the command"}},
	}}

	_, err := s.Transform(context.Background(), inst, text, Constraints{PreserveCodeSpans: true})
	if !errors.Is(err, ErrConstraintViolated) {
		t.Errorf("expected constraint violation, got %v", err)
	}
}

func TestFromEnv_DefaultsToStatic(t *testing.T) {
	t.Setenv("TRANSFORM_BACKEND", "")
	tr, err := FromEnv(nil)
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if _, ok := tr.(*Static); !ok {
		t.Errorf("expected static backend, got %T", tr)
	}
}
