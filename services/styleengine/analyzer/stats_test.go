// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzer

import (
	"context"
	"testing"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/blocks"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/nlp"
)

func TestCollectBlockStats(t *testing.T) {
	tk := nlp.NewHeuristic()
	text := "The cat sat on the mat. The report was written by the team."
	sentences := nlp.SplitSentences(text)

	bs := collectBlockStats(context.Background(), tk, text, sentences, false)
	if bs.sentences != 2 {
		t.Errorf("sentences = %d, want 2", bs.sentences)
	}
	if bs.words != 13 {
		t.Errorf("words = %d, want 13", bs.words)
	}
	if bs.passive != 1 {
		t.Errorf("passive = %d, want 1 (the report sentence)", bs.passive)
	}
	if len(bs.types) == 0 || len(bs.types) > bs.words {
		t.Errorf("types = %d outside (0, %d]", len(bs.types), bs.words)
	}
}

func TestStatistics_Finish(t *testing.T) {
	bs := blockStats{
		words:     100,
		sentences: 5,
		syllables: 150,
		complex:   10,
		passive:   1,
		types:     make(map[string]struct{}),
	}
	for i := 0; i < 60; i++ {
		bs.types[string(rune('a'+i))] = struct{}{}
	}

	st := bs.finish(3)
	if st.AvgSentenceLength != 20 {
		t.Errorf("avg sentence length = %g, want 20", st.AvgSentenceLength)
	}
	if st.PassiveRatio != 0.2 {
		t.Errorf("passive ratio = %g, want 0.2", st.PassiveRatio)
	}
	if st.ComplexWordRatio != 0.1 {
		t.Errorf("complex ratio = %g, want 0.1", st.ComplexWordRatio)
	}
	if st.TypeTokenRatio != 0.6 {
		t.Errorf("type-token ratio = %g, want 0.6", st.TypeTokenRatio)
	}
	if st.FleschReadingEase < 0 || st.FleschReadingEase > 100 {
		t.Errorf("flesch %g outside [0, 100]", st.FleschReadingEase)
	}
	if st.FleschKincaidGrade <= 0 {
		t.Errorf("fk grade = %g, want positive", st.FleschKincaidGrade)
	}
	if st.GunningFog <= 0 || st.SMOG <= 3 {
		t.Errorf("fog = %g smog = %g look wrong", st.GunningFog, st.SMOG)
	}
	if st.ParagraphCount != 3 {
		t.Errorf("paragraphs = %d, want 3", st.ParagraphCount)
	}
}

func TestStatistics_EmptyInput(t *testing.T) {
	st := blockStats{}.finish(0)
	if st != (Statistics{}) {
		t.Errorf("empty stats should be zero, got %+v", st)
	}
}

func TestCheckCompliance(t *testing.T) {
	parse := func(src string) []blocks.Block {
		return blocks.Parse(src, blocks.FormatMarkdown)
	}

	t.Run("procedure with steps passes", func(t *testing.T) {
		c := CheckCompliance(ModuleProcedure, parse("# Install\n\nDo this first.\n\n1. Download.\n2. Run.\n"))
		if c == nil || !c.Passed {
			t.Fatalf("expected pass, got %+v", c)
		}
	})

	t.Run("procedure without steps fails", func(t *testing.T) {
		c := CheckCompliance(ModuleProcedure, parse("# Install\n\nJust a paragraph.\n"))
		if c == nil || c.Passed {
			t.Fatalf("expected failure, got %+v", c)
		}
		found := false
		for _, ch := range c.Checks {
			if ch.Name == "has_ordered_steps" && !ch.Passed {
				found = true
			}
		}
		if !found {
			t.Error("expected has_ordered_steps to fail")
		}
	})

	t.Run("concept with steps fails", func(t *testing.T) {
		c := CheckCompliance(ModuleConcept, parse("# About\n\nIntro.\n\n1. Step one.\n"))
		if c == nil || c.Passed {
			t.Fatalf("expected failure, got %+v", c)
		}
	})

	t.Run("reference needs structure", func(t *testing.T) {
		c := CheckCompliance(ModuleReference, parse("# Flags\n\n- `-v` verbose\n"))
		if c == nil || !c.Passed {
			t.Fatalf("expected pass, got %+v", c)
		}
	})

	t.Run("unknown module type", func(t *testing.T) {
		if c := CheckCompliance("tutorial", nil); c != nil {
			t.Errorf("expected nil, got %+v", c)
		}
	})
}
