// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package confidence

import (
	"regexp"
	"strings"
	"testing"
)

func TestAnchorSet_EvaluateBoost(t *testing.T) {
	set := DefaultAnchorSet()

	// "deploy" and "api" hit the same technical anchor, which counts once.
	got := set.Evaluate("Deploy the service using the api gateway.", 11)
	if !almostEqual(got, 0.08) {
		t.Errorf("expected 0.08, got %g", got)
	}
}

func TestAnchorSet_EvaluateFoldsMultipleBoosts(t *testing.T) {
	set := DefaultAnchorSet()

	// technical (0.08) and imperative (0.06) both match:
	// 0.08 + 0.06*0.8 = 0.128.
	got := set.Evaluate("Click Install to configure the api server.", 20)
	if !almostEqual(got, 0.128) {
		t.Errorf("expected 0.128, got %g", got)
	}
}

func TestAnchorSet_EvaluatePenalty(t *testing.T) {
	set := DefaultAnchorSet()

	got := set.Evaluate("We saw the value, for example, in the text.", 20)
	if !almostEqual(got, -0.08) {
		t.Errorf("expected -0.08, got %g", got)
	}
}

func TestAnchorSet_MixedBoostAndPenalty(t *testing.T) {
	set := DefaultAnchorSet()

	// Inline code (-0.15) around a technical term (+0.08).
	got := set.Evaluate("Pass `kubectl` the manifest.", 10)
	if !almostEqual(got, -0.07) {
		t.Errorf("expected -0.07, got %g", got)
	}
}

func TestAnchorSet_Caps(t *testing.T) {
	anchor := func(name, word string, weight float64) Anchor {
		return Anchor{
			Name:    name,
			Pattern: regexp.MustCompile(`\b` + word + `\b`),
			Weight:  weight,
			Window:  100,
		}
	}
	set := NewAnchorSet([]Anchor{
		anchor("b1", "alpha", 0.2),
		anchor("b2", "beta", 0.2),
		anchor("b3", "gamma", 0.2),
		anchor("p1", "delta", -0.2),
		anchor("p2", "epsilon", -0.2),
		anchor("p3", "zeta", -0.2),
	}, DefaultMaxBoost, DefaultMaxPenalty)

	// Each side folds to 0.488 before its cap; net is 0.30 - 0.35.
	got := set.Evaluate("alpha beta gamma delta epsilon zeta", 17)
	if !almostEqual(got, -0.05) {
		t.Errorf("expected -0.05, got %g", got)
	}
}

func TestAnchorSet_WindowLimitsContext(t *testing.T) {
	set := NewAnchorSet([]Anchor{{
		Name:    "marker",
		Pattern: regexp.MustCompile(`beacon`),
		Weight:  0.1,
		Window:  5,
	}}, 0, 0)

	text := "beacon " + strings.Repeat("x", 50)

	if got := set.Evaluate(text, 3); !almostEqual(got, 0.1) {
		t.Errorf("expected match inside window, got %g", got)
	}
	if got := set.Evaluate(text, 40); !almostEqual(got, 0) {
		t.Errorf("expected no match outside window, got %g", got)
	}
}

func TestAnchorSet_EdgeInputs(t *testing.T) {
	set := DefaultAnchorSet()

	if got := set.Evaluate("", 0); !almostEqual(got, 0) {
		t.Errorf("expected 0 for empty text, got %g", got)
	}
	// Out-of-range positions clamp instead of panicking.
	if got := set.Evaluate("run the cli", -10); !almostEqual(got, 0.128) {
		t.Errorf("expected clamped evaluation, got %g", got)
	}
	if got := set.Evaluate("run the cli", 500); !almostEqual(got, 0.128) {
		t.Errorf("expected clamped evaluation, got %g", got)
	}
}

func TestFold(t *testing.T) {
	if got := fold(nil); !almostEqual(got, 0) {
		t.Errorf("expected 0 for no values, got %g", got)
	}
	if got := fold([]float64{0.08}); !almostEqual(got, 0.08) {
		t.Errorf("expected single value unchanged, got %g", got)
	}
	// Order-independent: sorted largest first before decay.
	if got := fold([]float64{0.06, 0.08}); !almostEqual(got, 0.128) {
		t.Errorf("expected 0.128, got %g", got)
	}

	// Ten equal values exercise the decay floor: factors run
	// 1, 0.8, ..., 0.2097, then hold at 0.2.
	values := make([]float64, 10)
	for i := range values {
		values[i] = 0.1
	}
	if got := fold(values); !almostEqual(got, 0.45611392) {
		t.Errorf("expected 0.45611392, got %g", got)
	}
}
