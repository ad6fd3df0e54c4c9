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

import "testing"

func TestDefaultModifiers_MatrixComplete(t *testing.T) {
	matrix := DefaultModifiers()

	for _, ct := range ContentTypes() {
		row, ok := matrix[ct]
		if !ok {
			t.Fatalf("missing row for content type %q", ct)
		}
		for _, cat := range ruleCategories {
			m, ok := row[cat]
			if !ok {
				t.Errorf("missing modifier for %s/%s", ct, cat)
				continue
			}
			if m < 0.5 || m > 1.5 {
				t.Errorf("modifier %s/%s = %g outside [0.5, 1.5]", ct, cat, m)
			}
		}
	}

	general := matrix[ContentGeneral]
	for cat, m := range general {
		if !almostEqual(m, 1.0) {
			t.Errorf("general/%s = %g, want neutral 1.0", cat, m)
		}
	}
}

func TestDefaultReliability_Range(t *testing.T) {
	table := DefaultReliability()
	if len(table) == 0 {
		t.Fatal("expected a non-empty reliability table")
	}

	for id, r := range table {
		if r <= 0 || r > 1 {
			t.Errorf("reliability for %s = %g outside (0, 1]", id, r)
		}
	}

	if r := table["references.product_names.first_mention"]; r < 0.75 {
		t.Errorf("first-mention reliability %g below 0.75", r)
	}
	if r := table["punctuation.double_space"]; r < 0.9 {
		t.Errorf("double-space reliability %g below 0.9", r)
	}
}

func TestWeightMix(t *testing.T) {
	t.Run("default is valid", func(t *testing.T) {
		mix := DefaultWeightMix()
		if !mix.Valid() {
			t.Errorf("default mix sums to %g", mix.Sum())
		}
	})

	t.Run("off-by-more-than-tolerance is invalid", func(t *testing.T) {
		mix := WeightMix{Morphological: 0.5, Contextual: 0.2, Domain: 0.2, Discourse: 0.2}
		if mix.Valid() {
			t.Errorf("mix summing to %g should be invalid", mix.Sum())
		}
	})

	t.Run("within tolerance is valid", func(t *testing.T) {
		mix := WeightMix{Morphological: 0.4005, Contextual: 0.3, Domain: 0.2, Discourse: 0.1}
		if !mix.Valid() {
			t.Errorf("mix summing to %g should be valid", mix.Sum())
		}
	})

	t.Run("combine weights facets", func(t *testing.T) {
		mix := DefaultWeightMix()
		if got := mix.Combine(1, 0, 0, 0); !almostEqual(got, 0.4) {
			t.Errorf("expected 0.4, got %g", got)
		}
		if got := mix.Combine(1, 1, 1, 1); !almostEqual(got, 1.0) {
			t.Errorf("expected 1.0, got %g", got)
		}
		if got := mix.Combine(0.5, 0.5, 0.5, 0.5); !almostEqual(got, 0.5) {
			t.Errorf("expected 0.5, got %g", got)
		}
	})

	t.Run("combine clamps", func(t *testing.T) {
		mix := WeightMix{Morphological: 1}
		if got := mix.Combine(2, 0, 0, 0); !almostEqual(got, 1.0) {
			t.Errorf("expected clamp to 1.0, got %g", got)
		}
	})
}
