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

import "math"

// DefaultReliability returns the built-in rule-reliability table.
// Mechanical pattern rules score high; rules leaning on the heuristic
// parser score lower. Unknown ids fall back to 0.5 inside the pipeline.
func DefaultReliability() map[string]float64 {
	return map[string]float64{
		"references.product_names.first_mention":    0.85,
		"references.citations.generic_link_text":    0.90,
		"references.product_versions.invalid_prefix": 0.90,
		"references.geographic_locations":           0.80,
		"grammar.passive_voice":                     0.75,
		"grammar.subject_verb":                      0.65,
		"punctuation.double_space":                  0.98,
		"punctuation.serial_comma":                  0.80,
		"word_usage.weasel_words":                   0.85,
		"word_usage.complex_words":                  0.70,
		"tone.contractions":                         0.90,
		"tone.first_person_plural":                  0.85,
		"commands.imperative_mood":                  0.60,
		"claims.unsupported_superlative":            0.75,
		"pronouns.ambiguous_this":                   0.60,
		"structure.long_sentence":                   0.95,
		"structure.long_paragraph":                  0.95,
		"code_blocks.invalid_syntax":                0.90,
	}
}

// ruleCategories is every category the modifier matrix must cover.
var ruleCategories = []string{
	"references", "grammar", "punctuation", "word_usage", "tone",
	"commands", "claims", "pronouns", "structure", "code_blocks",
}

// DefaultModifiers returns the full content-modifier matrix. Every
// (content type, category) pair is present; values stay in [0.5, 1.5].
func DefaultModifiers() map[string]map[string]float64 {
	overrides := map[string]map[string]float64{
		ContentTechnical: {
			"grammar": 1.1, "references": 1.2, "word_usage": 1.1,
			"structure": 1.1, "tone": 0.9, "commands": 1.1,
			"code_blocks": 1.3,
		},
		ContentProcedural: {
			"commands": 1.3, "structure": 1.2, "references": 1.1,
			"tone": 0.9, "claims": 0.9, "pronouns": 1.1,
			"code_blocks": 1.1,
		},
		ContentNarrative: {
			"tone": 0.7, "grammar": 0.9, "references": 0.8,
			"commands": 0.6, "structure": 0.9, "word_usage": 0.9,
			"punctuation": 0.9, "claims": 0.8, "pronouns": 0.9,
			"code_blocks": 0.7,
		},
		ContentLegal: {
			"word_usage": 1.2, "claims": 1.3, "grammar": 1.1,
			"tone": 1.2, "punctuation": 1.1, "commands": 0.8,
			"pronouns": 1.2, "code_blocks": 0.6,
		},
		ContentMarketing: {
			"claims": 1.4, "tone": 1.1, "word_usage": 1.1,
			"grammar": 0.9, "punctuation": 0.9, "structure": 0.9,
			"commands": 0.9, "pronouns": 0.9, "code_blocks": 0.5,
		},
		ContentGeneral: {},
	}

	matrix := make(map[string]map[string]float64, len(overrides))
	for _, ct := range ContentTypes() {
		row := make(map[string]float64, len(ruleCategories))
		for _, cat := range ruleCategories {
			row[cat] = 1.0
			if m, ok := overrides[ct][cat]; ok {
				row[cat] = m
			}
		}
		matrix[ct] = row
	}
	return matrix
}

// WeightMix is one weighting over the four signal facets. Facet weights
// must sum to 1.0 within a 1e-3 tolerance.
type WeightMix struct {
	Morphological float64 `json:"morphological" yaml:"morphological"`
	Contextual    float64 `json:"contextual"    yaml:"contextual"`
	Domain        float64 `json:"domain"        yaml:"domain"`
	Discourse     float64 `json:"discourse"     yaml:"discourse"`
}

// DefaultWeightMix is the mix used when config supplies none.
func DefaultWeightMix() WeightMix {
	return WeightMix{Morphological: 0.4, Contextual: 0.3, Domain: 0.2, Discourse: 0.1}
}

// Sum returns the total of all facet weights.
func (w WeightMix) Sum() float64 {
	return w.Morphological + w.Contextual + w.Domain + w.Discourse
}

// Valid reports whether the facet weights sum to 1.0 within tolerance.
func (w WeightMix) Valid() bool {
	return math.Abs(w.Sum()-1.0) <= 1e-3
}

// Combine folds four facet scores into one signal using the mix.
func (w WeightMix) Combine(morphological, contextual, domain, discourse float64) float64 {
	return clamp(w.Morphological*morphological+
		w.Contextual*contextual+
		w.Domain*domain+
		w.Discourse*discourse, 0, 1)
}
