// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package builtin ships the stock style rules, one file per category.
//
// Description:
//
//	Every rule here is a stateless value registered through Register.
//	Prose rules apply to prose blocks only; the single code rule applies
//	to code blocks only. Rules produce deterministic issues: same text,
//	same context, same output.
//
// Thread Safety: all rules are stateless and safe for concurrent use.
package builtin

import (
	"strings"
	"unicode"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/blocks"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/nlp"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules"
)

// Settings controls which built-in rules a registry receives.
type Settings struct {
	// DisabledRules suppresses individual rules by id.
	DisabledRules map[string]bool

	// DisabledCategories suppresses whole categories.
	DisabledCategories map[rules.Category]bool
}

// All returns one instance of every built-in rule, ordered by category
// then id.
func All() []rules.Rule {
	return []rules.Rule{
		&unsupportedSuperlative{},
		&invalidSyntax{},
		&imperativeMood{},
		&passiveVoice{},
		&subjectVerb{},
		&ambiguousThis{},
		&doubleSpace{},
		&serialComma{},
		&genericLinkText{},
		&firstMention{},
		&invalidVersionPrefix{},
		&geographicLocations{},
		&longParagraph{},
		&longSentence{},
		&contractions{},
		&firstPersonPlural{},
		&complexWords{},
		&weaselWords{},
	}
}

// Register adds every enabled built-in rule to the registry.
func Register(reg *rules.Registry, s Settings) error {
	for _, r := range All() {
		if s.DisabledRules[r.ID()] || s.DisabledCategories[r.Category()] {
			continue
		}
		if err := reg.Register(r); err != nil {
			return err
		}
	}
	return nil
}

// proseBlock reports whether prose rules should run for the block type.
func proseBlock(blockType string) bool {
	return blocks.Block{Type: blocks.Type(blockType)}.IsProse()
}

func f(v float64) *float64 { return &v }

// sentenceAt locates the sentence containing a block-relative offset.
// Falls back to the last sentence for trailing offsets.
func sentenceAt(sents []nlp.Sentence, off int) (int, nlp.Sentence) {
	for i, s := range sents {
		if off >= s.Start && off < s.End {
			return i, s
		}
	}
	if n := len(sents); n > 0 {
		return n - 1, sents[n-1]
	}
	return 0, nlp.Sentence{}
}

// replaceSpan rewrites text[start:end) with repl.
func replaceSpan(text string, start, end int, repl string) string {
	if start < 0 || end > len(text) || start > end {
		return text
	}
	return text[:start] + repl + text[end:]
}

// matchCase maps a replacement onto the casing of the original word:
// all-caps stays all-caps, leading capital stays capital.
func matchCase(original, repl string) string {
	if original == "" || repl == "" {
		return repl
	}
	if original == strings.ToUpper(original) && len(original) > 1 {
		return strings.ToUpper(repl)
	}
	first := []rune(original)[0]
	if unicode.IsUpper(first) {
		r := []rune(repl)
		r[0] = unicode.ToUpper(r[0])
		return string(r)
	}
	return repl
}

// titleCase capitalizes the first letter of every space-separated word.
func titleCase(phrase string) string {
	words := strings.Fields(phrase)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
