// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package nlp

import "strings"

// CountSyllables estimates syllables by counting vowel groups, with the
// usual corrections: silent trailing e, -le after a consonant, and the
// -es/-ed endings that do not add a syllable. Every word counts at least
// one. The estimate feeds readability scores and the complex-word ratio,
// where systematic consistency matters more than per-word exactness.
func CountSyllables(word string) int {
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" {
		return 0
	}

	var letters []byte
	for i := 0; i < len(w); i++ {
		c := w[i]
		if c >= 'a' && c <= 'z' {
			letters = append(letters, c)
		}
	}
	if len(letters) == 0 {
		return 0
	}
	w = string(letters)
	if len(w) <= 3 {
		return 1
	}

	count := 0
	prevVowel := false
	for i := 0; i < len(w); i++ {
		v := isVowel(w[i])
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}

	// Silent e: "require" has 2, not 3. But -le keeps its syllable:
	// "table" has 2.
	if strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") && count > 1 {
		count--
	}
	// "-ed" after most consonants is silent: "deployed" has 2.
	if strings.HasSuffix(w, "ed") && !strings.HasSuffix(w, "ted") &&
		!strings.HasSuffix(w, "ded") && count > 1 {
		count--
	}

	if count < 1 {
		count = 1
	}
	return count
}

// IsComplexWord reports whether a word has three or more syllables, the
// Gunning Fog definition. Proper nouns and compound hyphenations are the
// caller's business.
func IsComplexWord(word string) bool {
	return CountSyllables(word) >= 3
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}
