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

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// closersAfterStop are characters absorbed into the sentence after its
// terminal punctuation (closing quotes and brackets).
const closersAfterStop = `.!?"')]` + "`"

// SplitSentences segments text into sentences on terminal punctuation and
// blank lines. It never inspects morphology, so it doubles as the degraded
// path when a full toolkit parse fails. Sentences carry byte spans into
// text; their Tokens slices are nil.
//
// Boundary heuristics: a period does not terminate after a known
// abbreviation, inside a decimal number, after a single-letter initial, or
// when the next word starts lowercase.
func SplitSentences(text string) []Sentence {
	var out []Sentence
	start := -1

	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])

		if start == -1 {
			if !unicode.IsSpace(r) {
				start = i
				continue
			}
			i += size
			continue
		}

		// A blank line is a hard boundary regardless of punctuation.
		if r == '\n' {
			j := i + 1
			for j < len(text) && (text[j] == ' ' || text[j] == '\t' || text[j] == '\r') {
				j++
			}
			if j < len(text) && text[j] == '\n' {
				out = appendSpan(out, text, start, i)
				start = -1
				i = j + 1
				continue
			}
		}

		if r == '.' || r == '!' || r == '?' {
			end := i + 1
			for end < len(text) && strings.ContainsRune(closersAfterStop, rune(text[end])) {
				end++
			}
			if isBoundary(text, i, end) {
				out = appendSpan(out, text, start, end)
				start = -1
				i = end
				continue
			}
		}

		i += size
	}

	if start != -1 {
		out = appendSpan(out, text, start, len(text))
	}
	return out
}

// isBoundary decides whether the terminal punctuation at stop (with
// absorbed closers ending at end) really closes a sentence.
func isBoundary(text string, stop, end int) bool {
	if text[stop] == '.' {
		// Decimal numbers: 2.1, 3.14.
		if stop > 0 && stop+1 < len(text) &&
			isDigit(text[stop-1]) && isDigit(text[stop+1]) {
			return false
		}
		word := wordBefore(text, stop)
		if abbreviations[strings.ToLower(word)] {
			return false
		}
		// Single-letter initials: "J. Smith".
		if len(word) == 1 && unicode.IsUpper(rune(word[0])) {
			return false
		}
	}

	j := end
	for j < len(text) && (text[j] == ' ' || text[j] == '\t' || text[j] == '\r') {
		j++
	}
	if j >= len(text) || text[j] == '\n' {
		return true
	}
	next, _ := utf8.DecodeRuneInString(text[j:])
	if unicode.IsLower(next) {
		return false
	}
	return true
}

// wordBefore extracts the token immediately preceding position stop,
// keeping interior periods so "e.g." yields "e.g".
func wordBefore(text string, stop int) string {
	j := stop
	for j > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:j])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		j -= size
	}
	return strings.TrimSuffix(text[j:stop], ".")
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func appendSpan(out []Sentence, text string, start, end int) []Sentence {
	for end > start {
		r, size := utf8.DecodeLastRuneInString(text[:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	if end <= start {
		return out
	}
	return append(out, Sentence{
		Text:  text[start:end],
		Start: start,
		End:   end,
	})
}
