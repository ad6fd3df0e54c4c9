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
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Heuristic is the in-process toolkit. It is deterministic: identical text
// always yields an identical Analysis, which keeps the confidence pipeline
// pure. It holds no state, so the zero value is usable and one instance
// can serve all goroutines.
type Heuristic struct{}

var _ Toolkit = (*Heuristic)(nil)

// NewHeuristic returns the in-process toolkit.
func NewHeuristic() *Heuristic { return &Heuristic{} }

// tokenPattern splits words, dotted version strings, numbers, and single
// punctuation marks. Apostrophes stay inside words so contractions arrive
// as one token.
var tokenPattern = regexp.MustCompile(
	`[A-Za-z]+\d+(?:\.\d+)+|\d+(?:\.\d+)+|[A-Za-z][A-Za-z0-9'’-]*|\d+(?:,\d{3})*%?|\S`)

// Analyze implements Toolkit. Cancellation is checked between sentences.
func (h *Heuristic) Analyze(ctx context.Context, text string) (*Analysis, error) {
	an := &Analysis{
		Sentences: []Sentence{},
		Tokens:    []Token{},
		Entities:  []Entity{},
	}

	for si, sent := range SplitSentences(text) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		toks := tokenize(text, sent.Start, sent.End)
		tagTokens(toks)
		repairTags(toks)
		labelDependencies(toks)
		for i := range toks {
			toks[i].SentIndex = si
		}

		sent.Tokens = toks
		an.Sentences = append(an.Sentences, sent)
		an.Tokens = append(an.Tokens, toks...)
	}

	recognizeEntities(text, an)
	return an, nil
}

// tokenize splits text[start:end] into raw tokens with absolute byte spans.
func tokenize(text string, start, end int) []Token {
	matches := tokenPattern.FindAllStringIndex(text[start:end], -1)
	toks := make([]Token, 0, len(matches))
	for _, m := range matches {
		toks = append(toks, Token{
			Text:  text[start+m[0] : start+m[1]],
			Start: start + m[0],
			End:   start + m[1],
			Morph: Morph{},
		})
	}
	return toks
}

// tagTokens assigns pos/tag/lemma/morph per token in isolation. Context-
// sensitive corrections happen in repairTags.
func tagTokens(toks []Token) {
	firstWord := -1
	for i := range toks {
		t := &toks[i]
		lower := strings.ToLower(t.Text)
		first, _ := utf8.DecodeRuneInString(t.Text)

		sentenceInitial := false
		if firstWord == -1 && unicode.IsLetter(first) {
			firstWord = i
			sentenceInitial = true
		}

		switch {
		case !unicode.IsLetter(first) && !unicode.IsDigit(first):
			t.Pos, t.Tag = "PUNCT", punctTag(t.Text)
			t.Lemma = t.Text
			t.IsPunct = true
			continue
		case unicode.IsDigit(first):
			t.Pos, t.Tag = "NUM", "CD"
			t.Lemma = t.Text
			t.LikeNum = true
			continue
		}

		if strings.ContainsAny(t.Text, "0123456789") {
			t.LikeNum = true
		}
		if numberWords[lower] {
			t.Pos, t.Tag = "NUM", "CD"
			t.Lemma = lower
			t.LikeNum = true
			continue
		}

		t.Lemma = lemma(lower)

		switch {
		case beForms[lower] || haveForms[lower] || doForms[lower]:
			t.Pos, t.Tag = "AUX", auxTag(lower)
			tenseOf(t)
		case modals[lower]:
			t.Pos, t.Tag = "AUX", "MD"
		case determiners[lower]:
			t.Pos, t.Tag = "DET", "DT"
		case pronouns[lower]:
			t.Pos, t.Tag = "PRON", "PRP"
			if lower == "we" || lower == "us" || lower == "our" || lower == "ours" {
				t.Morph["Person"] = "1"
				t.Morph["Number"] = "Plur"
			}
		case coordConjunctions[lower]:
			t.Pos, t.Tag = "CCONJ", "CC"
		case subordConjunctions[lower]:
			t.Pos, t.Tag = "SCONJ", "IN"
		case prepositions[lower]:
			t.Pos, t.Tag = "ADP", "IN"
		case lower == "not":
			t.Pos, t.Tag = "PART", "RB"
		case irregularParticiples[lower]:
			t.Pos, t.Tag = "VERB", "VBN"
			t.Morph["Tense"] = "Past"
		default:
			tagOpenClass(t, lower, sentenceInitial)
		}
	}
}

// tagOpenClass applies suffix heuristics, then capitalization, then the
// noun default. A sentence-initial capital is not evidence of a proper
// noun.
func tagOpenClass(t *Token, lower string, sentenceInitial bool) {
	if len(lower) > 3 {
		switch {
		case strings.HasSuffix(lower, "ly"):
			t.Pos, t.Tag = "ADV", "RB"
			return
		case strings.HasSuffix(lower, "ing"):
			t.Pos, t.Tag = "VERB", "VBG"
			t.Morph["Aspect"] = "Prog"
			return
		case strings.HasSuffix(lower, "ed"):
			t.Pos, t.Tag = "VERB", "VBD"
			t.Morph["Tense"] = "Past"
			return
		case strings.HasSuffix(lower, "est"):
			t.Pos, t.Tag = "ADJ", "JJS"
			t.Morph["Degree"] = "Sup"
			return
		case hasAnySuffix(lower, "tion", "sion", "ment", "ness", "ance", "ence", "ship", "ity"):
			t.Pos, t.Tag = "NOUN", nounTag(lower)
			nounNumber(t, lower)
			return
		case hasAnySuffix(lower, "ous", "ful", "able", "ible", "ive", "ic"):
			t.Pos, t.Tag = "ADJ", "JJ"
			return
		}
	}

	first, _ := utf8.DecodeRuneInString(t.Text)
	if unicode.IsUpper(first) && !sentenceInitial {
		t.Pos, t.Tag = "PROPN", "NNP"
		t.Morph["Number"] = "Sing"
		return
	}

	t.Pos, t.Tag = "NOUN", nounTag(lower)
	nounNumber(t, lower)
}

// repairTags fixes tags that need a one-token window: bare verbs after
// modals and "to", participles after auxiliaries, passive voice.
func repairTags(toks []Token) {
	for i := range toks {
		t := &toks[i]
		lower := strings.ToLower(t.Text)

		if i > 0 {
			prev := &toks[i-1]
			prevLower := strings.ToLower(prev.Text)

			// "must install", "to configure": noun default was wrong.
			if (prev.Tag == "MD" || prevLower == "to") &&
				(t.Pos == "NOUN" || t.Pos == "PROPN") && !t.LikeNum {
				t.Pos, t.Tag = "VERB", "VB"
				delete(t.Morph, "Number")
			}

			// Participle after be/get: passive voice. One adverb may sit
			// between ("was quickly deployed").
			aux := prev
			if prev.Pos == "ADV" && i > 1 {
				aux = &toks[i-2]
			}
			auxLower := strings.ToLower(aux.Text)
			if (beForms[auxLower] || getForms[auxLower]) &&
				(t.Tag == "VBD" || t.Tag == "VBN") {
				t.Tag = "VBN"
				t.Pos = "VERB"
				t.Morph["Voice"] = "Pass"
				t.Morph["Tense"] = "Past"
			}

			// Participle after have: perfect aspect, stays active.
			if haveForms[auxLower] && t.Tag == "VBD" {
				t.Tag = "VBN"
				t.Morph["Aspect"] = "Perf"
			}
		}

		// "most reliable" marks the adjective superlative.
		if i > 0 && strings.ToLower(toks[i-1].Text) == "most" && t.Pos == "ADJ" {
			t.Morph["Degree"] = "Sup"
		}
		if lower == "best" || lower == "worst" {
			t.Pos, t.Tag = "ADJ", "JJS"
			t.Morph["Degree"] = "Sup"
		}
	}
}

// labelDependencies assigns a flat, pattern-based dependency layer: one
// root per sentence, subjects before it, objects after, auxiliaries and
// agents marked for the passive rules. Head indexes are within the token
// slice; the root points at itself.
func labelDependencies(toks []Token) {
	root := -1
	for i := range toks {
		if toks[i].Pos == "VERB" {
			root = i
			break
		}
	}
	if root == -1 {
		for i := range toks {
			if toks[i].Pos == "AUX" || toks[i].Pos == "NOUN" || toks[i].Pos == "PROPN" {
				root = i
				break
			}
		}
	}
	if root == -1 && len(toks) > 0 {
		root = 0
	}

	passive := root >= 0 && toks[root].Morph.Has("Voice", "Pass")

	for i := range toks {
		t := &toks[i]
		t.Head = root

		switch {
		case i == root:
			t.Dep = "ROOT"
			t.Head = i
		case t.IsPunct:
			t.Dep = "punct"
		case t.Pos == "AUX" && i < root:
			if passive && beForms[strings.ToLower(t.Text)] {
				t.Dep = "auxpass"
			} else {
				t.Dep = "aux"
			}
		case t.Pos == "DET":
			t.Dep = "det"
			t.Head = nextNominal(toks, i, root)
		case t.Pos == "ADJ":
			t.Dep = "amod"
			t.Head = nextNominal(toks, i, root)
		case t.Pos == "ADV":
			t.Dep = "advmod"
		case t.Pos == "ADP":
			if passive && strings.EqualFold(t.Text, "by") && i > root {
				t.Dep = "agent"
			} else {
				t.Dep = "prep"
			}
		case isNominal(t.Pos):
			t.Dep = nominalDep(toks, i, root, passive)
			if t.Dep == "pobj" {
				t.Head = prevAdposition(toks, i)
			}
		case t.Pos == "CCONJ":
			t.Dep = "cc"
		case t.Pos == "SCONJ":
			t.Dep = "mark"
		default:
			t.Dep = "dep"
		}
	}
}

func isNominal(pos string) bool {
	return pos == "NOUN" || pos == "PROPN" || pos == "PRON" || pos == "NUM"
}

// nominalDep picks nsubj/nsubjpass before the root, pobj after an
// adposition, obj otherwise.
func nominalDep(toks []Token, i, root int, passive bool) string {
	if i < root {
		if passive {
			return "nsubjpass"
		}
		return "nsubj"
	}
	if prevAdposition(toks, i) != -1 {
		return "pobj"
	}
	return "obj"
}

// prevAdposition finds the nearest preceding ADP with no nominal between,
// or -1.
func prevAdposition(toks []Token, i int) int {
	for j := i - 1; j >= 0; j-- {
		if toks[j].Pos == "ADP" {
			return j
		}
		if isNominal(toks[j].Pos) || toks[j].Pos == "VERB" || toks[j].IsPunct {
			return -1
		}
	}
	return -1
}

// nextNominal finds the noun a determiner or adjective attaches to,
// falling back to the root.
func nextNominal(toks []Token, i, root int) int {
	for j := i + 1; j < len(toks) && j <= i+3; j++ {
		if isNominal(toks[j].Pos) {
			return j
		}
	}
	return root
}

// recognizeEntities runs the case-insensitive gazetteer over each
// sentence's tokens, longest phrase first, and annotates covered tokens.
// Lowercase source text still matches, so casing errors surface as
// entities the style rules can inspect.
func recognizeEntities(text string, an *Analysis) {
	flatBase := 0
	for _, sent := range an.Sentences {
		toks := sent.Tokens
		i := 0
		for i < len(toks) {
			if toks[i].IsPunct || !startsWithLetter(toks[i].Text) {
				i++
				continue
			}

			matched := 0
			label := ""
			limit := maxGazetteerWords
			if rem := len(toks) - i; rem < limit {
				limit = rem
			}
			for n := limit; n >= 1; n-- {
				if !adjacentWords(text, toks[i:i+n]) {
					continue
				}
				phrase := strings.ToLower(text[toks[i].Start:toks[i+n-1].End])
				if l := gazetteerLabel(phrase); l != "" {
					matched, label = n, l
					break
				}
			}

			if matched == 0 {
				i++
				continue
			}

			start := toks[i].Start
			end := toks[i+matched-1].End
			ent := Entity{
				Text:  text[start:end],
				Label: label,
				Start: start,
				End:   end,
			}
			for k := i; k < i+matched; k++ {
				toks[k].EntType = label
				ent.Tokens = append(ent.Tokens, flatBase+k)
				an.Tokens[flatBase+k].EntType = label
			}
			an.Entities = append(an.Entities, ent)
			i += matched
		}
		flatBase += len(toks)
	}
}

// adjacentWords reports whether the tokens are word tokens separated only
// by single spaces, so gazetteer phrases never jump punctuation or line
// breaks.
func adjacentWords(text string, toks []Token) bool {
	for i := 0; i < len(toks); i++ {
		if toks[i].IsPunct || !startsWithLetter(toks[i].Text) {
			return false
		}
		if i > 0 && text[toks[i-1].End:toks[i].Start] != " " {
			return false
		}
	}
	return true
}

func startsWithLetter(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLetter(r)
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func punctTag(s string) string {
	switch s {
	case ".", "!", "?":
		return "."
	case ",":
		return ","
	case ":", ";":
		return ":"
	default:
		return "SYM"
	}
}

func auxTag(lower string) string {
	switch lower {
	case "is", "has", "does":
		return "VBZ"
	case "was", "were", "had", "did":
		return "VBD"
	case "being", "having", "doing":
		return "VBG"
	case "been", "done":
		return "VBN"
	case "am", "are", "have", "do", "be":
		return "VBP"
	}
	return "VB"
}

func tenseOf(t *Token) {
	switch t.Tag {
	case "VBD", "VBN":
		t.Morph["Tense"] = "Past"
	case "VBZ", "VBP":
		t.Morph["Tense"] = "Pres"
	}
	if t.Tag == "VBZ" {
		t.Morph["Person"] = "3"
	}
}

func nounTag(lower string) string {
	if isPluralNoun(lower) {
		return "NNS"
	}
	return "NN"
}

func nounNumber(t *Token, lower string) {
	if isPluralNoun(lower) {
		t.Morph["Number"] = "Plur"
	} else {
		t.Morph["Number"] = "Sing"
	}
}

func isPluralNoun(lower string) bool {
	return len(lower) > 2 && strings.HasSuffix(lower, "s") &&
		!strings.HasSuffix(lower, "ss") && !strings.HasSuffix(lower, "us") &&
		!strings.HasSuffix(lower, "is")
}

// lemma strips inflectional suffixes with a small irregular table. Crude
// on purpose; rules that need exact lemmas consult their own word lists.
func lemma(lower string) string {
	if irr, ok := irregularLemmas[lower]; ok {
		return irr
	}
	switch {
	case strings.HasSuffix(lower, "ies") && len(lower) > 4:
		return lower[:len(lower)-3] + "y"
	case strings.HasSuffix(lower, "sses") || strings.HasSuffix(lower, "shes") ||
		strings.HasSuffix(lower, "ches") || strings.HasSuffix(lower, "xes"):
		return lower[:len(lower)-2]
	case strings.HasSuffix(lower, "ing") && len(lower) > 5:
		stem := lower[:len(lower)-3]
		if len(stem) > 2 && stem[len(stem)-1] == stem[len(stem)-2] {
			stem = stem[:len(stem)-1]
		}
		return stem
	case strings.HasSuffix(lower, "ed") && len(lower) > 4:
		stem := lower[:len(lower)-2]
		if len(stem) > 2 && stem[len(stem)-1] == stem[len(stem)-2] {
			stem = stem[:len(stem)-1]
		}
		if strings.HasSuffix(lower, "ied") {
			return lower[:len(lower)-3] + "y"
		}
		return stem
	case strings.HasSuffix(lower, "s") && !strings.HasSuffix(lower, "ss") && len(lower) > 3:
		return lower[:len(lower)-1]
	}
	return lower
}
