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
	"math"
	"regexp"
	"strings"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/nlp"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules"
)

var statsWordRe = regexp.MustCompile(`[A-Za-z][A-Za-z'-]*`)

// Statistics summarizes the analyzed prose.
type Statistics struct {
	WordCount      int `json:"word_count"`
	SentenceCount  int `json:"sentence_count"`
	ParagraphCount int `json:"paragraph_count"`

	AvgSentenceLength float64 `json:"avg_sentence_length"`

	// PassiveRatio is passive sentences over all sentences, from
	// dependency patterns.
	PassiveRatio float64 `json:"passive_voice_ratio"`

	// ComplexWordRatio counts words of three or more syllables.
	ComplexWordRatio float64 `json:"complex_word_ratio"`

	// TypeTokenRatio is unique words over total words.
	TypeTokenRatio float64 `json:"type_token_ratio"`

	FleschReadingEase  float64 `json:"flesch_reading_ease"`
	FleschKincaidGrade float64 `json:"flesch_kincaid_grade"`
	GunningFog         float64 `json:"gunning_fog"`
	SMOG               float64 `json:"smog"`
}

// blockStats are one block's partial counts, merged document-wide after
// the parallel block phase.
type blockStats struct {
	words     int
	sentences int
	syllables int
	complex   int
	passive   int
	types     map[string]struct{}
}

// collectBlockStats tallies one prose block. Passive detection needs a
// dependency parse; when the parse fails the sentence counts as active.
func collectBlockStats(ctx context.Context, tk nlp.Toolkit, text string, sentences []nlp.Sentence, degraded bool) blockStats {
	bs := blockStats{types: make(map[string]struct{})}
	bs.sentences = len(sentences)

	for _, w := range statsWordRe.FindAllString(text, -1) {
		bs.words++
		bs.syllables += nlp.CountSyllables(w)
		if nlp.IsComplexWord(w) {
			bs.complex++
		}
		bs.types[strings.ToLower(w)] = struct{}{}
	}

	for _, s := range sentences {
		an, err := tk.Analyze(ctx, s.Text)
		if err != nil {
			continue
		}
		if rules.HasArc(an, "auxpass") || rules.HasArc(an, "nsubjpass") {
			bs.passive++
		}
	}
	_ = degraded
	return bs
}

func (bs *blockStats) add(o blockStats) {
	bs.words += o.words
	bs.sentences += o.sentences
	bs.syllables += o.syllables
	bs.complex += o.complex
	bs.passive += o.passive
	if bs.types == nil {
		bs.types = make(map[string]struct{})
	}
	for t := range o.types {
		bs.types[t] = struct{}{}
	}
}

// finish turns the aggregated counts into document statistics.
func (bs blockStats) finish(paragraphs int) Statistics {
	st := Statistics{
		WordCount:      bs.words,
		SentenceCount:  bs.sentences,
		ParagraphCount: paragraphs,
	}
	if bs.words == 0 || bs.sentences == 0 {
		return st
	}

	words := float64(bs.words)
	sents := float64(bs.sentences)
	asl := words / sents
	asw := float64(bs.syllables) / words

	st.AvgSentenceLength = asl
	st.PassiveRatio = float64(bs.passive) / sents
	st.ComplexWordRatio = float64(bs.complex) / words
	st.TypeTokenRatio = float64(len(bs.types)) / words

	st.FleschReadingEase = clampScore(206.835-1.015*asl-84.6*asw, 0, 100)
	st.FleschKincaidGrade = math.Max(0, 0.39*asl+11.8*asw-15.59)
	st.GunningFog = 0.4 * (asl + 100*st.ComplexWordRatio)
	st.SMOG = 1.0430*math.Sqrt(float64(bs.complex)*(30/sents)) + 3.1291
	return st
}

func clampScore(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
