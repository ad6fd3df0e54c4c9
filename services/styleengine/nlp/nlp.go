// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package nlp provides the linguistic toolkit consumed by style rules:
// sentence segmentation, tokenization with lemma/POS/dependency/morphology
// annotations, and named-entity recognition.
//
// Two implementations exist. Heuristic runs fully in-process and is
// deterministic, which keeps the confidence pipeline a pure function of its
// inputs. Remote talks to a spaCy-style sidecar over HTTP for richer
// parses. Toolkit failure is never fatal to an analysis: callers degrade to
// punctuation sentence-splitting and skip morphology-dependent rules.
package nlp

import (
	"context"
	"os"
)

// Morph holds morphological features for one token, keyed by feature name
// ("Tense", "Number", "Voice", "Degree", "Person").
type Morph map[string]string

// Has reports whether the feature is present with the given value.
func (m Morph) Has(feature, value string) bool {
	return m[feature] == value
}

// Token is one annotated token. Offsets are byte positions into the
// analyzed text.
type Token struct {
	// Text is the verbatim token.
	Text string `json:"text"`

	// Lemma is the base form ("was" -> "be").
	Lemma string `json:"lemma"`

	// Pos is the coarse universal tag (NOUN, VERB, AUX, ADJ, ...).
	Pos string `json:"pos"`

	// Tag is the fine-grained tag (NN, VBD, VBN, JJ, ...).
	Tag string `json:"tag"`

	// Dep is the dependency relation to the head (nsubj, auxpass, ROOT, ...).
	Dep string `json:"dep"`

	// Head is the index of the head token within the same sentence's token
	// slice. The root points at itself.
	Head int `json:"head_index"`

	// Morph carries morphological features. Never nil on toolkit output.
	Morph Morph `json:"morph"`

	// EntType is the entity label when the token is inside a named entity
	// (PRODUCT, ORG, GPE, ...). Empty otherwise.
	EntType string `json:"ent_type"`

	IsPunct bool `json:"is_punct"`
	LikeNum bool `json:"like_num"`

	// SentIndex is the index of the containing sentence.
	SentIndex int `json:"sent_index"`

	// Start and End are the byte span of the token in the analyzed text.
	Start int `json:"start"`
	End   int `json:"end"`
}

// Sentence is one segmented sentence with its byte span and the tokens it
// contains.
type Sentence struct {
	Text   string  `json:"text"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
	Tokens []Token `json:"tokens"`
}

// Entity is a recognized named entity spanning one or more tokens.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`

	// Tokens are indexes into the flat Analysis.Tokens slice.
	Tokens []int `json:"tokens"`
}

// Analysis is the full toolkit output for one text.
type Analysis struct {
	Sentences []Sentence `json:"sentences"`
	Tokens    []Token    `json:"tokens"`
	Entities  []Entity   `json:"entities"`
}

// Toolkit analyzes raw text. Implementations must be safe for concurrent
// use; Analyze must not retain the input after returning.
type Toolkit interface {
	Analyze(ctx context.Context, text string) (*Analysis, error)
}

// FromEnv picks a toolkit implementation. NLP_SIDECAR_URL selects the
// remote sidecar; otherwise the in-process heuristic engine is used.
func FromEnv() Toolkit {
	if url := os.Getenv("NLP_SIDECAR_URL"); url != "" {
		return NewRemote(url)
	}
	return NewHeuristic()
}
