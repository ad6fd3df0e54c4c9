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
)

// Recognized content types.
const (
	ContentTechnical  = "technical"
	ContentProcedural = "procedural"
	ContentNarrative  = "narrative"
	ContentLegal      = "legal"
	ContentMarketing  = "marketing"
	ContentGeneral    = "general"
)

// ContentTypes lists every recognized content type in classification
// priority order (ties resolve to the earlier entry).
func ContentTypes() []string {
	return []string{
		ContentTechnical, ContentProcedural, ContentLegal,
		ContentMarketing, ContentNarrative, ContentGeneral,
	}
}

// ValidContentType reports whether s names a recognized content type.
func ValidContentType(s string) bool {
	switch s {
	case ContentTechnical, ContentProcedural, ContentNarrative,
		ContentLegal, ContentMarketing, ContentGeneral:
		return true
	}
	return false
}

// minClassifyScore is the per-word frequency score below which a document
// stays general.
const minClassifyScore = 0.01

// Classifier assigns a content type from a frequency-weighted keyword
// profile. One classification covers the whole document; blocks never
// re-classify.
type Classifier struct {
	profiles map[string]map[string]float64
}

var classifierWordPattern = regexp.MustCompile(`[a-z][a-z'-]*`)

// NewClassifier returns the built-in profile set.
func NewClassifier() *Classifier {
	return &Classifier{profiles: map[string]map[string]float64{
		ContentTechnical: {
			"api": 2, "server": 1.5, "database": 1.5, "deploy": 1.5,
			"deployment": 1.5, "configuration": 1.5, "cluster": 1.5,
			"endpoint": 2, "latency": 2, "runtime": 1.5, "kernel": 2,
			"compile": 1.5, "code": 1, "debug": 1.5, "protocol": 1.5,
			"cache": 1.5, "query": 1, "schema": 1.5, "container": 1,
			"repository": 1, "function": 1, "parameter": 1.5, "log": 1,
			"thread": 1.5, "memory": 1, "cpu": 2, "http": 2, "json": 2,
			"yaml": 2, "cli": 2,
		},
		ContentProcedural: {
			"step": 2, "click": 2, "install": 1.5, "select": 1.5,
			"choose": 1.5, "enter": 1.5, "configure": 1.5, "next": 1,
			"follow": 1.5, "procedure": 2, "instructions": 2, "wizard": 2,
			"navigate": 1.5, "open": 1, "save": 1, "restart": 1.5,
			"verify": 1.5, "complete": 1, "prerequisites": 2, "screen": 1,
			"button": 2, "menu": 1.5, "tab": 1.5, "dialog": 2,
		},
		ContentLegal: {
			"shall": 2, "herein": 3, "pursuant": 3, "liability": 2,
			"agreement": 1.5, "clause": 2, "party": 1, "parties": 1.5,
			"warranty": 2, "indemnify": 3, "jurisdiction": 3,
			"termination": 1.5, "obligations": 2, "thereof": 3,
			"hereby": 3, "provision": 1.5, "applicable": 1, "breach": 2,
			"damages": 1.5, "confidential": 1.5,
		},
		ContentMarketing: {
			"amazing": 2, "powerful": 1.5, "revolutionary": 3,
			"seamless": 2, "effortless": 2, "unlock": 2, "boost": 1.5,
			"customers": 1.5, "brand": 1.5, "solution": 1, "solutions": 1.5,
			"innovative": 2, "transform": 1.5, "experience": 1,
			"exclusive": 2, "free": 1, "save": 1, "discover": 1.5,
			"empower": 2.5, "growth": 1.5, "leading": 1.5, "best": 1,
		},
		ContentNarrative: {
			"story": 2, "felt": 2, "remembered": 2.5, "journey": 1.5,
			"once": 1, "suddenly": 2.5, "wondered": 2.5, "realized": 2,
			"morning": 1.5, "night": 1.5, "walked": 2, "smiled": 3,
			"looked": 1.5, "thought": 1, "heart": 1.5, "eyes": 1.5,
			"told": 1.5, "asked": 1.5, "day": 0.5, "years": 1,
		},
	}}
}

// Classify returns the dominant content type for the text, or general
// when no profile scores above the floor. Deterministic: ties resolve in
// ContentTypes order.
func (c *Classifier) Classify(text string) string {
	words := classifierWordPattern.FindAllString(strings.ToLower(text), -1)
	if len(words) == 0 {
		return ContentGeneral
	}

	scores := make(map[string]float64, len(c.profiles))
	for _, w := range words {
		for ct, profile := range c.profiles {
			if weight, ok := profile[w]; ok {
				scores[ct] += weight
			}
		}
	}

	best := ContentGeneral
	bestScore := 0.0
	for _, ct := range ContentTypes() {
		if ct == ContentGeneral {
			continue
		}
		score := scores[ct] / float64(len(words))
		if score > bestScore {
			best, bestScore = ct, score
		}
	}

	if bestScore < minClassifyScore {
		return ContentGeneral
	}
	return best
}
