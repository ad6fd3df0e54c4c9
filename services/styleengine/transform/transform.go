// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package transform provides the text-transformation capability rewrite
// stations invoke: a deterministic in-process backend and an OpenAI
// backend, selected by TRANSFORM_BACKEND.
package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// Backend names accepted by TRANSFORM_BACKEND.
const (
	BackendStatic = "static"
	BackendOpenAI = "openai"
)

// DefaultMaxLengthRatio bounds output growth relative to the input.
const DefaultMaxLengthRatio = 1.3

// ErrConstraintViolated marks a transformation whose output broke a
// block-semantics constraint. The station treats it as a failed edit
// and keeps the input text.
var ErrConstraintViolated = errors.New("transformation constraint violated")

// IssueRef is one issue handed to a station, with offsets relative to
// the text being transformed.
type IssueRef struct {
	RuleID  string `json:"rule_id"`
	Message string `json:"message"`
	Start   int    `json:"start"`
	End     int    `json:"end"`

	// Sentence is the sentence containing the span. Rules that correct
	// a whole sentence suggest the corrected sentence; the sentence text
	// lets a backend project that back onto the span.
	Sentence string `json:"sentence,omitempty"`

	Suggestions []string `json:"suggestions,omitempty"`
}

// Instruction is the station-specific payload for one transformation.
type Instruction struct {
	// Station is the requesting station id.
	Station string `json:"station"`

	// Goal is the station's natural-language objective.
	Goal string `json:"goal"`

	// Issues are the errors the station should fix.
	Issues []IssueRef `json:"issues"`
}

// Constraints are the block-semantics guarantees a transformation must
// preserve.
type Constraints struct {
	// PreserveCodeSpans requires inline code spans to survive
	// byte-identical.
	PreserveCodeSpans bool `json:"preserve_code_spans"`

	// PreserveHeadingLevel requires a heading marker to keep its level.
	PreserveHeadingLevel bool `json:"preserve_heading_level"`

	// MaxLengthRatio bounds output length; zero means the default 1.3.
	MaxLengthRatio float64 `json:"max_length_ratio"`
}

// Delta is one labelled micro-edit, consumed by diff previews.
type Delta struct {
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// Result is one transformation's output.
type Result struct {
	Text   string  `json:"text"`
	Deltas []Delta `json:"deltas"`
}

// Transformer rewrites text under an instruction and constraints.
type Transformer interface {
	Transform(ctx context.Context, inst Instruction, text string, c Constraints) (Result, error)
}

// FromEnv selects a backend from TRANSFORM_BACKEND. Unset or unknown
// values fall back to the static backend.
func FromEnv(log *slog.Logger) (Transformer, error) {
	switch strings.ToLower(os.Getenv("TRANSFORM_BACKEND")) {
	case BackendOpenAI:
		return NewOpenAI(WithOpenAILogger(log))
	case BackendStatic, "":
		return NewStatic(), nil
	default:
		return NewStatic(), nil
	}
}

var (
	inlineCodeRe = regexp.MustCompile("`[^`\n]+`")
	headingRe    = regexp.MustCompile(`^(#+)\s`)
)

// Verify checks a transformation's output against the constraints.
func Verify(original, rewritten string, c Constraints) error {
	ratio := c.MaxLengthRatio
	if ratio <= 0 {
		ratio = DefaultMaxLengthRatio
	}
	if len(original) > 0 && float64(len(rewritten)) > ratio*float64(len(original)) {
		return fmt.Errorf("%w: output is %d bytes, limit %.0f",
			ErrConstraintViolated, len(rewritten), ratio*float64(len(original)))
	}

	if c.PreserveCodeSpans {
		for _, span := range inlineCodeRe.FindAllString(original, -1) {
			if !strings.Contains(rewritten, span) {
				return fmt.Errorf("%w: code span %s was altered", ErrConstraintViolated, span)
			}
		}
	}

	if c.PreserveHeadingLevel {
		orig := headingRe.FindStringSubmatch(original)
		got := headingRe.FindStringSubmatch(rewritten)
		switch {
		case orig == nil:
		case got == nil || len(got[1]) != len(orig[1]):
			return fmt.Errorf("%w: heading level changed", ErrConstraintViolated)
		}
	}
	return nil
}
