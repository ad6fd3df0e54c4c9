// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transform

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

// Static is the deterministic backend: it applies each issue's first
// suggestion as a span replacement, right to left so earlier offsets
// stay valid. Whole-sentence suggestions are projected back onto the
// issue span; issues with no usable suggestion are left in place.
//
// Thread Safety: stateless, safe for concurrent use.
type Static struct{}

// NewStatic builds the deterministic backend.
func NewStatic() *Static { return &Static{} }

func (s *Static) Transform(ctx context.Context, inst Instruction, text string, c Constraints) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	issues := make([]IssueRef, len(inst.Issues))
	copy(issues, inst.Issues)
	sort.Slice(issues, func(i, j int) bool { return issues[i].Start > issues[j].Start })

	out := text
	var deltas []Delta
	lastStart := len(text) + 1
	for _, is := range issues {
		if is.Start < 0 || is.End > len(text) || is.Start >= is.End || is.End > lastStart {
			// Out of range or overlapping an already-applied edit.
			continue
		}
		rep, ok := replacementFor(is, text)
		if !ok {
			continue
		}
		old := text[is.Start:is.End]
		if old == rep {
			continue
		}
		out = out[:is.Start] + rep + out[is.End:]
		deltas = append(deltas, Delta{
			Label: is.RuleID,
			Start: is.Start,
			End:   is.End,
			Old:   old,
			New:   rep,
		})
		lastStart = is.Start
	}

	// Deltas were collected right to left; present them in text order.
	for i, j := 0, len(deltas)-1; i < j; i, j = i+1, j-1 {
		deltas[i], deltas[j] = deltas[j], deltas[i]
	}

	if err := Verify(text, out, c); err != nil {
		return Result{}, err
	}
	return Result{Text: out, Deltas: deltas}, nil
}

// replacementFor picks the first suggestion that can be applied to the
// issue's span. Corrected-sentence suggestions are projected back onto
// the span; sentence-shaped suggestions that cannot be projected are
// prose advice and are skipped.
func replacementFor(is IssueRef, text string) (string, bool) {
	spanText := text[is.Start:is.End]
	for _, s := range is.Suggestions {
		if s == "" {
			continue
		}
		if rep, ok := projectSentence(is, s, text); ok {
			return rep, true
		}
		if endsSentence(s) && !endsSentence(spanText) {
			continue
		}
		return s, true
	}
	return "", false
}

// projectSentence maps a whole-sentence suggestion onto the issue
// span. Applying a corrected sentence verbatim to a sub-sentence span
// would duplicate the unchanged words around the edit, so the span
// replacement is carved out instead. The projection succeeds only when
// the suggestion keeps the sentence's text outside the span intact.
func projectSentence(is IssueRef, suggestion, text string) (string, bool) {
	if is.Sentence == "" || suggestion == is.Sentence {
		return "", false
	}
	sentStart, ok := sentenceOrigin(text, is)
	if !ok {
		return "", false
	}
	rel0, rel1 := is.Start-sentStart, is.End-sentStart
	if rel0 < 0 || rel1 > len(is.Sentence) || rel0 > rel1 {
		return "", false
	}
	prefix, suffix := is.Sentence[:rel0], is.Sentence[rel1:]
	if !anchoredFrame(prefix + suffix) {
		return "", false
	}
	if len(suggestion) < len(prefix)+len(suffix) {
		return "", false
	}
	if !strings.HasPrefix(suggestion, prefix) || !strings.HasSuffix(suggestion, suffix) {
		return "", false
	}
	return suggestion[len(prefix) : len(suggestion)-len(suffix)], true
}

// anchoredFrame reports whether the preserved sentence frame carries
// real content. A frame of bare punctuation matches almost any
// sentence-shaped suggestion and proves nothing.
func anchoredFrame(frame string) bool {
	for _, r := range frame {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// sentenceOrigin locates the occurrence of the issue's sentence that
// contains the issue span.
func sentenceOrigin(text string, is IssueRef) (int, bool) {
	for off := 0; ; {
		i := strings.Index(text[off:], is.Sentence)
		if i < 0 {
			return 0, false
		}
		start := off + i
		if is.Start >= start && is.End <= start+len(is.Sentence) {
			return start, true
		}
		off = start + 1
	}
}

func endsSentence(s string) bool {
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}
