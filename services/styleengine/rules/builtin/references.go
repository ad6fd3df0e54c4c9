// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package builtin

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules"
)

// productAlias maps a shorthand product name to the canonical form its
// first mention must use.
type productAlias struct {
	short     string
	canonical string
	re        *regexp.Regexp
}

func alias(short, canonical string) productAlias {
	return productAlias{
		short:     short,
		canonical: canonical,
		re:        regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(short) + `\b`),
	}
}

// acronym matches case-sensitively so prose like "main.js" or "ts files"
// never trips the rule.
func acronym(short, canonical string) productAlias {
	return productAlias{
		short:     short,
		canonical: canonical,
		re:        regexp.MustCompile(`\b` + regexp.QuoteMeta(short) + `\b`),
	}
}

var productAliases = []productAlias{
	alias("Watson", "IBM Watson"),
	alias("k8s", "Kubernetes"),
	alias("Postgres", "PostgreSQL"),
	acronym("S3", "Amazon S3"),
	acronym("EC2", "Amazon EC2"),
	acronym("GKE", "Google Kubernetes Engine"),
	acronym("AKS", "Azure Kubernetes Service"),
	acronym("VS Code", "Visual Studio Code"),
	acronym("JS", "JavaScript"),
	acronym("TS", "TypeScript"),
}

// firstMention flags a shorthand product name whose full form has not
// been introduced yet.
type firstMention struct{}

func (r *firstMention) ID() string                    { return "references.product_names.first_mention" }
func (r *firstMention) Category() rules.Category      { return rules.CategoryReferences }
func (r *firstMention) DefaultSeverity() rules.Severity { return rules.SeverityHigh }

func (r *firstMention) AppliesTo(blockType, contentType string) bool {
	return proseBlock(blockType)
}

func (r *firstMention) Analyze(ctx context.Context, in *rules.Input) []rules.Issue {
	var issues []rules.Issue
	lower := strings.ToLower(in.Text)

	for _, p := range productAliases {
		canonRanges := findAll(lower, strings.ToLower(p.canonical))

		var start, end int = -1, -1
		for _, m := range p.re.FindAllStringIndex(in.Text, -1) {
			if insideAny(m[0], m[1], canonRanges) {
				continue
			}
			start, end = m[0], m[1]
			break
		}
		if start < 0 {
			continue
		}
		// Already introduced in full before this use.
		if len(canonRanges) > 0 && canonRanges[0][0] < start {
			continue
		}

		si, sent := sentenceAt(in.Sentences, start)
		in.MarkSentence(si)

		var evidence *float64
		if an, err := in.Toolkit.SentenceStructure(ctx, sent.Text); err == nil {
			for _, ent := range an.Entities {
				if ent.Label == "PRODUCT" && strings.EqualFold(ent.Text, p.short) {
					evidence = f(0.9)
					break
				}
			}
		}

		issues = append(issues, in.Toolkit.NewIssue(r, in, rules.IssueSpec{
			SentenceIndex: si,
			Sentence:      sent.Text,
			Start:         start,
			End:           end,
			Message:       fmt.Sprintf("first mention of %q should use the full product name %q", in.Text[start:end], p.canonical),
			Suggestions:   []string{p.canonical},
			Signal:        f(0.8),
			Evidence:      evidence,
			Linguistic:    map[string]any{"product": p.canonical, "shorthand": p.short},
		}))
	}
	return issues
}

var genericLinkPattern = regexp.MustCompile(`(?i)\b(click here|see here|read more|learn more|more info(?:rmation)?|this link|this page)\b`)

// genericLinkText flags link phrasing that says nothing about the
// destination.
type genericLinkText struct{}

func (r *genericLinkText) ID() string                    { return "references.citations.generic_link_text" }
func (r *genericLinkText) Category() rules.Category      { return rules.CategoryReferences }
func (r *genericLinkText) DefaultSeverity() rules.Severity { return rules.SeverityHigh }

func (r *genericLinkText) AppliesTo(blockType, contentType string) bool {
	return proseBlock(blockType)
}

func (r *genericLinkText) Analyze(ctx context.Context, in *rules.Input) []rules.Issue {
	var issues []rules.Issue
	for i, sent := range in.Sentences {
		in.MarkSentence(i)
		ms := genericLinkPattern.FindAllStringIndex(sent.Text, -1)
		for _, m := range clusterPhrases(sent.Text, ms) {
			issues = append(issues, in.Toolkit.NewIssue(r, in, rules.IssueSpec{
				SentenceIndex: i,
				Sentence:      sent.Text,
				Start:         sent.Start + m[0],
				End:           sent.Start + m[1],
				Message:       fmt.Sprintf("generic link text %q", sent.Text[m[0]:m[1]]),
				Suggestions:   []string{"Use descriptive link text that names the destination."},
				Signal:        f(0.85),
				Evidence:      f(0.9),
			}))
		}
	}
	return issues
}

// clusterPhrases merges generic phrases separated only by short
// connective text, so "click here to learn more" reads as one offense
// rather than two.
func clusterPhrases(text string, ms [][]int) [][2]int {
	var out [][2]int
	for i := 0; i < len(ms); {
		start, end := ms[i][0], ms[i][1]
		j := i + 1
		for j < len(ms) && connectiveGap(text[end:ms[j][0]]) {
			end = ms[j][1]
			j++
		}
		out = append(out, [2]int{start, end})
		i = j
	}
	return out
}

// connectiveGap reports whether the text between two generic phrases is
// linking words ("to", "and") rather than content.
func connectiveGap(gap string) bool {
	return len(gap) <= 16 && len(strings.Fields(gap)) <= 2
}

var versionPrefixPattern = regexp.MustCompile(`\b[Vv](\d+(?:\.\d+)+)\b`)

// invalidVersionPrefix flags "V2.1"-style version mentions; prose uses
// the bare number.
type invalidVersionPrefix struct{}

func (r *invalidVersionPrefix) ID() string {
	return "references.product_versions.invalid_prefix"
}
func (r *invalidVersionPrefix) Category() rules.Category      { return rules.CategoryReferences }
func (r *invalidVersionPrefix) DefaultSeverity() rules.Severity { return rules.SeverityMedium }

func (r *invalidVersionPrefix) AppliesTo(blockType, contentType string) bool {
	return proseBlock(blockType)
}

func (r *invalidVersionPrefix) Analyze(ctx context.Context, in *rules.Input) []rules.Issue {
	var issues []rules.Issue
	for i, sent := range in.Sentences {
		in.MarkSentence(i)
		for _, m := range versionPrefixPattern.FindAllStringSubmatchIndex(sent.Text, -1) {
			number := sent.Text[m[2]:m[3]]
			if !semver.IsValid("v" + number) {
				continue
			}
			corrected := replaceSpan(sent.Text, m[0], m[1], number)
			issues = append(issues, in.Toolkit.NewIssue(r, in, rules.IssueSpec{
				SentenceIndex: i,
				Sentence:      sent.Text,
				Start:         sent.Start + m[0],
				End:           sent.Start + m[1],
				Message:       fmt.Sprintf("version %q should drop the letter prefix", sent.Text[m[0]:m[1]]),
				Suggestions:   []string{corrected},
				Signal:        f(0.8),
				Evidence:      f(0.9),
				Linguistic:    map[string]any{"version": semver.Canonical("v" + number)},
			}))
		}
	}
	return issues
}

// Canonical capitalization for multi-word and directional place names,
// matched longest first.
var placeCanonical = []string{
	"Northern California",
	"Southern California",
	"Pacific Northwest",
	"New York City",
	"San Francisco",
	"Silicon Valley",
	"New York",
	"United States",
	"North America",
	"South America",
	"Western Europe",
	"Eastern Europe",
	"California",
	"Toronto",
	"London",
	"Seattle",
	"Austin",
}

// geographicLocations flags place names missing their canonical
// capitalization.
type geographicLocations struct{}

func (r *geographicLocations) ID() string                    { return "references.geographic_locations" }
func (r *geographicLocations) Category() rules.Category      { return rules.CategoryReferences }
func (r *geographicLocations) DefaultSeverity() rules.Severity { return rules.SeverityMedium }

func (r *geographicLocations) AppliesTo(blockType, contentType string) bool {
	return proseBlock(blockType)
}

func (r *geographicLocations) Analyze(ctx context.Context, in *rules.Input) []rules.Issue {
	var issues []rules.Issue
	lower := strings.ToLower(in.Text)
	var claimed [][2]int

	for _, canonical := range placeCanonical {
		needle := strings.ToLower(canonical)
		for _, m := range findAll(lower, needle) {
			if insideAny(m[0], m[1], claimed) {
				continue
			}
			claimed = append(claimed, m)

			actual := in.Text[m[0]:m[1]]
			if actual == canonical {
				continue
			}
			if !wordBounded(in.Text, m[0], m[1]) {
				continue
			}

			si, sent := sentenceAt(in.Sentences, m[0])
			in.MarkSentence(si)
			issues = append(issues, in.Toolkit.NewIssue(r, in, rules.IssueSpec{
				SentenceIndex: si,
				Sentence:      sent.Text,
				Start:         m[0],
				End:           m[1],
				Message:       fmt.Sprintf("place name %q should be capitalized %q", actual, canonical),
				Suggestions:   []string{titleCase(actual)},
				Signal:        f(0.75),
				Evidence:      f(0.85),
				Linguistic:    map[string]any{"place": canonical},
			}))
		}
	}
	return issues
}

// findAll returns every [start, end) occurrence of needle in haystack.
func findAll(haystack, needle string) [][2]int {
	var out [][2]int
	for off := 0; ; {
		i := strings.Index(haystack[off:], needle)
		if i < 0 {
			return out
		}
		start := off + i
		out = append(out, [2]int{start, start + len(needle)})
		off = start + len(needle)
	}
}

func insideAny(start, end int, ranges [][2]int) bool {
	for _, r := range ranges {
		if start >= r[0] && end <= r[1] {
			return true
		}
	}
	return false
}

// wordBounded reports whether text[start:end) is not embedded in a
// larger word.
func wordBounded(text string, start, end int) bool {
	if start > 0 && isWordByte(text[start-1]) {
		return false
	}
	if end < len(text) && isWordByte(text[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
