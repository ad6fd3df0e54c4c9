// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rewrite runs assembly-line rewrites: an ordered list of
// stations, each fixing one family of issues through the transformation
// capability, with per-job progress tracked and emitted to the session
// fabric.
package rewrite

import (
	"fmt"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules"
)

// Canonical station ids, in execution order.
const (
	StationUrgentGrammar = "urgent_grammar"
	StationClarity       = "clarity"
	StationStructure     = "structure"
	StationTone          = "tone"
	StationFinalPolish   = "final_polish"
)

// DefaultMaxStations caps the assembly line length.
const DefaultMaxStations = 8

// Station is one assembly-line stage: an id, a human name, the
// instruction goal handed to the transformer, and the issue categories
// it claims. An empty category list claims every issue (final polish).
type Station struct {
	ID         string
	Name       string
	Goal       string
	Categories []rules.Category
}

// Matches reports whether the station claims an issue.
func (s Station) Matches(is rules.Issue) bool {
	if len(s.Categories) == 0 {
		return true
	}
	for _, c := range s.Categories {
		if is.Category == c {
			return true
		}
	}
	return false
}

// Claim returns the subset of issues the station would fix.
func (s Station) Claim(issues []rules.Issue) []rules.Issue {
	var out []rules.Issue
	for _, is := range issues {
		if s.Matches(is) {
			out = append(out, is)
		}
	}
	return out
}

// DefaultStations returns the five canonical stations in order.
func DefaultStations() []Station {
	return []Station{
		{
			ID:   StationUrgentGrammar,
			Name: "Urgent grammar",
			Goal: "Fix grammatical and punctuation errors without changing meaning.",
			Categories: []rules.Category{
				rules.CategoryGrammar, rules.CategoryPunctuation,
			},
		},
		{
			ID:   StationClarity,
			Name: "Clarity",
			Goal: "Replace vague, hedging, or needlessly complex wording with plain language.",
			Categories: []rules.Category{
				rules.CategoryWordUsage, rules.CategoryPronouns,
			},
		},
		{
			ID:   StationStructure,
			Name: "Structure",
			Goal: "Shorten overlong sentences and fix reference formatting.",
			Categories: []rules.Category{
				rules.CategoryStructure, rules.CategoryReferences,
			},
		},
		{
			ID:   StationTone,
			Name: "Tone",
			Goal: "Adjust tone for technical documentation: direct, impersonal, evidence-based.",
			Categories: []rules.Category{
				rules.CategoryTone, rules.CategoryCommands, rules.CategoryClaims,
			},
		},
		{
			ID:   StationFinalPolish,
			Name: "Final polish",
			Goal: "Smooth any remaining rough edges while preserving meaning and terminology.",
		},
	}
}

// StationLine is the ordered, capped station list for a rewriter.
type StationLine struct {
	stations []Station
	max      int
}

// NewStationLine builds a line from the given stations, capped at max
// (DefaultMaxStations when max <= 0). Duplicate ids are rejected.
func NewStationLine(stations []Station, max int) (*StationLine, error) {
	if max <= 0 {
		max = DefaultMaxStations
	}
	seen := make(map[string]bool, len(stations))
	for _, s := range stations {
		if s.ID == "" {
			return nil, fmt.Errorf("station with empty id")
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate station %q", s.ID)
		}
		seen[s.ID] = true
	}
	if len(stations) > max {
		stations = stations[:max]
	}
	return &StationLine{stations: stations, max: max}, nil
}

// Stations returns the full ordered line.
func (l *StationLine) Stations() []Station {
	out := make([]Station, len(l.stations))
	copy(out, l.stations)
	return out
}

// Applicable returns the ordered stations claiming at least one issue.
func (l *StationLine) Applicable(issues []rules.Issue) []Station {
	if len(issues) == 0 {
		return nil
	}
	var out []Station
	for _, s := range l.stations {
		if len(s.Claim(issues)) > 0 {
			out = append(out, s)
		}
	}
	return out
}
