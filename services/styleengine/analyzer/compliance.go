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
	"fmt"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/blocks"
)

// Modular document types eligible for compliance checks.
const (
	ModuleConcept   = "concept"
	ModuleProcedure = "procedure"
	ModuleReference = "reference"
)

// ComplianceCheck is one structural expectation and its verdict.
type ComplianceCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Compliance is the modular-documentation verdict for one module type.
type Compliance struct {
	ModuleType string            `json:"module_type"`
	Passed     bool              `json:"passed"`
	Checks     []ComplianceCheck `json:"checks"`
}

// CheckCompliance evaluates the structural expectations for a modular
// document type. Unknown module types return nil.
func CheckCompliance(moduleType string, blks []blocks.Block) *Compliance {
	shape := shapeOf(blks)

	var checks []ComplianceCheck
	switch moduleType {
	case ModuleConcept:
		checks = []ComplianceCheck{
			requireHeading(shape),
			{
				Name:   "no_procedural_steps",
				Passed: shape.orderedItems == 0,
				Detail: detailUnless(shape.orderedItems == 0,
					fmt.Sprintf("%d ordered steps belong in a procedure module", shape.orderedItems)),
			},
			{
				Name:   "has_body_paragraph",
				Passed: shape.paragraphs > 0,
				Detail: detailUnless(shape.paragraphs > 0, "a concept needs at least one paragraph"),
			},
		}
	case ModuleProcedure:
		checks = []ComplianceCheck{
			requireHeading(shape),
			{
				Name:   "has_ordered_steps",
				Passed: shape.orderedItems > 0,
				Detail: detailUnless(shape.orderedItems > 0, "a procedure needs at least one ordered step"),
			},
			{
				Name:   "intro_before_steps",
				Passed: shape.introBeforeList,
				Detail: detailUnless(shape.introBeforeList, "add a short paragraph before the first step"),
			},
		}
	case ModuleReference:
		checks = []ComplianceCheck{
			requireHeading(shape),
			{
				Name:   "has_structured_content",
				Passed: shape.tableCells > 0 || shape.listItems > 0,
				Detail: detailUnless(shape.tableCells > 0 || shape.listItems > 0,
					"a reference needs a table or list"),
			},
		}
	default:
		return nil
	}

	c := &Compliance{ModuleType: moduleType, Passed: true, Checks: checks}
	for _, ch := range checks {
		if !ch.Passed {
			c.Passed = false
		}
	}
	return c
}

type docShape struct {
	headings        int
	paragraphs      int
	listItems       int
	orderedItems    int
	tableCells      int
	introBeforeList bool
}

func shapeOf(blks []blocks.Block) docShape {
	var s docShape
	sawParagraph := false
	firstListSeen := false
	for _, b := range blks {
		switch b.Type {
		case blocks.TypeHeading:
			s.headings++
		case blocks.TypeParagraph:
			s.paragraphs++
			sawParagraph = true
		case blocks.TypeListItem:
			s.listItems++
		case blocks.TypeOrderedListItem:
			s.orderedItems++
			if !firstListSeen {
				firstListSeen = true
				s.introBeforeList = sawParagraph
			}
		case blocks.TypeTableCell:
			s.tableCells++
		}
	}
	if !firstListSeen {
		// No steps at all: the intro check is moot and should not fail.
		s.introBeforeList = true
	}
	return s
}

func requireHeading(s docShape) ComplianceCheck {
	return ComplianceCheck{
		Name:   "has_heading",
		Passed: s.headings > 0,
		Detail: detailUnless(s.headings > 0, "a module needs a title heading"),
	}
}

func detailUnless(ok bool, detail string) string {
	if ok {
		return ""
	}
	return detail
}
