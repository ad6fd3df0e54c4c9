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
	"strings"
	"testing"
)

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "technical",
			text: "The API server writes JSON logs to the database cluster.",
			want: ContentTechnical,
		},
		{
			name: "procedural",
			text: "Click the button, then follow the instructions in the wizard.",
			want: ContentProcedural,
		},
		{
			name: "legal",
			text: "The parties shall indemnify each other pursuant to the agreement herein.",
			want: ContentLegal,
		},
		{
			name: "marketing",
			text: "Discover our revolutionary solution and unlock seamless growth for your brand.",
			want: ContentMarketing,
		},
		{
			name: "narrative",
			text: "She smiled and suddenly remembered the morning they walked together.",
			want: ContentNarrative,
		},
		{
			name: "plain prose stays general",
			text: "The weather was pleasant and everyone enjoyed the afternoon.",
			want: ContentGeneral,
		},
		{
			name: "empty stays general",
			text: "",
			want: ContentGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifier_ScoreFloor(t *testing.T) {
	c := NewClassifier()

	// One weak keyword diluted across a long document falls under the
	// per-word floor.
	filler := strings.Repeat("Plain words fill the page and say little of import. ", 12)
	if got := c.Classify(filler + "code"); got != ContentGeneral {
		t.Errorf("expected diluted document to stay general, got %q", got)
	}
}

func TestClassifier_Deterministic(t *testing.T) {
	c := NewClassifier()
	text := "Install the CLI, configure the server, and click save."

	first := c.Classify(text)
	for i := 0; i < 10; i++ {
		if got := c.Classify(text); got != first {
			t.Fatalf("classification flapped: %q then %q", first, got)
		}
	}
}

func TestValidContentType(t *testing.T) {
	for _, ct := range ContentTypes() {
		if !ValidContentType(ct) {
			t.Errorf("expected %q to be valid", ct)
		}
	}
	for _, bad := range []string{"", "Technical", "blog", "unknown"} {
		if ValidContentType(bad) {
			t.Errorf("expected %q to be invalid", bad)
		}
	}
}

func TestContentTypes_Order(t *testing.T) {
	types := ContentTypes()
	if len(types) != 6 {
		t.Fatalf("expected 6 content types, got %d", len(types))
	}
	if types[0] != ContentTechnical {
		t.Errorf("expected technical first, got %q", types[0])
	}
	if types[len(types)-1] != ContentGeneral {
		t.Errorf("expected general last, got %q", types[len(types)-1])
	}
}
