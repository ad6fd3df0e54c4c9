// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import "testing"

func TestValidateSessionID(t *testing.T) {
	valid := []string{
		"a",
		"550e8400-e29b-41d4-a716-446655440000",
		"cli.session_01",
	}
	for _, id := range valid {
		if err := ValidateSessionID(id); err != nil {
			t.Errorf("ValidateSessionID(%q) = %v, want nil", id, err)
		}
	}

	invalid := []string{
		"",
		"-leading-dash",
		"has space",
		"fb:injection",
		"x" + string(make([]byte, 64)),
	}
	for _, id := range invalid {
		if err := ValidateSessionID(id); err == nil {
			t.Errorf("ValidateSessionID(%q) = nil, want error", id)
		}
	}
}

func TestSanitizeSessionID(t *testing.T) {
	got, err := SanitizeSessionID("  sess-42 ")
	if err != nil || got != "sess-42" {
		t.Errorf("sanitize = (%q, %v), want (sess-42, nil)", got, err)
	}
	if _, err := SanitizeSessionID("   "); err == nil {
		t.Error("whitespace-only id should fail")
	}
}

func TestSanitizeFormatHint(t *testing.T) {
	cases := map[string]string{
		"":          "auto",
		"Markdown":  "markdown",
		" ASCIIDOC": "asciidoc",
		"plain":     "plain",
	}
	for in, want := range cases {
		got, err := SanitizeFormatHint(in)
		if err != nil || got != want {
			t.Errorf("SanitizeFormatHint(%q) = (%q, %v), want (%q, nil)", in, got, err, want)
		}
	}
	if _, err := SanitizeFormatHint("docx"); err == nil {
		t.Error("unknown hint should fail")
	}
}

func TestSanitizeContentType(t *testing.T) {
	if got, err := SanitizeContentType(" Technical "); err != nil || got != "technical" {
		t.Errorf("sanitize = (%q, %v)", got, err)
	}
	if got, err := SanitizeContentType(""); err != nil || got != "" {
		t.Errorf("empty should pass through, got (%q, %v)", got, err)
	}
	if _, err := SanitizeContentType("poetry"); err == nil {
		t.Error("unknown content type should fail")
	}
}
