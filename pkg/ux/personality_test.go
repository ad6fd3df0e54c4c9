// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import "testing"

func TestParsePersonalityLevel(t *testing.T) {
	cases := []struct {
		in   string
		want PersonalityLevel
	}{
		{"full", PersonalityFull},
		{"f", PersonalityFull},
		{"standard", PersonalityStandard},
		{"std", PersonalityStandard},
		{"minimal", PersonalityMinimal},
		{"machine", PersonalityMachine},
		{"quiet", PersonalityMachine},
		{"MACHINE", PersonalityMachine},
		{"bogus", PersonalityStandard},
		{"", PersonalityStandard},
	}
	for _, tc := range cases {
		if got := ParsePersonalityLevel(tc.in); got != tc.want {
			t.Errorf("ParsePersonalityLevel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSetPersonalityLevel(t *testing.T) {
	orig := GetPersonality().Level
	defer SetPersonalityLevel(orig)

	SetPersonalityLevel(PersonalityMachine)
	if got := GetPersonality().Level; got != PersonalityMachine {
		t.Errorf("level = %q, want machine", got)
	}
	if IsInteractive() {
		t.Error("IsInteractive should be false in machine mode")
	}
	if ShouldShowProgress() {
		t.Error("ShouldShowProgress should be false in machine mode")
	}
}

func TestInitPersonality_EnvOverride(t *testing.T) {
	orig := GetPersonality().Level
	defer SetPersonalityLevel(orig)

	t.Setenv("REDLINE_PERSONALITY", "minimal")
	InitPersonality()
	if got := GetPersonality().Level; got != PersonalityMinimal {
		t.Errorf("level = %q, want minimal", got)
	}
}
