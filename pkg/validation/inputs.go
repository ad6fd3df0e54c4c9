// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for
// user-supplied request fields.
//
// These validators cover values that end up in storage keys, event
// routing, and log lines. Validating at the edge prevents key
// injection and keeps downstream code free of per-field checks.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// sessionIDPattern matches client- or server-assigned session ids:
// UUIDs plus the shorter opaque ids the CLI generates.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,63}$`)

// Format hints accepted by the structural parser.
var formatHints = map[string]bool{
	"auto":     true,
	"plain":    true,
	"markdown": true,
	"asciidoc": true,
}

// Content types accepted as classification overrides.
var contentTypes = map[string]bool{
	"technical":  true,
	"procedural": true,
	"narrative":  true,
	"legal":      true,
	"marketing":  true,
	"general":    true,
}

// ValidateSessionID checks a session identifier.
//
// Valid ids are 1-64 characters of letters, digits, dots, underscores,
// and hyphens, starting with a letter or digit. This keeps ids safe as
// storage-key components and event-routing keys.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("invalid session id format: %q", id)
	}
	return nil
}

// SanitizeSessionID trims and validates a session id.
func SanitizeSessionID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if err := ValidateSessionID(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}

// SanitizeFormatHint normalizes a format hint. Empty means auto.
func SanitizeFormatHint(hint string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(hint))
	if normalized == "" {
		return "auto", nil
	}
	if !formatHints[normalized] {
		return "", fmt.Errorf("unknown format hint %q (want auto, plain, markdown, or asciidoc)", hint)
	}
	return normalized, nil
}

// SanitizeContentType normalizes a content-type override. Empty means
// classify automatically.
func SanitizeContentType(ct string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(ct))
	if normalized == "" {
		return "", nil
	}
	if !contentTypes[normalized] {
		return "", fmt.Errorf("unknown content type %q", ct)
	}
	return normalized, nil
}
