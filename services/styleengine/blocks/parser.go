// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package blocks

import (
	"regexp"
	"strings"
)

// Format sniffing patterns, applied line-wise to the first 1 KiB.
var (
	asciidocHeadingPattern = regexp.MustCompile(`^=+ `)
	asciidocListingPattern = regexp.MustCompile(`^-{4,}$`)
	markdownHeadingPattern = regexp.MustCompile(`^#{1,6} `)
	markdownBulletPattern  = regexp.MustCompile(`^\* `)
	markdownFencePattern   = regexp.MustCompile("^```")
)

const sniffWindow = 1024

// DetectFormat inspects the first 1 KiB of text and picks a concrete
// format. AsciiDoc markers win over Markdown markers; anything without
// recognizable markup is plain.
func DetectFormat(text string) Format {
	window := text
	if len(window) > sniffWindow {
		window = window[:sniffWindow]
	}

	md := false
	for _, line := range strings.Split(window, "\n") {
		if asciidocHeadingPattern.MatchString(line) || asciidocListingPattern.MatchString(line) {
			return FormatAsciiDoc
		}
		if markdownHeadingPattern.MatchString(line) || markdownBulletPattern.MatchString(line) ||
			markdownFencePattern.MatchString(line) {
			md = true
		}
	}
	if md {
		return FormatMarkdown
	}
	return FormatPlain
}

// Parse converts text into an ordered block sequence.
//
// Description:
//
//	Dispatches to the family parser named by hint, resolving FormatAuto
//	(or an unrecognized hint) via DetectFormat. Malformed markup never
//	fails; ambiguous regions come back as paragraph blocks. Empty input
//	yields an empty, non-nil slice.
//
// Inputs:
//
//	text - Raw document text.
//	hint - Format hint; FormatAuto sniffs the content.
//
// Outputs:
//
//	[]Block - Ordered, non-overlapping blocks covering the document
//	          modulo inter-block whitespace and structural chrome.
func Parse(text string, hint Format) []Block {
	if strings.TrimSpace(text) == "" {
		return []Block{}
	}

	format := hint
	if format == FormatAuto || !ValidFormat(format) {
		format = DetectFormat(text)
	}

	switch format {
	case FormatMarkdown:
		return parseMarkdown(text)
	case FormatAsciiDoc:
		return parseAsciiDoc(text)
	default:
		return parsePlain(text)
	}
}

// line is one physical source line with its byte span (newline excluded).
type line struct {
	text  string
	start int
	end   int
}

// splitLines records byte offsets alongside line text so block spans can
// be reconstructed exactly. A trailing \r is kept out of text but inside
// the span end so coverage stays byte-accurate on CRLF input.
func splitLines(src string) []line {
	lines := make([]line, 0, 64)
	start := 0
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			end := i
			text := src[start:end]
			if strings.HasSuffix(text, "\r") {
				text = text[:len(text)-1]
			}
			lines = append(lines, line{text: text, start: start, end: end})
			start = i + 1
		}
	}
	if start < len(src) {
		text := src[start:]
		if strings.HasSuffix(text, "\r") {
			text = text[:len(text)-1]
		}
		lines = append(lines, line{text: text, start: start, end: len(src)})
	}
	return lines
}

// isBlank reports whether the line holds only whitespace.
func (l line) isBlank() bool {
	return strings.TrimSpace(l.text) == ""
}

// builder accumulates blocks and assigns sequential ids.
type builder struct {
	src    string
	blocks []Block
	next   int
}

func newBuilder(src string) *builder {
	return &builder{src: src, blocks: make([]Block, 0, 16)}
}

// add appends a block spanning [start, end) with the given body and
// returns its id for parent linking.
func (b *builder) add(t Type, start, end, depth int, body string) string {
	id := blockID(b.next)
	b.next++
	b.blocks = append(b.blocks, Block{
		ID:    id,
		Type:  t,
		Start: start,
		End:   end,
		Depth: depth,
		Text:  b.src[start:end],
		Body:  body,
	})
	return id
}

// addFull appends a fully-specified block (code language, parent, cell
// coordinates) and returns its id.
func (b *builder) addFull(blk Block) string {
	blk.ID = blockID(b.next)
	b.next++
	blk.Text = b.src[blk.Start:blk.End]
	b.blocks = append(b.blocks, blk)
	return blk.ID
}

// inlineCodeOnly matches a line that is exactly one backtick code span.
var inlineCodeOnly = regexp.MustCompile("^`([^`]+)`$")

// classifyParagraph distinguishes a paragraph whose whole content is one
// inline code span from ordinary prose.
func classifyParagraph(body string) (Type, string) {
	trimmed := strings.TrimSpace(body)
	if m := inlineCodeOnly.FindStringSubmatch(trimmed); m != nil {
		return TypeInlineCode, m[1]
	}
	return TypeParagraph, body
}
