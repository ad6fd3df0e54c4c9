// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package blocks converts raw document text into an ordered sequence of
// typed structural blocks.
//
// Three markup families are recognized: plain paragraph streams, Markdown,
// and AsciiDoc. The parser never fails on malformed markup; ambiguous
// regions degrade to paragraph blocks so downstream analysis always has
// something to work with.
//
// Invariants maintained by every parser:
//   - Block spans are byte ranges [Start, End) into the original text.
//   - Spans are ordered and never overlap.
//   - The union of spans covers the document modulo inter-block whitespace
//     and structural chrome (table pipes, admonition delimiters).
//   - Block.Text is the verbatim source slice; Block.Body is the
//     marker-stripped content rules actually analyze.
//
// Thread Safety:
//
//	Parsing is a pure function of its inputs. Block values are immutable
//	after Parse returns.
package blocks

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Format is the document markup family hint supplied by the caller.
type Format string

const (
	// FormatAuto asks the parser to sniff the format from content.
	FormatAuto Format = "auto"

	// FormatPlain is a blank-line-separated paragraph stream.
	FormatPlain Format = "plain"

	// FormatMarkdown is CommonMark-flavored Markdown.
	FormatMarkdown Format = "markdown"

	// FormatAsciiDoc is AsciiDoc markup.
	FormatAsciiDoc Format = "asciidoc"
)

// ValidFormat reports whether f is a recognized format hint.
func ValidFormat(f Format) bool {
	switch f {
	case FormatAuto, FormatPlain, FormatMarkdown, FormatAsciiDoc:
		return true
	}
	return false
}

// Type identifies the structural role of a block.
type Type string

const (
	// TypeParagraph is a run of prose sentences.
	TypeParagraph Type = "paragraph"

	// TypeHeading is a section heading; Depth carries the marker level.
	TypeHeading Type = "heading"

	// TypeListItem is one unordered list item; Depth is the nesting level.
	TypeListItem Type = "list_item"

	// TypeOrderedListItem is one ordered list item; Depth is the nesting level.
	TypeOrderedListItem Type = "ordered_list_item"

	// TypeCodeBlock is a fenced or delimited code listing. Its body is
	// excluded from prose analysis.
	TypeCodeBlock Type = "code_block"

	// TypeInlineCode is a block consisting entirely of one inline code
	// span. Excluded from prose analysis.
	TypeInlineCode Type = "inline_code"

	// TypeBlockquote is quoted prose.
	TypeBlockquote Type = "blockquote"

	// TypeTableCell is a single table cell; Row and Col locate it.
	TypeTableCell Type = "table_cell"

	// TypeAdmonition is a NOTE/TIP/WARNING callout. Block-form admonitions
	// act as parents of their content blocks.
	TypeAdmonition Type = "admonition"

	// TypeOther is structural residue (horizontal rules, stray markers).
	TypeOther Type = "other"
)

// Block is an ordered, non-overlapping span of the document.
//
// Description:
//
//	Blocks are the unit of rule execution and of rewriting. IDs are
//	"block-<n>" in document order and stable within one analysis.
//
// Thread Safety:
//
//	Blocks are treated as immutable after creation.
type Block struct {
	// ID is stable within an analysis ("block-0", "block-1", ...).
	ID string `json:"id"`

	// Type is the structural role.
	Type Type `json:"type"`

	// Start is the inclusive byte offset of the span in the document.
	Start int `json:"start"`

	// End is the exclusive byte offset of the span in the document.
	End int `json:"end"`

	// Depth is the nesting level for lists and admonition children, or
	// the marker level for headings. Always >= 0.
	Depth int `json:"depth"`

	// Text is the verbatim source slice, markers included.
	Text string `json:"text"`

	// Body is the marker-stripped content: heading text without the
	// marker, list item text without the bullet, code listing without the
	// fences. Rules analyze Body, never Text.
	Body string `json:"body"`

	// Lang is the declared language of a code_block ("go", "python", ...)
	// or the kind of an admonition ("note", "warning", ...). Empty
	// otherwise.
	Lang string `json:"lang,omitempty"`

	// ParentID links nested blocks (admonition children, table cells) to
	// their parent block. Empty for top-level blocks.
	ParentID string `json:"parent_id,omitempty"`

	// Row and Col locate a table_cell within its table. Zero-based.
	Row int `json:"row,omitempty"`
	Col int `json:"col,omitempty"`
}

// IsProse reports whether prose rules should run against the block.
// Code listings, inline code, and structural residue are excluded.
func (b Block) IsProse() bool {
	switch b.Type {
	case TypeCodeBlock, TypeInlineCode, TypeOther:
		return false
	}
	return true
}

// Document is an immutable byte-exact input plus its format hint,
// identified by the content-addressed id assigned at ingestion.
type Document struct {
	// ID is the lowercase hex SHA-256 of Content.
	ID string `json:"id"`

	// Content is the raw document text.
	Content string `json:"content"`

	// Format is the caller-supplied hint, FormatAuto by default.
	Format Format `json:"format"`
}

// NewDocument builds a content-addressed Document. An empty hint is
// normalized to FormatAuto.
func NewDocument(content string, hint Format) Document {
	if hint == "" {
		hint = FormatAuto
	}
	sum := sha256.Sum256([]byte(content))
	return Document{
		ID:      hex.EncodeToString(sum[:]),
		Content: content,
		Format:  hint,
	}
}

// blockID formats the stable in-analysis block identifier.
func blockID(n int) string {
	return fmt.Sprintf("block-%d", n)
}
