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
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stripWhitespace removes every whitespace rune so block coverage can be
// compared byte-for-byte against the source.
func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func ofType(bs []Block, t Type) []Block {
	var out []Block
	for _, b := range bs {
		if b.Type == t {
			out = append(out, b)
		}
	}
	return out
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument("Hello world", "")
	sum := sha256.Sum256([]byte("Hello world"))
	assert.Equal(t, hex.EncodeToString(sum[:]), doc.ID)
	assert.Equal(t, FormatAuto, doc.Format)
	assert.Equal(t, "Hello world", doc.Content)

	again := NewDocument("Hello world", FormatMarkdown)
	assert.Equal(t, doc.ID, again.ID, "id is a function of content only")
	assert.Equal(t, FormatMarkdown, again.Format)

	other := NewDocument("Hello world.", FormatAuto)
	assert.NotEqual(t, doc.ID, other.ID)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Format
	}{
		{"asciidoc heading", "= Title\n\nSome text.", FormatAsciiDoc},
		{"asciidoc listing", "Intro.\n\n----\ncode\n----\n", FormatAsciiDoc},
		{"markdown heading", "# Title\n\nSome text.", FormatMarkdown},
		{"markdown fence", "Intro.\n\n```\ncode\n```\n", FormatMarkdown},
		{"markdown bullet", "* one\n* two\n", FormatMarkdown},
		{"asciidoc wins over markdown", "# Also\n\n= Title\n", FormatAsciiDoc},
		{"plain prose", "Just a sentence.\n\nAnother one.", FormatPlain},
		{"empty", "", FormatPlain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.text))
		})
	}
}

func TestParse_EmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\t\n"} {
		got := Parse(text, FormatAuto)
		require.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestParse_UnknownHintFallsBackToSniffing(t *testing.T) {
	got := Parse("# Heading\n\nBody text.\n", Format("banana"))
	require.NotEmpty(t, got)
	assert.Equal(t, TypeHeading, got[0].Type, "unknown hint should sniff, not default to plain")
}

func TestParse_SpanInvariants(t *testing.T) {
	src := "# Title\n\nFirst paragraph\nover two lines.\n\n```go\nfmt.Println(\"hi\")\n```\n\n" +
		"- alpha\n- beta\n\n> [!WARNING]\n> Careful now.\n\n| A | B |\n| - | - |\n| x | y |\n\nClosing words.\n"
	bs := Parse(src, FormatMarkdown)
	require.NotEmpty(t, bs)

	prevEnd := 0
	for i, b := range bs {
		assert.Equal(t, blockID(i), b.ID)
		require.True(t, b.Start < b.End, "block %d has an empty span", i)
		require.True(t, b.End <= len(src))
		assert.GreaterOrEqual(t, b.Start, prevEnd, "block %d overlaps its predecessor", i)
		assert.Equal(t, src[b.Start:b.End], b.Text, "block %d text is not the verbatim slice", i)
		prevEnd = b.End
	}
}

func TestParse_CoverageRoundTrip(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		src := "First paragraph here.\n\nSecond paragraph\ncontinues on.\n\n`just code`\n"
		bs := Parse(src, FormatPlain)
		var joined strings.Builder
		for _, b := range bs {
			joined.WriteString(b.Text)
		}
		assert.Equal(t, stripWhitespace(src), stripWhitespace(joined.String()))
	})

	t.Run("markdown", func(t *testing.T) {
		src := "# Title\n\nIntro paragraph.\n\n```python\nprint(1)\n\nprint(2)\n```\n\n" +
			"- one\n- two\n\n> [!NOTE]\n> Keep this in mind.\n\n---\n\nSetext Heading\n======\n\nDone.\n"
		bs := Parse(src, FormatMarkdown)
		var joined strings.Builder
		for _, b := range bs {
			joined.WriteString(b.Text)
		}
		assert.Equal(t, stripWhitespace(src), stripWhitespace(joined.String()))
	})
}

func TestParseMarkdown_Headings(t *testing.T) {
	src := "# Top\n\n## Sub ##\n\nTitle\n=====\n\nOther\n-----\n"
	headings := ofType(Parse(src, FormatMarkdown), TypeHeading)
	require.Len(t, headings, 4)

	assert.Equal(t, 1, headings[0].Depth)
	assert.Equal(t, "Top", headings[0].Body)
	assert.Equal(t, 2, headings[1].Depth)
	assert.Equal(t, "Sub", headings[1].Body, "trailing closing hashes are stripped")
	assert.Equal(t, 1, headings[2].Depth)
	assert.Equal(t, "Title", headings[2].Body)
	assert.Equal(t, "Title\n=====", headings[2].Text, "setext span includes the underline")
	assert.Equal(t, 2, headings[3].Depth)
	assert.Equal(t, "Other", headings[3].Body)
}

func TestParseMarkdown_CodeFence(t *testing.T) {
	t.Run("language tag", func(t *testing.T) {
		src := "```Go\nfmt.Println()\n```\n"
		bs := Parse(src, FormatMarkdown)
		require.Len(t, bs, 1)
		b := bs[0]
		assert.Equal(t, TypeCodeBlock, b.Type)
		assert.Equal(t, "go", b.Lang)
		assert.Equal(t, "fmt.Println()", b.Body)
		assert.True(t, strings.HasPrefix(b.Text, "```"), "span includes the opening fence")
		assert.False(t, b.IsProse())
	})

	t.Run("info string with extra tokens", func(t *testing.T) {
		bs := Parse("```go title=demo\nx := 1\n```\n", FormatMarkdown)
		require.Len(t, bs, 1)
		assert.Equal(t, TypeCodeBlock, bs[0].Type)
		assert.Equal(t, "go", bs[0].Lang)
	})

	t.Run("tilde fence", func(t *testing.T) {
		bs := Parse("~~~\nraw\n~~~\n", FormatMarkdown)
		require.Len(t, bs, 1)
		assert.Equal(t, TypeCodeBlock, bs[0].Type)
		assert.Empty(t, bs[0].Lang)
		assert.Equal(t, "raw", bs[0].Body)
	})

	t.Run("unclosed fence runs to end of input", func(t *testing.T) {
		src := "```\nfirst\nsecond"
		bs := Parse(src, FormatMarkdown)
		require.Len(t, bs, 1)
		assert.Equal(t, TypeCodeBlock, bs[0].Type)
		assert.Equal(t, len(src), bs[0].End)
		assert.Equal(t, "first\nsecond", bs[0].Body)
	})

	t.Run("blank lines inside fence are preserved", func(t *testing.T) {
		bs := Parse("```\na\n\nb\n```\n", FormatMarkdown)
		require.Len(t, bs, 1)
		assert.Equal(t, "a\n\nb", bs[0].Body)
	})
}

func TestParseMarkdown_InlineCodeParagraph(t *testing.T) {
	bs := Parse("Run the build:\n\n`go build ./...`\n", FormatMarkdown)
	require.Len(t, bs, 2)
	assert.Equal(t, TypeParagraph, bs[0].Type)
	assert.Equal(t, TypeInlineCode, bs[1].Type)
	assert.Equal(t, "go build ./...", bs[1].Body)
	assert.False(t, bs[1].IsProse())
}

func TestParseMarkdown_Lists(t *testing.T) {
	src := "- alpha\n- beta\n  continuation\n  - gamma\n\n1. one\n2) two\n"
	bs := Parse(src, FormatMarkdown)

	items := ofType(bs, TypeListItem)
	require.Len(t, items, 3)
	assert.Equal(t, "alpha", items[0].Body)
	assert.Equal(t, 0, items[0].Depth)
	assert.Equal(t, "beta\ncontinuation", items[1].Body, "indented continuation folds into the item")
	assert.Equal(t, "gamma", items[2].Body)
	assert.Equal(t, 1, items[2].Depth)

	ordered := ofType(bs, TypeOrderedListItem)
	require.Len(t, ordered, 2)
	assert.Equal(t, "one", ordered[0].Body)
	assert.Equal(t, "two", ordered[1].Body)
	assert.Equal(t, 0, ordered[0].Depth)
}

func TestParseMarkdown_Blockquote(t *testing.T) {
	bs := Parse("> quoted line one\n> and two\n", FormatMarkdown)
	require.Len(t, bs, 1)
	assert.Equal(t, TypeBlockquote, bs[0].Type)
	assert.Equal(t, "quoted line one\nand two", bs[0].Body)
	assert.True(t, strings.HasPrefix(bs[0].Text, ">"), "text keeps the quote markers")
}

func TestParseMarkdown_AlertAdmonition(t *testing.T) {
	src := "> [!NOTE]\n> Remember this.\n>\n> Second thought.\n"
	bs := Parse(src, FormatMarkdown)
	require.Len(t, bs, 3)

	parent := bs[0]
	assert.Equal(t, TypeAdmonition, parent.Type)
	assert.Equal(t, "note", parent.Lang)
	assert.Empty(t, parent.Body, "admonition content lives in the children")

	for _, child := range bs[1:] {
		assert.Equal(t, TypeParagraph, child.Type)
		assert.Equal(t, parent.ID, child.ParentID)
		assert.Equal(t, 1, child.Depth)
	}
	assert.Equal(t, "Remember this.", bs[1].Body)
	assert.Equal(t, "Second thought.", bs[2].Body)
}

func TestParseMarkdown_Table(t *testing.T) {
	src := "| Name | Age |\n| ---- | --- |\n| Bob  | 42  |\n"
	bs := Parse(src, FormatMarkdown)
	cells := ofType(bs, TypeTableCell)
	require.Len(t, cells, 4)
	assert.Len(t, bs, 4, "the separator row emits no block")

	type cell struct {
		row, col int
		body     string
	}
	var got []cell
	for _, c := range cells {
		assert.Equal(t, c.Body, c.Text, "cell span is exactly the trimmed content")
		got = append(got, cell{c.Row, c.Col, c.Body})
	}
	assert.Equal(t, []cell{{0, 0, "Name"}, {0, 1, "Age"}, {1, 0, "Bob"}, {1, 1, "42"}}, got)
}

func TestParseMarkdown_HorizontalRule(t *testing.T) {
	t.Run("standalone dashes are a rule", func(t *testing.T) {
		bs := Parse("before\n\n---\n\nafter\n", FormatMarkdown)
		require.Len(t, bs, 3)
		assert.Equal(t, TypeOther, bs[1].Type)
		assert.False(t, bs[1].IsProse())
	})

	t.Run("dashes under text are a setext heading", func(t *testing.T) {
		bs := Parse("before\n---\n", FormatMarkdown)
		require.Len(t, bs, 1)
		assert.Equal(t, TypeHeading, bs[0].Type)
		assert.Equal(t, 2, bs[0].Depth)
	})
}

func TestParseAsciiDoc_Structure(t *testing.T) {
	src := "= Document Title\n\n== Section\n\nFirst paragraph\nspanning two lines.\n\n" +
		"[source,go]\n----\nfunc main() {}\n----\n\n* top\n** nested\n\n. first\n.. sub\n\n" +
		"NOTE: Watch out here.\n"
	bs := Parse(src, FormatAsciiDoc)

	headings := ofType(bs, TypeHeading)
	require.Len(t, headings, 2)
	assert.Equal(t, 1, headings[0].Depth)
	assert.Equal(t, "Document Title", headings[0].Body)
	assert.Equal(t, 2, headings[1].Depth)

	paras := ofType(bs, TypeParagraph)
	require.Len(t, paras, 1)
	assert.Equal(t, "First paragraph\nspanning two lines.", paras[0].Body)

	code := ofType(bs, TypeCodeBlock)
	require.Len(t, code, 1)
	assert.Equal(t, "go", code[0].Lang)
	assert.Equal(t, "func main() {}", code[0].Body)
	assert.True(t, strings.HasPrefix(code[0].Text, "----"), "span starts at the listing delimiter")

	items := ofType(bs, TypeListItem)
	require.Len(t, items, 2)
	assert.Equal(t, 0, items[0].Depth)
	assert.Equal(t, "top", items[0].Body)
	assert.Equal(t, 1, items[1].Depth)

	ordered := ofType(bs, TypeOrderedListItem)
	require.Len(t, ordered, 2)
	assert.Equal(t, 0, ordered[0].Depth)
	assert.Equal(t, 1, ordered[1].Depth)

	adms := ofType(bs, TypeAdmonition)
	require.Len(t, adms, 1)
	assert.Equal(t, "note", adms[0].Lang)
	assert.Equal(t, "Watch out here.", adms[0].Body)
}

func TestParseAsciiDoc_BlockAdmonition(t *testing.T) {
	src := "[WARNING]\n====\nDanger para.\n\nSecond warning para.\n====\n"
	bs := Parse(src, FormatAsciiDoc)
	require.Len(t, bs, 3)

	parent := bs[0]
	assert.Equal(t, TypeAdmonition, parent.Type)
	assert.Equal(t, "warning", parent.Lang)
	assert.Empty(t, parent.Body)

	assert.Equal(t, "Danger para.", bs[1].Body)
	assert.Equal(t, "Second warning para.", bs[2].Body)
	for _, child := range bs[1:] {
		assert.Equal(t, parent.ID, child.ParentID)
		assert.Equal(t, 1, child.Depth)
	}
}

func TestParseAsciiDoc_LiteralAndQuote(t *testing.T) {
	src := "....\nraw output\n....\n\n____\nQuoted wisdom.\n____\n"
	bs := Parse(src, FormatAsciiDoc)
	require.Len(t, bs, 2)

	assert.Equal(t, TypeCodeBlock, bs[0].Type)
	assert.Empty(t, bs[0].Lang)
	assert.Equal(t, "raw output", bs[0].Body)

	assert.Equal(t, TypeBlockquote, bs[1].Type)
	assert.Equal(t, "Quoted wisdom.", bs[1].Body)
}

func TestParseAsciiDoc_Table(t *testing.T) {
	src := "|===\n| H1 | H2\n| a | b\n|===\n"
	cells := ofType(Parse(src, FormatAsciiDoc), TypeTableCell)
	require.Len(t, cells, 4)
	assert.Equal(t, "H1", cells[0].Body)
	assert.Equal(t, 0, cells[0].Row)
	assert.Equal(t, 0, cells[0].Col)
	assert.Equal(t, "b", cells[3].Body)
	assert.Equal(t, 1, cells[3].Row)
	assert.Equal(t, 1, cells[3].Col)
}

func TestParseAsciiDoc_DanglingSourceAttribute(t *testing.T) {
	bs := Parse("[source,go]\n\nJust a paragraph.\n", FormatAsciiDoc)
	require.Len(t, bs, 1)
	assert.Equal(t, TypeParagraph, bs[0].Type)
	assert.Equal(t, "Just a paragraph.", bs[0].Body)
}

func TestParseAsciiDoc_UnclosedListing(t *testing.T) {
	src := "----\nabc\ndef"
	bs := Parse(src, FormatAsciiDoc)
	require.Len(t, bs, 1)
	assert.Equal(t, TypeCodeBlock, bs[0].Type)
	assert.Equal(t, len(src), bs[0].End)
	assert.Equal(t, "abc\ndef", bs[0].Body)
}

func TestParsePlain_Paragraphs(t *testing.T) {
	src := "Para one.\n\nPara two\ncontinued.\r\n\r\nPara three."
	bs := Parse(src, FormatPlain)
	require.Len(t, bs, 3)
	for _, b := range bs {
		assert.Equal(t, TypeParagraph, b.Type)
		assert.Equal(t, 0, b.Depth)
	}
	assert.Equal(t, "Para two\ncontinued.", bs[1].Body, "carriage returns stay out of line text")
	assert.Equal(t, "Para three.", bs[2].Body)
}

func TestBlock_IsProse(t *testing.T) {
	prose := []Type{TypeParagraph, TypeHeading, TypeListItem, TypeOrderedListItem,
		TypeBlockquote, TypeTableCell, TypeAdmonition}
	for _, typ := range prose {
		assert.True(t, Block{Type: typ}.IsProse(), "%s should be prose", typ)
	}
	for _, typ := range []Type{TypeCodeBlock, TypeInlineCode, TypeOther} {
		assert.False(t, Block{Type: typ}.IsProse(), "%s should not be prose", typ)
	}
}

func TestValidFormat(t *testing.T) {
	for _, f := range []Format{FormatAuto, FormatPlain, FormatMarkdown, FormatAsciiDoc} {
		assert.True(t, ValidFormat(f))
	}
	assert.False(t, ValidFormat(Format("rst")))
	assert.False(t, ValidFormat(Format("")))
}
