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

var (
	adocHeading    = regexp.MustCompile(`^(=+)\s+(.*?)\s*$`)
	adocBullet     = regexp.MustCompile(`^(\*+)\s+(.*)$`)
	adocOrdered    = regexp.MustCompile(`^(\.+)\s+(.*)$`)
	adocListing    = regexp.MustCompile(`^-{4,}\s*$`)
	adocLiteral    = regexp.MustCompile(`^\.{4,}\s*$`)
	adocQuoteDelim = regexp.MustCompile(`^_{4,}\s*$`)
	adocExample    = regexp.MustCompile(`^={4,}\s*$`)
	adocTableDelim = regexp.MustCompile(`^\|={3,}\s*$`)
	adocInlineAdm  = regexp.MustCompile(`^(NOTE|TIP|WARNING|IMPORTANT|CAUTION):\s+(.*)$`)
	adocBlockAdm   = regexp.MustCompile(`^\[(NOTE|TIP|WARNING|IMPORTANT|CAUTION)\]\s*$`)
	adocSource     = regexp.MustCompile(`^\[source(?:\s*,\s*([A-Za-z0-9_+-]+))?[^\]]*\]\s*$`)
	adocAttribute  = regexp.MustCompile(`^\[[^\]]*\]\s*$`)
)

// parseAsciiDoc walks the document line by line, mirroring the Markdown
// walker with AsciiDoc's marker vocabulary. Attribute lines that are not
// [source] or [NOTE]-family markers are structural chrome and emit no
// block.
func parseAsciiDoc(src string) []Block {
	b := newBuilder(src)
	lines := splitLines(src)

	i := 0
	for i < len(lines) {
		ln := lines[i]
		if ln.isBlank() {
			i++
			continue
		}

		switch {
		case adocSource.MatchString(ln.text):
			i = adocParseListing(b, lines, i)
		case adocListing.MatchString(ln.text) || adocLiteral.MatchString(ln.text):
			i = adocParseDelimited(b, lines, i, TypeCodeBlock, "")
		case adocBlockAdm.MatchString(ln.text):
			i = adocParseBlockAdmonition(b, lines, i)
		case adocExample.MatchString(ln.text):
			i++ // stray example delimiter, contents parse normally
		case adocHeading.MatchString(ln.text):
			m := adocHeading.FindStringSubmatch(ln.text)
			b.add(TypeHeading, ln.start, ln.end, len(m[1]), m[2])
			i++
		case adocInlineAdm.MatchString(ln.text):
			m := adocInlineAdm.FindStringSubmatch(ln.text)
			b.addFull(Block{
				Type:  TypeAdmonition,
				Start: ln.start,
				End:   ln.end,
				Body:  m[2],
				Lang:  strings.ToLower(m[1]),
			})
			i++
		case adocQuoteDelim.MatchString(ln.text):
			i = adocParseDelimited(b, lines, i, TypeBlockquote, "")
		case adocTableDelim.MatchString(ln.text):
			i = adocParseTable(b, lines, i)
		case adocBullet.MatchString(ln.text):
			m := adocBullet.FindStringSubmatch(ln.text)
			b.add(TypeListItem, ln.start, ln.end, len(m[1])-1, m[2])
			i++
		case adocOrdered.MatchString(ln.text):
			m := adocOrdered.FindStringSubmatch(ln.text)
			b.add(TypeOrderedListItem, ln.start, ln.end, len(m[1])-1, m[2])
			i++
		case adocAttribute.MatchString(ln.text):
			i++ // structural chrome
		default:
			i = adocParseParagraph(b, lines, i)
		}
	}

	return b.blocks
}

// adocParseListing handles a [source,lang] attribute followed by a ----
// listing. A dangling attribute without a listing degrades to chrome.
func adocParseListing(b *builder, lines []line, i int) int {
	m := adocSource.FindStringSubmatch(lines[i].text)
	lang := strings.ToLower(m[1])

	j := i + 1
	for j < len(lines) && lines[j].isBlank() {
		j++
	}
	if j >= len(lines) || !(adocListing.MatchString(lines[j].text) || adocLiteral.MatchString(lines[j].text)) {
		return i + 1
	}
	return adocParseDelimited(b, lines, j, TypeCodeBlock, lang)
}

// adocParseDelimited consumes a block bounded by the delimiter on line i.
// The span includes both delimiter lines; an unclosed block runs to end of
// input. The body is the inner text verbatim.
func adocParseDelimited(b *builder, lines []line, i int, t Type, lang string) int {
	delim := lines[i].text
	var closes func(string) bool
	switch {
	case adocListing.MatchString(delim):
		closes = adocListing.MatchString
	case adocLiteral.MatchString(delim):
		closes = adocLiteral.MatchString
	case adocQuoteDelim.MatchString(delim):
		closes = adocQuoteDelim.MatchString
	default:
		closes = adocExample.MatchString
	}

	j := i + 1
	for j < len(lines) && !closes(lines[j].text) {
		j++
	}

	var body strings.Builder
	for k := i + 1; k < j; k++ {
		if k > i+1 {
			body.WriteString("\n")
		}
		body.WriteString(lines[k].text)
	}

	end := lines[len(lines)-1].end
	if j < len(lines) {
		end = lines[j].end
		j++
	}

	b.addFull(Block{
		Type:  t,
		Start: lines[i].start,
		End:   end,
		Body:  body.String(),
		Lang:  lang,
	})
	return j
}

// adocParseBlockAdmonition handles the block form:
//
//	[NOTE]
//	====
//	content
//	====
//
// The [NOTE] line is the admonition parent; inner blank-separated runs
// become child paragraphs. A marker without a following ==== block is
// treated as a single-line admonition with empty body.
func adocParseBlockAdmonition(b *builder, lines []line, i int) int {
	kind := strings.ToLower(adocBlockAdm.FindStringSubmatch(lines[i].text)[1])

	j := i + 1
	if j >= len(lines) || !adocExample.MatchString(lines[j].text) {
		b.addFull(Block{
			Type:  TypeAdmonition,
			Start: lines[i].start,
			End:   lines[i].end,
			Lang:  kind,
		})
		return i + 1
	}

	parentID := b.addFull(Block{
		Type:  TypeAdmonition,
		Start: lines[i].start,
		End:   lines[i].end,
		Lang:  kind,
	})

	j++ // past opening ====
	for j < len(lines) && !adocExample.MatchString(lines[j].text) {
		if lines[j].isBlank() {
			j++
			continue
		}
		start := lines[j].start
		end := lines[j].end
		var body strings.Builder
		body.WriteString(lines[j].text)
		j++
		for j < len(lines) && !lines[j].isBlank() && !adocExample.MatchString(lines[j].text) {
			end = lines[j].end
			body.WriteString("\n")
			body.WriteString(lines[j].text)
			j++
		}
		b.addFull(Block{
			Type:     TypeParagraph,
			Start:    start,
			End:      end,
			Depth:    1,
			Body:     body.String(),
			ParentID: parentID,
		})
	}
	if j < len(lines) {
		j++ // past closing ====
	}
	return j
}

// adocParseTable consumes a |=== table. Each inner line is one row; cells
// are split on pipes with exact offsets. The delimiters emit no block.
func adocParseTable(b *builder, lines []line, i int) int {
	j := i + 1
	row := 0
	for j < len(lines) && !adocTableDelim.MatchString(lines[j].text) {
		if strings.HasPrefix(strings.TrimSpace(lines[j].text), "|") {
			mdEmitRow(b, lines[j], row)
			row++
		}
		j++
	}
	if j < len(lines) {
		j++
	}
	return j
}

// adocParseParagraph consumes prose until a blank line or any structural
// marker.
func adocParseParagraph(b *builder, lines []line, i int) int {
	start := lines[i].start
	end := lines[i].end
	var body strings.Builder
	body.WriteString(lines[i].text)

	j := i + 1
	for j < len(lines) {
		next := lines[j]
		if next.isBlank() || adocHeading.MatchString(next.text) ||
			adocListing.MatchString(next.text) || adocLiteral.MatchString(next.text) ||
			adocBullet.MatchString(next.text) || adocOrdered.MatchString(next.text) ||
			adocInlineAdm.MatchString(next.text) || adocAttribute.MatchString(next.text) ||
			adocTableDelim.MatchString(next.text) || adocQuoteDelim.MatchString(next.text) ||
			adocExample.MatchString(next.text) {
			break
		}
		end = next.end
		body.WriteString("\n")
		body.WriteString(next.text)
		j++
	}

	t, content := classifyParagraph(body.String())
	b.add(t, start, end, 0, content)
	return j
}
