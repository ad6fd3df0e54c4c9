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
	mdATXHeading  = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)
	mdFenceOpen   = regexp.MustCompile("^(```+|~~~+)\\s*(.*)$")
	mdListItem    = regexp.MustCompile(`^([ \t]*)([-*+])\s+(.*)$`)
	mdOrderedItem = regexp.MustCompile(`^([ \t]*)(\d{1,9})[.)]\s+(.*)$`)
	mdHRule       = regexp.MustCompile(`^ {0,3}((\* *){3,}|(_ *){3,}|(- *){3,})$`)
	mdSetextH1    = regexp.MustCompile(`^=+\s*$`)
	mdSetextH2    = regexp.MustCompile(`^-+\s*$`)
	mdTableSep    = regexp.MustCompile(`^\s*\|?\s*:?-+:?\s*(\|\s*:?-+:?\s*)*\|?\s*$`)
	mdAlertMarker = regexp.MustCompile(`(?i)^\[!(note|tip|warning|important|caution)\]\s*$`)
)

// parseMarkdown walks the document line by line. Each construct consumes
// its lines and appends blocks; anything unrecognized is a paragraph.
func parseMarkdown(src string) []Block {
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
		case mdFenceOpen.MatchString(strings.TrimLeft(ln.text, " ")):
			i = mdParseFence(b, lines, i)
		case mdATXHeading.MatchString(ln.text):
			m := mdATXHeading.FindStringSubmatch(ln.text)
			b.add(TypeHeading, ln.start, ln.end, len(m[1]), m[2])
			i++
		case mdHRule.MatchString(ln.text):
			b.add(TypeOther, ln.start, ln.end, 0, "")
			i++
		case strings.HasPrefix(strings.TrimLeft(ln.text, " "), ">"):
			i = mdParseQuote(b, lines, i)
		case mdIsTableStart(lines, i):
			i = mdParseTable(b, lines, i)
		case mdListItem.MatchString(ln.text) || mdOrderedItem.MatchString(ln.text):
			i = mdParseListItem(b, lines, i)
		default:
			i = mdParseParagraph(b, lines, i)
		}
	}

	return b.blocks
}

// mdParseFence consumes a fenced code listing. An unclosed fence runs to
// end of input. The block span includes both fence lines; Body is the
// inner text verbatim.
func mdParseFence(b *builder, lines []line, i int) int {
	open := lines[i]
	m := mdFenceOpen.FindStringSubmatch(strings.TrimLeft(open.text, " "))
	marker := m[1][:1]
	markerLen := len(m[1])
	lang := ""
	if fields := strings.Fields(m[2]); len(fields) > 0 {
		lang = fields[0]
	}

	j := i + 1
	for j < len(lines) {
		t := strings.TrimRight(strings.TrimLeft(lines[j].text, " "), " ")
		if len(t) >= markerLen && strings.Trim(t, string(marker)) == "" {
			break
		}
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
		Type:  TypeCodeBlock,
		Start: open.start,
		End:   end,
		Body:  body.String(),
		Lang:  strings.ToLower(lang),
	})
	return j
}

// mdParseQuote consumes a contiguous run of > lines. GitHub-style alert
// quotes ([!NOTE] and friends on the first line) become an admonition
// parent whose content lines follow as child paragraphs.
func mdParseQuote(b *builder, lines []line, i int) int {
	j := i
	for j < len(lines) && strings.HasPrefix(strings.TrimLeft(lines[j].text, " "), ">") {
		j++
	}

	stripped := make([]string, 0, j-i)
	for k := i; k < j; k++ {
		s := strings.TrimLeft(lines[k].text, " ")
		s = strings.TrimPrefix(s, ">")
		s = strings.TrimPrefix(s, " ")
		stripped = append(stripped, s)
	}

	if mdAlertMarker.MatchString(stripped[0]) {
		kind := strings.ToLower(mdAlertMarker.FindStringSubmatch(stripped[0])[1])
		parentID := b.addFull(Block{
			Type:  TypeAdmonition,
			Start: lines[i].start,
			End:   lines[i].end,
			Lang:  kind,
		})
		// Group the remaining quote lines into one child paragraph per
		// blank-separated run.
		k := i + 1
		for k < j {
			if strings.TrimSpace(stripped[k-i]) == "" {
				k++
				continue
			}
			start := lines[k].start
			end := lines[k].end
			var body strings.Builder
			body.WriteString(stripped[k-i])
			k++
			for k < j && strings.TrimSpace(stripped[k-i]) != "" {
				end = lines[k].end
				body.WriteString("\n")
				body.WriteString(stripped[k-i])
				k++
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
		return j
	}

	b.add(TypeBlockquote, lines[i].start, lines[j-1].end, 0, strings.Join(stripped, "\n"))
	return j
}

// mdIsTableStart looks ahead one line for the separator row that makes a
// pipe line a table header rather than prose.
func mdIsTableStart(lines []line, i int) bool {
	if !strings.Contains(lines[i].text, "|") {
		return false
	}
	if i+1 >= len(lines) {
		return false
	}
	next := lines[i+1].text
	return strings.Contains(next, "-") && mdTableSep.MatchString(next)
}

// mdParseTable emits one table_cell block per cell. The separator row is
// structural chrome and produces no block. Row 0 is the header.
func mdParseTable(b *builder, lines []line, i int) int {
	row := 0
	j := i
	for j < len(lines) && strings.Contains(lines[j].text, "|") && !lines[j].isBlank() {
		if j == i+1 && mdTableSep.MatchString(lines[j].text) {
			j++
			continue
		}
		mdEmitRow(b, lines[j], row)
		row++
		j++
	}
	return j
}

// mdEmitRow splits a pipe-delimited line into cells with exact offsets.
func mdEmitRow(b *builder, ln line, row int) {
	text := ln.text
	col := 0
	segStart := 0
	for pos := 0; pos <= len(text); pos++ {
		if pos == len(text) || text[pos] == '|' {
			seg := text[segStart:pos]
			trimmedLeft := len(seg) - len(strings.TrimLeft(seg, " \t"))
			content := strings.TrimSpace(seg)
			if content != "" {
				start := ln.start + segStart + trimmedLeft
				b.addFull(Block{
					Type:  TypeTableCell,
					Start: start,
					End:   start + len(content),
					Body:  content,
					Row:   row,
					Col:   col,
				})
				col++
			}
			segStart = pos + 1
		}
	}
}

// mdParseListItem consumes one list item plus its indented continuation
// lines. Depth is the indent width in units of two spaces (tab = four).
func mdParseListItem(b *builder, lines []line, i int) int {
	ln := lines[i]

	var indent, body string
	var t Type
	if m := mdListItem.FindStringSubmatch(ln.text); m != nil {
		indent, body = m[1], m[3]
		t = TypeListItem
	} else {
		m := mdOrderedItem.FindStringSubmatch(ln.text)
		indent, body = m[1], m[3]
		t = TypeOrderedListItem
	}

	depth := indentWidth(indent) / 2
	markerWidth := indentWidth(indent) + 2

	end := ln.end
	var full strings.Builder
	full.WriteString(body)
	j := i + 1
	for j < len(lines) {
		next := lines[j]
		if next.isBlank() {
			break
		}
		if mdListItem.MatchString(next.text) || mdOrderedItem.MatchString(next.text) {
			break
		}
		if indentWidth(next.text[:len(next.text)-len(strings.TrimLeft(next.text, " \t"))]) < markerWidth {
			break
		}
		end = next.end
		full.WriteString("\n")
		full.WriteString(strings.TrimSpace(next.text))
		j++
	}

	b.add(t, ln.start, end, depth, full.String())
	return j
}

// mdParseParagraph consumes prose lines until a blank line or a structural
// marker. A trailing setext underline turns the run into a heading.
func mdParseParagraph(b *builder, lines []line, i int) int {
	start := lines[i].start
	end := lines[i].end
	var body strings.Builder
	body.WriteString(lines[i].text)

	j := i + 1
	for j < len(lines) {
		next := lines[j]
		if next.isBlank() {
			break
		}
		// Setext underline closes the paragraph as a heading.
		if j == i+1 && (mdSetextH1.MatchString(next.text) || mdSetextH2.MatchString(next.text)) {
			depth := 1
			if mdSetextH2.MatchString(next.text) {
				depth = 2
			}
			b.add(TypeHeading, start, next.end, depth, strings.TrimSpace(body.String()))
			return j + 1
		}
		if mdATXHeading.MatchString(next.text) || mdFenceOpen.MatchString(strings.TrimLeft(next.text, " ")) ||
			strings.HasPrefix(strings.TrimLeft(next.text, " "), ">") ||
			mdListItem.MatchString(next.text) || mdOrderedItem.MatchString(next.text) {
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

// indentWidth measures leading whitespace with tabs counted as four.
func indentWidth(s string) int {
	w := 0
	for _, r := range s {
		switch r {
		case '\t':
			w += 4
		case ' ':
			w++
		default:
			return w
		}
	}
	return w
}
