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

import "strings"

// parsePlain splits a plain text stream into blank-line-separated
// paragraphs. Every block is a paragraph (or inline_code when the whole
// paragraph is a single code span); depth is always zero.
func parsePlain(src string) []Block {
	b := newBuilder(src)
	lines := splitLines(src)

	i := 0
	for i < len(lines) {
		if lines[i].isBlank() {
			i++
			continue
		}

		start := lines[i].start
		end := lines[i].end
		var body strings.Builder
		body.WriteString(lines[i].text)
		i++
		for i < len(lines) && !lines[i].isBlank() {
			end = lines[i].end
			body.WriteString("\n")
			body.WriteString(lines[i].text)
			i++
		}

		t, content := classifyParagraph(body.String())
		b.add(t, start, end, 0, content)
	}

	return b.blocks
}
