// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rewrite

import (
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// RenderDiff renders a before/after pair as a unified diff for CLI and
// UI previews. Identical inputs render empty.
func RenderDiff(blockID, before, after string) string {
	if before == after {
		return ""
	}

	oldLines := splitKeepingFinal(before)
	newLines := splitKeepingFinal(after)
	ops := lineOps(oldLines, newLines)

	var body strings.Builder
	var origLines, newCount int
	for _, op := range ops {
		switch op.kind {
		case opEqual:
			body.WriteString(" " + op.text + "\n")
			origLines++
			newCount++
		case opDelete:
			body.WriteString("-" + op.text + "\n")
			origLines++
		case opInsert:
			body.WriteString("+" + op.text + "\n")
			newCount++
		}
	}

	fd := &diff.FileDiff{
		OrigName: blockID + ".orig",
		NewName:  blockID + ".new",
		Hunks: []*diff.Hunk{{
			OrigStartLine: 1,
			OrigLines:     int32(origLines),
			NewStartLine:  1,
			NewLines:      int32(newCount),
			Body:          []byte(body.String()),
		}},
	}
	out, err := diff.PrintFileDiff(fd)
	if err != nil {
		// Fall back to a readable non-unified rendering.
		return fmt.Sprintf("--- %s.orig\n+++ %s.new\n%s", blockID, blockID, body.String())
	}
	return string(out)
}

type opKind int

const (
	opEqual opKind = iota
	opDelete
	opInsert
)

type lineOp struct {
	kind opKind
	text string
}

func splitKeepingFinal(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// lineOps computes a line-level edit script via LCS. Block texts are
// small, so the quadratic table is fine.
func lineOps(a, b []string) []lineOp {
	n, m := len(a), len(b)
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var ops []lineOp
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			ops = append(ops, lineOp{opEqual, a[i]})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			ops = append(ops, lineOp{opDelete, a[i]})
			i++
		default:
			ops = append(ops, lineOp{opInsert, b[j]})
			j++
		}
	}
	for ; i < n; i++ {
		ops = append(ops, lineOp{opDelete, a[i]})
	}
	for ; j < m; j++ {
		ops = append(ops, lineOp{opInsert, b[j]})
	}
	return ops
}
