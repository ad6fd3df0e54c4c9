// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package builtin

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/blocks"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules"
)

// Caps for malformed listings: deeply broken input produces ERROR nodes
// at every level of the tree.
const (
	maxSyntaxIssuesPerBlock = 10
	maxSyntaxWalkDepth      = 1000
)

// grammarFor maps a fence language tag to its tree-sitter grammar.
func grammarFor(lang string) *sitter.Language {
	switch strings.ToLower(lang) {
	case "go", "golang":
		return golang.GetLanguage()
	case "python", "py":
		return python.GetLanguage()
	case "javascript", "js":
		return javascript.GetLanguage()
	case "typescript", "ts":
		return typescript.GetLanguage()
	}
	return nil
}

// invalidSyntax parses fenced code listings and flags ERROR and MISSING
// nodes. The one rule that runs on code_block blocks; it never sees
// prose, and prose rules never see its blocks.
type invalidSyntax struct{}

func (r *invalidSyntax) ID() string                      { return "code_blocks.invalid_syntax" }
func (r *invalidSyntax) Category() rules.Category        { return rules.CategoryCodeBlocks }
func (r *invalidSyntax) DefaultSeverity() rules.Severity { return rules.SeverityHigh }

func (r *invalidSyntax) AppliesTo(blockType, contentType string) bool {
	return blocks.Type(blockType) == blocks.TypeCodeBlock
}

func (r *invalidSyntax) Analyze(ctx context.Context, in *rules.Input) []rules.Issue {
	lang := grammarFor(in.Block.Lang)
	if lang == nil || strings.TrimSpace(in.Text) == "" {
		return nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(ctx, nil, []byte(in.Text))
	if err != nil {
		return nil
	}
	defer tree.Close()

	var issues []rules.Issue
	walkSyntaxErrors(tree.RootNode(), 0, func(node *sitter.Node) bool {
		if len(issues) >= maxSyntaxIssuesPerBlock {
			return false
		}
		start, end := int(node.StartByte()), int(node.EndByte())
		if end > len(in.Text) {
			end = len(in.Text)
		}

		msg := "syntax error"
		if node.IsMissing() {
			msg = fmt.Sprintf("missing %s", node.Type())
		} else if end > start && end-start < 60 {
			msg = fmt.Sprintf("syntax error near %q", in.Text[start:end])
		}

		point := node.StartPoint()
		issues = append(issues, in.Toolkit.NewIssue(r, in, rules.IssueSpec{
			SentenceIndex: int(point.Row),
			Sentence:      lineAt(in.Text, int(point.Row)),
			Start:         start,
			End:           end,
			Message:       msg,
			Suggestions:   []string{fmt.Sprintf("Fix the %s syntax before publishing.", in.Block.Lang)},
			Signal:        f(0.9),
			Evidence:      f(0.95),
			Linguistic: map[string]any{
				"language": in.Block.Lang,
				"node":     node.Type(),
				"line":     int(point.Row) + 1,
				"column":   int(point.Column) + 1,
			},
		}))
		return true
	})
	return issues
}

// walkSyntaxErrors visits ERROR/MISSING nodes depth-first. visit returns
// false to stop the walk.
func walkSyntaxErrors(node *sitter.Node, depth int, visit func(*sitter.Node) bool) bool {
	if node == nil || depth > maxSyntaxWalkDepth {
		return true
	}
	if node.IsError() || node.IsMissing() {
		if !visit(node) {
			return false
		}
		// ERROR subtrees are noise; one report per region.
		return true
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if !walkSyntaxErrors(node.Child(i), depth+1, visit) {
			return false
		}
	}
	return true
}

// lineAt returns line n (zero-based) of text, without its newline.
func lineAt(text string, n int) string {
	lines := strings.Split(text, "\n")
	if n < 0 || n >= len(lines) {
		return ""
	}
	return lines[n]
}
