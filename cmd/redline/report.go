// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/RedlineAI/RedlineFOSS/pkg/ux"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/analyzer"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules"
)

// printAnalysisReport renders an analysis result for the terminal.
func printAnalysisReport(res *analyzer.Result, withBlocks bool) {
	ux.Title("Style Analysis")
	ux.KeyValue("content type", res.ContentType)
	ux.KeyValue("threshold", fmt.Sprintf("%.2f", res.Threshold))
	ux.KeyValue("issues", fmt.Sprintf("%d (%d suppressed)", len(res.Issues), res.Suppressed))
	ux.KeyValue("elapsed", res.ProcessingTime.String())
	if res.Degraded {
		ux.Warning("NLP toolkit ran degraded; linguistic confidence is reduced")
	}

	if withBlocks {
		ux.Muted(fmt.Sprintf("%d structural blocks", len(res.Blocks)))
		for _, b := range res.Blocks {
			ux.Info(fmt.Sprintf("%s %s [%d-%d]", b.ID, b.Type, b.Start, b.End))
		}
	}

	if len(res.Issues) == 0 {
		ux.Success("no style violations found")
		return
	}

	for _, line := range categorySummary(res.ByCategory) {
		ux.Info(line)
	}
	fmt.Println()
	for _, issue := range res.Issues {
		printIssue(issue)
	}
}

// categorySummary returns "category: n" lines in descending count
// order, ties broken by name.
func categorySummary(byCategory map[rules.Category][]rules.Issue) []string {
	type row struct {
		name  string
		count int
	}
	rows := make([]row, 0, len(byCategory))
	for cat, issues := range byCategory {
		rows = append(rows, row{name: string(cat), count: len(issues)})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].name < rows[j].name
	})
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = fmt.Sprintf("%s: %d", r.name, r.count)
	}
	return out
}

func printIssue(issue rules.Issue) {
	header := fmt.Sprintf("%s %s %s",
		severityIcon(issue.Severity).Render(),
		ux.Styles.Bold.Render(issue.RuleID),
		ux.Styles.Muted.Render(fmt.Sprintf("(%.2f)", issue.Confidence)))
	fmt.Println(header)
	fmt.Printf("  %s\n", issue.Message)
	if issue.Sentence != "" {
		fmt.Printf("  %s %s\n", string(ux.IconArrow), ux.Styles.Muted.Render(truncate(issue.Sentence, 100)))
	}
	for _, s := range issue.Suggestions {
		fmt.Printf("  %s %s\n", string(ux.IconBullet), s)
	}
}

func severityIcon(sev rules.Severity) ux.Icon {
	switch sev {
	case rules.SeverityHigh:
		return ux.IconError
	case rules.SeverityMedium:
		return ux.IconWarning
	default:
		return ux.IconPending
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(s[:max]) + "…"
}
