// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package feedback

import "sort"

// Confidence bucket labels.
const (
	BucketLow  = "[0.0,0.5)"
	BucketMid  = "[0.5,0.7)"
	BucketHigh = "[0.7,1.0]"
)

// CategoryInsight aggregates one rule category's verdicts.
type CategoryInsight struct {
	Category     string  `json:"category"`
	Total        int     `json:"total"`
	AccuracyRate float64 `json:"accuracy_rate"`
}

// BucketInsight aggregates one confidence band's verdicts.
type BucketInsight struct {
	Bucket       string  `json:"bucket"`
	Total        int     `json:"total"`
	AccuracyRate float64 `json:"accuracy_rate"`
}

// Insights is the aggregate view of a feedback window.
type Insights struct {
	DaysBack       int               `json:"days_back"`
	Total          int               `json:"total"`
	AccuracyRate   float64           `json:"accuracy_rate"`
	UniqueSessions int               `json:"unique_sessions"`
	ByCategory     []CategoryInsight `json:"by_category"`
	ByBucket       []BucketInsight   `json:"by_confidence_bucket"`
}

// ComputeInsights aggregates a record set. Stores share this so every
// backend reports identical numbers for identical data.
func ComputeInsights(records []Record) Insights {
	ins := Insights{Total: len(records)}
	if len(records) == 0 {
		return ins
	}

	sessions := make(map[string]bool)
	type agg struct {
		n   int
		acc float64
	}
	categories := make(map[string]*agg)
	buckets := map[string]*agg{
		BucketLow:  {},
		BucketMid:  {},
		BucketHigh: {},
	}

	var total float64
	for _, r := range records {
		score := verdictScore(r.Kind)
		total += score
		sessions[r.SessionID] = true

		cat := r.Category()
		if categories[cat] == nil {
			categories[cat] = &agg{}
		}
		categories[cat].n++
		categories[cat].acc += score

		b := buckets[bucketFor(r.Confidence)]
		b.n++
		b.acc += score
	}

	ins.AccuracyRate = total / float64(len(records))
	ins.UniqueSessions = len(sessions)

	for cat, a := range categories {
		ins.ByCategory = append(ins.ByCategory, CategoryInsight{
			Category: cat, Total: a.n, AccuracyRate: a.acc / float64(a.n),
		})
	}
	sort.Slice(ins.ByCategory, func(i, j int) bool {
		return ins.ByCategory[i].Category < ins.ByCategory[j].Category
	})

	for _, label := range []string{BucketLow, BucketMid, BucketHigh} {
		a := buckets[label]
		bi := BucketInsight{Bucket: label, Total: a.n}
		if a.n > 0 {
			bi.AccuracyRate = a.acc / float64(a.n)
		}
		ins.ByBucket = append(ins.ByBucket, bi)
	}
	return ins
}

func bucketFor(confidence float64) string {
	switch {
	case confidence < 0.5:
		return BucketLow
	case confidence < 0.7:
		return BucketMid
	}
	return BucketHigh
}

// sessionStats folds a record list into per-session stats.
func sessionStats(records []Record) Stats {
	st := Stats{Total: len(records)}
	for _, r := range records {
		switch r.Kind {
		case KindCorrect:
			st.Correct++
		case KindIncorrect:
			st.Incorrect++
		case KindPartiallyCorrect:
			st.PartiallyCorrect++
		}
	}
	if st.Total > 0 {
		st.AccuracyRate = (float64(st.Correct) + 0.5*float64(st.PartiallyCorrect)) / float64(st.Total)
	}
	return st
}
