// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ErrDuplicateRule is returned when a rule id is registered twice.
var ErrDuplicateRule = errors.New("duplicate rule id")

// Execution limits for Run.
const (
	// DefaultSoftBudget is the per-(block, rule) duration above which a
	// rule is marked slow in diagnostics. The rule still finishes.
	DefaultSoftBudget = 250 * time.Millisecond

	// DefaultMaxIssues caps how many issues one rule may report for one
	// block.
	DefaultMaxIssues = 500
)

// Registry holds rules keyed by id and grouped by category.
//
// Thread Safety: safe for concurrent use. Registration normally happens
// once at startup; lookups run on every analysis.
type Registry struct {
	mu         sync.RWMutex
	byID       map[string]Rule
	byCategory map[Category][]Rule
	threshold  float64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:       make(map[string]Rule),
		byCategory: make(map[Category][]Rule),
	}
}

// Register adds a rule. A duplicate id fails with ErrDuplicateRule.
func (r *Registry) Register(rule Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := rule.ID()
	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRule, id)
	}
	r.byID[id] = rule
	r.byCategory[rule.Category()] = append(r.byCategory[rule.Category()], rule)
	return nil
}

// Get returns the rule registered under id.
func (r *Registry) Get(id string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.byID[id]
	return rule, ok
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// RulesFor returns the rules applicable to a (block type, content type)
// pair, sorted by category then rule id so analysis output is
// deterministic.
func (r *Registry) RulesFor(blockType, contentType string) []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Rule
	for _, rule := range r.byID {
		if rule.AppliesTo(blockType, contentType) {
			out = append(out, rule)
		}
	}
	sortRules(out)
	return out
}

// ForCategory returns the rules of one category sorted by id.
func (r *Registry) ForCategory(c Category) []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Rule, len(r.byCategory[c]))
	copy(out, r.byCategory[c])
	sortRules(out)
	return out
}

// All returns every registered rule sorted by category then id.
func (r *Registry) All() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Rule, 0, len(r.byID))
	for _, rule := range r.byID {
		out = append(out, rule)
	}
	sortRules(out)
	return out
}

// SetConfidenceThreshold broadcasts a threshold override for analyses
// that do not carry their own. Values outside (0, 1) are ignored.
func (r *Registry) SetConfidenceThreshold(t float64) {
	if t <= 0 || t >= 1 {
		return
	}
	r.mu.Lock()
	r.threshold = t
	r.mu.Unlock()
}

// ConfidenceThreshold returns the broadcast override, 0 when unset.
func (r *Registry) ConfidenceThreshold() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.threshold
}

func sortRules(list []Rule) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Category() != list[j].Category() {
			return list[i].Category() < list[j].Category()
		}
		return list[i].ID() < list[j].ID()
	})
}

// Budget bundles the execution limits for Run. Zero fields take the
// defaults.
type Budget struct {
	Soft      time.Duration
	MaxIssues int
}

// Report describes one rule execution over one block.
type Report struct {
	Issues    []Issue
	Duration  time.Duration
	Slow      bool
	Recovered bool
	Truncated bool
}

// Run executes one rule over one block with the package's failure
// semantics: a panic is recovered and logged with the rule id and the
// last marked sentence index, and analysis continues without the rule's
// issues; a rule over the soft budget finishes but is reported slow; the
// issue list is capped.
func Run(ctx context.Context, rule Rule, in *Input, budget Budget, log *slog.Logger) (rep Report) {
	if budget.Soft <= 0 {
		budget.Soft = DefaultSoftBudget
	}
	if budget.MaxIssues <= 0 {
		budget.MaxIssues = DefaultMaxIssues
	}

	started := time.Now()
	defer func() {
		rep.Duration = time.Since(started)
		rep.Slow = rep.Duration > budget.Soft

		if rec := recover(); rec != nil {
			rep.Recovered = true
			rep.Issues = nil
			if log != nil {
				log.Error("rule panicked",
					"rule_id", rule.ID(),
					"block_id", in.Block.ID,
					"sentence_index", in.LastSentence(),
					"panic", fmt.Sprint(rec))
			}
		}
	}()

	issues := rule.Analyze(ctx, in)
	if len(issues) > budget.MaxIssues {
		issues = issues[:budget.MaxIssues]
		rep.Truncated = true
		if log != nil {
			log.Warn("rule issue cap reached",
				"rule_id", rule.ID(),
				"block_id", in.Block.ID,
				"cap", budget.MaxIssues)
		}
	}
	rep.Issues = issues
	return rep
}
