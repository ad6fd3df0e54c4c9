// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates the engine's YAML configuration.
//
// Description:
//
//	Three files live in the config directory: confidence_weights.yaml
//	(weight mixes, rule reliability, content modifiers),
//	linguistic_anchors.yaml (context pattern groups), and
//	validation_thresholds.yaml (the universal threshold and performance
//	knobs). Each layer merges over built-in defaults, then environment
//	variables override the result. Every layer is validated; a reload
//	that fails keeps the last good snapshot.
//
// Thread Safety:
//
//	Snapshots are immutable. The Loader swaps an atomic pointer on
//	reload; readers never block writers.
package config

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/confidence"
)

// Config file names within the config directory.
const (
	WeightsFile    = "confidence_weights.yaml"
	AnchorsFile    = "linguistic_anchors.yaml"
	ThresholdsFile = "validation_thresholds.yaml"
)

// Sentinel errors for programmatic checks.
var (
	// ErrLoad marks a config file that could not be read or parsed.
	ErrLoad = errors.New("configuration load error")

	// ErrValidation marks a config file whose content is invalid.
	ErrValidation = errors.New("configuration validation error")
)

// LoadError wraps a file read or parse failure.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s: %v", e.File, e.Err)
}

func (e *LoadError) Unwrap() error { return ErrLoad }

// ValidationError wraps a semantic config failure.
type ValidationError struct {
	File   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validating %s: %s: %s", e.File, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// WeightsConfig is the YAML shape of confidence_weights.yaml.
type WeightsConfig struct {
	// Default is the weight mix used when no override matches.
	Default confidence.WeightMix `yaml:"default"`

	// Rules overrides the mix per rule id.
	Rules map[string]confidence.WeightMix `yaml:"rules"`

	// ContentTypes overrides the mix per content type.
	ContentTypes map[string]confidence.WeightMix `yaml:"content_types"`

	// Reliability is the per-rule reliability table, merged over the
	// built-in defaults.
	Reliability map[string]float64 `yaml:"reliability"`

	// Modifiers is the (content type -> category -> multiplier) matrix,
	// merged over the built-in defaults. Values stay in [0.5, 1.5].
	Modifiers map[string]map[string]float64 `yaml:"modifiers"`
}

// MixFor resolves the weight mix for a (rule id, content type) pair:
// rule override, then content-type override, then the default.
func (w WeightsConfig) MixFor(ruleID, contentType string) confidence.WeightMix {
	if mix, ok := w.Rules[ruleID]; ok {
		return mix
	}
	if mix, ok := w.ContentTypes[contentType]; ok {
		return mix
	}
	return w.Default
}

// AnchorGroup is one named pattern in linguistic_anchors.yaml.
type AnchorGroup struct {
	Name    string  `yaml:"name"`
	Pattern string  `yaml:"pattern"`
	Weight  float64 `yaml:"weight"`
	Window  int     `yaml:"window"`
}

// AnchorsConfig is the YAML shape of linguistic_anchors.yaml.
type AnchorsConfig struct {
	// MaxBoost caps the combined positive adjustment.
	MaxBoost float64 `yaml:"max_boost"`

	// MaxPenalty caps the combined negative adjustment.
	MaxPenalty float64 `yaml:"max_penalty"`

	// Groups are the pattern groups. An empty list keeps the built-ins.
	Groups []AnchorGroup `yaml:"groups"`
}

// Compile turns the config into an AnchorSet. Patterns were validated
// at load time; a nil return means the built-in set should be used.
func (a AnchorsConfig) Compile() *confidence.AnchorSet {
	if len(a.Groups) == 0 {
		return nil
	}
	anchors := make([]confidence.Anchor, 0, len(a.Groups))
	for _, g := range a.Groups {
		re, err := regexp.Compile(g.Pattern)
		if err != nil {
			continue
		}
		anchors = append(anchors, confidence.Anchor{
			Name:    g.Name,
			Pattern: re,
			Weight:  g.Weight,
			Window:  g.Window,
		})
	}
	return confidence.NewAnchorSet(anchors, a.MaxBoost, a.MaxPenalty)
}

// ThresholdsConfig is the YAML shape of validation_thresholds.yaml.
type ThresholdsConfig struct {
	// UniversalThreshold separates user-visible issues from suppressed
	// ones. In (0, 1).
	UniversalThreshold float64 `yaml:"universal_threshold"`

	// CacheSize bounds the confidence score cache.
	CacheSize int `yaml:"cache_size"`

	// CacheTTLSeconds expires cached scores.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`

	// RuleSoftBudgetMS marks rules slower than this in diagnostics.
	RuleSoftBudgetMS int `yaml:"rule_soft_budget_ms"`

	// MaxIssuesPerRule caps issues per (block, rule).
	MaxIssuesPerRule int `yaml:"max_issues_per_rule"`

	// BlockTimeoutSeconds is the per-block soft timeout during analysis.
	BlockTimeoutSeconds int `yaml:"block_timeout_seconds"`

	// StationTimeoutSeconds bounds one rewrite station.
	StationTimeoutSeconds int `yaml:"station_timeout_seconds"`

	// JobTimeoutSeconds bounds one whole rewrite job.
	JobTimeoutSeconds int `yaml:"job_timeout_seconds"`

	// MaxStations caps the assembly line length.
	MaxStations int `yaml:"max_stations"`
}

// DefaultWeights returns the built-in confidence_weights layer.
func DefaultWeights() WeightsConfig {
	return WeightsConfig{
		Default:     confidence.DefaultWeightMix(),
		Reliability: confidence.DefaultReliability(),
		Modifiers:   confidence.DefaultModifiers(),
	}
}

// DefaultAnchors returns the built-in linguistic_anchors layer.
func DefaultAnchors() AnchorsConfig {
	return AnchorsConfig{
		MaxBoost:   confidence.DefaultMaxBoost,
		MaxPenalty: confidence.DefaultMaxPenalty,
	}
}

// DefaultThresholds returns the built-in validation_thresholds layer.
func DefaultThresholds() ThresholdsConfig {
	return ThresholdsConfig{
		UniversalThreshold:    confidence.DefaultThreshold,
		CacheSize:             1000,
		CacheTTLSeconds:       300,
		RuleSoftBudgetMS:      250,
		MaxIssuesPerRule:      500,
		BlockTimeoutSeconds:   10,
		StationTimeoutSeconds: 30,
		JobTimeoutSeconds:     120,
		MaxStations:           8,
	}
}

// Snapshot is one immutable, validated view of the full configuration.
type Snapshot struct {
	Weights    WeightsConfig
	Anchors    AnchorsConfig
	Thresholds ThresholdsConfig

	// Fingerprint is the SHA-256 over the merged content, carried on
	// analysis results so a result can be tied to the config that
	// produced it.
	Fingerprint string
}

// validateWeights checks confidence_weights semantics.
func validateWeights(w WeightsConfig) error {
	if !w.Default.Valid() {
		return &ValidationError{File: WeightsFile, Field: "default",
			Reason: fmt.Sprintf("facet weights sum to %.4f, want 1.0", w.Default.Sum())}
	}
	for id, mix := range w.Rules {
		if !mix.Valid() {
			return &ValidationError{File: WeightsFile, Field: "rules." + id,
				Reason: fmt.Sprintf("facet weights sum to %.4f, want 1.0", mix.Sum())}
		}
	}
	for ct, mix := range w.ContentTypes {
		if !mix.Valid() {
			return &ValidationError{File: WeightsFile, Field: "content_types." + ct,
				Reason: fmt.Sprintf("facet weights sum to %.4f, want 1.0", mix.Sum())}
		}
	}
	for id, r := range w.Reliability {
		if r < 0 || r > 1 {
			return &ValidationError{File: WeightsFile, Field: "reliability." + id,
				Reason: fmt.Sprintf("%.4f outside [0, 1]", r)}
		}
	}
	for ct, row := range w.Modifiers {
		for cat, m := range row {
			if m < 0.5 || m > 1.5 {
				return &ValidationError{File: WeightsFile,
					Field:  fmt.Sprintf("modifiers.%s.%s", ct, cat),
					Reason: fmt.Sprintf("%.4f outside [0.5, 1.5]", m)}
			}
		}
	}
	return nil
}

// validateAnchors checks linguistic_anchors semantics, including that
// every pattern compiles.
func validateAnchors(a AnchorsConfig) error {
	if a.MaxBoost < 0 || a.MaxBoost > 1 {
		return &ValidationError{File: AnchorsFile, Field: "max_boost",
			Reason: fmt.Sprintf("%.4f outside [0, 1]", a.MaxBoost)}
	}
	if a.MaxPenalty < 0 || a.MaxPenalty > 1 {
		return &ValidationError{File: AnchorsFile, Field: "max_penalty",
			Reason: fmt.Sprintf("%.4f outside [0, 1]", a.MaxPenalty)}
	}
	for i, g := range a.Groups {
		if g.Name == "" {
			return &ValidationError{File: AnchorsFile,
				Field: fmt.Sprintf("groups[%d].name", i), Reason: "required"}
		}
		if _, err := regexp.Compile(g.Pattern); err != nil {
			return &ValidationError{File: AnchorsFile,
				Field: fmt.Sprintf("groups[%d].pattern", i), Reason: err.Error()}
		}
		if g.Window <= 0 {
			return &ValidationError{File: AnchorsFile,
				Field: fmt.Sprintf("groups[%d].window", i), Reason: "must be positive"}
		}
	}
	return nil
}

// validateThresholds checks validation_thresholds semantics.
func validateThresholds(t ThresholdsConfig) error {
	if t.UniversalThreshold <= 0 || t.UniversalThreshold >= 1 {
		return &ValidationError{File: ThresholdsFile, Field: "universal_threshold",
			Reason: fmt.Sprintf("%.4f outside (0, 1)", t.UniversalThreshold)}
	}
	if t.CacheSize < 0 {
		return &ValidationError{File: ThresholdsFile, Field: "cache_size",
			Reason: "must not be negative"}
	}
	if t.MaxStations < 1 || t.MaxStations > 16 {
		return &ValidationError{File: ThresholdsFile, Field: "max_stations",
			Reason: fmt.Sprintf("%d outside [1, 16]", t.MaxStations)}
	}
	for field, v := range map[string]int{
		"cache_ttl_seconds":       t.CacheTTLSeconds,
		"rule_soft_budget_ms":     t.RuleSoftBudgetMS,
		"max_issues_per_rule":     t.MaxIssuesPerRule,
		"block_timeout_seconds":   t.BlockTimeoutSeconds,
		"station_timeout_seconds": t.StationTimeoutSeconds,
		"job_timeout_seconds":     t.JobTimeoutSeconds,
	} {
		if v <= 0 {
			return &ValidationError{File: ThresholdsFile, Field: field,
				Reason: "must be positive"}
		}
	}
	return nil
}
