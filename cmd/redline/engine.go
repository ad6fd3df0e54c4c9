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
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/analyzer"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/confidence"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/config"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/events"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/nlp"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rewrite"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules/builtin"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/transform"
)

// engine bundles the in-process analysis pipeline the CLI commands
// share.
type engine struct {
	analyzer *analyzer.Analyzer
	rewriter *rewrite.Rewriter
	fabric   *events.Fabric
	snapshot *config.Snapshot
}

// buildEngine wires the style engine the same way the styled service
// does, minus the stores and telemetry the CLI does not need.
func buildEngine(dir string) (*engine, error) {
	if dir == "" {
		dir = config.Dir()
	}
	loader := config.NewLoader(dir)
	snap, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	registry := rules.NewRegistry()
	if err := builtin.Register(registry, builtin.Settings{}); err != nil {
		return nil, fmt.Errorf("registering rules: %w", err)
	}

	pipeline := confidence.New(
		confidence.WithThreshold(snap.Thresholds.UniversalThreshold),
		confidence.WithReliability(snap.Weights.Reliability),
		confidence.WithModifiers(snap.Weights.Modifiers),
		confidence.WithAnchors(snap.Anchors.Compile()),
		confidence.WithCache(snap.Thresholds.CacheSize,
			time.Duration(snap.Thresholds.CacheTTLSeconds)*time.Second),
	)
	toolkit := nlp.FromEnv()
	fabric := events.NewFabric()

	an := analyzer.New(registry, pipeline, toolkit,
		analyzer.WithSink(fabric),
		analyzer.WithWorkers(config.AnalysisWorkers(runtime.NumCPU())),
		analyzer.WithFingerprint(func() string { return snap.Fingerprint }),
	)

	line, err := rewrite.NewStationLine(rewrite.DefaultStations(), snap.Thresholds.MaxStations)
	if err != nil {
		return nil, fmt.Errorf("building station line: %w", err)
	}
	transformer, err := transform.FromEnv(slog.Default())
	if err != nil {
		return nil, fmt.Errorf("configuring transform backend: %w", err)
	}
	rw := rewrite.NewRewriter(line, transformer,
		rewrite.NewRegistryChecker(registry, pipeline, toolkit),
		rewrite.WithSink(fabric),
	)

	return &engine{
		analyzer: an,
		rewriter: rw,
		fabric:   fabric,
		snapshot: snap,
	}, nil
}

func (e *engine) Close() {
	e.fabric.Close()
}

// readInput returns the document text from the named file, or stdin
// when args is empty.
func readInput(args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", args[0], err)
	}
	return string(data), nil
}
