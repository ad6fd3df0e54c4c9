// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTTL is how long a loaded file is trusted before the loader
// re-checks its content hash.
const DefaultTTL = 300 * time.Second

// Dir resolves the config directory: CONFIG_DIR or ./config.
func Dir() string {
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return dir
	}
	return "./config"
}

// cachedFile tracks one config file's freshness.
type cachedFile struct {
	hash    string
	expires time.Time
}

// Loader merges defaults, YAML files, and environment overrides into
// immutable snapshots.
//
// Thread Safety: safe for concurrent use. Snapshot reads are lock-free.
type Loader struct {
	dir string
	ttl time.Duration
	log *slog.Logger

	mu    sync.Mutex
	files map[string]cachedFile

	snapshot atomic.Pointer[Snapshot]

	// onReload is called after a successful swap to a new snapshot.
	onReload atomic.Pointer[func(*Snapshot)]
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithTTL changes the file trust window. Non-positive keeps the default.
func WithTTL(ttl time.Duration) LoaderOption {
	return func(l *Loader) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithLoaderLogger sets the loader's logger.
func WithLoaderLogger(log *slog.Logger) LoaderOption {
	return func(l *Loader) { l.log = log }
}

// NewLoader builds a loader rooted at dir. No file is read until Load.
func NewLoader(dir string, opts ...LoaderOption) *Loader {
	l := &Loader{
		dir:   dir,
		ttl:   DefaultTTL,
		log:   slog.Default(),
		files: make(map[string]cachedFile),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads, merges, and validates all config layers.
//
// Description:
//
//	At startup (no prior snapshot) any error is fatal and returned.
//	On reload an error keeps the last good snapshot: the error is
//	logged and the previous snapshot returned, so a broken edit on
//	disk never takes the engine down.
func (l *Loader) Load() (*Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap, err := l.build()
	if err != nil {
		if prev := l.snapshot.Load(); prev != nil {
			l.log.Error("config reload failed, keeping last good snapshot", "error", err)
			return prev, nil
		}
		return nil, err
	}

	prev := l.snapshot.Load()
	l.snapshot.Store(snap)
	if prev == nil || prev.Fingerprint != snap.Fingerprint {
		if fn := l.onReload.Load(); fn != nil {
			(*fn)(snap)
		}
	}
	return snap, nil
}

// Snapshot returns the current snapshot, loading on first use.
func (l *Loader) Snapshot() (*Snapshot, error) {
	if snap := l.snapshot.Load(); snap != nil && l.fresh() {
		return snap, nil
	}
	return l.Load()
}

// Current returns the last good snapshot without touching disk, or nil
// when nothing has loaded yet.
func (l *Loader) Current() *Snapshot {
	return l.snapshot.Load()
}

// OnReload registers the single reload callback, invoked after every
// successful swap to a snapshot with a new fingerprint.
func (l *Loader) OnReload(fn func(*Snapshot)) {
	l.onReload.Store(&fn)
}

// Invalidate forgets file freshness so the next access re-reads disk.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	l.files = make(map[string]cachedFile)
	l.mu.Unlock()
}

// fresh reports whether every known file is inside its TTL.
func (l *Loader) fresh() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	for _, f := range l.files {
		if now.After(f.expires) {
			return false
		}
	}
	return len(l.files) > 0
}

// build assembles one snapshot from defaults, disk, and environment.
// Caller holds l.mu.
func (l *Loader) build() (*Snapshot, error) {
	weights := DefaultWeights()
	anchors := DefaultAnchors()
	thresholds := DefaultThresholds()

	sum := sha256.New()

	if err := l.readLayer(WeightsFile, &weights, sum); err != nil {
		return nil, err
	}
	if err := validateWeights(weights); err != nil {
		return nil, err
	}

	if err := l.readLayer(AnchorsFile, &anchors, sum); err != nil {
		return nil, err
	}
	if err := validateAnchors(anchors); err != nil {
		return nil, err
	}

	if err := l.readLayer(ThresholdsFile, &thresholds, sum); err != nil {
		return nil, err
	}
	applyEnv(&thresholds)
	if err := validateThresholds(thresholds); err != nil {
		return nil, err
	}

	fmt.Fprintf(sum, "|threshold=%g", thresholds.UniversalThreshold)

	return &Snapshot{
		Weights:     weights,
		Anchors:     anchors,
		Thresholds:  thresholds,
		Fingerprint: hex.EncodeToString(sum.Sum(nil))[:16],
	}, nil
}

// readLayer merges one YAML file over the defaults already in out. A
// missing file is not an error: the defaults stand.
func (l *Loader) readLayer(name string, out any, sum interface{ Write([]byte) (int, error) }) error {
	path := filepath.Join(l.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			l.files[name] = cachedFile{expires: time.Now().Add(l.ttl)}
			return nil
		}
		return &LoadError{File: name, Err: err}
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return &LoadError{File: name, Err: err}
	}

	h := sha256.Sum256(data)
	l.files[name] = cachedFile{
		hash:    hex.EncodeToString(h[:]),
		expires: time.Now().Add(l.ttl),
	}
	sum.Write(data)
	return nil
}

// applyEnv overlays environment overrides onto the thresholds layer.
func applyEnv(t *ThresholdsConfig) {
	if v := os.Getenv("CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f < 1 {
			t.UniversalThreshold = f
		}
	}
}

// AnalysisWorkers resolves the analysis pool size: MAX_ANALYSIS_WORKERS
// or fallback.
func AnalysisWorkers(fallback int) int {
	return envInt("MAX_ANALYSIS_WORKERS", fallback)
}

// RewriteWorkers resolves the rewrite pool size: MAX_REWRITE_WORKERS or
// fallback.
func RewriteWorkers(fallback int) int {
	return envInt("MAX_REWRITE_WORKERS", fallback)
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
