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
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce batches rapid editor writes into one reload.
const DefaultDebounce = 100 * time.Millisecond

// Watcher invalidates and reloads a Loader when config files change on
// disk.
//
// Description:
//
//	fsnotify events for the three config files are collected into a
//	debounce window; when the window closes the loader's cache is
//	invalidated and a reload attempted. A failed reload keeps the last
//	good snapshot per the loader's contract.
//
// Thread Safety: safe for concurrent use. Stop is idempotent.
type Watcher struct {
	loader   *Loader
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      *slog.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce changes the debounce window.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(log *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.log = log }
}

// Watch starts watching the loader's directory. The returned Watcher
// must be stopped to release the inotify handle.
func Watch(loader *Loader, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(loader.dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		loader:   loader,
		watcher:  fsw,
		debounce: DefaultDebounce,
		log:      slog.Default(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	go w.run()
	return w, nil
}

// Stop ends the watch. Idempotent.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}

// configFile reports whether a path names one of the three config files.
func configFile(path string) bool {
	switch filepath.Base(path) {
	case WeightsFile, AnchorsFile, ThresholdsFile:
		return true
	}
	return false
}

func (w *Watcher) run() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !configFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watch error", "error", err)

		case <-timerC:
			timer = nil
			timerC = nil
			w.loader.Invalidate()
			if _, err := w.loader.Load(); err != nil {
				w.log.Error("config reload failed", "error", err)
			} else {
				w.log.Info("config reloaded", "dir", w.loader.dir)
			}
		}
	}
}
