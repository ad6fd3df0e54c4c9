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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// processLock is an advisory flock(2) guard keeping a second styled
// instance off the same data directories. The lock dies with the
// process, so a crash never leaves it stuck.
type processLock struct {
	lockPath string
	pidPath  string
	file     *os.File
	held     bool
}

func newProcessLock(dir string) *processLock {
	if dir == "" {
		dir = os.TempDir()
	}
	return &processLock{
		lockPath: filepath.Join(dir, "styled.lock"),
		pidPath:  filepath.Join(dir, "styled.pid"),
	}
}

// Acquire takes a non-blocking exclusive lock. When another instance
// holds it, the error names the holder's PID if known.
func (p *processLock) Acquire() error {
	if p.held {
		return nil
	}

	f, err := os.OpenFile(p.lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("creating lock file %s: %w", p.lockPath, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			if pid := p.holderPID(); pid > 0 {
				return fmt.Errorf("another styled instance is running (PID %d); "+
					"if this is stale, remove %s", pid, p.pidPath)
			}
			return fmt.Errorf("another styled instance is running (check: lsof %s)", p.lockPath)
		}
		return fmt.Errorf("acquiring lock: %w", err)
	}

	p.file = f
	p.held = true
	_ = os.WriteFile(p.pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644)
	return nil
}

// Release drops the lock. Safe to call when never acquired.
func (p *processLock) Release() error {
	if !p.held || p.file == nil {
		return nil
	}
	os.Remove(p.pidPath)
	err := unix.Flock(int(p.file.Fd()), unix.LOCK_UN)
	p.file.Close()
	p.file = nil
	p.held = false
	if err != nil {
		return fmt.Errorf("releasing lock: %w", err)
	}
	return nil
}

func (p *processLock) holderPID() int {
	data, err := os.ReadFile(p.pidPath)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
