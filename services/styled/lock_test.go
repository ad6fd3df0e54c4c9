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
	"strings"
	"testing"
)

func TestProcessLock(t *testing.T) {
	dir := t.TempDir()

	t.Run("acquire and release", func(t *testing.T) {
		lock := newProcessLock(dir)
		if err := lock.Acquire(); err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		// Re-acquire by the holder is a no-op.
		if err := lock.Acquire(); err != nil {
			t.Fatalf("second Acquire: %v", err)
		}
		if err := lock.Release(); err != nil {
			t.Fatalf("Release: %v", err)
		}
		if err := lock.Release(); err != nil {
			t.Fatalf("repeat Release: %v", err)
		}
	})

	t.Run("second instance is refused", func(t *testing.T) {
		first := newProcessLock(dir)
		if err := first.Acquire(); err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		defer first.Release()

		second := newProcessLock(dir)
		err := second.Acquire()
		if err == nil {
			second.Release()
			t.Fatal("expected second Acquire to fail")
		}
		if !strings.Contains(err.Error(), "another styled instance") {
			t.Errorf("error = %v, want instance-held message", err)
		}
	})

	t.Run("lock frees after release", func(t *testing.T) {
		first := newProcessLock(dir)
		if err := first.Acquire(); err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		if err := first.Release(); err != nil {
			t.Fatalf("Release: %v", err)
		}

		second := newProcessLock(dir)
		if err := second.Acquire(); err != nil {
			t.Fatalf("Acquire after release: %v", err)
		}
		second.Release()
	})
}
