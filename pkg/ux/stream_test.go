// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

// chainFrames builds a valid hash-chained sequence of n frames.
func chainFrames(t *testing.T, n int) []EventFrame {
	t.Helper()
	frames := make([]EventFrame, 0, n)
	prev := ""
	for i := 0; i < n; i++ {
		data, err := json.Marshal(map[string]any{"progress": i * 10, "step": "rules", "status": "processing"})
		if err != nil {
			t.Fatalf("marshaling data: %v", err)
		}
		f := EventFrame{
			ID:        fmt.Sprintf("ev-%d", i),
			Type:      FrameProgress,
			SessionID: "s1",
			CreatedAt: int64(1700000000000 + i),
			Data:      data,
			PrevHash:  prev,
		}
		f.Hash = ComputeHash(f)
		prev = f.Hash
		frames = append(frames, f)
	}
	return frames
}

func sseBody(t *testing.T, frames []EventFrame) string {
	t.Helper()
	var b strings.Builder
	for _, f := range frames {
		payload, err := json.Marshal(f)
		if err != nil {
			t.Fatalf("marshaling frame: %v", err)
		}
		fmt.Fprintf(&b, "event: %s\ndata: %s\n\n", f.Type, payload)
	}
	return b.String()
}

func TestVerifyChain(t *testing.T) {
	t.Run("accepts a valid chain", func(t *testing.T) {
		if err := VerifyChain(chainFrames(t, 4)); err != nil {
			t.Fatalf("VerifyChain: %v", err)
		}
	})

	t.Run("accepts an empty chain", func(t *testing.T) {
		if err := VerifyChain(nil); err != nil {
			t.Fatalf("VerifyChain(nil): %v", err)
		}
	})

	t.Run("detects content tampering", func(t *testing.T) {
		frames := chainFrames(t, 3)
		frames[1].Data = json.RawMessage(`{"progress":99}`)
		var chainErr *ChainError
		if err := VerifyChain(frames); !errors.As(err, &chainErr) || chainErr.Index != 1 {
			t.Fatalf("VerifyChain = %v, want ChainError at index 1", err)
		}
	})

	t.Run("detects a dropped frame", func(t *testing.T) {
		frames := chainFrames(t, 3)
		frames = append(frames[:1], frames[2])
		var chainErr *ChainError
		if err := VerifyChain(frames); !errors.As(err, &chainErr) {
			t.Fatalf("VerifyChain = %v, want ChainError", err)
		}
	})
}

func TestStreamReader(t *testing.T) {
	t.Run("reads frames and skips comments", func(t *testing.T) {
		frames := chainFrames(t, 3)
		body := ": ping\n\n" + sseBody(t, frames[:2]) + ": ping\n\n" + sseBody(t, frames[2:])

		reader := NewStreamReader(strings.NewReader(body))
		var got []EventFrame
		for {
			f, err := reader.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			got = append(got, *f)
		}
		if len(got) != 3 {
			t.Fatalf("got %d frames, want 3", len(got))
		}
		if got[2].ID != "ev-2" {
			t.Errorf("last frame id = %q", got[2].ID)
		}
	})

	t.Run("rejects a tampered frame", func(t *testing.T) {
		frames := chainFrames(t, 2)
		body := sseBody(t, frames)
		body = strings.Replace(body, `"progress":0`, `"progress":77`, 1)

		reader := NewStreamReader(strings.NewReader(body))
		_, err := reader.Next()
		var chainErr *ChainError
		if !errors.As(err, &chainErr) {
			t.Fatalf("Next = %v, want ChainError", err)
		}
	})

	t.Run("process stops on handler EOF", func(t *testing.T) {
		frames := chainFrames(t, 5)
		reader := NewStreamReader(strings.NewReader(sseBody(t, frames)))

		seen := 0
		err := reader.Process(func(f EventFrame) error {
			seen++
			if seen == 2 {
				return io.EOF
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		if seen != 2 {
			t.Errorf("handler saw %d frames, want 2", seen)
		}
	})
}

func TestBufferStreamRenderer(t *testing.T) {
	frames := chainFrames(t, 3)
	r := &BufferStreamRenderer{}
	for _, f := range frames {
		r.Render(f)
	}
	r.Finish()
	if got := r.Frames(); len(got) != 3 {
		t.Fatalf("buffered %d frames, want 3", len(got))
	}
}
