// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Renderers display event-stream frames. They only render: reading and
// verifying frames is StreamReader's job.
package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// progressData mirrors the wire payload of progress_update frames.
type progressData struct {
	Step     string `json:"step"`
	Status   string `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Progress int    `json:"progress"`
}

// stationData mirrors the wire payload of station_progress_update frames.
type stationData struct {
	BlockID string `json:"block_id"`
	Station string `json:"station"`
	Status  string `json:"status"`
	Pass    int    `json:"pass"`
}

// StreamRenderer renders event frames to an output destination.
type StreamRenderer interface {
	// Render displays one frame. Implementations must tolerate frames
	// whose Data does not decode.
	Render(frame EventFrame)

	// Finish flushes any transient state (spinners) when the stream ends.
	Finish()
}

// NewStreamRenderer picks a renderer for the current personality.
func NewStreamRenderer() StreamRenderer {
	if GetPersonality().Level == PersonalityMachine {
		return &MachineStreamRenderer{Writer: os.Stdout}
	}
	return &TerminalStreamRenderer{}
}

// TerminalStreamRenderer shows a live spinner driven by progress frames.
type TerminalStreamRenderer struct {
	spinner *Spinner
}

func (r *TerminalStreamRenderer) Render(frame EventFrame) {
	switch frame.Type {
	case FrameProgress:
		var p progressData
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return
		}
		msg := fmt.Sprintf("%s %d%%", p.Step, p.Progress)
		if p.Detail != "" {
			msg = fmt.Sprintf("%s %d%% — %s", p.Step, p.Progress, p.Detail)
		}
		if r.spinner == nil {
			r.spinner = NewSpinner(msg)
			r.spinner.Start()
		} else {
			r.spinner.UpdateMessage(msg)
		}

	case FrameStationProgress:
		var s stationData
		if err := json.Unmarshal(frame.Data, &s); err != nil {
			return
		}
		if r.spinner != nil {
			r.spinner.UpdateMessage(fmt.Sprintf("station %s pass %d (%s)", s.Station, s.Pass, s.Status))
		}

	case FrameComplete:
		r.Finish()
		Success("analysis complete")

	case FrameFailed, FrameError:
		r.Finish()
		Error("analysis failed")

	case FrameThreshold:
		Info("confidence threshold changed")
	}
}

func (r *TerminalStreamRenderer) Finish() {
	if r.spinner != nil {
		r.spinner.Stop()
		r.spinner = nil
	}
}

// MachineStreamRenderer prints one KEY: value line per frame.
type MachineStreamRenderer struct {
	Writer io.Writer
}

func (r *MachineStreamRenderer) Render(frame EventFrame) {
	fmt.Fprintf(r.Writer, "EVENT: %s %s\n", frame.Type, frame.Data)
}

func (r *MachineStreamRenderer) Finish() {}

// BufferStreamRenderer collects frames in memory for tests.
type BufferStreamRenderer struct {
	mu     sync.Mutex
	frames []EventFrame
}

func (r *BufferStreamRenderer) Render(frame EventFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
}

func (r *BufferStreamRenderer) Finish() {}

// Frames returns a copy of everything rendered so far.
func (r *BufferStreamRenderer) Frames() []EventFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventFrame, len(r.frames))
	copy(out, r.frames)
	return out
}
