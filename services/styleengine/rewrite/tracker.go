// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rewrite

import (
	"fmt"
	"sync"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/events"
)

// StationState is one station's position in its forward-only lifecycle.
type StationState string

// Station states. Transitions only move rightward:
// pending -> processing -> {complete, error, cancelled}.
const (
	StatePending    StationState = "pending"
	StateProcessing StationState = "processing"
	StateComplete   StationState = "complete"
	StateError      StationState = "error"
	StateCancelled  StationState = "cancelled"
)

func (s StationState) terminal() bool {
	switch s {
	case StateComplete, StateError, StateCancelled:
		return true
	}
	return false
}

// Tracker is one rewrite job's progress authority.
//
// Description:
//
//	All state transitions and all event emission happen under a single
//	mutex, so subscribers observe monotonic, ordered progress.
//	OverallPercent is computed as
//	((completed_passes + in_pass_progress) / total_passes) * 100 with
//	in_pass_progress = (stations_done + 0.5*in_flight) / stations_in_pass,
//	and never decreases during a job.
type Tracker struct {
	mu sync.Mutex

	sink      events.Sink
	sessionID string
	blockID   string

	totalPasses     int
	completedPasses int
	pass            int

	stationsInPass int
	stationsDone   int
	inFlight       int

	states      map[string]StationState
	errorsFixed int
	lastPercent int
	cancelled   bool
}

// NewTracker builds a tracker for one job. The sink may be nil.
func NewTracker(sink events.Sink, sessionID, blockID string, totalPasses int) *Tracker {
	if totalPasses < 1 {
		totalPasses = 1
	}
	return &Tracker{
		sink:        sink,
		sessionID:   sessionID,
		blockID:     blockID,
		totalPasses: totalPasses,
		states:      make(map[string]StationState),
	}
}

// StartPass opens pass n over the given stations.
func (t *Tracker) StartPass(n int, stations []Station) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pass = n
	t.stationsInPass = len(stations)
	t.stationsDone = 0
	t.inFlight = 0
	t.states = make(map[string]StationState, len(stations))
	for _, s := range stations {
		t.states[s.ID] = StatePending
	}
	t.emitLocked("", "pass_started", "")
}

// CompletePass closes pass n.
func (t *Tracker) CompletePass(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n > t.completedPasses {
		t.completedPasses = n
	}
	t.stationsDone = 0
	t.stationsInPass = 0
	t.inFlight = 0
	t.emitLocked("", "pass_complete", "")
}

// SkipRemainingPasses shrinks the percent basis to the passes actually
// run, so a job whose later passes turn out unnecessary still reports
// 100 from the tracker itself.
func (t *Tracker) SkipRemainingPasses(completed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if completed < 1 {
		completed = 1
	}
	if completed >= t.totalPasses {
		return
	}
	t.totalPasses = completed
	t.emitLocked("", "pass_skipped", "remaining passes not needed")
}

// StartStation transitions a station to processing.
func (t *Tracker) StartStation(id, name string, errorCount int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.states[id] != StatePending {
		return
	}
	t.states[id] = StateProcessing
	t.inFlight++
	t.emitLocked(id, string(StateProcessing),
		fmt.Sprintf("%s: %d issues", name, errorCount))
}

// UpdateStation reports sub-progress for a processing station.
func (t *Tracker) UpdateStation(id string, subProgress float64, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.states[id] != StateProcessing {
		return
	}
	if subProgress > 0 {
		message = fmt.Sprintf("%s (%.0f%%)", message, subProgress*100)
	}
	t.emitLocked(id, string(StateProcessing), message)
}

// CompleteStation transitions a station to complete.
func (t *Tracker) CompleteStation(id string, errorsFixed int, preview string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.states[id] != StateProcessing {
		return
	}
	t.states[id] = StateComplete
	t.inFlight--
	t.stationsDone++
	t.errorsFixed += errorsFixed
	t.emitPreviewLocked(id, string(StateComplete), preview)
}

// RecordError transitions a station to error. An empty station id
// records a job-level failure without touching station state.
func (t *Tracker) RecordError(err error, stationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if stationID != "" {
		if st := t.states[stationID]; !st.terminal() {
			t.states[stationID] = StateError
			if st == StateProcessing {
				t.inFlight--
			}
			t.stationsDone++
		}
	}
	t.emitLocked(stationID, string(StateError), err.Error())
}

// Cancel transitions every non-terminal station to cancelled and marks
// the job cancelled.
func (t *Tracker) Cancel(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return
	}
	t.cancelled = true
	for id, st := range t.states {
		if !st.terminal() {
			t.states[id] = StateCancelled
		}
	}
	t.inFlight = 0
	t.emitLocked("", string(StateCancelled), reason)
}

// Cancelled reports whether the job was cancelled.
func (t *Tracker) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// StationStates returns a copy of the current station states.
func (t *Tracker) StationStates() map[string]StationState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]StationState, len(t.states))
	for id, st := range t.states {
		out[id] = st
	}
	return out
}

// ErrorsFixed returns the job-wide fixed-error count.
func (t *Tracker) ErrorsFixed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errorsFixed
}

// OverallPercent returns job progress in [0, 100], monotonic
// non-decreasing.
func (t *Tracker) OverallPercent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percentLocked()
}

func (t *Tracker) percentLocked() int {
	inPass := 0.0
	if t.stationsInPass > 0 {
		inPass = (float64(t.stationsDone) + 0.5*float64(t.inFlight)) / float64(t.stationsInPass)
	}
	p := int((float64(t.completedPasses) + inPass) / float64(t.totalPasses) * 100)
	if p > 100 {
		p = 100
	}
	if p < t.lastPercent {
		return t.lastPercent
	}
	t.lastPercent = p
	return p
}

func (t *Tracker) emitLocked(stationID, status, message string) {
	if t.sink == nil || t.sessionID == "" {
		return
	}
	t.sink.Emit(t.sessionID, events.TypeStationProgress, events.StationProgressData{
		BlockID:  t.blockID,
		Station:  stationID,
		Status:   status,
		Pass:     t.pass,
		Progress: t.percentLocked(),
		Message:  message,
	})
}

func (t *Tracker) emitPreviewLocked(stationID, status, preview string) {
	if t.sink == nil || t.sessionID == "" {
		return
	}
	t.sink.Emit(t.sessionID, events.TypeStationProgress, events.StationProgressData{
		BlockID:     t.blockID,
		Station:     stationID,
		Status:      status,
		Pass:        t.pass,
		Progress:    t.percentLocked(),
		ErrorsFixed: t.errorsFixed,
		PreviewText: preview,
	})
}
