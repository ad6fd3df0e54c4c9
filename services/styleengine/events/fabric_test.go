// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// collector gathers delivered events under a lock.
type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) handler(ev Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestFabric_OrderingPreserved(t *testing.T) {
	f := NewFabric()
	defer f.Close()

	c := &collector{}
	f.Subscribe("s1", ChannelProgress, c.handler)

	const n = 50
	for i := 0; i < n; i++ {
		f.Emit("s1", TypeProgressUpdate, ProgressData{Progress: i})
	}

	waitFor(t, func() bool { return len(c.snapshot()) == n })
	for i, ev := range c.snapshot() {
		if got := ev.Data.(ProgressData).Progress; got != i {
			t.Fatalf("event %d out of order: progress %d", i, got)
		}
	}
}

func TestFabric_AutoRegisterOnEmit(t *testing.T) {
	f := NewFabric()
	defer f.Close()

	f.Emit("fresh", TypeProgressUpdate, ProgressData{Progress: 10})

	found := false
	for _, id := range f.Sessions() {
		if id == "fresh" {
			found = true
		}
	}
	if !found {
		t.Error("expected emit to auto-register the session")
	}
}

func TestFabric_ChannelRouting(t *testing.T) {
	f := NewFabric()
	defer f.Close()

	progress := &collector{}
	completion := &collector{}
	f.Subscribe("s1", ChannelProgress, progress.handler)
	f.Subscribe("s1", ChannelCompletion, completion.handler)

	f.Emit("s1", TypeProgressUpdate, ProgressData{Progress: 40})
	f.Emit("s1", TypeAnalysisComplete, nil)

	waitFor(t, func() bool {
		return len(progress.snapshot()) == 1 && len(completion.snapshot()) == 1
	})
	if progress.snapshot()[0].Type != TypeProgressUpdate {
		t.Error("progress channel received the wrong event")
	}
	if completion.snapshot()[0].Type != TypeAnalysisComplete {
		t.Error("completion channel received the wrong event")
	}
}

func TestFabric_Broadcast(t *testing.T) {
	f := NewFabric()
	defer f.Close()

	a, b := &collector{}, &collector{}
	f.Subscribe("a", ChannelConfidence, a.handler)
	f.Subscribe("b", ChannelConfidence, b.handler)

	f.BroadcastThresholdChange(0.5, "a")

	waitFor(t, func() bool {
		return len(a.snapshot()) == 1 && len(b.snapshot()) == 1
	})
	data := b.snapshot()[0].Data.(ThresholdChangedData)
	if data.NewThreshold != 0.5 || data.ChangedBySessionID != "a" {
		t.Errorf("unexpected broadcast payload: %+v", data)
	}
	if got := b.snapshot()[0].SessionID; got != "b" {
		t.Errorf("broadcast should carry the receiving session id, got %q", got)
	}
}

func TestFabric_DropOldestProgressUnderPressure(t *testing.T) {
	f := NewFabric(WithQueueSize(4))
	defer f.Close()

	// The first event parks the dispatcher inside the handler so the
	// queue deterministically backs up behind it.
	release := make(chan struct{})
	var once sync.Once
	started := make(chan struct{})
	progress := &collector{}
	completion := &collector{}
	f.Subscribe("s1", ChannelProgress, func(ev Event) {
		once.Do(func() { close(started); <-release })
		progress.handler(ev)
	})
	f.Subscribe("s1", ChannelCompletion, completion.handler)

	f.Emit("s1", TypeProgressUpdate, ProgressData{Progress: 0})
	<-started
	for i := 1; i <= 20; i++ {
		f.Emit("s1", TypeProgressUpdate, ProgressData{Progress: i})
	}
	f.Emit("s1", TypeAnalysisComplete, nil)

	if f.Dropped("s1") == 0 {
		t.Error("expected drops under queue pressure")
	}
	close(release)

	waitFor(t, func() bool { return len(completion.snapshot()) == 1 })
	if completion.snapshot()[0].Type != TypeAnalysisComplete {
		t.Error("completion event must survive queue pressure")
	}
}

func TestFabric_CompletionNeverDropped(t *testing.T) {
	f := NewFabric(WithQueueSize(2))
	defer f.Close()

	release := make(chan struct{})
	var once sync.Once
	started := make(chan struct{})
	c := &collector{}
	f.Subscribe("s1", ChannelCompletion, func(ev Event) {
		once.Do(func() { close(started); <-release })
		c.handler(ev)
	})

	f.Emit("s1", TypeAnalysisComplete, 0)
	<-started
	// Four more completions exceed the queue bound; none may be shed.
	for i := 1; i < 5; i++ {
		f.Emit("s1", TypeAnalysisComplete, i)
	}
	close(release)

	waitFor(t, func() bool { return len(c.snapshot()) == 5 })
	if f.Dropped("s1") != 0 {
		t.Errorf("completions were dropped: %d", f.Dropped("s1"))
	}
}

func TestFabric_SubscriberPanicIsolated(t *testing.T) {
	f := NewFabric()
	defer f.Close()

	c := &collector{}
	f.Subscribe("s1", ChannelProgress, func(Event) { panic("boom") })
	f.Subscribe("s1", ChannelProgress, c.handler)

	f.Emit("s1", TypeProgressUpdate, ProgressData{Progress: 1})
	f.Emit("s1", TypeProgressUpdate, ProgressData{Progress: 2})

	waitFor(t, func() bool { return len(c.snapshot()) == 2 })
}

func TestFabric_Unsubscribe(t *testing.T) {
	f := NewFabric()
	defer f.Close()

	c := &collector{}
	id := f.Subscribe("s1", ChannelProgress, c.handler)
	if !f.Unsubscribe("s1", id) {
		t.Fatal("expected unsubscribe to succeed")
	}
	if f.Unsubscribe("s1", id) {
		t.Error("second unsubscribe should report false")
	}

	f.Emit("s1", TypeProgressUpdate, nil)
	time.Sleep(20 * time.Millisecond)
	if len(c.snapshot()) != 0 {
		t.Error("unsubscribed handler still received events")
	}
}

func TestFabric_UnregisterDrainsQueue(t *testing.T) {
	f := NewFabric()

	c := &collector{}
	f.Subscribe("s1", ChannelProgress, c.handler)
	for i := 0; i < 10; i++ {
		f.Emit("s1", TypeProgressUpdate, ProgressData{Progress: i})
	}
	f.Unregister("s1")

	if got := len(c.snapshot()); got != 10 {
		t.Errorf("expected all 10 events delivered before unregister returned, got %d", got)
	}
	f.Close()
}

func TestEvent_JSONSerializable(t *testing.T) {
	ev := Event{
		ID:        "e1",
		SessionID: "s1",
		Type:      TypeStationProgress,
		Timestamp: time.Now(),
		Data: StationProgressData{
			BlockID: "block-3",
			Station: "urgent_grammar",
			Status:  "processing",
			Pass:    1,
		},
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	for _, key := range []string{"session_id", "timestamp", "event_type", "data"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("serialized event missing %q", key)
		}
	}
}

func TestChannelOf(t *testing.T) {
	cases := map[Type]Channel{
		TypeProgressUpdate:          ChannelProgress,
		TypeStationProgress:         ChannelStationProgress,
		TypeAnalysisComplete:        ChannelCompletion,
		TypeBlockProcessingError:    ChannelCompletion,
		TypeFeedbackNotification:    ChannelFeedback,
		TypeThresholdChanged:        ChannelConfidence,
		TypeConfidenceInsights:      ChannelInsights,
	}
	for typ, want := range cases {
		if got := ChannelOf(typ); got != want {
			t.Errorf("ChannelOf(%s) = %s, want %s", typ, got, want)
		}
	}
}
