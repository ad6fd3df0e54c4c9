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
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultQueueSize bounds each session's outbound queue.
const DefaultQueueSize = 256

// dropReportEvery controls how often a session emits its dropped-count
// diagnostic.
const dropReportEvery = 64

// Sink is the narrow emission capability held by producers (the
// analyzer, the rewriter, the feedback service). An empty session id
// broadcasts to every registered session.
type Sink interface {
	Emit(sessionID string, eventType Type, data any)
}

// Handler processes one event for a subscriber.
type Handler func(Event)

// Fabric is the process-wide session directory.
//
// Description:
//
//	Each session owns a bounded outbound queue drained by a single
//	dispatcher goroutine, which gives subscribers the per-producer
//	ordering guarantee: events enqueued by one producer arrive in
//	submission order. Under pressure the oldest droppable event is shed;
//	completion and error events are never dropped.
//
// Thread Safety: safe for concurrent use.
type Fabric struct {
	mu        sync.RWMutex
	sessions  map[string]*session
	queueSize int
	log       *slog.Logger
	closed    bool
}

// Option configures a Fabric.
type Option func(*Fabric)

// WithQueueSize bounds per-session queues. Values < 1 keep the default.
func WithQueueSize(n int) Option {
	return func(f *Fabric) {
		if n >= 1 {
			f.queueSize = n
		}
	}
}

// WithLogger sets the fabric's logger.
func WithLogger(log *slog.Logger) Option {
	return func(f *Fabric) { f.log = log }
}

// NewFabric builds an empty fabric.
func NewFabric(opts ...Option) *Fabric {
	f := &Fabric{
		sessions:  make(map[string]*session),
		queueSize: DefaultQueueSize,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// session is one registered client with its queue and subscriptions.
type session struct {
	id string

	mu      sync.Mutex
	queue   []Event
	wake    *sync.Cond
	subs    map[string]*subscription
	closed  bool
	dropped atomic.Int64

	done chan struct{}
}

type subscription struct {
	id      string
	channel Channel
	handler Handler
}

// Register creates the session if it does not exist. Idempotent.
func (f *Fabric) Register(sessionID string) {
	if sessionID == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.register(sessionID)
}

// register adds a session under f.mu.
func (f *Fabric) register(sessionID string) *session {
	if s, ok := f.sessions[sessionID]; ok {
		return s
	}
	s := &session{
		id:   sessionID,
		subs: make(map[string]*subscription),
		done: make(chan struct{}),
	}
	s.wake = sync.NewCond(&s.mu)
	f.sessions[sessionID] = s
	go s.dispatch(f.log)
	return s
}

// Unregister removes a session and stops its dispatcher. Queued events
// are delivered before the dispatcher exits.
func (f *Fabric) Unregister(sessionID string) {
	f.mu.Lock()
	s, ok := f.sessions[sessionID]
	if ok {
		delete(f.sessions, sessionID)
	}
	f.mu.Unlock()
	if ok {
		s.close()
	}
}

// Sessions lists registered session ids.
func (f *Fabric) Sessions() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.sessions))
	for id := range f.sessions {
		out = append(out, id)
	}
	return out
}

// Subscribe attaches a handler to one channel of a session,
// auto-registering the session. Returns the subscription id.
func (f *Fabric) Subscribe(sessionID string, channel Channel, handler Handler) string {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ""
	}
	s := f.register(sessionID)
	f.mu.Unlock()

	sub := &subscription{
		id:      uuid.NewString(),
		channel: channel,
		handler: handler,
	}
	s.mu.Lock()
	s.subs[sub.id] = sub
	s.mu.Unlock()
	return sub.id
}

// Unsubscribe detaches a subscription. Reports whether it existed.
func (f *Fabric) Unsubscribe(sessionID, subID string) bool {
	f.mu.RLock()
	s, ok := f.sessions[sessionID]
	f.mu.RUnlock()
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[subID]; !ok {
		return false
	}
	delete(s.subs, subID)
	return true
}

// Emit enqueues one event for a session, auto-registering unknown
// session ids. An empty session id broadcasts to every session.
func (f *Fabric) Emit(sessionID string, eventType Type, data any) {
	event := Event{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	if sessionID == "" {
		f.mu.RLock()
		targets := make([]*session, 0, len(f.sessions))
		for _, s := range f.sessions {
			targets = append(targets, s)
		}
		f.mu.RUnlock()
		for _, s := range targets {
			ev := event
			ev.SessionID = s.id
			s.enqueue(ev, f.queueSize, f.log)
		}
		return
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	s := f.register(sessionID)
	f.mu.Unlock()

	s.enqueue(event, f.queueSize, f.log)
}

// BroadcastThresholdChange announces a universal threshold change to
// every session.
func (f *Fabric) BroadcastThresholdChange(newThreshold float64, changedBy string) {
	f.Emit("", TypeThresholdChanged, ThresholdChangedData{
		NewThreshold:       newThreshold,
		ChangedBySessionID: changedBy,
	})
}

// Dropped returns the number of events shed for a session.
func (f *Fabric) Dropped(sessionID string) int64 {
	f.mu.RLock()
	s, ok := f.sessions[sessionID]
	f.mu.RUnlock()
	if !ok {
		return 0
	}
	return s.dropped.Load()
}

// Close unregisters every session and refuses further registration.
func (f *Fabric) Close() {
	f.mu.Lock()
	f.closed = true
	sessions := make([]*session, 0, len(f.sessions))
	for _, s := range f.sessions {
		sessions = append(sessions, s)
	}
	f.sessions = make(map[string]*session)
	f.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}

// enqueue appends the event, shedding the oldest droppable event when
// the queue is full. Non-droppable events always enter the queue.
func (s *session) enqueue(event Event, limit int, log *slog.Logger) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	if len(s.queue) >= limit {
		if i := s.oldestDroppable(); i >= 0 {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			s.recordDrop(log)
		} else if droppable(event.Type) {
			// Queue full of terminal events; the newcomer loses.
			s.recordDrop(log)
			s.mu.Unlock()
			return
		}
	}

	s.queue = append(s.queue, event)
	s.wake.Signal()
	s.mu.Unlock()
}

// oldestDroppable returns the index of the first droppable queued event,
// or -1. Caller holds s.mu.
func (s *session) oldestDroppable() int {
	for i, ev := range s.queue {
		if droppable(ev.Type) {
			return i
		}
	}
	return -1
}

// recordDrop counts a shed event and schedules the periodic diagnostic.
// Caller holds s.mu.
func (s *session) recordDrop(log *slog.Logger) {
	n := s.dropped.Add(1)
	if n%dropReportEvery != 0 {
		return
	}
	log.Warn("session queue shedding events", "session_id", s.id, "dropped", n)
	s.queue = append(s.queue, Event{
		ID:        uuid.NewString(),
		SessionID: s.id,
		Type:      TypeQueueDiagnostic,
		Timestamp: time.Now(),
		Data:      QueueDiagnosticData{Dropped: n},
	})
}

// dispatch drains the queue in order, invoking matching subscribers with
// panic recovery. Exits once the session closes and the queue is empty.
func (s *session) dispatch(log *slog.Logger) {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.wake.Wait()
		}
		if len(s.queue) == 0 && s.closed {
			s.mu.Unlock()
			close(s.done)
			return
		}
		event := s.queue[0]
		s.queue = s.queue[1:]
		subs := make([]*subscription, 0, len(s.subs))
		for _, sub := range s.subs {
			subs = append(subs, sub)
		}
		s.mu.Unlock()

		channel := ChannelOf(event.Type)
		for _, sub := range subs {
			if sub.channel != channel {
				continue
			}
			invoke(sub, event, log)
		}
	}
}

func invoke(sub *subscription, event Event, log *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("event subscriber panicked",
				"subscription_id", sub.id,
				"event_type", event.Type,
				"panic", r)
		}
	}()
	sub.handler(event)
}

// close marks the session finished and waits for the dispatcher to
// drain.
func (s *session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.wake.Broadcast()
	s.mu.Unlock()
	<-s.done
}

// Recorder is a Sink that captures events for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder builds an empty recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Emit records the event synchronously.
func (r *Recorder) Emit(sessionID string, eventType Type, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// Events returns a copy of everything recorded.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByType returns recorded events of one type, in order.
func (r *Recorder) ByType(t Type) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// Clear drops everything recorded.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
