// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package core

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/muemud/mue/internal/world"
)

// subscriberBuffer is the channel capacity given to each subscriber.
const subscriberBuffer = 100

// WorldEvent is one record on the local event stream.
type WorldEvent struct {
	ID       ulid.ULID
	Scope    world.Scope
	ObjectID world.ObjectID
	Name     string
	Payload  world.UpdateResult
	Time     time.Time
}

// EventStream fans local world events out to in-process subscribers.
// Nothing is replayed; a full subscriber misses events.
type EventStream struct {
	mu     sync.RWMutex
	subs   []chan WorldEvent
	closed bool
}

// NewEventStream creates an empty stream.
func NewEventStream() *EventStream {
	return &EventStream{}
}

// Subscribe returns a channel receiving every event published from now on.
func (s *EventStream) Subscribe() <-chan WorldEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan WorldEvent, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch
	}
	s.subs = append(s.subs, ch)
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (s *EventStream) Unsubscribe(ch <-chan WorldEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subs {
		if sub == ch {
			s.subs = slices.Delete(s.subs, i, i+1)
			close(sub)
			return
		}
	}
}

// Publish delivers event to every subscriber without blocking.
func (s *EventStream) Publish(event WorldEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
			DroppedEvents.Inc()
			slog.Warn("world event dropped: subscriber buffer full",
				"event_id", event.ID.String(),
				"event_name", event.Name,
				"object_id", event.ObjectID.ID(),
			)
		}
	}
}

// Close closes every subscriber channel. Later subscribers get a closed channel.
func (s *EventStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}
