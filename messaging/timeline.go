// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"sync"

	"github.com/hallway-chat/hallway/lib/ref"
)

// Direction tags a timeline event with how it arrived relative to the
// live edge of the room's timeline.
type Direction string

const (
	// Backwards marks events from the initial catch-up sync and from
	// backfill pagination: history that existed before the live edge.
	Backwards Direction = "backwards"

	// Forwards marks events arriving on the live sync stream after the
	// session reached the live edge.
	Forwards Direction = "forwards"
)

// TimelineEvent is one event delivered to a subscriber, tagged with
// the room it belongs to and its direction.
type TimelineEvent struct {
	Event     Event
	RoomID    ref.RoomID
	Direction Direction
}

// Subscription is a cancellable stream of timeline events from a
// SyncSession. Events are delivered on a buffered channel; if the
// subscriber falls behind and the buffer fills, events are dropped
// (the sync loop never blocks on a slow consumer).
type Subscription struct {
	// mu orders deliver against Cancel so an event is never sent on
	// the closed channel.
	mu     sync.Mutex
	closed bool
	events chan TimelineEvent

	cancelOnce sync.Once
	remove     func()
}

// Events returns the channel timeline events are delivered on. The
// channel is closed when the subscription is cancelled or the sync
// session shuts down.
func (s *Subscription) Events() <-chan TimelineEvent {
	return s.events
}

// Cancel detaches the subscription from the sync session and closes
// the events channel. Idempotent.
func (s *Subscription) Cancel() {
	s.cancelOnce.Do(func() {
		if s.remove != nil {
			s.remove()
		}
		s.mu.Lock()
		s.closed = true
		close(s.events)
		s.mu.Unlock()
	})
}

// deliver sends an event without blocking. Returns false if the
// buffer was full and the event was dropped.
func (s *Subscription) deliver(event TimelineEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.events <- event:
		return true
	default:
		return false
	}
}
