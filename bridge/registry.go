// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

// Listener registry: at most one subscription per room plus at most
// one global subscription. The registry is the only writer to its
// entries; unlisten is synchronous-effect, but an event already in
// flight through a pump may still be delivered once after it returns.

// baseEventTypes is the fixed allow-list for the global listener:
// membership, power levels, messages, calls, key verification,
// reactions, receipts, and typing. Callers extend it with
// SetAdditionalEventTypes.
var baseEventTypes = map[string]bool{
	"m.room.member":              true,
	"m.room.power_levels":        true,
	"m.room.message":             true,
	"m.room.encrypted":           true,
	"m.call.invite":              true,
	"m.call.answer":              true,
	"m.call.hangup":              true,
	"m.call.candidates":          true,
	"m.key.verification.request": true,
	"m.key.verification.start":   true,
	"m.key.verification.accept":  true,
	"m.key.verification.key":     true,
	"m.key.verification.mac":     true,
	"m.key.verification.cancel":  true,
	"m.key.verification.done":    true,
	"m.reaction":                 true,
	"m.receipt":                  true,
	"m.typing":                   true,
}

// ListenToRoom subscribes to one room's live timeline. Each inbound
// event is emitted on "room.backwards" or "room.forwards" according
// to its direction. At most one subscription per room: a second
// ListenToRoom before UnlistenToRoom fails with KindAlreadyListening.
func (s *Session) ListenToRoom(roomID string) error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return errNotConnected("ListenToRoom")
	}
	if _, exists := s.roomListeners[roomID]; exists {
		s.mu.Unlock()
		return errorf(KindAlreadyListening, "already listening to room %s", roomID)
	}
	s.mu.Unlock()

	if !s.client.KnowsRoom(roomID) {
		return errorf(KindRoomNotFound, "room %s not found", roomID)
	}

	subscription, err := s.client.SubscribeRoom(roomID)
	if err != nil {
		return wrapf(err, "subscribing to room %s", roomID)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		subscription.Cancel()
		return errNotConnected("ListenToRoom")
	}
	if _, exists := s.roomListeners[roomID]; exists {
		// Lost a race with a concurrent ListenToRoom for the same room.
		s.mu.Unlock()
		subscription.Cancel()
		return errorf(KindAlreadyListening, "already listening to room %s", roomID)
	}
	s.roomListeners[roomID] = subscription
	s.pumps.Add(1)
	s.mu.Unlock()

	go s.pumpRoom(subscription)
	s.logger.Debug("listening to room", "room_id", roomID)
	return nil
}

// UnlistenToRoom cancels the room's subscription. Strict: without an
// active subscription it fails with KindNoListener, so the second of
// two consecutive calls fails rather than silently succeeding.
func (s *Session) UnlistenToRoom(roomID string) error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return errNotConnected("UnlistenToRoom")
	}
	subscription, exists := s.roomListeners[roomID]
	if !exists {
		s.mu.Unlock()
		return errorf(KindNoListener, "not listening to room %s", roomID)
	}
	delete(s.roomListeners, roomID)
	s.mu.Unlock()

	subscription.Cancel()
	s.logger.Debug("stopped listening to room", "room_id", roomID)
	return nil
}

// Listen subscribes to the session-wide event stream. Only live
// (forwards) events are re-emitted, so the host is not flooded with
// historical replay; the channel name is the event's type string,
// restricted to the allow-list. A second Listen while one is active
// fails with KindAlreadyListening.
func (s *Session) Listen() error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return errNotConnected("Listen")
	}
	if s.globalListener != nil {
		s.mu.Unlock()
		return errorf(KindAlreadyListening, "global listener already active")
	}
	s.mu.Unlock()

	subscription, err := s.client.SubscribeAll()
	if err != nil {
		return wrapf(err, "subscribing to session event stream")
	}

	s.mu.Lock()
	if s.closed || s.globalListener != nil {
		s.mu.Unlock()
		subscription.Cancel()
		if s.closed {
			return errNotConnected("Listen")
		}
		return errorf(KindAlreadyListening, "global listener already active")
	}
	s.globalListener = subscription
	s.pumps.Add(1)
	s.mu.Unlock()

	go s.pumpGlobal(subscription)
	s.logger.Debug("global listener active")
	return nil
}

// Unlisten cancels the global subscription. Unlike UnlistenToRoom, it
// is a forgiving no-op when nothing is active.
func (s *Session) Unlisten() error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return errNotConnected("Unlisten")
	}
	subscription := s.globalListener
	s.globalListener = nil
	s.mu.Unlock()

	if subscription != nil {
		subscription.Cancel()
		s.logger.Debug("global listener stopped")
	}
	return nil
}

// SetAdditionalEventTypes replaces the caller-extensible portion of
// the global listener's allow-list. The base set is always active.
func (s *Session) SetAdditionalEventTypes(eventTypes []string) {
	additional := make(map[string]bool, len(eventTypes))
	for _, eventType := range eventTypes {
		additional[eventType] = true
	}
	s.mu.Lock()
	s.additionalTypes = additional
	s.mu.Unlock()
}

// pumpRoom routes one room subscription's events to the host under
// the direction-specific channels.
func (s *Session) pumpRoom(subscription EventSubscription) {
	defer s.pumps.Done()
	for event := range subscription.Events() {
		channel := ChannelRoomForwards
		if event.Direction == DirectionBackwards {
			channel = ChannelRoomBackwards
		}
		s.emit(Notification{Channel: channel, Event: ProjectEvent(event)})
	}
}

// pumpGlobal routes the session-wide stream: forwards events only,
// allow-listed types only, channel named after the event type.
func (s *Session) pumpGlobal(subscription EventSubscription) {
	defer s.pumps.Done()
	for event := range subscription.Events() {
		if event.Direction != DirectionForwards {
			continue
		}
		if !s.eventTypeAllowed(event.Type) {
			s.logger.Debug("dropping event type not in allow-list",
				"event_type", event.Type,
			)
			continue
		}
		s.emit(Notification{Channel: event.Type, Event: ProjectEvent(event)})
	}
}

func (s *Session) eventTypeAllowed(eventType string) bool {
	if baseEventTypes[eventType] {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.additionalTypes[eventType]
}
