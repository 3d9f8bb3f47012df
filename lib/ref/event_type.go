// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// EventType is a Matrix event type identifier (e.g., "m.room.message").
// Event types are dotted reverse-DNS style strings; the "m." namespace
// is reserved by the Matrix spec and anything else is a custom type.
// No structural validation is applied beyond non-emptiness at the call
// sites that require it, since custom namespaces are open-ended.
type EventType string

// Core event types from the Matrix client-server spec that the
// messaging layer handles specially.
const (
	EventTypeRoomMessage   EventType = "m.room.message"
	EventTypeRoomMember    EventType = "m.room.member"
	EventTypeRoomName      EventType = "m.room.name"
	EventTypeRoomTopic     EventType = "m.room.topic"
	EventTypeRoomAvatar    EventType = "m.room.avatar"
	EventTypeRoomCreate    EventType = "m.room.create"
	EventTypeRoomRedaction EventType = "m.room.redaction"
	EventTypeReaction      EventType = "m.reaction"
	EventTypeSticker       EventType = "m.sticker"
	EventTypePowerLevels   EventType = "m.room.power_levels"
	EventTypeDirect        EventType = "m.direct"
)

// String returns the event type as a plain string.
func (t EventType) String() string { return string(t) }

// IsState reports whether the event type is one of the room state
// types this package knows about. Custom state events are not
// detectable from the type alone; callers with full events should
// check for a state_key instead.
func (t EventType) IsState() bool {
	switch t {
	case EventTypeRoomMember, EventTypeRoomName, EventTypeRoomTopic,
		EventTypeRoomAvatar, EventTypeRoomCreate, EventTypePowerLevels:
		return true
	}
	return false
}
