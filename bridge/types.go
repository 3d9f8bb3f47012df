// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

// Direction tags an event's arrival relative to the subscription
// start: historical catch-up and backfill versus the live stream.
type Direction string

const (
	DirectionBackwards Direction = "backwards"
	DirectionForwards  Direction = "forwards"
)

// Notification channels for room listeners. The global listener emits
// under a channel named after the event type instead.
const (
	ChannelRoomBackwards = "room.backwards"
	ChannelRoomForwards  = "room.forwards"
)

// Credentials identify one authenticated account. Produced by Login
// or installed directly via SetCredentials when the host persisted a
// prior login.
type Credentials struct {
	HomeServer   string
	UserID       string
	AccessToken  string
	DeviceID     string
	RefreshToken string
}

// UserProfile is the session user's attributes, returned by
// StartSession.
type UserProfile struct {
	UserID        string
	DisplayName   string
	AvatarURL     string
	LastActiveAgo int64
	Status        string
}

// ProtocolEvent is the neutral event shape delivered by a
// ProtocolClient. Zero values mean the field was absent: in
// particular, Timestamp and Age use 0 as the absent sentinel, and
// projection renders them as null. A ProtocolClient must leave them 0
// rather than supplying a literal zero measurement.
type ProtocolEvent struct {
	Type      string
	ID        string
	RoomID    string
	Sender    string
	Timestamp int64 // origin server time, ms since epoch; 0 = absent
	Age       int64 // ms since the event reached the server; 0 = absent
	Content   map[string]any
	Direction Direction
}

// ProtocolRoom is the neutral room shape delivered by a
// ProtocolClient.
type ProtocolRoom struct {
	ID                  string
	Name                string
	Topic               string
	AvatarURL           string
	Membership          string
	IsDirect            bool
	UnreadNotifications int64
	LastEvent           *ProtocolEvent
	Members             []ProtocolMember
}

// ProtocolMember is one room member as delivered by a ProtocolClient.
type ProtocolMember struct {
	UserID      string
	DisplayName string
	AvatarURL   string
	Membership  string
}

// MessagesPage is one page of room history.
type MessagesPage struct {
	Events []ProtocolEvent
	Start  string
	End    string // continuation token for the next backward page
}

// SearchPage is one page of server-side search results.
type SearchPage struct {
	Count     int64
	NextBatch string
	Results   []SearchHit
}

// SearchHit is one search match with surrounding context events.
type SearchHit struct {
	Event  ProtocolEvent
	Before []ProtocolEvent
	After  []ProtocolEvent
}

// CreateRoomParams are the inputs to CreateRoom.
type CreateRoomParams struct {
	Name                 string
	InviteeIDs           []string
	IsDirect             bool
	IsTrustedPrivateChat bool
}

// PushRegistration registers an HTTP push gateway for this account.
type PushRegistration struct {
	AppDisplayName string
	AppID          string
	GatewayURL     string
	PushKey        string
}

// Notification is one push delivery to the host: a channel name plus
// the projected event.
type Notification struct {
	Channel string
	Event   ProjectedEvent
}
