// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"github.com/hallway-chat/hallway/lib/ref"
)

// LoginRequest is the request body for password login.
type LoginRequest struct {
	Type                     string `json:"type"`
	User                     string `json:"user"`
	Password                 string `json:"password"`
	DeviceID                 string `json:"device_id,omitempty"`
	InitialDeviceDisplayName string `json:"initial_device_display_name,omitempty"`
}

// AuthResponse is returned by Login.
type AuthResponse struct {
	UserID      ref.UserID `json:"user_id"`
	AccessToken string     `json:"access_token"`
	DeviceID    string     `json:"device_id"`
	HomeServer  string     `json:"home_server,omitempty"`
}

// CreateRoomRequest holds parameters for creating a Matrix room.
type CreateRoomRequest struct {
	Name            string         `json:"name,omitempty"`
	Topic           string         `json:"topic,omitempty"`
	Alias           string         `json:"room_alias_name,omitempty"` // local alias without # or :server
	Visibility      string         `json:"visibility,omitempty"`      // "public" or "private"
	Preset          string         `json:"preset,omitempty"`          // "private_chat", "public_chat", "trusted_private_chat"
	Invite          []string       `json:"invite,omitempty"`
	IsDirect        bool           `json:"is_direct,omitempty"`
	CreationContent map[string]any `json:"creation_content,omitempty"`
	InitialState    []StateEvent   `json:"initial_state,omitempty"`
}

// CreateRoomResponse is returned by CreateRoom.
type CreateRoomResponse struct {
	RoomID ref.RoomID `json:"room_id"`
}

// StateEvent represents a Matrix state event for room creation or state setting.
type StateEvent struct {
	Type     string `json:"type"`
	StateKey string `json:"state_key"`
	Content  any    `json:"content"`
}

// MessageContent is the content body of a Matrix message event (m.room.message).
type MessageContent struct {
	MsgType       string `json:"msgtype"`
	Body          string `json:"body"`
	Format        string `json:"format,omitempty"`
	FormattedBody string `json:"formatted_body,omitempty"`
	URL           string `json:"url,omitempty"` // MXC URI for media messages
}

// NewTextMessage creates a plain text message.
func NewTextMessage(body string) MessageContent {
	return MessageContent{
		MsgType: "m.text",
		Body:    body,
	}
}

// Event represents a Matrix event from the server.
type Event struct {
	EventID        ref.EventID    `json:"event_id"`
	Type           ref.EventType  `json:"type"`
	Sender         ref.UserID     `json:"sender"`
	OriginServerTS int64          `json:"origin_server_ts"`
	Content        map[string]any `json:"content"`
	RoomID         ref.RoomID     `json:"room_id,omitempty"`
	StateKey       *string        `json:"state_key,omitempty"`
	Unsigned       *EventUnsigned `json:"unsigned,omitempty"`
}

// EventUnsigned holds optional unsigned data attached to events.
type EventUnsigned struct {
	Age           int64  `json:"age,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// RoomMessagesOptions controls pagination for room message fetching.
type RoomMessagesOptions struct {
	From      string // pagination token; empty means "from now"
	Direction string // "b" (backward/older) or "f" (forward/newer)
	Limit     int    // max events to return; 0 uses server default
}

// RoomMessagesResponse is returned by RoomMessages.
type RoomMessagesResponse struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Chunk []Event `json:"chunk"`
}

// SyncOptions controls the behavior of the /sync endpoint.
type SyncOptions struct {
	Since      string // next_batch token from previous sync; empty for initial sync
	Timeout    int    // long-poll timeout in milliseconds; 0 for immediate return
	SetTimeout bool   // if true, send the timeout parameter (needed to distinguish "not set" from "0")
	Filter     string // filter ID or inline JSON filter
}

// SyncResponse is the top-level response from /sync.
type SyncResponse struct {
	NextBatch   string             `json:"next_batch"`
	Presence    PresenceSection    `json:"presence,omitempty"`
	AccountData AccountDataSection `json:"account_data,omitempty"`
	Rooms       RoomsSection       `json:"rooms"`
}

// PresenceSection contains presence events from the /sync response.
type PresenceSection struct {
	Events []PresenceEvent `json:"events"`
}

// PresenceEvent is a single m.presence event from the /sync response.
type PresenceEvent struct {
	Type    string               `json:"type"`
	Sender  ref.UserID           `json:"sender"`
	Content PresenceEventContent `json:"content"`
}

// PresenceEventContent carries the presence state for a single user.
type PresenceEventContent struct {
	// Presence is the user's current state: "online", "unavailable",
	// or "offline".
	Presence string `json:"presence"`

	// LastActiveAgo is milliseconds since the user was last active.
	LastActiveAgo int64 `json:"last_active_ago,omitempty"`

	// CurrentlyActive is true when the user is actively using a
	// client right now.
	CurrentlyActive bool `json:"currently_active,omitempty"`

	// StatusMsg is an optional user-set status message.
	StatusMsg string `json:"status_msg,omitempty"`
}

// SetPresenceRequest is the JSON body for
// PUT /_matrix/client/v3/presence/{userId}/status.
type SetPresenceRequest struct {
	Presence  string `json:"presence"`
	StatusMsg string `json:"status_msg,omitempty"`
}

// PresenceResponse is returned by
// GET /_matrix/client/v3/presence/{userId}/status.
type PresenceResponse struct {
	Presence        string `json:"presence"`
	LastActiveAgo   int64  `json:"last_active_ago,omitempty"`
	CurrentlyActive bool   `json:"currently_active,omitempty"`
	StatusMsg       string `json:"status_msg,omitempty"`
}

// AccountDataSection contains account data events from /sync
// (m.direct, m.push_rules, and similar).
type AccountDataSection struct {
	Events []Event `json:"events"`
}

// RoomsSection contains per-room sync data grouped by membership state.
// Map keys are room IDs; encoding/json uses ref.RoomID's TextUnmarshaler
// for automatic validation at deserialization.
type RoomsSection struct {
	Join   map[ref.RoomID]JoinedRoomSync  `json:"join,omitempty"`
	Invite map[ref.RoomID]InvitedRoomSync `json:"invite,omitempty"`
	Leave  map[ref.RoomID]LeftRoomSync    `json:"leave,omitempty"`
}

// JoinedRoomSync contains sync data for a room the user has joined.
type JoinedRoomSync struct {
	Timeline            TimelineSection          `json:"timeline"`
	State               StateSection             `json:"state"`
	AccountData         AccountDataSection       `json:"account_data"`
	UnreadNotifications UnreadNotificationCounts `json:"unread_notifications"`
}

// InvitedRoomSync contains sync data for a room the user was invited to.
type InvitedRoomSync struct {
	InviteState StateSection `json:"invite_state"`
}

// LeftRoomSync contains sync data for a room the user has left.
type LeftRoomSync struct {
	Timeline TimelineSection `json:"timeline"`
	State    StateSection    `json:"state"`
}

// UnreadNotificationCounts reports unread counts for a joined room.
type UnreadNotificationCounts struct {
	NotificationCount int64 `json:"notification_count"`
	HighlightCount    int64 `json:"highlight_count"`
}

// TimelineSection contains timeline events from a sync response.
type TimelineSection struct {
	Events    []Event `json:"events"`
	PrevBatch string  `json:"prev_batch"`
	Limited   bool    `json:"limited"`
}

// StateSection contains state events from a sync response.
type StateSection struct {
	Events []Event `json:"events"`
}

// InviteRequest holds the user ID to invite to a room.
type InviteRequest struct {
	UserID ref.UserID `json:"user_id"`
}

// KickRequest is the request body for kicking a user from a room.
type KickRequest struct {
	UserID ref.UserID `json:"user_id"`
	Reason string     `json:"reason,omitempty"`
}

// SendEventResponse is returned by SendMessage, SendEvent, and SendStateEvent.
type SendEventResponse struct {
	EventID ref.EventID `json:"event_id"`
}

// WhoAmIResponse is returned by WhoAmI.
type WhoAmIResponse struct {
	UserID   ref.UserID `json:"user_id"`
	DeviceID string     `json:"device_id,omitempty"`
}

// ProfileResponse is returned by the /profile/{userId} endpoint.
type ProfileResponse struct {
	DisplayName string `json:"displayname,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// ResolveAliasResponse is returned by ResolveAlias.
type ResolveAliasResponse struct {
	RoomID  ref.RoomID `json:"room_id"`
	Servers []string   `json:"servers"`
}

// UploadResponse is returned by UploadMedia.
type UploadResponse struct {
	ContentURI string `json:"content_uri"`
}

// JoinedRoomsResponse is returned by JoinedRooms.
type JoinedRoomsResponse struct {
	JoinedRooms []ref.RoomID `json:"joined_rooms"`
}

// RoomMember represents a member of a Matrix room.
type RoomMember struct {
	UserID      ref.UserID `json:"user_id"`
	DisplayName string     `json:"display_name"`
	Membership  string     `json:"membership"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
}

// RoomMembersResponse is returned by the /members endpoint.
type RoomMembersResponse struct {
	Chunk []RoomMemberEvent `json:"chunk"`
}

// RoomMemberEvent is a member state event from the /members endpoint.
type RoomMemberEvent struct {
	Type     string            `json:"type"`
	StateKey ref.UserID        `json:"state_key"`
	Sender   ref.UserID        `json:"sender"`
	Content  RoomMemberContent `json:"content"`
}

// RoomMemberContent is the content of a m.room.member state event.
type RoomMemberContent struct {
	Membership  string `json:"membership"`
	DisplayName string `json:"displayname,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	IsDirect    bool   `json:"is_direct,omitempty"`
}

// PowerLevelsContent is the content of a m.room.power_levels state event.
// Only the fields Hallway reads or writes are modeled; unknown server
// fields are dropped on a read-modify-write.
type PowerLevelsContent struct {
	Users        map[string]int `json:"users,omitempty"`
	UsersDefault int            `json:"users_default,omitempty"`
	Events       map[string]int `json:"events,omitempty"`
	StateDefault int            `json:"state_default,omitempty"`
	Ban          int            `json:"ban,omitempty"`
	Kick         int            `json:"kick,omitempty"`
	Invite       int            `json:"invite,omitempty"`
	Redact       int            `json:"redact,omitempty"`
}

// TypingRequest is the request body for the typing notification endpoint.
type TypingRequest struct {
	Typing  bool  `json:"typing"`
	Timeout int64 `json:"timeout,omitempty"` // milliseconds; only sent when typing
}

// ReadMarkersRequest is the request body for /read_markers.
type ReadMarkersRequest struct {
	FullyRead ref.EventID `json:"m.fully_read"`
	Read      ref.EventID `json:"m.read,omitempty"`
}

// PusherRequest is the request body for /pushers/set (HTTP pusher
// registration for push notifications).
type PusherRequest struct {
	Lang              string     `json:"lang"`
	Kind              string     `json:"kind"` // "http", or null-equivalent "" to delete
	AppDisplayName    string     `json:"app_display_name"`
	DeviceDisplayName string     `json:"device_display_name"`
	AppID             string     `json:"app_id"`
	PushKey           string     `json:"pushkey"`
	Data              PusherData `json:"data"`
	Append            bool       `json:"append,omitempty"`
}

// PusherData configures the push gateway for an HTTP pusher.
type PusherData struct {
	URL    string `json:"url"`
	Format string `json:"format,omitempty"`
}

// SearchRequest is the request body for /search. Only the room_events
// category is used.
type SearchRequest struct {
	SearchCategories SearchCategories `json:"search_categories"`
}

// SearchCategories wraps the room_events search category.
type SearchCategories struct {
	RoomEvents RoomEventsCriteria `json:"room_events"`
}

// RoomEventsCriteria is the search criteria for the room_events category.
type RoomEventsCriteria struct {
	SearchTerm   string        `json:"search_term"`
	Keys         []string      `json:"keys,omitempty"`
	Filter       *SearchFilter `json:"filter,omitempty"`
	OrderBy      string        `json:"order_by,omitempty"` // "recent" or "rank"
	EventContext *EventContext `json:"event_context,omitempty"`
}

// SearchFilter restricts search results (typically to one room).
type SearchFilter struct {
	Rooms []ref.RoomID `json:"rooms,omitempty"`
	Limit int          `json:"limit,omitempty"`
}

// EventContext requests surrounding events for each search result.
type EventContext struct {
	BeforeLimit    int  `json:"before_limit"`
	AfterLimit     int  `json:"after_limit"`
	IncludeProfile bool `json:"include_profile,omitempty"`
}

// SearchResponse is returned by /search.
type SearchResponse struct {
	SearchCategories SearchResultCategories `json:"search_categories"`
}

// SearchResultCategories wraps the room_events result category.
type SearchResultCategories struct {
	RoomEvents RoomEventsResults `json:"room_events"`
}

// RoomEventsResults holds the results for the room_events category.
type RoomEventsResults struct {
	Count     int64          `json:"count"`
	Results   []SearchResult `json:"results"`
	NextBatch string         `json:"next_batch,omitempty"`
}

// SearchResult is one matched event with optional surrounding context.
type SearchResult struct {
	Rank    float64              `json:"rank,omitempty"`
	Result  Event                `json:"result"`
	Context *SearchResultContext `json:"context,omitempty"`
}

// SearchResultContext holds the events surrounding a search match.
type SearchResultContext struct {
	EventsBefore []Event `json:"events_before,omitempty"`
	EventsAfter  []Event `json:"events_after,omitempty"`
	Start        string  `json:"start,omitempty"`
	End          string  `json:"end,omitempty"`
}

// PublicRoomsResponse is returned by the /publicRooms endpoint.
type PublicRoomsResponse struct {
	Chunk      []PublicRoom `json:"chunk"`
	NextBatch  string       `json:"next_batch,omitempty"`
	PrevBatch  string       `json:"prev_batch,omitempty"`
	TotalRooms int64        `json:"total_room_count_estimate,omitempty"`
}

// PublicRoom is one entry from the public room directory.
type PublicRoom struct {
	RoomID           ref.RoomID `json:"room_id"`
	Name             string     `json:"name,omitempty"`
	Topic            string     `json:"topic,omitempty"`
	CanonicalAlias   string     `json:"canonical_alias,omitempty"`
	NumJoinedMembers int64      `json:"num_joined_members"`
	AvatarURL        string     `json:"avatar_url,omitempty"`
	WorldReadable    bool       `json:"world_readable"`
	GuestCanJoin     bool       `json:"guest_can_join"`
}

// DisplayNameRequest is the request body for setting a display name.
type DisplayNameRequest struct {
	DisplayName string `json:"displayname"`
}

// ServerVersionsResponse is returned by Client.ServerVersions.
type ServerVersionsResponse struct {
	Versions         []string        `json:"versions"`
	UnstableFeatures map[string]bool `json:"unstable_features,omitempty"`
}
