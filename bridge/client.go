// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "context"

// ProtocolClient is the chat-protocol implementation behind a
// Session: authentication, sync, room lookup, timelines, messaging,
// presence, and media. The bridge performs no network I/O of its own.
// The messaging package provides the Matrix implementation via
// NewMatrixClient; tests use an in-memory fake.
type ProtocolClient interface {
	// Configure sets the target homeserver. Must be called before
	// Authenticate or StartSync. No network effect.
	Configure(homeserverURL string) error

	// Authenticate performs a password login and returns the resulting
	// credentials.
	Authenticate(ctx context.Context, username, password string) (Credentials, error)

	// InstallCredentials installs previously obtained credentials
	// without validation. A garbage token surfaces as a failure on the
	// next operation.
	InstallCredentials(credentials Credentials) error

	// StartSync opens the client's store and runs the sync loop until
	// StopSync. It returns after the first successful sync, with the
	// room table primed.
	StartSync(ctx context.Context) error

	// StopSync stops the sync loop and releases client resources.
	// Safe to call multiple times.
	StopSync()

	// OwnProfile returns the authenticated user's attributes.
	OwnProfile(ctx context.Context) (UserProfile, error)

	// KnowsRoom reports whether the client's synced room table
	// contains the room.
	KnowsRoom(roomID string) bool

	// Room returns one synced room.
	Room(roomID string) (ProtocolRoom, bool)

	// Rooms returns all synced rooms, every membership state included.
	Rooms() []ProtocolRoom

	// SubscribeRoom subscribes to one room's live timeline. Events
	// arrive tagged with their direction.
	SubscribeRoom(roomID string) (EventSubscription, error)

	// SubscribeAll subscribes to the session-wide event stream.
	SubscribeAll() (EventSubscription, error)

	CreateRoom(ctx context.Context, params CreateRoomParams) (ProtocolRoom, error)
	JoinRoom(ctx context.Context, roomID string) (ProtocolRoom, error)
	LeaveRoom(ctx context.Context, roomID string) error
	InviteUser(ctx context.Context, roomID, userID string) error
	KickUser(ctx context.Context, roomID, userID, reason string) error
	SetRoomName(ctx context.Context, roomID, name string) error
	SetPowerLevel(ctx context.Context, roomID, userID string, level int) error
	RoomMembers(ctx context.Context, roomID string) ([]ProtocolMember, error)
	PublicRooms(ctx context.Context, limit int, since string) ([]ProtocolRoom, string, error)

	// Messages fetches one page of room history from an opaque
	// position token. direction is "b" (older) or "f" (newer).
	Messages(ctx context.Context, roomID, from, direction string, limit int) (MessagesPage, error)

	// BackPaginate backfills the room's live timeline, delivering the
	// fetched events to the room's subscribers tagged backwards.
	// reset rewinds the timeline's pagination state to the live edge
	// first. Returns the number of events fetched.
	BackPaginate(ctx context.Context, roomID string, limit int, reset bool) (int, error)

	// CanBackPaginate reports whether more history can be backfilled
	// on the room's live timeline. Advisory.
	CanBackPaginate(roomID string) bool

	SearchMessages(ctx context.Context, roomID, term, nextBatch string, beforeLimit, afterLimit int) (SearchPage, error)

	// SendEvent sends an event and returns its ID.
	SendEvent(ctx context.Context, roomID, eventType string, content map[string]any) (string, error)

	SendReadReceipt(ctx context.Context, roomID, eventID string) error

	// MarkRoomAsRead moves the read marker to the room's latest event.
	MarkRoomAsRead(ctx context.Context, roomID string) error

	RegisterPusher(ctx context.Context, registration PushRegistration) error
	SetDisplayName(ctx context.Context, displayName string) error

	// UploadContent uploads a local file and returns its content URI.
	UploadContent(ctx context.Context, path, contentType string) (string, error)

	// DownloadContent fetches the content behind a URI into destDir
	// and returns the local file path.
	DownloadContent(ctx context.Context, contentURI, destDir string) (string, error)

	// ContentURL converts a content URI to a directly fetchable HTTP
	// URL without a network call.
	ContentURL(contentURI string) (string, error)

	SendTyping(ctx context.Context, roomID string, typing bool, timeoutMS int) error
	SetPresence(ctx context.Context, online bool) error
}

// EventSubscription is a cancellable stream of protocol events. The
// events channel closes when the subscription is cancelled or the
// client shuts down; Cancel is idempotent.
type EventSubscription interface {
	Events() <-chan ProtocolEvent
	Cancel()
}
