// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hallway-chat/hallway/lib/ref"
	"github.com/hallway-chat/hallway/lib/secret"
)

// Session is an authenticated Matrix session.
// It wraps a Client with an access token for making authenticated API calls.
// Sessions are lightweight and safe to create in large numbers.
//
// The access token is stored in a secret.Buffer (mmap-backed, locked against
// swap, excluded from core dumps). The caller must call Close when the Session
// is no longer needed.
type Session struct {
	client      *Client
	accessToken *secret.Buffer
	userID      ref.UserID
	deviceID    string

	// transactionCounter generates unique transaction IDs for idempotent sends.
	transactionCounter atomic.Int64
}

// UserID returns the fully-qualified Matrix user ID (e.g., "@alice:example.org").
func (s *Session) UserID() ref.UserID {
	return s.userID
}

// AccessToken returns the access token as a heap string. This creates a brief
// copy from the mmap-backed buffer — use only at API boundaries that require
// a string (e.g., writing to the session file). Prefer passing the Session
// itself when possible.
func (s *Session) AccessToken() string {
	return s.accessToken.String()
}

// DeviceID returns the device ID for this session.
func (s *Session) DeviceID() string {
	return s.deviceID
}

// HomeserverURL returns the base URL of the homeserver this session
// talks to.
func (s *Session) HomeserverURL() string {
	return s.client.baseURL
}

// CloseIdleConnections closes idle HTTP connections in the underlying
// transport's connection pool. Call this after a sync error to force
// the next request to establish a fresh TCP connection.
func (s *Session) CloseIdleConnections() {
	s.client.CloseIdleConnections()
}

// Close releases the access token memory (zeros, unlocks, unmaps).
// Idempotent — safe to call multiple times.
func (s *Session) Close() error {
	if s.accessToken != nil {
		return s.accessToken.Close()
	}
	return nil
}

// WhoAmI validates the access token and returns the user ID.
// Useful for checking whether a stored token is still valid.
func (s *Session) WhoAmI(ctx context.Context) (ref.UserID, error) {
	body, err := s.client.doRequest(ctx, http.MethodGet, "/_matrix/client/v3/account/whoami", s.accessToken, nil)
	if err != nil {
		return ref.UserID{}, fmt.Errorf("messaging: whoami failed: %w", err)
	}

	var response WhoAmIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ref.UserID{}, fmt.Errorf("messaging: failed to parse whoami response: %w", err)
	}
	return response.UserID, nil
}

// Profile fetches a user's profile (display name and avatar URL).
// Returns an empty profile (not an error) for users with nothing set.
func (s *Session) Profile(ctx context.Context, userID ref.UserID) (*ProfileResponse, error) {
	path := "/_matrix/client/v3/profile/" + url.PathEscape(userID.String())
	body, err := s.client.doRequest(ctx, http.MethodGet, path, s.accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: get profile for %q failed: %w", userID, err)
	}

	var response ProfileResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse profile response: %w", err)
	}
	return &response, nil
}

// SetDisplayName sets the session user's display name.
func (s *Session) SetDisplayName(ctx context.Context, displayName string) error {
	path := "/_matrix/client/v3/profile/" + url.PathEscape(s.userID.String()) + "/displayname"
	_, err := s.client.doRequest(ctx, http.MethodPut, path, s.accessToken, DisplayNameRequest{DisplayName: displayName})
	if err != nil {
		return fmt.Errorf("messaging: set display name failed: %w", err)
	}
	return nil
}

// CreateRoom creates a new Matrix room.
func (s *Session) CreateRoom(ctx context.Context, request CreateRoomRequest) (*CreateRoomResponse, error) {
	body, err := s.client.doRequest(ctx, http.MethodPost, "/_matrix/client/v3/createRoom", s.accessToken, request)
	if err != nil {
		return nil, fmt.Errorf("messaging: create room failed: %w", err)
	}

	var response CreateRoomResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse createRoom response: %w", err)
	}

	s.client.logger.Info("created matrix room",
		"room_id", response.RoomID,
		"name", request.Name,
		"is_direct", request.IsDirect,
	)
	return &response, nil
}

// JoinRoom joins a room by ID. Returns the room ID.
func (s *Session) JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error) {
	path := "/_matrix/client/v3/join/" + url.PathEscape(roomID.String())
	body, err := s.client.doRequest(ctx, http.MethodPost, path, s.accessToken, struct{}{})
	if err != nil {
		return ref.RoomID{}, fmt.Errorf("messaging: join room %s failed: %w", roomID, err)
	}

	var response struct {
		RoomID ref.RoomID `json:"room_id"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return ref.RoomID{}, fmt.Errorf("messaging: failed to parse join response: %w", err)
	}
	return response.RoomID, nil
}

// LeaveRoom leaves a room by ID.
func (s *Session) LeaveRoom(ctx context.Context, roomID ref.RoomID) error {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/leave", url.PathEscape(roomID.String()))
	_, err := s.client.doRequest(ctx, http.MethodPost, path, s.accessToken, struct{}{})
	if err != nil {
		return fmt.Errorf("messaging: leave room %q failed: %w", roomID, err)
	}
	return nil
}

// InviteUser invites a user to a room.
func (s *Session) InviteUser(ctx context.Context, roomID ref.RoomID, userID ref.UserID) error {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/invite", url.PathEscape(roomID.String()))
	_, err := s.client.doRequest(ctx, http.MethodPost, path, s.accessToken, InviteRequest{UserID: userID})
	if err != nil {
		return fmt.Errorf("messaging: invite %q to %q failed: %w", userID, roomID, err)
	}
	return nil
}

// KickUser removes a user from a room with an optional reason.
func (s *Session) KickUser(ctx context.Context, roomID ref.RoomID, userID ref.UserID, reason string) error {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/kick", url.PathEscape(roomID.String()))
	_, err := s.client.doRequest(ctx, http.MethodPost, path, s.accessToken, KickRequest{
		UserID: userID,
		Reason: reason,
	})
	if err != nil {
		return fmt.Errorf("messaging: kick %q from %q failed: %w", userID, roomID, err)
	}
	return nil
}

// SetRoomName sets a room's display name via the m.room.name state event.
func (s *Session) SetRoomName(ctx context.Context, roomID ref.RoomID, name string) error {
	_, err := s.SendStateEvent(ctx, roomID, ref.EventTypeRoomName, "", map[string]any{"name": name})
	if err != nil {
		return fmt.Errorf("messaging: set room name for %q failed: %w", roomID, err)
	}
	return nil
}

// SetPowerLevel changes one user's power level in a room. It reads the
// current m.room.power_levels state, updates the users map, and writes
// the event back. Read-modify-write without a version guard: a
// concurrent power-level change from another client can be lost, which
// matches how Matrix clients generally do this.
func (s *Session) SetPowerLevel(ctx context.Context, roomID ref.RoomID, userID ref.UserID, level int) error {
	levels, err := GetState[PowerLevelsContent](ctx, s, roomID, ref.EventTypePowerLevels, "")
	if err != nil {
		return fmt.Errorf("messaging: reading power levels in %q: %w", roomID, err)
	}
	if levels.Users == nil {
		levels.Users = make(map[string]int)
	}
	levels.Users[userID.String()] = level

	if _, err := s.SendStateEvent(ctx, roomID, ref.EventTypePowerLevels, "", levels); err != nil {
		return fmt.Errorf("messaging: setting power level for %q in %q: %w", userID, roomID, err)
	}
	return nil
}

// SendMessage sends a message to a room. Returns the event ID of the
// sent message.
func (s *Session) SendMessage(ctx context.Context, roomID ref.RoomID, content MessageContent) (ref.EventID, error) {
	return s.SendEvent(ctx, roomID, ref.EventTypeRoomMessage, content)
}

// SendEvent sends an event of any type to a room.
// Uses Matrix's idempotent PUT with a transaction ID.
// Returns the event ID.
func (s *Session) SendEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, content any) (ref.EventID, error) {
	transactionID := s.nextTransactionID()
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/send/%s/%s",
		url.PathEscape(roomID.String()),
		url.PathEscape(eventType.String()),
		url.PathEscape(transactionID),
	)

	body, err := s.client.doRequest(ctx, http.MethodPut, path, s.accessToken, content)
	if err != nil {
		return ref.EventID{}, fmt.Errorf("messaging: send event to %q failed: %w", roomID, err)
	}

	var response SendEventResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ref.EventID{}, fmt.Errorf("messaging: failed to parse send response: %w", err)
	}
	return response.EventID, nil
}

// SendStateEvent sends a state event to a room.
// State events use PUT with the event type and state key in the path.
// Returns the event ID.
func (s *Session) SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string, content any) (ref.EventID, error) {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/state/%s/%s",
		url.PathEscape(roomID.String()),
		url.PathEscape(eventType.String()),
		url.PathEscape(stateKey),
	)

	body, err := s.client.doRequest(ctx, http.MethodPut, path, s.accessToken, content)
	if err != nil {
		return ref.EventID{}, fmt.Errorf("messaging: send state event to %q failed: %w", roomID, err)
	}

	var response SendEventResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ref.EventID{}, fmt.Errorf("messaging: failed to parse send state response: %w", err)
	}
	return response.EventID, nil
}

// GetStateEvent fetches a specific state event's content from a room.
// Returns the raw JSON content for the caller to unmarshal.
//
// If the state event does not exist, returns a *MatrixError with code M_NOT_FOUND.
func (s *Session) GetStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string) (json.RawMessage, error) {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/state/%s/%s",
		url.PathEscape(roomID.String()),
		url.PathEscape(eventType.String()),
		url.PathEscape(stateKey),
	)

	body, err := s.client.doRequest(ctx, http.MethodGet, path, s.accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: get state event %s/%s in %q failed: %w", eventType, stateKey, roomID, err)
	}
	return json.RawMessage(body), nil
}

// GetRoomState fetches all current state events from a room.
func (s *Session) GetRoomState(ctx context.Context, roomID ref.RoomID) ([]Event, error) {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/state", url.PathEscape(roomID.String()))

	body, err := s.client.doRequest(ctx, http.MethodGet, path, s.accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: get room state for %q failed: %w", roomID, err)
	}

	var events []Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse room state response: %w", err)
	}
	return events, nil
}

// RoomMessages fetches messages from a room with pagination.
func (s *Session) RoomMessages(ctx context.Context, roomID ref.RoomID, options RoomMessagesOptions) (*RoomMessagesResponse, error) {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/messages", url.PathEscape(roomID.String()))

	query := url.Values{}
	if options.From != "" {
		query.Set("from", options.From)
	}
	direction := options.Direction
	if direction == "" {
		direction = "b" // backward (newest first) by default
	}
	query.Set("dir", direction)
	if options.Limit > 0 {
		query.Set("limit", strconv.Itoa(options.Limit))
	}

	body, err := s.client.doRequest(ctx, http.MethodGet, path, s.accessToken, nil, query)
	if err != nil {
		return nil, fmt.Errorf("messaging: room messages for %q failed: %w", roomID, err)
	}

	var response RoomMessagesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse messages response: %w", err)
	}
	return &response, nil
}

// SearchMessages performs a server-side full-text search over room
// events. A zero roomID searches all rooms the user can see; nextBatch
// continues a previous search. beforeLimit/afterLimit request context
// events around each match.
func (s *Session) SearchMessages(ctx context.Context, roomID ref.RoomID, term, nextBatch string, beforeLimit, afterLimit int) (*RoomEventsResults, error) {
	criteria := RoomEventsCriteria{
		SearchTerm: term,
		OrderBy:    "recent",
		EventContext: &EventContext{
			BeforeLimit:    beforeLimit,
			AfterLimit:     afterLimit,
			IncludeProfile: true,
		},
	}
	if !roomID.IsZero() {
		criteria.Filter = &SearchFilter{Rooms: []ref.RoomID{roomID}}
	}

	query := url.Values{}
	if nextBatch != "" {
		query.Set("next_batch", nextBatch)
	}

	body, err := s.client.doRequest(ctx, http.MethodPost, "/_matrix/client/v3/search", s.accessToken,
		SearchRequest{SearchCategories: SearchCategories{RoomEvents: criteria}}, query)
	if err != nil {
		return nil, fmt.Errorf("messaging: search failed: %w", err)
	}

	var response SearchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse search response: %w", err)
	}
	return &response.SearchCategories.RoomEvents, nil
}

// SendTyping sends a typing notification for the session user in a
// room. timeout is how long the server should consider the user typing,
// in milliseconds; it is only sent when typing is true.
func (s *Session) SendTyping(ctx context.Context, roomID ref.RoomID, typing bool, timeout time.Duration) error {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/typing/%s",
		url.PathEscape(roomID.String()),
		url.PathEscape(s.userID.String()),
	)

	request := TypingRequest{Typing: typing}
	if typing {
		request.Timeout = timeout.Milliseconds()
	}
	if _, err := s.client.doRequest(ctx, http.MethodPut, path, s.accessToken, request); err != nil {
		return fmt.Errorf("messaging: send typing to %q failed: %w", roomID, err)
	}
	return nil
}

// SendReadReceipt marks an event as read (m.read receipt).
func (s *Session) SendReadReceipt(ctx context.Context, roomID ref.RoomID, eventID ref.EventID) error {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/receipt/m.read/%s",
		url.PathEscape(roomID.String()),
		url.PathEscape(eventID.String()),
	)
	if _, err := s.client.doRequest(ctx, http.MethodPost, path, s.accessToken, struct{}{}); err != nil {
		return fmt.Errorf("messaging: send read receipt in %q failed: %w", roomID, err)
	}
	return nil
}

// SetReadMarkers moves the fully-read marker (and optionally the read
// receipt) to the given event. Used to mark a whole room as read.
func (s *Session) SetReadMarkers(ctx context.Context, roomID ref.RoomID, fullyRead, read ref.EventID) error {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/read_markers", url.PathEscape(roomID.String()))
	request := ReadMarkersRequest{FullyRead: fullyRead, Read: read}
	if _, err := s.client.doRequest(ctx, http.MethodPost, path, s.accessToken, request); err != nil {
		return fmt.Errorf("messaging: set read markers in %q failed: %w", roomID, err)
	}
	return nil
}

// SetPusher registers (or replaces) an HTTP pusher so the homeserver
// delivers push notifications for this user to the given gateway.
func (s *Session) SetPusher(ctx context.Context, request PusherRequest) error {
	if _, err := s.client.doRequest(ctx, http.MethodPost, "/_matrix/client/v3/pushers/set", s.accessToken, request); err != nil {
		return fmt.Errorf("messaging: set pusher failed: %w", err)
	}
	return nil
}

// SetPresence publishes the session user's presence state ("online",
// "unavailable", or "offline").
func (s *Session) SetPresence(ctx context.Context, presence, statusMsg string) error {
	path := "/_matrix/client/v3/presence/" + url.PathEscape(s.userID.String()) + "/status"
	request := SetPresenceRequest{Presence: presence, StatusMsg: statusMsg}
	if _, err := s.client.doRequest(ctx, http.MethodPut, path, s.accessToken, request); err != nil {
		return fmt.Errorf("messaging: set presence failed: %w", err)
	}
	return nil
}

// GetPresence fetches a user's presence state.
func (s *Session) GetPresence(ctx context.Context, userID ref.UserID) (*PresenceResponse, error) {
	path := "/_matrix/client/v3/presence/" + url.PathEscape(userID.String()) + "/status"
	body, err := s.client.doRequest(ctx, http.MethodGet, path, s.accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: get presence for %q failed: %w", userID, err)
	}

	var response PresenceResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse presence response: %w", err)
	}
	return &response, nil
}

// UploadMedia uploads content to the homeserver's media repository.
// Returns the MXC URI (e.g., "mxc://example.org/abc123").
func (s *Session) UploadMedia(ctx context.Context, contentType string, body io.Reader) (string, error) {
	responseBody, err := s.client.doRequestRaw(ctx, http.MethodPost,
		"/_matrix/media/v3/upload", s.accessToken, contentType, body)
	if err != nil {
		return "", fmt.Errorf("messaging: media upload failed: %w", err)
	}

	var response UploadResponse
	if err := json.Unmarshal(responseBody, &response); err != nil {
		return "", fmt.Errorf("messaging: failed to parse upload response: %w", err)
	}
	return response.ContentURI, nil
}

// DownloadMedia streams the content behind an MXC URI into destDir,
// writing to a randomly named file so concurrent downloads never
// collide. Returns the path of the written file.
func (s *Session) DownloadMedia(ctx context.Context, mxcURI, destDir string) (string, error) {
	path, err := mediaPath(mxcURI)
	if err != nil {
		return "", err
	}

	response, err := s.client.doRequestStream(ctx, path, s.accessToken)
	if err != nil {
		return "", fmt.Errorf("messaging: media download failed: %w", err)
	}
	defer response.Body.Close()

	localPath := filepath.Join(destDir, uuid.NewString())
	file, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("messaging: creating download file: %w", err)
	}

	if _, err := io.Copy(file, response.Body); err != nil {
		file.Close()
		os.Remove(localPath)
		return "", fmt.Errorf("messaging: writing download file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(localPath)
		return "", fmt.Errorf("messaging: closing download file: %w", err)
	}

	s.client.logger.Debug("downloaded media",
		"mxc_uri", mxcURI,
		"path", localPath,
	)
	return localPath, nil
}

// MediaDownloadURL converts an MXC URI to the HTTP URL it can be
// fetched from on this homeserver. No network call is made.
func (s *Session) MediaDownloadURL(mxcURI string) (string, error) {
	path, err := mediaPath(mxcURI)
	if err != nil {
		return "", err
	}
	return s.client.baseURL + path, nil
}

// mediaPath converts "mxc://server/mediaID" into the v3 media download
// request path.
func mediaPath(mxcURI string) (string, error) {
	rest, ok := strings.CutPrefix(mxcURI, "mxc://")
	if !ok {
		return "", fmt.Errorf("messaging: invalid MXC URI %q", mxcURI)
	}
	server, mediaID, ok := strings.Cut(rest, "/")
	if !ok || server == "" || mediaID == "" {
		return "", fmt.Errorf("messaging: invalid MXC URI %q", mxcURI)
	}
	return "/_matrix/media/v3/download/" + url.PathEscape(server) + "/" + url.PathEscape(mediaID), nil
}

// PublicRooms fetches a page of the homeserver's public room directory.
func (s *Session) PublicRooms(ctx context.Context, limit int, since string) (*PublicRoomsResponse, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if since != "" {
		query.Set("since", since)
	}

	body, err := s.client.doRequest(ctx, http.MethodGet, "/_matrix/client/v3/publicRooms", s.accessToken, nil, query)
	if err != nil {
		return nil, fmt.Errorf("messaging: public rooms failed: %w", err)
	}

	var response PublicRoomsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse public rooms response: %w", err)
	}
	return &response, nil
}

// JoinedRooms returns the list of room IDs the user has joined.
func (s *Session) JoinedRooms(ctx context.Context) ([]ref.RoomID, error) {
	body, err := s.client.doRequest(ctx, http.MethodGet, "/_matrix/client/v3/joined_rooms", s.accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: joined rooms failed: %w", err)
	}

	var response JoinedRoomsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse joined rooms response: %w", err)
	}
	return response.JoinedRooms, nil
}

// RoomMembers returns the members of a room.
func (s *Session) RoomMembers(ctx context.Context, roomID ref.RoomID) ([]RoomMember, error) {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/members", url.PathEscape(roomID.String()))
	body, err := s.client.doRequest(ctx, http.MethodGet, path, s.accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: get room members for %q failed: %w", roomID, err)
	}

	var response RoomMembersResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse room members response: %w", err)
	}

	members := make([]RoomMember, len(response.Chunk))
	for index, event := range response.Chunk {
		members[index] = RoomMember{
			UserID:      event.StateKey,
			DisplayName: event.Content.DisplayName,
			Membership:  event.Content.Membership,
			AvatarURL:   event.Content.AvatarURL,
		}
	}
	return members, nil
}

// ResolveAlias resolves a room alias (e.g., "#lobby:example.org") to a room ID.
func (s *Session) ResolveAlias(ctx context.Context, alias ref.RoomAlias) (ref.RoomID, error) {
	path := "/_matrix/client/v3/directory/room/" + url.PathEscape(alias.String())
	body, err := s.client.doRequest(ctx, http.MethodGet, path, s.accessToken, nil)
	if err != nil {
		return ref.RoomID{}, fmt.Errorf("messaging: resolve alias %q failed: %w", alias, err)
	}

	var response ResolveAliasResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ref.RoomID{}, fmt.Errorf("messaging: failed to parse resolve alias response: %w", err)
	}
	return response.RoomID, nil
}

// Sync performs an incremental sync with the homeserver.
// For initial sync, leave options.Since empty.
// For long-polling, set options.Timeout to the desired wait in milliseconds.
func (s *Session) Sync(ctx context.Context, options SyncOptions) (*SyncResponse, error) {
	query := url.Values{}
	if options.Since != "" {
		query.Set("since", options.Since)
	}
	if options.SetTimeout {
		query.Set("timeout", strconv.Itoa(options.Timeout))
	}
	if options.Filter != "" {
		query.Set("filter", options.Filter)
	}

	path := "/_matrix/client/v3/sync"
	body, err := s.client.doRequest(ctx, http.MethodGet, path, s.accessToken, nil, query)
	if err != nil {
		return nil, fmt.Errorf("messaging: sync failed: %w", err)
	}

	var response SyncResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse sync response: %w", err)
	}
	return &response, nil
}

// nextTransactionID generates a unique transaction ID for idempotent event sending.
// Format: "hallway-<timestamp_ms>-<counter>" to ensure uniqueness across restarts.
func (s *Session) nextTransactionID() string {
	counter := s.transactionCounter.Add(1)
	return fmt.Sprintf("hallway-%d-%d", time.Now().UnixMilli(), counter)
}
