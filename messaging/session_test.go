// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hallway-chat/hallway/lib/ref"
)

func newTestSession(t *testing.T, handler http.Handler) (*Client, *Session) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{HomeserverURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	session, err := client.SessionFromToken(ref.MustParseUserID("@test:local"), "test-token", "DEV1")
	if err != nil {
		t.Fatalf("SessionFromToken failed: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return client, session
}

func assertAuth(t *testing.T, request *http.Request, expectedToken string) {
	t.Helper()
	auth := request.Header.Get("Authorization")
	expected := "Bearer " + expectedToken
	if auth != expected {
		t.Errorf("unexpected auth header: got %q, want %q", auth, expected)
	}
}

func writeJSON(writer http.ResponseWriter, value any) {
	writer.Header().Set("Content-Type", "application/json")
	json.NewEncoder(writer).Encode(value)
}

func TestWhoAmI(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/_matrix/client/v3/account/whoami" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		writeJSON(writer, WhoAmIResponse{UserID: ref.MustParseUserID("@test:local"), DeviceID: "DEV1"})
	}))

	userID, err := session.WhoAmI(context.Background())
	if err != nil {
		t.Fatalf("WhoAmI failed: %v", err)
	}
	if userID.String() != "@test:local" {
		t.Errorf("unexpected user ID: %s", userID)
	}
}

func TestProfile(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/_matrix/client/v3/profile/@alice:local" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		writeJSON(writer, ProfileResponse{DisplayName: "Alice", AvatarURL: "mxc://local/avatar1"})
	}))

	profile, err := session.Profile(context.Background(), mustUserID(t, "@alice:local"))
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if profile.DisplayName != "Alice" {
		t.Errorf("unexpected display name: %s", profile.DisplayName)
	}
	if profile.AvatarURL != "mxc://local/avatar1" {
		t.Errorf("unexpected avatar URL: %s", profile.AvatarURL)
	}
}

func TestCreateRoom(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/_matrix/client/v3/createRoom" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		var create CreateRoomRequest
		if err := json.NewDecoder(request.Body).Decode(&create); err != nil {
			t.Fatalf("decoding create request: %v", err)
		}
		if create.Name != "Lobby" {
			t.Errorf("unexpected room name: %s", create.Name)
		}
		if !create.IsDirect {
			t.Error("expected is_direct to be set")
		}
		writeJSON(writer, CreateRoomResponse{RoomID: ref.MustParseRoomID("!new:local")})
	}))

	response, err := session.CreateRoom(context.Background(), CreateRoomRequest{Name: "Lobby", IsDirect: true})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if response.RoomID.String() != "!new:local" {
		t.Errorf("unexpected room ID: %s", response.RoomID)
	}
}

func TestJoinAndLeaveRoom(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		switch request.URL.Path {
		case "/_matrix/client/v3/join/!room:local":
			writeJSON(writer, map[string]string{"room_id": "!room:local"})
		case "/_matrix/client/v3/rooms/!room:local/leave":
			writeJSON(writer, struct{}{})
		default:
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
	}))

	roomID := mustRoomID(t, "!room:local")
	joined, err := session.JoinRoom(context.Background(), roomID)
	if err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	if joined != roomID {
		t.Errorf("unexpected joined room: %s", joined)
	}
	if err := session.LeaveRoom(context.Background(), roomID); err != nil {
		t.Fatalf("LeaveRoom failed: %v", err)
	}
}

func TestInviteAndKick(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		switch request.URL.Path {
		case "/_matrix/client/v3/rooms/!room:local/invite":
			var invite InviteRequest
			json.NewDecoder(request.Body).Decode(&invite)
			if invite.UserID.String() != "@bob:local" {
				t.Errorf("unexpected invitee: %s", invite.UserID)
			}
		case "/_matrix/client/v3/rooms/!room:local/kick":
			var kick KickRequest
			json.NewDecoder(request.Body).Decode(&kick)
			if kick.UserID.String() != "@bob:local" {
				t.Errorf("unexpected kickee: %s", kick.UserID)
			}
			if kick.Reason != "spam" {
				t.Errorf("unexpected reason: %s", kick.Reason)
			}
		default:
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		writeJSON(writer, struct{}{})
	}))

	roomID := mustRoomID(t, "!room:local")
	bob := mustUserID(t, "@bob:local")
	if err := session.InviteUser(context.Background(), roomID, bob); err != nil {
		t.Fatalf("InviteUser failed: %v", err)
	}
	if err := session.KickUser(context.Background(), roomID, bob, "spam"); err != nil {
		t.Fatalf("KickUser failed: %v", err)
	}
}

func TestSetRoomName(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/_matrix/client/v3/rooms/!room:local/state/m.room.name/" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		var content map[string]string
		json.NewDecoder(request.Body).Decode(&content)
		if content["name"] != "New Name" {
			t.Errorf("unexpected name: %s", content["name"])
		}
		writeJSON(writer, SendEventResponse{EventID: ref.MustParseEventID("$name1")})
	}))

	if err := session.SetRoomName(context.Background(), mustRoomID(t, "!room:local"), "New Name"); err != nil {
		t.Fatalf("SetRoomName failed: %v", err)
	}
}

func TestSetPowerLevel(t *testing.T) {
	var putLevels PowerLevelsContent
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/_matrix/client/v3/rooms/!room:local/state/m.room.power_levels/" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		switch request.Method {
		case http.MethodGet:
			writeJSON(writer, PowerLevelsContent{
				Users:        map[string]int{"@admin:local": 100},
				UsersDefault: 0,
			})
		case http.MethodPut:
			json.NewDecoder(request.Body).Decode(&putLevels)
			writeJSON(writer, SendEventResponse{EventID: ref.MustParseEventID("$pl1")})
		default:
			t.Errorf("unexpected method: %s", request.Method)
		}
	}))

	err := session.SetPowerLevel(context.Background(), mustRoomID(t, "!room:local"), mustUserID(t, "@bob:local"), 100)
	if err != nil {
		t.Fatalf("SetPowerLevel failed: %v", err)
	}
	if putLevels.Users["@bob:local"] != 100 {
		t.Errorf("expected bob at 100, got %d", putLevels.Users["@bob:local"])
	}
	if putLevels.Users["@admin:local"] != 100 {
		t.Error("existing power levels should be preserved")
	}
}

func TestSendMessage(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.Method != http.MethodPut {
			t.Errorf("unexpected method: %s", request.Method)
		}
		prefix := "/_matrix/client/v3/rooms/!room:local/send/m.room.message/"
		if !strings.HasPrefix(request.URL.Path, prefix) {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		transactionID := strings.TrimPrefix(request.URL.Path, prefix)
		if !strings.HasPrefix(transactionID, "hallway-") {
			t.Errorf("unexpected transaction ID format: %s", transactionID)
		}
		var content MessageContent
		json.NewDecoder(request.Body).Decode(&content)
		if content.MsgType != "m.text" || content.Body != "hello" {
			t.Errorf("unexpected content: %+v", content)
		}
		writeJSON(writer, SendEventResponse{EventID: ref.MustParseEventID("$msg1")})
	}))

	eventID, err := session.SendMessage(context.Background(), mustRoomID(t, "!room:local"), NewTextMessage("hello"))
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if eventID.String() != "$msg1" {
		t.Errorf("unexpected event ID: %s", eventID)
	}
}

func TestTransactionIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		parts := strings.Split(request.URL.Path, "/")
		transactionID := parts[len(parts)-1]
		if seen[transactionID] {
			t.Errorf("duplicate transaction ID: %s", transactionID)
		}
		seen[transactionID] = true
		writeJSON(writer, SendEventResponse{EventID: ref.MustParseEventID("$e")})
	}))

	roomID := mustRoomID(t, "!room:local")
	for i := 0; i < 5; i++ {
		if _, err := session.SendMessage(context.Background(), roomID, NewTextMessage("x")); err != nil {
			t.Fatalf("SendMessage failed: %v", err)
		}
	}
	if len(seen) != 5 {
		t.Errorf("expected 5 distinct transaction IDs, got %d", len(seen))
	}
}

func TestGetStateEventNotFound(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(http.StatusNotFound)
		json.NewEncoder(writer).Encode(map[string]string{
			"errcode": "M_NOT_FOUND",
			"error":   "Event not found.",
		})
	}))

	_, err := session.GetStateEvent(context.Background(), mustRoomID(t, "!room:local"), ref.EventTypeRoomName, "")
	if err == nil {
		t.Fatal("expected error for missing state event")
	}
	if !IsMatrixError(err, ErrCodeNotFound) {
		t.Errorf("expected M_NOT_FOUND, got %v", err)
	}
}

func TestRoomMessages(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/_matrix/client/v3/rooms/!room:local/messages" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		query := request.URL.Query()
		if query.Get("from") != "token-1" {
			t.Errorf("unexpected from: %s", query.Get("from"))
		}
		if query.Get("dir") != "b" {
			t.Errorf("unexpected dir: %s", query.Get("dir"))
		}
		if query.Get("limit") != "10" {
			t.Errorf("unexpected limit: %s", query.Get("limit"))
		}
		writeJSON(writer, RoomMessagesResponse{
			Start: "token-1",
			End:   "token-2",
			Chunk: []Event{
				{EventID: ref.MustParseEventID("$m2"), Type: ref.EventTypeRoomMessage},
				{EventID: ref.MustParseEventID("$m1"), Type: ref.EventTypeRoomMessage},
			},
		})
	}))

	response, err := session.RoomMessages(context.Background(), mustRoomID(t, "!room:local"), RoomMessagesOptions{
		From:  "token-1",
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("RoomMessages failed: %v", err)
	}
	if len(response.Chunk) != 2 {
		t.Errorf("unexpected chunk size: %d", len(response.Chunk))
	}
	if response.End != "token-2" {
		t.Errorf("unexpected end token: %s", response.End)
	}
}

func TestSearchMessages(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/_matrix/client/v3/search" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		if request.URL.Query().Get("next_batch") != "batch-1" {
			t.Errorf("unexpected next_batch: %s", request.URL.Query().Get("next_batch"))
		}
		var search SearchRequest
		if err := json.NewDecoder(request.Body).Decode(&search); err != nil {
			t.Fatalf("decoding search request: %v", err)
		}
		criteria := search.SearchCategories.RoomEvents
		if criteria.SearchTerm != "deploy" {
			t.Errorf("unexpected search term: %s", criteria.SearchTerm)
		}
		if criteria.EventContext == nil || criteria.EventContext.BeforeLimit != 2 {
			t.Errorf("unexpected event context: %+v", criteria.EventContext)
		}
		if criteria.Filter == nil || len(criteria.Filter.Rooms) != 1 {
			t.Errorf("expected room filter, got %+v", criteria.Filter)
		}
		writeJSON(writer, SearchResponse{
			SearchCategories: SearchResultCategories{
				RoomEvents: RoomEventsResults{
					Count: 1,
					Results: []SearchResult{
						{Result: Event{EventID: ref.MustParseEventID("$hit1")}},
					},
					NextBatch: "batch-2",
				},
			},
		})
	}))

	results, err := session.SearchMessages(context.Background(), mustRoomID(t, "!room:local"), "deploy", "batch-1", 2, 2)
	if err != nil {
		t.Fatalf("SearchMessages failed: %v", err)
	}
	if results.Count != 1 || len(results.Results) != 1 {
		t.Errorf("unexpected results: %+v", results)
	}
	if results.NextBatch != "batch-2" {
		t.Errorf("unexpected next batch: %s", results.NextBatch)
	}
}

func TestSearchMessagesAllRooms(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		var search SearchRequest
		json.NewDecoder(request.Body).Decode(&search)
		if search.SearchCategories.RoomEvents.Filter != nil {
			t.Error("expected no room filter for all-rooms search")
		}
		writeJSON(writer, SearchResponse{})
	}))

	if _, err := session.SearchMessages(context.Background(), ref.RoomID{}, "deploy", "", 0, 0); err != nil {
		t.Fatalf("SearchMessages failed: %v", err)
	}
}

func TestTypingAndReceipts(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		switch request.URL.Path {
		case "/_matrix/client/v3/rooms/!room:local/typing/@test:local":
			var typing TypingRequest
			json.NewDecoder(request.Body).Decode(&typing)
			if !typing.Typing || typing.Timeout != 5000 {
				t.Errorf("unexpected typing request: %+v", typing)
			}
		case "/_matrix/client/v3/rooms/!room:local/receipt/m.read/$evt1":
			// body is an empty object
		case "/_matrix/client/v3/rooms/!room:local/read_markers":
			var markers ReadMarkersRequest
			json.NewDecoder(request.Body).Decode(&markers)
			if markers.FullyRead.String() != "$evt1" {
				t.Errorf("unexpected fully_read: %s", markers.FullyRead)
			}
		default:
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		writeJSON(writer, struct{}{})
	}))

	ctx := context.Background()
	roomID := mustRoomID(t, "!room:local")
	eventID := ref.MustParseEventID("$evt1")

	if err := session.SendTyping(ctx, roomID, true, 5*time.Second); err != nil {
		t.Fatalf("SendTyping failed: %v", err)
	}
	if err := session.SendReadReceipt(ctx, roomID, eventID); err != nil {
		t.Fatalf("SendReadReceipt failed: %v", err)
	}
	if err := session.SetReadMarkers(ctx, roomID, eventID, eventID); err != nil {
		t.Fatalf("SetReadMarkers failed: %v", err)
	}
}

func TestSetPusher(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/_matrix/client/v3/pushers/set" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		var pusher PusherRequest
		json.NewDecoder(request.Body).Decode(&pusher)
		if pusher.Kind != "http" {
			t.Errorf("unexpected kind: %s", pusher.Kind)
		}
		if pusher.Data.URL == "" {
			t.Error("expected pusher gateway URL")
		}
		writeJSON(writer, struct{}{})
	}))

	err := session.SetPusher(context.Background(), PusherRequest{
		Kind:    "http",
		AppID:   "chat.hallway",
		PushKey: "key-1",
		Data:    PusherData{URL: "https://push.local/_matrix/push/v1/notify"},
	})
	if err != nil {
		t.Fatalf("SetPusher failed: %v", err)
	}
}

func TestPresence(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		switch request.Method {
		case http.MethodPut:
			if request.URL.Path != "/_matrix/client/v3/presence/@test:local/status" {
				t.Errorf("unexpected path: %s", request.URL.Path)
			}
			var presence SetPresenceRequest
			json.NewDecoder(request.Body).Decode(&presence)
			if presence.Presence != "online" {
				t.Errorf("unexpected presence: %s", presence.Presence)
			}
			writeJSON(writer, struct{}{})
		case http.MethodGet:
			if request.URL.Path != "/_matrix/client/v3/presence/@alice:local/status" {
				t.Errorf("unexpected path: %s", request.URL.Path)
			}
			writeJSON(writer, PresenceResponse{Presence: "unavailable"})
		}
	}))

	ctx := context.Background()
	if err := session.SetPresence(ctx, "online", ""); err != nil {
		t.Fatalf("SetPresence failed: %v", err)
	}
	presence, err := session.GetPresence(ctx, mustUserID(t, "@alice:local"))
	if err != nil {
		t.Fatalf("GetPresence failed: %v", err)
	}
	if presence.Presence != "unavailable" {
		t.Errorf("unexpected presence: %s", presence.Presence)
	}
}

func TestUploadMedia(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/_matrix/media/v3/upload" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		if contentType := request.Header.Get("Content-Type"); contentType != "image/png" {
			t.Errorf("unexpected content type: %s", contentType)
		}
		writeJSON(writer, UploadResponse{ContentURI: "mxc://local/upload1"})
	}))

	uri, err := session.UploadMedia(context.Background(), "image/png", strings.NewReader("fake-png"))
	if err != nil {
		t.Fatalf("UploadMedia failed: %v", err)
	}
	if uri != "mxc://local/upload1" {
		t.Errorf("unexpected content URI: %s", uri)
	}
}

func TestDownloadMedia(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/_matrix/media/v3/download/local/media1" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		writer.Write([]byte("media-bytes"))
	}))

	destDir := t.TempDir()
	path, err := session.DownloadMedia(context.Background(), "mxc://local/media1", destDir)
	if err != nil {
		t.Fatalf("DownloadMedia failed: %v", err)
	}
	if filepath.Dir(path) != destDir {
		t.Errorf("file written outside dest dir: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(data) != "media-bytes" {
		t.Errorf("unexpected file content: %q", data)
	}
}

func TestMediaDownloadURL(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {}))

	url, err := session.MediaDownloadURL("mxc://example.org/abc123")
	if err != nil {
		t.Fatalf("MediaDownloadURL failed: %v", err)
	}
	if !strings.HasSuffix(url, "/_matrix/media/v3/download/example.org/abc123") {
		t.Errorf("unexpected URL: %s", url)
	}

	for _, invalid := range []string{"", "http://example.org/a", "mxc://", "mxc://serveronly"} {
		if _, err := session.MediaDownloadURL(invalid); err == nil {
			t.Errorf("expected error for %q", invalid)
		}
	}
}

func TestPublicRooms(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/_matrix/client/v3/publicRooms" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		if request.URL.Query().Get("limit") != "20" {
			t.Errorf("unexpected limit: %s", request.URL.Query().Get("limit"))
		}
		writeJSON(writer, PublicRoomsResponse{
			Chunk: []PublicRoom{
				{RoomID: ref.MustParseRoomID("!pub:local"), Name: "Town Square", NumJoinedMembers: 42},
			},
			NextBatch: "page-2",
		})
	}))

	response, err := session.PublicRooms(context.Background(), 20, "")
	if err != nil {
		t.Fatalf("PublicRooms failed: %v", err)
	}
	if len(response.Chunk) != 1 || response.Chunk[0].Name != "Town Square" {
		t.Errorf("unexpected rooms: %+v", response.Chunk)
	}
}

func TestJoinedRooms(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/_matrix/client/v3/joined_rooms" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		writeJSON(writer, JoinedRoomsResponse{
			JoinedRooms: []ref.RoomID{
				ref.MustParseRoomID("!a:local"),
				ref.MustParseRoomID("!b:local"),
			},
		})
	}))

	rooms, err := session.JoinedRooms(context.Background())
	if err != nil {
		t.Fatalf("JoinedRooms failed: %v", err)
	}
	if len(rooms) != 2 {
		t.Errorf("unexpected room count: %d", len(rooms))
	}
}

func TestRoomMembers(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/_matrix/client/v3/rooms/!room:local/members" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		writeJSON(writer, RoomMembersResponse{
			Chunk: []RoomMemberEvent{
				{
					Type:     "m.room.member",
					StateKey: ref.MustParseUserID("@alice:local"),
					Content:  RoomMemberContent{Membership: "join", DisplayName: "Alice"},
				},
				{
					Type:     "m.room.member",
					StateKey: ref.MustParseUserID("@bob:local"),
					Content:  RoomMemberContent{Membership: "leave"},
				},
			},
		})
	}))

	members, err := session.RoomMembers(context.Background(), mustRoomID(t, "!room:local"))
	if err != nil {
		t.Fatalf("RoomMembers failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("unexpected member count: %d", len(members))
	}
	if members[0].DisplayName != "Alice" || members[0].Membership != "join" {
		t.Errorf("unexpected member: %+v", members[0])
	}
	if members[1].Membership != "leave" {
		t.Errorf("unexpected member: %+v", members[1])
	}
}

func TestResolveAlias(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/_matrix/client/v3/directory/room/%23lobby:local" &&
			request.URL.Path != "/_matrix/client/v3/directory/room/#lobby:local" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		writeJSON(writer, ResolveAliasResponse{RoomID: ref.MustParseRoomID("!lobby:local")})
	}))

	alias, err := ref.ParseRoomAlias("#lobby:local")
	if err != nil {
		t.Fatalf("parsing alias: %v", err)
	}
	roomID, err := session.ResolveAlias(context.Background(), alias)
	if err != nil {
		t.Fatalf("ResolveAlias failed: %v", err)
	}
	if roomID.String() != "!lobby:local" {
		t.Errorf("unexpected room ID: %s", roomID)
	}
}

func TestSync(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/_matrix/client/v3/sync" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		query := request.URL.Query()
		if query.Get("since") != "batch-1" {
			t.Errorf("unexpected since: %s", query.Get("since"))
		}
		if query.Get("timeout") != "30000" {
			t.Errorf("unexpected timeout: %s", query.Get("timeout"))
		}
		writeJSON(writer, SyncResponse{NextBatch: "batch-2"})
	}))

	response, err := session.Sync(context.Background(), SyncOptions{
		Since:      "batch-1",
		Timeout:    30000,
		SetTimeout: true,
	})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if response.NextBatch != "batch-2" {
		t.Errorf("unexpected next batch: %s", response.NextBatch)
	}
}
