// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"sort"
	"testing"
)

func TestCreateRoomSynthesizesPendingInvites(t *testing.T) {
	session, client := newReadySession(t)
	client.createdRoom = ProtocolRoom{
		ID:         "!new:local",
		Name:       "Planning",
		Membership: "join",
		Members: []ProtocolMember{
			{UserID: "@alice:local", Membership: "join"},
		},
	}

	room, err := session.CreateRoom(context.Background(), CreateRoomParams{
		Name:       "Planning",
		InviteeIDs: []string{"@bob:local", "@carol:local"},
	})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if room.RoomID != "!new:local" {
		t.Fatalf("RoomID = %q", room.RoomID)
	}
	if len(room.Members) != 3 {
		t.Fatalf("got %d members, want creator plus 2 pending invites", len(room.Members))
	}
	for _, member := range room.Members[1:] {
		if member.Membership != "invite" {
			t.Errorf("invitee %s membership = %q, want invite", member.UserID, member.Membership)
		}
	}
}

func TestJoinAndLeaveRoom(t *testing.T) {
	session, client := newReadySession(t)
	client.addRoom(ProtocolRoom{ID: "!r:local", Name: "Room", Membership: "invite"})
	ctx := context.Background()

	room, err := session.JoinRoom(ctx, "!r:local")
	if err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	if room.Membership != "join" || room.IsLeft {
		t.Fatalf("joined room = %+v", room)
	}

	if err := session.LeaveRoom(ctx, "!r:local"); err != nil {
		t.Fatalf("LeaveRoom failed: %v", err)
	}
	left, _ := client.Room("!r:local")
	if left.Membership != "leave" {
		t.Fatalf("membership after leave = %q", left.Membership)
	}
}

func TestJoinRoomFailureIsProtocolError(t *testing.T) {
	session, _ := newReadySession(t)
	if _, err := session.JoinRoom(context.Background(), "!missing:local"); !IsKind(err, KindProtocol) {
		t.Fatalf("JoinRoom error = %v, want KindProtocol", err)
	}
}

func TestGetJoinedRoomsMergesMembers(t *testing.T) {
	session, client := newReadySession(t)
	client.addRoom(ProtocolRoom{ID: "!a:local", Name: "A", Membership: "join"})
	client.addRoom(ProtocolRoom{ID: "!b:local", Name: "B", Membership: "join"})
	client.addRoom(ProtocolRoom{ID: "!inv:local", Membership: "invite"})
	client.addRoom(ProtocolRoom{ID: "!old:local", Membership: "leave"})
	client.mu.Lock()
	client.members["!a:local"] = []ProtocolMember{
		{UserID: "@alice:local", Membership: "join"},
		{UserID: "@bob:local", Membership: "join"},
	}
	client.mu.Unlock()

	rooms, err := session.GetJoinedRooms(context.Background())
	if err != nil {
		t.Fatalf("GetJoinedRooms failed: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("got %d rooms, want 2 joined", len(rooms))
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].RoomID < rooms[j].RoomID })
	if len(rooms[0].Members) != 2 {
		t.Fatalf("room a has %d members, want 2", len(rooms[0].Members))
	}
	if rooms[1].Members == nil || len(rooms[1].Members) != 0 {
		t.Fatalf("room b members = %v, want empty list", rooms[1].Members)
	}
}

func TestGetJoinedRoomsMemberFetchFailure(t *testing.T) {
	session, client := newReadySession(t)
	client.addRoom(ProtocolRoom{ID: "!a:local", Membership: "join"})
	client.mu.Lock()
	client.membersErr = errors.New("members unavailable")
	client.mu.Unlock()

	if _, err := session.GetJoinedRooms(context.Background()); !IsKind(err, KindProtocol) {
		t.Fatalf("GetJoinedRooms error = %v, want KindProtocol", err)
	}
}

func TestGetLastEvents(t *testing.T) {
	session, client := newReadySession(t)
	client.addRoom(ProtocolRoom{
		ID:         "!a:local",
		Membership: "join",
		LastEvent:  &ProtocolEvent{Type: "m.room.message", ID: "$A9", RoomID: "!a:local"},
	})
	client.addRoom(ProtocolRoom{ID: "!quiet:local", Membership: "join"})

	events, err := session.GetLastEvents(context.Background())
	if err != nil {
		t.Fatalf("GetLastEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1 (rooms without activity skipped)", len(events))
	}
	if events[0].EventID == nil || *events[0].EventID != "$A9" {
		t.Fatalf("event_id = %v, want $A9", events[0].EventID)
	}

	session.Close()
	if _, err := session.GetLastEvents(context.Background()); !IsKind(err, KindNotConnected) {
		t.Fatalf("post-close error = %v, want KindNotConnected", err)
	}
}

func TestGetInvitedAndLeftRooms(t *testing.T) {
	session, client := newReadySession(t)
	client.addRoom(ProtocolRoom{ID: "!a:local", Membership: "join"})
	client.addRoom(ProtocolRoom{ID: "!inv:local", Membership: "invite"})
	client.addRoom(ProtocolRoom{ID: "!old:local", Membership: "leave"})

	invited, err := session.GetInvitedRooms(context.Background())
	if err != nil {
		t.Fatalf("GetInvitedRooms failed: %v", err)
	}
	if len(invited) != 1 || invited[0].RoomID != "!inv:local" {
		t.Fatalf("invited = %+v", invited)
	}

	left, err := session.GetLeftRooms(context.Background())
	if err != nil {
		t.Fatalf("GetLeftRooms failed: %v", err)
	}
	if len(left) != 1 || !left[0].IsLeft {
		t.Fatalf("left = %+v", left)
	}
}

func TestGetPublicRooms(t *testing.T) {
	session, client := newReadySession(t)
	client.mu.Lock()
	client.publicRooms = []ProtocolRoom{{ID: "!pub:local", Name: "Lobby"}}
	client.publicNextBatch = "page2"
	client.mu.Unlock()

	rooms, nextBatch, err := session.GetPublicRooms(context.Background(), 10, "")
	if err != nil {
		t.Fatalf("GetPublicRooms failed: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Name != "Lobby" || nextBatch != "page2" {
		t.Fatalf("rooms = %+v, nextBatch = %q", rooms, nextBatch)
	}
}

func TestSendMessageToRoomInjectsMsgtype(t *testing.T) {
	session, client := newReadySession(t)
	data := map[string]any{"body": "hello"}

	eventID, err := session.SendMessageToRoom(context.Background(), "!r:local", "m.text", data)
	if err != nil {
		t.Fatalf("SendMessageToRoom failed: %v", err)
	}
	if eventID != "$sent1" {
		t.Fatalf("eventID = %q", eventID)
	}

	client.mu.Lock()
	sent := client.sentEvents[0]
	client.mu.Unlock()
	if sent.eventType != "m.room.message" {
		t.Fatalf("event type = %q", sent.eventType)
	}
	if sent.content["msgtype"] != "m.text" || sent.content["body"] != "hello" {
		t.Fatalf("content = %v", sent.content)
	}
	// The caller's map is not mutated.
	if _, polluted := data["msgtype"]; polluted {
		t.Fatal("caller's data map mutated with msgtype")
	}
}

func TestSendEventToRoom(t *testing.T) {
	session, client := newReadySession(t)

	if _, err := session.SendEventToRoom(context.Background(), "!r:local", "com.example.ping", map[string]any{"n": 1}); err != nil {
		t.Fatalf("SendEventToRoom failed: %v", err)
	}
	client.mu.Lock()
	sent := client.sentEvents[0]
	client.mu.Unlock()
	if sent.eventType != "com.example.ping" || sent.roomID != "!r:local" {
		t.Fatalf("sent = %+v", sent)
	}
}

func TestReceiptsAndReadMarkers(t *testing.T) {
	session, client := newReadySession(t)
	ctx := context.Background()

	if err := session.SendReadReceipt(ctx, "!r:local", "$E1"); err != nil {
		t.Fatalf("SendReadReceipt failed: %v", err)
	}
	if err := session.MarkRoomAsRead(ctx, "!r:local"); err != nil {
		t.Fatalf("MarkRoomAsRead failed: %v", err)
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.readReceipts) != 1 || client.readReceipts[0] != "!r:local/$E1" {
		t.Fatalf("receipts = %v", client.readReceipts)
	}
	if len(client.markedAsRead) != 1 || client.markedAsRead[0] != "!r:local" {
		t.Fatalf("marked = %v", client.markedAsRead)
	}
}

func TestRegisterPushNotifications(t *testing.T) {
	session, client := newReadySession(t)

	err := session.RegisterPushNotifications(context.Background(), "Hallway", "chat.hallway.app", "https://push.local/_matrix/push/v1/notify", "push-key-1")
	if err != nil {
		t.Fatalf("RegisterPushNotifications failed: %v", err)
	}
	client.mu.Lock()
	registration := client.pushers[0]
	client.mu.Unlock()
	if registration.AppID != "chat.hallway.app" || registration.PushKey != "push-key-1" {
		t.Fatalf("registration = %+v", registration)
	}
}

func TestChangeUserPermissionLevels(t *testing.T) {
	session, _ := newReadySession(t)
	ctx := context.Background()

	if err := session.ChangeUserPermission(ctx, "!r:local", "@bob:local", true); err != nil {
		t.Fatalf("promote failed: %v", err)
	}
	if err := session.ChangeUserPermission(ctx, "!r:local", "@bob:local", false); err != nil {
		t.Fatalf("demote failed: %v", err)
	}
}

func TestContentOperations(t *testing.T) {
	session, client := newReadySession(t)
	ctx := context.Background()

	contentURI, err := session.UploadContent(ctx, "/tmp/pic.png", "image/png")
	if err != nil {
		t.Fatalf("UploadContent failed: %v", err)
	}
	if contentURI != "mxc://local/up1" {
		t.Fatalf("contentURI = %q", contentURI)
	}

	path, err := session.DownloadContent(ctx, contentURI, "/tmp/downloads")
	if err != nil {
		t.Fatalf("DownloadContent failed: %v", err)
	}
	if path != "/tmp/downloads/file1" {
		t.Fatalf("path = %q", path)
	}

	url, err := session.ContentGetDownloadableURL(contentURI)
	if err != nil {
		t.Fatalf("ContentGetDownloadableURL failed: %v", err)
	}
	if url != "https://matrix.local/media/mxc://local/up1" {
		t.Fatalf("url = %q", url)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.uploads) != 1 || len(client.downloads) != 1 {
		t.Fatalf("uploads = %v, downloads = %v", client.uploads, client.downloads)
	}
}

func TestTypingAndPresence(t *testing.T) {
	session, client := newReadySession(t)
	ctx := context.Background()

	if err := session.SendTyping(ctx, "!r:local", true, 4000); err != nil {
		t.Fatalf("SendTyping failed: %v", err)
	}
	if err := session.UpdatePresence(ctx, false); err != nil {
		t.Fatalf("UpdatePresence failed: %v", err)
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.typingCalls) != 1 || !client.typingCalls[0] {
		t.Fatalf("typing calls = %v", client.typingCalls)
	}
	if len(client.presenceCalls) != 1 || client.presenceCalls[0] {
		t.Fatalf("presence calls = %v", client.presenceCalls)
	}
}

func TestSearchMessagesInRoom(t *testing.T) {
	session, client := newReadySession(t)
	client.mu.Lock()
	client.searchPage = SearchPage{
		Count:     1,
		NextBatch: "more",
		Results: []SearchHit{{
			Event:  ProtocolEvent{Type: "m.room.message", ID: "$HIT", RoomID: "!r:local"},
			Before: []ProtocolEvent{{ID: "$B1"}},
		}},
	}
	client.mu.Unlock()

	page, err := session.SearchMessagesInRoom(context.Background(), "!r:local", "deploy", "", 1, 1)
	if err != nil {
		t.Fatalf("SearchMessagesInRoom failed: %v", err)
	}
	if page.Count != 1 || page.NextBatch != "more" || len(page.Results) != 1 {
		t.Fatalf("page = %+v", page)
	}
	if *page.Results[0].Event.EventID != "$HIT" {
		t.Fatalf("hit = %v", page.Results[0].Event.EventID)
	}
}

func TestSetUserDisplayName(t *testing.T) {
	session, client := newReadySession(t)

	if err := session.SetUserDisplayName(context.Background(), "Alice A."); err != nil {
		t.Fatalf("SetUserDisplayName failed: %v", err)
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.displayNames) != 1 || client.displayNames[0] != "Alice A." {
		t.Fatalf("display names = %v", client.displayNames)
	}
}
