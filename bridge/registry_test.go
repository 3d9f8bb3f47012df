// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"testing"
	"time"

	"github.com/hallway-chat/hallway/lib/testutil"
)

const notificationTimeout = 5 * time.Second

// requireNotification reads one push delivery, failing on timeout.
func requireNotification(t *testing.T, session *Session) Notification {
	t.Helper()
	return testutil.RequireReceive(t, session.Notifications(), notificationTimeout, "waiting for notification")
}

// requireNoNotification asserts the channel stays quiet briefly.
func requireNoNotification(t *testing.T, session *Session) {
	t.Helper()
	select {
	case notification := <-session.Notifications():
		t.Fatalf("unexpected notification on channel %q", notification.Channel)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestListenToRoomRoutesByDirection(t *testing.T) {
	session, client := newReadySession(t)
	client.addRoom(ProtocolRoom{ID: "!r:local", Membership: "join"})

	if err := session.ListenToRoom("!r:local"); err != nil {
		t.Fatalf("ListenToRoom failed: %v", err)
	}
	subscription := client.roomSub("!r:local")
	if subscription == nil {
		t.Fatal("no room subscription opened on client")
	}

	subscription.push(ProtocolEvent{
		Type:      "m.room.message",
		ID:        "$E1",
		RoomID:    "!r:local",
		Sender:    "@bob:local",
		Direction: DirectionForwards,
	})
	notification := requireNotification(t, session)
	if notification.Channel != ChannelRoomForwards {
		t.Fatalf("channel = %q, want %q", notification.Channel, ChannelRoomForwards)
	}
	if notification.Event.EventID == nil || *notification.Event.EventID != "$E1" {
		t.Fatalf("event_id = %v, want $E1", notification.Event.EventID)
	}
	requireNoNotification(t, session)

	subscription.push(ProtocolEvent{
		Type:      "m.room.message",
		ID:        "$E0",
		RoomID:    "!r:local",
		Direction: DirectionBackwards,
	})
	notification = requireNotification(t, session)
	if notification.Channel != ChannelRoomBackwards {
		t.Fatalf("channel = %q, want %q", notification.Channel, ChannelRoomBackwards)
	}
}

func TestListenToRoomTwiceFails(t *testing.T) {
	session, client := newReadySession(t)
	client.addRoom(ProtocolRoom{ID: "!r:local", Membership: "join"})

	if err := session.ListenToRoom("!r:local"); err != nil {
		t.Fatalf("first ListenToRoom failed: %v", err)
	}
	if err := session.ListenToRoom("!r:local"); !IsKind(err, KindAlreadyListening) {
		t.Fatalf("second ListenToRoom error = %v, want KindAlreadyListening", err)
	}
}

func TestListenToRoomUnknownRoom(t *testing.T) {
	session, _ := newReadySession(t)
	if err := session.ListenToRoom("!missing:local"); !IsKind(err, KindRoomNotFound) {
		t.Fatalf("ListenToRoom error = %v, want KindRoomNotFound", err)
	}
}

func TestUnlistenToRoomWithoutListener(t *testing.T) {
	session, client := newReadySession(t)
	client.addRoom(ProtocolRoom{ID: "!r:local", Membership: "join"})

	if err := session.UnlistenToRoom("!r:local"); !IsKind(err, KindNoListener) {
		t.Fatalf("UnlistenToRoom error = %v, want KindNoListener", err)
	}

	// Listen then unlisten twice: the second call must fail.
	if err := session.ListenToRoom("!r:local"); err != nil {
		t.Fatalf("ListenToRoom failed: %v", err)
	}
	if err := session.UnlistenToRoom("!r:local"); err != nil {
		t.Fatalf("UnlistenToRoom failed: %v", err)
	}
	if err := session.UnlistenToRoom("!r:local"); !IsKind(err, KindNoListener) {
		t.Fatalf("repeat UnlistenToRoom error = %v, want KindNoListener", err)
	}
}

func TestUnlistenToRoomCancelsSubscription(t *testing.T) {
	session, client := newReadySession(t)
	client.addRoom(ProtocolRoom{ID: "!r:local", Membership: "join"})

	if err := session.ListenToRoom("!r:local"); err != nil {
		t.Fatalf("ListenToRoom failed: %v", err)
	}
	subscription := client.roomSub("!r:local")
	if err := session.UnlistenToRoom("!r:local"); err != nil {
		t.Fatalf("UnlistenToRoom failed: %v", err)
	}
	if !subscription.isCancelled() {
		t.Fatal("client subscription not cancelled")
	}

	// The room is free again.
	if err := session.ListenToRoom("!r:local"); err != nil {
		t.Fatalf("re-ListenToRoom failed: %v", err)
	}
}

func TestRoomListenersAreIndependent(t *testing.T) {
	session, client := newReadySession(t)
	client.addRoom(ProtocolRoom{ID: "!a:local", Membership: "join"})
	client.addRoom(ProtocolRoom{ID: "!b:local", Membership: "join"})

	if err := session.ListenToRoom("!a:local"); err != nil {
		t.Fatalf("ListenToRoom a failed: %v", err)
	}
	if err := session.ListenToRoom("!b:local"); err != nil {
		t.Fatalf("ListenToRoom b failed: %v", err)
	}

	client.roomSub("!b:local").push(ProtocolEvent{
		Type:      "m.room.message",
		ID:        "$B1",
		RoomID:    "!b:local",
		Direction: DirectionForwards,
	})
	notification := requireNotification(t, session)
	if notification.Event.RoomID == nil || *notification.Event.RoomID != "!b:local" {
		t.Fatalf("room_id = %v, want !b:local", notification.Event.RoomID)
	}
}

func TestGlobalListenerForwardsOnly(t *testing.T) {
	session, client := newReadySession(t)

	if err := session.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	client.mu.Lock()
	subscription := client.globalSub
	client.mu.Unlock()

	// Backfill traffic never reaches the host through the global
	// listener, regardless of type.
	subscription.push(ProtocolEvent{
		Type:      "m.room.message",
		ID:        "$OLD",
		RoomID:    "!r:local",
		Direction: DirectionBackwards,
	})
	requireNoNotification(t, session)

	subscription.push(ProtocolEvent{
		Type:      "m.room.message",
		ID:        "$NEW",
		RoomID:    "!r:local",
		Direction: DirectionForwards,
	})
	notification := requireNotification(t, session)
	if notification.Channel != "m.room.message" {
		t.Fatalf("channel = %q, want the event type", notification.Channel)
	}
	if notification.Event.EventID == nil || *notification.Event.EventID != "$NEW" {
		t.Fatalf("event_id = %v, want $NEW", notification.Event.EventID)
	}
}

func TestGlobalListenerAllowList(t *testing.T) {
	session, client := newReadySession(t)

	if err := session.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	client.mu.Lock()
	subscription := client.globalSub
	client.mu.Unlock()

	subscription.push(ProtocolEvent{
		Type:      "com.example.custom",
		ID:        "$C1",
		Direction: DirectionForwards,
	})
	requireNoNotification(t, session)

	session.SetAdditionalEventTypes([]string{"com.example.custom"})
	subscription.push(ProtocolEvent{
		Type:      "com.example.custom",
		ID:        "$C2",
		Direction: DirectionForwards,
	})
	notification := requireNotification(t, session)
	if notification.Channel != "com.example.custom" {
		t.Fatalf("channel = %q", notification.Channel)
	}

	// Replacing the additional set revokes earlier extensions; the
	// base set stays active.
	session.SetAdditionalEventTypes(nil)
	subscription.push(ProtocolEvent{
		Type:      "com.example.custom",
		ID:        "$C3",
		Direction: DirectionForwards,
	})
	requireNoNotification(t, session)

	subscription.push(ProtocolEvent{
		Type:      "m.reaction",
		ID:        "$R1",
		Direction: DirectionForwards,
	})
	if got := requireNotification(t, session); got.Channel != "m.reaction" {
		t.Fatalf("channel = %q, want m.reaction", got.Channel)
	}
}

func TestListenTwiceFailsUnlistenForgiving(t *testing.T) {
	session, _ := newReadySession(t)

	if err := session.Listen(); err != nil {
		t.Fatalf("first Listen failed: %v", err)
	}
	if err := session.Listen(); !IsKind(err, KindAlreadyListening) {
		t.Fatalf("second Listen error = %v, want KindAlreadyListening", err)
	}
	if err := session.Unlisten(); err != nil {
		t.Fatalf("Unlisten failed: %v", err)
	}
	if err := session.Unlisten(); err != nil {
		t.Fatalf("repeat Unlisten failed: %v, want no-op", err)
	}
	if err := session.Listen(); err != nil {
		t.Fatalf("re-Listen failed: %v", err)
	}
}
