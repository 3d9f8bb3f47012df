// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// fakeSubscription is a hand-fed event stream for registry tests.
type fakeSubscription struct {
	events     chan ProtocolEvent
	cancelOnce sync.Once
	cancelled  bool
	mu         sync.Mutex
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{events: make(chan ProtocolEvent, 16)}
}

func (f *fakeSubscription) Events() <-chan ProtocolEvent { return f.events }

func (f *fakeSubscription) Cancel() {
	f.cancelOnce.Do(func() {
		f.mu.Lock()
		f.cancelled = true
		f.mu.Unlock()
		close(f.events)
	})
}

func (f *fakeSubscription) isCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

func (f *fakeSubscription) push(event ProtocolEvent) {
	f.events <- event
}

// messagesCall records one Messages invocation.
type messagesCall struct {
	roomID    string
	from      string
	direction string
	limit     int
}

// sentEvent records one SendEvent invocation.
type sentEvent struct {
	roomID    string
	eventType string
	content   map[string]any
}

// fakeClient is an in-memory ProtocolClient.
type fakeClient struct {
	mu sync.Mutex

	configured  string
	credentials Credentials
	installed   *Credentials
	authErr     error
	syncErr     error
	syncStarted bool
	syncStopped bool
	profile     UserProfile
	profileErr  error

	rooms        map[string]ProtocolRoom
	roomSubs     map[string]*fakeSubscription
	globalSub    *fakeSubscription
	subscribeErr error

	// pages maps a from-token to the page Messages returns for it.
	pages         map[string]MessagesPage
	messagesErr   error
	messagesCalls []messagesCall

	backPaginateCalls []bool // reset flags, in order
	canBackPaginate   bool

	members    map[string][]ProtocolMember
	membersErr error

	searchPage SearchPage
	searchErr  error

	sentEvents    []sentEvent
	sendErr       error
	readReceipts  []string // "roomID/eventID"
	markedAsRead  []string
	pushers       []PushRegistration
	displayNames  []string
	uploads       []string
	downloads     []string
	typingCalls   []bool
	presenceCalls []bool

	publicRooms     []ProtocolRoom
	publicNextBatch string

	createdRoom ProtocolRoom
	createErr   error
}

var _ ProtocolClient = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{
		credentials: Credentials{
			HomeServer:  "https://matrix.local",
			UserID:      "@alice:local",
			AccessToken: "tok",
			DeviceID:    "DEV1",
		},
		profile:  UserProfile{UserID: "@alice:local", DisplayName: "Alice"},
		rooms:    make(map[string]ProtocolRoom),
		roomSubs: make(map[string]*fakeSubscription),
		pages:    make(map[string]MessagesPage),
		members:  make(map[string][]ProtocolMember),
	}
}

func (f *fakeClient) addRoom(room ProtocolRoom) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[room.ID] = room
}

func (f *fakeClient) Configure(homeserverURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configured = homeserverURL
	return nil
}

func (f *fakeClient) Authenticate(ctx context.Context, username, password string) (Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.authErr != nil {
		return Credentials{}, f.authErr
	}
	return f.credentials, nil
}

func (f *fakeClient) InstallCredentials(credentials Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installed = &credentials
	return nil
}

func (f *fakeClient) StartSync(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.syncErr != nil {
		return f.syncErr
	}
	f.syncStarted = true
	return nil
}

func (f *fakeClient) StopSync() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncStopped = true
}

func (f *fakeClient) OwnProfile(ctx context.Context) (UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profileErr != nil {
		return UserProfile{}, f.profileErr
	}
	return f.profile, nil
}

func (f *fakeClient) KnowsRoom(roomID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rooms[roomID]
	return ok
}

func (f *fakeClient) Room(roomID string) (ProtocolRoom, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	return room, ok
}

func (f *fakeClient) Rooms() []ProtocolRoom {
	f.mu.Lock()
	defer f.mu.Unlock()
	rooms := make([]ProtocolRoom, 0, len(f.rooms))
	for _, room := range f.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

func (f *fakeClient) SubscribeRoom(roomID string) (EventSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	subscription := newFakeSubscription()
	f.roomSubs[roomID] = subscription
	return subscription, nil
}

func (f *fakeClient) SubscribeAll() (EventSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.globalSub = newFakeSubscription()
	return f.globalSub, nil
}

func (f *fakeClient) roomSub(roomID string) *fakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roomSubs[roomID]
}

func (f *fakeClient) CreateRoom(ctx context.Context, params CreateRoomParams) (ProtocolRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return ProtocolRoom{}, f.createErr
	}
	return f.createdRoom, nil
}

func (f *fakeClient) JoinRoom(ctx context.Context, roomID string) (ProtocolRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	if !ok {
		return ProtocolRoom{}, errors.New("unknown room")
	}
	room.Membership = "join"
	f.rooms[roomID] = room
	return room, nil
}

func (f *fakeClient) LeaveRoom(ctx context.Context, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	if !ok {
		return errors.New("unknown room")
	}
	room.Membership = "leave"
	f.rooms[roomID] = room
	return nil
}

func (f *fakeClient) InviteUser(ctx context.Context, roomID, userID string) error { return nil }

func (f *fakeClient) KickUser(ctx context.Context, roomID, userID, reason string) error { return nil }

func (f *fakeClient) SetRoomName(ctx context.Context, roomID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	room := f.rooms[roomID]
	room.Name = name
	f.rooms[roomID] = room
	return nil
}

func (f *fakeClient) SetPowerLevel(ctx context.Context, roomID, userID string, level int) error {
	return nil
}

func (f *fakeClient) RoomMembers(ctx context.Context, roomID string) ([]ProtocolMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.membersErr != nil {
		return nil, f.membersErr
	}
	return f.members[roomID], nil
}

func (f *fakeClient) PublicRooms(ctx context.Context, limit int, since string) ([]ProtocolRoom, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.publicRooms, f.publicNextBatch, nil
}

func (f *fakeClient) Messages(ctx context.Context, roomID, from, direction string, limit int) (MessagesPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messagesCalls = append(f.messagesCalls, messagesCall{
		roomID:    roomID,
		from:      from,
		direction: direction,
		limit:     limit,
	})
	if f.messagesErr != nil {
		return MessagesPage{}, f.messagesErr
	}
	return f.pages[from], nil
}

func (f *fakeClient) BackPaginate(ctx context.Context, roomID string, limit int, reset bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backPaginateCalls = append(f.backPaginateCalls, reset)
	return limit, nil
}

func (f *fakeClient) CanBackPaginate(roomID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canBackPaginate
}

func (f *fakeClient) SearchMessages(ctx context.Context, roomID, term, nextBatch string, beforeLimit, afterLimit int) (SearchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return SearchPage{}, f.searchErr
	}
	return f.searchPage, nil
}

func (f *fakeClient) SendEvent(ctx context.Context, roomID, eventType string, content map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sentEvents = append(f.sentEvents, sentEvent{roomID: roomID, eventType: eventType, content: content})
	return "$sent1", nil
}

func (f *fakeClient) SendReadReceipt(ctx context.Context, roomID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readReceipts = append(f.readReceipts, roomID+"/"+eventID)
	return nil
}

func (f *fakeClient) MarkRoomAsRead(ctx context.Context, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedAsRead = append(f.markedAsRead, roomID)
	return nil
}

func (f *fakeClient) RegisterPusher(ctx context.Context, registration PushRegistration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushers = append(f.pushers, registration)
	return nil
}

func (f *fakeClient) SetDisplayName(ctx context.Context, displayName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.displayNames = append(f.displayNames, displayName)
	return nil
}

func (f *fakeClient) UploadContent(ctx context.Context, path, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, path)
	return "mxc://local/up1", nil
}

func (f *fakeClient) DownloadContent(ctx context.Context, contentURI, destDir string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, contentURI)
	return destDir + "/file1", nil
}

func (f *fakeClient) ContentURL(contentURI string) (string, error) {
	return "https://matrix.local/media/" + contentURI, nil
}

func (f *fakeClient) SendTyping(ctx context.Context, roomID string, typing bool, timeoutMS int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typingCalls = append(f.typingCalls, typing)
	return nil
}

func (f *fakeClient) SetPresence(ctx context.Context, online bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presenceCalls = append(f.presenceCalls, online)
	return nil
}

// newReadySession returns a Ready session over a fresh fake client.
func newReadySession(t *testing.T) (*Session, *fakeClient) {
	t.Helper()
	client := newFakeClient()
	session := NewSession(SessionConfig{Client: client})
	t.Cleanup(session.Close)

	if err := session.Configure("https://matrix.local"); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if _, err := session.Login(context.Background(), "alice", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := session.StartSession(context.Background()); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	return session, client
}
