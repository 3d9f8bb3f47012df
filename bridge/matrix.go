// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/hallway-chat/hallway/lib/ref"
	"github.com/hallway-chat/hallway/lib/secret"
	"github.com/hallway-chat/hallway/messaging"
)

// MatrixClientConfig configures the Matrix ProtocolClient.
type MatrixClientConfig struct {
	// Logger receives client diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// HTTPClient is used for all requests. The default client has a
	// timeout sized for sync long polls.
	HTTPClient *http.Client

	// Sync tunes the background sync loop.
	Sync messaging.SyncConfig
}

// MatrixClient implements ProtocolClient over the messaging package.
type MatrixClient struct {
	logger     *slog.Logger
	httpClient *http.Client
	syncConfig messaging.SyncConfig

	mu      sync.Mutex
	client  *messaging.Client
	session *messaging.Session
	syncer  *messaging.SyncSession
}

var _ ProtocolClient = (*MatrixClient)(nil)

var (
	errNotConfigured     = errors.New("bridge: matrix client not configured, call Configure first")
	errNoSession         = errors.New("bridge: no authenticated matrix session")
	errSyncNotStarted    = errors.New("bridge: sync not started")
	errSyncAlreadyActive = errors.New("bridge: sync already started")
)

// NewMatrixClient creates a Matrix ProtocolClient. Configure must be
// called before any network operation.
func NewMatrixClient(config MatrixClientConfig) *MatrixClient {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	syncConfig := config.Sync
	if syncConfig.Logger == nil {
		syncConfig.Logger = logger
	}
	return &MatrixClient{
		logger:     logger,
		httpClient: config.HTTPClient,
		syncConfig: syncConfig,
	}
}

// Configure points the client at a homeserver.
func (m *MatrixClient) Configure(homeserverURL string) error {
	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: homeserverURL,
		HTTPClient:    m.httpClient,
		Logger:        m.logger,
	})
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.client = client
	m.mu.Unlock()
	return nil
}

// Authenticate performs a password login.
func (m *MatrixClient) Authenticate(ctx context.Context, username, password string) (Credentials, error) {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()
	if client == nil {
		return Credentials{}, errNotConfigured
	}

	passwordBuffer, err := secret.NewFromString(password)
	if err != nil {
		return Credentials{}, fmt.Errorf("bridge: protecting password: %w", err)
	}
	defer passwordBuffer.Close()

	session, err := client.Login(ctx, username, passwordBuffer)
	if err != nil {
		return Credentials{}, err
	}

	m.mu.Lock()
	m.session = session
	m.mu.Unlock()
	return Credentials{
		HomeServer:  client.HomeserverURL(),
		UserID:      session.UserID().String(),
		AccessToken: session.AccessToken(),
		DeviceID:    session.DeviceID(),
	}, nil
}

// InstallCredentials installs a persisted access token. If the client
// has not been configured yet, the credentials' homeserver is used.
func (m *MatrixClient) InstallCredentials(credentials Credentials) error {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()
	if client == nil {
		if credentials.HomeServer == "" {
			return errNotConfigured
		}
		if err := m.Configure(credentials.HomeServer); err != nil {
			return err
		}
		m.mu.Lock()
		client = m.client
		m.mu.Unlock()
	}

	userID, err := ref.ParseUserID(credentials.UserID)
	if err != nil {
		return err
	}
	session, err := client.SessionFromToken(userID, credentials.AccessToken, credentials.DeviceID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.session = session
	m.mu.Unlock()
	return nil
}

// StartSync runs the initial sync and launches the background loop.
// ctx is detached from cancellation: the loop must outlive the call
// that started it, and stops via StopSync.
func (m *MatrixClient) StartSync(ctx context.Context) error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return errNoSession
	}
	if m.syncer != nil {
		m.mu.Unlock()
		return errSyncAlreadyActive
	}
	syncer := messaging.NewSyncSession(m.session, m.syncConfig)
	m.syncer = syncer
	m.mu.Unlock()

	if err := syncer.Start(context.WithoutCancel(ctx)); err != nil {
		m.mu.Lock()
		m.syncer = nil
		m.mu.Unlock()
		return err
	}
	return nil
}

// StopSync stops the sync loop and releases the session's token
// memory. Safe to call multiple times.
func (m *MatrixClient) StopSync() {
	m.mu.Lock()
	syncer := m.syncer
	session := m.session
	m.syncer = nil
	m.session = nil
	m.mu.Unlock()

	if syncer != nil {
		syncer.Stop()
	}
	if session != nil {
		session.Close()
	}
}

// OwnProfile fetches the session user's profile and presence.
func (m *MatrixClient) OwnProfile(ctx context.Context) (UserProfile, error) {
	session, err := m.currentSession()
	if err != nil {
		return UserProfile{}, err
	}

	userID := session.UserID()
	profile, err := session.Profile(ctx, userID)
	if err != nil {
		return UserProfile{}, err
	}

	attributes := UserProfile{
		UserID:      userID.String(),
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
	}
	// Presence is best-effort; some servers disable the endpoint.
	if presence, err := session.GetPresence(ctx, userID); err == nil {
		attributes.LastActiveAgo = presence.LastActiveAgo
		attributes.Status = presence.Presence
	} else {
		m.logger.Debug("fetching own presence failed", "error", err)
	}
	return attributes, nil
}

// KnowsRoom reports whether the synced room table contains roomID.
func (m *MatrixClient) KnowsRoom(roomID string) bool {
	_, ok := m.Room(roomID)
	return ok
}

// Room returns one synced room.
func (m *MatrixClient) Room(roomID string) (ProtocolRoom, bool) {
	m.mu.Lock()
	syncer := m.syncer
	m.mu.Unlock()
	if syncer == nil {
		return ProtocolRoom{}, false
	}
	parsed, err := ref.ParseRoomID(roomID)
	if err != nil {
		return ProtocolRoom{}, false
	}
	room, ok := syncer.Room(parsed)
	if !ok {
		return ProtocolRoom{}, false
	}
	return convertRoom(room), true
}

// Rooms returns every synced room.
func (m *MatrixClient) Rooms() []ProtocolRoom {
	m.mu.Lock()
	syncer := m.syncer
	m.mu.Unlock()
	if syncer == nil {
		return nil
	}
	rooms := syncer.Rooms()
	converted := make([]ProtocolRoom, len(rooms))
	for index, room := range rooms {
		converted[index] = convertRoom(room)
	}
	return converted
}

// matrixSubscription adapts a messaging.Subscription to the bridge's
// EventSubscription.
type matrixSubscription struct {
	inner  *messaging.Subscription
	events chan ProtocolEvent
}

func newMatrixSubscription(inner *messaging.Subscription) *matrixSubscription {
	subscription := &matrixSubscription{
		inner:  inner,
		events: make(chan ProtocolEvent),
	}
	go func() {
		defer close(subscription.events)
		for event := range inner.Events() {
			subscription.events <- convertTimelineEvent(event)
		}
	}()
	return subscription
}

func (s *matrixSubscription) Events() <-chan ProtocolEvent { return s.events }
func (s *matrixSubscription) Cancel()                      { s.inner.Cancel() }

// SubscribeRoom subscribes to one room's live timeline.
func (m *MatrixClient) SubscribeRoom(roomID string) (EventSubscription, error) {
	m.mu.Lock()
	syncer := m.syncer
	m.mu.Unlock()
	if syncer == nil {
		return nil, errSyncNotStarted
	}
	parsed, err := ref.ParseRoomID(roomID)
	if err != nil {
		return nil, err
	}
	return newMatrixSubscription(syncer.Subscribe(parsed)), nil
}

// SubscribeAll subscribes to the session-wide event stream.
func (m *MatrixClient) SubscribeAll() (EventSubscription, error) {
	m.mu.Lock()
	syncer := m.syncer
	m.mu.Unlock()
	if syncer == nil {
		return nil, errSyncNotStarted
	}
	return newMatrixSubscription(syncer.SubscribeAll()), nil
}

func (m *MatrixClient) CreateRoom(ctx context.Context, params CreateRoomParams) (ProtocolRoom, error) {
	session, err := m.currentSession()
	if err != nil {
		return ProtocolRoom{}, err
	}

	request := messaging.CreateRoomRequest{
		Name:     params.Name,
		Invite:   params.InviteeIDs,
		IsDirect: params.IsDirect,
	}
	if params.IsTrustedPrivateChat {
		request.Preset = "trusted_private_chat"
	} else {
		request.Preset = "private_chat"
	}

	response, err := session.CreateRoom(ctx, request)
	if err != nil {
		return ProtocolRoom{}, err
	}
	return ProtocolRoom{
		ID:         response.RoomID.String(),
		Name:       params.Name,
		Membership: "join",
		IsDirect:   params.IsDirect,
	}, nil
}

func (m *MatrixClient) JoinRoom(ctx context.Context, roomID string) (ProtocolRoom, error) {
	session, err := m.currentSession()
	if err != nil {
		return ProtocolRoom{}, err
	}
	parsed, err := ref.ParseRoomID(roomID)
	if err != nil {
		return ProtocolRoom{}, err
	}
	joined, err := session.JoinRoom(ctx, parsed)
	if err != nil {
		return ProtocolRoom{}, err
	}
	// The sync loop may not have caught up with the join yet.
	if room, ok := m.Room(joined.String()); ok {
		room.Membership = "join"
		return room, nil
	}
	return ProtocolRoom{ID: joined.String(), Membership: "join"}, nil
}

func (m *MatrixClient) LeaveRoom(ctx context.Context, roomID string) error {
	session, err := m.currentSession()
	if err != nil {
		return err
	}
	parsed, err := ref.ParseRoomID(roomID)
	if err != nil {
		return err
	}
	return session.LeaveRoom(ctx, parsed)
}

func (m *MatrixClient) InviteUser(ctx context.Context, roomID, userID string) error {
	session, err := m.currentSession()
	if err != nil {
		return err
	}
	parsedRoom, err := ref.ParseRoomID(roomID)
	if err != nil {
		return err
	}
	parsedUser, err := ref.ParseUserID(userID)
	if err != nil {
		return err
	}
	return session.InviteUser(ctx, parsedRoom, parsedUser)
}

func (m *MatrixClient) KickUser(ctx context.Context, roomID, userID, reason string) error {
	session, err := m.currentSession()
	if err != nil {
		return err
	}
	parsedRoom, err := ref.ParseRoomID(roomID)
	if err != nil {
		return err
	}
	parsedUser, err := ref.ParseUserID(userID)
	if err != nil {
		return err
	}
	return session.KickUser(ctx, parsedRoom, parsedUser, reason)
}

func (m *MatrixClient) SetRoomName(ctx context.Context, roomID, name string) error {
	session, err := m.currentSession()
	if err != nil {
		return err
	}
	parsed, err := ref.ParseRoomID(roomID)
	if err != nil {
		return err
	}
	return session.SetRoomName(ctx, parsed, name)
}

func (m *MatrixClient) SetPowerLevel(ctx context.Context, roomID, userID string, level int) error {
	session, err := m.currentSession()
	if err != nil {
		return err
	}
	parsedRoom, err := ref.ParseRoomID(roomID)
	if err != nil {
		return err
	}
	parsedUser, err := ref.ParseUserID(userID)
	if err != nil {
		return err
	}
	return session.SetPowerLevel(ctx, parsedRoom, parsedUser, level)
}

func (m *MatrixClient) RoomMembers(ctx context.Context, roomID string) ([]ProtocolMember, error) {
	session, err := m.currentSession()
	if err != nil {
		return nil, err
	}
	parsed, err := ref.ParseRoomID(roomID)
	if err != nil {
		return nil, err
	}
	members, err := session.RoomMembers(ctx, parsed)
	if err != nil {
		return nil, err
	}
	converted := make([]ProtocolMember, len(members))
	for index, member := range members {
		converted[index] = ProtocolMember{
			UserID:      member.UserID.String(),
			DisplayName: member.DisplayName,
			AvatarURL:   member.AvatarURL,
			Membership:  member.Membership,
		}
	}
	return converted, nil
}

func (m *MatrixClient) PublicRooms(ctx context.Context, limit int, since string) ([]ProtocolRoom, string, error) {
	session, err := m.currentSession()
	if err != nil {
		return nil, "", err
	}
	response, err := session.PublicRooms(ctx, limit, since)
	if err != nil {
		return nil, "", err
	}
	rooms := make([]ProtocolRoom, len(response.Chunk))
	for index, room := range response.Chunk {
		rooms[index] = ProtocolRoom{
			ID:        room.RoomID.String(),
			Name:      room.Name,
			Topic:     room.Topic,
			AvatarURL: room.AvatarURL,
		}
	}
	return rooms, response.NextBatch, nil
}

func (m *MatrixClient) Messages(ctx context.Context, roomID, from, direction string, limit int) (MessagesPage, error) {
	session, err := m.currentSession()
	if err != nil {
		return MessagesPage{}, err
	}
	parsed, err := ref.ParseRoomID(roomID)
	if err != nil {
		return MessagesPage{}, err
	}
	response, err := session.RoomMessages(ctx, parsed, messaging.RoomMessagesOptions{
		From:      from,
		Direction: direction,
		Limit:     limit,
	})
	if err != nil {
		return MessagesPage{}, err
	}

	eventDirection := DirectionBackwards
	if direction == "f" {
		eventDirection = DirectionForwards
	}
	events := make([]ProtocolEvent, len(response.Chunk))
	for index, event := range response.Chunk {
		events[index] = convertEvent(event, eventDirection)
		if events[index].RoomID == "" {
			events[index].RoomID = roomID
		}
	}
	return MessagesPage{Events: events, Start: response.Start, End: response.End}, nil
}

func (m *MatrixClient) BackPaginate(ctx context.Context, roomID string, limit int, reset bool) (int, error) {
	m.mu.Lock()
	syncer := m.syncer
	m.mu.Unlock()
	if syncer == nil {
		return 0, errSyncNotStarted
	}
	parsed, err := ref.ParseRoomID(roomID)
	if err != nil {
		return 0, err
	}
	return syncer.Paginate(ctx, parsed, limit, reset)
}

func (m *MatrixClient) CanBackPaginate(roomID string) bool {
	m.mu.Lock()
	syncer := m.syncer
	m.mu.Unlock()
	if syncer == nil {
		return false
	}
	parsed, err := ref.ParseRoomID(roomID)
	if err != nil {
		return false
	}
	return syncer.CanPaginate(parsed)
}

func (m *MatrixClient) SearchMessages(ctx context.Context, roomID, term, nextBatch string, beforeLimit, afterLimit int) (SearchPage, error) {
	session, err := m.currentSession()
	if err != nil {
		return SearchPage{}, err
	}

	var parsed ref.RoomID
	if roomID != "" {
		parsed, err = ref.ParseRoomID(roomID)
		if err != nil {
			return SearchPage{}, err
		}
	}

	results, err := session.SearchMessages(ctx, parsed, term, nextBatch, beforeLimit, afterLimit)
	if err != nil {
		return SearchPage{}, err
	}

	page := SearchPage{Count: results.Count, NextBatch: results.NextBatch}
	for _, result := range results.Results {
		hit := SearchHit{Event: convertEvent(result.Result, DirectionBackwards)}
		if result.Context != nil {
			hit.Before = convertEvents(result.Context.EventsBefore, DirectionBackwards)
			hit.After = convertEvents(result.Context.EventsAfter, DirectionBackwards)
		}
		page.Results = append(page.Results, hit)
	}
	return page, nil
}

func (m *MatrixClient) SendEvent(ctx context.Context, roomID, eventType string, content map[string]any) (string, error) {
	session, err := m.currentSession()
	if err != nil {
		return "", err
	}
	parsed, err := ref.ParseRoomID(roomID)
	if err != nil {
		return "", err
	}
	eventID, err := session.SendEvent(ctx, parsed, ref.EventType(eventType), content)
	if err != nil {
		return "", err
	}
	return eventID.String(), nil
}

func (m *MatrixClient) SendReadReceipt(ctx context.Context, roomID, eventID string) error {
	session, err := m.currentSession()
	if err != nil {
		return err
	}
	parsedRoom, err := ref.ParseRoomID(roomID)
	if err != nil {
		return err
	}
	parsedEvent, err := ref.ParseEventID(eventID)
	if err != nil {
		return err
	}
	return session.SendReadReceipt(ctx, parsedRoom, parsedEvent)
}

// MarkRoomAsRead moves the fully-read marker and read receipt to the
// room's latest synced event. A room with no timeline yet is a no-op.
func (m *MatrixClient) MarkRoomAsRead(ctx context.Context, roomID string) error {
	m.mu.Lock()
	syncer := m.syncer
	m.mu.Unlock()
	if syncer == nil {
		return errSyncNotStarted
	}
	session, err := m.currentSession()
	if err != nil {
		return err
	}

	parsed, err := ref.ParseRoomID(roomID)
	if err != nil {
		return err
	}
	room, ok := syncer.Room(parsed)
	if !ok {
		return fmt.Errorf("bridge: room %s not synced", roomID)
	}
	if room.LastEvent == nil {
		return nil
	}
	lastEventID := room.LastEvent.EventID
	return session.SetReadMarkers(ctx, parsed, lastEventID, lastEventID)
}

func (m *MatrixClient) RegisterPusher(ctx context.Context, registration PushRegistration) error {
	session, err := m.currentSession()
	if err != nil {
		return err
	}
	return session.SetPusher(ctx, messaging.PusherRequest{
		Lang:              "en",
		Kind:              "http",
		AppDisplayName:    registration.AppDisplayName,
		DeviceDisplayName: session.DeviceID(),
		AppID:             registration.AppID,
		PushKey:           registration.PushKey,
		Data: messaging.PusherData{
			URL:    registration.GatewayURL,
			Format: "event_id_only",
		},
	})
}

func (m *MatrixClient) SetDisplayName(ctx context.Context, displayName string) error {
	session, err := m.currentSession()
	if err != nil {
		return err
	}
	return session.SetDisplayName(ctx, displayName)
}

func (m *MatrixClient) UploadContent(ctx context.Context, path, contentType string) (string, error) {
	session, err := m.currentSession()
	if err != nil {
		return "", err
	}
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("bridge: opening upload file: %w", err)
	}
	defer file.Close()
	return session.UploadMedia(ctx, contentType, file)
}

func (m *MatrixClient) DownloadContent(ctx context.Context, contentURI, destDir string) (string, error) {
	session, err := m.currentSession()
	if err != nil {
		return "", err
	}
	return session.DownloadMedia(ctx, contentURI, destDir)
}

func (m *MatrixClient) ContentURL(contentURI string) (string, error) {
	session, err := m.currentSession()
	if err != nil {
		return "", err
	}
	return session.MediaDownloadURL(contentURI)
}

func (m *MatrixClient) SendTyping(ctx context.Context, roomID string, typing bool, timeoutMS int) error {
	session, err := m.currentSession()
	if err != nil {
		return err
	}
	parsed, err := ref.ParseRoomID(roomID)
	if err != nil {
		return err
	}
	return session.SendTyping(ctx, parsed, typing, time.Duration(timeoutMS)*time.Millisecond)
}

func (m *MatrixClient) SetPresence(ctx context.Context, online bool) error {
	session, err := m.currentSession()
	if err != nil {
		return err
	}
	presence := "unavailable"
	if online {
		presence = "online"
	}
	return session.SetPresence(ctx, presence, "")
}

func (m *MatrixClient) currentSession() (*messaging.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, errNoSession
	}
	return m.session, nil
}

func convertRoom(room messaging.Room) ProtocolRoom {
	converted := ProtocolRoom{
		ID:                  room.ID.String(),
		Name:                room.Name,
		Topic:               room.Topic,
		AvatarURL:           room.AvatarURL,
		Membership:          room.Membership,
		IsDirect:            room.IsDirect,
		UnreadNotifications: room.UnreadNotifications,
	}
	if room.LastEvent != nil {
		lastEvent := convertEvent(*room.LastEvent, DirectionForwards)
		converted.LastEvent = &lastEvent
	}
	return converted
}

func convertTimelineEvent(event messaging.TimelineEvent) ProtocolEvent {
	direction := DirectionForwards
	if event.Direction == messaging.Backwards {
		direction = DirectionBackwards
	}
	converted := convertEvent(event.Event, direction)
	if converted.RoomID == "" {
		converted.RoomID = event.RoomID.String()
	}
	return converted
}

func convertEvent(event messaging.Event, direction Direction) ProtocolEvent {
	converted := ProtocolEvent{
		Type:      event.Type.String(),
		ID:        event.EventID.String(),
		RoomID:    event.RoomID.String(),
		Sender:    event.Sender.String(),
		Timestamp: event.OriginServerTS,
		Content:   event.Content,
		Direction: direction,
	}
	if event.Unsigned != nil {
		converted.Age = event.Unsigned.Age
	}
	return converted
}

func convertEvents(events []messaging.Event, direction Direction) []ProtocolEvent {
	converted := make([]ProtocolEvent, len(events))
	for index, event := range events {
		converted[index] = convertEvent(event, direction)
	}
	return converted
}
