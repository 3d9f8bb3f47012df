// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"log/slog"
	"sync"
)

// State is the session connection state. The only transitions are
// Unauthenticated -> Connecting -> Ready | Failed; Failed is terminal.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateConnecting      State = "connecting"
	StateReady           State = "ready"
	StateFailed          State = "failed"
)

const defaultNotificationBuffer = 256

// SessionConfig configures a Session.
type SessionConfig struct {
	// Client is the protocol implementation. Required.
	Client ProtocolClient

	// Logger receives bridge diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// NotificationBuffer is the capacity of the notification channel.
	// When the host falls behind and the buffer fills, notifications
	// are dropped with a warning. Defaults to 256.
	NotificationBuffer int
}

// Session is the bridge context object: one authenticated connection,
// its listener registry, and its pagination cursors. One Session per
// process; all call-surface operations hang off it.
type Session struct {
	client ProtocolClient
	logger *slog.Logger

	// mu guards the state machine, credentials, the listener registry,
	// the cursor store, and the event-type allow-list. Single writer:
	// completion callbacks and host calls may interleave in any order,
	// so every mutation is serialized here.
	mu              sync.Mutex
	state           State
	homeserverURL   string
	credentials     *Credentials
	profile         *UserProfile
	roomListeners   map[string]EventSubscription
	globalListener  EventSubscription
	cursors         map[string]string
	additionalTypes map[string]bool
	closed          bool

	notifications chan Notification
	pumps         sync.WaitGroup
}

// NewSession creates an unauthenticated session over the given
// protocol client.
func NewSession(config SessionConfig) *Session {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	buffer := config.NotificationBuffer
	if buffer <= 0 {
		buffer = defaultNotificationBuffer
	}
	return &Session{
		client:          config.Client,
		logger:          logger,
		state:           StateUnauthenticated,
		roomListeners:   make(map[string]EventSubscription),
		cursors:         make(map[string]string),
		additionalTypes: make(map[string]bool),
		notifications:   make(chan Notification, buffer),
	}
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Notifications returns the channel push deliveries arrive on. The
// channel closes when the session is closed.
func (s *Session) Notifications() <-chan Notification {
	return s.notifications
}

// Configure records the target homeserver. Must precede Login or
// StartSession; no network effect.
func (s *Session) Configure(homeserverURL string) error {
	if err := s.client.Configure(homeserverURL); err != nil {
		return wrapf(err, "configuring homeserver %q", homeserverURL)
	}
	s.mu.Lock()
	s.homeserverURL = homeserverURL
	s.mu.Unlock()
	return nil
}

// Login authenticates with a username and password. If credentials
// are already present, they are returned as-is with no
// re-authentication: an "already logged in" fast path, not a refresh.
// Stale credentials installed this way only surface as failures on
// later operations.
func (s *Session) Login(ctx context.Context, username, password string) (Credentials, error) {
	s.mu.Lock()
	if s.credentials != nil {
		credentials := *s.credentials
		s.mu.Unlock()
		s.logger.Debug("login short-circuit, credentials already present",
			"user_id", credentials.UserID,
		)
		return credentials, nil
	}
	s.mu.Unlock()

	credentials, err := s.client.Authenticate(ctx, username, password)
	if err != nil {
		return Credentials{}, wrapf(err, "login for %q failed", username)
	}

	s.mu.Lock()
	s.credentials = &credentials
	s.mu.Unlock()
	s.logger.Info("logged in", "user_id", credentials.UserID)
	return credentials, nil
}

// SetCredentials installs persisted credentials without validation.
func (s *Session) SetCredentials(token, deviceID, userID, homeServer, refreshToken string) error {
	credentials := Credentials{
		HomeServer:   homeServer,
		UserID:       userID,
		AccessToken:  token,
		DeviceID:     deviceID,
		RefreshToken: refreshToken,
	}
	if err := s.client.InstallCredentials(credentials); err != nil {
		return wrapf(err, "installing credentials for %q", userID)
	}
	s.mu.Lock()
	s.credentials = &credentials
	s.mu.Unlock()
	return nil
}

// StartSession opens the client's store and starts the sync loop.
// When already Ready it returns the cached user attributes without
// touching the server. The Connecting -> Ready | Failed transition is
// one-shot: a Failed session cannot be restarted.
func (s *Session) StartSession(ctx context.Context) (UserProfile, error) {
	s.mu.Lock()
	switch s.state {
	case StateReady:
		profile := *s.profile
		s.mu.Unlock()
		return profile, nil
	case StateFailed:
		s.mu.Unlock()
		return UserProfile{}, errorf(KindProtocol, "session failed and cannot be restarted")
	case StateConnecting:
		s.mu.Unlock()
		return UserProfile{}, errorf(KindProtocol, "session start already in progress")
	}
	if s.credentials == nil {
		s.mu.Unlock()
		return UserProfile{}, errorf(KindProtocol, "no credentials: call Login or SetCredentials first")
	}
	s.state = StateConnecting
	s.mu.Unlock()

	if err := s.client.StartSync(ctx); err != nil {
		s.fail()
		return UserProfile{}, wrapf(err, "starting sync")
	}

	profile, err := s.client.OwnProfile(ctx)
	if err != nil {
		// Profile fetch failure after a successful sync start still
		// yields a usable session; fall back to the credential identity.
		s.logger.Warn("fetching own profile failed", "error", err)
		s.mu.Lock()
		profile = UserProfile{UserID: s.credentials.UserID}
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.state = StateReady
	s.profile = &profile
	s.mu.Unlock()
	s.logger.Info("session ready", "user_id", profile.UserID)
	return profile, nil
}

// Close stops all listeners, the sync loop, and the notification
// channel. The session is unusable afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.state = StateFailed
	listeners := make([]EventSubscription, 0, len(s.roomListeners)+1)
	for _, listener := range s.roomListeners {
		listeners = append(listeners, listener)
	}
	if s.globalListener != nil {
		listeners = append(listeners, s.globalListener)
	}
	s.roomListeners = make(map[string]EventSubscription)
	s.globalListener = nil
	s.mu.Unlock()

	for _, listener := range listeners {
		listener.Cancel()
	}
	s.client.StopSync()
	s.pumps.Wait()
	close(s.notifications)
}

func (s *Session) fail() {
	s.mu.Lock()
	s.state = StateFailed
	s.mu.Unlock()
}

// requireReady returns a KindNotConnected error unless the session is
// Ready. Checked locally before any network activity.
func (s *Session) requireReady(operation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return errNotConnected(operation)
	}
	return nil
}

// emit delivers a notification without blocking the event pump. A
// full buffer drops the notification; the host is expected to drain
// the channel promptly.
func (s *Session) emit(notification Notification) {
	select {
	case s.notifications <- notification:
	default:
		s.logger.Warn("notification buffer full, dropping",
			"channel", notification.Channel,
		)
	}
}
