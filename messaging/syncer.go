// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hallway-chat/hallway/lib/ref"
)

const (
	// defaultLongPollTimeout is how long the server holds a sync request
	// open waiting for new events.
	defaultLongPollTimeout = 30 * time.Second

	// defaultRetryDelay is the pause between retries after a sync error.
	defaultRetryDelay = 1 * time.Second

	// defaultMaxSyncRetries is the number of consecutive sync failures
	// tolerated before the loop gives up.
	defaultMaxSyncRetries = 5

	// subscriptionBuffer is the per-subscriber event channel capacity.
	subscriptionBuffer = 64
)

// ErrSyncStopped is returned by Paginate after the sync session has
// shut down.
var ErrSyncStopped = errors.New("messaging: sync session stopped")

// ErrUnknownRoom is returned when an operation names a room the sync
// session has not seen.
var ErrUnknownRoom = errors.New("messaging: unknown room")

// SyncConfig configures a SyncSession. The zero value is usable;
// unset fields fall back to defaults.
type SyncConfig struct {
	// Logger receives sync loop diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// LongPollTimeout is the server-side hold time for each sync request.
	LongPollTimeout time.Duration

	// RetryDelay is the pause between retries after a sync error.
	RetryDelay time.Duration

	// MaxRetries is the number of consecutive failures before the loop
	// gives up. The HTTP client's timeout must exceed LongPollTimeout
	// or every long poll looks like a failure.
	MaxRetries int
}

// Room is a snapshot of what the sync session knows about one room.
type Room struct {
	ID         ref.RoomID
	Name       string
	Topic      string
	AvatarURL  string
	Membership string // "join", "invite", or "leave"
	IsDirect   bool

	UnreadNotifications int64
	UnreadHighlights    int64

	// LastEvent is the most recent timeline event seen, nil before any.
	LastEvent *Event
}

// roomState is the mutable per-room record behind the Room snapshots.
type roomState struct {
	room Room

	// paginationToken is the prev_batch cursor for backfilling history
	// behind the live timeline. Empty until the room's first sync chunk.
	paginationToken string

	// livePrevBatch is the prev_batch from the most recent sync chunk,
	// kept so pagination can be reset to the live edge.
	livePrevBatch string

	// exhausted is set when backfill has reached the start of history.
	exhausted bool
}

// SyncSession runs the /sync long-poll loop for one authenticated
// session and maintains a live view of the user's rooms. Timeline
// events fan out to subscribers; events from the initial catch-up sync
// are tagged Backwards, events on the live stream Forwards.
type SyncSession struct {
	session *Session
	logger  *slog.Logger

	longPollTimeout time.Duration
	retryDelay      time.Duration
	maxRetries      int

	mu        sync.Mutex
	rooms     map[ref.RoomID]*roomState
	nextBatch string
	roomSubs  map[ref.RoomID]map[int]*Subscription
	allSubs   map[int]*Subscription
	nextSubID int
	started   bool
	stopped   bool

	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewSyncSession creates a sync session over an authenticated Session.
// Call Start to begin syncing.
func NewSyncSession(session *Session, config SyncConfig) *SyncSession {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	longPoll := config.LongPollTimeout
	if longPoll <= 0 {
		longPoll = defaultLongPollTimeout
	}
	retryDelay := config.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	maxRetries := config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxSyncRetries
	}

	return &SyncSession{
		session:         session,
		logger:          logger.With("user_id", session.UserID()),
		longPollTimeout: longPoll,
		retryDelay:      retryDelay,
		maxRetries:      maxRetries,
		rooms:           make(map[ref.RoomID]*roomState),
		roomSubs:        make(map[ref.RoomID]map[int]*Subscription),
		allSubs:         make(map[int]*Subscription),
		done:            make(chan struct{}),
	}
}

// Session returns the underlying authenticated session, for REST
// operations outside the sync stream.
func (ss *SyncSession) Session() *Session {
	return ss.session
}

// Start performs the initial catch-up sync, then launches the live
// sync loop in a goroutine. When Start returns nil, the room view is
// primed and Rooms reflects the server's current state. Initial
// timeline events are delivered to any existing subscribers tagged
// Backwards.
//
// Start may be called once. The loop runs until Stop is called, the
// context is cancelled, or too many consecutive sync failures occur.
func (ss *SyncSession) Start(ctx context.Context) error {
	ss.mu.Lock()
	if ss.started {
		ss.mu.Unlock()
		return errors.New("messaging: sync session already started")
	}
	ss.started = true
	ss.mu.Unlock()

	// Initial sync: no timeout, no since token. Returns immediately
	// with the current room state and recent timeline.
	response, err := ss.session.Sync(ctx, SyncOptions{Timeout: 0, SetTimeout: true})
	if err != nil {
		ss.finish(fmt.Errorf("messaging: initial sync failed: %w", err))
		return fmt.Errorf("messaging: initial sync failed: %w", err)
	}
	ss.apply(response, Backwards)

	loopCtx, cancel := context.WithCancel(ctx)
	ss.mu.Lock()
	ss.cancel = cancel
	ss.mu.Unlock()

	go ss.run(loopCtx)
	return nil
}

// Stop cancels the sync loop and closes all subscriptions. Safe to
// call multiple times; blocks until the loop has exited.
func (ss *SyncSession) Stop() {
	ss.mu.Lock()
	cancel := ss.cancel
	started := ss.started
	ss.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if started && cancel != nil {
		<-ss.done
	} else {
		// Never started (or Start failed before the loop launched):
		// finish directly so Done is closed and subscribers released.
		ss.finish(nil)
	}
}

// Done is closed when the sync loop has exited, whether by Stop,
// context cancellation, or repeated sync failure.
func (ss *SyncSession) Done() <-chan struct{} {
	return ss.done
}

// Err reports why the sync loop exited. Nil after a clean Stop; call
// after Done is closed.
func (ss *SyncSession) Err() error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.err
}

// run is the live sync loop.
func (ss *SyncSession) run(ctx context.Context) {
	failures := 0
	for {
		ss.mu.Lock()
		since := ss.nextBatch
		ss.mu.Unlock()

		response, err := ss.session.Sync(ctx, SyncOptions{
			Since:      since,
			Timeout:    int(ss.longPollTimeout.Milliseconds()),
			SetTimeout: true,
		})
		if err != nil {
			if ctx.Err() != nil {
				ss.finish(nil)
				return
			}
			failures++
			ss.logger.Warn("sync failed",
				"error", err,
				"consecutive_failures", failures,
			)
			if failures >= ss.maxRetries {
				ss.finish(fmt.Errorf("messaging: sync failed %d times in a row: %w", failures, err))
				return
			}
			// Stale connections are a common cause of repeated sync
			// errors; force fresh ones before retrying.
			ss.session.CloseIdleConnections()
			select {
			case <-time.After(ss.retryDelay):
			case <-ctx.Done():
				ss.finish(nil)
				return
			}
			continue
		}
		failures = 0
		ss.apply(response, Forwards)
	}
}

// finish records the exit reason, closes all subscriptions, and
// signals Done. Idempotent.
func (ss *SyncSession) finish(err error) {
	ss.mu.Lock()
	if ss.stopped {
		ss.mu.Unlock()
		return
	}
	ss.stopped = true
	ss.err = err

	var subs []*Subscription
	for _, sub := range ss.allSubs {
		subs = append(subs, sub)
	}
	for _, roomSubs := range ss.roomSubs {
		for _, sub := range roomSubs {
			subs = append(subs, sub)
		}
	}
	ss.allSubs = make(map[int]*Subscription)
	ss.roomSubs = make(map[ref.RoomID]map[int]*Subscription)
	ss.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
	close(ss.done)
}

// apply folds one sync response into the room view and fans events
// out to subscribers with the given direction tag.
func (ss *SyncSession) apply(response *SyncResponse, direction Direction) {
	ss.mu.Lock()
	ss.nextBatch = response.NextBatch

	directRooms := directRoomSet(response.AccountData.Events)

	type delivery struct {
		event TimelineEvent
		subs  []*Subscription
	}
	var deliveries []delivery

	for roomID, joined := range response.Rooms.Join {
		state := ss.roomStateLocked(roomID)
		state.room.Membership = "join"
		state.room.UnreadNotifications = joined.UnreadNotifications.NotificationCount
		state.room.UnreadHighlights = joined.UnreadNotifications.HighlightCount

		// State events first so the timeline is interpreted against
		// up-to-date room state.
		for _, event := range joined.State.Events {
			ss.applyStateLocked(state, event)
		}

		if joined.Timeline.PrevBatch != "" {
			state.livePrevBatch = joined.Timeline.PrevBatch
			// Seed the backfill cursor the first time, or re-seed when
			// the server reports a gap in the timeline.
			if state.paginationToken == "" || joined.Timeline.Limited {
				state.paginationToken = joined.Timeline.PrevBatch
				state.exhausted = false
			}
		}

		subs := ss.subscribersLocked(roomID)
		for _, event := range joined.Timeline.Events {
			if event.StateKey != nil {
				ss.applyStateLocked(state, event)
			}
			eventCopy := event
			eventCopy.RoomID = roomID
			state.room.LastEvent = &eventCopy
			deliveries = append(deliveries, delivery{
				event: TimelineEvent{Event: eventCopy, RoomID: roomID, Direction: direction},
				subs:  subs,
			})
		}

		if directRooms[roomID] {
			state.room.IsDirect = true
		}
	}

	for roomID, invited := range response.Rooms.Invite {
		state := ss.roomStateLocked(roomID)
		state.room.Membership = "invite"
		for _, event := range invited.InviteState.Events {
			ss.applyStateLocked(state, event)
		}
	}

	for roomID, left := range response.Rooms.Leave {
		state := ss.roomStateLocked(roomID)
		state.room.Membership = "leave"
		for _, event := range left.State.Events {
			ss.applyStateLocked(state, event)
		}
	}
	ss.mu.Unlock()

	// Fan out without holding the lock.
	dropped := 0
	for _, d := range deliveries {
		for _, sub := range d.subs {
			if !sub.deliver(d.event) {
				dropped++
			}
		}
	}
	if dropped > 0 {
		ss.logger.Warn("dropped timeline events for slow subscribers",
			"dropped", dropped,
		)
	}
}

// applyStateLocked folds one state event into a room record.
// Caller holds ss.mu.
func (ss *SyncSession) applyStateLocked(state *roomState, event Event) {
	switch event.Type {
	case ref.EventTypeRoomName:
		if name, ok := event.Content["name"].(string); ok {
			state.room.Name = name
		}
	case ref.EventTypeRoomTopic:
		if topic, ok := event.Content["topic"].(string); ok {
			state.room.Topic = topic
		}
	case ref.EventTypeRoomAvatar:
		if avatarURL, ok := event.Content["url"].(string); ok {
			state.room.AvatarURL = avatarURL
		}
	case ref.EventTypeRoomMember:
		if event.StateKey == nil || *event.StateKey != ss.session.UserID().String() {
			return
		}
		if membership, ok := event.Content["membership"].(string); ok {
			state.room.Membership = membership
		}
		if isDirect, ok := event.Content["is_direct"].(bool); ok && isDirect {
			state.room.IsDirect = true
		}
	}
}

// roomStateLocked returns the record for a room, creating it on first
// sight. Caller holds ss.mu.
func (ss *SyncSession) roomStateLocked(roomID ref.RoomID) *roomState {
	state, ok := ss.rooms[roomID]
	if !ok {
		state = &roomState{room: Room{ID: roomID}}
		ss.rooms[roomID] = state
	}
	return state
}

// subscribersLocked returns the subscriptions that should receive
// events for a room: its room-scoped subscribers plus all global
// subscribers. Caller holds ss.mu.
func (ss *SyncSession) subscribersLocked(roomID ref.RoomID) []*Subscription {
	var subs []*Subscription
	for _, sub := range ss.roomSubs[roomID] {
		subs = append(subs, sub)
	}
	for _, sub := range ss.allSubs {
		subs = append(subs, sub)
	}
	return subs
}

// directRoomSet extracts the set of direct-message rooms from m.direct
// account data, if present.
func directRoomSet(events []Event) map[ref.RoomID]bool {
	rooms := make(map[ref.RoomID]bool)
	for _, event := range events {
		if event.Type != ref.EventTypeDirect {
			continue
		}
		for _, value := range event.Content {
			list, ok := value.([]any)
			if !ok {
				continue
			}
			for _, entry := range list {
				raw, ok := entry.(string)
				if !ok {
					continue
				}
				roomID, err := ref.ParseRoomID(raw)
				if err != nil {
					continue
				}
				rooms[roomID] = true
			}
		}
	}
	return rooms
}

// Rooms returns a snapshot of every room the session knows about.
func (ss *SyncSession) Rooms() []Room {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	rooms := make([]Room, 0, len(ss.rooms))
	for _, state := range ss.rooms {
		rooms = append(rooms, state.room)
	}
	return rooms
}

// Room returns a snapshot of one room, if the session has seen it.
func (ss *SyncSession) Room(roomID ref.RoomID) (Room, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	state, ok := ss.rooms[roomID]
	if !ok {
		return Room{}, false
	}
	return state.room, true
}

// Subscribe returns a subscription receiving timeline events for one
// room. Cancel it when no longer needed.
func (ss *SyncSession) Subscribe(roomID ref.RoomID) *Subscription {
	ss.mu.Lock()
	sub := ss.newSubscriptionLocked()
	if ss.stopped {
		ss.mu.Unlock()
		// Already shut down: hand back a subscription that is
		// immediately cancelled so Events reads see a closed channel.
		sub.Cancel()
		return sub
	}

	id := ss.nextSubID - 1
	subs, ok := ss.roomSubs[roomID]
	if !ok {
		subs = make(map[int]*Subscription)
		ss.roomSubs[roomID] = subs
	}
	subs[id] = sub
	sub.remove = func() {
		ss.mu.Lock()
		defer ss.mu.Unlock()
		delete(ss.roomSubs[roomID], id)
	}
	ss.mu.Unlock()
	return sub
}

// SubscribeAll returns a subscription receiving timeline events for
// every room the session syncs.
func (ss *SyncSession) SubscribeAll() *Subscription {
	ss.mu.Lock()
	sub := ss.newSubscriptionLocked()
	if ss.stopped {
		ss.mu.Unlock()
		sub.Cancel()
		return sub
	}

	id := ss.nextSubID - 1
	ss.allSubs[id] = sub
	sub.remove = func() {
		ss.mu.Lock()
		defer ss.mu.Unlock()
		delete(ss.allSubs, id)
	}
	ss.mu.Unlock()
	return sub
}

// newSubscriptionLocked allocates a subscription and claims an ID.
// Caller holds ss.mu.
func (ss *SyncSession) newSubscriptionLocked() *Subscription {
	ss.nextSubID++
	return &Subscription{
		events: make(chan TimelineEvent, subscriptionBuffer),
	}
}

// CanPaginate reports whether more history can be backfilled for a
// room. False for unknown rooms and after backfill has reached the
// start of history.
func (ss *SyncSession) CanPaginate(roomID ref.RoomID) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	state, ok := ss.rooms[roomID]
	if !ok {
		return false
	}
	return !state.exhausted && state.paginationToken != ""
}

// Paginate backfills up to limit older events for a room and delivers
// them to the room's subscribers (and global subscribers) tagged
// Backwards. Each call continues where the previous one stopped; pass
// reset to start over from the live edge. Returns the number of
// events fetched, zero when history is exhausted.
func (ss *SyncSession) Paginate(ctx context.Context, roomID ref.RoomID, limit int, reset bool) (int, error) {
	ss.mu.Lock()
	if ss.stopped {
		ss.mu.Unlock()
		return 0, ErrSyncStopped
	}
	state, ok := ss.rooms[roomID]
	if !ok {
		ss.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", ErrUnknownRoom, roomID)
	}
	if reset {
		state.paginationToken = state.livePrevBatch
		state.exhausted = false
	}
	if state.exhausted || state.paginationToken == "" {
		ss.mu.Unlock()
		return 0, nil
	}
	from := state.paginationToken
	ss.mu.Unlock()

	response, err := ss.session.RoomMessages(ctx, roomID, RoomMessagesOptions{
		From:      from,
		Direction: "b",
		Limit:     limit,
	})
	if err != nil {
		return 0, err
	}

	ss.mu.Lock()
	if response.End == "" || len(response.Chunk) == 0 {
		state.exhausted = true
	} else {
		state.paginationToken = response.End
	}
	subs := ss.subscribersLocked(roomID)
	ss.mu.Unlock()

	for _, event := range response.Chunk {
		event.RoomID = roomID
		timelineEvent := TimelineEvent{Event: event, RoomID: roomID, Direction: Backwards}
		for _, sub := range subs {
			if !sub.deliver(timelineEvent) {
				ss.logger.Warn("dropped backfill event for slow subscriber",
					"room_id", roomID,
				)
			}
		}
	}
	return len(response.Chunk), nil
}
