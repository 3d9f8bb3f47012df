// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "context"

// Pagination cursor store: one opaque continuation token per room,
// overwritten after every successful history fetch, so the host can
// page backwards without tracking tokens itself. The cursor protocol
// is strictly sequential per room; concurrent loads for the same room
// are not safe.
//
// BackPaginate and CanBackPaginate operate on the protocol client's
// live timeline instead, an independent pagination track that shares
// no position with the cursor store.

// LoadMessagesInRoom fetches one backward page of room history.
// initialLoad starts from the live edge and is expected to be the
// first call for a room; a later call with initialLoad=false resumes
// from the stored cursor. On success the cursor is overwritten with
// the returned continuation token.
func (s *Session) LoadMessagesInRoom(ctx context.Context, roomID string, perPage int, initialLoad bool) ([]ProjectedEvent, error) {
	if err := s.requireReady("LoadMessagesInRoom"); err != nil {
		return nil, err
	}

	from := ""
	if !initialLoad {
		s.mu.Lock()
		stored, exists := s.cursors[roomID]
		s.mu.Unlock()
		if !exists {
			// Lenient: proceed from the live edge, but the host was
			// expected to make an initialLoad call first.
			s.logger.Warn("no stored cursor for continuation load, starting from live edge",
				"room_id", roomID,
			)
		}
		from = stored
	}

	page, err := s.client.Messages(ctx, roomID, from, "b", perPage)
	if err != nil {
		return nil, wrapf(err, "loading messages in room %s", roomID)
	}

	s.mu.Lock()
	s.cursors[roomID] = page.End
	s.mu.Unlock()
	return ProjectEvents(page.Events), nil
}

// GetMessages fetches room history from an explicit token, direction
// ("b" or "f"), and limit. The returned end token is stored as the
// room's cursor, the same as LoadMessagesInRoom.
func (s *Session) GetMessages(ctx context.Context, roomID, from, direction string, limit int) ([]ProjectedEvent, error) {
	if err := s.requireReady("GetMessages"); err != nil {
		return nil, err
	}

	page, err := s.client.Messages(ctx, roomID, from, direction, limit)
	if err != nil {
		return nil, wrapf(err, "getting messages in room %s", roomID)
	}

	s.mu.Lock()
	s.cursors[roomID] = page.End
	s.mu.Unlock()
	return ProjectEvents(page.Events), nil
}

// BackPaginate backfills the room's live timeline; fetched events
// reach the room's listeners tagged backwards. initHistory resets the
// timeline's pagination state to the live edge first.
func (s *Session) BackPaginate(ctx context.Context, roomID string, perPage int, initHistory bool) error {
	if err := s.requireReady("BackPaginate"); err != nil {
		return err
	}
	if _, err := s.client.BackPaginate(ctx, roomID, perPage, initHistory); err != nil {
		return wrapf(err, "paginating room %s", roomID)
	}
	return nil
}

// CanBackPaginate reports whether the room's live timeline has more
// history to backfill. Advisory only; it says nothing about the
// cursor store.
func (s *Session) CanBackPaginate(ctx context.Context, roomID string) (bool, error) {
	if err := s.requireReady("CanBackPaginate"); err != nil {
		return false, err
	}
	return s.client.CanBackPaginate(roomID), nil
}
