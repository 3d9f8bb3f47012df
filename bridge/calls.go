// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Call surface: the request/response operations composing the session
// handle, cursor store, and projection. Every operation here requires
// a Ready session and fails with KindNotConnected before any network
// activity otherwise.

// memberFetchConcurrency bounds the parallel member-list fetches in
// GetJoinedRooms.
const memberFetchConcurrency = 4

// CreateRoom creates a room and returns its projection. Invitees do
// not appear in the member list until they accept, so pending-invite
// entries are synthesized for them.
func (s *Session) CreateRoom(ctx context.Context, params CreateRoomParams) (ProjectedRoom, error) {
	if err := s.requireReady("CreateRoom"); err != nil {
		return ProjectedRoom{}, err
	}

	room, err := s.client.CreateRoom(ctx, params)
	if err != nil {
		return ProjectedRoom{}, wrapf(err, "creating room %q", params.Name)
	}

	projected := ProjectRoom(room)
	for _, inviteeID := range params.InviteeIDs {
		projected.Members = append(projected.Members, ProjectedMember{
			UserID:     inviteeID,
			Membership: "invite",
		})
	}
	return projected, nil
}

// JoinRoom joins a room and returns its projection.
func (s *Session) JoinRoom(ctx context.Context, roomID string) (ProjectedRoom, error) {
	if err := s.requireReady("JoinRoom"); err != nil {
		return ProjectedRoom{}, err
	}
	room, err := s.client.JoinRoom(ctx, roomID)
	if err != nil {
		return ProjectedRoom{}, wrapf(err, "joining room %s", roomID)
	}
	return ProjectRoom(room), nil
}

// LeaveRoom leaves a room. An active listener for the room is not
// cleaned up automatically; the host must still unlisten.
func (s *Session) LeaveRoom(ctx context.Context, roomID string) error {
	if err := s.requireReady("LeaveRoom"); err != nil {
		return err
	}
	if err := s.client.LeaveRoom(ctx, roomID); err != nil {
		return wrapf(err, "leaving room %s", roomID)
	}
	return nil
}

// UpdateRoomName renames a room.
func (s *Session) UpdateRoomName(ctx context.Context, roomID, name string) error {
	if err := s.requireReady("UpdateRoomName"); err != nil {
		return err
	}
	if err := s.client.SetRoomName(ctx, roomID, name); err != nil {
		return wrapf(err, "renaming room %s", roomID)
	}
	return nil
}

// InviteUserToRoom invites a user to a room.
func (s *Session) InviteUserToRoom(ctx context.Context, roomID, userID string) error {
	if err := s.requireReady("InviteUserToRoom"); err != nil {
		return err
	}
	if err := s.client.InviteUser(ctx, roomID, userID); err != nil {
		return wrapf(err, "inviting %s to room %s", userID, roomID)
	}
	return nil
}

// RemoveUserFromRoom kicks a user from a room.
func (s *Session) RemoveUserFromRoom(ctx context.Context, roomID, userID, reason string) error {
	if err := s.requireReady("RemoveUserFromRoom"); err != nil {
		return err
	}
	if err := s.client.KickUser(ctx, roomID, userID, reason); err != nil {
		return wrapf(err, "removing %s from room %s", userID, roomID)
	}
	return nil
}

// ChangeUserPermission promotes a user to admin (power level 100) or
// demotes them to a regular member (0).
func (s *Session) ChangeUserPermission(ctx context.Context, roomID, userID string, admin bool) error {
	if err := s.requireReady("ChangeUserPermission"); err != nil {
		return err
	}
	level := 0
	if admin {
		level = 100
	}
	if err := s.client.SetPowerLevel(ctx, roomID, userID, level); err != nil {
		return wrapf(err, "changing permission for %s in room %s", userID, roomID)
	}
	return nil
}

// GetJoinedRooms returns the rooms the user has joined, each with its
// member list. Member lists are fetched concurrently.
func (s *Session) GetJoinedRooms(ctx context.Context) ([]ProjectedRoom, error) {
	if err := s.requireReady("GetJoinedRooms"); err != nil {
		return nil, err
	}

	var joined []ProtocolRoom
	for _, room := range s.client.Rooms() {
		if NormalizeMembership(room.Membership) == "join" {
			joined = append(joined, room)
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(memberFetchConcurrency)
	members := make([][]ProtocolMember, len(joined))
	for index, room := range joined {
		index, room := index, room
		group.Go(func() error {
			fetched, err := s.client.RoomMembers(groupCtx, room.ID)
			if err != nil {
				return err
			}
			members[index] = fetched
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, wrapf(err, "fetching room members")
	}

	projected := make([]ProjectedRoom, len(joined))
	for index, room := range joined {
		room.Members = members[index]
		projected[index] = ProjectRoom(room)
	}
	return projected, nil
}

// GetLastEvents returns the projection of each synced room's most
// recent timeline event. Rooms with no timeline activity yet are
// skipped.
func (s *Session) GetLastEvents(ctx context.Context) ([]ProjectedEvent, error) {
	if err := s.requireReady("GetLastEvents"); err != nil {
		return nil, err
	}
	var events []ProjectedEvent
	for _, room := range s.client.Rooms() {
		if room.LastEvent != nil {
			events = append(events, ProjectEvent(*room.LastEvent))
		}
	}
	return events, nil
}

// GetInvitedRooms returns the rooms the user has a pending invite to.
// Member lists are not fetched; Members is empty, not absent.
func (s *Session) GetInvitedRooms(ctx context.Context) ([]ProjectedRoom, error) {
	return s.roomsByMembership("GetInvitedRooms", "invite")
}

// GetLeftRooms returns the rooms the user has left.
func (s *Session) GetLeftRooms(ctx context.Context) ([]ProjectedRoom, error) {
	return s.roomsByMembership("GetLeftRooms", "leave")
}

func (s *Session) roomsByMembership(operation, membership string) ([]ProjectedRoom, error) {
	if err := s.requireReady(operation); err != nil {
		return nil, err
	}
	var projected []ProjectedRoom
	for _, room := range s.client.Rooms() {
		if NormalizeMembership(room.Membership) == membership {
			projected = append(projected, ProjectRoom(room))
		}
	}
	return projected, nil
}

// GetPublicRooms returns one page of the server's public room
// directory plus the token for the next page.
func (s *Session) GetPublicRooms(ctx context.Context, limit int, since string) ([]ProjectedRoom, string, error) {
	if err := s.requireReady("GetPublicRooms"); err != nil {
		return nil, "", err
	}
	rooms, nextBatch, err := s.client.PublicRooms(ctx, limit, since)
	if err != nil {
		return nil, "", wrapf(err, "fetching public rooms")
	}
	projected := make([]ProjectedRoom, len(rooms))
	for index, room := range rooms {
		projected[index] = ProjectRoom(room)
	}
	return projected, nextBatch, nil
}

// SearchMessagesInRoom performs a server-side search scoped to one
// room (empty roomID searches everywhere), with before/after context
// events around each match. nextBatch continues a previous search.
func (s *Session) SearchMessagesInRoom(ctx context.Context, roomID, term, nextBatch string, beforeLimit, afterLimit int) (ProjectedSearchPage, error) {
	if err := s.requireReady("SearchMessagesInRoom"); err != nil {
		return ProjectedSearchPage{}, err
	}
	page, err := s.client.SearchMessages(ctx, roomID, term, nextBatch, beforeLimit, afterLimit)
	if err != nil {
		return ProjectedSearchPage{}, wrapf(err, "searching for %q", term)
	}
	return ProjectSearchPage(page), nil
}

// SendMessageToRoom sends an m.room.message event. messageType is the
// msgtype ("m.text", "m.image", ...); data carries the remaining
// content fields (body at minimum). Returns the event ID.
func (s *Session) SendMessageToRoom(ctx context.Context, roomID, messageType string, data map[string]any) (string, error) {
	if err := s.requireReady("SendMessageToRoom"); err != nil {
		return "", err
	}
	content := make(map[string]any, len(data)+1)
	for key, value := range data {
		content[key] = value
	}
	content["msgtype"] = messageType

	eventID, err := s.client.SendEvent(ctx, roomID, "m.room.message", content)
	if err != nil {
		return "", wrapf(err, "sending message to room %s", roomID)
	}
	return eventID, nil
}

// SendEventToRoom sends an event of an arbitrary type. Returns the
// event ID.
func (s *Session) SendEventToRoom(ctx context.Context, roomID, eventType string, data map[string]any) (string, error) {
	if err := s.requireReady("SendEventToRoom"); err != nil {
		return "", err
	}
	eventID, err := s.client.SendEvent(ctx, roomID, eventType, data)
	if err != nil {
		return "", wrapf(err, "sending %s to room %s", eventType, roomID)
	}
	return eventID, nil
}

// SendReadReceipt marks one event as read.
func (s *Session) SendReadReceipt(ctx context.Context, roomID, eventID string) error {
	if err := s.requireReady("SendReadReceipt"); err != nil {
		return err
	}
	if err := s.client.SendReadReceipt(ctx, roomID, eventID); err != nil {
		return wrapf(err, "sending read receipt in room %s", roomID)
	}
	return nil
}

// MarkRoomAsRead moves the read marker to the room's latest event.
func (s *Session) MarkRoomAsRead(ctx context.Context, roomID string) error {
	if err := s.requireReady("MarkRoomAsRead"); err != nil {
		return err
	}
	if err := s.client.MarkRoomAsRead(ctx, roomID); err != nil {
		return wrapf(err, "marking room %s as read", roomID)
	}
	return nil
}

// RegisterPushNotifications registers an HTTP pusher so the server
// delivers push notifications for this account to the given gateway.
func (s *Session) RegisterPushNotifications(ctx context.Context, displayName, appID, serviceURL, token string) error {
	if err := s.requireReady("RegisterPushNotifications"); err != nil {
		return err
	}
	registration := PushRegistration{
		AppDisplayName: displayName,
		AppID:          appID,
		GatewayURL:     serviceURL,
		PushKey:        token,
	}
	if err := s.client.RegisterPusher(ctx, registration); err != nil {
		return wrapf(err, "registering pusher for app %s", appID)
	}
	return nil
}

// SetUserDisplayName sets the session user's display name.
func (s *Session) SetUserDisplayName(ctx context.Context, displayName string) error {
	if err := s.requireReady("SetUserDisplayName"); err != nil {
		return err
	}
	if err := s.client.SetDisplayName(ctx, displayName); err != nil {
		return wrapf(err, "setting display name")
	}
	return nil
}

// UploadContent uploads a local file, returning its content URI.
func (s *Session) UploadContent(ctx context.Context, path, contentType string) (string, error) {
	if err := s.requireReady("UploadContent"); err != nil {
		return "", err
	}
	contentURI, err := s.client.UploadContent(ctx, path, contentType)
	if err != nil {
		return "", wrapf(err, "uploading %s", path)
	}
	return contentURI, nil
}

// DownloadContent fetches the content behind a URI into destDir and
// returns the local file path.
func (s *Session) DownloadContent(ctx context.Context, contentURI, destDir string) (string, error) {
	if err := s.requireReady("DownloadContent"); err != nil {
		return "", err
	}
	path, err := s.client.DownloadContent(ctx, contentURI, destDir)
	if err != nil {
		return "", wrapf(err, "downloading %s", contentURI)
	}
	return path, nil
}

// ContentGetDownloadableURL converts a content URI into a directly
// fetchable HTTP URL without a network call.
func (s *Session) ContentGetDownloadableURL(contentURI string) (string, error) {
	if err := s.requireReady("ContentGetDownloadableURL"); err != nil {
		return "", err
	}
	url, err := s.client.ContentURL(contentURI)
	if err != nil {
		return "", wrapf(err, "resolving download URL for %s", contentURI)
	}
	return url, nil
}

// SendTyping publishes a typing notification for the session user.
func (s *Session) SendTyping(ctx context.Context, roomID string, typing bool, timeoutMS int) error {
	if err := s.requireReady("SendTyping"); err != nil {
		return err
	}
	if err := s.client.SendTyping(ctx, roomID, typing, timeoutMS); err != nil {
		return wrapf(err, "sending typing notification to room %s", roomID)
	}
	return nil
}

// UpdatePresence publishes the user's presence: online or
// unavailable.
func (s *Session) UpdatePresence(ctx context.Context, online bool) error {
	if err := s.requireReady("UpdatePresence"); err != nil {
		return err
	}
	if err := s.client.SetPresence(ctx, online); err != nil {
		return wrapf(err, "updating presence")
	}
	return nil
}
