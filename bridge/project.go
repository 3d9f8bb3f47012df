// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

// Projection converts protocol entities into the plain data shapes
// crossing the bridge boundary. The functions are total: missing
// fields project to explicit nulls, never to an error or an omitted
// key. Projected values are snapshots carrying no reference back to
// the protocol client's objects.

// ProjectedEvent always serializes all seven keys; absent values are
// JSON null.
type ProjectedEvent struct {
	EventType *string        `json:"event_type"`
	EventID   *string        `json:"event_id"`
	RoomID    *string        `json:"room_id"`
	SenderID  *string        `json:"sender_id"`
	Age       *int64         `json:"age"`
	Content   map[string]any `json:"content"`
	Timestamp *int64         `json:"ts"`
}

// ProjectedRoom is the room shape crossing the bridge boundary.
// Members is always present: an empty list when no member list was
// fetched, which callers must not read as "the room has no members."
type ProjectedRoom struct {
	RoomID              string            `json:"room_id"`
	Name                string            `json:"name"`
	Topic               string            `json:"topic"`
	AvatarURL           string            `json:"avatar_url"`
	Membership          string            `json:"membership"`
	IsDirect            bool              `json:"is_direct"`
	IsLeft              bool              `json:"is_left"`
	UnreadNotifications int64             `json:"unread_notification_count"`
	LastEvent           *ProjectedEvent   `json:"last_event"`
	Members             []ProjectedMember `json:"members"`
}

// ProjectedMember is one room member at the bridge boundary.
type ProjectedMember struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Membership  string `json:"membership"`
}

// ProjectedSearchResult is one search match with projected context.
type ProjectedSearchResult struct {
	Event  ProjectedEvent   `json:"event"`
	Before []ProjectedEvent `json:"before"`
	After  []ProjectedEvent `json:"after"`
}

// ProjectedSearchPage is a page of search results.
type ProjectedSearchPage struct {
	Count     int64                   `json:"count"`
	NextBatch string                  `json:"next_batch"`
	Results   []ProjectedSearchResult `json:"results"`
}

// ProjectEvent maps a protocol event to the seven-key bridge shape.
// Zero-valued fields become nulls.
func ProjectEvent(event ProtocolEvent) ProjectedEvent {
	projected := ProjectedEvent{
		EventType: nullableString(event.Type),
		EventID:   nullableString(event.ID),
		RoomID:    nullableString(event.RoomID),
		SenderID:  nullableString(event.Sender),
		Content:   event.Content,
	}
	if event.Timestamp != 0 {
		ts := event.Timestamp
		projected.Timestamp = &ts
	}
	if event.Age != 0 {
		age := event.Age
		projected.Age = &age
	}
	return projected
}

// ProjectRoom maps a protocol room to the bridge shape. The isLeft
// flag derives from the room's own membership.
func ProjectRoom(room ProtocolRoom) ProjectedRoom {
	membership := NormalizeMembership(room.Membership)
	members := make([]ProjectedMember, 0, len(room.Members))
	for _, member := range room.Members {
		members = append(members, ProjectMember(member))
	}

	projected := ProjectedRoom{
		RoomID:              room.ID,
		Name:                room.Name,
		Topic:               room.Topic,
		AvatarURL:           room.AvatarURL,
		Membership:          membership,
		IsDirect:            room.IsDirect,
		IsLeft:              membership == "leave",
		UnreadNotifications: room.UnreadNotifications,
		Members:             members,
	}
	if room.LastEvent != nil {
		lastEvent := ProjectEvent(*room.LastEvent)
		projected.LastEvent = &lastEvent
	}
	return projected
}

// ProjectMember maps a protocol member to the bridge shape.
func ProjectMember(member ProtocolMember) ProjectedMember {
	return ProjectedMember{
		UserID:      member.UserID,
		DisplayName: member.DisplayName,
		AvatarURL:   member.AvatarURL,
		Membership:  NormalizeMembership(member.Membership),
	}
}

// ProjectEvents maps a slice of protocol events, preserving order.
func ProjectEvents(events []ProtocolEvent) []ProjectedEvent {
	projected := make([]ProjectedEvent, len(events))
	for index, event := range events {
		projected[index] = ProjectEvent(event)
	}
	return projected
}

// ProjectSearchPage maps a search page, matches and context both.
func ProjectSearchPage(page SearchPage) ProjectedSearchPage {
	results := make([]ProjectedSearchResult, len(page.Results))
	for index, hit := range page.Results {
		results[index] = ProjectedSearchResult{
			Event:  ProjectEvent(hit.Event),
			Before: ProjectEvents(hit.Before),
			After:  ProjectEvents(hit.After),
		}
	}
	return ProjectedSearchPage{
		Count:     page.Count,
		NextBatch: page.NextBatch,
		Results:   results,
	}
}

// NormalizeMembership maps a membership value to one of the lowercase
// tokens join, invite, leave, ban. Unrecognized values fall back to
// join.
func NormalizeMembership(membership string) string {
	switch membership {
	case "join", "invite", "leave", "ban":
		return membership
	default:
		return "join"
	}
}

func nullableString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
