// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hallway-chat/hallway/lib/ref"
)

// GetState fetches a state event's content from a room and unmarshals
// it into T. A missing state event surfaces as a *MatrixError with
// code M_NOT_FOUND, which callers can detect with IsMatrixError.
func GetState[T any](ctx context.Context, session *Session, roomID ref.RoomID, eventType ref.EventType, stateKey string) (T, error) {
	var content T

	raw, err := session.GetStateEvent(ctx, roomID, eventType, stateKey)
	if err != nil {
		return content, err
	}
	if err := json.Unmarshal(raw, &content); err != nil {
		return content, fmt.Errorf("messaging: failed to parse %s state content: %w", eventType, err)
	}
	return content, nil
}
