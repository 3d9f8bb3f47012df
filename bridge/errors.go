// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"errors"
	"fmt"
)

// Kind is a stable error category. Invariant-misuse kinds
// (KindNotConnected, KindAlreadyListening, KindNoListener,
// KindRoomNotFound) are detected locally before any network call;
// KindProtocol wraps a failure from the underlying protocol client.
type Kind string

const (
	// KindNotConnected means the session is not Ready.
	KindNotConnected Kind = "not_connected"

	// KindRoomNotFound means the protocol client does not know the room.
	KindRoomNotFound Kind = "room_not_found"

	// KindAlreadyListening means a subscription already exists for the
	// requested scope.
	KindAlreadyListening Kind = "already_listening"

	// KindNoListener means there is no subscription to remove.
	KindNoListener Kind = "no_listener"

	// KindProtocol wraps any underlying protocol client failure:
	// network, auth, or a server-rejected request.
	KindProtocol Kind = "protocol"
)

// Error is the bridge error type. Every failure crossing the bridge
// boundary carries a Kind, a human-readable message, and (for
// protocol failures) the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("bridge: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("bridge: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is a bridge error of the given kind.
func IsKind(err error, kind Kind) bool {
	var bridgeErr *Error
	if errors.As(err, &bridgeErr) {
		return bridgeErr.Kind == kind
	}
	return false
}

// errorf builds a bridge error with no cause.
func errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// wrapf builds a KindProtocol error around an underlying failure.
func wrapf(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindProtocol, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// errNotConnected is the uniform failure for operations invoked
// before the session is Ready.
func errNotConnected(operation string) *Error {
	return errorf(KindNotConnected, "%s requires a ready session", operation)
}
