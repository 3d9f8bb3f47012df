// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides strongly typed, immutable value types for Matrix
// identifiers: room IDs, room aliases, user IDs, event IDs, and event
// types.
//
// Identifiers arrive as raw strings from the homeserver and from the
// host application. Parsing them into these types at the boundary means
// the rest of the module never re-checks sigils or ':server' suffixes,
// and a room ID can never be passed where a user ID is expected.
//
// The zero value of each type is not a valid identifier; use IsZero to
// check. All types implement encoding.TextMarshaler/TextUnmarshaler so
// they round-trip through JSON (including as map keys) and CBOR.
package ref
