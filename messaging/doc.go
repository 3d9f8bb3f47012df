// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the Matrix client-server API. It is the
// protocol layer underneath the bridge package: it performs the HTTP
// calls, runs the background /sync loop, and maintains per-room live
// timelines; it knows nothing about listeners-per-room invariants or
// pagination cursor bookkeeping, which belong to the bridge.
//
// The package provides three core types. [Client] is an unauthenticated
// Matrix client that handles password login, returning authenticated
// [Session] values. Client holds the homeserver URL and HTTP transport,
// shared across all Sessions derived from it.
//
// [Session] wraps a Client with an access token for authenticated
// operations: room management (create, join, leave, invite, kick, room
// name, power levels), messaging (send events, paginated room messages,
// server-side search), receipts and read markers, typing notifications,
// presence, pushers, profile management, media upload/download, and
// incremental sync with long-polling.
//
// [SyncSession] owns a Session and runs the background sync loop:
// an initial sync primes the room table and the next_batch token, then
// a long-poll loop (30-second server-side hold) applies each response
// to the room records and fans events out to subscribers. Subscribers
// receive [TimelineEvent] values tagged with a [Direction]: events from
// the initial catch-up and from backward pagination are Backwards,
// events arriving live are Forwards. Subscriptions are cancellable and
// idempotent to cancel.
//
// Sessions are lightweight (a pointer to the parent Client plus an
// access token in mmap-backed secret.Buffer memory). The access token
// is locked against swap and excluded from core dumps; callers must
// call Session.Close to release the protected memory.
//
// All API errors are returned as [*MatrixError] with the standard
// Matrix error code (M_FORBIDDEN, M_NOT_FOUND, etc.) and HTTP status
// code. [IsMatrixError] tests for a specific error code. Request URLs
// are built by string concatenation rather than url.URL to avoid
// double-encoding of path segments that contain URL-encoded characters
// (such as room aliases with slashes).
package messaging
