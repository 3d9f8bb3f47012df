// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge exposes a chat session to a host application through
// a call surface and a push-notification surface.
//
// A Session wraps one authenticated connection to a ProtocolClient
// (the chat-protocol implementation; see the messaging package for
// the Matrix one). The Session tracks connection state
// (Unauthenticated, Connecting, Ready, Failed), multiplexes live
// timeline events to per-room listeners plus one global listener, and
// keeps per-room pagination cursors so repeated "load more history"
// calls resume where the previous page ended.
//
// Listeners deliver Notification values on the Session's notification
// channel. Room listeners emit on the "room.backwards" and
// "room.forwards" channels depending on whether the event is
// historical or live; the global listener emits live events only,
// under a channel named after the event type, restricted to a
// caller-extensible allow-list.
//
// All failures carry a stable Kind so hosts can tell API misuse
// (double-subscribe, not connected) apart from protocol failures.
package bridge
