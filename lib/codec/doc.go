// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Hallway's standard CBOR encoding configuration.
//
// Hallway uses two serialization formats with a clear boundary:
//
//   - JSON for external interfaces: the Matrix Client-Server API and
//     CLI output.
//   - CBOR for internal state: persisted session credentials
//     (lib/sessionfile) and pagination cursor snapshots.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every Hallway package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes.
//
// For buffer-oriented operations (files, tokens):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations:
//
//	encoder := codec.NewEncoder(w)
//	decoder := codec.NewDecoder(r)
//
// # Struct Tag Rules
//
// The struct tag on a type documents its serialization format:
//
//   - `cbor` tag: this type is ONLY ever serialized as CBOR. It will
//     never be marshaled to JSON. Example: the on-disk session file.
//   - `json` tag: this type may be serialized as BOTH JSON and CBOR.
//     fxamacker/cbor v2 reads `json` tags as fallback when `cbor`
//     tags are absent, so a single `json` tag controls field naming
//     and omitempty for both formats.
//
// Never use both `cbor` and `json` tags on the same field. The tag
// choice documents the contract — doubling up is noise that obscures
// whether a type participates in JSON serialization.
package codec
