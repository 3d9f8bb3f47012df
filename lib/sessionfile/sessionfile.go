// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

// Package sessionfile persists Matrix session credentials to disk so
// that a restarted process can resume a session without re-entering a
// password.
//
// The file is CBOR-encoded (lib/codec) and written with 0600
// permissions via an atomic temp-file-and-rename, so a crash mid-write
// never leaves a truncated credential file behind. The access token is
// stored in the clear — the file permission is the protection
// boundary, matching standard Matrix client behavior.
package sessionfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hallway-chat/hallway/lib/codec"
)

// File holds the persisted credentials for one Matrix session. This
// type is only ever serialized as CBOR.
type File struct {
	// Homeserver is the base URL the credentials were issued by.
	Homeserver string `cbor:"homeserver"`

	// UserID is the full Matrix user ID (e.g., "@alice:example.org").
	UserID string `cbor:"user_id"`

	// AccessToken authenticates requests to the homeserver.
	AccessToken string `cbor:"access_token"`

	// DeviceID identifies this login's device on the homeserver.
	DeviceID string `cbor:"device_id,omitempty"`

	// SavedAt records when the file was written.
	SavedAt time.Time `cbor:"saved_at"`
}

// ErrNotFound is returned by Load when no session file exists at the
// given path. Callers treat this as "not logged in", not a failure.
var ErrNotFound = errors.New("sessionfile: no session file")

// Save writes the session file atomically with 0600 permissions. The
// parent directory must exist. SavedAt is stamped by Save.
func Save(path string, file *File) error {
	file.SavedAt = time.Now().UTC()

	data, err := codec.Marshal(file)
	if err != nil {
		return fmt.Errorf("encoding session file: %w", err)
	}

	// Write to a temp file in the same directory, then rename. Rename
	// within one filesystem is atomic, so readers never observe a
	// partial file.
	directory := filepath.Dir(path)
	temp, err := os.CreateTemp(directory, ".session-*")
	if err != nil {
		return fmt.Errorf("creating temp session file: %w", err)
	}
	tempPath := temp.Name()

	cleanup := func() {
		temp.Close()
		os.Remove(tempPath)
	}

	if err := temp.Chmod(0600); err != nil {
		cleanup()
		return fmt.Errorf("setting session file permissions: %w", err)
	}
	if _, err := temp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := temp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("syncing session file: %w", err)
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing session file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming session file into place: %w", err)
	}
	return nil
}

// Load reads and decodes the session file at path. Returns ErrNotFound
// if the file does not exist.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	var file File
	if err := codec.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decoding session file: %w", err)
	}
	if file.Homeserver == "" || file.UserID == "" || file.AccessToken == "" {
		return nil, fmt.Errorf("session file %s is missing required fields", path)
	}
	return &file, nil
}

// Remove deletes the session file. Removing a file that does not exist
// is not an error — logout is idempotent.
func Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}
