// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/hallway-chat/hallway/bridge"
	"github.com/hallway-chat/hallway/lib/config"
	"github.com/hallway-chat/hallway/lib/sessionfile"
	"github.com/hallway-chat/hallway/messaging"
)

// app holds the pieces every command needs: resolved configuration, a
// logger, and (after connect) a ready bridge session.
type app struct {
	config  *config.Config
	logger  *slog.Logger
	session *bridge.Session
}

// addGlobalFlags registers the flags shared by every command and
// returns pointers to their values.
func addGlobalFlags(flagSet *pflag.FlagSet) (configPath, homeserverURL *string) {
	configPath = flagSet.String("config", "", "config file path (default: $HALLWAY_CONFIG)")
	homeserverURL = flagSet.String("homeserver", "", "override the configured homeserver URL")
	return configPath, homeserverURL
}

// newApp resolves configuration and builds the logger. Config comes
// from --config, then $HALLWAY_CONFIG, then built-in defaults; the
// --homeserver flag wins over the file.
func newApp(configPath, homeserverURL string) (*app, error) {
	var cfg *config.Config
	var err error
	switch {
	case configPath != "":
		cfg, err = config.LoadFile(configPath)
	case os.Getenv("HALLWAY_CONFIG") != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if homeserverURL != "" {
		cfg.Homeserver.URL = homeserverURL
	}
	if cfg.Homeserver.URL == "" {
		return nil, fmt.Errorf("no homeserver configured (use --homeserver or set homeserver.url in the config file)")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &app{config: cfg, logger: newLogger(cfg.Log)}, nil
}

// newLogger builds the slog logger described by the config: text for
// humans, json for pipelines, level gated.
func newLogger(logConfig config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch logConfig.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if logConfig.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, options)
	} else {
		handler = slog.NewTextHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

// sessionFilePath is where the persisted credentials live.
func (a *app) sessionFilePath() string {
	return filepath.Join(a.config.Paths.State, "session.cbor")
}

// newBridgeSession builds an unconnected bridge session over a Matrix
// client tuned from the config.
func (a *app) newBridgeSession() *bridge.Session {
	client := bridge.NewMatrixClient(bridge.MatrixClientConfig{
		Logger: a.logger,
		Sync: messaging.SyncConfig{
			Logger:          a.logger,
			LongPollTimeout: time.Duration(a.config.Homeserver.SyncTimeoutMS) * time.Millisecond,
			RetryDelay:      time.Duration(a.config.Homeserver.RetryDelayMS) * time.Millisecond,
			MaxRetries:      a.config.Homeserver.MaxSyncRetries,
		},
	})
	return bridge.NewSession(bridge.SessionConfig{
		Client: client,
		Logger: a.logger,
	})
}

// connect loads the saved credentials, starts the sync loop, and
// leaves a.session Ready. Commands that talk to the homeserver call
// this once up front.
func (a *app) connect(ctx context.Context) error {
	saved, err := sessionfile.Load(a.sessionFilePath())
	if err != nil {
		if errors.Is(err, sessionfile.ErrNotFound) {
			return fmt.Errorf("not logged in (run \"hallway login <username>\" first)")
		}
		return err
	}

	session := a.newBridgeSession()
	if err := session.Configure(saved.Homeserver); err != nil {
		return err
	}
	if err := session.SetCredentials(saved.AccessToken, saved.DeviceID, saved.UserID, saved.Homeserver, ""); err != nil {
		return err
	}
	if _, err := session.StartSession(ctx); err != nil {
		return err
	}
	a.session = session
	return nil
}

// close shuts the bridge session down if connect succeeded.
func (a *app) close() {
	if a.session != nil {
		a.session.Close()
	}
}
