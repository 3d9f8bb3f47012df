// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
)

// watchRecord is one JSON line emitted by "hallway watch".
type watchRecord struct {
	Channel string `json:"channel"`
	Event   any    `json:"event"`
}

func runWatch(args []string) error {
	flagSet := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	configPath, homeserverURL := addGlobalFlags(flagSet)
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	roomIDs := flagSet.Args()

	application, err := newApp(*configPath, *homeserverURL)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.connect(ctx); err != nil {
		return err
	}
	defer application.close()
	session := application.session

	// With room arguments, watch those timelines; otherwise watch the
	// session-wide stream of allow-listed event types.
	if len(roomIDs) > 0 {
		for _, roomID := range roomIDs {
			if err := session.ListenToRoom(roomID); err != nil {
				return err
			}
		}
	} else {
		session.SetAdditionalEventTypes(application.config.Events.AdditionalTypes)
		if err := session.Listen(); err != nil {
			return err
		}
	}
	fmt.Fprintln(os.Stderr, "watching (ctrl-c to stop)")

	encoder := json.NewEncoder(os.Stdout)
	for {
		select {
		case <-ctx.Done():
			return nil
		case notification, open := <-session.Notifications():
			if !open {
				return nil
			}
			record := watchRecord{Channel: notification.Channel, Event: notification.Event}
			if err := encoder.Encode(record); err != nil {
				return err
			}
		}
	}
}
