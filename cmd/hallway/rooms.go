// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/hallway-chat/hallway/bridge"
)

func runRooms(args []string) error {
	flagSet := pflag.NewFlagSet("rooms", pflag.ContinueOnError)
	configPath, homeserverURL := addGlobalFlags(flagSet)
	invited := flagSet.Bool("invited", false, "list rooms with a pending invite instead")
	left := flagSet.Bool("left", false, "list left rooms instead")
	public := flagSet.Bool("public", false, "list the server's public room directory instead")
	limit := flagSet.Int("limit", 50, "page size for --public")
	since := flagSet.String("since", "", "continuation token for --public")
	asJSON := flagSet.Bool("json", false, "print rooms as JSON")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	application, err := newApp(*configPath, *homeserverURL)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := application.connect(ctx); err != nil {
		return err
	}
	defer application.close()

	var rooms []bridge.ProjectedRoom
	switch {
	case *public:
		var nextBatch string
		rooms, nextBatch, err = application.session.GetPublicRooms(ctx, *limit, *since)
		if err == nil && nextBatch != "" {
			fmt.Fprintf(os.Stderr, "next page: --since %s\n", nextBatch)
		}
	case *invited:
		rooms, err = application.session.GetInvitedRooms(ctx)
	case *left:
		rooms, err = application.session.GetLeftRooms(ctx)
	default:
		rooms, err = application.session.GetJoinedRooms(ctx)
	}
	if err != nil {
		return err
	}

	if *asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rooms)
	}
	for _, room := range rooms {
		name := room.Name
		if name == "" {
			name = "(unnamed)"
		}
		marker := ""
		if room.IsDirect {
			marker = " [direct]"
		}
		if room.UnreadNotifications > 0 {
			marker += fmt.Sprintf(" (%d unread)", room.UnreadNotifications)
		}
		fmt.Printf("%s  %s%s\n", room.RoomID, name, marker)
	}
	return nil
}

func runSend(args []string) error {
	flagSet := pflag.NewFlagSet("send", pflag.ContinueOnError)
	configPath, homeserverURL := addGlobalFlags(flagSet)
	msgtype := flagSet.String("msgtype", "m.text", "message type (m.text, m.notice, m.emote)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 2 {
		return fmt.Errorf("usage: hallway send <room> <text> [flags]")
	}
	roomID, body := flagSet.Arg(0), flagSet.Arg(1)

	application, err := newApp(*configPath, *homeserverURL)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := application.connect(ctx); err != nil {
		return err
	}
	defer application.close()

	eventID, err := application.session.SendMessageToRoom(ctx, roomID, *msgtype, map[string]any{
		"body": body,
	})
	if err != nil {
		return err
	}
	fmt.Println(eventID)
	return nil
}
