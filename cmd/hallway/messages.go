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

func runMessages(args []string) error {
	flagSet := pflag.NewFlagSet("messages", pflag.ContinueOnError)
	configPath, homeserverURL := addGlobalFlags(flagSet)
	limit := flagSet.Int("limit", 0, "page size (default: config paging.default_limit)")
	resume := flagSet.Bool("continue", false, "resume from the previous page instead of the live edge")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("usage: hallway messages <room> [flags]")
	}
	roomID := flagSet.Arg(0)

	application, err := newApp(*configPath, *homeserverURL)
	if err != nil {
		return err
	}
	perPage := *limit
	if perPage <= 0 {
		perPage = application.config.Paging.DefaultLimit
	}
	if max := application.config.Paging.MaxLimit; perPage > max {
		perPage = max
	}

	ctx := context.Background()
	if err := application.connect(ctx); err != nil {
		return err
	}
	defer application.close()

	events, err := application.session.LoadMessagesInRoom(ctx, roomID, perPage, !*resume)
	if err != nil {
		return err
	}
	return printEvents(events)
}

func runSearch(args []string) error {
	flagSet := pflag.NewFlagSet("search", pflag.ContinueOnError)
	configPath, homeserverURL := addGlobalFlags(flagSet)
	roomID := flagSet.String("room", "", "restrict the search to one room")
	nextBatch := flagSet.String("next", "", "continuation token from a previous search")
	beforeLimit := flagSet.Int("before", 1, "context events before each match")
	afterLimit := flagSet.Int("after", 1, "context events after each match")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("usage: hallway search <term> [flags]")
	}
	term := flagSet.Arg(0)

	application, err := newApp(*configPath, *homeserverURL)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := application.connect(ctx); err != nil {
		return err
	}
	defer application.close()

	page, err := application.session.SearchMessagesInRoom(ctx, *roomID, term, *nextBatch, *beforeLimit, *afterLimit)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%d matches\n", page.Count)
	if page.NextBatch != "" {
		fmt.Fprintf(os.Stderr, "next page: --next %s\n", page.NextBatch)
	}
	encoder := json.NewEncoder(os.Stdout)
	for _, result := range page.Results {
		if err := encoder.Encode(result); err != nil {
			return err
		}
	}
	return nil
}

// printEvents writes projected events as JSON lines, oldest last (the
// order the server returned them in).
func printEvents(events []bridge.ProjectedEvent) error {
	encoder := json.NewEncoder(os.Stdout)
	for _, event := range events {
		if err := encoder.Encode(event); err != nil {
			return err
		}
	}
	return nil
}
