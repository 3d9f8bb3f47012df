// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

// Hallway is the command-line client for the Hallway bridge: log in to
// a Matrix homeserver, list and manage rooms, send messages, page
// through history, and stream live events as JSON lines.
//
// Authentication is persisted: "hallway login" saves the session to
// the state directory, and every other command loads it transparently.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "hallway: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage()
		return fmt.Errorf("a command is required")
	}

	command, rest := args[0], args[1:]
	switch command {
	case "login":
		return runLogin(rest)
	case "logout":
		return runLogout(rest)
	case "whoami":
		return runWhoAmI(rest)
	case "rooms":
		return runRooms(rest)
	case "send":
		return runSend(rest)
	case "messages":
		return runMessages(rest)
	case "search":
		return runSearch(rest)
	case "watch":
		return runWatch(rest)
	case "help", "--help", "-h":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: hallway <command> [flags]

Commands:
  login <username>        authenticate and save the session
  logout                  delete the saved session
  whoami                  print the saved session's identity
  rooms                   list rooms (--invited, --left, --public)
  send <room> <text>      send a text message
  messages <room>         page backwards through room history
  search <term>           server-side message search
  watch [room ...]        stream live events as JSON lines

Global flags (every command):
  --config <path>         config file (default: $HALLWAY_CONFIG)
  --homeserver <url>      override the configured homeserver URL

Run "hallway <command> --help" for command flags.
`)
}
