// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/hallway-chat/hallway/lib/secret"
	"github.com/hallway-chat/hallway/lib/sessionfile"
)

const loginTimeout = 30 * time.Second

func runLogin(args []string) error {
	flagSet := pflag.NewFlagSet("login", pflag.ContinueOnError)
	configPath, homeserverURL := addGlobalFlags(flagSet)
	passwordFile := flagSet.String("password-file", "", "read the password from this file (or stdin with -) instead of prompting")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("usage: hallway login <username> [flags]")
	}
	username := flagSet.Arg(0)

	application, err := newApp(*configPath, *homeserverURL)
	if err != nil {
		return err
	}

	password, err := readPassword(*passwordFile)
	if err != nil {
		return err
	}
	defer password.Close()

	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()

	session := application.newBridgeSession()
	defer session.Close()
	if err := session.Configure(application.config.Homeserver.URL); err != nil {
		return err
	}
	credentials, err := session.Login(ctx, username, password.String())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(application.config.Paths.State, 0700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	path := application.sessionFilePath()
	err = sessionfile.Save(path, &sessionfile.File{
		Homeserver:  application.config.Homeserver.URL,
		UserID:      credentials.UserID,
		AccessToken: credentials.AccessToken,
		DeviceID:    credentials.DeviceID,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Logged in as %s\n", credentials.UserID)
	fmt.Fprintf(os.Stderr, "Session saved to %s\n", path)
	return nil
}

func runLogout(args []string) error {
	flagSet := pflag.NewFlagSet("logout", pflag.ContinueOnError)
	configPath, homeserverURL := addGlobalFlags(flagSet)
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	application, err := newApp(*configPath, *homeserverURL)
	if err != nil {
		return err
	}
	if err := sessionfile.Remove(application.sessionFilePath()); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Logged out")
	return nil
}

func runWhoAmI(args []string) error {
	flagSet := pflag.NewFlagSet("whoami", pflag.ContinueOnError)
	configPath, homeserverURL := addGlobalFlags(flagSet)
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	application, err := newApp(*configPath, *homeserverURL)
	if err != nil {
		return err
	}
	saved, err := sessionfile.Load(application.sessionFilePath())
	if err != nil {
		return err
	}
	fmt.Printf("%s on %s (device %s)\n", saved.UserID, saved.Homeserver, saved.DeviceID)
	return nil
}

// readPassword reads the login password: from a file (or stdin with
// "-") when --password-file is given, otherwise from the terminal
// with echo disabled.
func readPassword(passwordFile string) (*secret.Buffer, error) {
	if passwordFile != "" {
		buffer, err := secret.ReadFromPath(passwordFile)
		if err != nil {
			return nil, fmt.Errorf("reading password file: %w", err)
		}
		return buffer, nil
	}

	stdinFD := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFD) {
		return nil, fmt.Errorf("no terminal for the password prompt (use --password-file)")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	passwordBytes, err := term.ReadPassword(stdinFD)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	buffer, err := secret.NewFromBytes(passwordBytes)
	if err != nil {
		secret.Zero(passwordBytes)
		return nil, err
	}
	return buffer, nil
}
