// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/conmirror/cmd/conmirror/cli"
	"github.com/bureau-foundation/conmirror/command"
	"github.com/bureau-foundation/conmirror/controller"
	"github.com/bureau-foundation/conmirror/lib/clock"
	"github.com/bureau-foundation/conmirror/lib/config"
	"github.com/bureau-foundation/conmirror/region"
)

// app carries the output streams and clock the commands use.
type app struct {
	stdout io.Writer
	stderr io.Writer
	clock  clock.Clock
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, clock: clock.Real()}
}

// sessionFlags are the flags every command that touches a session
// shares.
type sessionFlags struct {
	session    string
	regionsDir string
	configPath string
}

func (s *sessionFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&s.session, "session", "s", os.Getenv("CONMIRROR_SESSION"), "session id (default: $CONMIRROR_SESSION)")
	flagSet.StringVar(&s.regionsDir, "regions-dir", "", "directory holding the region files (default: regions.directory from the config, else "+region.DefaultMappedDirectory+")")
	flagSet.StringVar(&s.configPath, "config", "", "path to conmirror.yaml (default: $"+config.EnvironmentVariable+")")
}

// directory resolves the region directory: the flag, then the config
// file, then the built-in default.
func (s *sessionFlags) directory() (string, error) {
	if s.regionsDir != "" {
		return s.regionsDir, nil
	}
	path := s.configPath
	if path == "" {
		path = os.Getenv(config.EnvironmentVariable)
	}
	if path == "" {
		return region.DefaultMappedDirectory, nil
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return "", cli.Validation("loading config: %w", err)
	}
	return cfg.Regions.Directory, nil
}

// attach opens the session's regions. The returned function releases
// them.
func (s *sessionFlags) attach() (*controller.Controller, func(), error) {
	if s.session == "" {
		return nil, nil, cli.Validation("--session is required").
			WithHint("Pass --session <id> or set CONMIRROR_SESSION.")
	}
	if err := region.ValidateSession(s.session); err != nil {
		return nil, nil, cli.Validation("%w", err)
	}
	directory, err := s.directory()
	if err != nil {
		return nil, nil, err
	}
	store, err := region.NewMappedStore(directory)
	if err != nil {
		return nil, nil, cli.Internal("opening region directory: %w", err)
	}
	ctl, err := controller.Attach(store, s.session)
	if err != nil {
		store.Close()
		if errors.Is(err, region.ErrNotFound) {
			return nil, nil, cli.NotFound("no regions for session %q in %s", s.session, directory).
				WithHint(fmt.Sprintf("Start one with: conmirror-monitor --session %s --target <pane>", s.session))
		}
		return nil, nil, cli.Internal("%w", err)
	}
	return ctl, func() { store.Close() }, nil
}

// send posts cmd and classifies the failure modes.
func send(ctl *controller.Controller, cmd command.Command) (uint64, error) {
	sequence, err := ctl.Send(cmd)
	switch {
	case err == nil:
		return sequence, nil
	case errors.Is(err, region.ErrBusy):
		return 0, cli.Transient("the previous %s command has not been consumed yet", cmd.Kind()).
			WithHint("Is conmirror-monitor running for this session?")
	case errors.Is(err, region.ErrTooLarge):
		return 0, cli.Validation("%w", err)
	default:
		return 0, cli.Internal("%w", err)
	}
}
