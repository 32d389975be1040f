// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/conmirror/command"
	"github.com/bureau-foundation/conmirror/console"
	"github.com/bureau-foundation/conmirror/lib/codec"
	"github.com/bureau-foundation/conmirror/monitor"
	"github.com/bureau-foundation/conmirror/region"
	"github.com/bureau-foundation/conmirror/screendiff"
)

var (
	// ErrDesync is returned when the reconstructed screen does not
	// match the digest the monitor published, even after full reads.
	ErrDesync = errors.New("controller: reconstructed screen does not match published digest")

	// ErrNotPublished is returned for state the monitor has not
	// published yet.
	ErrNotPublished = errors.New("controller: not yet published")
)

// refreshAttempts bounds how often Refresh restarts after racing the
// monitor.
const refreshAttempts = 16

// Controller reads and drives one session. It is not safe for
// concurrent use.
type Controller struct {
	session string
	regions map[region.Kind]*region.Region

	snapshot screendiff.Snapshot
	have     bool
	last     uint64

	scratch []byte
}

// Attach looks up every region of session in store. It fails with
// region.ErrNotFound until a monitor has started for the session.
func Attach(store region.Store, session string) (*Controller, error) {
	if err := region.ValidateSession(session); err != nil {
		return nil, err
	}
	c := &Controller{session: session, regions: make(map[region.Kind]*region.Region)}
	for _, spec := range region.Catalog(0) {
		handle, err := store.Lookup(region.Name(session, spec.Kind))
		if err != nil {
			return nil, fmt.Errorf("attaching to session %s: %w", session, err)
		}
		c.regions[spec.Kind] = handle
	}
	return c, nil
}

// Session returns the attached session id.
func (c *Controller) Session() string { return c.session }

func (c *Controller) read(kind region.Kind, v any) (uint64, error) {
	payload, sequence, err := c.regions[kind].Read(c.scratch)
	if err != nil {
		return 0, err
	}
	if sequence == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNotPublished, kind)
	}
	c.scratch = payload[:0]
	if err := codec.Decode(payload, v); err != nil {
		return 0, fmt.Errorf("decoding %s: %w", kind, err)
	}
	return sequence, nil
}

// Params returns the monitor's published parameters.
func (c *Controller) Params() (monitor.Params, error) {
	var params monitor.Params
	_, err := c.read(region.KindParams, &params)
	return params, err
}

// ScreenInfo returns the latest published screen buffer info.
func (c *Controller) ScreenInfo() (console.ScreenBufferInfo, error) {
	var info console.ScreenBufferInfo
	_, err := c.read(region.KindScreenInfo, &info)
	return info, err
}

// Cursor returns the latest published cursor info.
func (c *Controller) Cursor() (console.CursorInfo, error) {
	var cursor console.CursorInfo
	_, err := c.read(region.KindCursorInfo, &cursor)
	return cursor, err
}

// Send posts cmd to its command region and returns the sequence the
// monitor will report for it. region.ErrBusy means the previous
// command of the same kind has not been consumed yet.
func (c *Controller) Send(cmd command.Command) (uint64, error) {
	payload, err := command.Encode(cmd)
	if err != nil {
		return 0, err
	}
	handle := c.regions[cmd.Kind()]
	if err := handle.Post(payload); err != nil {
		return 0, err
	}
	return handle.Sequence(), nil
}

// Pending reports whether a command of the given kind is still waiting
// for the monitor.
func (c *Controller) Pending(kind region.Kind) bool {
	handle, ok := c.regions[kind]
	return ok && handle.Pending()
}

// CopyResult returns the selection answering the copy request with the
// given sequence. ok is false until the monitor has published it.
func (c *Controller) CopyResult(sequence uint64) (selection command.Selection, ok bool, err error) {
	if _, err := c.read(region.KindCopyInfo, &selection); err != nil {
		if errors.Is(err, ErrNotPublished) {
			return command.Selection{}, false, nil
		}
		return command.Selection{}, false, err
	}
	if selection.Sequence != sequence {
		return command.Selection{}, false, nil
	}
	return selection, true, nil
}
