// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import "time"

// SessionParams identify the mirrored session.
type SessionParams struct {
	// SessionID names the session's regions. See region.ValidateSession.
	SessionID string

	// OwnerThreadID identifies the thread or process that owns the
	// console. It is echoed to the controller and otherwise unused.
	OwnerThreadID uint32
}

// State is the monitor lifecycle state published in params.
type State string

const (
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopped  State = "stopped"
)

// Params is the payload of the params region.
type Params struct {
	SessionID     string        `cbor:"session_id"`
	OwnerThreadID uint32        `cbor:"owner_thread_id"`
	State         State         `cbor:"state"`
	ProcessID     int           `cbor:"pid"`
	Interval      time.Duration `cbor:"interval"`

	// Window and buffer dimensions from the latest sample, zero until
	// the first one.
	Columns       int `cbor:"columns"`
	Rows          int `cbor:"rows"`
	BufferColumns int `cbor:"buffer_columns"`
	BufferRows    int `cbor:"buffer_rows"`
	MaxColumns    int `cbor:"max_columns"`
	MaxRows       int `cbor:"max_rows"`

	// BufferCells is the capacity of the buffer grid in cells.
	BufferCells int `cbor:"buffer_cells"`
}
