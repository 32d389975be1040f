// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package region

import (
	"fmt"
	"regexp"
)

// Kind names one region in a session's catalog.
type Kind string

// State regions, written by the monitor.
const (
	KindParams     Kind = "params"
	KindScreenInfo Kind = "screen-info"
	KindCursorInfo Kind = "cursor-info"
	KindBuffer     Kind = "buffer"
	KindBufferInfo Kind = "buffer-info"
	KindCopyInfo   Kind = "copy-info"
)

// Command regions, written by the controller.
const (
	KindPasteInfo    Kind = "paste-info"
	KindMouseEvent   Kind = "mouse-event"
	KindNewSize      Kind = "new-size"
	KindNewScrollPos Kind = "new-scroll-pos"
	KindKeyReset     Kind = "key-reset"
	KindCopyRequest  Kind = "copy-request"
)

// Direction says which side writes a region's payload.
type Direction int

const (
	// MonitorToController regions carry published console state.
	MonitorToController Direction = iota
	// ControllerToMonitor regions carry one-shot command records.
	ControllerToMonitor
)

// Spec describes one entry of the catalog.
type Spec struct {
	Kind      Kind
	Direction Direction
	Capacity  int
}

// CellSize is the encoded size of one buffer grid cell.
const CellSize = 8

// Default capacities for the structured regions. The buffer region is
// sized from the cell capacity passed to Catalog.
const (
	SmallCapacity      = 4 << 10
	PasteCapacity      = 256 << 10
	CopyInfoCapacity   = 1 << 20
	CommandCapacity    = 1 << 10
	DefaultBufferCells = 200 * 200
)

// Catalog returns the full region catalog for a buffer grid holding
// bufferCells cells, state regions first.
func Catalog(bufferCells int) []Spec {
	if bufferCells <= 0 {
		bufferCells = DefaultBufferCells
	}
	return []Spec{
		{KindParams, MonitorToController, SmallCapacity},
		{KindScreenInfo, MonitorToController, SmallCapacity},
		{KindCursorInfo, MonitorToController, SmallCapacity},
		{KindBuffer, MonitorToController, bufferCells * CellSize},
		{KindBufferInfo, MonitorToController, SmallCapacity},
		{KindCopyInfo, MonitorToController, CopyInfoCapacity},
		{KindPasteInfo, ControllerToMonitor, PasteCapacity},
		{KindMouseEvent, ControllerToMonitor, CommandCapacity},
		{KindNewSize, ControllerToMonitor, CommandCapacity},
		{KindNewScrollPos, ControllerToMonitor, CommandCapacity},
		{KindKeyReset, ControllerToMonitor, CommandCapacity},
		{KindCopyRequest, ControllerToMonitor, CommandCapacity},
	}
}

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateSession checks that id can be embedded in region names and
// file names.
func ValidateSession(id string) error {
	if !sessionPattern.MatchString(id) {
		return fmt.Errorf("invalid session id %q: want 1-64 characters from [A-Za-z0-9_-]", id)
	}
	return nil
}

// Name returns the region name for kind in session.
func Name(session string, kind Kind) string {
	return "conmirror." + session + "." + string(kind)
}
