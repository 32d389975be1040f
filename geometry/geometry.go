// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package geometry

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/conmirror/console"
)

// Edge selects which side of the window moves when it is resized. The
// opposite side stays where it is. Vertical and horizontal edges may be
// combined.
type Edge uint8

const (
	EdgeLeft Edge = 1 << iota
	EdgeTop
	EdgeRight
	EdgeBottom
)

// DefaultEdge keeps the top-left corner of the window fixed.
const DefaultEdge = EdgeBottom | EdgeRight

func (e Edge) String() string {
	if e == 0 {
		return "none"
	}
	var names []string
	for _, entry := range []struct {
		edge Edge
		name string
	}{{EdgeLeft, "left"}, {EdgeTop, "top"}, {EdgeRight, "right"}, {EdgeBottom, "bottom"}} {
		if e&entry.edge != 0 {
			names = append(names, entry.name)
		}
	}
	return strings.Join(names, "|")
}

// ParseEdge accepts "top", "bottom", "left", "right" or a combination
// joined with "|" or ",".
func ParseEdge(text string) (Edge, error) {
	if text == "" {
		return DefaultEdge, nil
	}
	var edge Edge
	for _, part := range strings.FieldsFunc(text, func(r rune) bool { return r == '|' || r == ',' }) {
		switch strings.TrimSpace(strings.ToLower(part)) {
		case "left":
			edge |= EdgeLeft
		case "top":
			edge |= EdgeTop
		case "right":
			edge |= EdgeRight
		case "bottom":
			edge |= EdgeBottom
		default:
			return 0, fmt.Errorf("unknown edge %q (want top, bottom, left, right)", part)
		}
	}
	return edge, nil
}

// Limits bounds the geometry a resize may produce.
type Limits struct {
	MinColumns int `yaml:"min_columns"`
	MinRows    int `yaml:"min_rows"`

	// MaxBufferRows caps the buffer height, including scrollback.
	MaxBufferRows int `yaml:"max_buffer_rows"`

	// MaxWindowCells caps columns*rows of the window so the read
	// area always fits the shared buffer grid.
	MaxWindowCells int `yaml:"max_window_cells"`
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MinColumns:     20,
		MinRows:        5,
		MaxBufferRows:  9999,
		MaxWindowCells: 200 * 200,
	}
}

func (l Limits) withDefaults() Limits {
	defaults := DefaultLimits()
	if l.MinColumns <= 0 {
		l.MinColumns = defaults.MinColumns
	}
	if l.MinRows <= 0 {
		l.MinRows = defaults.MinRows
	}
	if l.MaxBufferRows <= 0 {
		l.MaxBufferRows = defaults.MaxBufferRows
	}
	if l.MaxWindowCells <= 0 {
		l.MaxWindowCells = defaults.MaxWindowCells
	}
	return l
}

// State is the geometry of a console at one instant.
type State struct {
	BufferSize    console.Coord `cbor:"buffer_size"`
	Window        console.Rect  `cbor:"window"`
	MaximumWindow console.Coord `cbor:"maximum_window"`
	Cursor        console.Coord `cbor:"cursor"`
}

// FromInfo extracts the geometry from a screen buffer sample.
func FromInfo(info console.ScreenBufferInfo) State {
	return State{
		BufferSize:    info.Size,
		Window:        info.Window,
		MaximumWindow: info.MaximumWindowSize,
		Cursor:        info.CursorPosition,
	}
}

// Valid reports whether the window lies inside the buffer and the
// cursor inside the buffer.
func (s State) Valid() bool {
	return s.Window.Within(s.BufferSize) &&
		s.Cursor.X >= 0 && s.Cursor.Y >= 0 &&
		s.Cursor.X < s.BufferSize.X && s.Cursor.Y < s.BufferSize.Y
}

func (s State) String() string {
	return fmt.Sprintf("buffer %dx%d window %s cursor %s",
		s.BufferSize.X, s.BufferSize.Y, s.Window, s.Cursor)
}
