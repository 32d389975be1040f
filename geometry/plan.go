// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package geometry

import "github.com/bureau-foundation/conmirror/console"

// ResizePlan is the sequence of console calls that takes a console
// from one geometry to another without passing through an invalid one.
type ResizePlan struct {
	// Intermediate is the window set before the buffer changes. It
	// fits both the current and the new buffer.
	Intermediate console.Rect

	// Buffer is the new buffer size.
	Buffer console.Coord

	// Final is the window set after the buffer changes.
	Final console.Rect

	// Cursor is the cursor position in the new buffer. MoveCursor is
	// set when the current cursor falls outside it.
	Cursor     console.Coord
	MoveCursor bool

	// Columns and Rows are the window size actually applied. Clamped
	// is set when they differ from the request.
	Columns int
	Rows    int
	Clamped bool
}

// Target returns the geometry the console has once the plan is applied.
func (p ResizePlan) Target(current State) State {
	return State{
		BufferSize:    p.Buffer,
		Window:        p.Final,
		MaximumWindow: current.MaximumWindow,
		Cursor:        p.Cursor,
	}
}

// Plan computes how to resize the window of a console in geometry
// current to columns x rows. largest is the largest window the console
// supports.
//
// The window is clamped to [limits.MinColumns, largest.X] by
// [limits.MinRows, largest.Y] and then to limits.MaxWindowCells cells.
// The buffer takes the window's width; its height never shrinks below
// the current height (keeping scrollback) but is capped by
// limits.MaxBufferRows. edge picks the side of the window that moves;
// the window is then shifted as little as possible to contain the
// cursor.
func Plan(current State, largest console.Coord, limits Limits, columns, rows int, edge Edge) ResizePlan {
	limits = limits.withDefaults()
	if largest.X <= 0 || largest.Y <= 0 {
		largest = console.Coord{X: max(columns, limits.MinColumns), Y: max(rows, limits.MinRows)}
	}

	appliedColumns := min(max(columns, limits.MinColumns), largest.X)
	appliedRows := min(max(rows, limits.MinRows), largest.Y, limits.MaxBufferRows)
	if appliedColumns*appliedRows > limits.MaxWindowCells {
		appliedRows = max(limits.MaxWindowCells/appliedColumns, 1)
		if appliedRows < limits.MinRows {
			appliedRows = min(limits.MinRows, largest.Y)
			appliedColumns = max(limits.MaxWindowCells/appliedRows, 1)
		}
	}

	buffer := console.Coord{
		X: appliedColumns,
		Y: max(min(max(appliedRows, current.BufferSize.Y), limits.MaxBufferRows), appliedRows),
	}

	cursor := console.Coord{
		X: min(max(current.Cursor.X, 0), buffer.X-1),
		Y: min(max(current.Cursor.Y, 0), buffer.Y-1),
	}

	left, right := place(current.Window.Left, current.Window.Right, appliedColumns, buffer.X, edge&EdgeLeft != 0)
	top, bottom := place(current.Window.Top, current.Window.Bottom, appliedRows, buffer.Y, edge&EdgeTop != 0)
	left, right = contain(left, right, cursor.X)
	top, bottom = contain(top, bottom, cursor.Y)

	final := console.Rect{Left: left, Top: top, Right: right, Bottom: bottom}
	return ResizePlan{
		Intermediate: intermediate(current.Window, final, buffer),
		Buffer:       buffer,
		Final:        final,
		Cursor:       cursor,
		MoveCursor:   cursor != current.Cursor,
		Columns:      appliedColumns,
		Rows:         appliedRows,
		Clamped:      appliedColumns != columns || appliedRows != rows,
	}
}

// place positions a span of size cells inside [0, limit). When
// moveStart is set the old end stays fixed and the start moves;
// otherwise the old start stays fixed.
func place(oldStart, oldEnd, size, limit int, moveStart bool) (start, end int) {
	start = oldStart
	if moveStart {
		start = oldEnd - size + 1
	}
	start = min(max(start, 0), limit-size)
	return start, start + size - 1
}

// contain shifts [start, end] by the least amount that includes
// position.
func contain(start, end, position int) (int, int) {
	switch {
	case position > end:
		shift := position - end
		return start + shift, end + shift
	case position < start:
		shift := start - position
		return start - shift, end - shift
	}
	return start, end
}

// intermediate returns the window to set before the buffer changes:
// the overlap of the current and final windows, which lies inside both
// the old and the new buffer. Without an overlap it falls back to the
// part of the current window inside the new buffer, and then to a
// window at the origin.
func intermediate(window, final console.Rect, buffer console.Coord) console.Rect {
	if overlap := intersect(window, final); !overlap.Empty() {
		return overlap
	}
	if clipped := intersect(window, console.RectAt(console.Coord{}, buffer)); !clipped.Empty() {
		return clipped
	}
	return console.RectAt(console.Coord{}, console.Coord{
		X: min(window.Width(), buffer.X),
		Y: min(window.Height(), buffer.Y),
	})
}

func intersect(a, b console.Rect) console.Rect {
	return console.Rect{
		Left:   max(a.Left, b.Left),
		Top:    max(a.Top, b.Top),
		Right:  min(a.Right, b.Right),
		Bottom: min(a.Bottom, b.Bottom),
	}
}
