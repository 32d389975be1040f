// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"context"
	"errors"
)

var (
	// ErrInputQueueFull is returned by WriteInput when the records do
	// not fit in the console input queue. Nothing was written.
	ErrInputQueueFull = errors.New("console: input queue full")

	// ErrUnsupported is returned for operations a backend cannot
	// perform, such as mouse input on a pane without mouse support.
	ErrUnsupported = errors.New("console: operation not supported")

	// ErrInvalidGeometry is returned by SetBufferSize and SetWindow when
	// the result would leave the window outside the buffer or larger
	// than the largest possible window.
	ErrInvalidGeometry = errors.New("console: invalid geometry")
)

// Query reads console state. Every method may block; implementations
// honor ctx cancellation where the underlying mechanism allows it.
type Query interface {
	ScreenBufferInfo(ctx context.Context) (ScreenBufferInfo, error)
	CursorInfo(ctx context.Context) (CursorInfo, error)
	LargestWindowSize(ctx context.Context) (Coord, error)

	// ReadCells returns the cells inside area in row-major order.
	// area must lie inside the buffer.
	ReadCells(ctx context.Context, area Rect) ([]Cell, error)
}

// Control changes console state.
type Control interface {
	// WriteInput appends records to the input queue, all or nothing.
	WriteInput(ctx context.Context, records []InputRecord) error

	// SetBufferSize changes the buffer dimensions. It fails with
	// ErrInvalidGeometry when the current window would not fit.
	SetBufferSize(ctx context.Context, size Coord) error

	// SetWindow moves and resizes the window. It fails with
	// ErrInvalidGeometry when window does not lie inside the buffer.
	SetWindow(ctx context.Context, window Rect) error

	// SetCursorPosition moves the cursor inside the buffer.
	SetCursorPosition(ctx context.Context, position Coord) error
}

// Console is the full collaborator.
type Console interface {
	Query
	Control
}
