// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"context"
	"errors"
	"testing"
)

func TestRect(t *testing.T) {
	t.Parallel()

	r := RectAt(Coord{X: 2, Y: 3}, Coord{X: 10, Y: 4})
	if r != (Rect{Left: 2, Top: 3, Right: 11, Bottom: 6}) {
		t.Fatalf("RectAt = %v", r)
	}
	if r.Width() != 10 || r.Height() != 4 {
		t.Errorf("size = %v", r.Size())
	}
	if !r.Contains(Coord{X: 11, Y: 6}) || r.Contains(Coord{X: 12, Y: 6}) {
		t.Error("Contains is not inclusive on the bottom-right corner")
	}
	if !r.Within(Coord{X: 12, Y: 7}) || r.Within(Coord{X: 11, Y: 7}) {
		t.Error("Within does not match buffer bounds")
	}
	if !(Rect{Left: 5, Right: 4}).Empty() {
		t.Error("inverted rect is not empty")
	}
}

func TestSimulatedReadCells(t *testing.T) {
	t.Parallel()

	console := NewSimulated(SimulatedOptions{BufferSize: Coord{X: 10, Y: 5}, WindowSize: Coord{X: 10, Y: 3}})
	console.WriteAt(Coord{X: 8, Y: 1}, "ab", ForegroundRed)
	console.WriteAt(Coord{X: 8, Y: 2}, "cd", ForegroundRed)

	cells, err := console.ReadCells(context.Background(), Rect{Left: 7, Top: 1, Right: 9, Bottom: 2})
	if err != nil {
		t.Fatalf("ReadCells: %v", err)
	}
	want := []rune{' ', 'a', 'b', ' ', 'c', 'd'}
	if len(cells) != len(want) {
		t.Fatalf("got %d cells, want %d", len(cells), len(want))
	}
	for i, char := range want {
		if cells[i].Char != char {
			t.Errorf("cell %d = %q, want %q", i, cells[i].Char, char)
		}
	}
	if cells[1].Attr != ForegroundRed {
		t.Errorf("attr = %#x, want %#x", cells[1].Attr, ForegroundRed)
	}

	// Text past the last column continues on the next row.
	console.WriteAt(Coord{X: 9, Y: 3}, "yz", ForegroundRed)
	wrapped, err := console.ReadCells(context.Background(), Rect{Left: 0, Top: 4, Right: 0, Bottom: 4})
	if err != nil {
		t.Fatalf("ReadCells: %v", err)
	}
	if wrapped[0].Char != 'z' {
		t.Errorf("wrapped cell = %q, want 'z'", wrapped[0].Char)
	}

	if _, err := console.ReadCells(context.Background(), Rect{Left: 0, Top: 4, Right: 9, Bottom: 5}); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("out of range read error = %v, want ErrInvalidGeometry", err)
	}
}

func TestSimulatedGeometryRules(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	console := NewSimulated(SimulatedOptions{
		BufferSize:    Coord{X: 80, Y: 100},
		WindowSize:    Coord{X: 80, Y: 25},
		LargestWindow: Coord{X: 120, Y: 50},
	})

	// Shrinking the buffer below the window fails.
	if err := console.SetBufferSize(ctx, Coord{X: 60, Y: 100}); !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("SetBufferSize below window error = %v, want ErrInvalidGeometry", err)
	}
	// Growing the window past the buffer fails.
	if err := console.SetWindow(ctx, RectAt(Coord{}, Coord{X: 100, Y: 25})); !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("SetWindow past buffer error = %v, want ErrInvalidGeometry", err)
	}
	// Growing past the largest window fails even with room in the buffer.
	if err := console.SetWindow(ctx, RectAt(Coord{}, Coord{X: 80, Y: 60})); !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("SetWindow past largest error = %v, want ErrInvalidGeometry", err)
	}

	// Shrink the window first, then the buffer.
	if err := console.SetWindow(ctx, RectAt(Coord{}, Coord{X: 60, Y: 20})); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}
	if err := console.SetBufferSize(ctx, Coord{X: 60, Y: 100}); err != nil {
		t.Fatalf("SetBufferSize: %v", err)
	}

	info, err := console.ScreenBufferInfo(ctx)
	if err != nil {
		t.Fatalf("ScreenBufferInfo: %v", err)
	}
	if info.Size != (Coord{X: 60, Y: 100}) || info.Window.Size() != (Coord{X: 60, Y: 20}) {
		t.Errorf("geometry = %v %v", info.Size, info.Window)
	}
	calls := console.Calls()
	if len(calls) != 5 {
		t.Errorf("calls = %v, want 5 entries", calls)
	}
}

func TestSimulatedPrintScrolls(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	console := NewSimulated(SimulatedOptions{BufferSize: Coord{X: 4, Y: 3}, WindowSize: Coord{X: 4, Y: 2}})

	console.Print("a\nb\n")
	info, _ := console.ScreenBufferInfo(ctx)
	if info.CursorPosition != (Coord{X: 0, Y: 2}) {
		t.Fatalf("cursor = %v, want (0,2)", info.CursorPosition)
	}
	if info.Window.Top != 1 {
		t.Errorf("window top = %d, want 1 (window follows cursor)", info.Window.Top)
	}

	// The buffer is full; the next newline drops row 0.
	console.Print("c\n")
	cells, err := console.ReadCells(ctx, Rect{Left: 0, Top: 0, Right: 0, Bottom: 2})
	if err != nil {
		t.Fatalf("ReadCells: %v", err)
	}
	if cells[0].Char != 'b' || cells[1].Char != 'c' || cells[2].Char != ' ' {
		t.Errorf("column 0 = %q%q%q, want \"bc \"", cells[0].Char, cells[1].Char, cells[2].Char)
	}
}

func TestSimulatedInputQueue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	console := NewSimulated(SimulatedOptions{InputCapacity: 3})

	if err := console.WriteInput(ctx, []InputRecord{KeyRecord(true, 0, 'a'), KeyRecord(false, 0, 'a')}); err != nil {
		t.Fatalf("WriteInput: %v", err)
	}
	err := console.WriteInput(ctx, []InputRecord{KeyRecord(true, 0, 'b'), KeyRecord(false, 0, 'b')})
	if !errors.Is(err, ErrInputQueueFull) {
		t.Fatalf("overflowing WriteInput error = %v, want ErrInputQueueFull", err)
	}
	records := console.TakeInput()
	if len(records) != 2 {
		t.Fatalf("queue holds %d records, want 2 (overflow writes nothing)", len(records))
	}
	if len(console.TakeInput()) != 0 {
		t.Error("TakeInput did not drain the queue")
	}
}

func TestSimulatedQueryHook(t *testing.T) {
	t.Parallel()

	console := NewSimulated(SimulatedOptions{})
	failure := errors.New("console detached")
	console.SetQueryHook(func(context.Context) error { return failure })

	if _, err := console.CursorInfo(context.Background()); !errors.Is(err, failure) {
		t.Fatalf("CursorInfo error = %v, want hook error", err)
	}
	console.SetQueryHook(nil)
	if _, err := console.CursorInfo(context.Background()); err != nil {
		t.Fatalf("CursorInfo after removing hook: %v", err)
	}
}
