// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package screendiff

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/bureau-foundation/conmirror/console"
)

// sample reads the simulated console's read area into a snapshot.
func sample(t *testing.T, target *console.Simulated) Snapshot {
	t.Helper()
	ctx := context.Background()
	info, err := target.ScreenBufferInfo(ctx)
	if err != nil {
		t.Fatalf("ScreenBufferInfo: %v", err)
	}
	cells, err := target.ReadCells(ctx, ReadArea(info))
	if err != nil {
		t.Fatalf("ReadCells: %v", err)
	}
	snapshot, err := NewSnapshot(info, cells)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	return snapshot
}

func newTarget() *console.Simulated {
	return console.NewSimulated(console.SimulatedOptions{
		BufferSize: console.Coord{X: 30, Y: 40},
		WindowSize: console.Coord{X: 30, Y: 12},
	})
}

func TestDiffFirstSampleIsFull(t *testing.T) {
	t.Parallel()

	snapshot := sample(t, newTarget())
	delta := Diff(nil, snapshot)
	if !delta.Full || !delta.NewData {
		t.Fatalf("first delta = %s, want full", delta)
	}
	if delta.Changed != snapshot.Area() {
		t.Errorf("Changed = %v, want whole read area %v", delta.Changed, snapshot.Area())
	}
}

func TestDiffUnchangedIsEmpty(t *testing.T) {
	t.Parallel()

	target := newTarget()
	first := sample(t, target)
	second := sample(t, target)
	if delta := Diff(&first, second); !delta.Empty() {
		t.Fatalf("delta between identical samples = %s, want empty", delta)
	}
}

func TestDiffBoundingRect(t *testing.T) {
	t.Parallel()

	target := newTarget()
	first := sample(t, target)
	target.WriteAt(console.Coord{X: 4, Y: 2}, "a", console.DefaultAttributes)
	target.WriteAt(console.Coord{X: 9, Y: 7}, "b", console.DefaultAttributes)
	target.WriteAt(console.Coord{X: 1, Y: 5}, "c", console.DefaultAttributes)
	second := sample(t, target)

	delta := Diff(&first, second)
	if delta.Full {
		t.Fatal("partial change reported as full")
	}
	want := console.Rect{Left: 1, Top: 2, Right: 9, Bottom: 7}
	if delta.Changed != want {
		t.Errorf("Changed = %v, want %v", delta.Changed, want)
	}
}

func TestDiffAttributeOnlyChange(t *testing.T) {
	t.Parallel()

	target := newTarget()
	first := sample(t, target)
	target.SetCell(console.Coord{X: 3, Y: 3}, console.Cell{Char: ' ', Attr: console.BackgroundBlue})
	second := sample(t, target)

	delta := Diff(&first, second)
	if delta.Changed != (console.Rect{Left: 3, Top: 3, Right: 3, Bottom: 3}) {
		t.Errorf("Changed = %v", delta.Changed)
	}
}

func TestDiffFullOnGeometryChange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	target := newTarget()
	first := sample(t, target)
	if err := target.SetWindow(ctx, console.RectAt(console.Coord{Y: 5}, console.Coord{X: 30, Y: 12})); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}
	second := sample(t, target)
	if delta := Diff(&first, second); !delta.Full {
		t.Errorf("read area moved, delta = %s, want full", delta)
	}
}

func TestDiffFullOnWrap(t *testing.T) {
	t.Parallel()

	target := newTarget()
	target.SetCursor(console.Coord{X: 0, Y: 8})
	first := sample(t, target)

	// A clear homes the cursor; positions no longer line up.
	target.Clear()
	second := sample(t, target)
	delta := Diff(&first, second)
	if !delta.Full {
		t.Errorf("cursor moved up, delta = %s, want full", delta)
	}
	if !delta.CursorMoved {
		t.Error("CursorMoved = false")
	}
}

func TestApplyIdempotent(t *testing.T) {
	t.Parallel()

	target := newTarget()
	first := sample(t, target)
	target.WriteAt(console.Coord{X: 2, Y: 1}, "hello", console.ForegroundGreen)
	second := sample(t, target)

	delta := Diff(&first, second)
	cells := second.Extract(delta.Changed)

	once := first.Clone()
	if err := Apply(&once, delta, cells); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	twice := once.Clone()
	if err := Apply(&twice, delta, cells); err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if !once.Equal(second) {
		t.Error("single apply does not reproduce the current snapshot")
	}
	if !twice.Equal(once) {
		t.Error("applying the delta twice changed the result")
	}
}

func TestApplyRejectsMismatch(t *testing.T) {
	t.Parallel()

	target := newTarget()
	first := sample(t, target)
	target.WriteAt(console.Coord{}, "x", console.DefaultAttributes)
	second := sample(t, target)
	delta := Diff(&first, second)

	other := Snapshot{Columns: 10, Rows: 10, ReadTop: 0, ReadBottom: 4, Cells: make([]console.Cell, 50)}
	if err := Apply(&other, delta, second.Extract(delta.Changed)); err == nil {
		t.Fatal("partial delta applied to a snapshot of different geometry")
	}
	if err := Apply(&first, delta, nil); err == nil {
		t.Fatal("Apply accepted the wrong number of cells")
	}
}

// Random writes to the console, each followed by a diff that the
// receiver applies to its copy. The copy must always equal the latest
// sample, cell for cell and by digest.
func TestRandomWritesReproduce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	random := rand.New(rand.NewPCG(7, 11))
	target := newTarget()

	var prev *Snapshot
	var mirror Snapshot
	for step := range 500 {
		switch random.IntN(10) {
		case 0:
			target.Print("line\n")
		case 1:
			window := console.RectAt(console.Coord{Y: random.IntN(28)}, console.Coord{X: 30, Y: 12})
			if err := target.SetWindow(ctx, window); err != nil {
				t.Fatalf("SetWindow: %v", err)
			}
		case 2:
			target.SetCursor(console.Coord{X: random.IntN(30), Y: random.IntN(40)})
		default:
			for range 1 + random.IntN(5) {
				position := console.Coord{X: random.IntN(30), Y: random.IntN(40)}
				cell := console.Cell{Char: rune('a' + random.IntN(26)), Attr: uint16(random.IntN(256))}
				target.SetCell(position, cell)
			}
		}

		current := sample(t, target)
		delta := Diff(prev, current)
		if err := Apply(&mirror, delta, current.Extract(delta.Changed)); err != nil {
			t.Fatalf("step %d: Apply %s: %v", step, delta, err)
		}
		if !mirror.Equal(current) {
			t.Fatalf("step %d: mirror diverged after %s", step, delta)
		}
		if Digest(mirror) != delta.Digest {
			t.Fatalf("step %d: digest mismatch after %s", step, delta)
		}
		prev = &current
	}
}
