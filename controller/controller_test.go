// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/bureau-foundation/conmirror/command"
	"github.com/bureau-foundation/conmirror/console"
	"github.com/bureau-foundation/conmirror/lib/clock"
	"github.com/bureau-foundation/conmirror/lib/codec"
	"github.com/bureau-foundation/conmirror/monitor"
	"github.com/bureau-foundation/conmirror/region"
	"github.com/bureau-foundation/conmirror/screendiff"
)

type fixture struct {
	store      *region.MemoryStore
	console    *console.Simulated
	monitor    *monitor.Monitor
	controller *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   region.NewMemoryStore(),
		console: console.NewSimulated(console.SimulatedOptions{}),
	}
	t.Cleanup(func() { f.store.Close() })

	m, err := monitor.New(monitor.Options{
		Session: monitor.SessionParams{SessionID: "ctl"},
		Store:   f.store,
		Console: f.console,
		Clock:   clock.Fake(time.Unix(1_700_000_000, 0)),
		Logger:  slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("monitor.New: %v", err)
	}
	f.monitor = m
	f.cycle(t)

	f.controller, err = Attach(f.store, "ctl")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	return f
}

func (f *fixture) cycle(t *testing.T) {
	t.Helper()
	if err := f.monitor.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
}

// expected samples the console directly, the way the monitor does.
func (f *fixture) expected(t *testing.T) screendiff.Snapshot {
	t.Helper()
	ctx := context.Background()
	info, err := f.console.ScreenBufferInfo(ctx)
	if err != nil {
		t.Fatalf("ScreenBufferInfo: %v", err)
	}
	cells, err := f.console.ReadCells(ctx, screendiff.ReadArea(info))
	if err != nil {
		t.Fatalf("ReadCells: %v", err)
	}
	snapshot, err := screendiff.NewSnapshot(info, cells)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	return snapshot
}

func (f *fixture) refresh(t *testing.T) (screendiff.Snapshot, screendiff.Delta) {
	t.Helper()
	snapshot, delta, err := f.controller.Refresh()
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return snapshot, delta
}

func TestAttachBeforeMonitor(t *testing.T) {
	t.Parallel()
	store := region.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	if _, err := Attach(store, "absent"); !errors.Is(err, region.ErrNotFound) {
		t.Errorf("Attach = %v, want ErrNotFound", err)
	}
	if _, err := Attach(store, "bad/session"); err == nil {
		t.Error("Attach accepted an invalid session id")
	}
}

func TestRefreshReproducesConsole(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	random := rand.New(rand.NewPCG(7, 11))

	snapshot, delta := f.refresh(t)
	if !delta.Full {
		t.Fatalf("first refresh delta = %s, want full", delta)
	}
	if !snapshot.Equal(f.expected(t)) {
		t.Fatal("first refresh does not match the console")
	}

	letters := []rune("abcxyz界 ")
	for step := range 200 {
		switch random.IntN(10) {
		case 0:
			f.console.Print("line\n")
		case 1:
			f.console.SetCursor(console.Coord{X: random.IntN(80), Y: random.IntN(25)})
		default:
			position := console.Coord{X: random.IntN(80), Y: random.IntN(25)}
			f.console.SetCell(position, console.Cell{
				Char: letters[random.IntN(len(letters))],
				Attr: uint16(random.IntN(16)),
			})
		}
		f.cycle(t)
		snapshot, _ = f.refresh(t)
		if !snapshot.Equal(f.expected(t)) {
			t.Fatalf("step %d: reconstruction diverged from the console", step)
		}
	}
}

func TestRefreshAfterMissedDeltas(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.refresh(t)

	f.console.WriteAt(console.Coord{X: 1, Y: 1}, "first", console.DefaultAttributes)
	f.cycle(t)
	f.console.WriteAt(console.Coord{X: 10, Y: 20}, "second", console.ForegroundRed)
	f.cycle(t)

	snapshot, delta := f.refresh(t)
	if delta.Sequence != 3 {
		t.Errorf("delta sequence = %d, want 3", delta.Sequence)
	}
	if !snapshot.Equal(f.expected(t)) {
		t.Error("reconstruction after a missed delta does not match the console")
	}

	again, _ := f.refresh(t)
	if !again.Equal(snapshot) {
		t.Error("refresh without a new delta changed the snapshot")
	}
}

func TestRefreshFollowsResize(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.refresh(t)

	if _, err := f.controller.Send(command.Resize{Columns: 60, Rows: 20}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	f.cycle(t)

	snapshot, delta := f.refresh(t)
	if !delta.Full || snapshot.Columns != 60 || snapshot.ReadRows() != 20 {
		t.Fatalf("after resize: delta %s, snapshot %d columns %d rows", delta, snapshot.Columns, snapshot.ReadRows())
	}
	if !snapshot.Equal(f.expected(t)) {
		t.Error("reconstruction after resize does not match the console")
	}
	params, err := f.controller.Params()
	if err != nil {
		t.Fatalf("Params: %v", err)
	}
	if params.Columns != 60 || params.Rows != 20 || params.State != monitor.StateStarting {
		t.Errorf("params = %+v", params)
	}
}

func TestRefreshDetectsDigestMismatch(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	handle, err := f.store.Lookup(region.Name("ctl", region.KindBufferInfo))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	payload, _, err := handle.Read(nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	var info monitor.BufferInfo
	if err := codec.Decode(payload, &info); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	info.Delta.Digest[0] ^= 0xff
	tampered, err := codec.Encode(info, codec.CompressionNone)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := handle.Publish(tampered); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if _, _, err := f.controller.Refresh(); !errors.Is(err, ErrDesync) {
		t.Errorf("Refresh = %v, want ErrDesync", err)
	}
	if _, ok := f.controller.Snapshot(); ok {
		t.Error("a mismatched reconstruction was kept")
	}
}

func TestSendRejectsWhileBusy(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	first, err := f.controller.Send(command.Paste{Text: "one"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := f.controller.Send(command.Paste{Text: "two"}); !errors.Is(err, region.ErrBusy) {
		t.Fatalf("second Send = %v, want ErrBusy", err)
	}
	if !f.controller.Pending(region.KindPasteInfo) {
		t.Error("paste not pending before the cycle")
	}

	f.cycle(t)
	if f.controller.Pending(region.KindPasteInfo) {
		t.Error("paste still pending after the cycle")
	}
	second, err := f.controller.Send(command.Paste{Text: "two"})
	if err != nil {
		t.Fatalf("Send after consume: %v", err)
	}
	if second != first+1 {
		t.Errorf("sequences %d then %d, want consecutive", first, second)
	}
	f.cycle(t)
	if records := f.console.TakeInput(); len(records) != 12 {
		t.Errorf("got %d input records, want 12", len(records))
	}
}

func TestCopyResult(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.console.WriteAt(console.Coord{X: 0, Y: 0}, "alpha   ", console.DefaultAttributes)
	f.console.WriteAt(console.Coord{X: 0, Y: 1}, "beta", console.DefaultAttributes)

	sequence, err := f.controller.Send(command.Copy{
		Start:      console.Coord{X: 0, Y: 0},
		End:        console.Coord{X: 7, Y: 1},
		Block:      true,
		TrimSpaces: true,
		NewLine:    command.NewLineLF,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, ok, err := f.controller.CopyResult(sequence); err != nil || ok {
		t.Fatalf("CopyResult before the cycle = ok %v, err %v", ok, err)
	}

	f.cycle(t)
	selection, ok, err := f.controller.CopyResult(sequence)
	if err != nil || !ok {
		t.Fatalf("CopyResult = ok %v, err %v", ok, err)
	}
	if selection.Text != "alpha\nbeta" {
		t.Errorf("selection text = %q, want %q", selection.Text, "alpha\nbeta")
	}
	if _, ok, _ := f.controller.CopyResult(sequence + 1); ok {
		t.Error("CopyResult matched a later sequence")
	}
}

func TestStateReaders(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.console.SetCursor(console.Coord{X: 4, Y: 2})
	f.cycle(t)

	info, err := f.controller.ScreenInfo()
	if err != nil {
		t.Fatalf("ScreenInfo: %v", err)
	}
	if info.CursorPosition != (console.Coord{X: 4, Y: 2}) {
		t.Errorf("screen info cursor = %s", info.CursorPosition)
	}
	cursor, err := f.controller.Cursor()
	if err != nil {
		t.Fatalf("Cursor: %v", err)
	}
	if cursor.Position != (console.Coord{X: 4, Y: 2}) || !cursor.Visible {
		t.Errorf("cursor = %+v", cursor)
	}
}
