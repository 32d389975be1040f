// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package screendiff

import (
	"fmt"

	"github.com/bureau-foundation/conmirror/console"
)

// Delta describes how to get from one snapshot to the next.
type Delta struct {
	// Sequence numbers published deltas. Diff leaves it zero; the
	// publisher assigns it.
	Sequence uint64 `cbor:"sequence"`

	// Full means every cell of the read area is new and the receiver
	// must discard what it has.
	Full bool `cbor:"full"`

	// Changed is the read-area-relative bounding rectangle of changed
	// cells. It is empty when no cell changed and covers the whole read
	// area when Full is set.
	Changed console.Rect `cbor:"changed"`

	Columns    int           `cbor:"columns"`
	Rows       int           `cbor:"rows"`
	ReadTop    int           `cbor:"read_top"`
	ReadBottom int           `cbor:"read_bottom"`
	ReadStart  int           `cbor:"read_start"`
	NewDataEnd int           `cbor:"new_data_end"`
	Cursor     console.Coord `cbor:"cursor"`

	// NewData is set when any cell changed. CursorMoved is set when the
	// cursor differs from the previous snapshot.
	NewData     bool `cbor:"new_data"`
	CursorMoved bool `cbor:"cursor_moved"`

	// Digest is the BLAKE3 digest of the snapshot the delta produces.
	Digest [32]byte `cbor:"digest"`
}

// Empty reports whether the delta carries nothing to publish.
func (d Delta) Empty() bool {
	return !d.Full && !d.NewData && !d.CursorMoved
}

func (d Delta) String() string {
	if d.Full {
		return fmt.Sprintf("full %dx%d rows %d..%d", d.Columns, d.Rows, d.ReadTop, d.ReadBottom)
	}
	return fmt.Sprintf("partial %s cursor %s", d.Changed, d.Cursor)
}

var noChange = console.Rect{Left: 0, Top: 0, Right: -1, Bottom: -1}

// Diff compares the current snapshot with the previous one. prev is nil
// on the first sample.
//
// The result is a full resend when prev is nil, when the buffer
// dimensions or read area differ, or when the cursor row moved up,
// which means content scrolled out of the buffer or the screen was
// cleared and matching linear positions no longer hold the same text.
// Otherwise Changed bounds every position whose character or attribute
// differs.
func Diff(prev *Snapshot, cur Snapshot) Delta {
	delta := Delta{
		Columns:    cur.Columns,
		Rows:       cur.Rows,
		ReadTop:    cur.ReadTop,
		ReadBottom: cur.ReadBottom,
		ReadStart:  cur.ReadStart,
		NewDataEnd: cur.NewDataEnd,
		Cursor:     cur.Cursor,
		Changed:    noChange,
		Digest:     Digest(cur),
	}

	if prev == nil || !prev.sameGeometry(cur) || cur.Cursor.Y < prev.Cursor.Y {
		delta.Full = true
		delta.NewData = true
		delta.CursorMoved = prev == nil || prev.Cursor != cur.Cursor
		delta.Changed = cur.Area()
		return delta
	}

	delta.CursorMoved = prev.Cursor != cur.Cursor
	delta.Changed = bounds(prev.Cells, cur.Cells, cur.Columns)
	delta.NewData = !delta.Changed.Empty()
	return delta
}

// ForceFull turns a delta into a full resend of cur.
func ForceFull(delta Delta, cur Snapshot) Delta {
	delta.Full = true
	delta.NewData = true
	delta.Changed = cur.Area()
	return delta
}

// bounds returns the bounding rectangle of positions where a and b
// differ. a and b have the same length and row width.
func bounds(a, b []console.Cell, columns int) console.Rect {
	rect := noChange
	found := false
	for i := range b {
		if a[i] == b[i] {
			continue
		}
		column, row := i%columns, i/columns
		if !found {
			rect = console.Rect{Left: column, Top: row, Right: column, Bottom: row}
			found = true
			continue
		}
		rect.Left = min(rect.Left, column)
		rect.Right = max(rect.Right, column)
		rect.Bottom = row
	}
	return rect
}

// Apply patches snapshot with delta. cells holds the cells of
// delta.Changed, row-major. A full delta replaces the snapshot
// entirely; a partial delta requires the snapshot to have the delta's
// geometry.
func Apply(snapshot *Snapshot, delta Delta, cells []console.Cell) error {
	if want := delta.Changed.Width() * delta.Changed.Height(); len(cells) != want {
		return fmt.Errorf("delta %s needs %d cells, got %d", delta.Changed, want, len(cells))
	}

	if delta.Full {
		readRows := delta.ReadBottom - delta.ReadTop + 1
		if delta.Changed != (console.Rect{Left: 0, Top: 0, Right: delta.Columns - 1, Bottom: readRows - 1}) {
			return fmt.Errorf("full delta changed area %s does not cover %dx%d", delta.Changed, delta.Columns, readRows)
		}
		*snapshot = Snapshot{
			Columns:    delta.Columns,
			Rows:       delta.Rows,
			ReadTop:    delta.ReadTop,
			ReadBottom: delta.ReadBottom,
			ReadStart:  delta.ReadStart,
			NewDataEnd: delta.NewDataEnd,
			Cursor:     delta.Cursor,
			Cells:      append([]console.Cell(nil), cells...),
		}
		return nil
	}

	if snapshot.Columns != delta.Columns || snapshot.Rows != delta.Rows ||
		snapshot.ReadTop != delta.ReadTop || snapshot.ReadBottom != delta.ReadBottom {
		return fmt.Errorf("%w: snapshot %dx%d rows %d..%d, delta %s",
			ErrMismatch, snapshot.Columns, snapshot.Rows, snapshot.ReadTop, snapshot.ReadBottom, delta)
	}
	if !delta.Changed.Empty() {
		if delta.Changed.Left < 0 || delta.Changed.Top < 0 ||
			delta.Changed.Right >= snapshot.Columns || delta.Changed.Bottom >= snapshot.ReadRows() {
			return fmt.Errorf("%w: changed area %s outside read area", ErrMismatch, delta.Changed)
		}
		width := delta.Changed.Width()
		for row := delta.Changed.Top; row <= delta.Changed.Bottom; row++ {
			start := row*snapshot.Columns + delta.Changed.Left
			copy(snapshot.Cells[start:start+width], cells[(row-delta.Changed.Top)*width:])
		}
	}
	snapshot.Cursor = delta.Cursor
	snapshot.NewDataEnd = delta.NewDataEnd
	snapshot.ReadStart = delta.ReadStart
	return nil
}
