// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package screendiff

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bureau-foundation/conmirror/console"
)

// ErrMismatch is returned by Apply when a partial delta does not match
// the geometry of the snapshot it is applied to.
var ErrMismatch = errors.New("screendiff: delta does not match snapshot geometry")

// Snapshot is one sample of a console's read area.
type Snapshot struct {
	// Columns and Rows are the buffer dimensions.
	Columns int `cbor:"columns"`
	Rows    int `cbor:"rows"`

	// ReadTop and ReadBottom are the buffer rows of the read area,
	// inclusive.
	ReadTop    int `cbor:"read_top"`
	ReadBottom int `cbor:"read_bottom"`

	// ReadStart is the linear buffer index of the first read area cell.
	ReadStart int `cbor:"read_start"`

	// NewDataEnd is the linear buffer index one past the last
	// non-blank cell of the read area, or ReadStart if it is blank.
	NewDataEnd int `cbor:"new_data_end"`

	Cursor console.Coord `cbor:"cursor"`

	// Cells is the read area, row-major, Columns cells per row.
	Cells []console.Cell `cbor:"-"`
}

// ReadArea returns the buffer rectangle the snapshot covers.
func ReadArea(info console.ScreenBufferInfo) console.Rect {
	return console.Rect{
		Left:   0,
		Top:    info.Window.Top,
		Right:  info.Size.X - 1,
		Bottom: info.Window.Bottom,
	}
}

// NewSnapshot builds a snapshot from a screen buffer sample and the
// cells of its ReadArea.
func NewSnapshot(info console.ScreenBufferInfo, cells []console.Cell) (Snapshot, error) {
	area := ReadArea(info)
	if want := area.Width() * area.Height(); len(cells) != want {
		return Snapshot{}, fmt.Errorf("read area %s needs %d cells, got %d", area, want, len(cells))
	}
	snapshot := Snapshot{
		Columns:    info.Size.X,
		Rows:       info.Size.Y,
		ReadTop:    area.Top,
		ReadBottom: area.Bottom,
		ReadStart:  area.Top * info.Size.X,
		Cursor:     info.CursorPosition,
		Cells:      cells,
	}
	snapshot.NewDataEnd = snapshot.dataEnd()
	return snapshot, nil
}

func (s Snapshot) dataEnd() int {
	for i := len(s.Cells) - 1; i >= 0; i-- {
		if s.Cells[i].Char != ' ' && s.Cells[i].Char != 0 {
			return s.ReadStart + i + 1
		}
	}
	return s.ReadStart
}

// ReadRows returns the number of rows in the read area.
func (s Snapshot) ReadRows() int { return s.ReadBottom - s.ReadTop + 1 }

// CursorIndex returns the cursor's linear buffer index.
func (s Snapshot) CursorIndex() int { return s.Cursor.Y*s.Columns + s.Cursor.X }

// Cell returns the cell at a read-area-relative position.
func (s Snapshot) Cell(column, row int) console.Cell {
	return s.Cells[row*s.Columns+column]
}

// Area returns the read area as a rectangle relative to itself:
// column 0 through Columns-1, row 0 through ReadRows-1.
func (s Snapshot) Area() console.Rect {
	return console.Rect{Left: 0, Top: 0, Right: s.Columns - 1, Bottom: s.ReadRows() - 1}
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	s.Cells = slices.Clone(s.Cells)
	return s
}

// Equal reports whether two snapshots have the same geometry, cursor,
// and cells.
func (s Snapshot) Equal(other Snapshot) bool {
	return s.sameGeometry(other) && s.Cursor == other.Cursor &&
		s.NewDataEnd == other.NewDataEnd && slices.Equal(s.Cells, other.Cells)
}

func (s Snapshot) sameGeometry(other Snapshot) bool {
	return s.Columns == other.Columns && s.Rows == other.Rows &&
		s.ReadTop == other.ReadTop && s.ReadBottom == other.ReadBottom
}

// Extract returns the cells of a read-area-relative rectangle,
// row-major.
func (s Snapshot) Extract(rect console.Rect) []console.Cell {
	cells := make([]console.Cell, 0, rect.Width()*rect.Height())
	for row := rect.Top; row <= rect.Bottom; row++ {
		start := row*s.Columns + rect.Left
		cells = append(cells, s.Cells[start:start+rect.Width()]...)
	}
	return cells
}

// Text returns the read area as lines with trailing blanks removed.
// Zero cells (continuations of double-width characters) are skipped.
func (s Snapshot) Text() []string {
	lines := make([]string, s.ReadRows())
	for row := range lines {
		runes := make([]rune, 0, s.Columns)
		for column := range s.Columns {
			if char := s.Cell(column, row).Char; char != 0 {
				runes = append(runes, char)
			}
		}
		end := len(runes)
		for end > 0 && runes[end-1] == ' ' {
			end--
		}
		lines[row] = string(runes[:end])
	}
	return lines
}
