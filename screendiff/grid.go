// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package screendiff

import (
	"encoding/binary"
	"fmt"

	"github.com/bureau-foundation/conmirror/console"
)

// CellSize is the encoded size of one grid cell: a uint32 character, a
// uint16 attribute, and two reserved bytes, little endian.
const CellSize = 8

// PutCell encodes cell into dst[:CellSize].
func PutCell(dst []byte, cell console.Cell) {
	binary.LittleEndian.PutUint32(dst[0:], uint32(cell.Char))
	binary.LittleEndian.PutUint16(dst[4:], cell.Attr)
	dst[6], dst[7] = 0, 0
}

// GetCell decodes one cell from src[:CellSize].
func GetCell(src []byte) console.Cell {
	return console.Cell{
		Char: rune(binary.LittleEndian.Uint32(src[0:])),
		Attr: binary.LittleEndian.Uint16(src[4:]),
	}
}

// EncodeCells writes cells to dst back to back and returns the number
// of bytes written.
func EncodeCells(dst []byte, cells []console.Cell) int {
	for i, cell := range cells {
		PutCell(dst[i*CellSize:], cell)
	}
	return len(cells) * CellSize
}

// DecodeCells reads count cells from src into dst, reusing its storage.
func DecodeCells(dst []console.Cell, src []byte, count int) ([]console.Cell, error) {
	if len(src) < count*CellSize {
		return nil, fmt.Errorf("grid holds %d bytes, %d cells need %d", len(src), count, count*CellSize)
	}
	if cap(dst) < count {
		dst = make([]console.Cell, count)
	}
	dst = dst[:count]
	for i := range dst {
		dst[i] = GetCell(src[i*CellSize:])
	}
	return dst, nil
}

// PatchGrid writes the cells of rect, a read-area-relative rectangle,
// from snapshot into grid, a buffer holding the read area encoded with
// EncodeCells. It returns the number of bytes the read area occupies.
func PatchGrid(grid []byte, snapshot Snapshot, rect console.Rect) int {
	for row := rect.Top; row <= rect.Bottom; row++ {
		for column := rect.Left; column <= rect.Right; column++ {
			index := row*snapshot.Columns + column
			PutCell(grid[index*CellSize:], snapshot.Cells[index])
		}
	}
	return len(snapshot.Cells) * CellSize
}

// GridCells extracts the cells of a read-area-relative rectangle from
// an encoded grid whose rows are columns cells wide.
func GridCells(grid []byte, columns int, rect console.Rect) ([]console.Cell, error) {
	if rect.Empty() {
		return nil, nil
	}
	last := (rect.Bottom*columns + rect.Right + 1) * CellSize
	if last > len(grid) {
		return nil, fmt.Errorf("rectangle %s needs %d grid bytes, have %d", rect, last, len(grid))
	}
	cells := make([]console.Cell, 0, rect.Width()*rect.Height())
	for row := rect.Top; row <= rect.Bottom; row++ {
		for column := rect.Left; column <= rect.Right; column++ {
			cells = append(cells, GetCell(grid[(row*columns+column)*CellSize:]))
		}
	}
	return cells, nil
}
