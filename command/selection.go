// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/bureau-foundation/conmirror/console"
)

// Selection is the result of a Copy, published to copy-info.
type Selection struct {
	// Sequence matches the copy request it answers. The monitor
	// assigns it from the command region's sequence.
	Sequence uint64 `cbor:"sequence"`

	// Rect is the selection in buffer coordinates. In stream mode it
	// spans from the start row to the end row, full width.
	Rect  console.Rect `cbor:"rect"`
	Block bool         `cbor:"block"`

	// Cells holds the selected cells in reading order.
	Cells []console.Cell `cbor:"cells"`

	Text string `cbor:"text"`
}

func (t *Translator) copy(ctx context.Context, cmd Copy) (*Selection, error) {
	if cmd.NewLine > NewLineLF {
		return nil, fmt.Errorf("%w: unknown line ending %d", ErrRejected, cmd.NewLine)
	}
	info, err := t.target.ScreenBufferInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading window for copy: %w", err)
	}
	t.tracker.Observe(info)

	start, end := cmd.Start, cmd.End
	window := info.Window
	for _, position := range []console.Coord{start, end} {
		if position.X < 0 || position.Y < 0 || position.X >= window.Width() || position.Y >= window.Height() {
			return nil, fmt.Errorf("%w: copy position %s outside %dx%d window",
				ErrRejected, position, window.Width(), window.Height())
		}
	}
	if cmd.Block {
		start, end = console.Coord{X: min(start.X, end.X), Y: min(start.Y, end.Y)},
			console.Coord{X: max(start.X, end.X), Y: max(start.Y, end.Y)}
	} else if end.Y < start.Y || (end.Y == start.Y && end.X < start.X) {
		start, end = end, start
	}

	rows := console.Rect{
		Left:   0,
		Top:    window.Top + start.Y,
		Right:  info.Size.X - 1,
		Bottom: window.Top + end.Y,
	}
	cells, err := t.target.ReadCells(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("reading selection: %w", err)
	}

	selection := &Selection{Block: cmd.Block}
	if cmd.Block {
		selection.Rect = console.Rect{
			Left:   window.Left + start.X,
			Top:    rows.Top,
			Right:  window.Left + end.X,
			Bottom: rows.Bottom,
		}
	} else {
		selection.Rect = rows
	}

	var lines []string
	width := info.Size.X
	for row := range rows.Height() {
		first, last := 0, width-1
		switch {
		case cmd.Block:
			first, last = selection.Rect.Left, selection.Rect.Right
		default:
			if row == 0 {
				first = window.Left + start.X
			}
			if row == rows.Height()-1 {
				last = window.Left + end.X
			}
		}
		segment := cells[row*width+first : row*width+last+1]
		selection.Cells = append(selection.Cells, segment...)
		lines = append(lines, lineText(segment, cmd.TrimSpaces))
	}
	selection.Text = strings.Join(lines, cmd.NewLine.String())
	return selection, nil
}

// lineText renders cells as text, skipping the zero cells that follow
// double-width characters.
func lineText(cells []console.Cell, trimSpaces bool) string {
	var builder strings.Builder
	for _, cell := range cells {
		if cell.Char != 0 {
			builder.WriteRune(cell.Char)
		}
	}
	if trimSpaces {
		return strings.TrimRight(builder.String(), " ")
	}
	return builder.String()
}
