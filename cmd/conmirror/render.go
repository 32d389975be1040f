// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/conmirror/console"
	"github.com/bureau-foundation/conmirror/screendiff"
)

// renderOptions control how a snapshot is turned into terminal lines.
type renderOptions struct {
	// Color emits SGR sequences for the cell attributes.
	Color bool

	// Width truncates every line to this many columns. Zero disables
	// truncation.
	Width int
}

// renderSnapshot returns the read area of snapshot, one string per row.
func renderSnapshot(snapshot screendiff.Snapshot, options renderOptions) []string {
	if !options.Color {
		lines := snapshot.Text()
		if options.Width > 0 {
			for i, line := range lines {
				lines[i] = ansi.Truncate(line, options.Width, "")
			}
		}
		return lines
	}

	lines := make([]string, snapshot.ReadRows())
	var builder strings.Builder
	for row := range lines {
		builder.Reset()
		current := -1
		for column := range snapshot.Columns {
			cell := snapshot.Cell(column, row)
			if cell.Char == 0 {
				continue
			}
			if int(cell.Attr) != current {
				current = int(cell.Attr)
				builder.WriteString(attributeSequence(cell.Attr))
			}
			builder.WriteRune(cell.Char)
		}
		builder.WriteString(ansi.ResetStyle)
		line := builder.String()
		if options.Width > 0 && ansi.StringWidth(line) > options.Width {
			line = ansi.Truncate(line, options.Width, "") + ansi.ResetStyle
		}
		lines[row] = line
	}
	return lines
}

// attributeSequence returns the SGR sequence selecting the colors of a
// console attribute word.
func attributeSequence(attr uint16) string {
	foreground := ansiColor(attr & 0x7)
	if attr&console.ForegroundIntensity != 0 {
		foreground += 90
	} else {
		foreground += 30
	}
	background := ansiColor((attr >> 4) & 0x7)
	if attr&console.BackgroundIntensity != 0 {
		background += 100
	} else {
		background += 40
	}
	return "\x1b[0;" + strconv.Itoa(foreground) + ";" + strconv.Itoa(background) + "m"
}

// ansiColor maps the blue/green/red bit order of console attributes to
// the red/green/blue order of ANSI color indexes.
func ansiColor(bits uint16) int {
	var index int
	if bits&console.ForegroundBlue != 0 {
		index |= 4
	}
	if bits&console.ForegroundGreen != 0 {
		index |= 2
	}
	if bits&console.ForegroundRed != 0 {
		index |= 1
	}
	return index
}
