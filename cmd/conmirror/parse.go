// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strconv"
	"strings"

	"github.com/bureau-foundation/conmirror/cmd/conmirror/cli"
	"github.com/bureau-foundation/conmirror/console"
)

// parseCoord parses "x,y".
func parseCoord(text string) (console.Coord, error) {
	xText, yText, ok := strings.Cut(text, ",")
	if !ok {
		return console.Coord{}, cli.Validation("position %q: want x,y", text)
	}
	x, xErr := strconv.Atoi(strings.TrimSpace(xText))
	y, yErr := strconv.Atoi(strings.TrimSpace(yText))
	if xErr != nil || yErr != nil {
		return console.Coord{}, cli.Validation("position %q: want integer x,y", text)
	}
	return console.Coord{X: x, Y: y}, nil
}

// parseInts parses every argument as a signed integer.
func parseInts(names []string, args []string) ([]int, error) {
	if len(args) != len(names) {
		return nil, cli.Validation("want %d arguments (%s), got %d", len(names), strings.Join(names, ", "), len(args))
	}
	values := make([]int, len(args))
	for i, arg := range args {
		value, err := strconv.Atoi(arg)
		if err != nil {
			return nil, cli.Validation("%s %q is not an integer", names[i], arg)
		}
		values[i] = value
	}
	return values, nil
}

var virtualKeyNames = map[string]uint16{
	"shift":     console.VKShift,
	"control":   console.VKControl,
	"ctrl":      console.VKControl,
	"alt":       console.VKMenu,
	"menu":      console.VKMenu,
	"escape":    console.VKEscape,
	"enter":     console.VKReturn,
	"tab":       console.VKTab,
	"backspace": console.VKBack,
	"delete":    console.VKDelete,
	"up":        console.VKUp,
	"down":      console.VKDown,
	"left":      console.VKLeft,
	"right":     console.VKRight,
	"home":      console.VKHome,
	"end":       console.VKEnd,
	"pageup":    console.VKPrior,
	"pagedown":  console.VKNext,
}

// parseVirtualKey accepts a key name or a numeric code (decimal or 0x
// hex).
func parseVirtualKey(text string) (uint16, error) {
	if code, ok := virtualKeyNames[strings.ToLower(text)]; ok {
		return code, nil
	}
	code, err := strconv.ParseUint(text, 0, 16)
	if err != nil || code == 0 {
		return 0, cli.Validation("unknown virtual key %q", text)
	}
	return uint16(code), nil
}

var mouseButtonNames = map[string]uint32{
	"left":   console.MouseLeftButton,
	"right":  console.MouseRightButton,
	"middle": console.MouseMiddleButton,
	"4":      console.MouseButton4,
	"5":      console.MouseButton5,
}

var mouseFlagNames = map[string]uint32{
	"moved":  console.MouseMoved,
	"double": console.MouseDoubleClick,
	"wheel":  console.MouseWheeled,
	"hwheel": console.MouseHWheeled,
}

// parseBits ORs together the named bits of a comma-separated list.
func parseBits(kind string, names map[string]uint32, list []string) (uint32, error) {
	var bits uint32
	for _, name := range list {
		bit, ok := names[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, cli.Validation("unknown %s %q", kind, name)
		}
		bits |= bit
	}
	return bits, nil
}
