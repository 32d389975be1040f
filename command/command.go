// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/conmirror/console"
	"github.com/bureau-foundation/conmirror/geometry"
	"github.com/bureau-foundation/conmirror/lib/codec"
	"github.com/bureau-foundation/conmirror/region"
)

// ErrRejected wraps every error caused by the content of a command
// rather than by the console.
var ErrRejected = errors.New("command rejected")

// Command is one controller instruction. The concrete types are
// Resize, Scroll, Paste, MouseEvent, KeyReset, and Copy.
type Command interface {
	// Kind returns the command region the command travels on.
	Kind() region.Kind
	isCommand()
}

// Resize asks for a new window size in character cells.
type Resize struct {
	Columns int           `cbor:"columns"`
	Rows    int           `cbor:"rows"`
	Edge    geometry.Edge `cbor:"edge"`
}

// Scroll moves the window by a number of columns and rows.
type Scroll struct {
	DeltaX int `cbor:"dx"`
	DeltaY int `cbor:"dy"`
}

// Paste types text into the console.
type Paste struct {
	Text string `cbor:"text"`
}

// MouseEvent is a mouse action at a controller-space position relative
// to the window's top-left corner.
type MouseEvent struct {
	Buttons     uint32 `cbor:"buttons"`
	X           int    `cbor:"x"`
	Y           int    `cbor:"y"`
	Flags       uint32 `cbor:"flags"`
	ControlKeys uint32 `cbor:"control_keys"`
}

// KeyReset sends Count down/up pairs for a virtual key, releasing a key
// the console believes is still held.
type KeyReset struct {
	VirtualKey uint16 `cbor:"virtual_key"`
	Count      int    `cbor:"count"`
}

// NewLine selects the line ending of copied text.
type NewLine uint8

const (
	NewLineCRLF NewLine = iota
	NewLineLF
)

func (n NewLine) String() string {
	if n == NewLineLF {
		return "\n"
	}
	return "\r\n"
}

// Copy captures text between two window-relative positions. In block
// mode the positions are opposite corners of a rectangle; otherwise the
// selection runs in reading order from Start to End.
type Copy struct {
	Start      console.Coord `cbor:"start"`
	End        console.Coord `cbor:"end"`
	Block      bool          `cbor:"block"`
	TrimSpaces bool          `cbor:"trim_spaces"`
	NewLine    NewLine       `cbor:"new_line"`
}

func (Resize) Kind() region.Kind     { return region.KindNewSize }
func (Scroll) Kind() region.Kind     { return region.KindNewScrollPos }
func (Paste) Kind() region.Kind      { return region.KindPasteInfo }
func (MouseEvent) Kind() region.Kind { return region.KindMouseEvent }
func (KeyReset) Kind() region.Kind   { return region.KindKeyReset }
func (Copy) Kind() region.Kind       { return region.KindCopyRequest }

func (Resize) isCommand()     {}
func (Scroll) isCommand()     {}
func (Paste) isCommand()      {}
func (MouseEvent) isCommand() {}
func (KeyReset) isCommand()   {}
func (Copy) isCommand()       {}

// Kinds lists the command regions in the order the monitor polls them.
var Kinds = []region.Kind{
	region.KindNewSize,
	region.KindNewScrollPos,
	region.KindPasteInfo,
	region.KindMouseEvent,
	region.KindKeyReset,
	region.KindCopyRequest,
}

// Encode serializes cmd for its command region. Paste text is the only
// payload large enough to benefit from compression.
func Encode(cmd Command) ([]byte, error) {
	compression := codec.CompressionNone
	if _, ok := cmd.(Paste); ok {
		compression = codec.CompressionZstd
	}
	payload, err := codec.Encode(cmd, compression)
	if err != nil {
		return nil, fmt.Errorf("encoding %s command: %w", cmd.Kind(), err)
	}
	return payload, nil
}

// Decode parses the payload of a command region of the given kind.
func Decode(kind region.Kind, payload []byte) (Command, error) {
	var (
		cmd Command
		err error
	)
	switch kind {
	case region.KindNewSize:
		cmd, err = decodeAs[Resize](payload)
	case region.KindNewScrollPos:
		cmd, err = decodeAs[Scroll](payload)
	case region.KindPasteInfo:
		cmd, err = decodeAs[Paste](payload)
	case region.KindMouseEvent:
		cmd, err = decodeAs[MouseEvent](payload)
	case region.KindKeyReset:
		cmd, err = decodeAs[KeyReset](payload)
	case region.KindCopyRequest:
		cmd, err = decodeAs[Copy](payload)
	default:
		return nil, fmt.Errorf("%w: %s is not a command region", ErrRejected, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrRejected, kind, err)
	}
	return cmd, nil
}

func decodeAs[T Command](payload []byte) (Command, error) {
	var value T
	if err := codec.Decode(payload, &value); err != nil {
		return nil, err
	}
	return value, nil
}
