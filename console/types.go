// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package console

import "fmt"

// Coord is a column/row position or a width/height pair.
type Coord struct {
	X int `cbor:"x"`
	Y int `cbor:"y"`
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// Rect is an inclusive rectangle of cells.
type Rect struct {
	Left   int `cbor:"left"`
	Top    int `cbor:"top"`
	Right  int `cbor:"right"`
	Bottom int `cbor:"bottom"`
}

// RectAt returns the rectangle of the given size with its top-left
// corner at origin.
func RectAt(origin Coord, size Coord) Rect {
	return Rect{
		Left:   origin.X,
		Top:    origin.Y,
		Right:  origin.X + size.X - 1,
		Bottom: origin.Y + size.Y - 1,
	}
}

// Width returns the number of columns, zero for an inverted rectangle.
func (r Rect) Width() int { return max(r.Right-r.Left+1, 0) }

// Height returns the number of rows, zero for an inverted rectangle.
func (r Rect) Height() int { return max(r.Bottom-r.Top+1, 0) }

// Size returns Width and Height as a Coord.
func (r Rect) Size() Coord { return Coord{X: r.Width(), Y: r.Height()} }

// Origin returns the top-left corner.
func (r Rect) Origin() Coord { return Coord{X: r.Left, Y: r.Top} }

// Empty reports whether the rectangle covers no cells.
func (r Rect) Empty() bool { return r.Width() == 0 || r.Height() == 0 }

// Contains reports whether c lies inside the rectangle.
func (r Rect) Contains(c Coord) bool {
	return c.X >= r.Left && c.X <= r.Right && c.Y >= r.Top && c.Y <= r.Bottom
}

// Within reports whether r lies entirely inside a buffer of the given
// size.
func (r Rect) Within(size Coord) bool {
	return !r.Empty() && r.Left >= 0 && r.Top >= 0 && r.Right < size.X && r.Bottom < size.Y
}

func (r Rect) String() string {
	return fmt.Sprintf("[%d,%d..%d,%d]", r.Left, r.Top, r.Right, r.Bottom)
}

// Cell is one character position in the screen buffer.
type Cell struct {
	Char rune
	Attr uint16
}

// Character attribute bits. The low nibble is the foreground color, the
// next nibble the background color.
const (
	ForegroundBlue      uint16 = 0x0001
	ForegroundGreen     uint16 = 0x0002
	ForegroundRed       uint16 = 0x0004
	ForegroundIntensity uint16 = 0x0008
	BackgroundBlue      uint16 = 0x0010
	BackgroundGreen     uint16 = 0x0020
	BackgroundRed       uint16 = 0x0040
	BackgroundIntensity uint16 = 0x0080

	// DefaultAttributes is light gray on black.
	DefaultAttributes = ForegroundRed | ForegroundGreen | ForegroundBlue
)

// Blank returns the cell used to fill cleared buffer space.
func Blank(attr uint16) Cell { return Cell{Char: ' ', Attr: attr} }

// ScreenBufferInfo describes the buffer geometry at one instant.
type ScreenBufferInfo struct {
	Size              Coord  `cbor:"size"`
	CursorPosition    Coord  `cbor:"cursor"`
	Attributes        uint16 `cbor:"attributes"`
	Window            Rect   `cbor:"window"`
	MaximumWindowSize Coord  `cbor:"maximum_window"`
}

// CursorInfo describes the cursor. Size is the percentage of the cell
// the cursor fills, 1 through 100.
type CursorInfo struct {
	Position Coord `cbor:"position"`
	Size     int   `cbor:"size"`
	Visible  bool  `cbor:"visible"`
}

// Virtual key codes used by the command translator.
const (
	VKBack    uint16 = 0x08
	VKTab     uint16 = 0x09
	VKReturn  uint16 = 0x0D
	VKShift   uint16 = 0x10
	VKControl uint16 = 0x11
	VKMenu    uint16 = 0x12
	VKEscape  uint16 = 0x1B
	VKSpace   uint16 = 0x20
	VKPrior   uint16 = 0x21
	VKNext    uint16 = 0x22
	VKEnd     uint16 = 0x23
	VKHome    uint16 = 0x24
	VKLeft    uint16 = 0x25
	VKUp      uint16 = 0x26
	VKRight   uint16 = 0x27
	VKDown    uint16 = 0x28
	VKDelete  uint16 = 0x2E
)

// Mouse button state bits.
const (
	MouseLeftButton   uint32 = 0x0001
	MouseRightButton  uint32 = 0x0002
	MouseMiddleButton uint32 = 0x0004
	MouseButton4      uint32 = 0x0008
	MouseButton5      uint32 = 0x0010
)

// Mouse event flags. Zero means a button press or release.
const (
	MouseMoved       uint32 = 0x0001
	MouseDoubleClick uint32 = 0x0002
	MouseWheeled     uint32 = 0x0004
	MouseHWheeled    uint32 = 0x0008
)

const mouseKnownFlags = MouseMoved | MouseDoubleClick | MouseWheeled | MouseHWheeled

// ValidMouseFlags reports whether flags only carries known bits.
func ValidMouseFlags(flags uint32) bool { return flags&^mouseKnownFlags == 0 }

// EventKind discriminates InputRecord.
type EventKind uint8

const (
	KeyEventKind EventKind = iota + 1
	MouseEventKind
)

// KeyEvent is one key transition.
type KeyEvent struct {
	Down        bool
	RepeatCount uint16
	VirtualKey  uint16
	Char        rune
	ControlKeys uint32
}

// MouseEvent is one mouse action at a buffer position.
type MouseEvent struct {
	Position    Coord
	Buttons     uint32
	ControlKeys uint32
	Flags       uint32
}

// InputRecord is one entry of the console input queue.
type InputRecord struct {
	Kind  EventKind
	Key   KeyEvent
	Mouse MouseEvent
}

// KeyRecord returns a key input record.
func KeyRecord(down bool, virtualKey uint16, char rune) InputRecord {
	return InputRecord{
		Kind: KeyEventKind,
		Key: KeyEvent{
			Down:        down,
			RepeatCount: 1,
			VirtualKey:  virtualKey,
			Char:        char,
		},
	}
}

// MouseRecord returns a mouse input record.
func MouseRecord(event MouseEvent) InputRecord {
	return InputRecord{Kind: MouseEventKind, Mouse: event}
}
