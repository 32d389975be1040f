// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"context"
	"fmt"
	"sync"
)

// SimulatedOptions configures NewSimulated. Zero fields take the
// defaults noted on each.
type SimulatedOptions struct {
	// BufferSize defaults to 80x300.
	BufferSize Coord
	// WindowSize defaults to 80x25. The window starts at the origin.
	WindowSize Coord
	// LargestWindow defaults to 200x100.
	LargestWindow Coord
	// InputCapacity is the input queue length, default 4096.
	InputCapacity int
	// Attributes fills blank cells, default DefaultAttributes.
	Attributes uint16
}

// Simulated is an in-memory Console. All methods are safe for
// concurrent use.
type Simulated struct {
	mutex sync.Mutex

	size       Coord
	cells      []Cell
	window     Rect
	largest    Coord
	cursor     Coord
	cursorSize int
	visible    bool
	attributes uint16

	input         []InputRecord
	inputCapacity int

	queryHook func(ctx context.Context) error
	calls     []string
}

// NewSimulated returns a console filled with blanks.
func NewSimulated(options SimulatedOptions) *Simulated {
	if options.BufferSize == (Coord{}) {
		options.BufferSize = Coord{X: 80, Y: 300}
	}
	if options.WindowSize == (Coord{}) {
		options.WindowSize = Coord{X: 80, Y: 25}
	}
	if options.LargestWindow == (Coord{}) {
		options.LargestWindow = Coord{X: 200, Y: 100}
	}
	if options.InputCapacity <= 0 {
		options.InputCapacity = 4096
	}
	if options.Attributes == 0 {
		options.Attributes = DefaultAttributes
	}
	s := &Simulated{
		size:          options.BufferSize,
		window:        RectAt(Coord{}, options.WindowSize),
		largest:       options.LargestWindow,
		cursorSize:    25,
		visible:       true,
		attributes:    options.Attributes,
		inputCapacity: options.InputCapacity,
	}
	s.cells = make([]Cell, s.size.X*s.size.Y)
	for i := range s.cells {
		s.cells[i] = Blank(s.attributes)
	}
	return s
}

// SetQueryHook installs a function every query method calls before
// doing any work. A hook that returns an error fails the query; a hook
// that blocks makes the query block. Pass nil to remove it.
func (s *Simulated) SetQueryHook(hook func(ctx context.Context) error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.queryHook = hook
}

func (s *Simulated) runHook(ctx context.Context) error {
	s.mutex.Lock()
	hook := s.queryHook
	s.mutex.Unlock()
	if hook == nil {
		return nil
	}
	return hook(ctx)
}

// ScreenBufferInfo implements Query.
func (s *Simulated) ScreenBufferInfo(ctx context.Context) (ScreenBufferInfo, error) {
	if err := s.runHook(ctx); err != nil {
		return ScreenBufferInfo{}, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return ScreenBufferInfo{
		Size:              s.size,
		CursorPosition:    s.cursor,
		Attributes:        s.attributes,
		Window:            s.window,
		MaximumWindowSize: Coord{X: min(s.largest.X, s.size.X), Y: min(s.largest.Y, s.size.Y)},
	}, nil
}

// CursorInfo implements Query.
func (s *Simulated) CursorInfo(ctx context.Context) (CursorInfo, error) {
	if err := s.runHook(ctx); err != nil {
		return CursorInfo{}, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return CursorInfo{Position: s.cursor, Size: s.cursorSize, Visible: s.visible}, nil
}

// LargestWindowSize implements Query.
func (s *Simulated) LargestWindowSize(ctx context.Context) (Coord, error) {
	if err := s.runHook(ctx); err != nil {
		return Coord{}, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.largest, nil
}

// ReadCells implements Query.
func (s *Simulated) ReadCells(ctx context.Context, area Rect) ([]Cell, error) {
	if err := s.runHook(ctx); err != nil {
		return nil, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !area.Within(s.size) {
		return nil, fmt.Errorf("%w: read area %s outside buffer %s", ErrInvalidGeometry, area, s.size)
	}
	result := make([]Cell, 0, area.Width()*area.Height())
	for row := area.Top; row <= area.Bottom; row++ {
		start := row*s.size.X + area.Left
		result = append(result, s.cells[start:start+area.Width()]...)
	}
	return result, nil
}

// WriteInput implements Control.
func (s *Simulated) WriteInput(ctx context.Context, records []InputRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.calls = append(s.calls, fmt.Sprintf("WriteInput(%d)", len(records)))
	if len(s.input)+len(records) > s.inputCapacity {
		return fmt.Errorf("%w: %d queued, %d more requested, capacity %d",
			ErrInputQueueFull, len(s.input), len(records), s.inputCapacity)
	}
	s.input = append(s.input, records...)
	return nil
}

// SetBufferSize implements Control. Content keeps its position
// relative to the top-left corner; new space is blank.
func (s *Simulated) SetBufferSize(ctx context.Context, size Coord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.calls = append(s.calls, fmt.Sprintf("SetBufferSize%s", size))
	if size.X <= 0 || size.Y <= 0 {
		return fmt.Errorf("%w: buffer size %s", ErrInvalidGeometry, size)
	}
	if !s.window.Within(size) {
		return fmt.Errorf("%w: window %s does not fit buffer %s", ErrInvalidGeometry, s.window, size)
	}
	cells := make([]Cell, size.X*size.Y)
	for row := range size.Y {
		for column := range size.X {
			cell := Blank(s.attributes)
			if row < s.size.Y && column < s.size.X {
				cell = s.cells[row*s.size.X+column]
			}
			cells[row*size.X+column] = cell
		}
	}
	s.cells = cells
	s.size = size
	s.cursor.X = min(s.cursor.X, size.X-1)
	s.cursor.Y = min(s.cursor.Y, size.Y-1)
	return nil
}

// SetWindow implements Control.
func (s *Simulated) SetWindow(ctx context.Context, window Rect) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.calls = append(s.calls, fmt.Sprintf("SetWindow%s", window))
	if !window.Within(s.size) {
		return fmt.Errorf("%w: window %s outside buffer %s", ErrInvalidGeometry, window, s.size)
	}
	if window.Width() > s.largest.X || window.Height() > s.largest.Y {
		return fmt.Errorf("%w: window %s larger than %s", ErrInvalidGeometry, window, s.largest)
	}
	s.window = window
	return nil
}

// SetCursorPosition implements Control.
func (s *Simulated) SetCursorPosition(ctx context.Context, position Coord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.calls = append(s.calls, fmt.Sprintf("SetCursorPosition%s", position))
	if position.X < 0 || position.Y < 0 || position.X >= s.size.X || position.Y >= s.size.Y {
		return fmt.Errorf("%w: cursor %s outside buffer %s", ErrInvalidGeometry, position, s.size)
	}
	s.cursor = position
	return nil
}

// TakeInput drains the input queue.
func (s *Simulated) TakeInput() []InputRecord {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	records := s.input
	s.input = nil
	return records
}

// Calls returns the mutation calls made so far, in order, and resets
// the log.
func (s *Simulated) Calls() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	calls := s.calls
	s.calls = nil
	return calls
}

// SetCursor moves the cursor, clamped to the buffer.
func (s *Simulated) SetCursor(position Coord) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.cursor = s.clamp(position)
}

// SetCursorShape changes the cursor size and visibility.
func (s *Simulated) SetCursorShape(size int, visible bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.cursorSize = size
	s.visible = visible
}

// SetCell overwrites one cell. Positions outside the buffer are
// ignored.
func (s *Simulated) SetCell(position Coord, cell Cell) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if position.X < 0 || position.Y < 0 || position.X >= s.size.X || position.Y >= s.size.Y {
		return
	}
	s.cells[position.Y*s.size.X+position.X] = cell
}

// WriteAt writes text starting at position without moving the cursor.
// Text that runs past the end of a row continues on the next one.
func (s *Simulated) WriteAt(position Coord, text string, attr uint16) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	index := position.Y*s.size.X + position.X
	for _, char := range text {
		if index < 0 || index >= len(s.cells) {
			return
		}
		s.cells[index] = Cell{Char: char, Attr: attr}
		index++
	}
}

// Print writes text at the cursor the way a program's output would:
// '\n' starts a new line, reaching the last buffer row scrolls the
// whole buffer up one row, and the window follows the cursor.
func (s *Simulated) Print(text string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, char := range text {
		switch char {
		case '\r':
			s.cursor.X = 0
		case '\n':
			s.cursor.X = 0
			s.newline()
		default:
			s.cells[s.cursor.Y*s.size.X+s.cursor.X] = Cell{Char: char, Attr: s.attributes}
			s.cursor.X++
			if s.cursor.X == s.size.X {
				s.cursor.X = 0
				s.newline()
			}
		}
	}
	s.follow()
}

// Clear blanks the buffer and homes the cursor and window.
func (s *Simulated) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for i := range s.cells {
		s.cells[i] = Blank(s.attributes)
	}
	s.cursor = Coord{}
	s.window = RectAt(Coord{}, s.window.Size())
}

func (s *Simulated) newline() {
	if s.cursor.Y < s.size.Y-1 {
		s.cursor.Y++
		return
	}
	copy(s.cells, s.cells[s.size.X:])
	for i := len(s.cells) - s.size.X; i < len(s.cells); i++ {
		s.cells[i] = Blank(s.attributes)
	}
}

// follow scrolls the window vertically so it contains the cursor.
func (s *Simulated) follow() {
	height := s.window.Height()
	switch {
	case s.cursor.Y > s.window.Bottom:
		s.window.Bottom = s.cursor.Y
		s.window.Top = s.window.Bottom - height + 1
	case s.cursor.Y < s.window.Top:
		s.window.Top = s.cursor.Y
		s.window.Bottom = s.window.Top + height - 1
	}
}

func (s *Simulated) clamp(position Coord) Coord {
	return Coord{
		X: min(max(position.X, 0), s.size.X-1),
		Y: min(max(position.Y, 0), s.size.Y-1),
	}
}
