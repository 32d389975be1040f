// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/conmirror/lib/tmux"
)

// TmuxConsole presents one tmux pane as a Console. The buffer is the
// pane's history followed by its visible rows, so the buffer height
// grows as output scrolls into history. The window is the visible rows
// when the pane is live, or the rows copy mode is showing when it has
// been scrolled.
//
// Cell attributes are not recovered from tmux; every cell carries
// DefaultAttributes. Mouse input is unsupported.
type TmuxConsole struct {
	server  *tmux.Server
	target  string
	largest Coord
}

// DefaultTmuxLargestWindow bounds resize requests against a pane.
var DefaultTmuxLargestWindow = Coord{X: 500, Y: 300}

// NewTmuxConsole returns a console for target, any tmux target string
// naming a single pane ("session", "session:1.0", "%3"). A zero largest
// uses DefaultTmuxLargestWindow.
func NewTmuxConsole(server *tmux.Server, target string, largest Coord) *TmuxConsole {
	if largest.X <= 0 || largest.Y <= 0 {
		largest = DefaultTmuxLargestWindow
	}
	return &TmuxConsole{server: server, target: target, largest: largest}
}

// paneState is one display-message sample.
type paneState struct {
	width, height  int
	history        int
	cursorX        int
	cursorY        int
	cursorVisible  bool
	scrollPosition int
}

var paneVariables = []string{
	"pane_width", "pane_height", "history_size",
	"cursor_x", "cursor_y", "cursor_flag", "scroll_position",
}

func (c *TmuxConsole) sample(ctx context.Context) (paneState, error) {
	values, err := c.server.DisplayFields(ctx, c.target, paneVariables...)
	if err != nil {
		return paneState{}, fmt.Errorf("sampling pane %s: %w", c.target, err)
	}
	return paneState{
		width:          values[0],
		height:         values[1],
		history:        values[2],
		cursorX:        values[3],
		cursorY:        values[4],
		cursorVisible:  values[5] != 0,
		scrollPosition: values[6],
	}, nil
}

func (p paneState) window() Rect {
	top := p.history - p.scrollPosition
	return Rect{Left: 0, Top: top, Right: p.width - 1, Bottom: top + p.height - 1}
}

// ScreenBufferInfo implements Query.
func (c *TmuxConsole) ScreenBufferInfo(ctx context.Context) (ScreenBufferInfo, error) {
	state, err := c.sample(ctx)
	if err != nil {
		return ScreenBufferInfo{}, err
	}
	return ScreenBufferInfo{
		Size:              Coord{X: state.width, Y: state.history + state.height},
		CursorPosition:    Coord{X: state.cursorX, Y: state.history + state.cursorY},
		Attributes:        DefaultAttributes,
		Window:            state.window(),
		MaximumWindowSize: c.largest,
	}, nil
}

// CursorInfo implements Query.
func (c *TmuxConsole) CursorInfo(ctx context.Context) (CursorInfo, error) {
	state, err := c.sample(ctx)
	if err != nil {
		return CursorInfo{}, err
	}
	return CursorInfo{
		Position: Coord{X: state.cursorX, Y: state.history + state.cursorY},
		Size:     100,
		Visible:  state.cursorVisible,
	}, nil
}

// LargestWindowSize implements Query.
func (c *TmuxConsole) LargestWindowSize(ctx context.Context) (Coord, error) {
	return c.largest, nil
}

// ReadCells implements Query.
func (c *TmuxConsole) ReadCells(ctx context.Context, area Rect) ([]Cell, error) {
	state, err := c.sample(ctx)
	if err != nil {
		return nil, err
	}
	size := Coord{X: state.width, Y: state.history + state.height}
	if !area.Within(size) {
		return nil, fmt.Errorf("%w: read area %s outside pane buffer %s", ErrInvalidGeometry, area, size)
	}

	lines, err := c.server.CapturePane(ctx, c.target, area.Top-state.history, area.Bottom-state.history)
	if err != nil {
		return nil, fmt.Errorf("capturing pane %s: %w", c.target, err)
	}

	cells := make([]Cell, 0, area.Width()*area.Height())
	for row := range area.Height() {
		line := ""
		if row < len(lines) {
			line = lines[row]
		}
		cells = append(cells, lineCells(line, state.width)[area.Left:area.Right+1]...)
	}
	return cells, nil
}

// lineCells lays captured text out on width cells. A double-width
// character takes its own cell plus a blank continuation cell.
func lineCells(line string, width int) []Cell {
	cells := make([]Cell, 0, width)
	for _, char := range line {
		if len(cells) >= width {
			break
		}
		cells = append(cells, Cell{Char: char, Attr: DefaultAttributes})
		for extra := ansi.StringWidth(string(char)) - 1; extra > 0 && len(cells) < width; extra-- {
			cells = append(cells, Cell{Char: 0, Attr: DefaultAttributes})
		}
	}
	for len(cells) < width {
		cells = append(cells, Blank(DefaultAttributes))
	}
	return cells
}

// tmuxKeyNames maps virtual keys onto tmux key names.
var tmuxKeyNames = map[uint16]string{
	VKBack:   "BSpace",
	VKTab:    "Tab",
	VKReturn: "Enter",
	VKEscape: "Escape",
	VKPrior:  "PPage",
	VKNext:   "NPage",
	VKEnd:    "End",
	VKHome:   "Home",
	VKLeft:   "Left",
	VKUp:     "Up",
	VKRight:  "Right",
	VKDown:   "Down",
	VKDelete: "DC",
}

// WriteInput implements Control. Key-down records become send-keys
// calls; runs of plain characters are sent as one literal string.
// Key-up records carry nothing tmux can use and are skipped.
func (c *TmuxConsole) WriteInput(ctx context.Context, records []InputRecord) error {
	for _, record := range records {
		if record.Kind == MouseEventKind {
			return fmt.Errorf("mouse input on tmux pane %s: %w", c.target, ErrUnsupported)
		}
	}

	var literal strings.Builder
	flush := func() error {
		if literal.Len() == 0 {
			return nil
		}
		text := literal.String()
		literal.Reset()
		return c.server.SendLiteral(ctx, c.target, text)
	}

	for _, record := range records {
		key := record.Key
		if !key.Down {
			continue
		}
		repeat := max(int(key.RepeatCount), 1)
		if name, ok := tmuxKeyNames[key.VirtualKey]; ok {
			if err := flush(); err != nil {
				return err
			}
			if err := c.server.SendKeys(ctx, c.target, repeat, name); err != nil {
				return err
			}
			continue
		}
		if key.Char == 0 {
			continue
		}
		for range repeat {
			literal.WriteRune(key.Char)
		}
	}
	return flush()
}

// SetBufferSize implements Control. Only the width can change; the
// height of a pane's buffer is its history, which tmux manages.
func (c *TmuxConsole) SetBufferSize(ctx context.Context, size Coord) error {
	state, err := c.sample(ctx)
	if err != nil {
		return err
	}
	if size.X < state.width || size.Y < state.height {
		return fmt.Errorf("%w: buffer %s smaller than pane %dx%d", ErrInvalidGeometry, size, state.width, state.height)
	}
	if size.X == state.width {
		return nil
	}
	return c.server.ResizeWindow(ctx, c.target, size.X, state.height)
}

// SetWindow implements Control. A size change resizes the tmux window;
// a position change scrolls the pane in copy mode.
func (c *TmuxConsole) SetWindow(ctx context.Context, window Rect) error {
	state, err := c.sample(ctx)
	if err != nil {
		return err
	}
	if window.Empty() || window.Left != 0 || window.Top < 0 {
		return fmt.Errorf("%w: window %s on tmux pane", ErrInvalidGeometry, window)
	}
	if window.Width() > c.largest.X || window.Height() > c.largest.Y {
		return fmt.Errorf("%w: window %s larger than %s", ErrInvalidGeometry, window, c.largest)
	}
	if window.Width() != state.width || window.Height() != state.height {
		if err := c.server.ResizeWindow(ctx, c.target, window.Width(), window.Height()); err != nil {
			return err
		}
		state.height = window.Height()
	}
	lines := max(state.history-window.Top, 0)
	if lines == state.scrollPosition {
		return nil
	}
	return c.server.CopyModeScroll(ctx, c.target, lines)
}

// SetCursorPosition implements Control. The cursor of a tmux pane
// belongs to the program running in it.
func (c *TmuxConsole) SetCursorPosition(ctx context.Context, position Coord) error {
	return fmt.Errorf("moving the cursor of tmux pane %s: %w", c.target, ErrUnsupported)
}
