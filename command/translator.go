// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/bureau-foundation/conmirror/console"
	"github.com/bureau-foundation/conmirror/geometry"
	"github.com/bureau-foundation/conmirror/region"
)

// Limits bounds what a single command may ask for.
type Limits struct {
	// MaxPasteRunes rejects longer paste text.
	MaxPasteRunes int `yaml:"max_paste_runes"`

	// MaxInputBatch is the most input records written per console
	// call. Longer sequences are split, in order.
	MaxInputBatch int `yaml:"max_input_batch"`

	// MaxKeyRepeat bounds KeyReset.Count.
	MaxKeyRepeat int `yaml:"max_key_repeat"`
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxPasteRunes: 16384,
		MaxInputBatch: 256,
		MaxKeyRepeat:  64,
	}
}

func (l Limits) withDefaults() Limits {
	defaults := DefaultLimits()
	if l.MaxPasteRunes <= 0 {
		l.MaxPasteRunes = defaults.MaxPasteRunes
	}
	if l.MaxInputBatch <= 0 {
		l.MaxInputBatch = defaults.MaxInputBatch
	}
	if l.MaxKeyRepeat <= 0 {
		l.MaxKeyRepeat = defaults.MaxKeyRepeat
	}
	return l
}

// CellScale is the number of controller-space units per console cell
// along each axis. The zero value means one unit per cell.
type CellScale struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

func (s CellScale) normalized() CellScale {
	return CellScale{X: max(s.X, 1), Y: max(s.Y, 1)}
}

// Result reports what a translated command did.
type Result struct {
	Kind region.Kind

	// Records is the number of input records written.
	Records int

	// Geometry is the console geometry after a Resize or Scroll.
	Geometry *geometry.State

	// Plan is the resize plan applied by a Resize.
	Plan *geometry.ResizePlan

	// Selection is the text captured by a Copy.
	Selection *Selection
}

// Translator carries out commands against a console. It is used from
// the monitor goroutine only.
type Translator struct {
	target  console.Console
	tracker *geometry.Tracker
	limits  Limits
	scale   CellScale
}

// NewTranslator returns a translator for target. tracker is shared with
// the caller so geometry changes made by commands are visible to it.
func NewTranslator(target console.Console, tracker *geometry.Tracker, limits Limits, scale CellScale) *Translator {
	return &Translator{
		target:  target,
		tracker: tracker,
		limits:  limits.withDefaults(),
		scale:   scale.normalized(),
	}
}

// Translate carries out cmd.
func (t *Translator) Translate(ctx context.Context, cmd Command) (Result, error) {
	result := Result{Kind: cmd.Kind()}
	var err error
	switch cmd := cmd.(type) {
	case Paste:
		result.Records, err = t.paste(ctx, cmd)
	case KeyReset:
		result.Records, err = t.keyReset(ctx, cmd)
	case MouseEvent:
		result.Records, err = t.mouse(ctx, cmd)
	case Resize:
		err = t.resize(ctx, cmd, &result)
	case Scroll:
		var state geometry.State
		state, err = t.tracker.Scroll(ctx, t.target, cmd.DeltaX, cmd.DeltaY)
		result.Geometry = &state
	case Copy:
		result.Selection, err = t.copy(ctx, cmd)
	default:
		err = fmt.Errorf("%w: unknown command type %T", ErrRejected, cmd)
	}
	if err != nil {
		return result, fmt.Errorf("%s: %w", cmd.Kind(), err)
	}
	return result, nil
}

// PasteRecords returns the input records that type text: one
// key-down/key-up pair per character. "\r\n", "\n" and a lone "\r"
// each become one Enter; "\t" becomes Tab; every other character is
// sent without a virtual key.
func PasteRecords(text string) []console.InputRecord {
	records := make([]console.InputRecord, 0, 2*utf8.RuneCountInString(text))
	pair := func(virtualKey uint16, char rune) {
		records = append(records,
			console.KeyRecord(true, virtualKey, char),
			console.KeyRecord(false, virtualKey, char))
	}
	previous := rune(0)
	for _, char := range text {
		switch char {
		case '\n':
			if previous != '\r' {
				pair(console.VKReturn, '\r')
			}
		case '\r':
			pair(console.VKReturn, '\r')
		case '\t':
			pair(console.VKTab, '\t')
		default:
			pair(0, char)
		}
		previous = char
	}
	return records
}

func (t *Translator) paste(ctx context.Context, cmd Paste) (int, error) {
	if !utf8.ValidString(cmd.Text) {
		return 0, fmt.Errorf("%w: paste text is not valid UTF-8", ErrRejected)
	}
	if count := utf8.RuneCountInString(cmd.Text); count > t.limits.MaxPasteRunes {
		return 0, fmt.Errorf("%w: paste of %d characters exceeds limit of %d", ErrRejected, count, t.limits.MaxPasteRunes)
	}
	return t.write(ctx, PasteRecords(cmd.Text))
}

func (t *Translator) keyReset(ctx context.Context, cmd KeyReset) (int, error) {
	if cmd.VirtualKey == 0 {
		return 0, fmt.Errorf("%w: key reset without a virtual key", ErrRejected)
	}
	if cmd.Count < 1 || cmd.Count > t.limits.MaxKeyRepeat {
		return 0, fmt.Errorf("%w: key reset count %d outside [1, %d]", ErrRejected, cmd.Count, t.limits.MaxKeyRepeat)
	}
	records := make([]console.InputRecord, 0, 2*cmd.Count)
	for range cmd.Count {
		records = append(records,
			console.KeyRecord(true, cmd.VirtualKey, 0),
			console.KeyRecord(false, cmd.VirtualKey, 0))
	}
	return t.write(ctx, records)
}

// write sends records in batches of at most MaxInputBatch. On failure
// the batches already written stay written.
func (t *Translator) write(ctx context.Context, records []console.InputRecord) (int, error) {
	written := 0
	for start := 0; start < len(records); start += t.limits.MaxInputBatch {
		end := min(start+t.limits.MaxInputBatch, len(records))
		if err := t.target.WriteInput(ctx, records[start:end]); err != nil {
			return written, fmt.Errorf("writing input records %d..%d of %d: %w", start, end, len(records), err)
		}
		written = end
	}
	return written, nil
}

// MapMouse converts a controller-space position to a buffer position
// inside window.
func MapMouse(x, y int, window console.Rect, scale CellScale) (console.Coord, error) {
	scale = scale.normalized()
	if x < 0 || y < 0 {
		return console.Coord{}, fmt.Errorf("%w: negative mouse position (%d,%d)", ErrRejected, x, y)
	}
	column, row := x/scale.X, y/scale.Y
	if column >= window.Width() || row >= window.Height() {
		return console.Coord{}, fmt.Errorf("%w: mouse position (%d,%d) outside %dx%d window",
			ErrRejected, x, y, window.Width(), window.Height())
	}
	return console.Coord{X: window.Left + column, Y: window.Top + row}, nil
}

func (t *Translator) mouse(ctx context.Context, cmd MouseEvent) (int, error) {
	if !console.ValidMouseFlags(cmd.Flags) {
		return 0, fmt.Errorf("%w: unknown mouse flags %#x", ErrRejected, cmd.Flags)
	}
	// Reject before touching the console.
	if cmd.X < 0 || cmd.Y < 0 {
		return 0, fmt.Errorf("%w: negative mouse position (%d,%d)", ErrRejected, cmd.X, cmd.Y)
	}
	info, err := t.target.ScreenBufferInfo(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading window for mouse event: %w", err)
	}
	t.tracker.Observe(info)

	position, err := MapMouse(cmd.X, cmd.Y, info.Window, t.scale)
	if err != nil {
		return 0, err
	}
	record := console.MouseRecord(console.MouseEvent{
		Position:    position,
		Buttons:     cmd.Buttons,
		ControlKeys: cmd.ControlKeys,
		Flags:       cmd.Flags,
	})
	return t.write(ctx, []console.InputRecord{record})
}

func (t *Translator) resize(ctx context.Context, cmd Resize, result *Result) error {
	if cmd.Columns <= 0 || cmd.Rows <= 0 {
		return fmt.Errorf("%w: resize to %dx%d", ErrRejected, cmd.Columns, cmd.Rows)
	}
	edge := cmd.Edge
	if edge == 0 {
		edge = geometry.DefaultEdge
	}
	state, plan, err := t.tracker.Resize(ctx, t.target, cmd.Columns, cmd.Rows, edge)
	if err != nil {
		return err
	}
	result.Geometry = &state
	result.Plan = &plan
	return nil
}
