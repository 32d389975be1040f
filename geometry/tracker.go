// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package geometry

import (
	"context"
	"errors"
	"fmt"

	"github.com/bureau-foundation/conmirror/console"
)

// Tracker holds the last geometry seen on a console and applies resize
// and scroll requests to it. It is used from a single goroutine.
type Tracker struct {
	limits Limits
	state  State
	known  bool
}

// NewTracker returns a tracker with no known geometry. Zero fields in
// limits take their DefaultLimits values.
func NewTracker(limits Limits) *Tracker {
	return &Tracker{limits: limits.withDefaults()}
}

// State returns the last known geometry. ok is false until the first
// Observe or a successful Resize.
func (t *Tracker) State() (state State, ok bool) {
	return t.state, t.known
}

// Observe records a fresh sample and reports whether the geometry
// differs from the last known one.
func (t *Tracker) Observe(info console.ScreenBufferInfo) (changed bool) {
	state := FromInfo(info)
	changed = !t.known || state != t.state
	t.state = state
	t.known = true
	return changed
}

// Forget drops the known geometry so the next Observe reports a change.
func (t *Tracker) Forget() { t.known = false }

func (t *Tracker) refresh(ctx context.Context, target console.Console) (State, error) {
	info, err := target.ScreenBufferInfo(ctx)
	if err != nil {
		return State{}, fmt.Errorf("reading screen buffer info: %w", err)
	}
	t.Observe(info)
	return t.state, nil
}

// Resize changes target's window to columns x rows, clamped to the
// console's limits. It returns the applied geometry and the plan that
// produced it. A clamped request is not an error.
//
// On failure part way through, the known geometry is dropped; the next
// sample re-establishes it.
func (t *Tracker) Resize(ctx context.Context, target console.Console, columns, rows int, edge Edge) (State, ResizePlan, error) {
	current, err := t.refresh(ctx, target)
	if err != nil {
		return State{}, ResizePlan{}, err
	}
	largest, err := target.LargestWindowSize(ctx)
	if err != nil {
		return State{}, ResizePlan{}, fmt.Errorf("reading largest window size: %w", err)
	}
	if current.MaximumWindow.X > 0 && current.MaximumWindow.Y > 0 {
		largest.X = max(largest.X, current.MaximumWindow.X)
		largest.Y = max(largest.Y, current.MaximumWindow.Y)
	}

	plan := Plan(current, largest, t.limits, columns, rows, edge)
	if err := t.apply(ctx, target, current, plan); err != nil {
		t.Forget()
		return State{}, plan, err
	}

	t.state = plan.Target(current)
	t.known = true
	return t.state, plan, nil
}

func (t *Tracker) apply(ctx context.Context, target console.Console, current State, plan ResizePlan) error {
	window := current.Window
	if plan.Intermediate != window {
		if err := target.SetWindow(ctx, plan.Intermediate); err != nil {
			return fmt.Errorf("shrinking window to %s: %w", plan.Intermediate, err)
		}
		window = plan.Intermediate
	}
	if plan.Buffer != current.BufferSize {
		if err := target.SetBufferSize(ctx, plan.Buffer); err != nil {
			return fmt.Errorf("setting buffer size to %s: %w", plan.Buffer, err)
		}
	}
	if plan.Final != window {
		if err := target.SetWindow(ctx, plan.Final); err != nil {
			return fmt.Errorf("setting window to %s: %w", plan.Final, err)
		}
	}
	if plan.MoveCursor {
		err := target.SetCursorPosition(ctx, plan.Cursor)
		if err != nil && !errors.Is(err, console.ErrUnsupported) {
			return fmt.Errorf("moving cursor to %s: %w", plan.Cursor, err)
		}
	}
	return nil
}

// Scroll moves target's window by dx columns and dy rows, clamped so
// the window stays inside the buffer. No console call is made when the
// clamped position equals the current one.
func (t *Tracker) Scroll(ctx context.Context, target console.Console, dx, dy int) (State, error) {
	current, err := t.refresh(ctx, target)
	if err != nil {
		return State{}, err
	}
	window := ScrollWindow(current, dx, dy)
	if window == current.Window {
		return current, nil
	}
	if err := target.SetWindow(ctx, window); err != nil {
		t.Forget()
		return State{}, fmt.Errorf("scrolling window to %s: %w", window, err)
	}
	t.state.Window = window
	return t.state, nil
}

// ScrollWindow returns current's window moved by dx, dy with its top
// clamped to [0, bufferRows-windowRows] and its left to
// [0, bufferColumns-windowColumns].
func ScrollWindow(current State, dx, dy int) console.Rect {
	size := current.Window.Size()
	left := min(max(current.Window.Left+dx, 0), max(current.BufferSize.X-size.X, 0))
	top := min(max(current.Window.Top+dy, 0), max(current.BufferSize.Y-size.Y, 0))
	return console.RectAt(console.Coord{X: left, Y: top}, size)
}
