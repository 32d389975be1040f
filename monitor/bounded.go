// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bureau-foundation/conmirror/console"
	"github.com/bureau-foundation/conmirror/lib/clock"
)

// ErrQueryTimeout is returned by console calls that did not complete
// within the query timeout.
var ErrQueryTimeout = errors.New("console call timed out")

// boundedConsole runs every call of an underlying console under a
// timeout measured on the monitor's clock. A call that times out or
// whose context is cancelled is abandoned: its result is discarded, and
// until it returns every new call fails immediately with
// ErrQueryTimeout. At most one call is in flight at any time.
type boundedConsole struct {
	inner   console.Console
	clock   clock.Clock
	timeout time.Duration

	mutex sync.Mutex
	// abandoned is closed when the last abandoned call returns. nil
	// when no call is outstanding.
	abandoned chan struct{}
}

type outcome[T any] struct {
	value T
	err   error
}

// busy reports whether an abandoned call is still running, clearing
// the record once it has returned.
func (b *boundedConsole) busy() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.abandoned == nil {
		return false
	}
	select {
	case <-b.abandoned:
		b.abandoned = nil
		return false
	default:
		return true
	}
}

func (b *boundedConsole) abandon(finished chan struct{}) {
	b.mutex.Lock()
	b.abandoned = finished
	b.mutex.Unlock()
}

func bounded[T any](ctx context.Context, b *boundedConsole, name string, call func(context.Context) (T, error)) (T, error) {
	var zero T
	if b.busy() {
		return zero, fmt.Errorf("%w: %s: an earlier call has not returned", ErrQueryTimeout, name)
	}

	callContext, cancel := context.WithCancel(ctx)
	defer cancel()

	result := make(chan outcome[T], 1)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		value, err := call(callContext)
		result <- outcome[T]{value, err}
	}()

	timer := b.clock.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case done := <-result:
		return done.value, done.err
	case <-ctx.Done():
		b.abandon(finished)
		return zero, ctx.Err()
	case <-timer.C:
		b.abandon(finished)
		return zero, fmt.Errorf("%w: %s after %s", ErrQueryTimeout, name, b.timeout)
	}
}

func boundedErr(ctx context.Context, b *boundedConsole, name string, call func(context.Context) error) error {
	_, err := bounded(ctx, b, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, call(ctx)
	})
	return err
}

func (b *boundedConsole) ScreenBufferInfo(ctx context.Context) (console.ScreenBufferInfo, error) {
	return bounded(ctx, b, "ScreenBufferInfo", b.inner.ScreenBufferInfo)
}

func (b *boundedConsole) CursorInfo(ctx context.Context) (console.CursorInfo, error) {
	return bounded(ctx, b, "CursorInfo", b.inner.CursorInfo)
}

func (b *boundedConsole) LargestWindowSize(ctx context.Context) (console.Coord, error) {
	return bounded(ctx, b, "LargestWindowSize", b.inner.LargestWindowSize)
}

func (b *boundedConsole) ReadCells(ctx context.Context, area console.Rect) ([]console.Cell, error) {
	return bounded(ctx, b, "ReadCells", func(ctx context.Context) ([]console.Cell, error) {
		return b.inner.ReadCells(ctx, area)
	})
}

func (b *boundedConsole) WriteInput(ctx context.Context, records []console.InputRecord) error {
	return boundedErr(ctx, b, "WriteInput", func(ctx context.Context) error {
		return b.inner.WriteInput(ctx, records)
	})
}

func (b *boundedConsole) SetBufferSize(ctx context.Context, size console.Coord) error {
	return boundedErr(ctx, b, "SetBufferSize", func(ctx context.Context) error {
		return b.inner.SetBufferSize(ctx, size)
	})
}

func (b *boundedConsole) SetWindow(ctx context.Context, window console.Rect) error {
	return boundedErr(ctx, b, "SetWindow", func(ctx context.Context) error {
		return b.inner.SetWindow(ctx, window)
	})
}

func (b *boundedConsole) SetCursorPosition(ctx context.Context, position console.Coord) error {
	return boundedErr(ctx, b, "SetCursorPosition", func(ctx context.Context) error {
		return b.inner.SetCursorPosition(ctx, position)
	})
}
