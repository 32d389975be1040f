// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"fmt"

	"github.com/bureau-foundation/conmirror/console"
	"github.com/bureau-foundation/conmirror/monitor"
	"github.com/bureau-foundation/conmirror/region"
	"github.com/bureau-foundation/conmirror/screendiff"
)

// Snapshot returns the most recently reconstructed screen without
// reading the regions. ok is false before the first Refresh.
func (c *Controller) Snapshot() (snapshot screendiff.Snapshot, ok bool) {
	if !c.have {
		return screendiff.Snapshot{}, false
	}
	return c.snapshot.Clone(), true
}

// Refresh brings the reconstructed screen up to date with the latest
// published delta and returns it along with that delta.
//
// When the previous refresh saw the delta just before the published
// one, only the changed rectangle is read from the grid. Any other gap
// reads the whole read area.
func (c *Controller) Refresh() (screendiff.Snapshot, screendiff.Delta, error) {
	forceFull := false
	var lastErr error
	for range refreshAttempts {
		var info monitor.BufferInfo
		if _, err := c.read(region.KindBufferInfo, &info); err != nil {
			return screendiff.Snapshot{}, screendiff.Delta{}, err
		}
		delta := info.Delta
		if c.have && delta.Sequence == c.last {
			return c.snapshot.Clone(), delta, nil
		}

		incremental := c.have && !forceFull && !delta.Full && delta.Sequence == c.last+1
		if !incremental {
			delta = asFull(delta)
		}

		cells, fresh, err := c.readGrid(delta, info.GridSequence)
		if err != nil {
			return screendiff.Snapshot{}, screendiff.Delta{}, err
		}
		if !fresh {
			// The grid moved on between the two reads.
			continue
		}

		next := c.snapshot.Clone()
		if err := screendiff.Apply(&next, delta, cells); err != nil {
			lastErr = err
			forceFull = true
			continue
		}
		if screendiff.Digest(next) != info.Delta.Digest {
			lastErr = fmt.Errorf("%w: sequence %d", ErrDesync, delta.Sequence)
			forceFull = true
			continue
		}

		c.snapshot = next
		c.have = true
		c.last = delta.Sequence
		return next.Clone(), info.Delta, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: buffer rewritten on every attempt", region.ErrContended)
	}
	return screendiff.Snapshot{}, screendiff.Delta{}, lastErr
}

// readGrid copies the cells of delta.Changed out of the buffer region.
// fresh is false when the copy was taken from a grid other than the
// one the delta describes.
func (c *Controller) readGrid(delta screendiff.Delta, gridSequence uint64) (cells []console.Cell, fresh bool, err error) {
	var decodeErr error
	sequence, err := c.regions[region.KindBuffer].View(func(grid []byte) error {
		cells, decodeErr = screendiff.GridCells(grid, delta.Columns, delta.Changed)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if sequence != gridSequence {
		return nil, false, nil
	}
	if decodeErr != nil {
		return nil, false, fmt.Errorf("reading buffer grid: %w", decodeErr)
	}
	return cells, true, nil
}

func asFull(delta screendiff.Delta) screendiff.Delta {
	delta.Full = true
	delta.Changed = console.Rect{
		Left:   0,
		Top:    0,
		Right:  delta.Columns - 1,
		Bottom: delta.ReadBottom - delta.ReadTop,
	}
	return delta
}
