// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/bureau-foundation/conmirror/command"
	"github.com/bureau-foundation/conmirror/console"
	"github.com/bureau-foundation/conmirror/lib/codec"
	"github.com/bureau-foundation/conmirror/region"
	"github.com/bureau-foundation/conmirror/screendiff"
)

// BufferInfo is the payload of the buffer-info region.
type BufferInfo struct {
	Delta screendiff.Delta `cbor:"delta"`

	// GridSequence is the buffer region's sequence once the grid write
	// described by Delta completed. A reader whose grid copy carries a
	// different sequence raced a later write and must retry.
	GridSequence uint64 `cbor:"grid_sequence"`
}

// Cycle runs one pass: apply pending commands, sample the console,
// and publish whatever changed. It is called by the loop started with
// Start and may be called directly by a caller that schedules cycles
// itself, in which case Start must not be used.
func (m *Monitor) Cycle(ctx context.Context) error {
	if err := m.open(); err != nil {
		return err
	}
	m.counters.cycles.Add(1)

	m.processCommands(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.sample(ctx)
	return nil
}

func (m *Monitor) processCommands(ctx context.Context) {
	for _, kind := range command.Kinds {
		if ctx.Err() != nil {
			return
		}
		handle := m.regions.get(kind)
		payload, sequence, ok := handle.Take(m.scratch)
		if !ok {
			continue
		}
		m.scratch = payload[:0]
		m.apply(ctx, kind, sequence, payload)
	}
}

func (m *Monitor) apply(ctx context.Context, kind region.Kind, sequence uint64, payload []byte) {
	cmd, err := command.Decode(kind, payload)
	if err != nil {
		m.counters.commandsRejected.Add(1)
		m.logger.Warn("command rejected", "kind", kind, "sequence", sequence, "error", err)
		return
	}

	result, err := m.translator.Translate(ctx, cmd)
	if _, isResize := cmd.(command.Resize); isResize {
		// Part of a failed resize may have been applied.
		m.forceFull = true
	}
	if err != nil {
		m.counters.commandsRejected.Add(1)
		m.logger.Warn("command rejected", "kind", kind, "sequence", sequence, "error", err)
		return
	}
	m.counters.commandsApplied.Add(1)

	if result.Plan != nil && result.Plan.Clamped {
		resize := cmd.(command.Resize)
		m.logger.Info("resize clamped",
			"requested_columns", resize.Columns,
			"requested_rows", resize.Rows,
			"columns", result.Plan.Columns,
			"rows", result.Plan.Rows,
		)
	}
	if result.Selection != nil {
		result.Selection.Sequence = sequence
		if err := m.publish(region.KindCopyInfo, result.Selection, m.compression); err != nil {
			m.logger.Warn("publishing copy selection failed", "sequence", sequence, "error", err)
		}
	}
	m.logger.Debug("command applied", "kind", kind, "sequence", sequence, "records", result.Records)
}

func (m *Monitor) sample(ctx context.Context) {
	info, err := m.console.ScreenBufferInfo(ctx)
	if err != nil {
		m.sampleFailed("screen buffer info", err)
		return
	}
	if m.tracker.Observe(info) {
		m.forceFull = true
	}
	if m.lastScreen == nil || *m.lastScreen != info {
		if err := m.publish(region.KindScreenInfo, info, codec.CompressionNone); err != nil {
			m.logger.Warn("publishing screen info failed", "error", err)
		} else {
			m.lastScreen = &info
		}
		m.updateParams(info)
	}

	cursor, err := m.console.CursorInfo(ctx)
	if err != nil {
		m.sampleFailed("cursor info", err)
	} else if m.lastCursor == nil || *m.lastCursor != cursor {
		if err := m.publish(region.KindCursorInfo, cursor, codec.CompressionNone); err != nil {
			m.logger.Warn("publishing cursor info failed", "error", err)
		} else {
			m.lastCursor = &cursor
		}
	}

	m.sampleBuffer(ctx, info)
}

func (m *Monitor) sampleBuffer(ctx context.Context, info console.ScreenBufferInfo) {
	area := screendiff.ReadArea(info)
	if area.Empty() {
		return
	}
	if area.Width()*area.Height() > m.bufferCells {
		if m.oversized != area {
			m.logger.Warn("read area exceeds buffer grid capacity",
				"area", area.String(),
				"cells", area.Width()*area.Height(),
				"capacity", m.bufferCells,
			)
			m.oversized = area
		}
		m.forceFull = true
		return
	}
	m.oversized = console.Rect{}

	cells, err := m.console.ReadCells(ctx, area)
	if err != nil {
		m.sampleFailed("buffer cells", err)
		return
	}
	snapshot, err := screendiff.NewSnapshot(info, cells)
	if err != nil {
		m.sampleFailed("buffer cells", err)
		return
	}

	delta := screendiff.Diff(m.previous, snapshot)
	if m.forceFull && !delta.Full {
		delta = screendiff.ForceFull(delta, snapshot)
	}
	if delta.Empty() {
		return
	}

	m.sequence++
	delta.Sequence = m.sequence

	grid := m.regions.get(region.KindBuffer)
	grid.Update(func(payload []byte) int {
		return screendiff.PatchGrid(payload, snapshot, delta.Changed)
	})
	bufferInfo := BufferInfo{Delta: delta, GridSequence: grid.Sequence()}
	if err := m.publish(region.KindBufferInfo, bufferInfo, codec.CompressionNone); err != nil {
		// The grid no longer matches any published descriptor.
		m.logger.Error("publishing buffer info failed", "sequence", delta.Sequence, "error", err)
		m.previous = nil
		return
	}

	m.previous = &snapshot
	m.forceFull = false
	m.counters.bufferPublishes.Add(1)
	if delta.Full {
		m.counters.fullPublishes.Add(1)
	}
	m.logger.Debug("buffer published", "sequence", delta.Sequence, "delta", delta.String())
}

func (m *Monitor) updateParams(info console.ScreenBufferInfo) {
	m.params.Columns = info.Window.Width()
	m.params.Rows = info.Window.Height()
	m.params.BufferColumns = info.Size.X
	m.params.BufferRows = info.Size.Y
	m.params.MaxColumns = info.MaximumWindowSize.X
	m.params.MaxRows = info.MaximumWindowSize.Y
	m.publishParams()
}

func (m *Monitor) publishParams() {
	if m.regions == nil {
		return
	}
	if err := m.publish(region.KindParams, m.params, codec.CompressionNone); err != nil {
		m.logger.Warn("publishing params failed", "state", m.params.State, "error", err)
	}
}

func (m *Monitor) publish(kind region.Kind, value any, compression codec.Compression) error {
	envelope, err := codec.Encode(value, compression)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", kind, err)
	}
	return m.regions.get(kind).Publish(envelope)
}

func (m *Monitor) sampleFailed(what string, err error) {
	m.counters.sampleFailures.Add(1)
	if errors.Is(err, context.Canceled) {
		return
	}
	m.logger.Warn("console sample failed", "what", what, "error", err)
}
