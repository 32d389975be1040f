// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package screendiff computes and applies deltas between successive
// samples of a console's read area.
//
// The read area is the rows of the visible window across the full width
// of the buffer. A Snapshot holds those cells row-major together with
// the geometry they were read under. Diff reports either a full resend
// (first sample, geometry change, or a wrap where content scrolled out
// from under the previous sample) or the single bounding rectangle of
// every cell that changed. Apply patches a snapshot with a delta and the
// cells it names; applying the same delta twice is harmless.
//
// The shared buffer grid is the read area encoded with EncodeCells: a
// fixed 8-byte little-endian record per cell. Digest hashes a snapshot
// with BLAKE3 so the reader of the grid can verify its reconstruction.
package screendiff
