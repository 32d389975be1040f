// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package screendiff

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// Digest returns the BLAKE3-256 digest of a snapshot's geometry,
// cursor, and cells. Two snapshots with equal digests mirror the same
// screen.
func Digest(snapshot Snapshot) [32]byte {
	hasher := blake3.New()

	var header [8 * 8]byte
	for i, value := range []int{
		snapshot.Columns, snapshot.Rows,
		snapshot.ReadTop, snapshot.ReadBottom,
		snapshot.ReadStart, snapshot.NewDataEnd,
		snapshot.Cursor.X, snapshot.Cursor.Y,
	} {
		binary.LittleEndian.PutUint64(header[i*8:], uint64(int64(value)))
	}
	hasher.Write(header[:])

	var chunk [256 * CellSize]byte
	for start := 0; start < len(snapshot.Cells); start += 256 {
		end := min(start+256, len(snapshot.Cells))
		n := EncodeCells(chunk[:], snapshot.Cells[start:end])
		hasher.Write(chunk[:n])
	}

	var digest [32]byte
	hasher.Sum(digest[:0])
	return digest
}
