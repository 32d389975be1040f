// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package region implements the shared memory regions through which a
// console monitor and its controller communicate.
//
// A [Region] is a fixed-capacity byte area with a 64-byte header:
//
//	offset  size  field
//	0       4     magic "CMRG"
//	4       4     capacity (payload bytes)
//	8       8     sequence (atomic)
//	16      4     present flag (atomic)
//	20      4     payload length (atomic)
//	24      40    reserved
//
// Every region has exactly one payload writer. Two access disciplines
// sit on top of the header:
//
//   - State regions (monitor to controller) use a sequence lock. The
//     writer moves the sequence to an odd value, writes the payload,
//     and stores the next even value last. Readers copy the payload
//     between two loads of the same even sequence and retry otherwise,
//     so they never observe a half-written record.
//   - Command regions (controller to monitor) use the present flag. The
//     controller refuses to post while a record is present, writes the
//     payload, then sets the flag. The monitor copies the payload and
//     clears the flag, which is the only write it makes to the region.
//
// Header words are accessed with sync/atomic, which gives the
// release/acquire ordering the protocol needs on every platform Go
// supports.
//
// A [Store] opens regions by name. [MemoryStore] keeps regions in the
// process (tests, and monitors embedded next to their controller);
// [MappedStore] backs each region with a file mapped MAP_SHARED, which
// on Linux normally lives in /dev/shm. Region names come from [Name],
// which templates the session identifier into the catalog kinds.
package region
