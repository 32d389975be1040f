// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package monitor runs next to a console and mirrors it into a session's
// shared regions.
//
// A Monitor owns every region of its session. Each cycle it:
//
//   - takes the pending record from each command region, decodes it,
//     and hands it to the command translator; a bad record is logged
//     and dropped without affecting anything else
//   - samples the screen buffer and cursor, publishing screen-info and
//     cursor-info only when they changed
//   - reads the window rows across the full buffer width, diffs them
//     against the previous sample, patches the changed cells into the
//     buffer grid, and publishes the delta to buffer-info
//
// then sleeps for the configured interval. A resize always makes the
// next buffer publish a full one.
//
// Every console call goes through a bounded wrapper: the call runs in
// its own goroutine and is abandoned when the query timeout elapses or
// the monitor is stopped, so a hung console cannot hold up Stop.
//
// Start and Stop may be called from any goroutine, in any order, any
// number of times. Stop before Start makes the monitor permanently
// stopped. Cycle is exported so a caller with its own scheduler (and
// the tests) can step the monitor without the background loop.
package monitor
