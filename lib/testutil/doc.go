// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so tests that wait on a goroutine never hang forever. They
// are the only place tests use the wall clock; everything else steps a
// clock.FakeClock.
//
// [ShortDir] creates a directory directly under /tmp for tmux sockets,
// which must stay under the 108-byte sun_path limit.
//
// [UniqueID] returns process-unique identifiers for session names so
// parallel tests sharing a region directory or tmux server never
// collide.
//
// All helpers call t.Fatalf on failure.
package testutil
