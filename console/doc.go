// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package console defines the console collaborator the monitor samples
// and drives: a rectangular screen buffer of cells, a window showing
// part of it, a cursor, and an input queue that accepts synthesized
// keyboard and mouse records.
//
// Coordinates are zero-based. Rect is inclusive on all four edges, so a
// window of 80x25 starting at the origin is {0, 0, 79, 24}.
//
// Two implementations ship with the package. Simulated is an in-memory
// console that enforces the same geometry rules as a real one (the
// window must always fit inside the buffer) and is what the package
// tests of geometry, command, and monitor run against. TmuxConsole maps
// the interface onto a tmux pane: the buffer is the pane's history plus
// its visible rows, and the window is the part copy mode currently
// shows.
package console
