// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package controller is the reading side of a mirrored console session.
//
// A [Controller] attaches to regions a monitor has already created,
// reads the published state, reconstructs the screen from buffer
// deltas, and posts commands. Reconstruction checks every result
// against the digest the monitor published and falls back to a full
// read of the grid whenever a delta was missed or a read raced a
// write.
package controller
