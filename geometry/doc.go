// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package geometry tracks a console's buffer size, window rectangle, and
// cursor, and carries out resize and scroll requests against it.
//
// A resize is planned as a pure function of the current geometry
// (Plan) and then applied in an order that never leaves the console in
// an invalid state: the window is first shrunk or moved into the part
// of the old window that survives in the new buffer, then the buffer is
// resized, then the final window is set. Requests outside the console's
// limits are clamped, not rejected; the applied geometry is returned so
// the caller can see what actually happened.
package geometry
