// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers shared by the conmirror
// binaries. Errors that happen before the structured logger exists,
// such as a bad flag or an unreadable config file, are written to
// stderr here rather than through ad-hoc fmt calls in each main.
package process
