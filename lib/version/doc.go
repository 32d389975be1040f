// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the conmirror
// binaries.
//
// Three package-level variables are injected at build time via
// -ldflags -X: [GitCommit], [BuildTime], and [Version]. They default to
// "unknown" / "0.1.0-dev" in development builds and test runs, in which
// case [Info] falls back to the VCS revision the Go toolchain embeds.
package version
