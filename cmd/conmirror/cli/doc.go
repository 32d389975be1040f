// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the conmirror
// controller CLI.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a [pflag.FlagSet] factory, and a
// Run function. Commands are assembled into a tree in cmd/conmirror and
// dispatched via [Command.Execute], which handles flag parsing,
// subcommand routing, and structured help output with examples.
//
// When a user types an unknown subcommand, the framework computes the
// edit distance against all known names and suggests the closest match
// (threshold: distance <= 3).
//
// Errors returned by commands are classified with [ToolError]; the
// category selects the process exit status.
package cli
