// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the conmirror
// binaries.
//
// Configuration is loaded from a single file specified by either the
// CONMIRROR_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no discovery and no automatic file search.
// Running without a file uses [Default].
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${XDG_RUNTIME_DIR}, and ${VAR:-default} patterns are
// expanded. No other environment variables override config values;
// command-line flags do, in the binaries.
//
// Key exports:
//
//   - [Config] -- master struct with Monitor, Limits, Mouse, Regions, Tmux
//   - [Default] -- returns a Config with the built-in defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
package config
