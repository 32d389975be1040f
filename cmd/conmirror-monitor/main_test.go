// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/conmirror/lib/config"
)

func TestParseSettingsFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conmirror.yaml")
	content := `
monitor:
  session: from-file
  interval: 100ms
tmux:
  target: "file:0.0"
  socket: /tmp/file.sock
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv(config.EnvironmentVariable, "")

	resolved, err := parseSettings([]string{
		"--config", path,
		"--session", "from-flag",
		"--interval", "25ms",
		"--compression", "zstd",
	}, io.Discard)
	if err != nil {
		t.Fatalf("parseSettings: %v", err)
	}
	cfg := resolved.config
	if cfg.Monitor.Session != "from-flag" {
		t.Errorf("session = %q, want from-flag", cfg.Monitor.Session)
	}
	if cfg.Monitor.Interval != 25*time.Millisecond {
		t.Errorf("interval = %s, want 25ms", cfg.Monitor.Interval)
	}
	if cfg.Tmux.Target != "file:0.0" || cfg.Tmux.Socket != "/tmp/file.sock" {
		t.Errorf("tmux = %+v, want values from the file", cfg.Tmux)
	}
	if cfg.Monitor.Compression != "zstd" {
		t.Errorf("compression = %q, want zstd", cfg.Monitor.Compression)
	}
}

func TestParseSettingsRequiresSessionAndTarget(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no session", []string{"--target", "a:0"}, "--session"},
		{"no target", []string{"--session", "a"}, "--target"},
		{"bad session", []string{"--session", "a b", "--target", "a:0"}, "monitor.session"},
		{"bad compression", []string{"--session", "a", "--target", "a:0", "--compression", "gzip"}, "monitor.compression"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSettings(tt.args, io.Discard)
			if err == nil {
				t.Fatal("parseSettings succeeded")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestParseSettingsDefaultSocket(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	t.Setenv("TMUX_TMPDIR", "/run/tmux-test")

	resolved, err := parseSettings([]string{"--session", "s", "--target", "s:0"}, io.Discard)
	if err != nil {
		t.Fatalf("parseSettings: %v", err)
	}
	if !strings.HasPrefix(resolved.config.Tmux.Socket, "/run/tmux-test/tmux-") {
		t.Errorf("socket = %q, want one under TMUX_TMPDIR", resolved.config.Tmux.Socket)
	}
}

func TestParseSettingsVersion(t *testing.T) {
	resolved, err := parseSettings([]string{"--version"}, io.Discard)
	if err != nil {
		t.Fatalf("parseSettings: %v", err)
	}
	if !resolved.showVersion {
		t.Error("showVersion not set")
	}
}
