// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/conmirror/lib/codec"
	"github.com/bureau-foundation/conmirror/region"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conmirror.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Monitor.Interval != 50*time.Millisecond {
		t.Errorf("expected interval=50ms, got %s", cfg.Monitor.Interval)
	}
	if cfg.Monitor.BufferCells != region.DefaultBufferCells {
		t.Errorf("expected buffer_cells=%d, got %d", region.DefaultBufferCells, cfg.Monitor.BufferCells)
	}
	if cfg.Regions.Directory != region.DefaultMappedDirectory {
		t.Errorf("expected directory=%s, got %s", region.DefaultMappedDirectory, cfg.Regions.Directory)
	}
	if cfg.Limits.Commands.MaxPasteRunes != 16384 {
		t.Errorf("expected max_paste_runes=16384, got %d", cfg.Limits.Commands.MaxPasteRunes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoad_RequiresConfigVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when CONMIRROR_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "CONMIRROR_CONFIG environment variable not set") {
		t.Errorf("unexpected error message %q", err.Error())
	}
}

func TestLoad_WithConfigVariable(t *testing.T) {
	path := writeConfig(t, `
monitor:
  session: work
`)
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Monitor.Session != "work" {
		t.Errorf("expected session=work, got %s", cfg.Monitor.Session)
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
monitor:
  session: build-7
  interval: 20ms
  query_timeout: 1s
  buffer_cells: 60000
  compression: zstd
  log_level: debug

limits:
  min_columns: 10
  max_buffer_rows: 5000
  max_paste_runes: 1000
  max_key_repeat: 8

mouse:
  x: 8
  y: 16

tmux:
  target: "build:0.0"
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Monitor.Session != "build-7" {
		t.Errorf("expected session=build-7, got %s", cfg.Monitor.Session)
	}
	if cfg.Monitor.Interval != 20*time.Millisecond || cfg.Monitor.QueryTimeout != time.Second {
		t.Errorf("expected interval=20ms query_timeout=1s, got %s %s", cfg.Monitor.Interval, cfg.Monitor.QueryTimeout)
	}
	if cfg.Monitor.BufferCells != 60000 {
		t.Errorf("expected buffer_cells=60000, got %d", cfg.Monitor.BufferCells)
	}
	if compression, err := cfg.CompressionAlgorithm(); err != nil || compression != codec.CompressionZstd {
		t.Errorf("expected zstd compression, got %v (%v)", compression, err)
	}

	// Fields absent from the file keep their defaults.
	if cfg.Limits.Geometry.MinColumns != 10 || cfg.Limits.Geometry.MinRows != 5 {
		t.Errorf("expected min 10x5, got %dx%d", cfg.Limits.Geometry.MinColumns, cfg.Limits.Geometry.MinRows)
	}
	if cfg.Limits.Geometry.MaxBufferRows != 5000 {
		t.Errorf("expected max_buffer_rows=5000, got %d", cfg.Limits.Geometry.MaxBufferRows)
	}
	if cfg.Limits.Commands.MaxPasteRunes != 1000 || cfg.Limits.Commands.MaxInputBatch != 256 || cfg.Limits.Commands.MaxKeyRepeat != 8 {
		t.Errorf("unexpected command limits %+v", cfg.Limits.Commands)
	}
	if cfg.Mouse.X != 8 || cfg.Mouse.Y != 16 {
		t.Errorf("expected mouse scale 8x16, got %+v", cfg.Mouse)
	}
	if cfg.Tmux.Target != "build:0.0" {
		t.Errorf("expected target=build:0.0, got %s", cfg.Tmux.Target)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config does not validate: %v", err)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	t.Parallel()
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "monitor: [unterminated\n")
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestExpandVariables(t *testing.T) {
	t.Setenv("CONMIRROR_TEST_RUNTIME", "/run/user/1000")
	t.Setenv("CONMIRROR_TEST_UNSET", "")

	path := writeConfig(t, `
regions:
  directory: ${CONMIRROR_TEST_RUNTIME}/conmirror
tmux:
  socket: ${CONMIRROR_TEST_UNSET:-/tmp/tmux.sock}
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Regions.Directory != "/run/user/1000/conmirror" {
		t.Errorf("expected directory=/run/user/1000/conmirror, got %s", cfg.Regions.Directory)
	}
	if cfg.Tmux.Socket != "/tmp/tmux.sock" {
		t.Errorf("expected socket=/tmp/tmux.sock, got %s", cfg.Tmux.Socket)
	}
}

func TestExpandVars(t *testing.T) {
	t.Parallel()
	vars := map[string]string{"ROOT": "/srv"}
	tests := []struct {
		input string
		want  string
	}{
		{"${ROOT}/regions", "/srv/regions"},
		{"${CONMIRROR_SURELY_UNSET_VARIABLE:-fallback}", "fallback"},
		{"${CONMIRROR_SURELY_UNSET_VARIABLE}", ""},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := expandVars(tt.input, vars); got != tt.want {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad session", func(c *Config) { c.Monitor.Session = "a b" }, "monitor.session"},
		{"zero interval", func(c *Config) { c.Monitor.Interval = 0 }, "monitor.interval"},
		{"negative timeout", func(c *Config) { c.Monitor.QueryTimeout = -time.Second }, "monitor.query_timeout"},
		{"no cells", func(c *Config) { c.Monitor.BufferCells = 0 }, "monitor.buffer_cells"},
		{"unknown compression", func(c *Config) { c.Monitor.Compression = "gzip" }, "monitor.compression"},
		{"unknown level", func(c *Config) { c.Monitor.LogLevel = "verbose" }, "monitor.log_level"},
		{"zero minimum", func(c *Config) { c.Limits.Geometry.MinRows = 0 }, "limits.min_columns"},
		{"tiny window cap", func(c *Config) { c.Limits.Geometry.MaxWindowCells = 10 }, "limits.max_window_cells"},
		{"negative paste", func(c *Config) { c.Limits.Commands.MaxPasteRunes = -1 }, "limits.max_*"},
		{"negative mouse", func(c *Config) { c.Mouse.Y = -2 }, "mouse.x"},
		{"no directory", func(c *Config) { c.Regions.Directory = "" }, "regions.directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate succeeded")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnsurePaths(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Regions.Directory = filepath.Join(t.TempDir(), "nested", "regions")
	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths: %v", err)
	}
	info, err := os.Stat(cfg.Regions.Directory)
	if err != nil || !info.IsDir() {
		t.Fatalf("directory not created: %v", err)
	}
}
