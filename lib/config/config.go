// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/conmirror/command"
	"github.com/bureau-foundation/conmirror/geometry"
	"github.com/bureau-foundation/conmirror/lib/codec"
	"github.com/bureau-foundation/conmirror/region"
)

// EnvironmentVariable names the variable [Load] reads the config path
// from.
const EnvironmentVariable = "CONMIRROR_CONFIG"

// Config is the master configuration.
type Config struct {
	// Monitor configures the mirroring loop.
	Monitor MonitorConfig `yaml:"monitor"`

	// Limits bounds console geometry and command sizes.
	Limits LimitsConfig `yaml:"limits"`

	// Mouse maps controller coordinates to console cells.
	Mouse command.CellScale `yaml:"mouse"`

	// Regions configures where the shared regions live.
	Regions RegionsConfig `yaml:"regions"`

	// Tmux selects the pane the monitor mirrors.
	Tmux TmuxConfig `yaml:"tmux"`
}

// MonitorConfig configures the mirroring loop.
type MonitorConfig struct {
	// Session is the session id regions are named after.
	Session string `yaml:"session"`

	// Interval is the time between cycles. Default: 50ms
	Interval time.Duration `yaml:"interval"`

	// QueryTimeout bounds each console call. Default: twice Interval
	QueryTimeout time.Duration `yaml:"query_timeout"`

	// BufferCells is the capacity of the buffer grid.
	// Default: region.DefaultBufferCells
	BufferCells int `yaml:"buffer_cells"`

	// Compression is applied to large state payloads: none, lz4, or
	// zstd. Default: lz4
	Compression string `yaml:"compression"`

	// LogLevel is one of debug, info, warn, error. Default: info
	LogLevel string `yaml:"log_level"`
}

// LimitsConfig merges the geometry and command limits into one
// section.
type LimitsConfig struct {
	Geometry geometry.Limits `yaml:",inline"`
	Commands command.Limits  `yaml:",inline"`
}

// RegionsConfig configures where the shared regions live.
type RegionsConfig struct {
	// Directory holds one file per region.
	// Default: /dev/shm/conmirror
	Directory string `yaml:"directory"`
}

// TmuxConfig selects the pane the monitor mirrors.
type TmuxConfig struct {
	// Socket is the tmux server socket path. Empty uses tmux's own
	// default for the current user.
	Socket string `yaml:"socket"`

	// Target is the tmux target of the pane, e.g. "work:0.1".
	Target string `yaml:"target"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Monitor: MonitorConfig{
			Interval:    50 * time.Millisecond,
			BufferCells: region.DefaultBufferCells,
			Compression: codec.CompressionLZ4.String(),
			LogLevel:    "info",
		},
		Limits: LimitsConfig{
			Geometry: geometry.DefaultLimits(),
			Commands: command.DefaultLimits(),
		},
		Mouse: command.CellScale{X: 1, Y: 1},
		Regions: RegionsConfig{
			Directory: region.DefaultMappedDirectory,
		},
	}
}

// Load loads configuration from the CONMIRROR_CONFIG environment
// variable. It fails when the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your conmirror.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path on top of
// [Default].
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME":            os.Getenv("HOME"),
		"XDG_RUNTIME_DIR": os.Getenv("XDG_RUNTIME_DIR"),
	}
	c.Regions.Directory = expandVars(c.Regions.Directory, vars)
	c.Tmux.Socket = expandVars(c.Tmux.Socket, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// CompressionAlgorithm returns the parsed Monitor.Compression.
func (c *Config) CompressionAlgorithm() (codec.Compression, error) {
	return codec.ParseCompression(c.Monitor.Compression)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Monitor.Session != "" {
		if err := region.ValidateSession(c.Monitor.Session); err != nil {
			errs = append(errs, fmt.Errorf("monitor.session: %w", err))
		}
	}
	if c.Monitor.Interval <= 0 {
		errs = append(errs, fmt.Errorf("monitor.interval must be positive, got %s", c.Monitor.Interval))
	}
	if c.Monitor.QueryTimeout < 0 {
		errs = append(errs, fmt.Errorf("monitor.query_timeout must not be negative, got %s", c.Monitor.QueryTimeout))
	}
	if c.Monitor.BufferCells <= 0 {
		errs = append(errs, fmt.Errorf("monitor.buffer_cells must be positive, got %d", c.Monitor.BufferCells))
	}
	if _, err := c.CompressionAlgorithm(); err != nil {
		errs = append(errs, fmt.Errorf("monitor.compression: %w", err))
	}
	if !contains([]string{"debug", "info", "warn", "error"}, c.Monitor.LogLevel) {
		errs = append(errs, fmt.Errorf("monitor.log_level must be one of debug, info, warn, error, got %q", c.Monitor.LogLevel))
	}

	geometryLimits := c.Limits.Geometry
	if geometryLimits.MinColumns < 1 || geometryLimits.MinRows < 1 {
		errs = append(errs, fmt.Errorf("limits.min_columns and limits.min_rows must be at least 1"))
	}
	if geometryLimits.MaxBufferRows < geometryLimits.MinRows {
		errs = append(errs, fmt.Errorf("limits.max_buffer_rows %d is below limits.min_rows %d",
			geometryLimits.MaxBufferRows, geometryLimits.MinRows))
	}
	if geometryLimits.MaxWindowCells < geometryLimits.MinColumns*geometryLimits.MinRows {
		errs = append(errs, fmt.Errorf("limits.max_window_cells %d cannot hold a %dx%d window",
			geometryLimits.MaxWindowCells, geometryLimits.MinColumns, geometryLimits.MinRows))
	}
	commandLimits := c.Limits.Commands
	if commandLimits.MaxPasteRunes < 0 || commandLimits.MaxInputBatch < 0 || commandLimits.MaxKeyRepeat < 0 {
		errs = append(errs, fmt.Errorf("limits.max_* command bounds must not be negative"))
	}
	if c.Mouse.X < 0 || c.Mouse.Y < 0 {
		errs = append(errs, fmt.Errorf("mouse.x and mouse.y must not be negative"))
	}

	if c.Regions.Directory == "" {
		errs = append(errs, fmt.Errorf("regions.directory is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the region directory if it does not exist.
func (c *Config) EnsurePaths() error {
	if err := os.MkdirAll(c.Regions.Directory, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", c.Regions.Directory, err)
	}
	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
