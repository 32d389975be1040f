// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Conmirror-monitor mirrors one tmux pane into a set of shared memory
// regions that conmirror controllers attach to.
//
//	conmirror-monitor --session work --target work:0.0
//
// The regions live under --regions-dir (default /dev/shm/conmirror) as
// one file per region. They are left in place on exit so controllers
// can observe the stopped state, unless --remove-on-exit is given.
//
// Configuration comes from the file named by --config or
// CONMIRROR_CONFIG; flags override file values.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/conmirror/console"
	"github.com/bureau-foundation/conmirror/lib/config"
	"github.com/bureau-foundation/conmirror/lib/process"
	"github.com/bureau-foundation/conmirror/lib/tmux"
	"github.com/bureau-foundation/conmirror/lib/version"
	"github.com/bureau-foundation/conmirror/monitor"
	"github.com/bureau-foundation/conmirror/region"
)

const programName = "conmirror-monitor"

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(programName, err)
	}
}

// settings is the resolved configuration: the config file with flag
// overrides applied.
type settings struct {
	config       *config.Config
	removeOnExit bool
	showVersion  bool
}

func parseSettings(args []string, stderr io.Writer) (*settings, error) {
	flagSet := pflag.NewFlagSet(programName, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)

	var (
		configPath  string
		session     string
		target      string
		socket      string
		regionsDir  string
		compression string
		logLevel    string
		result      settings
	)
	flagSet.StringVar(&configPath, "config", "", "path to conmirror.yaml (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&session, "session", "", "session id the regions are named after (required)")
	flagSet.StringVar(&target, "target", "", "tmux target of the pane to mirror (required)")
	flagSet.StringVar(&socket, "socket", "", "tmux server socket (default: tmux's own default socket)")
	flagSet.StringVar(&regionsDir, "regions-dir", "", "directory holding the region files")
	interval := flagSet.Duration("interval", 0, "time between cycles")
	queryTimeout := flagSet.Duration("query-timeout", 0, "bound on each tmux query")
	bufferCells := flagSet.Int("buffer-cells", 0, "capacity of the buffer grid in cells")
	flagSet.StringVar(&compression, "compression", "", "compression for large payloads: none, lz4, zstd")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn, or error")
	flagSet.BoolVar(&result.removeOnExit, "remove-on-exit", false, "delete the region files when the monitor exits")
	flagSet.BoolVar(&result.showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	if result.showVersion {
		return &result, nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if flagSet.Changed("session") {
		cfg.Monitor.Session = session
	}
	if flagSet.Changed("target") {
		cfg.Tmux.Target = target
	}
	if flagSet.Changed("socket") {
		cfg.Tmux.Socket = socket
	}
	if flagSet.Changed("regions-dir") {
		cfg.Regions.Directory = regionsDir
	}
	if flagSet.Changed("interval") {
		cfg.Monitor.Interval = *interval
	}
	if flagSet.Changed("query-timeout") {
		cfg.Monitor.QueryTimeout = *queryTimeout
	}
	if flagSet.Changed("buffer-cells") {
		cfg.Monitor.BufferCells = *bufferCells
	}
	if flagSet.Changed("compression") {
		cfg.Monitor.Compression = compression
	}
	if flagSet.Changed("log-level") {
		cfg.Monitor.LogLevel = logLevel
	}

	if cfg.Monitor.Session == "" {
		return nil, errors.New("--session is required (or monitor.session in the config file)")
	}
	if cfg.Tmux.Target == "" {
		return nil, errors.New("--target is required (or tmux.target in the config file)")
	}
	if cfg.Tmux.Socket == "" {
		cfg.Tmux.Socket = defaultTmuxSocket()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	result.config = cfg
	return &result, nil
}

// loadConfig reads the file named by the flag or the environment, or
// returns the defaults when neither is set.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv(config.EnvironmentVariable) != "" {
		return config.Load()
	}
	return config.Default(), nil
}

// defaultTmuxSocket is the socket tmux itself uses when started
// without -S or -L.
func defaultTmuxSocket() string {
	directory := os.Getenv("TMUX_TMPDIR")
	if directory == "" {
		directory = "/tmp"
	}
	return filepath.Join(directory, fmt.Sprintf("tmux-%d", os.Getuid()), "default")
}

func newLogger(level string, output *os.File) *slog.Logger {
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(level)); err != nil {
		slogLevel = slog.LevelInfo
	}
	options := &slog.HandlerOptions{Level: slogLevel}
	if term.IsTerminal(int(output.Fd())) {
		return slog.New(slog.NewTextHandler(output, options))
	}
	return slog.New(slog.NewJSONHandler(output, options))
}

func run(args []string) error {
	resolved, err := parseSettings(args, os.Stderr)
	if err != nil {
		return err
	}
	if resolved.showVersion {
		fmt.Printf("%s %s\n", programName, version.Info())
		return nil
	}
	cfg := resolved.config

	logger := newLogger(cfg.Monitor.LogLevel, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := tmux.NewServer(cfg.Tmux.Socket, "")
	panePID, err := server.PanePID(ctx, cfg.Tmux.Target)
	if err != nil {
		return fmt.Errorf("tmux target %s on %s: %w", cfg.Tmux.Target, cfg.Tmux.Socket, err)
	}

	if err := cfg.EnsurePaths(); err != nil {
		return err
	}
	store, err := region.NewMappedStore(cfg.Regions.Directory)
	if err != nil {
		return err
	}
	defer store.Close()

	compression, err := cfg.CompressionAlgorithm()
	if err != nil {
		return err
	}

	mirror, err := monitor.New(monitor.Options{
		Session: monitor.SessionParams{
			SessionID:     cfg.Monitor.Session,
			OwnerThreadID: uint32(panePID),
		},
		Store:        store,
		Console:      console.NewTmuxConsole(server, cfg.Tmux.Target, console.Coord{}),
		Logger:       logger,
		Interval:     cfg.Monitor.Interval,
		QueryTimeout: cfg.Monitor.QueryTimeout,
		BufferCells:  cfg.Monitor.BufferCells,
		Geometry:     cfg.Limits.Geometry,
		Commands:     cfg.Limits.Commands,
		MouseScale:   cfg.Mouse,
		Compression:  compression,
	})
	if err != nil {
		return err
	}
	if err := mirror.Start(ctx); err != nil {
		return err
	}
	logger.Info("mirroring tmux pane",
		"target", cfg.Tmux.Target,
		"socket", cfg.Tmux.Socket,
		"pane_pid", panePID,
		"regions", cfg.Regions.Directory,
	)

	<-ctx.Done()
	mirror.Stop()

	if resolved.removeOnExit {
		for _, spec := range region.Catalog(cfg.Monitor.BufferCells) {
			name := region.Name(cfg.Monitor.Session, spec.Kind)
			if err := store.Remove(name); err != nil {
				logger.Warn("removing region failed", "region", name, "error", err)
			}
		}
	}
	return nil
}
