// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/conmirror/command"
	"github.com/bureau-foundation/conmirror/console"
	"github.com/bureau-foundation/conmirror/geometry"
	"github.com/bureau-foundation/conmirror/lib/clock"
	"github.com/bureau-foundation/conmirror/lib/codec"
	"github.com/bureau-foundation/conmirror/region"
	"github.com/bureau-foundation/conmirror/screendiff"
)

var (
	// ErrStopped is returned by Start after Stop has been called.
	ErrStopped = errors.New("monitor stopped")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("monitor already started")
)

// DefaultInterval is the cycle interval when Options.Interval is zero.
const DefaultInterval = 50 * time.Millisecond

// Options configures a Monitor. Store and Console are required.
type Options struct {
	Session SessionParams
	Store   region.Store
	Console console.Console

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Interval is the time between cycles. QueryTimeout bounds every
	// console call and defaults to twice Interval.
	Interval     time.Duration
	QueryTimeout time.Duration

	// BufferCells is the capacity of the buffer grid region.
	BufferCells int

	Geometry   geometry.Limits
	Commands   command.Limits
	MouseScale command.CellScale

	// Compression applies to the structured state payloads large
	// enough to benefit: copy-info and buffer-info.
	Compression codec.Compression

	// ProcessID is echoed in params; defaults to os.Getpid().
	ProcessID int
}

// Stats counts monitor activity since New. Safe to read concurrently.
type Stats struct {
	Cycles           uint64
	BufferPublishes  uint64
	FullPublishes    uint64
	CommandsApplied  uint64
	CommandsRejected uint64
	SampleFailures   uint64
}

type counters struct {
	cycles           atomic.Uint64
	bufferPublishes  atomic.Uint64
	fullPublishes    atomic.Uint64
	commandsApplied  atomic.Uint64
	commandsRejected atomic.Uint64
	sampleFailures   atomic.Uint64
}

// Monitor mirrors one console into one session's regions.
type Monitor struct {
	session     SessionParams
	store       region.Store
	console     *boundedConsole
	clock       clock.Clock
	logger      *slog.Logger
	interval    time.Duration
	bufferCells int
	compression codec.Compression
	processID   int

	tracker    *geometry.Tracker
	translator *command.Translator
	counters   counters

	lifecycle sync.Mutex
	started   bool
	stopped   bool
	cancel    context.CancelFunc
	done      chan struct{}

	// Cycle state. Touched only by the goroutine running Cycle.
	regions    *regionSet
	params     Params
	lastScreen *console.ScreenBufferInfo
	lastCursor *console.CursorInfo
	previous   *screendiff.Snapshot
	forceFull  bool
	sequence   uint64
	oversized  console.Rect
	scratch    []byte
}

// New validates options and returns an unstarted monitor.
func New(options Options) (*Monitor, error) {
	if err := region.ValidateSession(options.Session.SessionID); err != nil {
		return nil, err
	}
	if options.Store == nil {
		return nil, errors.New("monitor: Store is required")
	}
	if options.Console == nil {
		return nil, errors.New("monitor: Console is required")
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Interval <= 0 {
		options.Interval = DefaultInterval
	}
	if options.QueryTimeout <= 0 {
		options.QueryTimeout = 2 * options.Interval
	}
	if options.BufferCells <= 0 {
		options.BufferCells = region.DefaultBufferCells
	}
	if options.ProcessID == 0 {
		options.ProcessID = os.Getpid()
	}

	limits := options.Geometry
	if limits.MaxWindowCells <= 0 || limits.MaxWindowCells > options.BufferCells {
		limits.MaxWindowCells = options.BufferCells
	}

	m := &Monitor{
		session:     options.Session,
		store:       options.Store,
		clock:       options.Clock,
		logger:      options.Logger.With("session", options.Session.SessionID),
		interval:    options.Interval,
		bufferCells: options.BufferCells,
		compression: options.Compression,
		processID:   options.ProcessID,
		console: &boundedConsole{
			inner:   options.Console,
			clock:   options.Clock,
			timeout: options.QueryTimeout,
		},
		tracker: geometry.NewTracker(limits),
	}
	m.translator = command.NewTranslator(m.console, m.tracker, options.Commands, options.MouseScale)
	m.params = Params{
		SessionID:     options.Session.SessionID,
		OwnerThreadID: options.Session.OwnerThreadID,
		State:         StateStarting,
		ProcessID:     options.ProcessID,
		Interval:      options.Interval,
		BufferCells:   options.BufferCells,
	}
	return m, nil
}

// Stats returns a snapshot of the activity counters.
func (m *Monitor) Stats() Stats {
	return Stats{
		Cycles:           m.counters.cycles.Load(),
		BufferPublishes:  m.counters.bufferPublishes.Load(),
		FullPublishes:    m.counters.fullPublishes.Load(),
		CommandsApplied:  m.counters.commandsApplied.Load(),
		CommandsRejected: m.counters.commandsRejected.Load(),
		SampleFailures:   m.counters.sampleFailures.Load(),
	}
}

// Start opens the session's regions, publishes params, and starts the
// background loop. Failure to open a region is returned and the loop
// does not start. The loop runs until Stop is called or ctx is
// cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if m.stopped {
		return ErrStopped
	}
	if m.started {
		return ErrAlreadyStarted
	}

	if err := m.open(); err != nil {
		return err
	}
	m.publishParams()
	m.params.State = StateRunning
	m.publishParams()

	loopContext, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.started = true
	go m.run(loopContext, m.done)

	m.logger.Info("monitor started",
		"interval", m.interval,
		"buffer_cells", m.bufferCells,
	)
	return nil
}

// Stop ends the loop and waits for it to exit. After Stop returns,
// params carries the stopped state and no region is written again.
// Stop is idempotent, and Stop before Start prevents any later Start.
func (m *Monitor) Stop() {
	m.lifecycle.Lock()
	m.stopped = true
	cancel, done := m.cancel, m.done
	m.lifecycle.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done returns a channel closed when the loop has exited. A monitor
// stopped before it started has no loop, so its channel is already
// closed. Done returns nil while the monitor has been neither started
// nor stopped.
func (m *Monitor) Done() <-chan struct{} {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if m.done == nil && m.stopped {
		m.done = make(chan struct{})
		close(m.done)
	}
	return m.done
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer m.finish()

	for {
		if err := m.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Error("monitor cycle failed", "error", err)
		}

		timer := m.clock.NewTimer(m.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// finish publishes the stopped state once the loop has exited.
func (m *Monitor) finish() {
	m.params.State = StateStopped
	m.publishParams()

	stats := m.Stats()
	m.logger.Info("monitor stopped",
		"cycles", stats.Cycles,
		"buffer_publishes", stats.BufferPublishes,
		"full_publishes", stats.FullPublishes,
		"commands_applied", stats.CommandsApplied,
		"commands_rejected", stats.CommandsRejected,
		"sample_failures", stats.SampleFailures,
	)
}

func (m *Monitor) open() error {
	if m.regions != nil {
		return nil
	}
	regions, err := openRegions(m.store, m.session.SessionID, m.bufferCells)
	if err != nil {
		return fmt.Errorf("monitor %s: %w", m.session.SessionID, err)
	}
	// Records present before this monitor opened the regions were
	// meant for a previous one.
	if stale := regions.discardCommands(); len(stale) > 0 {
		m.logger.Warn("discarded stale commands", "kinds", stale)
	}
	m.regions = regions
	return nil
}
