// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/conmirror/cmd/conmirror/cli"
	"github.com/bureau-foundation/conmirror/command"
	"github.com/bureau-foundation/conmirror/controller"
	"github.com/bureau-foundation/conmirror/geometry"
	"github.com/bureau-foundation/conmirror/lib/version"
	"github.com/bureau-foundation/conmirror/monitor"
	"github.com/bureau-foundation/conmirror/screendiff"
)

// copyPollInterval is how often copy --wait checks for the result.
const copyPollInterval = 10 * time.Millisecond

func (a *app) root() *cli.Command {
	return &cli.Command{
		Name:        programName,
		Description: "Inspect and drive a console mirrored by conmirror-monitor.",
		HelpOutput:  a.stderr,
		Subcommands: []*cli.Command{
			a.dumpCommand(),
			a.infoCommand(),
			a.pasteCommand(),
			a.resizeCommand(),
			a.scrollCommand(),
			a.mouseCommand(),
			a.keyResetCommand(),
			a.copyCommand(),
			a.versionCommand(),
		},
	}
}

func (a *app) dumpCommand() *cli.Command {
	var (
		session sessionFlags
		color   string
		width   int
		watch   time.Duration
	)
	return &cli.Command{
		Name:    "dump",
		Summary: "Print the mirrored screen",
		Description: `Reconstruct the console's read area from the published regions and
print it. With --watch, keep refreshing and print the screen again
every time it changes.`,
		Usage: "conmirror dump [flags]",
		Examples: []cli.Example{
			{Description: "Print the screen with colors", Command: "conmirror dump -s work --color"},
			{Description: "Follow the screen", Command: "conmirror dump -s work --watch 200ms"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("dump", pflag.ContinueOnError)
			session.register(flagSet)
			flagSet.StringVar(&color, "color", "auto", "render cell attributes as ANSI colors: auto, always or never")
			flagSet.Lookup("color").NoOptDefVal = "always"
			flagSet.IntVar(&width, "width", cli.TerminalWidth(a.stdout), "truncate lines to this many columns (0 disables)")
			flagSet.DurationVar(&watch, "watch", 0, "refresh at this interval until interrupted")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 0 {
				return cli.Validation("dump takes no arguments, got %q", args)
			}
			if width < 0 {
				return cli.Validation("--width must not be negative")
			}
			if watch < 0 {
				return cli.Validation("--watch must not be negative")
			}
			useColor, err := a.colorEnabled(color)
			if err != nil {
				return err
			}
			ctl, release, err := session.attach()
			if err != nil {
				return err
			}
			defer release()

			options := renderOptions{Color: useColor, Width: width}
			if watch == 0 {
				snapshot, _, err := refresh(ctl)
				if err != nil {
					return err
				}
				return writeLines(a.stdout, renderSnapshot(snapshot, options))
			}
			return a.watch(ctx, ctl, watch, options)
		},
	}
}

// colorEnabled resolves a --color mode. auto colors only when stdout
// is a terminal that supports color.
func (a *app) colorEnabled(mode string) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto":
		return lipgloss.NewRenderer(a.stdout).ColorProfile() != termenv.Ascii, nil
	default:
		return false, cli.Validation("--color %q: want auto, always or never", mode)
	}
}

// watch prints the screen every time its sequence advances. Refresh
// failures are logged and retried on the next tick.
func (a *app) watch(ctx context.Context, ctl *controller.Controller, interval time.Duration, options renderOptions) error {
	logger := cli.NewCommandLogger(slog.LevelInfo).With("session", ctl.Session())
	var shown uint64
	for {
		snapshot, delta, err := ctl.Refresh()
		switch {
		case errors.Is(err, controller.ErrNotPublished):
		case err != nil:
			logger.Warn("refresh failed", "error", err)
		case delta.Sequence != shown:
			shown = delta.Sequence
			fmt.Fprintf(a.stdout, "--- sequence %d ---\n", shown)
			if err := writeLines(a.stdout, renderSnapshot(snapshot, options)); err != nil {
				return cli.Internal("writing output: %w", err)
			}
		}

		timer := a.clock.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// refresh brings the controller's snapshot up to date and classifies
// the failure modes.
func refresh(ctl *controller.Controller) (screendiff.Snapshot, screendiff.Delta, error) {
	snapshot, delta, err := ctl.Refresh()
	switch {
	case err == nil:
		return snapshot, delta, nil
	case errors.Is(err, controller.ErrNotPublished):
		return snapshot, delta, cli.Transient("the monitor has not published a screen yet").
			WithHint("Retry once the monitor has completed its first cycle.")
	case errors.Is(err, controller.ErrDesync):
		return snapshot, delta, cli.Transient("%w", err)
	default:
		return snapshot, delta, cli.Internal("%w", err)
	}
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// sessionInfo is the --json output of info.
type sessionInfo struct {
	Session       string `json:"session"`
	State         string `json:"state"`
	ProcessID     int    `json:"pid"`
	OwnerThreadID uint32 `json:"owner_thread_id"`
	IntervalMS    int64  `json:"interval_ms"`
	BufferColumns int    `json:"buffer_columns"`
	BufferRows    int    `json:"buffer_rows"`
	WindowLeft    int    `json:"window_left"`
	WindowTop     int    `json:"window_top"`
	Columns       int    `json:"columns"`
	Rows          int    `json:"rows"`
	MaxColumns    int    `json:"max_columns"`
	MaxRows       int    `json:"max_rows"`
	BufferCells   int    `json:"buffer_cells"`
	CursorX       int    `json:"cursor_x"`
	CursorY       int    `json:"cursor_y"`
	CursorSize    int    `json:"cursor_size"`
	CursorVisible bool   `json:"cursor_visible"`
}

func (a *app) infoCommand() *cli.Command {
	var (
		session    sessionFlags
		jsonOutput bool
	)
	return &cli.Command{
		Name:    "info",
		Summary: "Show the monitor state and console geometry",
		Usage:   "conmirror info [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("info", pflag.ContinueOnError)
			session.register(flagSet)
			flagSet.BoolVar(&jsonOutput, "json", false, "print JSON")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 0 {
				return cli.Validation("info takes no arguments, got %q", args)
			}
			ctl, release, err := session.attach()
			if err != nil {
				return err
			}
			defer release()

			params, err := ctl.Params()
			if err != nil {
				return stateError("params", err)
			}
			screen, err := ctl.ScreenInfo()
			if err != nil && !errors.Is(err, controller.ErrNotPublished) {
				return stateError("screen info", err)
			}
			cursor, err := ctl.Cursor()
			if err != nil && !errors.Is(err, controller.ErrNotPublished) {
				return stateError("cursor info", err)
			}

			info := sessionInfo{
				Session:       params.SessionID,
				State:         string(params.State),
				ProcessID:     params.ProcessID,
				OwnerThreadID: params.OwnerThreadID,
				IntervalMS:    params.Interval.Milliseconds(),
				BufferColumns: screen.Size.X,
				BufferRows:    screen.Size.Y,
				WindowLeft:    screen.Window.Left,
				WindowTop:     screen.Window.Top,
				Columns:       screen.Window.Width(),
				Rows:          screen.Window.Height(),
				MaxColumns:    screen.MaximumWindowSize.X,
				MaxRows:       screen.MaximumWindowSize.Y,
				BufferCells:   params.BufferCells,
				CursorX:       cursor.Position.X,
				CursorY:       cursor.Position.Y,
				CursorSize:    cursor.Size,
				CursorVisible: cursor.Visible,
			}
			if jsonOutput {
				return cli.WriteJSON(a.stdout, info)
			}

			visibility := "hidden"
			if info.CursorVisible {
				visibility = "visible"
			}
			renderer := lipgloss.NewRenderer(a.stdout)
			label := renderer.NewStyle().Bold(true).Width(11)
			state := renderer.NewStyle()
			switch params.State {
			case monitor.StateRunning:
				state = state.Foreground(lipgloss.Color("2"))
			case monitor.StateStopped:
				state = state.Foreground(lipgloss.Color("1"))
			}
			rows := [][2]string{
				{"session:", info.Session},
				{"state:", state.Render(info.State)},
				{"pid:", fmt.Sprint(info.ProcessID)},
				{"owner:", fmt.Sprint(info.OwnerThreadID)},
				{"interval:", params.Interval.String()},
				{"buffer:", fmt.Sprintf("%dx%d (%d cells mirrored)", info.BufferColumns, info.BufferRows, info.BufferCells)},
				{"window:", fmt.Sprintf("%dx%d at %d,%d (max %dx%d)", info.Columns, info.Rows, info.WindowLeft, info.WindowTop, info.MaxColumns, info.MaxRows)},
				{"cursor:", fmt.Sprintf("%d,%d %d%% %s", info.CursorX, info.CursorY, info.CursorSize, visibility)},
			}
			for _, row := range rows {
				if _, err := fmt.Fprintln(a.stdout, label.Render(row[0])+row[1]); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func stateError(what string, err error) error {
	if errors.Is(err, controller.ErrNotPublished) {
		return cli.Transient("the monitor has not published %s yet", what)
	}
	return cli.Internal("reading %s: %w", what, err)
}

func (a *app) pasteCommand() *cli.Command {
	var (
		session sessionFlags
		file    string
	)
	return &cli.Command{
		Name:    "paste",
		Summary: "Type text into the console",
		Description: `Queue text as key events. Newlines become Enter. Pass "-" to read the
text from stdin, or --file to read it from a file.`,
		Usage: "conmirror paste [flags] <text | ->",
		Examples: []cli.Example{
			{Command: "conmirror paste -s work 'ls -la\n'"},
			{Description: "Paste a script", Command: "conmirror paste -s work --file setup.sh"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("paste", pflag.ContinueOnError)
			session.register(flagSet)
			flagSet.StringVarP(&file, "file", "f", "", "read the text from this file")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			var text string
			switch {
			case file != "" && len(args) == 0:
				data, err := os.ReadFile(file)
				if err != nil {
					return cli.Validation("reading %s: %w", file, err)
				}
				text = string(data)
			case file == "" && len(args) == 1 && args[0] == "-":
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return cli.Internal("reading stdin: %w", err)
				}
				text = string(data)
			case file == "" && len(args) == 1:
				text = args[0]
			default:
				return cli.Validation("paste takes exactly one of <text>, - or --file")
			}
			if text == "" {
				return cli.Validation("nothing to paste")
			}

			ctl, release, err := session.attach()
			if err != nil {
				return err
			}
			defer release()
			_, err = send(ctl, command.Paste{Text: text})
			return err
		},
	}
}

func (a *app) resizeCommand() *cli.Command {
	var (
		session sessionFlags
		edge    string
	)
	return &cli.Command{
		Name:    "resize",
		Summary: "Resize the console window",
		Description: `Request a new window size. The monitor clamps the request to the
console's limits. --edge picks which side of the window moves when the
size changes.`,
		Usage: "conmirror resize [flags] <columns> <rows>",
		Examples: []cli.Example{
			{Command: "conmirror resize -s work 120 40"},
			{Description: "Grow upwards, keeping the bottom row in place", Command: "conmirror resize -s work --edge top 80 50"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("resize", pflag.ContinueOnError)
			session.register(flagSet)
			flagSet.StringVar(&edge, "edge", "", "moving edge: left, right, top, bottom or a combination such as top,left")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			values, err := parseInts([]string{"columns", "rows"}, args)
			if err != nil {
				return err
			}
			if values[0] <= 0 || values[1] <= 0 {
				return cli.Validation("columns and rows must be positive")
			}
			parsedEdge, err := geometry.ParseEdge(edge)
			if err != nil {
				return cli.Validation("%w", err)
			}

			ctl, release, err := session.attach()
			if err != nil {
				return err
			}
			defer release()
			_, err = send(ctl, command.Resize{Columns: values[0], Rows: values[1], Edge: parsedEdge})
			return err
		},
	}
}

func (a *app) scrollCommand() *cli.Command {
	var session sessionFlags
	return &cli.Command{
		Name:        "scroll",
		Summary:     "Scroll the console window",
		Description: "Move the window over the screen buffer by dx columns and dy rows.",
		Usage:       "conmirror scroll [flags] <dx> <dy>",
		Examples: []cli.Example{
			{Description: "Scroll up ten rows", Command: "conmirror scroll -s work 0 -10"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("scroll", pflag.ContinueOnError)
			session.register(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			values, err := parseInts([]string{"dx", "dy"}, args)
			if err != nil {
				return err
			}
			ctl, release, err := session.attach()
			if err != nil {
				return err
			}
			defer release()
			_, err = send(ctl, command.Scroll{DeltaX: values[0], DeltaY: values[1]})
			return err
		},
	}
}

func (a *app) mouseCommand() *cli.Command {
	var (
		session     sessionFlags
		buttons     []string
		flags       []string
		controlKeys uint32
	)
	return &cli.Command{
		Name:    "mouse",
		Summary: "Send a mouse event",
		Description: `Send one mouse event at window-relative position x,y. The monitor
divides the position by the configured cell scale before mapping it
onto the buffer.`,
		Usage: "conmirror mouse [flags] <x> <y>",
		Examples: []cli.Example{
			{Description: "Left click", Command: "conmirror mouse -s work --buttons left 10 3"},
			{Description: "Release all buttons", Command: "conmirror mouse -s work 10 3"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("mouse", pflag.ContinueOnError)
			session.register(flagSet)
			flagSet.StringSliceVar(&buttons, "buttons", nil, "buttons held: left, right, middle, 4, 5")
			flagSet.StringSliceVar(&flags, "flags", nil, "event flags: moved, double, wheel, hwheel")
			flagSet.Uint32Var(&controlKeys, "control-keys", 0, "control key state bits")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			values, err := parseInts([]string{"x", "y"}, args)
			if err != nil {
				return err
			}
			buttonBits, err := parseBits("button", mouseButtonNames, buttons)
			if err != nil {
				return err
			}
			flagBits, err := parseBits("flag", mouseFlagNames, flags)
			if err != nil {
				return err
			}

			ctl, release, err := session.attach()
			if err != nil {
				return err
			}
			defer release()
			_, err = send(ctl, command.MouseEvent{
				Buttons:     buttonBits,
				X:           values[0],
				Y:           values[1],
				Flags:       flagBits,
				ControlKeys: controlKeys,
			})
			return err
		},
	}
}

func (a *app) keyResetCommand() *cli.Command {
	var (
		session sessionFlags
		count   int
	)
	return &cli.Command{
		Name:    "key-reset",
		Summary: "Release a stuck key",
		Description: `Send key-up events for a virtual key, for example after a controller
lost track of a modifier it pressed.`,
		Usage: "conmirror key-reset [flags] <key>",
		Examples: []cli.Example{
			{Command: "conmirror key-reset -s work shift"},
			{Command: "conmirror key-reset -s work --count 2 0x11"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("key-reset", pflag.ContinueOnError)
			session.register(flagSet)
			flagSet.IntVar(&count, "count", 1, "number of key-up events")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return cli.Validation("key-reset takes one key name or code")
			}
			key, err := parseVirtualKey(args[0])
			if err != nil {
				return err
			}
			if count <= 0 {
				return cli.Validation("--count must be positive")
			}
			ctl, release, err := session.attach()
			if err != nil {
				return err
			}
			defer release()
			_, err = send(ctl, command.KeyReset{VirtualKey: key, Count: count})
			return err
		},
	}
}

func (a *app) copyCommand() *cli.Command {
	var (
		session    sessionFlags
		start      string
		end        string
		block      bool
		trimSpaces bool
		lineFeed   bool
		wait       time.Duration
		jsonOutput bool
	)
	return &cli.Command{
		Name:    "copy",
		Summary: "Copy text out of the console",
		Description: `Ask the monitor to capture the text between two window-relative
positions and print it. Without --block the selection runs in reading
order from --start to --end; with --block the positions are opposite
corners of a rectangle.`,
		Usage: "conmirror copy [flags] --start x,y --end x,y",
		Examples: []cli.Example{
			{Command: "conmirror copy -s work --start 0,0 --end 79,2 --trim --lf"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("copy", pflag.ContinueOnError)
			session.register(flagSet)
			flagSet.StringVar(&start, "start", "", "first position, x,y")
			flagSet.StringVar(&end, "end", "", "last position, x,y")
			flagSet.BoolVar(&block, "block", false, "rectangular selection")
			flagSet.BoolVar(&trimSpaces, "trim", false, "trim trailing spaces from each line")
			flagSet.BoolVar(&lineFeed, "lf", false, "join lines with LF instead of CRLF")
			flagSet.DurationVar(&wait, "wait", 2*time.Second, "how long to wait for the monitor to answer")
			flagSet.BoolVar(&jsonOutput, "json", false, "print the selection rectangle and text as JSON")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 0 {
				return cli.Validation("copy takes no arguments, got %q", args)
			}
			if start == "" || end == "" {
				return cli.Validation("--start and --end are required")
			}
			startCoord, err := parseCoord(start)
			if err != nil {
				return err
			}
			endCoord, err := parseCoord(end)
			if err != nil {
				return err
			}
			if wait <= 0 {
				return cli.Validation("--wait must be positive")
			}
			newLine := command.NewLineCRLF
			if lineFeed {
				newLine = command.NewLineLF
			}

			ctl, release, err := session.attach()
			if err != nil {
				return err
			}
			defer release()

			sequence, err := send(ctl, command.Copy{
				Start:      startCoord,
				End:        endCoord,
				Block:      block,
				TrimSpaces: trimSpaces,
				NewLine:    newLine,
			})
			if err != nil {
				return err
			}
			selection, err := a.awaitCopy(ctx, ctl, sequence, wait)
			if err != nil {
				return err
			}
			if jsonOutput {
				return cli.WriteJSON(a.stdout, struct {
					Sequence uint64 `json:"sequence"`
					Left     int    `json:"left"`
					Top      int    `json:"top"`
					Right    int    `json:"right"`
					Bottom   int    `json:"bottom"`
					Block    bool   `json:"block"`
					Text     string `json:"text"`
				}{
					selection.Sequence,
					selection.Rect.Left, selection.Rect.Top, selection.Rect.Right, selection.Rect.Bottom,
					selection.Block, selection.Text,
				})
			}
			text := selection.Text
			if !strings.HasSuffix(text, newLine.String()) {
				text += newLine.String()
			}
			_, err = io.WriteString(a.stdout, text)
			return err
		},
	}
}

// awaitCopy polls for the selection answering the copy request posted
// with sequence.
func (a *app) awaitCopy(ctx context.Context, ctl *controller.Controller, sequence uint64, wait time.Duration) (command.Selection, error) {
	deadline := a.clock.Now().Add(wait)
	for {
		selection, ok, err := ctl.CopyResult(sequence)
		if err != nil {
			return command.Selection{}, cli.Internal("reading copy result: %w", err)
		}
		if ok {
			return selection, nil
		}
		if !a.clock.Now().Before(deadline) {
			return command.Selection{}, cli.Transient("no copy result after %s", wait).
				WithHint("The selection may lie outside the window, or the monitor may not be running.")
		}

		timer := a.clock.NewTimer(copyPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return command.Selection{}, cli.Transient("interrupted waiting for copy result")
		case <-timer.C:
		}
	}
}

func (a *app) versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Run: func(ctx context.Context, args []string) error {
			_, err := fmt.Fprintln(a.stdout, version.Full())
			return err
		},
	}
}
