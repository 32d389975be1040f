// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tmux provides a typed interface to tmux servers. conmirror
// uses it to sample and drive a pane: capture its text, read its
// geometry and cursor through display-message formats, inject keys, and
// resize or scroll it.
//
// The central type is Server, which represents a tmux server identified
// by its Unix socket path. All tmux commands go through Server, which
// injects the -S flag automatically. This makes it structurally
// impossible to accidentally target the wrong server or forget to
// specify a socket.
package tmux

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Server represents a tmux server identified by its Unix socket path.
type Server struct {
	socketPath string
	configFile string // passed as "-f <path>" on new-session; empty = tmux default
}

// NewServer returns a Server that targets the given socket path.
//
// configFile controls which configuration file tmux loads when the server
// starts (which happens on the first new-session call). Pass "/dev/null"
// to prevent loading the user's ~/.tmux.conf; all tests do. If
// configFile is empty, tmux uses its default config resolution.
func NewServer(socketPath, configFile string) *Server {
	return &Server{
		socketPath: socketPath,
		configFile: configFile,
	}
}

// SocketPath returns the Unix socket path that identifies this server.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// NewSession creates a detached tmux session on this server. If command
// is non-empty, the session runs that command instead of the default
// shell. width and height set the initial window size when positive.
//
// The -f flag (config file) is passed on new-session because this command
// may start the server if it isn't already running.
func (s *Server) NewSession(sessionName string, width, height int, command ...string) error {
	args := s.newSessionArgs(sessionName, width, height)
	args = append(args, command...)
	cmd := exec.Command("tmux", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("tmux new-session %q: %w (%s)",
			sessionName, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// newSessionArgs builds the argument list for a new-session command,
// including -f (config), -S (socket), -d -s (detached, named) and the
// optional -x/-y size.
func (s *Server) newSessionArgs(sessionName string, width, height int) []string {
	var args []string
	if s.configFile != "" {
		args = append(args, "-f", s.configFile)
	}
	args = append(args, "-S", s.socketPath, "new-session", "-d", "-s", sessionName)
	if width > 0 {
		args = append(args, "-x", strconv.Itoa(width))
	}
	if height > 0 {
		args = append(args, "-y", strconv.Itoa(height))
	}
	return args
}

// HasSession reports whether a session with the given name exists on
// this server. Returns false if the server is not running.
func (s *Server) HasSession(sessionName string) bool {
	cmd := exec.Command("tmux", "-S", s.socketPath, "has-session", "-t", sessionName)
	return cmd.Run() == nil
}

// KillSession terminates a specific session. Returns nil if the session
// was already gone or the server was not running.
func (s *Server) KillSession(sessionName string) error {
	cmd := exec.Command("tmux", "-S", s.socketPath, "kill-session", "-t", sessionName)
	output, err := cmd.CombinedOutput()
	if err != nil {
		outputString := strings.TrimSpace(string(output))
		if strings.Contains(outputString, "can't find session") ||
			strings.Contains(outputString, "no server running") {
			return nil
		}
		return fmt.Errorf("tmux kill-session %q: %w (%s)",
			sessionName, err, outputString)
	}
	return nil
}

// KillServer terminates the entire tmux server, stopping all sessions.
// Returns nil if the server was already stopped.
func (s *Server) KillServer() error {
	cmd := exec.Command("tmux", "-S", s.socketPath, "kill-server")
	output, err := cmd.CombinedOutput()
	if err != nil {
		outputString := strings.TrimSpace(string(output))
		// "server exited unexpectedly" appears when the socket file
		// lingers briefly after the server process has exited.
		if strings.Contains(outputString, "no server running") ||
			strings.Contains(outputString, "server exited unexpectedly") {
			return nil
		}
		return fmt.Errorf("tmux kill-server: %w (%s)", err, outputString)
	}
	return nil
}

// SetOption sets a tmux option on this server. If sessionName is empty,
// the option is set globally (-g) and applies to all sessions.
func (s *Server) SetOption(sessionName, key, value string) error {
	var args []string
	if sessionName == "" {
		args = []string{"set-option", "-g", key, value}
	} else {
		args = []string{"set-option", "-t", sessionName, key, value}
	}
	if _, err := s.Run(context.Background(), args...); err != nil {
		return fmt.Errorf("setting %q=%q (session %q): %w", key, value, sessionName, err)
	}
	return nil
}

// Run executes a tmux subcommand on this server and returns the
// combined output. When ctx is cancelled the tmux client is killed.
//
// The -S flag is automatically prepended. Callers provide only the
// subcommand and its arguments:
//
//	output, err := server.Run(ctx, "list-panes", "-t", session, "-F", "#{pane_index}")
func (s *Server) Run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-S", s.socketPath}, args...)
	cmd := exec.CommandContext(ctx, "tmux", fullArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("tmux %s: %w", args[0], ctx.Err())
		}
		return "", fmt.Errorf("tmux %s: %w (%s)",
			strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// DisplayMessage expands a tmux format string against target and
// returns the result without the trailing newline.
func (s *Server) DisplayMessage(ctx context.Context, target, format string) (string, error) {
	output, err := s.Run(ctx, "display-message", "-t", target, "-p", format)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(output, "\n"), nil
}

// DisplayFields expands a space-separated list of format variables and
// parses each as an integer. Empty fields parse as zero.
func (s *Server) DisplayFields(ctx context.Context, target string, variables ...string) ([]int, error) {
	formats := make([]string, len(variables))
	for i, variable := range variables {
		formats[i] = "#{" + variable + "}"
	}
	output, err := s.DisplayMessage(ctx, target, strings.Join(formats, " "))
	if err != nil {
		return nil, err
	}
	// Empty values collapse into runs of spaces, so split on single
	// spaces rather than strings.Fields.
	parts := strings.Split(output, " ")
	if len(parts) != len(variables) {
		return nil, fmt.Errorf("display-message returned %d fields for %d variables: %q", len(parts), len(variables), output)
	}
	values := make([]int, len(parts))
	for i, part := range parts {
		if part == "" {
			continue
		}
		value, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("parsing %s %q: %w", variables[i], part, err)
		}
		values[i] = value
	}
	return values, nil
}

// CapturePane returns the text of lines start through end of target's
// pane, one line per row with trailing spaces preserved. Line 0 is the
// top visible row; negative lines are history.
func (s *Server) CapturePane(ctx context.Context, target string, start, end int) ([]string, error) {
	output, err := s.Run(ctx, "capture-pane", "-t", target, "-p", "-N",
		"-S", strconv.Itoa(start), "-E", strconv.Itoa(end))
	if err != nil {
		return nil, err
	}
	output = strings.TrimSuffix(output, "\n")
	return strings.Split(output, "\n"), nil
}

// SendLiteral types text into target's pane without key name lookup.
func (s *Server) SendLiteral(ctx context.Context, target, text string) error {
	_, err := s.Run(ctx, "send-keys", "-t", target, "-l", "--", text)
	return err
}

// SendKeys sends named keys (Enter, Tab, BSpace, Up, ...) to target,
// each repeated count times.
func (s *Server) SendKeys(ctx context.Context, target string, count int, keys ...string) error {
	args := []string{"send-keys", "-t", target}
	if count > 1 {
		args = append(args, "-N", strconv.Itoa(count))
	}
	args = append(args, keys...)
	_, err := s.Run(ctx, args...)
	return err
}

// CopyModeScroll puts target into copy mode scrolled lines rows above
// the bottom of its history. Zero leaves copy mode.
func (s *Server) CopyModeScroll(ctx context.Context, target string, lines int) error {
	if lines <= 0 {
		// Exiting copy mode on a pane that is not in it is harmless.
		_, err := s.Run(ctx, "send-keys", "-t", target, "-X", "cancel")
		if err != nil && strings.Contains(err.Error(), "not in a mode") {
			return nil
		}
		return err
	}
	if _, err := s.Run(ctx, "copy-mode", "-t", target); err != nil {
		return err
	}
	if _, err := s.Run(ctx, "send-keys", "-t", target, "-X", "history-bottom"); err != nil {
		return err
	}
	_, err := s.Run(ctx, "send-keys", "-t", target, "-X", "-N", strconv.Itoa(lines), "scroll-up")
	return err
}

// ResizeWindow sets the size of the window containing target.
func (s *Server) ResizeWindow(ctx context.Context, target string, width, height int) error {
	_, err := s.Run(ctx, "resize-window", "-t", target,
		"-x", strconv.Itoa(width), "-y", strconv.Itoa(height))
	return err
}

// PanePID returns the process ID of the command running in target's
// pane.
func (s *Server) PanePID(ctx context.Context, target string) (int, error) {
	output, err := s.DisplayMessage(ctx, target, "#{pane_pid}")
	if err != nil {
		return 0, fmt.Errorf("getting pane PID: %w", err)
	}
	pid, parseErr := strconv.Atoi(strings.TrimSpace(output))
	if parseErr != nil {
		return 0, fmt.Errorf("parsing pane PID %q: %w", strings.TrimSpace(output), parseErr)
	}
	return pid, nil
}
