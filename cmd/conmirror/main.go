// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Conmirror is the controller side of a mirrored console: it reads the
// regions a conmirror-monitor publishes and posts commands to them.
//
//	conmirror dump --session work
//	conmirror paste --session work 'make test'
//	conmirror resize --session work 120 40
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/conmirror/cmd/conmirror/cli"
	"github.com/bureau-foundation/conmirror/lib/process"
)

const programName = "conmirror"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newApp(os.Stdout, os.Stderr).root().Execute(ctx, os.Args[1:])
	stop()

	var toolErr *cli.ToolError
	if errors.As(err, &toolErr) {
		fmt.Fprintf(os.Stderr, "%s: error: %v\n", programName, err)
		os.Exit(toolErr.Status())
	}
	process.Exit(programName, err)
}
