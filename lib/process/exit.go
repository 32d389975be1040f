// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"os"
)

// Fatal writes "<program>: error: err" to stderr and exits with code 1.
func Fatal(program string, err error) {
	fmt.Fprintf(os.Stderr, "%s: error: %v\n", program, err)
	os.Exit(1)
}

// ExitCoder is implemented by errors that carry their own exit status.
type ExitCoder interface {
	ExitCode() int
}

// Exit terminates the process for err. Nil exits 0, an ExitCoder exits
// with its own code without printing, anything else goes to Fatal.
func Exit(program string, err error) {
	if err == nil {
		os.Exit(0)
	}
	if coder, ok := err.(ExitCoder); ok {
		os.Exit(coder.ExitCode())
	}
	Fatal(program, err)
}
