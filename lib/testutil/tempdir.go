// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"testing"
)

// ShortDir creates a temporary directory directly under /tmp and
// removes it when the test completes.
func ShortDir(t *testing.T) string {
	t.Helper()
	directory, err := os.MkdirTemp("/tmp", "conmirror-test-*")
	if err != nil {
		t.Fatalf("creating short temp directory: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(directory)
	})
	return directory
}
