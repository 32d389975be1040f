// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package region

import (
	"bytes"
	"errors"
	"testing"

	"github.com/bureau-foundation/conmirror/lib/testutil"
)

func TestPublishRead(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	defer store.Close()

	state, err := store.Open("conmirror.test.params", 64)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	payload, sequence, err := state.Read(nil)
	if err != nil {
		t.Fatalf("Read before publish: %v", err)
	}
	if payload != nil || sequence != 0 {
		t.Fatalf("Read before publish = (%q, %d), want (nil, 0)", payload, sequence)
	}

	if err := state.Publish([]byte("first")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := state.Publish([]byte("second")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	payload, sequence, err = state.Read(nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(payload) != "second" {
		t.Errorf("payload = %q, want %q", payload, "second")
	}
	if sequence != 4 {
		t.Errorf("sequence = %d, want 4", sequence)
	}
}

func TestPublishTooLarge(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	state, err := store.Open("conmirror.test.small", 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := state.Publish([]byte("too long")); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Publish error = %v, want ErrTooLarge", err)
	}
	if state.Sequence() != 0 {
		t.Errorf("rejected publish advanced sequence to %d", state.Sequence())
	}
}

func TestUpdateInPlace(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	grid, err := store.Open("conmirror.test.buffer", 16)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	grid.Update(func(payload []byte) int {
		copy(payload, "abcdefgh")
		return 8
	})
	grid.Update(func(payload []byte) int {
		payload[2] = 'X'
		return 8
	})

	payload, _, err := grid.Read(nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(payload) != "abXdefgh" {
		t.Errorf("payload = %q, want %q", payload, "abXdefgh")
	}
}

func TestUpdateRecoversFromTornWrite(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	state, err := store.Open("conmirror.test.torn", 16)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	// Simulate a writer that died between the two sequence stores.
	*state.sequenceWord() = 7

	if err := state.Publish([]byte("ok")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if sequence := state.Sequence(); sequence%2 != 0 {
		t.Fatalf("sequence %d is odd after publish", sequence)
	}
	payload, _, err := state.Read(nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(payload) != "ok" {
		t.Errorf("payload = %q, want %q", payload, "ok")
	}
}

func TestViewRetriesOverlappingWrite(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	state, err := store.Open("conmirror.test.overlap", 64)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := state.Publish([]byte("old")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	attempts := 0
	var seen string
	sequence, err := state.View(func(payload []byte) error {
		attempts++
		seen = string(payload)
		if attempts == 1 {
			// A write lands while the first attempt is reading.
			if err := state.Publish([]byte("new")); err != nil {
				t.Fatalf("Publish: %v", err)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if seen != "new" || sequence != 4 {
		t.Errorf("View saw (%q, %d), want (\"new\", 4)", seen, sequence)
	}
}

func TestViewContendedWhileWriting(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	state, err := store.Open("conmirror.test.stuck", 64)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	*state.sequenceWord() = 3

	_, err = state.View(func([]byte) error { return nil })
	if !errors.Is(err, ErrContended) {
		t.Fatalf("View error = %v, want ErrContended", err)
	}
}

func TestPostTake(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	command, err := store.Open("conmirror.test.new-size", 32)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, _, ok := command.Take(nil); ok {
		t.Fatal("Take on empty region returned a record")
	}
	if err := command.Post([]byte("one")); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if !command.Pending() {
		t.Fatal("Pending = false after Post")
	}
	if err := command.Post([]byte("two")); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Post error = %v, want ErrBusy", err)
	}

	payload, sequence, ok := command.Take(nil)
	if !ok || string(payload) != "one" || sequence != 1 {
		t.Fatalf("Take = (%q, %d, %v), want (\"one\", 1, true)", payload, sequence, ok)
	}
	if command.Pending() {
		t.Fatal("Pending = true after Take")
	}
	if _, _, ok := command.Take(nil); ok {
		t.Fatal("record taken twice")
	}

	if err := command.Post([]byte("two")); err != nil {
		t.Fatalf("Post after Take: %v", err)
	}
	command.Discard()
	if command.Pending() {
		t.Fatal("Pending = true after Discard")
	}
	if command.Sequence() != 2 {
		t.Errorf("sequence = %d, want 2", command.Sequence())
	}
}

func TestTakeReportsRecordSequence(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	command, err := store.Open("conmirror.test.copy-request", 32)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// A record posted right after a Take must not change the sequence
	// reported for the record that was taken.
	for round := range 3 {
		if err := command.Post([]byte{byte(round)}); err != nil {
			t.Fatalf("Post %d: %v", round, err)
		}
		want := command.Sequence()
		payload, sequence, ok := command.Take(nil)
		if !ok {
			t.Fatalf("Take %d: no record", round)
		}
		if err := command.Post([]byte{0xff}); err != nil {
			t.Fatalf("Post after Take %d: %v", round, err)
		}
		if sequence != want || payload[0] != byte(round) {
			t.Errorf("round %d: Take = (%v, %d), want ([%d], %d)", round, payload, sequence, round, want)
		}
		if command.Sequence() != want+1 {
			t.Errorf("round %d: region sequence = %d, want %d", round, command.Sequence(), want+1)
		}
		command.Discard()
	}
}

func TestMemoryStoreLookup(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if _, err := store.Lookup("conmirror.missing.params"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup missing error = %v, want ErrNotFound", err)
	}
	created, err := store.Open("conmirror.s.params", 64)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !store.Exists("conmirror.s.params") {
		t.Fatal("Exists = false after Open")
	}
	found, err := store.Lookup("conmirror.s.params")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if found != created {
		t.Error("Lookup returned a different handle")
	}
	if _, err := store.Open("conmirror.s.params", 128); !errors.Is(err, ErrCapacity) {
		t.Errorf("Open larger error = %v, want ErrCapacity", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := store.Open("conmirror.s.params", 64); !errors.Is(err, ErrClosed) {
		t.Errorf("Open after Close error = %v, want ErrClosed", err)
	}
}

func TestMappedStoreSharesMemory(t *testing.T) {
	t.Parallel()

	directory := testutil.ShortDir(t)
	writer, err := NewMappedStore(directory)
	if err != nil {
		t.Fatalf("NewMappedStore: %v", err)
	}
	defer writer.Close()
	reader, err := NewMappedStore(directory)
	if err != nil {
		t.Fatalf("NewMappedStore: %v", err)
	}
	defer reader.Close()

	name := Name("mapped", KindScreenInfo)
	if _, err := reader.Lookup(name); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup before create error = %v, want ErrNotFound", err)
	}

	state, err := writer.Open(name, SmallCapacity)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := state.Publish([]byte("shared")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	mirror, err := reader.Lookup(name)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if mirror.Capacity() != SmallCapacity {
		t.Errorf("Capacity = %d, want %d", mirror.Capacity(), SmallCapacity)
	}
	payload, sequence, err := mirror.Read(nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(payload) != "shared" || sequence != 2 {
		t.Errorf("Read = (%q, %d), want (\"shared\", 2)", payload, sequence)
	}

	if _, err := reader.Open(name, SmallCapacity*2); !errors.Is(err, ErrCapacity) {
		// reader already holds a mapping for name; the check runs
		// against the cached handle.
		t.Errorf("Open larger error = %v, want ErrCapacity", err)
	}
}

func TestCatalog(t *testing.T) {
	t.Parallel()

	specs := Catalog(100)
	if len(specs) != 12 {
		t.Fatalf("catalog has %d regions, want 12", len(specs))
	}
	seen := make(map[Kind]bool)
	for _, spec := range specs {
		if seen[spec.Kind] {
			t.Errorf("duplicate kind %s", spec.Kind)
		}
		seen[spec.Kind] = true
		if spec.Kind == KindBuffer && spec.Capacity != 100*CellSize {
			t.Errorf("buffer capacity = %d, want %d", spec.Capacity, 100*CellSize)
		}
	}
	if specs[0].Direction != MonitorToController || specs[len(specs)-1].Direction != ControllerToMonitor {
		t.Error("catalog is not ordered state regions first")
	}
}

func TestValidateSession(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id    string
		valid bool
	}{
		{"main", true},
		{"build_42-a", true},
		{"", false},
		{"has space", false},
		{"../escape", false},
		{string(bytes.Repeat([]byte("a"), 65)), false},
	}
	for _, test := range tests {
		err := ValidateSession(test.id)
		if (err == nil) != test.valid {
			t.Errorf("ValidateSession(%q) error = %v, want valid=%v", test.id, err, test.valid)
		}
	}
	if got := Name("main", KindBuffer); got != "conmirror.main.buffer" {
		t.Errorf("Name = %q", got)
	}
}
