// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package region

// Store is a keyed set of regions.
type Store interface {
	// Open returns the named region, creating it with the given
	// payload capacity if it does not exist. Opening an existing
	// region smaller than capacity fails with ErrCapacity.
	Open(name string, capacity int) (*Region, error)

	// Lookup returns an existing region or ErrNotFound.
	Lookup(name string) (*Region, error)

	// Exists reports whether the named region has been created.
	Exists(name string) bool

	// Remove deletes the named region. Handles already returned stay
	// usable until the store is closed. Removing a missing region is
	// not an error.
	Remove(name string) error

	// Close releases every region handle the store returned.
	Close() error
}
