// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package region

import (
	"fmt"
	"sync"
	"unsafe"
)

// MemoryStore keeps regions in process memory. A monitor and a
// controller sharing one MemoryStore see the same bytes, which is how
// the package tests and the embedded mode exercise the protocol.
type MemoryStore struct {
	mutex   sync.Mutex
	regions map[string]*Region
	closed  bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{regions: make(map[string]*Region)}
}

// Open returns the named region, creating it if needed.
func (s *MemoryStore) Open(name string, capacity int) (*Region, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("region %s: capacity must be positive, got %d", name, capacity)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	if existing, ok := s.regions[name]; ok {
		if existing.capacity < capacity {
			return nil, fmt.Errorf("%w: %s has %d bytes, want %d", ErrCapacity, name, existing.capacity, capacity)
		}
		return existing, nil
	}

	created, err := newRegion(name, alignedBytes(HeaderSize+capacity))
	if err != nil {
		return nil, err
	}
	s.regions[name] = created
	return created, nil
}

// Lookup returns an existing region.
func (s *MemoryStore) Lookup(name string) (*Region, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	existing, ok := s.regions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return existing, nil
}

// Exists reports whether the region has been created.
func (s *MemoryStore) Exists(name string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	_, ok := s.regions[name]
	return ok
}

// Remove forgets the named region.
func (s *MemoryStore) Remove(name string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.regions, name)
	return nil
}

// Close marks the store closed. The memory itself is reclaimed by the
// garbage collector once the last handle is dropped.
func (s *MemoryStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.closed = true
	s.regions = make(map[string]*Region)
	return nil
}

// alignedBytes returns a zeroed byte slice of length size whose first
// byte is 8-byte aligned, so the header words can be used with
// sync/atomic.
func alignedBytes(size int) []byte {
	words := make([]uint64, (size+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size)
}
