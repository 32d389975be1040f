// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package region

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// DefaultMappedDirectory is where MappedStore keeps region files when
// the configuration does not name a directory. /dev/shm is tmpfs, so
// the files never touch disk.
const DefaultMappedDirectory = "/dev/shm/conmirror"

// MappedStore backs each region with a file mapped MAP_SHARED. Any
// process that maps the same file sees the same bytes.
type MappedStore struct {
	directory string

	mutex    sync.Mutex
	mappings map[string]*Region
	closed   bool
}

// NewMappedStore returns a store rooted at directory, creating the
// directory with mode 0700 if it does not exist.
func NewMappedStore(directory string) (*MappedStore, error) {
	if directory == "" {
		directory = DefaultMappedDirectory
	}
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return nil, fmt.Errorf("creating region directory %s: %w", directory, err)
	}
	return &MappedStore{
		directory: directory,
		mappings:  make(map[string]*Region),
	}, nil
}

// Directory returns the directory holding the region files.
func (s *MappedStore) Directory() string { return s.directory }

func (s *MappedStore) path(name string) string {
	return filepath.Join(s.directory, name)
}

// Open maps the named region, creating and sizing its file if needed.
func (s *MappedStore) Open(name string, capacity int) (*Region, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("region %s: capacity must be positive, got %d", name, capacity)
	}
	return s.open(name, capacity, true)
}

// Lookup maps an existing region file.
func (s *MappedStore) Lookup(name string) (*Region, error) {
	return s.open(name, 0, false)
}

func (s *MappedStore) open(name string, capacity int, create bool) (*Region, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if existing, ok := s.mappings[name]; ok {
		if existing.capacity < capacity {
			return nil, fmt.Errorf("%w: %s has %d bytes, want %d", ErrCapacity, name, existing.capacity, capacity)
		}
		return existing, nil
	}

	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	file, err := os.OpenFile(s.path(name), flags, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("opening region file %s: %w", name, err)
	}
	// The mapping outlives the descriptor.
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat region file %s: %w", name, err)
	}
	size := int(info.Size())
	switch {
	case size == 0 && create:
		size = HeaderSize + capacity
		if err := file.Truncate(int64(size)); err != nil {
			return nil, fmt.Errorf("sizing region file %s: %w", name, err)
		}
	case size == 0:
		return nil, fmt.Errorf("%w: %s is still being created", ErrNotFound, name)
	case size < HeaderSize+capacity:
		return nil, fmt.Errorf("%w: %s has %d bytes, want %d", ErrCapacity, name, size-HeaderSize, capacity)
	}

	memory, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap region file %s: %w", name, err)
	}

	mapped, err := newRegion(name, memory)
	if err != nil {
		unix.Munmap(memory)
		return nil, err
	}
	s.mappings[name] = mapped
	return mapped, nil
}

// Exists reports whether the region file exists.
func (s *MappedStore) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

// Remove unlinks the region file. Existing mappings stay valid until
// Close.
func (s *MappedStore) Remove(name string) error {
	if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing region file %s: %w", name, err)
	}
	return nil
}

// Close unmaps every region. Handles returned earlier must not be
// used afterwards.
func (s *MappedStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	for name, mapped := range s.mappings {
		if err := unix.Munmap(mapped.memory); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("munmap region %s: %w", name, err)
		}
	}
	s.mappings = nil
	return firstErr
}
