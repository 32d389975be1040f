// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package region

import (
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"
)

// HeaderSize is the number of bytes before the payload in every region.
const HeaderSize = 64

const (
	magic = 0x47524d43 // "CMRG" little endian

	offsetMagic    = 0
	offsetCapacity = 4
	offsetSequence = 8
	offsetPresent  = 16
	offsetLength   = 20
)

// maxReadAttempts bounds how long a reader spins on a region that is
// being rewritten continuously.
const maxReadAttempts = 1 << 16

var (
	// ErrNotFound is returned by Store.Lookup for a region that has not
	// been created.
	ErrNotFound = errors.New("region: not found")

	// ErrTooLarge is returned when a payload exceeds the region
	// capacity.
	ErrTooLarge = errors.New("region: payload exceeds capacity")

	// ErrBusy is returned by Post while the previous command record
	// has not been consumed.
	ErrBusy = errors.New("region: previous record not yet consumed")

	// ErrContended is returned when a reader could not get a stable
	// copy of a state region.
	ErrContended = errors.New("region: writer did not settle")

	// ErrCorrupt is returned when a region's header does not carry the
	// expected magic or its capacity does not match the mapping.
	ErrCorrupt = errors.New("region: corrupt header")

	// ErrCapacity is returned when an existing region is smaller than
	// the capacity requested by Open.
	ErrCapacity = errors.New("region: existing region is smaller than requested")

	// ErrClosed is returned for operations on a closed store.
	ErrClosed = errors.New("region: store closed")
)

// Region is a named fixed-layout memory area. The methods on Region
// implement both access disciplines; which one applies is decided by
// the region's kind in the catalog, not by the type.
type Region struct {
	name     string
	memory   []byte
	capacity int
}

// newRegion wraps memory, initializing the header when it is blank and
// validating it otherwise. memory must be 8-byte aligned.
func newRegion(name string, memory []byte) (*Region, error) {
	if len(memory) < HeaderSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrCorrupt, name, len(memory))
	}
	capacity := len(memory) - HeaderSize

	switch binary.LittleEndian.Uint32(memory[offsetMagic:]) {
	case 0:
		binary.LittleEndian.PutUint32(memory[offsetCapacity:], uint32(capacity))
		binary.LittleEndian.PutUint32(memory[offsetMagic:], magic)
	case magic:
		if stored := int(binary.LittleEndian.Uint32(memory[offsetCapacity:])); stored != capacity {
			return nil, fmt.Errorf("%w: %s header says %d bytes, mapping has %d", ErrCorrupt, name, stored, capacity)
		}
	default:
		return nil, fmt.Errorf("%w: %s has bad magic", ErrCorrupt, name)
	}

	return &Region{name: name, memory: memory, capacity: capacity}, nil
}

// Name returns the region's full name.
func (r *Region) Name() string { return r.name }

// Capacity returns the number of payload bytes the region holds.
func (r *Region) Capacity() int { return r.capacity }

func (r *Region) sequenceWord() *uint64 {
	return (*uint64)(unsafe.Pointer(&r.memory[offsetSequence]))
}

func (r *Region) presentWord() *uint32 {
	return (*uint32)(unsafe.Pointer(&r.memory[offsetPresent]))
}

func (r *Region) lengthWord() *uint32 {
	return (*uint32)(unsafe.Pointer(&r.memory[offsetLength]))
}

func (r *Region) payload() []byte {
	return r.memory[HeaderSize:]
}

// Sequence returns the region's current sequence. State regions start
// at zero and advance by two for every publish; command regions
// advance by one for every post.
func (r *Region) Sequence() uint64 {
	return atomic.LoadUint64(r.sequenceWord())
}

// Publish replaces the payload of a state region.
func (r *Region) Publish(payload []byte) error {
	if len(payload) > r.capacity {
		return fmt.Errorf("%w: %s holds %d bytes, payload is %d", ErrTooLarge, r.name, r.capacity, len(payload))
	}
	r.Update(func(buffer []byte) int {
		return copy(buffer, payload)
	})
	return nil
}

// Update rewrites a state region in place. write receives the full
// payload area and returns the new payload length. Readers that
// overlap the call retry. write must not fail part way: whatever it
// leaves in the buffer is published.
func (r *Region) Update(write func(payload []byte) int) {
	sequence := atomic.LoadUint64(r.sequenceWord())
	if sequence%2 == 1 {
		// A previous writer died mid-update. The payload is about to
		// be rewritten anyway.
		sequence++
	}
	atomic.StoreUint64(r.sequenceWord(), sequence+1)
	length := write(r.payload())
	if length < 0 || length > r.capacity {
		length = r.capacity
	}
	atomic.StoreUint32(r.lengthWord(), uint32(length))
	atomic.StoreUint64(r.sequenceWord(), sequence+2)
}

// Read copies a consistent payload out of a state region, reusing dst
// when it is large enough. A region that was never published returns
// a nil payload and sequence zero.
func (r *Region) Read(dst []byte) ([]byte, uint64, error) {
	var result []byte
	sequence, err := r.View(func(payload []byte) error {
		if cap(dst) < len(payload) {
			dst = make([]byte, len(payload))
		}
		result = dst[:len(payload)]
		copy(result, payload)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	if sequence == 0 {
		return nil, 0, nil
	}
	return result, sequence, nil
}

// View calls read with the live payload of a state region and retries
// until the call did not overlap a write. read must copy what it needs
// and must tolerate seeing garbage on attempts that are retried.
// Returns the sequence the accepted attempt observed.
func (r *Region) View(read func(payload []byte) error) (uint64, error) {
	for attempt := 0; attempt < maxReadAttempts; attempt++ {
		before := atomic.LoadUint64(r.sequenceWord())
		if before%2 == 1 {
			runtime.Gosched()
			continue
		}
		length := int(atomic.LoadUint32(r.lengthWord()))
		if length > r.capacity {
			length = r.capacity
		}
		readErr := read(r.payload()[:length])
		if atomic.LoadUint64(r.sequenceWord()) != before {
			runtime.Gosched()
			continue
		}
		return before, readErr
	}
	return 0, fmt.Errorf("%w: %s", ErrContended, r.name)
}

// Post writes a command record and marks it present.
func (r *Region) Post(payload []byte) error {
	if len(payload) > r.capacity {
		return fmt.Errorf("%w: %s holds %d bytes, payload is %d", ErrTooLarge, r.name, r.capacity, len(payload))
	}
	if atomic.LoadUint32(r.presentWord()) != 0 {
		return fmt.Errorf("%w: %s", ErrBusy, r.name)
	}
	copy(r.payload(), payload)
	atomic.StoreUint32(r.lengthWord(), uint32(len(payload)))
	atomic.AddUint64(r.sequenceWord(), 1)
	atomic.StoreUint32(r.presentWord(), 1)
	return nil
}

// Pending reports whether a command record is waiting to be taken.
func (r *Region) Pending() bool {
	return atomic.LoadUint32(r.presentWord()) != 0
}

// Take copies out a present command record and clears the present
// flag. sequence is the record's sequence, loaded before the flag is
// cleared so a following Post cannot be mistaken for it. ok is false
// when no record is waiting.
func (r *Region) Take(dst []byte) (payload []byte, sequence uint64, ok bool) {
	if atomic.LoadUint32(r.presentWord()) == 0 {
		return nil, 0, false
	}
	sequence = atomic.LoadUint64(r.sequenceWord())
	length := int(atomic.LoadUint32(r.lengthWord()))
	if length > r.capacity {
		length = r.capacity
	}
	if cap(dst) < length {
		dst = make([]byte, length)
	}
	payload = dst[:length]
	copy(payload, r.payload()[:length])
	atomic.StoreUint32(r.presentWord(), 0)
	return payload, sequence, true
}

// Discard clears a present command record without reading it.
func (r *Region) Discard() {
	atomic.StoreUint32(r.presentWord(), 0)
}
