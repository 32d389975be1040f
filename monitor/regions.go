// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"fmt"

	"github.com/bureau-foundation/conmirror/command"
	"github.com/bureau-foundation/conmirror/region"
)

// regionSet holds the handles of one session's regions.
type regionSet struct {
	byKind map[region.Kind]*region.Region
}

func openRegions(store region.Store, session string, bufferCells int) (*regionSet, error) {
	set := &regionSet{byKind: make(map[region.Kind]*region.Region)}
	for _, spec := range region.Catalog(bufferCells) {
		name := region.Name(session, spec.Kind)
		handle, err := store.Open(name, spec.Capacity)
		if err != nil {
			return nil, fmt.Errorf("opening region %s: %w", name, err)
		}
		set.byKind[spec.Kind] = handle
	}
	return set, nil
}

func (s *regionSet) get(kind region.Kind) *region.Region {
	return s.byKind[kind]
}

// discardCommands clears command records left present by an earlier
// monitor of the same session and returns the kinds that had one.
func (s *regionSet) discardCommands() []region.Kind {
	var stale []region.Kind
	for _, kind := range command.Kinds {
		handle := s.get(kind)
		if handle.Pending() {
			handle.Discard()
			stale = append(stale, kind)
		}
	}
	return stale
}
