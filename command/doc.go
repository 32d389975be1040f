// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package command defines the one-shot instructions a controller sends
// to a monitor and the Translator that carries them out against a
// console.
//
// Each command kind travels on its own command region as a CBOR record
// inside a lib/codec envelope. Decode turns a region payload back into
// a Command; Encode does the reverse for the controller. The Translator
// dispatches on the concrete type: text and key commands become key
// input records, mouse commands a single mouse record, resize and
// scroll commands go to the geometry tracker, and copy commands read a
// selection from the buffer.
//
// Commands are independent. A command that is malformed, out of range,
// or that the console cannot accept fails alone with an error wrapping
// ErrRejected or the console's error; it leaves no state behind for the
// next one.
package command
