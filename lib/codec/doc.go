// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration and the
// region payload envelope shared by the monitor and the controller.
//
// Every structured region payload (params, screen info, cursor info,
// buffer info, copy info, and all command records) is CBOR encoded with
// Core Deterministic Encoding (RFC 8949 §4.2) so the same logical
// record always produces identical bytes. The cell grid in the buffer
// region is the one exception: it is a fixed binary layout that the
// monitor patches in place.
//
// Region payloads are wrapped in an envelope before they are written:
//
//	+-----+-----------------+------------------------+
//	| tag | uvarint length  | body (maybe compressed) |
//	+-----+-----------------+------------------------+
//
// The tag names the compression applied to the body and the length is
// the size of the CBOR encoding before compression. Bodies smaller than
// [CompressThreshold] are stored as-is. Larger bodies are compressed
// with the caller's preferred algorithm: lz4 for records that change
// every cycle, zstd for text-heavy records like copied selections and
// pasted text. If compression does not shrink the body, it is stored
// uncompressed.
//
// Types serialized here carry `cbor` struct tags. They never appear in
// JSON.
package codec
