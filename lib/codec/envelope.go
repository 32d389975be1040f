// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the algorithm applied to an envelope body.
// The values are stored in shared memory; changing them breaks the
// region format.
type Compression uint8

const (
	// CompressionNone stores the CBOR body unchanged.
	CompressionNone Compression = 0

	// CompressionLZ4 uses LZ4 block compression. Cheap enough to run
	// on every publish.
	CompressionLZ4 Compression = 1

	// CompressionZstd uses zstd at the default level. Better ratios
	// on text.
	CompressionZstd Compression = 2
)

// String returns the algorithm name used in configuration and logs.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses an algorithm name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none", "":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

// CompressThreshold is the body size below which envelopes are never
// compressed.
const CompressThreshold = 512

// MaxBodySize bounds the decoded size claimed by an envelope header.
const MaxBodySize = 64 << 20

// ErrMalformedEnvelope is returned when an envelope header is
// truncated, names an unknown algorithm, or claims an oversized body.
var ErrMalformedEnvelope = errors.New("codec: malformed envelope")

var errIncompressible = errors.New("codec: body is incompressible")

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("codec: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("codec: zstd decoder initialization failed: " + err.Error())
	}
}

// Encode marshals v to CBOR and wraps it in an envelope, compressing
// the body with preferred when it is large enough and compression
// pays off.
func Encode(v any, preferred Compression) ([]byte, error) {
	body, err := Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	tag := CompressionNone
	stored := body
	if len(body) >= CompressThreshold && preferred != CompressionNone {
		compressed, err := compress(body, preferred)
		switch {
		case err == nil:
			tag, stored = preferred, compressed
		case errors.Is(err, errIncompressible):
		default:
			return nil, err
		}
	}

	envelope := make([]byte, 1, 1+binary.MaxVarintLen64+len(stored))
	envelope[0] = byte(tag)
	envelope = binary.AppendUvarint(envelope, uint64(len(body)))
	return append(envelope, stored...), nil
}

// Decode unwraps an envelope produced by Encode and unmarshals the
// CBOR body into v.
func Decode(envelope []byte, v any) error {
	if len(envelope) < 2 {
		return fmt.Errorf("%w: %d bytes", ErrMalformedEnvelope, len(envelope))
	}
	tag := Compression(envelope[0])
	size, read := binary.Uvarint(envelope[1:])
	if read <= 0 || size > MaxBodySize {
		return fmt.Errorf("%w: bad length header", ErrMalformedEnvelope)
	}
	stored := envelope[1+read:]

	body, err := decompress(stored, tag, int(size))
	if err != nil {
		return err
	}
	if err := Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	return nil
}

func compress(body []byte, tag Compression) ([]byte, error) {
	switch tag {
	case CompressionLZ4:
		destination := make([]byte, lz4.CompressBlockBound(len(body)))
		written, err := lz4.CompressBlock(body, destination, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		// CompressBlock reports 0 for incompressible input.
		if written == 0 || written >= len(body) {
			return nil, errIncompressible
		}
		return destination[:written], nil

	case CompressionZstd:
		compressed := zstdEncoder.EncodeAll(body, nil)
		if len(compressed) >= len(body) {
			return nil, errIncompressible
		}
		return compressed, nil

	default:
		return nil, fmt.Errorf("unsupported compression %s", tag)
	}
}

func decompress(stored []byte, tag Compression, size int) ([]byte, error) {
	switch tag {
	case CompressionNone:
		if len(stored) != size {
			return nil, fmt.Errorf("%w: body is %d bytes, header says %d",
				ErrMalformedEnvelope, len(stored), size)
		}
		return stored, nil

	case CompressionLZ4:
		destination := make([]byte, size)
		read, err := lz4.UncompressBlock(stored, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
		}
		return destination, nil

	case CompressionZstd:
		destination, err := zstdDecoder.DecodeAll(stored, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(destination) != size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(destination), size)
		}
		return destination, nil

	default:
		return nil, fmt.Errorf("%w: unknown compression tag %d", ErrMalformedEnvelope, uint8(tag))
	}
}
