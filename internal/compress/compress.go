// Package compress implements the block codec used by slot map snapshots.
//
// A block is [UncompressedSize uint32][CompressedSize uint32][Data...], little
// endian. CompressedSize 0 means the data is stored raw, which happens when
// compression is disabled or does not pay for itself.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm used.
type Type uint8

const (
	// None stores blocks uncompressed.
	None Type = 0
	// LZ4 uses LZ4 block compression (fast).
	LZ4 Type = 1
	// ZSTD uses ZSTD compression (better ratio).
	ZSTD Type = 2
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compress.Type(%d)", uint8(t))
	}
}

// HeaderSize is the size of the block header in bytes.
const HeaderSize = 8

// Upper bounds on the expansion each codec can produce from one stored byte,
// plus slack for a trailing partial block. A header claiming more is corrupt.
// An LZ4 length byte adds at most 255 output bytes; a ZSTD RLE block turns
// four stored bytes into at most 128 KiB.
const (
	maxLZ4Ratio   = 255
	maxZSTDRatio  = 32 << 10
	maxRatioSlack = 128 << 10
)

var (
	// ErrUnknownType is returned for an unsupported compression type.
	ErrUnknownType = errors.New("compress: unknown type")
	// ErrCorrupt is returned when a block fails structural checks.
	ErrCorrupt = errors.New("compress: corrupt block")
	// ErrTooLarge is returned for inputs that do not fit the uint32 header.
	ErrTooLarge = errors.New("compress: block too large")
)

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecodeAllCapLimit(true))
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Encode compresses data into a block using the given algorithm.
func Encode(data []byte, t Type) ([]byte, error) {
	if uint64(len(data)) > math.MaxUint32 {
		return nil, ErrTooLarge
	}

	var compressed []byte
	var err error

	switch t {
	case None:
	case LZ4:
		compressed, err = encodeLZ4(data)
	case ZSTD:
		compressed, err = encodeZSTD(data)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
	if err != nil {
		return nil, err
	}

	// If compression doesn't help (ratio > 0.9), store raw
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		compressed = nil
	}

	payload := data
	if compressed != nil {
		payload = compressed
	}

	result := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(result[4:], uint32(len(compressed)))
	copy(result[HeaderSize:], payload)
	return result, nil
}

func encodeLZ4(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))

	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // Incompressible
	}
	return compressed[:n], nil
}

func encodeZSTD(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	enc, err := getZstdEncoder()
	if err != nil {
		return nil, err
	}
	defer putZstdEncoder(enc)

	return enc.EncodeAll(data, nil), nil
}

// Sizes returns the uncompressed and stored payload sizes from a block header.
func Sizes(header []byte) (uncompressed, stored uint32, err error) {
	if len(header) < HeaderSize {
		return 0, 0, fmt.Errorf("%w: header too small", ErrCorrupt)
	}
	uncompressed = binary.LittleEndian.Uint32(header[0:])
	stored = binary.LittleEndian.Uint32(header[4:])
	if stored == 0 {
		stored = uncompressed
	}
	return uncompressed, stored, nil
}

// Decode decompresses a block produced by Encode with the same type.
func Decode(block []byte, t Type) ([]byte, error) {
	uncompressedSize, storedSize, err := Sizes(block)
	if err != nil {
		return nil, err
	}
	if uint64(len(block)) < uint64(HeaderSize)+uint64(storedSize) {
		return nil, fmt.Errorf("%w: block data too small", ErrCorrupt)
	}
	data := block[HeaderSize : HeaderSize+int(storedSize)]

	if binary.LittleEndian.Uint32(block[4:]) == 0 {
		return data, nil
	}

	// The header is untrusted; bound the output buffer by what the stored
	// bytes could possibly expand to before allocating it.
	var ratio uint64
	switch t {
	case LZ4:
		ratio = maxLZ4Ratio
	case ZSTD:
		ratio = maxZSTDRatio
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
	if uint64(uncompressedSize) > uint64(storedSize)*ratio+maxRatioSlack {
		return nil, fmt.Errorf("%w: %d bytes cannot expand to %d with %s", ErrCorrupt, storedSize, uncompressedSize, t)
	}

	result := make([]byte, uncompressedSize)

	switch t {
	case LZ4:
		n, err := lz4.UncompressBlock(data, result)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if uint32(n) != uncompressedSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return result, nil

	case ZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer putZstdDecoder(dec)

		decoded, err := dec.DecodeAll(data, result[:0])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if uint32(len(decoded)) != uncompressedSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return decoded, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
}
