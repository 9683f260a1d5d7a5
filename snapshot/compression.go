package snapshot

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the block codec of a snapshot.
type Compression uint8

const (
	// CompressionNone stores slots verbatim.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD (better ratio).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

func (c Compression) valid() bool {
	return c <= CompressionZSTD
}

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("snapshot: unknown compression %q", s)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	return dec
}

// blockHeader precedes every slot payload.
// Format: [RawSize uint32][StoredSize uint32][Checksum uint32]
type blockHeader struct {
	RawSize    uint32
	StoredSize uint32 // 0 means the payload is raw
	Checksum   uint32
}

const blockHeaderSize = 12

func (h blockHeader) marshal(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], h.RawSize)
	binary.LittleEndian.PutUint32(b[4:], h.StoredSize)
	binary.LittleEndian.PutUint32(b[8:], h.Checksum)
}

func unmarshalBlockHeader(b []byte) blockHeader {
	return blockHeader{
		RawSize:    binary.LittleEndian.Uint32(b[0:]),
		StoredSize: binary.LittleEndian.Uint32(b[4:]),
		Checksum:   binary.LittleEndian.Uint32(b[8:]),
	}
}

// payloadSize returns the number of bytes following the header.
func (h blockHeader) payloadSize() uint32 {
	if h.StoredSize == 0 {
		return h.RawSize
	}
	return h.StoredSize
}

// blockEncoder compresses slots, reusing its scratch space between calls.
// It is not safe for concurrent use.
type blockEncoder struct {
	compression Compression
	lz4         lz4.Compressor
	scratch     []byte
}

// encode returns the stored payload and its size for the header. A stored
// size of 0 means compression did not pay off and data itself is returned.
func (e *blockEncoder) encode(data []byte) ([]byte, uint32, error) {
	if e.compression == CompressionNone || len(data) == 0 {
		return data, 0, nil
	}

	var compressed []byte

	switch e.compression {
	case CompressionLZ4:
		bound := lz4.CompressBlockBound(len(data))
		if cap(e.scratch) < bound {
			e.scratch = make([]byte, bound)
		}
		n, err := e.lz4.CompressBlock(data, e.scratch[:bound])
		if err != nil {
			return nil, 0, err
		}
		compressed = e.scratch[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, e.scratch[:0])
		zstdEncoderPool.Put(enc)
		e.scratch = compressed[:0]
	default:
		return nil, 0, fmt.Errorf("snapshot: unsupported compression %s", e.compression)
	}

	// Keep the raw slot unless compression saves at least 10%.
	if len(compressed) == 0 || len(compressed) > len(data)*9/10 {
		return data, 0, nil
	}
	return compressed, uint32(len(compressed)), nil
}

// decodeBlock decompresses payload into dst, which must have the raw size.
func decodeBlock(dst, payload []byte, h blockHeader, c Compression) error {
	if h.StoredSize == 0 {
		copy(dst, payload)
		return nil
	}

	switch c {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(payload, dst)
		if err != nil {
			return fmt.Errorf("%w: lz4: %w", ErrCorrupt, err)
		}
		if n != len(dst) {
			return fmt.Errorf("%w: decompressed %d bytes, want %d", ErrCorrupt, n, len(dst))
		}
	case CompressionZSTD:
		dec := getZstdDecoder()
		decoded, err := dec.DecodeAll(payload, dst[:0])
		zstdDecoderPool.Put(dec)
		if err != nil {
			return fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
		}
		if len(decoded) != len(dst) {
			return fmt.Errorf("%w: decompressed %d bytes, want %d", ErrCorrupt, len(decoded), len(dst))
		}
		if &decoded[0] != &dst[0] {
			copy(dst, decoded)
		}
	default:
		return fmt.Errorf("%w: compressed block in %s snapshot", ErrCorrupt, c)
	}
	return nil
}
