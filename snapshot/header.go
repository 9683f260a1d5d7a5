package snapshot

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hupe1980/shmimg"
	"github.com/hupe1980/shmimg/internal/conv"
	"github.com/hupe1980/shmimg/internal/hash"
)

const (
	magic = "SHMS"

	// Version is the format version written by Save.
	Version uint16 = 1

	headerSize = 36
)

// Header describes a snapshot.
type Header struct {
	Version     uint16
	Compression Compression
	Layout      shmimg.Layout
}

func (h Header) marshal() ([]byte, error) {
	b := make([]byte, headerSize)
	copy(b, magic)
	binary.LittleEndian.PutUint16(b[4:], h.Version)
	b[6] = byte(h.Compression)

	l := h.Layout
	for i, v := range []int{l.Height, l.Width, l.Channels, l.ChannelByteWidth, l.GroupSize, l.GroupCount} {
		u, err := conv.IntToUint32(v)
		if err != nil {
			return nil, fmt.Errorf("snapshot: layout field %d: %w", i, err)
		}
		binary.LittleEndian.PutUint32(b[8+4*i:], u)
	}

	binary.LittleEndian.PutUint32(b[32:], hash.CRC32C(b[:32]))
	return b, nil
}

func readHeader(r io.Reader) (Header, error) {
	var b [headerSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return Header{}, fmt.Errorf("%w: header: %w", ErrCorrupt, err)
	}
	if string(b[:4]) != magic {
		return Header{}, fmt.Errorf("%w: bad magic %q", ErrCorrupt, b[:4])
	}
	if got, want := hash.CRC32C(b[:32]), binary.LittleEndian.Uint32(b[32:]); got != want {
		return Header{}, fmt.Errorf("%w: header crc %08x, want %08x", ErrChecksum, got, want)
	}

	h := Header{
		Version:     binary.LittleEndian.Uint16(b[4:]),
		Compression: Compression(b[6]),
	}
	if h.Version == 0 || h.Version > Version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if !h.Compression.valid() {
		return Header{}, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, b[6])
	}

	var fields [6]int
	for i := range fields {
		v, err := conv.Uint32ToInt(binary.LittleEndian.Uint32(b[8+4*i:]))
		if err != nil {
			return Header{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		fields[i] = v
	}
	h.Layout = shmimg.Layout{
		Height:           fields[0],
		Width:            fields[1],
		Channels:         fields[2],
		ChannelByteWidth: fields[3],
		GroupSize:        fields[4],
		GroupCount:       fields[5],
	}
	if err := h.Layout.Validate(); err != nil {
		return Header{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return h, nil
}
