package snapshot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/shmimg"
	"github.com/hupe1980/shmimg/blobstore"
	"github.com/hupe1980/shmimg/internal/conv"
	"github.com/hupe1980/shmimg/internal/hash"
	"github.com/hupe1980/shmimg/resource"
	"github.com/pierrec/lz4/v4"
)

// Slots is the view of a segment that snapshots read from and write to.
// *shmimg.Store[T] implements it.
type Slots interface {
	Layout() shmimg.Layout
	Seek(index int) ([]byte, error)
}

// Stats summarizes a Save or Restore.
type Stats struct {
	Slots       int
	RawBytes    int64
	StoredBytes int64
	Duration    time.Duration
}

// Ratio returns StoredBytes/RawBytes, or 0 for an empty snapshot.
func (s Stats) Ratio() float64 {
	if s.RawBytes == 0 {
		return 0
	}
	return float64(s.StoredBytes) / float64(s.RawBytes)
}

// Save writes every slot of src to dst under name. The blob only becomes
// visible if the whole snapshot was written.
func Save(ctx context.Context, src Slots, dst blobstore.BlobStore, name string, optFns ...Option) (Stats, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	logger := o.logger.With("snapshot", name)

	if !o.compression.valid() {
		return Stats{}, fmt.Errorf("snapshot: unsupported compression %s", o.compression)
	}

	layout := src.Layout()
	header, err := Header{Version: Version, Compression: o.compression, Layout: layout}.marshal()
	if err != nil {
		return Stats{}, err
	}

	scratch := int64(lz4.CompressBlockBound(layout.SlotByteCapacity()))
	if err := o.reserve(ctx, scratch); err != nil {
		return Stats{}, err
	}
	defer o.controller.ReleaseMemory(scratch)

	w, err := dst.Create(ctx, name)
	if err != nil {
		return Stats{}, err
	}

	start := time.Now()
	stats, err := writeSlots(ctx, w, src, header, o)
	if err != nil {
		abort(w)
		logger.ErrorContext(ctx, "snapshot save failed", "error", err)
		return stats, err
	}
	if err := w.Close(); err != nil {
		logger.ErrorContext(ctx, "snapshot save failed", "error", err)
		return stats, err
	}
	stats.Duration = time.Since(start)

	logger.InfoContext(ctx, "snapshot saved",
		"slots", stats.Slots,
		"raw_bytes", stats.RawBytes,
		"stored_bytes", stats.StoredBytes,
		"compression", o.compression.String(),
		"duration", stats.Duration,
		"buffered_bytes", o.controller.MemoryUsage(),
	)
	return stats, nil
}

// reserve takes n bytes of buffer budget, noting when it has to wait.
func (o options) reserve(ctx context.Context, n int64) error {
	if o.controller.TryAcquireMemory(n) {
		return nil
	}
	o.logger.DebugContext(ctx, "waiting for buffer memory",
		"bytes", n,
		"in_use", o.controller.MemoryUsage(),
	)
	return o.controller.AcquireMemory(ctx, n)
}

func writeSlots(ctx context.Context, w io.Writer, src Slots, header []byte, o options) (Stats, error) {
	layout := src.Layout()
	rawSize, err := conv.IntToUint32(layout.SlotByteCapacity())
	if err != nil {
		return Stats{}, fmt.Errorf("snapshot: slot too large: %w", err)
	}
	bw := bufio.NewWriterSize(resource.NewRateLimitedWriter(ctx, w, o.controller), 256*1024)

	var stats Stats
	if _, err := bw.Write(header); err != nil {
		return stats, err
	}
	stats.StoredBytes = int64(len(header))

	enc := &blockEncoder{compression: o.compression}
	var bh [blockHeaderSize]byte

	for i := range layout.GroupCount {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		slot, err := src.Seek(i)
		if err != nil {
			return stats, &BlockError{Slot: i, Err: err}
		}
		if len(slot) != int(rawSize) {
			return stats, &BlockError{Slot: i, Err: fmt.Errorf("slot has %d bytes, layout says %d", len(slot), rawSize)}
		}

		payload, stored, err := enc.encode(slot)
		if err != nil {
			return stats, &BlockError{Slot: i, Err: err}
		}

		blockHeader{
			RawSize:    rawSize,
			StoredSize: stored,
			Checksum:   hash.CRC32C(slot),
		}.marshal(bh[:])

		if _, err := bw.Write(bh[:]); err != nil {
			return stats, err
		}
		if _, err := bw.Write(payload); err != nil {
			return stats, err
		}

		stats.Slots++
		stats.RawBytes += int64(len(slot))
		stats.StoredBytes += int64(blockHeaderSize + len(payload))
	}

	return stats, bw.Flush()
}

func abort(w blobstore.WritableBlob) {
	if a, ok := w.(blobstore.Aborter); ok {
		_ = a.Abort()
		return
	}
	_ = w.Close()
}

// Inspect reads the header of a snapshot.
func Inspect(ctx context.Context, src blobstore.BlobStore, name string) (Header, error) {
	b, err := src.Open(ctx, name)
	if err != nil {
		return Header{}, err
	}
	defer b.Close()

	rc, err := b.ReadRange(ctx, 0, headerSize)
	if err != nil {
		return Header{}, err
	}
	defer rc.Close()

	return readHeader(rc)
}

// Restore copies the snapshot stored under name into dst. The layout in the
// snapshot must equal dst.Layout(). Each block is verified before its slot is
// overwritten, so on error the slots before the failing one are restored and
// the rest are untouched.
func Restore(ctx context.Context, src blobstore.BlobStore, name string, dst Slots, optFns ...Option) (Stats, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	logger := o.logger.With("snapshot", name)

	stats, err := restore(ctx, src, name, dst, o)
	if err != nil {
		logger.ErrorContext(ctx, "snapshot restore failed", "error", err)
		return stats, err
	}

	logger.InfoContext(ctx, "snapshot restored",
		"slots", stats.Slots,
		"raw_bytes", stats.RawBytes,
		"stored_bytes", stats.StoredBytes,
		"duration", stats.Duration,
	)
	return stats, nil
}

func restore(ctx context.Context, src blobstore.BlobStore, name string, dst Slots, o options) (Stats, error) {
	start := time.Now()

	b, err := src.Open(ctx, name)
	if err != nil {
		return Stats{}, err
	}
	defer b.Close()

	rc, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		return Stats{}, err
	}
	defer rc.Close()

	r := bufio.NewReaderSize(resource.NewRateLimitedReader(ctx, rc, o.controller), 256*1024)

	h, err := readHeader(r)
	if err != nil {
		return Stats{}, err
	}
	if target := dst.Layout(); h.Layout != target {
		return Stats{}, &LayoutMismatchError{Snapshot: h.Layout, Target: target}
	}

	slotCap := h.Layout.SlotByteCapacity()
	scratch := int64(2 * slotCap)
	if err := o.reserve(ctx, scratch); err != nil {
		return Stats{}, err
	}
	defer o.controller.ReleaseMemory(scratch)

	raw := make([]byte, slotCap)
	payload := make([]byte, slotCap)
	stats := Stats{StoredBytes: headerSize}
	var bh [blockHeaderSize]byte

	for i := range h.Layout.GroupCount {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if _, err := io.ReadFull(r, bh[:]); err != nil {
			return stats, &BlockError{Slot: i, Err: fmt.Errorf("%w: %w", ErrCorrupt, err)}
		}
		blk := unmarshalBlockHeader(bh[:])
		if int64(blk.RawSize) != int64(slotCap) || int64(blk.StoredSize) >= int64(slotCap) {
			return stats, &BlockError{Slot: i, Err: fmt.Errorf("%w: block sizes raw=%d stored=%d, slot=%d",
				ErrCorrupt, blk.RawSize, blk.StoredSize, slotCap)}
		}

		p := payload[:blk.payloadSize()]
		if _, err := io.ReadFull(r, p); err != nil {
			return stats, &BlockError{Slot: i, Err: fmt.Errorf("%w: %w", ErrCorrupt, err)}
		}
		if err := decodeBlock(raw, p, blk, h.Compression); err != nil {
			return stats, &BlockError{Slot: i, Err: err}
		}
		if got := hash.CRC32C(raw); got != blk.Checksum {
			return stats, &BlockError{Slot: i, Err: fmt.Errorf("%w: crc %08x, want %08x", ErrChecksum, got, blk.Checksum)}
		}

		view, err := dst.Seek(i)
		if err != nil {
			return stats, &BlockError{Slot: i, Err: err}
		}
		copy(view, raw)

		stats.Slots++
		stats.RawBytes += int64(slotCap)
		stats.StoredBytes += int64(blockHeaderSize + len(p))
	}

	if _, err := r.ReadByte(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("trailing data")
		}
		return stats, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	stats.Duration = time.Since(start)
	return stats, nil
}
