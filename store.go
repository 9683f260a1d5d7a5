package shmimg

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/hupe1980/shmimg/internal/mmap"
	"github.com/hupe1980/shmimg/internal/segment"
)

// State is the lifecycle state of a Store.
type State = segment.State

const (
	Unattached = segment.Unattached
	Attached   = segment.Attached
	Closed     = segment.Closed
)

// Store is a fixed-size table of slots in a named shared-memory segment.
// Each slot holds one group of images, converted to and from T by a codec.
//
// A Store is created Unattached, attached by Initialize and released by
// Finalize. It never creates or removes the segment. Slot access takes no
// locks: different slots may be used concurrently, but writers to the same
// slot must be coordinated by the caller (see the handoff package).
type Store[T Element] struct {
	name   string
	layout Layout
	codec  Codec[T]
	handle *segment.Handle
	opts   options
}

// New returns an unattached store for the segment called name.
func New[T Element](name string, layout Layout, codec Codec[T], optFns ...Option) (*Store[T], error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if codec == nil {
		return nil, errors.New("shmimg: nil codec")
	}
	if sw, ok := codec.(interface{ slotWidth() int }); ok {
		if got := layout.Channels * layout.ChannelByteWidth; got != sw.slotWidth() {
			return nil, unsupported("new "+codec.Name(), layout.ImageShape(), "codec needs %d bytes per pixel, layout has %d", sw.slotWidth(), got)
		}
	}
	if sg, ok := codec.(interface{ singleGroup() bool }); ok && sg.singleGroup() && layout.GroupSize != 1 {
		return nil, unsupported("new "+codec.Name(), layout.GroupedShape(), "single mode needs a group of 1, layout has %d", layout.GroupSize)
	}

	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.logger = opts.logger.WithSegment(name)

	return &Store[T]{
		name:   name,
		layout: layout,
		codec:  codec,
		handle: segment.NewHandle(opts.dir),
		opts:   opts,
	}, nil
}

// Open constructs a store and attaches it. On failure nothing is left
// attached.
func Open[T Element](name string, layout Layout, codec Codec[T], optFns ...Option) (*Store[T], error) {
	s, err := New(name, layout, codec, optFns...)
	if err != nil {
		return nil, err
	}
	if err := s.Initialize(); err != nil {
		_ = s.Finalize()
		return nil, err
	}
	return s, nil
}

// With opens a store, runs fn and finalizes the store on every exit path,
// including a panic in fn. An error from fn takes precedence over an error
// from finalizing.
func With[T Element](name string, layout Layout, codec Codec[T], fn func(*Store[T]) error, optFns ...Option) (err error) {
	s, err := Open(name, layout, codec, optFns...)
	if err != nil {
		return err
	}
	defer func() {
		if ferr := s.Finalize(); err == nil {
			err = ferr
		}
	}()
	return fn(s)
}

// Initialize attaches the segment and checks that its size is exactly
// Layout().SegmentByteSize(). A size mismatch leaves the store finalized.
func (s *Store[T]) Initialize() error {
	start := time.Now()
	err := s.handle.Initialize(s.name)
	if err == nil {
		if verr := s.handle.Validate(s.layout.SegmentByteSize()); verr != nil {
			_ = s.handle.Finalize()
			err = verr
		} else if s.opts.accessPattern != AccessDefault {
			_ = s.handle.Advise(s.opts.accessPattern)
		}
	}
	s.opts.metricsCollector.RecordAttach(time.Since(start), err)
	if err == nil {
		s.opts.logger.LogAttach(context.Background(), s.layout, nil)
	}
	return err
}

// Finalize detaches the segment from this process. The segment and its
// contents are left in place for other processes. Calls after the first
// are no-ops; a store is never re-attached.
func (s *Store[T]) Finalize() error {
	if s.handle.State() == Closed {
		return nil
	}
	wasAttached := s.handle.State() == Attached
	err := s.handle.Finalize()
	if wasAttached {
		s.opts.metricsCollector.RecordFinalize(err)
		if err == nil {
			s.opts.logger.LogFinalize(context.Background(), nil)
		}
	}
	return err
}

// Close is Finalize, for use as an io.Closer.
func (s *Store[T]) Close() error { return s.Finalize() }

// Seek returns the raw bytes of slot index. The slice aliases shared memory
// and is capped so it cannot grow into the next slot. It is valid until
// Finalize.
func (s *Store[T]) Seek(index int) ([]byte, error) {
	r, err := s.slot(index)
	if err != nil {
		return nil, err
	}
	b := r.Bytes()
	if b == nil {
		return nil, ErrClosed
	}
	return b, nil
}

// Advise passes an access hint for slot index to the kernel, e.g.
// AccessWillNeed ahead of a read.
func (s *Store[T]) Advise(index int, pattern AccessPattern) error {
	r, err := s.slot(index)
	if err != nil {
		return err
	}
	return r.Advise(pattern)
}

func (s *Store[T]) slot(index int) (*mmap.Region, error) {
	if err := s.handle.Usable(); err != nil {
		return nil, err
	}
	if index < 0 || index >= s.layout.GroupCount {
		return nil, &IndexOutOfRangeError{Index: index, Len: s.layout.GroupCount}
	}
	start, end := s.layout.SlotRange(index)
	return s.handle.Region(start, end-start)
}

// Read decodes slot index. Depending on the codec the result may alias
// shared memory.
func (s *Store[T]) Read(index int) (*Array[T], error) {
	start := time.Now()
	out, err := s.read(index)
	s.opts.metricsCollector.RecordRead(time.Since(start), err)
	return out, err
}

func (s *Store[T]) read(index int) (*Array[T], error) {
	raw, err := s.Seek(index)
	if err != nil {
		return nil, err
	}
	arr, err := FromSlice(raw, s.layout.GroupedShape()...)
	if err != nil {
		return nil, err
	}
	return s.codec.Decode(arr)
}

// Write encodes img and copies it into slot index.
//
// The encoded array must have the slot's grouped shape (G, H, W, C*cbw).
// An encoded single image, (1, H, W, C*cbw) or (H, W, C*cbw), is written
// to every image of the group. Nothing is written if encoding fails or the
// shape does not fit.
func (s *Store[T]) Write(index int, img *Array[T]) error {
	start := time.Now()
	n, err := s.write(index, img)
	s.opts.metricsCollector.RecordWrite(n, time.Since(start), err)
	return err
}

func (s *Store[T]) write(index int, img *Array[T]) (int, error) {
	enc, err := s.codec.Encode(img)
	if err != nil {
		return 0, err
	}

	grouped := s.layout.GroupedShape()
	shape := enc.shape
	var replicate bool
	switch {
	case slices.Equal(shape, grouped):
	case slices.Equal(shape, append([]int{1}, grouped[1:]...)),
		slices.Equal(shape, grouped[1:]):
		replicate = true
	default:
		return 0, unsupported(s.codec.Name()+" write", shape, "slot holds %v", grouped)
	}

	dst, err := s.Seek(index)
	if err != nil {
		return 0, err
	}

	src := enc.Data()
	if !replicate {
		copy(dst, src)
		return len(dst), nil
	}
	for off := 0; off < len(dst); off += len(src) {
		copy(dst[off:], src)
	}
	return len(dst), nil
}

// Len returns the number of slots.
func (s *Store[T]) Len() int { return s.layout.GroupCount }

// NumImages returns the total number of images across all slots.
func (s *Store[T]) NumImages() int { return s.layout.NumImages() }

// ImageShape returns the byte-level shape of one image.
func (s *Store[T]) ImageShape() []int { return s.layout.ImageShape() }

// Layout returns the store's layout.
func (s *Store[T]) Layout() Layout { return s.layout }

// Name returns the segment name.
func (s *Store[T]) Name() string { return s.name }

// Codec returns the codec selected at construction.
func (s *Store[T]) Codec() Codec[T] { return s.codec }

// State returns the lifecycle state.
func (s *Store[T]) State() State { return s.handle.State() }
