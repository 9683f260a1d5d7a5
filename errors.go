package shmimg

import (
	"errors"
	"fmt"

	"github.com/hupe1980/shmimg/internal/segment"
)

var (
	// ErrInvalidShape is returned when a layout cannot be built from the given
	// shape or parameters.
	ErrInvalidShape = errors.New("invalid shape")

	// ErrUnsupportedShape is returned when a codec or a write receives an
	// array whose rank or trailing axis it cannot handle.
	ErrUnsupportedShape = errors.New("unsupported shape")

	// ErrIndexOutOfRange is returned by slot access outside [0, GroupCount).
	ErrIndexOutOfRange = errors.New("slot index out of range")

	// ErrAlreadyInitialized is returned by Initialize on an attached store.
	ErrAlreadyInitialized = segment.ErrAlreadyInitialized

	// ErrNotInitialized is returned when slot access precedes Initialize.
	ErrNotInitialized = segment.ErrNotInitialized

	// ErrClosed is returned when a finalized store is used.
	ErrClosed = segment.ErrClosed

	// ErrSegmentNotFound is returned when no segment with the given name exists.
	ErrSegmentNotFound = segment.ErrNotFound

	// ErrSizeMismatch is returned when the segment size differs from the size
	// the layout requires.
	ErrSizeMismatch = segment.ErrSizeMismatch

	// ErrInvalidName is returned for names that cannot identify a segment.
	ErrInvalidName = segment.ErrInvalidName
)

// SizeMismatchError carries the expected and actual segment sizes.
type SizeMismatchError = segment.SizeMismatchError

// InvalidShapeError describes why a layout was rejected.
type InvalidShapeError struct {
	Shape  []int
	Reason string
}

func (e *InvalidShapeError) Error() string {
	return fmt.Sprintf("invalid shape %v: %s", e.Shape, e.Reason)
}

// Is reports whether target is ErrInvalidShape.
func (e *InvalidShapeError) Is(target error) bool { return target == ErrInvalidShape }

// UnsupportedShapeError reports an array shape a codec or slot cannot accept.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type UnsupportedShapeError struct {
	Op     string
	Shape  []int
	Reason string
	cause  error
}

func (e *UnsupportedShapeError) Error() string {
	return fmt.Sprintf("%s: unsupported shape %v: %s", e.Op, e.Shape, e.Reason)
}

// Is reports whether target is ErrUnsupportedShape.
func (e *UnsupportedShapeError) Is(target error) bool { return target == ErrUnsupportedShape }

func (e *UnsupportedShapeError) Unwrap() error { return e.cause }

// IndexOutOfRangeError reports a slot index outside [0, Len).
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("slot index %d out of range [0, %d)", e.Index, e.Len)
}

// Is reports whether target is ErrIndexOutOfRange.
func (e *IndexOutOfRangeError) Is(target error) bool { return target == ErrIndexOutOfRange }

func unsupported(op string, shape []int, format string, args ...any) error {
	return &UnsupportedShapeError{Op: op, Shape: append([]int(nil), shape...), Reason: fmt.Sprintf(format, args...)}
}
