package segment

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyInitialized is returned by Initialize on an attached handle.
	ErrAlreadyInitialized = errors.New("segment: already initialized")
	// ErrNotInitialized is returned when an operation needs an attached handle.
	ErrNotInitialized = errors.New("segment: not initialized")
	// ErrClosed is returned when a finalized handle is used.
	ErrClosed = errors.New("segment: handle finalized")
	// ErrNotFound is returned when no segment with the given name exists.
	ErrNotFound = errors.New("segment: not found")
	// ErrInvalidName is returned for names that cannot identify a segment.
	ErrInvalidName = errors.New("segment: invalid name")
	// ErrSizeMismatch is matched by SizeMismatchError.
	ErrSizeMismatch = errors.New("segment: size mismatch")
)

// SizeMismatchError reports a segment whose byte size differs from the size
// the layout requires.
type SizeMismatchError struct {
	Name     string
	Expected int
	Actual   int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("segment %q: size mismatch: expected %d bytes, got %d", e.Name, e.Expected, e.Actual)
}

// Is reports whether target is ErrSizeMismatch.
func (e *SizeMismatchError) Is(target error) bool { return target == ErrSizeMismatch }
