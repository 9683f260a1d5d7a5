package snapshot

import (
	"errors"
	"fmt"

	"github.com/hupe1980/shmimg"
)

var (
	// ErrCorrupt is returned when a snapshot cannot be parsed.
	ErrCorrupt = errors.New("snapshot: corrupt data")
	// ErrChecksum is returned when a header or block checksum does not match.
	ErrChecksum = errors.New("snapshot: checksum mismatch")
	// ErrUnsupportedVersion is returned for snapshots written by a newer format.
	ErrUnsupportedVersion = errors.New("snapshot: unsupported version")
	// ErrLayoutMismatch is returned when the snapshot layout differs from the
	// target segment.
	ErrLayoutMismatch = errors.New("snapshot: layout mismatch")
)

// LayoutMismatchError reports the layouts involved in a failed Restore.
type LayoutMismatchError struct {
	Snapshot shmimg.Layout
	Target   shmimg.Layout
}

func (e *LayoutMismatchError) Error() string {
	return fmt.Sprintf("snapshot: layout mismatch: snapshot %s, target %s", e.Snapshot, e.Target)
}

func (e *LayoutMismatchError) Is(target error) bool {
	return target == ErrLayoutMismatch
}

// BlockError locates a failure in a slot block.
type BlockError struct {
	Slot int
	Err  error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("snapshot: slot %d: %v", e.Slot, e.Err)
}

func (e *BlockError) Unwrap() error { return e.Err }
