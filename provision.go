package shmimg

import (
	"github.com/hupe1980/shmimg/internal/segment"
)

// Provision creates a zero-filled segment sized for layout. It is the job of
// whoever owns the segment; stores only attach to existing segments.
// Only WithDir is honoured among the options.
func Provision(name string, layout Layout, optFns ...Option) error {
	if err := layout.Validate(); err != nil {
		return err
	}
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return segment.Create(opts.dir, name, layout.SegmentByteSize())
}

// Unlink removes the named segment. Attached stores keep their mapping until
// they finalize.
func Unlink(name string, optFns ...Option) error {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return segment.Unlink(opts.dir, name)
}

// SegmentSize returns the current byte size of the named segment.
func SegmentSize(name string, optFns ...Option) (int64, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return segment.Stat(opts.dir, name)
}
