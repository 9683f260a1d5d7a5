package segment

import (
	"errors"
	"fmt"
	"os"
)

// Create provisions a new zero-filled segment of size bytes. It fails if the
// segment already exists.
func Create(dir, name string, size int) error {
	if size <= 0 {
		return fmt.Errorf("segment: invalid size %d", size)
	}

	path, err := Path(dir, name)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("segment: create %s: %w", path, err)
	}

	if err := f.Truncate(int64(size)); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("segment: resize %s: %w", path, err)
	}

	return f.Close()
}

// Unlink removes the named segment. Processes that still have it mapped keep
// their view until they finalize.
func Unlink(dir, name string) error {
	path, err := Path(dir, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return err
	}
	return nil
}

// Stat returns the byte size of the named segment.
func Stat(dir, name string) (int64, error) {
	path, err := Path(dir, name)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %q: %w", ErrNotFound, name, err)
		}
		return 0, err
	}
	return info.Size(), nil
}
