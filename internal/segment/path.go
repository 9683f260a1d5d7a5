package segment

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDir is where POSIX shm_open places named segments on Linux.
const DefaultDir = "/dev/shm"

// ResolveDir returns dir if it is set, DefaultDir if it exists, and the
// temporary directory otherwise.
func ResolveDir(dir string) string {
	if dir != "" {
		return dir
	}
	if info, err := os.Stat(DefaultDir); err == nil && info.IsDir() {
		return DefaultDir
	}
	return os.TempDir()
}

// CleanName normalises a segment name. A single leading slash, as accepted
// by shm_open, is dropped. Empty names and names with path separators are
// rejected.
func CleanName(name string) (string, error) {
	n := strings.TrimPrefix(name, "/")
	if n == "" || n == "." || n == ".." || strings.ContainsAny(n, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return n, nil
}

// Path returns the file backing the named segment in dir.
func Path(dir, name string) (string, error) {
	n, err := CleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(ResolveDir(dir), n), nil
}
