package segment

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/shmimg/internal/mmap"
)

// State is the lifecycle state of a Handle.
type State int32

const (
	// Unattached is the state of a new handle.
	Unattached State = iota
	// Attached means the segment is mapped into this process.
	Attached
	// Closed means Finalize has run. A closed handle is never reused.
	Closed
)

func (s State) String() string {
	switch s {
	case Unattached:
		return "unattached"
	case Attached:
		return "attached"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Handle is one process's attachment to a named segment.
//
// Lifecycle transitions are serialised; Bytes and State are lock-free so the
// slot access path never contends.
type Handle struct {
	dir string

	mu      sync.Mutex
	state   atomic.Int32
	name    string
	path    string
	mapping atomic.Pointer[mmap.Mapping]
}

// NewHandle returns an unattached handle that resolves names in dir.
// An empty dir selects ResolveDir's default.
func NewHandle(dir string) *Handle {
	return &Handle{dir: dir}
}

// Initialize maps the existing segment called name.
func (h *Handle) Initialize(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch State(h.state.Load()) {
	case Attached:
		return ErrAlreadyInitialized
	case Closed:
		return ErrClosed
	}

	path, err := Path(h.dir, name)
	if err != nil {
		return err
	}

	m, err := mmap.OpenShared(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %q: %w", ErrNotFound, name, err)
		}
		return fmt.Errorf("segment: attach %q: %w", name, err)
	}

	h.name = name
	h.path = path
	h.mapping.Store(m)
	h.state.Store(int32(Attached))
	return nil
}

// Validate checks that the attached segment is exactly expected bytes.
func (h *Handle) Validate(expected int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Usable(); err != nil {
		return err
	}

	actual := h.mapping.Load().Size()
	if actual == 0 || actual != expected {
		return &SizeMismatchError{Name: h.name, Expected: expected, Actual: actual}
	}
	return nil
}

// Finalize releases the local mapping. The segment itself is left alone.
// Calls after the first are no-ops.
func (h *Handle) Finalize() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if State(h.state.Swap(int32(Closed))) == Closed {
		return nil
	}

	m := h.mapping.Swap(nil)
	if m == nil {
		return nil
	}
	if err := m.Close(); err != nil {
		return fmt.Errorf("segment: detach %q: %w", h.name, err)
	}
	return nil
}

// Advise passes an access hint for the whole mapping to the kernel.
func (h *Handle) Advise(pattern mmap.AccessPattern) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Usable(); err != nil {
		return err
	}
	return h.mapping.Load().Advise(pattern)
}

// Region returns a view of size bytes at offset. Its bytes are capped at the
// region end and stay valid until Finalize.
func (h *Handle) Region(offset, size int) (*mmap.Region, error) {
	if err := h.Usable(); err != nil {
		return nil, err
	}
	m := h.mapping.Load()
	if m == nil {
		return nil, ErrClosed
	}
	r, err := m.Region(offset, size)
	if errors.Is(err, mmap.ErrClosed) {
		return nil, ErrClosed
	}
	return r, err
}

// Size returns the mapped size in bytes, or 0 unless attached.
func (h *Handle) Size() int {
	m := h.mapping.Load()
	if m == nil {
		return 0
	}
	return m.Size()
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	return State(h.state.Load())
}

// Name returns the name passed to Initialize.
func (h *Handle) Name() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.name
}

// Path returns the file backing the attached segment.
func (h *Handle) Path() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.path
}

// Usable returns nil when the handle is attached and the matching lifecycle
// error otherwise.
func (h *Handle) Usable() error {
	switch State(h.state.Load()) {
	case Attached:
		return nil
	case Closed:
		return ErrClosed
	default:
		return ErrNotInitialized
	}
}
