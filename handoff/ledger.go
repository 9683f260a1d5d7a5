package handoff

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

var (
	// ErrClosed is returned once the ledger is closed. Next keeps returning
	// ready slots after Close until none are left.
	ErrClosed = errors.New("handoff: ledger closed")

	// ErrInvalidTransition is returned when a slot is moved out of a state
	// it is not in.
	ErrInvalidTransition = errors.New("handoff: invalid slot transition")
)

// SlotState is the ownership state of one slot.
type SlotState int

const (
	Free SlotState = iota
	Writing
	Ready
	Reading
)

func (s SlotState) String() string {
	switch s {
	case Free:
		return "free"
	case Writing:
		return "writing"
	case Ready:
		return "ready"
	case Reading:
		return "reading"
	default:
		return fmt.Sprintf("SlotState(%d)", int(s))
	}
}

// Stats counts slots per state.
type Stats struct {
	Free    uint64
	Writing uint64
	Ready   uint64
	Reading uint64
}

// Ledger tracks the state of slots [0, n).
type Ledger struct {
	mu      sync.Mutex
	n       int
	sets    [4]*roaring.Bitmap
	queue   []uint32
	changed chan struct{}
	closed  bool
}

// NewLedger returns a ledger with n free slots.
func NewLedger(n int) (*Ledger, error) {
	if n <= 0 {
		return nil, fmt.Errorf("handoff: slot count must be positive, got %d", n)
	}
	l := &Ledger{
		n:       n,
		changed: make(chan struct{}),
	}
	for i := range l.sets {
		l.sets[i] = roaring.New()
	}
	l.sets[Free].AddRange(0, uint64(n))
	return l, nil
}

// Len returns the number of slots.
func (l *Ledger) Len() int { return l.n }

// notifyLocked wakes every waiter.
func (l *Ledger) notifyLocked() {
	close(l.changed)
	l.changed = make(chan struct{})
}

func (l *Ledger) wait(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

// Acquire blocks until a slot is free and returns it in the Writing state.
// The lowest free index is chosen.
func (l *Ledger) Acquire(ctx context.Context) (int, error) {
	for {
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return 0, ErrClosed
		}
		if free := l.sets[Free]; !free.IsEmpty() {
			idx := free.Minimum()
			l.moveLocked(idx, Free, Writing)
			l.mu.Unlock()
			return int(idx), nil
		}
		ch := l.changed
		l.mu.Unlock()

		if err := l.wait(ctx, ch); err != nil {
			return 0, err
		}
	}
}

// TryAcquire is Acquire without blocking. ok is false when no slot is free.
func (l *Ledger) TryAcquire() (idx int, ok bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, false, ErrClosed
	}
	free := l.sets[Free]
	if free.IsEmpty() {
		return 0, false, nil
	}
	v := free.Minimum()
	l.moveLocked(v, Free, Writing)
	return int(v), true, nil
}

// Publish moves a Writing slot to Ready and queues it for readers.
func (l *Ledger) Publish(idx int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkLocked(idx, Writing); err != nil {
		return err
	}
	l.moveLocked(uint32(idx), Writing, Ready)
	l.queue = append(l.queue, uint32(idx))
	return nil
}

// Abandon returns a Writing slot to Free without publishing it.
func (l *Ledger) Abandon(idx int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkLocked(idx, Writing); err != nil {
		return err
	}
	l.moveLocked(uint32(idx), Writing, Free)
	return nil
}

// Next blocks until a slot is Ready and returns the oldest one in the
// Reading state.
func (l *Ledger) Next(ctx context.Context) (int, error) {
	for {
		l.mu.Lock()
		if len(l.queue) > 0 {
			idx := l.queue[0]
			l.queue = l.queue[1:]
			l.moveLocked(idx, Ready, Reading)
			l.mu.Unlock()
			return int(idx), nil
		}
		if l.closed {
			l.mu.Unlock()
			return 0, ErrClosed
		}
		ch := l.changed
		l.mu.Unlock()

		if err := l.wait(ctx, ch); err != nil {
			return 0, err
		}
	}
}

// Release moves a Reading slot back to Free.
func (l *Ledger) Release(idx int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkLocked(idx, Reading); err != nil {
		return err
	}
	l.moveLocked(uint32(idx), Reading, Free)
	return nil
}

// Close stops new acquisitions and wakes all waiters. Slots already Ready
// can still be taken with Next.
func (l *Ledger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.notifyLocked()
}

// State returns the state of slot idx.
func (l *Ledger) State(idx int) (SlotState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if idx < 0 || idx >= l.n {
		return 0, fmt.Errorf("%w: slot %d out of range [0, %d)", ErrInvalidTransition, idx, l.n)
	}
	return l.stateLocked(uint32(idx)), nil
}

// Stats returns the number of slots in each state.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		Free:    l.sets[Free].GetCardinality(),
		Writing: l.sets[Writing].GetCardinality(),
		Ready:   l.sets[Ready].GetCardinality(),
		Reading: l.sets[Reading].GetCardinality(),
	}
}

func (l *Ledger) stateLocked(idx uint32) SlotState {
	for s, set := range l.sets {
		if set.Contains(idx) {
			return SlotState(s)
		}
	}
	return Free
}

func (l *Ledger) checkLocked(idx int, want SlotState) error {
	if idx < 0 || idx >= l.n {
		return fmt.Errorf("%w: slot %d out of range [0, %d)", ErrInvalidTransition, idx, l.n)
	}
	if got := l.stateLocked(uint32(idx)); got != want {
		return fmt.Errorf("%w: slot %d is %s, want %s", ErrInvalidTransition, idx, got, want)
	}
	return nil
}

func (l *Ledger) moveLocked(idx uint32, from, to SlotState) {
	l.sets[from].Remove(idx)
	l.sets[to].Add(idx)
	l.notifyLocked()
}
