package core

// limiter.go implements the counting semaphore shared by upload handling and
// the worker.
//
// Uploads wait up to maxWait for a slot and then fail with ErrTooManyUploads.
// The worker passes maxWait <= 0 and blocks until a slot frees up or its
// context ends. Both use WaitForDrain during graceful shutdown.

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultMaxConcurrentUploads is the default limit for parallel uploads.
const DefaultMaxConcurrentUploads = 5

// SlotLimiter bounds concurrent work using a buffered channel.
type SlotLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewSlotLimiter allows at most maxConcurrent holders. A positive maxWait
// bounds Acquire; otherwise Acquire waits for ctx.
func NewSlotLimiter(maxConcurrent int, maxWait time.Duration) *SlotLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentUploads
	}
	return &SlotLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot. The caller MUST call Release when done.
// Returns ErrTooManyUploads when maxWait elapses first, or ctx.Err().
func (l *SlotLimiter) Acquire(ctx context.Context) error {
	var timeout <-chan time.Time
	if l.maxWait > 0 {
		t := time.NewTimer(l.maxWait)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-timeout:
		return ErrTooManyUploads
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot taken by Acquire.
func (l *SlotLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// ActiveCount returns the number of held slots.
func (l *SlotLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the slot count.
func (l *SlotLimiter) MaxConcurrent() int {
	return cap(l.slots)
}

// Available returns the number of free slots.
func (l *SlotLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until every slot is released or ctx ends.
func (l *SlotLimiter) WaitForDrain(ctx context.Context) error {
	if l.ActiveCount() == 0 {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}

// LimiterStatus is a point-in-time view of a SlotLimiter.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current counts.
func (l *SlotLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: l.MaxConcurrent(),
	}
}
