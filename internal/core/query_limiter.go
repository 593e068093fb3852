package core

// query_limiter.go bounds how many workbooks are read at the same time.
//
// Each lookup holds a slot for the duration of its NumberSource call. When all
// slots are taken a lookup waits up to maxWait, then fails with
// ErrTooManyQueries. WaitForDrain lets shutdown wait for in-flight reads.

import (
	"context"
	"errors"
	"time"
)

// ErrTooManyQueries is returned when no read slot frees up within the wait
// time. Clients should retry after a short delay.
var ErrTooManyQueries = errors.New("too many concurrent queries, please try again later")

// DefaultMaxConcurrentQueries is the default limit for parallel workbook reads.
const DefaultMaxConcurrentQueries = 8

// DefaultQueryWaitTime is how long to wait for a slot before rejecting.
const DefaultQueryWaitTime = 10 * time.Second

// QueryLimiter is a semaphore over workbook reads.
type QueryLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
}

// QueryLimiterStatus is a snapshot of the limiter's current state.
type QueryLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// NewQueryLimiter creates a limiter allowing at most maxConcurrent reads.
// Non-positive arguments fall back to the package defaults.
func NewQueryLimiter(maxConcurrent int, maxWait time.Duration) *QueryLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentQueries
	}
	if maxWait <= 0 {
		maxWait = DefaultQueryWaitTime
	}
	return &QueryLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting at most maxWait. The caller must Release
// after a nil return.
func (l *QueryLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyQueries
	}
}

// TryAcquire takes a slot without blocking.
func (l *QueryLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *QueryLimiter) Release() {
	<-l.slots
}

// ActiveCount returns the number of reads currently holding a slot.
func (l *QueryLimiter) ActiveCount() int {
	return len(l.slots)
}

// MaxConcurrent returns the slot count.
func (l *QueryLimiter) MaxConcurrent() int {
	return cap(l.slots)
}

// Status returns the limiter state for health checks.
func (l *QueryLimiter) Status() QueryLimiterStatus {
	active := len(l.slots)
	return QueryLimiterStatus{
		Active:        active,
		Available:     cap(l.slots) - active,
		MaxConcurrent: cap(l.slots),
	}
}

// WaitForDrain blocks until no reads are active or ctx is done.
func (l *QueryLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
