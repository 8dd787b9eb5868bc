/*
locks.go - Per-stock mutual exclusion with bounded wait

PURPOSE:
  Serializes the read-validate-write critical section of AddTransaction
  per stock ID. Two kitchen stations decrementing the same ingredient are
  forced into a total order: the second observes the already-decremented
  total. Operations on different stocks never contend.

BOUNDED WAIT:
  Acquisition waits at most the configured timeout, then fails with
  ErrConcurrentUpdate. Callers treat that as retryable. Nothing in the
  ledger blocks indefinitely.
*/
package inventory

import (
	"context"
	"sync"
	"time"
)

// stockLocks is a set of single-slot semaphores keyed by stock ID.
// Entries are created lazily and kept for the life of the process; the
// population is bounded by the number of stock records.
type stockLocks struct {
	mu    sync.Mutex
	slots map[StockID]chan struct{}
}

func newStockLocks() *stockLocks {
	return &stockLocks{slots: make(map[StockID]chan struct{})}
}

func (l *stockLocks) slot(id StockID) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[id]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[id] = s
	}
	return s
}

// acquire takes the lock for id, waiting at most wait.
// Returns ErrConcurrentUpdate on timeout, the context error on cancellation.
func (l *stockLocks) acquire(ctx context.Context, id StockID, wait time.Duration) error {
	s := l.slot(id)

	select {
	case s <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case s <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrConcurrentUpdate
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release frees the lock for id. Must follow a successful acquire.
func (l *stockLocks) release(id StockID) {
	<-l.slot(id)
}
