package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/crave-grocer/api/internal/catalog"
)

// Errors returned by position resolution.
var (
	ErrEmptyContext       = errors.New("no products have been listed yet")
	ErrPositionOutOfRange = errors.New("position out of range")
)

// QueryContext caches the most recent filter result of one session so that
// ordinal references ("the second one") can be resolved. Only Record
// changes it; placing an order does not.
type QueryContext struct {
	mu       sync.RWMutex
	last     []catalog.Product
	recorded bool
}

// NewQueryContext returns an empty context. Any position lookup fails with
// ErrEmptyContext until Record is called.
func NewQueryContext() *QueryContext {
	return &QueryContext{}
}

// Record replaces the cached listing with exactly results.
func (q *QueryContext) Record(results []catalog.Product) {
	cp := make([]catalog.Product, len(results))
	copy(cp, results)

	q.mu.Lock()
	q.last = cp
	q.recorded = true
	q.mu.Unlock()
}

// ResolvePosition returns the product at 1-based position n of the last
// recorded listing.
func (q *QueryContext) ResolvePosition(n int) (catalog.Product, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if !q.recorded {
		return catalog.Product{}, ErrEmptyContext
	}
	if n < 1 || n > len(q.last) {
		return catalog.Product{}, fmt.Errorf("%w: position %d, last listing had %d", ErrPositionOutOfRange, n, len(q.last))
	}
	return q.last[n-1], nil
}

// Len returns the size of the last recorded listing.
func (q *QueryContext) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.last)
}

// Recorded reports whether any listing has been recorded.
func (q *QueryContext) Recorded() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.recorded
}
