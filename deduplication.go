package igvf

import (
	"context"
	"sync"
	"time"
)

// coalescingEntry tracks one in-flight GET. The owner goroutine performs the
// round trip, stores the outcome and closes done; waiters block on done or
// their own context.
type coalescingEntry struct {
	outcome fetchOutcome
	done    chan struct{}
}

// wait blocks until the owner completes the request or ctx is canceled.
func (e *coalescingEntry) wait(ctx context.Context) (fetchOutcome, error) {
	select {
	case <-e.done:
		return e.outcome, nil
	case <-ctx.Done():
		return fetchOutcome{}, ctx.Err()
	}
}

// coalescingTracker shares in-flight GET round trips between concurrent
// callers requesting the same URL.
type coalescingTracker struct {
	mu      sync.Mutex
	entries map[string]*coalescingEntry
}

func newCoalescingTracker() *coalescingTracker {
	return &coalescingTracker{
		entries: make(map[string]*coalescingEntry),
	}
}

// getOrCreate returns the entry for key, creating one if none is in flight.
// The second return value reports whether the caller owns the request.
func (t *coalescingTracker) getOrCreate(key string) (*coalescingEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.entries[key]; ok {
		return entry, false
	}

	entry := &coalescingEntry{done: make(chan struct{})}
	t.entries[key] = entry
	return entry, true
}

// complete publishes the outcome to waiters and schedules the entry's
// removal. The short delay lets goroutines that raced past getOrCreate
// observe the completed entry instead of starting a duplicate request.
func (t *coalescingTracker) complete(key string, out fetchOutcome) {
	t.mu.Lock()
	entry, ok := t.entries[key]
	t.mu.Unlock()
	if !ok {
		return
	}

	entry.outcome = out
	close(entry.done)

	time.AfterFunc(100*time.Millisecond, func() {
		t.mu.Lock()
		if t.entries[key] == entry {
			delete(t.entries, key)
		}
		t.mu.Unlock()
	})
}
