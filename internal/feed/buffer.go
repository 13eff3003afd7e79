package feed

import (
	"context"
	"sync"
	"time"

	"pipescan/internal/model"
)

// Buffer is the bounded in-memory event list behind the feed endpoints.
// Appends broadcast to long-poll waiters; once the cap is reached the oldest
// events are dropped. Cursors count total events ever seen, so a client that
// fell behind a drop simply receives everything still buffered.
type Buffer struct {
	mu      sync.Mutex
	cond    *sync.Cond
	events  []model.RawEvent
	dropped int
	max     int
}

// NewBuffer creates a buffer holding at most max events.
func NewBuffer(max int) *Buffer {
	b := &Buffer{max: max}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Append adds one event, dropping the oldest if the buffer is full, and
// wakes all long-poll waiters.
func (b *Buffer) Append(ev model.RawEvent) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	if len(b.events) > b.max {
		over := len(b.events) - b.max
		b.events = append([]model.RawEvent(nil), b.events[over:]...)
		b.dropped += over
	}
	b.mu.Unlock()

	b.cond.Broadcast()
}

// Snapshot returns a copy of the buffered events, oldest first.
func (b *Buffer) Snapshot() []model.RawEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.RawEvent(nil), b.events...)
}

// Latest returns the most recent event, if any.
func (b *Buffer) Latest() (model.RawEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		return model.RawEvent{}, false
	}
	return b.events[len(b.events)-1], true
}

// Total is the count of events ever appended, including dropped ones. It is
// the cursor value clients pass to Wait.
func (b *Buffer) Total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped + len(b.events)
}

// Wait blocks until events newer than the cursor exist, the timeout expires,
// or ctx is done. It returns the new events (possibly none) and the cursor
// to use next.
func (b *Buffer) Wait(ctx context.Context, cursor int, timeout time.Duration) ([]model.RawEvent, int) {
	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, b.cond.Broadcast)
	defer timer.Stop()
	stop := context.AfterFunc(ctx, b.cond.Broadcast)
	defer stop()

	b.mu.Lock()
	defer b.mu.Unlock()

	for b.dropped+len(b.events) <= cursor && time.Now().Before(deadline) && ctx.Err() == nil {
		b.cond.Wait()
	}

	// Clamp both ways: below the drop horizon and past the total. A cursor
	// beyond the total shows up when the feed restarts and its count resets
	// while clients still hold the old value.
	if cursor < b.dropped {
		cursor = b.dropped
	}
	if cursor > b.dropped+len(b.events) {
		cursor = b.dropped + len(b.events)
	}
	newEvents := append([]model.RawEvent(nil), b.events[cursor-b.dropped:]...)
	return newEvents, b.dropped + len(b.events)
}
