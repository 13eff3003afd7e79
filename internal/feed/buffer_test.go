package feed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"pipescan/internal/model"
)

func event(n int) model.RawEvent {
	return model.RawEvent{
		ID:        fmt.Sprintf("ev-%d", n),
		EventType: "build.complete",
		Resource:  model.Resource{ID: n, BuildNumber: fmt.Sprintf("2024.%d", n)},
	}
}

func TestBuffer(t *testing.T) {
	t.Run("BoundedAtCap", func(t *testing.T) {
		b := NewBuffer(3)
		for i := 0; i < 5; i++ {
			b.Append(event(i))
		}

		events := b.Snapshot()
		if len(events) != 3 {
			t.Fatalf("expected 3 buffered events, got %d", len(events))
		}
		if events[0].ID != "ev-2" || events[2].ID != "ev-4" {
			t.Errorf("expected oldest events dropped, got %s..%s", events[0].ID, events[2].ID)
		}
		if b.Total() != 5 {
			t.Errorf("expected total 5, got %d", b.Total())
		}
	})

	t.Run("Latest", func(t *testing.T) {
		b := NewBuffer(3)
		if _, ok := b.Latest(); ok {
			t.Error("empty buffer must report no latest event")
		}
		b.Append(event(1))
		b.Append(event(2))
		if latest, ok := b.Latest(); !ok || latest.ID != "ev-2" {
			t.Errorf("unexpected latest: %v %v", latest, ok)
		}
	})

	t.Run("WaitReturnsPromptlyOnNewEvents", func(t *testing.T) {
		b := NewBuffer(10)
		b.Append(event(0))

		go func() {
			time.Sleep(20 * time.Millisecond)
			b.Append(event(1))
		}()

		start := time.Now()
		events, cursor := b.Wait(context.Background(), 1, 5*time.Second)
		if time.Since(start) > time.Second {
			t.Error("wait did not return promptly on append")
		}
		if len(events) != 1 || events[0].ID != "ev-1" {
			t.Errorf("unexpected events: %v", events)
		}
		if cursor != 2 {
			t.Errorf("expected cursor 2, got %d", cursor)
		}
	})

	t.Run("WaitTimesOutEmpty", func(t *testing.T) {
		b := NewBuffer(10)
		events, cursor := b.Wait(context.Background(), 0, 30*time.Millisecond)
		if len(events) != 0 {
			t.Errorf("expected no events, got %d", len(events))
		}
		if cursor != 0 {
			t.Errorf("expected cursor 0, got %d", cursor)
		}
	})

	t.Run("WaitHonorsContextCancel", func(t *testing.T) {
		b := NewBuffer(10)
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		b.Wait(ctx, 0, 5*time.Second)
		if time.Since(start) > time.Second {
			t.Error("wait did not return on context cancel")
		}
	})

	t.Run("CursorPastTotalReturnsEmpty", func(t *testing.T) {
		b := NewBuffer(10)
		b.Append(event(0))
		b.Append(event(1))

		// A restarted feed resets its count while clients keep the old
		// cursor; the wait must come back empty, not panic.
		events, cursor := b.Wait(context.Background(), 100, 20*time.Millisecond)
		if len(events) != 0 {
			t.Errorf("expected no events for cursor past total, got %d", len(events))
		}
		if cursor != 2 {
			t.Errorf("expected cursor reset to 2, got %d", cursor)
		}
	})

	t.Run("StaleCursorGetsBufferedEvents", func(t *testing.T) {
		b := NewBuffer(2)
		for i := 0; i < 5; i++ {
			b.Append(event(i))
		}

		// Client cursor points before the drop horizon.
		events, cursor := b.Wait(context.Background(), 1, 10*time.Millisecond)
		if len(events) != 2 {
			t.Fatalf("expected the 2 still-buffered events, got %d", len(events))
		}
		if cursor != 5 {
			t.Errorf("expected cursor 5, got %d", cursor)
		}
	})
}
