package source

import (
	"context"
	"testing"
	"time"
)

func TestHeartbeat(t *testing.T) {
	t.Run("Counters", func(t *testing.T) {
		hb := NewHeartbeat(&mockLogger{}, nil, time.Hour)
		hb.MarkPoll()
		hb.MarkPoll()
		hb.MarkEvents(3)
		hb.MarkFailure()

		s := hb.Status()
		if s.Polls != 2 || s.Events != 3 || s.Failures != 1 {
			t.Errorf("unexpected status: %+v", s)
		}
	})

	t.Run("RunStopsOnCancel", func(t *testing.T) {
		hb := NewHeartbeat(&mockLogger{}, nil, time.Millisecond)
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan struct{})
		go func() {
			hb.Run(ctx)
			close(done)
		}()

		time.Sleep(10 * time.Millisecond)
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("heartbeat did not stop on cancel")
		}
	})
}
