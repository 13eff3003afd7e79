package source

import (
	"context"
	"sync/atomic"
	"time"

	"pipescan/pkg/log"
)

// Pinger checks feed reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Heartbeat tracks liveness counters for the poll loop, pings the feed on
// its own ticker, and logs a periodic status line so a stalled listener is
// visible in the logs. It shares nothing with the poll loop but the atomic
// counters.
type Heartbeat struct {
	l        log.Logger
	pinger   Pinger
	interval time.Duration

	startedAt time.Time
	polls     atomic.Int64
	events    atomic.Int64
	failures  atomic.Int64
}

// NewHeartbeat creates a heartbeat reporter with the given interval. A nil
// pinger skips the reachability check.
func NewHeartbeat(l log.Logger, pinger Pinger, interval time.Duration) *Heartbeat {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Heartbeat{l: l, pinger: pinger, interval: interval, startedAt: time.Now()}
}

// MarkPoll records one completed poll cycle.
func (h *Heartbeat) MarkPoll() { h.polls.Add(1) }

// MarkEvents records n delivered events.
func (h *Heartbeat) MarkEvents(n int) { h.events.Add(int64(n)) }

// MarkFailure records one failed poll cycle.
func (h *Heartbeat) MarkFailure() { h.failures.Add(1) }

// HeartbeatStatus is a point-in-time snapshot of the poll loop counters.
type HeartbeatStatus struct {
	Uptime   time.Duration `json:"uptime"`
	Polls    int64         `json:"polls"`
	Events   int64         `json:"events"`
	Failures int64         `json:"failures"`
}

// Status returns a snapshot of the counters.
func (h *Heartbeat) Status() HeartbeatStatus {
	return HeartbeatStatus{
		Uptime:   time.Since(h.startedAt),
		Polls:    h.polls.Load(),
		Events:   h.events.Load(),
		Failures: h.failures.Load(),
	}
}

// Run logs a status line every interval until ctx is done.
func (h *Heartbeat) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			feedState := "ok"
			if h.pinger != nil {
				pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				if err := h.pinger.Ping(pingCtx); err != nil {
					feedState = "unreachable"
				}
				cancel()
			}
			s := h.Status()
			h.l.Infof(ctx, "Listener alive: feed=%s uptime=%s polls=%d events=%d failures=%d",
				feedState, s.Uptime.Round(time.Second), s.Polls, s.Events, s.Failures)
		}
	}
}
