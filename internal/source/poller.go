package source

import (
	"context"
	"time"

	"pipescan/internal/model"
	"pipescan/internal/orchestrator"
	"pipescan/pkg/log"
)

const reconnectFailures = 5

// Processor handles one build event end to end.
type Processor interface {
	Process(ctx context.Context, ev model.RawEvent) (orchestrator.Outcome, error)
}

// Poller drives the listen loop: long-poll the feed, hand each event to the
// processor in publish order, retry transient feed failures with backoff.
type Poller struct {
	l         log.Logger
	client    FeedClient
	processor Processor
	heartbeat *Heartbeat

	pollInterval   time.Duration
	maxRetries     int
	backoffBase    time.Duration
	reconnectPause time.Duration
}

// NewPoller creates a poller with the given feed client and processor.
func NewPoller(l log.Logger, client FeedClient, processor Processor, heartbeat *Heartbeat, pollInterval time.Duration, maxRetries int) *Poller {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Poller{
		l:              l,
		client:         client,
		processor:      processor,
		heartbeat:      heartbeat,
		pollInterval:   pollInterval,
		maxRetries:     maxRetries,
		backoffBase:    time.Second,
		reconnectPause: 30 * time.Second,
	}
}

// Run polls until ctx is done. An event already handed to the processor is
// carried to completion even when ctx is cancelled mid-flight.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.client.Ping(ctx); err != nil {
		p.l.Warnf(ctx, "Feed not reachable yet: %v", err)
	} else {
		p.l.Info(ctx, "Connected to event feed")
	}

	consecutiveFailures := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		events, err := p.fetchWithRetry(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			consecutiveFailures++
			p.heartbeat.MarkFailure()
			p.l.Errorf(ctx, "Feed poll failed (%d consecutive): %v", consecutiveFailures, err)
			if consecutiveFailures >= reconnectFailures {
				p.l.Warnf(ctx, "Feed unreachable after %d attempts, pausing %s before reconnect", consecutiveFailures, p.reconnectPause)
				if !sleep(ctx, p.reconnectPause) {
					return ctx.Err()
				}
				consecutiveFailures = 0
			}
			continue
		}

		consecutiveFailures = 0
		p.heartbeat.MarkPoll()
		p.processBatch(ctx, events)

		if len(events) == 0 {
			// Long poll timed out empty; pace the next request.
			if !sleep(ctx, p.pollInterval) {
				return ctx.Err()
			}
		}
	}
}

// processBatch runs events through the processor sequentially, in order. The
// detached context lets an in-flight event finish during shutdown.
func (p *Poller) processBatch(ctx context.Context, events []model.RawEvent) {
	for _, ev := range events {
		procCtx := context.WithoutCancel(ctx)
		outcome, err := p.processor.Process(procCtx, ev)
		if err != nil {
			p.l.Errorf(ctx, "Event %s processing failed (%s): %v", ev.ID, outcome, err)
		} else {
			p.l.Infof(ctx, "Event %s processed: %s", ev.ID, outcome)
		}
		p.heartbeat.MarkEvents(1)

		if ctx.Err() != nil {
			return
		}
	}
}

// fetchWithRetry tries the feed up to maxRetries times with exponential
// backoff between attempts.
func (p *Poller) fetchWithRetry(ctx context.Context) ([]model.RawEvent, error) {
	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			wait := p.backoffBase << uint(attempt)
			p.l.Warnf(ctx, "Retrying feed poll in %s (attempt %d/%d)", wait, attempt+1, p.maxRetries)
			if !sleep(ctx, wait) {
				return nil, ctx.Err()
			}
		}

		events, err := p.client.FetchEvents(ctx)
		if err == nil {
			return events, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// sleep waits for d or until ctx is done, reporting whether the full wait
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
