package store

import (
	"context"

	"pipescan/internal/model"
	"pipescan/internal/scanner"
)

// ScanResult is everything the orchestrator persists after one rule engine
// evaluation. Findings and the analysis row are written as one unit.
type ScanResult struct {
	Content  string
	Filename string
	Findings []scanner.Finding
}

// Repository is the deduplicating event store.
//
// Admit is the at-most-once gate: it inserts the event and reports
// admitted=false (no error) when the (build id, build number) pair already
// exists. Write failures are fatal to the caller's event; read operations
// serve reporting paths and return empty results on failure instead of
// propagating.
type Repository interface {
	Admit(ctx context.Context, ev model.RawEvent) (eventID uint, admitted bool, err error)
	SaveScanResult(ctx context.Context, eventID uint, res ScanResult) error
	MarkProcessed(ctx context.Context, eventID uint) error

	RecentEvents(ctx context.Context, limit int) []model.WebhookEvent
	FindingsForEvent(ctx context.Context, eventID uint) []model.SecurityFinding
	PatternStatistics(ctx context.Context) []model.PatternStatistic
}
