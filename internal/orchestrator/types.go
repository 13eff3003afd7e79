package orchestrator

import (
	"context"

	"pipescan/internal/notifier"
	"pipescan/internal/scanner"
)

// Outcome is the terminal state of one event's processing. Failures and
// duplicates are ordinary outcomes here, not panics or exceptions: the
// polling loop inspects the outcome and keeps going.
type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"   // not a build-completion event
	OutcomeDuplicate Outcome = "duplicate" // already admitted before
	OutcomeFailed    Outcome = "failed"    // fetch or persistence failure
	OutcomeClean     Outcome = "clean"     // analyzed, no findings
	OutcomeAlerted   Outcome = "alerted"   // analyzed, findings persisted and alert fired
)

// ContentFetcher resolves a pipeline definition to its YAML file and fetches
// that file's content.
type ContentFetcher interface {
	YAMLFilename(ctx context.Context, definitionID int) (string, error)
	GetFileContent(ctx context.Context, path string) (string, error)
}

// AlertDispatcher delivers a findings summary for one build.
type AlertDispatcher interface {
	Notify(ctx context.Context, info notifier.BuildInfo, findings []scanner.Finding) error
}
