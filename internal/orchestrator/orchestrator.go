package orchestrator

import (
	"context"
	"fmt"
	"time"

	"pipescan/internal/model"
	"pipescan/internal/notifier"
	"pipescan/internal/scanner"
	"pipescan/internal/store"
	pkgLog "pipescan/pkg/log"
)

// Orchestrator drives one event through
// admit → fetch → analyze → persist → notify, strictly sequentially.
// Fetch and persistence failures are fatal to the event; a failed alert
// delivery is not, because detection-and-record integrity matters more than
// alert delivery.
type Orchestrator struct {
	l          pkgLog.Logger
	repo       store.Repository
	fetcher    ContentFetcher
	analyzer   *scanner.Analyzer
	dispatcher AlertDispatcher

	blacklist []scanner.Rule
	whitelist []scanner.Rule

	fetchTimeout time.Duration
}

// New creates a new Orchestrator. The rule sets are loaded once at startup
// and treated as read-only configuration.
func New(
	l pkgLog.Logger,
	repo store.Repository,
	fetcher ContentFetcher,
	analyzer *scanner.Analyzer,
	dispatcher AlertDispatcher,
	blacklist, whitelist []scanner.Rule,
	fetchTimeout time.Duration,
) *Orchestrator {
	if fetchTimeout == 0 {
		fetchTimeout = 30 * time.Second
	}
	return &Orchestrator{
		l:            l,
		repo:         repo,
		fetcher:      fetcher,
		analyzer:     analyzer,
		dispatcher:   dispatcher,
		blacklist:    blacklist,
		whitelist:    whitelist,
		fetchTimeout: fetchTimeout,
	}
}

// Process runs the state machine for one raw event.
func (o *Orchestrator) Process(ctx context.Context, ev model.RawEvent) (Outcome, error) {
	if ev.EventType != string(model.EventBuildComplete) {
		o.l.Infof(ctx, "Ignoring event type: %s", ev.EventType)
		return OutcomeIgnored, nil
	}

	buildID := ev.Resource.ID
	buildNumber := ev.Resource.BuildNumber
	o.l.Infof(ctx, "New build event: %s (ID: %d), definition %s (ID: %d)",
		buildNumber, buildID, ev.Resource.Definition.Name, ev.Resource.Definition.ID)

	eventID, admitted, err := o.repo.Admit(ctx, ev)
	if err != nil {
		o.l.Errorf(ctx, "Failed to admit event for build %s: %v", buildNumber, err)
		return OutcomeFailed, err
	}
	if !admitted {
		o.l.Infof(ctx, "Duplicate event skipped: build %s", buildNumber)
		return OutcomeDuplicate, nil
	}

	content, filename, err := o.fetchContent(ctx, ev.Resource.Definition.ID)
	if err != nil {
		// The event stays recorded with processed=false and no analysis
		// row; the failure is visible by absence.
		o.l.Errorf(ctx, "Failed to get YAML content for build %s: %v", buildNumber, err)
		return OutcomeFailed, err
	}
	o.l.Infof(ctx, "YAML content received (%d characters, %s)", len(content), filename)

	findings := o.analyzer.Evaluate(ctx, content, o.blacklist, o.whitelist)
	if len(findings) > 0 {
		o.l.Warnf(ctx, "Dangerous patterns detected in build %s:", buildNumber)
		for _, f := range findings {
			o.l.Warnf(ctx, "  %s: %d instances (score %.1f, %s)", f.Pattern, f.Count, f.RiskScore, f.Severity)
		}
	} else {
		o.l.Infof(ctx, "Security analysis: no dangerous patterns detected")
	}

	err = o.repo.SaveScanResult(ctx, eventID, store.ScanResult{
		Content:  content,
		Filename: filename,
		Findings: findings,
	})
	if err != nil {
		o.l.Errorf(ctx, "Failed to persist analysis for build %s: %v", buildNumber, err)
		return OutcomeFailed, err
	}

	if len(findings) > 0 {
		info := notifier.BuildInfo{
			BuildID:        buildID,
			BuildNumber:    buildNumber,
			DefinitionID:   ev.Resource.Definition.ID,
			DefinitionName: ev.Resource.Definition.Name,
		}
		if err := o.dispatcher.Notify(ctx, info, findings); err != nil {
			// Best-effort alerting: the record is already durable.
			o.l.Errorf(ctx, "Failed to send alert for build %s: %v", buildNumber, err)
		}
	}

	if err := o.repo.MarkProcessed(ctx, eventID); err != nil {
		o.l.Errorf(ctx, "Failed to mark event processed for build %s: %v", buildNumber, err)
		return OutcomeFailed, err
	}

	if len(findings) > 0 {
		return OutcomeAlerted, nil
	}
	return OutcomeClean, nil
}

// fetchContent resolves the definition's YAML filename and retrieves the
// file, bounded by the fetch timeout.
func (o *Orchestrator) fetchContent(ctx context.Context, definitionID int) (content, filename string, err error) {
	fctx, cancel := context.WithTimeout(ctx, o.fetchTimeout)
	defer cancel()

	filename, err = o.fetcher.YAMLFilename(fctx, definitionID)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve YAML filename for definition %d: %w", definitionID, err)
	}

	content, err = o.fetcher.GetFileContent(fctx, filename)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch %s: %w", filename, err)
	}

	return content, filename, nil
}
