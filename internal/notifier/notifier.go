package notifier

import (
	"context"
	"fmt"
	"strings"

	"pipescan/internal/scanner"
	pkgLog "pipescan/pkg/log"
)

// BuildInfo is the alert header data for one analyzed build.
type BuildInfo struct {
	BuildID        int
	BuildNumber    string
	DefinitionID   int
	DefinitionName string
}

// Poster sends one text message to the alert endpoint.
type Poster interface {
	Post(ctx context.Context, text string) error
}

// Dispatcher formats and sends security alerts. Delivery is best-effort:
// a failed send is reported to the caller, who logs it and moves on.
type Dispatcher struct {
	poster Poster
	l      pkgLog.Logger
}

func New(poster Poster, l pkgLog.Logger) *Dispatcher {
	return &Dispatcher{poster: poster, l: l}
}

// Notify sends one alert summarizing the findings of a build.
func (d *Dispatcher) Notify(ctx context.Context, info BuildInfo, findings []scanner.Finding) error {
	text := FormatAlert(info, findings)

	if err := d.poster.Post(ctx, text); err != nil {
		return fmt.Errorf("failed to send security alert: %w", err)
	}

	d.l.Infof(ctx, "Security alert sent for build %s (%d patterns)", info.BuildNumber, len(findings))
	return nil
}

// FormatAlert builds the alert text: header, one "pattern: count" line per
// finding, and a total summary line.
func FormatAlert(info BuildInfo, findings []scanner.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 SECURITY ALERT - Build: %s - Pipeline: %s", info.BuildNumber, info.DefinitionName)

	if len(findings) == 0 {
		return b.String()
	}

	b.WriteString("\n\n🔴 Detected Patterns:")
	for _, f := range findings {
		fmt.Fprintf(&b, "\n• %s: %d instances", f.Pattern, f.Count)
	}

	fmt.Fprintf(&b, "\n\n📊 Summary: %d patterns detected", len(findings))
	return b.String()
}
