package scanner

import (
	"context"
	"fmt"
	"strings"
)

// ScriptReport is a coarse summary for ad-hoc script checks (timeline/log
// inspection paths), layered on top of Evaluate.
type ScriptReport struct {
	HasDangerousPatterns bool
	PatternsFound        []string
	RiskLevel            string // LOW | MEDIUM | HIGH
	Recommendations      []string
}

// AnalyzeScript runs the rule engine over arbitrary script content and folds
// the findings into a single report. The overall risk level here is a count
// heuristic for human triage and is unrelated to per-finding risk scores.
func (a *Analyzer) AnalyzeScript(ctx context.Context, content string, blacklist, whitelist []Rule) ScriptReport {
	report := ScriptReport{RiskLevel: "LOW"}
	if content == "" {
		return report
	}

	findings := a.Evaluate(ctx, content, blacklist, whitelist)
	if len(findings) == 0 {
		return report
	}

	report.HasDangerousPatterns = true
	for _, f := range findings {
		report.PatternsFound = append(report.PatternsFound, f.Pattern)
	}

	switch {
	case len(findings) > 3:
		report.RiskLevel = "HIGH"
	case len(findings) > 1:
		report.RiskLevel = "MEDIUM"
	}

	report.Recommendations = append(report.Recommendations,
		fmt.Sprintf("Found %d dangerous pattern(s): %s",
			len(findings), strings.Join(report.PatternsFound, ", ")))

	return report
}
