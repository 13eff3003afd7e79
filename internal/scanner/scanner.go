package scanner

import (
	"context"
	"regexp"
	"sort"

	pkgLog "pipescan/pkg/log"
)

// Finding is one reported match of a blacklist pattern.
type Finding struct {
	Pattern     string
	Count       int
	Examples    []string // first 3 matched substrings
	RiskScore   float64
	Severity    Severity
	Description string
}

// Analyzer evaluates content against a blacklist/whitelist rule pair.
// It is purely functional given its rule input; the logger only records
// suppressions and malformed rules.
type Analyzer struct {
	l pkgLog.Logger
}

func NewAnalyzer(l pkgLog.Logger) *Analyzer {
	return &Analyzer{l: l}
}

const maxExamples = 3

// Evaluate scans content with every blacklist rule. A blacklist match is
// suppressed in its entirety when ANY whitelist rule matches anywhere in the
// same content, regardless of where. Results are sorted by risk score
// descending; equal scores keep rule order (stable sort).
func (a *Analyzer) Evaluate(ctx context.Context, content string, blacklist, whitelist []Rule) []Finding {
	findings := []Finding{}
	if content == "" {
		return findings
	}

	for _, rule := range blacklist {
		re, err := regexp.Compile("(?i)" + rule.Regex)
		if err != nil {
			a.l.Warnf(ctx, "Regex error - %s: %v", rule.Name, err)
			continue
		}

		matches := re.FindAllString(content, -1)
		if len(matches) == 0 {
			continue
		}

		if name, ok := a.whitelisted(ctx, content, whitelist); ok {
			a.l.Infof(ctx, "Pattern '%s' blocked by whitelist '%s'", rule.Name, name)
			continue
		}

		examples := matches
		if len(examples) > maxExamples {
			examples = examples[:maxExamples]
		}

		findings = append(findings, Finding{
			Pattern:     rule.Name,
			Count:       len(matches),
			Examples:    examples,
			RiskScore:   ScoreFor(rule.RiskLevel),
			Severity:    SeverityFor(rule.Name),
			Description: rule.Description,
		})
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].RiskScore > findings[j].RiskScore
	})

	return findings
}

// whitelisted reports whether any whitelist rule matches the content, and
// which one. Malformed whitelist regexes are skipped like blacklist ones.
func (a *Analyzer) whitelisted(ctx context.Context, content string, whitelist []Rule) (string, bool) {
	for _, rule := range whitelist {
		re, err := regexp.Compile("(?i)" + rule.Regex)
		if err != nil {
			a.l.Warnf(ctx, "Regex error - %s: %v", rule.Name, err)
			continue
		}
		if re.MatchString(content) {
			return rule.Name, true
		}
	}
	return "", false
}

// TotalRiskScore sums the risk scores of a finding list.
func TotalRiskScore(findings []Finding) float64 {
	var total float64
	for _, f := range findings {
		total += f.RiskScore
	}
	return total
}
