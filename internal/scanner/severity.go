package scanner

// Severity is the coarse label attached to a finding. It is keyed by the
// pattern's name, not by its risk score: the two tables below are
// independent lookups and must stay that way.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// criticalPatterns are dynamic-evaluation style patterns.
var criticalPatterns = map[string]bool{
	"eval":              true,
	"exec":              true,
	"base64_execute":    true,
	"powershell_invoke": true,
}

// highPatterns are process-invocation / network-fetch / file-write patterns.
var highPatterns = map[string]bool{
	"subprocess_call": true,
	"curl_dangerous":  true,
	"file_write":      true,
}

// SeverityFor maps a pattern name to its severity label.
func SeverityFor(patternName string) Severity {
	switch {
	case criticalPatterns[patternName]:
		return SeverityCritical
	case highPatterns[patternName]:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// ScoreFor maps a rule's declared risk level to its numeric score. This is
// the only input to the risk score; match counts do not change it.
func ScoreFor(riskLevel string) float64 {
	switch riskLevel {
	case "high":
		return 8.0
	case "medium":
		return 5.0
	default:
		return 3.0
	}
}
