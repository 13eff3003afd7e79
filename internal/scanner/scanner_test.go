package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func testRules() (blacklist, whitelist []Rule) {
	blacklist = []Rule{
		{Name: "eval", Regex: `eval\s*\(`, RiskLevel: "high", Description: "Dynamic evaluation"},
		{Name: "file_write", Regex: `>\s*/etc/`, RiskLevel: "high", Description: "System file write"},
		{Name: "curl_dangerous", Regex: `curl\s+.*\|\s*bash`, RiskLevel: "medium", Description: "Pipe to shell"},
		{Name: "base64_encoded", Regex: `base64\s+-d`, RiskLevel: "low", Description: "Encoded payload"},
	}
	whitelist = []Rule{
		{Name: "approved_eval", Regex: `#\s*approved:`, RiskLevel: "low", Description: "Reviewed usage"},
	}
	return blacklist, whitelist
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()
	a := NewAnalyzer(&mockLogger{})
	blacklist, whitelist := testRules()

	t.Run("EmptyContent", func(t *testing.T) {
		findings := a.Evaluate(ctx, "", blacklist, whitelist)
		if len(findings) != 0 {
			t.Errorf("expected no findings for empty content, got %d", len(findings))
		}
	})

	t.Run("NoBlacklist", func(t *testing.T) {
		findings := a.Evaluate(ctx, "eval($cmd)", nil, whitelist)
		if len(findings) != 0 {
			t.Errorf("expected no findings without blacklist, got %d", len(findings))
		}
	})

	t.Run("SingleMatch", func(t *testing.T) {
		findings := a.Evaluate(ctx, "steps:\n- script: eval($cmd)\n", blacklist, nil)
		if len(findings) != 1 {
			t.Fatalf("expected 1 finding, got %d", len(findings))
		}
		f := findings[0]
		if f.Pattern != "eval" {
			t.Errorf("expected pattern eval, got %s", f.Pattern)
		}
		if f.RiskScore != 8.0 {
			t.Errorf("expected risk score 8.0, got %v", f.RiskScore)
		}
		if f.Severity != SeverityCritical {
			t.Errorf("expected severity CRITICAL, got %s", f.Severity)
		}
		if f.Count != 1 {
			t.Errorf("expected count 1, got %d", f.Count)
		}
	})

	t.Run("CaseInsensitive", func(t *testing.T) {
		findings := a.Evaluate(ctx, "EVAL($cmd)", blacklist, nil)
		if len(findings) != 1 {
			t.Fatalf("expected case-insensitive match, got %d findings", len(findings))
		}
	})

	t.Run("ExamplesCappedAtThree", func(t *testing.T) {
		content := "eval(a) eval(b) eval(c) eval(d) eval(e)"
		findings := a.Evaluate(ctx, content, blacklist, nil)
		if len(findings) != 1 {
			t.Fatalf("expected 1 finding, got %d", len(findings))
		}
		if findings[0].Count != 5 {
			t.Errorf("expected count 5, got %d", findings[0].Count)
		}
		if len(findings[0].Examples) != 3 {
			t.Errorf("expected 3 examples, got %d", len(findings[0].Examples))
		}
	})

	t.Run("WhitelistSuppressionIsTotal", func(t *testing.T) {
		// The whitelist match is on an unrelated line; suppression still
		// removes the blacklist finding entirely.
		content := "# approved: eval usage reviewed\nsteps:\n- script: eval($cmd)\n"
		findings := a.Evaluate(ctx, content, blacklist, whitelist)
		if len(findings) != 0 {
			t.Errorf("expected total suppression, got %d findings", len(findings))
		}
	})

	t.Run("NoSuppressionWithoutWhitelistMatch", func(t *testing.T) {
		findings := a.Evaluate(ctx, "eval($cmd)", blacklist, whitelist)
		if len(findings) != 1 {
			t.Errorf("expected 1 finding, got %d", len(findings))
		}
	})

	t.Run("OrderedByScoreDescStable", func(t *testing.T) {
		content := "base64 -d payload\ncurl http://x | bash\neval(a)\necho hi > /etc/hosts\n"
		findings := a.Evaluate(ctx, content, blacklist, nil)
		if len(findings) != 4 {
			t.Fatalf("expected 4 findings, got %d", len(findings))
		}
		wantOrder := []string{"eval", "file_write", "curl_dangerous", "base64_encoded"}
		for i, want := range wantOrder {
			if findings[i].Pattern != want {
				t.Errorf("position %d: expected %s, got %s", i, want, findings[i].Pattern)
			}
		}
		// eval and file_write are both high (8.0): encounter order must hold.
		if findings[0].RiskScore != findings[1].RiskScore {
			t.Errorf("expected equal scores for tie check, got %v and %v",
				findings[0].RiskScore, findings[1].RiskScore)
		}
	})

	t.Run("ScoreSeverityIndependence", func(t *testing.T) {
		// Same declared level, different severity buckets.
		content := "eval(a)\necho hi > /etc/hosts\n"
		findings := a.Evaluate(ctx, content, blacklist, nil)
		if len(findings) != 2 {
			t.Fatalf("expected 2 findings, got %d", len(findings))
		}
		if findings[0].RiskScore != findings[1].RiskScore {
			t.Errorf("expected identical risk scores, got %v and %v",
				findings[0].RiskScore, findings[1].RiskScore)
		}
		if findings[0].Severity == findings[1].Severity {
			t.Errorf("expected different severities, both %s", findings[0].Severity)
		}
	})

	t.Run("MalformedRegexSkipped", func(t *testing.T) {
		broken := append([]Rule{{Name: "broken", Regex: `([`, RiskLevel: "high"}}, blacklist...)
		findings := a.Evaluate(ctx, "eval(a)", broken, nil)
		if len(findings) != 1 || findings[0].Pattern != "eval" {
			t.Errorf("malformed rule must not abort evaluation, got %v", findings)
		}
	})
}

func TestSeverityTables(t *testing.T) {
	cases := []struct {
		name string
		want Severity
	}{
		{"eval", SeverityCritical},
		{"exec", SeverityCritical},
		{"base64_execute", SeverityCritical},
		{"powershell_invoke", SeverityCritical},
		{"subprocess_call", SeverityHigh},
		{"curl_dangerous", SeverityHigh},
		{"file_write", SeverityHigh},
		{"base64_encoded", SeverityMedium},
		{"anything_else", SeverityMedium},
	}
	for _, tc := range cases {
		if got := SeverityFor(tc.name); got != tc.want {
			t.Errorf("SeverityFor(%s) = %s, want %s", tc.name, got, tc.want)
		}
	}

	if ScoreFor("high") != 8.0 || ScoreFor("medium") != 5.0 || ScoreFor("low") != 3.0 {
		t.Error("risk level to score mapping changed")
	}
	if ScoreFor("unknown") != 3.0 {
		t.Error("unknown risk level must default to low score")
	}
}

func TestLoadRules(t *testing.T) {
	t.Run("PreservesFileOrder", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "blacklist.json")
		content := `{
  "version": "1",
  "patterns": {
    "zeta": {"regex": "z", "risk_level": "low", "description": "z first"},
    "alpha": {"regex": "a", "risk_level": "high", "description": "a second"},
    "mid": {"regex": "m", "risk_level": "medium", "description": "m third"}
  }
}`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		rules, err := LoadRules(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		wantOrder := []string{"zeta", "alpha", "mid"}
		if len(rules) != len(wantOrder) {
			t.Fatalf("expected %d rules, got %d", len(wantOrder), len(rules))
		}
		for i, want := range wantOrder {
			if rules[i].Name != want {
				t.Errorf("position %d: expected %s, got %s", i, want, rules[i].Name)
			}
		}
		if rules[1].RiskLevel != "high" || rules[1].Regex != "a" {
			t.Errorf("rule body not decoded: %+v", rules[1])
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		if _, err := LoadRules(filepath.Join(t.TempDir(), "nope.json")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("LoadRuleFilesDegradedMode", func(t *testing.T) {
		dir := t.TempDir()
		blacklist, whitelist := LoadRuleFiles(context.Background(), &mockLogger{},
			filepath.Join(dir, "missing_blacklist.json"),
			filepath.Join(dir, "missing_whitelist.json"))
		if blacklist != nil || whitelist != nil {
			t.Error("expected empty rule sets when files are missing")
		}
	})
}

func TestAnalyzeScript(t *testing.T) {
	ctx := context.Background()
	a := NewAnalyzer(&mockLogger{})
	blacklist, _ := testRules()

	t.Run("Clean", func(t *testing.T) {
		report := a.AnalyzeScript(ctx, "echo hello", blacklist, nil)
		if report.HasDangerousPatterns || report.RiskLevel != "LOW" {
			t.Errorf("unexpected report for clean script: %+v", report)
		}
	})

	t.Run("MultipleFindings", func(t *testing.T) {
		content := "eval(a)\ncurl http://x | bash\n"
		report := a.AnalyzeScript(ctx, content, blacklist, nil)
		if !report.HasDangerousPatterns {
			t.Error("expected dangerous patterns")
		}
		if report.RiskLevel != "MEDIUM" {
			t.Errorf("expected MEDIUM for 2 findings, got %s", report.RiskLevel)
		}
		if len(report.Recommendations) != 1 {
			t.Errorf("expected 1 recommendation, got %d", len(report.Recommendations))
		}
	})
}
