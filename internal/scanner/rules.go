package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	pkgLog "pipescan/pkg/log"
)

// Rule is one blacklist or whitelist entry from a pattern file. The same
// shape serves both roles; only the file it came from decides which.
type Rule struct {
	Name        string
	Regex       string
	RiskLevel   string // low | medium | high
	Description string
}

type ruleBody struct {
	Regex       string `json:"regex"`
	RiskLevel   string `json:"risk_level"`
	Description string `json:"description"`
}

// LoadRules reads a pattern file of shape
//
//	{"patterns": {"<name>": {"regex": ..., "risk_level": ..., "description": ...}}}
//
// preserving the file's author ordering. JSON objects decode into unordered
// maps in Go, so the "patterns" object is walked token by token instead;
// the resulting slice order is the tie-break order during evaluation.
func LoadRules(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rules, err := decodeRules(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pattern file %s: %w", path, err)
	}
	return rules, nil
}

func decodeRules(r io.Reader) ([]Rule, error) {
	dec := json.NewDecoder(r)

	if _, err := dec.Token(); err != nil { // opening {
		return nil, err
	}

	var rules []Rule
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", keyTok)
		}

		if key != "patterns" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
			continue
		}

		if _, err := dec.Token(); err != nil { // patterns opening {
			return nil, err
		}
		for dec.More() {
			nameTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			name, ok := nameTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected pattern key %v", nameTok)
			}

			var body ruleBody
			if err := dec.Decode(&body); err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", name, err)
			}
			rules = append(rules, Rule{
				Name:        name,
				Regex:       body.Regex,
				RiskLevel:   body.RiskLevel,
				Description: body.Description,
			})
		}
		if _, err := dec.Token(); err != nil { // patterns closing }
			return nil, err
		}
	}

	return rules, nil
}

// LoadRuleFiles loads the blacklist and whitelist pattern files. A missing
// blacklist is a degraded mode: scanning will find nothing, so it is logged
// as an error. A missing whitelist just means no suppression.
func LoadRuleFiles(ctx context.Context, l pkgLog.Logger, blacklistPath, whitelistPath string) (blacklist, whitelist []Rule) {
	var err error

	blacklist, err = LoadRules(blacklistPath)
	if err != nil {
		l.Errorf(ctx, "Blacklist file not available, scanning disabled: %v", err)
		blacklist = nil
	}

	whitelist, err = LoadRules(whitelistPath)
	if err != nil {
		l.Warnf(ctx, "Whitelist file not available, no suppression: %v", err)
		whitelist = nil
	}

	return blacklist, whitelist
}
