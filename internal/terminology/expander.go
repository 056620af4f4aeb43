// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package terminology expands internal product abbreviations into full
// terms before any analysis. Feature descriptions routinely use shorthand
// ("ASL", "geo-handler") that neither the rule engine nor the model should
// have to guess at.
package terminology

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
)

// Expander substitutes known abbreviations with their full terms using
// whole-word matches. Substitution is case-sensitive: abbreviations are
// internal codewords, not English words.
type Expander struct {
	rules []rule
}

type rule struct {
	abbrev  string
	full    string
	pattern *regexp.Regexp
}

// Load reads a terminology JSON map {"ASL": "Age Sensitive Logic", ...}
// from disk and compiles it.
func Load(path string) (*Expander, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read terminology file: %w", err)
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse terminology file %s: %w", path, err)
	}
	return New(m)
}

// New compiles a terminology map. A nil or empty map yields an identity
// expander.
func New(m map[string]string) (*Expander, error) {
	e := &Expander{}

	// Deterministic rule order keeps expansion idempotent across runs.
	abbrevs := make([]string, 0, len(m))
	for a := range m {
		abbrevs = append(abbrevs, a)
	}
	sort.Strings(abbrevs)

	for _, abbrev := range abbrevs {
		p, err := regexp.Compile(`\b` + regexp.QuoteMeta(abbrev) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("compile terminology pattern for %q: %w", abbrev, err)
		}
		e.rules = append(e.rules, rule{abbrev: abbrev, full: m[abbrev], pattern: p})
	}
	return e, nil
}

// Expand replaces every whole-word abbreviation occurrence with its full
// term. The input is returned unchanged when no rule matches.
func (e *Expander) Expand(text string) string {
	out := text
	for _, r := range e.rules {
		out = r.pattern.ReplaceAllString(out, r.full)
	}
	return out
}

// Len reports the number of loaded expansion rules.
func (e *Expander) Len() int {
	return len(e.rules)
}
