// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package prescan

import (
	"fmt"
	"regexp"
)

// ruleCatalogFile mirrors the embedded rules.yaml schema.
type ruleCatalogFile struct {
	Laws               []LawRule    `yaml:"laws"`
	Domains            []DomainRule `yaml:"domains"`
	ComplianceLanguage []string     `yaml:"compliance_language"`
	Heuristics         Heuristics   `yaml:"heuristics"`
}

// LawRule maps one law identifier to its alias patterns, the regions it
// binds, and the compliance domains an explicit hit implies.
type LawRule struct {
	ID       string   `yaml:"id"`
	Regions  []string `yaml:"regions"`
	Domains  []string `yaml:"domains"`
	Patterns []string `yaml:"patterns"`

	compiled []*regexp.Regexp
}

// DomainRule maps one compliance domain to its keyword patterns.
type DomainRule struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`

	compiled []*regexp.Regexp
}

// Heuristics holds the minors/age-control co-occurrence boost that catches
// child-safety features naming no law at all.
type Heuristics struct {
	MinorTerms      string `yaml:"minor_terms"`
	AgeControlTerms string `yaml:"age_control_terms"`
	BoostedDomain   string `yaml:"boosted_domain"`
}

// compile builds every regex in the catalog up front so Scan never pays
// compilation cost and a malformed catalog fails at startup, not mid-run.
func (f *ruleCatalogFile) compile() error {
	for i := range f.Laws {
		law := &f.Laws[i]
		for _, p := range law.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return fmt.Errorf("law %s: compile %q: %w", law.ID, p, err)
			}
			law.compiled = append(law.compiled, re)
		}
	}
	for i := range f.Domains {
		dom := &f.Domains[i]
		for _, p := range dom.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return fmt.Errorf("domain %s: compile %q: %w", dom.Name, p, err)
			}
			dom.compiled = append(dom.compiled, re)
		}
	}
	return nil
}

// Result is the deterministic outcome of scanning one feature's text.
// Produced once per feature and read-only thereafter.
type Result struct {
	RequiredHint    bool
	Domains         []string
	PrimaryRegions  []string
	LawHits         []string
	KeywordHits     map[string][]string
	Rationale       string
	ConfidenceBoost float64
}
