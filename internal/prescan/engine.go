// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package prescan is the deterministic first-pass classifier. It scans
// feature text against an embedded catalog of law identifiers, compliance
// domains and compliance-language phrases, and emits a structured hint with
// a bounded confidence boost. No network calls; same text, same result.
package prescan

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/geogate-ai/geogate/internal/prescan/enforcement"
	"gopkg.in/yaml.v3"
)

// Confidence boost contributions. Additive, capped at BoostCap.
const (
	boostLawHit     = 0.20
	boostCompliance = 0.05
	boostHeuristic  = 0.10

	// BoostCap bounds the prescan confidence boost.
	BoostCap = 0.30
)

// snippetWindow is the context captured around each domain keyword match.
const snippetWindow = 20

// maxSnippetsPerDomain caps captured snippets for CSV readability.
const maxSnippetsPerDomain = 8

// Engine is the compiled rule catalog. Construction parses the embedded
// YAML, compiles every pattern and is the only fallible step; Scan itself
// is pure string processing.
type Engine struct {
	laws       []LawRule
	domains    []DomainRule
	compliance []*regexp.Regexp
	minor      *regexp.Regexp
	ageControl *regexp.Regexp
	boosted    string
}

// NewEngine initializes an Engine from the embedded rule catalog.
func NewEngine() (*Engine, error) {
	var catalog ruleCatalogFile
	if err := yaml.Unmarshal(enforcement.RuleCatalog, &catalog); err != nil {
		return nil, fmt.Errorf("unmarshal embedded rule catalog: %w", err)
	}
	if err := catalog.compile(); err != nil {
		return nil, fmt.Errorf("compile rule catalog: %w", err)
	}

	e := &Engine{
		laws:    catalog.Laws,
		domains: catalog.Domains,
		boosted: catalog.Heuristics.BoostedDomain,
	}
	for _, p := range catalog.ComplianceLanguage {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile compliance phrase %q: %w", p, err)
		}
		e.compliance = append(e.compliance, re)
	}
	var err error
	if e.minor, err = regexp.Compile(catalog.Heuristics.MinorTerms); err != nil {
		return nil, fmt.Errorf("compile minor-terms heuristic: %w", err)
	}
	if e.ageControl, err = regexp.Compile(catalog.Heuristics.AgeControlTerms); err != nil {
		return nil, fmt.Errorf("compile age-control heuristic: %w", err)
	}
	return e, nil
}

// Scan classifies one feature. Name and description are concatenated and
// whitespace-normalized before matching; malformed input degrades to the
// empty string rather than failing.
func (e *Engine) Scan(featureName, featureDescription string) Result {
	text := normalize(featureName + "\n" + featureDescription)

	lawCounts, regions := e.collectLawHits(text)
	keywordHits, domainCounts := e.collectDomainHits(text)
	compliance := e.hasComplianceLanguage(text)

	// Explicit law hits upgrade their mapped domains with a synthetic
	// minimum count, so a bare "SB976" still routes to Child Safety.
	for _, law := range e.laws {
		if lawCounts[law.ID] == 0 {
			continue
		}
		for _, dom := range law.Domains {
			if _, ok := keywordHits[dom]; !ok {
				keywordHits[dom] = nil
			}
			if domainCounts[dom] < 1 {
				domainCounts[dom] = 1
			}
		}
	}

	// Minors + age-control co-occurrence: the strongest soft signal,
	// catching age-sensitive features that never name a law.
	minor := e.minor.MatchString(text)
	ageCtrl := e.ageControl.MatchString(text)
	if minor && ageCtrl && e.boosted != "" {
		if domainCounts[e.boosted] < 2 {
			domainCounts[e.boosted] = 2
		}
		if _, ok := keywordHits[e.boosted]; !ok {
			keywordHits[e.boosted] = nil
		}
	}

	requiredHint := len(lawCounts) > 0 || compliance || (minor && ageCtrl)

	boost := 0.0
	if len(lawCounts) > 0 {
		boost += boostLawHit
	}
	if compliance {
		boost += boostCompliance
	}
	if minor && ageCtrl {
		boost += boostHeuristic
	}
	if boost > BoostCap {
		boost = BoostCap
	}

	domains := sortedByCount(domainCounts)
	lawIDs := sortedKeys(lawCounts)
	regionList := setToSorted(regions)

	return Result{
		RequiredHint:    requiredHint,
		Domains:         domains,
		PrimaryRegions:  regionList,
		LawHits:         lawIDs,
		KeywordHits:     keywordHits,
		Rationale:       buildRationale(lawCounts, lawIDs, compliance, domains, domainCounts, regionList),
		ConfidenceBoost: boost,
	}
}

func (e *Engine) collectLawHits(text string) (map[string]int, map[string]struct{}) {
	counts := make(map[string]int)
	regions := make(map[string]struct{})
	for _, law := range e.laws {
		total := 0
		for _, re := range law.compiled {
			total += len(re.FindAllStringIndex(text, -1))
		}
		if total == 0 {
			continue
		}
		counts[law.ID] = total
		for _, r := range law.Regions {
			regions[r] = struct{}{}
		}
	}
	return counts, regions
}

func (e *Engine) collectDomainHits(text string) (map[string][]string, map[string]int) {
	hits := make(map[string][]string)
	counts := make(map[string]int)
	for _, dom := range e.domains {
		var snippets []string
		total := 0
		for _, re := range dom.compiled {
			for _, loc := range re.FindAllStringIndex(text, -1) {
				snippets = append(snippets, snippet(text, loc[0], loc[1]))
				total++
			}
		}
		if total == 0 {
			continue
		}
		if len(snippets) > maxSnippetsPerDomain {
			snippets = snippets[:maxSnippetsPerDomain]
		}
		hits[dom.Name] = snippets
		counts[dom.Name] = total
	}
	return hits, counts
}

func (e *Engine) hasComplianceLanguage(text string) bool {
	for _, re := range e.compliance {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// snippet captures the match with up to snippetWindow bytes of context on
// each side.
func snippet(text string, start, end int) string {
	s := start - snippetWindow
	if s < 0 {
		s = 0
	}
	t := end + snippetWindow
	if t > len(text) {
		t = len(text)
	}
	return text[s:t]
}

func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// sortedByCount orders domains by descending match count, alphabetical on
// ties, so output is reproducible.
func sortedByCount(counts map[string]int) []string {
	out := sortedKeys(counts)
	sort.SliceStable(out, func(i, j int) bool {
		return counts[out[i]] > counts[out[j]]
	})
	return out
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func setToSorted(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func buildRationale(lawCounts map[string]int, lawIDs []string, compliance bool, domains []string, domainCounts map[string]int, regions []string) string {
	var parts []string
	if len(lawCounts) > 0 {
		laws := make([]string, 0, len(lawIDs))
		for _, id := range lawIDs {
			laws = append(laws, fmt.Sprintf("%s×%d", id, lawCounts[id]))
		}
		parts = append(parts, "laws: "+strings.Join(laws, ", "))
	}
	if compliance {
		parts = append(parts, "explicit compliance phrasing")
	}
	if len(domains) > 0 {
		top := domains
		if len(top) > 3 {
			top = top[:3]
		}
		hints := make([]string, 0, len(top))
		for _, d := range top {
			hints = append(hints, fmt.Sprintf("%s×%d", d, domainCounts[d]))
		}
		parts = append(parts, "domain hints: "+strings.Join(hints, ", "))
	}
	if len(regions) > 0 {
		parts = append(parts, "regions: "+strings.Join(regions, ", "))
	}
	if len(parts) == 0 {
		return "no strong signals"
	}
	return strings.Join(parts, "; ")
}
