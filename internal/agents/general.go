// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"context"
	"regexp"

	"github.com/geogate-ai/geogate/internal/records"
)

var complianceLanguage = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bto\s+comply\s+with\b`),
	regexp.MustCompile(`(?i)\bin\s+accordance\s+with\b`),
	regexp.MustCompile(`(?i)\b(required|mandated)\s+by\s+law\b`),
	regexp.MustCompile(`(?i)\bas\s+required\s+by\s+(law|regulation|policy|statute)\b`),
	regexp.MustCompile(`(?i)\blegal\s+(requirement|obligation|basis)\b`),
	regexp.MustCompile(`(?i)\bcompliance\s*(routing|handler|logic)\b`),
	regexp.MustCompile(`(?i)\bgeo-?handler\b`),
	regexp.MustCompile(`(?i)\brollout\s*waves?\b`),
}

var regionHints = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bEU\b|\bEurope(an)?\b`),
	regexp.MustCompile(`(?i)\bUS\b|\bUnited\s*States\b`),
	regexp.MustCompile(`(?i)\bUS-CA\b|\bCalifornia\b`),
	regexp.MustCompile(`(?i)\bUS-FL\b|\bFlorida\b`),
	regexp.MustCompile(`(?i)\bUS-UT\b|\bUtah\b`),
	regexp.MustCompile(`(?i)\bSG\b|\bSingapore\b`),
	regexp.MustCompile(`(?i)\bBR\b|\bBrazil\b`),
	regexp.MustCompile(`(?i)\bCA\b|\bCanada\b`),
	regexp.MustCompile(`(?i)\bKR\b|\bKorea\b`),
	regexp.MustCompile(`(?i)\bJP\b|\bJapan\b`),
	regexp.MustCompile(`(?i)\bIN\b|\bIndia\b`),
}

var guardrailTerm = regexp.MustCompile(`(?i)\bguardrail(s)?\b|\bguideline(s)?\b|\bpolicy\b`)

// GeneralCompliance is the catch-all reviewer for features with no clear
// specialist domain. It also backs the region-specialist agent names, which
// share its scorecard but report under their own name.
type GeneralCompliance struct {
	name string
	opts Options
}

func NewGeneralCompliance(opts Options) *GeneralCompliance {
	return &GeneralCompliance{name: "GeneralComplianceAgent", opts: opts}
}

// NewRegionSpecialist returns the general scorecard reporting under a
// region-specialist agent name, so region-routed work is never dropped.
func NewRegionSpecialist(name string, opts Options) *GeneralCompliance {
	return &GeneralCompliance{name: name, opts: opts}
}

func (a *GeneralCompliance) Name() string { return a.name }

func (a *GeneralCompliance) Check(ctx context.Context, f records.Feature) (Verdict, error) {
	t := f.Text()

	s := 0.0
	if anyMatch(complianceLanguage, t) {
		s += 0.5
	}
	if anyMatch(regionHints, t) {
		s += 0.25
	}
	if has(guardrailTerm, t) {
		s += 0.15
	}
	s = clampScore(s)

	status, reasoning := statusForScore(s,
		"Compliance phrasing and/or region signals present.",
		"Some compliance or region cues present.",
		"No explicit compliance/region triggers.")

	v := Verdict{Agent: a.name, Status: status, Score: records.Round2(s), Reasoning: reasoning}
	if !wantModel(a.opts, status) {
		return v, nil
	}
	return applyModel(ctx, a.opts, a.prompt(t), v)
}

func (a *GeneralCompliance) prompt(text string) string {
	return "You are a GENERAL geo-compliance reviewer.\n" +
		"Decide if the feature likely requires geo-specific handling (any domain). " +
		"Look for legal/compliance phrasing, regional rollouts/limitations, or regulator signals.\n" +
		"Return ONLY one JSON object: " +
		`{"status":"ISSUE|OK|REVIEW","reasoning":"...",` +
		`"risk_factors":[],"regions":[],"regulations":[],"mitigations":[]}.` + "\n" +
		"Allowed regulation names: [DSA, SB976, HB 3, Utah SMRA, NCMEC] or [].\n" +
		"Regions limited to: [\"EU\",\"US-CA\",\"US-FL\",\"US-UT\",\"US-Federal\",\"SG\",\"BR\",\"CA\"].\n\n" +
		"TEXT:\n" + capText(text)
}

func anyMatch(res []*regexp.Regexp, t string) bool {
	for _, re := range res {
		if re.MatchString(t) {
			return true
		}
	}
	return false
}
