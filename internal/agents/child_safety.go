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

var (
	childTerms = regexp.MustCompile(`(?i)\b(minor|teen|teenager(s)?|child|kids?|underage|youth)\b`)
	ageCtrl    = regexp.MustCompile(`(?i)\bage[-\s]*(gate|verification|check|limit|restriction|sensitive)\b`)
	modSignals = regexp.MustCompile(`(?i)\bmoderation|moderate|review(ing)?|flag(ged|ging)?|stricter\b`)
	policyTerm = regexp.MustCompile(`(?i)\bpolicy\s*(framework)?\b`)
)

// ChildSafety reviews features for minor-protection duties: age gating,
// parental consent, youth curfews, teen visibility limits.
type ChildSafety struct {
	opts Options
}

func NewChildSafety(opts Options) *ChildSafety { return &ChildSafety{opts: opts} }

func (a *ChildSafety) Name() string { return "ChildSafetyAgent" }

func (a *ChildSafety) Check(ctx context.Context, f records.Feature) (Verdict, error) {
	t := f.Text()

	s := 0.0
	if has(childTerms, t) {
		s += 0.30
	}
	if has(ageCtrl, t) {
		s += 0.30
	}
	if cooc(t, childTerms, ageCtrl) {
		s += 0.20
	}
	if cooc(t, childTerms, modSignals) {
		s += 0.25
	}
	if cooc(t, childTerms, policyTerm) {
		s += 0.10
	}
	s = clampScore(s)

	status, reasoning := statusForScore(s,
		"Strong minors + age-control indicators.",
		"Partial minors indicators.",
		"No explicit minors/age-control cues.")

	v := Verdict{Agent: a.Name(), Status: status, Score: records.Round2(s), Reasoning: reasoning}
	if !wantModel(a.opts, status) {
		return v, nil
	}
	return applyModel(ctx, a.opts, a.prompt(t), v)
}

func (a *ChildSafety) prompt(text string) string {
	return "You are a CHILD-SAFETY compliance reviewer for social-media features.\n" +
		"Goal: decide if the feature implicates minor protections requiring geo-specific compliance " +
		"(e.g., age gating, parental consent, youth curfews, teen visibility limits).\n" +
		"Return ONLY one JSON object with keys: " +
		`{"status":"ISSUE|OK|REVIEW","reasoning":"...",` +
		`"risk_factors":[],"regions":[],"regulations":[],"mitigations":[]}.` + "\n" +
		"Rules:\n" +
		"- Consider only these regulation names if applicable: [SB976, HB 3, Utah SMRA, DSA, NCMEC]. If none, use [].\n" +
		"- Regions must be chosen from: [\"EU\",\"US-CA\",\"US-FL\",\"US-UT\",\"US-Federal\",\"SG\",\"BR\",\"CA\"]. If unknown, use [].\n" +
		"- Prefer ISSUE when minors + explicit age controls or parental requirements are present.\n\n" +
		"TEXT:\n" + capText(text)
}
