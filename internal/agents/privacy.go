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

// privacyHints are checked in order against their paired weights.
var privacyHints = []struct {
	re     *regexp.Regexp
	weight float64
}{
	{regexp.MustCompile(`(?i)\bconsent\b`), 0.25},
	{regexp.MustCompile(`(?i)\bopt-?in\b`), 0.20},
	{regexp.MustCompile(`(?i)\bopt-?out\b`), 0.20},
	{regexp.MustCompile(`(?i)\b(default|forced)\s*(private|public)\b`), 0.15},
	{regexp.MustCompile(`(?i)\bvisibility\s*settings?\b`), 0.15},
	{regexp.MustCompile(`(?i)\bpersonalization\s*(off|on|toggle)\b`), 0.10},
	{regexp.MustCompile(`(?i)\bdata\s*(minimi[sz]ation|deletion|erasure|retention)\b`), 0.15},
	{regexp.MustCompile(`(?i)\bguest\s*mode\b`), 0.10},
	{regexp.MustCompile(`(?i)\bprivacy\b`), 0.05},
}

var (
	consentTerm   = regexp.MustCompile(`(?i)\bconsent\b`)
	retentionTerm = regexp.MustCompile(`(?i)\b(retention|deletion|erasure|minimi[sz]ation)\b`)
)

// Privacy reviews features for geo-specific privacy handling: consent
// flows, children's consent thresholds, retention and deletion, default
// visibility toggles.
type Privacy struct {
	opts Options
}

func NewPrivacy(opts Options) *Privacy { return &Privacy{opts: opts} }

func (a *Privacy) Name() string { return "PrivacyAgent" }

func (a *Privacy) Check(ctx context.Context, f records.Feature) (Verdict, error) {
	t := f.Text()

	s := 0.0
	for _, h := range privacyHints {
		if has(h.re, t) {
			s += h.weight
		}
	}
	if cooc(t, consentTerm, retentionTerm) {
		s += 0.15
	}
	s = clampScore(s)

	status, reasoning := statusForScore(s,
		"Strong privacy indicators (consent/retention/visibility).",
		"Partial privacy indicators.",
		"No explicit privacy triggers.")

	v := Verdict{Agent: a.Name(), Status: status, Score: records.Round2(s), Reasoning: reasoning}
	if !wantModel(a.opts, status) {
		return v, nil
	}
	return applyModel(ctx, a.opts, a.prompt(t), v)
}

func (a *Privacy) prompt(text string) string {
	return "You are a PRIVACY compliance reviewer.\n" +
		"Decide if this feature likely requires geo-specific privacy handling (consent flows, " +
		"children's consent thresholds, retention/deletion, default visibility/privacy toggles).\n" +
		"Return ONLY one JSON object: " +
		`{"status":"ISSUE|OK|REVIEW","reasoning":"...",` +
		`"risk_factors":[],"regions":[],"regulations":[],"mitigations":[]}.` + "\n" +
		"Allowed regulation names: [DSA, NCMEC, SB976, HB 3, Utah SMRA] when privacy intersects minors/moderation; else [].\n" +
		"Regions limited to: [\"EU\",\"US-CA\",\"US-FL\",\"US-UT\",\"US-Federal\",\"SG\",\"BR\",\"CA\"].\n\n" +
		"TEXT:\n" + capText(text)
}
