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

var modHints = []struct {
	re     *regexp.Regexp
	weight float64
}{
	{regexp.MustCompile(`(?i)\bmoderation\b`), 0.25},
	{regexp.MustCompile(`(?i)\btake\s*down\b|\btakedown\b|\bremoval\b`), 0.20},
	{regexp.MustCompile(`(?i)\breport(ing)?\b`), 0.15},
	{regexp.MustCompile(`(?i)\bappeal\s*(flow|process)\b`), 0.15},
	{regexp.MustCompile(`(?i)\btransparency\s*(log|report|notice)\b`), 0.15},
	{regexp.MustCompile(`(?i)\bvisibility\s*(lock|restriction|control)\b|\brestricted\s*mode\b`), 0.10},
	{regexp.MustCompile(`(?i)\bNSP\b|\bRedline\b|\bsoft\s*block\b|\bsoftblock\b`), 0.10},
	{regexp.MustCompile(`(?i)\bEchoTrace\b|\btrace\b|\baudit\b`), 0.05},
}

var (
	noticeTerm       = regexp.MustCompile(`(?i)\bnotice\b`)
	appealTerm       = regexp.MustCompile(`(?i)\bappeal`)
	transparencyTerm = regexp.MustCompile(`(?i)\btransparency\b`)
	reportTerm       = regexp.MustCompile(`(?i)\breport`)
	stricterModTerm  = regexp.MustCompile(`(?i)\bmoderation|moderate|stricter\b`)
)

// Moderation reviews features for content-moderation duties: transparency
// reporting, notice and appeal flows, illegal-content routing, visibility
// restrictions.
type Moderation struct {
	opts Options
}

func NewModeration(opts Options) *Moderation { return &Moderation{opts: opts} }

func (a *Moderation) Name() string { return "ModerationAgent" }

func (a *Moderation) Check(ctx context.Context, f records.Feature) (Verdict, error) {
	t := f.Text()

	s := 0.0
	for _, h := range modHints {
		if has(h.re, t) {
			s += h.weight
		}
	}
	if cooc(t, noticeTerm, appealTerm) {
		s += 0.15
	}
	if cooc(t, transparencyTerm, reportTerm) {
		s += 0.10
	}
	if cooc(t, childTerms, stricterModTerm) {
		s += 0.20
	}
	s = clampScore(s)

	status, reasoning := statusForScore(s,
		"Strong moderation/transparency indicators.",
		"Partial moderation indicators.",
		"No explicit moderation/transparency triggers.")

	v := Verdict{Agent: a.Name(), Status: status, Score: records.Round2(s), Reasoning: reasoning}
	if !wantModel(a.opts, status) {
		return v, nil
	}
	return applyModel(ctx, a.opts, a.prompt(t), v)
}

func (a *Moderation) prompt(text string) string {
	return "You are a CONTENT-MODERATION compliance reviewer.\n" +
		"Decide if the feature triggers geo-specific duties (e.g., EU DSA transparency, notice, appeals; " +
		"illegal-content routing; account restrictions; visibility limits).\n" +
		"Return ONLY one JSON object: " +
		`{"status":"ISSUE|OK|REVIEW","reasoning":"...",` +
		`"risk_factors":[],"regions":[],"regulations":[],"mitigations":[]}.` + "\n" +
		"Use only these regulation names if relevant: [DSA, NCMEC]. Others → [].\n" +
		"Regions from: [\"EU\",\"US-Federal\",\"US-CA\",\"US-FL\",\"US-UT\",\"SG\",\"BR\",\"CA\"]. Unknown → [].\n\n" +
		"TEXT:\n" + capText(text)
}
