// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package agents implements the per-domain compliance reviewers. Every
// agent scores a feature with a deterministic keyword checklist first; the
// model is consulted only as an override layer, so a dead model endpoint
// still yields a complete rule-only run.
package agents

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/geogate-ai/geogate/internal/llm"
	"github.com/geogate-ai/geogate/internal/records"
	"github.com/geogate-ai/geogate/pkg/logging"
)

// Verdict statuses.
const (
	StatusOK     = "OK"
	StatusIssue  = "ISSUE"
	StatusReview = "REVIEW"
)

// Checklist-score thresholds shared by all agents.
const (
	issueThreshold  = 0.65
	reviewThreshold = 0.35
)

// maxPromptText caps the feature text embedded in an agent prompt.
const maxPromptText = 5000

// Mode controls when an agent consults the model.
type Mode string

const (
	// ModeAlways sends every checked row to the model.
	ModeAlways Mode = "always"
	// ModeReviewOnly sends only rows whose checklist landed on REVIEW.
	ModeReviewOnly Mode = "review_only"
)

// Verdict is one agent's judgement of one feature.
type Verdict struct {
	Agent       string
	Status      string
	Score       float64
	Reasoning   string
	Suggestions string
}

// Checker is a compliance agent. Check never fails outright: the returned
// verdict is always usable, and a non-nil error only reports that the model
// override could not be obtained (the verdict is then rule-only).
type Checker interface {
	Name() string
	Check(ctx context.Context, f records.Feature) (Verdict, error)
}

// Options configures model usage for a constructed agent.
type Options struct {
	Client llm.Client
	Mode   Mode
	Log    *logging.Logger
}

// llmEnabled reports whether the options allow any model call at all.
func (o Options) llmEnabled() bool {
	return o.Client != nil
}

// =============================================================================
// Checklist helpers
// =============================================================================

// has reports whether the pattern matches anywhere in the text.
func has(re *regexp.Regexp, text string) bool {
	return re.MatchString(text)
}

// cooc reports whether ALL patterns occur somewhere in the text.
func cooc(text string, patterns ...*regexp.Regexp) bool {
	for _, re := range patterns {
		if !re.MatchString(text) {
			return false
		}
	}
	return true
}

func clampScore(s float64) float64 {
	if s > 1.0 {
		return 1.0
	}
	return s
}

func capText(s string) string {
	r := []rune(s)
	if len(r) <= maxPromptText {
		return s
	}
	return string(r[:maxPromptText])
}

// =============================================================================
// Model override
// =============================================================================

// wantModel decides whether this check should consult the model given the
// rule status it already has.
func wantModel(o Options, ruleStatus string) bool {
	if !o.llmEnabled() {
		return false
	}
	return o.Mode == ModeAlways || ruleStatus == StatusReview
}

// applyModel asks the model to re-judge a rule verdict and folds the answer
// in. The model score is a fixed remap of its status rather than a free
// number, which keeps agent scores comparable across rows. A no-signal
// outcome keeps the rule verdict untouched; a transport error is returned so
// the runner can back off, with the rule verdict still intact.
func applyModel(ctx context.Context, o Options, prompt string, v Verdict) (Verdict, error) {
	obj, err := llm.ObjectCall(ctx, o.Client, prompt, []string{"status", "reasoning"}, o.Log)
	if err != nil {
		if errors.Is(err, llm.ErrNoSignal) {
			return v, nil
		}
		return v, err
	}

	status := llm.StringField(obj, "status")
	if status != StatusIssue && status != StatusOK && status != StatusReview {
		return v, nil
	}

	var extra []string
	if risks := llm.ListField(obj, "risk_factors"); len(risks) > 0 {
		extra = append(extra, "risk="+strings.Join(headOf(risks, 3), ", "))
	}
	if regions := llm.ListField(obj, "regions"); len(regions) > 0 {
		extra = append(extra, "regions="+strings.Join(headOf(regions, 4), ", "))
	}
	if regs := llm.ListField(obj, "regulations"); len(regs) > 0 {
		extra = append(extra, "regs="+strings.Join(regs, ", "))
	}
	if mits := llm.ListField(obj, "mitigations"); len(mits) > 0 {
		extra = append(extra, "mitigations="+strings.Join(headOf(mits, 2), "; "))
	}

	reasoning := fmt.Sprintf("%s | LLM: %s", v.Reasoning, strings.TrimSpace(llm.StringField(obj, "reasoning")))
	if len(extra) > 0 {
		reasoning += " | " + strings.Join(extra, " | ")
	}

	score := v.Score
	switch status {
	case StatusIssue:
		score = 0.9
	case StatusReview:
		score = 0.6
	case StatusOK:
		score = max(v.Score, 0.5)
	}

	v.Status = status
	v.Score = score
	v.Reasoning = reasoning
	return v, nil
}

func headOf(v []string, n int) []string {
	if len(v) > n {
		return v[:n]
	}
	return v
}

// statusForScore maps a checklist score to a status with per-agent
// reasoning strings for the strong/partial/none bands.
func statusForScore(score float64, strong, partial, none string) (string, string) {
	switch {
	case score >= issueThreshold:
		return StatusIssue, strong
	case score >= reviewThreshold:
		return StatusReview, partial
	default:
		return StatusOK, none
	}
}
