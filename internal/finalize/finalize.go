// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package finalize folds per-agent verdicts into the audit-facing result
// table, one row per input feature.
package finalize

import (
	"fmt"
	"strings"

	"github.com/geogate-ai/geogate/internal/records"
)

// maxReasoningLen caps the collapsed audit reasoning string.
const maxReasoningLen = 600

// Confidence defaults for verdict sets that carry no usable scores.
const (
	defaultIssueConfidence  = 0.75
	defaultReviewConfidence = 0.6
	notRequiredConfidence   = 0.9
	noVerdictConfidence     = 0.5
)

// Finalize joins enriched rows with their agent verdicts and produces one
// final row per input row, in input order.
//
// Precedence per row: any ISSUE forces REQUIRED; else any REVIEW forces
// NEEDS HUMAN REVIEW; else NOT REQUIRED. A row with no verdicts falls back
// to REQUIRED when the prescan flagged it, and to ERROR when no stage
// produced any signal at all, so nothing is ever silently dropped.
func Finalize(rows []records.EnrichedRow, verdicts []records.AgentResult) []records.FinalRow {
	byRow := map[int][]records.AgentResult{}
	for _, v := range verdicts {
		byRow[v.RowIndex] = append(byRow[v.RowIndex], v)
	}

	out := make([]records.FinalRow, len(rows))
	for i, row := range rows {
		out[i] = finalizeRow(row, byRow[i])
	}
	return out
}

func finalizeRow(row records.EnrichedRow, agents []records.AgentResult) records.FinalRow {
	name := row.ExpandedName
	if name == "" {
		name = row.InputName
	}
	desc := row.ExpandedDescription
	if desc == "" {
		desc = row.InputDescription
	}

	final := records.FinalRow{
		Feature:        name,
		Description:    desc,
		Domain:         strings.Join(row.FinalDomains, ", "),
		PrimaryRegion:  strings.Join(row.FinalPrimaryRegions, ", "),
		RegulationHits: strings.Join(row.FinalRelatedRegulations, ", "),
	}

	prescanRequired := row.RequiredHint || len(row.LawHits) > 0

	switch {
	case len(agents) == 0 && prescanRequired:
		final.FinalClassification = records.ClassRequired
		final.Confidence = min(0.95, records.Round2(0.70+row.ConfidenceBoost))
		rationale := strings.TrimSpace(row.Rationale)
		if rationale == "" {
			rationale = "Law/domain cues detected."
		}
		final.ClearReasoning = "Prescan hard hits. " + rationale

	case len(agents) == 0 && row.FinalClassification == "":
		// No agent ran, no prescan signal, no enrichment label.
		final.FinalClassification = records.ClassError
		final.Confidence = 0.0
		final.ClearReasoning = "No classification signal produced for this row."

	default:
		final.FinalClassification = pickFinalClass(agents)
		final.Confidence = records.Round2(computeConfidence(agents, final.FinalClassification))
		final.ClearReasoning = collapseReasoning(agents)
	}
	return final
}

// pickFinalClass applies the severity precedence over a verdict set.
func pickFinalClass(agents []records.AgentResult) string {
	if anyStatus(agents, "ISSUE") {
		return records.ClassRequired
	}
	if anyStatus(agents, "REVIEW") {
		return records.ClassNeedsReview
	}
	return records.ClassNotRequired
}

// computeConfidence derives the final confidence from the verdict scores:
// the strongest ISSUE score for REQUIRED, the mean REVIEW score for review
// rows, a fixed value otherwise.
func computeConfidence(agents []records.AgentResult, finalClass string) float64 {
	if len(agents) == 0 {
		return noVerdictConfidence
	}
	switch finalClass {
	case records.ClassRequired:
		best := 0.0
		found := false
		for _, a := range agents {
			if a.Status == "ISSUE" && a.Score > best {
				best = a.Score
				found = true
			}
		}
		if !found {
			return defaultIssueConfidence
		}
		return best
	case records.ClassNeedsReview:
		sum, n := 0.0, 0
		for _, a := range agents {
			if a.Status == "REVIEW" {
				sum += a.Score
				n++
			}
		}
		if n == 0 {
			return defaultReviewConfidence
		}
		return sum / float64(n)
	default:
		return notRequiredConfidence
	}
}

// collapseReasoning builds the short audit string: ISSUE agents with
// scores first, then REVIEW, then the first non-empty free-text reasoning,
// truncated to the audit cap.
func collapseReasoning(agents []records.AgentResult) string {
	if len(agents) == 0 {
		return "No agent decisions available."
	}

	var parts []string
	for _, label := range []string{"ISSUE", "REVIEW"} {
		var names []string
		for _, a := range agents {
			if a.Status == label {
				names = append(names, fmt.Sprintf("%s(%.2f)", a.Agent, a.Score))
			}
		}
		if len(names) > 0 {
			parts = append(parts, label+": "+strings.Join(names, ", "))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "All assigned agents returned OK.")
	}
	for _, a := range agents {
		if r := strings.TrimSpace(a.Reasoning); r != "" {
			parts = append(parts, r)
			break
		}
	}

	text := strings.Join(parts, " | ")
	if r := []rune(text); len(r) > maxReasoningLen {
		return string(r[:maxReasoningLen]) + "…"
	}
	return text
}

func anyStatus(agents []records.AgentResult, status string) bool {
	for _, a := range agents {
		if a.Status == status {
			return true
		}
	}
	return false
}
