// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package router assigns domain agents to enriched rows. Routing is pure
// table lookup over the merged domain and region lists; it never calls a
// model, so it is fast, deterministic, and cheap to re-run.
package router

import (
	"fmt"

	"github.com/geogate-ai/geogate/internal/records"
)

// Agent names the router can assign.
const (
	ChildSafetyAgent       = "ChildSafetyAgent"
	PrivacyAgent           = "PrivacyAgent"
	ModerationAgent        = "ModerationAgent"
	GeneralComplianceAgent = "GeneralComplianceAgent"
	HumanReviewAgent       = "HumanReviewAgent"

	CaliforniaPrivacyAgent = "CaliforniaPrivacyAgent"
	FloridaMinorsAgent     = "FloridaMinorsAgent"
	EUComplianceAgent      = "EUComplianceAgent"
	SingaporePDPAAgent     = "SingaporePDPAAgent"
)

// domainToAgent maps a merged domain to its specialist agent.
var domainToAgent = map[string]string{
	"Child Safety":                         ChildSafetyAgent,
	"Privacy & Data Protection":            PrivacyAgent,
	"Content Moderation / Illegal Content": ModerationAgent,
	"General Compliance":                   GeneralComplianceAgent,
}

// regionAgentOverrides appends a region specialist after the domain agents.
var regionAgentOverrides = map[string]string{
	"US-CA": CaliforniaPrivacyAgent,
	"US-FL": FloridaMinorsAgent,
	"EU":    EUComplianceAgent,
	"SG":    SingaporePDPAAgent,
}

// Config controls routing policy.
type Config struct {
	// CategoryOnly routes purely on domains and regions, ignoring the
	// enrichment classification and confidence. This is the default mode.
	CategoryOnly bool

	// OnlyLLM skips rows the model never categorized when the prescan
	// already produced a confidence boost for them.
	OnlyLLM bool

	// Legacy-mode knobs, unused when CategoryOnly is set.
	MinConfidence   float64
	MaxAgentsPerRow int

	ReviewLabels []string

	HumanReviewAgent string
	DefaultAgent     string
}

// DefaultConfig returns the production routing policy.
func DefaultConfig() Config {
	return Config{
		CategoryOnly:     true,
		MinConfidence:    0.75,
		MaxAgentsPerRow:  3,
		ReviewLabels:     []string{records.ClassNeedsReview, records.ClassGuardedReview},
		HumanReviewAgent: HumanReviewAgent,
		DefaultAgent:     GeneralComplianceAgent,
	}
}

// Route decides the agent list for one row. It never returns an empty agent
// list except in OnlyLLM skip mode, where an empty list means the row is
// excluded from agent evaluation entirely.
func Route(row records.EnrichedRow, cfg Config) (agents []string, reason string) {
	if cfg.OnlyLLM && len(row.LLMDomains) == 0 && row.ConfidenceBoost != 0 {
		return nil, "skip: no llm_domains and prescan_boost>0"
	}

	skip := toSet(row.SkipAgents)

	// Manual overrides win over everything else.
	if len(row.ManualAgents) > 0 {
		kept := dropSkipped(row.ManualAgents, skip)
		kept = uniqueCap(kept, cfg.MaxAgentsPerRow)
		if len(kept) == 0 {
			kept = []string{cfg.HumanReviewAgent}
		}
		return kept, "manual override"
	}

	if cfg.CategoryOnly {
		mapped := mapAgents(row.FinalDomains, row.FinalPrimaryRegions)
		if len(mapped) == 0 {
			return []string{cfg.DefaultAgent}, "no domain; default agent"
		}
		mapped = uniqueCap(dropSkipped(mapped, skip), cfg.MaxAgentsPerRow)
		if len(mapped) == 0 {
			mapped = []string{cfg.DefaultAgent}
		}
		return mapped, "category-only routing"
	}

	// Legacy mode: labels and confidence gate the domain mapping.
	for _, label := range cfg.ReviewLabels {
		if row.FinalClassification == label {
			return []string{cfg.HumanReviewAgent}, "classification=" + label
		}
	}
	if row.FinalConfidence < cfg.MinConfidence {
		return []string{cfg.HumanReviewAgent},
			fmt.Sprintf("low confidence (%.2f < %g)", row.FinalConfidence, cfg.MinConfidence)
	}

	mapped := mapAgents(row.FinalDomains, row.FinalPrimaryRegions)
	if len(mapped) == 0 {
		if row.RequiredHint {
			return []string{cfg.HumanReviewAgent}, "prescan hinted requirement but no domain"
		}
		return []string{cfg.DefaultAgent}, "no domain/region override"
	}
	mapped = uniqueCap(dropSkipped(mapped, skip), cfg.MaxAgentsPerRow)
	if len(mapped) == 0 {
		mapped = []string{cfg.DefaultAgent}
	}
	return mapped, "domain/region routing"
}

// RouteAll routes every row, preserving input order.
func RouteAll(rows []records.EnrichedRow, cfg Config) []records.RoutedRow {
	out := make([]records.RoutedRow, len(rows))
	for i, r := range rows {
		agents, reason := Route(r, cfg)
		out[i] = records.RoutedRow{EnrichedRow: r, RouteAgents: agents, RouteReason: reason}
	}
	return out
}

// BuildAgentQueues inverts routed rows into per-agent work queues of row
// indices. Queue order follows row order, so workers see rows in input
// order regardless of agent.
func BuildAgentQueues(rows []records.RoutedRow) map[string][]int {
	queues := map[string][]int{}
	for i, r := range rows {
		for _, agent := range r.RouteAgents {
			queues[agent] = append(queues[agent], i)
		}
	}
	return queues
}

// mapAgents maps domains to their specialist agents, then appends region
// overrides in region order.
func mapAgents(domains, regions []string) []string {
	var mapped []string
	for _, d := range domains {
		if a, ok := domainToAgent[d]; ok {
			mapped = append(mapped, a)
		}
	}
	for _, r := range regions {
		if a, ok := regionAgentOverrides[r]; ok {
			mapped = append(mapped, a)
		}
	}
	return mapped
}

func toSet(v []string) map[string]struct{} {
	set := make(map[string]struct{}, len(v))
	for _, s := range v {
		set[s] = struct{}{}
	}
	return set
}

func dropSkipped(agents []string, skip map[string]struct{}) []string {
	out := make([]string, 0, len(agents))
	for _, a := range agents {
		if _, skipped := skip[a]; !skipped {
			out = append(out, a)
		}
	}
	return out
}

// uniqueCap dedupes preserving first occurrence and caps the list length.
func uniqueCap(agents []string, limit int) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, a := range agents {
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
