// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package router

import (
	"reflect"
	"testing"

	"github.com/geogate-ai/geogate/internal/records"
)

func enriched(domains, regions []string) records.EnrichedRow {
	return records.EnrichedRow{
		FinalDomains:        domains,
		FinalPrimaryRegions: regions,
	}
}

func TestRouteCategoryOnly(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name       string
		row        records.EnrichedRow
		wantAgents []string
		wantReason string
	}{
		{
			name:       "single domain",
			row:        enriched([]string{"Child Safety"}, nil),
			wantAgents: []string{ChildSafetyAgent},
			wantReason: "category-only routing",
		},
		{
			name:       "domain plus region override",
			row:        enriched([]string{"Privacy & Data Protection"}, []string{"US-CA"}),
			wantAgents: []string{PrivacyAgent, CaliforniaPrivacyAgent},
			wantReason: "category-only routing",
		},
		{
			name:       "cap at three agents",
			row:        enriched([]string{"Child Safety", "Privacy & Data Protection", "Content Moderation / Illegal Content"}, []string{"EU"}),
			wantAgents: []string{ChildSafetyAgent, PrivacyAgent, ModerationAgent},
			wantReason: "category-only routing",
		},
		{
			name:       "no domain falls to default",
			row:        enriched(nil, nil),
			wantAgents: []string{GeneralComplianceAgent},
			wantReason: "no domain; default agent",
		},
		{
			name:       "unknown domain falls to default",
			row:        enriched([]string{"Astrology"}, nil),
			wantAgents: []string{GeneralComplianceAgent},
			wantReason: "no domain; default agent",
		},
		{
			name:       "duplicate domains deduped",
			row:        enriched([]string{"Child Safety", "Child Safety"}, []string{"US-FL"}),
			wantAgents: []string{ChildSafetyAgent, FloridaMinorsAgent},
			wantReason: "category-only routing",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agents, reason := Route(tt.row, cfg)
			if !reflect.DeepEqual(agents, tt.wantAgents) {
				t.Errorf("agents = %v, want %v", agents, tt.wantAgents)
			}
			if reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}

func TestRouteRegionOverrides(t *testing.T) {
	cfg := DefaultConfig()
	row := enriched([]string{"General Compliance"}, []string{"SG", "EU"})

	agents, _ := Route(row, cfg)
	want := []string{GeneralComplianceAgent, SingaporePDPAAgent, EUComplianceAgent}
	if !reflect.DeepEqual(agents, want) {
		t.Errorf("agents = %v, want %v", agents, want)
	}
}

func TestRouteManualOverride(t *testing.T) {
	cfg := DefaultConfig()

	row := enriched([]string{"Child Safety"}, nil)
	row.ManualAgents = []string{PrivacyAgent, ModerationAgent}

	agents, reason := Route(row, cfg)
	if !reflect.DeepEqual(agents, []string{PrivacyAgent, ModerationAgent}) {
		t.Errorf("agents = %v", agents)
	}
	if reason != "manual override" {
		t.Errorf("reason = %q", reason)
	}
}

func TestRouteSkipAgents(t *testing.T) {
	cfg := DefaultConfig()

	row := enriched([]string{"Child Safety", "Privacy & Data Protection"}, nil)
	row.SkipAgents = []string{ChildSafetyAgent}

	agents, _ := Route(row, cfg)
	if !reflect.DeepEqual(agents, []string{PrivacyAgent}) {
		t.Errorf("agents = %v, want skip applied", agents)
	}
}

func TestRouteManualAllSkippedGoesToHumanReview(t *testing.T) {
	cfg := DefaultConfig()

	row := enriched(nil, nil)
	row.ManualAgents = []string{PrivacyAgent}
	row.SkipAgents = []string{PrivacyAgent}

	agents, reason := Route(row, cfg)
	if !reflect.DeepEqual(agents, []string{HumanReviewAgent}) {
		t.Errorf("agents = %v, want human review fallback", agents)
	}
	if reason != "manual override" {
		t.Errorf("reason = %q", reason)
	}
}

func TestRouteOnlyLLMSkip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OnlyLLM = true

	row := enriched([]string{"Child Safety"}, nil)
	row.ConfidenceBoost = 0.20

	agents, reason := Route(row, cfg)
	if len(agents) != 0 {
		t.Errorf("agents = %v, want empty skip", agents)
	}
	if reason != "skip: no llm_domains and prescan_boost>0" {
		t.Errorf("reason = %q", reason)
	}

	// A model-categorized row is never skipped.
	row.LLMDomains = []string{"Child Safety"}
	agents, _ = Route(row, cfg)
	if len(agents) == 0 {
		t.Error("model-categorized row was skipped")
	}
}

func TestRouteLegacyMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CategoryOnly = false

	tests := []struct {
		name       string
		row        records.EnrichedRow
		wantAgents []string
	}{
		{
			name: "review label",
			row: records.EnrichedRow{
				FinalClassification: records.ClassNeedsReview,
				FinalConfidence:     0.9,
			},
			wantAgents: []string{HumanReviewAgent},
		},
		{
			name: "guard label",
			row: records.EnrichedRow{
				FinalClassification: records.ClassGuardedReview,
				FinalConfidence:     0.9,
			},
			wantAgents: []string{HumanReviewAgent},
		},
		{
			name: "low confidence",
			row: records.EnrichedRow{
				FinalClassification: records.ClassRequired,
				FinalConfidence:     0.6,
				FinalDomains:        []string{"Child Safety"},
			},
			wantAgents: []string{HumanReviewAgent},
		},
		{
			name: "confident mapped",
			row: records.EnrichedRow{
				FinalClassification: records.ClassRequired,
				FinalConfidence:     0.9,
				FinalDomains:        []string{"Child Safety"},
			},
			wantAgents: []string{ChildSafetyAgent},
		},
		{
			name: "no mapping with prescan hint",
			row: records.EnrichedRow{
				PrescanRow:          records.PrescanRow{RequiredHint: true},
				FinalClassification: records.ClassRequired,
				FinalConfidence:     0.9,
			},
			wantAgents: []string{HumanReviewAgent},
		},
		{
			name: "no mapping no hint",
			row: records.EnrichedRow{
				FinalClassification: records.ClassNotRequired,
				FinalConfidence:     0.9,
			},
			wantAgents: []string{GeneralComplianceAgent},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agents, _ := Route(tt.row, cfg)
			if !reflect.DeepEqual(agents, tt.wantAgents) {
				t.Errorf("agents = %v, want %v", agents, tt.wantAgents)
			}
		})
	}
}

func TestRouteAllPreservesOrder(t *testing.T) {
	rows := []records.EnrichedRow{
		enriched([]string{"Child Safety"}, nil),
		enriched([]string{"Privacy & Data Protection"}, nil),
	}

	routed := RouteAll(rows, DefaultConfig())
	if len(routed) != 2 {
		t.Fatalf("rows = %d", len(routed))
	}
	if routed[0].RouteAgents[0] != ChildSafetyAgent || routed[1].RouteAgents[0] != PrivacyAgent {
		t.Errorf("order not preserved: %v / %v", routed[0].RouteAgents, routed[1].RouteAgents)
	}
}

func TestBuildAgentQueues(t *testing.T) {
	rows := []records.RoutedRow{
		{RouteAgents: []string{ChildSafetyAgent, PrivacyAgent}},
		{RouteAgents: []string{PrivacyAgent}},
		{RouteAgents: nil},
	}

	queues := BuildAgentQueues(rows)
	if !reflect.DeepEqual(queues[ChildSafetyAgent], []int{0}) {
		t.Errorf("child queue = %v", queues[ChildSafetyAgent])
	}
	if !reflect.DeepEqual(queues[PrivacyAgent], []int{0, 1}) {
		t.Errorf("privacy queue = %v", queues[PrivacyAgent])
	}
	if _, ok := queues[""]; ok {
		t.Error("empty agent name queued")
	}
}
