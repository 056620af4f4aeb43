// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geogate-ai/geogate/internal/agents"
	"github.com/geogate-ai/geogate/internal/enrich"
	"github.com/geogate-ai/geogate/internal/finalize"
	"github.com/geogate-ai/geogate/internal/prescan"
	"github.com/geogate-ai/geogate/internal/records"
	"github.com/geogate-ai/geogate/internal/router"
	"github.com/geogate-ai/geogate/pkg/logging"
)

// TestPipelineRulesOnly drives every stage in process with the model
// disabled: prescan, prescan-seeded enrichment, routing, rule-only agent
// evaluation, and finalization.
func TestPipelineRulesOnly(t *testing.T) {
	engine, err := prescan.NewEngine()
	require.NoError(t, err)

	features := []records.Feature{
		{
			InputName:        "Curfew blocker",
			InputDescription: "Curfew login blocker for minors with age verification, per Utah Social Media Regulation Act.",
		},
		{
			InputName:        "Theme picker",
			InputDescription: "Lets users pick an accent color for their profile.",
		},
		{
			InputName:        "Consent revamp",
			InputDescription: "New consent flow with opt-out and data retention settings for EU users.",
		},
	}

	prescanRows := make([]records.PrescanRow, len(features))
	for i, f := range features {
		res := engine.Scan(f.InputName, f.InputDescription)
		prescanRows[i] = records.PrescanRow{
			Feature:         f,
			RequiredHint:    res.RequiredHint,
			Domains:         res.Domains,
			PrimaryRegions:  res.PrimaryRegions,
			LawHits:         res.LawHits,
			Rationale:       res.Rationale,
			ConfidenceBoost: res.ConfidenceBoost,
			KeywordHits:     res.KeywordHits,
		}
	}
	require.True(t, prescanRows[0].RequiredHint, "law-naming feature should be rule-pinned")
	require.False(t, prescanRows[1].RequiredHint)

	enriched := enrich.SeedAll(prescanRows)
	assert.Equal(t, records.ClassRequired, enriched[0].FinalClassification)

	routed := router.RouteAll(enriched, router.DefaultConfig())
	require.Len(t, routed, 3)
	assert.NotEmpty(t, routed[0].RouteAgents, "rule-pinned row must get agents")
	assert.Contains(t, routed[0].RouteAgents, router.ChildSafetyAgent)
	assert.Contains(t, routed[2].RouteAgents, router.PrivacyAgent)

	log := logging.New(logging.Config{Quiet: true})
	results := agents.Run(context.Background(), routed, nil, agents.RunnerConfig{Workers: 2}, log)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Contains(t, []string{agents.StatusOK, agents.StatusIssue, agents.StatusReview}, r.Status)
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}

	final := finalize.Finalize(enriched, results)
	require.Len(t, final, 3)
	for _, row := range final {
		assert.NotEmpty(t, row.FinalClassification)
		assert.NotEmpty(t, row.ClearReasoning)
	}
	assert.Equal(t, records.ClassRequired, final[0].FinalClassification,
		"minors feature with a named law must end REQUIRED")
}
