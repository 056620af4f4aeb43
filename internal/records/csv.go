// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package records

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Input CSV contract.
const (
	ColFeatureName        = "feature_name"
	ColFeatureDescription = "feature_description"
)

// Prescan output columns.
var prescanHeader = []string{
	"input_feature_name", "input_feature_description",
	"expanded_feature_name", "expanded_feature_description",
	"prescan_required_hint", "prescan_domains", "prescan_primary_regions",
	"prescan_law_hits", "prescan_rationale", "prescan_confidence_boost",
	"prescan_keyword_hits",
}

// Enrichment adds these to the prescan columns.
var enrichHeader = []string{
	"llm_classification", "llm_confidence",
	"llm_domains", "llm_primary_regions", "llm_related_regulations",
	"final_domains", "final_primary_regions", "final_related_regulations",
	"final_confidence", "final_classification",
}

// Optional manual-override columns, honored when present.
const (
	ColManualAgents = "manual_agents"
	ColSkipAgents   = "skip_agents"
)

// Routing adds these.
var routeHeader = []string{"route_agents", "route_reason"}

// Agent results CSV contract.
var agentHeader = []string{
	"row_index", "agent", "status", "score", "reasoning", "suggestions",
	"domains", "regions", "feature_name",
}

// Final results CSV contract.
var finalHeader = []string{
	"feature", "description", "domain", "primary region", "regulation hits",
	"clear reasoning", "confidence", "Final Classification",
}

// table is a header-indexed view over raw CSV rows.
type table struct {
	cols map[string]int
	rows [][]string
}

func readTable(path string, required []string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("read %s: empty file", path)
	}

	cols := make(map[string]int, len(all[0]))
	for i, name := range all[0] {
		cols[name] = i
	}
	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrMissingColumns, missing)
	}
	return &table{cols: cols, rows: all[1:]}, nil
}

// get returns the named cell, or "" when the column is absent or the row
// is short (trailing empty cells are legal in the contract).
func (t *table) get(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func (t *table) has(col string) bool {
	_, ok := t.cols[col]
	return ok
}

func writeCSV(path string, header []string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// Stage readers / writers
// =============================================================================

// ReadFeatures loads the raw input CSV. Missing required columns are fatal:
// no partial processing happens on malformed input.
func ReadFeatures(path string) ([]Feature, error) {
	t, err := readTable(path, []string{ColFeatureName, ColFeatureDescription})
	if err != nil {
		return nil, err
	}
	out := make([]Feature, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, Feature{
			InputName:        t.get(row, ColFeatureName),
			InputDescription: t.get(row, ColFeatureDescription),
		})
	}
	return out, nil
}

// WritePrescan writes the prescan stage output.
func WritePrescan(path string, rows []PrescanRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.InputName, r.InputDescription,
			r.ExpandedName, r.ExpandedDescription,
			FormatBool(r.RequiredHint),
			MarshalList(r.Domains), MarshalList(r.PrimaryRegions),
			MarshalList(r.LawHits), r.Rationale,
			FormatFloat(r.ConfidenceBoost),
			MarshalMap(r.KeywordHits),
		})
	}
	return writeCSV(path, prescanHeader, out)
}

// ReadPrescan loads a prescan CSV. List-valued columns go through the strict
// coercion protocol; unparseable cells are reported via the warn callback and
// treated as empty (never silently conflated with empty input).
func ReadPrescan(path string, warn func(col string, row int, err error)) ([]PrescanRow, error) {
	t, err := readTable(path, prescanHeader)
	if err != nil {
		return nil, err
	}
	out := make([]PrescanRow, 0, len(t.rows))
	for i, row := range t.rows {
		pr := PrescanRow{
			Feature: Feature{
				InputName:           t.get(row, "input_feature_name"),
				InputDescription:    t.get(row, "input_feature_description"),
				ExpandedName:        t.get(row, "expanded_feature_name"),
				ExpandedDescription: t.get(row, "expanded_feature_description"),
			},
			RequiredHint:    ParseBool(t.get(row, "prescan_required_hint")),
			Rationale:       t.get(row, "prescan_rationale"),
			ConfidenceBoost: ParseFloat(t.get(row, "prescan_confidence_boost")),
		}
		pr.Domains = coerceWarn(t.get(row, "prescan_domains"), "prescan_domains", i, warn)
		pr.PrimaryRegions = coerceWarn(t.get(row, "prescan_primary_regions"), "prescan_primary_regions", i, warn)
		pr.LawHits = coerceWarn(t.get(row, "prescan_law_hits"), "prescan_law_hits", i, warn)
		if m, err := CoerceMap(t.get(row, "prescan_keyword_hits")); err != nil {
			if warn != nil {
				warn("prescan_keyword_hits", i, err)
			}
		} else {
			pr.KeywordHits = m
		}
		out = append(out, pr)
	}
	return out, nil
}

// WriteEnriched writes the enrichment stage output: all prescan columns plus
// the llm_* and final_* column set.
func WriteEnriched(path string, rows []EnrichedRow) error {
	header := append(append([]string{}, prescanHeader...), enrichHeader...)
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		llmConf := ""
		if r.LLMConfidence != nil {
			llmConf = FormatFloat(*r.LLMConfidence)
		}
		out = append(out, []string{
			r.InputName, r.InputDescription,
			r.ExpandedName, r.ExpandedDescription,
			FormatBool(r.RequiredHint),
			MarshalList(r.Domains), MarshalList(r.PrimaryRegions),
			MarshalList(r.LawHits), r.Rationale,
			FormatFloat(r.ConfidenceBoost),
			MarshalMap(r.KeywordHits),
			r.LLMClassification, llmConf,
			MarshalList(r.LLMDomains), MarshalList(r.LLMPrimaryRegions),
			MarshalList(r.LLMRelatedRegulations),
			MarshalList(r.FinalDomains), MarshalList(r.FinalPrimaryRegions),
			MarshalList(r.FinalRelatedRegulations),
			FormatFloat(r.FinalConfidence), r.FinalClassification,
		})
	}
	return writeCSV(path, header, out)
}

// ReadEnriched loads an enriched CSV, honoring the optional manual_agents /
// skip_agents override columns when present.
func ReadEnriched(path string, warn func(col string, row int, err error)) ([]EnrichedRow, error) {
	required := append(append([]string{}, prescanHeader...), enrichHeader...)
	t, err := readTable(path, required)
	if err != nil {
		return nil, err
	}
	pre, err := ReadPrescan(path, warn)
	if err != nil {
		return nil, err
	}
	out := make([]EnrichedRow, 0, len(t.rows))
	for i, row := range t.rows {
		er := EnrichedRow{PrescanRow: pre[i]}
		er.LLMClassification = t.get(row, "llm_classification")
		if s := t.get(row, "llm_confidence"); s != "" {
			v := ParseFloat(s)
			er.LLMConfidence = &v
		}
		er.LLMDomains = coerceWarn(t.get(row, "llm_domains"), "llm_domains", i, warn)
		er.LLMPrimaryRegions = coerceWarn(t.get(row, "llm_primary_regions"), "llm_primary_regions", i, warn)
		er.LLMRelatedRegulations = coerceWarn(t.get(row, "llm_related_regulations"), "llm_related_regulations", i, warn)
		er.FinalDomains = coerceWarn(t.get(row, "final_domains"), "final_domains", i, warn)
		er.FinalPrimaryRegions = coerceWarn(t.get(row, "final_primary_regions"), "final_primary_regions", i, warn)
		er.FinalRelatedRegulations = coerceWarn(t.get(row, "final_related_regulations"), "final_related_regulations", i, warn)
		er.FinalConfidence = ParseFloat(t.get(row, "final_confidence"))
		er.FinalClassification = t.get(row, "final_classification")
		if t.has(ColManualAgents) {
			er.ManualAgents = coerceWarn(t.get(row, ColManualAgents), ColManualAgents, i, warn)
		}
		if t.has(ColSkipAgents) {
			er.SkipAgents = coerceWarn(t.get(row, ColSkipAgents), ColSkipAgents, i, warn)
		}
		out = append(out, er)
	}
	return out, nil
}

// WriteRouted writes the routing stage output.
func WriteRouted(path string, rows []RoutedRow) error {
	header := append(append([]string{}, prescanHeader...), enrichHeader...)
	header = append(header, ColManualAgents, ColSkipAgents)
	header = append(header, routeHeader...)
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		llmConf := ""
		if r.LLMConfidence != nil {
			llmConf = FormatFloat(*r.LLMConfidence)
		}
		out = append(out, []string{
			r.InputName, r.InputDescription,
			r.ExpandedName, r.ExpandedDescription,
			FormatBool(r.RequiredHint),
			MarshalList(r.Domains), MarshalList(r.PrimaryRegions),
			MarshalList(r.LawHits), r.Rationale,
			FormatFloat(r.ConfidenceBoost),
			MarshalMap(r.KeywordHits),
			r.LLMClassification, llmConf,
			MarshalList(r.LLMDomains), MarshalList(r.LLMPrimaryRegions),
			MarshalList(r.LLMRelatedRegulations),
			MarshalList(r.FinalDomains), MarshalList(r.FinalPrimaryRegions),
			MarshalList(r.FinalRelatedRegulations),
			FormatFloat(r.FinalConfidence), r.FinalClassification,
			MarshalList(r.ManualAgents), MarshalList(r.SkipAgents),
			MarshalList(r.RouteAgents), r.RouteReason,
		})
	}
	return writeCSV(path, header, out)
}

// ReadRouted loads a routed CSV.
func ReadRouted(path string, warn func(col string, row int, err error)) ([]RoutedRow, error) {
	required := append(append([]string{}, prescanHeader...), enrichHeader...)
	required = append(required, routeHeader...)
	t, err := readTable(path, required)
	if err != nil {
		return nil, err
	}
	enr, err := ReadEnriched(path, warn)
	if err != nil {
		return nil, err
	}
	out := make([]RoutedRow, 0, len(t.rows))
	for i, row := range t.rows {
		out = append(out, RoutedRow{
			EnrichedRow: enr[i],
			RouteAgents: coerceWarn(t.get(row, "route_agents"), "route_agents", i, warn),
			RouteReason: t.get(row, "route_reason"),
		})
	}
	return out, nil
}

// WriteAgentResults writes one row per (row_index, agent) verdict.
func WriteAgentResults(path string, rows []AgentResult) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			strconv.Itoa(r.RowIndex), r.Agent, r.Status,
			FormatFloat(r.Score), r.Reasoning, r.Suggestions,
			MarshalList(r.Domains), MarshalList(r.Regions), r.FeatureName,
		})
	}
	return writeCSV(path, agentHeader, out)
}

// ReadAgentResults loads the agent-results CSV.
func ReadAgentResults(path string, warn func(col string, row int, err error)) ([]AgentResult, error) {
	t, err := readTable(path, agentHeader)
	if err != nil {
		return nil, err
	}
	out := make([]AgentResult, 0, len(t.rows))
	for i, row := range t.rows {
		idx, err := strconv.Atoi(t.get(row, "row_index"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad row_index %q", path, i, t.get(row, "row_index"))
		}
		out = append(out, AgentResult{
			RowIndex:    idx,
			Agent:       t.get(row, "agent"),
			Status:      t.get(row, "status"),
			Score:       ParseFloat(t.get(row, "score")),
			Reasoning:   t.get(row, "reasoning"),
			Suggestions: t.get(row, "suggestions"),
			Domains:     coerceWarn(t.get(row, "domains"), "domains", i, warn),
			Regions:     coerceWarn(t.get(row, "regions"), "regions", i, warn),
			FeatureName: t.get(row, "feature_name"),
		})
	}
	return out, nil
}

// WriteFinal writes the audit-facing final results table.
func WriteFinal(path string, rows []FinalRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Feature, r.Description, r.Domain, r.PrimaryRegion,
			r.RegulationHits, r.ClearReasoning,
			FormatFloat(r.Confidence), r.FinalClassification,
		})
	}
	return writeCSV(path, finalHeader, out)
}

func coerceWarn(v, col string, row int, warn func(col string, row int, err error)) []string {
	list, err := CoerceList(v)
	if err != nil && warn != nil {
		warn(col, row, err)
	}
	return list
}
