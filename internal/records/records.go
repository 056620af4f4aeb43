// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package records defines the row types that flow between pipeline stages
// and the CSV column contracts that carry them.
//
// Every stage reads one CSV and writes another, so each stage can be re-run
// and debugged independently. List-valued fields are serialized as JSON
// array strings for CSV safety; map-valued fields as JSON object strings.
// Stages treat upstream columns as read-only input and exclusively own the
// columns they add.
package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Classification labels produced by the pipeline.
const (
	ClassRequired      = "REQUIRED"
	ClassNotRequired   = "NOT REQUIRED"
	ClassNeedsReview   = "NEEDS HUMAN REVIEW"
	ClassGuardedReview = "REQUIRES REVIEW (rules hint REQUIRED)"
	ClassError         = "ERROR"
)

// ErrMissingColumns is wrapped by CSV readers when a required column is
// absent from the input header. The message lists the missing names.
var ErrMissingColumns = errors.New("missing required columns")

// ErrUnparseableList is returned by CoerceList when a bracketed value could
// not be decoded. Callers should log it; an empty list is still returned so
// processing can continue, but "unparseable" and "empty" stay distinct.
var ErrUnparseableList = errors.New("unparseable list value")

// Feature is the immutable raw input plus terminology-expanded text.
// Created once at ingestion and never mutated afterward.
type Feature struct {
	InputName           string
	InputDescription    string
	ExpandedName        string
	ExpandedDescription string
}

// Text returns the expanded name and description joined for analysis,
// falling back to the raw fields when no expansion happened.
func (f Feature) Text() string {
	name := f.ExpandedName
	if name == "" {
		name = f.InputName
	}
	desc := f.ExpandedDescription
	if desc == "" {
		desc = f.InputDescription
	}
	return name + "\n" + desc
}

// PrescanRow is one feature with its deterministic rule-engine result.
type PrescanRow struct {
	Feature

	RequiredHint    bool
	Domains         []string
	PrimaryRegions  []string
	LawHits         []string
	Rationale       string
	ConfidenceBoost float64
	KeywordHits     map[string][]string
}

// EnrichedRow extends PrescanRow with the LLM signal and the merged final
// fields. LLM fields are nil/empty for rows that never went to the model.
type EnrichedRow struct {
	PrescanRow

	LLMClassification     string
	LLMConfidence         *float64
	LLMDomains            []string
	LLMPrimaryRegions     []string
	LLMRelatedRegulations []string

	FinalDomains            []string
	FinalPrimaryRegions     []string
	FinalRelatedRegulations []string
	FinalConfidence         float64
	FinalClassification     string

	// Manual routing overrides, optionally present in the enriched CSV.
	ManualAgents []string
	SkipAgents   []string
}

// RoutedRow extends EnrichedRow with the routing decision.
type RoutedRow struct {
	EnrichedRow

	RouteAgents []string
	RouteReason string
}

// AgentResult is one agent's verdict for one row. One result exists per
// (row index, assigned agent) pair.
type AgentResult struct {
	RowIndex    int
	Agent       string
	Status      string
	Score       float64
	Reasoning   string
	Suggestions string
	Domains     []string
	Regions     []string
	FeatureName string
}

// FinalRow is the terminal, audit-facing record.
type FinalRow struct {
	Feature             string
	Description         string
	Domain              string
	PrimaryRegion       string
	RegulationHits      string
	ClearReasoning      string
	Confidence          float64
	FinalClassification string
}

// =============================================================================
// Value coercion
// =============================================================================

// CoerceList parses a CSV cell that should hold a list of strings.
//
// Values arrive in three shapes: a JSON array string, a Python-repr-like
// bracketed string, or a bare scalar. The protocol is strict: attempt a JSON
// decode first; for bracketed values that fail, fall back to a quoted-token
// split; a bare non-empty scalar becomes a single-element list. An empty
// value is an empty list with no error; a bracketed value that yields
// nothing decodable returns ErrUnparseableList alongside the empty list.
func CoerceList(v string) ([]string, error) {
	s := strings.TrimSpace(v)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		var out []string
		if err := json.Unmarshal([]byte(s), &out); err == nil {
			return out, nil
		}
		// Python-repr fallback: ['a', 'b'] → split on commas, strip quotes.
		inner := strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
		var parts []string
		for _, p := range strings.Split(inner, ",") {
			p = strings.TrimSpace(p)
			p = strings.Trim(p, `'"`)
			if p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnparseableList, v)
		}
		return parts, nil
	}
	return []string{s}, nil
}

// CoerceMap parses a CSV cell holding a JSON object of string lists
// (the prescan keyword-hits column). Empty input yields an empty map.
func CoerceMap(v string) (map[string][]string, error) {
	s := strings.TrimSpace(v)
	if s == "" {
		return nil, nil
	}
	var out map[string][]string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnparseableList, v)
	}
	return out, nil
}

// MarshalList serializes a string list as a JSON array string. A nil list
// serializes as "[]" so downstream coercion never confuses it with a scalar.
func MarshalList(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// MarshalMap serializes a string-list map as a JSON object string.
func MarshalMap(v map[string][]string) string {
	if v == nil {
		v = map[string][]string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// FormatBool serializes a bool the way the CSV contract expects.
func FormatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// ParseBool accepts Go and Python spellings of booleans.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// FormatFloat serializes a confidence-like value.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ParseFloat parses a float cell, returning 0 for empty or bad input.
func ParseFloat(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return f
}

// Round2 rounds to two decimals, matching the precision the audit CSVs carry.
func Round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
