// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package enrich sends ambiguous prescan rows to the model in one batched
// call and merges the model signal with the deterministic prescan result.
//
// A row is ambiguous when the prescan found no domains or no required-law
// hint. Rows the rules already pinned down skip the model entirely and are
// seeded from the prescan result, so repeated runs over clear-cut inputs
// cost nothing.
package enrich

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/geogate-ai/geogate/internal/llm"
	"github.com/geogate-ai/geogate/internal/records"
	"github.com/geogate-ai/geogate/pkg/logging"
)

// Truncation limits on the text sent per feature. Generous enough for any
// realistic feature description, tight enough to keep large batches inside
// a single context window.
const (
	maxPromptName = 2000
	maxPromptDesc = 6000
)

// nonAmbiguousCeil caps the confidence seeded for rows the model never saw.
const nonAmbiguousCeil = 0.95

// DomainList is the closed set of domains the model may assign.
var DomainList = []string{
	"Child Safety",
	"Privacy & Data Protection",
	"Content Moderation / Illegal Content",
	"General Compliance",
}

// Options controls an enrichment run.
type Options struct {
	// CategoriesOnly merges only the model's domain/region/regulation
	// lists and leaves classification and confidence unset for the
	// downstream agents to decide.
	CategoriesOnly bool

	// DowngradeGuard is the model confidence below which a NOT REQUIRED
	// verdict cannot override a prescan required-law hint.
	DowngradeGuard float64

	// RawDumpPath, when set, receives the raw model text if the batch
	// response fails to parse, so the payload can be inspected offline.
	RawDumpPath string
}

// batchItem is one feature sent to the model, tagged with its row index so
// the response can be joined back regardless of reply order.
type batchItem struct {
	index int
	name  string
	desc  string
}

// Enrich runs the ambiguity gate over the prescan rows, sends the ambiguous
// subset to the model in one call, and returns one enriched row per input
// row in input order.
func Enrich(ctx context.Context, client llm.Client, rows []records.PrescanRow, opts Options, log *logging.Logger) ([]records.EnrichedRow, error) {
	items := make([]batchItem, 0, len(rows))
	for i, r := range rows {
		if isAmbiguous(r) {
			items = append(items, newBatchItem(i, r))
		}
	}
	log.Info("ambiguity gate applied", "total", len(rows), "ambiguous", len(items))

	byIndex := map[int]map[string]any{}
	if len(items) > 0 {
		raw, err := client.Generate(ctx, buildMasterPrompt(items))
		if err != nil {
			return nil, fmt.Errorf("enrichment batch call: %w", err)
		}
		arr, err := llm.StrictJSONArray(raw)
		if err != nil {
			if opts.RawDumpPath != "" {
				if werr := os.WriteFile(opts.RawDumpPath, []byte(raw), 0o644); werr == nil {
					return nil, fmt.Errorf("enrichment response parsing failed (raw saved to %s): %w", opts.RawDumpPath, err)
				}
			}
			return nil, fmt.Errorf("enrichment response parsing failed: %w", err)
		}
		for _, obj := range arr {
			if idx, ok := llm.IntField(obj, "feature_index"); ok {
				byIndex[idx] = obj
			}
		}
		log.Info("model batch parsed", "objects", len(arr), "joined", len(byIndex))
	}

	out := make([]records.EnrichedRow, len(rows))
	for i, r := range rows {
		obj, hit := byIndex[i]
		switch {
		case hit && opts.CategoriesOnly:
			out[i] = mergeCategoriesOnly(r, obj)
		case hit:
			out[i] = mergeModelRow(r, obj, opts.DowngradeGuard)
		default:
			out[i] = seedFromPrescan(r)
		}
	}
	return out, nil
}

// SeedAll produces enriched rows from prescan signals alone, with no model
// involvement. Used when enrichment is disabled for a run.
func SeedAll(rows []records.PrescanRow) []records.EnrichedRow {
	out := make([]records.EnrichedRow, len(rows))
	for i, r := range rows {
		out[i] = seedFromPrescan(r)
	}
	return out
}

// isAmbiguous reports whether a prescan row needs the model: no domain
// signal at all, or domain hits without a required-law hint.
func isAmbiguous(r records.PrescanRow) bool {
	return len(r.Domains) == 0 || !r.RequiredHint
}

func newBatchItem(idx int, r records.PrescanRow) batchItem {
	name := r.ExpandedName
	if name == "" {
		name = r.InputName
	}
	desc := r.ExpandedDescription
	if desc == "" {
		desc = r.InputDescription
	}
	return batchItem{index: idx, name: truncate(name, maxPromptName), desc: truncate(desc, maxPromptDesc)}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// buildMasterPrompt renders the single batched prompt. Each feature echoes
// its FEATURE_INDEX so the model cannot silently renumber the batch.
func buildMasterPrompt(items []batchItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are a geo-regulation compliance router for social media features.
For EACH feature, return ONE JSON object with:
- "feature_index": copy the EXACT integer shown as FEATURE_INDEX (do NOT renumber, do NOT start from 0 unless that exact value is shown).
- "classification": one of "REQUIRED", "NOT REQUIRED", "NEEDS HUMAN REVIEW".
- "confidence": a number in [0,1].
- "domains": a JSON array chosen from %s. If none fit, use ["General Compliance"].
- "primary_regions": e.g. ["EU","US-CA","US-FL","US-Federal","SG","BR","CA"] (use [] if unknown),
- "related_regulations": prefer only [DSA, SB976, HB 3, Utah SMRA, NCMEC] (use [] if none).

Return ONLY a JSON array of these objects (no prose, no markdown fences).
`, records.MarshalList(DomainList))

	b.WriteString("\nFeatures to analyze:\n")
	for _, it := range items {
		fmt.Fprintf(&b, "=== FEATURE ===\nFEATURE_INDEX: %d\nName: %s\nDescription: %s\n", it.index, it.name, it.desc)
	}
	b.WriteString("\nReturn ONLY the JSON array with one object per feature_index.")
	return b.String()
}

// mergeModelRow combines one model object with its prescan row. Lists are
// the sorted union of both sources, the final confidence is the model
// confidence lifted by the prescan boost, and a low-confidence NOT REQUIRED
// verdict cannot silently override a required-law hint.
func mergeModelRow(r records.PrescanRow, obj map[string]any, guard float64) records.EnrichedRow {
	llmClass := llm.StringField(obj, "classification")
	llmConf := llm.FloatField(obj, "confidence", 0)

	row := records.EnrichedRow{
		PrescanRow:            r,
		LLMClassification:     llmClass,
		LLMConfidence:         &llmConf,
		LLMDomains:            llm.ListField(obj, "domains"),
		LLMPrimaryRegions:     llm.ListField(obj, "primary_regions"),
		LLMRelatedRegulations: llm.ListField(obj, "related_regulations"),
	}
	row.FinalDomains = mergeUnique(r.Domains, row.LLMDomains)
	row.FinalPrimaryRegions = mergeUnique(r.PrimaryRegions, row.LLMPrimaryRegions)
	row.FinalRelatedRegulations = mergeUnique(r.LawHits, row.LLMRelatedRegulations)
	row.FinalConfidence = records.Round2(min(llmConf+r.ConfidenceBoost, 0.99))

	switch {
	case llmClass == "":
		if len(row.FinalDomains) == 0 {
			row.FinalClassification = records.ClassNeedsReview
		} else {
			row.FinalClassification = records.ClassRequired
		}
	case r.RequiredHint && llmClass == records.ClassNotRequired && llmConf < guard:
		row.FinalClassification = records.ClassGuardedReview
	default:
		row.FinalClassification = llmClass
	}
	return row
}

// mergeCategoriesOnly unions the model's lists into the finals and leaves
// classification and confidence for the agents downstream.
func mergeCategoriesOnly(r records.PrescanRow, obj map[string]any) records.EnrichedRow {
	row := records.EnrichedRow{
		PrescanRow:            r,
		LLMDomains:            llm.ListField(obj, "domains"),
		LLMPrimaryRegions:     llm.ListField(obj, "primary_regions"),
		LLMRelatedRegulations: llm.ListField(obj, "related_regulations"),
	}
	row.FinalDomains = mergeUnique(r.Domains, row.LLMDomains)
	row.FinalPrimaryRegions = mergeUnique(r.PrimaryRegions, row.LLMPrimaryRegions)
	row.FinalRelatedRegulations = mergeUnique(r.LawHits, row.LLMRelatedRegulations)
	return row
}

// seedFromPrescan carries a non-ambiguous row forward with a conservative
// confidence derived from the rule boost.
func seedFromPrescan(r records.PrescanRow) records.EnrichedRow {
	row := records.EnrichedRow{
		PrescanRow:              r,
		FinalDomains:            mergeUnique(r.Domains, nil),
		FinalPrimaryRegions:     mergeUnique(r.PrimaryRegions, nil),
		FinalRelatedRegulations: mergeUnique(r.LawHits, nil),
		FinalConfidence:         records.Round2(min(0.75+r.ConfidenceBoost, nonAmbiguousCeil)),
	}
	if r.RequiredHint {
		row.FinalClassification = records.ClassRequired
	} else {
		row.FinalClassification = records.ClassNotRequired
	}
	return row
}

// mergeUnique returns the sorted, deduplicated union of two lists. The
// result is never nil so CSV serialization emits "[]" instead of "".
func mergeUnique(a, b []string) []string {
	set := map[string]struct{}{}
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		set[v] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
