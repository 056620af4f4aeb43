// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geogate-ai/geogate/internal/prescan"
	"github.com/geogate-ai/geogate/internal/records"
	"github.com/geogate-ai/geogate/internal/terminology"
	"github.com/geogate-ai/geogate/pkg/logging"
)

var (
	prescanInput string
	prescanTerms string
	prescanOut   string
	prescanSplit string
)

var prescanCmd = &cobra.Command{
	Use:   "prescan",
	Short: "Expand terminology and run the deterministic rule scan",
	Long: `Reads a feature CSV (feature_name, feature_description), expands
internal jargon using a terminology map, and scans each feature against
the embedded law/domain rule catalog. No model calls are made.

Examples:
  geogate prescan --input features.csv --terms terminology.json --out outputs/prescan_results.csv
  geogate prescan --input features.csv --out outputs/prescan_results.csv --split outputs/by_domain`,
	Run: runPrescan,
}

func init() {
	prescanCmd.Flags().StringVar(&prescanInput, "input", "", "Input feature CSV (required)")
	prescanCmd.Flags().StringVar(&prescanTerms, "terms", "", "Terminology JSON map (optional)")
	prescanCmd.Flags().StringVar(&prescanOut, "out", "outputs/prescan_results.csv", "Output CSV path")
	prescanCmd.Flags().StringVar(&prescanSplit, "split", "", "Optional folder for per-domain CSVs")
	_ = prescanCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(prescanCmd)
}

func runPrescan(cmd *cobra.Command, args []string) {
	log := newLogger("prescan")
	defer log.Close()

	if err := prescanStage(prescanInput, prescanTerms, prescanOut, prescanSplit, log); err != nil {
		log.Error("prescan failed", "error", err)
		os.Exit(ExitFailure)
	}
	os.Exit(ExitSuccess)
}

func prescanStage(input, terms, out, split string, log *logging.Logger) error {
	features, err := records.ReadFeatures(input)
	if err != nil {
		return err
	}

	expander := &terminology.Expander{}
	if terms != "" {
		expander, err = terminology.Load(terms)
		if err != nil {
			return err
		}
		log.Info("terminology loaded", "terms", expander.Len())
	}

	engine, err := prescan.NewEngine()
	if err != nil {
		return err
	}

	rows := make([]records.PrescanRow, len(features))
	for i, f := range features {
		f.ExpandedName = expander.Expand(f.InputName)
		f.ExpandedDescription = expander.Expand(f.InputDescription)

		res := engine.Scan(f.ExpandedName, f.ExpandedDescription)
		rows[i] = records.PrescanRow{
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

	if err := records.WritePrescan(out, rows); err != nil {
		return err
	}
	log.Info("prescan results written", "path", out, "rows", len(rows))

	if split != "" {
		if err := writeDomainSplit(split, rows, log); err != nil {
			return err
		}
	}
	return nil
}

// writeDomainSplit writes one CSV per detected domain plus a NONE bucket
// for rows with no domain signal. A row in several domains appears in each
// of their files.
func writeDomainSplit(dir string, rows []records.PrescanRow, log *logging.Logger) error {
	byDomain := map[string][]records.PrescanRow{}
	var none []records.PrescanRow
	for _, r := range rows {
		if len(r.Domains) == 0 {
			none = append(none, r)
			continue
		}
		for _, d := range r.Domains {
			byDomain[d] = append(byDomain[d], r)
		}
	}

	if len(none) > 0 {
		if err := records.WritePrescan(filepath.Join(dir, "domain__NONE.csv"), none); err != nil {
			return err
		}
	}
	for domain, group := range byDomain {
		path := filepath.Join(dir, fmt.Sprintf("domain__%s.csv", sanitizeDomain(domain)))
		if err := records.WritePrescan(path, group); err != nil {
			return err
		}
	}
	log.Info("per-domain split written", "dir", dir, "domains", len(byDomain), "none_rows", len(none))
	return nil
}

// sanitizeDomain turns a domain label into a filesystem-safe file stem.
func sanitizeDomain(domain string) string {
	var b strings.Builder
	for _, ch := range domain {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9',
			ch == ' ', ch == '_', ch == '-':
			b.WriteRune(ch)
		default:
			b.WriteRune('_')
		}
	}
	return strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
}
