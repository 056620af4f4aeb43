// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/geogate-ai/geogate/internal/enrich"
	"github.com/geogate-ai/geogate/internal/records"
	"github.com/geogate-ai/geogate/pkg/logging"
)

var (
	enrichIn             string
	enrichOut            string
	enrichCategoriesOnly bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Classify ambiguous prescan rows with the model",
	Long: `Sends rows the rule scan could not settle (no domains, or no
required-law hint) to the model in one batched call, then merges the
model signal with the prescan result. Non-ambiguous rows are carried
forward without any model call.

If the batched response cannot be parsed, the raw model text is saved
next to the input CSV as llm_raw_response.txt and the run fails.

Examples:
  geogate enrich --in outputs/prescan_results.csv --out outputs/llm_enriched.csv
  geogate enrich --in outputs/prescan_results.csv --out outputs/llm_enriched.csv --categories-only`,
	Run: runEnrich,
}

func init() {
	enrichCmd.Flags().StringVar(&enrichIn, "in", "outputs/prescan_results.csv", "Prescan results CSV")
	enrichCmd.Flags().StringVar(&enrichOut, "out", "outputs/llm_enriched.csv", "Output CSV path")
	enrichCmd.Flags().BoolVar(&enrichCategoriesOnly, "categories-only", false,
		"Merge only model domains/regions/regulations; leave classification to the agents")

	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) {
	log := newLogger("enrich")
	defer log.Close()

	if err := enrichStage(cmd.Context(), enrichIn, enrichOut, enrichCategoriesOnly, log); err != nil {
		log.Error("enrichment failed", "error", err)
		os.Exit(ExitFailure)
	}
	os.Exit(ExitSuccess)
}

func enrichStage(ctx context.Context, in, out string, categoriesOnly bool, log *logging.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := records.ReadPrescan(in, warnFunc(log))
	if err != nil {
		return err
	}

	client, cleanup, err := newModelClient(log)
	if err != nil {
		return err
	}
	defer cleanup()

	enriched, err := enrich.Enrich(ctx, client, rows, enrich.Options{
		CategoriesOnly: categoriesOnly,
		DowngradeGuard: settings.DowngradeGuard,
		RawDumpPath:    filepath.Join(filepath.Dir(in), "llm_raw_response.txt"),
	}, log)
	if err != nil {
		return err
	}

	if err := records.WriteEnriched(out, enriched); err != nil {
		return err
	}
	log.Info("enriched results written", "path", out, "rows", len(enriched))
	return nil
}
