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
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/geogate-ai/geogate/internal/enrich"
	"github.com/geogate-ai/geogate/internal/records"
	"github.com/geogate-ai/geogate/pkg/logging"
)

var (
	runInput      string
	runTerms      string
	runOutDir     string
	runSkipEnrich bool
	runSkipAgents bool
	runLLMAll     bool
	runLLMForLLM  bool
	runLegacy     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline end to end",
	Long: `Executes prescan, enrichment, routing, agent evaluation, and
finalization in order against one output directory. Each stage writes
its CSV, so a partial run leaves resumable intermediate files:

  prescan_results.csv -> llm_enriched.csv -> llm_routed.csv
  -> agent_results.csv -> final_results.csv

Examples:
  geogate run --input features.csv --terms terminology.json --out-dir outputs
  geogate run --input features.csv --out-dir outputs --skip-enrich
  geogate run --input features.csv --out-dir outputs --llm-for-llm-categorized`,
	Run: runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "Input feature CSV (required)")
	runCmd.Flags().StringVar(&runTerms, "terms", "", "Terminology JSON map (optional)")
	runCmd.Flags().StringVar(&runOutDir, "out-dir", "outputs", "Directory for stage outputs")
	runCmd.Flags().BoolVar(&runSkipEnrich, "skip-enrich", false,
		"Skip model enrichment; routing works off prescan signals only")
	runCmd.Flags().BoolVar(&runSkipAgents, "skip-agents", false,
		"Skip agent evaluation; finalize from prescan/enrichment signals only")
	runCmd.Flags().BoolVar(&runLLMAll, "llm-all", false,
		"Enable the agent model override for every routed row")
	runCmd.Flags().BoolVar(&runLLMForLLM, "llm-for-llm-categorized", false,
		"Enable the agent model override only for model-categorized rows")
	runCmd.Flags().BoolVar(&runLegacy, "legacy-routing", false,
		"Use legacy routing (labels and confidence thresholds)")
	_ = runCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) {
	log := newLogger("pipeline").With("run_id", uuid.NewString())
	defer log.Close()

	start := time.Now()
	ctx := cmd.Context()

	prescanOut := filepath.Join(runOutDir, "prescan_results.csv")
	enrichedOut := filepath.Join(runOutDir, "llm_enriched.csv")
	routedOut := filepath.Join(runOutDir, "llm_routed.csv")
	agentsOut := filepath.Join(runOutDir, "agent_results.csv")
	finalOut := filepath.Join(runOutDir, "final_results.csv")

	log.Info("pipeline starting", "input", runInput, "out_dir", runOutDir)

	if err := prescanStage(runInput, runTerms, prescanOut, "", log); err != nil {
		log.Error("prescan stage failed", "error", err)
		os.Exit(ExitFailure)
	}

	if runSkipEnrich {
		// Routing still needs the enriched column set; a categories-only
		// merge with no model produces it from prescan signals alone.
		log.Info("enrichment skipped, seeding finals from prescan")
	}
	if err := enrichSkippable(ctx, prescanOut, enrichedOut, runSkipEnrich, log); err != nil {
		log.Error("enrichment stage failed", "error", err)
		os.Exit(ExitFailure)
	}

	if err := routeStage(enrichedOut, routedOut, runLegacy, false, "", log); err != nil {
		log.Error("routing stage failed", "error", err)
		os.Exit(ExitFailure)
	}

	if runSkipAgents {
		log.Info("agent evaluation skipped")
		if err := writeEmptyAgentResults(agentsOut); err != nil {
			log.Error("agent stage failed", "error", err)
			os.Exit(ExitFailure)
		}
	} else if err := agentsStage(ctx, routedOut, agentsOut, runLLMAll, runLLMForLLM, log); err != nil {
		log.Error("agent stage failed", "error", err)
		os.Exit(ExitFailure)
	}

	if err := finalizeStage(enrichedOut, agentsOut, finalOut, log); err != nil {
		log.Error("finalize stage failed", "error", err)
		os.Exit(ExitFailure)
	}

	log.Info("pipeline complete", "final", finalOut, "elapsed", time.Since(start).String())
	os.Exit(ExitSuccess)
}

// enrichSkippable runs the enrichment stage, or seeds the enriched CSV
// from prescan signals alone when enrichment is disabled.
func enrichSkippable(ctx context.Context, in, out string, skip bool, log *logging.Logger) error {
	if !skip {
		return enrichStage(ctx, in, out, false, log)
	}
	rows, err := records.ReadPrescan(in, warnFunc(log))
	if err != nil {
		return err
	}
	return records.WriteEnriched(out, enrich.SeedAll(rows))
}

// writeEmptyAgentResults keeps the stage contract intact when agents are
// skipped: the finalizer reads a valid, empty agent results CSV and falls
// back to prescan/enrichment signals per row.
func writeEmptyAgentResults(path string) error {
	return records.WriteAgentResults(path, nil)
}
