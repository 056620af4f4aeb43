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

	"github.com/spf13/cobra"

	"github.com/geogate-ai/geogate/internal/agents"
	"github.com/geogate-ai/geogate/internal/llm"
	"github.com/geogate-ai/geogate/internal/records"
	"github.com/geogate-ai/geogate/pkg/logging"
)

var (
	agentsIn          string
	agentsOut         string
	agentsLLMAll      bool
	agentsLLMForLLM   bool
	agentsWorkers     int
	agentsMinInterval float64
	agentsJitter      float64
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Run the domain agents over routed rows",
	Long: `Evaluates every (row, assigned agent) pair on a bounded worker
pool. Each agent scores the feature with a deterministic checklist; the
model is consulted as an override only when enabled by flag. Results are
written sorted by (row_index, agent) for reproducible diffs.

Examples:
  geogate agents --in outputs/llm_routed.csv --out outputs/agent_results.csv
  geogate agents --in outputs/llm_routed.csv --out outputs/agent_results.csv --llm-for-llm-categorized
  geogate agents --in outputs/llm_routed.csv --out outputs/agent_results.csv --llm-all --workers 4`,
	Run: runAgents,
}

func init() {
	agentsCmd.Flags().StringVar(&agentsIn, "in", "outputs/llm_routed.csv", "Routed results CSV")
	agentsCmd.Flags().StringVar(&agentsOut, "out", "outputs/agent_results.csv", "Output CSV path")
	agentsCmd.Flags().BoolVar(&agentsLLMAll, "llm-all", false,
		"Enable the model override for every routed row")
	agentsCmd.Flags().BoolVar(&agentsLLMForLLM, "llm-for-llm-categorized", false,
		"Enable the model override only for rows with non-empty llm_domains")
	agentsCmd.Flags().IntVar(&agentsWorkers, "workers", 0,
		"Max parallel workers (0 = configured default)")
	agentsCmd.Flags().Float64Var(&agentsMinInterval, "llm-min-interval", 0,
		"Minimum seconds between model requests (0 = configured default)")
	agentsCmd.Flags().Float64Var(&agentsJitter, "llm-jitter", 0,
		"Extra jitter seconds to randomize request spacing")

	rootCmd.AddCommand(agentsCmd)
}

func runAgents(cmd *cobra.Command, args []string) {
	log := newLogger("agents")
	defer log.Close()

	// Flag overrides layer on top of the loaded settings.
	if agentsWorkers > 0 {
		settings.Workers = agentsWorkers
	}
	if agentsMinInterval > 0 {
		settings.MinLLMIntervalSec = agentsMinInterval
	}
	if agentsJitter > 0 {
		settings.LLMJitterSec = agentsJitter
	}

	if err := agentsStage(cmd.Context(), agentsIn, agentsOut, agentsLLMAll, agentsLLMForLLM, log); err != nil {
		log.Error("agent evaluation failed", "error", err)
		os.Exit(ExitFailure)
	}
	os.Exit(ExitSuccess)
}

func agentsStage(ctx context.Context, in, out string, llmAll, llmForLLM bool, log *logging.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := records.ReadRouted(in, warnFunc(log))
	if err != nil {
		return err
	}

	var client llm.Client
	cleanup := func() {}
	if llmAll || llmForLLM {
		client, cleanup, err = newModelClient(log)
		if err != nil {
			return err
		}
	}
	defer cleanup()

	results := agents.Run(ctx, rows, client, agents.RunnerConfig{
		Workers:              settings.Workers,
		LLMForAll:            llmAll,
		LLMForLLMCategorized: llmForLLM,
	}, log)

	if err := records.WriteAgentResults(out, results); err != nil {
		return err
	}
	log.Info("agent results written", "path", out, "results", len(results))
	return nil
}
