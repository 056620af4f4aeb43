// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/geogate-ai/geogate/internal/records"
	"github.com/geogate-ai/geogate/internal/router"
	"github.com/geogate-ai/geogate/pkg/logging"
)

var (
	routeIn     string
	routeOut    string
	routeLegacy bool
	routeOnlyLM bool
	routeQueues string
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Assign domain agents to enriched rows",
	Long: `Maps each row's merged domains and regions to compliance agents.
Routing is a pure table lookup; no model calls are made. Manual per-row
overrides (manual_agents, skip_agents columns) take precedence when
present in the input.

Examples:
  geogate route --in outputs/llm_enriched.csv --out outputs/llm_routed.csv
  geogate route --in outputs/llm_enriched.csv --out outputs/llm_routed.csv --queues outputs
  geogate route --in outputs/llm_enriched.csv --out outputs/llm_routed.csv --legacy`,
	Run: runRoute,
}

func init() {
	routeCmd.Flags().StringVar(&routeIn, "in", "outputs/llm_enriched.csv", "Enriched results CSV")
	routeCmd.Flags().StringVar(&routeOut, "out", "outputs/llm_routed.csv", "Output CSV path")
	routeCmd.Flags().BoolVar(&routeLegacy, "legacy", false,
		"Use legacy routing (classification labels and confidence thresholds)")
	routeCmd.Flags().BoolVar(&routeOnlyLM, "only-llm", false,
		"Skip rows the model never categorized when the prescan already scored them")
	routeCmd.Flags().StringVar(&routeQueues, "queues", "",
		"Optional directory for a queues.json agent work-queue export")

	rootCmd.AddCommand(routeCmd)
}

func runRoute(cmd *cobra.Command, args []string) {
	log := newLogger("route")
	defer log.Close()

	if err := routeStage(routeIn, routeOut, routeLegacy, routeOnlyLM, routeQueues, log); err != nil {
		log.Error("routing failed", "error", err)
		os.Exit(ExitFailure)
	}
	os.Exit(ExitSuccess)
}

func routeStage(in, out string, legacy, onlyLLM bool, queuesDir string, log *logging.Logger) error {
	rows, err := records.ReadEnriched(in, warnFunc(log))
	if err != nil {
		return err
	}

	cfg := router.DefaultConfig()
	cfg.CategoryOnly = !legacy
	cfg.OnlyLLM = onlyLLM
	cfg.MaxAgentsPerRow = settings.MaxAgentsPerRow

	routed := router.RouteAll(rows, cfg)
	if err := records.WriteRouted(out, routed); err != nil {
		return err
	}
	log.Info("routing decisions written", "path", out, "rows", len(routed))

	if queuesDir != "" {
		queues := router.BuildAgentQueues(routed)
		data, err := json.MarshalIndent(queues, "", "  ")
		if err != nil {
			return fmt.Errorf("encode agent queues: %w", err)
		}
		path := filepath.Join(queuesDir, "queues.json")
		if err := os.MkdirAll(queuesDir, 0o755); err != nil {
			return fmt.Errorf("create queues directory: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write agent queues: %w", err)
		}
		log.Info("agent queues written", "path", path, "agents", len(queues))
	}
	return nil
}
