// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/geogate-ai/geogate/internal/finalize"
	"github.com/geogate-ai/geogate/internal/records"
	"github.com/geogate-ai/geogate/pkg/logging"
)

var (
	finalizeInEnriched string
	finalizeInAgents   string
	finalizeOut        string
)

var finalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Produce the final audit-ready results table",
	Long: `Joins enriched rows with their per-agent verdicts and emits one
final classification per feature. Any ISSUE verdict forces REQUIRED;
otherwise any REVIEW forces NEEDS HUMAN REVIEW; otherwise NOT REQUIRED.
Rows with strong prescan signals but no agent verdicts fall back to
REQUIRED rather than being dropped.

Example:
  geogate finalize --in-enriched outputs/llm_enriched.csv --in-agents outputs/agent_results.csv --out outputs/final_results.csv`,
	Run: runFinalize,
}

func init() {
	finalizeCmd.Flags().StringVar(&finalizeInEnriched, "in-enriched", "outputs/llm_enriched.csv",
		"Enriched results CSV")
	finalizeCmd.Flags().StringVar(&finalizeInAgents, "in-agents", "outputs/agent_results.csv",
		"Agent results CSV")
	finalizeCmd.Flags().StringVar(&finalizeOut, "out", "outputs/final_results.csv",
		"Output CSV path")

	rootCmd.AddCommand(finalizeCmd)
}

func runFinalize(cmd *cobra.Command, args []string) {
	log := newLogger("finalize")
	defer log.Close()

	if err := finalizeStage(finalizeInEnriched, finalizeInAgents, finalizeOut, log); err != nil {
		log.Error("finalize failed", "error", err)
		os.Exit(ExitFailure)
	}
	os.Exit(ExitSuccess)
}

func finalizeStage(inEnriched, inAgents, out string, log *logging.Logger) error {
	enriched, err := records.ReadEnriched(inEnriched, warnFunc(log))
	if err != nil {
		return err
	}
	verdicts, err := records.ReadAgentResults(inAgents, warnFunc(log))
	if err != nil {
		return err
	}

	final := finalize.Finalize(enriched, verdicts)
	if err := records.WriteFinal(out, final); err != nil {
		return err
	}
	log.Info("final results written", "path", out, "rows", len(final))
	return nil
}
