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
	"time"

	"github.com/spf13/cobra"

	"github.com/geogate-ai/geogate/internal/config"
	"github.com/geogate-ai/geogate/internal/llm"
	"github.com/geogate-ai/geogate/pkg/logging"
)

// Exit codes shared by all subcommands.
const (
	ExitSuccess  = 0
	ExitBadInput = 1
	ExitFailure  = 2
)

// --- Global Command Variables ---
var (
	configPath string
	logLevel   string
	logDir     string
	jsonLogs   bool
	quiet      bool

	settings config.Settings

	rootCmd = &cobra.Command{
		Use:   "geogate",
		Short: "A cli for geo-regulation compliance classification of product features",
		Long: `Geogate classifies product feature descriptions for geo-specific
compliance obligations. Each pipeline stage reads and writes CSV, so
stages can be run separately or end to end with "geogate run".`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			s, err := config.Load(configPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
				os.Exit(ExitBadInput)
			}
			settings = s
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML settings file (optional)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "",
		"Directory for JSON log files (disabled when empty)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false,
		"Emit JSON logs on stderr")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false,
		"Suppress stderr logging")
}

// newLogger builds the stage logger from the global flags.
func newLogger(service string) *logging.Logger {
	return logging.New(logging.Config{
		Level:   logging.ParseLevel(logLevel),
		LogDir:  logDir,
		Service: service,
		JSON:    jsonLogs,
		Quiet:   quiet,
	})
}

// newModelClient assembles the model client stack: provider transport,
// the global rate limiter around it, then the optional on-disk response
// cache outermost so cache hits never wait on the call interval.
func newModelClient(log *logging.Logger) (llm.Client, func(), error) {
	cleanup := func() {}

	base, err := llm.NewOpenAIClient(log)
	if err != nil {
		return nil, cleanup, err
	}

	interval := time.Duration(settings.MinLLMIntervalSec * float64(time.Second))
	jitter := time.Duration(settings.LLMJitterSec * float64(time.Second))
	var client llm.Client = llm.NewRateLimited(base, interval, jitter)

	if settings.CacheDir != "" {
		cached, err := llm.NewCached(client, llm.CacheConfig{Dir: settings.CacheDir}, log)
		if err != nil {
			return nil, cleanup, err
		}
		client = cached
		cleanup = func() {
			if err := cached.Close(); err != nil {
				log.Warn("closing response cache", "error", err)
			}
		}
	}
	return client, cleanup, nil
}

// warnFunc adapts a logger into the CSV readers' coercion warning callback.
func warnFunc(log *logging.Logger) func(col string, row int, err error) {
	return func(col string, row int, err error) {
		log.Warn("unparseable list cell, treated as empty", "column", col, "row", row, "error", err)
	}
}
