// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config holds the pipeline settings. Values come from an optional
// YAML file with environment overrides on top; every loaded config is
// validated before use so a bad threshold fails the run up front instead of
// skewing classifications.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Settings is the validated pipeline configuration.
type Settings struct {
	// DowngradeGuard is the model confidence below which NOT REQUIRED
	// cannot override a prescan required-law hint.
	DowngradeGuard float64 `yaml:"downgrade_guard" validate:"gte=0,lte=1"`

	// MinLLMIntervalSec is the global minimum spacing between model calls.
	MinLLMIntervalSec float64 `yaml:"min_llm_interval_sec" validate:"gte=0"`
	// LLMJitterSec is extra random spacing added per call, capped at 250ms.
	LLMJitterSec float64 `yaml:"llm_jitter_sec" validate:"gte=0"`

	// Workers bounds the agent worker pool.
	Workers int `yaml:"workers" validate:"gt=0,lte=64"`
	// MaxAgentsPerRow caps the routed agent list per row.
	MaxAgentsPerRow int `yaml:"max_agents_per_row" validate:"gt=0,lte=10"`

	// CacheDir, when set, enables the on-disk model response cache.
	CacheDir string `yaml:"cache_dir"`
}

// Defaults returns the production settings.
func Defaults() Settings {
	return Settings{
		DowngradeGuard:    0.80,
		MinLLMIntervalSec: 1.0,
		LLMJitterSec:      0.0,
		Workers:           8,
		MaxAgentsPerRow:   3,
	}
}

// Load builds settings from defaults, an optional YAML file, and
// environment overrides, then validates the result. An empty path skips
// the file layer entirely.
func Load(path string) (Settings, error) {
	s := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return s, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("parse config file: %w", err)
		}
	}
	s.applyEnv()

	if err := validator.New().Struct(s); err != nil {
		return s, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

func (s *Settings) applyEnv() {
	if v, ok := envFloat("GEOGATE_DOWNGRADE_GUARD"); ok {
		s.DowngradeGuard = v
	}
	if v, ok := envFloat("GEOGATE_LLM_MIN_INTERVAL"); ok {
		s.MinLLMIntervalSec = v
	}
	if v, ok := envFloat("GEOGATE_LLM_JITTER"); ok {
		s.LLMJitterSec = v
	}
	if v, ok := envInt("GEOGATE_WORKERS"); ok {
		s.Workers = v
	}
	if v, ok := envInt("GEOGATE_MAX_AGENTS"); ok {
		s.MaxAgentsPerRow = v
	}
	if v := os.Getenv("GEOGATE_CACHE_DIR"); v != "" {
		s.CacheDir = v
	}
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
