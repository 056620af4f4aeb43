// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/geogate-ai/geogate/internal/llm"
	"github.com/geogate-ai/geogate/internal/records"
	"github.com/geogate-ai/geogate/pkg/logging"
)

// RunnerConfig controls the parallel agent evaluation.
type RunnerConfig struct {
	// Workers bounds the pool. Zero or negative falls back to the default.
	Workers int

	// LLMForAll enables the model override for every routed row.
	LLMForAll bool
	// LLMForLLMCategorized enables the model override only for rows the
	// enrichment stage categorized (non-empty llm_domains).
	LLMForLLMCategorized bool

	// QuotaBackoff is how long a worker sleeps after a provider quota
	// error before picking up its next task. Zero uses the default.
	QuotaBackoff time.Duration
}

const (
	defaultWorkers      = 8
	defaultQuotaBackoff = 10 * time.Second
)

// task is one (row, agent) evaluation unit.
type task struct {
	rowIndex int
	agent    string
}

// Run evaluates every routed (row, agent) pair on a bounded worker pool and
// returns the results sorted by (row index, agent name) so output order is
// reproducible regardless of scheduling.
//
// Tasks are independent; the only shared mutable state is the rate limiter
// inside the client. A panicking task degrades to a REVIEW verdict instead
// of taking the run down, and a quota error from the provider pauses that
// worker before its next task.
func Run(ctx context.Context, rows []records.RoutedRow, client llm.Client, cfg RunnerConfig, log *logging.Logger) []records.AgentResult {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	backoff := cfg.QuotaBackoff
	if backoff <= 0 {
		backoff = defaultQuotaBackoff
	}

	var tasks []task
	for i, r := range rows {
		for _, agent := range r.RouteAgents {
			tasks = append(tasks, task{rowIndex: i, agent: agent})
		}
	}
	log.Info("agent evaluation starting", "rows", len(rows), "tasks", len(tasks), "workers", workers)

	jobs := make(chan task)
	var (
		mu      sync.Mutex
		results []records.AgentResult
		wg      sync.WaitGroup
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				res, quotaHit := runTask(ctx, rows[t.rowIndex], t, client, cfg, log)
				if res != nil {
					mu.Lock()
					results = append(results, *res)
					mu.Unlock()
				}
				if quotaHit {
					log.Warn("provider quota hit, backing off", "agent", t.agent, "row", t.rowIndex, "backoff", backoff)
					select {
					case <-time.After(backoff):
					case <-ctx.Done():
					}
				}
			}
		}()
	}

	for _, t := range tasks {
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		if results[i].RowIndex != results[j].RowIndex {
			return results[i].RowIndex < results[j].RowIndex
		}
		return results[i].Agent < results[j].Agent
	})
	return results
}

// runTask evaluates one (row, agent) pair. It never panics out: a panic in
// agent code is converted into a degraded REVIEW verdict for this pair only.
func runTask(ctx context.Context, row records.RoutedRow, t task, client llm.Client, cfg RunnerConfig, log *logging.Logger) (res *records.AgentResult, quotaHit bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("agent task panicked", "agent", t.agent, "row", t.rowIndex, "panic", fmt.Sprint(r))
			res = resultFor(row, t, Verdict{
				Agent:     t.agent,
				Status:    StatusReview,
				Score:     0.5,
				Reasoning: fmt.Sprintf("Agent evaluation failed (%v); needs human review.", r),
			})
		}
	}()

	opts := Options{Log: log, Mode: ModeAlways}
	if cfg.LLMForAll || (cfg.LLMForLLMCategorized && len(row.LLMDomains) > 0) {
		opts.Client = client
	}

	checker, ok := Resolve(t.agent, opts)
	if !ok {
		log.Warn("unknown agent in route, skipping", "agent", t.agent, "row", t.rowIndex)
		return nil, false
	}

	verdict, err := checker.Check(ctx, row.Feature)
	if err != nil {
		log.Warn("model override unavailable, verdict is rule-only", "agent", t.agent, "row", t.rowIndex, "error", err)
		quotaHit = llm.IsQuotaError(err)
	}
	return resultFor(row, t, verdict), quotaHit
}

func resultFor(row records.RoutedRow, t task, v Verdict) *records.AgentResult {
	name := row.ExpandedName
	if name == "" {
		name = row.InputName
	}
	return &records.AgentResult{
		RowIndex:    t.rowIndex,
		Agent:       v.Agent,
		Status:      v.Status,
		Score:       v.Score,
		Reasoning:   v.Reasoning,
		Suggestions: v.Suggestions,
		Domains:     row.FinalDomains,
		Regions:     row.FinalPrimaryRegions,
		FeatureName: name,
	}
}
