// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm is the single chokepoint for all generative-model calls.
//
// Every outbound call flows through a Client, normally wrapped by
// RateLimited so concurrent agents share one global spacing budget, and
// optionally by Cached so re-runs of a stage don't re-spend quota.
package llm

import (
	"context"
	"errors"
	"strings"
)

// Client is the standard interface for any text-completion backend.
// Implementations return the raw model text; callers handle parsing.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrNoSignal reports that the model produced no well-formed response
// after the bounded retry protocol. Callers must treat it as "no LLM
// signal available" and fall back to rule-only results.
var ErrNoSignal = errors.New("llm: no usable signal")

// IsQuotaError detects provider rate-limit responses by message text,
// since transports surface them inconsistently. Callers back off longer
// before the next unit of work.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "quota", "rate limit", "resource exhausted", "too many requests"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
