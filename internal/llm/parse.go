// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/geogate-ai/geogate/pkg/logging"
)

// objectRetries is the number of re-asks after the first malformed reply.
const objectRetries = 2

// tightenPreamble is prepended on retry to force a bare schema-conforming
// object out of a model that wrapped or narrated its first answer.
const tightenPreamble = "Return ONLY one JSON object with double-quoted keys. " +
	`Schema: {"status":"ISSUE|OK|REVIEW","reasoning":"...",` +
	`"risk_factors":[],"regions":[],"regulations":[],"mitigations":[]}.` + "\n\n"

var (
	fenceRe = regexp.MustCompile("(?im)^```(?:json)?\\s*|\\s*```$")
	braceRe = regexp.MustCompile(`(?s)\{.*\}`)
)

// ObjectCall runs the bounded-retry JSON-object protocol against a client:
// generate, strip fences, parse directly, fall back to the first
// brace-delimited block, and verify the expected keys are present. Up to
// objectRetries re-asks go out with a tightened schema-only instruction.
//
// A transport error propagates as-is. Exhausting the protocol returns
// ErrNoSignal; callers degrade to rule-only results, never crash.
func ObjectCall(ctx context.Context, c Client, prompt string, expectKeys []string, log *logging.Logger) (map[string]any, error) {
	ask := prompt
	for attempt := 0; attempt <= objectRetries; attempt++ {
		raw, err := c.Generate(ctx, ask)
		if err != nil {
			return nil, err
		}
		if obj := parseObject(raw); obj != nil && hasKeys(obj, expectKeys) {
			return obj, nil
		}
		if log != nil {
			log.Warn("malformed model object, tightening schema", "attempt", attempt+1)
		}
		ask = tightenPreamble + prompt
	}
	return nil, ErrNoSignal
}

// parseObject extracts a single JSON object from raw model text.
func parseObject(raw string) map[string]any {
	s := strings.TrimSpace(fenceRe.ReplaceAllString(strings.TrimSpace(raw), ""))

	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err == nil {
		return obj
	}
	if m := braceRe.FindString(s); m != "" {
		if err := json.Unmarshal([]byte(m), &obj); err == nil {
			return obj
		}
	}
	return nil
}

func hasKeys(obj map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return false
		}
	}
	return true
}

// StrictJSONArray parses a batch response that must be a JSON array of
// objects. Markdown fences are stripped and, failing that, the outermost
// bracketed slice is taken; any residual parse failure is a hard error
// because a malformed multi-item payload cannot be partially trusted.
func StrictJSONArray(raw string) ([]map[string]any, error) {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```json"); i >= 0 {
		rest := s[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			s = strings.TrimSpace(rest[:j])
		} else {
			s = strings.TrimSpace(rest)
		}
	} else if i, j := strings.Index(s, "["), strings.LastIndex(s, "]"); i >= 0 && j > i {
		s = s[i : j+1]
	}

	var out []map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("parse JSON array: %w", err)
	}
	return out, nil
}

// Coercion helpers for the loosely-typed objects the parsers return.

// StringField returns obj[key] as a string, or "" when absent or not a
// string.
func StringField(obj map[string]any, key string) string {
	if v, ok := obj[key].(string); ok {
		return v
	}
	return ""
}

// FloatField returns obj[key] as a float64, accepting JSON numbers and
// numeric strings, defaulting otherwise.
func FloatField(obj map[string]any, key string, def float64) float64 {
	switch v := obj[key].(type) {
	case float64:
		return v
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return f
		}
	}
	return def
}

// ListField returns obj[key] as a string list, tolerating mixed-type
// arrays by stringifying scalar members.
func ListField(obj map[string]any, key string) []string {
	arr, ok := obj[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		switch s := v.(type) {
		case string:
			out = append(out, s)
		case float64:
			out = append(out, fmt.Sprintf("%g", s))
		}
	}
	return out
}

// IntField returns obj[key] as an int, or (0, false) when absent or not
// an integral number. JSON numbers arrive as float64.
func IntField(obj map[string]any, key string) (int, bool) {
	v, ok := obj[key].(float64)
	if !ok || v != float64(int(v)) {
		return 0, false
	}
	return int(v), true
}
