// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// countingClient returns a distinct response per call and counts calls.
type countingClient struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingClient) Generate(context.Context, string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return fmt.Sprintf("response-%d", c.calls), nil
}

func newTestCache(t *testing.T, inner Client) *Cached {
	t.Helper()
	c, err := NewCached(inner, CacheConfig{InMemory: true}, nil)
	if err != nil {
		t.Fatalf("NewCached() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCachedHit(t *testing.T) {
	inner := &countingClient{}
	c := newTestCache(t, inner)
	ctx := context.Background()

	first, err := c.Generate(ctx, "same prompt")
	if err != nil {
		t.Fatalf("first Generate() error = %v", err)
	}
	second, err := c.Generate(ctx, "same prompt")
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}

	if first != "response-1" || second != "response-1" {
		t.Errorf("responses = %q, %q; want a cache hit on the second call", first, second)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
}

func TestCachedDistinctPrompts(t *testing.T) {
	inner := &countingClient{}
	c := newTestCache(t, inner)
	ctx := context.Background()

	a, _ := c.Generate(ctx, "prompt a")
	b, _ := c.Generate(ctx, "prompt b")
	if a == b {
		t.Errorf("distinct prompts share a response: %q", a)
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls)
	}
}

func TestCachedErrorNotStored(t *testing.T) {
	boom := errors.New("model unavailable")
	inner := &countingClient{err: boom}
	c := newTestCache(t, inner)
	ctx := context.Background()

	if _, err := c.Generate(ctx, "p"); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want inner error", err)
	}

	inner.mu.Lock()
	inner.err = nil
	inner.mu.Unlock()

	out, err := c.Generate(ctx, "p")
	if err != nil {
		t.Fatalf("Generate() after recovery error = %v", err)
	}
	if out != "response-2" {
		t.Errorf("response = %q, want fresh call after failed attempt", out)
	}
}
