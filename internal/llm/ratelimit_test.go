// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"sync"
	"testing"
	"time"
)

// stampClient records the wall-clock time of every call.
type stampClient struct {
	mu     sync.Mutex
	stamps []time.Time
}

func (c *stampClient) Generate(context.Context, string) (string, error) {
	c.mu.Lock()
	c.stamps = append(c.stamps, time.Now())
	c.mu.Unlock()
	return "ok", nil
}

func TestRateLimitedSpacing(t *testing.T) {
	inner := &stampClient{}
	const interval = 30 * time.Millisecond
	rl := NewRateLimited(inner, interval, 0)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := rl.Generate(ctx, "p"); err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
	}

	if len(inner.stamps) != 3 {
		t.Fatalf("calls = %d, want 3", len(inner.stamps))
	}
	for i := 1; i < len(inner.stamps); i++ {
		if gap := inner.stamps[i].Sub(inner.stamps[i-1]); gap < interval-time.Millisecond {
			t.Errorf("gap %d = %v, want >= %v", i, gap, interval)
		}
	}
}

func TestRateLimitedDisabled(t *testing.T) {
	inner := &stampClient{}
	rl := NewRateLimited(inner, 0, 0)

	start := time.Now()
	for i := 0; i < 5; i++ {
		if _, err := rl.Generate(context.Background(), "p"); err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("disabled limiter took %v", elapsed)
	}
}

func TestRateLimitedHonorsContext(t *testing.T) {
	inner := &stampClient{}
	rl := NewRateLimited(inner, time.Minute, 0)

	ctx := context.Background()
	if _, err := rl.Generate(ctx, "first"); err != nil {
		t.Fatalf("first Generate() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := rl.Generate(ctx, "second"); err == nil {
		t.Fatal("Generate() with expired context returned nil error")
	}
	if len(inner.stamps) != 1 {
		t.Errorf("inner calls = %d, want 1", len(inner.stamps))
	}
}

func TestRateLimitedSharedAcrossGoroutines(t *testing.T) {
	inner := &stampClient{}
	const interval = 25 * time.Millisecond
	rl := NewRateLimited(inner, interval, 0)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rl.Generate(context.Background(), "p")
		}()
	}
	wg.Wait()

	inner.mu.Lock()
	defer inner.mu.Unlock()
	for i := 1; i < len(inner.stamps); i++ {
		if gap := inner.stamps[i].Sub(inner.stamps[i-1]); gap < interval-time.Millisecond {
			t.Errorf("concurrent gap %d = %v, want >= %v", i, gap, interval)
		}
	}
}
