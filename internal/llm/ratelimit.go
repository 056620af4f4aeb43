// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxJitter bounds the optional per-call random delay.
const maxJitter = 250 * time.Millisecond

// RateLimited wraps a Client and enforces a global minimum spacing between
// consecutive calls, shared across every goroutine that holds it. This is
// the pipeline's sole serialization point: rule-only work never blocks,
// callers suspend only here while waiting out the interval.
//
// The limiter state is owned by this struct and mutex-guarded inside
// rate.Limiter; callers see nothing but Generate.
type RateLimited struct {
	inner   Client
	limiter *rate.Limiter
	jitter  time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRateLimited builds the wrapper. minInterval <= 0 disables spacing;
// jitter is clamped to 250ms.
func NewRateLimited(inner Client, minInterval, jitter time.Duration) *RateLimited {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	if jitter > maxJitter {
		jitter = maxJitter
	}
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(limit, 1),
		jitter:  jitter,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate blocks until the global spacing allows another call, applies
// the optional jitter, then delegates. Errors from the underlying client
// propagate unmodified; retry policy belongs to callers.
func (r *RateLimited) Generate(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	if r.jitter > 0 {
		r.mu.Lock()
		d := time.Duration(r.rng.Int63n(int64(r.jitter) + 1))
		r.mu.Unlock()
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return r.inner.Generate(ctx, prompt)
}
