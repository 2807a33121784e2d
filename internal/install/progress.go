// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package install

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// PROGRESS GENERATORS
// =============================================================================

// ProgressGenerator chooses the next per-component progress value.
type ProgressGenerator interface {
	Next(current int) int
}

// ProgressFunc adapts a function to ProgressGenerator.
type ProgressFunc func(current int) int

// Next calls f.
func (f ProgressFunc) Next(current int) int { return f(current) }

// RandomIncrements advances by a uniformly random step in [Min, Max].
type RandomIncrements struct {
	Min int
	Max int
}

// Next implements ProgressGenerator.
func (r RandomIncrements) Next(current int) int {
	lo, hi := r.Min, r.Max
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	return current + lo + rand.IntN(hi-lo+1)
}

// FixedStep advances by a constant amount.
type FixedStep int

// Next implements ProgressGenerator.
func (f FixedStep) Next(current int) int { return current + int(f) }

// Sequence steps through the given values. Next returns the first value
// greater than current, or 100 once the values are exhausted, so every
// component replays the same sequence.
func Sequence(values ...int) ProgressGenerator {
	vals := append([]int(nil), values...)
	return ProgressFunc(func(current int) int {
		for _, v := range vals {
			if v > current {
				return v
			}
		}
		return 100
	})
}

// advance applies g and clamps the result so progress strictly increases
// and never passes 100.
func advance(g ProgressGenerator, current int) int {
	next := g.Next(current)
	if next <= current {
		next = current + 1
	}
	if next > 100 {
		next = 100
	}
	return next
}

// =============================================================================
// PACERS
// =============================================================================

// Pacer is the suspension point between progress increments.
// Wait returns an error only when ctx ends.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NoDelay never waits.
type NoDelay struct{}

// Wait returns ctx.Err().
func (NoDelay) Wait(ctx context.Context) error { return ctx.Err() }

// RatePacer spaces increments with a token bucket.
type RatePacer struct {
	limiter *rate.Limiter
}

// NewRatePacer allows one increment per interval. A non-positive interval
// disables pacing.
func NewRatePacer(interval time.Duration) *RatePacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &RatePacer{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next increment is allowed or ctx ends.
func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
