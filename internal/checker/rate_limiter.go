package checker

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a per-minute token bucket with an optional minimum spacing
// between grants. A zero budget disables the bucket.
type RateLimiter struct {
	mu          sync.Mutex
	tokens      int
	maxTokens   int
	refillRate  int
	lastRefill  time.Time
	minInterval time.Duration
	lastRequest time.Time
	now         func() time.Time
}

func NewRateLimiter(maxTokensPerMinute int, minIntervalMS int) *RateLimiter {
	rl := &RateLimiter{
		maxTokens:   maxTokensPerMinute,
		refillRate:  maxTokensPerMinute,
		lastRefill:  time.Now(),
		minInterval: time.Duration(minIntervalMS) * time.Millisecond,
		now:         time.Now,
	}
	if maxTokensPerMinute > 0 {
		rl.tokens = maxTokensPerMinute
	}
	return rl
}

// Allow takes a token if one is available right now.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return rl.reserve(rl.now()) == 0
}

// Wait blocks until a token is granted or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		delay := rl.reserve(rl.now())
		rl.mu.Unlock()

		if delay == 0 {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve consumes a token and returns zero, or returns how long to wait
// before trying again. Callers hold mu.
func (rl *RateLimiter) reserve(now time.Time) time.Duration {
	if rl.minInterval > 0 && !rl.lastRequest.IsZero() {
		if wait := rl.minInterval - now.Sub(rl.lastRequest); wait > 0 {
			return wait
		}
	}

	if rl.maxTokens <= 0 {
		rl.lastRequest = now
		return 0
	}

	rl.refillTokens(now)
	if rl.tokens <= 0 {
		return rl.untilNextToken(now)
	}

	rl.consumeToken(now)
	return 0
}

func (rl *RateLimiter) refillTokens(now time.Time) {
	elapsed := now.Sub(rl.lastRefill)
	if elapsed >= time.Minute {
		rl.tokens = rl.maxTokens
		rl.lastRefill = now
		return
	}

	tokensToAdd := rl.calculateTokensToAdd(elapsed)
	if tokensToAdd > 0 {
		rl.tokens += tokensToAdd
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		rl.lastRefill = now
	}
}

func (rl *RateLimiter) calculateTokensToAdd(elapsed time.Duration) int {
	return int(float64(rl.refillRate) * elapsed.Seconds() / 60.0)
}

func (rl *RateLimiter) untilNextToken(now time.Time) time.Duration {
	perToken := time.Minute / time.Duration(rl.refillRate)
	wait := rl.lastRefill.Add(perToken).Sub(now)
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait
}

func (rl *RateLimiter) consumeToken(now time.Time) {
	rl.tokens--
	rl.lastRequest = now
}
