// SPDX-FileCopyrightText: 2026 Mvlzerz
//
// SPDX-License-Identifier: Apache-2.0

// Package retry provides a bounded, context-aware retry helper.
package retry

import (
	"context"
	"time"
)

// Config defines the configuration for retry operations
type Config struct {
	// MaxAttempts is the total number of calls to the operation, including the
	// first one. Values below 1 are treated as 1.
	MaxAttempts int
	// Delay is the pause between two attempts. No pause follows the last attempt.
	Delay time.Duration
	// BackoffMultiplier scales Delay after each failed attempt. Values below 1
	// keep the delay fixed.
	BackoffMultiplier float64
	// MaxDelay caps the delay when a multiplier is set. Zero means no cap.
	MaxDelay time.Duration
	// OnFailure, when set, observes every failed attempt (1-based).
	OnFailure func(attempt int, err error)
	// Wait blocks for d or until ctx is done. Defaults to a timer-based wait.
	Wait func(ctx context.Context, d time.Duration) error
}

// FixedConfig returns a configuration with a fixed delay between attempts.
func FixedConfig(maxAttempts int, delay time.Duration) Config {
	return Config{
		MaxAttempts:       maxAttempts,
		Delay:             delay,
		BackoffMultiplier: 1,
	}
}

// Do calls fn until it succeeds or MaxAttempts calls have been made. It returns
// the number of attempts made and the last error, which is nil on success.
// A cancelled context stops further attempts and returns ctx.Err().
func Do(ctx context.Context, cfg Config, fn func(attempt int) error) (int, error) {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	wait := cfg.Wait
	if wait == nil {
		wait = Sleep
	}
	delay := cfg.Delay

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return attempt, nil
		}
		if cfg.OnFailure != nil {
			cfg.OnFailure(attempt, lastErr)
		}
		if attempt == maxAttempts {
			break
		}

		if err := wait(ctx, delay); err != nil {
			return attempt, err
		}

		if cfg.BackoffMultiplier > 1 {
			delay = time.Duration(float64(delay) * cfg.BackoffMultiplier)
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}
	}

	return maxAttempts, lastErr
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
