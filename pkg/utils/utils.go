// Package utils provides small helpers shared by the broker adapter
// and strategy layers: upstream retry backoff and stock code
// normalization, trimmed from the trading backend's much larger
// utility grab-bag down to what a session engine actually exercises.
package utils

import (
	"fmt"
	"strings"
	"time"
)

// NormalizeStockCode trims and uppercases a stock code; the broker
// adapter applies it to every stock code it is given.
func NormalizeStockCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RetryConfig contains retry configuration for upstream broker calls.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig returns default retry configuration: 3 attempts,
// 100ms initial backoff doubling up to 5s, matched to the token
// endpoint's occasional transient failures.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// Retry retries fn with exponential backoff until it succeeds or
// MaxAttempts is exhausted.
func Retry[T any](config RetryConfig, fn func() (T, error)) (T, error) {
	var result T
	var err error
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		result, err = fn()
		if err == nil {
			return result, nil
		}

		if attempt == config.MaxAttempts {
			break
		}

		time.Sleep(delay)
		delay = time.Duration(float64(delay) * config.Multiplier)
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}

	return result, fmt.Errorf("after %d attempts: %w", config.MaxAttempts, err)
}
