package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	MaxTotalTimeout time.Duration
}

// DefaultConfig returns the configuration used when dialing backing services
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     10,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		BackoffFactor:   2.0,
		MaxTotalTimeout: 60 * time.Second,
	}
}

// TransactionConfig is a short policy for re-running a contended transaction
func TransactionConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialDelay:    20 * time.Millisecond,
		MaxDelay:        200 * time.Millisecond,
		BackoffFactor:   2.0,
		MaxTotalTimeout: 2 * time.Second,
	}
}

// Permanent marks err so that Do stops retrying and returns it unchanged
func Permanent(err error) error {
	return backoff.Permanent(err)
}

func (c Config) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialDelay
	b.MaxInterval = c.MaxDelay
	b.Multiplier = c.BackoffFactor
	b.MaxElapsedTime = c.MaxTotalTimeout
	b.RandomizationFactor = 0.1

	var policy backoff.BackOff = b
	if c.MaxAttempts > 0 {
		policy = backoff.WithMaxRetries(policy, uint64(c.MaxAttempts-1))
	}
	return backoff.WithContext(policy, ctx)
}

// Do executes fn with exponential backoff until it succeeds, returns a Permanent error,
// or the attempt/time budget runs out.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	return DoWithLog(ctx, cfg, "", fn, nil)
}

// DoWithLog executes the function with retry and reports each failed attempt
func DoWithLog(ctx context.Context, cfg Config, serviceName string, fn func() error, logFn func(attempt int, err error, nextDelay time.Duration)) error {
	attempt := 0
	notify := func(err error, next time.Duration) {
		if logFn != nil {
			logFn(attempt, err, next)
		}
	}
	op := func() error {
		attempt++
		return fn()
	}

	if err := backoff.RetryNotify(op, cfg.policy(ctx), notify); err != nil {
		if serviceName == "" {
			return fmt.Errorf("after %d attempts: %w", attempt, err)
		}
		return fmt.Errorf("%s: after %d attempts: %w", serviceName, attempt, err)
	}
	return nil
}
