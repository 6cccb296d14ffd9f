// internal/retry/retry.go
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
)

// Jitterer draws a duration uniformly from [lo, hi]. profile.Sampler
// satisfies it, which keeps backoff reproducible under a fixed seed.
type Jitterer interface {
	Between(lo, hi time.Duration) time.Duration
}

// Config defines retry behavior with jittered exponential backoff
type Config struct {
	MaxAttempts    int           // Total attempts including the first
	InitialBackoff time.Duration // Backoff before the second attempt
	MaxBackoff     time.Duration // Cap for a single backoff
	Multiplier     float64       // Growth factor per attempt
	JitterFraction float64       // Spread around the computed backoff (0.5 = ±50%)

	// RetryableStatusCodes limits retries of StatusCoder errors to these codes.
	// Errors without a status code are always retried.
	RetryableStatusCodes []int

	// Jitter supplies randomness. Nil disables jitter.
	Jitter Jitterer

	// Name tags log lines
	Name string
}

// DefaultConfig returns the strategy-level retry policy: up to three tries
// with roughly 0.5–2s between them.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     2 * time.Second,
		Multiplier:     1.5,
		JitterFraction: 0.5,
	}
}

// StatusCoder is implemented by errors that carry an HTTP status code
type StatusCoder interface {
	GetStatusCode() int
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs fn until it succeeds, returns a non-retryable error, or MaxAttempts
// is reached. attempt is zero-based so callers can rotate identities per try.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context, attempt int) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			if attempt > 0 {
				log.Debug().
					Str("op", cfg.Name).
					Int("attempts", attempt+1).
					Msg("Retry succeeded")
			}
			return nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return lastErr
		}

		if !shouldRetry(err, cfg) {
			log.Debug().
				Str("op", cfg.Name).
				Err(err).
				Msg("Error is not retryable")
			return unwrapPermanent(err)
		}

		// Don't sleep after the last attempt
		if attempt < cfg.MaxAttempts-1 {
			backoff := Backoff(attempt, cfg)

			log.Debug().
				Str("op", cfg.Name).
				Int("attempt", attempt+1).
				Int("max_attempts", cfg.MaxAttempts).
				Dur("backoff", backoff).
				Err(err).
				Msg("Retrying after backoff")

			if err := Sleep(ctx, backoff); err != nil {
				return lastErr
			}
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// Backoff computes the wait before attempt+1
func Backoff(attempt int, cfg Config) time.Duration {
	mult := cfg.Multiplier
	if mult <= 0 {
		mult = 1
	}
	backoff := float64(cfg.InitialBackoff) * math.Pow(mult, float64(attempt))
	if cfg.MaxBackoff > 0 && backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}

	d := time.Duration(backoff)
	if cfg.Jitter == nil || cfg.JitterFraction <= 0 {
		return d
	}

	spread := time.Duration(float64(d) * cfg.JitterFraction)
	return cfg.Jitter.Between(d-spread, d+spread)
}

// Sleep waits for d or until ctx is done, whichever comes first
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func shouldRetry(err error, cfg Config) bool {
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var sc StatusCoder
	if errors.As(err, &sc) && sc.GetStatusCode() != 0 && len(cfg.RetryableStatusCodes) > 0 {
		code := sc.GetStatusCode()
		for _, c := range cfg.RetryableStatusCodes {
			if c == code {
				return true
			}
		}
		return false
	}

	return true
}

func unwrapPermanent(err error) error {
	var perm *permanentError
	if errors.As(err, &perm) {
		return perm.err
	}
	return err
}
