// Package retry runs an operation under a bounded attempt policy with
// injectable sleeping.
package retry

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultMaxAttempts   = 3
	defaultBackoff       = 5 * time.Second
	defaultMaxBackoff    = 60 * time.Second
	defaultBackoffFactor = 2
	defaultRateLimitWait = 60 * time.Second
)

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	// MaxAttempts counts the first try. Default: 3
	MaxAttempts int

	// InitialBackoff is the wait after the first failed attempt. Default: 5s
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff. Default: 60s
	MaxBackoff time.Duration

	// BackoffFactor multiplies the wait after each failure. Default: 2
	BackoffFactor float64

	// RateLimitWait is used when a rate limit response names no wait. Default: 60s
	RateLimitWait time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    defaultMaxAttempts,
		InitialBackoff: defaultBackoff,
		MaxBackoff:     defaultMaxBackoff,
		BackoffFactor:  defaultBackoffFactor,
		RateLimitWait:  defaultRateLimitWait,
	}
}

// WithDefaults fills unset fields from DefaultPolicy.
func (p Policy) WithDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = d.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = d.MaxBackoff
	}
	if p.BackoffFactor < 1 {
		p.BackoffFactor = d.BackoffFactor
	}
	if p.RateLimitWait <= 0 {
		p.RateLimitWait = d.RateLimitWait
	}
	return p
}

// Backoff returns the wait after the given failed attempt (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	delay := float64(p.InitialBackoff)
	for i := 1; i < attempt; i++ {
		delay *= p.BackoffFactor
		if time.Duration(delay) >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if time.Duration(delay) > p.MaxBackoff {
		return p.MaxBackoff
	}
	return time.Duration(delay)
}

// Decision is the verdict on a failed attempt.
type Decision struct {
	Retry bool
	Wait  time.Duration
}

// Classifier inspects a failed attempt. A non-nil error aborts Do
// immediately and is returned as is.
type Classifier func(err error, attempt int) (Decision, error)

// ExhaustedError is returned when every allowed attempt failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do runs op until it succeeds, the classifier declines a retry, or the
// policy's attempts are used up. The classifier sees every failure, the
// last one included, so side effects such as refreshing state still
// happen before giving up.
func Do(ctx context.Context, p Policy, s Sleeper, op func(ctx context.Context, attempt int) error, classify Classifier) error {
	p = p.WithDefaults()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return nil
		}

		decision, abort := classify(lastErr, attempt)
		if abort != nil {
			return abort
		}
		if !decision.Retry {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}
		if decision.Wait > 0 {
			if err := s.Sleep(ctx, decision.Wait); err != nil {
				return err
			}
		}
	}

	return &ExhaustedError{Attempts: p.MaxAttempts, Err: lastErr}
}
