// Package retry wraps fallible remote calls with exponential backoff.
//
// Provisioning calls are infrequent and few, so the policy is deliberately
// simple: no jitter and no cap on delay growth. On exhaustion the last
// observed error is returned unmodified so callers can match the underlying
// error kind.
package retry

import (
	"context"
	"time"

	retrygo "github.com/avast/retry-go/v4"
)

const (
	// DefaultMaxRetries is the number of additional attempts after the
	// initial call.
	DefaultMaxRetries = 5

	// DefaultBaseDelay is the delay before the first retry. The delay
	// doubles on every subsequent retry.
	DefaultBaseDelay = 1 * time.Second
)

// Policy configures retry behavior. The zero value uses the defaults.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxRetries == 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.BaseDelay == 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	return p
}

// Do invokes op until it succeeds or the policy is exhausted, sleeping
// BaseDelay * 2^attempt between attempts. It returns the first successful
// result, or the last error as-is.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	p = p.withDefaults()
	return retrygo.DoWithData(op,
		retrygo.Context(ctx),
		retrygo.Attempts(uint(p.MaxRetries)+1),
		retrygo.Delay(p.BaseDelay),
		retrygo.DelayType(retrygo.BackOffDelay),
		retrygo.LastErrorOnly(true),
	)
}

// DoVoid is Do for operations without a result value.
func DoVoid(ctx context.Context, p Policy, op func() error) error {
	_, err := Do(ctx, p, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}
