package rpc

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/types"
)

// RetryPolicy is a plain configuration value describing how failed calls are
// retried. Passing it explicitly keeps retry behavior inspectable and
// independently testable.
type RetryPolicy struct {
	// MaxRetries is the total number of attempts, including the first.
	MaxRetries int

	// BackoffFactor drives the exponential delay between attempts: after
	// n failed attempts the next try waits BackoffFactor**n seconds.
	BackoffFactor float64

	// Retryable overrides the default retryable-kind set when non-nil.
	Retryable map[types.Kind]bool
}

// DefaultRetryPolicy retries connection and timeout failures up to three
// attempts with exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BackoffFactor: 2.0}
}

func (p RetryPolicy) retryable(k types.Kind) bool {
	if p.Retryable != nil {
		return p.Retryable[k]
	}
	return k.Retryable()
}

// Do runs op, retrying retryable failures per the policy. Non-retryable
// kinds propagate immediately without consuming a retry. When retries are
// exhausted the terminal envelope reports the attempt count and the last
// underlying error.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var last *types.Envelope
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(p.BackoffFactor, float64(attempt)) * float64(time.Second))
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return types.AsEnvelope(ctx.Err()).With("attempts", attempt)
			case <-timer.C:
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		env := types.AsEnvelope(err)
		if !p.retryable(env.Kind) {
			return env
		}
		last = env
	}

	terminal := &types.Envelope{
		Kind:    last.Kind,
		Message: fmt.Sprintf("retries exhausted: %s", last.Message),
	}
	for k, v := range last.Details {
		terminal.With(k, v)
	}
	terminal.With("attempts", attempts).With("last_error", last.Message)
	return terminal
}
