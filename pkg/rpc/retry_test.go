package rpc

import (
	"context"
	"testing"

	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/types"
)

// fastPolicy keeps backoff sleeps in the sub-millisecond range.
func fastPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{MaxRetries: maxRetries, BackoffFactor: 0.0001}
}

func TestRetry_ExhaustsAndReportsAttempts(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func(context.Context) error {
		calls++
		return types.ErrConnection("dial refused")
	})
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	env := types.AsEnvelope(err)
	if env.Kind != types.KindConnection {
		t.Errorf("expected connection kind, got %s", env.Kind)
	}
	if env.Details["attempts"] != 3 {
		t.Errorf("expected attempts=3 in details, got %v", env.Details["attempts"])
	}
	if env.Details["last_error"] != "dial refused" {
		t.Errorf("expected last_error preserved, got %v", env.Details["last_error"])
	}
}

func TestRetry_NonRetryableShortCircuits(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func(context.Context) error {
		calls++
		return types.ErrInvalid("malformed domain")
	})
	if calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", calls)
	}
	env := types.AsEnvelope(err)
	if env.Kind != types.KindValidation {
		t.Errorf("expected validation kind, got %s", env.Kind)
	}
	if _, ok := env.Details["attempts"]; ok {
		t.Error("short-circuit error must not carry retry bookkeeping")
	}
}

func TestRetry_SucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return types.ErrTimeout("slow backend")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetry_ConfigurableRetryableKinds(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:    2,
		BackoffFactor: 0.0001,
		Retryable:     map[types.Kind]bool{types.KindRateLimited: true},
	}

	calls := 0
	err := policy.Do(context.Background(), func(context.Context) error {
		calls++
		return types.ErrRateLimited()
	})
	if calls != 2 {
		t.Fatalf("expected rate_limited to be retried, got %d attempts", calls)
	}
	if types.AsEnvelope(err).Kind != types.KindRateLimited {
		t.Errorf("unexpected kind: %v", err)
	}

	// With an explicit set, the default retryables no longer apply.
	calls = 0
	_ = policy.Do(context.Background(), func(context.Context) error {
		calls++
		return types.ErrConnection("down")
	})
	if calls != 1 {
		t.Fatalf("expected connection_error to short-circuit under custom set, got %d attempts", calls)
	}
}

func TestRetry_ZeroMaxRetriesStillRunsOnce(t *testing.T) {
	calls := 0
	_ = RetryPolicy{}.Do(context.Background(), func(context.Context) error {
		calls++
		return types.ErrConnection("down")
	})
	if calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", calls)
	}
}

func TestRetry_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxRetries: 5, BackoffFactor: 60}

	calls := 0
	errCh := make(chan error, 1)
	go func() {
		errCh <- policy.Do(ctx, func(context.Context) error {
			calls++
			return types.ErrConnection("down")
		})
	}()
	cancel()
	if err := <-errCh; err == nil {
		t.Fatal("expected error after cancellation")
	}
	if calls != 1 {
		t.Fatalf("expected backoff to be interrupted after 1 attempt, got %d", calls)
	}
}
