package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fastCfg returns a config that never actually sleeps and uses a fixed
// jitter source, so tests are deterministic and instant.
func fastCfg(record *[]time.Duration, jitter float64) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.Sleep = func(_ context.Context, d time.Duration) error {
		if record != nil {
			*record = append(*record, d)
		}
		return nil
	}
	cfg.Rand = func() float64 { return jitter }
	return cfg
}

func TestDoVal_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	val, err := DoVal(context.Background(), fastCfg(nil, 0), func(_ context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "ok" {
		t.Errorf("expected ok, got %q", val)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_SuccessAfterTransientFailures(t *testing.T) {
	var calls int
	val, err := DoVal(context.Background(), fastCfg(nil, 0), func(_ context.Context) (int, error) {
		calls++
		if calls < 4 {
			return 0, errors.New("api error 429: rate limited")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 42 {
		t.Errorf("expected 42, got %d", val)
	}
	// Three transient failures plus the success.
	if calls != 4 {
		t.Errorf("expected 4 calls, got %d", calls)
	}
}

func TestDoVal_ExhaustsBudget(t *testing.T) {
	var calls int
	_, err := DoVal(context.Background(), fastCfg(nil, 0), func(_ context.Context) (int, error) {
		calls++
		return 0, errors.New("503 service unavailable")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 5 {
		t.Errorf("expected exactly 5 calls, got %d", calls)
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %T: %v", err, err)
	}
	if exhausted.Attempts != 5 {
		t.Errorf("expected 5 attempts recorded, got %d", exhausted.Attempts)
	}
	if exhausted.Unwrap() == nil {
		t.Error("expected wrapped underlying error")
	}
}

func TestDoVal_NonTransientFailsImmediately(t *testing.T) {
	var calls int
	_, err := DoVal(context.Background(), fastCfg(nil, 0), func(_ context.Context) (int, error) {
		calls++
		return 0, errors.New("400 bad request: missing field")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		t.Error("non-transient error must not be wrapped as exhaustion")
	}
}

func TestDoVal_ContextCancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := DefaultRetryConfig()
	cfg.Rand = func() float64 { return 0 }
	cfg.Sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	var calls int
	_, err := DoVal(ctx, cfg, func(_ context.Context) (int, error) {
		calls++
		return 0, errors.New("429 too many requests")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestComputeBackoff_ExponentialBounds(t *testing.T) {
	var delays []time.Duration
	cfg := fastCfg(&delays, 0)

	_, _ = DoVal(context.Background(), cfg, func(_ context.Context) (int, error) {
		return 0, errors.New("429")
	})

	// Four sleeps for five attempts: 1s, 2s, 4s, 8s with zero jitter.
	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("expected %d sleeps, got %d", len(want), len(delays))
	}
	for i, d := range delays {
		if d != want[i] {
			t.Errorf("sleep %d: expected %v, got %v", i, want[i], d)
		}
	}
}

func TestComputeBackoff_JitterUpperBound(t *testing.T) {
	cfg := applyDefaults(RetryConfig{Rand: func() float64 { return 0.999999 }})

	for attempt := 0; attempt < 8; attempt++ {
		base := cfg.InitialBackoff << attempt
		if base > cfg.MaxBackoff {
			base = cfg.MaxBackoff
		}
		d := computeBackoff(attempt, cfg)
		if d < base {
			t.Errorf("attempt %d: delay %v below base %v", attempt, d, base)
		}
		max := time.Duration(float64(base) * 1.1)
		if d > max {
			t.Errorf("attempt %d: delay %v above jitter ceiling %v", attempt, d, max)
		}
	}
}

func TestComputeBackoff_CappedAtMax(t *testing.T) {
	cfg := applyDefaults(RetryConfig{Rand: func() float64 { return 0 }})

	// 2^10 seconds is far beyond the 30s cap.
	if d := computeBackoff(10, cfg); d != 30*time.Second {
		t.Errorf("expected 30s cap, got %v", d)
	}
}

func TestDo_DelegatesToDoVal(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastCfg(nil, 0), func(_ context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("503")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}
