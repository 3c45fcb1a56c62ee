package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testConfig(maxRetries int) Config {
	return Config{
		MaxRetries: maxRetries,
		BaseDelay:  10 * time.Millisecond,
		MaxDelay:   100 * time.Millisecond,
		Timeout:    1 * time.Second,
	}
}

func TestWithRetrySuccess(t *testing.T) {
	callCount := 0
	result, err := WithRetry(context.Background(), testConfig(2), func(ctx context.Context) (string, error) {
		callCount++
		return "ok", nil
	})
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if result != "ok" {
		t.Errorf("Expected 'ok', got %s", result)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestWithRetryFailsTwiceThenSucceeds(t *testing.T) {
	callCount := 0
	result, err := WithRetry(context.Background(), testConfig(2), func(ctx context.Context) (string, error) {
		callCount++
		if callCount < 3 {
			return "", errors.New("connection reset")
		}
		return "profile list", nil
	})
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if result != "profile list" {
		t.Errorf("Expected 'profile list', got %s", result)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
}

func TestWithRetryFailsThreeTimes(t *testing.T) {
	final := errors.New("third failure")
	callCount := 0
	_, err := WithRetry(context.Background(), testConfig(2), func(ctx context.Context) (int, error) {
		callCount++
		if callCount == 3 {
			return 0, final
		}
		return 0, errors.New("failure")
	})
	if !errors.Is(err, final) {
		t.Errorf("Expected final error to propagate, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
}

func TestWithRetryPermanentStopsImmediately(t *testing.T) {
	soft := errors.New("code 1: group not found")
	callCount := 0
	_, err := WithRetry(context.Background(), testConfig(5), func(ctx context.Context) (string, error) {
		callCount++
		return "", Permanent(soft)
	})
	if err != soft {
		t.Errorf("Expected unwrapped permanent error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestPermanentNil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Expected Permanent(nil) to be nil")
	}
}

func TestWithRetryContextCancellation(t *testing.T) {
	config := Config{
		MaxRetries: 5,
		BaseDelay:  50 * time.Millisecond,
		MaxDelay:   200 * time.Millisecond,
		Timeout:    1 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())

	callCount := 0
	_, err := WithRetry(ctx, config, func(ctx context.Context) (string, error) {
		callCount++
		if callCount == 2 {
			cancel()
		}
		return "", errors.New("failure")
	})
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if callCount > 3 {
		t.Errorf("Expected at most 3 calls due to cancellation, got %d", callCount)
	}
}

func TestWithRetryNoTimeout(t *testing.T) {
	config := testConfig(0)
	config.Timeout = 0

	_, err := WithRetry(context.Background(), config, func(ctx context.Context) (string, error) {
		if _, ok := ctx.Deadline(); ok {
			t.Error("Expected no deadline when Timeout is zero")
		}
		return "", nil
	})
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestCalculateBackoffDelay(t *testing.T) {
	baseDelay := 10 * time.Millisecond
	maxDelay := 100 * time.Millisecond

	tests := []struct {
		attempt     int
		minDelay    time.Duration
		maxExpected time.Duration
	}{
		{0, 5 * time.Millisecond, 15 * time.Millisecond},
		{1, 10 * time.Millisecond, 30 * time.Millisecond},
		{2, 20 * time.Millisecond, 60 * time.Millisecond},
		{3, 40 * time.Millisecond, 100 * time.Millisecond},
		{4, 50 * time.Millisecond, 100 * time.Millisecond},
		{35, 50 * time.Millisecond, 100 * time.Millisecond},
		{100, 50 * time.Millisecond, 100 * time.Millisecond},
	}

	for _, test := range tests {
		for i := 0; i < 10; i++ {
			result := calculateBackoffDelay(test.attempt, baseDelay, maxDelay, true)
			if result < test.minDelay || result > test.maxExpected {
				t.Errorf("calculateBackoffDelay(%d) = %v, expected between %v and %v",
					test.attempt, result, test.minDelay, test.maxExpected)
			}
		}
	}
}

func TestCalculateBackoffDelayDoubling(t *testing.T) {
	baseDelay := 10 * time.Millisecond
	maxDelay := 50 * time.Millisecond

	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond, 50 * time.Millisecond}
	for attempt, expected := range want {
		if got := calculateBackoffDelay(attempt, baseDelay, maxDelay, false); got != expected {
			t.Errorf("attempt %d: expected %v, got %v", attempt, expected, got)
		}
	}
}
