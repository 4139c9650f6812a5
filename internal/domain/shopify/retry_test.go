package shopify

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func fastPolicy(attempts int) *RetryPolicy {
	return DefaultRetryPolicy().
		WithMaxAttempts(attempts).
		WithInitialDelay(time.Millisecond).
		WithMaxDelay(5 * time.Millisecond).
		WithJitter(0)
}

func TestExecutor_RetriesServerErrors(t *testing.T) {
	calls := 0
	res := NewExecutor(fastPolicy(3)).Execute(context.Background(), func() error {
		calls++
		if calls < 3 {
			return NewAPIError(http.StatusServiceUnavailable, "/orders.json", "unavailable")
		}
		return nil
	})

	if res.LastError != nil {
		t.Fatalf("expected success, got %v", res.LastError)
	}
	if res.Attempts != 3 || calls != 3 {
		t.Fatalf("expected 3 attempts, got %d (calls %d)", res.Attempts, calls)
	}
}

func TestExecutor_DoesNotRetryUnauthorized(t *testing.T) {
	res := NewExecutor(fastPolicy(5)).Execute(context.Background(), func() error {
		return NewAPIError(http.StatusUnauthorized, "/shop.json", "Invalid API key or access token")
	})

	if res.Attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", res.Attempts)
	}
	if !errors.Is(res.LastError, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", res.LastError)
	}
}

func TestExecutor_StopsAtMaxAttempts(t *testing.T) {
	res := NewExecutor(fastPolicy(2)).Execute(context.Background(), func() error {
		return &APIError{StatusCode: http.StatusTooManyRequests, Path: "/orders.json", Message: "Exceeded 2 calls per second", RetryAfter: time.Millisecond}
	})

	if res.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", res.Attempts)
	}
	if !errors.Is(res.LastError, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", res.LastError)
	}
}

func TestExecutor_NoRetryPolicy(t *testing.T) {
	res := NewExecutor(NoRetryPolicy()).Execute(context.Background(), func() error {
		return NewAPIError(http.StatusBadGateway, "/orders.json", "bad gateway")
	})
	if res.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", res.Attempts)
	}
}

func TestExecutor_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := DefaultRetryPolicy().WithMaxAttempts(5).WithInitialDelay(time.Second).WithJitter(0)

	res := NewExecutor(policy).Execute(ctx, func() error {
		cancel()
		return NewAPIError(http.StatusInternalServerError, "/orders.json", "boom")
	})

	if res.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", res.Attempts)
	}
	if !errors.Is(res.LastError, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", res.LastError)
	}
}

func TestAPIError_Classification(t *testing.T) {
	tests := []struct {
		status   int
		target   error
		category ErrorCategory
		retry    bool
	}{
		{http.StatusUnauthorized, ErrUnauthorized, CategoryAuthentication, false},
		{http.StatusForbidden, ErrUnauthorized, CategoryAuthentication, false},
		{http.StatusTooManyRequests, ErrRateLimited, CategoryRateLimit, true},
		{http.StatusNotFound, ErrNotFound, CategoryNotFound, false},
		{http.StatusUnprocessableEntity, ErrInvalidRequest, CategoryValidation, false},
		{http.StatusBadGateway, ErrServiceUnavailable, CategoryServer, true},
	}
	for _, tt := range tests {
		err := NewAPIError(tt.status, "/x.json", "msg")
		if !errors.Is(err, tt.target) {
			t.Fatalf("status %d: expected errors.Is %v", tt.status, tt.target)
		}
		if err.Category() != tt.category {
			t.Fatalf("status %d: expected category %s, got %s", tt.status, tt.category, err.Category())
		}
		if err.IsRetryable() != tt.retry {
			t.Fatalf("status %d: expected retryable=%v", tt.status, tt.retry)
		}
	}
}
