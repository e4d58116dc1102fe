package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/GriffinCanCode/good-listener/backend/vision/internal/errors"
)

func fastRetry(max int) RetryConfig {
	return RetryConfig{MaxRetries: max, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
}

func TestRetrySucceedsFirst(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), DefaultRetryConfig(), func() error {
		calls++
		return nil
	})

	if err != nil {
		t.Errorf("Retry() = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(3), func() error {
		calls++
		if calls < 3 {
			return apperrors.New(apperrors.CodeUnavailable, "recognizer restarting")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Retry() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryExhaustsRetries(t *testing.T) {
	calls := 0
	retryErr := status.Error(codes.Unavailable, "always fail")

	err := Retry(context.Background(), fastRetry(2), func() error {
		calls++
		return retryErr
	})

	if !errors.Is(err, retryErr) {
		t.Errorf("Retry() = %v, want %v", err, retryErr)
	}
	if calls != 3 { // initial + 2 retries
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryZeroRetries(t *testing.T) {
	calls := 0
	_ = Retry(context.Background(), fastRetry(0), func() error {
		calls++
		return status.Error(codes.Unavailable, "fail")
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryNonRetryableError(t *testing.T) {
	calls := 0
	nonRetryErr := apperrors.New(apperrors.CodeOCRExtractFailed, "garbled output")

	err := Retry(context.Background(), fastRetry(5), func() error {
		calls++
		return nonRetryErr
	})

	if !errors.Is(err, nonRetryErr) {
		t.Errorf("Retry() = %v, want %v", err, nonRetryErr)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxRetries: 10, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := Retry(ctx, cfg, func() error {
		return status.Error(codes.Unavailable, "fail")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() = %v, want context.Canceled", err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"grpc unavailable", status.Error(codes.Unavailable, "x"), true},
		{"grpc deadline", status.Error(codes.DeadlineExceeded, "x"), true},
		{"grpc exhausted", status.Error(codes.ResourceExhausted, "x"), true},
		{"grpc aborted", status.Error(codes.Aborted, "x"), true},
		{"grpc invalid argument", status.Error(codes.InvalidArgument, "x"), false},
		{"grpc not found", status.Error(codes.NotFound, "x"), false},
		{"app unavailable", apperrors.New(apperrors.CodeUnavailable, "x"), true},
		{"app timeout", apperrors.New(apperrors.CodeTimeout, "x"), true},
		{"app capture failed", apperrors.New(apperrors.CodeCaptureFailed, "x"), true},
		{"app dimension mismatch", apperrors.New(apperrors.CodeDimensionMismatch, "x"), false},
		{"context canceled", context.Canceled, false},
		{"plain error", errors.New("x"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIndexRetryConfig(t *testing.T) {
	cfg := IndexRetryConfig()
	if cfg.MaxRetries != IndexMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", cfg.MaxRetries, IndexMaxRetries)
	}
	if cfg.BaseDelay != IndexBaseDelay {
		t.Errorf("BaseDelay = %v, want %v", cfg.BaseDelay, IndexBaseDelay)
	}
	if cfg.MaxDelay != IndexMaxDelay {
		t.Errorf("MaxDelay = %v, want %v", cfg.MaxDelay, IndexMaxDelay)
	}
}

func TestBackoffDelay(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, JitterFactor: 0}

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	for attempt, w := range want {
		if got := backoffDelay(cfg, attempt); got != w {
			t.Errorf("attempt %d delay = %v, want %v", attempt, got, w)
		}
	}
}

func TestBackoffDelayCapped(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, JitterFactor: 0}

	if d := backoffDelay(cfg, 5); d != 300*time.Millisecond {
		t.Errorf("attempt 5 delay = %v, want 300ms (capped)", d)
	}
}
