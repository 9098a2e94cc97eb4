package live

import (
	"context"
	"errors"
	"testing"
)

func TestAttemptRetriesTransientFailureOnce(t *testing.T) {
	calls := 0
	err := Attempt(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return MarkTransient(errors.New("connection reset"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly two attempts, got %d", calls)
	}
}

func TestAttemptDoesNotRetryPermanentFailure(t *testing.T) {
	calls := 0
	permanent := errors.New("not the owner")
	err := Attempt(context.Background(), func(ctx context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error surfaced, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single attempt, got %d", calls)
	}
}

func TestAttemptStopsAfterSingleRetry(t *testing.T) {
	calls := 0
	err := Attempt(context.Background(), func(ctx context.Context) error {
		calls++
		return MarkTransient(errors.New("still unavailable"))
	})
	if err == nil {
		t.Fatal("expected persistent transient failure to surface")
	}
	if !IsTransient(err) {
		t.Fatalf("expected transient marker preserved, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly two attempts, got %d", calls)
	}
}

func TestAttemptHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Attempt(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return MarkTransient(errors.New("interrupted"))
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if calls != 1 {
		t.Fatalf("expected no retry after cancellation, got %d attempts", calls)
	}
}

func TestMarkTransientNilIsNil(t *testing.T) {
	if MarkTransient(nil) != nil {
		t.Fatal("expected nil passthrough")
	}
	if IsTransient(nil) {
		t.Fatal("nil is not transient")
	}
}
