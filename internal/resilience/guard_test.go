package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGuard_RetriesTransientErrors(t *testing.T) {
	g := NewGuard("gemini", 5, time.Minute, fastRetry(3))

	attempts := 0
	err := g.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return errors.New("connection reset by peer")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected success after retry, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}

func TestGuard_OpensAndFailsFast(t *testing.T) {
	g := NewGuard("deepgram", 2, time.Minute, fastRetry(1))
	boom := errors.New("status 400: bad request")

	for i := 0; i < 2; i++ {
		if err := g.Do(context.Background(), func(ctx context.Context) error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("Expected boom, got %v", err)
		}
	}

	called := false
	err := g.Do(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("Expected call to be short-circuited")
	}
	if g.Healthy(context.Background()) == nil {
		t.Error("Expected Healthy to report open breaker")
	}
}

func TestGuard_CancellationNotCounted(t *testing.T) {
	g := NewGuard("tts", 1, time.Minute, fastRetry(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Do(ctx, func(ctx context.Context) error { return ctx.Err() })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if g.Breaker().GetState() != StateClosed {
		t.Error("Expected cancellation to leave breaker closed")
	}
}
