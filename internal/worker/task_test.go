package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTask_Value(t *testing.T) {
	task := Go(context.Background(), func(ctx context.Context) (string, error) {
		return "Very well, sir.", nil
	})

	v, err := task.Wait(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if v != "Very well, sir." {
		t.Errorf("Unexpected value %q", v)
	}
}

func TestTask_Cancel(t *testing.T) {
	task := Go(context.Background(), func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	task.Cancel()
	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("Task did not stop after Cancel")
	}
	if _, err := task.Result(); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestTask_WaitGivesUp(t *testing.T) {
	release := make(chan struct{})
	task := Go(context.Background(), func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := task.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}

	close(release)
	if v, err := task.Result(); err != nil || v != 1 {
		t.Errorf("Expected task to still complete, got %d, %v", v, err)
	}
}

func TestTask_Panic(t *testing.T) {
	task := Go(context.Background(), func(ctx context.Context) (int, error) {
		panic("boom")
	})
	if _, err := task.Result(); err == nil {
		t.Error("Expected panic to surface as error")
	}
}
