package tts

import (
	"context"
	"errors"
	"os"
	"testing"
)

// fakeSynth writes fixed audio or fails
type fakeSynth struct {
	name  string
	err   error
	calls int
}

func (f *fakeSynth) Name() string { return f.name }

func (f *fakeSynth) Synthesize(ctx context.Context, text, dst string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if text == "" {
		return ErrEmptyText
	}
	return os.WriteFile(dst, []byte("ID3"+text), 0o644)
}

func TestNewChain_RequiresProvider(t *testing.T) {
	if _, err := NewChain(); !errors.Is(err, ErrNoProvider) {
		t.Errorf("Expected ErrNoProvider, got %v", err)
	}
}

func TestChain_FallsBack(t *testing.T) {
	primary := &fakeSynth{name: "deepgram", err: errors.New("status 503")}
	secondary := &fakeSynth{name: "cartesia"}
	chain, _ := NewChain(primary, secondary)

	dst := t.TempDir() + "/reply.mp3"
	if err := chain.Synthesize(context.Background(), "hello", dst); err != nil {
		t.Fatalf("Expected fallback to succeed, got %v", err)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("Expected each provider called once, got %d/%d", primary.calls, secondary.calls)
	}
}

func TestChain_AllFail(t *testing.T) {
	invalid := &APIError{Provider: "cartesia", StatusCode: 400, Message: "invalid voice"}
	chain, _ := NewChain(
		&fakeSynth{name: "deepgram", err: errors.New("connection refused")},
		&fakeSynth{name: "cartesia", err: invalid},
	)

	err := chain.Synthesize(context.Background(), "hello", t.TempDir()+"/x.mp3")
	var chainErr *ChainError
	if !errors.As(err, &chainErr) || len(chainErr.Errors) != 2 {
		t.Fatalf("Expected ChainError with 2 errors, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.IsInvalidVoice() {
		t.Errorf("Expected provider APIError reachable through chain, got %v", err)
	}
}

func TestChain_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	second := &fakeSynth{name: "cartesia"}
	chain, _ := NewChain(&fakeSynth{name: "deepgram", err: context.Canceled}, second)

	if err := chain.Synthesize(ctx, "hello", t.TempDir()+"/x.mp3"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if second.calls != 0 {
		t.Error("Expected no fallback after cancellation")
	}
}
