package tts

import (
	"context"
	"errors"
	"testing"
)

func TestDeepgramSynthesizer(t *testing.T) {
	d := NewDeepgramSynthesizer(testConfig())

	var savedTo, savedText string
	d.save = func(ctx context.Context, dst, text string) error {
		savedTo, savedText = dst, text
		return nil
	}
	if err := d.Synthesize(context.Background(), "Very good, sir.", "/tmp/out.mp3"); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if savedTo != "/tmp/out.mp3" || savedText != "Very good, sir." {
		t.Errorf("Unexpected save call %q %q", savedTo, savedText)
	}

	boom := errors.New("invalid model")
	d.save = func(ctx context.Context, dst, text string) error { return boom }
	err := d.Synthesize(context.Background(), "hello", "/tmp/out.mp3")
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Provider != "deepgram" || !errors.Is(err, boom) {
		t.Errorf("Expected wrapped ProviderError, got %v", err)
	}

	if err := d.Synthesize(context.Background(), "", "/tmp/out.mp3"); !errors.Is(err, ErrEmptyText) {
		t.Errorf("Expected ErrEmptyText, got %v", err)
	}
}

func TestNewSynthesizer_ProviderOrder(t *testing.T) {
	cfg := testConfig()
	cfg.TTSProvider = "cartesia"
	s, err := NewSynthesizer(cfg)
	if err != nil {
		t.Fatal(err)
	}
	chain := s.(*Chain)
	if chain.Providers()[0].Name() != "cartesia" || chain.Providers()[1].Name() != "deepgram" {
		t.Errorf("Expected cartesia then deepgram")
	}

	cfg.TTSProvider = "deepgram"
	cfg.CartesiaAPIKey = ""
	s, _ = NewSynthesizer(cfg)
	if n := len(s.(*Chain).Providers()); n != 1 {
		t.Errorf("Expected deepgram only without cartesia key, got %d providers", n)
	}
}
