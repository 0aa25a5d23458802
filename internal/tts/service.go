package tts

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/alfred/internal/artifact"
	"github.com/lexiqai/alfred/internal/config"
	"github.com/lexiqai/alfred/internal/observability"
)

// Service produces audio artifacts from reply text
type Service struct {
	synth  Synthesizer
	store  *artifact.Store
	logger zerolog.Logger
}

// NewService creates a synthesis service writing into store
func NewService(synth Synthesizer, store *artifact.Store) *Service {
	return &Service{
		synth:  synth,
		store:  store,
		logger: observability.Component("tts"),
	}
}

// NewSynthesizer builds the configured provider, falling back to the other
// provider when its credentials are present
func NewSynthesizer(cfg *config.Config) (Synthesizer, error) {
	deepgram := NewDeepgramSynthesizer(cfg)
	var cartesia Synthesizer
	if cfg.CartesiaAPIKey != "" {
		cartesia = NewCartesiaSynthesizer(cfg)
	}

	switch cfg.TTSProvider {
	case "cartesia":
		if cartesia == nil {
			return nil, fmt.Errorf("CARTESIA_API_KEY is required for cartesia: %w", ErrNoProvider)
		}
		return NewChain(cartesia, deepgram)
	default:
		if cartesia == nil {
			return NewChain(deepgram)
		}
		return NewChain(deepgram, cartesia)
	}
}

// Synthesize writes text to a new artifact. The file only appears under its
// final name once complete; a failed or cancelled call leaves nothing behind.
func (s *Service) Synthesize(ctx context.Context, text string) (*artifact.Artifact, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	a := s.store.NewPath(".mp3", "audio/mpeg")
	partial := a.Path + ".part"
	start := time.Now()

	if err := s.synth.Synthesize(ctx, text, partial); err != nil {
		_ = os.Remove(partial)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		_ = os.Remove(partial)
		return nil, err
	}
	if err := os.Rename(partial, a.Path); err != nil {
		_ = os.Remove(partial)
		return nil, fmt.Errorf("failed to finalize artifact: %w", err)
	}

	if info, err := os.Stat(a.Path); err == nil {
		observability.RecordAudioBytes("out", info.Size())
	}
	s.logger.Debug().
		Str("provider", s.synth.Name()).
		Str("path", a.Path).
		Dur("latency", time.Since(start)).
		Msg("Reply synthesized")
	return a, nil
}
