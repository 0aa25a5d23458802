package tts

import (
	"context"

	speakapi "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/speak/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	speakClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/speak"

	"github.com/lexiqai/alfred/internal/config"
	"github.com/lexiqai/alfred/internal/resilience"
)

// DeepgramSynthesizer uses Deepgram Aura voices over the speak REST API
type DeepgramSynthesizer struct {
	save  func(ctx context.Context, dst, text string) error
	guard *resilience.Guard
}

// NewDeepgramSynthesizer creates a synthesizer for the configured voice
func NewDeepgramSynthesizer(cfg *config.Config) *DeepgramSynthesizer {
	c := speakClient.NewREST(cfg.DeepgramAPIKey, &interfaces.ClientOptions{})
	dg := speakapi.New(c)
	options := &interfaces.SpeakOptions{
		Model:    cfg.DeepgramVoice,
		Encoding: "mp3",
	}

	return &DeepgramSynthesizer{
		save: func(ctx context.Context, dst, text string) error {
			_, err := dg.ToSave(ctx, dst, text, options)
			return err
		},
		guard: resilience.NewGuardFromConfig("deepgram-tts", cfg),
	}
}

func (d *DeepgramSynthesizer) Name() string { return "deepgram" }

// Guard exposes the breaker guarding Deepgram speak
func (d *DeepgramSynthesizer) Guard() *resilience.Guard { return d.guard }

// Synthesize saves the MP3 rendering of text to dst
func (d *DeepgramSynthesizer) Synthesize(ctx context.Context, text, dst string) error {
	if text == "" {
		return ErrEmptyText
	}
	return d.guard.Do(ctx, func(ctx context.Context) error {
		if err := d.save(ctx, dst, text); err != nil {
			return &ProviderError{Provider: d.Name(), Err: err}
		}
		return nil
	})
}
