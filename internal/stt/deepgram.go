package stt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	listenapi "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	restinterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/lexiqai/alfred/internal/capture"
	"github.com/lexiqai/alfred/internal/config"
	"github.com/lexiqai/alfred/internal/observability"
	"github.com/lexiqai/alfred/internal/resilience"
)

// prerecorded is the subset of the Deepgram REST client we call
type prerecorded interface {
	FromStream(ctx context.Context, src io.Reader, options *interfaces.PreRecordedTranscriptionOptions) (*restinterfaces.PreRecordedResponse, error)
}

// DeepgramRecognizer transcribes clips with Deepgram's prerecorded API
type DeepgramRecognizer struct {
	client  prerecorded
	options *interfaces.PreRecordedTranscriptionOptions
	guard   *resilience.Guard
	logger  zerolog.Logger
}

// NewDeepgramRecognizer creates a recognizer from config
func NewDeepgramRecognizer(cfg *config.Config) *DeepgramRecognizer {
	c := listenClient.NewREST(cfg.DeepgramAPIKey, &interfaces.ClientOptions{})
	return newDeepgramRecognizer(listenapi.New(c), cfg)
}

func newDeepgramRecognizer(client prerecorded, cfg *config.Config) *DeepgramRecognizer {
	return &DeepgramRecognizer{
		client: client,
		options: &interfaces.PreRecordedTranscriptionOptions{
			Model:       cfg.DeepgramModel,
			Language:    cfg.DeepgramLanguage,
			Punctuate:   true,
			SmartFormat: true,
		},
		guard:  resilience.NewGuardFromConfig("deepgram-stt", cfg),
		logger: observability.Component("stt"),
	}
}

// Guard exposes the breaker guarding Deepgram, for readiness checks
func (d *DeepgramRecognizer) Guard() *resilience.Guard {
	return d.guard
}

// Recognize uploads the clip as WAV and returns the best transcript.
// An empty transcript is reported as ErrUnrecognized.
func (d *DeepgramRecognizer) Recognize(ctx context.Context, clip *capture.Clip) (string, error) {
	if clip.Empty() {
		return "", ErrUnrecognized
	}

	wav := clip.WAV()
	start := time.Now()

	var transcript string
	err := d.guard.Do(ctx, func(ctx context.Context) error {
		res, err := d.client.FromStream(ctx, bytes.NewReader(wav), d.options)
		if err != nil {
			return fmt.Errorf("deepgram transcription failed: %w", err)
		}
		transcript = bestTranscript(res)
		return nil
	})
	if err != nil {
		return "", err
	}

	d.logger.Debug().
		Dur("audio", clip.Duration()).
		Dur("latency", time.Since(start)).
		Int("chars", len(transcript)).
		Msg("Clip transcribed")

	if transcript == "" {
		return "", ErrUnrecognized
	}
	return transcript, nil
}

func bestTranscript(res *restinterfaces.PreRecordedResponse) string {
	if res == nil || res.Results == nil || len(res.Results.Channels) == 0 {
		return ""
	}
	ch := res.Results.Channels[0]
	if len(ch.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(ch.Alternatives[0].Transcript)
}
