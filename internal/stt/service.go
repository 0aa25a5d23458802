package stt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/alfred/internal/capture"
	"github.com/lexiqai/alfred/internal/observability"
)

// Service captures speech from the device and transcribes it
type Service struct {
	capturer   Capturer
	recognizer Recognizer
	strategy   Strategy
	logger     zerolog.Logger
}

// NewService creates a transcription service. A nil strategy means SingleShot.
func NewService(capturer Capturer, recognizer Recognizer, strategy Strategy) *Service {
	if strategy == nil {
		strategy = SingleShot{}
	}
	return &Service{
		capturer:   capturer,
		recognizer: recognizer,
		strategy:   strategy,
		logger:     observability.Component("stt"),
	}
}

// CaptureAndTranscribe listens for one utterance and returns its text.
// ErrNoSpeech is returned when nothing was said before timeout. Every
// window of the utterance shares one device session when the capturer
// supports it.
func (s *Service) CaptureAndTranscribe(ctx context.Context, timeout, phraseLimit time.Duration) (string, error) {
	capt := s.capturer
	if sc, ok := s.capturer.(SessionCapturer); ok {
		l, err := sc.OpenListener(ctx)
		if err != nil {
			return "", err
		}
		defer func() {
			if err := l.Close(); err != nil {
				s.logger.Warn().Err(err).Msg("Error closing capture session")
			}
		}()
		capt = l
	}

	return s.strategy.Run(ctx, func(ctx context.Context, timeout, phraseLimit time.Duration) (string, error) {
		clip, err := capt.Listen(ctx, timeout, phraseLimit)
		if err != nil {
			return "", err
		}
		return s.Transcribe(ctx, clip)
	}, timeout, phraseLimit)
}

// Transcribe recognizes an already captured clip
func (s *Service) Transcribe(ctx context.Context, clip *capture.Clip) (string, error) {
	if clip == nil || clip.Empty() {
		return "", ErrUnrecognized
	}
	text, err := s.recognizer.Recognize(ctx, clip)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrUnrecognized
	}
	s.logger.Debug().Str("text", text).Msg("Transcribed")
	return text, nil
}
