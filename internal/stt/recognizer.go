// Package stt turns captured speech into text. Capture and recognition are
// separate collaborators so either can be replaced in tests.
package stt

import (
	"context"
	"errors"
	"time"

	"github.com/lexiqai/alfred/internal/capture"
)

var (
	// ErrNoSpeech means no speech started before the listen timeout
	ErrNoSpeech = capture.ErrNoSpeech

	// ErrUnrecognized means audio was captured but nothing intelligible came back
	ErrUnrecognized = errors.New("speech not recognized")
)

// Recognizer converts one captured clip into text
type Recognizer interface {
	Recognize(ctx context.Context, clip *capture.Clip) (string, error)
}

// Capturer records a single bounded phrase from the input device
type Capturer interface {
	Listen(ctx context.Context, timeout, phraseLimit time.Duration) (*capture.Clip, error)
}

// SessionCapturer can hold the device open across the windows of one
// utterance, calibrating once
type SessionCapturer interface {
	Capturer
	OpenListener(ctx context.Context) (capture.Listener, error)
}

// RecognizerFunc adapts a function to Recognizer
type RecognizerFunc func(ctx context.Context, clip *capture.Clip) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, clip *capture.Clip) (string, error) {
	return f(ctx, clip)
}
