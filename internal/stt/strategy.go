package stt

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lexiqai/alfred/internal/capture"
)

// ListenFunc captures and recognizes one window of speech
type ListenFunc func(ctx context.Context, timeout, phraseLimit time.Duration) (string, error)

// Strategy turns one or more listen windows into a single utterance
type Strategy interface {
	Run(ctx context.Context, listen ListenFunc, timeout, phraseLimit time.Duration) (string, error)
}

// SingleShot listens once, bounded by timeout and phrase limit
type SingleShot struct{}

func (SingleShot) Run(ctx context.Context, listen ListenFunc, timeout, phraseLimit time.Duration) (string, error) {
	return listen(ctx, timeout, phraseLimit)
}

// Continuous listens in fixed windows and joins whatever is recognized.
// Windows with no speech or a failed recognition count as silence; any
// recognized window resets the count. It stops once accumulated silence
// reaches SilenceLimit.
type Continuous struct {
	Chunk        time.Duration
	SilenceLimit time.Duration
}

// Run ignores timeout and phraseLimit; every window is one Chunk long
func (c Continuous) Run(ctx context.Context, listen ListenFunc, _, _ time.Duration) (string, error) {
	chunk := c.Chunk
	if chunk <= 0 {
		chunk = 3 * time.Second
	}
	limit := c.SilenceLimit
	if limit <= 0 {
		limit = 10 * time.Second
	}

	var parts []string
	var silence time.Duration
	for silence < limit {
		text, err := listen(ctx, chunk, chunk)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		switch {
		case err == nil:
			parts = append(parts, text)
			silence = 0
		case errors.Is(err, capture.ErrDeviceUnavailable), errors.Is(err, capture.ErrDeviceBusy):
			return "", err
		default:
			silence += chunk
		}
	}

	if len(parts) == 0 {
		return "", ErrNoSpeech
	}
	return strings.Join(parts, " "), nil
}
