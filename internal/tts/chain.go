package tts

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lexiqai/alfred/internal/observability"
)

// Chain implements Synthesizer by trying providers in order.
// The first success wins; if all fail, a ChainError is returned.
type Chain struct {
	providers []Synthesizer
	logger    zerolog.Logger
}

// NewChain creates a provider chain. At least one provider is required.
func NewChain(providers ...Synthesizer) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrNoProvider
	}
	return &Chain{
		providers: providers,
		logger:    observability.Component("tts.chain"),
	}, nil
}

func (c *Chain) Name() string { return "chain" }

// Providers returns the providers in fallback order
func (c *Chain) Providers() []Synthesizer {
	return c.providers
}

// Synthesize tries each provider until one succeeds. Empty text and
// cancellation stop the chain immediately.
func (c *Chain) Synthesize(ctx context.Context, text, dst string) error {
	if text == "" {
		return ErrEmptyText
	}

	var errs []error
	for i, p := range c.providers {
		err := p.Synthesize(ctx, text, dst)
		if err == nil {
			if i > 0 {
				c.logger.Info().Str("provider", p.Name()).Int("chars", len(text)).Msg("Fallback provider succeeded")
			}
			return nil
		}

		errs = append(errs, err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn().Err(err).Str("provider", p.Name()).Msg("Provider failed, trying next")
	}
	return &ChainError{Errors: errs}
}

// ChainError aggregates errors from all providers in a chain
type ChainError struct {
	Errors []error
}

func (e *ChainError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("tts chain: %v", e.Errors[0])
	}
	return fmt.Sprintf("tts chain: all %d providers failed, last error: %v", len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap exposes every provider error to errors.Is and errors.As
func (e *ChainError) Unwrap() []error {
	return e.Errors
}
