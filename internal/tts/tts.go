// Package tts synthesizes assistant replies into playable audio files.
package tts

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyText is returned when there is nothing to synthesize
	ErrEmptyText = errors.New("tts: empty text")

	// ErrNoProvider is returned when a chain is built without providers
	ErrNoProvider = errors.New("tts: no provider configured")
)

// Synthesizer writes the spoken form of text to the file at dst
type Synthesizer interface {
	Synthesize(ctx context.Context, text, dst string) error
	Name() string
}

// ProviderError wraps a failure reported by a provider's SDK or transport
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("tts [%s]: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// APIError is a non-success HTTP response from a provider
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tts [%s]: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsInvalidVoice reports a rejected voice or model identifier
func (e *APIError) IsInvalidVoice() bool {
	return e.StatusCode == 400 || e.StatusCode == 404 || e.StatusCode == 422
}

// IsUnauthorized returns true for authentication failures
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}
