package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lexiqai/alfred/internal/config"
	"github.com/lexiqai/alfred/internal/resilience"
)

const (
	cartesiaURL     = "https://api.cartesia.ai/tts/bytes"
	cartesiaVersion = "2024-06-10"
)

// CartesiaSynthesizer implements Synthesizer using Cartesia's bytes API
type CartesiaSynthesizer struct {
	apiKey     string
	apiURL     string
	voiceID    string
	modelID    string
	httpClient *http.Client
	guard      *resilience.Guard
}

// CartesiaRequest represents the request payload for Cartesia TTS API
type CartesiaRequest struct {
	ModelID      string         `json:"model_id"`
	Transcript   string         `json:"transcript"`
	Voice        CartesiaVoice  `json:"voice"`
	OutputFormat CartesiaFormat `json:"output_format"`
	Language     string         `json:"language,omitempty"`
}

// CartesiaVoice selects a voice by id
type CartesiaVoice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

// CartesiaFormat describes the encoded audio returned
type CartesiaFormat struct {
	Container  string `json:"container"`
	SampleRate int    `json:"sample_rate"`
	BitRate    int    `json:"bit_rate,omitempty"`
}

// NewCartesiaSynthesizer creates a new Cartesia TTS client
func NewCartesiaSynthesizer(cfg *config.Config) *CartesiaSynthesizer {
	return &CartesiaSynthesizer{
		apiKey:     cfg.CartesiaAPIKey,
		apiURL:     cartesiaURL,
		voiceID:    cfg.CartesiaVoiceID,
		modelID:    cfg.CartesiaModelID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		guard:      resilience.NewGuardFromConfig("cartesia", cfg),
	}
}

func (c *CartesiaSynthesizer) Name() string { return "cartesia" }

// Guard exposes the breaker guarding Cartesia
func (c *CartesiaSynthesizer) Guard() *resilience.Guard { return c.guard }

// Synthesize converts text to MP3 and writes it to dst
func (c *CartesiaSynthesizer) Synthesize(ctx context.Context, text, dst string) error {
	if text == "" {
		return ErrEmptyText
	}

	reqBody := CartesiaRequest{
		ModelID:    c.modelID,
		Transcript: text,
		Voice:      CartesiaVoice{Mode: "id", ID: c.voiceID},
		OutputFormat: CartesiaFormat{
			Container:  "mp3",
			SampleRate: 44100,
			BitRate:    128000,
		},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	return c.guard.Do(ctx, func(ctx context.Context) error {
		return c.fetch(ctx, jsonData, dst)
	})
}

func (c *CartesiaSynthesizer) fetch(ctx context.Context, body []byte, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Cartesia-Version", cartesiaVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProviderError{Provider: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{Provider: c.Name(), StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return &ProviderError{Provider: c.Name(), Err: fmt.Errorf("reading audio: %w", err)}
	}
	if n == 0 {
		return &ProviderError{Provider: c.Name(), Err: fmt.Errorf("empty audio response")}
	}
	return nil
}
