package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/lexiqai/alfred/internal/config"
	"github.com/lexiqai/alfred/internal/observability"
	"github.com/lexiqai/alfred/internal/resilience"
)

// GeminiStreamer streams replies from Google's Gemini chat models
type GeminiStreamer struct {
	client      *genai.Client
	modelName   string
	temperature float32
	guard       *resilience.Guard
	logger      zerolog.Logger
}

// NewGeminiStreamer connects to Gemini with the configured API key
func NewGeminiStreamer(ctx context.Context, cfg *config.Config) (*GeminiStreamer, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiStreamer{
		client:      client,
		modelName:   cfg.GeminiModel,
		temperature: cfg.GeminiTemperature,
		guard:       resilience.NewGuardFromConfig("gemini", cfg),
		logger:      observability.Component("conversation"),
	}, nil
}

// Guard exposes the breaker guarding Gemini, for readiness checks
func (g *GeminiStreamer) Guard() *resilience.Guard {
	return g.guard
}

// Close releases the underlying client
func (g *GeminiStreamer) Close() error {
	return g.client.Close()
}

// Stream starts a fresh chat carrying the whole history and streams the
// reply to its last user utterance. Opening the stream is retried; once a
// fragment has been delivered failures are reported on the channel.
func (g *GeminiStreamer) Stream(ctx context.Context, persona string, history []Utterance) (<-chan Fragment, error) {
	if len(history) == 0 || history[len(history)-1].Speaker != User {
		return nil, errors.New("history must end with a user utterance")
	}

	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(g.temperature)
	if persona != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(persona)},
		}
	}

	contents := toContents(history)
	last := contents[len(contents)-1]

	var (
		iter  *genai.GenerateContentResponseIterator
		first *genai.GenerateContentResponse
	)
	err := g.guard.Do(ctx, func(ctx context.Context) error {
		cs := model.StartChat()
		cs.History = contents[:len(contents)-1]
		it := cs.SendMessageStream(ctx, last.Parts...)
		resp, err := it.Next()
		if err != nil && !errors.Is(err, iterator.Done) {
			return fmt.Errorf("gemini stream failed: %w", err)
		}
		iter, first = it, resp
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make(chan Fragment, 16)
	go func() {
		defer close(out)
		send := func(f Fragment) bool {
			select {
			case out <- f:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if first == nil {
			return
		}
		if text := responseText(first); text != "" && !send(Fragment{Text: text}) {
			return
		}
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				send(Fragment{Err: fmt.Errorf("gemini stream failed: %w", err)})
				return
			}
			if text := responseText(resp); text != "" && !send(Fragment{Text: text}) {
				return
			}
		}
	}()
	return out, nil
}

// toContents maps history to chat contents, merging consecutive
// utterances from the same speaker into one turn
func toContents(history []Utterance) []*genai.Content {
	var contents []*genai.Content
	for _, u := range history {
		role := "user"
		if u.Speaker == Assistant {
			role = "model"
		}
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, genai.Text(u.Text))
			continue
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(u.Text)}})
	}
	return contents
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return sb.String()
}
