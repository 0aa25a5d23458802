package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/alfred/internal/observability"
)

// ErrEmptyReply is returned when the engine streamed no text
var ErrEmptyReply = errors.New("empty reply from chat engine")

// Engine owns the conversation history and generates assistant replies
type Engine struct {
	streamer Streamer
	persona  string
	history  *History
	now      func() time.Time
	logger   zerolog.Logger
}

// NewEngine creates an engine with an empty history
func NewEngine(streamer Streamer, persona string) *Engine {
	return &Engine{
		streamer: streamer,
		persona:  persona,
		history:  NewHistory(),
		now:      time.Now,
		logger:   observability.Component("conversation"),
	}
}

// History returns the engine's conversation history
func (e *Engine) History() *History {
	return e.history
}

// GenerateReply records the user's text, sends the full history and
// returns the concatenated reply. The user utterance is kept even when
// generation fails; the assistant utterance is only recorded on success.
func (e *Engine) GenerateReply(ctx context.Context, userText string) (string, error) {
	e.history.Append(Utterance{Speaker: User, Text: userText, Timestamp: e.now()})

	fragments, err := e.streamer.Stream(ctx, e.persona, e.history.Snapshot())
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}

	var sb strings.Builder
	for f := range fragments {
		if f.Err != nil {
			drain(fragments)
			return "", fmt.Errorf("chat stream failed: %w", f.Err)
		}
		sb.WriteString(f.Text)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	reply := strings.TrimSpace(sb.String())
	if reply == "" {
		return "", ErrEmptyReply
	}

	e.history.Append(Utterance{Speaker: Assistant, Text: reply, Timestamp: e.now()})
	e.logger.Debug().Int("history", e.history.Len()).Int("chars", len(reply)).Msg("Reply generated")
	return reply, nil
}

func drain(ch <-chan Fragment) {
	go func() {
		for range ch {
		}
	}()
}
